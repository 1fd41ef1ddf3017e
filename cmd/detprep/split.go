package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/sensorable/detprep"
	"github.com/spf13/cobra"
)

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Copy a seeded train/test partition into train/ and test/",
	Long: `Split samples the train indices out of [0, size) without replacement from a PRNG with
a fixed seed; the remaining indices are the test set. The image and label file of every
index are copied into the train or test subdirectory of the dataset directory. The same
seed always gives the same partition.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		result, err := detprep.SplitDataset(cfg.Split)
		if err != nil {
			return err
		}

		fmt.Printf("Copied %d train and %d test images to %s and %s (%s)\n",
			len(result.Train), len(result.Test), result.TrainDir, result.TestDir,
			humanize.Bytes(uint64(result.BytesCopied)))
		return nil
	},
}

func init() {
	splitCmd.Flags().String("dir", "", "the dataset `directory`")
	splitCmd.Flags().Int("size", 0, "the number of images, numbered from 0")
	splitCmd.Flags().Int("train", 0, "the number of train images")
	splitCmd.Flags().Int64("seed", 0, "the PRNG seed")
	splitCmd.Flags().String("classes", "", "class names `file` for data.yaml")
	splitCmd.Flags().Bool("manifest", true, "write train.txt, test.txt and data.yaml")
	bindFlags(splitCmd, map[string]string{
		"dir":      "split.dataset_dir",
		"size":     "split.size",
		"train":    "split.train_size",
		"seed":     "split.seed",
		"classes":  "split.class_file",
		"manifest": "split.write_manifest",
	})

	rootCmd.AddCommand(splitCmd)
}
