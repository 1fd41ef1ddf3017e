package main

import (
	"fmt"

	"github.com/sensorable/detprep"
	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert pixel-space ground truth into normalized label files",
	Long: `Convert reads the semicolon-separated ground-truth file
(image;leftCol;topRow;rightCol;bottomRow;classID) and writes one label file per image with
lines "classID x_center y_center width height", relative to the image size. Every image in
the image directory gets a label file; images without ground truth get an empty one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		result, err := detprep.Convert(cfg.Convert)
		if err != nil {
			return err
		}

		fmt.Printf("Converted %d objects into %d label files (%d empty)\n", result.Records,
			result.LabelFiles, result.EmptyLabels)
		return nil
	},
}

func init() {
	convertCmd.Flags().String("gt", "", "the ground-truth `file`")
	convertCmd.Flags().String("images", "", "the image `directory`")
	convertCmd.Flags().String("labels-out", "",
		"the label output `directory` (default: the image directory)")
	bindFlags(convertCmd, map[string]string{
		"gt":         "convert.ground_truth",
		"images":     "convert.image_dir",
		"labels-out": "convert.label_dir",
	})

	rootCmd.AddCommand(convertCmd)
}
