package main

import (
	"fmt"

	"github.com/sensorable/detprep"
	"github.com/spf13/cobra"
)

var cropsCmd = &cobra.Command{
	Use:   "crops",
	Short: "Save every labelled object as its own image for review",
	Long: `Crops cuts the box of every label out of its image and saves it below
<out>/<classID>/, so the labels of each class can be reviewed by eye.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		result, err := detprep.ExportCrops(cfg.Crops)
		if err != nil {
			return err
		}

		fmt.Printf("Wrote %d crops from %d images (%d boxes outside their image)\n",
			result.Crops, result.Images, result.Skipped)
		return nil
	},
}

func init() {
	cropsCmd.Flags().String("dir", "", "the `directory` with images and label files")
	cropsCmd.Flags().String("out", "", "the output `directory`")
	cropsCmd.Flags().Int("jpeg-quality", 90, "the quality for JPEG crops [1, 100]")
	bindFlags(cropsCmd, map[string]string{
		"dir":          "crops.dir",
		"out":          "crops.out_dir",
		"jpeg-quality": "crops.jpeg_quality",
	})

	rootCmd.AddCommand(cropsCmd)
}
