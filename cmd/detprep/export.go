package main

import (
	"fmt"

	"github.com/sensorable/detprep"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a split directory as TFRecord files",
	Long: `Export writes every image/label pair of a split directory as a TensorFlow object
detection Example to one or more TFRecord shards and writes a label map for the classes
found.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		result, err := detprep.ExportTFRecord(cfg.Export)
		if err != nil {
			return err
		}

		fmt.Printf("Exported %d examples with %d classes to %v (%d skipped)\n", result.Examples,
			len(result.Classes), result.Shards, result.Skipped)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("dir", "", "the split `directory` with images and label files")
	exportCmd.Flags().String("out", "", "the TFRecord output `path`")
	exportCmd.Flags().String("label-map", "", "the label map output `path`")
	exportCmd.Flags().Int("num-shards", 1, "the number of shard files to create")
	exportCmd.Flags().String("classes", "", "class names `file`")
	bindFlags(exportCmd, map[string]string{
		"dir":        "export.split_dir",
		"out":        "export.out",
		"label-map":  "export.label_map",
		"num-shards": "export.num_shards",
		"classes":    "export.class_file",
	})

	rootCmd.AddCommand(exportCmd)
}
