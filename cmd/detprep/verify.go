package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/sensorable/detprep"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that images and label files match up",
	Long: `Verify scans the data root recursively, matches images to label files by file name
stem and prints a report: class names, file counts, instance counts per class, empty label
files, malformed label lines and images or labels without a counterpart. Nothing is
modified.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		report, err := detprep.Verify(cfg.Verify)
		if errors.Is(err, detprep.ErrMissingDataRoot) {
			fmt.Println(err)
			return nil
		} else if err != nil {
			return err
		}

		if err := report.Write(os.Stdout); err != nil {
			return err
		}

		if strict, _ := cmd.Flags().GetBool("strict"); strict &&
			(!report.Consistent() || len(report.Malformed) > 0) {
			return errors.New("the dataset is inconsistent")
		}
		return nil
	},
}

func init() {
	verifyCmd.Flags().String("root", "", "the project `directory` (default: detected)")
	verifyCmd.Flags().String("data", "", "the dataset `directory` (default: <root>/data/raw/ts)")
	verifyCmd.Flags().StringSlice("classes", nil, "class name `files` to try, in order")
	verifyCmd.Flags().Int("preview", 10, "max. `entries` listed per diagnostic")
	verifyCmd.Flags().Bool("strict", false,
		"fail if images and labels do not match or lines are malformed")
	bindFlags(verifyCmd, map[string]string{
		"root":    "verify.project_root",
		"data":    "verify.data_root",
		"classes": "verify.class_files",
		"preview": "verify.preview_limit",
	})

	rootCmd.AddCommand(verifyCmd)
}
