// Prepares an object detection dataset for training: converts pixel-space ground truth into
// normalized label files, verifies that images and labels match up and splits the dataset into
// train and test sets.
package main

import (
	goflag "flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/sensorable/detprep"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"k8s.io/klog/v2"
)

// rootCmd is the base command of the CLI.
var rootCmd = &cobra.Command{
	Use:   "detprep",
	Short: "Prepare an object detection dataset for training",
	Long: `detprep converts semicolon-separated pixel-space ground truth into one normalized
label file per image, verifies that every image has exactly one label file, splits the
numbered dataset into train and test subdirectories and exports the result as TFRecord
files or per-object crops.

Settings are read from detprep.yaml (current directory or ~/.config/detprep/), from
DETPREP_* environment variables (e.g. DETPREP_SPLIT_SEED) and from flags.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "",
		"config file (default: ./detprep.yaml or ~/.config/detprep/detprep.yaml)")
	rootCmd.PersistentFlags().Bool("progress", true, "show progress bars on stderr")

	// Add the klog flags (-v, -logtostderr, ...).
	fs := goflag.NewFlagSet("klog", goflag.ExitOnError)
	klog.InitFlags(fs)
	rootCmd.PersistentFlags().AddGoFlagSet(fs)
}

// initConfig sets up viper with the defaults, the config file and the environment.
func initConfig() {
	setDefaults(detprep.DefaultConfig())

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("detprep")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "detprep"))
		}
	}

	viper.SetEnvPrefix("DETPREP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		klog.Infof("Using config file %s", viper.ConfigFileUsed())
	} else if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
		klog.Fatalf("Failed to read the config file: %v", err)
	}
}

// setDefaults registers the values of cfg as viper defaults, so that every key is known to
// AutomaticEnv and Unmarshal.
func setDefaults(cfg detprep.Config) {
	defaults := map[string]interface{}{
		"convert.ground_truth": cfg.Convert.GroundTruthPath,
		"convert.image_dir":    cfg.Convert.ImageDir,
		"convert.label_dir":    cfg.Convert.LabelDir,
		"verify.project_root":  cfg.Verify.ProjectRoot,
		"verify.data_root":     cfg.Verify.DataRoot,
		"verify.class_files":   cfg.Verify.ClassFiles,
		"verify.preview_limit": cfg.Verify.PreviewLimit,
		"split.dataset_dir":    cfg.Split.DatasetDir,
		"split.size":           cfg.Split.Size,
		"split.train_size":     cfg.Split.TrainSize,
		"split.seed":           cfg.Split.Seed,
		"split.name_format":    cfg.Split.NameFormat,
		"split.image_ext":      cfg.Split.ImageExt,
		"split.train_dir":      cfg.Split.TrainDir,
		"split.test_dir":       cfg.Split.TestDir,
		"split.write_manifest": cfg.Split.WriteManifest,
		"split.class_file":     cfg.Split.ClassFile,
		"export.split_dir":     cfg.Export.SplitDir,
		"export.out":           cfg.Export.OutPath,
		"export.label_map":     cfg.Export.LabelMapPath,
		"export.num_shards":    cfg.Export.NumShards,
		"export.class_file":    cfg.Export.ClassFile,
		"crops.dir":            cfg.Crops.Dir,
		"crops.out_dir":        cfg.Crops.OutDir,
		"crops.jpeg_quality":   cfg.Crops.JPEGQuality,
	}
	for k, v := range defaults {
		viper.SetDefault(k, v)
	}
}

// loadConfig returns the merged configuration of defaults, config file, environment and flags.
func loadConfig(cmd *cobra.Command) (detprep.Config, error) {
	var cfg detprep.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, err
	}

	progress, _ := cmd.Flags().GetBool("progress")
	cfg.Convert.Progress = progress
	cfg.Split.Progress = progress
	cfg.Export.Progress = progress
	cfg.Crops.Progress = progress

	return cfg, nil
}

// bindFlags binds the flags of cmd to the viper keys, given as flag name to key.
func bindFlags(cmd *cobra.Command, keys map[string]string) {
	for name, key := range keys {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			klog.Fatalf("Failed to bind flag %q: %v", name, err)
		}
	}
}

func main() {
	defer klog.Flush()

	if err := rootCmd.Execute(); err != nil {
		klog.Errorf("%+v", err)
		klog.Flush()
		os.Exit(1)
	}
}
