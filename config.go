package detprep

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Config holds the settings of all components. The zero value is not useful, start from
// DefaultConfig.
type Config struct {
	Convert ConvertConfig `mapstructure:"convert"`
	Verify  VerifyConfig  `mapstructure:"verify"`
	Split   SplitConfig   `mapstructure:"split"`
	Export  ExportConfig  `mapstructure:"export"`
	Crops   CropConfig    `mapstructure:"crops"`
}

// ConvertConfig configures the annotation converter.
type ConvertConfig struct {
	GroundTruthPath string `mapstructure:"ground_truth"` // The semicolon-separated ground-truth file.
	ImageDir        string `mapstructure:"image_dir"`    // The directory with the images.
	LabelDir        string `mapstructure:"label_dir"`    // Output directory; empty means ImageDir.
	Progress        bool   `mapstructure:"-"`
}

// Validate checks that the required paths are set.
func (c ConvertConfig) Validate() error {
	if c.GroundTruthPath == "" {
		return errors.New("missing ground-truth file path")
	}
	if c.ImageDir == "" {
		return errors.New("missing image directory")
	}
	return nil
}

// labelDir returns the directory the label files are written to.
func (c ConvertConfig) labelDir() string {
	if c.LabelDir == "" {
		return c.ImageDir
	}
	return c.LabelDir
}

// defaultPreviewLimit is the number of entries listed per verifier diagnostic.
const defaultPreviewLimit = 10

// VerifyConfig configures the dataset verifier.
type VerifyConfig struct {
	ProjectRoot  string   `mapstructure:"project_root"`  // Empty means DetectProjectRoot.
	DataRoot     string   `mapstructure:"data_root"`     // Empty means <root>/data/raw/ts.
	ClassFiles   []string `mapstructure:"class_files"`   // Empty means the default candidates.
	PreviewLimit int      `mapstructure:"preview_limit"` // Entries per diagnostic, 0 means 10.
}

// Validate checks the preview limit.
func (c VerifyConfig) Validate() error {
	if c.PreviewLimit < 0 {
		return errors.Errorf("invalid preview limit %d", c.PreviewLimit)
	}
	return nil
}

// resolve fills in the derived defaults for the project root, data root and class file
// candidates.
func (c VerifyConfig) resolve() (VerifyConfig, error) {
	if c.ProjectRoot == "" {
		root, err := DetectProjectRoot("")
		if err != nil {
			return c, err
		}
		c.ProjectRoot = root
	}
	if c.DataRoot == "" {
		c.DataRoot = filepath.Join(c.ProjectRoot, "data", "raw", "ts")
	}
	if len(c.ClassFiles) == 0 {
		c.ClassFiles = ClassFileCandidates(c.ProjectRoot, c.DataRoot)
	}
	if c.PreviewLimit == 0 {
		c.PreviewLimit = defaultPreviewLimit
	}
	return c, nil
}

// SplitConfig configures the splitter.
type SplitConfig struct {
	DatasetDir    string `mapstructure:"dataset_dir"`    // The directory with the numbered files.
	Size          int    `mapstructure:"size"`           // Number of images, indexed from 0.
	TrainSize     int    `mapstructure:"train_size"`     // Number of indices in the train set.
	Seed          int64  `mapstructure:"seed"`           // Fixes the partition.
	NameFormat    string `mapstructure:"name_format"`    // fmt verb for an index, e.g. "%05d".
	ImageExt      string `mapstructure:"image_ext"`      // Image extension including the dot.
	TrainDir      string `mapstructure:"train_dir"`      // Subdirectory name for the train set.
	TestDir       string `mapstructure:"test_dir"`       // Subdirectory name for the test set.
	WriteManifest bool   `mapstructure:"write_manifest"` // Write train.txt, test.txt, data.yaml.
	ClassFile     string `mapstructure:"class_file"`     // Optional class names for data.yaml.
	Progress      bool   `mapstructure:"-"`
}

// Validate checks the split sizes and paths.
func (c SplitConfig) Validate() error {
	switch {
	case c.DatasetDir == "":
		return errors.New("missing dataset directory")
	case c.Size <= 0:
		return errors.Errorf("invalid dataset size %d", c.Size)
	case c.TrainSize < 0 || c.TrainSize > c.Size:
		return errors.Errorf("invalid train size %d for a dataset of %d", c.TrainSize, c.Size)
	case c.TrainDir == "" || c.TestDir == "" || c.TrainDir == c.TestDir:
		return errors.Errorf("invalid split directories %q and %q", c.TrainDir, c.TestDir)
	case c.NameFormat == "":
		return errors.New("missing name format")
	}
	return nil
}

// ExportConfig configures the TFRecord exporter.
type ExportConfig struct {
	SplitDir     string `mapstructure:"split_dir"`  // Directory with image/label pairs.
	OutPath      string `mapstructure:"out"`        // The TFRecord file (shard prefix).
	LabelMapPath string `mapstructure:"label_map"`  // The label map output file.
	NumShards    int    `mapstructure:"num_shards"` // Number of shard files.
	ClassFile    string `mapstructure:"class_file"` // Optional class names.
	Progress     bool   `mapstructure:"-"`
}

// Validate checks that the required paths are set.
func (c ExportConfig) Validate() error {
	if c.SplitDir == "" || c.OutPath == "" || c.LabelMapPath == "" {
		return errors.New("missing split directory, output or label map path")
	}
	return nil
}

// CropConfig configures the crop exporter.
type CropConfig struct {
	Dir         string `mapstructure:"dir"`          // Directory with image/label pairs.
	OutDir      string `mapstructure:"out_dir"`      // OutDir/<classID>/, outside of Dir.
	JPEGQuality int    `mapstructure:"jpeg_quality"` // Quality for JPEG crops, [1, 100].
	Progress    bool   `mapstructure:"-"`
}

// Validate checks the paths and JPEG quality.
func (c CropConfig) Validate() error {
	if c.Dir == "" || c.OutDir == "" {
		return errors.New("missing input or output directory")
	}
	if within(c.OutDir, c.Dir) {
		return errors.Errorf("the output directory %q cannot be inside the input directory %q",
			c.OutDir, c.Dir)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return errors.Errorf("invalid JPEG quality %d", c.JPEGQuality)
	}
	return nil
}

// within reports whether path is dir or lies below it.
func within(path, dir string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// DefaultConfig returns the settings for the GTSDB layout: gt.txt and the numbered images in
// GTSDB/, 900 images split 600/300 with seed 1234.
func DefaultConfig() Config {
	return Config{
		Convert: ConvertConfig{
			GroundTruthPath: "gt.txt",
			ImageDir:        "GTSDB",
		},
		Verify: VerifyConfig{
			PreviewLimit: defaultPreviewLimit,
		},
		Split: SplitConfig{
			DatasetDir:    "GTSDB",
			Size:          900,
			TrainSize:     600,
			Seed:          1234,
			NameFormat:    "%05d",
			ImageExt:      ".jpg",
			TrainDir:      "train",
			TestDir:       "test",
			WriteManifest: true,
		},
		Export: ExportConfig{
			SplitDir:     filepath.Join("GTSDB", "train"),
			OutPath:      filepath.Join("GTSDB", "train.record"),
			LabelMapPath: filepath.Join("GTSDB", "label_map.pbtxt"),
			NumShards:    1,
		},
		Crops: CropConfig{
			Dir:         "GTSDB",
			OutDir:      "crops",
			JPEGQuality: 90,
		},
	}
}
