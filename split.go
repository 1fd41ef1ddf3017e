package detprep

// Deterministic train/test splitting of an enumerated dataset.

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Split is a partition of the indices [0, size) into disjoint train and test sets.
type Split struct {
	Train []int // Sorted.
	Test  []int // Sorted.
}

// NewSplit samples trainSize indices out of [0, size) without replacement, using a PRNG seeded
// with seed. The remaining indices form the test set. The same arguments always give the same
// split.
func NewSplit(size, trainSize int, seed int64) (Split, error) {
	if size < 0 || trainSize < 0 || trainSize > size {
		return Split{}, errors.Errorf("cannot sample %d out of %d indices", trainSize, size)
	}

	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(size)

	s := Split{
		Train: append([]int(nil), perm[:trainSize]...),
		Test:  append([]int(nil), perm[trainSize:]...),
	}
	sort.Ints(s.Train)
	sort.Ints(s.Test)

	return s, nil
}

// SplitResult summarizes a SplitDataset run.
type SplitResult struct {
	Split
	TrainDir    string
	TestDir     string
	FilesCopied int
	BytesCopied int64
}

// SplitDataset partitions the numbered dataset in cfg.DatasetDir and copies the image and label
// file of every index into the train or test subdirectory, which are created if absent. The
// source files are left in place.
//
// A missing image or label file aborts the run; files copied up to then are kept.
func SplitDataset(cfg SplitConfig) (*SplitResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	split, err := NewSplit(cfg.Size, cfg.TrainSize, cfg.Seed)
	if err != nil {
		return nil, err
	}

	result := &SplitResult{
		Split:    split,
		TrainDir: filepath.Join(cfg.DatasetDir, cfg.TrainDir),
		TestDir:  filepath.Join(cfg.DatasetDir, cfg.TestDir),
	}
	for _, dir := range []string{result.TrainDir, result.TestDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrapf(err, "cannot create %q", dir)
		}
	}
	klog.Infof("Splitting %d images of %q into %d train and %d test images (seed %d)", cfg.Size,
		cfg.DatasetDir, len(split.Train), len(split.Test), cfg.Seed)

	bar := newProgressBar(cfg.Size, "splitting", cfg.Progress)
	defer bar.Finish()

	sets := []struct {
		indices []int
		dir     string
		images  *[]string
	}{
		{split.Train, result.TrainDir, new([]string)},
		{split.Test, result.TestDir, new([]string)},
	}
	for _, set := range sets {
		for _, i := range set.indices {
			name := fmt.Sprintf(cfg.NameFormat, i)
			for _, ext := range []string{cfg.ImageExt, labelExt} {
				src := filepath.Join(cfg.DatasetDir, name+ext)
				if !exists(src) {
					return nil, errors.Errorf("missing %q for index %d", src, i)
				}
				dst, n, err := copyFile(src, set.dir)
				if err != nil {
					return nil, err
				}
				if ext != labelExt {
					*set.images = append(*set.images, dst)
				}
				result.FilesCopied++
				result.BytesCopied += n
			}
			_ = bar.Add(1)
		}
	}
	klog.Infof("Copied %d files (%s)", result.FilesCopied,
		humanize.Bytes(uint64(result.BytesCopied)))

	if cfg.WriteManifest {
		classes, err := readClassFile(cfg.ClassFile)
		if err != nil {
			return nil, err
		}
		m := manifest{
			dir:         cfg.DatasetDir,
			trainImages: *sets[0].images,
			testImages:  *sets[1].images,
			trainDir:    cfg.TrainDir,
			testDir:     cfg.TestDir,
			classes:     classes,
		}
		if err := m.write(); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// readClassFile reads class names from path. An empty path gives no names.
func readClassFile(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	if !exists(path) {
		return nil, errors.Errorf("class file %q does not exist", path)
	}
	names, _, err := ReadClasses([]string{path})
	return names, err
}
