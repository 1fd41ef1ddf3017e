package detprep

// Conversion of pixel-space ground truth into normalized label files.

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ErrImageNotFound is returned when a ground-truth record references an image that is not in the
// image directory.
var ErrImageNotFound = errors.New("image not found")

// ConvertResult summarizes a conversion run.
type ConvertResult struct {
	Images      int // Images found in the image directory.
	Records     int // Ground-truth records converted.
	LabelFiles  int // Label files written, including empty ones.
	EmptyLabels int // Label files without any object.
}

// Convert reads the ground truth from cfg.GroundTruthPath, normalizes every record against the
// size of its image and writes one label file per image in cfg.ImageDir.
//
// Images are matched to records by stem, so a record for "00001.ppm" labels "00001.jpg". All label
// files are first truncated, so images without any record end up with an empty label file. Lines
// keep the order of the records in the ground-truth file.
func Convert(cfg ConvertConfig) (*ConvertResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	records, err := ReadGroundTruth(cfg.GroundTruthPath)
	if err != nil {
		return nil, err
	}

	// Find the images and map their stems to the paths.
	images, err := imagesInDir(cfg.ImageDir)
	if err != nil {
		return nil, err
	}
	stemsToImages := mapStemsToPaths(images)
	klog.Infof("Converting %d records for %d images in %q", len(records), len(images),
		cfg.ImageDir)

	labelDir := cfg.labelDir()
	if err := os.MkdirAll(labelDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "cannot create label directory %q", labelDir)
	}
	labelPath := func(s string) string {
		return filepath.Join(labelDir, s+labelExt)
	}

	// Check every record has an image before anything is written.
	groups := groupByStem(records)
	for _, g := range groups {
		if _, found := stemsToImages[g.stem]; !found {
			return nil, errors.Wrapf(ErrImageNotFound, "%q referenced by the ground truth in %q",
				g.records[0].Image, cfg.ImageDir)
		}
	}

	// Clear all label files.
	for s := range stemsToImages {
		if err := WriteLabels(labelPath(s), nil); err != nil {
			return nil, err
		}
	}

	result := &ConvertResult{
		Images:     len(images),
		LabelFiles: len(stemsToImages),
	}

	bar := newProgressBar(len(groups), "converting", cfg.Progress)
	defer bar.Finish()

	// Normalize and write the labels, one image at a time.
	for _, g := range groups {
		imagePath := stemsToImages[g.stem]
		width, height, err := imageSize(imagePath)
		if err != nil {
			return nil, err
		}

		labels := make([]Label, len(g.records))
		for i, r := range g.records {
			if labels[i], err = Normalize(r, width, height); err != nil {
				return nil, err
			}
		}
		if err := WriteLabels(labelPath(g.stem), labels); err != nil {
			return nil, err
		}
		klog.V(2).Infof("Wrote %d labels for %q", len(labels), imagePath)

		result.Records += len(labels)
		_ = bar.Add(1)
	}
	result.EmptyLabels = result.LabelFiles - len(groups)

	klog.Infof("Wrote %d label files (%d empty) with %d objects", result.LabelFiles,
		result.EmptyLabels, result.Records)
	return result, nil
}
