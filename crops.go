package detprep

// Export of labelled objects as individual images, for reviewing the labels by eye.

import (
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// CropResult summarizes an ExportCrops run.
type CropResult struct {
	Images  int // Images processed.
	Crops   int // Crops written.
	Skipped int // Labels whose box does not intersect the image.
}

// ExportCrops crops every labelled object from the images in cfg.Dir and saves it as
// cfg.OutDir/<classID>/<stem>_<nn><ext>, where nn is the line index in the label file. Boxes are
// clipped to the image bounds; boxes outside the image are skipped.
func ExportCrops(cfg CropConfig) (*CropResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pairs, err := labeledImagesInDir(cfg.Dir)
	if err != nil {
		return nil, err
	}
	klog.Infof("Cropping the objects of %d images in %q", len(pairs), cfg.Dir)

	bar := newProgressBar(len(pairs), "cropping", cfg.Progress)
	defer bar.Finish()

	result := &CropResult{}
	for _, p := range pairs {
		if p.Labels, err = ReadLabels(p.LabelPath); err != nil {
			return nil, err
		}
		if len(p.Labels) > 0 {
			img, err := loadImage(p.ImagePath)
			if err != nil {
				return nil, err
			}
			n, err := saveCrops(p, img, cfg.OutDir, cfg.JPEGQuality)
			if err != nil {
				return nil, err
			}
			result.Crops += n
			result.Skipped += len(p.Labels) - n
		}
		result.Images++
		_ = bar.Add(1)
	}
	klog.Infof("Wrote %d crops, skipped %d boxes outside their image", result.Crops,
		result.Skipped)

	return result, nil
}

// cropRect returns the pixel rectangle of l in an image with the given bounds, clipped to the
// bounds. The rectangle is empty if l does not intersect the image.
func cropRect(l Label, bounds image.Rectangle) image.Rectangle {
	left, top, right, bottom := l.Box.Corners(bounds.Dx(), bounds.Dy())
	r := image.Rect(int(math.Round(left)), int(math.Round(top)), int(math.Round(right)),
		int(math.Round(bottom))).Add(bounds.Min)
	return r.Intersect(bounds)
}

// saveCrops writes the crops of all labels of p from img. Returns the number of crops written.
func saveCrops(p LabeledImage, img image.Image, outDir string, jpegQuality int) (int, error) {
	ext := filepath.Ext(p.ImagePath)
	if _, err := imaging.FormatFromExtension(ext); err != nil {
		// No encoder for this format, e.g. webp.
		ext = ".png"
	}
	base := stem(p.ImagePath)

	n := 0
	for i, l := range p.Labels {
		r := cropRect(l, img.Bounds())
		if r.Empty() {
			klog.V(1).Infof("Label %d of %q lies outside the image, skipping", i, p.LabelPath)
			continue
		}

		dir := filepath.Join(outDir, strconv.Itoa(l.ClassID))
		if err := os.MkdirAll(dir, 0755); err != nil {
			return n, errors.Wrapf(err, "cannot create %q", dir)
		}
		path := filepath.Join(dir, fmt.Sprintf("%s_%02d%s", base, i, ext))
		if err := saveImage(path, imaging.Crop(img, r), jpegQuality); err != nil {
			return n, err
		}
		n++
	}

	return n, nil
}
