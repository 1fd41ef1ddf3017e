package detprep

import (
	"image"
	_ "image/jpeg" // Register the decoders for all recognized image extensions.
	_ "image/png"
	"os"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// decodeImageConfig opens the file at path and returns the results of image.DecodeConfig. Only
// the image header is read.
func decodeImageConfig(path string) (config image.Config, format string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return image.Config{}, "", errors.Wrapf(err, "cannot open image %q", path)
	}
	defer file.Close()

	config, format, err = image.DecodeConfig(file)
	if err != nil {
		return image.Config{}, "", errors.Wrapf(err, "cannot decode the header of %q", path)
	}
	return config, format, nil
}

// imageSize returns the pixel width and height of the image at path.
//
// Returns ErrZeroDimension if either is zero.
func imageSize(path string) (width, height int, err error) {
	width, height, err = decodeImageSize(path)
	if err != nil {
		return 0, 0, err
	}
	if width <= 0 || height <= 0 {
		return 0, 0, errors.Wrapf(ErrZeroDimension, "%q is %dx%d", path, width, height)
	}
	return width, height, nil
}

// decodeImageSize reads the dimensions from the image header. Replaced in tests.
var decodeImageSize = func(path string) (width, height int, err error) {
	config, _, err := decodeImageConfig(path)
	return config.Width, config.Height, err
}

// loadImage reads and decodes the image at path.
func loadImage(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot load image %q", path)
	}
	return img, nil
}

// saveImage saves img to path, encoding it according to the file extension of path.
func saveImage(path string, img image.Image, jpegQuality int) error {
	if err := imaging.Save(img, path, imaging.JPEGQuality(jpegQuality)); err != nil {
		return errors.Wrapf(err, "cannot save image %q", path)
	}
	return nil
}
