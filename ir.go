package detprep

// The annotation representations shared by all components.

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
)

// ErrZeroDimension is returned when an image reports a zero width or height, which would make the
// normalized coordinates infinite or NaN.
var ErrZeroDimension = errors.New("image has a zero dimension")

// GroundTruth is one annotated object in pixel space, as read from the ground-truth file.
type GroundTruth struct {
	Image   string  // The image file name referenced by the record.
	Left    float64 // leftCol
	Top     float64 // topRow
	Right   float64 // rightCol
	Bottom  float64 // bottomRow
	ClassID int
}

// Width is the object width in pixels.
func (g GroundTruth) Width() float64 {
	return g.Right - g.Left
}

// Height is the object height in pixels.
func (g GroundTruth) Height() float64 {
	return g.Bottom - g.Top
}

// Box is a bounding box in center-and-size form, expressed as fractions of the image size.
type Box struct {
	XCenter float64
	YCenter float64
	Width   float64
	Height  float64
}

// Corners converts b back to absolute pixel corners (left, top, right, bottom) for an image of the
// given size. It is the inverse of Normalize.
func (b Box) Corners(imageWidth, imageHeight int) (left, top, right, bottom float64) {
	w := float64(imageWidth)
	h := float64(imageHeight)
	cx, cy := b.XCenter*w, b.YCenter*h
	bw, bh := b.Width*w, b.Height*h
	return cx - bw/2, cy - bh/2, cx + bw/2, cy + bh/2
}

// MinMax returns the normalized corners xmin, ymin, xmax, ymax of b.
func (b Box) MinMax() (xmin, ymin, xmax, ymax float64) {
	return b.XCenter - b.Width/2, b.YCenter - b.Height/2,
		b.XCenter + b.Width/2, b.YCenter + b.Height/2
}

// Label is a normalized object label, one line of a label file.
type Label struct {
	ClassID int
	Box     Box
}

// String formats l as a label file line: "classID x_center y_center width height".
func (l Label) String() string {
	return fmt.Sprintf("%d %s %s %s %s", l.ClassID, formatCoord(l.Box.XCenter),
		formatCoord(l.Box.YCenter), formatCoord(l.Box.Width), formatCoord(l.Box.Height))
}

// formatCoord formats v in the shortest form that parses back to the identical float64.
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Normalize converts the pixel box of g into a Label relative to an image of the given size.
//
// Returns ErrZeroDimension if either dimension is not positive.
func Normalize(g GroundTruth, imageWidth, imageHeight int) (Label, error) {
	if imageWidth <= 0 || imageHeight <= 0 {
		return Label{}, errors.Wrapf(ErrZeroDimension, "%q is %dx%d", g.Image, imageWidth,
			imageHeight)
	}

	w := float64(imageWidth)
	h := float64(imageHeight)
	return Label{
		ClassID: g.ClassID,
		Box: Box{
			XCenter: (g.Left + g.Right) / (2 * w),
			YCenter: (g.Top + g.Bottom) / (2 * h),
			Width:   g.Width() / w,
			Height:  g.Height() / h,
		},
	}, nil
}

// LabeledImage pairs an image with its labels.
type LabeledImage struct {
	Labels    []Label
	ImagePath string
	LabelPath string
}
