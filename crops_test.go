package detprep

import (
	"image"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCropRect(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 50)
	tests := []struct {
		name  string
		label Label
		want  image.Rectangle
	}{
		{"inside", Label{Box: Box{XCenter: 0.5, YCenter: 0.5, Width: 0.2, Height: 0.4}},
			image.Rect(40, 15, 60, 35)},
		{"whole", Label{Box: Box{XCenter: 0.5, YCenter: 0.5, Width: 1, Height: 1}}, bounds},
		{"clipped", Label{Box: Box{XCenter: 0, YCenter: 1, Width: 0.2, Height: 0.4}},
			image.Rect(0, 40, 10, 50)},
		{"outside", Label{Box: Box{XCenter: 2, YCenter: 0.5, Width: 0.1, Height: 0.1}},
			image.Rectangle{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := cropRect(tc.label, bounds)
			if tc.want.Empty() {
				assert.True(t, got.Empty(), "%v", got)
			} else {
				assert.Equal(t, tc.want, got)
			}
		})
	}

	// Offset bounds.
	assert.Equal(t, image.Rect(50, 25, 60, 35),
		cropRect(Label{Box: Box{XCenter: 0.5, YCenter: 0.5, Width: 0.5, Height: 0.5}},
			image.Rect(45, 20, 65, 40)))
}

func TestExportCrops(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, filepath.Join(dir, "00000.jpg"), 100, 50)
	writeFile(t, dir, "00000.txt", "3 0.5 0.5 0.2 0.4\n3 0 1 0.2 0.4\n5 2 2 0.1 0.1\n")
	writeImage(t, filepath.Join(dir, "00001.png"), 10, 10)
	writeFile(t, dir, "00001.txt", "0 0.5 0.5 1 1\n")
	writeImage(t, filepath.Join(dir, "00002.png"), 10, 10)
	writeFile(t, dir, "00002.txt", "")
	out := filepath.Join(t.TempDir(), "crops")

	result, err := ExportCrops(CropConfig{Dir: dir, OutDir: out, JPEGQuality: 90})
	require.NoError(t, err)
	assert.Equal(t, &CropResult{Images: 3, Crops: 3, Skipped: 1}, result)

	sizes := map[string][2]int{
		filepath.Join(out, "3", "00000_00.jpg"): {20, 20},
		filepath.Join(out, "3", "00000_01.jpg"): {10, 10},
		filepath.Join(out, "0", "00001_00.png"): {10, 10},
	}
	for path, size := range sizes {
		img, err := imaging.Open(path)
		require.NoError(t, err, path)
		assert.Equal(t, size[0], img.Bounds().Dx(), path)
		assert.Equal(t, size[1], img.Bounds().Dy(), path)
	}
	assert.NoDirExists(t, filepath.Join(out, "5"))
}

func TestCropConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Crops.Validate())
	assert.Error(t, CropConfig{Dir: "a", OutDir: "a/", JPEGQuality: 90}.Validate())
	assert.Error(t, CropConfig{Dir: "a", OutDir: "a/crops", JPEGQuality: 90}.Validate())
	assert.NoError(t, CropConfig{Dir: "a", OutDir: "ab", JPEGQuality: 90}.Validate())
	assert.NoError(t, CropConfig{Dir: "a/b", OutDir: "a", JPEGQuality: 90}.Validate())
	assert.Error(t, CropConfig{Dir: "a", OutDir: "b", JPEGQuality: 0}.Validate())
	assert.Error(t, CropConfig{Dir: "a", OutDir: "b", JPEGQuality: 101}.Validate())
	assert.Error(t, CropConfig{OutDir: "b", JPEGQuality: 90}.Validate())
}
