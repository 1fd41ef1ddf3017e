package detprep

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSplit(t *testing.T) {
	s, err := NewSplit(900, 600, 1234)
	require.NoError(t, err)
	require.Len(t, s.Train, 600)
	require.Len(t, s.Test, 300)
	assert.True(t, sort.IntsAreSorted(s.Train))
	assert.True(t, sort.IntsAreSorted(s.Test))

	// Disjoint and covering [0, 900).
	seen := make(map[int]bool, 900)
	for _, i := range append(append([]int(nil), s.Train...), s.Test...) {
		require.False(t, seen[i], "index %d used twice", i)
		require.True(t, i >= 0 && i < 900, "index %d out of range", i)
		seen[i] = true
	}
	assert.Len(t, seen, 900)

	// Reproducible.
	again, err := NewSplit(900, 600, 1234)
	require.NoError(t, err)
	assert.Equal(t, s, again)

	// Another seed gives another partition.
	other, err := NewSplit(900, 600, 4321)
	require.NoError(t, err)
	assert.NotEqual(t, s.Train, other.Train)
}

func TestNewSplitEdges(t *testing.T) {
	s, err := NewSplit(5, 0, 1)
	require.NoError(t, err)
	assert.Empty(t, s.Train)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, s.Test)

	s, err = NewSplit(5, 5, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, s.Train)
	assert.Empty(t, s.Test)

	for _, c := range [][2]int{{5, 6}, {5, -1}, {-1, 0}} {
		_, err := NewSplit(c[0], c[1], 1)
		assert.Error(t, err, "size %d, train %d", c[0], c[1])
	}
}

// setupNumbered writes size images with labels named 00000.jpg/.txt etc. into a new directory.
func setupNumbered(t *testing.T, size int) string {
	t.Helper()
	dir := t.TempDir()
	for i := 0; i < size; i++ {
		name := fmt.Sprintf("%05d", i)
		writeImage(t, filepath.Join(dir, name+".jpg"), 4, 4)
		writeFile(t, dir, name+".txt", fmt.Sprintf("%d 0.5 0.5 0.25 0.25\n", i))
	}
	return dir
}

func testSplitConfig(dir string) SplitConfig {
	cfg := DefaultConfig().Split
	cfg.DatasetDir = dir
	cfg.Size = 10
	cfg.TrainSize = 6
	return cfg
}

func TestSplitDataset(t *testing.T) {
	dir := setupNumbered(t, 10)
	classFile := writeFile(t, t.TempDir(), "classes.names", "a\nb\n")
	cfg := testSplitConfig(dir)
	cfg.ClassFile = classFile

	result, err := SplitDataset(cfg)
	require.NoError(t, err)

	want, err := NewSplit(10, 6, cfg.Seed)
	require.NoError(t, err)
	assert.Equal(t, want, result.Split)
	assert.Equal(t, 20, result.FilesCopied)
	assert.Positive(t, result.BytesCopied)

	sets := []struct {
		dir     string
		indices []int
	}{
		{filepath.Join(dir, "train"), want.Train},
		{filepath.Join(dir, "test"), want.Test},
	}
	for _, set := range sets {
		entries, err := os.ReadDir(set.dir)
		require.NoError(t, err)
		assert.Len(t, entries, 2*len(set.indices))
		for _, i := range set.indices {
			name := fmt.Sprintf("%05d", i)
			assert.FileExists(t, filepath.Join(set.dir, name+".jpg"))
			assert.Equal(t, fmt.Sprintf("%d 0.5 0.5 0.25 0.25\n", i),
				readFile(t, filepath.Join(set.dir, name+".txt")))
		}
	}

	// Sources stay in place.
	for i := 0; i < 10; i++ {
		assert.FileExists(t, filepath.Join(dir, fmt.Sprintf("%05d.jpg", i)))
		assert.FileExists(t, filepath.Join(dir, fmt.Sprintf("%05d.txt", i)))
	}

	// Manifests.
	trainList := nonEmptyLines(t, filepath.Join(dir, "train.txt"))
	require.Len(t, trainList, 6)
	assert.Equal(t, filepath.Join(dir, "train", fmt.Sprintf("%05d.jpg", want.Train[0])),
		trainList[0])
	assert.Len(t, nonEmptyLines(t, filepath.Join(dir, "test.txt")), 4)

	dm, err := ReadManifest(filepath.Join(dir, ManifestFile))
	require.NoError(t, err)
	assert.Equal(t, &DatasetManifest{
		Path:  dir,
		Train: "train",
		Test:  "test",
		NC:    2,
		Names: map[int]string{0: "a", 1: "b"},
	}, dm)
}

func TestSplitDatasetRerun(t *testing.T) {
	dir := setupNumbered(t, 10)
	cfg := testSplitConfig(dir)
	cfg.WriteManifest = false

	first, err := SplitDataset(cfg)
	require.NoError(t, err)
	second, err := SplitDataset(cfg)
	require.NoError(t, err)
	assert.Equal(t, first.Split, second.Split)

	entries, err := os.ReadDir(filepath.Join(dir, "train"))
	require.NoError(t, err)
	assert.Len(t, entries, 12)
	assert.NoFileExists(t, filepath.Join(dir, ManifestFile))
}

func TestSplitDatasetMissingFile(t *testing.T) {
	dir := setupNumbered(t, 10)
	require.NoError(t, os.Remove(filepath.Join(dir, "00007.txt")))

	_, err := SplitDataset(testSplitConfig(dir))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "00007.txt")
}

func TestSplitDatasetMissingClassFile(t *testing.T) {
	dir := setupNumbered(t, 10)
	cfg := testSplitConfig(dir)
	cfg.ClassFile = filepath.Join(dir, "nope.names")

	_, err := SplitDataset(cfg)
	assert.Error(t, err)
}

func TestSplitConfigValidate(t *testing.T) {
	valid := testSplitConfig("d")
	require.NoError(t, valid.Validate())

	for name, modify := range map[string]func(c *SplitConfig){
		"no dir":          func(c *SplitConfig) { c.DatasetDir = "" },
		"zero size":       func(c *SplitConfig) { c.Size = 0 },
		"negative train":  func(c *SplitConfig) { c.TrainSize = -1 },
		"train too large": func(c *SplitConfig) { c.TrainSize = 11 },
		"same dirs":       func(c *SplitConfig) { c.TestDir = c.TrainDir },
		"no train dir":    func(c *SplitConfig) { c.TrainDir = "" },
		"no format":       func(c *SplitConfig) { c.NameFormat = "" },
	} {
		c := valid
		modify(&c)
		assert.Error(t, c.Validate(), name)
	}
}
