package detprep

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/protobuf/proto"
	"github.com/ryszard/tfutils/proto/tensorflow/core/example" // package tensorflow
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readTFRecords splits a TFRecord file into its payloads. The CRCs are not checked.
func readTFRecords(t *testing.T, path string) [][]byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var records [][]byte
	for len(data) > 0 {
		require.GreaterOrEqual(t, len(data), 12)
		n := int(binary.LittleEndian.Uint64(data[:8]))
		data = data[12:]
		require.GreaterOrEqual(t, len(data), n+4)
		records = append(records, data[:n])
		data = data[n+4:]
	}
	return records
}

func setupSplitDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeImage(t, filepath.Join(dir, "00000.jpg"), 20, 10)
	writeFile(t, dir, "00000.txt", "1 0.5 0.5 0.5 0.2\n0 0.25 0.75 0.5 0.5\n")
	writeImage(t, filepath.Join(dir, "00001.png"), 8, 8)
	writeFile(t, dir, "00001.txt", "")
	writeImage(t, filepath.Join(dir, "00002.jpg"), 8, 8)
	writeFile(t, dir, "00002.txt", "3 0.5 0.5 1 1\n")
	// No label file: skipped.
	writeImage(t, filepath.Join(dir, "00003.jpg"), 8, 8)
	return dir
}

func TestExportTFRecord(t *testing.T) {
	dir := setupSplitDir(t)
	out := t.TempDir()
	classFile := writeFile(t, out, "classes.names", "zero\none\n")

	cfg := ExportConfig{
		SplitDir:     dir,
		OutPath:      filepath.Join(out, "train.record"),
		LabelMapPath: filepath.Join(out, "label_map.pbtxt"),
		NumShards:    1,
		ClassFile:    classFile,
	}
	result, err := ExportTFRecord(cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Examples)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, []string{cfg.OutPath}, result.Shards)
	assert.Equal(t, map[int]string{0: "zero", 1: "one", 3: "3"}, result.Classes)

	records := readTFRecords(t, cfg.OutPath)
	require.Len(t, records, 3)

	var e tensorflow.Example
	require.NoError(t, proto.Unmarshal(records[0], &e))
	f := e.GetFeatures().GetFeature()
	assert.Equal(t, []int64{10}, f["image/height"].GetInt64List().Value)
	assert.Equal(t, []int64{20}, f["image/width"].GetInt64List().Value)
	assert.Equal(t, [][]byte{[]byte("00000.jpg")}, f["image/filename"].GetBytesList().Value)
	assert.Equal(t, [][]byte{[]byte("jpeg")}, f["image/format"].GetBytesList().Value)
	assert.Equal(t, []int64{2, 1}, f["image/object/class/label"].GetInt64List().Value)
	assert.Equal(t, [][]byte{[]byte("one"), []byte("zero")},
		f["image/object/class/text"].GetBytesList().Value)
	bbox := func(name string) []float32 {
		return f["image/object/bbox/"+name].GetFloatList().Value
	}
	assert.InDeltaSlice(t, []float32{0.25, 0}, bbox("xmin"), 1e-6)
	assert.InDeltaSlice(t, []float32{0.4, 0.5}, bbox("ymin"), 1e-6)
	assert.InDeltaSlice(t, []float32{0.75, 0.5}, bbox("xmax"), 1e-6)
	assert.InDeltaSlice(t, []float32{0.6, 1}, bbox("ymax"), 1e-6)

	assert.Equal(t, `item {
  id: 1
  name: "zero"
}
item {
  id: 2
  name: "one"
}
item {
  id: 4
  name: "3"
}
`, readFile(t, cfg.LabelMapPath))
}

func TestExportTFRecordShards(t *testing.T) {
	dir := setupSplitDir(t)
	out := t.TempDir()

	cfg := ExportConfig{
		SplitDir:     dir,
		OutPath:      filepath.Join(out, "train.record"),
		LabelMapPath: filepath.Join(out, "label_map.pbtxt"),
		NumShards:    2,
	}
	result, err := ExportTFRecord(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{
		cfg.OutPath + "-00000-of-00002",
		cfg.OutPath + "-00001-of-00002",
	}, result.Shards)
	assert.Len(t, readTFRecords(t, result.Shards[0]), 2)
	assert.Len(t, readTFRecords(t, result.Shards[1]), 1)
	assert.NoFileExists(t, cfg.OutPath)
}

func TestExportTFRecordSkipsBrokenImages(t *testing.T) {
	dir := setupSplitDir(t)
	writeFile(t, dir, "00002.jpg", "broken")
	out := t.TempDir()

	result, err := ExportTFRecord(ExportConfig{
		SplitDir:     dir,
		OutPath:      filepath.Join(out, "train.record"),
		LabelMapPath: filepath.Join(out, "label_map.pbtxt"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Examples)
	assert.Equal(t, 1, result.Skipped)
	assert.Len(t, readTFRecords(t, result.Shards[0]), 2)
}

func TestExportTFRecordMoreShardsThanImages(t *testing.T) {
	dir := setupSplitDir(t)
	out := t.TempDir()

	cfg := ExportConfig{
		SplitDir:     dir,
		OutPath:      filepath.Join(out, "train.record"),
		LabelMapPath: filepath.Join(out, "label_map.pbtxt"),
		NumShards:    5,
	}
	result, err := ExportTFRecord(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{
		cfg.OutPath + "-00000-of-00003",
		cfg.OutPath + "-00001-of-00003",
		cfg.OutPath + "-00002-of-00003",
	}, result.Shards)
	for _, shard := range result.Shards {
		assert.Len(t, readTFRecords(t, shard), 1, shard)
	}
	assert.NoFileExists(t, cfg.OutPath+"-00003-of-00005")
}

func TestExportTFRecordEmptyDir(t *testing.T) {
	out := t.TempDir()
	result, err := ExportTFRecord(ExportConfig{
		SplitDir:     t.TempDir(),
		OutPath:      filepath.Join(out, "train.record"),
		LabelMapPath: filepath.Join(out, "label_map.pbtxt"),
	})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.NoFileExists(t, filepath.Join(out, "label_map.pbtxt"))
}
