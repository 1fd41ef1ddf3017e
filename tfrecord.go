package detprep

// TFRecord object detection export of a split directory.

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/golang/protobuf/proto"
	"github.com/pkg/errors"
	"github.com/ryszard/tfutils/go/example"
	"github.com/ryszard/tfutils/go/tfrecord"
	"github.com/ryszard/tfutils/proto/tensorflow/core/example" // package tensorflow
	"k8s.io/klog/v2"
)

// TFFeatureMap maps feature names to their values. Values must be convertible to
// tensorflow.Feature.
type TFFeatureMap map[string]interface{}

// ExportResult summarizes an ExportTFRecord run.
type ExportResult struct {
	Examples int      // Examples written.
	Skipped  int      // Images skipped because of unreadable labels or images.
	Shards   []string // The record files written.
	Classes  map[int]string
}

// ExportTFRecord writes every image/label pair in cfg.SplitDir as a tensorflow.Example to one or
// more TFRecord files, with "-NNNNN-of-NNNNN" suffixes when more than one shard is written. At most
// cfg.NumShards shards are written, fewer if there are fewer images. A label map for the class ids
// found is written to cfg.LabelMapPath.
//
// An empty split directory is an error.
//
// TFRecord class labels are the label file class ids plus one, as id 0 is reserved for the
// background class.
func ExportTFRecord(cfg ExportConfig) (result *ExportResult, err error) {
	defer func() {
		if e := recover(); e != nil {
			result, err = nil, errors.Errorf("conversion to TensorFlow Example failed: %v", e)
		}
	}()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pairs, err := labeledImagesInDir(cfg.SplitDir)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, errors.Errorf("no labelled images in %q", cfg.SplitDir)
	}
	classes, err := readClassFile(cfg.ClassFile)
	if err != nil {
		return nil, err
	}
	klog.Infof("Exporting %d images from %q", len(pairs), cfg.SplitDir)

	result = &ExportResult{Classes: make(map[int]string)}
	className := func(id int) string {
		if id >= 0 && id < len(classes) {
			return classes[id]
		}
		return strconv.Itoa(id)
	}

	// Fewer images than shards give fewer, single image shards.
	numShards := cfg.NumShards
	if numShards <= 0 {
		numShards = 1
	}
	shardSize := int(math.Ceil(float64(len(pairs)) / float64(numShards)))
	numShards = int(math.Ceil(float64(len(pairs)) / float64(shardSize)))
	fmtShardSuffix := func(idx int) string {
		return fmt.Sprintf("-%05d-of-%05d", idx, numShards)
	}

	var shardFile *os.File
	defer func() {
		if shardFile != nil {
			closeWithErrCheck(shardFile, &err)
		}
	}()
	shardIdx := -1

	bar := newProgressBar(len(pairs), "exporting", cfg.Progress)
	defer bar.Finish()

	// Convert and serialise one image at a time.
	for i, p := range pairs {
		// Check if a new shard file needs to be opened for writing.
		if i%shardSize == 0 {
			shardIdx++

			if shardFile != nil {
				if err := shardFile.Close(); err != nil {
					return nil, errors.Wrapf(err, "failed to close shard %q", shardFile.Name())
				}
				shardFile = nil
			}

			shardPath := cfg.OutPath
			if numShards > 1 {
				shardPath += fmtShardSuffix(shardIdx)
			}
			f, err := os.Create(shardPath)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to create shard at %q", shardPath)
			}
			shardFile = f
			result.Shards = append(result.Shards, shardPath)
		}

		features, labels, err := toTFFeatures(p, className)
		if err != nil {
			klog.Warningf("Failed to convert %q: %v", p.ImagePath, err)
			result.Skipped++
			_ = bar.Add(1)
			continue
		}
		for _, l := range labels {
			result.Classes[l.ClassID] = className(l.ClassID)
		}

		if err := writeTFRecordExample(shardFile, example.New(features)); err != nil {
			return nil, errors.Wrapf(err, "failed to write the example for %q", p.ImagePath)
		}
		result.Examples++
		_ = bar.Add(1)
	}

	if err := saveTFRecordLabelMap(cfg.LabelMapPath, result.Classes); err != nil {
		return nil, err
	}
	klog.Infof("Wrote %d examples to %d shard(s), skipped %d", result.Examples,
		len(result.Shards), result.Skipped)

	return result, nil
}

// labeledImagesInDir pairs the images directly in dir with the label file of the same stem. The
// labels are not read yet. Images without a label file are logged and left out.
func labeledImagesInDir(dir string) ([]LabeledImage, error) {
	images, err := imagesInDir(dir)
	if err != nil {
		return nil, err
	}

	pairs := make([]LabeledImage, 0, len(images))
	for _, img := range images {
		labelPath := filepath.Join(dir, stem(img)+labelExt)
		if !exists(labelPath) {
			klog.Warningf("No label file for %q, skipping", img)
			continue
		}
		pairs = append(pairs, LabeledImage{ImagePath: img, LabelPath: labelPath})
	}

	return pairs, nil
}

// toTFFeatures reads the labels and the image of p and converts them to the TFRecord object
// detection features. Also returns the labels read.
func toTFFeatures(p LabeledImage, className func(int) string) (TFFeatureMap, []Label, error) {
	// Get the image width and height.
	img, format, err := decodeImageConfig(p.ImagePath)
	if err != nil {
		return nil, nil, err
	}

	// Read the image data.
	imgData, err := os.ReadFile(p.ImagePath)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to read the image %q", p.ImagePath)
	}

	labels, err := ReadLabels(p.LabelPath)
	if err != nil {
		return nil, nil, err
	}

	// Prepare the feature map for the per file data.
	f := make(TFFeatureMap, 16)
	f["image/height"] = img.Height
	f["image/width"] = img.Width
	f["image/filename"] = filepath.Base(p.ImagePath)
	f["image/source_id"] = stem(p.ImagePath)
	f["image/encoded"] = imgData
	f["image/format"] = format

	// Prepare the per label data.
	numLabels := len(labels)
	xmins := make([]float32, numLabels)
	ymins := make([]float32, numLabels)
	xmaxs := make([]float32, numLabels)
	ymaxs := make([]float32, numLabels)
	classes := make([]string, numLabels)
	classIDs := make([]int64, numLabels)
	for i, l := range labels {
		xmin, ymin, xmax, ymax := l.Box.MinMax()
		xmins[i] = float32(xmin)
		ymins[i] = float32(ymin)
		xmaxs[i] = float32(xmax)
		ymaxs[i] = float32(ymax)
		classes[i] = className(l.ClassID)
		classIDs[i] = int64(l.ClassID) + 1
	}
	f["image/object/bbox/xmin"] = xmins
	f["image/object/bbox/ymin"] = ymins
	f["image/object/bbox/xmax"] = xmaxs
	f["image/object/bbox/ymax"] = ymaxs
	f["image/object/class/text"] = classes
	f["image/object/class/label"] = classIDs

	return f, labels, nil
}

// writeTFRecordExample serialises the example and writes it as a TFRecord to w.
func writeTFRecordExample(w io.Writer, e *tensorflow.Example) error {
	enc, err := proto.Marshal(e)
	if err != nil {
		return err
	}

	return tfrecord.Write(w, enc)
}

// saveTFRecordLabelMap writes the class names to path in the prototxt StringIntLabelMap format,
// with ids shifted by one to match the exported class labels.
func saveTFRecordLabelMap(path string, classes map[int]string) (err error) {
	ids := make([]int, 0, len(classes))
	for id := range classes {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create the label map file %q", path)
	}
	defer closeWithErrCheck(file, &err)

	w := bufio.NewWriter(file)
	for _, id := range ids {
		_, err := fmt.Fprintf(w, "item {\n  id: %d\n  name: %q\n}\n", id+1, classes[id])
		if err != nil {
			return errors.Wrapf(err, "failed to write the label map %q", path)
		}
	}

	return w.Flush()
}
