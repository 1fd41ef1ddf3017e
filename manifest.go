package detprep

// Dataset manifests written next to a split: train.txt and test.txt image lists and data.yaml.

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.yaml.in/yaml/v3"
	"k8s.io/klog/v2"
)

// ManifestFile is the name of the YAML dataset description.
const ManifestFile = "data.yaml"

// DatasetManifest is the content of data.yaml. Paths are relative to Path.
type DatasetManifest struct {
	Path  string         `yaml:"path"`
	Train string         `yaml:"train"`
	Test  string         `yaml:"test"`
	NC    int            `yaml:"nc,omitempty"`
	Names map[int]string `yaml:"names,omitempty"`
}

// manifest collects what is written for a split dataset.
type manifest struct {
	dir                     string
	trainImages, testImages []string
	trainDir, testDir       string
	classes                 []string
}

// write writes train.txt, test.txt and data.yaml into m.dir.
func (m manifest) write() error {
	lists := []struct {
		name   string
		images []string
	}{
		{"train.txt", m.trainImages},
		{"test.txt", m.testImages},
	}
	for _, l := range lists {
		path := filepath.Join(m.dir, l.name)
		content := strings.Join(l.images, "\n")
		if len(l.images) > 0 {
			content += "\n"
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return errors.Wrapf(err, "cannot write %q", path)
		}
	}

	abs, err := filepath.Abs(m.dir)
	if err != nil {
		return errors.Wrapf(err, "cannot resolve %q", m.dir)
	}
	dm := DatasetManifest{
		Path:  abs,
		Train: m.trainDir,
		Test:  m.testDir,
		NC:    len(m.classes),
	}
	if len(m.classes) > 0 {
		dm.Names = make(map[int]string, len(m.classes))
		for i, c := range m.classes {
			dm.Names[i] = c
		}
	}

	enc, err := yaml.Marshal(&dm)
	if err != nil {
		return errors.Wrap(err, "cannot encode the dataset manifest")
	}
	path := filepath.Join(m.dir, ManifestFile)
	if err := os.WriteFile(path, enc, 0644); err != nil {
		return errors.Wrapf(err, "cannot write %q", path)
	}
	klog.V(1).Infof("Wrote the dataset manifest %q", path)

	return nil
}

// ReadManifest reads a data.yaml written by SplitDataset.
func ReadManifest(path string) (*DatasetManifest, error) {
	enc, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read %q", path)
	}
	var dm DatasetManifest
	if err := yaml.Unmarshal(enc, &dm); err != nil {
		return nil, errors.Wrapf(err, "failed to parse the dataset manifest %q", path)
	}
	return &dm, nil
}
