package detprep

// Read-only consistency checks of a dataset tree.

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ErrMissingDataRoot is returned by Verify when the data root does not exist.
var ErrMissingDataRoot = errors.New("data root does not exist")

// projectRootMarkers identify the project root when walking up from the working directory.
var projectRootMarkers = []string{"data", "go.mod", ".git"}

// DetectProjectRoot returns the nearest ancestor of start (the working directory if empty)
// containing one of "data", "go.mod" or ".git". Falls back to start itself.
func DetectProjectRoot(start string) (string, error) {
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", errors.Wrap(err, "cannot get the working directory")
		}
		start = wd
	}
	start, err := filepath.Abs(start)
	if err != nil {
		return "", errors.Wrapf(err, "cannot resolve %q", start)
	}

	for dir := start; ; {
		for _, m := range projectRootMarkers {
			if exists(filepath.Join(dir, m)) {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start, nil
		}
		dir = parent
	}
}

// ClassFileCandidates returns the class name files searched by the verifier, in order.
func ClassFileCandidates(projectRoot, dataRoot string) []string {
	return []string{
		filepath.Join(projectRoot, "data", "raw", "classes.names"),
		filepath.Join(projectRoot, "data", "raw", "classes.txt"),
		filepath.Join(dataRoot, "classes.names"),
		filepath.Join(dataRoot, "classes.txt"),
	}
}

// ReadClasses reads the class names from the first existing file in candidates. Names are
// trimmed and blank lines dropped.
//
// Returns the names and the path they were read from, or nil and "" if no candidate exists.
func ReadClasses(candidates []string) (names []string, path string, err error) {
	for _, c := range candidates {
		if !exists(c) {
			continue
		}
		lines, err := readLines(c)
		if err != nil {
			return nil, "", err
		}
		for _, l := range lines {
			if l = strings.TrimSpace(l); l != "" {
				names = append(names, l)
			}
		}
		return names, c, nil
	}
	return nil, "", nil
}

// stemEntry is one row of the image/label join: the files of one stem.
type stemEntry struct {
	images []string
	labels []string
}

// joinByStem joins images and labels on their stem, independent of the directories they are in.
func joinByStem(images, labels []string) map[string]*stemEntry {
	join := make(map[string]*stemEntry, len(images))
	entry := func(s string) *stemEntry {
		e, found := join[s]
		if !found {
			e = &stemEntry{}
			join[s] = e
		}
		return e
	}
	for _, p := range images {
		e := entry(stem(p))
		e.images = append(e.images, p)
	}
	for _, p := range labels {
		e := entry(stem(p))
		e.labels = append(e.labels, p)
	}
	return join
}

// MalformedLine is a label file line that is not in the five-field numeric format.
type MalformedLine struct {
	Path string // Relative to the data root.
	Line string // The trimmed line.
}

// Report is the result of Verify.
type Report struct {
	DataRoot  string
	Classes   []string // Nil if no classes file was found.
	ClassFile string

	Images  int // Image files found.
	Labels  int // Candidate label files found.
	Matched int // Label files with an image of the same stem.

	ClassCounts map[int]int // Objects per class id.
	Boxes       int         // Total well-formed objects.

	// The lists below hold paths relative to DataRoot. The last two are sorted.
	EmptyLabels         []string
	Malformed           []MalformedLine
	LabelsWithoutImages []string
	ImagesWithoutLabels []string

	PreviewLimit int
}

// Consistent reports whether every image has a label file and vice versa.
func (r *Report) Consistent() bool {
	return len(r.LabelsWithoutImages) == 0 && len(r.ImagesWithoutLabels) == 0
}

// ClassName returns the name of class id, or the id itself if unknown.
func (r *Report) ClassName(id int) string {
	if id >= 0 && id < len(r.Classes) {
		return r.Classes[id]
	}
	return strconv.Itoa(id)
}

// Verify scans the data root recursively, matches image files to label files by stem and checks
// the content of the matched label files. It never modifies the data.
//
// Returns ErrMissingDataRoot if the data root does not exist.
func Verify(cfg VerifyConfig) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg, err := cfg.resolve()
	if err != nil {
		return nil, err
	}

	if info, err := os.Stat(cfg.DataRoot); err != nil || !info.IsDir() {
		return nil, errors.Wrapf(ErrMissingDataRoot, "%s", cfg.DataRoot)
	}

	files, err := walkFiles(cfg.DataRoot)
	if err != nil {
		return nil, err
	}
	var images, labels []string
	for _, p := range files {
		if isImage(p) {
			images = append(images, p)
		} else if isLabel(p) {
			labels = append(labels, p)
		}
	}
	klog.V(1).Infof("Found %d images and %d candidate labels below %q", len(images),
		len(labels), cfg.DataRoot)

	r := &Report{
		DataRoot:     cfg.DataRoot,
		Images:       len(images),
		Labels:       len(labels),
		ClassCounts:  make(map[int]int),
		PreviewLimit: cfg.PreviewLimit,
	}
	if r.Classes, r.ClassFile, err = ReadClasses(cfg.ClassFiles); err != nil {
		return nil, err
	}

	rel := func(p string) string {
		if s, err := filepath.Rel(cfg.DataRoot, p); err == nil {
			return s
		}
		return p
	}

	// Classify the join. Matched labels are collected in walk order.
	join := joinByStem(images, labels)
	var matched []string
	for _, p := range labels {
		if len(join[stem(p)].images) > 0 {
			matched = append(matched, p)
		}
	}
	for _, e := range join {
		if len(e.images) == 0 {
			for _, p := range e.labels {
				r.LabelsWithoutImages = append(r.LabelsWithoutImages, rel(p))
			}
		}
		if len(e.labels) == 0 {
			for _, p := range e.images {
				r.ImagesWithoutLabels = append(r.ImagesWithoutLabels, rel(p))
			}
		}
	}
	sort.Strings(r.LabelsWithoutImages)
	sort.Strings(r.ImagesWithoutLabels)
	r.Matched = len(matched)

	// Count instances and collect empty and malformed label files.
	for _, p := range matched {
		content, err := os.ReadFile(p)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot read label file %q", p)
		}
		text := strings.TrimSpace(string(content))
		if text == "" {
			r.EmptyLabels = append(r.EmptyLabels, rel(p))
			continue
		}
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			l, err := ParseLabelLine(line)
			if err != nil {
				klog.V(2).Infof("Malformed line in %q: %v", p, err)
				r.Malformed = append(r.Malformed, MalformedLine{Path: rel(p), Line: line})
				continue
			}
			r.ClassCounts[l.ClassID]++
			r.Boxes++
		}
	}

	return r, nil
}
