package detprep

// Label file specific functionality.

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// manifestNames are .txt file names that are never label files, lower case.
var manifestNames = map[string]bool{
	"train.txt":   true,
	"test.txt":    true,
	"valid.txt":   true,
	"val.txt":     true,
	"classes.txt": true,
}

// isLabel reports whether path names a label file: a .txt file (any case) that is not one of the
// known manifest files.
func isLabel(path string) bool {
	if strings.ToLower(filepath.Ext(path)) != labelExt {
		return false
	}
	return !manifestNames[strings.ToLower(filepath.Base(path))]
}

// ParseLabelLine parses one line of a label file. The line is well-formed iff it has at least 5
// whitespace-separated fields, the first is an integer class id and the next four are floats.
// Additional fields are ignored.
func ParseLabelLine(line string) (Label, error) {
	l := Label{}

	fields := strings.Fields(line)
	if len(fields) < 5 {
		return l, errors.Errorf("insufficient fields in %q", line)
	}

	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return l, errors.Wrapf(err, "unexpected class id in %q", line)
	}
	l.ClassID = id

	values := [4]*float64{&l.Box.XCenter, &l.Box.YCenter, &l.Box.Width, &l.Box.Height}
	for i, v := range values {
		if *v, err = strconv.ParseFloat(fields[i+1], 64); err != nil {
			return l, errors.Wrapf(err, "unexpected value in %q", line)
		}
	}

	return l, nil
}

// ReadLabels reads the label file at path. Blank lines are skipped, and the first malformed line
// is an error.
func ReadLabels(path string) ([]Label, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}

	labels := make([]Label, 0, len(lines))
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		l, err := ParseLabelLine(line)
		if err != nil {
			return nil, errors.Wrapf(err, "%s:%d", path, i+1)
		}
		labels = append(labels, l)
	}

	return labels, nil
}

// WriteLabels writes labels to path, one line each, replacing any existing content. An empty
// labels slice produces an empty file.
func WriteLabels(path string, labels []Label) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "cannot create label file %q", path)
	}
	defer closeWithErrCheck(file, &err)

	w := bufio.NewWriter(file)
	for _, l := range labels {
		if _, err := w.WriteString(l.String() + "\n"); err != nil {
			return errors.Wrapf(err, "failed to write %q", path)
		}
	}

	return w.Flush()
}
