package detprep

// Ground-truth file specific functionality.

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// groundTruthSep separates the columns of a ground-truth row.
const groundTruthSep = ";"

// ReadGroundTruth reads and parses the semicolon-separated ground-truth file at path. The columns
// are image;leftCol;topRow;rightCol;bottomRow;classID, without a header row.
//
// Blank lines are skipped. Any other row that does not parse is an error.
func ReadGroundTruth(path string) ([]GroundTruth, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}

	records := make([]GroundTruth, 0, len(lines))
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		g, err := parseGroundTruth(line)
		if err != nil {
			return nil, errors.Wrapf(err, "%s:%d", path, i+1)
		}
		records = append(records, g)
	}
	klog.V(1).Infof("Read %d ground-truth records from %q", len(records), path)

	return records, nil
}

// parseGroundTruth parses a single ground-truth row.
func parseGroundTruth(line string) (GroundTruth, error) {
	g := GroundTruth{}

	tokens := strings.Split(strings.TrimSpace(line), groundTruthSep)
	if len(tokens) != 6 {
		return g, errors.Errorf("expected 6 columns in %q, found %d", line, len(tokens))
	}

	g.Image = strings.TrimSpace(tokens[0])
	if g.Image == "" {
		return g, errors.Errorf("missing image name in %q", line)
	}

	coords := [4]*float64{&g.Left, &g.Top, &g.Right, &g.Bottom}
	for i, c := range coords {
		v, err := strconv.ParseFloat(strings.TrimSpace(tokens[i+1]), 64)
		if err != nil {
			return g, errors.Wrapf(err, "unexpected coordinate in %q", line)
		}
		*c = v
	}

	id, err := strconv.Atoi(strings.TrimSpace(tokens[5]))
	if err != nil {
		return g, errors.Wrapf(err, "unexpected class id in %q", line)
	}
	g.ClassID = id

	return g, nil
}

// groundTruthGroup holds the records of one image, in source order.
type groundTruthGroup struct {
	stem    string
	records []GroundTruth
}

// groupByStem groups records by the stem of their image name. Groups are returned in order of
// first appearance and records keep their source order within a group.
func groupByStem(records []GroundTruth) []groundTruthGroup {
	index := make(map[string]int)
	var groups []groundTruthGroup
	for _, g := range records {
		s := stem(g.Image)
		i, found := index[s]
		if !found {
			i = len(groups)
			index[s] = i
			groups = append(groups, groundTruthGroup{stem: s})
		}
		groups[i].records = append(groups[i].records, g)
	}

	return groups
}
