package detprep

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Write prints the human-readable report to w.
func (r *Report) Write(w io.Writer) error {
	p := &reportPrinter{w: w}

	if len(r.Classes) > 0 {
		p.printf("classes file: %s\n", r.ClassFile)
		for i, c := range r.Classes {
			p.printf("  %d: %s\n", i, c)
		}
	} else {
		p.printf("No classes file found (classes.names / classes.txt)\n")
	}

	p.printf("\nFound %d image files\n", r.Images)
	p.printf("Found %d .txt files (candidate labels)\n", r.Labels)
	p.printf("Matched %d label files to existing images\n", r.Matched)

	if len(r.ClassCounts) > 0 {
		p.printf("\ninstance counts:\n%s\n", r.classTable())
		p.printf("\nTotal labeled boxes: %d\n", r.Boxes)
	} else {
		p.printf("\nNo labeled boxes counted (all empty or malformed?)\n")
	}

	// Diagnostics.
	if n := len(r.EmptyLabels); n > 0 {
		p.printf("\nEmpty label files (no objects): %d (showing up to %d)\n", n, r.PreviewLimit)
		for _, path := range r.EmptyLabels[:r.preview(n)] {
			p.printf("  %s\n", path)
		}
	}
	if n := len(r.Malformed); n > 0 {
		p.printf("\nMalformed label lines: %d (showing up to %d)\n", n, r.PreviewLimit)
		for _, m := range r.Malformed[:r.preview(n)] {
			p.printf("  %s -> %s\n", m.Path, m.Line)
		}
	}
	if n := len(r.LabelsWithoutImages); n > 0 {
		p.printf("\nLabels without matching images: %d (up to %d)\n", n, r.PreviewLimit)
		for _, path := range r.LabelsWithoutImages[:r.preview(n)] {
			p.printf("  %s\n", path)
		}
	}
	if n := len(r.ImagesWithoutLabels); n > 0 {
		p.printf("\nImages without matching labels: %d (up to %d)\n", n, r.PreviewLimit)
		for _, path := range r.ImagesWithoutLabels[:r.preview(n)] {
			p.printf("  %s\n", path)
		}
	}

	return p.err
}

// preview returns the number of entries shown from a list of n.
func (r *Report) preview(n int) int {
	if n > r.PreviewLimit {
		return r.PreviewLimit
	}
	return n
}

// classTable renders the instance counts sorted by class id.
func (r *Report) classTable() string {
	ids := make([]int, 0, len(r.ClassCounts))
	for id := range r.ClassCounts {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	rows := make([][]string, len(ids))
	for i, id := range ids {
		rows[i] = []string{strconv.Itoa(id), r.ClassName(id), strconv.Itoa(r.ClassCounts[id])}
	}

	cell := lipgloss.NewStyle().Padding(0, 1)
	numeric := cell.Align(lipgloss.Right)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row != table.HeaderRow && col != 1 {
				return numeric
			}
			return cell
		}).
		Headers("ID", "CLASS", "COUNT").
		Rows(rows...)
	return t.String()
}

// reportPrinter keeps the first write error.
type reportPrinter struct {
	w   io.Writer
	err error
}

func (p *reportPrinter) printf(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
