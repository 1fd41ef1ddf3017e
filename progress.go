package detprep

import (
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
)

// newProgressBar returns a progress bar over total steps written to stderr, or a silent one if
// show is false.
func newProgressBar(total int, description string, show bool) *progressbar.ProgressBar {
	var w io.Writer = os.Stderr
	if !show {
		w = io.Discard
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.ThemeUnicode),
		progressbar.OptionClearOnFinish(),
	)
}
