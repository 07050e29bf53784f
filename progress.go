package betteria

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
)

// progress is a nil-safe wrapper around a progress bar, so pipeline code
// can report without caring whether progress display is enabled.
type progress struct {
	bar *progressbar.ProgressBar
}

func newProgress(total int, description string, enabled bool) *progress {
	if !enabled || total <= 0 {
		return &progress{}
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
	)
	return &progress{bar: bar}
}

func (p *progress) Add(n int) {
	if p.bar != nil {
		_ = p.bar.Add(n)
	}
}

func (p *progress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
