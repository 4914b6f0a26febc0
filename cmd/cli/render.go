package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

// progressRenderer draws ProgressState updates as a terminal progress bar
type progressRenderer struct {
	mu      sync.Mutex
	out     io.Writer
	bar     *progressbar.ProgressBar
	verbose bool
}

func newProgressRenderer(out io.Writer, verbose bool) *progressRenderer {
	return &progressRenderer{
		out:     out,
		verbose: verbose,
		bar: progressbar.NewOptions(100,
			progressbar.OptionSetWriter(out),
			progressbar.OptionSetWidth(30),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionSetDescription("Starting download..."),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		),
	}
}

// Update matches app.ProgressListener
func (r *progressRenderer) Update(state domain.ProgressState, line string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.verbose && line != "" {
		r.bar.Clear()
		fmt.Fprintln(r.out, line)
	}
	r.bar.Describe(state.StatusText)
	r.bar.Set(int(state.Percent))
}

// Finish leaves the final status on its own line
func (r *progressRenderer) Finish(state domain.ProgressState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.bar.Clear()
	fmt.Fprintln(r.out, state.StatusText)
}

// spinner shows activity while waiting on something without a percentage
func spinner(out io.Writer, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
}
