package app

import (
	"fmt"
	"sync"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

const (
	statusStarting = "Starting download..."
	statusMerging  = "merging streams..."
	statusFailed   = "download failed"
)

// ProgressListener is called after every state change. line is the output
// line that caused the change, empty for lifecycle changes.
type ProgressListener func(state domain.ProgressState, line string)

// ProgressTracker folds classified output events into the caller-visible
// state of the current download and keeps a bounded raw log.
type ProgressTracker struct {
	mu        sync.RWMutex
	state     domain.ProgressState
	log       []string
	logLimit  int
	listeners map[int]ProgressListener
	nextID    int
}

// NewProgressTracker creates a tracker keeping at most logLimit log lines
func NewProgressTracker(logLimit int) *ProgressTracker {
	if logLimit <= 0 {
		logLimit = 500
	}
	return &ProgressTracker{
		state:     domain.ProgressState{Style: domain.StyleNormal},
		logLimit:  logLimit,
		listeners: make(map[int]ProgressListener),
	}
}

// Reset starts tracking a new download, clearing the previous state and log
func (t *ProgressTracker) Reset(downloadID string) {
	t.mu.Lock()
	t.state = domain.ProgressState{
		DownloadID: downloadID,
		StatusText: statusStarting,
		Style:      domain.StyleNormal,
		Running:    true,
	}
	t.log = t.log[:0]
	t.appendLog(statusStarting)
	t.mu.Unlock()

	t.notify(statusStarting)
}

// Apply updates the state from one classified output line
func (t *ProgressTracker) Apply(event domain.OutputEvent) {
	t.mu.Lock()
	switch event.Kind {
	case domain.EventProgress:
		t.state.Percent = event.Percent
		t.state.StatusText = fmt.Sprintf("%.1f%%", event.Percent)
	case domain.EventDestination:
		t.state.FileName = event.FileName
	case domain.EventPhaseStarted:
		t.state.Phase = event.Label
		if event.Label == domain.PhaseMerging {
			// shown as complete while ffmpeg is still merging
			t.state.Percent = 100
			t.state.StatusText = statusMerging
		} else {
			t.state.Percent = 0
			t.state.StatusText = fmt.Sprintf("downloading (%s)...", event.Label)
		}
	}
	t.appendLog(event.Line)
	t.mu.Unlock()

	t.notify(event.Line)
}

// Complete marks the current download as successful. An empty fileName keeps
// the destination captured from the output.
func (t *ProgressTracker) Complete(fileName string) {
	t.mu.Lock()
	if fileName != "" {
		t.state.FileName = fileName
	}
	t.state.Percent = 100
	t.state.Running = false
	t.state.Done = true
	t.state.Style = domain.StyleSuccess
	t.state.StatusText = "done"
	if t.state.FileName != "" {
		t.state.StatusText = "done — " + t.state.FileName
	}
	t.mu.Unlock()

	t.notify("")
}

// Fail marks the current download as failed with the error text
func (t *ProgressTracker) Fail(err error) {
	text := statusFailed
	if err != nil {
		text = err.Error()
	}

	t.mu.Lock()
	t.state.Running = false
	t.state.Failed = true
	t.state.Style = domain.StyleError
	t.state.StatusText = text
	t.state.Error = text
	t.mu.Unlock()

	t.notify("")
}

// Snapshot returns a copy of the state including the raw log
func (t *ProgressTracker) Snapshot() domain.ProgressState {
	t.mu.RLock()
	defer t.mu.RUnlock()

	state := t.state
	state.Log = append([]string(nil), t.log...)
	return state
}

// FileName returns the destination captured for the current download
func (t *ProgressTracker) FileName() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state.FileName
}

// LogText returns the raw log joined by newlines
func (t *ProgressTracker) LogText() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	size := 0
	for _, line := range t.log {
		size += len(line) + 1
	}
	buf := make([]byte, 0, size)
	for i, line := range t.log {
		if i > 0 {
			buf = append(buf, '\n')
		}
		buf = append(buf, line...)
	}
	return string(buf)
}

// Subscribe registers a listener and returns a function removing it.
// Listeners run synchronously and must not block.
func (t *ProgressTracker) Subscribe(fn ProgressListener) func() {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.listeners[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.listeners, id)
		t.mu.Unlock()
	}
}

// appendLog must be called with mu held
func (t *ProgressTracker) appendLog(line string) {
	if len(t.log) >= t.logLimit {
		copy(t.log, t.log[1:])
		t.log = t.log[:len(t.log)-1]
	}
	t.log = append(t.log, line)
}

func (t *ProgressTracker) notify(line string) {
	t.mu.RLock()
	state := t.state
	listeners := make([]ProgressListener, 0, len(t.listeners))
	for _, fn := range t.listeners {
		listeners = append(listeners, fn)
	}
	t.mu.RUnlock()

	for _, fn := range listeners {
		fn(state, line)
	}
}
