package domain

import "time"

// EventKind identifies what a classified output line means
type EventKind int

const (
	EventRawLine EventKind = iota
	EventProgress
	EventPhaseStarted
	EventDestination
)

func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventPhaseStarted:
		return "phase"
	case EventDestination:
		return "destination"
	default:
		return "raw"
	}
}

// Phase labels reported by PhaseStarted events
const (
	PhaseVideo   = "video"
	PhaseAudio   = "audio"
	PhaseMerging = "merging"
)

// OutputEvent is the result of classifying one line of tool output.
// Line always holds the verbatim line, whatever the kind.
type OutputEvent struct {
	Kind     EventKind `json:"kind"`
	Percent  float64   `json:"percent,omitempty"`
	Label    string    `json:"label,omitempty"`
	FileName string    `json:"file_name,omitempty"`
	Line     string    `json:"line"`
}

// ExitOutcome describes how a tool run ended
type ExitOutcome struct {
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration"`
}

// Success reports whether the process exited cleanly
func (o ExitOutcome) Success() bool {
	return o.ExitCode == 0
}

// StatusStyle is the presentation hint of a ProgressState
type StatusStyle string

const (
	StyleNormal  StatusStyle = "normal"
	StyleSuccess StatusStyle = "success"
	StyleError   StatusStyle = "error"
)

// ProgressState is the caller-visible state of the current download
type ProgressState struct {
	DownloadID string      `json:"download_id,omitempty"`
	Percent    float64     `json:"percent"`
	Phase      string      `json:"phase,omitempty"`
	StatusText string      `json:"status_text"`
	Style      StatusStyle `json:"style"`
	FileName   string      `json:"file_name,omitempty"`
	Running    bool        `json:"running"`
	Done       bool        `json:"done"`
	Failed     bool        `json:"failed"`
	Error      string      `json:"error,omitempty"`
	Log        []string    `json:"log,omitempty"`
}
