package infrastructure

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

const (
	destinationMarker = "[download] Destination:"
	downloadingMarker = "[download] downloading"
)

var mergeMarkers = []string{"[Merger]", "[Mux]", "[FixupM"}

// ClassifyLine turns one line of yt-dlp output into an event.
// It keeps no state between calls; unknown lines come back as EventRawLine.
func ClassifyLine(line string) domain.OutputEvent {
	event := domain.OutputEvent{Kind: domain.EventRawLine, Line: line}
	trimmed := strings.TrimLeftFunc(line, unicode.IsSpace)
	if trimmed == "" {
		return event
	}

	// Progress lines come from the progress template: "  45.2% 5.23MiB/s ETA 00:12"
	if trimmed[0] >= '0' && trimmed[0] <= '9' {
		if end := strings.IndexByte(trimmed, '%'); end > 0 {
			pct, err := strconv.ParseFloat(strings.TrimSpace(trimmed[:end]), 64)
			if err == nil {
				event.Kind = domain.EventProgress
				event.Percent = pct
			}
		}
		return event
	}

	if strings.HasPrefix(trimmed, destinationMarker) {
		event.Kind = domain.EventDestination
		event.FileName = baseName(strings.TrimSpace(trimmed[len(destinationMarker):]))
		return event
	}

	if hasPrefixFold(trimmed, downloadingMarker) {
		event.Kind = domain.EventPhaseStarted
		event.Label = domain.PhaseAudio
		if strings.Contains(strings.ToLower(trimmed), "video") {
			event.Label = domain.PhaseVideo
		}
		return event
	}

	for _, marker := range mergeMarkers {
		if strings.HasPrefix(trimmed, marker) {
			event.Kind = domain.EventPhaseStarted
			event.Label = domain.PhaseMerging
			return event
		}
	}

	return event
}

// baseName strips the directory part of a path written by yt-dlp on any OS
func baseName(p string) string {
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		return p[i+1:]
	}
	return p
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
