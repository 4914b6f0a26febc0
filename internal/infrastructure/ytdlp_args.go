package infrastructure

import (
	"fmt"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

// ProgressTemplate makes yt-dlp print one "<percent> <speed> ETA <eta>" line per update.
// The "download:" prefix only selects the template type and never shows up in the output.
const ProgressTemplate = "download:%(progress._percent_str)s %(progress._speed_str)s ETA %(progress._eta_str)s"

// BuildArgs returns the yt-dlp argument list for a request.
// exec passes each element as-is, so nothing is quoted.
func BuildArgs(req domain.DownloadRequest, ffmpegPath string) []string {
	args := []string{
		"-o", req.OutputTemplate,
		"--no-playlist",
		"--no-warnings",
		"--newline",
		"--progress-template", ProgressTemplate,
		"--ffmpeg-location", ffmpegPath,
	}

	switch req.Mode {
	case domain.FormatAudioVideo:
		args = append(args,
			"-f", videoSelector(req.Quality)+"+bestaudio",
			"--merge-output-format", req.Container,
			"--remux-video", req.Container,
		)
	case domain.FormatVideoOnly:
		args = append(args,
			"-f", videoSelector(req.Quality),
			"--remux-video", req.Container,
		)
	case domain.FormatAudioOnly:
		args = append(args,
			"-x",
			"--audio-format", req.Container,
			"-f", "bestaudio",
		)
	default:
		// NewDownloadRequest rejects unknown modes, so this is a programming error.
		panic(fmt.Sprintf("unknown format mode %q", req.Mode))
	}

	return append(args, req.URL)
}

// videoSelector caps the video height unless the best quality was asked for
func videoSelector(quality string) string {
	if quality == "" || quality == domain.QualityBest {
		return "bestvideo"
	}
	return fmt.Sprintf("bestvideo[height<=%s]", quality)
}
