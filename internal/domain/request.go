package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatMode selects which streams are downloaded
type FormatMode string

const (
	FormatAudioVideo FormatMode = "audio_video" // best video + best audio, merged
	FormatVideoOnly  FormatMode = "video"       // best video, no separate audio
	FormatAudioOnly  FormatMode = "audio"       // audio extracted and transcoded
)

// QualityBest means no height cap on the video stream
const QualityBest = "best"

// DefaultOutputTemplate is the yt-dlp output template used when none is given
const DefaultOutputTemplate = "%(title)s.%(ext)s"

var (
	// VideoContainers are the containers accepted for video modes
	VideoContainers = []string{"mp4", "mkv", "webm"}
	// AudioCodecs are the codecs accepted for audio-only mode
	AudioCodecs = []string{"mp3", "m4a", "vorbis", "opus", "flac", "wav", "aac"}
	// QualityPresets are the heights offered by the clients
	QualityPresets = []string{QualityBest, "1080", "720", "480"}
)

// ParseFormatMode parses a format mode name
func ParseFormatMode(s string) (FormatMode, error) {
	switch FormatMode(strings.ToLower(strings.TrimSpace(s))) {
	case FormatAudioVideo, "audio+video", "":
		return FormatAudioVideo, nil
	case FormatVideoOnly:
		return FormatVideoOnly, nil
	case FormatAudioOnly:
		return FormatAudioOnly, nil
	}
	return "", fmt.Errorf("%w: unknown format mode %q", ErrInvalidRequest, s)
}

// FormatModeFromIndex maps the numeric selector used by older clients
// (0 = video+audio, 1 = video, 2 = audio).
func FormatModeFromIndex(i int) (FormatMode, error) {
	switch i {
	case 0:
		return FormatAudioVideo, nil
	case 1:
		return FormatVideoOnly, nil
	case 2:
		return FormatAudioOnly, nil
	}
	return "", fmt.Errorf("%w: unknown format index %d", ErrInvalidRequest, i)
}

// IsVideo reports whether the mode produces a video file
func (m FormatMode) IsVideo() bool {
	return m == FormatAudioVideo || m == FormatVideoOnly
}

// DefaultContainer returns the container used when a request omits one
func (m FormatMode) DefaultContainer() string {
	if m == FormatAudioOnly {
		return "mp3"
	}
	return "mp4"
}

// DownloadRequest describes one download attempt. Build it with
// NewDownloadRequest; the zero value is not valid.
type DownloadRequest struct {
	URL            string     `json:"url"`
	Mode           FormatMode `json:"mode"`
	Quality        string     `json:"quality"`
	Container      string     `json:"container"`
	OutputTemplate string     `json:"output_template"`
}

// NewDownloadRequest validates and normalizes a download request
func NewDownloadRequest(url string, mode FormatMode, quality, container, outputTemplate string) (DownloadRequest, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return DownloadRequest{}, fmt.Errorf("%w: url is required", ErrInvalidRequest)
	}

	mode, err := ParseFormatMode(string(mode))
	if err != nil {
		return DownloadRequest{}, err
	}

	quality = strings.ToLower(strings.TrimSpace(quality))
	quality = strings.TrimSuffix(quality, "p")
	if quality == "" {
		quality = QualityBest
	}
	if quality != QualityBest {
		h, err := strconv.Atoi(quality)
		if err != nil || h <= 0 {
			return DownloadRequest{}, fmt.Errorf("%w: invalid quality %q", ErrInvalidRequest, quality)
		}
	}

	container = strings.ToLower(strings.TrimSpace(container))
	if container == "" {
		container = mode.DefaultContainer()
	}
	allowed := VideoContainers
	if !mode.IsVideo() {
		allowed = AudioCodecs
	}
	if !contains(allowed, container) {
		return DownloadRequest{}, fmt.Errorf("%w: %q is not valid for mode %s", ErrInvalidRequest, container, mode)
	}

	if outputTemplate == "" {
		outputTemplate = DefaultOutputTemplate
	}

	return DownloadRequest{
		URL:            url,
		Mode:           mode,
		Quality:        quality,
		Container:      container,
		OutputTemplate: outputTemplate,
	}, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
