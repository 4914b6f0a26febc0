package domain

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// BinarySet names the executables a download needs and where they come from
type BinarySet struct {
	Dir              string
	YTDLP            string
	FFmpeg           string
	FFprobe          string
	YTDLPURL         string
	FFmpegArchiveURL string
}

// NewBinarySet builds a BinarySet from configuration
func NewBinarySet(cfg *BinariesConfig) BinarySet {
	return BinarySet{
		Dir:              cfg.Dir,
		YTDLP:            cfg.YTDLPName,
		FFmpeg:           cfg.FFmpegName,
		FFprobe:          cfg.FFprobeName,
		YTDLPURL:         cfg.YTDLPURL,
		FFmpegArchiveURL: cfg.FFmpegArchiveURL,
	}
}

// Names returns the three required file names
func (b BinarySet) Names() []string {
	return []string{b.YTDLP, b.FFmpeg, b.FFprobe}
}

// Path returns the absolute location of a binary in the binaries directory
func (b BinarySet) Path(name string) string {
	p := filepath.Join(b.Dir, name)
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// YTDLPPath is the primary tool location
func (b BinarySet) YTDLPPath() string { return b.Path(b.YTDLP) }

// FFmpegPath is the mux tool location
func (b BinarySet) FFmpegPath() string { return b.Path(b.FFmpeg) }

// FFprobePath is the probe tool location
func (b BinarySet) FFprobePath() string { return b.Path(b.FFprobe) }

// ArchiveName is the file name the ffmpeg archive is saved under
func (b BinarySet) ArchiveName() string {
	name := "ffmpeg.zip"
	if u, err := url.Parse(b.FFmpegArchiveURL); err == nil && path.Base(u.Path) != "." && path.Base(u.Path) != "/" {
		name = path.Base(u.Path)
	}
	return name
}

// ArchivePath is where the ffmpeg archive is downloaded to
func (b BinarySet) ArchivePath() string {
	return filepath.Join(b.Dir, b.ArchiveName())
}

// ArchiveRoot is the top-level directory the archive unpacks into
func (b BinarySet) ArchiveRoot() string {
	name := b.ArchiveName()
	return filepath.Join(b.Dir, strings.TrimSuffix(name, filepath.Ext(name)))
}

// ProvisionState is the lifecycle state of one binary
type ProvisionState string

const (
	StateMissing     ProvisionState = "missing"
	StateDownloading ProvisionState = "downloading"
	StateUnpacking   ProvisionState = "unpacking"
	StatePresent     ProvisionState = "present"
	StateFailed      ProvisionState = "failed"
)

// ProvisionStatus is a snapshot of provisioning progress
type ProvisionStatus struct {
	Ready     bool                      `json:"ready"`
	TimedOut  bool                      `json:"timed_out"`
	Running   bool                      `json:"running"`
	Binaries  map[string]ProvisionState `json:"binaries"`
	LastError string                    `json:"last_error,omitempty"`
}
