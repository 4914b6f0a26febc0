package domain

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBinarySet_ArchiveLayout(t *testing.T) {
	set := BinarySet{
		Dir:              "/opt/bin",
		YTDLP:            "yt-dlp",
		FFmpeg:           "ffmpeg",
		FFprobe:          "ffprobe",
		FFmpegArchiveURL: "https://example.com/releases/ffmpeg-master-latest-win64-gpl.zip?dl=1",
	}

	assert.Equal(t, "ffmpeg-master-latest-win64-gpl.zip", set.ArchiveName())
	assert.Equal(t, filepath.Join("/opt/bin", "ffmpeg-master-latest-win64-gpl.zip"), set.ArchivePath())
	assert.Equal(t, filepath.Join("/opt/bin", "ffmpeg-master-latest-win64-gpl"), set.ArchiveRoot())
	assert.Equal(t, []string{"yt-dlp", "ffmpeg", "ffprobe"}, set.Names())
}

func TestBinarySet_PathIsAbsolute(t *testing.T) {
	set := BinarySet{Dir: "bin", YTDLP: "yt-dlp"}

	assert.True(t, filepath.IsAbs(set.YTDLPPath()))
	assert.Equal(t, "yt-dlp", filepath.Base(set.YTDLPPath()))
}
