package domain

import (
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.NotNil(t, config)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, 20*time.Second, config.Binaries.FetchTimeout)
	assert.Equal(t, 60*time.Second, config.Binaries.ProvisionTimeout)
	assert.Equal(t, time.Second, config.Binaries.PollInterval)
	assert.Equal(t, DefaultOutputTemplate, config.Download.OutputTemplate)
	assert.Equal(t, 500, config.Download.LogBuffer)
	assert.True(t, config.Queue.AutoStart)
	assert.Equal(t, "info", config.Logging.Level)
}

func TestDefaultBinariesConfig_PlatformNames(t *testing.T) {
	cfg := DefaultBinariesConfig()

	if runtime.GOOS == "windows" {
		assert.Equal(t, "yt-dlp.exe", cfg.YTDLPName)
		assert.Equal(t, "ffmpeg.exe", cfg.FFmpegName)
		assert.Equal(t, "ffprobe.exe", cfg.FFprobeName)
		assert.True(t, strings.HasSuffix(cfg.FFmpegArchiveURL, "-win64-gpl.zip"))
	} else {
		assert.Equal(t, "yt-dlp", cfg.YTDLPName)
		assert.Equal(t, "ffmpeg", cfg.FFmpegName)
		assert.Equal(t, "ffprobe", cfg.FFprobeName)
		assert.Empty(t, cfg.FFmpegArchiveURL)
	}
	assert.True(t, strings.HasPrefix(cfg.YTDLPURL, "https://github.com/yt-dlp/yt-dlp/releases/"))
}
