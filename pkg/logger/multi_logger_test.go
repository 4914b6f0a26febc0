package logger

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMultiLogger_CategoryFiles(t *testing.T) {
	dir := t.TempDir()
	ml, err := NewMultiLogger(MultiLoggerConfig{Level: "info", LogsDir: dir})
	require.NoError(t, err)

	ml.LogQueueEvent("download_added", zap.String("id", "abc"))
	ml.Provision().Info("fetching", zap.String("binary", "yt-dlp"))
	ml.LogAppError("boom", zap.Error(errors.New("bad")))
	ml.Error().Info("ignored below error level")
	require.NoError(t, ml.Close())

	reader := NewLogReader(dir)

	queue, err := reader.ReadLogs(CategoryQueue, time.Now(), 0, "")
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, "download_added", queue[0].Message)
	assert.Equal(t, "info", queue[0].Level)
	assert.Equal(t, "abc", queue[0].Fields["id"])

	provision, err := reader.ReadLogs(CategoryProvision, time.Now(), 0, "")
	require.NoError(t, err)
	require.Len(t, provision, 1)

	errs, err := reader.ReadLogs(CategoryError, time.Now(), 0, "")
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "boom", errs[0].Message)
}

func TestMultiLogger_DownloadSession(t *testing.T) {
	dir := t.TempDir()
	ml, err := NewMultiLogger(MultiLoggerConfig{Level: "info", LogsDir: dir})
	require.NoError(t, err)
	defer ml.Close()

	session, err := ml.BeginDownload("dl-1", "yt-dlp --newline 'https://example.com/v?a=1&b=2'")
	require.NoError(t, err)
	session.Line("[download] Destination: clip.mp4")
	session.Line("  45.2% 5.23MiB/s ETA 00:12")
	require.NoError(t, session.End(1, errors.New("process exited with error")))

	data, err := os.ReadFile(ml.CategoryLogPath(CategoryDownload, time.Now()))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "[dl-1] START")
	assert.Equal(t, "$ yt-dlp --newline 'https://example.com/v?a=1&b=2'", lines[1])
	assert.Equal(t, "[download] Destination: clip.mp4", lines[2])
	assert.Contains(t, lines[4], "[dl-1] END")
	assert.Contains(t, lines[4], "exit 1: process exited with error")
}

func TestLogReader_LimitAndQuery(t *testing.T) {
	dir := t.TempDir()
	ml, err := NewMultiLogger(MultiLoggerConfig{Level: "debug", LogsDir: dir})
	require.NoError(t, err)

	session, err := ml.BeginDownload("dl-2", "yt-dlp")
	require.NoError(t, err)
	for _, line := range []string{"[youtube] abc: Downloading webpage", "10.0%", "[Merger] Merging formats", "100.0%"} {
		session.Line(line)
	}
	require.NoError(t, session.End(0, nil))
	require.NoError(t, ml.Close())

	reader := NewLogReader(dir)

	last, err := reader.ReadLogs(CategoryDownload, time.Now(), 2, "")
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "100.0%", last[0].Message)
	assert.Equal(t, string(CategoryDownload), last[0].Category)

	merged, err := reader.ReadLogs(CategoryDownload, time.Now(), 0, "merging")
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Equal(t, "[Merger] Merging formats", merged[0].Message)
}

func TestLogReader_MissingFile(t *testing.T) {
	entries, err := NewLogReader(t.TempDir()).ReadLogs(CategoryQueue, time.Now().AddDate(0, 0, -3), 10, "")

	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestValidCategory(t *testing.T) {
	assert.True(t, ValidCategory(CategoryDownload))
	assert.True(t, ValidCategory(CategoryProvision))
	assert.False(t, ValidCategory("web"))
}

func TestNewMultiLogger_RequiresDir(t *testing.T) {
	_, err := NewMultiLogger(MultiLoggerConfig{})
	assert.Error(t, err)
}
