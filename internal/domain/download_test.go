package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDownload(t *testing.T) *Download {
	t.Helper()
	req, err := NewDownloadRequest("https://example.com/watch?v=abc", FormatAudioVideo, "720", "mkv", "")
	require.NoError(t, err)
	return NewDownload(req)
}

func TestNewDownload(t *testing.T) {
	download := newTestDownload(t)

	assert.NotEmpty(t, download.ID)
	assert.Equal(t, "https://example.com/watch?v=abc", download.URL)
	assert.Equal(t, FormatAudioVideo, download.Mode)
	assert.Equal(t, "720", download.Quality)
	assert.Equal(t, "mkv", download.Container)
	assert.Equal(t, DefaultOutputTemplate, download.OutputTemplate)
	assert.Equal(t, StatusQueued, download.Status)
	assert.Nil(t, download.ExitCode)
}

func TestDownload_Request(t *testing.T) {
	download := newTestDownload(t)

	req := download.Request()
	assert.Equal(t, download.URL, req.URL)
	assert.Equal(t, download.Mode, req.Mode)
	assert.Equal(t, download.Quality, req.Quality)
	assert.Equal(t, download.Container, req.Container)
	assert.Equal(t, download.OutputTemplate, req.OutputTemplate)
}

func TestDownload_MarkProcessing(t *testing.T) {
	download := newTestDownload(t)

	download.MarkProcessing()

	assert.Equal(t, StatusProcessing, download.Status)
	assert.NotNil(t, download.StartedAt)
}

func TestDownload_MarkCompleted(t *testing.T) {
	download := newTestDownload(t)

	download.MarkCompleted("My Video.mkv", 0)

	assert.Equal(t, StatusCompleted, download.Status)
	assert.Equal(t, "My Video.mkv", download.FileName)
	require.NotNil(t, download.ExitCode)
	assert.Equal(t, 0, *download.ExitCode)
	assert.NotNil(t, download.CompletedAt)
	assert.True(t, download.IsTerminal())
}

func TestDownload_MarkFailed(t *testing.T) {
	download := newTestDownload(t)

	download.MarkFailed(errors.New("yt-dlp exited with code 1"))

	assert.Equal(t, StatusFailed, download.Status)
	assert.Equal(t, "yt-dlp exited with code 1", download.ErrorMessage)
	assert.True(t, download.IsTerminal())
}

func TestDownload_Requeue(t *testing.T) {
	download := newTestDownload(t)
	download.MarkProcessing()
	download.MarkFailed(errors.New("boom"))

	download.Requeue()

	assert.Equal(t, StatusQueued, download.Status)
	assert.Empty(t, download.ErrorMessage)
	assert.Nil(t, download.StartedAt)
	assert.Nil(t, download.CompletedAt)
	assert.True(t, download.IsPending())
}

func TestValidateStatus(t *testing.T) {
	assert.True(t, ValidateStatus(StatusQueued))
	assert.True(t, ValidateStatus(StatusCancelled))
	assert.False(t, ValidateStatus("paused"))
}
