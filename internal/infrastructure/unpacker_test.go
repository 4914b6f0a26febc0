package infrastructure

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

type zipEntry struct {
	name string
	body string
	mode os.FileMode
}

func writeZip(t *testing.T, path string, entries []zipEntry) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for _, e := range entries {
		header := &zip.FileHeader{Name: e.name, Method: zip.Deflate}
		mode := e.mode
		if mode == 0 {
			mode = 0644
		}
		header.SetMode(mode)
		fw, err := w.CreateHeader(header)
		require.NoError(t, err)
		_, err = fw.Write([]byte(e.body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}

func TestZipUnpacker_Unpack(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "bundle.zip")
	writeZip(t, archive, []zipEntry{
		{name: "bundle/bin/ffmpeg", body: "ffmpeg", mode: 0755},
		{name: "bundle/bin/ffprobe", body: "ffprobe", mode: 0755},
		{name: "bundle/LICENSE.txt", body: "gpl"},
	})

	out := filepath.Join(dir, "out")
	require.NoError(t, NewZipUnpacker().Unpack(archive, out))

	data, err := os.ReadFile(filepath.Join(out, "bundle", "bin", "ffmpeg"))
	require.NoError(t, err)
	assert.Equal(t, "ffmpeg", string(data))
	assert.FileExists(t, filepath.Join(out, "bundle", "bin", "ffprobe"))
	assert.FileExists(t, filepath.Join(out, "bundle", "LICENSE.txt"))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(filepath.Join(out, "bundle", "bin", "ffmpeg"))
		require.NoError(t, err)
		assert.NotZero(t, info.Mode().Perm()&0100)
	}
}

func TestZipUnpacker_RejectsEscapingEntries(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.zip")
	writeZip(t, archive, []zipEntry{{name: "../escaped.txt", body: "x"}})

	err := NewZipUnpacker().Unpack(archive, filepath.Join(dir, "out"))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExtractionFailure)
	assert.NoFileExists(t, filepath.Join(dir, "escaped.txt"))
}

func TestZipUnpacker_CorruptArchive(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "broken.zip")
	require.NoError(t, os.WriteFile(archive, []byte("not a zip"), 0644))

	err := NewZipUnpacker().Unpack(archive, dir)

	assert.ErrorIs(t, err, domain.ErrExtractionFailure)
}

func TestZipUnpacker_MissingArchive(t *testing.T) {
	dir := t.TempDir()

	err := NewZipUnpacker().Unpack(filepath.Join(dir, "nope.zip"), dir)

	assert.ErrorIs(t, err, domain.ErrExtractionFailure)
}
