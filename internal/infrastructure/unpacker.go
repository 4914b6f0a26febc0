package infrastructure

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

// ZipUnpacker extracts zip archives
type ZipUnpacker struct{}

// NewZipUnpacker creates a new zip unpacker
func NewZipUnpacker() *ZipUnpacker {
	return &ZipUnpacker{}
}

// Unpack extracts every entry of archivePath below destinationDir.
// Entries that would land outside destinationDir are rejected.
func (u *ZipUnpacker) Unpack(archivePath, destinationDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("%w: failed to open %s: %w", domain.ErrExtractionFailure, archivePath, err)
	}
	defer r.Close()

	root, err := filepath.Abs(destinationDir)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrExtractionFailure, err)
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return fmt.Errorf("%w: failed to create %s: %w", domain.ErrExtractionFailure, root, err)
	}

	for _, f := range r.File {
		if err := extractEntry(f, root); err != nil {
			return fmt.Errorf("%w: %s: %w", domain.ErrExtractionFailure, f.Name, err)
		}
	}
	return nil
}

func extractEntry(f *zip.File, root string) error {
	target := filepath.Join(root, filepath.FromSlash(f.Name))
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return fmt.Errorf("entry escapes destination directory")
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0644
	}

	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
