//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package codesize

import (
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultOpener returns a portable backend built on os.File. Entries are
// classified with Lstat before opening so symlinks are never followed.
func DefaultOpener() Opener { return osOpener{} }

type osOpener struct{}

func (osOpener) OpenDir(path string) (Handle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	return &osHandle{f: f, path: path}, nil
}

type osHandle struct {
	f    *os.File
	path string
}

func (h *osHandle) OpenAt(name string) (Handle, error) {
	path := filepath.Join(h.path, name)

	info, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}

	if info.Mode()&(fs.ModeSymlink|fs.ModeSocket|fs.ModeNamedPipe|fs.ModeDevice) != 0 {
		return nil, nil //nolint:nilnil // Skipped entry
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	return &osHandle{f: f, path: path}, nil
}

func (h *osHandle) Stat() (FileType, int64, error) {
	info, err := h.f.Stat()
	if err != nil {
		return TypeOther, 0, err
	}

	switch {
	case info.Mode().IsRegular():
		return TypeRegular, info.Size(), nil
	case info.IsDir():
		return TypeDir, info.Size(), nil
	default:
		return TypeOther, info.Size(), nil
	}
}

func (h *osHandle) ReadNames() ([]string, error) { return h.f.Readdirnames(-1) }

func (h *osHandle) Read(p []byte) (int, error) { return h.f.Read(p) }

func (h *osHandle) Close() error { return h.f.Close() }
