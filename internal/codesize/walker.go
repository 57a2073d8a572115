package codesize

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
)

// errNotDirectory is returned when a walk root is not a directory.
var errNotDirectory = errors.New("not a directory")

// VisitFunc is called once per regular file. A non-nil error aborts the walk
// and is returned by Walk.
type VisitFunc func(path string, f File) error

// SkipFunc reports whether the entry at path (a file or a directory) is
// excluded from the walk.
type SkipFunc func(path string) bool

// Walker enumerates the regular files below root.
//
// The root must be a directory; a regular file root fails with ErrOpen.
// The first error aborts the walk.
type Walker interface {
	Walk(ctx context.Context, root string, visit VisitFunc) error
}

// FileType classifies an open entry.
type FileType uint8

const (
	// TypeOther is anything that is neither a regular file nor a directory.
	TypeOther FileType = iota
	// TypeRegular is a regular file.
	TypeRegular
	// TypeDir is a directory.
	TypeDir
)

// Handle is an owned, open directory entry. Close releases it and must be
// called exactly once.
type Handle interface {
	io.Reader
	// Stat classifies the open entry and returns its size.
	Stat() (FileType, int64, error)
	// ReadNames lists the names in an open directory.
	ReadNames() ([]string, error)
	// OpenAt opens name relative to this directory. It returns (nil, nil)
	// for entries that cannot be opened without following a symlink or
	// connecting to a socket; those are skipped.
	OpenAt(name string) (Handle, error)
	Close() error
}

// Opener opens walk roots.
type Opener interface {
	OpenDir(path string) (Handle, error)
}

// DescriptorWalker walks a tree by opening every entry relative to its
// parent directory handle and classifying it from the open handle. It is
// single-threaded; a parent handle stays open until its last child is done.
type DescriptorWalker struct {
	// Opener opens the root. Nil selects the platform default.
	Opener Opener
	// Skip excludes paths before they are opened.
	Skip SkipFunc
	// MaxDepth limits how deep files are visited (0=unlimited). Files
	// directly under the root are at depth 1.
	MaxDepth int
	// Logger receives debug events. Nil discards.
	Logger *slog.Logger
}

// Walk implements Walker.
func (w *DescriptorWalker) Walk(ctx context.Context, root string, visit VisitFunc) error {
	opener := w.Opener
	if opener == nil {
		opener = DefaultOpener()
	}

	dir, err := opener.OpenDir(root)
	if err != nil {
		return openError("open", root, err)
	}

	typ, _, err := dir.Stat()
	if err != nil {
		_ = dir.Close()

		return ioError("fstat", root, err)
	}

	if typ != TypeDir {
		_ = dir.Close()

		return openError("open", root, errNotDirectory)
	}

	return w.walkDir(ctx, root, dir, 0, visit)
}

// walkDir takes ownership of dir and closes it before returning, whether the
// children succeed or not.
func (w *DescriptorWalker) walkDir(ctx context.Context, path string, dir Handle, depth int, visit VisitFunc) (err error) {
	defer func() {
		if closeErr := dir.Close(); closeErr != nil && err == nil {
			err = ioError("close", path, closeErr)
		}
	}()

	if beyondDepth(depth+1, w.MaxDepth) {
		logger(w.Logger).Debug("skipping directory (beyond depth)", "path", path, "depth", w.MaxDepth)

		return nil
	}

	names, err := dir.ReadNames()
	if err != nil {
		return ioError("readdir", path, err)
	}

	logger(w.Logger).Debug("entering directory", "path", path, "entries", len(names))

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}

		if name == "." || name == ".." {
			continue
		}

		child := filepath.Join(path, name)
		if w.Skip != nil && w.Skip(child) {
			logger(w.Logger).Debug("excluding path", "path", child)

			continue
		}

		if err := w.walkEntry(ctx, dir, child, name, depth+1, visit); err != nil {
			return err
		}
	}

	return nil
}

// walkEntry opens one child of dir, dispatches on its type and guarantees the
// child handle is released on every path.
func (w *DescriptorWalker) walkEntry(ctx context.Context, dir Handle, path, name string, depth int, visit VisitFunc) error {
	h, err := dir.OpenAt(name)
	if err != nil {
		return openError("openat", path, err)
	}

	if h == nil {
		logger(w.Logger).Debug("skipping unopenable entry", "path", path)

		return nil
	}

	typ, size, err := h.Stat()
	if err != nil {
		_ = h.Close()

		return ioError("fstat", path, err)
	}

	switch typ {
	case TypeDir:
		return w.walkDir(ctx, path, h, depth, visit)
	case TypeRegular:
		visitErr := visit(path, handleFile{h: h, size: size})
		closeErr := h.Close()

		if visitErr != nil {
			return visitErr
		}

		if closeErr != nil {
			return ioError("close", path, closeErr)
		}

		return nil
	default:
		logger(w.Logger).Debug("skipping non-regular entry", "path", path)

		if err := h.Close(); err != nil {
			return ioError("close", path, err)
		}

		return nil
	}
}

// handleFile exposes an open regular file handle to a VisitFunc. The walker
// keeps ownership; Open returns a reader that does not close the handle.
type handleFile struct {
	h    Handle
	size int64
}

func (f handleFile) Size() int64 { return f.size }

func (f handleFile) Open() (io.ReadCloser, error) { return io.NopCloser(f.h), nil }

// calculateDepth returns the depth of a path relative to the root.
func calculateDepth(path, root string) int {
	relPath := strings.TrimPrefix(path, root)

	relPath = strings.TrimPrefix(relPath, string(filepath.Separator))
	if relPath == "" {
		return 0
	}

	return strings.Count(relPath, string(filepath.Separator)) + 1
}

// beyondDepth reports whether depth exceeds a non-zero limit.
func beyondDepth(depth, limit int) bool {
	return limit > 0 && depth > limit
}

// classifyOpenErr maps filesystem errors to ErrOpen when they concern
// existence or permissions, ErrIO otherwise.
func classifyOpenErr(op, path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return openError(op, path, err)
	}

	return ioError(op, path, err)
}

var discardLogger = slog.New(slog.DiscardHandler) //nolint:gochecknoglobals // Shared no-op logger

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return discardLogger
	}

	return l
}
