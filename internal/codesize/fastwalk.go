package codesize

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charlievieth/fastwalk"
)

// FastWalker walks a tree with fastwalk, classifying entries from directory
// metadata and calling the visitor concurrently from several goroutines.
// Files are only opened when the visitor asks for their content.
type FastWalker struct {
	// NumWorkers bounds the walking goroutines; zero uses fastwalk's default.
	NumWorkers int
	// Skip excludes files and directories.
	Skip SkipFunc
	// MaxDepth limits traversal depth (0=unlimited).
	MaxDepth int
	// Logger receives debug events. Nil discards.
	Logger *slog.Logger
}

// Walk implements Walker.
func (w *FastWalker) Walk(ctx context.Context, root string, visit VisitFunc) error {
	log := logger(w.Logger)

	// validate path exists and is accessible
	if info, err := os.Stat(root); err != nil {
		return openError("stat", root, err)
	} else if !info.IsDir() {
		return openError("open", root, errNotDirectory)
	}

	conf := &fastwalk.Config{
		Follow:     false, // Don't follow symlinks
		NumWorkers: w.NumWorkers,
	}

	//nolint:varnamelen // d is standard for DirEntry
	err := fastwalk.Walk(conf, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return classifyOpenErr("readdir", path, err)
		}

		// Check cancellation periodically
		if err := ctx.Err(); err != nil {
			return err
		}

		// Calculate current depth and check against limit
		if beyondDepth(calculateDepth(path, root), w.MaxDepth) {
			if d.IsDir() {
				log.Debug("skipping directory (beyond depth)", "path", path, "depth", w.MaxDepth)

				return filepath.SkipDir
			}

			return nil
		}

		if path != root && w.Skip != nil && w.Skip(path) {
			log.Debug("excluding path", "path", path)

			if d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if d.IsDir() {
			return nil
		}

		if !d.Type().IsRegular() {
			log.Debug("skipping non-regular entry", "path", path)

			return nil
		}

		info, err := d.Info()
		if err != nil {
			return classifyOpenErr("lstat", path, err)
		}

		return visit(path, pathFile{path: path, size: info.Size()})
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return asScanError(ErrIO, "walk", root, err)
	}

	return nil
}

// pathFile is a regular file known by path and metadata size.
type pathFile struct {
	path string
	size int64
}

func (f pathFile) Size() int64 { return f.size }

func (f pathFile) Open() (io.ReadCloser, error) { return os.Open(f.path) }
