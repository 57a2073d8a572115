package codesize

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"golang.org/x/sync/errgroup"
)

// GitIndex lists the files tracked in the index of the repository at the
// walk root instead of enumerating directories. Sizes come from the index;
// content is read from the working tree. Visits run concurrently, bounded by
// Workers, and the first error cancels the rest.
type GitIndex struct {
	// Workers bounds concurrent visits; zero uses GOMAXPROCS.
	Workers int
	// Skip excludes tracked paths.
	Skip SkipFunc
	// MaxDepth limits the directory depth of tracked paths (0=unlimited).
	MaxDepth int
	// Logger receives debug events. Nil discards.
	Logger *slog.Logger
}

// Walk implements Walker. Visited paths are relative to root, as stored in
// the index.
func (g *GitIndex) Walk(ctx context.Context, root string, visit VisitFunc) error {
	log := logger(g.Logger)

	repo, err := git.PlainOpen(root)
	if err != nil {
		return sourceError("open repository", root, err)
	}

	idx, err := repo.Storer.Index()
	if err != nil {
		return sourceError("read index", root, err)
	}

	log.Debug("read git index", "path", root, "entries", len(idx.Entries))

	workers := g.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	for _, entry := range idx.Entries {
		if gctx.Err() != nil {
			break
		}

		// Conflicted paths appear once per stage 1-3; only stage 0 (merged) counts.
		if entry.Stage > 0 {
			continue
		}

		if entry.Mode != filemode.Regular && entry.Mode != filemode.Executable {
			log.Debug("skipping non-regular index entry", "path", entry.Name, "mode", entry.Mode.String())

			continue
		}

		path := filepath.FromSlash(entry.Name)
		if beyondDepth(calculateDepth(path, ""), g.MaxDepth) {
			continue
		}

		if g.Skip != nil && g.Skip(path) {
			log.Debug("excluding path", "path", path)

			continue
		}

		file := indexFile{path: filepath.Join(root, path), size: int64(entry.Size)}

		group.Go(func() error {
			return visit(path, file)
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}

	return ctx.Err()
}

// indexFile is a tracked file whose size is taken from the index.
type indexFile struct {
	path string
	size int64
}

func (f indexFile) Size() int64 { return f.size }

func (f indexFile) Open() (io.ReadCloser, error) { return os.Open(f.path) }
