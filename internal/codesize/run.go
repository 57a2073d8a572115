package codesize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// DefaultProgressInterval is the default interval for progress updates.
const DefaultProgressInterval = 500 * time.Millisecond

// Traversal sources.
const (
	// SourceDescriptor walks the live tree with DescriptorWalker.
	SourceDescriptor = "fd"
	// SourceFast walks the live tree with FastWalker.
	SourceFast = "fast"
	// SourceGit lists the files tracked in the git index.
	SourceGit = "git"
)

// Options configures a scan.
type Options struct {
	// Path is the directory to analyze.
	Path string
	// Metric is the quantity aggregated per extension.
	Metric Metric
	// TopK selects the TopKCollector instead of the SumCollector.
	TopK bool
	// Largest is the number of files kept per extension when TopK is set.
	Largest int
	// Extensions to include (empty = all). A "!" prefix excludes.
	Extensions []string
	// Excludes contains regex patterns matched against slash paths.
	Excludes []string
	// MinSize is the minimum file size in bytes.
	MinSize int64
	// Depth is the maximum traversal depth (0=unlimited).
	Depth int
	// Source is one of SourceDescriptor, SourceFast or SourceGit.
	Source string
	// Workers bounds parallelism of the fast walker and the git source.
	Workers int
	// ProgressInterval controls progress callback cadence.
	ProgressInterval time.Duration
	// Logger receives debug events. Nil discards.
	Logger *slog.Logger
}

// Progress is a snapshot handed to the progress hook.
type Progress struct {
	// Files is the number of files accumulated so far.
	Files int64
	// Total is the sum of their metric values.
	Total uint64
}

// counters tracks progress from concurrent visitors.
type counters struct {
	files atomic.Int64
	total atomic.Uint64
}

func (c *counters) snapshot() Progress {
	return Progress{Files: c.files.Load(), Total: c.total.Load()}
}

// extFilter is the extension allow-list and deny-list.
type extFilter struct {
	include map[string]struct{}
	exclude map[string]struct{}
}

// newExtFilter accepts "go", ".go" and quoted forms; a "!" prefix excludes.
func newExtFilter(exts []string) extFilter {
	filter := extFilter{
		include: make(map[string]struct{}, len(exts)),
		exclude: make(map[string]struct{}, len(exts)),
	}

	for _, e := range exts { //nolint:varnamelen // e is standard for element in range
		e = strings.Trim(e, "'\"") // Strip quotes first

		target := filter.include
		if strings.HasPrefix(e, "!") {
			e = strings.TrimPrefix(e, "!")
			target = filter.exclude
		}

		target[strings.TrimPrefix(e, ".")] = struct{}{}
	}

	return filter
}

// allows checks excludes first, then the allow-list if there is one.
func (f extFilter) allows(ext string) bool {
	if _, ok := f.exclude[ext]; ok {
		return false
	}

	if len(f.include) == 0 {
		return true
	}

	_, ok := f.include[ext]

	return ok
}

// compileExcludes turns the exclusion patterns into a SkipFunc; nil when
// there are none.
func compileExcludes(patterns []string) (SkipFunc, error) {
	if len(patterns) == 0 {
		return nil, nil //nolint:nilnil // No patterns, nothing to skip
	}

	regexes := make([]*regexp.Regexp, 0, len(patterns))

	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compiling exclusion pattern %q: %w", p, err)
		}

		regexes = append(regexes, re)
	}

	return func(path string) bool {
		fPath := filepath.ToSlash(path)

		for _, re := range regexes {
			if re.MatchString(fPath) {
				return true
			}
		}

		return false
	}, nil
}

// NewCollector creates the collector variant selected by opt.
func NewCollector(opt Options) Collector {
	if opt.TopK {
		return NewTopKCollector(opt.Largest)
	}

	return NewSumCollector()
}

// NewWalker creates the traversal source selected by opt.
func NewWalker(opt Options, skip SkipFunc) (Walker, error) {
	switch opt.Source {
	case SourceDescriptor, "":
		return &DescriptorWalker{Skip: skip, MaxDepth: opt.Depth, Logger: opt.Logger}, nil
	case SourceFast:
		return &FastWalker{NumWorkers: opt.Workers, Skip: skip, MaxDepth: opt.Depth, Logger: opt.Logger}, nil
	case SourceGit:
		return &GitIndex{Workers: opt.Workers, Skip: skip, MaxDepth: opt.Depth, Logger: opt.Logger}, nil
	default:
		return nil, fmt.Errorf("unknown source %q: must be one of %s, %s, %s",
			opt.Source, SourceDescriptor, SourceFast, SourceGit)
	}
}

// startProgressReporter invokes hook on each tick until ctx is done.
func startProgressReporter(ctx context.Context, c *counters, hook func(Progress), interval time.Duration) {
	if hook == nil {
		return
	}

	if interval <= 0 {
		interval = DefaultProgressInterval
	}

	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				hook(c.snapshot())
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Run scans opt.Path and returns the filled collector. The caller renders it
// with Collector.Finish.
//
// Files are filtered by exclusion pattern, extension and minimum size before
// their metric is read. The first error aborts the scan; no collector is
// returned in that case, so no partial report can be printed.
//
// The scan can be cancelled via ctx. Progress snapshots are sent to
// progressHook if provided.
func Run(ctx context.Context, opt Options, progressHook func(Progress)) (Collector, error) {
	log := logger(opt.Logger)

	if opt.Depth < 0 {
		return nil, errors.New("depth cannot be negative")
	}

	if opt.Path == "" {
		opt.Path = "."
	}

	opt.Path = filepath.Clean(opt.Path)

	skip, err := compileExcludes(opt.Excludes)
	if err != nil {
		return nil, err
	}

	walker, err := NewWalker(opt, skip)
	if err != nil {
		return nil, err
	}

	filter := newExtFilter(opt.Extensions)
	collector := NewCollector(opt)

	log.Debug("starting scan",
		"path", opt.Path,
		"metric", opt.Metric.String(),
		"source", opt.Source,
		"top_k", opt.TopK,
		"largest", opt.Largest,
		"depth", opt.Depth,
		"min_size", humanize.IBytes(uint64(max(opt.MinSize, 0))), //nolint:gosec // Clamped to non-negative
		"extensions", opt.Extensions,
		"excludes", opt.Excludes,
	)

	// Create child context to ensure progress reporter cleanup
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var progress counters

	startProgressReporter(ctx, &progress, progressHook, opt.ProgressInterval)

	start := time.Now()

	err = walker.Walk(ctx, opt.Path, func(path string, f File) error {
		ext := Extension(path)
		if !filter.allows(ext) {
			log.Debug("excluding file (extension filter)", "path", path)

			return nil
		}

		if f.Size() < opt.MinSize {
			return nil
		}

		value, err := ReadMetric(opt.Metric, path, f)
		if err != nil {
			return err
		}

		collector.Increment(ext, displayPath(path), value)
		progress.files.Add(1)
		progress.total.Add(value)

		return nil
	})
	if err != nil {
		return nil, err
	}

	done := progress.snapshot()
	log.Debug("scan complete",
		"files", done.Files,
		"total", done.Total,
		"elapsed", time.Since(start).String(),
	)

	return collector, nil
}

// displayPath converts a visited path to slash format without a leading "./".
func displayPath(path string) string {
	return strings.TrimPrefix(filepath.ToSlash(path), "./")
}
