package codesize

import (
	"cmp"
	"io"
	"slices"
	"sync"

	"github.com/emirpasic/gods/trees/binaryheap"
)

// Collector accumulates a metric per file extension.
//
// Increment may be called from concurrent walker callbacks. Finish renders
// the report and releases the accumulated state; a collector is not reused
// afterwards.
type Collector interface {
	// Increment records value for the file at path under ext.
	Increment(ext, path string, value uint64)
	// Finish writes the report to w. A zero base prints raw numbers,
	// otherwise values are scaled by base (see FormatHuman).
	Finish(w io.Writer, base uint64) error
}

// ExtTotal is one row of a sum report.
type ExtTotal struct {
	// Ext is the extension without its leading dot.
	Ext string `json:"ext"`
	// Total is the accumulated metric.
	Total uint64 `json:"total"`
}

// FileStat represents a single file path and its metric.
type FileStat struct {
	// Path is the file path as visited.
	Path string `json:"path"`
	// Size is the metric value of the file.
	Size uint64 `json:"size"`
}

// SumCollector sums the metric per extension.
type SumCollector struct {
	mu     sync.Mutex // Protect concurrent access
	totals map[string]uint64
}

// NewSumCollector creates an empty SumCollector.
func NewSumCollector() *SumCollector {
	return &SumCollector{totals: make(map[string]uint64)}
}

// Increment adds value to the running total of ext.
func (c *SumCollector) Increment(ext, _ string, value uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totals[ext] += value
}

// Totals returns the rows sorted by total descending, extension ascending.
func (c *SumCollector) Totals() []ExtTotal {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows := make([]ExtTotal, 0, len(c.totals))
	for ext, total := range c.totals {
		rows = append(rows, ExtTotal{Ext: ext, Total: total})
	}

	slices.SortFunc(rows, func(a, b ExtTotal) int {
		if d := cmp.Compare(b.Total, a.Total); d != 0 {
			return d
		}

		return cmp.Compare(a.Ext, b.Ext)
	})

	return rows
}

// Finish writes one line per extension.
func (c *SumCollector) Finish(w io.Writer, base uint64) error {
	rows := c.Totals()

	c.mu.Lock()
	c.totals = nil
	c.mu.Unlock()

	return writeSums(w, rows, base)
}

// TopKCollector keeps the k largest files per extension.
type TopKCollector struct {
	mu    sync.Mutex // Protect concurrent access
	k     int
	heaps map[string]*binaryheap.Heap
}

// NewTopKCollector creates a collector retaining at most k files per
// extension. A non-positive k retains nothing.
func NewTopKCollector(k int) *TopKCollector {
	return &TopKCollector{
		k:     max(k, 0),
		heaps: make(map[string]*binaryheap.Heap),
	}
}

// compareRetention orders entries so the heap root is the next to evict:
// smallest size first, and among equal sizes the smallest path.
func compareRetention(a, b any) int {
	fa, fb := a.(FileStat), b.(FileStat) //nolint:forcetypeassert // Heap holds only FileStat

	if c := cmp.Compare(fa.Size, fb.Size); c != 0 {
		return c
	}

	return cmp.Compare(fa.Path, fb.Path)
}

// Increment offers the file to the bounded set of ext, evicting the minimum
// when the set grows beyond k.
func (c *TopKCollector) Increment(ext, path string, value uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	heap, ok := c.heaps[ext]
	if !ok {
		heap = binaryheap.NewWith(compareRetention)
		c.heaps[ext] = heap
	}

	heap.Push(FileStat{Path: path, Size: value})

	for heap.Size() > c.k {
		heap.Pop()
	}
}

// Largest returns the retained files per extension, each list sorted by
// size descending, path ascending.
func (c *TopKCollector) Largest() map[string][]FileStat {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string][]FileStat, len(c.heaps))

	for ext, heap := range c.heaps {
		files := make([]FileStat, 0, heap.Size())
		for _, v := range heap.Values() {
			files = append(files, v.(FileStat)) //nolint:forcetypeassert // Heap holds only FileStat
		}

		slices.SortFunc(files, func(a, b FileStat) int {
			if d := cmp.Compare(b.Size, a.Size); d != 0 {
				return d
			}

			return cmp.Compare(a.Path, b.Path)
		})

		out[ext] = files
	}

	return out
}

// Finish writes a header per extension, in extension order, followed by
// its retained files.
func (c *TopKCollector) Finish(w io.Writer, base uint64) error {
	largest := c.Largest()

	c.mu.Lock()
	c.heaps = nil
	c.mu.Unlock()

	return writeTopK(w, largest, base)
}
