package codesize_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idelchi/codesize/internal/codesize"
)

func sampleTree(t *testing.T) string {
	t.Helper()

	return writeTree(t, map[string]string{
		"src/lib.rs":    "fn a() {}\nfn b() {}\n",
		"src/main.rs":   "fn main() {}\n",
		"cmd/main.go":   "package main\n\nfunc main() {}\n",
		"notes.txt":     "one\ntwo\nthree\nfour\n",
		"Makefile":      "all:\n",
		"vendor/dep.go": "package dep\n",
		"docs/guide.md": "",
		"docs/large.md": "# large\n\n\n\n\n",
	})
}

func report(t *testing.T, opt codesize.Options, base uint64) string {
	t.Helper()

	collector, err := codesize.Run(context.Background(), opt, nil)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, collector.Finish(&out, base))

	return out.String()
}

func TestRunSumLines(t *testing.T) {
	t.Parallel()

	root := sampleTree(t)

	got := report(t, codesize.Options{Path: root, Metric: codesize.Lines}, 0)

	// .go and .txt tie at 4; the extension breaks the tie.
	want := "" +
		".md  5\n" +
		".go  4\n" +
		".txt 4\n" +
		".rs  3\n" +
		"     1\n"
	assert.Equal(t, want, got)
}

func TestRunExtensionFilter(t *testing.T) {
	t.Parallel()

	root := sampleTree(t)

	got := report(t, codesize.Options{
		Path:       root,
		Metric:     codesize.Files,
		Extensions: []string{"rs", ".go"},
	}, 0)

	assert.Equal(t, ".go 2\n.rs 2\n", got)
}

func TestRunExcludedExtensionAndPattern(t *testing.T) {
	t.Parallel()

	root := sampleTree(t)

	got := report(t, codesize.Options{
		Path:       root,
		Metric:     codesize.Files,
		Extensions: []string{"!md", "!txt"},
		Excludes:   []string{`(^|/)vendor(/|$)`},
	}, 0)

	assert.Equal(t, ".rs 2\n    1\n.go 1\n", got)
}

func TestRunFilesAndBytesMatchTree(t *testing.T) {
	t.Parallel()

	root := sampleTree(t)

	var (
		files int
		size  uint64
	)

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		require.NoError(t, err)

		if d.Type().IsRegular() {
			info, err := d.Info()
			require.NoError(t, err)

			files++
			size += uint64(info.Size())
		}

		return nil
	})
	require.NoError(t, err)

	for _, source := range []string{codesize.SourceDescriptor, codesize.SourceFast} {
		for metric, want := range map[codesize.Metric]uint64{codesize.Files: uint64(files), codesize.Bytes: size} {
			collector, err := codesize.Run(context.Background(), codesize.Options{
				Path:   root,
				Metric: metric,
				Source: source,
			}, nil)
			require.NoError(t, err)

			var total uint64
			for _, row := range collector.(*codesize.SumCollector).Totals() {
				total += row.Total
			}

			assert.Equal(t, want, total, "%s/%s", source, metric)
		}
	}
}

func TestRunIsDeterministicAcrossSources(t *testing.T) {
	t.Parallel()

	root := sampleTree(t)

	for _, opt := range []codesize.Options{
		{Metric: codesize.Lines},
		{Metric: codesize.Bytes, TopK: true, Largest: 2},
		{Metric: codesize.Files, TopK: true, Largest: 1},
	} {
		var reports []string

		for _, source := range []string{codesize.SourceDescriptor, codesize.SourceFast, codesize.SourceDescriptor} {
			opt.Path = root
			opt.Source = source
			opt.Workers = 3

			reports = append(reports, report(t, opt, opt.Metric.HumanBase()))
		}

		assert.Equal(t, reports[0], reports[1])
		assert.Equal(t, reports[0], reports[2])
	}
}

func TestRunTopK(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"a.go": "\n",
		"b.go": "\n\n\n",
		"c.go": "\n\n",
		"d.md": "\n",
	})

	got := report(t, codesize.Options{Path: root, Metric: codesize.Lines, TopK: true, Largest: 2}, 0)

	slash := filepath.ToSlash(root)
	want := "" +
		"go\n" +
		"  3 " + slash + "/b.go\n" +
		"  2 " + slash + "/c.go\n" +
		"md\n" +
		"  1 " + slash + "/d.md\n"
	assert.Equal(t, want, got)
}

func TestRunGitSource(t *testing.T) {
	t.Parallel()

	root := initRepo(t, map[string]string{"a.go": "\n\n", "sub/b.go": "\n", "c.md": "\n"})
	require.NoError(t, os.WriteFile(filepath.Join(root, "untracked.go"), []byte("\n\n\n\n"), 0o600))

	got := report(t, codesize.Options{Path: root, Source: codesize.SourceGit, TopK: true, Largest: 5}, 0)

	assert.Equal(t, "go\n  2 a.go\n  1 sub/b.go\nmd\n  1 c.md\n", got)
}

func TestRunFailsFast(t *testing.T) {
	t.Parallel()

	collector, err := codesize.Run(context.Background(), codesize.Options{
		Path: filepath.Join(t.TempDir(), "missing"),
	}, nil)
	require.ErrorIs(t, err, codesize.ErrOpen)
	assert.Nil(t, collector)

	_, err = codesize.Run(context.Background(), codesize.Options{Path: t.TempDir(), Source: "ftp"}, nil)
	require.Error(t, err)

	_, err = codesize.Run(context.Background(), codesize.Options{Path: t.TempDir(), Excludes: []string{"("}}, nil)
	require.Error(t, err)
}

func TestRunMinSize(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{"small.go": "x", "big.go": "0123456789"})

	got := report(t, codesize.Options{Path: root, Metric: codesize.Files, MinSize: 5}, 0)
	assert.Equal(t, ".go 1\n", got)
}

func TestRunDepth(t *testing.T) {
	t.Parallel()

	root := sampleTree(t)

	for _, source := range []string{codesize.SourceDescriptor, codesize.SourceFast} {
		got := report(t, codesize.Options{Path: root, Metric: codesize.Files, Depth: 1, Source: source}, 0)

		// Only Makefile and notes.txt sit directly under the root.
		assert.Equal(t, "     1\n.txt 1\n", got, source)
	}

	_, err := codesize.Run(context.Background(), codesize.Options{Path: root, Depth: -1}, nil)
	require.Error(t, err)
}
