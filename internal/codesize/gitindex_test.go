package codesize_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idelchi/codesize/internal/codesize"
)

// initRepo creates a repository with files staged in its index.
func initRepo(t *testing.T, files map[string]string) string {
	t.Helper()

	root := writeTree(t, files)

	repo, err := git.PlainInit(root, false)
	require.NoError(t, err)

	w, err := repo.Worktree()
	require.NoError(t, err)

	_, err = w.Add(".")
	require.NoError(t, err)

	return root
}

func TestGitIndexListsTrackedFiles(t *testing.T) {
	t.Parallel()

	root := initRepo(t, map[string]string{
		"main.go":       "package main\n",
		"docs/a.md":     "# a\n\ntext\n",
		"internal/x.rs": "fn x() {}\n",
	})

	require.NoError(t, os.WriteFile(filepath.Join(root, "untracked.go"), []byte("\n\n\n"), 0o600))

	got, err := collect(t, &codesize.GitIndex{Workers: 2}, root)
	require.NoError(t, err)

	assert.Equal(t, map[string]uint64{
		"main.go":       1,
		"docs/a.md":     3,
		"internal/x.rs": 1,
	}, got)
}

func TestGitIndexUsesIndexSize(t *testing.T) {
	t.Parallel()

	root := initRepo(t, map[string]string{"a.go": "12345"})

	// Grow the working tree copy after staging.
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("1234567890\n"), 0o600))

	var size int64

	err := (&codesize.GitIndex{}).Walk(context.Background(), root, func(_ string, f codesize.File) error {
		size = f.Size()

		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), size)
}

func TestGitIndexErrors(t *testing.T) {
	t.Parallel()

	_, err := collect(t, &codesize.GitIndex{}, t.TempDir())
	require.ErrorIs(t, err, codesize.ErrSource)

	root := initRepo(t, map[string]string{"gone.go": "x\n", "kept.go": "y\n"})
	require.NoError(t, os.Remove(filepath.Join(root, "gone.go")))

	_, err = collect(t, &codesize.GitIndex{}, root)
	require.ErrorIs(t, err, codesize.ErrOpen)
}

func TestGitIndexSkipsConflictStages(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"clean.go":    "a\nb\n",
		"conflict.go": "<<<<<<<\n=======\n>>>>>>>\n",
		"notes.md":    "x\n",
	})

	repo, err := git.PlainInit(root, false)
	require.NoError(t, err)

	// A path in conflict is stored once per stage 1 (ancestor), 2 (ours)
	// and 3 (theirs); resolved paths are stage 0.
	idx := &index.Index{
		Version: 2,
		Entries: []*index.Entry{
			{Name: "clean.go", Mode: filemode.Regular, Size: 4},
			{Name: "conflict.go", Mode: filemode.Regular, Size: 24, Stage: index.AncestorMode},
			{Name: "conflict.go", Mode: filemode.Regular, Size: 24, Stage: index.OurMode},
			{Name: "conflict.go", Mode: filemode.Regular, Size: 24, Stage: index.TheirMode},
			{Name: "notes.md", Mode: filemode.Regular, Size: 2},
		},
	}
	require.NoError(t, repo.Storer.SetIndex(idx))

	got, err := collect(t, &codesize.GitIndex{}, root)
	require.NoError(t, err)

	assert.Equal(t, map[string]uint64{
		"clean.go": 2,
		"notes.md": 1,
	}, got)
}

func TestGitIndexMaxDepth(t *testing.T) {
	t.Parallel()

	root := initRepo(t, map[string]string{
		"top.go":       "\n",
		"pkg/mid.go":   "\n",
		"pkg/x/low.go": "\n",
	})

	got, err := collect(t, &codesize.GitIndex{MaxDepth: 2}, root)
	require.NoError(t, err)

	assert.Equal(t, map[string]uint64{"top.go": 1, "pkg/mid.go": 1}, got)
}
