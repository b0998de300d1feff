package tests

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/andreyvit/diff"
	"github.com/google/go-cmp/cmp"
	"github.com/modernice/nbcat/internal/slice"
	"github.com/modernice/nbcat/notebook"
)

// ExpectNotebook fails the test if the cells, metadata or version of got
// differ from want.
func ExpectNotebook(t *testing.T, want, got *notebook.Notebook) {
	t.Helper()

	if got == nil {
		t.Fatalf("expected a notebook; got nil")
	}

	if !cmp.Equal(want, got) {
		t.Fatalf("unexpected notebook:\n%s", cmp.Diff(want, got))
	}
}

// ExpectSources fails the test if the cell sources of nb are not exactly want.
func ExpectSources(t *testing.T, want []string, nb *notebook.Notebook) {
	t.Helper()

	got := slice.Map(nb.Cells, notebook.Cell.Source)

	if !cmp.Equal(want, got) {
		t.Fatalf("unexpected cells:\n%s", cmp.Diff(want, got))
	}
}

// ExpectFile fails the test if the file at path in repo does not contain
// exactly want.
func ExpectFile(t *testing.T, repo fs.FS, path string, want []byte) {
	t.Helper()

	got, err := fs.ReadFile(repo, path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}

	if string(got) != string(want) {
		t.Fatalf("unexpected content of %s:\n%s", path, diff.LineDiff(string(want), string(got)))
	}
}

// ExpectNoFile fails the test if path exists in repo.
func ExpectNoFile(t *testing.T, repo fs.FS, path string) {
	t.Helper()

	_, err := fs.Stat(repo, path)
	if err == nil {
		t.Fatalf("%s should not exist", path)
	}

	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("stat %s: %v", path, err)
	}
}
