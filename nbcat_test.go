package nbcat_test

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/modernice/nbcat"
	"github.com/modernice/nbcat/internal/tests"
	"github.com/modernice/nbcat/notebook"
	"github.com/spf13/afero"
)

func TestConcatenator_Concatenate(t *testing.T) {
	root := filepath.Join(tests.Must(os.Getwd()), "testdata", "gen", "concatenate")
	tests.WithRepo("time-series", root, func(repo fs.FS) {
		c := nbcat.New(root)

		if err := c.Concatenate(context.Background(), nbcat.Sources); err != nil {
			t.Fatalf("Concatenate() failed: %v", err)
		}

		tests.ExpectFile(t, repo, nbcat.Output, tests.Golden("time-series"))

		out, err := notebook.Read(repo, nbcat.Output)
		if err != nil {
			t.Fatal(err)
		}

		var want []notebook.Cell
		for _, name := range nbcat.Sources {
			nb, err := notebook.Read(repo, name)
			if err != nil {
				t.Fatal(err)
			}
			want = append(want, nb.Cells...)
		}

		if !cmp.Equal(want, out.Cells) {
			t.Fatalf("output cells are not the concatenation of the sources\n%s", cmp.Diff(want, out.Cells))
		}

		first, err := notebook.Read(repo, nbcat.Sources[0])
		if err != nil {
			t.Fatal(err)
		}

		if !cmp.Equal(first.Metadata, out.Metadata) {
			t.Fatalf("output metadata should equal the metadata of %s\n%s", nbcat.Sources[0], cmp.Diff(first.Metadata, out.Metadata))
		}

		if out.NBFormat != notebook.Major || out.NBFormatMinor != notebook.Minor {
			t.Fatalf("output has version %d.%d; want %d.%d", out.NBFormat, out.NBFormatMinor, notebook.Major, notebook.Minor)
		}
	})
}

func TestConcatenator_Concatenate_idempotent(t *testing.T) {
	root := filepath.Join(tests.Must(os.Getwd()), "testdata", "gen", "idempotent")
	tests.WithRepo("time-series", root, func(repo fs.FS) {
		c := nbcat.New(root)

		if err := c.Concatenate(context.Background(), nbcat.Sources); err != nil {
			t.Fatalf("first Concatenate() failed: %v", err)
		}

		first, err := fs.ReadFile(repo, nbcat.Output)
		if err != nil {
			t.Fatal(err)
		}

		if err := c.Concatenate(context.Background(), nbcat.Sources); err != nil {
			t.Fatalf("second Concatenate() failed: %v", err)
		}

		tests.ExpectFile(t, repo, nbcat.Output, first)
	})
}

func TestConcatenator_Concatenate_missingSource(t *testing.T) {
	root := filepath.Join(tests.Must(os.Getwd()), "testdata", "gen", "missing-source")
	tests.WithRepo("time-series", root, func(repo fs.FS) {
		if err := os.Remove(filepath.Join(root, nbcat.Sources[1])); err != nil {
			t.Fatal(err)
		}

		err := nbcat.New(root).Concatenate(context.Background(), nbcat.Sources)

		var loadErr *nbcat.LoadError
		if !errors.As(err, &loadErr) {
			t.Fatalf("Concatenate() should fail with a *LoadError; got %T (%v)", err, err)
		}

		if loadErr.Path != nbcat.Sources[1] {
			t.Errorf("LoadError.Path should be %q; is %q", nbcat.Sources[1], loadErr.Path)
		}

		if !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("LoadError should wrap %q; got %v", fs.ErrNotExist, err)
		}

		// once by the LoadError and once by the *fs.PathError
		if n := strings.Count(err.Error(), nbcat.Sources[1]); n != 2 {
			t.Errorf("error should name the source twice; got %q", err)
		}

		tests.ExpectNoFile(t, repo, nbcat.Output)
	})
}

func TestConcatenator_Concatenate_missingSourceKeepsOutput(t *testing.T) {
	root := filepath.Join(tests.Must(os.Getwd()), "testdata", "gen", "missing-source-keep")
	tests.WithRepo("time-series", root, func(repo fs.FS) {
		previous := []byte("previous summary\n")
		if err := os.WriteFile(filepath.Join(root, nbcat.Output), previous, 0644); err != nil {
			t.Fatal(err)
		}
		if err := os.Remove(filepath.Join(root, nbcat.Sources[1])); err != nil {
			t.Fatal(err)
		}

		if err := nbcat.New(root).Concatenate(context.Background(), nbcat.Sources); err == nil {
			t.Fatal("Concatenate() should fail if a source is missing")
		}

		tests.ExpectFile(t, repo, nbcat.Output, previous)
	})
}

func TestConcatenator_Concatenate_writeError(t *testing.T) {
	base := afero.NewMemMapFs()
	c := nbcat.New(".",
		nbcat.WithSource(tests.Fixture("time-series")),
		nbcat.WithTarget(afero.NewReadOnlyFs(base)),
	)

	err := c.Concatenate(context.Background(), nbcat.Sources)

	var writeErr *nbcat.WriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("Concatenate() should fail with a *WriteError; got %T (%v)", err, err)
	}

	tests.ExpectNoFile(t, afero.NewIOFS(base), nbcat.Output)
}

func TestConcatenator_Concatenate_canceled(t *testing.T) {
	target := afero.NewMemMapFs()
	c := nbcat.New(".", nbcat.WithSource(tests.Fixture("time-series")), nbcat.WithTarget(target))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.Concatenate(ctx, nbcat.Sources); !errors.Is(err, context.Canceled) {
		t.Fatalf("Concatenate() should fail with %q; got %v", context.Canceled, err)
	}

	tests.ExpectNoFile(t, afero.NewIOFS(target), nbcat.Output)
}

func TestConcatenator_DryRun(t *testing.T) {
	target := afero.NewMemMapFs()
	c := nbcat.New(".",
		nbcat.WithSource(tests.Fixture("time-series")),
		nbcat.WithTarget(target),
		nbcat.WithOutput("summary.ipynb"),
	)

	got, err := c.DryRun(context.Background(), nbcat.Sources)
	if err != nil {
		t.Fatalf("DryRun() failed: %v", err)
	}

	if want := tests.Golden("time-series"); !bytes.Equal(want, got) {
		t.Fatalf("unexpected dry run result\n%s", cmp.Diff(string(want), string(got)))
	}

	tests.ExpectNoFile(t, afero.NewIOFS(target), "summary.ipynb")

	if err := c.Concatenate(context.Background(), nbcat.Sources); err != nil {
		t.Fatalf("Concatenate() failed: %v", err)
	}

	tests.ExpectFile(t, afero.NewIOFS(target), "summary.ipynb", got)
}
