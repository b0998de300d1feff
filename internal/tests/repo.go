package tests

import (
	"embed"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

var (
	//go:embed testdata/fixtures/time-series
	timeSeriesFS embed.FS

	//go:embed testdata/golden
	goldenFS embed.FS

	fixtures = map[string]fs.FS{
		"time-series": Must(fs.Sub(timeSeriesFS, "testdata/fixtures/time-series")),
	}
)

// Must is a function that takes a value and an error and returns the value. If
// the error is not nil, Must panics with the error.
func Must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// Fixture returns the embedded fixture with the given name as an fs.FS.
func Fixture(name string) fs.FS {
	fixture, ok := fixtures[name]
	if !ok {
		panic(fmt.Errorf("unknown fixture %q", name))
	}
	return fixture
}

// Golden returns the expected merge result for the fixture with the given name.
func Golden(name string) []byte {
	return Must(fs.ReadFile(goldenFS, "testdata/golden/"+name+".ipynb"))
}

// WithRepo copies the fixture [name] into the directory [root] and calls [fn]
// with a filesystem interface to that directory. If any errors occur during
// initialization, WithRepo panics.
func WithRepo(name string, root string, fn func(fs.FS)) {
	if err := InitRepo(name, root); err != nil {
		panic(err)
	}
	fn(os.DirFS(root))
}

// InitRepo populates the directory [root] with the files of the fixture
// [name]. An existing directory at root is removed first.
func InitRepo(name, root string) error {
	if _, err := os.Stat(root); !os.IsNotExist(err) {
		if err := os.RemoveAll(root); err != nil {
			return fmt.Errorf("remove existing repository directory: %w", err)
		}
	}

	if err := os.MkdirAll(root, 0755); err != nil {
		return fmt.Errorf("create repository directory: %w", err)
	}

	fixture := Fixture(name)

	return fs.WalkDir(fixture, ".", func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.IsDir() {
			return nil
		}

		targetPath := filepath.Join(root, path)
		targetDir := filepath.Dir(targetPath)
		if err := os.MkdirAll(targetDir, 0755); err != nil {
			return fmt.Errorf("create directory %q: %w", targetDir, err)
		}

		copy, err := os.Create(targetPath)
		if err != nil {
			return fmt.Errorf("create %q: %w", targetPath, err)
		}
		defer copy.Close()

		f, err := fixture.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = io.Copy(copy, f)

		return err
	})
}
