package merge

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/modernice/nbcat/internal"
	"github.com/modernice/nbcat/notebook"
	"github.com/spf13/afero"
	"golang.org/x/exp/slog"
)

// ErrEmpty is returned by Apply and DryRun if no notebook has been added.
var ErrEmpty = errors.New("no notebooks added")

// LoadError is returned when a source notebook is missing, unreadable, or not
// a notebook of a supported version.
type LoadError struct {
	Path string
	Err  error
}

func (err *LoadError) Error() string {
	return fmt.Sprintf("load notebook %s: %v", err.Path, err.Err)
}

func (err *LoadError) Unwrap() error {
	return err.Err
}

// WriteError is returned when the merged notebook cannot be written.
type WriteError struct {
	Path string
	Err  error
}

func (err *WriteError) Error() string {
	return fmt.Sprintf("write notebook %s: %v", err.Path, err.Err)
}

func (err *WriteError) Unwrap() error {
	return err.Err
}

// Merge accumulates the cells of notebooks read from a file system into a
// single notebook. The first added notebook provides the metadata of the
// result; the metadata of every later notebook is ignored.
type Merge struct {
	repo    fs.FS
	nb      *notebook.Notebook
	sources []string
	counts  []int
	log     *slog.Logger
}

// Option configures a Merge.
type Option func(*Merge)

// WithLogger returns an Option that sets the logger of a Merge.
func WithLogger(h slog.Handler) Option {
	return func(m *Merge) {
		m.log = slog.New(h)
	}
}

// New returns a Merge that reads notebooks from repo.
func New(repo fs.FS, opts ...Option) *Merge {
	m := &Merge{repo: repo}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = internal.NopLogger()
	}
	return m
}

// Add loads the notebook at path and appends its cells to the merged
// notebook. If it is the first notebook, the merged notebook is created with a
// copy of its metadata. Errors are returned as *LoadError and leave the merge
// unchanged.
func (m *Merge) Add(path string) error {
	m.log.Debug("Loading notebook ...", "path", path)

	nb, err := notebook.Read(m.repo, path)
	if err != nil {
		return &LoadError{Path: path, Err: err}
	}

	if m.nb == nil {
		m.log.Debug("Using metadata of first notebook.", "path", path)
		m.nb = notebook.New(nb.Metadata)
	}

	m.nb.Append(nb.Cells...)
	m.sources = append(m.sources, path)
	m.counts = append(m.counts, len(nb.Cells))

	m.log.Info(fmt.Sprintf("Added %d cells from %s", len(nb.Cells), path), "total", len(m.nb.Cells))

	return nil
}

// Notebook returns the merged notebook, or nil if nothing has been added.
func (m *Merge) Notebook() *notebook.Notebook {
	return m.nb
}

// Sources returns the paths of the added notebooks in the order they were
// added.
func (m *Merge) Sources() []string {
	return append([]string(nil), m.sources...)
}

// Counts returns the number of cells contributed by each added notebook, in
// the order they were added.
func (m *Merge) Counts() []int {
	return append([]int(nil), m.counts...)
}

// DryRun returns the encoded merged notebook without writing it.
func (m *Merge) DryRun() ([]byte, error) {
	if m.nb == nil {
		return nil, ErrEmpty
	}

	b, err := m.nb.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encode merged notebook: %w", err)
	}

	return b, nil
}

// Apply writes the merged notebook to path in target. The notebook is written
// to a temporary file in the same directory first and then renamed to path,
// so path is either left untouched or fully replaced. Errors are returned as
// *WriteError.
func (m *Merge) Apply(target afero.Fs, path string) error {
	b, err := m.DryRun()
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}

	m.log.Info(fmt.Sprintf("Writing %s ...", path), "cells", len(m.nb.Cells), "sources", len(m.sources))

	if err := writeFile(target, path, b); err != nil {
		return &WriteError{Path: path, Err: err}
	}

	return nil
}

func writeFile(target afero.Fs, path string, b []byte) (rerr error) {
	dir := filepath.Dir(path)

	tmp, err := afero.TempFile(target, dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if rerr != nil {
			target.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := target.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := target.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}
