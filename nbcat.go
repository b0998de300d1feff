package nbcat

import (
	"context"
	"fmt"
	"io/fs"
	"os"

	"github.com/modernice/nbcat/internal"
	"github.com/modernice/nbcat/internal/slice"
	"github.com/modernice/nbcat/merge"
	"github.com/spf13/afero"
	"golang.org/x/exp/slog"
)

// Output is the name of the notebook that Concatenate writes.
const Output = "00_summary.ipynb"

// Sources are the notebooks that make up the summary notebook, in the order
// their cells appear in it.
var Sources = []string{
	"01_time_series_analysis_import.ipynb",
	"02_time_series_analysis_data_exploration.ipynb",
	"03_time_series_decomposition.ipynb",
	"04_time_series_smoothing_prediction.ipynb",
	"05_time_series_cross_validation.ipynb",
}

type (
	// LoadError is returned when a source notebook cannot be loaded.
	LoadError = merge.LoadError

	// WriteError is returned when the output notebook cannot be written.
	WriteError = merge.WriteError
)

// Concatenator merges notebooks into a single notebook. The cells of all
// notebooks are concatenated in order, and the metadata of the first notebook
// becomes the metadata of the result. Use New to create a Concatenator.
type Concatenator struct {
	source fs.FS
	target afero.Fs
	output string
	log    *slog.Logger
}

// Option configures a Concatenator.
type Option func(*Concatenator)

// WithLogger returns an Option that sets the logger for a Concatenator. The
// handler is passed down to the merge.
func WithLogger(h slog.Handler) Option {
	return func(c *Concatenator) {
		c.log = slog.New(h)
	}
}

// WithSource returns an Option that makes the Concatenator read notebooks from
// fsys instead of the root directory.
func WithSource(fsys fs.FS) Option {
	return func(c *Concatenator) {
		c.source = fsys
	}
}

// WithTarget returns an Option that makes the Concatenator write the output
// notebook to fsys instead of the root directory.
func WithTarget(fsys afero.Fs) Option {
	return func(c *Concatenator) {
		c.target = fsys
	}
}

// WithOutput returns an Option that overrides the name of the output notebook.
// The default is [Output].
func WithOutput(name string) Option {
	return func(c *Concatenator) {
		c.output = name
	}
}

// New returns a Concatenator that reads notebooks from and writes the output
// notebook to the directory root.
func New(root string, opts ...Option) *Concatenator {
	c := &Concatenator{output: Output}
	for _, opt := range opts {
		opt(c)
	}
	if c.source == nil {
		c.source = os.DirFS(root)
	}
	if c.target == nil {
		c.target = afero.NewBasePathFs(afero.NewOsFs(), root)
	}
	if c.log == nil {
		c.log = internal.NopLogger()
	}
	return c
}

// Concatenate loads the notebooks in names in order and writes their
// concatenation to the output notebook. Nothing is written unless every
// notebook could be loaded. Load failures are returned as *LoadError and
// write failures as *WriteError.
func (c *Concatenator) Concatenate(ctx context.Context, names []string) error {
	m, err := c.merge(ctx, names)
	if err != nil {
		return err
	}
	return m.Apply(c.target, c.output)
}

// DryRun works like Concatenate but returns the encoded output notebook
// instead of writing it.
func (c *Concatenator) DryRun(ctx context.Context, names []string) ([]byte, error) {
	m, err := c.merge(ctx, names)
	if err != nil {
		return nil, err
	}

	b, err := m.DryRun()
	if err != nil {
		return nil, fmt.Errorf("dry run: %w", err)
	}

	return b, nil
}

func (c *Concatenator) merge(ctx context.Context, names []string) (*merge.Merge, error) {
	c.log.Info("Concatenating notebooks ...", "notebooks", len(names), "output", c.output)

	m := merge.New(c.source, merge.WithLogger(c.log.Handler()))

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := m.Add(name); err != nil {
			return nil, err
		}
	}

	counts := m.Counts()
	c.log.Info(fmt.Sprintf("Merged %d cells from %d notebooks", slice.Sum(counts), len(counts)), "cells", counts)

	return m, nil
}
