package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/modernice/nbcat"
	"github.com/modernice/nbcat/internal"
)

// CLI concatenates the time series notebooks into the summary notebook. It
// takes no arguments; the flags only control where and how it runs.
type CLI struct {
	Dir     string `name:"dir" default:"." env:"NBCAT_DIR" help:"Directory that contains the notebooks."`
	DryRun  bool   `name:"dry" default:"false" env:"NBCAT_DRY_RUN" help:"Print the summary notebook instead of writing it."`
	Verbose bool   `name:"verbose" short:"v" env:"NBCAT_VERBOSE" help:"Enable verbose logging."`

	stdout io.Writer `kong:"-"`
}

// Run concatenates [nbcat.Sources] into [nbcat.Output] within the configured
// directory. Load and write errors are returned as is.
func (cfg *CLI) Run(kctx *kong.Context) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	return cfg.run(ctx)
}

func (cfg *CLI) run(ctx context.Context) error {
	out := cfg.stdout
	if out == nil {
		out = os.Stdout
	}

	root := cfg.Dir
	if !filepath.IsAbs(root) {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
		root = filepath.Join(wd, root)
	}

	// Logs go to stderr during a dry run so that stdout only carries the notebook.
	logOut := out
	if cfg.DryRun {
		logOut = os.Stderr
	}
	logHandler := internal.TextHandler(logOut, cfg.Verbose)

	c := nbcat.New(root, nbcat.WithLogger(logHandler))

	if cfg.DryRun {
		b, err := c.DryRun(ctx, nbcat.Sources)
		if err != nil {
			return err
		}
		_, err = out.Write(b)
		return err
	}

	return c.Concatenate(ctx, nbcat.Sources)
}

// New parses the command-line arguments of the nbcat command.
func New() *kong.Context {
	var cfg CLI
	return kong.Parse(
		&cfg,
		kong.Name("nbcat"),
		kong.Description(fmt.Sprintf("Concatenates the time series notebooks into %s.", nbcat.Output)),
	)
}
