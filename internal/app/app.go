package app

import (
	"io"
	"log/slog"
	"os"

	"github.com/specialistvlad/dwiflow/internal/config"
	"github.com/specialistvlad/dwiflow/internal/discovery"
	"github.com/specialistvlad/dwiflow/internal/hcl"
	"github.com/specialistvlad/dwiflow/internal/provenance"
	"github.com/specialistvlad/dwiflow/internal/runner"
	"github.com/spf13/afero"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config

	fs            afero.Fs
	runner        runner.Runner
	loader        config.Loader
	finder        discovery.Finder
	fingerprinter provenance.Fingerprinter
}

// Option replaces one of the App's collaborators, primarily for testing.
type Option func(*App)

// WithFs sets the filesystem every component reads and writes.
func WithFs(fs afero.Fs) Option {
	return func(a *App) { a.fs = fs }
}

// WithRunner sets the runner of external tools.
func WithRunner(r runner.Runner) Option {
	return func(a *App) { a.runner = r }
}

// WithLoader sets the parameter file loader.
func WithLoader(l config.Loader) Option {
	return func(a *App) { a.loader = l }
}

// WithFinder sets the raw input finder.
func WithFinder(f discovery.Finder) Option {
	return func(a *App) { a.finder = f }
}

// WithFingerprinter sets how the software environment is captured.
func WithFingerprinter(fp provenance.Fingerprinter) Option {
	return func(a *App) { a.fingerprinter = fp }
}

// NewApp is the constructor for the main application. Collaborators not
// set by opts default to the OS filesystem, real subprocesses, the HCL
// loader, glob discovery and the command based fingerprinter.
func NewApp(outW io.Writer, cfg *Config, opts ...Option) *App {
	a := &App{
		outW:   outW,
		logger: newLogger(cfg.LogLevel, cfg.LogFormat, outW),
		config: cfg,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.fs == nil {
		a.fs = afero.NewOsFs()
	}
	if a.runner == nil {
		a.runner = runner.NewExec(outW, outW)
	}
	if a.loader == nil {
		a.loader = hcl.NewLoader(a.fs)
	}
	if a.finder == nil {
		a.finder = discovery.NewGlobFinder(a.fs)
	}
	a.logger.Debug("Logger configured successfully.")
	return a
}

// fingerprinterFor returns the configured fingerprinter, or one running the
// environment commands of params.
func (a *App) fingerprinterFor(params config.Environment) provenance.Fingerprinter {
	if a.fingerprinter != nil {
		return a.fingerprinter
	}
	return provenance.NewCommandFingerprinter(a.fs, a.runner, params, os.Getpid())
}
