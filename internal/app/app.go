// Package app assembles the application: an isolated logger, the stage
// registry and the pipeline run loop behind the run command.
package app

import (
	"io"
	"log/slog"

	"github.com/Kaustubhraj123/hiperseis/internal/registry"
	"github.com/Kaustubhraj123/hiperseis/internal/stage"
)

// Options configures a new App instance.
type Options struct {
	// LogLevel is one of debug, info, warn or error. Unknown values fall
	// back to info.
	LogLevel string
	// LogFormat is text or json.
	LogFormat string
}

// App carries the dependencies shared by every command.
type App struct {
	out      io.Writer
	logger   *slog.Logger
	registry *registry.Registry
}

// New builds an App writing logs to out, with every stage runner
// registered.
func New(out io.Writer, opts Options) *App {
	logger := newLogger(opts.LogLevel, opts.LogFormat, out)
	logger.Debug("Logger configured.")

	reg := registry.New()
	stage.Register(reg)
	logger.Debug("Stage runners registered.", "kinds", reg.Kinds())

	return &App{out: out, logger: logger, registry: reg}
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Registry returns the stage registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}
