package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/taskgraph/internal/config"
	"github.com/vk/taskgraph/internal/ctxlog"
	"github.com/vk/taskgraph/internal/event"
	"github.com/vk/taskgraph/internal/tasks"
)

// Version is reported in traces.
const Version = "dev"

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx        context.Context
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	loader     config.Loader
	runner     tasks.Runner
	sinks      []event.Sink
	httpServer *http.Server
}

// Option customizes an App.
type Option func(*App)

// WithRunner replaces the shell runner executing task commands.
func WithRunner(r tasks.Runner) Option {
	return func(a *App) { a.runner = r }
}

// WithEventSink adds a sink receiving every scheduler event.
func WithEventSink(s event.Sink) Option {
	return func(a *App) { a.sinks = append(a.sinks, s) }
}

// NewApp creates an App with its own logger writing to outW.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, opts ...Option) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	a := &App{
		ctx:    ctxlog.WithLogger(context.Background(), logger),
		outW:   outW,
		logger: logger,
		config: cfg,
		loader: loader,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.runner == nil {
		a.runner = tasks.NewShellRunner()
	}
	logger.Debug("Logger configured successfully.")
	return a
}
