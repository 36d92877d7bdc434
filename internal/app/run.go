package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/taskgraph/internal/ctxlog"
	"github.com/vk/taskgraph/internal/event"
	"github.com/vk/taskgraph/internal/event/socketio"
	"github.com/vk/taskgraph/internal/logentry"
	"github.com/vk/taskgraph/internal/scheduler"
	"github.com/vk/taskgraph/internal/tasks"
	"github.com/vk/taskgraph/internal/tracing"
	"golang.org/x/sync/errgroup"
)

// ErrTasksFailed is returned by Run when at least one task failed.
var ErrTasksFailed = errors.New("tasks failed")

// Run loads the taskfiles, runs the selected tasks and prints a summary.
// Task failures are reported through ErrTasksFailed after every runnable task
// has been processed.
func (app *App) Run(ctx context.Context) (*Summary, error) {
	ctx = ctxlog.WithLogger(ctx, app.logger)
	app.ctx = ctx
	app.logger.Debug("App.Run method started.")

	if err := app.healthCheckServer(); err != nil {
		return nil, err
	}
	defer func() { _ = app.closeHealthCheckServer() }()

	if app.config.TraceFile != "" {
		if err := tracing.Init("taskgraph", Version, app.config.TraceFile); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
		defer func() { _ = tracing.Shutdown(context.Background()) }()
	}

	p, err := app.buildPlan(ctx)
	if err != nil {
		return nil, err
	}

	bus, closeBus, err := app.eventBus(ctx)
	if err != nil {
		return nil, err
	}
	defer closeBus()

	sched := app.newScheduler(bus)
	defer func() { _ = sched.Close() }()

	if err := submit(ctx, sched, p.targets); err != nil {
		return nil, err
	}
	pending, err := sched.Inspect(ctx)
	if err != nil {
		return nil, err
	}
	registered := make(map[string]bool, len(pending))
	for _, n := range pending {
		registered[n.BaseKey] = true
	}

	app.logger.Info("🚀 Processing tasks.", "tasks", len(pending), "concurrency", sched.Concurrency())
	results, err := sched.ProcessTasks(ctx)
	summary := newSummary(p.closure, registered, results)
	summary.Print(app.outW)
	if err != nil {
		return summary, fmt.Errorf("run aborted: %w", err)
	}
	app.logger.Info("🏁 Processing finished.", "succeeded", summary.Count(StatusSucceeded), "failed", summary.Count(StatusFailed))

	if n := summary.Count(StatusFailed); n > 0 {
		return summary, fmt.Errorf("%w: %d of %d", ErrTasksFailed, n, len(summary.Entries))
	}
	return summary, nil
}

func (app *App) newScheduler(sink event.Sink) *scheduler.Scheduler {
	return scheduler.New(
		scheduler.WithConcurrency(app.config.Concurrency),
		scheduler.WithLogger(logentry.NewSlog(app.logger)),
		scheduler.WithEvents(sink),
	)
}

// eventBus fans scheduler events out to the debug log, the dashboard when
// configured, and any sink passed as an option.
func (app *App) eventBus(ctx context.Context) (*event.Bus, func(), error) {
	bus := event.NewBus(&event.LogSink{Logger: app.logger})
	for _, s := range app.sinks {
		bus.Subscribe(s)
	}
	if app.config.DashboardURL == "" {
		return bus, func() {}, nil
	}

	dashboard, err := socketio.Dial(ctx, app.config.DashboardURL, socketio.Options{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to dashboard: %w", err)
	}
	bus.Subscribe(dashboard)
	return bus, func() { _ = dashboard.Close() }, nil
}

// submit registers the targets concurrently. The scheduler serializes the
// registrations itself.
func submit(ctx context.Context, sched *scheduler.Scheduler, targets []*tasks.CommandTask) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, t := range targets {
		g.Go(func() error {
			if err := sched.AddTask(gctx, t); err != nil {
				return fmt.Errorf("failed to submit %s: %w", t.BaseKey(), err)
			}
			return nil
		})
	}
	return g.Wait()
}
