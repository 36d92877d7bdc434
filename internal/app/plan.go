package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/taskgraph/internal/ctxlog"
	"github.com/vk/taskgraph/internal/tasks"
)

// plan is what a run or an inspection works on: the selected targets and
// their dependency closure, dependencies first.
type plan struct {
	catalog *tasks.Catalog
	targets []*tasks.CommandTask
	closure []*tasks.CommandTask
}

// DirtyError reports dirty tasks submitted without AllowDirty.
type DirtyError struct {
	BaseKeys []string
}

func (e *DirtyError) Error() string {
	return fmt.Sprintf("refusing to run tasks with uncommitted changes: %s (use --allow-dirty to override)",
		strings.Join(e.BaseKeys, ", "))
}

func (app *App) buildPlan(ctx context.Context) (*plan, error) {
	logger := ctxlog.FromContext(ctx)

	model, err := app.loader.Load(ctx, app.config.TaskfilePaths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load taskfiles: %w", err)
	}
	catalog, err := tasks.NewCatalog(model,
		tasks.WithRunner(app.runner),
		tasks.WithForce(app.config.Force),
	)
	if err != nil {
		return nil, err
	}

	targets := app.config.Targets
	if len(targets) == 0 {
		targets = catalog.BaseKeys()
	}
	closure, err := catalog.Closure(ctx, targets...)
	if err != nil {
		return nil, err
	}
	selected, err := catalog.Tasks(ctx, targets...)
	if err != nil {
		return nil, err
	}
	logger.Debug("Plan built.", "targets", len(selected), "tasks", len(closure))

	if !app.config.AllowDirty {
		var dirty []string
		for _, t := range closure {
			if t.Version().Dirty() {
				dirty = append(dirty, t.BaseKey())
			}
		}
		if len(dirty) > 0 {
			return nil, &DirtyError{BaseKeys: dirty}
		}
	}
	return &plan{catalog: catalog, targets: selected, closure: closure}, nil
}
