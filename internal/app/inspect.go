package app

import (
	"context"
	"fmt"

	"github.com/vk/taskgraph/internal/ctxlog"
	"github.com/vk/taskgraph/internal/event"
	"github.com/vk/taskgraph/internal/nodestore"
	"gopkg.in/yaml.v3"
)

// Inspection is the YAML document printed by Inspect.
type Inspection struct {
	Order   []string             `yaml:"order"`
	Tasks   []Declared           `yaml:"tasks"`
	Pending []nodestore.NodeInfo `yaml:"pending"`
}

// Declared describes one task of the plan as written in its taskfile.
type Declared struct {
	BaseKey     string   `yaml:"baseKey"`
	Description string   `yaml:"description,omitempty"`
	Command     string   `yaml:"command"`
	Dir         string   `yaml:"dir,omitempty"`
	DependsOn   []string `yaml:"dependsOn,omitempty"`
	// RequiredBy counts every declared task, selected or not.
	RequiredBy []string `yaml:"requiredBy,omitempty"`
	Version    string   `yaml:"version"`
	Source     string   `yaml:"source,omitempty"`
}

// Inspect registers the selected tasks without processing them and prints
// the resulting graph as YAML.
func (app *App) Inspect(ctx context.Context) (*Inspection, error) {
	ctx = ctxlog.WithLogger(ctx, app.logger)
	app.ctx = ctx

	p, err := app.buildPlan(ctx)
	if err != nil {
		return nil, err
	}

	sched := app.newScheduler(event.Discard)
	defer func() { _ = sched.Close() }()

	// Submitted one by one so the pending list comes out in target order.
	for _, t := range p.targets {
		if err := sched.AddTask(ctx, t); err != nil {
			return nil, fmt.Errorf("failed to submit %s: %w", t.BaseKey(), err)
		}
	}
	pending, err := sched.Inspect(ctx)
	if err != nil {
		return nil, err
	}

	inspection := &Inspection{Pending: pending}
	for _, t := range p.closure {
		inspection.Order = append(inspection.Order, t.BaseKey())

		def := t.Definition()
		requiredBy, err := p.catalog.RequiredBy(t.BaseKey())
		if err != nil {
			return nil, err
		}
		inspection.Tasks = append(inspection.Tasks, Declared{
			BaseKey:     t.BaseKey(),
			Description: def.Description,
			Command:     def.Command,
			Dir:         def.Dir,
			DependsOn:   def.DependsOn,
			RequiredBy:  requiredBy,
			Version:     t.Version().String(),
			Source:      def.SourceFile,
		})
	}
	out, err := yaml.Marshal(inspection)
	if err != nil {
		return nil, fmt.Errorf("failed to encode inspection: %w", err)
	}
	if _, err := app.outW.Write(out); err != nil {
		return nil, err
	}
	return inspection, nil
}
