package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/viant/afs"
	"github.com/vk/taskgraph/internal/config"
	"github.com/vk/taskgraph/internal/dag"
	"github.com/vk/taskgraph/internal/task"
)

// Catalog turns taskfile declarations into task instances. It hands out a
// single instance per base key, so the instance keys a scheduler sees for one
// catalog are stable.
type Catalog struct {
	model  *config.Model
	graph  *dag.Graph
	fs     afs.Service
	runner Runner
	force  bool
	now    func() time.Time
	newID  func() string

	mu        sync.Mutex
	instances map[string]*CommandTask
}

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

// WithRunner sets how commands are executed.
func WithRunner(r Runner) CatalogOption {
	return func(c *Catalog) { c.runner = r }
}

// WithFS sets the file system sources are read from.
func WithFS(fs afs.Service) CatalogOption {
	return func(c *Catalog) { c.fs = fs }
}

// WithForce forces every task to be processed.
func WithForce(force bool) CatalogOption {
	return func(c *Catalog) { c.force = force }
}

// WithClock sets the clock stamping dirty versions.
func WithClock(now func() time.Time) CatalogOption {
	return func(c *Catalog) { c.now = now }
}

// WithIDs sets the generator of instance key suffixes.
func WithIDs(newID func() string) CatalogOption {
	return func(c *Catalog) { c.newID = newID }
}

// NewCatalog validates model and returns a catalog for it. Dependencies on
// undeclared tasks and dependency cycles are rejected.
func NewCatalog(model *config.Model, opts ...CatalogOption) (*Catalog, error) {
	c := &Catalog{
		model:     model,
		graph:     dag.New(),
		instances: make(map[string]*CommandTask),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.fs == nil {
		c.fs = afs.New()
	}
	if c.runner == nil {
		c.runner = NewShellRunner()
	}

	for _, def := range model.Tasks {
		if def.Type == "" || def.Name == "" {
			return nil, &task.DefinitionError{Key: def.BaseKey(), Type: def.Type, Msg: "tasks must define a type and a name"}
		}
		c.graph.AddNode(def.BaseKey())
	}
	for _, def := range model.Tasks {
		for _, dep := range def.DependsOn {
			if err := c.graph.AddEdge(dep, def.BaseKey()); err != nil {
				return nil, fmt.Errorf("%w: %w", task.ErrDefinition, err)
			}
		}
	}
	if err := c.graph.DetectCycles(); err != nil {
		return nil, fmt.Errorf("%w: %w", task.ErrDefinition, err)
	}
	return c, nil
}

// BaseKeys returns every declared base key in declaration order.
func (c *Catalog) BaseKeys() []string {
	keys := make([]string, 0, len(c.model.Tasks))
	for _, def := range c.model.Tasks {
		keys = append(keys, def.BaseKey())
	}
	return keys
}

// Order returns every declared base key after its dependencies.
func (c *Catalog) Order() ([]string, error) {
	return c.graph.TopologicalOrder()
}

// RequiredBy returns the sorted base keys declaring a direct dependency on
// baseKey.
func (c *Catalog) RequiredBy(baseKey string) ([]string, error) {
	return c.graph.Dependents(baseKey)
}

// Task returns the instance for baseKey, creating it on first use.
func (c *Catalog) Task(ctx context.Context, baseKey string) (*CommandTask, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.instances[baseKey]; ok {
		return t, nil
	}
	def, ok := c.model.Find(baseKey)
	if !ok {
		return nil, fmt.Errorf("%w: unknown task %q", task.ErrDefinition, baseKey)
	}
	fp, err := fingerprint(ctx, c.fs, def)
	if err != nil {
		return nil, err
	}
	version := task.Version{Fingerprint: fp}
	if def.Dirty {
		version.DirtyTimestamp = c.now().Unix()
	}
	t := &CommandTask{
		def:     def,
		key:     baseKey + "." + c.newID(),
		version: version,
		force:   c.force || def.Force,
		catalog: c,
	}
	c.instances[baseKey] = t
	return t, nil
}

// Tasks returns the instances for baseKeys, in order.
func (c *Catalog) Tasks(ctx context.Context, baseKeys ...string) ([]*CommandTask, error) {
	out := make([]*CommandTask, 0, len(baseKeys))
	for _, baseKey := range baseKeys {
		t, err := c.Task(ctx, baseKey)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Closure returns the instances for baseKeys and everything they depend on,
// dependencies first.
func (c *Catalog) Closure(ctx context.Context, baseKeys ...string) ([]*CommandTask, error) {
	wanted := make(map[string]bool)
	var mark func(baseKey string) error
	mark = func(baseKey string) error {
		if wanted[baseKey] {
			return nil
		}
		if !c.graph.Has(baseKey) {
			return fmt.Errorf("%w: unknown task %q", task.ErrDefinition, baseKey)
		}
		wanted[baseKey] = true
		deps, err := c.graph.Dependencies(baseKey)
		if err != nil {
			return err
		}
		for _, dep := range deps {
			if err := mark(dep); err != nil {
				return err
			}
		}
		return nil
	}
	for _, baseKey := range baseKeys {
		if err := mark(baseKey); err != nil {
			return nil, err
		}
	}

	order, err := c.Order()
	if err != nil {
		return nil, err
	}
	var selected []string
	for _, baseKey := range order {
		if wanted[baseKey] {
			selected = append(selected, baseKey)
		}
	}
	return c.Tasks(ctx, selected...)
}
