package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/viant/afs"
	"github.com/vk/taskgraph/internal/config"
	"github.com/vk/taskgraph/internal/ctxlog"
	"github.com/vk/taskgraph/internal/fsutil"
)

// Extension is the suffix of taskfiles.
const Extension = ".hcl"

// Loader is the HCL implementation of config.Loader.
type Loader struct {
	fs  afs.Service
	env map[string]string
}

var _ config.Loader = (*Loader)(nil)

// Option configures a Loader.
type Option func(*Loader)

// WithFS reads taskfiles through fs instead of a default afs service.
func WithFS(fs afs.Service) Option {
	return func(l *Loader) { l.fs = fs }
}

// WithEnv replaces the process environment exposed to expressions.
func WithEnv(env map[string]string) Option {
	return func(l *Loader) { l.env = env }
}

// NewLoader creates an HCL taskfile loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	if l.fs == nil {
		l.fs = afs.New()
	}
	if l.env == nil {
		l.env = environ()
	}
	return l
}

// Load parses every taskfile found under paths, in path order and then file
// name order. Declaring the same task twice is an error.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := l.findTaskfiles(ctx, paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered taskfiles.", "count", len(files))

	model := &config.Model{}
	declared := make(map[string]string)
	parser := hclparse.NewParser()
	evalCtx := newEvalContext(l.env)

	for _, fileURL := range files {
		data, err := l.fs.DownloadWithURL(ctx, fileURL)
		if err != nil {
			return nil, fmt.Errorf("failed to read taskfile %s: %w", fileURL, err)
		}
		file, diags := parser.ParseHCL(data, fileURL)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse taskfile %s: %w", fileURL, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(file.Body, evalCtx, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode taskfile %s: %w", fileURL, diags)
		}

		for _, block := range root.Tasks {
			def, err := translateTask(fileURL, block)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", fileURL, err)
			}
			if first, ok := declared[def.BaseKey()]; ok {
				return nil, fmt.Errorf("task %s declared in %s is already declared in %s", def.BaseKey(), fileURL, first)
			}
			declared[def.BaseKey()] = fileURL
			model.Tasks = append(model.Tasks, def)
		}
	}

	logger.Debug("HCL loading complete.", "tasks", len(model.Tasks))
	return model, nil
}

func (l *Loader) findTaskfiles(ctx context.Context, paths []string) ([]string, error) {
	var all []string
	seen := make(map[string]struct{})
	for _, p := range paths {
		files, err := fsutil.FindFilesByExtension(ctx, l.fs, p, Extension)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			all = append(all, f)
		}
	}
	return all, nil
}
