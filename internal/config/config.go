// Package config defines the format-agnostic model of a taskfile and the
// Loader interface that concrete formats implement.
package config

import (
	"context"
	"time"
)

// Loader reads taskfiles into a Model.
type Loader interface {
	// Load reads every taskfile found under paths. A path may name a file or
	// a directory; missing paths are skipped.
	Load(ctx context.Context, paths ...string) (*Model, error)
}

// Model is everything declared across the loaded taskfiles, in declaration
// order.
type Model struct {
	Tasks []*TaskDef
}

// Find returns the task declared under baseKey.
func (m *Model) Find(baseKey string) (*TaskDef, bool) {
	for _, def := range m.Tasks {
		if def.BaseKey() == baseKey {
			return def, true
		}
	}
	return nil, false
}

// TaskDef is one declared task.
type TaskDef struct {
	Type        string
	Name        string
	Description string
	// Command is run through a shell.
	Command string
	// Dir is the working directory of Command. Relative to the taskfile.
	Dir string
	// DependsOn lists the base keys of the tasks this one depends on.
	DependsOn []string
	// Sources are files whose contents feed the version fingerprint.
	Sources []string
	// Version, when set, is used verbatim as the fingerprint.
	Version string
	// Dirty marks the task's sources as carrying uncommitted changes.
	Dirty   bool
	Force   bool
	Timeout time.Duration
	Env     map[string]string

	// SourceFile is the URL of the taskfile declaring the task.
	SourceFile string
}

// BaseKey is "<type>.<name>".
func (d *TaskDef) BaseKey() string {
	return d.Type + "." + d.Name
}
