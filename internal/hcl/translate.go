package hcl

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/viant/afs/url"
	"github.com/vk/taskgraph/internal/config"
	"github.com/vk/taskgraph/internal/fsutil"
)

// translateTask converts a decoded block into the format-agnostic model.
// Relative dir and source paths are resolved against the taskfile's
// directory.
func translateTask(fileURL string, b *taskBlock) (*config.TaskDef, error) {
	base := fsutil.Dir(fileURL)
	def := &config.TaskDef{
		Type:        b.Type,
		Name:        b.Name,
		Description: b.Type + " " + b.Name,
		Command:     b.Command,
		Dir:         base,
		DependsOn:   b.DependsOn,
		Env:         b.Env,
		SourceFile:  fileURL,
	}
	if b.Description != nil {
		def.Description = *b.Description
	}
	if b.Dir != nil {
		def.Dir = resolve(base, *b.Dir)
	}
	for _, src := range b.Sources {
		def.Sources = append(def.Sources, resolve(base, src))
	}
	if b.Version != nil {
		def.Version = *b.Version
	}
	if b.Dirty != nil {
		def.Dirty = *b.Dirty
	}
	if b.Force != nil {
		def.Force = *b.Force
	}
	if b.Timeout != nil {
		d, err := time.ParseDuration(*b.Timeout)
		if err != nil {
			return nil, fmt.Errorf("task %s: invalid timeout %q: %w", def.BaseKey(), *b.Timeout, err)
		}
		def.Timeout = d
	}
	return def, nil
}

func resolve(base, location string) string {
	if strings.Contains(location, "://") || path.IsAbs(location) {
		return location
	}
	return url.Join(base, location)
}
