// Package task defines the capability set the scheduler consumes from concrete
// task kinds (build, push, deploy, shell commands) and the records it produces
// for them.
package task

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// Task is one unit of schedulable work.
//
// A task instance is identified by its Key. Several instances may share a
// BaseKey when they represent the same conceptual work (a retry or a new
// version of it); results are cached and dependants are resolved by BaseKey.
type Task interface {
	// Key is globally unique per instance.
	Key() string
	// BaseKey is the identity shared by all instances of the same work.
	BaseKey() string
	// Type is a short tag such as "build" or "deploy".
	Type() string
	// Version fingerprints the inputs of the task.
	Version() Version
	// Force requests processing even when a cached result is valid.
	Force() bool
	// Description is a human-readable label for logs.
	Description() string

	// Dependencies returns the tasks this task depends on. For a given
	// instance it must always return tasks with the same base keys.
	Dependencies(ctx context.Context) ([]Task, error)
	// Process does the work, given the results of the dependencies keyed by
	// base key, and returns the task's output.
	Process(ctx context.Context, deps Results) (any, error)
}

// Version is the content fingerprint of a task plus an optional dirty marker.
type Version struct {
	Fingerprint string
	// DirtyTimestamp is non-zero when the sources carry uncommitted changes.
	DirtyTimestamp int64
}

// Dirty reports whether the version was computed from uncommitted sources.
func (v Version) Dirty() bool {
	return v.DirtyTimestamp != 0
}

// String is the version string used to validate cache hits.
func (v Version) String() string {
	if v.Dirty() {
		return v.Fingerprint + "-" + strconv.FormatInt(v.DirtyTimestamp, 10)
	}
	return v.Fingerprint
}

// Result is the record of one processed task.
type Result struct {
	Type              string
	Description       string
	Output            any
	DependencyResults Results
	Err               error
}

// Failed reports whether the result carries an error.
func (r *Result) Failed() bool {
	return r != nil && r.Err != nil
}

// Results maps base keys to results. When several tasks with the same base key
// are processed in one run, the last one wins.
type Results map[string]*Result

// Pick returns the subset of r whose keys are listed in baseKeys.
func (r Results) Pick(baseKeys []string) Results {
	picked := make(Results)
	for _, baseKey := range baseKeys {
		if res, ok := r[baseKey]; ok {
			picked[baseKey] = res
		}
	}
	return picked
}

// Merge copies every entry of other into r, overriding existing ones.
func (r Results) Merge(other Results) Results {
	for baseKey, res := range other {
		r[baseKey] = res
	}
	return r
}

// ErrDefinition is the kind of every DefinitionError.
var ErrDefinition = errors.New("invalid task definition")

// DefinitionError reports a task that cannot be scheduled at all.
type DefinitionError struct {
	Key  string
	Type string
	Msg  string
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("%s: %s (key=%q, type=%q)", ErrDefinition, e.Msg, e.Key, e.Type)
}

func (e *DefinitionError) Unwrap() error { return ErrDefinition }

// Validate checks the parts of a task the scheduler cannot work without.
func Validate(t Task) error {
	if t == nil {
		return &DefinitionError{Msg: "nil task"}
	}
	key, typ := t.Key(), t.Type()
	if key == "" || typ == "" {
		return &DefinitionError{Key: key, Type: typ, Msg: "tasks must define a type and a key"}
	}
	return nil
}

// BaseKeys maps tasks to their base keys, preserving order.
func BaseKeys(tasks []Task) []string {
	keys := make([]string, 0, len(tasks))
	for _, t := range tasks {
		keys = append(keys, t.BaseKey())
	}
	return keys
}
