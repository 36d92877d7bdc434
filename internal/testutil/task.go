package testutil

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vk/taskgraph/internal/task"
)

// FakeTask is a configurable task.Task for scheduler tests. Fields must be set
// before the task is submitted.
type FakeTask struct {
	TaskKey  string
	Base     string
	TaskType string
	Ver      task.Version
	Forced   bool
	Deps     []task.Task
	Output   any
	Err      error
	Delay    time.Duration
	DepsErr  error
	Desc     string

	// OnProcess, when set, is called with the dependency results before the
	// task returns. Its error, if any, replaces Err.
	OnProcess func(deps task.Results) error

	processCalls atomic.Int32
	depsCalls    atomic.Int32

	mu       sync.Mutex
	received task.Results
	record   *ExecutionRecord
	probe    *ConcurrencyProbe
}

// NewFakeTask creates a task of type "test" whose key and base key are both baseKey.
func NewFakeTask(baseKey string, deps ...task.Task) *FakeTask {
	return &FakeTask{
		TaskKey:  baseKey,
		Base:     baseKey,
		TaskType: "test",
		Ver:      task.Version{Fingerprint: "v1"},
		Deps:     deps,
		Output:   baseKey + "-output",
	}
}

// WithKey overrides the instance key.
func (f *FakeTask) WithKey(key string) *FakeTask {
	f.TaskKey = key
	return f
}

// WithVersion overrides the version fingerprint.
func (f *FakeTask) WithVersion(fingerprint string) *FakeTask {
	f.Ver = task.Version{Fingerprint: fingerprint}
	return f
}

// WithError makes Process fail.
func (f *FakeTask) WithError(err error) *FakeTask {
	f.Err = err
	return f
}

// WithDelay makes Process sleep before returning.
func (f *FakeTask) WithDelay(d time.Duration) *FakeTask {
	f.Delay = d
	return f
}

// WithProbe reports the task's execution window to p.
func (f *FakeTask) WithProbe(p *ConcurrencyProbe) *FakeTask {
	f.probe = p
	return f
}

// Forcing sets the force flag.
func (f *FakeTask) Forcing() *FakeTask {
	f.Forced = true
	return f
}

func (f *FakeTask) Key() string           { return f.TaskKey }
func (f *FakeTask) BaseKey() string       { return f.Base }
func (f *FakeTask) Type() string          { return f.TaskType }
func (f *FakeTask) Version() task.Version { return f.Ver }
func (f *FakeTask) Force() bool           { return f.Forced }

func (f *FakeTask) Description() string {
	if f.Desc != "" {
		return f.Desc
	}
	return f.TaskType + " " + f.Base
}

func (f *FakeTask) Dependencies(context.Context) ([]task.Task, error) {
	f.depsCalls.Add(1)
	if f.DepsErr != nil {
		return nil, f.DepsErr
	}
	return f.Deps, nil
}

func (f *FakeTask) Process(ctx context.Context, deps task.Results) (any, error) {
	f.processCalls.Add(1)
	start := time.Now()
	if f.probe != nil {
		f.probe.Enter()
		defer f.probe.Leave()
	}

	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	f.received = deps
	f.record = &ExecutionRecord{Start: start, End: time.Now()}
	f.mu.Unlock()

	err := f.Err
	if f.OnProcess != nil {
		if hookErr := f.OnProcess(deps); hookErr != nil {
			err = hookErr
		}
	}
	if err != nil {
		return nil, err
	}
	return f.Output, nil
}

// ProcessCalls returns how many times Process ran.
func (f *FakeTask) ProcessCalls() int {
	return int(f.processCalls.Load())
}

// DependencyCalls returns how many times Dependencies ran.
func (f *FakeTask) DependencyCalls() int {
	return int(f.depsCalls.Load())
}

// Received returns the dependency results seen by the last Process call.
func (f *FakeTask) Received() task.Results {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.received
}

// Record returns the execution window of the last Process call.
func (f *FakeTask) Record() *ExecutionRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record
}
