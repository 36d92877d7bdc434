// Package event carries scheduler notifications to external consumers such as
// dashboards and log sinks.
package event

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vk/taskgraph/internal/task"
)

// Names of the events the scheduler emits.
const (
	NameTaskPending  = "taskPending"
	NameTaskComplete = "taskComplete"
	NameTaskError    = "taskError"
)

// Event is implemented by every notification.
type Event interface {
	Name() string
}

// TaskPending is emitted when a task is submitted.
type TaskPending struct {
	AddedAt time.Time
	Key     string
	Version task.Version
}

func (TaskPending) Name() string { return NameTaskPending }

// TaskComplete is emitted when a task processed successfully.
type TaskComplete struct {
	BaseKey string
	Result  *task.Result
}

func (TaskComplete) Name() string { return NameTaskComplete }

// TaskError is emitted when a task failed.
type TaskError struct {
	BaseKey string
	Result  *task.Result
}

func (TaskError) Name() string { return NameTaskError }

// Sink consumes events. Emit must not block for long, it is called from the
// scheduler's coordinator.
type Sink interface {
	Emit(ctx context.Context, ev Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event)

func (f SinkFunc) Emit(ctx context.Context, ev Event) { f(ctx, ev) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(context.Context, Event) {})

// Bus fans events out to several sinks in order.
type Bus struct {
	mu    sync.RWMutex
	sinks []Sink
}

// NewBus creates a bus delivering to sinks.
func NewBus(sinks ...Sink) *Bus {
	return &Bus{sinks: sinks}
}

// Subscribe adds a sink.
func (b *Bus) Subscribe(s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, s)
}

// Emit delivers ev to every sink.
func (b *Bus) Emit(ctx context.Context, ev Event) {
	b.mu.RLock()
	sinks := b.sinks
	b.mu.RUnlock()
	for _, s := range sinks {
		s.Emit(ctx, ev)
	}
}

// LogSink writes every event to a slog.Logger at debug level.
type LogSink struct {
	Logger *slog.Logger
}

func (s *LogSink) Emit(ctx context.Context, ev Event) {
	switch e := ev.(type) {
	case TaskPending:
		s.Logger.DebugContext(ctx, "Task pending.", "event", e.Name(), "key", e.Key, "version", e.Version.String())
	case TaskComplete:
		s.Logger.DebugContext(ctx, "Task complete.", "event", e.Name(), "baseKey", e.BaseKey, "description", e.Result.Description)
	case TaskError:
		s.Logger.DebugContext(ctx, "Task error.", "event", e.Name(), "baseKey", e.BaseKey, "error", e.Result.Err)
	default:
		s.Logger.DebugContext(ctx, "Event.", "event", ev.Name())
	}
}

// Recorder keeps every event it receives, for tests and summaries.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Names returns the names of the recorded events, in order.
func (r *Recorder) Names() []string {
	var names []string
	for _, ev := range r.Events() {
		names = append(names, ev.Name())
	}
	return names
}
