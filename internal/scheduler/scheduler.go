// Package scheduler runs tasks in dependency order with bounded concurrency.
//
// Tasks are submitted with AddTask, which registers the task and, recursively,
// the tasks it depends on. ProcessTasks then runs everything registered until
// the graph is empty, returning one result per base key. Successful results
// are cached per base key and version so later runs can skip work that is
// already done.
//
// # Concurrency model
//
// All graph state is owned by a single coordinator goroutine. Public calls are
// commands sent to that goroutine over one channel and are executed strictly
// one after another, so registrations and runs never interleave.
//
// While a run is in progress the coordinator launches up to Concurrency task
// goroutines. Each goroutine asks the coordinator for its dependency results,
// processes its task and reports back; the coordinator applies the completion
// (result, cache, cancellation of dependants, removal, rebuild) and refills
// the freed slot immediately.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vk/taskgraph/internal/event"
	"github.com/vk/taskgraph/internal/logentry"
	"github.com/vk/taskgraph/internal/node"
	"github.com/vk/taskgraph/internal/nodestore"
	"github.com/vk/taskgraph/internal/resultcache"
	"github.com/vk/taskgraph/internal/task"
)

// DefaultConcurrency is the number of tasks processed at once unless
// configured otherwise.
const DefaultConcurrency = 4

var (
	// ErrInconsistentGraph reports a violated graph invariant. It is a defect,
	// not a task failure, and aborts the run.
	ErrInconsistentGraph = errors.New("task graph is inconsistent")
	// ErrDependencyCycle reports pending tasks that can never become ready.
	ErrDependencyCycle = errors.New("dependency cycle detected")
	// ErrClosed is returned for commands submitted after Close.
	ErrClosed = errors.New("scheduler is closed")
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithConcurrency sets how many tasks may be processed at once. Values below
// one select DefaultConcurrency.
func WithConcurrency(n int) Option {
	return func(s *Scheduler) {
		if n < 1 {
			n = DefaultConcurrency
		}
		s.concurrency = n
	}
}

// WithLogger sets the progress logger.
func WithLogger(l logentry.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

// WithEvents sets the sink receiving task notifications.
func WithEvents(sink event.Sink) Option {
	return func(s *Scheduler) {
		if sink != nil {
			s.events = sink
		}
	}
}

// WithClock overrides the clock used to stamp pending events.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// Scheduler owns the dependency graph, the result cache and the command
// queue serializing access to them.
type Scheduler struct {
	concurrency int
	log         logentry.Logger
	events      event.Sink
	now         func() time.Time

	// Graph state, owned by the coordinator goroutine.
	index      *nodestore.Map
	roots      *nodestore.Map
	inProgress *nodestore.Map
	// depCache holds, per task key, the base keys of the task's dependencies
	// as reported when the task was registered.
	depCache map[string][]string
	cache    *resultcache.Cache

	logEntries      map[string]logentry.Handle
	counterEntry    logentry.Handle
	inProgressEntry logentry.Handle

	// beforeRetire, when set, runs on the coordinator just before a processed
	// node is retired. Tests use it to corrupt the graph mid-run.
	beforeRetire func(n *node.Node)

	commands  chan command
	quit      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

type command struct {
	ctx  context.Context
	fn   func(ctx context.Context)
	done chan struct{}
}

// New creates a scheduler and starts its coordinator. Call Close to stop it.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		concurrency: DefaultConcurrency,
		log:         logentry.Nop(),
		events:      event.Discard,
		now:         time.Now,
		index:       nodestore.New(),
		roots:       nodestore.New(),
		inProgress:  nodestore.New(),
		depCache:    make(map[string][]string),
		cache:       resultcache.New(),
		logEntries:  make(map[string]logentry.Handle),
		commands:    make(chan command),
		quit:        make(chan struct{}),
		stopped:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.coordinate()
	return s
}

// Concurrency returns the configured concurrency limit.
func (s *Scheduler) Concurrency() int {
	return s.concurrency
}

// AddTask registers t and every task it transitively depends on. A task
// lacking a key or type is rejected with a task.DefinitionError before
// anything is queued. When registration fails part way, the nodes created by
// this call are removed again.
func (s *Scheduler) AddTask(ctx context.Context, t task.Task) error {
	if err := task.Validate(t); err != nil {
		return err
	}
	var err error
	if submitErr := s.submit(ctx, func(ctx context.Context) {
		err = s.addTask(ctx, t)
	}); submitErr != nil {
		return submitErr
	}
	return err
}

// ProcessTasks runs every registered task to completion and returns the
// results keyed by base key. Task failures are reported inside the results;
// the returned error is reserved for defects such as ErrInconsistentGraph
// and ErrDependencyCycle.
func (s *Scheduler) ProcessTasks(ctx context.Context) (task.Results, error) {
	var (
		results task.Results
		err     error
	)
	if submitErr := s.submit(ctx, func(ctx context.Context) {
		results, err = s.processTasks(ctx)
	}); submitErr != nil {
		return nil, submitErr
	}
	return results, err
}

// Inspect returns a snapshot of the pending graph.
func (s *Scheduler) Inspect(ctx context.Context) ([]nodestore.NodeInfo, error) {
	var info []nodestore.NodeInfo
	if err := s.submit(ctx, func(context.Context) {
		info = s.index.Inspect()
	}); err != nil {
		return nil, err
	}
	return info, nil
}

// Close stops the coordinator after the command in progress, if any, has
// finished. It is safe to call more than once.
func (s *Scheduler) Close() error {
	s.closeOnce.Do(func() {
		close(s.quit)
	})
	<-s.stopped
	return nil
}

// submit queues fn and waits until the coordinator has run it. ctx bounds
// only the wait for a queue slot; an accepted command always runs to the end.
func (s *Scheduler) submit(ctx context.Context, fn func(ctx context.Context)) error {
	cmd := command{ctx: ctx, fn: fn, done: make(chan struct{})}
	select {
	case <-s.quit:
		return ErrClosed
	default:
	}
	select {
	case s.commands <- cmd:
	case <-s.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-cmd.done
	return nil
}

// coordinate is the single consumer of the command queue.
func (s *Scheduler) coordinate() {
	defer close(s.stopped)
	for {
		select {
		case cmd := <-s.commands:
			cmd.fn(cmd.ctx)
			close(cmd.done)
		case <-s.quit:
			return
		}
	}
}
