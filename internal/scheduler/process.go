package scheduler

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/vk/taskgraph/internal/ctxlog"
	"github.com/vk/taskgraph/internal/event"
	"github.com/vk/taskgraph/internal/node"
	"github.com/vk/taskgraph/internal/task"
	"github.com/vk/taskgraph/internal/tracing"
)

// run is the state of one ProcessTasks call.
type run struct {
	id          string
	results     task.Results
	lookups     chan lookup
	completions chan completion
	// abort is closed when the run ends so that stray workers never block.
	abort chan struct{}
}

// lookup is a worker's request for the results of its dependencies.
type lookup struct {
	baseKeys []string
	reply    chan task.Results
}

// completion is what a worker reports after processing its node.
type completion struct {
	node       *node.Node
	depResults task.Results
	output     any
	err        error
}

func (s *Scheduler) processTasks(ctx context.Context) (_ task.Results, err error) {
	r := &run{
		id:          uuid.NewString(),
		results:     make(task.Results),
		lookups:     make(chan lookup),
		completions: make(chan completion),
		abort:       make(chan struct{}),
	}
	ctx = ctxlog.With(ctx, "run_id", r.id)
	ctx, span := tracing.StartSpan(ctx, "scheduler.run", map[string]string{
		"run.id":           r.id,
		"run.concurrency":  strconv.Itoa(s.concurrency),
		"run.pending_size": strconv.Itoa(s.index.Len()),
	})
	defer func() {
		close(r.abort)
		if err != nil {
			s.abandonInFlight()
		}
		s.resetLogging()
		tracing.EndSpan(span, err)
	}()

	s.logIndex()

	for s.index.Len() > 0 {
		s.launch(ctx, r)
		if s.inProgress.Len() == 0 {
			return r.results, s.dropUnreachable()
		}
		select {
		case l := <-r.lookups:
			l.reply <- s.cache.Pick(l.baseKeys).Merge(r.results.Pick(l.baseKeys))
		case c := <-r.completions:
			if err := s.complete(ctx, r, c); err != nil {
				return r.results, err
			}
		}
	}
	if s.counterEntry != nil {
		s.counterEntry.SetDone(doneInfo)
	}
	return r.results, nil
}

// launch fills the free concurrency slots with ready nodes that are not
// already running.
func (s *Scheduler) launch(ctx context.Context, r *run) {
	free := s.concurrency - s.inProgress.Len()
	if free <= 0 {
		return
	}
	var batch []*node.Node
	for _, n := range s.roots.Nodes() {
		if len(batch) == free {
			break
		}
		if !s.inProgress.Contains(n) {
			batch = append(batch, n)
		}
	}
	if len(batch) == 0 {
		return
	}
	for _, n := range batch {
		s.inProgress.Add(n)
	}
	s.rebuild()
	s.initLogging()
	for _, n := range batch {
		s.logTask(n)
		go s.work(ctx, r, n)
	}
	s.inProgressEntry.SetState(s.inProgressState())
}

// work runs on its own goroutine and always reports back unless the run has
// ended.
func (s *Scheduler) work(ctx context.Context, r *run, n *node.Node) {
	c := completion{node: n}
	defer func() {
		if p := recover(); p != nil {
			c.err = fmt.Errorf("task %s panicked: %v", n.Key(), p)
		}
		select {
		case r.completions <- c:
		case <-r.abort:
		}
	}()
	c.depResults, c.output, c.err = s.execute(ctx, r, n)
}

func (s *Scheduler) execute(ctx context.Context, r *run, n *node.Node) (depResults task.Results, output any, err error) {
	ctx = ctxlog.With(ctx, "task", n.Key())
	ctx, span := tracing.StartSpan(ctx, "task.process", map[string]string{
		"task.key":      n.Key(),
		"task.base_key": n.BaseKey(),
		"task.type":     n.Type(),
		"task.version":  n.Task.Version().String(),
	})
	defer func() { tracing.EndSpan(span, err) }()

	deps, err := n.Task.Dependencies(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("discovering dependencies: %w", err)
	}
	depResults, ok := r.lookup(task.BaseKeys(deps))
	if !ok {
		return nil, nil, ErrClosed
	}
	output, err = n.Task.Process(ctx, depResults)
	return depResults, output, err
}

// lookup asks the coordinator for dependency results. Results produced in
// this run take precedence over cached ones.
func (r *run) lookup(baseKeys []string) (task.Results, bool) {
	req := lookup{baseKeys: baseKeys, reply: make(chan task.Results, 1)}
	select {
	case r.lookups <- req:
	case <-r.abort:
		return nil, false
	}
	select {
	case res := <-req.reply:
		return res, true
	case <-r.abort:
		return nil, false
	}
}

// complete applies a worker's outcome to the graph.
func (s *Scheduler) complete(ctx context.Context, r *run, c completion) error {
	n := c.node
	result := &task.Result{
		Type:        n.Type(),
		Description: n.Description(),
	}
	if c.err == nil {
		result.Output = c.output
		result.DependencyResults = c.depResults
		r.results[n.BaseKey()] = result
		s.cache.Put(n.BaseKey(), n.Task.Version().String(), result)
		s.events.Emit(ctx, event.TaskComplete{BaseKey: n.BaseKey(), Result: result})
	} else {
		result.Err = c.err
		r.results[n.BaseKey()] = result
		s.events.Emit(ctx, event.TaskError{BaseKey: n.BaseKey(), Result: result})
		s.logTaskError(n, c.err)
		s.cancelDependants(n)
	}
	if s.beforeRetire != nil {
		s.beforeRetire(n)
	}
	return s.completeTask(n, c.err == nil)
}

// completeTask retires a processed node. A node still having edges at this
// point was started before its dependencies finished.
func (s *Scheduler) completeTask(n *node.Node, success bool) error {
	if n.DependencyCount() > 0 {
		return fmt.Errorf("%w: %s completed with %d unprocessed dependencies",
			ErrInconsistentGraph, n.Key(), n.DependencyCount())
	}
	s.remove(n)
	s.logTaskComplete(n, success)
	s.rebuild()
	return nil
}

// cancelDependants removes every node that transitively depends on the failed
// node n. None of them is processed and none gets a result.
func (s *Scheduler) cancelDependants(n *node.Node) {
	for _, d := range s.dependants(n) {
		s.remove(d)
		s.logTaskComplete(d, false)
	}
	s.rebuild()
}

// dropUnreachable handles pending nodes of which none is ready and none is
// running. They can only wait on each other, so they are removed and
// reported.
func (s *Scheduler) dropUnreachable() error {
	stuck := s.index.Keys()
	for _, n := range s.index.Nodes() {
		s.remove(n)
	}
	s.rebuild()
	err := fmt.Errorf("%w: %v", ErrDependencyCycle, stuck)
	s.log.Error(logEntryFor(err))
	return err
}

// abandonInFlight forgets nodes whose workers were cut off by a fatal error,
// together with everything depending on them.
func (s *Scheduler) abandonInFlight() {
	for _, n := range s.inProgress.Nodes() {
		for _, d := range s.dependants(n) {
			s.remove(d)
			s.logTaskComplete(d, false)
		}
		s.remove(n)
		s.logTaskComplete(n, false)
	}
	s.rebuild()
}
