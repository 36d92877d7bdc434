package scheduler

import (
	"context"
	"fmt"

	"github.com/vk/taskgraph/internal/event"
	"github.com/vk/taskgraph/internal/node"
	"github.com/vk/taskgraph/internal/task"
)

// addTask announces t and registers it with its dependency closure. A failed
// registration removes every node it created, so no dependant is left
// pending without its dependencies.
func (s *Scheduler) addTask(ctx context.Context, t task.Task) error {
	s.events.Emit(ctx, event.TaskPending{AddedAt: s.now(), Key: t.Key(), Version: t.Version()})
	defer s.rebuild()

	var added []*node.Node
	if err := s.addNodeWithDependencies(ctx, t, &added); err != nil {
		for _, n := range added {
			s.remove(n)
		}
		return err
	}
	return nil
}

func (s *Scheduler) addNodeWithDependencies(ctx context.Context, t task.Task, added *[]*node.Node) error {
	if err := task.Validate(t); err != nil {
		return err
	}
	n, created := s.resolveNode(t)
	if !created {
		return nil
	}
	deps, err := t.Dependencies(ctx)
	if err != nil {
		return fmt.Errorf("discovering dependencies of %s: %w", t.Key(), err)
	}
	s.index.Add(n)
	s.depCache[n.Key()] = uniqueBaseKeys(deps)
	*added = append(*added, n)
	for _, dep := range deps {
		if err := s.addNodeWithDependencies(ctx, dep, added); err != nil {
			return err
		}
	}
	return nil
}

// resolveNode decides what registering t amounts to:
//  1. the most recently registered pending node with the same base key, if
//     any, is reused;
//  2. otherwise, a valid cached result for the task's version means nothing
//     needs to run unless the task is forced;
//  3. otherwise a new node is created.
//
// created is true only in the last case.
func (s *Scheduler) resolveNode(t task.Task) (n *node.Node, created bool) {
	if existing, ok := s.index.LastWithBaseKey(t.BaseKey()); ok {
		return existing, false
	}
	if _, ok := s.cache.Get(t.BaseKey(), t.Version().String()); ok && !t.Force() {
		return nil, false
	}
	return node.New(t), true
}

// rebuild recomputes every node's edges from the dependency cache and the
// root set from the edges.
func (s *Scheduler) rebuild() {
	nodes := s.index.Nodes()
	roots := make([]*node.Node, 0, len(nodes))
	for _, n := range nodes {
		n.Clear()
		wanted := make(map[string]struct{}, len(s.depCache[n.Key()]))
		for _, baseKey := range s.depCache[n.Key()] {
			wanted[baseKey] = struct{}{}
		}
		var deps []*node.Node
		for _, candidate := range nodes {
			if _, ok := wanted[candidate.BaseKey()]; ok {
				deps = append(deps, candidate)
			}
		}
		n.SetDependencies(deps)
		if n.DependencyCount() == 0 {
			roots = append(roots, n)
		}
	}
	s.roots.Clear()
	s.roots.SetNodes(roots)
}

// dependants returns every pending node that transitively depends on n.
func (s *Scheduler) dependants(n *node.Node) []*node.Node {
	var (
		out     []*node.Node
		seen    = map[string]struct{}{n.Key(): {}}
		pending = []*node.Node{n}
	)
	for len(pending) > 0 {
		current := pending[0]
		pending = pending[1:]
		for _, candidate := range s.index.Nodes() {
			if _, ok := seen[candidate.Key()]; ok {
				continue
			}
			if candidate.DependsOn(current.BaseKey()) {
				seen[candidate.Key()] = struct{}{}
				out = append(out, candidate)
				pending = append(pending, candidate)
			}
		}
	}
	return out
}

// remove drops n from every registry.
func (s *Scheduler) remove(n *node.Node) {
	s.index.Remove(n)
	s.roots.Remove(n)
	s.inProgress.Remove(n)
	delete(s.depCache, n.Key())
}

func uniqueBaseKeys(tasks []task.Task) []string {
	seen := make(map[string]struct{}, len(tasks))
	keys := make([]string, 0, len(tasks))
	for _, baseKey := range task.BaseKeys(tasks) {
		if _, ok := seen[baseKey]; ok {
			continue
		}
		seen[baseKey] = struct{}{}
		keys = append(keys, baseKey)
	}
	return keys
}
