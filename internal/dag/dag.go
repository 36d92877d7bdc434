// Package dag is a small directed graph of task names used to validate a
// taskfile before anything is scheduled.
package dag

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// ErrCycle is wrapped by the error DetectCycles returns.
var ErrCycle = errors.New("cycle detected")

type vertex struct {
	id         string
	deps       map[string]*vertex
	dependents map[string]*vertex
}

// Graph is safe for concurrent use. Vertices are visited in insertion order so
// that errors and orderings are deterministic.
type Graph struct {
	mutex sync.RWMutex
	order []string
	nodes map[string]*vertex
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*vertex)}
}

// AddNode adds a vertex. Adding an existing id does nothing.
func (g *Graph) AddNode(id string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[id]; ok {
		return
	}
	g.order = append(g.order, id)
	g.nodes[id] = &vertex{
		id:         id,
		deps:       make(map[string]*vertex),
		dependents: make(map[string]*vertex),
	}
}

// Has reports whether id is a vertex.
func (g *Graph) Has(id string) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// AddEdge records that dependant depends on dependency.
func (g *Graph) AddEdge(dependency, dependant string) error {
	if dependency == dependant {
		return fmt.Errorf("%w: %s depends on itself", ErrCycle, dependant)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	from, ok := g.nodes[dependency]
	if !ok {
		return fmt.Errorf("unknown dependency %q of %q", dependency, dependant)
	}
	to, ok := g.nodes[dependant]
	if !ok {
		return fmt.Errorf("unknown task %q", dependant)
	}

	to.deps[dependency] = from
	from.dependents[dependant] = to
	return nil
}

// Dependencies returns the sorted ids id depends on directly.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	v, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("unknown task %q", id)
	}
	return sortedKeys(v.deps), nil
}

// Dependents returns the sorted ids depending on id directly.
func (g *Graph) Dependents(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	v, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("unknown task %q", id)
	}
	return sortedKeys(v.dependents), nil
}

// DetectCycles returns an error naming the path of the first cycle found.
func (g *Graph) DetectCycles() error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	done := make(map[string]bool)
	onPath := make(map[string]bool)
	var path []string

	var visit func(v *vertex) error
	visit = func(v *vertex) error {
		if done[v.id] {
			return nil
		}
		if onPath[v.id] {
			start := slices.Index(path, v.id)
			cycle := append(slices.Clone(path[start:]), v.id)
			return fmt.Errorf("%w: %s", ErrCycle, strings.Join(cycle, " -> "))
		}
		onPath[v.id] = true
		path = append(path, v.id)
		for _, id := range sortedKeys(v.dependents) {
			if err := visit(v.dependents[id]); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		delete(onPath, v.id)
		done[v.id] = true
		return nil
	}

	for _, id := range g.order {
		if err := visit(g.nodes[id]); err != nil {
			return err
		}
	}
	return nil
}

// TopologicalOrder lists every vertex after all of its dependencies, walking
// the vertices in insertion order on each pass.
func (g *Graph) TopologicalOrder() ([]string, error) {
	if err := g.DetectCycles(); err != nil {
		return nil, err
	}

	g.mutex.RLock()
	defer g.mutex.RUnlock()

	remaining := make(map[string]int, len(g.nodes))
	for id, v := range g.nodes {
		remaining[id] = len(v.deps)
	}
	out := make([]string, 0, len(g.nodes))
	for len(out) < len(g.order) {
		for _, id := range g.order {
			if remaining[id] != 0 {
				continue
			}
			remaining[id] = -1
			out = append(out, id)
			for dependant := range g.nodes[id].dependents {
				remaining[dependant]--
			}
		}
	}
	return out, nil
}

func sortedKeys(m map[string]*vertex) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
