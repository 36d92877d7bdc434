// Package node defines the vertex of the scheduler's dependency graph.
package node

import (
	"github.com/vk/taskgraph/internal/task"
)

// Ref identifies another node without owning it. Edges are resolved against
// the registry that owns all nodes.
type Ref struct {
	Key     string
	BaseKey string
}

// Node wraps one task instance together with the dependency edges resolved
// during the last rebuild.
type Node struct {
	// Task is the wrapped task instance.
	Task task.Task

	// deps is recomputed on every rebuild, in registry order.
	deps []Ref
}

// New creates a node with no edges.
func New(t task.Task) *Node {
	return &Node{Task: t}
}

// Key returns the task's unique key.
func (n *Node) Key() string {
	return n.Task.Key()
}

// BaseKey returns the task's base key.
func (n *Node) BaseKey() string {
	return n.Task.BaseKey()
}

// Type returns the task's type tag.
func (n *Node) Type() string {
	return n.Task.Type()
}

// Description returns the task's description.
func (n *Node) Description() string {
	return n.Task.Description()
}

// Clear drops all dependency edges.
func (n *Node) Clear() {
	n.deps = nil
}

// SetDependencies replaces the dependency edges. Duplicate keys are ignored.
func (n *Node) SetDependencies(deps []*Node) {
	n.deps = n.deps[:0]
	seen := make(map[string]struct{}, len(deps))
	for _, d := range deps {
		if _, ok := seen[d.Key()]; ok {
			continue
		}
		seen[d.Key()] = struct{}{}
		n.deps = append(n.deps, Ref{Key: d.Key(), BaseKey: d.BaseKey()})
	}
}

// Dependencies returns a copy of the current edges.
func (n *Node) Dependencies() []Ref {
	out := make([]Ref, len(n.deps))
	copy(out, n.deps)
	return out
}

// DependencyCount returns the number of current edges.
func (n *Node) DependencyCount() int {
	return len(n.deps)
}

// DependsOn reports whether any edge points at a node with the given base key.
func (n *Node) DependsOn(baseKey string) bool {
	for _, d := range n.deps {
		if d.BaseKey == baseKey {
			return true
		}
	}
	return false
}
