// Package nodestore provides the ordered, unique-keyed node registry the
// scheduler uses for its graph state.
//
// The same Map type backs three views of the graph:
//   - the index of every live node,
//   - the ready set ("roots"), nodes with no remaining dependency edges,
//   - the in-flight set, nodes currently being processed.
//
// Iteration follows insertion order so scheduling decisions are deterministic.
// A Map is not safe for concurrent use; the scheduler's coordinator owns it.
package nodestore

import (
	"github.com/vk/taskgraph/internal/node"
)

// Map is an insertion-ordered set of nodes keyed by node.Key().
type Map struct {
	order []string
	nodes map[string]*node.Node
}

// New creates an empty Map.
func New() *Map {
	return &Map{nodes: make(map[string]*node.Node)}
}

// Add inserts n unless a node with the same key is already present.
func (m *Map) Add(n *node.Node) {
	key := n.Key()
	if _, ok := m.nodes[key]; ok {
		return
	}
	m.nodes[key] = n
	m.order = append(m.order, key)
}

// SetNodes adds every node in nodes, in order.
func (m *Map) SetNodes(nodes []*node.Node) {
	for _, n := range nodes {
		m.Add(n)
	}
}

// Remove deletes the node with n's key, if present.
func (m *Map) Remove(n *node.Node) {
	m.RemoveKey(n.Key())
}

// RemoveKey deletes the node with the given key, if present.
func (m *Map) RemoveKey(key string) {
	if _, ok := m.nodes[key]; !ok {
		return
	}
	delete(m.nodes, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Get returns the node stored under key.
func (m *Map) Get(key string) (*node.Node, bool) {
	n, ok := m.nodes[key]
	return n, ok
}

// Contains reports whether a node with n's key is present.
func (m *Map) Contains(n *node.Node) bool {
	_, ok := m.nodes[n.Key()]
	return ok
}

// Nodes returns a snapshot of the nodes in insertion order.
func (m *Map) Nodes() []*node.Node {
	out := make([]*node.Node, 0, len(m.order))
	for _, key := range m.order {
		out = append(out, m.nodes[key])
	}
	return out
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Len returns the number of nodes.
func (m *Map) Len() int {
	return len(m.order)
}

// Clear removes every node.
func (m *Map) Clear() {
	m.order = nil
	m.nodes = make(map[string]*node.Node)
}

// LastWithBaseKey returns the most recently added node whose base key matches.
func (m *Map) LastWithBaseKey(baseKey string) (*node.Node, bool) {
	for i := len(m.order) - 1; i >= 0; i-- {
		n := m.nodes[m.order[i]]
		if n.BaseKey() == baseKey {
			return n, true
		}
	}
	return nil, false
}

// NodeInfo is the debugging view of one node.
type NodeInfo struct {
	Key          string   `yaml:"key"`
	BaseKey      string   `yaml:"baseKey"`
	Type         string   `yaml:"type"`
	Dependencies []string `yaml:"dependencies"`
}

// Inspect returns a key-ordered debugging view of the map, suitable for YAML
// encoding.
func (m *Map) Inspect() []NodeInfo {
	out := make([]NodeInfo, 0, len(m.order))
	for _, n := range m.Nodes() {
		deps := make([]string, 0, n.DependencyCount())
		for _, d := range n.Dependencies() {
			deps = append(deps, d.Key)
		}
		out = append(out, NodeInfo{
			Key:          n.Key(),
			BaseKey:      n.BaseKey(),
			Type:         n.Type(),
			Dependencies: deps,
		})
	}
	return out
}
