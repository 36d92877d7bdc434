package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	g := New()
	require.NotNil(t, g)
	assert.NotNil(t, g.nodes)
	assert.Empty(t, g.nodes)
}

func TestAddNode(t *testing.T) {
	g := New()

	g.AddNode("build.api")
	assert.Len(t, g.nodes, 1)
	v, ok := g.nodes["build.api"]
	require.True(t, ok)
	assert.Equal(t, "build.api", v.id)
	assert.NotNil(t, v.deps)
	assert.NotNil(t, v.dependents)

	g.AddNode("build.api") // idempotent
	assert.Len(t, g.nodes, 1)
	assert.Equal(t, []string{"build.api"}, g.order)

	g.AddNode("push.api")
	assert.True(t, g.Has("push.api"))
	assert.False(t, g.Has("deploy.api"))
}

func TestAddEdge(t *testing.T) {
	t.Run("success case", func(t *testing.T) {
		g := New()
		g.AddNode("build")
		g.AddNode("push")

		require.NoError(t, g.AddEdge("build", "push"))

		deps, err := g.Dependencies("push")
		require.NoError(t, err)
		assert.Equal(t, []string{"build"}, deps)

		dependents, err := g.Dependents("build")
		require.NoError(t, err)
		assert.Equal(t, []string{"push"}, dependents)
	})

	t.Run("error cases", func(t *testing.T) {
		g := New()
		g.AddNode("build")

		err := g.AddEdge("dne", "build")
		assert.ErrorContains(t, err, `unknown dependency "dne" of "build"`)

		err = g.AddEdge("build", "dne")
		assert.ErrorContains(t, err, `unknown task "dne"`)

		err = g.AddEdge("build", "build")
		assert.ErrorIs(t, err, ErrCycle)

		_, err = g.Dependencies("dne")
		assert.Error(t, err)
		_, err = g.Dependents("dne")
		assert.Error(t, err)
	})
}

func TestDetectCycles(t *testing.T) {
	t.Run("empty graph has no cycles", func(t *testing.T) {
		assert.NoError(t, New().DetectCycles())
	})

	t.Run("valid dag has no cycles", func(t *testing.T) {
		g := New()
		for _, id := range []string{"a", "b", "c", "d"} {
			g.AddNode(id)
		}
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("b", "c"))
		require.NoError(t, g.AddEdge("a", "c")) // transitive
		require.NoError(t, g.AddEdge("c", "d"))
		assert.NoError(t, g.DetectCycles())
	})

	t.Run("direct cycle names its path", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("b", "a"))

		err := g.DetectCycles()
		require.ErrorIs(t, err, ErrCycle)
		assert.EqualError(t, err, "cycle detected: a -> b -> a")
	})

	t.Run("cycle in a disjoint component is detected", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")
		require.NoError(t, g.AddEdge("a", "b"))

		g.AddNode("x")
		g.AddNode("y")
		g.AddNode("z")
		require.NoError(t, g.AddEdge("x", "y"))
		require.NoError(t, g.AddEdge("y", "z"))
		require.NoError(t, g.AddEdge("z", "y"))

		err := g.DetectCycles()
		require.ErrorIs(t, err, ErrCycle)
		assert.ErrorContains(t, err, "y -> z -> y")
	})
}

func TestTopologicalOrder(t *testing.T) {
	t.Run("dependencies come first", func(t *testing.T) {
		g := New()
		for _, id := range []string{"deploy", "push", "build", "lint"} {
			g.AddNode(id)
		}
		require.NoError(t, g.AddEdge("build", "push"))
		require.NoError(t, g.AddEdge("push", "deploy"))
		require.NoError(t, g.AddEdge("lint", "build"))

		order, err := g.TopologicalOrder()
		require.NoError(t, err)
		assert.Equal(t, []string{"lint", "build", "push", "deploy"}, order)
	})

	t.Run("cycle is an error", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("b", "a"))

		_, err := g.TopologicalOrder()
		assert.ErrorIs(t, err, ErrCycle)
	})
}
