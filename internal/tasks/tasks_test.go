package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/taskgraph/internal/config"
	"github.com/vk/taskgraph/internal/dag"
	"github.com/vk/taskgraph/internal/task"
	"github.com/vk/taskgraph/internal/testutil"
)

// fakeRunner records commands and answers from a table keyed by command line.
type fakeRunner struct {
	mu       sync.Mutex
	commands []Command
	outputs  map[string]Output
	errs     map[string]error
}

func (r *fakeRunner) Run(_ context.Context, cmd Command) (Output, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, cmd)
	if err := r.errs[cmd.Line]; err != nil {
		return Output{Status: 1}, err
	}
	if out, ok := r.outputs[cmd.Line]; ok {
		return out, nil
	}
	return Output{}, nil
}

func counter() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id%d", n)
	}
}

func sampleModel() *config.Model {
	return &config.Model{Tasks: []*config.TaskDef{
		{Type: "deploy", Name: "api", Command: "deploy", DependsOn: []string{"push.api"}, Description: "deploy api"},
		{Type: "push", Name: "api", Command: "push", DependsOn: []string{"build.api"}, Description: "push api"},
		{Type: "build", Name: "api", Command: "build", Version: "v1", Description: "build api"},
		{Type: "lint", Name: "api", Command: "lint", Version: "v1", Description: "lint api"},
	}}
}

func TestNewCatalog_Validation(t *testing.T) {
	t.Run("unknown dependency", func(t *testing.T) {
		_, err := NewCatalog(&config.Model{Tasks: []*config.TaskDef{
			{Type: "build", Name: "api", DependsOn: []string{"generate.api"}},
		}})
		require.ErrorIs(t, err, task.ErrDefinition)
		assert.ErrorContains(t, err, `unknown dependency "generate.api"`)
	})

	t.Run("cycle", func(t *testing.T) {
		_, err := NewCatalog(&config.Model{Tasks: []*config.TaskDef{
			{Type: "a", Name: "x", DependsOn: []string{"b.x"}},
			{Type: "b", Name: "x", DependsOn: []string{"a.x"}},
		}})
		require.ErrorIs(t, err, task.ErrDefinition)
		assert.ErrorIs(t, err, dag.ErrCycle)
	})

	t.Run("missing name", func(t *testing.T) {
		_, err := NewCatalog(&config.Model{Tasks: []*config.TaskDef{{Type: "build"}}})
		var defErr *task.DefinitionError
		assert.ErrorAs(t, err, &defErr)
	})
}

func TestCatalog_TaskInstancesAreStable(t *testing.T) {
	ctx := context.Background()
	c, err := NewCatalog(sampleModel(), WithRunner(&fakeRunner{}), WithIDs(counter()))
	require.NoError(t, err)

	push, err := c.Task(ctx, "push.api")
	require.NoError(t, err)
	again, err := c.Task(ctx, "push.api")
	require.NoError(t, err)
	assert.Same(t, push, again)

	assert.Equal(t, "push.api.id1", push.Key())
	assert.Equal(t, "push.api", push.BaseKey())
	assert.Equal(t, "push", push.Type())
	assert.Equal(t, "push api", push.Description())
	assert.NoError(t, task.Validate(push))

	deps, err := push.Dependencies(ctx)
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, "build.api.id2", deps[0].Key())

	depsAgain, err := push.Dependencies(ctx)
	require.NoError(t, err)
	assert.Equal(t, task.BaseKeys(deps), task.BaseKeys(depsAgain))

	_, err = c.Task(ctx, "nope.api")
	assert.ErrorIs(t, err, task.ErrDefinition)
}

func TestCatalog_Closure(t *testing.T) {
	ctx := context.Background()
	c, err := NewCatalog(sampleModel(), WithRunner(&fakeRunner{}))
	require.NoError(t, err)

	closure, err := c.Closure(ctx, "deploy.api")
	require.NoError(t, err)
	var keys []string
	for _, tk := range closure {
		keys = append(keys, tk.BaseKey())
	}
	assert.Equal(t, []string{"build.api", "push.api", "deploy.api"}, keys)

	_, err = c.Closure(ctx, "missing.api")
	assert.ErrorIs(t, err, task.ErrDefinition)

	assert.Equal(t, []string{"deploy.api", "push.api", "build.api", "lint.api"}, c.BaseKeys())
}

func TestCatalog_RequiredBy(t *testing.T) {
	c, err := NewCatalog(sampleModel(), WithRunner(&fakeRunner{}))
	require.NoError(t, err)

	requiredBy, err := c.RequiredBy("build.api")
	require.NoError(t, err)
	assert.Equal(t, []string{"push.api"}, requiredBy)

	requiredBy, err = c.RequiredBy("deploy.api")
	require.NoError(t, err)
	assert.Empty(t, requiredBy)

	_, err = c.RequiredBy("missing.api")
	assert.Error(t, err)

	tk, err := c.Task(context.Background(), "push.api")
	require.NoError(t, err)
	assert.Equal(t, "push", tk.Definition().Command)
	assert.Equal(t, []string{"build.api"}, tk.Definition().DependsOn)
}

func TestCatalog_Versions(t *testing.T) {
	ctx := context.Background()
	dir := testutil.WriteFiles(t, map[string]string{"main.go": "package main"})
	src := filepath.Join(dir, "main.go")
	model := func() *config.Model {
		return &config.Model{Tasks: []*config.TaskDef{
			{Type: "build", Name: "api", Command: "go build", Sources: []string{src}},
		}}
	}
	versionOf := func(opts ...CatalogOption) task.Version {
		c, err := NewCatalog(model(), append(opts, WithRunner(&fakeRunner{}))...)
		require.NoError(t, err)
		tk, err := c.Task(ctx, "build.api")
		require.NoError(t, err)
		return tk.Version()
	}

	first := versionOf()
	assert.Len(t, first.Fingerprint, fingerprintLen)
	assert.False(t, first.Dirty())
	assert.Equal(t, first, versionOf(), "same inputs, same fingerprint")

	require.NoError(t, os.WriteFile(src, []byte("package main // changed"), 0644))
	assert.NotEqual(t, first.Fingerprint, versionOf().Fingerprint)

	t.Run("declared version wins", func(t *testing.T) {
		c, err := NewCatalog(sampleModel(), WithRunner(&fakeRunner{}))
		require.NoError(t, err)
		tk, err := c.Task(ctx, "build.api")
		require.NoError(t, err)
		assert.Equal(t, task.Version{Fingerprint: "v1"}, tk.Version())
	})

	t.Run("dirty tasks carry a timestamp", func(t *testing.T) {
		m := sampleModel()
		m.Tasks[2].Dirty = true
		at := time.Unix(1700000000, 0)
		c, err := NewCatalog(m, WithRunner(&fakeRunner{}), WithClock(func() time.Time { return at }))
		require.NoError(t, err)
		tk, err := c.Task(ctx, "build.api")
		require.NoError(t, err)
		assert.True(t, tk.Version().Dirty())
		assert.Equal(t, "v1-1700000000", tk.Version().String())
	})

	t.Run("missing source is an error", func(t *testing.T) {
		m := model()
		m.Tasks[0].Sources = []string{filepath.Join(dir, "gone.go")}
		c, err := NewCatalog(m, WithRunner(&fakeRunner{}))
		require.NoError(t, err)
		_, err = c.Task(ctx, "build.api")
		assert.ErrorContains(t, err, "reading source")
	})
}

func TestCatalog_Force(t *testing.T) {
	ctx := context.Background()
	m := sampleModel()
	m.Tasks[3].Force = true

	c, err := NewCatalog(m, WithRunner(&fakeRunner{}))
	require.NoError(t, err)
	lint, err := c.Task(ctx, "lint.api")
	require.NoError(t, err)
	build, err := c.Task(ctx, "build.api")
	require.NoError(t, err)
	assert.True(t, lint.Force())
	assert.False(t, build.Force())

	c, err = NewCatalog(sampleModel(), WithRunner(&fakeRunner{}), WithForce(true))
	require.NoError(t, err)
	build, err = c.Task(ctx, "build.api")
	require.NoError(t, err)
	assert.True(t, build.Force())
}

func TestCommandTask_Process(t *testing.T) {
	ctx := context.Background()
	runner := &fakeRunner{outputs: map[string]Output{"push": {Stdout: "sha256:abc"}}}
	m := sampleModel()
	m.Tasks[1].Env = map[string]string{"REGISTRY": "ghcr.io"}
	m.Tasks[1].Dir = "file:///srv/app"
	m.Tasks[1].Timeout = time.Minute
	c, err := NewCatalog(m, WithRunner(runner))
	require.NoError(t, err)

	push, err := c.Task(ctx, "push.api")
	require.NoError(t, err)
	out, err := push.Process(ctx, task.Results{
		"build.api": {Output: Output{Stdout: "built"}},
		"other":     {Output: "not a command output"},
	})
	require.NoError(t, err)
	assert.Equal(t, Output{Stdout: "sha256:abc"}, out)

	require.Len(t, runner.commands, 1)
	cmd := runner.commands[0]
	assert.Equal(t, "push", cmd.Line)
	assert.Equal(t, "/srv/app", cmd.Dir)
	assert.Equal(t, time.Minute, cmd.Timeout)
	assert.Equal(t, map[string]string{"REGISTRY": "ghcr.io", "DEP_BUILD_API": "built"}, cmd.Env)
}

func TestCommandTask_ProcessFailure(t *testing.T) {
	ctx := context.Background()
	exit := &ExitError{Status: 2, Output: "no space left on device"}
	runner := &fakeRunner{errs: map[string]error{"build": exit}}
	c, err := NewCatalog(sampleModel(), WithRunner(runner))
	require.NoError(t, err)

	build, err := c.Task(ctx, "build.api")
	require.NoError(t, err)
	out, err := build.Process(ctx, task.Results{})
	assert.Nil(t, out)
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, "exit status 2\nno space left on device", err.Error())
}

func TestDependencyEnvName(t *testing.T) {
	assert.Equal(t, "DEP_BUILD_API", DependencyEnvName("build.api"))
	assert.Equal(t, "DEP_PUSH_MY_SERVICE", DependencyEnvName("push.my-service"))
}

func TestExitError(t *testing.T) {
	assert.Equal(t, "exit status 1", (&ExitError{Status: 1}).Error())
}
