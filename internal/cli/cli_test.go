package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/taskgraph/internal/app"
	"github.com/vk/taskgraph/internal/scheduler"
)

func TestParse_Run(t *testing.T) {
	out := &bytes.Buffer{}
	inv, shouldExit, err := Parse([]string{
		"run",
		"--target", "push.api",
		"-t", "lint.api",
		"--concurrency", "8",
		"--force",
		"--allow-dirty",
		"--log-format", "JSON",
		"--log-level", "debug",
		"--healthcheck-port", "8080",
		"--dashboard-url", "http://localhost:3000",
		"--trace-file", "trace.json",
		"ci", "deploy.hcl",
	}, out)
	require.NoError(t, err)
	require.False(t, shouldExit)

	assert.Equal(t, CommandRun, inv.Command)
	assert.Equal(t, &app.Config{
		TaskfilePaths:   []string{"ci", "deploy.hcl"},
		Targets:         []string{"push.api", "lint.api"},
		LogFormat:       "json",
		LogLevel:        "debug",
		HealthcheckPort: 8080,
		Concurrency:     8,
		Force:           true,
		AllowDirty:      true,
		DashboardURL:    "http://localhost:3000",
		TraceFile:       "trace.json",
	}, inv.Config)
}

func TestParse_Defaults(t *testing.T) {
	inv, shouldExit, err := Parse([]string{"inspect"}, &bytes.Buffer{})
	require.NoError(t, err)
	require.False(t, shouldExit)

	assert.Equal(t, CommandInspect, inv.Command)
	assert.Equal(t, []string{"."}, inv.Config.TaskfilePaths)
	assert.Equal(t, scheduler.DefaultConcurrency, inv.Config.Concurrency)
	assert.Equal(t, "text", inv.Config.LogFormat)
	assert.Equal(t, "info", inv.Config.LogLevel)
	assert.Empty(t, inv.Config.Targets)
}

func TestParse_Help(t *testing.T) {
	for _, args := range [][]string{{"-h"}, {"run", "--help"}, {}} {
		out := &bytes.Buffer{}
		inv, shouldExit, err := Parse(args, out)
		require.NoError(t, err, "args %v", args)
		assert.True(t, shouldExit, "args %v", args)
		assert.Nil(t, inv)
		assert.Contains(t, out.String(), "Usage:")
	}
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want string
	}{
		{"unknown flag", []string{"run", "--this-is-not-a-valid-flag"}, "unknown flag: --this-is-not-a-valid-flag"},
		{"bad log format", []string{"run", "--log-format", "xml"}, "invalid log-format"},
		{"bad log level", []string{"run", "--log-level", "loud"}, "invalid log-level"},
		{"negative concurrency", []string{"run", "--concurrency", "-1"}, "concurrency must not be negative"},
		{"not a number", []string{"run", "--concurrency", "many"}, "invalid argument"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Parse(tc.args, &bytes.Buffer{})
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.want)
		})
	}
}
