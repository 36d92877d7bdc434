package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/taskgraph/internal/task"
)

// AssertSucceeded checks that results hold a successful entry for baseKey.
func AssertSucceeded(t *testing.T, results task.Results, baseKey string) *task.Result {
	t.Helper()
	res, ok := results[baseKey]
	require.True(t, ok, "expected a result for %q", baseKey)
	require.NoError(t, res.Err, "expected %q to succeed", baseKey)
	return res
}

// AssertFailed checks that results hold a failed entry for baseKey.
func AssertFailed(t *testing.T, results task.Results, baseKey string) *task.Result {
	t.Helper()
	res, ok := results[baseKey]
	require.True(t, ok, "expected a result for %q", baseKey)
	require.Error(t, res.Err, "expected %q to fail", baseKey)
	return res
}

// AssertAbsent checks that results hold no entry for baseKey.
func AssertAbsent(t *testing.T, results task.Results, baseKey string) {
	t.Helper()
	_, ok := results[baseKey]
	require.False(t, ok, "expected no result for %q", baseKey)
}
