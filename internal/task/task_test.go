package task

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTask struct {
	key, baseKey, typ string
}

func (s *stubTask) Key() string         { return s.key }
func (s *stubTask) BaseKey() string     { return s.baseKey }
func (s *stubTask) Type() string        { return s.typ }
func (s *stubTask) Version() Version    { return Version{Fingerprint: "v1"} }
func (s *stubTask) Force() bool         { return false }
func (s *stubTask) Description() string { return s.key }
func (s *stubTask) Dependencies(context.Context) ([]Task, error) {
	return nil, nil
}
func (s *stubTask) Process(context.Context, Results) (any, error) {
	return nil, nil
}

func TestValidate(t *testing.T) {
	t.Run("valid task", func(t *testing.T) {
		assert.NoError(t, Validate(&stubTask{key: "build.a.1", baseKey: "build.a", typ: "build"}))
	})

	t.Run("missing key", func(t *testing.T) {
		err := Validate(&stubTask{typ: "build"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrDefinition))

		var defErr *DefinitionError
		require.ErrorAs(t, err, &defErr)
		assert.Equal(t, "build", defErr.Type)
	})

	t.Run("missing type", func(t *testing.T) {
		err := Validate(&stubTask{key: "k"})
		assert.ErrorIs(t, err, ErrDefinition)
		assert.ErrorContains(t, err, "tasks must define a type and a key")
	})

	t.Run("nil task", func(t *testing.T) {
		assert.ErrorIs(t, Validate(nil), ErrDefinition)
	})
}

func TestVersionString(t *testing.T) {
	clean := Version{Fingerprint: "abc"}
	assert.False(t, clean.Dirty())
	assert.Equal(t, "abc", clean.String())

	dirty := Version{Fingerprint: "abc", DirtyTimestamp: 1700000000}
	assert.True(t, dirty.Dirty())
	assert.Equal(t, "abc-1700000000", dirty.String())
}

func TestResultsPickAndMerge(t *testing.T) {
	a := &Result{Type: "build", Output: "a"}
	b := &Result{Type: "build", Output: "b"}
	stale := &Result{Type: "build", Output: "stale"}

	results := Results{"a": a, "b": b}
	picked := results.Pick([]string{"a", "missing"})
	assert.Equal(t, Results{"a": a}, picked)

	merged := Results{"a": stale}.Merge(Results{"a": a, "b": b})
	assert.Same(t, a, merged["a"])
	assert.Same(t, b, merged["b"])
}

func TestResultFailed(t *testing.T) {
	var nilResult *Result
	assert.False(t, nilResult.Failed())
	assert.False(t, (&Result{}).Failed())
	assert.True(t, (&Result{Err: errors.New("boom")}).Failed())
}
