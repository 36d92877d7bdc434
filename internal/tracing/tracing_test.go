package tracing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSpansAreExported(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	require.NoError(t, InitWithExporter("taskgraph", "test", exporter))
	t.Cleanup(func() { _ = Shutdown(context.Background()) })

	ctx, run := StartSpan(context.Background(), "scheduler.run", map[string]string{"run.id": "r1"})
	_, ok := StartSpan(ctx, "task.process", map[string]string{"task.key": "a.1"})
	EndSpan(ok, nil)
	_, failed := StartSpan(ctx, "task.process", map[string]string{"task.key": "b.1"})
	failed.SetAttribute("task.type", "build")
	EndSpan(failed, errors.New("boom"))
	EndSpan(run, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 3)

	assert.Equal(t, "task.process", spans[0].Name)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
	assert.Equal(t, codes.Error, spans[1].Status.Code)
	assert.Equal(t, "boom", spans[1].Status.Description)
	assert.Equal(t, spans[2].SpanContext.SpanID(), spans[0].Parent.SpanID(), "task spans are children of the run span")
}

func TestInitWritesFile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "spans.json")
	require.NoError(t, Init("taskgraph", "test", fname))
	t.Cleanup(func() { _ = Shutdown(context.Background()) })

	_, span := StartSpan(context.Background(), "test", nil)
	EndSpan(span, nil)

	data, err := os.ReadFile(fname)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestNilSpanIsSafe(t *testing.T) {
	var s *Span
	assert.NotPanics(t, func() {
		s.SetAttribute("k", "v")
		EndSpan(s, errors.New("x"))
	})
}
