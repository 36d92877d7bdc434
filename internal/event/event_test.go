package event

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vk/taskgraph/internal/task"
	"github.com/vk/taskgraph/internal/testutil"
)

func TestBusFansOutInOrder(t *testing.T) {
	first, second := &Recorder{}, &Recorder{}
	bus := NewBus(first)
	bus.Subscribe(second)

	ctx := context.Background()
	bus.Emit(ctx, TaskPending{Key: "a.1", AddedAt: time.Unix(0, 0)})
	bus.Emit(ctx, TaskComplete{BaseKey: "a", Result: &task.Result{}})

	want := []string{NameTaskPending, NameTaskComplete}
	assert.Equal(t, want, first.Names())
	assert.Equal(t, want, second.Names())
}

func TestLogSink(t *testing.T) {
	buf := &testutil.SafeBuffer{}
	sink := &LogSink{Logger: slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))}

	ctx := context.Background()
	sink.Emit(ctx, TaskPending{Key: "build.a.1", Version: task.Version{Fingerprint: "v1"}})
	sink.Emit(ctx, TaskError{BaseKey: "build.a", Result: &task.Result{Err: errors.New("boom")}})

	out := buf.String()
	assert.Contains(t, out, "event=taskPending")
	assert.Contains(t, out, "key=build.a.1")
	assert.Contains(t, out, "version=v1")
	assert.Contains(t, out, "event=taskError")
	assert.Contains(t, out, "error=boom")
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() {
		Discard.Emit(context.Background(), TaskPending{})
	})
}
