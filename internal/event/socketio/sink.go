// Package socketio publishes scheduler events to a dashboard over socket.io.
package socketio

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/vk/taskgraph/internal/ctxlog"
	"github.com/vk/taskgraph/internal/event"
	"github.com/vk/taskgraph/internal/task"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Options configure the dashboard connection.
type Options struct {
	Namespace          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// Sink emits every event it receives on a connected socket.
type Sink struct {
	emit  func(name string, payload map[string]any)
	close func()
}

// Dial connects to the dashboard at rawURL and returns a sink bound to the
// connection. It waits for the connection to be established.
func Dial(ctx context.Context, rawURL string, o Options) (*Sink, error) {
	logger := ctxlog.FromContext(ctx).With("sink", "socketio", "url", rawURL)

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dashboard URL: %w", err)
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 15 * time.Second
	}
	if o.Namespace == "" {
		o.Namespace = "/"
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if o.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(o.Namespace, opts)

	connectChan := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		logger.Debug("Dashboard connected.", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		var err error = fmt.Errorf("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connectChan <- err
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("dashboard connection failed: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for dashboard connection: %w", ctx.Err())
	case <-time.After(o.ConnectTimeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for dashboard connection", o.ConnectTimeout)
	}

	return &Sink{
		emit: func(name string, payload map[string]any) {
			io.Emit(name, payload)
		},
		close: func() {
			logger.Debug("Disconnecting dashboard.", "sid", io.Id())
			io.Disconnect()
		},
	}, nil
}

// Emit implements event.Sink.
func (s *Sink) Emit(_ context.Context, ev event.Event) {
	s.emit(ev.Name(), Payload(ev))
}

// Close disconnects from the dashboard.
func (s *Sink) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}

// Payload converts an event into the JSON-friendly map sent on the wire.
func Payload(ev event.Event) map[string]any {
	switch e := ev.(type) {
	case event.TaskPending:
		return map[string]any{
			"addedAt": e.AddedAt.UTC().Format(time.RFC3339Nano),
			"key":     e.Key,
			"version": map[string]any{
				"versionString":  e.Version.String(),
				"dirtyTimestamp": e.Version.DirtyTimestamp,
			},
		}
	case event.TaskComplete:
		return resultPayload(e.BaseKey, e.Result)
	case event.TaskError:
		return resultPayload(e.BaseKey, e.Result)
	default:
		return map[string]any{}
	}
}

func resultPayload(baseKey string, r *task.Result) map[string]any {
	out := map[string]any{"baseKey": baseKey}
	if r == nil {
		return out
	}
	out["type"] = r.Type
	out["description"] = r.Description
	if r.Output != nil {
		out["output"] = r.Output
	}
	if len(r.DependencyResults) > 0 {
		deps := make([]string, 0, len(r.DependencyResults))
		for k := range r.DependencyResults {
			deps = append(deps, k)
		}
		out["dependencies"] = deps
	}
	if r.Err != nil {
		out["error"] = r.Err.Error()
	}
	return out
}
