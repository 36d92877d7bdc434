// Package logentry is the structured progress logger consumed by the
// scheduler. An entry is written once and then updated through its Handle as
// the work it describes progresses.
package logentry

import (
	"context"
	"log/slog"
)

// Status is the state an entry is displayed in.
type Status string

const (
	StatusActive  Status = "active"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusDone    Status = "done"
)

// Entry is one log record.
type Entry struct {
	Section string
	Msg     string
	Status  Status
	Err     error
}

// DoneOptions annotate a finished entry.
type DoneOptions struct {
	Symbol string
}

// Logger writes entries and hands back a Handle to update them.
type Logger interface {
	Debug(e Entry) Handle
	Info(e Entry) Handle
	Error(e Entry) Handle
}

// Handle updates a previously written entry.
type Handle interface {
	SetSuccess()
	SetError()
	SetState(msg string)
	SetDone(opts DoneOptions)
}

// NewSlog adapts a slog.Logger. Entry updates are written as follow-up
// records at the level of the original entry.
func NewSlog(logger *slog.Logger) Logger {
	return &slogLogger{logger: logger}
}

type slogLogger struct {
	logger *slog.Logger
}

func (l *slogLogger) Debug(e Entry) Handle { return l.write(slog.LevelDebug, e) }
func (l *slogLogger) Info(e Entry) Handle  { return l.write(slog.LevelInfo, e) }
func (l *slogLogger) Error(e Entry) Handle { return l.write(slog.LevelError, e) }

func (l *slogLogger) write(level slog.Level, e Entry) Handle {
	var attrs []any
	if e.Section != "" {
		attrs = append(attrs, "section", e.Section)
	}
	if e.Status != "" {
		attrs = append(attrs, "status", string(e.Status))
	}
	h := &slogHandle{logger: l.logger.With(attrs...), level: level, msg: e.Msg}
	if e.Err != nil {
		h.logger.Log(context.Background(), level, e.Msg, "error", e.Err)
	} else {
		h.logger.Log(context.Background(), level, e.Msg)
	}
	return h
}

type slogHandle struct {
	logger *slog.Logger
	level  slog.Level
	msg    string
}

func (h *slogHandle) SetSuccess() {
	h.logger.Log(context.Background(), h.level, h.msg, "status", string(StatusSuccess))
}

func (h *slogHandle) SetError() {
	h.logger.Log(context.Background(), h.level, h.msg, "status", string(StatusError))
}

func (h *slogHandle) SetState(msg string) {
	h.msg = msg
	h.logger.Log(context.Background(), h.level, msg)
}

func (h *slogHandle) SetDone(opts DoneOptions) {
	args := []any{"status", string(StatusDone)}
	if opts.Symbol != "" {
		args = append(args, "symbol", opts.Symbol)
	}
	h.logger.Log(context.Background(), h.level, h.msg, args...)
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Debug(Entry) Handle { return nopHandle{} }
func (nopLogger) Info(Entry) Handle  { return nopHandle{} }
func (nopLogger) Error(Entry) Handle { return nopHandle{} }

type nopHandle struct{}

func (nopHandle) SetSuccess()         {}
func (nopHandle) SetError()           {}
func (nopHandle) SetState(string)     {}
func (nopHandle) SetDone(DoneOptions) {}
