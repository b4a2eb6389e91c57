package rq

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/rq/compile"
	"github.com/gogpu/rq/material"
)

// nopHandler discards every record.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	l := newNopLogger()
	loggerPtr.Store(l)
}

// SetLogger configures the logger for rq and its sub-packages.
// By default, rq produces no log output. Call SetLogger to enable logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by rq:
//   - [slog.LevelDebug]: buffer allocation, pass preparation, per-frame draw counts
//   - [slog.LevelInfo]: lifecycle events (backend selected)
//   - [slog.LevelWarn]: pipelines left incomplete by the deadline, recovered worker panics
//   - [slog.LevelError]: compile faults
//
// Example:
//
//	rq.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	compile.SetLogger(l)
	material.SetLogger(l)
}

// Logger returns the current logger used by rq.
// Backends call this to share the same logger configuration.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
