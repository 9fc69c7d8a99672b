// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rendercache

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/rendercache/bind"
	"github.com/gogpu/rendercache/state"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

var (
	sinksMu sync.Mutex
	sinks   = []func(*slog.Logger){state.SetLogger, bind.SetLogger}
)

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for rendercache and all its sub-packages.
// By default, rendercache produces no log output.
//
// SetLogger is safe for concurrent use. Pass nil to restore the default
// silent behavior.
//
// Log levels used:
//   - [slog.LevelDebug]: commits, texture evictions and dead unit reuse,
//     pipeline creation in GPU backends
//   - [slog.LevelWarn]: bind failures reported by bind callbacks
//   - [slog.LevelError]: internal bookkeeping violations
//
// Example:
//
//	rendercache.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	sinksMu.Lock()
	defer sinksMu.Unlock()
	for _, sink := range sinks {
		sink(l)
	}
}

// Logger returns the current logger used by rendercache.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// RegisterLogSink registers a function that receives the logger on every
// SetLogger call. Backends call it from init to share the logger without
// an import cycle. The sink is invoked immediately with the current logger.
func RegisterLogSink(sink func(*slog.Logger)) {
	sinksMu.Lock()
	defer sinksMu.Unlock()
	sinks = append(sinks, sink)
	sink(Logger())
}
