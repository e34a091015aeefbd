// Package logging holds the process-wide logger shared by every tilescope
// package. Logging is silent until SetLogger is called.
package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler discards every record. Enabled reports false so callers skip
// attribute formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// Nop returns a logger that discards all output.
func Nop() *slog.Logger { return slog.New(nopHandler{}) }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(Nop())
}

// SetLogger replaces the shared logger. Passing nil restores the silent
// default. Safe for concurrent use.
//
// Levels used:
//   - [slog.LevelDebug]: per-tile cache misses, evictions, discarded results
//   - [slog.LevelInfo]: document open/close, scale class changes
//   - [slog.LevelWarn]: raster fetch failures
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = Nop()
	}
	loggerPtr.Store(l)
}

// Logger returns the shared logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// Or returns l when it is non-nil and the shared logger otherwise.
func Or(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return Logger()
}
