package fsr

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/fsr/cvar"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for fsr and its settings store.
// By default fsr produces no log output. Pass nil to restore silence.
//
// Log levels used by fsr:
//   - [slog.LevelDebug]: per-frame decisions (passes, dispatch grid)
//   - [slog.LevelInfo]: lifecycle events (precision chosen, pipelines created)
//   - [slog.LevelWarn]: recoverable issues (sharpness clamped, archive reload failed)
//
// SetLogger is safe for concurrent use.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	cvar.SetLogger(l)
}

// Logger returns the current logger used by fsr.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
