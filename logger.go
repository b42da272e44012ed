package clmem

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip building the record at all.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that SetLogger
// can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for clmem and for every device of a live
// Context that accepts one. By default clmem produces no log output.
// Pass nil to restore the silent default.
//
// Log levels used by clmem:
//   - [slog.LevelDebug]: mapping strategy, session lifecycle, shadow copies
//   - [slog.LevelInfo]: context creation
//   - [slog.LevelWarn]: fallbacks (shadow instead of direct map, normal
//     texture instead of staging) and release errors
//
// Example:
//
//	clmem.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	contextsMu.Lock()
	defer contextsMu.Unlock()
	for c := range contexts {
		for _, dev := range c.devices {
			propagateLogger(dev, l)
		}
	}
}

// Logger returns the current logger used by clmem.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by devices that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

func propagateLogger(dev any, l *slog.Logger) {
	if ls, ok := dev.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}

// contexts holds the live contexts so SetLogger reaches their devices.
var (
	contextsMu sync.Mutex
	contexts   = make(map[*Context]struct{})
)
