package texcache

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/texcache/backend"
	"github.com/gogpu/texcache/backend/software"
	"github.com/gogpu/texcache/backend/wgpu"
	"github.com/gogpu/texcache/descriptor"
	"github.com/gogpu/texcache/resolve"
	"github.com/gogpu/texcache/texture"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely.
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

func init() {
	loggerPtr.Store(newNopLogger())
}

// packageLoggers are the SetLogger functions of every package that logs.
var packageLoggers = []func(*slog.Logger){
	texture.SetLogger,
	resolve.SetLogger,
	descriptor.SetLogger,
	backend.SetLogger,
	software.SetLogger,
	wgpu.SetLogger,
}

// SetLogger configures the logger for texcache and all its sub-packages.
// By default, texcache produces no log output.
//
// SetLogger is safe for concurrent use. Pass nil to disable logging.
//
// Log levels used by texcache:
//   - [slog.LevelDebug]: per-texture events (creation, loads, invalidation)
//   - [slog.LevelInfo]: lifecycle events (cache created, device opened)
//   - [slog.LevelWarn]: unsupported formats, exhausted resources
//   - [slog.LevelError]: broken internal invariants
//
// Example:
//
//	texcache.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	for _, set := range packageLoggers {
		set(l)
	}
}

// Logger returns the current logger used by texcache.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
