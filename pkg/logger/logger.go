// Package logger is the process-wide structured logger. Events are emitted as
// single JSON lines with a stable event name and a flat field map, e.g.
//
//	logger.InfoJ("pairing_cache", map[string]any{"op": "verify", "result": "ok"})
package logger

import (
	"io"
	"os"
	"sort"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu    sync.RWMutex
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	base  = build(zapcore.Lock(os.Stderr))
)

func build(w zapcore.WriteSyncer) *zap.Logger {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.MessageKey = "event"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), w, level)
	return zap.New(core)
}

func current() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// SetOutput redirects all log lines to w and returns a func restoring the
// previous destination. Used by tests to capture output.
func SetOutput(w io.Writer) (restore func()) {
	mu.Lock()
	prev := base
	base = build(zapcore.AddSync(w))
	mu.Unlock()
	return func() {
		mu.Lock()
		base = prev
		mu.Unlock()
	}
}

// SetLevel accepts zap level names: debug, info, warn, error.
func SetLevel(name string) error {
	return level.UnmarshalText([]byte(name))
}

// Sync flushes buffered entries.
func Sync() error { return current().Sync() }

func Info(msg string)  { current().Info(msg) }
func Warn(msg string)  { current().Warn(msg) }
func Error(msg string) { current().Error(msg) }
func Debug(msg string) { current().Debug(msg) }

// InfoJ logs event with the given fields at info level.
func InfoJ(event string, fields map[string]any) { current().Info(event, toFields(fields)...) }

// ErrorJ logs event with the given fields at error level.
func ErrorJ(event string, fields map[string]any) { current().Error(event, toFields(fields)...) }

// WarnJ logs event with the given fields at warn level.
func WarnJ(event string, fields map[string]any) { current().Warn(event, toFields(fields)...) }

// DebugJ is for per-item traces that are too chatty for info.
func DebugJ(event string, fields map[string]any) {
	l := current()
	if !l.Core().Enabled(zapcore.DebugLevel) {
		return
	}
	l.Debug(event, toFields(fields)...)
}

func toFields(m map[string]any) []zap.Field {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		out = append(out, zap.Any(k, m[k]))
	}
	return out
}
