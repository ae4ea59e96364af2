// Package logger provides structured logging for hierag.
// A Logger is created once by the entry point and handed to every
// component that logs; verbose mode lowers the level to debug so users
// can follow the indexing and retrieval pipelines.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// redacted replaces values of sensitive keys.
const redacted = "[REDACTED]"

// Options configures a Logger.
type Options struct {
	// Verbose enables debug output. Otherwise only warnings and errors are written.
	Verbose bool

	// Output is where log lines go. Defaults to os.Stderr.
	Output io.Writer

	// JSON selects JSON encoding instead of console text.
	JSON bool
}

// Logger wraps a zap SugaredLogger with key/value helpers.
// A nil *Logger discards everything.
type Logger struct {
	sugar *zap.SugaredLogger
}

// New creates a Logger from options.
func New(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	level := zapcore.WarnLevel
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	encCfg := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		NameKey:        "logger",
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		LineEnding:     zapcore.DefaultLineEnding,
	}
	var enc zapcore.Encoder
	if opts.JSON {
		encCfg.TimeKey = "ts"
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.ConsoleSeparator = " "
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(out), level)
	return &Logger{sugar: zap.New(core).Sugar()}
}

// FromZap wraps an existing zap logger.
func FromZap(z *zap.Logger) *Logger {
	return &Logger{sugar: z.Sugar()}
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

// Debug logs a debug message with key/value pairs.
func (l *Logger) Debug(msg string, keysAndValues ...any) {
	if l == nil {
		return
	}
	l.sugar.Debugw(msg, sanitize(keysAndValues)...)
}

// Info logs an informational message with key/value pairs.
func (l *Logger) Info(msg string, keysAndValues ...any) {
	if l == nil {
		return
	}
	l.sugar.Infow(msg, sanitize(keysAndValues)...)
}

// Warn logs a warning with key/value pairs.
func (l *Logger) Warn(msg string, keysAndValues ...any) {
	if l == nil {
		return
	}
	l.sugar.Warnw(msg, sanitize(keysAndValues)...)
}

// Error logs an error with key/value pairs.
func (l *Logger) Error(msg string, keysAndValues ...any) {
	if l == nil {
		return
	}
	l.sugar.Errorw(msg, sanitize(keysAndValues)...)
}

// Section marks the start of a pipeline stage in debug output.
func (l *Logger) Section(name string) {
	if l == nil {
		return
	}
	l.sugar.Debug(fmt.Sprintf("=== %s ===", name))
}

// With returns a child Logger that adds the given pairs to every entry.
func (l *Logger) With(keysAndValues ...any) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{sugar: l.sugar.With(sanitize(keysAndValues)...)}
}

// Named returns a child Logger with a component name.
func (l *Logger) Named(name string) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{sugar: l.sugar.Named(name)}
}

// Enabled reports whether debug output is on.
func (l *Logger) Enabled() bool {
	if l == nil {
		return false
	}
	return l.sugar.Desugar().Core().Enabled(zapcore.DebugLevel)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	if l == nil {
		return nil
	}
	return l.sugar.Sync()
}

func sanitize(kv []any) []any {
	if len(kv) == 0 {
		return kv
	}
	out := make([]any, len(kv))
	copy(out, kv)
	for i := 0; i+1 < len(out); i += 2 {
		key, ok := out[i].(string)
		if ok && isSensitive(key) {
			out[i+1] = redacted
		}
	}
	return out
}

func isSensitive(key string) bool {
	k := strings.ToLower(key)
	for _, s := range []string{"api_key", "apikey", "token", "secret", "password", "dsn"} {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}
