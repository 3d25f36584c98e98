// Package logging is the platform-wide structured logging contract and its
// zap-backed implementation. Every component receives a Logger through
// constructor injection rather than importing go.uber.org/zap directly, so
// the backing library stays swappable without touching business logic.
//
// cmd/*/main.go initializes logging in a fixed order: parse configuration,
// call NewLogger(cfg.Log), hand the result to logging.SetDefault, then
// construct every other component with the Logger injected.
package logging

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field is a typed key-value pair attached to a log entry. A concrete
// struct keeps the call-site API explicit (no variadic interface{} pairs to
// get out of order) and lets the zap adapter below skip reflection for the
// common cases.
type Field struct {
	Key   string
	Value interface{}
}

// String builds a string-valued Field.
func String(key, val string) Field { return Field{Key: key, Value: val} }

// Int builds an int-valued Field.
func Int(key string, val int) Field { return Field{Key: key, Value: val} }

// Int64 builds an int64-valued Field.
func Int64(key string, val int64) Field { return Field{Key: key, Value: val} }

// Float64 builds a float64-valued Field.
func Float64(key string, val float64) Field { return Field{Key: key, Value: val} }

// Bool builds a bool-valued Field.
func Bool(key string, val bool) Field { return Field{Key: key, Value: val} }

// Duration builds a time.Duration-valued Field.
func Duration(key string, val time.Duration) Field { return Field{Key: key, Value: val} }

// Any builds a Field from an arbitrary value. Reach for a typed constructor
// first; Any falls back to fmt.Sprintf for anything the adapter doesn't
// special-case.
func Any(key string, val interface{}) Field { return Field{Key: key, Value: val} }

// Err wraps err under the canonical "error" key. A nil err still produces a
// field (value "<nil>") so call sites never need a conditional around it.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: "<nil>"}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Logger is the structured logging contract every component depends on.
type Logger interface {
	// Debug emits a high-cardinality diagnostic entry, typically disabled
	// in production by setting Level to "info" or above.
	Debug(msg string, fields ...Field)

	// Info emits a routine operational entry.
	Info(msg string, fields ...Field)

	// Warn emits a recoverable abnormal condition worth a human's
	// attention but not affecting correctness.
	Warn(msg string, fields ...Field)

	// Error emits a failure that affects one operation but from which the
	// process continues.
	Error(msg string, fields ...Field)

	// Fatal emits a catastrophic entry and terminates the process.
	// Reserve for startup failures; never call mid-request.
	Fatal(msg string, fields ...Field)

	// With returns a child Logger that attaches fields to every
	// subsequent entry. The receiver is left unmodified.
	With(fields ...Field) Logger

	// Named returns a child Logger whose name has name appended, joined
	// by a period (e.g. "app" -> "app.http").
	Named(name string) Logger
}

// LogConfig carries the parameters NewLogger needs to construct a Logger,
// typically populated from the application configuration file.
type LogConfig struct {
	// Level is the minimum emitted severity: "debug", "info", "warn", or
	// "error" (case-insensitive). Unset or unrecognized defaults to "info".
	Level string `yaml:"level" json:"level"`

	// Format selects the output encoding: "json" for log-aggregation
	// pipelines, "console" (alias "text") for colorized local development
	// output. Unset or unrecognized defaults to "json".
	Format string `yaml:"format" json:"format"`

	// OutputPaths lists destinations for log entries ("stdout"/"stderr"
	// or file paths, created if absent). Defaults to ["stdout"].
	OutputPaths []string `yaml:"output_paths" json:"output_paths"`

	// ErrorOutputPaths lists destinations for zap's own internal errors
	// (e.g. a write failure). Defaults to ["stderr"].
	ErrorOutputPaths []string `yaml:"error_output_paths" json:"error_output_paths"`
}

func levelFromString(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func encoderConfigFor(format string) (encConfig zapcore.EncoderConfig, encoding string) {
	if format == "console" || format == "text" {
		encConfig = zap.NewDevelopmentEncoderConfig()
		encoding = "console"
	} else {
		encConfig = zap.NewProductionEncoderConfig()
		encoding = "json"
	}
	encConfig.TimeKey = "ts"
	encConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return encConfig, encoding
}

func withDefaults(cfg LogConfig) LogConfig {
	if len(cfg.OutputPaths) == 0 {
		cfg.OutputPaths = []string{"stdout"}
	}
	if len(cfg.ErrorOutputPaths) == 0 {
		cfg.ErrorOutputPaths = []string{"stderr"}
	}
	return cfg
}

// NewLogger builds a Logger backed by zap per cfg. It returns an error only
// when zap itself fails to build (e.g. an output path that cannot be
// opened).
func NewLogger(cfg LogConfig) (Logger, error) {
	cfg = withDefaults(cfg)
	encConfig, encoding := encoderConfigFor(cfg.Format)

	zapCfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(levelFromString(cfg.Level)),
		Development:      cfg.Format == "console",
		Encoding:         encoding,
		EncoderConfig:    encConfig,
		OutputPaths:      cfg.OutputPaths,
		ErrorOutputPaths: cfg.ErrorOutputPaths,
	}

	z, err := zapCfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("logging: build zap logger: %w", err)
	}
	return &zapLogger{z: z}, nil
}

// NewLoggerFromCore wraps an existing zapcore.Core, primarily so tests can
// assert against zaptest/observer-captured entries.
func NewLoggerFromCore(core zapcore.Core) Logger {
	return &zapLogger{z: zap.New(core, zap.AddCallerSkip(1))}
}

// zapLogger adapts *zap.Logger to the Logger interface, translating our
// Field slice to zap.Field values on every call.
type zapLogger struct {
	z *zap.Logger
}

func asZapField(f Field) zap.Field {
	switch v := f.Value.(type) {
	case string:
		return zap.String(f.Key, v)
	case int:
		return zap.Int(f.Key, v)
	case int64:
		return zap.Int64(f.Key, v)
	case float64:
		return zap.Float64(f.Key, v)
	case bool:
		return zap.Bool(f.Key, v)
	case time.Duration:
		return zap.Duration(f.Key, v)
	case error:
		return zap.NamedError(f.Key, v)
	default:
		return zap.Any(f.Key, v)
	}
}

func asZapFields(fields []Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, len(fields))
	for i, f := range fields {
		out[i] = asZapField(f)
	}
	return out
}

func (l *zapLogger) Debug(msg string, fields ...Field) { l.z.Debug(msg, asZapFields(fields)...) }
func (l *zapLogger) Info(msg string, fields ...Field)  { l.z.Info(msg, asZapFields(fields)...) }
func (l *zapLogger) Warn(msg string, fields ...Field)  { l.z.Warn(msg, asZapFields(fields)...) }
func (l *zapLogger) Error(msg string, fields ...Field) { l.z.Error(msg, asZapFields(fields)...) }
func (l *zapLogger) Fatal(msg string, fields ...Field) { l.z.Fatal(msg, asZapFields(fields)...) }

func (l *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{z: l.z.With(asZapFields(fields)...)}
}

func (l *zapLogger) Named(name string) Logger {
	return &zapLogger{z: l.z.Named(name)}
}

// nopLogger discards every entry. Safe for concurrent use; intended only
// for unit tests and benchmarks where log output adds noise, not value.
type nopLogger struct{}

func (nopLogger) Debug(string, ...Field)      {}
func (nopLogger) Info(string, ...Field)       {}
func (nopLogger) Warn(string, ...Field)       {}
func (nopLogger) Error(string, ...Field)      {}
func (nopLogger) Fatal(string, ...Field)      {}
func (n nopLogger) With(...Field) Logger { return n }
func (n nopLogger) Named(string) Logger  { return n }

// NewNopLogger returns a Logger that discards all log entries.
func NewNopLogger() Logger { return nopLogger{} }

// defaultLogger holds the process-wide Logger behind an atomic.Value so
// SetDefault/Default never race, without a dedicated mutex.
var defaultLogger atomic.Value

func init() {
	defaultLogger.Store(loggerBox{nopLogger{}})
}

// loggerBox indirects through atomic.Value, which requires every Store to
// carry the same concrete type; Logger itself is an interface, so it is
// boxed.
type loggerBox struct {
	Logger
}

// SetDefault replaces the process-wide default Logger. Safe to call
// concurrently, though in practice it is called once at startup before any
// goroutine reads Default().
func SetDefault(l Logger) {
	if l == nil {
		return
	}
	defaultLogger.Store(loggerBox{l})
}

// Default returns the process-wide default Logger. Prefer constructor
// injection; fall back to Default() only where that isn't possible (init
// functions, package-level variables).
func Default() Logger {
	return defaultLogger.Load().(loggerBox).Logger
}
