package log

import (
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/xerrors"
)

// Level represents the severity level of a log message.
type Level int

// Log levels
const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a textual level (debug|info|warn|error) to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, xerrors.Errorf("unknown log level '%s'", s)
	}
}

// Format selects how entries are rendered.
type Format string

const (
	// JSONFormat writes one JSON object per line.
	JSONFormat Format = "json"
	// TextFormat writes human readable console lines.
	TextFormat Format = "text"
)

// ParseFormat converts a textual format to a Format. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case JSONFormat:
		return JSONFormat, nil
	case TextFormat, "":
		return TextFormat, nil
	default:
		return TextFormat, xerrors.Errorf("unknown log format '%s'", s)
	}
}

// Context keys
const (
	ComponentKey = "component"
	ErrorKey     = "error"
)

// Logger defines the core logging interface for txlog components.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// With adds multiple fields to the logger.
	With(fields ...Field) Logger

	// WithComponent tags logs with a component name
	WithComponent(component string) Logger

	// WithError attaches an error to every entry of the returned logger.
	WithError(err error) Logger

	// SetLevel sets the minimum log level
	SetLevel(level Level)

	// GetLevel returns the current minimum log level
	GetLevel() Level
}

// LoggerOption is a function that configures a logger.
type LoggerOption func(*loggerConfig)

type loggerConfig struct {
	level  Level
	format Format
	out    io.Writer
}

// WithLevel sets the minimum log level.
func WithLevel(level Level) LoggerOption {
	return func(c *loggerConfig) {
		c.level = level
	}
}

// WithFormat sets the output format.
func WithFormat(format Format) LoggerOption {
	return func(c *loggerConfig) {
		c.format = format
	}
}

// WithOutput sets the destination writer.
func WithOutput(out io.Writer) LoggerOption {
	return func(c *loggerConfig) {
		c.out = out
	}
}

// levelRef is shared by a logger and every child derived from it, so that
// SetLevel on the root applies to all of them. It is read on every write.
type levelRef struct {
	v atomic.Int32
}

func newLevelRef(level Level) *levelRef {
	ref := &levelRef{}
	ref.set(level)
	return ref
}

func (r *levelRef) get() Level {
	return Level(r.v.Load())
}

func (r *levelRef) set(level Level) {
	r.v.Store(int32(level))
}

// BaseLogger implements the Logger interface on top of zerolog.
type BaseLogger struct {
	zl    zerolog.Logger
	level *levelRef
}

// NewLogger creates a new logger with the given options. Defaults to info
// level, text format and stderr.
func NewLogger(options ...LoggerOption) Logger {
	cfg := loggerConfig{
		level:  InfoLevel,
		format: TextFormat,
		out:    os.Stderr,
	}

	for _, option := range options {
		option(&cfg)
	}

	out := cfg.out
	if cfg.format == TextFormat {
		out = zerolog.ConsoleWriter{
			Out:        cfg.out,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		}
	}

	zl := zerolog.New(out).With().Timestamp().Logger()

	return &BaseLogger{
		zl:    zl,
		level: newLevelRef(cfg.level),
	}
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() Logger {
	return &BaseLogger{
		zl:    zerolog.Nop(),
		level: newLevelRef(ErrorLevel),
	}
}

// Debug implements Logger.
func (l *BaseLogger) Debug(msg string, fields ...Field) {
	l.write(DebugLevel, msg, fields)
}

// Info implements Logger.
func (l *BaseLogger) Info(msg string, fields ...Field) {
	l.write(InfoLevel, msg, fields)
}

// Warn implements Logger.
func (l *BaseLogger) Warn(msg string, fields ...Field) {
	l.write(WarnLevel, msg, fields)
}

// Error implements Logger.
func (l *BaseLogger) Error(msg string, fields ...Field) {
	l.write(ErrorLevel, msg, fields)
}

// With implements Logger.
func (l *BaseLogger) With(fields ...Field) Logger {
	ctx := l.zl.With()
	for _, f := range fields {
		ctx = ctx.Interface(f.Key, f.Value)
	}

	return &BaseLogger{zl: ctx.Logger(), level: l.level}
}

// WithComponent implements Logger.
func (l *BaseLogger) WithComponent(component string) Logger {
	return &BaseLogger{zl: l.zl.With().Str(ComponentKey, component).Logger(), level: l.level}
}

// WithError implements Logger.
func (l *BaseLogger) WithError(err error) Logger {
	return &BaseLogger{zl: l.zl.With().AnErr(ErrorKey, err).Logger(), level: l.level}
}

// SetLevel implements Logger.
func (l *BaseLogger) SetLevel(level Level) {
	l.level.set(level)
}

// GetLevel implements Logger.
func (l *BaseLogger) GetLevel() Level {
	return l.level.get()
}

func (l *BaseLogger) write(level Level, msg string, fields []Field) {
	if level < l.level.get() {
		return
	}

	var evt *zerolog.Event
	switch level {
	case DebugLevel:
		evt = l.zl.Debug()
	case InfoLevel:
		evt = l.zl.Info()
	case WarnLevel:
		evt = l.zl.Warn()
	default:
		evt = l.zl.Error()
	}

	for _, f := range fields {
		switch v := f.Value.(type) {
		case error:
			evt = evt.AnErr(f.Key, v)
		case time.Duration:
			evt = evt.Dur(f.Key, v)
		default:
			evt = evt.Interface(f.Key, v)
		}
	}

	evt.Msg(msg)
}
