package logging

import (
	"errors"
	"fmt"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field is a structured logging attribute.
type Field = zap.Field

// Logger is the structured logger used across the requisition packages.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
	Sync() error
}

// Format selects the log encoder.
type Format string

const (
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
)

// Config contains logger initialization inputs.
type Config struct {
	Level  string
	Format Format
}

// ZapLogger implements Logger on top of zap.
type ZapLogger struct {
	logger *zap.Logger
	level  zap.AtomicLevel
}

var _ Logger = (*ZapLogger)(nil)

// New builds a zap-backed logger writing to stderr.
func New(cfg Config) (*ZapLogger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var base zap.Config
	switch cfg.Format {
	case FormatConsole:
		base = zap.NewDevelopmentConfig()
		base.Encoding = string(FormatConsole)
	case FormatJSON, "":
		base = zap.NewProductionConfig()
		base.Encoding = string(FormatJSON)
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}
	base.Level = level
	base.DisableStacktrace = true
	base.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	base.OutputPaths = []string{"stderr"}

	built, err := base.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return &ZapLogger{logger: built, level: level}, nil
}

// NewFromZap wraps an existing zap logger.
func NewFromZap(logger *zap.Logger) *ZapLogger {
	return &ZapLogger{logger: logger, level: zap.NewAtomicLevelAt(zapcore.DebugLevel)}
}

// NewNop returns a logger that discards everything.
func NewNop() *ZapLogger {
	return &ZapLogger{logger: zap.NewNop(), level: zap.NewAtomicLevelAt(zapcore.FatalLevel)}
}

// ParseLevel maps a level name to a zap level; blank means info.
func ParseLevel(level string) (zap.AtomicLevel, error) {
	if strings.TrimSpace(level) == "" {
		return zap.NewAtomicLevelAt(zapcore.InfoLevel), nil
	}
	var parsed zapcore.Level
	if err := parsed.Set(strings.ToLower(level)); err != nil {
		return zap.AtomicLevel{}, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return zap.NewAtomicLevelAt(parsed), nil
}

func (l *ZapLogger) must() *zap.Logger {
	if l == nil || l.logger == nil {
		return zap.NewNop()
	}
	return l.logger
}

func (l *ZapLogger) Debug(msg string, fields ...Field) { l.must().Debug(msg, fields...) }
func (l *ZapLogger) Info(msg string, fields ...Field)  { l.must().Info(msg, fields...) }
func (l *ZapLogger) Warn(msg string, fields ...Field)  { l.must().Warn(msg, fields...) }
func (l *ZapLogger) Error(msg string, fields ...Field) { l.must().Error(msg, fields...) }

// With returns a child logger carrying the given fields.
func (l *ZapLogger) With(fields ...Field) Logger {
	child := &ZapLogger{logger: l.must().With(fields...)}
	if l != nil {
		child.level = l.level
	}
	return child
}

// Sync flushes buffered entries. Errors from syncing a terminal are ignored.
func (l *ZapLogger) Sync() error {
	err := l.must().Sync()
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		return nil
	}
	return err
}

// Level returns the runtime-adjustable level handle.
func (l *ZapLogger) Level() zap.AtomicLevel {
	return l.level
}

// String creates a string field.
func String(key, value string) Field { return zap.String(key, value) }

// Int creates an int field.
func Int(key string, value int) Field { return zap.Int(key, value) }

// Bool creates a bool field.
func Bool(key string, value bool) Field { return zap.Bool(key, value) }

// Stringer creates a field from a fmt.Stringer.
func Stringer(key string, value fmt.Stringer) Field { return zap.Stringer(key, value) }

// ID creates a uuid field.
func ID(key string, value uuid.UUID) Field { return zap.String(key, value.String()) }

// Err creates the conventional error field.
func Err(err error) Field { return zap.Error(err) }
