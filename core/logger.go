package core

import (
	"fmt"
	"log"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logging interface every ambient log call in
// this package goes through, kept identical in shape to the teacher's
// core.Logger so swapping backends never touches call sites.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field is a key-value pair for structured logging.
type Field struct {
	Key   string
	Value any
}

// F creates a Field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// DefaultLogger is the dependency-free fallback, kept for parity with
// the teacher and for tests that don't wire up a zap logger.
type DefaultLogger struct{}

// NewDefaultLogger creates a DefaultLogger.
func NewDefaultLogger() *DefaultLogger { return &DefaultLogger{} }

func (l *DefaultLogger) Debug(msg string, fields ...Field) { l.log("DEBUG", msg, fields...) }
func (l *DefaultLogger) Info(msg string, fields ...Field)  { l.log("INFO", msg, fields...) }
func (l *DefaultLogger) Warn(msg string, fields ...Field)  { l.log("WARN", msg, fields...) }
func (l *DefaultLogger) Error(msg string, fields ...Field) { l.log("ERROR", msg, fields...) }

func (l *DefaultLogger) log(level, msg string, fields ...Field) {
	logMsg := fmt.Sprintf("[%s] %s", level, msg)
	if len(fields) > 0 {
		logMsg += " {"
		for i, f := range fields {
			if i > 0 {
				logMsg += ", "
			}
			logMsg += fmt.Sprintf("%s: %v", f.Key, f.Value)
		}
		logMsg += "}"
	}
	log.Println(logMsg)
}

// NoOpLogger discards everything, for tests that don't care about logs.
type NoOpLogger struct{}

func NewNoOpLogger() *NoOpLogger { return &NoOpLogger{} }

func (l *NoOpLogger) Debug(msg string, fields ...Field) {}
func (l *NoOpLogger) Info(msg string, fields ...Field)  {}
func (l *NoOpLogger) Warn(msg string, fields ...Field)  {}
func (l *NoOpLogger) Error(msg string, fields ...Field) {}

// ZapLogger adapts a *zap.Logger to core.Logger (SPEC_FULL.md §11.1):
// the structured-logging backend used across the example corpus, as an
// alternative to DefaultLogger's log.Println formatter. DefaultLogger
// remains the default that DefaultSchedulerConfig installs.
type ZapLogger struct {
	z *zap.Logger
}

// NewZapLogger wraps an existing zap logger.
func NewZapLogger(z *zap.Logger) *ZapLogger {
	if z == nil {
		z = zap.NewNop()
	}
	return &ZapLogger{z: z}
}

// NewProductionZapLogger builds a zap.Logger with production defaults
// and wraps it, for callers that don't already have one configured.
func NewProductionZapLogger() (*ZapLogger, error) {
	z, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return NewZapLogger(z), nil
}

func toZapFields(fields []Field) []zapcore.Field {
	zf := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		zf[i] = zap.Any(f.Key, f.Value)
	}
	return zf
}

func (l *ZapLogger) Debug(msg string, fields ...Field) { l.z.Debug(msg, toZapFields(fields)...) }
func (l *ZapLogger) Info(msg string, fields ...Field)  { l.z.Info(msg, toZapFields(fields)...) }
func (l *ZapLogger) Warn(msg string, fields ...Field)  { l.z.Warn(msg, toZapFields(fields)...) }
func (l *ZapLogger) Error(msg string, fields ...Field) { l.z.Error(msg, toZapFields(fields)...) }
