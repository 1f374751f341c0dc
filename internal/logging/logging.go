// Package logging provides a small structured-logging adapter over zap so
// the rest of the tree depends on an interface, not zap directly. Console
// output uses zap's development encoder for human-readable lines; file
// output (optional) uses JSON plus lumberjack rotation.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the interface every component depends on.
type Logger interface {
	Info(msg string, fields ...zap.Field)
	Debug(msg string, fields ...zap.Field)
	Error(msg string, err error, fields ...zap.Field)
	With(fields ...zap.Field) Logger
}

type zapLogger struct {
	logger *zap.Logger
}

var _ Logger = (*zapLogger)(nil)

func (z *zapLogger) Info(msg string, fields ...zap.Field) {
	z.logger.Info(msg, fields...)
}

func (z *zapLogger) Debug(msg string, fields ...zap.Field) {
	z.logger.Debug(msg, fields...)
}

func (z *zapLogger) Error(msg string, err error, fields ...zap.Field) {
	z.logger.Error(msg, append(fields, zap.Error(err))...)
}

func (z *zapLogger) With(fields ...zap.Field) Logger {
	return &zapLogger{logger: z.logger.With(fields...)}
}

// NewConsole returns a Logger writing human-readable lines to stderr.
// debug enables debug-level output; otherwise info-and-above.
func NewConsole(debug bool) Logger {
	cfg := zap.NewDevelopmentConfig()
	if !debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
	return &zapLogger{logger: logger}
}

// NewFile returns a Logger writing JSON lines to a rotating file.
func NewFile(filename string, maxSizeMB, maxBackups, maxAgeDays int, compress bool) Logger {
	hook := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   compress,
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(hook),
		zapcore.DebugLevel,
	)
	logger := zap.New(core, zap.AddCallerSkip(1))
	return &zapLogger{logger: logger}
}

// NewTee logs to both a and b.
func NewTee(a, b Logger) Logger {
	return &teeLogger{a: a, b: b}
}

type teeLogger struct {
	a, b Logger
}

func (t *teeLogger) Info(msg string, fields ...zap.Field) {
	t.a.Info(msg, fields...)
	t.b.Info(msg, fields...)
}

func (t *teeLogger) Debug(msg string, fields ...zap.Field) {
	t.a.Debug(msg, fields...)
	t.b.Debug(msg, fields...)
}

func (t *teeLogger) Error(msg string, err error, fields ...zap.Field) {
	t.a.Error(msg, err, fields...)
	t.b.Error(msg, err, fields...)
}

func (t *teeLogger) With(fields ...zap.Field) Logger {
	return &teeLogger{a: t.a.With(fields...), b: t.b.With(fields...)}
}

// Noop returns a Logger that discards everything; useful for tests.
func Noop() Logger {
	return &zapLogger{logger: zap.NewNop()}
}
