package logger

import (
	"context"
	"log/slog"
	"time"

	"github.com/abarorm/abarorm/utils"
)

type slogLogger struct {
	Logger *slog.Logger
	levels
}

// NewSlogLogger reports through a log/slog logger. Records carry the source
// of the first caller outside the library.
func NewSlogLogger(logger *slog.Logger, config Config) Interface {
	return &slogLogger{Logger: logger, levels: levels{config}}
}

func (l *slogLogger) LogMode(level LogLevel) Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

func (l *slogLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, Info, msg, data)
}

func (l *slogLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, Warn, msg, data)
}

func (l *slogLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, Error, msg, data)
}

func (l *slogLogger) message(ctx context.Context, level LogLevel, msg string, data []interface{}) {
	if l.enabled(level) {
		l.log(ctx, level, msg, slog.Any("data", data))
	}
}

func (l *slogLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	r, ok := l.report(begin, fc, err)
	if !ok {
		return
	}

	var attrs []slog.Attr
	r.fields(func(key string, value interface{}) {
		attrs = append(attrs, slog.Any(key, value))
	})
	l.log(ctx, r.level, r.message(), slog.Attr{Key: "trace", Value: slog.GroupValue(attrs...)})
}

func (l *slogLogger) log(ctx context.Context, level LogLevel, msg string, attrs ...slog.Attr) {
	if ctx == nil {
		ctx = context.Background()
	}

	slogLevel := slog.LevelInfo
	switch level {
	case Error:
		slogLevel = slog.LevelError
	case Warn:
		slogLevel = slog.LevelWarn
	}
	if !l.Logger.Enabled(ctx, slogLevel) {
		return
	}

	r := slog.NewRecord(time.Now(), slogLevel, msg, utils.CallerFrame().PC)
	r.AddAttrs(attrs...)
	_ = l.Logger.Handler().Handle(ctx, r)
}
