package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/abarorm/abarorm/utils"
)

// ZerologLogger reports through a zerolog.Logger
type ZerologLogger struct {
	Logger zerolog.Logger
	levels
}

func NewZerologLogger(logger zerolog.Logger, config Config) Interface {
	return &ZerologLogger{Logger: logger, levels: levels{config}}
}

// NewZerologConsoleLogger writes human readable lines to out, stderr when nil
func NewZerologConsoleLogger(out io.Writer, config Config) Interface {
	if out == nil {
		out = os.Stderr
	}
	console := zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = out
		w.NoColor = !config.Colorful
		w.TimeFormat = time.RFC3339
	})
	logger := zerolog.New(console).Level(ZerologLevel(config.LogLevel)).With().Timestamp().Logger()
	return NewZerologLogger(logger, config)
}

func (l *ZerologLogger) LogMode(level LogLevel) Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

func (l *ZerologLogger) event(ctx context.Context, level LogLevel) *zerolog.Event {
	event := l.Logger.WithLevel(ZerologLevel(level)).Str("file", utils.FileWithLineNum())
	if ctx != nil {
		event = event.Ctx(ctx)
	}
	return event
}

func (l *ZerologLogger) log(ctx context.Context, level LogLevel, msg string, data []interface{}) {
	if !l.enabled(level) {
		return
	}
	event := l.event(ctx, level)
	if len(data) > 0 {
		event = event.Interface("data", data)
	}
	event.Msg(msg)
}

func (l *ZerologLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.log(ctx, Info, msg, data)
}

func (l *ZerologLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.log(ctx, Warn, msg, data)
}

func (l *ZerologLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.log(ctx, Error, msg, data)
}

func (l *ZerologLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	r, ok := l.report(begin, fc, err)
	if !ok {
		return
	}

	event := l.event(ctx, r.level)
	r.fields(func(key string, value interface{}) {
		event = event.Interface(key, value)
	})
	event.Msg(r.message())
}

// ZerologLevel maps a LogLevel to zerolog; Silent disables the logger
func ZerologLevel(level LogLevel) zerolog.Level {
	switch level {
	case Silent:
		return zerolog.Disabled
	case Error:
		return zerolog.ErrorLevel
	case Warn:
		return zerolog.WarnLevel
	}
	return zerolog.InfoLevel
}
