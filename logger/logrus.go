package logger

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/abarorm/abarorm/utils"
)

// LogrusLogger reports through a logrus.Logger
type LogrusLogger struct {
	Logger *logrus.Logger
	levels
}

func NewLogrusLogger(logger *logrus.Logger, config Config) Interface {
	return &LogrusLogger{Logger: logger, levels: levels{config}}
}

func (l *LogrusLogger) LogMode(level LogLevel) Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

func (l *LogrusLogger) entry(ctx context.Context, fields logrus.Fields) *logrus.Entry {
	fields["file"] = utils.FileWithLineNum()
	entry := l.Logger.WithFields(fields)
	if ctx != nil {
		entry = entry.WithContext(ctx)
	}
	return entry
}

func (l *LogrusLogger) log(ctx context.Context, level LogLevel, msg string, data []interface{}) {
	if !l.enabled(level) {
		return
	}
	fields := logrus.Fields{}
	if len(data) > 0 {
		fields["data"] = data
	}
	l.entry(ctx, fields).Log(LogrusLevel(level), msg)
}

func (l *LogrusLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.log(ctx, Info, msg, data)
}

func (l *LogrusLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.log(ctx, Warn, msg, data)
}

func (l *LogrusLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.log(ctx, Error, msg, data)
}

func (l *LogrusLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	r, ok := l.report(begin, fc, err)
	if !ok {
		return
	}

	fields := logrus.Fields{}
	r.fields(func(key string, value interface{}) {
		fields[key] = value
	})
	l.entry(ctx, fields).Log(LogrusLevel(r.level), r.message())
}

// LogrusLevel maps a LogLevel to logrus. Silent keeps only panics.
func LogrusLevel(level LogLevel) logrus.Level {
	switch level {
	case Silent:
		return logrus.PanicLevel
	case Error:
		return logrus.ErrorLevel
	case Warn:
		return logrus.WarnLevel
	}
	return logrus.InfoLevel
}
