package logger

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/abarorm/abarorm/utils"
)

// ZapLogger reports through a zap.Logger
type ZapLogger struct {
	Logger *zap.Logger
	levels
}

func NewZapLogger(logger *zap.Logger, config Config) Interface {
	return &ZapLogger{Logger: logger, levels: levels{config}}
}

// NewZapWriterLogger writes JSON lines to w
func NewZapWriterLogger(w io.Writer, config Config) Interface {
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(w),
		ZapLevel(config.LogLevel),
	)
	return NewZapLogger(zap.New(core), config)
}

func (l *ZapLogger) LogMode(level LogLevel) Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

func (l *ZapLogger) log(level LogLevel, msg string, data []interface{}) {
	if !l.enabled(level) {
		return
	}
	fields := []zap.Field{zap.String("file", utils.FileWithLineNum())}
	if len(data) > 0 {
		fields = append(fields, zap.Any("data", data))
	}
	l.Logger.Log(ZapLevel(level), msg, fields...)
}

func (l *ZapLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.log(Info, msg, data)
}

func (l *ZapLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.log(Warn, msg, data)
}

func (l *ZapLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.log(Error, msg, data)
}

func (l *ZapLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	r, ok := l.report(begin, fc, err)
	if !ok {
		return
	}

	fields := []zap.Field{zap.String("file", utils.FileWithLineNum())}
	r.fields(func(key string, value interface{}) {
		fields = append(fields, zap.Any(key, value))
	})
	l.Logger.Log(ZapLevel(r.level), r.message(), fields...)
}

// ZapLevel maps a LogLevel to zap. Silent maps above every level used here.
func ZapLevel(level LogLevel) zapcore.Level {
	switch level {
	case Silent:
		return zapcore.DPanicLevel
	case Error:
		return zapcore.ErrorLevel
	case Warn:
		return zapcore.WarnLevel
	}
	return zapcore.InfoLevel
}
