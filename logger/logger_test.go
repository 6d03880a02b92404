package logger

import (
	"bytes"
	"context"
	"errors"
	"log"
	"log/slog"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newZapBuffer(buf *bytes.Buffer) *zap.Logger {
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	return zap.New(zapcore.NewCore(encoder, zapcore.AddSync(buf), zapcore.DebugLevel))
}

func adapters(buf *bytes.Buffer, config Config) map[string]Interface {
	logrusLogger := logrus.New()
	logrusLogger.SetOutput(buf)
	return map[string]Interface{
		"default": New(log.New(buf, "", 0), config),
		"zap":     NewZapLogger(newZapBuffer(buf), config),
		"logrus":  NewLogrusLogger(logrusLogger, config),
		"zerolog": NewZerologLogger(zerolog.New(buf), config),
		"slog":    NewSlogLogger(slog.New(slog.NewJSONHandler(buf, nil)), config),
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		level LogLevel
		ok    bool
	}{
		{"silent", Silent, true},
		{"ERROR", Error, true},
		{"warn", Warn, true},
		{"info", Info, true},
		{"", Warn, true},
		{"debug", Warn, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, err := ParseLevel(tt.name)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.level, level)
		})
	}
}

func TestLogModeCopies(t *testing.T) {
	var buf bytes.Buffer
	for name, l := range adapters(&buf, Config{LogLevel: Error}) {
		t.Run(name, func(t *testing.T) {
			buf.Reset()
			l.LogMode(Info).Info(context.Background(), "after log mode")
			assert.Contains(t, buf.String(), "after log mode")

			buf.Reset()
			l.Info(context.Background(), "original stays quiet")
			assert.Empty(t, buf.String())
		})
	}
}

func TestTrace(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	config := Config{LogLevel: Info, SlowThreshold: 100 * time.Millisecond}

	for name, l := range adapters(&buf, config) {
		t.Run(name+"/normal", func(t *testing.T) {
			buf.Reset()
			l.Trace(ctx, time.Now(), func() (string, int64) {
				return `SELECT * FROM "user" WHERE "id" = 1`, 1
			}, nil)
			assert.Contains(t, buf.String(), "SELECT * FROM")
		})

		t.Run(name+"/slow", func(t *testing.T) {
			buf.Reset()
			l.Trace(ctx, time.Now().Add(-time.Second), func() (string, int64) {
				return "SELECT count(*) FROM post", -1
			}, nil)
			assert.Contains(t, buf.String(), "SLOW SQL")
		})

		t.Run(name+"/error", func(t *testing.T) {
			buf.Reset()
			l.Trace(ctx, time.Now(), func() (string, int64) {
				return "INSERT INTO post DEFAULT VALUES", 0
			}, errors.New("constraint failed"))
			assert.Contains(t, buf.String(), "constraint failed")
		})
	}
}

func TestTraceSilent(t *testing.T) {
	var buf bytes.Buffer
	for name, l := range adapters(&buf, Config{LogLevel: Silent}) {
		t.Run(name, func(t *testing.T) {
			buf.Reset()
			l.Trace(context.Background(), time.Now(), func() (string, int64) {
				return "SELECT 1", 1
			}, errors.New("boom"))
			assert.Empty(t, buf.String())
		})
	}
}

func TestTraceLevel(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		elapsed time.Duration
		err     error
		level   LogLevel
		ok      bool
	}{
		{"silent", Config{LogLevel: Silent}, 0, errors.New("x"), Silent, false},
		{"error", Config{LogLevel: Error}, 0, errors.New("x"), Error, true},
		{"not found ignored", Config{LogLevel: Error, IgnoreRecordNotFoundError: true}, 0, ErrRecordNotFound, Silent, false},
		{"slow", Config{LogLevel: Warn, SlowThreshold: time.Millisecond}, time.Second, nil, Warn, true},
		{"fast at warn", Config{LogLevel: Warn, SlowThreshold: time.Second}, time.Millisecond, nil, Silent, false},
		{"info", Config{LogLevel: Info}, 0, nil, Info, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, ok := traceLevel(tt.config, tt.elapsed, tt.err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.level, level)
		})
	}
}

func TestParamsFilter(t *testing.T) {
	var buf bytes.Buffer
	for name, l := range adapters(&buf, Config{ParameterizedQueries: true}) {
		t.Run(name, func(t *testing.T) {
			filter, ok := l.(ParamsFilter)
			require.True(t, ok)
			sql, params := filter.ParamsFilter(context.Background(), "SELECT ?", 1)
			assert.Equal(t, "SELECT ?", sql)
			assert.Nil(t, params)
		})
	}
}

func TestLevelMappings(t *testing.T) {
	assert.Equal(t, zapcore.ErrorLevel, ZapLevel(Error))
	assert.Equal(t, zapcore.InfoLevel, ZapLevel(Info))
	assert.Equal(t, logrus.WarnLevel, LogrusLevel(Warn))
	assert.Equal(t, zerolog.Disabled, ZerologLevel(Silent))
}
