package logger

import (
	"context"
	"time"
)

// levels is the part shared by the structured adapters
type levels struct {
	Config
}

func (l levels) enabled(level LogLevel) bool {
	return l.LogLevel >= level
}

// ParamsFilter drops the bound parameters when ParameterizedQueries is set
func (l levels) ParamsFilter(ctx context.Context, sql string, params ...interface{}) (string, []interface{}) {
	if l.ParameterizedQueries {
		return sql, nil
	}
	return sql, params
}

// report evaluates fc only when the statement is going to be logged
func (l levels) report(begin time.Time, fc func() (string, int64), err error) (report, bool) {
	elapsed := time.Since(begin)
	level, ok := traceLevel(l.Config, elapsed, err)
	if !ok {
		return report{}, false
	}

	sql, rows := fc()
	r := report{level: level, sql: sql, rows: rows, elapsed: elapsed}
	switch level {
	case Error:
		r.err = err
	case Warn:
		r.slowThreshold = l.SlowThreshold
	}
	return r, true
}

// report is one traced statement
type report struct {
	level         LogLevel
	sql           string
	rows          int64
	elapsed       time.Duration
	err           error
	slowThreshold time.Duration
}

func (r report) message() string {
	if r.level == Warn {
		return "SLOW SQL executed"
	}
	return "SQL executed"
}

// fields calls fn with each attribute of the report, rows only when known
func (r report) fields(fn func(key string, value interface{})) {
	fn("duration", durationString(r.elapsed))
	fn("sql", r.sql)
	if r.rows != -1 {
		fn("rows", r.rows)
	}
	if r.err != nil {
		fn("error", r.err.Error())
	}
	if r.slowThreshold > 0 {
		fn("slow_threshold", r.slowThreshold.String())
	}
}
