package abarorm

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/abarorm/abarorm/clause"
	"github.com/abarorm/abarorm/logger"
	"github.com/abarorm/abarorm/schema"
)

// Config abarorm config
type Config struct {
	// NamingStrategy tables, columns naming strategy
	NamingStrategy schema.Namer
	// Logger
	Logger logger.Interface
	// NowFunc the function to be used when creating a new timestamp
	NowFunc func() time.Time
	// DryRun generate sql without execute
	DryRun bool
	// ClauseBuilders overrides the rendering of clauses by name
	ClauseBuilders map[string]clause.ClauseBuilder

	// Dialector database dialector
	Dialector

	cacheStore *sync.Map
	registry   *registry
}

// DB is the handle models are registered against. A DB returned by
// Connection is pinned to one connection.
type DB struct {
	*Config
	pool ConnPool
}

// Open initialize db session based on dialector. The configuration is checked
// but no connection is made.
func Open(dialector Dialector, config *Config) (db *DB, err error) {
	if config == nil {
		config = &Config{}
	}

	if dialector != nil {
		config.Dialector = dialector
	}
	if config.Dialector == nil {
		return nil, fmt.Errorf("%w: no dialector", ErrInvalidConfig)
	}

	if config.NamingStrategy == nil {
		config.NamingStrategy = schema.NamingStrategy{}
	}

	if config.Logger == nil {
		config.Logger = logger.Default
	}

	if config.NowFunc == nil {
		config.NowFunc = func() time.Time { return time.Now().Local() }
	}

	if config.ClauseBuilders == nil {
		config.ClauseBuilders = map[string]clause.ClauseBuilder{}
	}

	if config.cacheStore == nil {
		config.cacheStore = &sync.Map{}
	}

	if config.registry == nil {
		config.registry = newRegistry()
	}

	db = &DB{Config: config}
	if err = config.Dialector.Initialize(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Debug returns a DB logging every statement
func (db *DB) Debug() *DB {
	config := *db.Config
	config.Logger = db.Logger.LogMode(logger.Info)
	return &DB{Config: &config, pool: db.pool}
}

// Migrator returns the dialect migrator
func (db *DB) Migrator() Migrator {
	return db.Dialector.Migrator(db)
}

// Ping opens a connection and checks it is alive
func (db *DB) Ping(ctx context.Context) error {
	return db.withConn(ctx, func(pool ConnPool) error {
		if pinger, ok := pool.(interface{ PingContext(context.Context) error }); ok {
			if err := pinger.PingContext(ctx); err != nil {
				return fmt.Errorf("%w: %w", ErrConnection, err)
			}
		}
		return nil
	})
}

// Connection runs fn with a DB pinned to a single connection
func (db *DB) Connection(ctx context.Context, fn func(tx *DB) error) error {
	return db.withConn(ctx, func(pool ConnPool) error {
		if db.pool != nil {
			return fn(db)
		}

		sqlxDB, ok := pool.(*sqlx.DB)
		if !ok {
			return fn(&DB{Config: db.Config, pool: pool})
		}

		conn, err := sqlxDB.Connx(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrConnection, err)
		}
		defer conn.Close()

		return fn(&DB{Config: db.Config, pool: conn})
	})
}

// withConn hands fn the pinned connection, or a fresh one closed afterwards
// unless the dialector does not own it
func (db *DB) withConn(ctx context.Context, fn func(pool ConnPool) error) error {
	if db.pool != nil {
		return fn(db.pool)
	}

	conn, owned, err := db.Dialector.Connect(ctx)
	if err != nil {
		if errors.Is(err, ErrConnection) || errors.Is(err, ErrInvalidConfig) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}

	sqlxDB := sqlx.NewDb(conn, db.Dialector.Name())
	if owned {
		defer sqlxDB.Close()
	}
	return fn(sqlxDB)
}

// Exec executes a statement on a connection of its own
func (db *DB) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	var result sql.Result
	err := db.withConn(ctx, func(pool ConnPool) (err error) {
		result, err = db.exec(ctx, pool, query, args...)
		return err
	})
	return result, err
}

// Query runs a query on a connection of its own and returns its rows keyed
// by column name
func (db *DB) Query(ctx context.Context, query string, args ...interface{}) ([]map[string]interface{}, error) {
	var rows []map[string]interface{}
	err := db.withConn(ctx, func(pool ConnPool) (err error) {
		rows, err = db.query(ctx, pool, query, args...)
		return err
	})
	return rows, err
}

func (db *DB) exec(ctx context.Context, pool ConnPool, query string, args ...interface{}) (sql.Result, error) {
	begin := time.Now()
	var (
		result       sql.Result = driver.RowsAffected(0)
		rowsAffected int64      = -1
		err          error
	)

	if !db.DryRun {
		if result, err = pool.ExecContext(ctx, query, args...); err == nil {
			rowsAffected, _ = result.RowsAffected()
		}
	}

	err = db.translate(err)
	db.trace(ctx, begin, query, args, rowsAffected, err)
	return result, err
}

func (db *DB) query(ctx context.Context, pool ConnPool, query string, args ...interface{}) ([]map[string]interface{}, error) {
	begin := time.Now()
	var results []map[string]interface{}

	var err error
	if !db.DryRun {
		results, err = scanRows(ctx, pool, query, args...)
	}

	err = db.translate(err)
	db.trace(ctx, begin, query, args, int64(len(results)), err)
	return results, err
}

func scanRows(ctx context.Context, pool ConnPool, query string, args ...interface{}) ([]map[string]interface{}, error) {
	rows, err := pool.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []map[string]interface{}
	for rows.Next() {
		row := map[string]interface{}{}
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

func (db *DB) translate(err error) error {
	if err == nil {
		return nil
	}
	if translator, ok := db.Dialector.(ErrorTranslator); ok {
		return translator.Translate(err)
	}
	return err
}

func (db *DB) trace(ctx context.Context, begin time.Time, query string, args []interface{}, rows int64, err error) {
	db.Logger.Trace(ctx, begin, func() (string, int64) {
		vars := args
		if filter, ok := db.Logger.(logger.ParamsFilter); ok {
			query, vars = filter.ParamsFilter(ctx, query, args...)
		}
		return db.Dialector.Explain(query, vars...), rows
	}, err)
}
