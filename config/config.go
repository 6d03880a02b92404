// Package config loads the data source, naming, logging and model
// declarations of an abarorm application from a YAML file, with environment
// overrides for the connection settings.
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/abarorm/abarorm"
	"github.com/abarorm/abarorm/dialects/mysql"
	"github.com/abarorm/abarorm/dialects/postgres"
	"github.com/abarorm/abarorm/dialects/sqlite"
	"github.com/abarorm/abarorm/logger"
	"github.com/abarorm/abarorm/schema"
)

// Engines
const (
	SQLite   = "sqlite"
	MySQL    = "mysql"
	Postgres = "postgres"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "ABARORM_"

// Config is the content of a configuration file
type Config struct {
	Database Database `yaml:"database"`
	Naming   Naming   `yaml:"naming"`
	Log      Log      `yaml:"log"`
	Models   []Model  `yaml:"models"`
}

// Database selects the engine and how to reach it. For SQLite DBName is the
// database file.
type Database struct {
	Engine   string `yaml:"engine"`
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"db_name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type Naming struct {
	TablePrefix string `yaml:"table_prefix"`
	Pluralize   bool   `yaml:"pluralize"`
}

// Log picks the logger backend: std, zap, zerolog, logrus or slog
type Log struct {
	Driver        string        `yaml:"driver"`
	Level         string        `yaml:"level"`
	SlowThreshold time.Duration `yaml:"slow_threshold"`
	Colorful      bool          `yaml:"colorful"`
}

// Model declares a model without a Go type
type Model struct {
	Name   string  `yaml:"name"`
	Table  string  `yaml:"table"`
	Fields []Field `yaml:"fields"`
}

// Field declares one column of a Model
type Field struct {
	Name          string      `yaml:"name"`
	Type          string      `yaml:"type"`
	Column        string      `yaml:"column"`
	Size          int         `yaml:"size"`
	MinLength     int         `yaml:"min_length"`
	Unique        bool        `yaml:"unique"`
	Null          bool        `yaml:"null"`
	Default       interface{} `yaml:"default"`
	MaxDigits     int         `yaml:"max_digits"`
	DecimalPlaces int         `yaml:"decimal_places"`
	AutoNow       bool        `yaml:"auto_now"`
	AutoNowAdd    bool        `yaml:"auto_now_add"`
	Auto          bool        `yaml:"auto"`
	To            string      `yaml:"to"`
	OnDelete      string      `yaml:"on_delete"`
	RelatedName   string      `yaml:"related_name"`
}

// Load reads the file at path then applies the environment overrides
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes a configuration document. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	var cfg Config

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %v", abarorm.ErrInvalidConfig, err)
	}
	return cfg, nil
}

// ApplyEnv overrides the connection and log level settings with the
// ABARORM_* variables lookup finds
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"ENGINE":    &c.Database.Engine,
		"DSN":       &c.Database.DSN,
		"HOST":      &c.Database.Host,
		"USER":      &c.Database.User,
		"PASSWORD":  &c.Database.Password,
		"DB_NAME":   &c.Database.DBName,
		"SSL_MODE":  &c.Database.SSLMode,
		"LOG_LEVEL": &c.Log.Level,
	}
	for name, dest := range strs {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dest = v
		}
	}

	if v, ok := lookup(EnvPrefix + "PORT"); ok {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %sPORT: %v", abarorm.ErrInvalidConfig, EnvPrefix, err)
		}
		c.Database.Port = port
	}
	return nil
}

// Dialector returns the dialector of the configured engine. An empty engine
// means SQLite.
func (c Config) Dialector() (abarorm.Dialector, error) {
	db := c.Database
	switch strings.ToLower(strings.TrimSpace(db.Engine)) {
	case "", SQLite, "sqlite3":
		dsn := db.DSN
		if dsn == "" {
			dsn = db.DBName
		}
		return sqlite.Open(dsn), nil
	case MySQL:
		return mysql.New(mysql.Config{
			DSN: db.DSN, Host: db.Host, Port: db.Port,
			User: db.User, Password: db.Password, DBName: db.DBName,
		}), nil
	case Postgres, "postgresql":
		return postgres.New(postgres.Config{
			DSN: db.DSN, Host: db.Host, Port: db.Port,
			User: db.User, Password: db.Password, DBName: db.DBName, SSLMode: db.SSLMode,
		}), nil
	}
	return nil, fmt.Errorf("%w: unknown engine %q", abarorm.ErrInvalidConfig, db.Engine)
}

// NamingStrategy returns the configured naming strategy
func (c Config) NamingStrategy() schema.NamingStrategy {
	return schema.NamingStrategy{TablePrefix: c.Naming.TablePrefix, Pluralize: c.Naming.Pluralize}
}

// Logger builds the configured logger, writing to w
func (c Config) Logger(w io.Writer) (logger.Interface, error) {
	level, err := logger.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", abarorm.ErrInvalidConfig, err)
	}

	config := logger.Config{
		SlowThreshold: c.Log.SlowThreshold,
		LogLevel:      level,
		Colorful:      c.Log.Colorful,
	}
	if config.SlowThreshold == 0 {
		config.SlowThreshold = 200 * time.Millisecond
	}

	switch strings.ToLower(c.Log.Driver) {
	case "", "std":
		return logger.New(log.New(w, "\r\n", log.LstdFlags), config), nil
	case "zap":
		return logger.NewZapWriterLogger(w, config), nil
	case "zerolog":
		return logger.NewZerologConsoleLogger(w, config), nil
	case "logrus":
		l := logrus.New()
		l.SetOutput(w)
		l.SetLevel(logger.LogrusLevel(level))
		return logger.NewLogrusLogger(l, config), nil
	case "slog":
		return logger.NewSlogLogger(slog.New(slog.NewTextHandler(w, nil)), config), nil
	}
	return nil, fmt.Errorf("%w: unknown log driver %q", abarorm.ErrInvalidConfig, c.Log.Driver)
}

// Open checks the configuration and returns a DB for it. No connection is
// made until the DB is used.
func (c Config) Open(dryRun bool) (*abarorm.DB, error) {
	dialector, err := c.Dialector()
	if err != nil {
		return nil, err
	}
	l, err := c.Logger(os.Stderr)
	if err != nil {
		return nil, err
	}

	return abarorm.Open(dialector, &abarorm.Config{
		NamingStrategy: c.NamingStrategy(),
		Logger:         l,
		DryRun:         dryRun,
	})
}

// Schemas builds the declared models in file order
func (c Config) Schemas() ([]*schema.Schema, error) {
	namer := c.NamingStrategy()
	schemas := make([]*schema.Schema, 0, len(c.Models))
	for _, model := range c.Models {
		s, err := model.Schema(namer)
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, s)
	}
	return schemas, nil
}

// Schema builds the schema of the model
func (m Model) Schema(namer schema.Namer) (*schema.Schema, error) {
	fields := make([]*schema.Field, 0, len(m.Fields))
	for _, f := range m.Fields {
		field, err := f.Field()
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", m.Name, err)
		}
		fields = append(fields, field)
	}

	s, err := schema.New(m.Name, m.Table, namer, fields...)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", m.Name, err)
	}
	return s, nil
}

// Field builds the field descriptor
func (f Field) Field() (*schema.Field, error) {
	kind, err := schema.ParseKind(f.Type)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", f.Name, err)
	}

	var opts []schema.FieldOption
	if f.Column != "" {
		opts = append(opts, schema.Column(f.Column))
	}
	if f.Size > 0 {
		opts = append(opts, schema.MaxLength(f.Size))
	}
	if f.MinLength > 0 {
		opts = append(opts, schema.MinLength(f.MinLength))
	}
	if f.Unique {
		opts = append(opts, schema.Unique())
	}
	if f.Null {
		opts = append(opts, schema.Null())
	}
	if f.Default != nil {
		opts = append(opts, schema.Default(f.Default))
	}
	if kind == schema.Decimal {
		opts = append(opts, schema.Digits(f.MaxDigits, f.DecimalPlaces))
	}
	if f.AutoNow {
		opts = append(opts, schema.AutoNow())
	}
	if f.AutoNowAdd {
		opts = append(opts, schema.AutoNowAdd())
	}
	if f.Auto {
		opts = append(opts, schema.AutoUUID())
	}
	if kind == schema.ForeignKey {
		opts = append(opts, schema.References(f.To, f.OnDelete, f.RelatedName))
	}

	return schema.NewField(f.Name, kind, opts...)
}

// ParseFields reads compact field declarations, name:type[:size] separated
// by commas, e.g. "title:char:100,body:text,author:fk:Author"
func ParseFields(spec string) ([]Field, error) {
	var fields []Field
	for _, decl := range strings.Split(spec, ",") {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}

		parts := strings.Split(decl, ":")
		if len(parts) < 2 || len(parts) > 3 || parts[0] == "" {
			return nil, fmt.Errorf("%w: field declaration %q is not name:type[:size]", schema.ErrInvalidDeclaration, decl)
		}

		field := Field{Name: parts[0], Type: parts[1]}
		if len(parts) == 3 {
			kind, err := schema.ParseKind(parts[1])
			if err != nil {
				return nil, err
			}
			if kind == schema.ForeignKey {
				field.To = parts[2]
			} else if field.Size, err = strconv.Atoi(parts[2]); err != nil {
				return nil, fmt.Errorf("%w: size of field %s: %v", schema.ErrInvalidDeclaration, field.Name, err)
			}
		}
		fields = append(fields, field)
	}
	return fields, nil
}

// Register registers the declared models on db, synchronizing their tables
func (c Config) Register(ctx context.Context, db *abarorm.DB) ([]*abarorm.Model[abarorm.Record], error) {
	schemas, err := c.Schemas()
	if err != nil {
		return nil, err
	}

	models := make([]*abarorm.Model[abarorm.Record], 0, len(schemas))
	for _, s := range schemas {
		model, err := abarorm.RegisterSchema(ctx, db, s)
		if err != nil {
			return nil, err
		}
		models = append(models, model)
	}
	return models, nil
}
