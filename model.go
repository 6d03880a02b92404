package abarorm

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/abarorm/abarorm/schema"
	"github.com/abarorm/abarorm/utils"
)

// Model is the handle of a registered model. M is *T for struct models and
// Record for models declared with schema.New.
type Model[M any] struct {
	table *table
	codec codec[M]
}

// RegisterOption tunes Register
type RegisterOption func(*registerOptions)

type registerOptions struct {
	table string
}

// WithTable overrides the table name of a model
func WithTable(name string) RegisterOption {
	return func(o *registerOptions) {
		o.table = name
	}
}

// Register parses the struct model T, records it and its reverse relations,
// and synchronizes its table. Foreign keys must point at models registered
// before, or at T itself.
func Register[T any](ctx context.Context, db *DB, opts ...RegisterOption) (*Model[*T], error) {
	var options registerOptions
	for _, opt := range opts {
		opt(&options)
	}

	s, err := schema.Parse(new(T), db.cacheStore, db.NamingStrategy)
	if err != nil {
		return nil, err
	}

	if options.table != "" && options.table != s.Table {
		if !utils.IsValidIdentifier(options.table) {
			return nil, fmt.Errorf("%w: invalid table name %q", schema.ErrInvalidDeclaration, options.table)
		}
		copied := *s
		copied.Table = options.table
		s = &copied
	}

	t, err := db.register(ctx, s)
	if err != nil {
		return nil, err
	}
	return &Model[*T]{table: t, codec: structCodec[T]{}}, nil
}

// RegisterSchema registers a model built with schema.New. Its rows are Records.
func RegisterSchema(ctx context.Context, db *DB, s *schema.Schema) (*Model[Record], error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil schema", schema.ErrInvalidDeclaration)
	}

	t, err := db.register(ctx, s)
	if err != nil {
		return nil, err
	}
	return &Model[Record]{table: t, codec: recordCodec{}}, nil
}

func (db *DB) register(ctx context.Context, s *schema.Schema) (*table, error) {
	t := newTable(db, s)
	if err := db.registry.add(t); err != nil {
		return nil, err
	}
	if err := db.Migrator().AutoMigrate(ctx, s); err != nil {
		return nil, fmt.Errorf("sync %s: %w", s.Table, err)
	}
	return t, nil
}

// Schema returns the parsed schema of the model
func (m *Model[M]) Schema() *schema.Schema {
	return m.table.schema
}

// All reads every row
func (m *Model[M]) All(ctx context.Context, opts ...QueryOption) (*QuerySet[M], error) {
	return m.Filter(ctx, nil, opts...)
}

// Filter reads the rows matching where
func (m *Model[M]) Filter(ctx context.Context, where Where, opts ...QueryOption) (*QuerySet[M], error) {
	rows, err := m.table.find(ctx, where, nil, opts...)
	if err != nil {
		return nil, err
	}

	results := make([]M, 0, len(rows))
	for _, row := range rows {
		result := m.codec.new()
		if err := m.codec.assign(m.table.schema, result, row); err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return newQuerySet(m.table, m.codec, results), nil
}

// Get reads the first row matching where, or fails with ErrRecordNotFound
func (m *Model[M]) Get(ctx context.Context, where Where, opts ...QueryOption) (M, error) {
	var zero M
	if len(where) == 0 {
		return zero, ErrMissingWhereClause
	}

	rows, err := m.table.find(ctx, where, &one, opts...)
	if err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return zero, ErrRecordNotFound
	}

	result := m.codec.new()
	if err := m.codec.assign(m.table.schema, result, rows[0]); err != nil {
		return zero, err
	}
	return result, nil
}

// Create inserts one row and returns its identity
func (m *Model[M]) Create(ctx context.Context, values Values) (int64, error) {
	return m.table.create(ctx, values)
}

// Update writes values to the row with the given identity
func (m *Model[M]) Update(ctx context.Context, id int64, values Values) error {
	return m.table.update(ctx, id, values)
}

// Delete removes the rows matching where and returns how many were removed.
// An empty filter is refused.
func (m *Model[M]) Delete(ctx context.Context, where Where) (int64, error) {
	return m.table.delete(ctx, where)
}

// BulkCreate inserts every record in a single statement
func (m *Model[M]) BulkCreate(ctx context.Context, records []Values) (int64, error) {
	return m.table.bulkCreate(ctx, records)
}

// Save creates value when its identity is zero and updates every declared
// column otherwise. The stored row is read back into value.
func (m *Model[M]) Save(ctx context.Context, value M) error {
	row := m.codec.dict(m.table.schema, value)
	if row == nil {
		return fmt.Errorf("%w: nothing to save", ErrEmptyValues)
	}

	id, _ := row[schema.PrimaryKey].(int64)
	delete(row, schema.PrimaryKey)

	values := make(Values, len(row))
	for _, field := range m.table.schema.Fields {
		v, ok := row[field.DBName]
		if !ok || (isZeroValue(v) && (field.AutoNow || field.AutoNowAdd || field.AutoUUID)) {
			continue
		}
		if id != 0 && (field.AutoNowAdd || field.AutoUUID) {
			continue
		}
		values[field.DBName] = v
	}

	var err error
	if id == 0 {
		if id, err = m.table.create(ctx, values); err != nil {
			return err
		}
	} else if len(values) > 0 {
		if err = m.table.update(ctx, id, values); err != nil {
			return err
		}
	}

	if m.table.db.DryRun {
		return m.codec.assign(m.table.schema, value, map[string]interface{}{schema.PrimaryKey: id})
	}

	rows, err := m.table.find(ctx, Where{schema.PrimaryKey: id}, &one)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return ErrRecordNotFound
	}
	return m.codec.assign(m.table.schema, value, rows[0])
}

func isZeroValue(v interface{}) bool {
	switch v := v.(type) {
	case nil:
		return true
	case time.Time:
		return v.IsZero() || v.Equal(time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC))
	case uuid.UUID:
		return v == uuid.Nil
	}
	return false
}

// Related returns the rows of another model referencing the row id through
// the reverse accessor name
func (m *Model[M]) Related(name string, id int64) (*RelatedManager, error) {
	rel, ok := m.table.db.registry.lookupRelation(m.table.schema.Name, name)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no relation %q", ErrUnsupportedRelation, m.table.schema.Name, name)
	}
	return &RelatedManager{relation: rel, id: id}, nil
}
