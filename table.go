package abarorm

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"

	"github.com/abarorm/abarorm/clause"
	"github.com/abarorm/abarorm/schema"
)

// table runs the statements of one registered model. Rows travel as maps of
// canonical values keyed by column name, the identity under "id".
type table struct {
	db     *DB
	schema *schema.Schema

	columnsOnce sync.Once
	columns     []clause.Column
}

func newTable(db *DB, s *schema.Schema) *table {
	return &table{db: db, schema: s}
}

// selectColumns lists the identity then the declared columns, built once
func (t *table) selectColumns() []clause.Column {
	t.columnsOnce.Do(func() {
		columns := make([]clause.Column, 0, len(t.schema.DBNames)+1)
		columns = append(columns, clause.Column{Name: schema.PrimaryKey})
		for _, name := range t.schema.DBNames {
			columns = append(columns, clause.Column{Name: name})
		}
		t.columns = columns
	})
	return t.columns
}

func (t *table) find(ctx context.Context, where Where, limit *int, opts ...QueryOption) ([]map[string]interface{}, error) {
	var options queryOptions
	for _, opt := range opts {
		opt(&options)
	}
	if options.limit == nil {
		options.limit = limit
	}

	exprs, err := t.conditions(where)
	if err != nil {
		return nil, err
	}
	orderBy, err := t.orderBy(options.orderBy)
	if err != nil {
		return nil, err
	}

	var rows []map[string]interface{}
	err = t.db.Connection(ctx, func(tx *DB) error {
		stmt := tx.NewStatement(ctx, t.schema)
		stmt.AddClause(clause.Select{Columns: t.selectColumns()})
		stmt.AddClause(clause.From{Tables: []clause.Table{{Name: t.schema.Table}}})
		if len(exprs) > 0 {
			stmt.AddClause(clause.Where{Exprs: exprs})
		}
		if len(orderBy.Columns) > 0 {
			stmt.AddClause(orderBy)
		}
		if options.limit != nil {
			stmt.AddClause(clause.Limit{Limit: options.limit})
		}
		stmt.Build("SELECT", "FROM", "WHERE", "ORDER BY", "LIMIT")

		results, err := tx.query(ctx, tx.pool, stmt.SQL.String(), stmt.Vars...)
		if err != nil {
			return err
		}

		rows = make([]map[string]interface{}, 0, len(results))
		for _, result := range results {
			row, err := t.decode(result)
			if err != nil {
				return err
			}
			rows = append(rows, row)
		}
		return nil
	})
	return rows, err
}

// decode converts the raw values of a driver row to canonical values
func (t *table) decode(raw map[string]interface{}) (map[string]interface{}, error) {
	row := make(map[string]interface{}, len(raw))
	for column, value := range raw {
		field, err := t.lookUpField(column)
		if err != nil {
			continue
		}
		v, err := field.Scan(value)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t.schema.Table, column, err)
		}
		row[field.DBName] = v
	}
	return row, nil
}

// prepare validates values for a write and fills the computed temporal and
// uuid fields. Creates also check required fields.
func (t *table) prepare(values Values, create bool) (map[string]interface{}, error) {
	row := make(map[string]interface{}, len(values))
	for name, value := range values {
		field, err := t.lookUpField(name)
		if err != nil {
			return nil, err
		}
		if field == identityField {
			return nil, fmt.Errorf("%w: %s is not writable", ErrInvalidField, schema.PrimaryKey)
		}

		if value, err = t.resolveRelation(field, value); err != nil {
			return nil, err
		}
		v, err := field.Validate(value)
		if err != nil {
			return nil, err
		}
		row[field.DBName] = v
	}

	now := t.db.NowFunc()
	for _, field := range t.schema.Fields {
		_, provided := row[field.DBName]
		switch {
		case field.AutoNow && (!create || !provided), field.AutoNowAdd && create && !provided:
			v, err := field.Convert(now)
			if err != nil {
				return nil, err
			}
			row[field.DBName] = v
		case field.AutoUUID && create && !provided:
			row[field.DBName] = uuid.New()
		case create && !provided && field.Required():
			return nil, fmt.Errorf("%w: %s", schema.ErrNullNotAllowed, field.DBName)
		}
	}
	return row, nil
}

// resolveRelation turns a model instance given for a foreign key into the
// identity it references
func (t *table) resolveRelation(field *schema.Field, value interface{}) (interface{}, error) {
	if field.Kind != schema.ForeignKey || value == nil {
		return value, nil
	}

	var id interface{}
	switch v := value.(type) {
	case Record:
		id = v[schema.PrimaryKey]
	case map[string]interface{}:
		id = v[schema.PrimaryKey]
	default:
		rv := reflect.ValueOf(value)
		for rv.Kind() == reflect.Ptr {
			if rv.IsNil() {
				return nil, nil
			}
			rv = rv.Elem()
		}
		if rv.Kind() != reflect.Struct {
			return value, nil
		}

		target, ok := t.db.registry.lookupType(rv.Type())
		if !ok {
			return nil, fmt.Errorf("%w: %s is not a registered model", schema.ErrInvalidRelation, rv.Type())
		}
		if target.schema.Name != field.ToModel {
			return nil, fmt.Errorf("%w: %s expects %s, got %s", schema.ErrInvalidRelation, field.DBName, field.ToModel, target.schema.Name)
		}
		id = rv.FieldByIndex(target.schema.PrimaryIndex).Interface()
	}

	identity, err := identityField.Convert(id)
	if err != nil || id == nil || identity.(int64) == 0 {
		return nil, fmt.Errorf("%w: %s references an instance that is not persisted", schema.ErrInvalidRelation, field.DBName)
	}
	return identity, nil
}

// checkRelations verifies every referenced row exists
func (t *table) checkRelations(ctx context.Context, tx *DB, rows ...map[string]interface{}) error {
	if tx.DryRun {
		return nil
	}

	for _, field := range t.schema.ForeignKeys() {
		checked := map[interface{}]bool{}
		for _, row := range rows {
			id, ok := row[field.DBName]
			if !ok || id == nil || checked[id] {
				continue
			}
			checked[id] = true

			stmt := tx.NewStatement(ctx, nil)
			stmt.AddClause(clause.Select{Columns: []clause.Column{{Name: schema.PrimaryKey}}})
			stmt.AddClause(clause.From{Tables: []clause.Table{{Name: field.ToTable}}})
			stmt.AddClause(clause.Where{Exprs: []clause.Expression{clause.Eq{Column: clause.Column{Name: schema.PrimaryKey}, Value: id}}})
			stmt.AddClause(clause.Limit{Limit: &one})
			stmt.Build("SELECT", "FROM", "WHERE", "LIMIT")

			results, err := tx.query(ctx, tx.pool, stmt.SQL.String(), stmt.Vars...)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				return fmt.Errorf("%w: %s %v does not exist", schema.ErrInvalidRelation, field.ToModel, id)
			}
		}
	}
	return nil
}

var one = 1

// dbValue maps a canonical value to what the driver stores
func (t *table) dbValue(field *schema.Field, v interface{}) interface{} {
	if v == nil {
		return nil
	}
	return t.db.Dialector.ConvertValue(field, v)
}

func (t *table) create(ctx context.Context, values Values) (int64, error) {
	row, err := t.prepare(values, true)
	if err != nil {
		return 0, err
	}

	var (
		columns []clause.Column
		vars    []interface{}
	)
	for _, field := range t.schema.Fields {
		if v, ok := row[field.DBName]; ok {
			columns = append(columns, clause.Column{Name: field.DBName})
			vars = append(vars, t.dbValue(field, v))
		}
	}

	var id int64
	err = t.db.Connection(ctx, func(tx *DB) error {
		if err := t.checkRelations(ctx, tx, row); err != nil {
			return err
		}
		id, err = t.insert(ctx, tx, columns, vars)
		return err
	})
	return id, err
}

func (t *table) insert(ctx context.Context, tx *DB, columns []clause.Column, vars []interface{}) (int64, error) {
	stmt := tx.NewStatement(ctx, t.schema)
	stmt.AddClause(clause.Insert{})
	stmt.AddClause(clause.Values{Columns: columns, Values: [][]interface{}{vars}})

	if tx.Dialector.SupportLastInsertID() {
		stmt.Build("INSERT", "VALUES")
		result, err := tx.exec(ctx, tx.pool, stmt.SQL.String(), stmt.Vars...)
		if err != nil || tx.DryRun {
			return 0, err
		}
		return result.LastInsertId()
	}

	stmt.AddClause(clause.Returning{Columns: []clause.Column{{Name: schema.PrimaryKey}}})
	stmt.Build("INSERT", "VALUES", "RETURNING")
	results, err := tx.query(ctx, tx.pool, stmt.SQL.String(), stmt.Vars...)
	if err != nil || tx.DryRun {
		return 0, err
	}
	if len(results) == 0 {
		return 0, fmt.Errorf("insert into %s returned no identity", t.schema.Table)
	}
	id, err := identityField.Scan(results[0][schema.PrimaryKey])
	if err != nil {
		return 0, err
	}
	return id.(int64), nil
}

func (t *table) bulkCreate(ctx context.Context, records []Values) (int64, error) {
	if len(records) == 0 {
		return 0, ErrEmptySlice
	}

	rows := make([]map[string]interface{}, 0, len(records))
	present := map[string]bool{}
	for idx, values := range records {
		row, err := t.prepare(values, true)
		if err != nil {
			return 0, fmt.Errorf("record %d: %w", idx, err)
		}
		for name := range row {
			present[name] = true
		}
		rows = append(rows, row)
	}

	var fields []*schema.Field
	for _, field := range t.schema.Fields {
		if present[field.DBName] {
			fields = append(fields, field)
		}
	}

	var affected int64
	err := t.db.Connection(ctx, func(tx *DB) error {
		if err := t.checkRelations(ctx, tx, rows...); err != nil {
			return err
		}

		// nothing to list: one default row per record
		if len(fields) == 0 {
			for range rows {
				if _, err := t.insert(ctx, tx, nil, nil); err != nil {
					return err
				}
				affected++
			}
			return nil
		}

		values := clause.Values{Columns: make([]clause.Column, 0, len(fields))}
		for _, field := range fields {
			values.Columns = append(values.Columns, clause.Column{Name: field.DBName})
		}
		for _, row := range rows {
			vars := make([]interface{}, 0, len(fields))
			for _, field := range fields {
				v, ok := row[field.DBName]
				if !ok && field.HasDefault {
					v = field.Default
				}
				vars = append(vars, t.dbValue(field, v))
			}
			values.Values = append(values.Values, vars)
		}

		stmt := tx.NewStatement(ctx, t.schema)
		stmt.AddClause(clause.Insert{})
		stmt.AddClause(values)
		stmt.Build("INSERT", "VALUES")

		result, err := tx.exec(ctx, tx.pool, stmt.SQL.String(), stmt.Vars...)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	return affected, err
}

func (t *table) update(ctx context.Context, id int64, values Values) error {
	if len(values) == 0 {
		return ErrEmptyValues
	}

	row, err := t.prepare(values, false)
	if err != nil {
		return err
	}

	var set clause.Set
	for _, field := range t.schema.Fields {
		if v, ok := row[field.DBName]; ok {
			set = append(set, clause.Assignment{Column: clause.Column{Name: field.DBName}, Value: t.dbValue(field, v)})
		}
	}

	return t.db.Connection(ctx, func(tx *DB) error {
		if err := t.checkRelations(ctx, tx, row); err != nil {
			return err
		}

		stmt := tx.NewStatement(ctx, t.schema)
		stmt.AddClause(clause.Update{})
		stmt.AddClause(set)
		stmt.AddClause(clause.Where{Exprs: []clause.Expression{clause.Eq{Column: clause.Column{Name: schema.PrimaryKey}, Value: id}}})
		stmt.Build("UPDATE", "SET", "WHERE")

		result, err := tx.exec(ctx, tx.pool, stmt.SQL.String(), stmt.Vars...)
		if err != nil || tx.DryRun {
			return err
		}
		if affected, err := result.RowsAffected(); err != nil {
			return err
		} else if affected == 0 {
			return fmt.Errorf("%w: %s %d", ErrRecordNotFound, t.schema.Name, id)
		}
		return nil
	})
}

func (t *table) delete(ctx context.Context, where Where) (int64, error) {
	if len(where) == 0 {
		return 0, ErrMissingWhereClause
	}

	exprs, err := t.conditions(where)
	if err != nil {
		return 0, err
	}

	var affected int64
	err = t.db.Connection(ctx, func(tx *DB) error {
		stmt := tx.NewStatement(ctx, t.schema)
		stmt.AddClause(clause.Delete{})
		stmt.AddClause(clause.From{Tables: []clause.Table{{Name: t.schema.Table}}})
		stmt.AddClause(clause.Where{Exprs: exprs})
		stmt.Build("DELETE", "FROM", "WHERE")

		result, err := tx.exec(ctx, tx.pool, stmt.SQL.String(), stmt.Vars...)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	return affected, err
}
