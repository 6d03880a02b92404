package schema

import (
	"fmt"
	"go/ast"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/abarorm/abarorm/utils"
)

// PrimaryKey is the identity column every table carries
const PrimaryKey = "id"

// Tabler overrides the derived table name of a model
type Tabler interface {
	TableName() string
}

// Schema is a parsed model: its name, table and ordered fields. The identity
// column is implicit and not part of Fields.
type Schema struct {
	Name           string
	Table          string
	ModelType      reflect.Type
	PrimaryIndex   []int
	Fields         []*Field
	FieldsByName   map[string]*Field
	FieldsByDBName map[string]*Field
	DBNames        []string
}

func (schema *Schema) String() string {
	if schema.ModelType == nil {
		return schema.Name
	}
	return fmt.Sprintf("%v.%v", schema.ModelType.PkgPath(), schema.ModelType.Name())
}

// LookUpField finds a field by column or Go name
func (schema *Schema) LookUpField(name string) *Field {
	if field, ok := schema.FieldsByDBName[name]; ok {
		return field
	}
	if field, ok := schema.FieldsByName[name]; ok {
		return field
	}
	return nil
}

// ForeignKeys returns the ForeignKey fields in declaration order
func (schema *Schema) ForeignKeys() []*Field {
	var fields []*Field
	for _, field := range schema.Fields {
		if field.Kind == ForeignKey {
			fields = append(fields, field)
		}
	}
	return fields
}

func (schema *Schema) addField(field *Field) error {
	if field.DBName == "" {
		return fmt.Errorf("%w: field %s has no column name", ErrInvalidDeclaration, field.Name)
	}
	if !utils.IsValidIdentifier(field.DBName) {
		return fmt.Errorf("%w: invalid column name %q", ErrInvalidDeclaration, field.DBName)
	}
	if field.DBName == PrimaryKey {
		return fmt.Errorf("%w: column %q is reserved for the identity", ErrInvalidDeclaration, PrimaryKey)
	}
	if _, ok := schema.FieldsByDBName[field.DBName]; ok {
		return fmt.Errorf("%w: duplicated column %q", ErrInvalidDeclaration, field.DBName)
	}

	field.Schema = schema
	schema.Fields = append(schema.Fields, field)
	schema.FieldsByName[field.Name] = field
	schema.FieldsByDBName[field.DBName] = field
	schema.DBNames = append(schema.DBNames, field.DBName)
	return nil
}

// New builds a schema from programmatic field declarations. An empty table
// is derived from the model name by namer.
func New(name, table string, namer Namer, fields ...*Field) (*Schema, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: model without name", ErrInvalidDeclaration)
	}
	if table == "" {
		table = namer.TableName(name)
	}
	if !utils.IsValidIdentifier(table) {
		return nil, fmt.Errorf("%w: invalid table name %q", ErrInvalidDeclaration, table)
	}

	schema := &Schema{
		Name:           name,
		Table:          table,
		FieldsByName:   map[string]*Field{},
		FieldsByDBName: map[string]*Field{},
	}
	for _, field := range fields {
		if field.DBName == "" {
			field.DBName = namer.ColumnName(table, field.Name)
		}
		if err := schema.addField(field); err != nil {
			return nil, err
		}
	}
	return schema, nil
}

// Parse reads the schema of a struct model. Results are cached per type in
// cacheStore.
func Parse(dest interface{}, cacheStore *sync.Map, namer Namer) (*Schema, error) {
	if dest == nil {
		return nil, fmt.Errorf("%w: %+v", ErrUnsupportedType, dest)
	}

	modelType := reflect.ValueOf(dest).Type()
	for modelType.Kind() == reflect.Slice || modelType.Kind() == reflect.Ptr {
		modelType = modelType.Elem()
	}

	if modelType.Kind() != reflect.Struct {
		if modelType.PkgPath() == "" {
			return nil, fmt.Errorf("%w: %+v", ErrUnsupportedType, dest)
		}
		return nil, fmt.Errorf("%w: %s.%s", ErrUnsupportedType, modelType.PkgPath(), modelType.Name())
	}

	if v, ok := cacheStore.Load(modelType); ok {
		return v.(*Schema), nil
	}

	schema := &Schema{
		Name:           modelType.Name(),
		ModelType:      modelType,
		FieldsByName:   map[string]*Field{},
		FieldsByDBName: map[string]*Field{},
	}

	if tabler, ok := reflect.New(modelType).Interface().(Tabler); ok {
		schema.Table = tabler.TableName()
	} else {
		schema.Table = namer.TableName(schema.Name)
	}
	if !utils.IsValidIdentifier(schema.Table) {
		return nil, fmt.Errorf("%w: invalid table name %q", ErrInvalidDeclaration, schema.Table)
	}

	if err := schema.parseStruct(modelType, nil, namer); err != nil {
		return nil, fmt.Errorf("model %s: %w", schema.Name, err)
	}
	if schema.PrimaryIndex == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingPrimaryKey, schema.Name)
	}

	if v, loaded := cacheStore.LoadOrStore(modelType, schema); loaded {
		return v.(*Schema), nil
	}
	return schema, nil
}

func (schema *Schema) parseStruct(structType reflect.Type, index []int, namer Namer) error {
	for i := 0; i < structType.NumField(); i++ {
		fieldStruct := structType.Field(i)
		if !ast.IsExported(fieldStruct.Name) {
			continue
		}

		settings := ParseTagSetting(fieldStruct.Tag.Get("abar"), ";")
		if _, ok := settings["-"]; ok {
			continue
		}

		fieldIndex := append(append([]int{}, index...), i)
		if fieldStruct.Anonymous && fieldStruct.Type.Kind() == reflect.Struct &&
			fieldStruct.Type != TimeReflectType {
			if err := schema.parseStruct(fieldStruct.Type, fieldIndex, namer); err != nil {
				return err
			}
			continue
		}

		column := settings["COLUMN"]
		if column == "" {
			column = namer.ColumnName(schema.Table, fieldStruct.Name)
		}
		if column == PrimaryKey {
			switch indirect(fieldStruct.Type).Kind() {
			case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
				reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
				if schema.PrimaryIndex != nil {
					return fmt.Errorf("%w: duplicated identity field %s", ErrInvalidDeclaration, fieldStruct.Name)
				}
				schema.PrimaryIndex = fieldIndex
				continue
			}
			return fmt.Errorf("%w: identity field %s must be an integer", ErrMissingPrimaryKey, fieldStruct.Name)
		}

		field, err := parseField(fieldStruct, settings)
		if err != nil {
			return err
		}
		field.DBName = column
		field.StructIndex = fieldIndex
		if err := schema.addField(field); err != nil {
			return err
		}
	}
	return nil
}

func parseField(fieldStruct reflect.StructField, settings map[string]string) (*Field, error) {
	field := &Field{
		Name:        fieldStruct.Name,
		StructField: fieldStruct,
		FieldType:   fieldStruct.Type,
		Null:        fieldStruct.Type.Kind() == reflect.Ptr,
	}

	if typ, ok := settings["TYPE"]; ok {
		kind, err := ParseKind(typ)
		if err != nil {
			return nil, err
		}
		field.Kind = kind
	} else if _, ok := settings["FK"]; ok {
		field.Kind = ForeignKey
	} else {
		kind, err := kindOf(fieldStruct.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", fieldStruct.Name, err)
		}
		field.Kind = kind
	}

	var err error
	if field.MaxLength, err = intSetting(settings, "SIZE"); err != nil {
		return nil, err
	}
	if field.MinLength, err = intSetting(settings, "MIN"); err != nil {
		return nil, err
	}
	if v, ok := flag(settings, "NULL"); ok {
		field.Null = v
	}
	field.Unique, _ = flag(settings, "UNIQUE")
	field.AutoNow, _ = flag(settings, "AUTO_NOW")
	field.AutoNowAdd, _ = flag(settings, "AUTO_NOW_ADD")
	field.AutoUUID, _ = flag(settings, "AUTO")

	if v, ok := settings["DEFAULT"]; ok {
		field.HasDefault = true
		if !strings.EqualFold(v, "null") {
			field.Default = v
		}
	}

	if v, ok := settings["DECIMAL"]; ok {
		parts := strings.Split(v, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("%w: decimal of field %s must be P,S", ErrInvalidDeclaration, field.Name)
		}
		if field.MaxDigits, err = strconv.Atoi(strings.TrimSpace(parts[0])); err != nil {
			return nil, fmt.Errorf("%w: decimal of field %s: %v", ErrInvalidDeclaration, field.Name, err)
		}
		if field.DecimalPlaces, err = strconv.Atoi(strings.TrimSpace(parts[1])); err != nil {
			return nil, fmt.Errorf("%w: decimal of field %s: %v", ErrInvalidDeclaration, field.Name, err)
		}
	}

	field.ToModel = settings["FK"]
	field.OnDelete = settings["ON_DELETE"]
	field.RelatedName = settings["RELATED_NAME"]

	if err := field.prepare(); err != nil {
		return nil, err
	}
	return field, nil
}

func intSetting(settings map[string]string, key string) (int, error) {
	v, ok := settings[key]
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrInvalidDeclaration, strings.ToLower(key), v)
	}
	return n, nil
}

func kindOf(t reflect.Type) (Kind, error) {
	t = indirect(t)
	switch t {
	case TimeReflectType:
		return DateTime, nil
	case UUIDReflectType:
		return UUID, nil
	}

	switch t.Kind() {
	case reflect.String:
		return Char, nil
	case reflect.Bool:
		return Boolean, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Integer, nil
	case reflect.Float32, reflect.Float64:
		return Float, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedType, t)
}
