package abarorm

import (
	"fmt"
	"reflect"

	"github.com/abarorm/abarorm/schema"
)

// codec moves canonical rows in and out of the values a model hands out
type codec[M any] interface {
	new() M
	assign(s *schema.Schema, m M, row map[string]interface{}) error
	dict(s *schema.Schema, m M) map[string]interface{}
}

// structCodec serves struct models as *T
type structCodec[T any] struct{}

func (structCodec[T]) new() *T { return new(T) }

func (structCodec[T]) assign(s *schema.Schema, m *T, row map[string]interface{}) error {
	rv := reflect.ValueOf(m).Elem()
	if id, ok := row[schema.PrimaryKey]; ok && id != nil {
		fv := rv.FieldByIndex(s.PrimaryIndex)
		if fv.Kind() == reflect.Ptr {
			ptr := reflect.New(fv.Type().Elem())
			ptr.Elem().Set(reflect.ValueOf(id).Convert(fv.Type().Elem()))
			fv.Set(ptr)
		} else {
			fv.Set(reflect.ValueOf(id).Convert(fv.Type()))
		}
	}

	for _, field := range s.Fields {
		v, ok := row[field.DBName]
		if !ok {
			continue
		}
		if err := field.Set(rv, v); err != nil {
			return err
		}
	}
	return nil
}

func (structCodec[T]) dict(s *schema.Schema, m *T) map[string]interface{} {
	if m == nil {
		return nil
	}

	rv := reflect.ValueOf(m).Elem()
	row := make(map[string]interface{}, len(s.Fields)+1)
	row[schema.PrimaryKey], _ = identityField.Convert(reflect.Indirect(rv.FieldByIndex(s.PrimaryIndex)).Interface())
	for _, field := range s.Fields {
		v := field.ValueOf(rv)
		if v == nil {
			row[field.DBName] = nil
			continue
		}
		if converted, err := field.Convert(v); err == nil {
			v = converted
		}
		row[field.DBName] = v
	}
	return row
}

// recordCodec serves models without a Go type
type recordCodec struct{}

func (recordCodec) new() Record { return Record{} }

func (recordCodec) assign(_ *schema.Schema, m Record, row map[string]interface{}) error {
	if m == nil {
		return fmt.Errorf("%w: nil record", ErrInvalidField)
	}
	for k, v := range row {
		m[k] = v
	}
	return nil
}

func (recordCodec) dict(s *schema.Schema, m Record) map[string]interface{} {
	if m == nil {
		return nil
	}

	row := make(map[string]interface{}, len(m))
	for k, v := range m {
		if field := s.LookUpField(k); field != nil && v != nil {
			if converted, err := field.Convert(v); err == nil {
				v = converted
			}
			k = field.DBName
		} else if k == schema.PrimaryKey && v != nil {
			if converted, err := identityField.Convert(v); err == nil {
				v = converted
			}
		}
		row[k] = v
	}
	return row
}
