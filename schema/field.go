package schema

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jinzhu/now"

	"github.com/abarorm/abarorm/utils"
)

// Kind is the semantic type of a column
type Kind string

const (
	Char       Kind = "char"
	Text       Kind = "text"
	Integer    Kind = "integer"
	Float      Kind = "float"
	Decimal    Kind = "decimal"
	Boolean    Kind = "boolean"
	Date       Kind = "date"
	DateTime   Kind = "datetime"
	Time       Kind = "time"
	Email      Kind = "email"
	URL        Kind = "url"
	UUID       Kind = "uuid"
	ForeignKey Kind = "foreignkey"
)

var kinds = []Kind{Char, Text, Integer, Float, Decimal, Boolean, Date, DateTime, Time, Email, URL, UUID, ForeignKey}

// ParseKind resolves a kind name, case-insensitively. "fk" is accepted for
// ForeignKey.
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "fk" || name == "foreign_key" {
		return ForeignKey, nil
	}
	for _, k := range kinds {
		if string(k) == name {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: unknown field type %q", ErrInvalidDeclaration, name)
}

// IsTemporal reports whether values of the kind are time.Time
func (k Kind) IsTemporal() bool {
	return k == Date || k == DateTime || k == Time
}

// IsTextual reports whether values of the kind are strings
func (k Kind) IsTextual() bool {
	return k == Char || k == Text || k == Email || k == URL
}

const (
	// DefaultMaxLength applies to Char and Email fields declared without a size
	DefaultMaxLength = 255
	// DefaultURLMaxLength applies to URL fields declared without a size
	DefaultURLMaxLength = 2048
)

// Delete policies of foreign keys
const (
	Cascade    = "CASCADE"
	SetNull    = "SET NULL"
	Restrict   = "RESTRICT"
	NoAction   = "NO ACTION"
	SetDefault = "SET DEFAULT"
)

var onDeletePolicies = []string{Cascade, SetNull, Restrict, NoAction, SetDefault}

var (
	emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	urlRegexp   = regexp.MustCompile(`(?i)^(https?|ftp)://[^\s/$.?#].[^\s]*$`)
)

// TimeReflectType reflect type of time.Time
var TimeReflectType = reflect.TypeOf(time.Time{})

// UUIDReflectType reflect type of uuid.UUID
var UUIDReflectType = reflect.TypeOf(uuid.UUID{})

// Field describes one column of a model. Fields are immutable once the
// schema owning them has been built.
type Field struct {
	Name          string
	DBName        string
	Kind          Kind
	MaxLength     int
	MinLength     int
	Unique        bool
	Null          bool
	HasDefault    bool
	Default       interface{}
	MaxDigits     int
	DecimalPlaces int
	AutoNow       bool
	AutoNowAdd    bool
	AutoUUID      bool
	// ToModel is the name of the model a ForeignKey points at, ToTable its
	// table once the target is registered
	ToModel     string
	ToTable     string
	OnDelete    string
	RelatedName string

	StructField reflect.StructField
	StructIndex []int
	FieldType   reflect.Type
	Schema      *Schema
}

// FieldOption configures a field built with NewField
type FieldOption func(*Field)

// MaxLength sets the maximum length of textual fields
func MaxLength(n int) FieldOption { return func(f *Field) { f.MaxLength = n } }

// MinLength sets the minimum length of textual fields
func MinLength(n int) FieldOption { return func(f *Field) { f.MinLength = n } }

// Unique adds a UNIQUE constraint
func Unique() FieldOption { return func(f *Field) { f.Unique = true } }

// Null allows NULL values
func Null() FieldOption { return func(f *Field) { f.Null = true } }

// Default sets the column default
func Default(v interface{}) FieldOption {
	return func(f *Field) {
		f.HasDefault = true
		f.Default = v
	}
}

// Digits sets precision and scale of a Decimal field
func Digits(maxDigits, decimalPlaces int) FieldOption {
	return func(f *Field) {
		f.MaxDigits = maxDigits
		f.DecimalPlaces = decimalPlaces
	}
}

// AutoNow stamps the field with the current time on every write
func AutoNow() FieldOption { return func(f *Field) { f.AutoNow = true } }

// AutoNowAdd stamps the field with the current time on create
func AutoNowAdd() FieldOption { return func(f *Field) { f.AutoNowAdd = true } }

// AutoUUID generates a random UUID on create
func AutoUUID() FieldOption { return func(f *Field) { f.AutoUUID = true } }

// Column overrides the column name
func Column(name string) FieldOption { return func(f *Field) { f.DBName = name } }

// References points a ForeignKey at a model. An empty onDelete means CASCADE.
func References(model, onDelete, relatedName string) FieldOption {
	return func(f *Field) {
		f.ToModel = model
		f.OnDelete = onDelete
		f.RelatedName = relatedName
	}
}

// NewField declares a field programmatically
func NewField(name string, kind Kind, opts ...FieldOption) (*Field, error) {
	field := &Field{Name: name, Kind: kind}
	for _, opt := range opts {
		opt(field)
	}
	if err := field.prepare(); err != nil {
		return nil, err
	}
	return field, nil
}

// prepare fills kind defaults and checks the declaration
func (field *Field) prepare() error {
	if field.Name == "" {
		return fmt.Errorf("%w: field without name", ErrInvalidDeclaration)
	}
	if _, err := ParseKind(string(field.Kind)); err != nil {
		return err
	}

	switch field.Kind {
	case Char, Email:
		if field.MaxLength == 0 {
			field.MaxLength = DefaultMaxLength
		}
	case URL:
		if field.MaxLength == 0 {
			field.MaxLength = DefaultURLMaxLength
		}
	case Boolean:
		if !field.HasDefault {
			field.HasDefault, field.Default = true, false
		}
	case Decimal:
		if field.MaxDigits <= 0 || field.DecimalPlaces < 0 {
			return fmt.Errorf("%w: decimal field %s needs positive max digits", ErrInvalidDeclaration, field.Name)
		}
		if field.DecimalPlaces > field.MaxDigits {
			return fmt.Errorf("%w: decimal places (%d) of field %s exceed max digits (%d)",
				ErrInvalidDeclaration, field.DecimalPlaces, field.Name, field.MaxDigits)
		}
	case ForeignKey:
		if field.ToModel == "" {
			return fmt.Errorf("%w: foreign key %s without target model", ErrInvalidDeclaration, field.Name)
		}
		field.OnDelete = strings.ToUpper(strings.TrimSpace(field.OnDelete))
		if field.OnDelete == "" {
			field.OnDelete = Cascade
		}
		if !utils.Contains(onDeletePolicies, field.OnDelete) {
			return fmt.Errorf("%w: %q on field %s", ErrInvalidOnDelete, field.OnDelete, field.Name)
		}
	}

	if field.MaxLength < 0 || field.MinLength < 0 || (field.MaxLength > 0 && field.MinLength > field.MaxLength) {
		return fmt.Errorf("%w: invalid length bounds on field %s", ErrInvalidDeclaration, field.Name)
	}
	if field.AutoUUID && field.Kind != UUID {
		return fmt.Errorf("%w: auto uuid on %s field %s", ErrInvalidDeclaration, field.Kind, field.Name)
	}
	if (field.AutoNow || field.AutoNowAdd) && !field.Kind.IsTemporal() {
		return fmt.Errorf("%w: auto now on %s field %s", ErrInvalidDeclaration, field.Kind, field.Name)
	}

	if field.HasDefault && field.Default != nil {
		value, err := field.Convert(field.Default)
		if err != nil {
			return fmt.Errorf("%w: default of field %s: %v", ErrInvalidDeclaration, field.Name, err)
		}
		field.Default = value
	}
	return nil
}

// Required reports whether a value must be supplied on create
func (field *Field) Required() bool {
	return !field.Null && !field.HasDefault && !field.AutoNow && !field.AutoNowAdd && !field.AutoUUID
}

// Validate converts v to the canonical Go value of the field, checking every
// declared constraint
func (field *Field) Validate(v interface{}) (interface{}, error) {
	v = deref(v)
	if v == nil {
		if field.Null {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrNullNotAllowed, field.DBName)
	}

	value, err := field.Convert(v)
	if err != nil {
		return nil, err
	}

	switch field.Kind {
	case Char, Text, Email, URL:
		s := value.(string)
		if n := utf8.RuneCountInString(s); field.MaxLength > 0 && n > field.MaxLength {
			return nil, fmt.Errorf("%w: %s is %d characters, max %d", ErrTooLong, field.DBName, n, field.MaxLength)
		} else if n < field.MinLength {
			return nil, fmt.Errorf("%w: %s is %d characters, min %d", ErrTooShort, field.DBName, n, field.MinLength)
		}
		if field.Kind == Email && !emailRegexp.MatchString(s) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidEmail, s)
		}
		if field.Kind == URL && !urlRegexp.MatchString(s) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidURL, s)
		}
	case Decimal:
		digits, places := countDigits(value.(float64))
		if digits > field.MaxDigits {
			return nil, fmt.Errorf("%w: %s has %d digits, max %d", ErrPrecision, field.DBName, digits, field.MaxDigits)
		}
		if places > field.DecimalPlaces {
			return nil, fmt.Errorf("%w: %s has %d decimal places, max %d", ErrPrecision, field.DBName, places, field.DecimalPlaces)
		}
	case ForeignKey:
		if value.(int64) <= 0 {
			return nil, fmt.Errorf("%w: %s references id %d", ErrInvalidRelation, field.DBName, value)
		}
	}
	return value, nil
}

// countDigits counts the digits of the shortest decimal form of v, and how
// many of them follow the decimal point
func countDigits(v float64) (digits, places int) {
	s := strconv.FormatFloat(math.Abs(v), 'f', -1, 64)
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		places = len(s) - idx - 1
	}
	return len(strings.Replace(s, ".", "", 1)), places
}

// Scan converts a value read from a driver to the canonical Go value
func (field *Field) Scan(raw interface{}) (interface{}, error) {
	if b, ok := raw.([]byte); ok {
		raw = string(b)
	}
	if raw == nil {
		return nil, nil
	}
	return field.Convert(raw)
}

// Convert converts v to the canonical Go value of the kind without checking
// length, precision or format constraints
func (field *Field) Convert(v interface{}) (interface{}, error) {
	v = deref(v)
	switch field.Kind {
	case Char, Text, Email, URL:
		if t, ok := v.(time.Time); ok {
			return t.Format(time.RFC3339), nil
		}
		return utils.ToString(v), nil
	case Integer, ForeignKey:
		return field.toInt(v)
	case Float, Decimal:
		return field.toFloat(v)
	case Boolean:
		return field.toBool(v)
	case Date, DateTime, Time:
		t, err := field.toTime(v)
		if err != nil {
			return nil, err
		}
		return field.normalizeTime(t), nil
	case UUID:
		switch u := v.(type) {
		case uuid.UUID:
			return u, nil
		case [16]byte:
			return uuid.UUID(u), nil
		case string:
			id, err := uuid.Parse(u)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrInvalidUUID, field.DBName, err)
			}
			return id, nil
		}
		return nil, fmt.Errorf("%w: %s: %T", ErrInvalidUUID, field.DBName, v)
	}
	return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidDeclaration, field.Kind)
}

func (field *Field) conversionError(v interface{}) error {
	return fmt.Errorf("%w: %s expects %s, got %T(%v)", ErrConversion, field.DBName, field.Kind, v, v)
}

func (field *Field) toInt(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, field.conversionError(v)
		}
		return int64(n), nil
	case float32:
		return field.toInt(float64(n))
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return 0, field.conversionError(v)
		}
		return int64(n), nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, field.conversionError(v)
		}
		return i, nil
	}
	return 0, field.conversionError(v)
}

func (field *Field) toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float32:
		// through the shortest decimal form so 0.1 stays 0.1
		return strconv.ParseFloat(strconv.FormatFloat(float64(n), 'f', -1, 32), 64)
	case float64:
		return n, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, field.conversionError(v)
		}
		return f, nil
	case bool:
		return 0, field.conversionError(v)
	}
	i, err := field.toInt(v)
	if err != nil {
		return 0, err
	}
	return float64(i), nil
}

var (
	truthy = []string{"true", "1", "t", "yes", "y"}
	falsy  = []string{"false", "0", "f", "no", "n"}
)

func (field *Field) toBool(v interface{}) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		s := strings.ToLower(strings.TrimSpace(b))
		if utils.Contains(truthy, s) {
			return true, nil
		} else if utils.Contains(falsy, s) {
			return false, nil
		}
		return false, field.conversionError(v)
	case float32, float64:
		f, _ := field.toFloat(v)
		return f != 0, nil
	}
	i, err := field.toInt(v)
	if err != nil {
		return false, err
	}
	return i != 0, nil
}

var (
	dateTimeLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04:05.999999999",
		"2006-01-02",
	}
	timeLayouts = []string{"15:04:05.999999999", "15:04"}
)

func (field *Field) toTime(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		layouts := dateTimeLayouts
		if field.Kind == Time {
			layouts = append(append([]string{}, timeLayouts...), dateTimeLayouts...)
		}
		for _, layout := range layouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, nil
			}
		}
		if parsed, err := now.Parse(s); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, field.conversionError(v)
}

// normalizeTime drops the parts of t the kind does not store: the clock of a
// Date, the date of a Time and sub-second precision of a DateTime
func (field *Field) normalizeTime(t time.Time) time.Time {
	switch field.Kind {
	case Date:
		day := now.With(t).BeginningOfDay()
		return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	case Time:
		return time.Date(0, 1, 1, t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
	}
	return t.Truncate(time.Second)
}

// ValueOf reads the field from a struct value
func (field *Field) ValueOf(rv reflect.Value) interface{} {
	fv := reflect.Indirect(rv).FieldByIndex(field.StructIndex)
	if fv.Kind() == reflect.Ptr {
		if fv.IsNil() {
			return nil
		}
		fv = fv.Elem()
	}
	return fv.Interface()
}

// Set assigns a canonical value to the field of a struct value
func (field *Field) Set(rv reflect.Value, v interface{}) error {
	fv := reflect.Indirect(rv).FieldByIndex(field.StructIndex)
	if v == nil {
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}

	target := fv
	if fv.Kind() == reflect.Ptr {
		target = reflect.New(fv.Type().Elem()).Elem()
	}

	value := reflect.ValueOf(v)
	switch {
	case value.Type().AssignableTo(target.Type()):
		target.Set(value)
	case target.Kind() == reflect.String && value.Kind() != reflect.String:
		target.SetString(utils.ToString(v))
	case target.Kind() == reflect.String || value.Kind() != reflect.String:
		if !value.Type().ConvertibleTo(target.Type()) {
			return fmt.Errorf("%w: cannot set %T into %s (%s)", ErrConversion, v, field.Name, target.Type())
		}
		target.Set(value.Convert(target.Type()))
	default:
		return fmt.Errorf("%w: cannot set %T into %s (%s)", ErrConversion, v, field.Name, target.Type())
	}

	if fv.Kind() == reflect.Ptr {
		fv.Set(target.Addr())
	}
	return nil
}

func deref(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	return rv.Interface()
}

// Validation and declaration errors
var (
	ErrNullNotAllowed     = errors.New("null value not allowed")
	ErrConversion         = errors.New("type conversion failed")
	ErrTooLong            = errors.New("value too long")
	ErrTooShort           = errors.New("value too short")
	ErrPrecision          = errors.New("decimal precision exceeded")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidURL         = errors.New("invalid url")
	ErrInvalidRelation    = errors.New("invalid relation reference")
	ErrInvalidUUID        = errors.New("invalid uuid")
	ErrInvalidOnDelete    = errors.New("invalid on delete policy")
	ErrInvalidDeclaration = errors.New("invalid field declaration")
	ErrUnsupportedType    = errors.New("unsupported data type")
	ErrMissingPrimaryKey  = errors.New("model has no integer ID field")
)
