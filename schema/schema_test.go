package schema

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cacheStore sync.Map

type Timestamps struct {
	CreatedAt time.Time `abar:"auto_now_add"`
	UpdatedAt time.Time `abar:"auto_now"`
}

type Article struct {
	ID        int64
	Title     string     `abar:"size:100;unique"`
	Slug      string     `abar:"column:permalink;min:3"`
	Body      string     `abar:"type:text"`
	Price     float64    `abar:"type:decimal;decimal:8,2"`
	Rating    *float64   `abar:"default:2.5"`
	Published bool       `abar:"default:true"`
	Token     uuid.UUID  `abar:"auto"`
	Author    int64      `abar:"fk:Author;on_delete:set null;related_name:articles;null"`
	PublishOn *time.Time `abar:"type:date"`
	Draft     string     `abar:"-"`
	internal  string
	Timestamps
}

type Tagged struct {
	ID   int
	Name string
}

func (Tagged) TableName() string { return "labels" }

func TestParseStruct(t *testing.T) {
	schema, err := Parse(&Article{}, &cacheStore, NamingStrategy{})
	require.NoError(t, err)

	assert.Equal(t, "Article", schema.Name)
	assert.Equal(t, "article", schema.Table)
	assert.Equal(t, []int{0}, schema.PrimaryIndex)
	assert.Equal(t, []string{
		"title", "permalink", "body", "price", "rating", "published", "token",
		"author", "publish_on", "created_at", "updated_at",
	}, schema.DBNames)

	title := schema.LookUpField("Title")
	require.NotNil(t, title)
	assert.Equal(t, Char, title.Kind)
	assert.Equal(t, 100, title.MaxLength)
	assert.True(t, title.Unique)
	assert.False(t, title.Null)

	slug := schema.LookUpField("permalink")
	assert.Equal(t, "Slug", slug.Name)
	assert.Equal(t, 3, slug.MinLength)

	assert.Equal(t, Text, schema.LookUpField("body").Kind)

	price := schema.LookUpField("price")
	assert.Equal(t, Decimal, price.Kind)
	assert.Equal(t, 8, price.MaxDigits)
	assert.Equal(t, 2, price.DecimalPlaces)

	rating := schema.LookUpField("rating")
	assert.True(t, rating.Null)
	assert.Equal(t, 2.5, rating.Default)

	assert.Equal(t, true, schema.LookUpField("published").Default)
	assert.True(t, schema.LookUpField("token").AutoUUID)

	author := schema.LookUpField("author")
	assert.Equal(t, ForeignKey, author.Kind)
	assert.Equal(t, "Author", author.ToModel)
	assert.Equal(t, SetNull, author.OnDelete)
	assert.Equal(t, "articles", author.RelatedName)
	assert.True(t, author.Null)
	assert.Equal(t, []*Field{author}, schema.ForeignKeys())

	publishOn := schema.LookUpField("publish_on")
	assert.Equal(t, Date, publishOn.Kind)
	assert.True(t, publishOn.Null)

	createdAt := schema.LookUpField("created_at")
	assert.True(t, createdAt.AutoNowAdd)
	assert.Equal(t, []int{12, 0}, createdAt.StructIndex)
	assert.True(t, schema.LookUpField("updated_at").AutoNow)

	assert.Nil(t, schema.LookUpField("draft"))
	assert.Nil(t, schema.LookUpField("internal"))

	cached, err := Parse([]Article{}, &cacheStore, NamingStrategy{})
	require.NoError(t, err)
	assert.Same(t, schema, cached)
}

func TestParseTableName(t *testing.T) {
	schema, err := Parse(Tagged{}, &cacheStore, NamingStrategy{Pluralize: true})
	require.NoError(t, err)
	assert.Equal(t, "labels", schema.Table)
}

func TestParseErrors(t *testing.T) {
	type NoID struct{ Name string }
	type TextID struct {
		ID   string
		Name string
	}
	type Unsupported struct {
		ID   int64
		Tags []string
	}
	type BadDecimal struct {
		ID    int64
		Price float64 `abar:"type:decimal;decimal:2,4"`
	}
	type BadOnDelete struct {
		ID     int64
		Parent int64 `abar:"fk:Parent;on_delete:explode"`
	}

	tests := []struct {
		name  string
		model interface{}
		err   error
	}{
		{"no id", &NoID{}, ErrMissingPrimaryKey},
		{"text id", &TextID{}, ErrMissingPrimaryKey},
		{"slice field", &Unsupported{}, ErrUnsupportedType},
		{"bad decimal", &BadDecimal{}, ErrInvalidDeclaration},
		{"bad on delete", &BadOnDelete{}, ErrInvalidOnDelete},
		{"not a struct", new(int), ErrUnsupportedType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.model, &sync.Map{}, NamingStrategy{})
			assert.True(t, errors.Is(err, tt.err), "expected %v, got %v", tt.err, err)
		})
	}
}

func TestNewSchema(t *testing.T) {
	title, err := NewField("title", Char, MaxLength(100), Unique())
	require.NoError(t, err)
	category, err := NewField("category", ForeignKey, References("Category", "", "posts"))
	require.NoError(t, err)

	schema, err := New("Post", "", NamingStrategy{TablePrefix: "blog_"}, title, category)
	require.NoError(t, err)
	assert.Equal(t, "blog_post", schema.Table)
	assert.Nil(t, schema.ModelType)
	assert.Equal(t, []string{"title", "category"}, schema.DBNames)
	assert.Same(t, schema, title.Schema)
	assert.Equal(t, "Post", schema.String())

	id, err := NewField("id", Integer)
	require.NoError(t, err)
	_, err = New("Bad", "", NamingStrategy{}, id)
	assert.True(t, errors.Is(err, ErrInvalidDeclaration))

	dup, err := NewField("title", Text)
	require.NoError(t, err)
	_, err = New("Dup", "", NamingStrategy{}, dup, dup)
	assert.True(t, errors.Is(err, ErrInvalidDeclaration))

	_, err = New("Bad", "drop table;", NamingStrategy{})
	assert.True(t, errors.Is(err, ErrInvalidDeclaration))
}

func TestParseTagSetting(t *testing.T) {
	settings := ParseTagSetting(`size:100;unique;default:a\;b;null:false`, ";")
	assert.Equal(t, map[string]string{
		"SIZE":    "100",
		"UNIQUE":  "UNIQUE",
		"DEFAULT": "a;b",
		"NULL":    "false",
	}, settings)

	v, ok := flag(settings, "UNIQUE")
	assert.True(t, v && ok)
	v, ok = flag(settings, "NULL")
	assert.True(t, ok)
	assert.False(t, v)
	_, ok = flag(settings, "AUTO_NOW")
	assert.False(t, ok)
}
