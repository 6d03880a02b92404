package abarorm

import (
	"context"
)

// RelatedManager reads the rows of a referencing model that point at one
// row through a foreign key. Nothing is read until a method is called.
type RelatedManager struct {
	relation relation
	id       int64
}

func (rm *RelatedManager) where(where Where) Where {
	scoped := make(Where, len(where)+1)
	for k, v := range where {
		scoped[k] = v
	}
	scoped[rm.relation.field.DBName] = rm.id
	return scoped
}

// All reads every referencing row
func (rm *RelatedManager) All(ctx context.Context, opts ...QueryOption) (*QuerySet[Record], error) {
	return rm.Filter(ctx, nil, opts...)
}

// Filter reads the referencing rows that also match where
func (rm *RelatedManager) Filter(ctx context.Context, where Where, opts ...QueryOption) (*QuerySet[Record], error) {
	model := &Model[Record]{table: rm.relation.source, codec: recordCodec{}}
	return model.Filter(ctx, rm.where(where), opts...)
}

// First returns the first referencing row, or nil
func (rm *RelatedManager) First(ctx context.Context, opts ...QueryOption) (Record, error) {
	qs, err := rm.All(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return qs.First(), nil
}

// Last returns the last referencing row, or nil
func (rm *RelatedManager) Last(ctx context.Context, opts ...QueryOption) (Record, error) {
	qs, err := rm.All(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return qs.Last(), nil
}

// Count returns the number of referencing rows
func (rm *RelatedManager) Count(ctx context.Context) (int, error) {
	qs, err := rm.All(ctx)
	if err != nil {
		return 0, err
	}
	return qs.Count(), nil
}

// ToDict returns the referencing rows as maps
func (rm *RelatedManager) ToDict(ctx context.Context, opts ...QueryOption) ([]map[string]interface{}, error) {
	qs, err := rm.All(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return qs.ToDict(), nil
}
