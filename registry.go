package abarorm

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/abarorm/abarorm/schema"
)

type relationKey struct {
	model string
	name  string
}

// relation is a reverse accessor: rows of source whose field points at the
// model the relation is registered under
type relation struct {
	source *table
	field  *schema.Field
}

// registry holds the models registered on a DB and the reverse relations
// between them, outside of either model
type registry struct {
	mu        sync.RWMutex
	models    map[string]*table
	types     map[reflect.Type]*table
	relations map[relationKey]relation
}

func newRegistry() *registry {
	return &registry{
		models:    map[string]*table{},
		types:     map[reflect.Type]*table{},
		relations: map[relationKey]relation{},
	}
}

// add resolves the foreign keys of t, then records t and its reverse
// relations
func (r *registry) add(t *table) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, field := range t.schema.ForeignKeys() {
		if field.ToModel == t.schema.Name {
			field.ToTable = t.schema.Table
			continue
		}

		target, ok := r.models[field.ToModel]
		if !ok {
			return fmt.Errorf("%w: %s.%s references %s", ErrUnregisteredModel, t.schema.Name, field.Name, field.ToModel)
		}
		field.ToTable = target.schema.Table
	}

	r.models[t.schema.Name] = t
	if t.schema.ModelType != nil {
		r.types[t.schema.ModelType] = t
	}

	for _, field := range t.schema.ForeignKeys() {
		if field.RelatedName != "" {
			r.relations[relationKey{model: field.ToModel, name: field.RelatedName}] = relation{source: t, field: field}
		}
	}
	return nil
}

func (r *registry) lookupType(typ reflect.Type) (*table, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[typ]
	return t, ok
}

func (r *registry) lookupRelation(model, name string) (relation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rel, ok := r.relations[relationKey{model: model, name: name}]
	return rel, ok
}

// RelatedNames lists the reverse accessors registered for a model
func (db *DB) RelatedNames(model string) []string {
	db.registry.mu.RLock()
	defer db.registry.mu.RUnlock()

	var names []string
	for key := range db.registry.relations {
		if key.model == model {
			names = append(names, key.name)
		}
	}
	sort.Strings(names)
	return names
}
