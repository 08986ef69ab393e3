// Package index defines secondary indexes on entity fields.
//
// Indexes are declared with a chained builder and bound to an entity by
// New:
//
//	idx, err := index.New("users", index.Fields("first", "last").Unique().Descriptor())
//
// An index may reference fields the entity does not carry yet, e.g.
// fields contributed later by a mixin. Such descriptors are held as
// pending by the entity manager and resolved in a finalize step.
package index

import (
	"fmt"
	"slices"
	"strings"

	"github.com/syssam/tabula/schema"
)

// Descriptor holds the configuration an index is built from.
type Descriptor struct {
	Fields      []string            // indexed fields, in order
	Unique      bool                // uniqueness constraint
	StorageKey  string              // explicit index name (optional)
	Annotations []schema.Annotation // driver/tool specific settings
	Err         error               // deferred builder error, checked by New
}

// Builder is the chained descriptor builder.
type Builder struct{ desc *Descriptor }

// Fields starts an index over the given fields, in order.
func Fields(fields ...string) *Builder {
	return &Builder{desc: &Descriptor{Fields: fields}}
}

// Unique marks the index as a uniqueness constraint.
func (b *Builder) Unique() *Builder {
	b.desc.Unique = true
	return b
}

// StorageKey sets an explicit index name instead of the generated one.
func (b *Builder) StorageKey(key string) *Builder {
	b.desc.StorageKey = key
	return b
}

// Annotations adds annotations to the index.
func (b *Builder) Annotations(a ...schema.Annotation) *Builder {
	b.desc.Annotations = append(b.desc.Annotations, a...)
	return b
}

// Descriptor returns the built descriptor.
func (b *Builder) Descriptor() *Descriptor { return b.desc }

// Index is a named ordered field list on one entity.
type Index struct {
	name   string
	entity string
	fields []string
	unique bool
}

// New validates the descriptor and binds it to the given entity. A
// missing storage key derives the name from the entity and field list.
func New(entity string, d *Descriptor) (*Index, error) {
	if d.Err != nil {
		return nil, fmt.Errorf("index on %q: %w", entity, d.Err)
	}
	if entity == "" {
		return nil, fmt.Errorf("index: missing entity name")
	}
	if len(d.Fields) == 0 {
		return nil, fmt.Errorf("index on %q: at least one field is required", entity)
	}
	seen := make(map[string]bool, len(d.Fields))
	for _, f := range d.Fields {
		if f == "" {
			return nil, fmt.Errorf("index on %q: empty field name", entity)
		}
		if seen[f] {
			return nil, fmt.Errorf("index on %q: duplicate field %q", entity, f)
		}
		seen[f] = true
	}
	name := d.StorageKey
	if name == "" {
		name = fmt.Sprintf("idx_%s_%s", entity, strings.Join(d.Fields, "_"))
	}
	return &Index{
		name:   name,
		entity: entity,
		fields: slices.Clone(d.Fields),
		unique: d.Unique,
	}, nil
}

// Name returns the index name.
func (i *Index) Name() string { return i.name }

// Entity returns the owning entity name.
func (i *Index) Entity() string { return i.entity }

// Fields returns the indexed fields, in order.
func (i *Index) Fields() []string { return slices.Clone(i.fields) }

// Unique reports whether the index enforces uniqueness.
func (i *Index) Unique() bool { return i.unique }
