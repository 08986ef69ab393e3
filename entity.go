package tabula

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/syssam/tabula/schema/field"
)

// EntityType distinguishes user-defined entities from framework-internal
// ones.
type EntityType string

// The entity types.
const (
	EntityRegular EntityType = "regular"
	// EntitySystem marks framework-internal entities. Generic write
	// APIs reject them unless system writes are explicitly enabled.
	EntitySystem EntityType = "system"
)

// EntityConfig carries presentation-level entity settings.
type EntityConfig struct {
	// DisplayField names the field shown when the entity is referenced.
	DisplayField string `json:"displayField,omitempty"`
	// DefaultSort is the default order field for listings.
	DefaultSort string `json:"defaultSort,omitempty"`
	// Description documents the entity.
	Description string `json:"description,omitempty"`
}

// Entity is one named collection definition: an ordered set of fields
// with exactly one primary. Immutable after construction.
type Entity struct {
	name    string
	typ     EntityType
	config  EntityConfig
	fields  []field.Field
	byName  map[string]field.Field
	primary *field.PrimaryField
}

// NewEntity validates and builds an entity from its constructed fields.
// Field names must be unique and exactly one field must be primary.
func NewEntity(name string, typ EntityType, config EntityConfig, fields ...field.Field) (*Entity, error) {
	if name == "" {
		return nil, NewConfigurationError("entity", "", errors.New("name is required"))
	}
	if typ == "" {
		typ = EntityRegular
	}
	if typ != EntityRegular && typ != EntitySystem {
		return nil, NewConfigurationError("entity", name, fmt.Errorf("invalid type %q", typ))
	}
	e := &Entity{
		name:   name,
		typ:    typ,
		config: config,
		fields: make([]field.Field, 0, len(fields)),
		byName: make(map[string]field.Field, len(fields)),
	}
	for _, f := range fields {
		if _, ok := e.byName[f.Name()]; ok {
			return nil, NewConfigurationError("entity", name, fmt.Errorf("duplicate field %q", f.Name()))
		}
		if pf, ok := f.(*field.PrimaryField); ok {
			if e.primary != nil {
				return nil, NewConfigurationError("entity", name, fmt.Errorf("multiple primary fields (%q, %q)", e.primary.Name(), pf.Name()))
			}
			e.primary = pf
		}
		e.fields = append(e.fields, f)
		e.byName[f.Name()] = f
	}
	if e.primary == nil {
		return nil, NewConfigurationError("entity", name, errors.New("a primary field is required"))
	}
	return e, nil
}

// Name returns the entity name.
func (e *Entity) Name() string { return e.name }

// Type returns the entity type.
func (e *Entity) Type() EntityType { return e.typ }

// IsSystem reports whether the entity is framework-internal.
func (e *Entity) IsSystem() bool { return e.typ == EntitySystem }

// Config returns the presentation configuration.
func (e *Entity) Config() EntityConfig { return e.config }

// Fields returns the fields in declaration order.
func (e *Entity) Fields() []field.Field {
	out := make([]field.Field, len(e.fields))
	copy(out, e.fields)
	return out
}

// Field returns the named field.
func (e *Entity) Field(name string) (field.Field, bool) {
	f, ok := e.byName[name]
	return f, ok
}

// Primary returns the primary field.
func (e *Entity) Primary() *field.PrimaryField { return e.primary }

// Defaults returns the declared default values per field. Computed
// defaults are evaluated at call time.
func (e *Entity) Defaults() EntityData {
	out := make(EntityData)
	for _, f := range e.fields {
		if f.Type() == field.TypePrimary || f.Type() == field.TypeVirtual {
			continue
		}
		if f.HasDefault() {
			out[f.Name()] = f.Default()
		}
	}
	return out
}

// Equal reports structural equality: same name, type and ordered fields
// with identical storage and validation shape. It backs idempotent
// re-registration, so presentation config is deliberately excluded; a
// redefinition that changes constraints, primary format or handler
// wiring is a different entity.
func (e *Entity) Equal(o *Entity) bool {
	if o == nil || e.name != o.name || e.typ != o.typ || len(e.fields) != len(o.fields) {
		return false
	}
	for i, f := range e.fields {
		if !f.Descriptor().Equal(o.fields[i].Descriptor()) {
			return false
		}
	}
	return true
}

// MarshalJSON renders the entity metadata: name, type, config and the
// field schemas.
func (e *Entity) MarshalJSON() ([]byte, error) {
	type fieldMeta struct {
		Name     string `json:"name"`
		TypeName string `json:"type"`
		Nullable bool   `json:"nullable,omitempty"`
		Primary  bool   `json:"primary,omitempty"`
		Required bool   `json:"required,omitempty"`
	}
	fields := make([]fieldMeta, 0, len(e.fields))
	for _, f := range e.fields {
		s := f.Schema()
		fields = append(fields, fieldMeta{
			Name:     s.Name,
			TypeName: s.Type.String(),
			Nullable: s.Nullable,
			Primary:  s.Primary,
			Required: f.Required(),
		})
	}
	return json.Marshal(struct {
		Name   string       `json:"name"`
		Type   EntityType   `json:"entityType"`
		Config EntityConfig `json:"config,omitempty"`
		Fields []fieldMeta  `json:"fields"`
	}{
		Name:   e.name,
		Type:   e.typ,
		Config: e.config,
		Fields: fields,
	})
}
