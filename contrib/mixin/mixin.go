// Package mixin provides ready-to-use mixins for common entity patterns.
//
// These mixins are optional starting points. Declarative configs pull
// them in under the names registered by the schema loader; Go callers
// reference them directly:
//
//	mixin.Time{}       // created_at, updated_at
//	mixin.SoftDelete{} // deleted_at
//	mixin.TenantID{}   // tenant_id + index
//	mixin.ID{}         // uuid primary key
package mixin

import (
	"github.com/syssam/tabula/schema/field"
	"github.com/syssam/tabula/schema/index"
	"github.com/syssam/tabula/schema/mixin"
)

// CreateTime adds a created_at date field, set once at insert and locked
// against client input.
type CreateTime struct{ mixin.Schema }

// Fields of the create time mixin.
func (CreateTime) Fields() []field.Builder {
	return []field.Builder{
		field.Date("created_at").
			DefaultNow().
			Fillable().
			Comment("Timestamp when the entity was created"),
	}
}

// UpdateTime adds an updated_at date field, maintained by the mutator on
// every update.
type UpdateTime struct{ mixin.Schema }

// Fields of the update time mixin.
func (UpdateTime) Fields() []field.Builder {
	return []field.Builder{
		field.Date("updated_at").
			DefaultNow().
			Fillable().
			Comment("Timestamp when the entity was last updated"),
	}
}

// Time combines CreateTime and UpdateTime.
type Time struct{ mixin.Schema }

// Fields of the time mixin.
func (Time) Fields() []field.Builder {
	return append(CreateTime{}.Fields(), UpdateTime{}.Fields()...)
}

// SoftDelete adds a nullable deleted_at date field. A set value marks
// the row as deleted while it remains in storage.
type SoftDelete struct{ mixin.Schema }

// Fields of the soft delete mixin.
func (SoftDelete) Fields() []field.Builder {
	return []field.Builder{
		field.Date("deleted_at").
			Nullable().
			Fillable().
			Comment("Timestamp when the entity was soft deleted (NULL means live)"),
	}
}

// TimeSoftDelete combines Time and SoftDelete.
type TimeSoftDelete struct{ mixin.Schema }

// Fields of the combined mixin.
func (TimeSoftDelete) Fields() []field.Builder {
	return append(Time{}.Fields(), SoftDelete{}.Fields()...)
}

// TenantID adds a required tenant_id text field with a supporting index
// for multi-tenant partitioning.
type TenantID struct{ mixin.Schema }

// Fields of the tenant mixin.
func (TenantID) Fields() []field.Builder {
	return []field.Builder{
		field.Text("tenant_id").
			MaxLen(64).
			Required().
			Fillable(field.ContextCreate).
			Comment("Owning tenant identifier"),
	}
}

// Indexes of the tenant mixin.
func (TenantID) Indexes() []*index.Descriptor {
	return []*index.Descriptor{
		index.Fields("tenant_id").Descriptor(),
	}
}

// ID adds a uuid-format primary field named id.
type ID struct{ mixin.Schema }

// Fields of the id mixin.
func (ID) Fields() []field.Builder {
	return []field.Builder{
		field.Primary("id").UUID(),
	}
}
