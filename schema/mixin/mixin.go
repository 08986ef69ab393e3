// Package mixin defines reusable sets of fields and indexes that
// declarative entity configs can pull in by name.
//
// A mixin contributes field and index descriptors to every entity that
// references it. Custom mixins embed Schema and override the methods
// they need:
//
//	type AuditMixin struct {
//	    mixin.Schema
//	}
//
//	func (AuditMixin) Fields() []field.Builder {
//	    return []field.Builder{
//	        field.Text("created_by").MaxLen(64),
//	        field.Text("updated_by").MaxLen(64),
//	    }
//	}
//
// Ready-made mixins (timestamps, soft delete, tenant id, uuid primary)
// live in contrib/mixin.
package mixin

import (
	"github.com/syssam/tabula/schema"
	"github.com/syssam/tabula/schema/field"
	"github.com/syssam/tabula/schema/index"
)

// Mixin is a reusable set of field and index contributions.
type Mixin interface {
	// Fields returns the contributed field builders.
	Fields() []field.Builder
	// Indexes returns the contributed index descriptors.
	Indexes() []*index.Descriptor
}

// Schema is the default no-op Mixin implementation. Embed it in custom
// mixin definitions and override the methods you need.
type Schema struct{}

// Fields returns the fields of the mixin.
func (Schema) Fields() []field.Builder { return nil }

// Indexes returns the indexes of the mixin.
func (Schema) Indexes() []*index.Descriptor { return nil }

var _ Mixin = (*Schema)(nil)

// AnnotateFields wraps a mixin and adds annotations to all its fields.
func AnnotateFields(m Mixin, annotations ...schema.Annotation) Mixin {
	return fieldAnnotator{Mixin: m, annotations: annotations}
}

type fieldAnnotator struct {
	Mixin
	annotations []schema.Annotation
}

func (a fieldAnnotator) Fields() []field.Builder {
	fields := a.Mixin.Fields()
	for i := range fields {
		desc := fields[i].Descriptor()
		desc.Annotations = append(desc.Annotations, a.annotations...)
	}
	return fields
}
