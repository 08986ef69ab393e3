package mixin_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/tabula/schema"
	"github.com/syssam/tabula/schema/field"
	"github.com/syssam/tabula/schema/index"
	"github.com/syssam/tabula/schema/mixin"
)

type auditMixin struct{ mixin.Schema }

func (auditMixin) Fields() []field.Builder {
	return []field.Builder{
		field.Text("created_by").MaxLen(64),
		field.Text("updated_by").MaxLen(64),
	}
}

func (auditMixin) Indexes() []*index.Descriptor {
	return []*index.Descriptor{
		index.Fields("created_by").Descriptor(),
	}
}

func TestSchemaDefaults(t *testing.T) {
	var s mixin.Schema
	assert.Nil(t, s.Fields())
	assert.Nil(t, s.Indexes())
}

func TestCustomMixin(t *testing.T) {
	var m mixin.Mixin = auditMixin{}
	fields := m.Fields()
	require.Len(t, fields, 2)
	assert.Equal(t, "created_by", fields[0].Descriptor().Name)
	assert.Equal(t, "updated_by", fields[1].Descriptor().Name)

	indexes := m.Indexes()
	require.Len(t, indexes, 1)
	assert.Equal(t, []string{"created_by"}, indexes[0].Fields)
}

func TestAnnotateFields(t *testing.T) {
	m := mixin.AnnotateFields(auditMixin{}, schema.Comment("audit trail"))
	for _, f := range m.Fields() {
		anns := f.Descriptor().Annotations
		require.Len(t, anns, 1)
		c, ok := anns[0].(*schema.CommentAnnotation)
		require.True(t, ok)
		assert.Equal(t, "audit trail", c.Text)
	}
	// Indexes pass through untouched.
	assert.Len(t, m.Indexes(), 1)
}
