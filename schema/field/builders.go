package field

import (
	"time"

	"github.com/syssam/tabula/schema"
)

// descBuilder is the chained-builder core shared by all variants.
type descBuilder struct{ desc *Descriptor }

// Descriptor implements the Builder interface.
func (b *descBuilder) Descriptor() *Descriptor { return b.desc }

func newDesc(name string, t Type) *Descriptor {
	return &Descriptor{Name: name, Type: t}
}

// TextBuilder builds text fields.
type TextBuilder struct{ descBuilder }

// Text returns a new text field builder.
func Text(name string) *TextBuilder {
	return &TextBuilder{descBuilder{newDesc(name, TypeText)}}
}

// MaxLen sets the maximum rune length of the field.
func (b *TextBuilder) MaxLen(n int) *TextBuilder { b.desc.Size = n; return b }

// MinLen sets the minimum rune length of the field.
func (b *TextBuilder) MinLen(n int) *TextBuilder { b.desc.MinLen = n; return b }

// NotEmpty requires a non-empty value.
func (b *TextBuilder) NotEmpty() *TextBuilder { return b.MinLen(1) }

// Default sets the default value of the field.
func (b *TextBuilder) Default(s string) *TextBuilder { b.desc.Default = s; return b }

// DefaultFunc sets a computed default value.
func (b *TextBuilder) DefaultFunc(fn func() any) *TextBuilder { b.desc.DefaultFunc = fn; return b }

// Required marks the field as required on insert.
func (b *TextBuilder) Required() *TextBuilder { b.desc.Required = true; return b }

// Nullable marks the column as accepting NULL.
func (b *TextBuilder) Nullable() *TextBuilder { b.desc.Nullable = true; return b }

// Unique adds a unique constraint on the column.
func (b *TextBuilder) Unique() *TextBuilder { b.desc.Unique = true; return b }

// Fillable restricts the contexts clients may supply the field in.
func (b *TextBuilder) Fillable(ctxs ...Context) *TextBuilder {
	b.desc.Fillable = append([]Context{}, ctxs...)
	return b
}

// Hidden hides the field in the given contexts.
func (b *TextBuilder) Hidden(ctxs ...Context) *TextBuilder { b.desc.Hidden = ctxs; return b }

// SchemaType overrides the column type per dialect.
func (b *TextBuilder) SchemaType(types map[string]string) *TextBuilder {
	b.desc.SchemaType = types
	return b
}

// Annotations adds annotations to the field.
func (b *TextBuilder) Annotations(a ...schema.Annotation) *TextBuilder {
	b.desc.Annotations = append(b.desc.Annotations, a...)
	return b
}

// Comment sets the field comment.
func (b *TextBuilder) Comment(c string) *TextBuilder { b.desc.Comment = c; return b }

// NumberBuilder builds number fields.
type NumberBuilder struct{ descBuilder }

// Number returns a new floating-point number field builder.
func Number(name string) *NumberBuilder {
	return &NumberBuilder{descBuilder{newDesc(name, TypeNumber)}}
}

// Int returns a new integer number field builder.
func Int(name string) *NumberBuilder {
	b := Number(name)
	b.desc.Integer = true
	return b
}

// Int marks the field as integer-valued.
func (b *NumberBuilder) Int() *NumberBuilder { b.desc.Integer = true; return b }

// Min sets the lower bound of the field.
func (b *NumberBuilder) Min(n float64) *NumberBuilder { b.desc.Min = &n; return b }

// Max sets the upper bound of the field.
func (b *NumberBuilder) Max(n float64) *NumberBuilder { b.desc.Max = &n; return b }

// Range sets both bounds of the field.
func (b *NumberBuilder) Range(min, max float64) *NumberBuilder { return b.Min(min).Max(max) }

// Positive requires a value greater than or equal to zero... see Min.
func (b *NumberBuilder) Positive() *NumberBuilder { return b.Min(0) }

// Default sets the default value of the field.
func (b *NumberBuilder) Default(v float64) *NumberBuilder {
	if b.desc.Integer {
		b.desc.Default = int64(v)
	} else {
		b.desc.Default = v
	}
	return b
}

// DefaultFunc sets a computed default value.
func (b *NumberBuilder) DefaultFunc(fn func() any) *NumberBuilder { b.desc.DefaultFunc = fn; return b }

// Required marks the field as required on insert.
func (b *NumberBuilder) Required() *NumberBuilder { b.desc.Required = true; return b }

// Nullable marks the column as accepting NULL.
func (b *NumberBuilder) Nullable() *NumberBuilder { b.desc.Nullable = true; return b }

// Unique adds a unique constraint on the column.
func (b *NumberBuilder) Unique() *NumberBuilder { b.desc.Unique = true; return b }

// Fillable restricts the contexts clients may supply the field in.
func (b *NumberBuilder) Fillable(ctxs ...Context) *NumberBuilder {
	b.desc.Fillable = append([]Context{}, ctxs...)
	return b
}

// Hidden hides the field in the given contexts.
func (b *NumberBuilder) Hidden(ctxs ...Context) *NumberBuilder { b.desc.Hidden = ctxs; return b }

// SchemaType overrides the column type per dialect.
func (b *NumberBuilder) SchemaType(types map[string]string) *NumberBuilder {
	b.desc.SchemaType = types
	return b
}

// Annotations adds annotations to the field.
func (b *NumberBuilder) Annotations(a ...schema.Annotation) *NumberBuilder {
	b.desc.Annotations = append(b.desc.Annotations, a...)
	return b
}

// Comment sets the field comment.
func (b *NumberBuilder) Comment(c string) *NumberBuilder { b.desc.Comment = c; return b }

// BoolBuilder builds boolean fields.
type BoolBuilder struct{ descBuilder }

// Bool returns a new boolean field builder.
func Bool(name string) *BoolBuilder {
	return &BoolBuilder{descBuilder{newDesc(name, TypeBool)}}
}

// Default sets the default value of the field.
func (b *BoolBuilder) Default(v bool) *BoolBuilder { b.desc.Default = v; return b }

// Required marks the field as required on insert.
func (b *BoolBuilder) Required() *BoolBuilder { b.desc.Required = true; return b }

// Nullable marks the column as accepting NULL.
func (b *BoolBuilder) Nullable() *BoolBuilder { b.desc.Nullable = true; return b }

// Fillable restricts the contexts clients may supply the field in.
func (b *BoolBuilder) Fillable(ctxs ...Context) *BoolBuilder {
	b.desc.Fillable = append([]Context{}, ctxs...)
	return b
}

// Hidden hides the field in the given contexts.
func (b *BoolBuilder) Hidden(ctxs ...Context) *BoolBuilder { b.desc.Hidden = ctxs; return b }

// Comment sets the field comment.
func (b *BoolBuilder) Comment(c string) *BoolBuilder { b.desc.Comment = c; return b }

// DateBuilder builds date fields.
type DateBuilder struct{ descBuilder }

// Date returns a new date field builder.
func Date(name string) *DateBuilder {
	return &DateBuilder{descBuilder{newDesc(name, TypeDate)}}
}

// Default sets the default value of the field.
func (b *DateBuilder) Default(t time.Time) *DateBuilder { b.desc.Default = t; return b }

// DefaultNow defaults the field to the current time at insert.
func (b *DateBuilder) DefaultNow() *DateBuilder {
	b.desc.DefaultFunc = func() any { return time.Now().UTC() }
	return b
}

// Required marks the field as required on insert.
func (b *DateBuilder) Required() *DateBuilder { b.desc.Required = true; return b }

// Nullable marks the column as accepting NULL.
func (b *DateBuilder) Nullable() *DateBuilder { b.desc.Nullable = true; return b }

// Fillable restricts the contexts clients may supply the field in.
func (b *DateBuilder) Fillable(ctxs ...Context) *DateBuilder {
	b.desc.Fillable = append([]Context{}, ctxs...)
	return b
}

// Hidden hides the field in the given contexts.
func (b *DateBuilder) Hidden(ctxs ...Context) *DateBuilder { b.desc.Hidden = ctxs; return b }

// SchemaType overrides the column type per dialect.
func (b *DateBuilder) SchemaType(types map[string]string) *DateBuilder {
	b.desc.SchemaType = types
	return b
}

// Comment sets the field comment.
func (b *DateBuilder) Comment(c string) *DateBuilder { b.desc.Comment = c; return b }

// EnumBuilder builds enum fields.
type EnumBuilder struct{ descBuilder }

// Enum returns a new enum field builder.
func Enum(name string) *EnumBuilder {
	return &EnumBuilder{descBuilder{newDesc(name, TypeEnum)}}
}

// Values sets the enum members.
func (b *EnumBuilder) Values(vs ...string) *EnumBuilder { b.desc.Values = vs; return b }

// Default sets the default value of the field.
func (b *EnumBuilder) Default(v string) *EnumBuilder { b.desc.Default = v; return b }

// Required marks the field as required on insert.
func (b *EnumBuilder) Required() *EnumBuilder { b.desc.Required = true; return b }

// Nullable marks the column as accepting NULL.
func (b *EnumBuilder) Nullable() *EnumBuilder { b.desc.Nullable = true; return b }

// Fillable restricts the contexts clients may supply the field in.
func (b *EnumBuilder) Fillable(ctxs ...Context) *EnumBuilder {
	b.desc.Fillable = append([]Context{}, ctxs...)
	return b
}

// Hidden hides the field in the given contexts.
func (b *EnumBuilder) Hidden(ctxs ...Context) *EnumBuilder { b.desc.Hidden = ctxs; return b }

// Comment sets the field comment.
func (b *EnumBuilder) Comment(c string) *EnumBuilder { b.desc.Comment = c; return b }

// JSONBuilder builds json fields.
type JSONBuilder struct{ descBuilder }

// JSON returns a new json field builder.
func JSON(name string) *JSONBuilder {
	return &JSONBuilder{descBuilder{newDesc(name, TypeJSON)}}
}

// Default sets the default value of the field.
func (b *JSONBuilder) Default(v any) *JSONBuilder { b.desc.Default = v; return b }

// Required marks the field as required on insert.
func (b *JSONBuilder) Required() *JSONBuilder { b.desc.Required = true; return b }

// Nullable marks the column as accepting NULL.
func (b *JSONBuilder) Nullable() *JSONBuilder { b.desc.Nullable = true; return b }

// Hidden hides the field in the given contexts.
func (b *JSONBuilder) Hidden(ctxs ...Context) *JSONBuilder { b.desc.Hidden = ctxs; return b }

// SchemaType overrides the column type per dialect.
func (b *JSONBuilder) SchemaType(types map[string]string) *JSONBuilder {
	b.desc.SchemaType = types
	return b
}

// RelationBuilder builds relation fields holding a foreign key to a
// target entity.
type RelationBuilder struct{ descBuilder }

// Relation returns a new relation field builder referencing target.
func Relation(name, target string) *RelationBuilder {
	d := newDesc(name, TypeRelation)
	d.Target = target
	return &RelationBuilder{descBuilder{d}}
}

// Required marks the field as required on insert.
func (b *RelationBuilder) Required() *RelationBuilder { b.desc.Required = true; return b }

// Nullable marks the column as accepting NULL.
func (b *RelationBuilder) Nullable() *RelationBuilder { b.desc.Nullable = true; return b }

// Fillable restricts the contexts clients may supply the field in.
func (b *RelationBuilder) Fillable(ctxs ...Context) *RelationBuilder {
	b.desc.Fillable = append([]Context{}, ctxs...)
	return b
}

// Hidden hides the field in the given contexts.
func (b *RelationBuilder) Hidden(ctxs ...Context) *RelationBuilder { b.desc.Hidden = ctxs; return b }

// Annotations adds annotations to the field.
func (b *RelationBuilder) Annotations(a ...schema.Annotation) *RelationBuilder {
	b.desc.Annotations = append(b.desc.Annotations, a...)
	return b
}

// MediaBuilder builds media reference fields.
type MediaBuilder struct{ descBuilder }

// Media returns a new media reference field builder.
func Media(name string) *MediaBuilder {
	return &MediaBuilder{descBuilder{newDesc(name, TypeMedia)}}
}

// Required marks the field as required on insert.
func (b *MediaBuilder) Required() *MediaBuilder { b.desc.Required = true; return b }

// Nullable marks the column as accepting NULL.
func (b *MediaBuilder) Nullable() *MediaBuilder { b.desc.Nullable = true; return b }

// Hidden hides the field in the given contexts.
func (b *MediaBuilder) Hidden(ctxs ...Context) *MediaBuilder { b.desc.Hidden = ctxs; return b }

// VirtualBuilder builds virtual fields computed at read time.
type VirtualBuilder struct{ descBuilder }

// Virtual returns a new virtual field builder.
func Virtual(name string) *VirtualBuilder {
	return &VirtualBuilder{descBuilder{newDesc(name, TypeVirtual)}}
}

// Hidden hides the field in the given contexts.
func (b *VirtualBuilder) Hidden(ctxs ...Context) *VirtualBuilder { b.desc.Hidden = ctxs; return b }
