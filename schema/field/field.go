package field

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"slices"

	"github.com/syssam/tabula/schema"
)

// A Type identifies the concrete field variant.
type Type uint8

// List of field types.
const (
	TypeInvalid Type = iota
	TypePrimary
	TypeText
	TypeNumber
	TypeBool
	TypeDate
	TypeEnum
	TypeJSON
	TypeRelation
	TypeMedia
	TypeVirtual
	endTypes
)

var typeNames = [...]string{
	TypeInvalid:  "invalid",
	TypePrimary:  "primary",
	TypeText:     "text",
	TypeNumber:   "number",
	TypeBool:     "bool",
	TypeDate:     "date",
	TypeEnum:     "enum",
	TypeJSON:     "json",
	TypeRelation: "relation",
	TypeMedia:    "media",
	TypeVirtual:  "virtual",
}

// String returns the string representation of the type.
func (t Type) String() string {
	if t < endTypes {
		return typeNames[t]
	}
	return typeNames[TypeInvalid]
}

// Valid reports if the given type is a registered field variant.
func (t Type) Valid() bool { return t > TypeInvalid && t < endTypes }

// TypeOf returns the type named by s, or TypeInvalid.
func TypeOf(s string) Type {
	for t, name := range typeNames {
		if name == s && Type(t).Valid() {
			return Type(t)
		}
	}
	return TypeInvalid
}

// Context is the calling context a field is filled or rendered in.
type Context string

// The contexts fillability and visibility are evaluated against.
const (
	ContextCreate Context = "create"
	ContextUpdate Context = "update"
	ContextRead   Context = "read"
	ContextForm   Context = "form"
	ContextTable  Context = "table"
)

// Schema is the frozen column descriptor a field exposes to the
// migration and metadata layers.
type Schema struct {
	Type     Type
	Name     string
	Nullable bool
	Primary  bool
}

// PersistOptions carries the call-site context of a persist transform.
type PersistOptions struct {
	// Context the value is supplied in.
	Context Context
	// Entity is the owning entity name, used in error messages.
	Entity string
}

// Field is one column's behavioral contract: schema description, default
// value, fillability and visibility per context, and the transforms
// between stored and application representations. Implementations are
// pure given (value, context), except for SetHidden which toggles
// visibility transiently on behalf of owning modules.
type Field interface {
	// Name returns the immutable field name.
	Name() string
	// Type returns the immutable field variant tag.
	Type() Type
	// Schema returns the frozen column descriptor.
	Schema() Schema
	// Descriptor returns the descriptor the field was built from.
	Descriptor() *Descriptor
	// HasDefault reports whether the field defines a default value.
	HasDefault() bool
	// Default returns the default value, evaluating a default func.
	Default() any
	// Required reports whether a value must be present after validation.
	Required() bool
	// Fillable reports whether clients may supply the field in ctx.
	Fillable(ctx Context) bool
	// Hidden reports whether the field is omitted from output in ctx.
	Hidden(ctx Context) bool
	// SetHidden toggles visibility for ctx.
	SetHidden(ctx Context, hidden bool)
	// TransformPersist validates and converts an application value to
	// its stored form.
	TransformPersist(ctx context.Context, v any, opts *PersistOptions) (any, error)
	// TransformRetrieve converts a stored value back to its application
	// form, substituting the default when the stored value is nil.
	TransformRetrieve(v any) (any, error)
}

// Descriptor holds the validated configuration a field is built from.
// Descriptors are produced by the chained builders in this package or
// unmarshaled from declarative config.
type Descriptor struct {
	Name        string              // field name, immutable
	Type        Type                // variant tag, immutable
	Size        int                 // maximum text length (0 = unbounded)
	MinLen      int                 // minimum text length
	Min         *float64            // numeric lower bound
	Max         *float64            // numeric upper bound
	Integer     bool                // number variant accepts integers only
	Default     any                 // static default value
	DefaultFunc func() any          // computed default value
	Required    bool                // must be present and non-nil after validation
	Nullable    bool                // column accepts NULL
	Unique      bool                // column carries a unique constraint
	Values      []string            // enum members
	Fillable    []Context           // explicit fillable contexts
	Hidden      []Context           // contexts the field is hidden in
	Format      PrimaryFormat       // primary generation format
	Handler     *CustomHandler      // primary custom-generation handler
	Target      string              // relation target entity
	SchemaType  map[string]string   // per-dialect column type overrides
	Annotations []schema.Annotation // driver/tool specific settings
	Comment     string
	Err         error // deferred builder error, checked by New
}

// Equal reports whether two descriptors declare the same storage and
// validation shape. Presentation state (comment, annotations) and
// computed defaults are compared by presence only, since functions have
// no useful equality.
func (d *Descriptor) Equal(o *Descriptor) bool {
	if d == nil || o == nil {
		return d == o
	}
	return d.Name == o.Name &&
		d.Type == o.Type &&
		d.Size == o.Size &&
		d.MinLen == o.MinLen &&
		boundEqual(d.Min, o.Min) &&
		boundEqual(d.Max, o.Max) &&
		d.Integer == o.Integer &&
		reflect.DeepEqual(d.Default, o.Default) &&
		(d.DefaultFunc == nil) == (o.DefaultFunc == nil) &&
		d.Required == o.Required &&
		d.Nullable == o.Nullable &&
		d.Unique == o.Unique &&
		slices.Equal(d.Values, o.Values) &&
		contextsEqual(d.Fillable, o.Fillable) &&
		contextsEqual(d.Hidden, o.Hidden) &&
		d.Format == o.Format &&
		d.Handler.Equal(o.Handler) &&
		d.Target == o.Target &&
		reflect.DeepEqual(d.SchemaType, o.SchemaType)
}

func boundEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// contextsEqual distinguishes nil (the default fillable set) from an
// explicit empty list (locked), then compares membership.
func contextsEqual(a, b []Context) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	if len(a) != len(b) {
		return false
	}
	for _, c := range a {
		if !slices.Contains(b, c) {
			return false
		}
	}
	return true
}

// Equal reports whether two handler configurations are interchangeable.
// Function handlers are compared by presence only.
func (h *CustomHandler) Equal(o *CustomHandler) bool {
	if h == nil || o == nil {
		return h == o
	}
	return h.Kind == o.Kind &&
		(h.Fn == nil) == (o.Fn == nil) &&
		h.ImportPath == o.ImportPath &&
		h.FunctionName == o.FunctionName &&
		h.ID == o.ID &&
		reflect.DeepEqual(h.Options, o.Options)
}

// Builder is implemented by all field builders and by constructed fields.
type Builder interface {
	Descriptor() *Descriptor
}

var nameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// New validates the descriptor and constructs the matching field variant.
// Configuration violations fail construction immediately.
func New(d *Descriptor) (Field, error) {
	if d.Err != nil {
		return nil, fmt.Errorf("field %q: %w", d.Name, d.Err)
	}
	if !nameRe.MatchString(d.Name) {
		return nil, fmt.Errorf("field: invalid field name %q", d.Name)
	}
	if !d.Type.Valid() {
		return nil, fmt.Errorf("field %q: invalid field type", d.Name)
	}
	b := base{desc: d, hidden: make(map[Context]bool)}
	for _, c := range d.Hidden {
		b.hidden[c] = true
	}
	// A non-nil empty context list locks the field against client input
	// entirely; nil keeps the default create/update/form set.
	if d.Fillable != nil {
		b.fillable = make(map[Context]bool, len(d.Fillable))
		for _, c := range d.Fillable {
			b.fillable[c] = true
		}
	}
	switch d.Type {
	case TypePrimary:
		return newPrimary(b)
	case TypeText:
		if d.Size < 0 || d.MinLen < 0 {
			return nil, fmt.Errorf("field %q: negative length bound", d.Name)
		}
		if d.Size > 0 && d.MinLen > d.Size {
			return nil, fmt.Errorf("field %q: min length %d exceeds max length %d", d.Name, d.MinLen, d.Size)
		}
		return &textField{b}, nil
	case TypeNumber:
		if d.Min != nil && d.Max != nil && *d.Min > *d.Max {
			return nil, fmt.Errorf("field %q: min %v exceeds max %v", d.Name, *d.Min, *d.Max)
		}
		return &numberField{b}, nil
	case TypeBool:
		return &boolField{b}, nil
	case TypeDate:
		return &dateField{b}, nil
	case TypeEnum:
		if len(d.Values) == 0 {
			return nil, fmt.Errorf("field %q: enum requires at least one value", d.Name)
		}
		seen := make(map[string]bool, len(d.Values))
		for _, v := range d.Values {
			if seen[v] {
				return nil, fmt.Errorf("field %q: duplicate enum value %q", d.Name, v)
			}
			seen[v] = true
		}
		if s, ok := d.Default.(string); ok && !seen[s] {
			return nil, fmt.Errorf("field %q: default %q is not an enum value", d.Name, s)
		}
		return &enumField{b}, nil
	case TypeJSON:
		return &jsonField{b}, nil
	case TypeRelation:
		if d.Target == "" {
			return nil, fmt.Errorf("field %q: relation requires a target entity", d.Name)
		}
		return &relationField{b}, nil
	case TypeMedia:
		return &mediaField{b}, nil
	case TypeVirtual:
		return &virtualField{b}, nil
	default:
		return nil, fmt.Errorf("field %q: unsupported field type %q", d.Name, d.Type)
	}
}

// base carries the behavior shared by all variants.
type base struct {
	desc     *Descriptor
	fillable map[Context]bool // nil means the default create/update/form set
	hidden   map[Context]bool
}

func (b *base) Name() string            { return b.desc.Name }
func (b *base) Type() Type              { return b.desc.Type }
func (b *base) Descriptor() *Descriptor { return b.desc }
func (b *base) Required() bool          { return b.desc.Required }

func (b *base) Schema() Schema {
	return Schema{
		Type:     b.desc.Type,
		Name:     b.desc.Name,
		Nullable: b.desc.Nullable,
		Primary:  b.desc.Type == TypePrimary,
	}
}

func (b *base) HasDefault() bool {
	return b.desc.Default != nil || b.desc.DefaultFunc != nil
}

func (b *base) Default() any {
	if b.desc.DefaultFunc != nil {
		return b.desc.DefaultFunc()
	}
	return b.desc.Default
}

func (b *base) Fillable(ctx Context) bool {
	if b.fillable != nil {
		return b.fillable[ctx]
	}
	switch ctx {
	case ContextCreate, ContextUpdate, ContextForm:
		return true
	default:
		return false
	}
}

func (b *base) Hidden(ctx Context) bool { return b.hidden[ctx] }

func (b *base) SetHidden(ctx Context, hidden bool) {
	if hidden {
		b.hidden[ctx] = true
		return
	}
	delete(b.hidden, ctx)
}
