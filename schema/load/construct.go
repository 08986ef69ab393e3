package load

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/syssam/tabula"
	"github.com/syssam/tabula/schema/field"
	"github.com/syssam/tabula/schema/index"
	"github.com/syssam/tabula/schema/relation"
)

var titler = cases.Title(language.English)

// DisplayLabel derives a human-readable label from a normalized name:
// "first_name" becomes "First Name".
func DisplayLabel(name string) string {
	return titler.String(strings.ReplaceAll(inflect.Underscore(name), "_", " "))
}

func entityName(name string) string {
	return inflect.Underscore(name)
}

// normalize snake-cases entity and field names and fills in missing
// display labels. Labels are derived before normalization-insensitive
// lookups so marshaled schemas carry them explicitly.
func (s *Schema) normalize() {
	if s.Label == "" {
		s.Label = DisplayLabel(s.Name)
	}
	s.Name = entityName(s.Name)
	if s.DisplayField != "" {
		s.DisplayField = inflect.Underscore(s.DisplayField)
	}
	if s.DefaultSort != "" {
		s.DefaultSort = inflect.Underscore(s.DefaultSort)
	}
	for _, f := range s.Fields {
		if f.Label == "" {
			f.Label = DisplayLabel(f.Name)
		}
		f.Name = inflect.Underscore(f.Name)
		if f.Target != "" {
			f.Target = entityName(f.Target)
		}
	}
	for _, r := range s.Relations {
		r.Target = entityName(r.Target)
		if r.Reference != "" {
			r.Reference = inflect.Underscore(r.Reference)
		}
	}
	for _, idx := range s.Indexes {
		for i, f := range idx.Fields {
			idx.Fields[i] = inflect.Underscore(f)
		}
	}
}

var contextNames = map[string]field.Context{
	"create": field.ContextCreate,
	"update": field.ContextUpdate,
	"read":   field.ContextRead,
	"form":   field.ContextForm,
	"table":  field.ContextTable,
}

func contexts(entity, fname string, names []string) ([]field.Context, error) {
	if names == nil {
		return nil, nil
	}
	out := make([]field.Context, 0, len(names))
	for _, n := range names {
		c, ok := contextNames[n]
		if !ok {
			return nil, tabula.NewConfigurationError("field", entity+"."+fname, fmt.Errorf("unknown context %q", n))
		}
		out = append(out, c)
	}
	return out, nil
}

// ConstructEntity builds the runtime entity from a schema definition,
// expanding mixin references before the declared fields.
func ConstructEntity(s *Schema) (*tabula.Entity, error) {
	name := entityName(s.Name)
	var fields []field.Field
	for _, ref := range s.Mixins {
		m, ok := LookupMixin(ref)
		if !ok {
			return nil, tabula.NewConfigurationError("entity", name, fmt.Errorf("unknown mixin %q", ref))
		}
		for _, b := range m.Fields() {
			f, err := field.New(b.Descriptor())
			if err != nil {
				return nil, tabula.NewConfigurationError("entity", name, fmt.Errorf("mixin %q: %w", ref, err))
			}
			fields = append(fields, f)
		}
	}
	for _, fd := range s.Fields {
		f, err := ConstructField(name, fd)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	cfg := tabula.EntityConfig{
		DisplayField: s.DisplayField,
		DefaultSort:  s.DefaultSort,
		Description:  s.Description,
	}
	return tabula.NewEntity(name, tabula.EntityType(s.Type), cfg, fields...)
}

// ConstructField builds one runtime field from its declared form.
func ConstructField(entity string, d *Field) (field.Field, error) {
	t := field.TypeOf(d.Type)
	if t == field.TypeInvalid {
		return nil, tabula.NewConfigurationError("field", entity+"."+d.Name, fmt.Errorf("unknown field type %q", d.Type))
	}
	fillable, err := contexts(entity, d.Name, d.Fillable)
	if err != nil {
		return nil, err
	}
	hidden, err := contexts(entity, d.Name, d.Hidden)
	if err != nil {
		return nil, err
	}
	fd := &field.Descriptor{
		Name:       inflect.Underscore(d.Name),
		Type:       t,
		Size:       d.Size,
		MinLen:     d.MinLen,
		Min:        d.Min,
		Max:        d.Max,
		Integer:    d.Integer,
		Required:   d.Required,
		Nullable:   d.Nullable,
		Unique:     d.Unique,
		Values:     d.Values,
		Fillable:   fillable,
		Hidden:     hidden,
		Target:     d.Target,
		SchemaType: d.SchemaType,
		Comment:    d.Comment,
	}
	if err := applyDefault(fd, t, d); err != nil {
		return nil, tabula.NewConfigurationError("field", entity+"."+d.Name, err)
	}
	if t == field.TypePrimary {
		fd.Format = field.PrimaryFormat(d.Format)
		if d.Handler != nil {
			h, err := d.Handler.runtime()
			if err != nil {
				return nil, tabula.NewConfigurationError("field", entity+"."+d.Name, err)
			}
			fd.Handler = h
		}
	}
	f, err := field.New(fd)
	if err != nil {
		return nil, tabula.NewConfigurationError("field", entity+"."+d.Name, err)
	}
	return f, nil
}

// applyDefault converts a decoded config default to the runtime
// representation the field variant stores. YAML hands numbers back as
// int or float64 regardless of the declared variant.
func applyDefault(fd *field.Descriptor, t field.Type, d *Field) error {
	if d.Default == nil {
		return nil
	}
	switch t {
	case field.TypeNumber:
		var n float64
		switch v := d.Default.(type) {
		case int:
			n = float64(v)
		case int64:
			n = float64(v)
		case float64:
			n = v
		default:
			return fmt.Errorf("default %v is not a number", d.Default)
		}
		if d.Integer {
			fd.Default = int64(n)
		} else {
			fd.Default = n
		}
	case field.TypeDate:
		s, ok := d.Default.(string)
		if !ok {
			return fmt.Errorf("default %v is not a date string", d.Default)
		}
		if s == "now" {
			fd.DefaultFunc = func() any { return time.Now().UTC() }
			return nil
		}
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("default %q is not an RFC 3339 timestamp: %w", s, err)
		}
		fd.Default = ts.UTC()
	default:
		fd.Default = d.Default
	}
	return nil
}

// runtime converts a declared handler to its construction form.
func (h *Handler) runtime() (*field.CustomHandler, error) {
	switch h.Kind {
	case "registry":
		return &field.CustomHandler{Kind: field.KindRegistry, ID: h.ID, Options: h.Options}, nil
	case "import":
		return &field.CustomHandler{
			Kind:         field.KindImport,
			ImportPath:   h.ImportPath,
			FunctionName: h.Function,
			Options:      h.Options,
		}, nil
	case "function":
		return nil, fmt.Errorf("function handlers cannot be declared in config; register the handler and reference it by id")
	default:
		return nil, fmt.Errorf("unknown handler kind %q", h.Kind)
	}
}

// ConstructRelation builds the runtime relation owned by source. The
// reference defaults to the target entity name when omitted.
func ConstructRelation(source string, d *Relation) (*relation.Relation, error) {
	ref := d.Reference
	if ref == "" {
		ref = entityName(d.Target)
	}
	return relation.New(entityName(source), entityName(d.Target), ref, relation.Type(d.Type))
}

// ConstructIndex builds one index descriptor from its declared form.
func ConstructIndex(d *Index) (*index.Descriptor, error) {
	if len(d.Fields) == 0 {
		return nil, tabula.NewConfigurationError("index", d.StorageKey, fmt.Errorf("at least one field is required"))
	}
	b := index.Fields(d.Fields...)
	if d.Unique {
		b.Unique()
	}
	if d.StorageKey != "" {
		b.StorageKey(d.StorageKey)
	}
	return b.Descriptor(), nil
}

// schemaIndexes collects the declared indexes plus the contributions of
// the schema's mixins.
func schemaIndexes(s *Schema) ([]*index.Descriptor, error) {
	var out []*index.Descriptor
	for _, ref := range s.Mixins {
		m, ok := LookupMixin(ref)
		if !ok {
			return nil, tabula.NewConfigurationError("entity", s.Name, fmt.Errorf("unknown mixin %q", ref))
		}
		out = append(out, m.Indexes()...)
	}
	for _, idx := range s.Indexes {
		desc, err := ConstructIndex(idx)
		if err != nil {
			return nil, err
		}
		out = append(out, desc)
	}
	return out, nil
}
