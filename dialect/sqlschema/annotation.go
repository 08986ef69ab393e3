// Package sqlschema provides SQL-specific annotations for entity fields.
// Follows Ent's entsql annotation style for familiarity.
//
// Annotations attach to field descriptors and are honored by the table
// renderer and the migration engine:
//
//	field.Number("age").Int().
//	    Annotations(sqlschema.Check("age >= 0"))
//
//	field.Text("status").
//	    Annotations(sqlschema.Default("'pending'"))
//
//	field.Relation("owner", "users").
//	    Annotations(sqlschema.OnDelete(sqlschema.Cascade))
//
// # API Styles
//
// The package supports two API styles, following Ent's conventions.
// Functional style for simple cases:
//
//	sqlschema.Size(10)
//	sqlschema.ColumnType("JSONB")
//	sqlschema.DefaultExpr("gen_random_uuid()")
//
// Struct literal style for combined configurations:
//
//	sqlschema.Annotation{
//	    Size:     10,
//	    OnDelete: sqlschema.Cascade,
//	}
//
// # Cascade Actions
//
// Available constants for OnDelete and OnUpdate:
//
//	sqlschema.Cascade    - delete/update related rows
//	sqlschema.SetNull    - set foreign key to NULL
//	sqlschema.Restrict   - prevent delete/update if related rows exist
//	sqlschema.SetDefault - set foreign key to its default value
//	sqlschema.NoAction   - no action (database default)
package sqlschema

import (
	"github.com/syssam/tabula/schema"
)

// AnnotationName is the name used for SQL annotations.
const AnnotationName = "sql"

// CascadeAction defines cascade behavior for foreign key constraints.
type CascadeAction string

const (
	Cascade    CascadeAction = "CASCADE"
	SetNull    CascadeAction = "SET NULL"
	Restrict   CascadeAction = "RESTRICT"
	SetDefault CascadeAction = "SET DEFAULT"
	NoAction   CascadeAction = "NO ACTION"
)

// Annotation holds SQL-specific settings for fields.
type Annotation struct {
	// Skip excludes the field from table rendering entirely.
	Skip bool

	// Size overrides the column size (e.g. VARCHAR(Size)).
	Size int64

	// ColumnType sets a custom database column type, used verbatim on
	// every dialect.
	ColumnType string

	// ColumnTypes sets dialect-specific column types, keyed by dialect
	// name. Takes precedence over ColumnType for the matching dialect.
	ColumnTypes map[string]string

	// Check adds a CHECK constraint expression to the column.
	Check string

	// OnDelete sets the ON DELETE cascade action for relation fields.
	OnDelete CascadeAction

	// OnUpdate sets the ON UPDATE cascade action for relation fields.
	OnUpdate CascadeAction

	// Default is a SQL literal default, used as-is in the DEFAULT clause.
	Default string

	// DefaultExpr is a SQL expression default (functions, computed
	// values), used as-is and never quoted.
	DefaultExpr string
}

// Name implements schema.Annotation.
func (Annotation) Name() string {
	return AnnotationName
}

// Merge implements schema.Merger. Later settings override earlier ones.
func (a Annotation) Merge(other schema.Annotation) schema.Annotation {
	o, ok := other.(Annotation)
	if !ok {
		return a
	}
	if o.Skip {
		a.Skip = true
	}
	if o.Size != 0 {
		a.Size = o.Size
	}
	if o.ColumnType != "" {
		a.ColumnType = o.ColumnType
	}
	for d, t := range o.ColumnTypes {
		if a.ColumnTypes == nil {
			a.ColumnTypes = make(map[string]string)
		}
		a.ColumnTypes[d] = t
	}
	if o.Check != "" {
		a.Check = o.Check
	}
	if o.OnDelete != "" {
		a.OnDelete = o.OnDelete
	}
	if o.OnUpdate != "" {
		a.OnUpdate = o.OnUpdate
	}
	if o.Default != "" {
		a.Default = o.Default
	}
	if o.DefaultExpr != "" {
		a.DefaultExpr = o.DefaultExpr
	}
	return a
}

var (
	_ schema.Annotation = Annotation{}
	_ schema.Merger     = Annotation{}
)

// Extract merges the SQL annotations in the given list into one. The
// second return value reports whether any were present.
func Extract(annotations []schema.Annotation) (Annotation, bool) {
	var (
		out   Annotation
		found bool
	)
	for _, a := range annotations {
		sa, ok := a.(Annotation)
		if !ok {
			continue
		}
		if !found {
			out, found = sa, true
			continue
		}
		out = out.Merge(sa).(Annotation)
	}
	return out, found
}

// Skip excludes the field from table rendering.
func Skip() Annotation {
	return Annotation{Skip: true}
}

// Size sets the column size override.
//
// Example:
//
//	field.Text("code").
//	    Annotations(sqlschema.Size(10))
func Size(size int64) Annotation {
	return Annotation{Size: size}
}

// ColumnType sets a custom database column type for every dialect.
//
// Example:
//
//	field.JSON("data").
//	    Annotations(sqlschema.ColumnType("JSONB"))
func ColumnType(typ string) Annotation {
	return Annotation{ColumnType: typ}
}

// ColumnTypeFor sets a custom database column type for one dialect.
//
// Example:
//
//	field.Text("body").
//	    Annotations(sqlschema.ColumnTypeFor(dialect.MySQL, "mediumtext"))
func ColumnTypeFor(d, typ string) Annotation {
	return Annotation{ColumnTypes: map[string]string{d: typ}}
}

// Check adds a CHECK constraint to the column.
//
// Example:
//
//	field.Number("age").Int().
//	    Annotations(sqlschema.Check("age >= 0"))
func Check(expr string) Annotation {
	return Annotation{Check: expr}
}

// OnDelete sets the ON DELETE cascade action for a relation field.
//
// Example:
//
//	field.Relation("owner", "users").
//	    Annotations(sqlschema.OnDelete(sqlschema.Cascade))
func OnDelete(action CascadeAction) Annotation {
	return Annotation{OnDelete: action}
}

// OnUpdate sets the ON UPDATE cascade action for a relation field.
func OnUpdate(action CascadeAction) Annotation {
	return Annotation{OnUpdate: action}
}

// Default sets a SQL literal default value for migrations. The value is
// used as-is in the DEFAULT clause.
//
// Example:
//
//	field.Text("status").
//	    Annotations(sqlschema.Default("'pending'"))
func Default(value string) Annotation {
	return Annotation{Default: value}
}

// DefaultExpr sets a SQL expression as the default value for
// migrations. The expression is used as-is and never quoted.
//
// Example:
//
//	field.Primary("id").UUID().
//	    Annotations(sqlschema.DefaultExpr("gen_random_uuid()"))
func DefaultExpr(expr string) Annotation {
	return Annotation{DefaultExpr: expr}
}
