// Package tabula is a runtime entity framework: entities are defined by
// declarative configuration instead of generated code, registered in an
// EntityManager, and read and written through Repository and Mutator
// instances bound to a dialect.Driver.
package tabula

import (
	"context"
	"strings"

	"github.com/syssam/tabula/querylanguage"
)

// EntityData is one row in its application-level form: field names to
// transformed values.
type EntityData map[string]any

// Clone returns a shallow copy of the data.
func (d EntityData) Clone() EntityData {
	if d == nil {
		return nil
	}
	c := make(EntityData, len(d))
	for k, v := range d {
		c[k] = v
	}
	return c
}

// An Op is a mutation operation.
type Op uint

// List of mutation operations.
const (
	OpCreate Op = 1 << iota
	OpUpdateOne
	OpUpdate
	OpDeleteOne
	OpDelete
)

var opNames = map[Op]string{
	OpCreate:    "OpCreate",
	OpUpdateOne: "OpUpdateOne",
	OpUpdate:    "OpUpdate",
	OpDeleteOne: "OpDeleteOne",
	OpDelete:    "OpDelete",
}

// Is reports whether o is (or contains) the given operation.
func (o Op) Is(op Op) bool { return o&op != 0 }

// String returns the string representation of the operation.
func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	var names []string
	for op := OpCreate; op <= OpDelete; op <<= 1 {
		if o.Is(op) {
			names = append(names, opNames[op])
		}
	}
	if len(names) == 0 {
		return "OpUnknown"
	}
	return strings.Join(names, "|")
}

// Mutation describes one pending write for policy evaluation.
type Mutation interface {
	// Op returns the mutation operation.
	Op() Op
	// EntityName returns the target entity name.
	EntityName() string
	// Data returns the raw mutation input. Rules must treat it as
	// read-only.
	Data() EntityData
	// SystemEntity reports whether the target entity is system-typed.
	SystemEntity() bool
	// SystemWritesEnabled reports whether the issuing mutator was
	// explicitly allowed to write system entities.
	SystemWritesEnabled() bool
}

// Query describes one read operation: filter, projection, ordering,
// paging and eager relation loading.
type Query struct {
	// Filter is the where-query, compiled by querylanguage.
	Filter querylanguage.Filter
	// Fields projects the result columns. Empty selects all readable
	// fields.
	Fields []string
	// Sort lists order fields; a "-" prefix means descending.
	Sort []string
	// Limit caps the result size. Zero means no limit.
	Limit int
	// Offset skips rows.
	Offset int
	// With names relation references to load eagerly.
	With []string

	// Entity is set by the repository before policy evaluation.
	Entity string
}

// Policy groups query and mutation authorization. The privacy package
// provides the rule-chain implementation.
type Policy interface {
	// EvalQuery decides whether the query is allowed.
	EvalQuery(context.Context, *Query) error
	// EvalMutation decides whether the mutation is allowed.
	EvalMutation(context.Context, Mutation) error
}
