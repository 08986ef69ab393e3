// Package relation defines directional links between entities.
//
// A relation points from a source entity to a target entity under a
// reference name, the key source rows carry the link under:
//
//	r, err := relation.New("posts", "users", "author", relation.ManyToOne)
//
// Two relations are considered duplicates when source, target and
// reference match; the cardinality is deliberately ignored so a
// re-registration with a corrected type is caught instead of silently
// coexisting.
package relation

import "fmt"

// A Type is the cardinality of a relation.
type Type string

// The supported cardinalities.
const (
	ManyToOne  Type = "many-to-one"
	OneToMany  Type = "one-to-many"
	ManyToMany Type = "many-to-many"
	OneToOne   Type = "one-to-one"
)

// Valid reports whether t is a known cardinality.
func (t Type) Valid() bool {
	switch t {
	case ManyToOne, OneToMany, ManyToMany, OneToOne:
		return true
	}
	return false
}

// String returns the string representation of the type.
func (t Type) String() string { return string(t) }

// Relation is one directional entity link. Immutable after construction.
type Relation struct {
	source    string
	target    string
	reference string
	typ       Type
}

// New validates and builds a relation from source to target under the
// given reference name.
func New(source, target, reference string, typ Type) (*Relation, error) {
	switch {
	case source == "":
		return nil, fmt.Errorf("relation: missing source entity")
	case target == "":
		return nil, fmt.Errorf("relation: missing target entity")
	case reference == "":
		return nil, fmt.Errorf("relation %s->%s: missing reference name", source, target)
	case !typ.Valid():
		return nil, fmt.Errorf("relation %s->%s: invalid type %q", source, target, typ)
	}
	return &Relation{source: source, target: target, reference: reference, typ: typ}, nil
}

// Source returns the owning entity name.
func (r *Relation) Source() string { return r.source }

// Target returns the referenced entity name.
func (r *Relation) Target() string { return r.target }

// Reference returns the reference name the link is carried under.
func (r *Relation) Reference() string { return r.reference }

// Type returns the cardinality.
func (r *Relation) Type() Type { return r.typ }

// SameAs reports whether r and o describe the same link. The cardinality
// is ignored.
func (r *Relation) SameAs(o *Relation) bool {
	return o != nil && r.source == o.source && r.target == o.target && r.reference == o.reference
}

// String returns a debug rendering like "posts-(author)->users [many-to-one]".
func (r *Relation) String() string {
	return fmt.Sprintf("%s-(%s)->%s [%s]", r.source, r.reference, r.target, r.typ)
}
