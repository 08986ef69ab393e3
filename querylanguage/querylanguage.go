// Package querylanguage compiles declarative where-queries into
// parameterized SQL predicates.
//
// A filter is a nested JSON-shaped object. A plain {field: value} entry is
// shorthand for {field: {$eq: value}}. Multiple operators on one field
// combine with AND, multiple fields combine with AND, and an $or group
// combines its member clauses with OR against the other clauses at the
// same nesting level:
//
//	querylanguage.Compile(querylanguage.Filter{
//		"age":  map[string]any{"$gte": 18, "$lt": 65},
//		"name": map[string]any{"$like": "mi*"},
//	})
//
// Field names are validated against identifier syntax and only whitelisted
// operators are ever interpolated; every value binds as a parameter.
package querylanguage

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/syssam/tabula/dialect/sql"
)

var identRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Parse builds a predicate from the given filter. Map keys are visited in
// sorted order, so the compiled statement is deterministic regardless of
// how the filter was assembled. A nil or empty filter parses to nil,
// matching all rows.
func Parse(f Filter) (P, error) {
	if len(f) == 0 {
		return nil, nil
	}
	return parseLevel(f)
}

func parseLevel(f map[string]any) (P, error) {
	var (
		preds []P
		or    bool
	)
	for _, k := range sortedKeys(f) {
		switch {
		case k == OpOr:
			or = true
			sub, ok := toMap(f[k])
			if !ok {
				return nil, fmt.Errorf("querylanguage: $or expects an object, got %T", f[k])
			}
			// Members of an $or join the sibling clause set individually,
			// so a field repeated under $or yields a second condition on
			// that field.
			for _, sk := range sortedKeys(sub) {
				if sk == OpOr {
					p, err := parseLevel(map[string]any{OpOr: sub[sk]})
					if err != nil {
						return nil, err
					}
					preds = append(preds, p)
					continue
				}
				p, err := parseField(sk, sub[sk])
				if err != nil {
					return nil, err
				}
				preds = append(preds, p)
			}
		case strings.HasPrefix(k, "$"):
			return nil, fmt.Errorf("querylanguage: unknown operator %q", k)
		default:
			p, err := parseField(k, f[k])
			if err != nil {
				return nil, err
			}
			preds = append(preds, p)
		}
	}
	switch {
	case len(preds) == 0:
		return nil, fmt.Errorf("querylanguage: empty clause set")
	case len(preds) == 1:
		return preds[0], nil
	default:
		return &Group{Or: or, Xs: preds}, nil
	}
}

func parseField(name string, v any) (P, error) {
	if !identRe.MatchString(name) {
		return nil, fmt.Errorf("querylanguage: invalid field name %q", name)
	}
	opv, ok := toMap(v)
	if !ok {
		return &Cond{Field: name, Op: OpEQ, Value: v}, nil
	}
	var conds []P
	for _, k := range sortedKeys(opv) {
		op := Op(k)
		if !op.Valid() {
			return nil, fmt.Errorf("querylanguage: unknown operator %q on field %q", k, name)
		}
		if err := checkOperand(name, op, opv[k]); err != nil {
			return nil, err
		}
		conds = append(conds, &Cond{Field: name, Op: op, Value: opv[k]})
	}
	if len(conds) == 0 {
		return nil, fmt.Errorf("querylanguage: field %q has an empty operator object", name)
	}
	if len(conds) == 1 {
		return conds[0], nil
	}
	return &Group{Xs: conds}, nil
}

func checkOperand(field string, op Op, v any) error {
	switch op {
	case OpBetween:
		if vs := values(v); len(vs) != 2 {
			return fmt.Errorf("querylanguage: $between on field %q expects exactly two values", field)
		}
	case OpIn, OpNotIn:
		if _, ok := v.(map[string]any); ok {
			return fmt.Errorf("querylanguage: %s on field %q expects a value list", op, field)
		}
	case OpLike:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("querylanguage: $like on field %q expects a string pattern", field)
		}
	}
	return nil
}

// Compile parses the filter and returns its SQL predicate. A nil or empty
// filter compiles to a nil predicate.
func Compile(f Filter) (*sql.Predicate, error) {
	p, err := Parse(f)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}
	return p.Predicate(), nil
}

// PropertyNames returns the de-duplicated field names referenced anywhere
// in the filter, including under $or groups, in traversal order.
func PropertyNames(f Filter) []string {
	var (
		names []string
		seen  = make(map[string]bool)
	)
	var walk func(m map[string]any)
	walk = func(m map[string]any) {
		for _, k := range sortedKeys(m) {
			if k == OpOr {
				if sub, ok := toMap(m[k]); ok {
					walk(sub)
				}
				continue
			}
			if strings.HasPrefix(k, "$") {
				continue
			}
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
	}
	walk(f)
	return names
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}
