package querylanguage

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/syssam/tabula/dialect/sql"
)

// Filter is a declarative where-query: a nested JSON-shaped object mapping
// field names to values, operator objects or an $or group.
type Filter = map[string]any

// Op is a comparison operator in a filter. Only operators from this
// whitelist are ever interpolated into SQL text; values always bind
// as parameters.
type Op string

// The supported filter operators.
const (
	OpEQ      Op = "$eq"
	OpNE      Op = "$ne"
	OpLT      Op = "$lt"
	OpLTE     Op = "$lte"
	OpGT      Op = "$gt"
	OpGTE     Op = "$gte"
	OpIn      Op = "$in"
	OpNotIn   Op = "$nin"
	OpBetween Op = "$between"
	OpIsNull  Op = "$isnull"
	OpLike    Op = "$like"
)

// OpOr groups sibling clauses with OR instead of AND.
const OpOr = "$or"

var ops = map[Op]bool{
	OpEQ: true, OpNE: true, OpLT: true, OpLTE: true, OpGT: true,
	OpGTE: true, OpIn: true, OpNotIn: true, OpBetween: true,
	OpIsNull: true, OpLike: true,
}

// Valid reports whether o is a known operator.
func (o Op) Valid() bool { return ops[o] }

// P is a parsed filter predicate. The String form is a debug rendering;
// Predicate emits the parameterized SQL form.
type P interface {
	fmt.Stringer
	// Predicate returns the SQL predicate for the clause.
	Predicate() *sql.Predicate
}

// Cond is a single field/operator/value condition.
type Cond struct {
	Field string
	Op    Op
	Value any
}

// String returns the debug rendering of the condition.
func (c *Cond) String() string {
	switch c.Op {
	case OpIsNull:
		if truthy(c.Value) {
			return c.Field + " is nil"
		}
		return c.Field + " is not nil"
	case OpIn:
		return fmt.Sprintf("%s in %s", c.Field, literal(c.Value))
	case OpNotIn:
		return fmt.Sprintf("%s not in %s", c.Field, literal(c.Value))
	case OpBetween:
		return fmt.Sprintf("%s between %s", c.Field, literal(c.Value))
	case OpLike:
		return fmt.Sprintf("like(%s, %s)", c.Field, literal(c.Value))
	default:
		return fmt.Sprintf("%s %s %s", c.Field, symbol(c.Op), literal(c.Value))
	}
}

// Predicate returns the SQL predicate for the condition.
func (c *Cond) Predicate() *sql.Predicate {
	switch c.Op {
	case OpEQ:
		return sql.EQ(c.Field, c.Value)
	case OpNE:
		return sql.NEQ(c.Field, c.Value)
	case OpLT:
		return sql.LT(c.Field, c.Value)
	case OpLTE:
		return sql.LTE(c.Field, c.Value)
	case OpGT:
		return sql.GT(c.Field, c.Value)
	case OpGTE:
		return sql.GTE(c.Field, c.Value)
	case OpIn:
		return sql.In(c.Field, values(c.Value)...)
	case OpNotIn:
		return sql.NotIn(c.Field, values(c.Value)...)
	case OpBetween:
		vs := values(c.Value)
		return sql.Between(c.Field, vs[0], vs[1])
	case OpIsNull:
		if truthy(c.Value) {
			return sql.IsNull(c.Field)
		}
		return sql.NotNull(c.Field)
	case OpLike:
		pattern, _ := c.Value.(string)
		return sql.Like(c.Field, globToLike(pattern))
	default:
		// Unreachable: Parse rejects unknown operators.
		return sql.ExprP("FALSE")
	}
}

// Group combines member clauses with a logical connective.
type Group struct {
	Or bool
	Xs []P
}

// String returns the debug rendering of the group. Groups of more than
// two members are parenthesized.
func (g *Group) String() string {
	sep := " && "
	if g.Or {
		sep = " || "
	}
	parts := make([]string, len(g.Xs))
	for i, x := range g.Xs {
		parts[i] = x.String()
	}
	s := strings.Join(parts, sep)
	if len(g.Xs) > 2 {
		s = "(" + s + ")"
	}
	return s
}

// Predicate returns the SQL predicate for the group.
func (g *Group) Predicate() *sql.Predicate {
	ps := make([]*sql.Predicate, len(g.Xs))
	for i, x := range g.Xs {
		ps[i] = x.Predicate()
	}
	if g.Or {
		return sql.Or(ps...)
	}
	return sql.And(ps...)
}

func symbol(o Op) string {
	switch o {
	case OpEQ:
		return "=="
	case OpNE:
		return "!="
	case OpLT:
		return "<"
	case OpLTE:
		return "<="
	case OpGT:
		return ">"
	case OpGTE:
		return ">="
	default:
		return string(o)
	}
}

// literal renders a value for the debug form.
func literal(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// truthy reports whether v is a JSON-truthy value: anything but nil,
// false, zero and the empty string.
func truthy(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	default:
		return true
	}
}

// values normalizes a filter value into an argument list.
func values(v any) []any {
	switch v := v.(type) {
	case []any:
		return v
	case []string:
		vs := make([]any, len(v))
		for i := range v {
			vs[i] = v[i]
		}
		return vs
	case []int:
		vs := make([]any, len(v))
		for i := range v {
			vs[i] = v[i]
		}
		return vs
	case []float64:
		vs := make([]any, len(v))
		for i := range v {
			vs[i] = v[i]
		}
		return vs
	default:
		return []any{v}
	}
}

// globToLike translates the filter glob wildcard to the SQL LIKE wildcard.
func globToLike(pattern string) string {
	return strings.ReplaceAll(pattern, "*", "%")
}

var (
	_ P = (*Cond)(nil)
	_ P = (*Group)(nil)
)
