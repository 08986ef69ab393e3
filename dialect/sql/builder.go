package sql

import (
	"strconv"
	"strings"

	"github.com/syssam/tabula/dialect"
)

// Querier wraps the Query method. It is implemented by all statement
// builders and by raw SQL fragments.
type Querier interface {
	// Query returns the SQL statement and the list of bound arguments.
	Query() (string, []any)
}

// Raw returns a raw SQL fragment that is written as-is.
func Raw(s string) Querier { return raw{s} }

type raw struct{ s string }

func (r raw) Query() (string, []any) { return r.s, nil }

// Builder is the base type shared by all statement builders. It holds the
// statement buffer, the bound arguments and the dialect configuration.
type Builder struct {
	sb      strings.Builder
	dialect string
	args    []any
	total   int // placeholder counter for numbered dialects
	errs    []error
}

// Quote quotes the given identifier for the configured dialect.
func (b *Builder) Quote(ident string) string {
	quote := `"`
	if b.dialect == dialect.MySQL {
		quote = "`"
	}
	return quote + ident + quote
}

// Ident writes the given identifier, quoting it for the configured dialect.
// Qualified identifiers (table.column) are quoted per part, and "*" or
// pre-quoted or function expressions are written as-is.
func (b *Builder) Ident(s string) *Builder {
	switch {
	case s == "":
	case s == "*" || b.isQualified(s) || b.isFunc(s):
		b.WriteString(s)
	case strings.ContainsRune(s, '.'):
		parts := strings.Split(s, ".")
		for i, p := range parts {
			if i > 0 {
				b.WriteByte('.')
			}
			if p == "*" {
				b.WriteString(p)
			} else {
				b.WriteString(b.Quote(p))
			}
		}
	default:
		b.WriteString(b.Quote(s))
	}
	return b
}

// isQualified reports if the given string is already quoted.
func (b *Builder) isQualified(s string) bool {
	return strings.ContainsAny(s, "`\"")
}

// isFunc reports if the given string is a function expression,
// a modifier or anything else that must not be quoted.
func (b *Builder) isFunc(s string) bool {
	return strings.ContainsAny(s, "( ")
}

// WriteString appends the given string to the statement buffer.
func (b *Builder) WriteString(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// WriteByte appends the given byte to the statement buffer.
func (b *Builder) WriteByte(c byte) *Builder {
	b.sb.WriteByte(c)
	return b
}

// Comma writes a comma separator.
func (b *Builder) Comma() *Builder { return b.WriteString(", ") }

// Pad writes a single space.
func (b *Builder) Pad() *Builder { return b.WriteByte(' ') }

// Arg appends the given value to the bound arguments and writes the
// matching placeholder for the configured dialect.
func (b *Builder) Arg(v any) *Builder {
	if r, ok := v.(raw); ok {
		return b.WriteString(r.s)
	}
	b.total++
	b.args = append(b.args, v)
	if b.postgres() {
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(b.total))
	} else {
		b.WriteByte('?')
	}
	return b
}

// Args appends the given values as a comma-separated placeholder list.
func (b *Builder) Args(vs ...any) *Builder {
	for i, v := range vs {
		if i > 0 {
			b.Comma()
		}
		b.Arg(v)
	}
	return b
}

// Nested writes the given build function wrapped in parentheses.
func (b *Builder) Nested(f func(*Builder)) *Builder {
	b.WriteByte('(')
	f(b)
	b.WriteByte(')')
	return b
}

// IdentComma writes the given identifiers comma-separated.
func (b *Builder) IdentComma(idents ...string) *Builder {
	for i, s := range idents {
		if i > 0 {
			b.Comma()
		}
		b.Ident(s)
	}
	return b
}

// AddError records an error that occurred while building the statement.
// The first recorded error is returned by Err.
func (b *Builder) AddError(err error) *Builder {
	if err != nil {
		b.errs = append(b.errs, err)
	}
	return b
}

// Err returns the first error recorded while building the statement.
func (b *Builder) Err() error {
	if len(b.errs) > 0 {
		return b.errs[0]
	}
	return nil
}

// SetDialect sets the dialect the statement is built for.
func (b *Builder) SetDialect(dialect string) { b.dialect = dialect }

// Dialect returns the dialect the statement is built for.
func (b *Builder) Dialect() string { return b.dialect }

func (b *Builder) postgres() bool { return b.dialect == dialect.Postgres }
func (b *Builder) mysql() bool    { return b.dialect == dialect.MySQL }

// String returns the accumulated statement text.
func (b *Builder) String() string { return b.sb.String() }

// DialectBuilder prefixes all root builders with the given dialect.
type DialectBuilder struct {
	dialect string
}

// Dialect creates a builder factory for the given dialect.
//
//	sql.Dialect(dialect.Postgres).Select("id").From(sql.Table("users"))
func Dialect(name string) *DialectBuilder {
	return &DialectBuilder{dialect: name}
}

// Select creates a Selector for the configured dialect.
func (d *DialectBuilder) Select(columns ...string) *Selector {
	s := Select(columns...)
	s.SetDialect(d.dialect)
	return s
}

// Insert creates an InsertBuilder for the configured dialect.
func (d *DialectBuilder) Insert(table string) *InsertBuilder {
	i := Insert(table)
	i.SetDialect(d.dialect)
	return i
}

// Update creates an UpdateBuilder for the configured dialect.
func (d *DialectBuilder) Update(table string) *UpdateBuilder {
	u := Update(table)
	u.SetDialect(d.dialect)
	return u
}

// Delete creates a DeleteBuilder for the configured dialect.
func (d *DialectBuilder) Delete(table string) *DeleteBuilder {
	dl := Delete(table)
	dl.SetDialect(d.dialect)
	return dl
}

// SelectTable is a table reference used in the FROM and JOIN clauses.
type SelectTable struct {
	name  string
	alias string
}

// Table returns a new table reference.
func Table(name string) *SelectTable {
	return &SelectTable{name: name}
}

// As sets the table alias.
func (t *SelectTable) As(alias string) *SelectTable {
	t.alias = alias
	return t
}

// Name returns the table name.
func (t *SelectTable) Name() string { return t.name }

// C returns the given column qualified by the table alias or name.
func (t *SelectTable) C(column string) string {
	return t.ref() + "." + column
}

// Columns returns the given columns qualified by the table alias or name.
func (t *SelectTable) Columns(columns ...string) []string {
	qualified := make([]string, len(columns))
	for i, c := range columns {
		qualified[i] = t.C(c)
	}
	return qualified
}

func (t *SelectTable) ref() string {
	if t.alias != "" {
		return t.alias
	}
	return t.name
}

func (t *SelectTable) write(b *Builder) {
	b.Ident(t.name)
	if t.alias != "" {
		b.WriteString(" AS ")
		b.Ident(t.alias)
	}
}

type join struct {
	kind  string
	table *SelectTable
	on    [2]string
	onP   *Predicate
}

// Selector builds a SELECT statement.
type Selector struct {
	Builder
	columns   []string
	distinct  bool
	from      *SelectTable
	joins     []join
	where     *Predicate
	groupBy   []string
	having    *Predicate
	order     []string
	limit     *int
	offset    *int
	forUpdate bool
}

// Select returns a Selector for the given columns.
// An empty column list selects all columns.
func Select(columns ...string) *Selector {
	return &Selector{columns: columns}
}

// Distinct marks the selection as DISTINCT.
func (s *Selector) Distinct() *Selector {
	s.distinct = true
	return s
}

// Select replaces the selected columns.
func (s *Selector) Select(columns ...string) *Selector {
	s.columns = columns
	return s
}

// SelectedColumns returns the columns selected so far.
func (s *Selector) SelectedColumns() []string { return s.columns }

// From sets the table the statement selects from.
func (s *Selector) From(t *SelectTable) *Selector {
	s.from = t
	return s
}

// Table returns the table the statement selects from.
func (s *Selector) Table() *SelectTable { return s.from }

// Join adds an INNER JOIN to the statement.
func (s *Selector) Join(t *SelectTable) *Selector { return s.join("JOIN", t) }

// LeftJoin adds a LEFT JOIN to the statement.
func (s *Selector) LeftJoin(t *SelectTable) *Selector { return s.join("LEFT JOIN", t) }

// RightJoin adds a RIGHT JOIN to the statement.
func (s *Selector) RightJoin(t *SelectTable) *Selector { return s.join("RIGHT JOIN", t) }

func (s *Selector) join(kind string, t *SelectTable) *Selector {
	s.joins = append(s.joins, join{kind: kind, table: t})
	return s
}

// On sets the join condition of the last added join to the equality
// of the two given columns.
func (s *Selector) On(c1, c2 string) *Selector {
	if len(s.joins) > 0 {
		s.joins[len(s.joins)-1].on = [2]string{c1, c2}
	}
	return s
}

// OnP sets the join condition of the last added join to the given predicate.
func (s *Selector) OnP(p *Predicate) *Selector {
	if len(s.joins) > 0 {
		s.joins[len(s.joins)-1].onP = p
	}
	return s
}

// Where appends the given predicate to the WHERE clause.
// Multiple calls are combined with AND.
func (s *Selector) Where(p *Predicate) *Selector {
	switch {
	case p == nil:
	case s.where == nil:
		s.where = p
	default:
		s.where = And(s.where, p)
	}
	return s
}

// P returns the predicate of the WHERE clause.
func (s *Selector) P() *Predicate { return s.where }

// GroupBy appends the given columns to the GROUP BY clause.
func (s *Selector) GroupBy(columns ...string) *Selector {
	s.groupBy = append(s.groupBy, columns...)
	return s
}

// Having sets the predicate of the HAVING clause.
func (s *Selector) Having(p *Predicate) *Selector {
	s.having = p
	return s
}

// OrderBy appends the given order terms to the ORDER BY clause.
// Terms may be plain columns or results of Asc and Desc.
func (s *Selector) OrderBy(terms ...string) *Selector {
	s.order = append(s.order, terms...)
	return s
}

// Limit sets the LIMIT clause.
func (s *Selector) Limit(n int) *Selector {
	s.limit = &n
	return s
}

// Offset sets the OFFSET clause.
func (s *Selector) Offset(n int) *Selector {
	s.offset = &n
	return s
}

// ForUpdate marks the selection for row-level locking.
// It is ignored on SQLite, which locks the whole database file.
func (s *Selector) ForUpdate() *Selector {
	s.forUpdate = true
	return s
}

// C returns the given column qualified by the selected table, if any.
func (s *Selector) C(column string) string {
	if s.from != nil && !strings.ContainsRune(column, '.') {
		return s.from.C(column)
	}
	return column
}

// Query returns the SELECT statement and its bound arguments.
// The statement is rendered into a fresh buffer, so Query can be
// called more than once on the same builder.
func (s *Selector) Query() (string, []any) {
	b := &Builder{dialect: s.dialect}
	b.WriteString("SELECT ")
	if s.distinct {
		b.WriteString("DISTINCT ")
	}
	if len(s.columns) == 0 {
		b.WriteByte('*')
	}
	for i, c := range s.columns {
		if i > 0 {
			b.Comma()
		}
		b.Ident(c)
	}
	if s.from != nil {
		b.WriteString(" FROM ")
		s.from.write(b)
	}
	for _, j := range s.joins {
		b.Pad().WriteString(j.kind).Pad()
		j.table.write(b)
		switch {
		case j.onP != nil:
			b.WriteString(" ON ")
			j.onP.build(b)
		case j.on[0] != "":
			b.WriteString(" ON ")
			b.Ident(j.on[0]).WriteString(" = ").Ident(j.on[1])
		}
	}
	if s.where != nil {
		b.WriteString(" WHERE ")
		s.where.build(b)
	}
	if len(s.groupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.IdentComma(s.groupBy...)
	}
	if s.having != nil {
		b.WriteString(" HAVING ")
		s.having.build(b)
	}
	if len(s.order) > 0 {
		b.WriteString(" ORDER BY ")
		for i, o := range s.order {
			if i > 0 {
				b.Comma()
			}
			writeOrder(b, o)
		}
	}
	if s.limit != nil {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(*s.limit))
	}
	if s.offset != nil {
		b.WriteString(" OFFSET ")
		b.WriteString(strconv.Itoa(*s.offset))
	}
	if s.forUpdate && s.dialect != dialect.SQLite {
		b.WriteString(" FOR UPDATE")
	}
	return b.String(), b.args
}

// writeOrder writes an order term, splitting off a trailing
// ASC or DESC modifier before quoting.
func writeOrder(b *Builder, term string) {
	for _, suffix := range []string{" ASC", " DESC"} {
		if strings.HasSuffix(term, suffix) {
			b.Ident(strings.TrimSuffix(term, suffix))
			b.WriteString(suffix)
			return
		}
	}
	b.Ident(term)
}

// Asc returns an ascending order term for the given column.
func Asc(column string) string { return column + " ASC" }

// Desc returns a descending order term for the given column.
func Desc(column string) string { return column + " DESC" }

// Count returns a COUNT expression for the given column.
func Count(column string) string { return "COUNT(" + column + ")" }

// InsertBuilder builds an INSERT statement.
type InsertBuilder struct {
	Builder
	table     string
	columns   []string
	values    [][]any
	defaults  bool
	returning []string
}

// Insert returns an InsertBuilder for the given table.
func Insert(table string) *InsertBuilder {
	return &InsertBuilder{table: table}
}

// Columns sets the columns of the INSERT statement.
func (i *InsertBuilder) Columns(columns ...string) *InsertBuilder {
	i.columns = append(i.columns, columns...)
	return i
}

// Values appends one row of values. It can be called multiple times
// for multi-row inserts.
func (i *InsertBuilder) Values(values ...any) *InsertBuilder {
	i.values = append(i.values, values)
	return i
}

// Default builds an insert of default values.
func (i *InsertBuilder) Default() *InsertBuilder {
	i.defaults = true
	return i
}

// Returning adds a RETURNING clause on dialects that support it.
// It is silently dropped on MySQL.
func (i *InsertBuilder) Returning(columns ...string) *InsertBuilder {
	i.returning = columns
	return i
}

// Query returns the INSERT statement and its bound arguments.
func (i *InsertBuilder) Query() (string, []any) {
	b := &Builder{dialect: i.dialect}
	b.WriteString("INSERT INTO ")
	b.Ident(i.table)
	switch {
	case i.defaults && b.mysql():
		b.WriteString(" () VALUES ()")
	case i.defaults:
		b.WriteString(" DEFAULT VALUES")
	default:
		b.WriteByte(' ')
		b.Nested(func(b *Builder) {
			b.IdentComma(i.columns...)
		})
		b.WriteString(" VALUES ")
		for j, row := range i.values {
			if j > 0 {
				b.Comma()
			}
			b.Nested(func(b *Builder) {
				b.Args(row...)
			})
		}
	}
	if len(i.returning) > 0 && !b.mysql() {
		b.WriteString(" RETURNING ")
		b.IdentComma(i.returning...)
	}
	return b.String(), b.args
}

// UpdateBuilder builds an UPDATE statement.
type UpdateBuilder struct {
	Builder
	table   string
	columns []string
	values  []any
	where   *Predicate
}

// Update returns an UpdateBuilder for the given table.
func Update(table string) *UpdateBuilder {
	return &UpdateBuilder{table: table}
}

// Set sets a column to the given value.
func (u *UpdateBuilder) Set(column string, v any) *UpdateBuilder {
	u.columns = append(u.columns, column)
	u.values = append(u.values, v)
	return u
}

// SetNull sets a column to NULL.
func (u *UpdateBuilder) SetNull(column string) *UpdateBuilder {
	return u.Set(column, Raw("NULL"))
}

// Where appends the given predicate to the WHERE clause.
// Multiple calls are combined with AND.
func (u *UpdateBuilder) Where(p *Predicate) *UpdateBuilder {
	switch {
	case p == nil:
	case u.where == nil:
		u.where = p
	default:
		u.where = And(u.where, p)
	}
	return u
}

// Empty reports whether the builder has no assignments.
func (u *UpdateBuilder) Empty() bool { return len(u.columns) == 0 }

// Query returns the UPDATE statement and its bound arguments.
func (u *UpdateBuilder) Query() (string, []any) {
	b := &Builder{dialect: u.dialect}
	b.WriteString("UPDATE ")
	b.Ident(u.table)
	b.WriteString(" SET ")
	for j, c := range u.columns {
		if j > 0 {
			b.Comma()
		}
		b.Ident(c).WriteString(" = ")
		if r, ok := u.values[j].(Querier); ok {
			q, _ := r.Query()
			b.WriteString(q)
		} else {
			b.Arg(u.values[j])
		}
	}
	if u.where != nil {
		b.WriteString(" WHERE ")
		u.where.build(b)
	}
	return b.String(), b.args
}

// DeleteBuilder builds a DELETE statement.
type DeleteBuilder struct {
	Builder
	table string
	where *Predicate
}

// Delete returns a DeleteBuilder for the given table.
func Delete(table string) *DeleteBuilder {
	return &DeleteBuilder{table: table}
}

// Where appends the given predicate to the WHERE clause.
// Multiple calls are combined with AND.
func (d *DeleteBuilder) Where(p *Predicate) *DeleteBuilder {
	switch {
	case p == nil:
	case d.where == nil:
		d.where = p
	default:
		d.where = And(d.where, p)
	}
	return d
}

// Query returns the DELETE statement and its bound arguments.
func (d *DeleteBuilder) Query() (string, []any) {
	b := &Builder{dialect: d.dialect}
	b.WriteString("DELETE FROM ")
	b.Ident(d.table)
	if d.where != nil {
		b.WriteString(" WHERE ")
		d.where.build(b)
	}
	return b.String(), b.args
}

// Predicate is a where-clause predicate. Predicates are composed of
// build functions executed against the owning statement builder, so
// bound arguments and placeholder numbering flow through the parent.
type Predicate struct {
	Builder
	fns []func(*Builder)
}

// P returns a new predicate composed of the given build functions.
func P(fns ...func(*Builder)) *Predicate {
	return &Predicate{fns: fns}
}

// Append adds a build function to the predicate.
func (p *Predicate) Append(f func(*Builder)) *Predicate {
	p.fns = append(p.fns, f)
	return p
}

func (p *Predicate) build(b *Builder) {
	for _, f := range p.fns {
		f(b)
	}
}

// Query renders the predicate as a standalone fragment.
func (p *Predicate) Query() (string, []any) {
	b := &Builder{dialect: p.dialect}
	p.build(b)
	return b.String(), b.args
}

// And combines the given predicates with AND, wrapped in parentheses.
func And(preds ...*Predicate) *Predicate {
	return P(func(b *Builder) {
		b.Nested(func(b *Builder) {
			for i, p := range preds {
				if i > 0 {
					b.WriteString(" AND ")
				}
				p.build(b)
			}
		})
	})
}

// Or combines the given predicates with OR, wrapped in parentheses.
func Or(preds ...*Predicate) *Predicate {
	return P(func(b *Builder) {
		b.Nested(func(b *Builder) {
			for i, p := range preds {
				if i > 0 {
					b.WriteString(" OR ")
				}
				p.build(b)
			}
		})
	})
}

// Not negates the given predicate.
func Not(p *Predicate) *Predicate {
	return P(func(b *Builder) {
		b.WriteString("NOT ")
		b.Nested(func(b *Builder) {
			p.build(b)
		})
	})
}

func binary(column, op string, v any) *Predicate {
	return P(func(b *Builder) {
		b.Ident(column).Pad().WriteString(op).Pad().Arg(v)
	})
}

// EQ returns a column = value predicate.
func EQ(column string, v any) *Predicate { return binary(column, "=", v) }

// NEQ returns a column <> value predicate.
func NEQ(column string, v any) *Predicate { return binary(column, "<>", v) }

// GT returns a column > value predicate.
func GT(column string, v any) *Predicate { return binary(column, ">", v) }

// GTE returns a column >= value predicate.
func GTE(column string, v any) *Predicate { return binary(column, ">=", v) }

// LT returns a column < value predicate.
func LT(column string, v any) *Predicate { return binary(column, "<", v) }

// LTE returns a column <= value predicate.
func LTE(column string, v any) *Predicate { return binary(column, "<=", v) }

// ColumnsEQ returns a column = column predicate.
func ColumnsEQ(column1, column2 string) *Predicate {
	return P(func(b *Builder) {
		b.Ident(column1).WriteString(" = ").Ident(column2)
	})
}

// In returns a column IN (values...) predicate.
// An empty value list renders as FALSE.
func In(column string, vs ...any) *Predicate {
	return P(func(b *Builder) {
		if len(vs) == 0 {
			b.WriteString("FALSE")
			return
		}
		b.Ident(column).WriteString(" IN ")
		b.Nested(func(b *Builder) {
			b.Args(vs...)
		})
	})
}

// NotIn returns a column NOT IN (values...) predicate.
// An empty value list renders as TRUE.
func NotIn(column string, vs ...any) *Predicate {
	return P(func(b *Builder) {
		if len(vs) == 0 {
			b.WriteString("TRUE")
			return
		}
		b.Ident(column).WriteString(" NOT IN ")
		b.Nested(func(b *Builder) {
			b.Args(vs...)
		})
	})
}

// Like returns a column LIKE pattern predicate.
func Like(column, pattern string) *Predicate {
	return P(func(b *Builder) {
		b.Ident(column).WriteString(" LIKE ").Arg(pattern)
	})
}

// Contains returns a LIKE predicate matching the given substring.
func Contains(column, substr string) *Predicate {
	return Like(column, "%"+escapeLike(substr)+"%")
}

// HasPrefix returns a LIKE predicate matching the given prefix.
func HasPrefix(column, prefix string) *Predicate {
	return Like(column, escapeLike(prefix)+"%")
}

// HasSuffix returns a LIKE predicate matching the given suffix.
func HasSuffix(column, suffix string) *Predicate {
	return Like(column, "%"+escapeLike(suffix))
}

// escapeLike escapes the LIKE wildcard characters in the given literal.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}

// IsNull returns a column IS NULL predicate.
func IsNull(column string) *Predicate {
	return P(func(b *Builder) {
		b.Ident(column).WriteString(" IS NULL")
	})
}

// NotNull returns a column IS NOT NULL predicate.
func NotNull(column string) *Predicate {
	return P(func(b *Builder) {
		b.Ident(column).WriteString(" IS NOT NULL")
	})
}

// Between returns a column BETWEEN low AND high predicate.
// It binds exactly two arguments.
func Between(column string, low, high any) *Predicate {
	return P(func(b *Builder) {
		b.Ident(column).
			WriteString(" BETWEEN ").
			Arg(low).
			WriteString(" AND ").
			Arg(high)
	})
}

// ExprP returns a predicate for a raw expression with bound arguments.
func ExprP(expr string, args ...any) *Predicate {
	return P(func(b *Builder) {
		b.WriteString(expr)
		b.args = append(b.args, args...)
		b.total += len(args)
	})
}

// FieldEQ returns a selector predicate on the equality of the given field.
// Field predicates qualify the column by the selected table and append
// to the WHERE clause, and are the building blocks of typed field wrappers.
func FieldEQ(name string, v any) func(*Selector) {
	return func(s *Selector) { s.Where(EQ(s.C(name), v)) }
}

// FieldNEQ returns a selector predicate on the inequality of the given field.
func FieldNEQ(name string, v any) func(*Selector) {
	return func(s *Selector) { s.Where(NEQ(s.C(name), v)) }
}

// FieldGT returns a field > value selector predicate.
func FieldGT(name string, v any) func(*Selector) {
	return func(s *Selector) { s.Where(GT(s.C(name), v)) }
}

// FieldGTE returns a field >= value selector predicate.
func FieldGTE(name string, v any) func(*Selector) {
	return func(s *Selector) { s.Where(GTE(s.C(name), v)) }
}

// FieldLT returns a field < value selector predicate.
func FieldLT(name string, v any) func(*Selector) {
	return func(s *Selector) { s.Where(LT(s.C(name), v)) }
}

// FieldLTE returns a field <= value selector predicate.
func FieldLTE(name string, v any) func(*Selector) {
	return func(s *Selector) { s.Where(LTE(s.C(name), v)) }
}

// FieldIn returns a field IN (values...) selector predicate.
func FieldIn[T any](name string, vs ...T) func(*Selector) {
	return FieldInGeneric(name, vs...)
}

// FieldNotIn returns a field NOT IN (values...) selector predicate.
func FieldNotIn[T any](name string, vs ...T) func(*Selector) {
	return FieldNotInGeneric(name, vs...)
}

// FieldContains returns a selector predicate matching a field substring.
func FieldContains(name, substr string) func(*Selector) {
	return func(s *Selector) { s.Where(Contains(s.C(name), substr)) }
}

// FieldContainsFold returns a case-insensitive substring selector predicate.
func FieldContainsFold(name, substr string) func(*Selector) {
	return func(s *Selector) {
		s.Where(P(func(b *Builder) {
			b.WriteString("LOWER(")
			b.Ident(s.C(name))
			b.WriteString(") LIKE ")
			b.Arg("%" + strings.ToLower(escapeLike(substr)) + "%")
		}))
	}
}

// FieldHasPrefix returns a selector predicate matching a field prefix.
func FieldHasPrefix(name, prefix string) func(*Selector) {
	return func(s *Selector) { s.Where(HasPrefix(s.C(name), prefix)) }
}

// FieldHasSuffix returns a selector predicate matching a field suffix.
func FieldHasSuffix(name, suffix string) func(*Selector) {
	return func(s *Selector) { s.Where(HasSuffix(s.C(name), suffix)) }
}

// FieldEqualFold returns a case-insensitive equality selector predicate.
func FieldEqualFold(name, v string) func(*Selector) {
	return func(s *Selector) {
		s.Where(P(func(b *Builder) {
			b.WriteString("LOWER(")
			b.Ident(s.C(name))
			b.WriteString(") = ")
			b.Arg(strings.ToLower(v))
		}))
	}
}

// FieldIsNull returns a field IS NULL selector predicate.
func FieldIsNull(name string) func(*Selector) {
	return func(s *Selector) { s.Where(IsNull(s.C(name))) }
}

// FieldNotNull returns a field IS NOT NULL selector predicate.
func FieldNotNull(name string) func(*Selector) {
	return func(s *Selector) { s.Where(NotNull(s.C(name))) }
}

var (
	_ Querier = (*Selector)(nil)
	_ Querier = (*InsertBuilder)(nil)
	_ Querier = (*UpdateBuilder)(nil)
	_ Querier = (*DeleteBuilder)(nil)
	_ Querier = (*Predicate)(nil)
)
