package sql

// PredicateFunc constrains the predicate types the typed field wrappers
// produce. Any named type based on func(*Selector) qualifies.
type PredicateFunc interface {
	~func(*Selector)
}

// StringField builds predicates for a text column. Generated entity packages
// declare one wrapper per column and reuse it across queries:
//
//	type predicate = func(*sql.Selector)
//	var Title = sql.StringField[predicate]("title")
//	s.Where(...) // via Title.Contains("release")(s)
type StringField[P PredicateFunc] string

// Name returns the column name.
func (f StringField[P]) Name() string { return string(f) }

func (f StringField[P]) EQ(v string) P        { return P(FieldEQ(string(f), v)) }
func (f StringField[P]) NEQ(v string) P       { return P(FieldNEQ(string(f), v)) }
func (f StringField[P]) In(vs ...string) P    { return P(FieldIn(string(f), vs...)) }
func (f StringField[P]) NotIn(vs ...string) P { return P(FieldNotIn(string(f), vs...)) }
func (f StringField[P]) GT(v string) P        { return P(FieldGT(string(f), v)) }
func (f StringField[P]) GTE(v string) P       { return P(FieldGTE(string(f), v)) }
func (f StringField[P]) LT(v string) P        { return P(FieldLT(string(f), v)) }
func (f StringField[P]) LTE(v string) P       { return P(FieldLTE(string(f), v)) }

// Contains matches rows whose column contains v as a substring.
func (f StringField[P]) Contains(v string) P { return P(FieldContains(string(f), v)) }

// ContainsFold is the case-insensitive form of Contains.
func (f StringField[P]) ContainsFold(v string) P { return P(FieldContainsFold(string(f), v)) }

func (f StringField[P]) HasPrefix(v string) P { return P(FieldHasPrefix(string(f), v)) }
func (f StringField[P]) HasSuffix(v string) P { return P(FieldHasSuffix(string(f), v)) }

// EqualFold is the case-insensitive form of EQ.
func (f StringField[P]) EqualFold(v string) P { return P(FieldEqualFold(string(f), v)) }

func (f StringField[P]) IsNull() P  { return P(FieldIsNull(string(f))) }
func (f StringField[P]) NotNull() P { return P(FieldNotNull(string(f))) }
func (f StringField[P]) IsNil() P   { return f.IsNull() }
func (f StringField[P]) NotNil() P  { return f.NotNull() }

// IntField builds predicates for an integer column, including integer-format
// primary keys and relation reference columns.
type IntField[P PredicateFunc] string

// Name returns the column name.
func (f IntField[P]) Name() string { return string(f) }

func (f IntField[P]) EQ(v int) P        { return P(FieldEQ(string(f), v)) }
func (f IntField[P]) NEQ(v int) P       { return P(FieldNEQ(string(f), v)) }
func (f IntField[P]) In(vs ...int) P    { return P(FieldIn(string(f), vs...)) }
func (f IntField[P]) NotIn(vs ...int) P { return P(FieldNotIn(string(f), vs...)) }
func (f IntField[P]) GT(v int) P        { return P(FieldGT(string(f), v)) }
func (f IntField[P]) GTE(v int) P       { return P(FieldGTE(string(f), v)) }
func (f IntField[P]) LT(v int) P        { return P(FieldLT(string(f), v)) }
func (f IntField[P]) LTE(v int) P       { return P(FieldLTE(string(f), v)) }
func (f IntField[P]) IsNull() P         { return P(FieldIsNull(string(f))) }
func (f IntField[P]) NotNull() P        { return P(FieldNotNull(string(f))) }
func (f IntField[P]) IsNil() P          { return f.IsNull() }
func (f IntField[P]) NotNil() P         { return f.NotNull() }

// Int64Field is IntField for columns scanned as int64, the width identifier
// values normalize to.
type Int64Field[P PredicateFunc] string

// Name returns the column name.
func (f Int64Field[P]) Name() string { return string(f) }

func (f Int64Field[P]) EQ(v int64) P        { return P(FieldEQ(string(f), v)) }
func (f Int64Field[P]) NEQ(v int64) P       { return P(FieldNEQ(string(f), v)) }
func (f Int64Field[P]) In(vs ...int64) P    { return P(FieldIn(string(f), vs...)) }
func (f Int64Field[P]) NotIn(vs ...int64) P { return P(FieldNotIn(string(f), vs...)) }
func (f Int64Field[P]) GT(v int64) P        { return P(FieldGT(string(f), v)) }
func (f Int64Field[P]) GTE(v int64) P       { return P(FieldGTE(string(f), v)) }
func (f Int64Field[P]) LT(v int64) P        { return P(FieldLT(string(f), v)) }
func (f Int64Field[P]) LTE(v int64) P       { return P(FieldLTE(string(f), v)) }
func (f Int64Field[P]) IsNull() P           { return P(FieldIsNull(string(f))) }
func (f Int64Field[P]) NotNull() P          { return P(FieldNotNull(string(f))) }
func (f Int64Field[P]) IsNil() P            { return f.IsNull() }
func (f Int64Field[P]) NotNil() P           { return f.NotNull() }

// Float64Field builds predicates for a non-integer number column.
type Float64Field[P PredicateFunc] string

// Name returns the column name.
func (f Float64Field[P]) Name() string { return string(f) }

func (f Float64Field[P]) EQ(v float64) P        { return P(FieldEQ(string(f), v)) }
func (f Float64Field[P]) NEQ(v float64) P       { return P(FieldNEQ(string(f), v)) }
func (f Float64Field[P]) In(vs ...float64) P    { return P(FieldIn(string(f), vs...)) }
func (f Float64Field[P]) NotIn(vs ...float64) P { return P(FieldNotIn(string(f), vs...)) }
func (f Float64Field[P]) GT(v float64) P        { return P(FieldGT(string(f), v)) }
func (f Float64Field[P]) GTE(v float64) P       { return P(FieldGTE(string(f), v)) }
func (f Float64Field[P]) LT(v float64) P        { return P(FieldLT(string(f), v)) }
func (f Float64Field[P]) LTE(v float64) P       { return P(FieldLTE(string(f), v)) }
func (f Float64Field[P]) IsNull() P             { return P(FieldIsNull(string(f))) }
func (f Float64Field[P]) NotNull() P            { return P(FieldNotNull(string(f))) }
func (f Float64Field[P]) IsNil() P              { return f.IsNull() }
func (f Float64Field[P]) NotNil() P             { return f.NotNull() }

// BoolField builds predicates for a boolean column. Ordering and membership
// make no sense for booleans, so only equality and null checks are exposed.
type BoolField[P PredicateFunc] string

// Name returns the column name.
func (f BoolField[P]) Name() string { return string(f) }

func (f BoolField[P]) EQ(v bool) P  { return P(FieldEQ(string(f), v)) }
func (f BoolField[P]) NEQ(v bool) P { return P(FieldNEQ(string(f), v)) }
func (f BoolField[P]) IsNull() P    { return P(FieldIsNull(string(f))) }
func (f BoolField[P]) NotNull() P   { return P(FieldNotNull(string(f))) }
func (f BoolField[P]) IsNil() P     { return f.IsNull() }
func (f BoolField[P]) NotNil() P    { return f.NotNull() }

// TimeField builds predicates for a date column. T is the concrete time type,
// usually time.Time.
type TimeField[P PredicateFunc, T any] string

// Name returns the column name.
func (f TimeField[P, T]) Name() string { return string(f) }

func (f TimeField[P, T]) EQ(v T) P        { return P(FieldEQ(string(f), v)) }
func (f TimeField[P, T]) NEQ(v T) P       { return P(FieldNEQ(string(f), v)) }
func (f TimeField[P, T]) In(vs ...T) P    { return P(FieldInGeneric(string(f), vs...)) }
func (f TimeField[P, T]) NotIn(vs ...T) P { return P(FieldNotInGeneric(string(f), vs...)) }
func (f TimeField[P, T]) GT(v T) P        { return P(FieldGT(string(f), v)) }
func (f TimeField[P, T]) GTE(v T) P       { return P(FieldGTE(string(f), v)) }
func (f TimeField[P, T]) LT(v T) P        { return P(FieldLT(string(f), v)) }
func (f TimeField[P, T]) LTE(v T) P       { return P(FieldLTE(string(f), v)) }
func (f TimeField[P, T]) IsNull() P       { return P(FieldIsNull(string(f))) }
func (f TimeField[P, T]) NotNull() P      { return P(FieldNotNull(string(f))) }
func (f TimeField[P, T]) IsNil() P        { return f.IsNull() }
func (f TimeField[P, T]) NotNil() P       { return f.NotNull() }

// EnumField builds predicates for an enum column. T is the enum's string
// type; ordering comparisons are deliberately absent since enum values have
// no meaningful order at the SQL level.
type EnumField[P PredicateFunc, T ~string] string

// Name returns the column name.
func (f EnumField[P, T]) Name() string { return string(f) }

func (f EnumField[P, T]) EQ(v T) P        { return P(FieldEQ(string(f), v)) }
func (f EnumField[P, T]) NEQ(v T) P       { return P(FieldNEQ(string(f), v)) }
func (f EnumField[P, T]) In(vs ...T) P    { return P(FieldInGeneric(string(f), vs...)) }
func (f EnumField[P, T]) NotIn(vs ...T) P { return P(FieldNotInGeneric(string(f), vs...)) }
func (f EnumField[P, T]) IsNull() P       { return P(FieldIsNull(string(f))) }
func (f EnumField[P, T]) NotNull() P      { return P(FieldNotNull(string(f))) }
func (f EnumField[P, T]) IsNil() P        { return f.IsNull() }
func (f EnumField[P, T]) NotNil() P       { return f.NotNull() }

// UUIDField builds predicates for a uuid-format primary key or reference
// column. T is the UUID type.
type UUIDField[P PredicateFunc, T any] string

// Name returns the column name.
func (f UUIDField[P, T]) Name() string { return string(f) }

func (f UUIDField[P, T]) EQ(v T) P        { return P(FieldEQ(string(f), v)) }
func (f UUIDField[P, T]) NEQ(v T) P       { return P(FieldNEQ(string(f), v)) }
func (f UUIDField[P, T]) In(vs ...T) P    { return P(FieldInGeneric(string(f), vs...)) }
func (f UUIDField[P, T]) NotIn(vs ...T) P { return P(FieldNotInGeneric(string(f), vs...)) }
func (f UUIDField[P, T]) GT(v T) P        { return P(FieldGT(string(f), v)) }
func (f UUIDField[P, T]) GTE(v T) P       { return P(FieldGTE(string(f), v)) }
func (f UUIDField[P, T]) LT(v T) P        { return P(FieldLT(string(f), v)) }
func (f UUIDField[P, T]) LTE(v T) P       { return P(FieldLTE(string(f), v)) }
func (f UUIDField[P, T]) IsNull() P       { return P(FieldIsNull(string(f))) }
func (f UUIDField[P, T]) NotNull() P      { return P(FieldNotNull(string(f))) }
func (f UUIDField[P, T]) IsNil() P        { return f.IsNull() }
func (f UUIDField[P, T]) NotNil() P       { return f.NotNull() }

// FieldInGeneric is FieldIn for a slice of any element type.
func FieldInGeneric[T any](name string, vs ...T) func(*Selector) {
	return func(s *Selector) {
		v := make([]any, len(vs))
		for i := range vs {
			v[i] = vs[i]
		}
		s.Where(In(s.C(name), v...))
	}
}

// FieldNotInGeneric is FieldNotIn for a slice of any element type.
func FieldNotInGeneric[T any](name string, vs ...T) func(*Selector) {
	return func(s *Selector) {
		v := make([]any, len(vs))
		for i := range vs {
			v[i] = vs[i]
		}
		s.Where(NotIn(s.C(name), v...))
	}
}
