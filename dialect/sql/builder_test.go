package sql

import (
	"errors"
	"strconv"
	"testing"

	"github.com/syssam/tabula/dialect"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder(t *testing.T) {
	users, posts := Table("users").As("u"), Table("posts").As("p")
	plainUsers, pets := Table("users"), Table("pets")
	tests := []struct {
		input     Querier
		wantQuery string
		wantArgs  []any
	}{
		{
			input:     Dialect(dialect.SQLite).Select().From(Table("users")),
			wantQuery: `SELECT * FROM "users"`,
		},
		{
			input:     Dialect(dialect.SQLite).Select("id", "name").From(Table("users")),
			wantQuery: `SELECT "id", "name" FROM "users"`,
		},
		{
			input:     Dialect(dialect.SQLite).Select("name").Distinct().From(Table("users")),
			wantQuery: `SELECT DISTINCT "name" FROM "users"`,
		},
		{
			input:     Dialect(dialect.SQLite).Select().From(Table("users")).Where(EQ("name", "a8m")),
			wantQuery: `SELECT * FROM "users" WHERE "name" = ?`,
			wantArgs:  []any{"a8m"},
		},
		{
			input:     Dialect(dialect.Postgres).Select().From(Table("users")).Where(And(EQ("name", "foo"), EQ("age", 30))),
			wantQuery: `SELECT * FROM "users" WHERE ("name" = $1 AND "age" = $2)`,
			wantArgs:  []any{"foo", 30},
		},
		{
			input:     Dialect(dialect.MySQL).Select("id").From(Table("users")).Where(EQ("name", "foo")),
			wantQuery: "SELECT `id` FROM `users` WHERE `name` = ?",
			wantArgs:  []any{"foo"},
		},
		{
			input:     Dialect(dialect.SQLite).Select().From(Table("users")).Where(EQ("active", true)).Where(GT("age", 18)),
			wantQuery: `SELECT * FROM "users" WHERE ("active" = ? AND "age" > ?)`,
			wantArgs:  []any{true, 18},
		},
		{
			input:     Dialect(dialect.SQLite).Select().From(Table("users")).Where(Or(EQ("status", "active"), EQ("status", "pending"))),
			wantQuery: `SELECT * FROM "users" WHERE ("status" = ? OR "status" = ?)`,
			wantArgs:  []any{"active", "pending"},
		},
		{
			input:     Dialect(dialect.SQLite).Select().From(Table("users")).Where(Not(EQ("deleted", true))),
			wantQuery: `SELECT * FROM "users" WHERE NOT ("deleted" = ?)`,
			wantArgs:  []any{true},
		},
		{
			input:     Dialect(dialect.SQLite).Select().From(Table("users")).Where(In("status", "active", "pending")),
			wantQuery: `SELECT * FROM "users" WHERE "status" IN (?, ?)`,
			wantArgs:  []any{"active", "pending"},
		},
		{
			input:     Dialect(dialect.SQLite).Select().From(Table("users")).Where(In("status")),
			wantQuery: `SELECT * FROM "users" WHERE FALSE`,
		},
		{
			input:     Dialect(dialect.SQLite).Select().From(Table("users")).Where(NotIn("status")),
			wantQuery: `SELECT * FROM "users" WHERE TRUE`,
		},
		{
			input:     Dialect(dialect.SQLite).Select().From(Table("users")).Where(Between("age", 18, 65)),
			wantQuery: `SELECT * FROM "users" WHERE "age" BETWEEN ? AND ?`,
			wantArgs:  []any{18, 65},
		},
		{
			input:     Dialect(dialect.SQLite).Select().From(Table("users")).Where(IsNull("deleted_at")),
			wantQuery: `SELECT * FROM "users" WHERE "deleted_at" IS NULL`,
		},
		{
			input:     Dialect(dialect.SQLite).Select().From(Table("users")).Where(NotNull("email")),
			wantQuery: `SELECT * FROM "users" WHERE "email" IS NOT NULL`,
		},
		{
			input:     Dialect(dialect.SQLite).Select().From(Table("users")).Where(Contains("name", "50%")),
			wantQuery: `SELECT * FROM "users" WHERE "name" LIKE ?`,
			wantArgs:  []any{`%50\%%`},
		},
		{
			input:     Dialect(dialect.SQLite).Select().From(Table("users")).Where(HasPrefix("code", "a_b")),
			wantQuery: `SELECT * FROM "users" WHERE "code" LIKE ?`,
			wantArgs:  []any{`a\_b%`},
		},
		{
			input:     Dialect(dialect.SQLite).Select().From(Table("users")).Where(HasSuffix("email", "@example.com")),
			wantQuery: `SELECT * FROM "users" WHERE "email" LIKE ?`,
			wantArgs:  []any{"%@example.com"},
		},
		{
			input:     Dialect(dialect.SQLite).Select().From(Table("users")).Where(ExprP("age % 2 = ?", 0)),
			wantQuery: `SELECT * FROM "users" WHERE age % 2 = ?`,
			wantArgs:  []any{0},
		},
		{
			input: Dialect(dialect.Postgres).Select("u.id", "p.title").
				From(users).
				Join(posts).
				On(users.C("id"), posts.C("user_id")),
			wantQuery: `SELECT "u"."id", "p"."title" FROM "users" AS "u" JOIN "posts" AS "p" ON "u"."id" = "p"."user_id"`,
		},
		{
			input: Dialect(dialect.Postgres).Select(plainUsers.C("id")).
				From(plainUsers).
				LeftJoin(pets).
				On(plainUsers.C("id"), pets.C("owner_id")).
				Where(EQ(pets.C("name"), "pedro")),
			wantQuery: `SELECT "users"."id" FROM "users" LEFT JOIN "pets" ON "users"."id" = "pets"."owner_id" WHERE "pets"."name" = $1`,
			wantArgs:  []any{"pedro"},
		},
		{
			input: Dialect(dialect.Postgres).Select().
				From(plainUsers).
				Join(pets).
				OnP(And(ColumnsEQ(plainUsers.C("id"), pets.C("owner_id")), EQ(pets.C("name"), "pedro"))),
			wantQuery: `SELECT * FROM "users" JOIN "pets" ON ("users"."id" = "pets"."owner_id" AND "pets"."name" = $1)`,
			wantArgs:  []any{"pedro"},
		},
		{
			input: Dialect(dialect.SQLite).Select("role", Count("*")).
				From(Table("users")).
				GroupBy("role").
				Having(GT(Count("*"), 5)),
			wantQuery: `SELECT "role", COUNT(*) FROM "users" GROUP BY "role" HAVING COUNT(*) > ?`,
			wantArgs:  []any{5},
		},
		{
			input: Dialect(dialect.SQLite).Select().From(Table("users")).
				OrderBy(Desc("created_at"), Asc("name")).
				Limit(10).
				Offset(20),
			wantQuery: `SELECT * FROM "users" ORDER BY "created_at" DESC, "name" ASC LIMIT 10 OFFSET 20`,
		},
		{
			input:     Dialect(dialect.Postgres).Select().From(Table("users")).Where(EQ("id", 1)).ForUpdate(),
			wantQuery: `SELECT * FROM "users" WHERE "id" = $1 FOR UPDATE`,
			wantArgs:  []any{1},
		},
		{
			// Row-level locking is a no-op on SQLite.
			input:     Dialect(dialect.SQLite).Select().From(Table("users")).Where(EQ("id", 1)).ForUpdate(),
			wantQuery: `SELECT * FROM "users" WHERE "id" = ?`,
			wantArgs:  []any{1},
		},
		{
			input:     Dialect(dialect.SQLite).Insert("users").Columns("name", "age").Values("a8m", 30),
			wantQuery: `INSERT INTO "users" ("name", "age") VALUES (?, ?)`,
			wantArgs:  []any{"a8m", 30},
		},
		{
			input:     Dialect(dialect.SQLite).Insert("users").Columns("name", "age").Values("foo", 1).Values("bar", 2),
			wantQuery: `INSERT INTO "users" ("name", "age") VALUES (?, ?), (?, ?)`,
			wantArgs:  []any{"foo", 1, "bar", 2},
		},
		{
			input:     Dialect(dialect.Postgres).Insert("users").Columns("name").Values("a8m").Returning("id"),
			wantQuery: `INSERT INTO "users" ("name") VALUES ($1) RETURNING "id"`,
			wantArgs:  []any{"a8m"},
		},
		{
			// RETURNING is not supported on MySQL and is dropped.
			input:     Dialect(dialect.MySQL).Insert("users").Columns("name").Values("a8m").Returning("id"),
			wantQuery: "INSERT INTO `users` (`name`) VALUES (?)",
			wantArgs:  []any{"a8m"},
		},
		{
			input:     Dialect(dialect.MySQL).Insert("users").Default(),
			wantQuery: "INSERT INTO `users` () VALUES ()",
		},
		{
			input:     Dialect(dialect.SQLite).Insert("users").Default().Returning("id"),
			wantQuery: `INSERT INTO "users" DEFAULT VALUES RETURNING "id"`,
		},
		{
			input: Dialect(dialect.SQLite).Update("users").
				Set("name", "foo").
				SetNull("spouse_id").
				Where(EQ("id", 1)),
			wantQuery: `UPDATE "users" SET "name" = ?, "spouse_id" = NULL WHERE "id" = ?`,
			wantArgs:  []any{"foo", 1},
		},
		{
			input: Dialect(dialect.Postgres).Update("users").
				Set("name", "foo").
				Set("age", 30).
				Where(EQ("id", 1)),
			wantQuery: `UPDATE "users" SET "name" = $1, "age" = $2 WHERE "id" = $3`,
			wantArgs:  []any{"foo", 30, 1},
		},
		{
			input: Dialect(dialect.SQLite).Delete("users").
				Where(And(EQ("status", "draft"), LT("updated_at", 1609459200))),
			wantQuery: `DELETE FROM "users" WHERE ("status" = ? AND "updated_at" < ?)`,
			wantArgs:  []any{"draft", 1609459200},
		},
		{
			input: Dialect(dialect.SQLite).Update("users").
				Set("counter", Raw("counter + 1")).
				Where(EQ("id", 7)),
			wantQuery: `UPDATE "users" SET "counter" = counter + 1 WHERE "id" = ?`,
			wantArgs:  []any{7},
		},
	}
	for i, tt := range tests {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			query, args := tt.input.Query()
			require.Equal(t, tt.wantQuery, query)
			require.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestSelectorFieldPredicates(t *testing.T) {
	s := Select().From(Table("users"))
	FieldEQ("name", "a8m")(s)
	FieldGT("age", 18)(s)
	query, args := s.Query()
	require.Equal(t, `SELECT * FROM "users" WHERE ("users"."name" = ? AND "users"."age" > ?)`, query)
	require.Equal(t, []any{"a8m", 18}, args)

	s = Select().From(Table("users"))
	FieldContainsFold("name", "FoO")(s)
	query, args = s.Query()
	require.Equal(t, `SELECT * FROM "users" WHERE LOWER("users"."name") LIKE ?`, query)
	require.Equal(t, []any{"%foo%"}, args)

	s = Select().From(Table("users"))
	FieldEqualFold("name", "A8M")(s)
	query, args = s.Query()
	require.Equal(t, `SELECT * FROM "users" WHERE LOWER("users"."name") = ?`, query)
	require.Equal(t, []any{"a8m"}, args)

	s = Select().From(Table("users").As("u"))
	FieldIsNull("deleted_at")(s)
	query, args = s.Query()
	require.Equal(t, `SELECT * FROM "users" AS "u" WHERE "u"."deleted_at" IS NULL`, query)
	require.Empty(t, args)
}

func TestTypedFieldPredicates(t *testing.T) {
	type predicate = func(*Selector)
	var (
		name = StringField[predicate]("name")
		age  = IntField[predicate]("age")
	)
	require.Equal(t, "name", name.Name())

	s := Select().From(Table("users"))
	name.EQ("foo")(s)
	query, args := s.Query()
	require.Equal(t, `SELECT * FROM "users" WHERE "users"."name" = ?`, query)
	require.Equal(t, []any{"foo"}, args)

	s = Select().From(Table("users"))
	age.In(1, 2, 3)(s)
	query, args = s.Query()
	require.Equal(t, `SELECT * FROM "users" WHERE "users"."age" IN (?, ?, ?)`, query)
	require.Equal(t, []any{1, 2, 3}, args)

	s = Select().From(Table("users"))
	name.Contains("bar")(s)
	query, args = s.Query()
	require.Equal(t, `SELECT * FROM "users" WHERE "users"."name" LIKE ?`, query)
	require.Equal(t, []any{"%bar%"}, args)
}

func TestQueryReentrant(t *testing.T) {
	s := Dialect(dialect.Postgres).Select().From(Table("users")).Where(EQ("name", "a8m"))
	q1, a1 := s.Query()
	q2, a2 := s.Query()
	assert.Equal(t, q1, q2)
	assert.Equal(t, a1, a2)
	assert.Equal(t, `SELECT * FROM "users" WHERE "name" = $1`, q2)
	assert.Equal(t, []any{"a8m"}, a2)
}

func TestBuilderErr(t *testing.T) {
	b := &Builder{}
	require.NoError(t, b.Err())
	b.AddError(errors.New("invalid column"))
	b.AddError(errors.New("later failure"))
	require.EqualError(t, b.Err(), "invalid column")
}
