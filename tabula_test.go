package tabula_test

import (
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/tabula"
	"github.com/syssam/tabula/dialect"
	"github.com/syssam/tabula/dialect/sql"
	"github.com/syssam/tabula/schema/field"
	"github.com/syssam/tabula/schema/relation"
)

func mustField(t *testing.T, b field.Builder) field.Field {
	t.Helper()
	f, err := field.New(b.Descriptor())
	require.NoError(t, err)
	return f
}

// usersEntity has an integer primary key, a required name, a nullable
// age and a field hidden from reads.
func usersEntity(t *testing.T) *tabula.Entity {
	t.Helper()
	e, err := tabula.NewEntity("users", tabula.EntityRegular, tabula.EntityConfig{DisplayField: "name"},
		mustField(t, field.Primary("id")),
		mustField(t, field.Text("name").MaxLen(120).Required()),
		mustField(t, field.Number("age").Int().Nullable()),
		mustField(t, field.Text("secret").Hidden(field.ContextRead)),
	)
	require.NoError(t, err)
	return e
}

func postsEntity(t *testing.T) *tabula.Entity {
	t.Helper()
	e, err := tabula.NewEntity("posts", tabula.EntityRegular, tabula.EntityConfig{},
		mustField(t, field.Primary("id")),
		mustField(t, field.Text("title").Required()),
		mustField(t, field.Relation("author", "users").Nullable()),
	)
	require.NoError(t, err)
	return e
}

// newTestManager builds a manager over a sqlmock-backed sqlite driver
// with the users/posts graph registered.
func newTestManager(t *testing.T, opts ...tabula.ManagerOption) (*tabula.EntityManager, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	m := tabula.NewEntityManager(sql.OpenDB(dialect.SQLite, db), opts...)
	require.NoError(t, m.AddEntity(usersEntity(t)))
	require.NoError(t, m.AddEntity(postsEntity(t)))
	rel, err := relation.New("posts", "users", "author", relation.ManyToOne)
	require.NoError(t, err)
	require.NoError(t, m.AddRelation(rel))
	return m, mock
}

func TestOpString(t *testing.T) {
	tests := []struct {
		op   tabula.Op
		want string
	}{
		{tabula.OpCreate, "OpCreate"},
		{tabula.OpUpdateOne, "OpUpdateOne"},
		{tabula.OpCreate | tabula.OpDelete, "OpCreate|OpDelete"},
		{tabula.Op(0), "OpUnknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.op.String())
	}
}

func TestOpIs(t *testing.T) {
	assert.True(t, tabula.OpCreate.Is(tabula.OpCreate))
	assert.False(t, tabula.OpCreate.Is(tabula.OpDelete))
	assert.True(t, (tabula.OpUpdate | tabula.OpUpdateOne).Is(tabula.OpUpdateOne))
}

func TestEntityDataClone(t *testing.T) {
	orig := tabula.EntityData{"a": 1, "b": "x"}
	clone := orig.Clone()
	clone["a"] = 2
	assert.Equal(t, 1, orig["a"])
	assert.Nil(t, tabula.EntityData(nil).Clone())
}

func TestTableName(t *testing.T) {
	assert.Equal(t, "users", tabula.TableName("users"))
	assert.Equal(t, "users", tabula.TableName("user"))
	assert.Equal(t, "blog_posts", tabula.TableName("BlogPost"))
}
