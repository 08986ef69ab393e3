package tabula_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/tabula"
	"github.com/syssam/tabula/dialect/sql/schema"
	"github.com/syssam/tabula/dialect/sqlschema"
	"github.com/syssam/tabula/schema/field"
	"github.com/syssam/tabula/schema/index"
	"github.com/syssam/tabula/schema/relation"
)

func tableByName(t *testing.T, tables []*schema.Table, name string) *schema.Table {
	t.Helper()
	for _, tbl := range tables {
		if tbl.Name == name {
			return tbl
		}
	}
	t.Fatalf("table %q not rendered", name)
	return nil
}

func TestTables(t *testing.T) {
	m, _ := newTestManager(t)
	tables, err := m.Tables()
	require.NoError(t, err)
	require.Len(t, tables, 2)

	users := tableByName(t, tables, "users")
	id, ok := users.Column("id")
	require.True(t, ok)
	assert.Equal(t, schema.TypeInt, id.Type)
	assert.True(t, id.Increment)
	assert.True(t, id.PrimaryKey())

	name, ok := users.Column("name")
	require.True(t, ok)
	assert.Equal(t, schema.TypeString, name.Type)
	assert.EqualValues(t, 120, name.Size)

	age, ok := users.Column("age")
	require.True(t, ok)
	assert.Equal(t, schema.TypeInt, age.Type)
	assert.True(t, age.Nullable)
}

func TestTablesForeignKey(t *testing.T) {
	m, _ := newTestManager(t)
	tables, err := m.Tables()
	require.NoError(t, err)

	posts := tableByName(t, tables, "posts")
	author, ok := posts.Column("author")
	require.True(t, ok)
	// The FK column takes the key type of the target's primary key.
	assert.Equal(t, schema.TypeInt, author.Type)

	require.Len(t, posts.ForeignKeys, 1)
	fk := posts.ForeignKeys[0]
	assert.Equal(t, "fk_posts_author", fk.Symbol)
	assert.Equal(t, "users", fk.RefTable.Name)
	// A nullable FK column detaches on delete instead of blocking it.
	assert.Equal(t, schema.SetNull, fk.OnDelete)
}

func TestTablesIndexes(t *testing.T) {
	m, _ := newTestManager(t)
	require.NoError(t, m.AddIndex("users", index.Fields("name").Unique().Descriptor(), false))
	tables, err := m.Tables()
	require.NoError(t, err)

	users := tableByName(t, tables, "users")
	idx, ok := users.Index("idx_users_name")
	require.True(t, ok)
	assert.True(t, idx.Unique)
	require.Len(t, idx.Columns, 1)
	assert.Equal(t, "name", idx.Columns[0].Name)
}

func TestTablesManyToMany(t *testing.T) {
	m, _ := newTestManager(t)
	tags, err := tabula.NewEntity("tags", tabula.EntityRegular, tabula.EntityConfig{},
		mustField(t, field.Primary("id")),
		mustField(t, field.Text("label")),
	)
	require.NoError(t, err)
	require.NoError(t, m.AddEntity(tags))
	rel, err := relation.New("posts", "tags", "tags", relation.ManyToMany)
	require.NoError(t, err)
	require.NoError(t, m.AddRelation(rel))

	tables, err := m.Tables()
	require.NoError(t, err)
	join := tableByName(t, tables, "posts_tags")
	require.Len(t, join.PrimaryKey, 2)
	assert.Equal(t, "post_id", join.PrimaryKey[0].Name)
	assert.Equal(t, "tag_id", join.PrimaryKey[1].Name)
	require.Len(t, join.ForeignKeys, 2)
	for _, fk := range join.ForeignKeys {
		assert.Equal(t, schema.Cascade, fk.OnDelete)
	}
}

func TestTablesUUIDKey(t *testing.T) {
	m := emptyManager(t)
	sessions, err := tabula.NewEntity("sessions", tabula.EntityRegular, tabula.EntityConfig{},
		mustField(t, field.Primary("id").Format(field.FormatUUID)),
		mustField(t, field.Relation("owner", "sessions").Nullable()),
	)
	require.NoError(t, err)
	require.NoError(t, m.AddEntity(sessions))

	tables, err := m.Tables()
	require.NoError(t, err)
	tbl := tableByName(t, tables, "sessions")
	id, ok := tbl.Column("id")
	require.True(t, ok)
	assert.Equal(t, schema.TypeUUID, id.Type)
	assert.False(t, id.Increment)
	// Self-referencing FK follows the UUID key type.
	owner, ok := tbl.Column("owner")
	require.True(t, ok)
	assert.Equal(t, schema.TypeUUID, owner.Type)
}

func TestTablesAnnotations(t *testing.T) {
	m := emptyManager(t)
	items, err := tabula.NewEntity("items", tabula.EntityRegular, tabula.EntityConfig{},
		mustField(t, field.Primary("id")),
		mustField(t, field.Number("stock").Int().Annotations(sqlschema.Check("stock >= 0"))),
		mustField(t, field.Text("code").Annotations(sqlschema.Size(10))),
		mustField(t, field.Text("body").Annotations(sqlschema.ColumnType("mediumtext"))),
		mustField(t, field.Text("internal").Annotations(sqlschema.Skip())),
	)
	require.NoError(t, err)
	require.NoError(t, m.AddEntity(items))

	tables, err := m.Tables()
	require.NoError(t, err)
	tbl := tableByName(t, tables, "items")

	stock, ok := tbl.Column("stock")
	require.True(t, ok)
	assert.Equal(t, "stock >= 0", stock.Check)

	code, ok := tbl.Column("code")
	require.True(t, ok)
	assert.Equal(t, schema.TypeString, code.Type)
	assert.EqualValues(t, 10, code.Size)

	body, ok := tbl.Column("body")
	require.True(t, ok)
	assert.Equal(t, "mediumtext", body.SchemaType[""])

	_, ok = tbl.Column("internal")
	assert.False(t, ok, "skipped field should not render a column")
}

func TestTablesRelationCascadeAnnotation(t *testing.T) {
	m := emptyManager(t)
	require.NoError(t, m.AddEntity(usersEntity(t)))
	comments, err := tabula.NewEntity("comments", tabula.EntityRegular, tabula.EntityConfig{},
		mustField(t, field.Primary("id")),
		mustField(t, field.Relation("user", "users").Annotations(sqlschema.OnDelete(sqlschema.Cascade))),
	)
	require.NoError(t, err)
	require.NoError(t, m.AddEntity(comments))

	tables, err := m.Tables()
	require.NoError(t, err)
	tbl := tableByName(t, tables, "comments")
	require.Len(t, tbl.ForeignKeys, 1)
	assert.Equal(t, schema.Cascade, tbl.ForeignKeys[0].OnDelete)
}

func TestTablesUnknownRelationTarget(t *testing.T) {
	m := emptyManager(t)
	orphan, err := tabula.NewEntity("orphans", tabula.EntityRegular, tabula.EntityConfig{},
		mustField(t, field.Primary("id")),
		mustField(t, field.Relation("parent", "ghosts")),
	)
	require.NoError(t, err)
	require.NoError(t, m.AddEntity(orphan))

	_, err = m.Tables()
	require.Error(t, err)
	assert.True(t, tabula.IsConfigurationError(err))
}
