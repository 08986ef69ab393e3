package load_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/tabula"
	"github.com/syssam/tabula/dialect"
	"github.com/syssam/tabula/dialect/sql"
	"github.com/syssam/tabula/schema/load"
)

const usersYAML = `
name: users
type: regular
displayField: name
description: Registered accounts
mixins: [time]
fields:
  - name: id
    type: primary
  - name: name
    type: text
    size: 120
    required: true
  - name: age
    type: number
    integer: true
    nullable: true
    min: 0
indexes:
  - fields: [name]
    unique: true
`

const postsYAML = `
name: posts
fields:
  - name: id
    type: primary
  - name: title
    type: text
    required: true
  - name: author
    type: relation
    target: users
    nullable: true
relations:
  - target: users
    reference: author
    type: many-to-one
`

func writeFS(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fsys, name, []byte(content), 0o644))
	}
	return fsys
}

func TestUnmarshalSchema(t *testing.T) {
	s, err := load.UnmarshalSchema([]byte(usersYAML))
	require.NoError(t, err)
	assert.Equal(t, "users", s.Name)
	assert.Equal(t, "Users", s.Label)
	assert.Equal(t, "name", s.DisplayField)
	require.Len(t, s.Fields, 3)
	assert.Equal(t, "Age", s.Fields[2].Label)
}

func TestUnmarshalSchemaNormalizesNames(t *testing.T) {
	s, err := load.UnmarshalSchema([]byte(`
name: blogPosts
fields:
  - name: id
    type: primary
  - name: publishedAt
    type: date
    nullable: true
`))
	require.NoError(t, err)
	assert.Equal(t, "blog_posts", s.Name)
	assert.Equal(t, "published_at", s.Fields[1].Name)
	assert.Equal(t, "Published At", s.Fields[1].Label)
}

func TestUnmarshalSchemaErrors(t *testing.T) {
	_, err := load.UnmarshalSchema([]byte("fields: [}"))
	require.Error(t, err)
	assert.True(t, tabula.IsConfigurationError(err))

	_, err = load.UnmarshalSchema([]byte("description: no name"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
}

func TestMarshalRoundTrip(t *testing.T) {
	s, err := load.UnmarshalSchema([]byte(usersYAML))
	require.NoError(t, err)
	data, err := load.MarshalSchema(s)
	require.NoError(t, err)
	back, err := load.UnmarshalSchema(data)
	require.NoError(t, err)
	assert.Equal(t, s, back)
}

func TestConstructEntity(t *testing.T) {
	s, err := load.UnmarshalSchema([]byte(usersYAML))
	require.NoError(t, err)
	e, err := load.ConstructEntity(s)
	require.NoError(t, err)

	assert.Equal(t, "users", e.Name())
	assert.Equal(t, tabula.EntityRegular, e.Type())
	assert.Equal(t, "name", e.Config().DisplayField)
	require.NotNil(t, e.Primary())

	// Mixin fields precede the declared ones.
	names := make([]string, 0, 5)
	for _, f := range e.Fields() {
		names = append(names, f.Name())
	}
	assert.Equal(t, []string{"created_at", "updated_at", "id", "name", "age"}, names)
}

func TestConstructEntityUnknownMixin(t *testing.T) {
	s := &load.Schema{Name: "users", Mixins: []string{"nope"},
		Fields: []*load.Field{{Name: "id", Type: "primary"}}}
	_, err := load.ConstructEntity(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown mixin "nope"`)
}

func TestConstructFieldDefaults(t *testing.T) {
	f, err := load.ConstructField("users", &load.Field{
		Name: "score", Type: "number", Integer: true, Default: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), f.Default())

	f, err = load.ConstructField("users", &load.Field{
		Name: "ratio", Type: "number", Default: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, float64(2), f.Default())

	f, err = load.ConstructField("users", &load.Field{
		Name: "joined", Type: "date", Default: "now",
	})
	require.NoError(t, err)
	_, ok := f.Default().(time.Time)
	assert.True(t, ok)

	f, err = load.ConstructField("users", &load.Field{
		Name: "since", Type: "date", Default: "2024-05-01T00:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), f.Default())
}

func TestConstructFieldErrors(t *testing.T) {
	_, err := load.ConstructField("users", &load.Field{Name: "x", Type: "decimal"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown field type "decimal"`)

	_, err = load.ConstructField("users", &load.Field{Name: "x", Type: "text", Fillable: []string{"never"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown context "never"`)

	_, err = load.ConstructField("users", &load.Field{Name: "joined", Type: "date", Default: 7})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a date string")
}

func TestConstructFieldHandler(t *testing.T) {
	f, err := load.ConstructField("users", &load.Field{
		Name: "id", Type: "primary", Format: "custom",
		Handler: &load.Handler{Kind: "registry", ID: "sequence"},
	})
	require.NoError(t, err)
	assert.Equal(t, "id", f.Name())

	_, err = load.ConstructField("users", &load.Field{
		Name: "id", Type: "primary", Format: "custom",
		Handler: &load.Handler{Kind: "function"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be declared in config")
}

func TestConstructRelation(t *testing.T) {
	r, err := load.ConstructRelation("posts", &load.Relation{
		Target: "users", Reference: "author", Type: "many-to-one",
	})
	require.NoError(t, err)
	assert.Equal(t, "posts", r.Source())
	assert.Equal(t, "author", r.Reference())

	// Reference defaults to the target name.
	r, err = load.ConstructRelation("users", &load.Relation{Target: "posts", Type: "one-to-many"})
	require.NoError(t, err)
	assert.Equal(t, "posts", r.Reference())

	_, err = load.ConstructRelation("posts", &load.Relation{Target: "users", Type: "sideways"})
	require.Error(t, err)
}

func TestConstructIndex(t *testing.T) {
	desc, err := load.ConstructIndex(&load.Index{Fields: []string{"name"}, Unique: true})
	require.NoError(t, err)
	assert.True(t, desc.Unique)

	_, err = load.ConstructIndex(&load.Index{})
	require.Error(t, err)
}

func TestLoadDir(t *testing.T) {
	fsys := writeFS(t, map[string]string{
		"schemas/users.yaml": usersYAML,
		"schemas/posts.yml":  postsYAML,
		"schemas/README.md":  "not a schema",
	})
	schemas, err := load.LoadDir(fsys, "schemas")
	require.NoError(t, err)
	require.Len(t, schemas, 2)
	// Lexical filename order.
	assert.Equal(t, "posts", schemas[0].Name)
	assert.Equal(t, "users", schemas[1].Name)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := load.Load(afero.NewMemMapFs(), "absent.yaml")
	require.Error(t, err)
	assert.True(t, tabula.IsConfigurationError(err))
}

func TestApply(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	m := tabula.NewEntityManager(sql.OpenDB(dialect.SQLite, db))

	fsys := writeFS(t, map[string]string{
		"schemas/users.yaml": usersYAML,
		"schemas/posts.yaml": postsYAML,
	})
	schemas, err := load.LoadDir(fsys, "schemas")
	require.NoError(t, err)
	require.NoError(t, load.Apply(m, schemas...))

	users, err := m.Entity("users")
	require.NoError(t, err)
	_, ok := users.Field("created_at")
	assert.True(t, ok, "mixin field should be present")

	rel, ok := m.Relation("posts", "author")
	require.True(t, ok)
	assert.Equal(t, "users", rel.Target())

	idxs := m.Indexes("users")
	require.Len(t, idxs, 1)
	assert.Equal(t, "idx_users_name", idxs[0].Name())
	assert.True(t, idxs[0].Unique())
}

func TestRegisterMixin(t *testing.T) {
	require.Error(t, load.RegisterMixin("", nil))
	require.Error(t, load.RegisterMixin("time", nil))

	_, ok := load.LookupMixin("tenant_id")
	assert.True(t, ok)
	assert.Contains(t, load.Mixins(), "soft_delete")
}

func TestDisplayLabel(t *testing.T) {
	assert.Equal(t, "First Name", load.DisplayLabel("first_name"))
	assert.Equal(t, "Created At", load.DisplayLabel("createdAt"))
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "users.yaml"), []byte(usersYAML), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reloaded := make(chan []*load.Schema, 1)
	done := make(chan error, 1)
	go func() {
		done <- load.Watch(ctx, dir, func(schemas []*load.Schema) error {
			select {
			case reloaded <- schemas:
			default:
			}
			return nil
		})
	}()

	// Give the watcher a moment to register before writing.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "posts.yaml"), []byte(postsYAML), 0o644))

	select {
	case schemas := <-reloaded:
		assert.Len(t, schemas, 2)
	case <-ctx.Done():
		t.Fatal("watcher did not observe the change")
	}
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
