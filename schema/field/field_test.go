package field_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/tabula/schema/field"
)

func mustField(t *testing.T, b field.Builder) field.Field {
	t.Helper()
	f, err := field.New(b.Descriptor())
	require.NoError(t, err)
	return f
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		builder field.Builder
		wantErr string
	}{
		{
			name:    "valid text",
			builder: field.Text("name").MaxLen(64),
		},
		{
			name:    "invalid name",
			builder: field.Text("9name"),
			wantErr: `invalid field name`,
		},
		{
			name:    "min above max length",
			builder: field.Text("name").MinLen(10).MaxLen(5),
			wantErr: "min length 10 exceeds max length 5",
		},
		{
			name:    "number min above max",
			builder: field.Number("score").Range(10, 1),
			wantErr: "min 10 exceeds max 1",
		},
		{
			name:    "enum without values",
			builder: field.Enum("status"),
			wantErr: "enum requires at least one value",
		},
		{
			name:    "enum duplicate value",
			builder: field.Enum("status").Values("on", "on"),
			wantErr: `duplicate enum value "on"`,
		},
		{
			name:    "enum default outside values",
			builder: field.Enum("status").Values("on", "off").Default("paused"),
			wantErr: `default "paused" is not an enum value`,
		},
		{
			name:    "relation without target",
			builder: field.Relation("author", ""),
			wantErr: "relation requires a target entity",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := field.New(tt.builder.Descriptor())
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.builder.Descriptor().Name, f.Name())
		})
	}
}

func TestFillableDefaults(t *testing.T) {
	f := mustField(t, field.Text("name"))
	assert.True(t, f.Fillable(field.ContextCreate))
	assert.True(t, f.Fillable(field.ContextUpdate))
	assert.True(t, f.Fillable(field.ContextForm))
	assert.False(t, f.Fillable(field.ContextRead))
	assert.False(t, f.Fillable(field.ContextTable))

	f = mustField(t, field.Text("slug").Fillable(field.ContextCreate))
	assert.True(t, f.Fillable(field.ContextCreate))
	assert.False(t, f.Fillable(field.ContextUpdate))

	// An explicit empty context list locks the field against client input.
	f = mustField(t, field.Date("created_at").DefaultNow().Fillable())
	assert.False(t, f.Fillable(field.ContextCreate))
	assert.False(t, f.Fillable(field.ContextForm))
}

func TestHidden(t *testing.T) {
	f := mustField(t, field.Text("password").Hidden(field.ContextRead, field.ContextTable))
	assert.True(t, f.Hidden(field.ContextRead))
	assert.True(t, f.Hidden(field.ContextTable))
	assert.False(t, f.Hidden(field.ContextForm))

	f.SetHidden(field.ContextForm, true)
	assert.True(t, f.Hidden(field.ContextForm))
	f.SetHidden(field.ContextForm, false)
	assert.False(t, f.Hidden(field.ContextForm))
}

func TestTextTransform(t *testing.T) {
	ctx := context.Background()
	f := mustField(t, field.Text("name").MinLen(2).MaxLen(5))

	v, err := f.TransformPersist(ctx, "abc", nil)
	require.NoError(t, err)
	assert.Equal(t, "abc", v)

	_, err = f.TransformPersist(ctx, "a", nil)
	assert.ErrorContains(t, err, "shorter than the minimum length 2")

	_, err = f.TransformPersist(ctx, "abcdef", nil)
	assert.ErrorContains(t, err, "exceeds the maximum length 5")

	_, err = f.TransformPersist(ctx, 42, &field.PersistOptions{Entity: "users"})
	assert.ErrorContains(t, err, "field users.name: expected a string")

	v, err = f.TransformRetrieve([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, "abc", v)
}

func TestNumberTransform(t *testing.T) {
	ctx := context.Background()
	f := mustField(t, field.Int("age").Range(0, 150))

	v, err := f.TransformPersist(ctx, 30, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(30), v)

	_, err = f.TransformPersist(ctx, 30.5, nil)
	assert.ErrorContains(t, err, "expected an integer")

	_, err = f.TransformPersist(ctx, -1, nil)
	assert.ErrorContains(t, err, "below the minimum")

	_, err = f.TransformPersist(ctx, 200, nil)
	assert.ErrorContains(t, err, "above the maximum")

	v, err = f.TransformRetrieve(float64(30))
	require.NoError(t, err)
	assert.Equal(t, int64(30), v)
}

func TestBoolTransform(t *testing.T) {
	f := mustField(t, field.Bool("active"))

	// SQLite hands booleans back as integers.
	v, err := f.TransformRetrieve(int64(1))
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = f.TransformRetrieve(int64(0))
	require.NoError(t, err)
	assert.Equal(t, false, v)

	_, err = f.TransformPersist(context.Background(), "yes", nil)
	assert.ErrorContains(t, err, "expected a boolean")
}

func TestDateTransform(t *testing.T) {
	ctx := context.Background()
	f := mustField(t, field.Date("published_at"))

	v, err := f.TransformPersist(ctx, "2024-05-01", nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), v)

	_, err = f.TransformPersist(ctx, "yesterday", nil)
	assert.ErrorContains(t, err, `cannot parse "yesterday" as a date`)

	v, err = f.TransformRetrieve("2024-05-01 10:30:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC), v)
}

func TestEnumTransform(t *testing.T) {
	ctx := context.Background()
	f := mustField(t, field.Enum("status").Values("draft", "published"))

	v, err := f.TransformPersist(ctx, "draft", nil)
	require.NoError(t, err)
	assert.Equal(t, "draft", v)

	_, err = f.TransformPersist(ctx, "archived", nil)
	assert.ErrorContains(t, err, `value "archived" is not one of`)
}

func TestJSONTransform(t *testing.T) {
	ctx := context.Background()
	f := mustField(t, field.JSON("meta"))

	v, err := f.TransformPersist(ctx, map[string]any{"a": 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, v)

	v, err = f.TransformRetrieve(`{"a":1}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": float64(1)}, v)

	_, err = f.TransformRetrieve("{broken")
	assert.ErrorContains(t, err, "invalid stored json")
}

func TestVirtualTransform(t *testing.T) {
	f := mustField(t, field.Virtual("full_name"))
	_, err := f.TransformPersist(context.Background(), "x", nil)
	assert.ErrorContains(t, err, "virtual fields cannot be persisted")

	v, err := f.TransformRetrieve("computed")
	require.NoError(t, err)
	assert.Equal(t, "computed", v)
}

func TestRetrieveDefault(t *testing.T) {
	f := mustField(t, field.Text("status").Default("active"))
	v, err := f.TransformRetrieve(nil)
	require.NoError(t, err)
	assert.Equal(t, "active", v)

	f = mustField(t, field.Text("status"))
	v, err = f.TransformRetrieve(nil)
	require.NoError(t, err)
	assert.Nil(t, v)

	f = mustField(t, field.Date("created_at").DefaultNow())
	assert.True(t, f.HasDefault())
	d, ok := f.Default().(time.Time)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().UTC(), d, time.Minute)
}

func TestSchemaDescriptor(t *testing.T) {
	f := mustField(t, field.Text("bio").Nullable())
	s := f.Schema()
	assert.Equal(t, field.TypeText, s.Type)
	assert.Equal(t, "bio", s.Name)
	assert.True(t, s.Nullable)
	assert.False(t, s.Primary)
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, field.TypeEnum, field.TypeOf("enum"))
	assert.Equal(t, field.TypeInvalid, field.TypeOf("varchar"))
	assert.Equal(t, "relation", field.TypeRelation.String())
	assert.False(t, field.TypeInvalid.Valid())
}
