package idgen_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/tabula/idgen"
)

func staticHandler(id string, v any) idgen.Handler {
	return idgen.Handler{
		ID:   id,
		Name: id,
		Generate: func(context.Context, string, map[string]any) (any, error) {
			return v, nil
		},
	}
}

func TestRegistry_Register(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		r := idgen.NewRegistry()
		require.NoError(t, r.Register(staticHandler("h1", "value")))
		h, ok := r.Lookup("h1")
		require.True(t, ok)
		assert.Equal(t, "h1", h.ID)
	})

	t.Run("Duplicate", func(t *testing.T) {
		r := idgen.NewRegistry()
		require.NoError(t, r.Register(staticHandler("h1", "value")))
		err := r.Register(staticHandler("h1", "other"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already registered")
	})

	t.Run("MissingID", func(t *testing.T) {
		r := idgen.NewRegistry()
		err := r.Register(staticHandler("", "value"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "id is required")
	})

	t.Run("MissingName", func(t *testing.T) {
		r := idgen.NewRegistry()
		h := staticHandler("h1", "value")
		h.Name = ""
		err := r.Register(h)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "name is required")
	})

	t.Run("MissingGenerate", func(t *testing.T) {
		r := idgen.NewRegistry()
		err := r.Register(idgen.Handler{ID: "h1", Name: "h1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "generate function is required")
	})
}

func TestRegistry_ListUnregisterClear(t *testing.T) {
	r := idgen.NewRegistry()
	require.NoError(t, r.Register(staticHandler("b", 1)))
	require.NoError(t, r.Register(staticHandler("a", 2)))
	require.NoError(t, r.Register(staticHandler("c", 3)))

	list := r.List()
	require.Len(t, list, 3)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "b", list[1].ID)
	assert.Equal(t, "c", list[2].ID)

	assert.True(t, r.Unregister("b"))
	assert.False(t, r.Unregister("b"))
	assert.Len(t, r.List(), 2)

	r.Clear()
	assert.Empty(t, r.List())
}

func TestRegistry_ValidateConfig(t *testing.T) {
	r := idgen.NewRegistry()
	require.NoError(t, r.Register(staticHandler("plain", "v")))
	checked := staticHandler("checked", "v")
	checked.Validate = func(config map[string]any) error {
		if _, ok := config["prefix"]; !ok {
			return errors.New("prefix is required")
		}
		return nil
	}
	require.NoError(t, r.Register(checked))

	assert.NoError(t, r.ValidateConfig("plain", nil))
	assert.NoError(t, r.ValidateConfig("checked", map[string]any{"prefix": "x"}))
	assert.EqualError(t, r.ValidateConfig("checked", map[string]any{}), "prefix is required")

	err := r.ValidateConfig("ghost", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

// Validators see the raw option map, so handlers that take typed options
// are expected to check both presence and type.
func TestRegistry_ValidateConfigOptionTypes(t *testing.T) {
	r := idgen.NewRegistry()
	h := staticHandler("prefixed", "v")
	h.Validate = func(config map[string]any) error {
		if v, ok := config["prefix"]; ok {
			if _, ok := v.(string); !ok {
				return fmt.Errorf("prefix must be a string, got %T", v)
			}
		}
		if v, ok := config["uppercase"]; ok {
			if _, ok := v.(bool); !ok {
				return fmt.Errorf("uppercase must be a boolean, got %T", v)
			}
		}
		return nil
	}
	require.NoError(t, r.Register(h))

	tests := []struct {
		name    string
		config  map[string]any
		wantErr string
	}{
		{name: "AllValid", config: map[string]any{"prefix": "inv-", "uppercase": true}},
		{name: "OptionsAbsent", config: map[string]any{}},
		{name: "PrefixWrongType", config: map[string]any{"prefix": 7}, wantErr: "prefix must be a string"},
		{name: "UppercaseWrongType", config: map[string]any{"uppercase": "yes"}, wantErr: "uppercase must be a boolean"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.ValidateConfig("prefixed", tt.config)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRegistry_Execute(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r := idgen.NewRegistry()
		require.NoError(t, r.Register(staticHandler("h", "id-123")))
		res := r.Execute(context.Background(), "h", "user", nil)
		assert.True(t, res.Success)
		assert.Equal(t, "id-123", res.Value)
		assert.NoError(t, res.Err)
		assert.False(t, res.FallbackUsed)
		assert.Empty(t, res.Warning)
	})

	t.Run("NotFound", func(t *testing.T) {
		r := idgen.NewRegistry()
		res := r.Execute(context.Background(), "ghost", "user", nil)
		assert.False(t, res.Success)
		require.Error(t, res.Err)
		assert.Contains(t, res.Err.Error(), "not found")
	})

	t.Run("HandlerError", func(t *testing.T) {
		r := idgen.NewRegistry()
		require.NoError(t, r.Register(idgen.Handler{
			ID:   "failing",
			Name: "failing",
			Generate: func(context.Context, string, map[string]any) (any, error) {
				return nil, errors.New("boom")
			},
		}))
		res := r.Execute(context.Background(), "failing", "user", nil)
		assert.False(t, res.Success)
		require.Error(t, res.Err)
		assert.Contains(t, res.Err.Error(), "boom")
	})

	t.Run("InvalidValueType", func(t *testing.T) {
		r := idgen.NewRegistry()
		require.NoError(t, r.Register(staticHandler("weird", struct{}{})))
		res := r.Execute(context.Background(), "weird", "user", nil)
		assert.False(t, res.Success)
		require.Error(t, res.Err)
		assert.Contains(t, res.Err.Error(), "invalid type")
	})

	t.Run("EmptyString", func(t *testing.T) {
		r := idgen.NewRegistry()
		require.NoError(t, r.Register(staticHandler("empty", "")))
		res := r.Execute(context.Background(), "empty", "user", nil)
		assert.False(t, res.Success)
	})

	t.Run("HandlerPanic", func(t *testing.T) {
		r := idgen.NewRegistry()
		require.NoError(t, r.Register(idgen.Handler{
			ID:   "panicking",
			Name: "panicking",
			Generate: func(context.Context, string, map[string]any) (any, error) {
				panic("handler exploded")
			},
		}))
		res := r.Execute(context.Background(), "panicking", "user", nil)
		assert.False(t, res.Success)
		require.Error(t, res.Err)
		assert.Contains(t, res.Err.Error(), "panic")
	})

	t.Run("SlowWarning", func(t *testing.T) {
		r := idgen.NewRegistry(idgen.WithSlowThreshold(time.Millisecond))
		require.NoError(t, r.Register(idgen.Handler{
			ID:   "slow",
			Name: "slow",
			Generate: func(context.Context, string, map[string]any) (any, error) {
				time.Sleep(5 * time.Millisecond)
				return "v", nil
			},
		}))
		res := r.Execute(context.Background(), "slow", "user", nil)
		assert.True(t, res.Success, "slow execution still succeeds")
		assert.NotEmpty(t, res.Warning)
		assert.GreaterOrEqual(t, res.ExecutionTime, 5*time.Millisecond)
	})

	t.Run("Timeout", func(t *testing.T) {
		r := idgen.NewRegistry(idgen.WithTimeout(10 * time.Millisecond))
		require.NoError(t, r.Register(idgen.Handler{
			ID:   "hanging",
			Name: "hanging",
			Generate: func(ctx context.Context, _ string, _ map[string]any) (any, error) {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(time.Second):
					return "late", nil
				}
			},
		}))
		res := r.Execute(context.Background(), "hanging", "user", nil)
		assert.False(t, res.Success)
		require.Error(t, res.Err)
		assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	})
}

func TestRegistry_ExecuteWithFallback(t *testing.T) {
	assertUUIDv7 := func(t *testing.T, v any) {
		t.Helper()
		s, ok := v.(string)
		require.True(t, ok, "fallback value should be a string, got %T", v)
		id, err := uuid.Parse(s)
		require.NoError(t, err)
		assert.EqualValues(t, 7, id.Version())
	}

	t.Run("HandlerThrows", func(t *testing.T) {
		r := idgen.NewRegistry()
		require.NoError(t, r.Register(idgen.Handler{
			ID:   "h",
			Name: "h",
			Generate: func(context.Context, string, map[string]any) (any, error) {
				return nil, errors.New("boom")
			},
		}))
		res := r.ExecuteWithFallback(context.Background(), "h", "entity", nil)
		assert.True(t, res.Success)
		assert.True(t, res.FallbackUsed)
		require.Error(t, res.Err)
		assertUUIDv7(t, res.Value)
	})

	t.Run("InvalidReturnValue", func(t *testing.T) {
		r := idgen.NewRegistry()
		require.NoError(t, r.Register(staticHandler("h", []byte("nope"))))
		res := r.ExecuteWithFallback(context.Background(), "h", "entity", nil)
		assert.True(t, res.Success)
		assert.True(t, res.FallbackUsed)
		assertUUIDv7(t, res.Value)
	})

	t.Run("HandlerSucceeds", func(t *testing.T) {
		r := idgen.NewRegistry()
		require.NoError(t, r.Register(staticHandler("h", "real-id")))
		res := r.ExecuteWithFallback(context.Background(), "h", "entity", nil)
		assert.True(t, res.Success)
		assert.False(t, res.FallbackUsed)
		assert.Equal(t, "real-id", res.Value)
	})

	t.Run("MissingHandler", func(t *testing.T) {
		r := idgen.NewRegistry()
		res := r.ExecuteWithFallback(context.Background(), "ghost", "entity", nil)
		assert.True(t, res.Success)
		assert.True(t, res.FallbackUsed)
		assertUUIDv7(t, res.Value)
	})
}

func TestValidateValue(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		wantErr bool
	}{
		{name: "string", value: "abc"},
		{name: "empty string", value: "", wantErr: true},
		{name: "int", value: 42},
		{name: "int64", value: int64(42)},
		{name: "uint", value: uint(42)},
		{name: "float64", value: 3.14},
		{name: "nan", value: math.NaN(), wantErr: true},
		{name: "inf", value: math.Inf(1), wantErr: true},
		{name: "bool", value: true, wantErr: true},
		{name: "nil", value: nil, wantErr: true},
		{name: "bytes", value: []byte("x"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := idgen.ValidateValue(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewUUID(t *testing.T) {
	v1 := idgen.NewUUID()
	v2 := idgen.NewUUID()
	assert.NotEqual(t, v1, v2)
	id, err := uuid.Parse(v1)
	require.NoError(t, err)
	assert.EqualValues(t, 7, id.Version())
}
