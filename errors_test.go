package tabula_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/tabula"
)

func TestNotFoundError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := tabula.NewNotFoundError("User")
		assert.Equal(t, "tabula: User not found", err.Error())
	})

	t.Run("ErrorWithID", func(t *testing.T) {
		err := tabula.NewNotFoundErrorWithID("User", 42)
		assert.Equal(t, "tabula: User not found (id=42)", err.Error())
	})

	t.Run("Is", func(t *testing.T) {
		err := tabula.NewNotFoundError("Post")
		assert.True(t, errors.Is(err, tabula.ErrNotFound))
	})

	t.Run("IsNotFound", func(t *testing.T) {
		err := tabula.NewNotFoundError("Comment")
		assert.True(t, tabula.IsNotFound(err))

		// Wrapped error
		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, tabula.IsNotFound(wrapped))

		// Sentinel error
		assert.True(t, tabula.IsNotFound(tabula.ErrNotFound))

		// Non-matching error
		assert.False(t, tabula.IsNotFound(errors.New("other error")))
		assert.False(t, tabula.IsNotFound(nil))
	})
}

func TestNotSingularError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := tabula.NewNotSingularError("User")
		assert.Equal(t, "tabula: User not singular", err.Error())
	})

	t.Run("Is", func(t *testing.T) {
		err := tabula.NewNotSingularError("Post")
		assert.True(t, errors.Is(err, tabula.ErrNotSingular))
	})

	t.Run("IsNotSingular", func(t *testing.T) {
		err := tabula.NewNotSingularErrorWithCount("Comment", 3)
		assert.True(t, tabula.IsNotSingular(err))
		assert.Contains(t, err.Error(), "got 3 results")

		// Wrapped error
		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, tabula.IsNotSingular(wrapped))

		// Sentinel error
		assert.True(t, tabula.IsNotSingular(tabula.ErrNotSingular))

		// Non-matching error
		assert.False(t, tabula.IsNotSingular(errors.New("other error")))
		assert.False(t, tabula.IsNotSingular(nil))
	})
}

func TestNotLoadedError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := tabula.NewNotLoadedError("posts")
		assert.Equal(t, `tabula: relation "posts" was not loaded`, err.Error())
	})

	t.Run("IsNotLoaded", func(t *testing.T) {
		err := tabula.NewNotLoadedError("comments")
		assert.True(t, tabula.IsNotLoaded(err))

		// Wrapped error
		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, tabula.IsNotLoaded(wrapped))

		// Non-matching error
		assert.False(t, tabula.IsNotLoaded(errors.New("other error")))
		assert.False(t, tabula.IsNotLoaded(nil))
	})
}

func TestEntityNotDefinedError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := tabula.NewEntityNotDefinedError("ghost")
		assert.Equal(t, `tabula: entity "ghost" is not defined`, err.Error())
	})

	t.Run("IsEntityNotDefined", func(t *testing.T) {
		err := tabula.NewEntityNotDefinedError("ghost")
		assert.True(t, tabula.IsEntityNotDefined(err))

		wrapped := fmt.Errorf("create: %w", err)
		assert.True(t, tabula.IsEntityNotDefined(wrapped))

		assert.False(t, tabula.IsEntityNotDefined(errors.New("other error")))
		assert.False(t, tabula.IsEntityNotDefined(nil))
	})
}

func TestConfigurationError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := tabula.NewConfigurationError("field", "email", errors.New("unknown type"))
		assert.Equal(t, `tabula: invalid field configuration "email": unknown type`, err.Error())
	})

	t.Run("ErrorWithoutName", func(t *testing.T) {
		err := tabula.NewConfigurationError("entity", "", errors.New("name is required"))
		assert.Equal(t, "tabula: invalid entity configuration: name is required", err.Error())
	})

	t.Run("Unwrap", func(t *testing.T) {
		underlying := errors.New("bad default")
		err := tabula.NewConfigurationError("field", "age", underlying)
		assert.True(t, errors.Is(err, underlying))
	})

	t.Run("IsConfigurationError", func(t *testing.T) {
		err := tabula.NewConfigurationError("relation", "posts", errors.New("unknown target"))
		assert.True(t, tabula.IsConfigurationError(err))

		wrapped := fmt.Errorf("define: %w", err)
		assert.True(t, tabula.IsConfigurationError(wrapped))

		assert.False(t, tabula.IsConfigurationError(errors.New("other error")))
		assert.False(t, tabula.IsConfigurationError(nil))
	})
}

func TestConstraintError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := tabula.NewConstraintError("UNIQUE constraint failed", nil)
		assert.Equal(t, "tabula: constraint failed: UNIQUE constraint failed", err.Error())
	})

	t.Run("Unwrap", func(t *testing.T) {
		underlying := errors.New("db error")
		err := tabula.NewConstraintError("constraint violated", underlying)
		assert.True(t, errors.Is(err, underlying))
	})

	t.Run("IsConstraintError", func(t *testing.T) {
		err := tabula.NewConstraintError("check failed", nil)
		assert.True(t, tabula.IsConstraintError(err))

		// Wrapped error
		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, tabula.IsConstraintError(wrapped))

		// Non-matching error
		assert.False(t, tabula.IsConstraintError(errors.New("other error")))
		assert.False(t, tabula.IsConstraintError(nil))
	})
}

func TestValidationError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := tabula.NewValidationError("email", errors.New("invalid format"))
		assert.Equal(t, `tabula: validation failed for field "email": invalid format`, err.Error())
	})

	t.Run("ErrorWithEntity", func(t *testing.T) {
		err := tabula.NewEntityValidationError("user", "email", errors.New("invalid format"))
		assert.Equal(t, "tabula: validation failed for user.email: invalid format", err.Error())
	})

	t.Run("Unwrap", func(t *testing.T) {
		underlying := errors.New("too short")
		err := tabula.NewValidationError("name", underlying)
		assert.True(t, errors.Is(err, underlying))
	})

	t.Run("IsValidationError", func(t *testing.T) {
		err := tabula.NewValidationError("age", errors.New("must be positive"))
		assert.True(t, tabula.IsValidationError(err))

		// Wrapped error
		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, tabula.IsValidationError(wrapped))

		// Non-matching error
		assert.False(t, tabula.IsValidationError(errors.New("other error")))
		assert.False(t, tabula.IsValidationError(nil))
	})
}

func TestInvalidSearchParamsError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := tabula.NewInvalidSearchParamsError("user", "ghost", "phantom")
		assert.Equal(t, "tabula: invalid search params for user: unknown fields: ghost, phantom", err.Error())
	})

	t.Run("IsInvalidSearchParams", func(t *testing.T) {
		err := tabula.NewInvalidSearchParamsError("user", "ghost")
		assert.True(t, tabula.IsInvalidSearchParams(err))

		wrapped := fmt.Errorf("update: %w", err)
		assert.True(t, tabula.IsInvalidSearchParams(wrapped))

		assert.False(t, tabula.IsInvalidSearchParams(errors.New("other error")))
		assert.False(t, tabula.IsInvalidSearchParams(nil))
	})
}

func TestRollbackError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := &tabula.RollbackError{Err: errors.New("connection lost")}
		assert.Equal(t, "tabula: rollback failed: connection lost", err.Error())
	})

	t.Run("Unwrap", func(t *testing.T) {
		underlying := errors.New("timeout")
		err := &tabula.RollbackError{Err: underlying}
		assert.True(t, errors.Is(err, underlying))
	})
}

func TestAggregateError(t *testing.T) {
	t.Run("NoErrors", func(t *testing.T) {
		err := tabula.NewAggregateError()
		assert.Nil(t, err)
	})

	t.Run("NilErrors", func(t *testing.T) {
		err := tabula.NewAggregateError(nil, nil, nil)
		assert.Nil(t, err)
	})

	t.Run("SingleError", func(t *testing.T) {
		single := errors.New("single error")
		err := tabula.NewAggregateError(single)
		assert.Equal(t, single, err)
	})

	t.Run("MultipleErrors", func(t *testing.T) {
		err1 := errors.New("error 1")
		err2 := errors.New("error 2")
		err := tabula.NewAggregateError(err1, err2)

		require.NotNil(t, err)
		assert.Contains(t, err.Error(), "multiple errors")
		assert.Contains(t, err.Error(), "error 1")
		assert.Contains(t, err.Error(), "error 2")
	})

	t.Run("MixedNilAndErrors", func(t *testing.T) {
		err1 := errors.New("error 1")
		err := tabula.NewAggregateError(nil, err1, nil)

		require.NotNil(t, err)
		assert.Equal(t, err1, err) // Single non-nil error returned directly
	})
}

func TestSentinelErrors(t *testing.T) {
	t.Run("ErrNotFound", func(t *testing.T) {
		assert.Error(t, tabula.ErrNotFound)
		assert.Contains(t, tabula.ErrNotFound.Error(), "not found")
	})

	t.Run("ErrNotSingular", func(t *testing.T) {
		assert.Error(t, tabula.ErrNotSingular)
		assert.Contains(t, tabula.ErrNotSingular.Error(), "not singular")
	})

	t.Run("ErrTxStarted", func(t *testing.T) {
		assert.Error(t, tabula.ErrTxStarted)
		assert.Contains(t, tabula.ErrTxStarted.Error(), "transaction")
	})
}

// BenchmarkErrors benchmarks error creation and checking.
func BenchmarkErrors(b *testing.B) {
	b.Run("NewNotFoundError", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = tabula.NewNotFoundError("User")
		}
	})

	b.Run("IsNotFound", func(b *testing.B) {
		err := tabula.NewNotFoundError("User")
		for i := 0; i < b.N; i++ {
			_ = tabula.IsNotFound(err)
		}
	})

	b.Run("NewConstraintError", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = tabula.NewConstraintError("unique", nil)
		}
	})

	b.Run("IsConstraintError", func(b *testing.B) {
		err := tabula.NewConstraintError("unique", nil)
		for i := 0; i < b.N; i++ {
			_ = tabula.IsConstraintError(err)
		}
	})

	b.Run("NewValidationError", func(b *testing.B) {
		underlying := errors.New("invalid")
		for i := 0; i < b.N; i++ {
			_ = tabula.NewValidationError("field", underlying)
		}
	})

	b.Run("NewAggregateError_multiple", func(b *testing.B) {
		err1 := errors.New("err1")
		err2 := errors.New("err2")
		err3 := errors.New("err3")
		for i := 0; i < b.N; i++ {
			_ = tabula.NewAggregateError(err1, err2, err3)
		}
	})
}
