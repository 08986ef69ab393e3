package sql

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/tabula/dialect"
)

func TestOpenDB(t *testing.T) {
	for _, d := range []string{dialect.Postgres, dialect.MySQL, dialect.SQLite} {
		t.Run(d, func(t *testing.T) {
			db, _, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			drv := OpenDB(d, db)
			require.NotNil(t, drv)
			assert.Equal(t, d, drv.Dialect())
		})
	}
}

func TestDriverQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.Postgres, db)

	t.Run("rows", func(t *testing.T) {
		mock.ExpectQuery(`SELECT "id", "name" FROM "users"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
				AddRow(1, "Ann").
				AddRow(2, "Bob"))

		rows := &Rows{}
		require.NoError(t, drv.Query(context.Background(), `SELECT "id", "name" FROM "users"`, []any{}, rows))
		require.NoError(t, rows.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("args", func(t *testing.T) {
		mock.ExpectQuery(`SELECT "name" FROM "users" WHERE "id" = \$1`).
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Ann"))

		rows := &Rows{}
		require.NoError(t, drv.Query(context.Background(), `SELECT "name" FROM "users" WHERE "id" = $1`, []any{1}, rows))
		require.NoError(t, rows.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("null columns scan", func(t *testing.T) {
		mock.ExpectQuery(`SELECT "name", "age" FROM "users"`).
			WillReturnRows(sqlmock.NewRows([]string{"name", "age"}).
				AddRow("Ann", nil).
				AddRow(nil, 30))

		rows := &Rows{}
		require.NoError(t, drv.Query(context.Background(), `SELECT "name", "age" FROM "users"`, []any{}, rows))
		require.NoError(t, rows.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("driver error", func(t *testing.T) {
		mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection reset"))

		rows := &Rows{}
		require.Error(t, drv.Query(context.Background(), "SELECT", []any{}, rows))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		mock.ExpectQuery("SELECT").WillReturnError(context.Canceled)

		rows := &Rows{}
		assert.Error(t, drv.Query(ctx, "SELECT 1", []any{}, rows))
	})
}

func TestDriverExec(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.Postgres, db)

	t.Run("insert", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO "users"`).
			WillReturnResult(sqlmock.NewResult(1, 1))

		require.NoError(t, drv.Exec(context.Background(), `INSERT INTO "users" ("name") VALUES ($1)`, []any{"Ann"}, nil))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("update with args", func(t *testing.T) {
		mock.ExpectExec(`UPDATE "users" SET "name" = \$1 WHERE "id" = \$2`).
			WithArgs("Bea", 1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, drv.Exec(context.Background(), `UPDATE "users" SET "name" = $1 WHERE "id" = $2`, []any{"Bea", 1}, nil))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("driver error", func(t *testing.T) {
		mock.ExpectExec("DELETE").WillReturnError(errors.New("constraint violation"))

		require.Error(t, drv.Exec(context.Background(), `DELETE FROM "users"`, []any{}, nil))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDriverTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.Postgres, db)

	t.Run("commit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO "users"`).WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		tx, err := drv.Tx(context.Background())
		require.NoError(t, err)
		require.NoError(t, tx.Exec(context.Background(), `INSERT INTO "users" ("name") VALUES ('Ann')`, []any{}, nil))
		require.NoError(t, tx.Commit())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback after failure", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO "users"`).WillReturnError(errors.New("unique violation"))
		mock.ExpectRollback()

		tx, err := drv.Tx(context.Background())
		require.NoError(t, err)
		require.Error(t, tx.Exec(context.Background(), `INSERT INTO "users" ("name") VALUES ('Ann')`, []any{}, nil))
		require.NoError(t, tx.Rollback())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query inside transaction", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectCommit()

		tx, err := drv.Tx(context.Background())
		require.NoError(t, err)
		rows := &Rows{}
		require.NoError(t, tx.Query(context.Background(), `SELECT "id" FROM "users"`, []any{}, rows))
		require.NoError(t, tx.Commit())
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

// Session variables wrap each statement in SET/RESET so row-level scoping
// (tenant isolation) holds for exactly one statement on pooled
// connections, and for the whole transaction inside one.
func TestWithVar(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)
	drv := OpenDB(dialect.Postgres, db)

	t.Run("query scoped to statement", func(t *testing.T) {
		mock.ExpectExec("SET app.tenant_id = '42'").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
		mock.ExpectExec("RESET app.tenant_id").WillReturnResult(sqlmock.NewResult(0, 0))

		rows := &Rows{}
		err := drv.Query(WithVar(context.Background(), "app.tenant_id", "42"), "SELECT 1", []any{}, rows)
		require.NoError(t, err)
		// The connection is released only once the rows are closed.
		require.NoError(t, rows.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("later value set after earlier", func(t *testing.T) {
		mock.ExpectExec("SET app.tenant_id = '42'").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("SET app.tenant_id = '7'").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
		mock.ExpectExec("RESET app.tenant_id").WillReturnResult(sqlmock.NewResult(0, 0))

		ctx := WithVar(WithVar(context.Background(), "app.tenant_id", "42"), "app.tenant_id", "7")
		rows := &Rows{}
		require.NoError(t, drv.Query(ctx, "SELECT 1", []any{}, rows))
		require.NoError(t, rows.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("transaction keeps the session", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("SET app.tenant_id = '42'").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
		mock.ExpectCommit()

		tx, err := drv.Tx(context.Background())
		require.NoError(t, err)
		rows := &Rows{}
		require.NoError(t, tx.Query(WithVar(context.Background(), "app.tenant_id", "42"), "SELECT 1", []any{}, rows))
		require.NoError(t, tx.Commit())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("exec without result rows", func(t *testing.T) {
		mock.ExpectExec("SET app.tenant_id = '42'").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`INSERT INTO "users" DEFAULT VALUES`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("RESET app.tenant_id").WillReturnResult(sqlmock.NewResult(0, 0))

		ctx := WithVar(context.Background(), "app.tenant_id", "42")
		require.NoError(t, drv.Exec(ctx, `INSERT INTO "users" DEFAULT VALUES`, []any{}, nil))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestVarFromContext(t *testing.T) {
	ctx := WithIntVar(WithVar(context.Background(), "app.tenant_id", "42"), "app.actor_id", 7)

	v, ok := VarFromContext(ctx, "app.tenant_id")
	require.True(t, ok)
	assert.Equal(t, "42", v)
	v, ok = VarFromContext(ctx, "app.actor_id")
	require.True(t, ok)
	assert.Equal(t, "7", v)
	_, ok = VarFromContext(ctx, "app.role")
	assert.False(t, ok)
}

func TestWithVarRejectsInvalidName(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)
	drv := OpenDB(dialect.Postgres, db)

	rows := &Rows{}
	err = drv.Query(
		WithVar(context.Background(), "app.tenant_id; DROP TABLE users; --", "42"),
		"SELECT 1", []any{}, rows,
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid session variable name")
}

func TestWithVarEscapesValue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)
	drv := OpenDB(dialect.Postgres, db)

	mock.ExpectExec("SET app.actor = 'o''hara'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("RESET app.actor").WillReturnResult(sqlmock.NewResult(0, 0))

	rows := &Rows{}
	require.NoError(t, drv.Query(WithVar(context.Background(), "app.actor", "o'hara"), "SELECT 1", []any{}, rows))
	require.NoError(t, rows.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIsValidIdentifier(t *testing.T) {
	valid := []string{"name", "tenant_id", "users2", "app.tenant_id", "_hidden"}
	for _, id := range valid {
		assert.True(t, isValidIdentifier(id), id)
	}
	invalid := []string{
		"",
		"2fast",
		"two words",
		"it's",
		"users; DROP TABLE users",
		"kebab-case",
		string(make([]byte, 129)),
	}
	for _, id := range invalid {
		assert.False(t, isValidIdentifier(id), id)
	}
}

func TestEscapeStringValue(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"", ""},
		{"o'hara", "o''hara"},
		{"'quoted'", "''quoted''"},
		{`c:\data`, `c:\\data`},
		{`it's \here`, `it''s \\here`},
		{"'; DROP TABLE users; --", "''; DROP TABLE users; --"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, escapeStringValue(tt.in), tt.in)
	}
}
