package dialect

import (
	"context"
)

// Dialect names for the supported database backends.
const (
	// MySQL is the dialect name for MySQL and MariaDB.
	MySQL = "mysql"
	// SQLite is the dialect name for SQLite.
	SQLite = "sqlite"
	// Postgres is the dialect name for PostgreSQL.
	Postgres = "postgres"
)

// ExecQuerier wraps the two basic Exec and Query methods.
type ExecQuerier interface {
	// Exec executes a statement that does not return rows. The args argument
	// carries the bound parameters as a []any, and v receives the execution
	// result (a *sql.Result for SQL drivers, or nil when discarded).
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a statement that returns rows. The args argument carries
	// the bound parameters as a []any, and v receives the rows
	// (a *sql.Rows for SQL drivers).
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the minimal interface a storage driver implements.
// It is the boundary between the entity layer and the database.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx is a transaction with the same statement surface as a Driver.
type Tx interface {
	ExecQuerier
	// Commit commits the transaction.
	Commit() error
	// Rollback discards the transaction.
	Rollback() error
}

// NopTx returns a Tx that executes statements on drv and ignores
// Commit and Rollback. It is used by callers that run a transactional
// code path over a driver that does not need one.
func NopTx(drv Driver) Tx {
	return nopTx{drv}
}

type nopTx struct {
	Driver
}

func (nopTx) Commit() error   { return nil }
func (nopTx) Rollback() error { return nil }
