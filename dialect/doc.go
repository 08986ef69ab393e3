// Package dialect provides the database dialect abstraction for Tabula.
//
// This package defines the interfaces and types used for database-specific
// operations, allowing Tabula to target multiple database backends including
// PostgreSQL, MySQL, and SQLite.
//
// # Supported Dialects
//
// Each dialect is identified by a constant string:
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite"
//
// # Driver Interface
//
// The Driver interface is the boundary between the entity layer and the
// database:
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// # Transaction Interface
//
// The Tx interface carries the same statement surface with transaction
// control:
//
//	type Tx interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Commit() error
//	    Rollback() error
//	}
//
// # ExecQuerier Interface
//
// The ExecQuerier interface is implemented by both Driver and Tx:
//
//	type ExecQuerier interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	}
//
// # Usage
//
// Opening a database connection:
//
//	import (
//	    "github.com/syssam/tabula/dialect"
//	    "github.com/syssam/tabula/dialect/sql"
//	)
//
//	drv, err := sql.Open(dialect.Postgres, "postgres://...")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer drv.Close()
//
// Binding an entity manager to the driver:
//
//	em := tabula.NewManager(drv)
//
// # Sub-packages
//
//   - dialect/sql: SQL statement builders and the database/sql driver
//   - dialect/sql/schema: schema definition, diffing and migration
//   - dialect/sqlschema: SQL-level annotations for fields, relations and indexes
package dialect
