// Package sql provides SQL statement building primitives and the
// database/sql-backed driver implementation.
//
// This package is the foundation for generating and executing SQL across
// different database systems (PostgreSQL, MySQL, SQLite). It provides a
// fluent API for constructing parameterized SQL statements.
//
// # Builder Types
//
// The package provides specialized builders for different SQL operations:
//
//   - Builder: low-level SQL string builder with identifier quoting
//   - Selector: SELECT builder with joins, predicates, and pagination
//   - InsertBuilder: INSERT builder with RETURNING support
//   - UpdateBuilder: UPDATE builder with SET and WHERE clauses
//   - DeleteBuilder: DELETE builder with WHERE predicates
//
// # Dialect Support
//
// SQL generation adapts to the configured dialect:
//
//	import "github.com/syssam/tabula/dialect"
//
//	// PostgreSQL: double-quoted identifiers, $n placeholders
//	b := sql.Dialect(dialect.Postgres)
//	b.Select("id", "name").From(sql.Table("users")).Where(sql.EQ("status", "active"))
//
//	// MySQL: backtick identifiers, ? placeholders
//	b := sql.Dialect(dialect.MySQL)
//
// # Predicates
//
// Predicate functions compose into parameterized WHERE clauses:
//
//	// Equality
//	sql.EQ("name", "john")           // "name" = ?
//	sql.NEQ("status", "deleted")     // "status" <> ?
//
//	// Comparison
//	sql.GT("age", 18)                // "age" > ?
//	sql.LTE("price", 100.0)          // "price" <= ?
//	sql.Between("age", 18, 65)       // "age" BETWEEN ? AND ?
//
//	// String matching
//	sql.Contains("name", "john")     // "name" LIKE '%john%'
//	sql.HasPrefix("email", "admin")  // "email" LIKE 'admin%'
//
//	// NULL checks
//	sql.IsNull("deleted_at")         // "deleted_at" IS NULL
//	sql.NotNull("email")             // "email" IS NOT NULL
//
//	// IN clauses
//	sql.In("status", "active", "pending")  // "status" IN (?, ?)
//
// # Joins
//
// Join operations are supported through the selector:
//
//	users := sql.Table("users").As("u")
//	posts := sql.Table("posts").As("p")
//	sql.Select("u.id", "u.name", "p.title").
//	    From(users).
//	    Join(posts).On(users.C("id"), posts.C("user_id")).
//	    Where(sql.EQ("u.status", "active"))
//
// # Pagination
//
// Offset-based pagination:
//
//	sql.Select().From(sql.Table("users")).Offset(20).Limit(10)
//
// # Row-Level Locking
//
// Pessimistic locking for transactions:
//
//	sql.Select().From(sql.Table("users")).
//	    Where(sql.EQ("id", 1)).
//	    ForUpdate()  // SELECT ... FOR UPDATE
//
// # Usage in the entity layer
//
// The entity manager, mutator and repository build their statements with
// this package, and the querylanguage package compiles declarative filters
// into its predicates. It can also be used directly for custom queries.
package sql
