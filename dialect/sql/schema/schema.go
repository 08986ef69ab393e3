// Package schema describes relational tables derived from entity
// definitions and keeps them in sync with a live database.
package schema

import (
	"fmt"
	"strings"
)

// ColumnType is the dialect-neutral type of a column. The migration
// engine maps it to a concrete database type per dialect.
type ColumnType string

// Column types.
const (
	TypeInt    ColumnType = "int"
	TypeFloat  ColumnType = "float"
	TypeBool   ColumnType = "bool"
	TypeString ColumnType = "string"
	TypeText   ColumnType = "text"
	TypeTime   ColumnType = "time"
	TypeJSON   ColumnType = "json"
	TypeUUID   ColumnType = "uuid"
)

// Table schema definition for SQL dialects.
type Table struct {
	Name        string
	Comment     string
	Columns     []*Column
	columns     map[string]*Column
	Indexes     []*Index
	PrimaryKey  []*Column
	ForeignKeys []*ForeignKey
}

// NewTable returns a new table with the given name.
func NewTable(name string) *Table {
	return &Table{
		Name:    name,
		columns: make(map[string]*Column),
	}
}

// SetComment sets the table comment.
func (t *Table) SetComment(c string) *Table {
	t.Comment = c
	return t
}

// AddPrimary adds a new primary-key column to the table.
func (t *Table) AddPrimary(c *Column) *Table {
	c.Key = PrimaryKey
	t.AddColumn(c)
	t.PrimaryKey = append(t.PrimaryKey, c)
	return t
}

// AddForeignKey adds a foreign-key constraint to the table.
func (t *Table) AddForeignKey(fk *ForeignKey) *Table {
	t.ForeignKeys = append(t.ForeignKeys, fk)
	return t
}

// AddColumn adds a new column to the table.
func (t *Table) AddColumn(c *Column) *Table {
	if t.columns == nil {
		t.columns = make(map[string]*Column)
	}
	t.columns[c.Name] = c
	t.Columns = append(t.Columns, c)
	return t
}

// HasColumn reports if the table contains a column with the given name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// Column returns the column with the given name. If the lookup map was
// not initialized (tables decoded from the database), it falls back to
// a linear scan.
func (t *Table) Column(name string) (*Column, bool) {
	if t.columns != nil {
		c, ok := t.columns[name]
		return c, ok
	}
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// AddIndex creates and adds a new index to the table from the given
// column names. Unknown columns are ignored.
func (t *Table) AddIndex(name string, unique bool, columns []string) *Table {
	idx := &Index{
		Name:    name,
		Unique:  unique,
		columns: columns,
		Columns: make([]*Column, 0, len(columns)),
	}
	for _, name := range columns {
		if c, ok := t.Column(name); ok {
			c.indexes.append(idx)
			idx.Columns = append(idx.Columns, c)
		}
	}
	t.Indexes = append(t.Indexes, idx)
	return t
}

// Index returns the index with the given name.
func (t *Table) Index(name string) (*Index, bool) {
	for _, idx := range t.Indexes {
		if idx.Name == name {
			return idx, true
		}
	}
	return nil, false
}

// Column kinds.
const (
	// NoKey marks a column as a regular, non-key column.
	NoKey Key = ""
	// PrimaryKey marks a column as part of the primary key.
	PrimaryKey Key = "PRI"
	// UniqueKey marks a column as carrying a unique constraint.
	UniqueKey Key = "UNI"
)

// Key is the column-key part of a schema definition.
type Key string

// Column schema definition for SQL dialects.
type Column struct {
	Name      string     // column name.
	Type      ColumnType // column type.
	Size      int64      // max size for string columns (0 means dialect default).
	Key       Key        // key definition (PRI, UNI or empty).
	Unique    bool       // column with a unique constraint.
	Increment bool       // auto-increment integer column.
	Nullable  bool       // null or not null attribute.
	Default   any        // default value.
	Enums     []string   // enum values for enum-backed columns.
	Comment   string     // optional column comment.
	Check     string     // optional CHECK constraint expression.
	// SchemaType overrides the rendered database type, keyed by dialect.
	// The empty key applies to every dialect.
	SchemaType map[string]string
	indexes    Indexes // linked indexes.
}

// PrimaryKey reports if the column is part of the primary key.
func (c *Column) PrimaryKey() bool { return c.Key == PrimaryKey }

// UniqueKey reports if the column carries a unique constraint.
func (c *Column) UniqueKey() bool { return c.Key == UniqueKey || c.Unique }

// Index definition for one or more table columns.
type Index struct {
	Name    string    // index name.
	Unique  bool      // uniqueness.
	Columns []*Column // actual table columns.
	columns []string  // the requested column names.
}

// Indexes used for scanning all sql.Rows into a list of indexes, because
// multiple sql rows can represent the same index.
type Indexes []*Index

func (i *Indexes) append(idx *Index) {
	for _, ex := range *i {
		if ex.Name == idx.Name {
			return
		}
	}
	*i = append(*i, idx)
}

// ForeignKey definition of a database foreign-key constraint.
type ForeignKey struct {
	Symbol     string          // foreign-key name (generated if empty).
	Columns    []*Column       // table columns.
	RefTable   *Table          // referenced table.
	RefColumns []*Column       // referenced columns.
	OnUpdate   ReferenceOption // action on update.
	OnDelete   ReferenceOption // action on delete.
}

// ReferenceOption for constraint actions.
type ReferenceOption string

// Reference options (actions) specified by ON UPDATE and ON DELETE
// subclauses of the FOREIGN KEY clause.
const (
	NoAction   ReferenceOption = "NO ACTION"
	Restrict   ReferenceOption = "RESTRICT"
	Cascade    ReferenceOption = "CASCADE"
	SetNull    ReferenceOption = "SET NULL"
	SetDefault ReferenceOption = "SET DEFAULT"
)

// ConstName returns the constant name of a reference option, to allow
// mapping a database action back to a Go identifier.
func (r ReferenceOption) ConstName() string {
	if r == NoAction {
		return "NoAction"
	}
	return strings.ReplaceAll(strings.Title(strings.ToLower(string(r))), " ", "")
}

// A ChangeKind denotes the kind of schema change.
type ChangeKind uint

// List of schema changes that can be skipped during migration.
const (
	NoChange ChangeKind = 0

	AddSchema ChangeKind = 1 << (iota - 1)
	ModifySchema
	DropSchema
	AddTable
	ModifyTable
	DropTable
	AddColumn
	ModifyColumn
	DropColumn
	AddIndex
	ModifyIndex
	DropIndex
	AddForeignKey
	ModifyForeignKey
	DropForeignKey
	AddCheck
	ModifyCheck
	DropCheck
)

// Is reports whether c is match the given change kind.
func (c ChangeKind) Is(k ChangeKind) bool {
	return c == k || c&k != 0
}

func indexName(table string, columns []string) string {
	return fmt.Sprintf("idx_%s_%s", table, strings.Join(columns, "_"))
}
