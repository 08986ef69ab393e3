package schema

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ariga.io/atlas/sql/migrate"
	"ariga.io/atlas/sql/sqltool"

	"github.com/syssam/tabula/dialect"
	"github.com/syssam/tabula/dialect/sql"
)

// Migrate keeps the database schema aligned with a set of tables. It
// can apply changes directly (Create) or write them as versioned
// migration files for external tools (Diff, NamedDiff).
type Migrate struct {
	drv         dialect.Driver
	dialect     string
	dropColumns bool
	dropIndexes bool
	withFKs     bool
	errNoPlan   bool
	skip        ChangeKind
	dir         migrate.Dir
	fmt         migrate.Formatter
}

// MigrateOption allows configuring the migration engine using functional options.
type MigrateOption func(*Migrate)

// WithDropColumn sets the columns dropping option. Defaults to false,
// meaning columns that exist in the database but not in the desired
// schema are left in place.
func WithDropColumn(b bool) MigrateOption {
	return func(m *Migrate) { m.dropColumns = b }
}

// WithDropIndex sets the indexes dropping option. Defaults to false.
func WithDropIndex(b bool) MigrateOption {
	return func(m *Migrate) { m.dropIndexes = b }
}

// WithForeignKeys enables or disables foreign-key constraint creation.
// Defaults to true.
func WithForeignKeys(b bool) MigrateOption {
	return func(m *Migrate) { m.withFKs = b }
}

// WithSkipChanges allows skipping the given change kinds when planning
// a migration.
//
//	schema.NewMigrate(drv, schema.WithSkipChanges(schema.DropColumn|schema.DropIndex))
func WithSkipChanges(skip ChangeKind) MigrateOption {
	return func(m *Migrate) { m.skip = skip }
}

// WithDir sets the directory migration files are written to by Diff and
// NamedDiff.
func WithDir(dir migrate.Dir) MigrateOption {
	return func(m *Migrate) { m.dir = dir }
}

// WithFormatter overrides the formatter used to render migration files.
// If omitted, the formatter is inferred from the directory type.
func WithFormatter(f migrate.Formatter) MigrateOption {
	return func(m *Migrate) { m.fmt = f }
}

// WithErrNoPlan makes Diff return migrate.ErrNoPlan when the database
// already matches the desired schema, instead of succeeding silently.
func WithErrNoPlan(b bool) MigrateOption {
	return func(m *Migrate) { m.errNoPlan = b }
}

// NewMigrate returns a new migration engine for the given driver.
func NewMigrate(drv dialect.Driver, opts ...MigrateOption) (*Migrate, error) {
	m := &Migrate{drv: drv, dialect: drv.Dialect(), withFKs: true}
	switch m.dialect {
	case dialect.MySQL, dialect.Postgres, dialect.SQLite:
	default:
		return nil, fmt.Errorf("schema: unsupported dialect %q", m.dialect)
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.dir != nil && m.fmt == nil {
		switch m.dir.(type) {
		case *sqltool.GolangMigrateDir:
			m.fmt = sqltool.GolangMigrateFormatter
		case *sqltool.GooseDir:
			m.fmt = sqltool.GooseFormatter
		case *sqltool.DBMateDir:
			m.fmt = sqltool.DBMateFormatter
		case *sqltool.FlywayDir:
			m.fmt = sqltool.FlywayFormatter
		case *sqltool.LiquibaseDir:
			m.fmt = sqltool.LiquibaseFormatter
		default:
			m.fmt = migrate.DefaultFormatter
		}
	}
	return m, nil
}

// change is a single planned schema statement, tagged with its kind so
// it can be filtered by WithSkipChanges.
type change struct {
	kind    ChangeKind
	cmd     string
	comment string
}

// Create applies the pending schema changes for the given tables inside
// a transaction.
func (m *Migrate) Create(ctx context.Context, tables ...*Table) error {
	changes, err := m.changes(ctx, m.drv, tables)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		return nil
	}
	tx, err := m.drv.Tx(ctx)
	if err != nil {
		return err
	}
	for _, c := range changes {
		if err := tx.Exec(ctx, c.cmd, []any{}, nil); err != nil {
			return fmt.Errorf("schema: %s: %w", c.comment, rollback(tx, err))
		}
	}
	return tx.Commit()
}

// Diff plans the schema changes for the given tables and writes them as
// a migration file named "changes" to the configured directory.
func (m *Migrate) Diff(ctx context.Context, tables ...*Table) error {
	return m.NamedDiff(ctx, "changes", tables...)
}

// NamedDiff plans the schema changes for the given tables and writes
// them as a migration file with the given name.
func (m *Migrate) NamedDiff(ctx context.Context, name string, tables ...*Table) error {
	if m.dir == nil {
		return fmt.Errorf("schema: diff requires a migration directory (WithDir)")
	}
	if err := migrate.Validate(m.dir); err != nil {
		return fmt.Errorf("schema: validating migration directory: %w", err)
	}
	changes, err := m.changes(ctx, m.drv, tables)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		if m.errNoPlan {
			return migrate.ErrNoPlan
		}
		return nil
	}
	plan := &migrate.Plan{
		Name:    name,
		Version: time.Now().UTC().Format("20060102150405"),
	}
	for _, c := range changes {
		plan.Changes = append(plan.Changes, &migrate.Change{Cmd: c.cmd, Comment: c.comment})
	}
	files, err := m.fmt.Format(plan)
	if err != nil {
		return fmt.Errorf("schema: formatting migration plan: %w", err)
	}
	for _, f := range files {
		if err := m.dir.WriteFile(f.Name(), f.Bytes()); err != nil {
			return err
		}
	}
	sum, err := m.dir.Checksum()
	if err != nil {
		return err
	}
	return migrate.WriteSumFile(m.dir, sum)
}

// changes inspects the connected database and plans the statements that
// bring it to the desired state.
func (m *Migrate) changes(ctx context.Context, conn dialect.ExecQuerier, tables []*Table) ([]*change, error) {
	if err := validateTables(tables); err != nil {
		return nil, err
	}
	var changes []*change
	for _, t := range tables {
		if len(t.PrimaryKey) == 0 {
			return nil, fmt.Errorf("schema: table %q has no primary key", t.Name)
		}
		exists, err := m.tableExists(ctx, conn, t.Name)
		if err != nil {
			return nil, err
		}
		if !exists {
			changes = append(changes, &change{
				kind:    AddTable,
				cmd:     m.createTableSQL(t),
				comment: fmt.Sprintf("create table %q", t.Name),
			})
			for _, idx := range t.Indexes {
				changes = append(changes, &change{
					kind:    AddIndex,
					cmd:     m.createIndexSQL(t, idx),
					comment: fmt.Sprintf("create index %q on table %q", idx.Name, t.Name),
				})
			}
			continue
		}
		tc, err := m.tableChanges(ctx, conn, t)
		if err != nil {
			return nil, err
		}
		changes = append(changes, tc...)
	}
	if m.skip != NoChange {
		kept := changes[:0]
		for _, c := range changes {
			if !m.skip.Is(c.kind) {
				kept = append(kept, c)
			}
		}
		changes = kept
	}
	return changes, nil
}

// tableChanges plans the column and index changes for an existing table.
func (m *Migrate) tableChanges(ctx context.Context, conn dialect.ExecQuerier, t *Table) ([]*change, error) {
	columns, err := m.columnNames(ctx, conn, t.Name)
	if err != nil {
		return nil, err
	}
	var changes []*change
	for _, c := range t.Columns {
		if _, ok := columns[c.Name]; ok {
			continue
		}
		changes = append(changes, &change{
			kind:    AddColumn,
			cmd:     fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", m.quote(t.Name), m.columnSQL(c)),
			comment: fmt.Sprintf("add column %q to table %q", c.Name, t.Name),
		})
	}
	if m.dropColumns {
		desired := make(map[string]bool, len(t.Columns))
		for _, c := range t.Columns {
			desired[c.Name] = true
		}
		for name := range columns {
			if !desired[name] {
				changes = append(changes, &change{
					kind:    DropColumn,
					cmd:     fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", m.quote(t.Name), m.quote(name)),
					comment: fmt.Sprintf("drop column %q from table %q", name, t.Name),
				})
			}
		}
	}
	indexes, err := m.indexNames(ctx, conn, t.Name)
	if err != nil {
		return nil, err
	}
	for _, idx := range t.Indexes {
		if _, ok := indexes[idx.Name]; ok {
			continue
		}
		changes = append(changes, &change{
			kind:    AddIndex,
			cmd:     m.createIndexSQL(t, idx),
			comment: fmt.Sprintf("create index %q on table %q", idx.Name, t.Name),
		})
	}
	if m.dropIndexes {
		desired := make(map[string]bool, len(t.Indexes))
		for _, idx := range t.Indexes {
			desired[idx.Name] = true
		}
		for name := range indexes {
			if desired[name] || isSystemIndex(name) {
				continue
			}
			cmd := fmt.Sprintf("DROP INDEX %s", m.quote(name))
			if m.dialect == dialect.MySQL {
				cmd = fmt.Sprintf("DROP INDEX %s ON %s", m.quote(name), m.quote(t.Name))
			}
			changes = append(changes, &change{
				kind:    DropIndex,
				cmd:     cmd,
				comment: fmt.Sprintf("drop index %q from table %q", name, t.Name),
			})
		}
	}
	return changes, nil
}

// isSystemIndex reports if the index is maintained by the database
// itself and must not be dropped.
func isSystemIndex(name string) bool {
	return name == "PRIMARY" ||
		strings.HasPrefix(name, "sqlite_autoindex") ||
		strings.HasSuffix(name, "_pkey")
}

func (m *Migrate) tableExists(ctx context.Context, conn dialect.ExecQuerier, name string) (bool, error) {
	var (
		query string
		args  = []any{name}
	)
	switch m.dialect {
	case dialect.MySQL:
		query = "SELECT COUNT(*) FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = (SELECT DATABASE()) AND TABLE_NAME = ?"
	case dialect.Postgres:
		query = "SELECT COUNT(*) FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = CURRENT_SCHEMA() AND TABLE_NAME = $1"
	case dialect.SQLite:
		query = "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?"
	}
	rows := &sql.Rows{}
	if err := conn.Query(ctx, query, args, rows); err != nil {
		return false, fmt.Errorf("schema: checking table %q existence: %w", name, err)
	}
	defer rows.Close()
	n, err := scanInt(rows)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (m *Migrate) columnNames(ctx context.Context, conn dialect.ExecQuerier, table string) (map[string]struct{}, error) {
	var (
		query string
		args  = []any{table}
	)
	switch m.dialect {
	case dialect.MySQL:
		query = "SELECT COLUMN_NAME FROM INFORMATION_SCHEMA.COLUMNS WHERE TABLE_SCHEMA = (SELECT DATABASE()) AND TABLE_NAME = ?"
	case dialect.Postgres:
		query = "SELECT column_name FROM INFORMATION_SCHEMA.COLUMNS WHERE TABLE_SCHEMA = CURRENT_SCHEMA() AND TABLE_NAME = $1"
	case dialect.SQLite:
		query = "SELECT name FROM pragma_table_info(?)"
	}
	return m.queryNames(ctx, conn, query, args, table)
}

func (m *Migrate) indexNames(ctx context.Context, conn dialect.ExecQuerier, table string) (map[string]struct{}, error) {
	var (
		query string
		args  = []any{table}
	)
	switch m.dialect {
	case dialect.MySQL:
		query = "SELECT DISTINCT INDEX_NAME FROM INFORMATION_SCHEMA.STATISTICS WHERE TABLE_SCHEMA = (SELECT DATABASE()) AND TABLE_NAME = ?"
	case dialect.Postgres:
		query = "SELECT indexname FROM pg_indexes WHERE schemaname = CURRENT_SCHEMA() AND tablename = $1"
	case dialect.SQLite:
		query = "SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = ?"
	}
	return m.queryNames(ctx, conn, query, args, table)
}

func (m *Migrate) queryNames(ctx context.Context, conn dialect.ExecQuerier, query string, args []any, table string) (map[string]struct{}, error) {
	rows := &sql.Rows{}
	if err := conn.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("schema: inspecting table %q: %w", table, err)
	}
	defer rows.Close()
	names := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names[name] = struct{}{}
	}
	return names, rows.Err()
}

func scanInt(rows *sql.Rows) (int, error) {
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("schema: no rows returned")
	}
	var n int
	if err := rows.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (m *Migrate) createTableSQL(t *Table) string {
	var (
		b     strings.Builder
		parts []string
	)
	b.WriteString("CREATE TABLE ")
	b.WriteString(m.quote(t.Name))
	b.WriteString(" (")
	inlinePK := false
	for _, c := range t.Columns {
		parts = append(parts, m.columnSQL(c))
		if m.dialect == dialect.SQLite && c.Increment && c.PrimaryKey() {
			inlinePK = true
		}
	}
	if !inlinePK {
		pk := make([]string, 0, len(t.PrimaryKey))
		for _, c := range t.PrimaryKey {
			pk = append(pk, m.quote(c.Name))
		}
		parts = append(parts, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pk, ", ")))
	}
	if m.withFKs {
		for _, fk := range t.ForeignKeys {
			parts = append(parts, m.foreignKeySQL(t, fk))
		}
	}
	b.WriteString(strings.Join(parts, ", "))
	b.WriteString(")")
	return b.String()
}

func (m *Migrate) columnSQL(c *Column) string {
	var b strings.Builder
	b.WriteString(m.quote(c.Name))
	b.WriteByte(' ')
	b.WriteString(m.cType(c))
	if m.dialect == dialect.SQLite && c.Increment && c.PrimaryKey() {
		// SQLite requires the rowid alias to be declared inline.
		b.WriteString(" PRIMARY KEY AUTOINCREMENT")
		return b.String()
	}
	if c.Nullable {
		b.WriteString(" NULL")
	} else {
		b.WriteString(" NOT NULL")
	}
	if v, ok := defaultLiteral(c.Default); ok {
		b.WriteString(" DEFAULT ")
		b.WriteString(v)
	}
	if c.Increment && m.dialect == dialect.MySQL {
		b.WriteString(" AUTO_INCREMENT")
	}
	if c.Unique && !c.PrimaryKey() {
		b.WriteString(" UNIQUE")
	}
	if c.Check != "" {
		b.WriteString(" CHECK (")
		b.WriteString(c.Check)
		b.WriteString(")")
	}
	return b.String()
}

func (m *Migrate) createIndexSQL(t *Table, idx *Index) string {
	var b strings.Builder
	b.WriteString("CREATE ")
	if idx.Unique {
		b.WriteString("UNIQUE ")
	}
	b.WriteString("INDEX ")
	b.WriteString(m.quote(idx.Name))
	b.WriteString(" ON ")
	b.WriteString(m.quote(t.Name))
	cols := make([]string, 0, len(idx.Columns))
	for _, c := range idx.Columns {
		cols = append(cols, m.quote(c.Name))
	}
	b.WriteString(" (")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(")")
	return b.String()
}

func (m *Migrate) foreignKeySQL(t *Table, fk *ForeignKey) string {
	symbol := fk.Symbol
	if symbol == "" {
		cols := make([]string, 0, len(fk.Columns))
		for _, c := range fk.Columns {
			cols = append(cols, c.Name)
		}
		symbol = fmt.Sprintf("fk_%s_%s", t.Name, strings.Join(cols, "_"))
	}
	cols := make([]string, 0, len(fk.Columns))
	for _, c := range fk.Columns {
		cols = append(cols, m.quote(c.Name))
	}
	refs := make([]string, 0, len(fk.RefColumns))
	for _, c := range fk.RefColumns {
		refs = append(refs, m.quote(c.Name))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		m.quote(symbol), strings.Join(cols, ", "), m.quote(fk.RefTable.Name), strings.Join(refs, ", "))
	if fk.OnDelete != "" {
		b.WriteString(" ON DELETE ")
		b.WriteString(string(fk.OnDelete))
	}
	if fk.OnUpdate != "" {
		b.WriteString(" ON UPDATE ")
		b.WriteString(string(fk.OnUpdate))
	}
	return b.String()
}

// cType maps a dialect-neutral column type to a concrete database type.
func (m *Migrate) cType(c *Column) string {
	if t, ok := c.SchemaType[m.dialect]; ok {
		return t
	}
	if t, ok := c.SchemaType[""]; ok {
		return t
	}
	switch c.Type {
	case TypeInt:
		if m.dialect == dialect.SQLite {
			return "integer"
		}
		if c.Increment && m.dialect == dialect.Postgres {
			return "bigserial"
		}
		return "bigint"
	case TypeFloat:
		switch m.dialect {
		case dialect.Postgres:
			return "double precision"
		case dialect.SQLite:
			return "real"
		default:
			return "double"
		}
	case TypeBool:
		if m.dialect == dialect.SQLite {
			return "bool"
		}
		return "boolean"
	case TypeString:
		size := c.Size
		if size == 0 {
			size = 255
		}
		return fmt.Sprintf("varchar(%d)", size)
	case TypeText:
		if m.dialect == dialect.MySQL {
			return "longtext"
		}
		return "text"
	case TypeTime:
		switch m.dialect {
		case dialect.Postgres:
			return "timestamptz"
		case dialect.SQLite:
			return "datetime"
		default:
			return "timestamp"
		}
	case TypeJSON:
		switch m.dialect {
		case dialect.Postgres:
			return "jsonb"
		case dialect.SQLite:
			return "text"
		default:
			return "json"
		}
	case TypeUUID:
		switch m.dialect {
		case dialect.Postgres:
			return "uuid"
		case dialect.SQLite:
			return "uuid"
		default:
			return "char(36)"
		}
	default:
		return string(c.Type)
	}
}

// defaultLiteral renders a column default as a SQL literal. Complex
// defaults (functions, expressions) are represented by sql.Raw values.
func defaultLiteral(v any) (string, bool) {
	switch v := v.(type) {
	case nil:
		return "", false
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'", true
	case bool:
		if v {
			return "true", true
		}
		return "false", true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v), true
	case float32, float64:
		return fmt.Sprintf("%v", v), true
	case sql.Querier:
		q, _ := v.Query()
		return q, true
	default:
		return "", false
	}
}

func (m *Migrate) quote(ident string) string {
	b := &sql.Builder{}
	b.SetDialect(m.dialect)
	return b.Quote(ident)
}

func rollback(tx dialect.Tx, err error) error {
	if rerr := tx.Rollback(); rerr != nil {
		return fmt.Errorf("%w: rolling back transaction: %v", err, rerr)
	}
	return err
}
