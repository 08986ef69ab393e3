package tabula

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-openapi/inflect"

	"github.com/syssam/tabula/dialect/sql"
	"github.com/syssam/tabula/dialect/sql/schema"
	"github.com/syssam/tabula/dialect/sqlschema"
	"github.com/syssam/tabula/schema/field"
	"github.com/syssam/tabula/schema/index"
	"github.com/syssam/tabula/schema/relation"
)

// TableName returns the table an entity is stored in. Entity names are
// pluralized and snake-cased, and names that already look like table
// names pass through unchanged.
func TableName(entity string) string {
	return inflect.Pluralize(inflect.Underscore(entity))
}

// Tables renders the registered entity graph as relational table
// definitions, ready to be passed to the migration engine.
func (m *EntityManager) Tables() ([]*schema.Table, error) {
	m.defs.mu.RLock()
	defer m.defs.mu.RUnlock()
	tables := make([]*schema.Table, 0, len(m.defs.order))
	byEntity := make(map[string]*schema.Table, len(m.defs.order))
	for _, name := range m.defs.order {
		e := m.defs.entities[name]
		t, err := m.entityTable(e)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
		byEntity[name] = t
	}
	// Foreign keys and join tables are resolved after all tables exist,
	// so relations may reference entities registered in any order.
	for _, name := range m.defs.order {
		e := m.defs.entities[name]
		t := byEntity[name]
		for _, f := range e.Fields() {
			if f.Type() != field.TypeRelation {
				continue
			}
			target := f.Descriptor().Target
			ref, ok := byEntity[target]
			if !ok {
				return nil, NewConfigurationError("entity", e.Name(), fmt.Errorf("relation field %q targets unknown entity %q", f.Name(), target))
			}
			col, ok := t.Column(f.Name())
			if !ok {
				// Excluded by a skip annotation.
				continue
			}
			col.Type = keyColumnType(ref)
			if col.Type == schema.TypeString {
				col.Size = 64
			}
			onDelete := schema.NoAction
			if col.Nullable {
				onDelete = schema.SetNull
			}
			ann, _ := sqlschema.Extract(f.Descriptor().Annotations)
			if ann.OnDelete != "" {
				onDelete = schema.ReferenceOption(ann.OnDelete)
			}
			fk := &schema.ForeignKey{
				Symbol:     fmt.Sprintf("fk_%s_%s", t.Name, f.Name()),
				Columns:    []*schema.Column{col},
				RefTable:   ref,
				RefColumns: ref.PrimaryKey,
				OnDelete:   onDelete,
			}
			if ann.OnUpdate != "" {
				fk.OnUpdate = schema.ReferenceOption(ann.OnUpdate)
			}
			t.AddForeignKey(fk)
		}
	}
	joins, err := m.joinTables(byEntity)
	if err != nil {
		return nil, err
	}
	return append(tables, joins...), nil
}

// entityTable renders a single entity as a table definition.
func (m *EntityManager) entityTable(e *Entity) (*schema.Table, error) {
	t := schema.NewTable(TableName(e.Name()))
	if c := e.Config().Description; c != "" {
		t.SetComment(c)
	}
	for _, f := range e.Fields() {
		if f.Type() == field.TypeVirtual {
			continue
		}
		c, err := columnOf(e, f)
		if err != nil {
			return nil, err
		}
		if c == nil {
			continue
		}
		if f.Type() == field.TypePrimary {
			t.AddPrimary(c)
			continue
		}
		t.AddColumn(c)
	}
	for _, idx := range m.indexesLocked(e.Name()) {
		t.AddIndex(idx.Name(), idx.Unique(), idx.Fields())
	}
	return t, nil
}

// columnOf maps one field to its column definition. A nil column with a
// nil error means the field is excluded from rendering.
func columnOf(e *Entity, f field.Field) (*schema.Column, error) {
	d := f.Descriptor()
	ann, _ := sqlschema.Extract(d.Annotations)
	if ann.Skip {
		return nil, nil
	}
	c := &schema.Column{
		Name:     f.Name(),
		Nullable: d.Nullable,
		Unique:   d.Unique,
		Comment:  d.Comment,
	}
	if d.Default != nil {
		c.Default = d.Default
	}
	switch f.Type() {
	case field.TypePrimary:
		switch d.Format {
		case field.FormatUUID:
			c.Type = schema.TypeUUID
		case field.FormatCustom:
			c.Type = schema.TypeString
			c.Size = 64
		default:
			c.Type = schema.TypeInt
			c.Increment = true
		}
	case field.TypeText:
		if d.Size > 0 {
			c.Type = schema.TypeString
			c.Size = int64(d.Size)
		} else {
			c.Type = schema.TypeText
		}
	case field.TypeNumber:
		if d.Integer {
			c.Type = schema.TypeInt
		} else {
			c.Type = schema.TypeFloat
		}
	case field.TypeBool:
		c.Type = schema.TypeBool
	case field.TypeDate:
		c.Type = schema.TypeTime
	case field.TypeEnum:
		c.Type = schema.TypeString
		c.Enums = append([]string(nil), d.Values...)
	case field.TypeJSON, field.TypeMedia:
		c.Type = schema.TypeJSON
	case field.TypeRelation:
		if d.Target == "" {
			return nil, NewConfigurationError("entity", e.Name(), fmt.Errorf("relation field %q has no target entity", f.Name()))
		}
		// The concrete key type is patched once all tables exist and
		// the target's primary key is known.
		c.Type = schema.TypeInt
	default:
		return nil, NewConfigurationError("entity", e.Name(), fmt.Errorf("field %q has no column mapping", f.Name()))
	}
	if len(d.SchemaType) > 0 {
		c.SchemaType = d.SchemaType
	}
	if ann.Size > 0 {
		c.Size = ann.Size
		if c.Type == schema.TypeText {
			c.Type = schema.TypeString
		}
	}
	if ann.ColumnType != "" || len(ann.ColumnTypes) > 0 {
		if c.SchemaType == nil {
			c.SchemaType = make(map[string]string)
		}
		if ann.ColumnType != "" {
			c.SchemaType[""] = ann.ColumnType
		}
		for d, t := range ann.ColumnTypes {
			c.SchemaType[d] = t
		}
	}
	if ann.Check != "" {
		c.Check = ann.Check
	}
	if ann.Default != "" {
		c.Default = sql.Raw(ann.Default)
	}
	if ann.DefaultExpr != "" {
		c.Default = sql.Raw(ann.DefaultExpr)
	}
	return c, nil
}

// joinTables renders a join table for every many-to-many relation.
func (m *EntityManager) joinTables(byEntity map[string]*schema.Table) ([]*schema.Table, error) {
	var tables []*schema.Table
	for _, r := range m.defs.relations {
		if r.Type() != relation.ManyToMany {
			continue
		}
		source, ok := byEntity[r.Source()]
		if !ok {
			return nil, NewEntityNotDefinedError(r.Source())
		}
		target, ok := byEntity[r.Target()]
		if !ok {
			return nil, NewEntityNotDefinedError(r.Target())
		}
		name := fmt.Sprintf("%s_%s", TableName(r.Source()), r.Reference())
		sourceCol := &schema.Column{Name: inflect.Singularize(TableName(r.Source())) + "_id", Type: keyColumnType(source)}
		targetCol := &schema.Column{Name: inflect.Singularize(TableName(r.Target())) + "_id", Type: keyColumnType(target)}
		t := schema.NewTable(name).
			AddPrimary(sourceCol).
			AddPrimary(targetCol)
		t.AddForeignKey(&schema.ForeignKey{
			Symbol:     fmt.Sprintf("fk_%s_%s", name, sourceCol.Name),
			Columns:    []*schema.Column{sourceCol},
			RefTable:   source,
			RefColumns: source.PrimaryKey,
			OnDelete:   schema.Cascade,
		}).AddForeignKey(&schema.ForeignKey{
			Symbol:     fmt.Sprintf("fk_%s_%s", name, targetCol.Name),
			Columns:    []*schema.Column{targetCol},
			RefTable:   target,
			RefColumns: target.PrimaryKey,
			OnDelete:   schema.Cascade,
		})
		tables = append(tables, t)
	}
	return tables, nil
}

// keyColumnType returns the column type of a table's single-column
// primary key, defaulting to integer for composite or missing keys.
func keyColumnType(t *schema.Table) schema.ColumnType {
	if len(t.PrimaryKey) == 1 {
		pk := t.PrimaryKey[0]
		if pk.Type == schema.TypeUUID || pk.Type == schema.TypeString {
			return pk.Type
		}
	}
	return schema.TypeInt
}

// indexesLocked returns the registered indexes of an entity. The caller
// must hold defs.mu.
func (m *EntityManager) indexesLocked(entity string) []*index.Index {
	idxs := make([]*index.Index, 0)
	for _, idx := range m.defs.indexes {
		if idx.Entity() == entity {
			idxs = append(idxs, idx)
		}
	}
	sort.Slice(idxs, func(i, j int) bool { return idxs[i].Name() < idxs[j].Name() })
	return idxs
}

// CreateSchema renders the entity graph as tables and applies the
// pending schema changes to the connected database.
func (m *EntityManager) CreateSchema(ctx context.Context, opts ...schema.MigrateOption) error {
	tables, err := m.Tables()
	if err != nil {
		return err
	}
	mig, err := schema.NewMigrate(m.driver, opts...)
	if err != nil {
		return err
	}
	return mig.Create(ctx, tables...)
}

// DiffSchema plans the schema changes for the entity graph and writes
// them as versioned migration files.
func (m *EntityManager) DiffSchema(ctx context.Context, name string, opts ...schema.MigrateOption) error {
	tables, err := m.Tables()
	if err != nil {
		return err
	}
	mig, err := schema.NewMigrate(m.driver, opts...)
	if err != nil {
		return err
	}
	return mig.NamedDiff(ctx, name, tables...)
}
