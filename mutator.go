package tabula

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/syssam/tabula/dialect"
	"github.com/syssam/tabula/dialect/sql"
	"github.com/syssam/tabula/events"
	"github.com/syssam/tabula/querylanguage"
	"github.com/syssam/tabula/schema/field"
	"github.com/syssam/tabula/schema/relation"
)

// Mutator executes writes for a single entity. Every operation
// validates and transforms client data through the entity's fields
// before any SQL runs, so a failed validation never leaves a partial
// write behind.
type Mutator struct {
	manager      *EntityManager
	entity       *Entity
	systemWrites bool
}

func newMutator(m *EntityManager, e *Entity) *Mutator {
	return &Mutator{manager: m, entity: e}
}

// AllowSystemWrites returns a mutator that may write to system-typed
// entities. The receiver is not modified.
func (mu *Mutator) AllowSystemWrites() *Mutator {
	c := *mu
	c.systemWrites = true
	return &c
}

// mutation is the Mutation view handed to the configured policy.
type mutation struct {
	op           Op
	entity       *Entity
	data         EntityData
	systemWrites bool
}

func (m mutation) Op() Op                    { return m.op }
func (m mutation) EntityName() string        { return m.entity.Name() }
func (m mutation) Data() EntityData          { return m.data }
func (m mutation) SystemEntity() bool        { return m.entity.IsSystem() }
func (m mutation) SystemWritesEnabled() bool { return m.systemWrites }

// gate applies the system-entity write gate and the configured policy.
func (mu *Mutator) gate(ctx context.Context, op Op, data EntityData) error {
	if mu.entity.IsSystem() && !mu.systemWrites {
		return NewPrivacyError(mu.entity.Name(), op.String(), "system entity writes are disabled")
	}
	if p := mu.manager.policy; p != nil {
		if err := p.EvalMutation(ctx, mutation{op: op, entity: mu.entity, data: data, systemWrites: mu.systemWrites}); err != nil {
			return err
		}
	}
	return nil
}

// InsertOne validates data against the entity, fills defaults and the
// primary key, and inserts one row. The stored row is returned in its
// application representation.
func (mu *Mutator) InsertOne(ctx context.Context, data EntityData) (EntityData, error) {
	e := mu.entity
	if err := mu.gate(ctx, OpCreate, data); err != nil {
		return nil, err
	}
	merged := e.Defaults()
	for k, v := range data {
		merged[k] = v
	}
	validated, err := mu.validatedData(ctx, field.ContextCreate, merged, data)
	if err != nil {
		return nil, err
	}
	for _, f := range e.Fields() {
		if !f.Required() {
			continue
		}
		if v, ok := validated[f.Name()]; !ok || v == nil {
			return nil, NewEntityValidationError(e.Name(), f.Name(), errors.New("value is required"))
		}
	}
	pk := e.Primary()
	if pk.Format() != field.FormatInteger {
		res := pk.NewValueContext(ctx, e.Name(), validated)
		switch {
		case !res.Success:
			return nil, NewEntityValidationError(e.Name(), pk.Name(), res.Err)
		case res.Critical:
			return nil, NewMutationError(e.Name(), OpCreate.String(), res.Err)
		case res.Value != nil:
			validated[pk.Name()] = res.Value
		}
	}
	if err := mu.publish(ctx, events.MutatorInsertBefore, validated[pk.Name()], validated); err != nil {
		return nil, err
	}
	stored, err := mu.insertRow(ctx, validated)
	if err != nil {
		return nil, mu.mapErr(err)
	}
	mu.invalidate(ctx)
	if err := mu.publish(ctx, events.MutatorInsertAfter, stored[pk.Name()], stored); err != nil {
		return nil, err
	}
	return stored, nil
}

// UpdateOne validates data and updates the row with the given id,
// returning its stored state after the update.
func (mu *Mutator) UpdateOne(ctx context.Context, id any, data EntityData) (EntityData, error) {
	e := mu.entity
	if err := mu.gate(ctx, OpUpdateOne, data); err != nil {
		return nil, err
	}
	key, err := mu.normalizeID(id)
	if err != nil {
		return nil, err
	}
	validated, err := mu.validatedData(ctx, field.ContextUpdate, data, data)
	if err != nil {
		return nil, err
	}
	if len(validated) == 0 {
		return nil, NewEntityValidationError(e.Name(), "", errors.New("no writable fields in update data"))
	}
	if err := mu.publish(ctx, events.MutatorUpdateBefore, key, validated); err != nil {
		return nil, err
	}
	pk := e.Primary()
	b := sql.Dialect(mu.dialect()).Update(TableName(e.Name()))
	for _, name := range sortedKeys(validated) {
		if v := validated[name]; v == nil {
			b.SetNull(name)
		} else {
			b.Set(name, v)
		}
	}
	b.Where(sql.EQ(pk.Name(), key))
	query, args := b.Query()
	var res sql.Result
	if err := mu.manager.driver.Exec(ctx, query, args, &res); err != nil {
		return nil, mu.mapErr(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, NewNotFoundErrorWithID(e.Name(), key)
	}
	stored, err := mu.selectByID(ctx, key)
	if err != nil {
		return nil, err
	}
	mu.invalidate(ctx)
	if err := mu.publish(ctx, events.MutatorUpdateAfter, key, stored); err != nil {
		return nil, err
	}
	return stored, nil
}

// DeleteOne deletes the row with the given id.
func (mu *Mutator) DeleteOne(ctx context.Context, id any) error {
	e := mu.entity
	if err := mu.gate(ctx, OpDeleteOne, nil); err != nil {
		return err
	}
	key, err := mu.normalizeID(id)
	if err != nil {
		return err
	}
	if err := mu.publish(ctx, events.MutatorDeleteBefore, key, nil); err != nil {
		return err
	}
	b := sql.Dialect(mu.dialect()).Delete(TableName(e.Name()))
	b.Where(sql.EQ(e.Primary().Name(), key))
	query, args := b.Query()
	var res sql.Result
	if err := mu.manager.driver.Exec(ctx, query, args, &res); err != nil {
		return mu.mapErr(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return NewNotFoundErrorWithID(e.Name(), key)
	}
	mu.invalidate(ctx)
	return mu.publish(ctx, events.MutatorDeleteAfter, key, nil)
}

// UpdateWhere validates data and the filter, then updates every
// matching row. It returns the number of affected rows.
func (mu *Mutator) UpdateWhere(ctx context.Context, data EntityData, filter querylanguage.Filter) (int64, error) {
	e := mu.entity
	if err := mu.gate(ctx, OpUpdate, data); err != nil {
		return 0, err
	}
	if err := mu.checkFilter(filter); err != nil {
		return 0, err
	}
	validated, err := mu.validatedData(ctx, field.ContextUpdate, data, data)
	if err != nil {
		return 0, err
	}
	if len(validated) == 0 {
		return 0, NewEntityValidationError(e.Name(), "", errors.New("no writable fields in update data"))
	}
	p, err := querylanguage.Compile(filter)
	if err != nil {
		return 0, err
	}
	b := sql.Dialect(mu.dialect()).Update(TableName(e.Name()))
	for _, name := range sortedKeys(validated) {
		if v := validated[name]; v == nil {
			b.SetNull(name)
		} else {
			b.Set(name, v)
		}
	}
	b.Where(p)
	query, args := b.Query()
	var res sql.Result
	if err := mu.manager.driver.Exec(ctx, query, args, &res); err != nil {
		return 0, mu.mapErr(err)
	}
	mu.invalidate(ctx)
	return res.RowsAffected()
}

// DeleteWhere validates the filter and deletes every matching row. It
// returns the number of affected rows.
func (mu *Mutator) DeleteWhere(ctx context.Context, filter querylanguage.Filter) (int64, error) {
	e := mu.entity
	if err := mu.gate(ctx, OpDelete, nil); err != nil {
		return 0, err
	}
	if err := mu.checkFilter(filter); err != nil {
		return 0, err
	}
	p, err := querylanguage.Compile(filter)
	if err != nil {
		return 0, err
	}
	b := sql.Dialect(mu.dialect()).Delete(TableName(e.Name()))
	b.Where(p)
	query, args := b.Query()
	var res sql.Result
	if err := mu.manager.driver.Exec(ctx, query, args, &res); err != nil {
		return 0, mu.mapErr(err)
	}
	mu.invalidate(ctx)
	return res.RowsAffected()
}

func (mu *Mutator) checkFilter(filter querylanguage.Filter) error {
	return checkSearchParams(mu.manager, mu.entity, filter)
}

// checkSearchParams verifies every property the filter references
// exists on the entity or names a registered relation reference.
func checkSearchParams(m *EntityManager, e *Entity, filter querylanguage.Filter) error {
	var unknown []string
	for _, name := range querylanguage.PropertyNames(filter) {
		if _, ok := e.Field(name); ok {
			continue
		}
		if _, ok := m.Relation(e.Name(), name); ok {
			continue
		}
		unknown = append(unknown, name)
	}
	if len(unknown) > 0 {
		return NewInvalidSearchParamsError(e.Name(), unknown...)
	}
	return nil
}

// validatedData validates and transforms merged data for persistence.
// Fillability is only enforced for keys the client supplied; defaults
// merged in by the framework bypass it.
func (mu *Mutator) validatedData(ctx context.Context, fctx field.Context, merged, client EntityData) (EntityData, error) {
	e := mu.entity
	validated := make(EntityData, len(merged))
	for _, key := range sortedKeys(merged) {
		v := merged[key]
		f, ok := e.Field(key)
		if !ok {
			if r, ok := mu.manager.Relation(e.Name(), key); ok {
				stored, err := mu.relationKey(r, key, v)
				if err != nil {
					return nil, err
				}
				validated[key] = stored
				continue
			}
			return nil, NewEntityValidationError(e.Name(), key, errors.New("unknown field"))
		}
		if _, fromClient := client[key]; fromClient && !f.Fillable(fctx) {
			return nil, NewEntityValidationError(e.Name(), key, fmt.Errorf("field is not fillable in the %s context", fctx))
		}
		stored, err := f.TransformPersist(ctx, v, &field.PersistOptions{Context: fctx, Entity: e.Name()})
		if err != nil {
			return nil, NewEntityValidationError(e.Name(), key, err)
		}
		validated[key] = stored
	}
	return validated, nil
}

// relationKey validates a relation reference supplied as row data.
// Only cardinalities that store the key on the source row accept one,
// and the value must match the target's primary key format. A nil
// value clears the link.
func (mu *Mutator) relationKey(r *relation.Relation, key string, v any) (any, error) {
	e := mu.entity
	switch r.Type() {
	case relation.ManyToOne, relation.OneToOne:
	default:
		return nil, NewEntityValidationError(e.Name(), key,
			fmt.Errorf("%s relation to %q stores no key on this entity", r.Type(), r.Target()))
	}
	if v == nil {
		return nil, nil
	}
	target, err := mu.manager.Entity(r.Target())
	if err != nil {
		return nil, NewEntityValidationError(e.Name(), key,
			fmt.Errorf("relation target %q is not registered", r.Target()))
	}
	if target.Primary().Format() == field.FormatInteger {
		n, ok := asInt64(v)
		if !ok {
			return nil, NewEntityValidationError(e.Name(), key,
				fmt.Errorf("relation to %q expects an integer key, got %T", r.Target(), v))
		}
		return n, nil
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return nil, NewEntityValidationError(e.Name(), key,
			fmt.Errorf("relation to %q expects a non-empty string key, got %T", r.Target(), v))
	}
	return s, nil
}

// insertRow executes the INSERT and returns the stored row hydrated
// into its application form.
func (mu *Mutator) insertRow(ctx context.Context, validated EntityData) (EntityData, error) {
	e := mu.entity
	table := TableName(e.Name())
	columns := sortedKeys(validated)
	values := make([]any, 0, len(columns))
	for _, c := range columns {
		values = append(values, validated[c])
	}
	b := sql.Dialect(mu.dialect()).Insert(table).Columns(columns...).Values(values...)
	pk := e.Primary()
	if mu.dialect() == dialect.Postgres {
		b.Returning(mu.storedColumns()...)
		query, args := b.Query()
		rows := &sql.Rows{}
		if err := mu.manager.driver.Query(ctx, query, args, rows); err != nil {
			return nil, err
		}
		raw, err := scanRows(rows)
		if err != nil {
			return nil, err
		}
		if len(raw) == 0 {
			return nil, NewNotFoundError(e.Name())
		}
		hydrated, err := mu.manager.Hydrate(e.Name(), raw[:1])
		if err != nil {
			return nil, err
		}
		return hydrated[0], nil
	}
	query, args := b.Query()
	var res sql.Result
	if err := mu.manager.driver.Exec(ctx, query, args, &res); err != nil {
		return nil, err
	}
	key := validated[pk.Name()]
	if key == nil {
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("tabula: reading inserted id: %w", err)
		}
		key = id
	}
	return mu.selectByID(ctx, key)
}

// selectByID reads one row by primary key and hydrates it.
func (mu *Mutator) selectByID(ctx context.Context, key any) (EntityData, error) {
	e := mu.entity
	b := sql.Dialect(mu.dialect()).
		Select(mu.storedColumns()...).
		From(sql.Table(TableName(e.Name()))).
		Where(sql.EQ(e.Primary().Name(), key))
	query, args := b.Query()
	rows := &sql.Rows{}
	if err := mu.manager.driver.Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	raw, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, NewNotFoundErrorWithID(e.Name(), key)
	}
	hydrated, err := mu.manager.Hydrate(e.Name(), raw[:1])
	if err != nil {
		return nil, err
	}
	return hydrated[0], nil
}

// storedColumns returns the physical column names of the entity, in
// field order.
func (mu *Mutator) storedColumns() []string {
	fields := mu.entity.Fields()
	cols := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Type() == field.TypeVirtual {
			continue
		}
		cols = append(cols, f.Name())
	}
	return cols
}

func (mu *Mutator) normalizeID(id any) (any, error) {
	return normalizeKey(mu.entity, id)
}

// normalizeKey checks that id is compatible with the entity's primary
// key format. Integer-format keys accept any integer-compatible value;
// other formats require a non-empty string.
func normalizeKey(e *Entity, id any) (any, error) {
	pk := e.Primary()
	if pk.Format() == field.FormatInteger {
		n, ok := asInt64(id)
		if !ok {
			return nil, NewEntityValidationError(e.Name(), pk.Name(), fmt.Errorf("expected an integer id, got %T", id))
		}
		return n, nil
	}
	s, ok := id.(string)
	if !ok || s == "" {
		return nil, NewEntityValidationError(e.Name(), pk.Name(), fmt.Errorf("expected a non-empty string id, got %T", id))
	}
	return s, nil
}

func asInt64(v any) (int64, bool) {
	switch v := v.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func (mu *Mutator) publish(ctx context.Context, name string, id any, data EntityData) error {
	return mu.manager.events.Publish(ctx, name, events.Payload{
		Entity:   mu.entity.Name(),
		EntityID: id,
		Data:     data,
	})
}

// invalidate drops every cached query of the entity.
func (mu *Mutator) invalidate(ctx context.Context) {
	if c := mu.manager.cache; c != nil {
		if err := c.DeletePrefix(ctx, TableName(mu.entity.Name())+":"); err != nil {
			mu.manager.logger.Warn("tabula: cache invalidation failed", "entity", mu.entity.Name(), "err", err)
		}
	}
}

// mapErr maps driver constraint violations to ConstraintError.
func (mu *Mutator) mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case sql.IsUniqueConstraintError(err):
		return NewConstraintError("unique constraint violation", err)
	case sql.IsForeignKeyConstraintError(err):
		return NewConstraintError("foreign key constraint violation", err)
	case sql.IsCheckConstraintError(err):
		return NewConstraintError("check constraint violation", err)
	default:
		return err
	}
}

func (mu *Mutator) dialect() string { return mu.manager.driver.Dialect() }

func sortedKeys(m EntityData) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// scanRows reads every row into a generic column map.
func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	defer rows.Close()
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		refs := make([]any, len(columns))
		for i := range values {
			refs[i] = &values[i]
		}
		if err := rows.Scan(refs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(columns))
		for i, c := range columns {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[c] = v
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
