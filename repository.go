package tabula

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-openapi/inflect"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/tabula/contrib/dataloader"
	"github.com/syssam/tabula/dialect/sql"
	"github.com/syssam/tabula/querylanguage"
	"github.com/syssam/tabula/schema/field"
	"github.com/syssam/tabula/schema/relation"
)

// DefaultCacheTTL is how long cached query results live when the
// repository has a cache and no explicit TTL was configured.
const DefaultCacheTTL = time.Minute

// Repository executes reads for a single entity: filtered lists,
// by-id lookups and counts, with optional eager relation loading and
// result caching.
type Repository struct {
	manager  *EntityManager
	entity   *Entity
	cacheTTL time.Duration
}

func newRepository(m *EntityManager, e *Entity) *Repository {
	return &Repository{manager: m, entity: e, cacheTTL: DefaultCacheTTL}
}

// WithCacheTTL returns a repository whose cached results live for the
// given duration. The receiver is not modified.
func (r *Repository) WithCacheTTL(d time.Duration) *Repository {
	c := *r
	c.cacheTTL = d
	return &c
}

// FindMany returns every row matching the query, hydrated into
// application form, with requested relations eagerly loaded.
func (r *Repository) FindMany(ctx context.Context, q Query) ([]EntityData, error) {
	e := r.entity
	q.Entity = e.Name()
	if p := r.manager.policy; p != nil {
		if err := p.EvalQuery(ctx, &q); err != nil {
			return nil, err
		}
	}
	if err := checkSearchParams(r.manager, e, q.Filter); err != nil {
		return nil, err
	}
	columns, err := r.projection(q.Fields)
	if err != nil {
		return nil, err
	}
	order, err := r.order(q.Sort)
	if err != nil {
		return nil, err
	}
	key, ok := r.cacheKey("findMany", q)
	if ok {
		if cached, err := r.cacheGetList(ctx, key); err == nil && cached != nil {
			return cached, nil
		}
	}
	b := sql.Dialect(r.dialect()).
		Select(columns...).
		From(sql.Table(TableName(e.Name())))
	if len(q.Filter) > 0 {
		p, err := querylanguage.Compile(q.Filter)
		if err != nil {
			return nil, err
		}
		b.Where(p)
	}
	if len(order) > 0 {
		b.OrderBy(order...)
	}
	if q.Limit > 0 {
		b.Limit(q.Limit)
	}
	if q.Offset > 0 {
		b.Offset(q.Offset)
	}
	query, args := b.Query()
	rows := &sql.Rows{}
	if err := r.manager.driver.Query(ctx, query, args, rows); err != nil {
		return nil, NewQueryError(e.Name(), "findMany", err)
	}
	raw, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	out, err := r.manager.Hydrate(e.Name(), raw)
	if err != nil {
		return nil, err
	}
	if len(q.With) > 0 {
		if err := r.eagerLoad(ctx, out, q.With); err != nil {
			return nil, err
		}
	}
	if ok {
		r.cacheSetList(ctx, key, out)
	}
	return out, nil
}

// FindID returns the row with the given primary key, or NotFoundError.
func (r *Repository) FindID(ctx context.Context, id any) (EntityData, error) {
	e := r.entity
	key, err := normalizeKey(e, id)
	if err != nil {
		return nil, err
	}
	if p := r.manager.policy; p != nil {
		q := Query{Entity: e.Name(), Filter: querylanguage.Filter{e.Primary().Name(): key}}
		if err := p.EvalQuery(ctx, &q); err != nil {
			return nil, err
		}
	}
	ck := CacheKey{
		Table:      TableName(e.Name()),
		Operation:  "findID",
		Predicates: fmt.Sprint(key),
	}
	if c := r.manager.cache; c != nil {
		if buf, err := c.Get(ctx, ck.String()); err == nil && buf != nil {
			var row EntityData
			if err := msgpack.Unmarshal(buf, &row); err == nil {
				return row, nil
			}
		}
	}
	columns, err := r.projection(nil)
	if err != nil {
		return nil, err
	}
	b := sql.Dialect(r.dialect()).
		Select(columns...).
		From(sql.Table(TableName(e.Name()))).
		Where(sql.EQ(e.Primary().Name(), key))
	query, args := b.Query()
	rows := &sql.Rows{}
	if err := r.manager.driver.Query(ctx, query, args, rows); err != nil {
		return nil, NewQueryError(e.Name(), "findID", err)
	}
	raw, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, NewNotFoundErrorWithID(e.Name(), key)
	}
	hydrated, err := r.manager.Hydrate(e.Name(), raw[:1])
	if err != nil {
		return nil, err
	}
	if c := r.manager.cache; c != nil {
		if buf, err := msgpack.Marshal(hydrated[0]); err == nil {
			_ = c.Set(ctx, ck.String(), buf, r.cacheTTL)
		}
	}
	return hydrated[0], nil
}

// Count returns the number of rows matching the filter.
func (r *Repository) Count(ctx context.Context, filter querylanguage.Filter) (int, error) {
	e := r.entity
	if err := checkSearchParams(r.manager, e, filter); err != nil {
		return 0, err
	}
	b := sql.Dialect(r.dialect()).
		Select(sql.Count("*")).
		From(sql.Table(TableName(e.Name())))
	if len(filter) > 0 {
		p, err := querylanguage.Compile(filter)
		if err != nil {
			return 0, err
		}
		b.Where(p)
	}
	query, args := b.Query()
	rows := &sql.Rows{}
	if err := r.manager.driver.Query(ctx, query, args, rows); err != nil {
		return 0, NewQueryError(e.Name(), "count", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, err
		}
		return 0, nil
	}
	var n int
	if err := rows.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// projection resolves the columns a read selects: the requested fields
// or all stored fields, minus fields hidden in the read context. The
// primary key is always included so relations and caching can key rows.
func (r *Repository) projection(requested []string) ([]string, error) {
	e := r.entity
	pk := e.Primary().Name()
	var out []string
	if len(requested) == 0 {
		for _, f := range e.Fields() {
			if f.Type() == field.TypeVirtual || f.Hidden(field.ContextRead) {
				continue
			}
			out = append(out, f.Name())
		}
		return out, nil
	}
	var unknown []string
	seen := map[string]bool{}
	for _, name := range requested {
		f, ok := e.Field(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		if f.Type() == field.TypeVirtual || f.Hidden(field.ContextRead) || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	if len(unknown) > 0 {
		return nil, NewInvalidSearchParamsError(e.Name(), unknown...)
	}
	if !seen[pk] {
		out = append([]string{pk}, out...)
	}
	return out, nil
}

// order translates sort terms ("name", "-created_at") into ORDER BY
// terms, validating each field against the entity.
func (r *Repository) order(sortTerms []string) ([]string, error) {
	e := r.entity
	var (
		out     []string
		unknown []string
	)
	for _, term := range sortTerms {
		name := term
		desc := false
		if strings.HasPrefix(term, "-") {
			name = term[1:]
			desc = true
		}
		if _, ok := e.Field(name); !ok {
			unknown = append(unknown, name)
			continue
		}
		if desc {
			out = append(out, sql.Desc(name))
		} else {
			out = append(out, sql.Asc(name))
		}
	}
	if len(unknown) > 0 {
		return nil, NewInvalidSearchParamsError(e.Name(), unknown...)
	}
	return out, nil
}

// eagerLoad fetches the requested relations, one query per relation,
// and attaches the related rows under the relation reference key.
// Fetches run concurrently; attachment is serialized afterwards so row
// maps are never written from two goroutines.
func (r *Repository) eagerLoad(ctx context.Context, rows []EntityData, with []string) error {
	if len(rows) == 0 {
		return nil
	}
	attachers := make([]func(), len(with))
	g, gctx := errgroup.WithContext(ctx)
	for i, ref := range with {
		rel, ok := r.manager.Relation(r.entity.Name(), ref)
		if !ok {
			return NewInvalidSearchParamsError(r.entity.Name(), ref)
		}
		i, ref, rel := i, ref, rel
		g.Go(func() error {
			attach, err := r.loadRelation(gctx, rows, ref, rel)
			if err != nil {
				return err
			}
			attachers[i] = attach
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, attach := range attachers {
		if attach != nil {
			attach()
		}
	}
	return nil
}

// loadRelation fetches the related rows of one relation and returns a
// closure that attaches them to the source rows.
func (r *Repository) loadRelation(ctx context.Context, rows []EntityData, ref string, rel *relation.Relation) (func(), error) {
	target, err := r.manager.Entity(rel.Target())
	if err != nil {
		return nil, err
	}
	switch rel.Type() {
	case relation.ManyToOne, relation.OneToOne:
		// The FK value is stored on the source row under the reference.
		keys := distinctKeys(rows, ref)
		if len(keys) == 0 {
			return func() {}, nil
		}
		related, err := r.fetchByColumn(ctx, target, target.Primary().Name(), keys)
		if err != nil {
			return nil, err
		}
		byPK := dataloader.GroupByKey(related, func(row EntityData) any {
			return row[target.Primary().Name()]
		})
		return func() {
			for _, row := range rows {
				if fk := row[ref]; fk != nil {
					if group := byPK[fk]; len(group) > 0 {
						row[ref] = group[0]
					}
				}
			}
		}, nil
	case relation.OneToMany:
		// Child rows point back at the source through the inverse
		// relation's reference column.
		inverse, ok := r.inverseReference(rel)
		if !ok {
			return nil, NewNotLoadedError(ref)
		}
		pk := r.entity.Primary().Name()
		keys := distinctKeys(rows, pk)
		related, err := r.fetchByColumn(ctx, target, inverse, keys)
		if err != nil {
			return nil, err
		}
		byFK := dataloader.GroupByKey(related, func(row EntityData) any {
			return row[inverse]
		})
		return func() {
			for _, row := range rows {
				group := byFK[row[pk]]
				if group == nil {
					group = []EntityData{}
				}
				row[ref] = group
			}
		}, nil
	case relation.ManyToMany:
		return r.loadManyToMany(ctx, rows, ref, rel, target)
	default:
		return nil, NewNotLoadedError(ref)
	}
}

// loadManyToMany resolves a many-to-many relation through its join
// table in two queries: link pairs first, then the target rows.
func (r *Repository) loadManyToMany(ctx context.Context, rows []EntityData, ref string, rel *relation.Relation, target *Entity) (func(), error) {
	var (
		sourceTable = TableName(rel.Source())
		targetTable = TableName(rel.Target())
		joinTable   = fmt.Sprintf("%s_%s", sourceTable, rel.Reference())
		sourceCol   = inflect.Singularize(sourceTable) + "_id"
		targetCol   = inflect.Singularize(targetTable) + "_id"
		pk          = r.entity.Primary().Name()
	)
	keys := distinctKeys(rows, pk)
	if len(keys) == 0 {
		return func() {}, nil
	}
	b := sql.Dialect(r.dialect()).
		Select(sourceCol, targetCol).
		From(sql.Table(joinTable)).
		Where(sql.In(sourceCol, keys...))
	query, args := b.Query()
	linkRows := &sql.Rows{}
	if err := r.manager.driver.Query(ctx, query, args, linkRows); err != nil {
		return nil, NewQueryError(r.entity.Name(), "eager:"+ref, err)
	}
	links, err := scanRows(linkRows)
	if err != nil {
		return nil, err
	}
	targetKeys := make([]any, 0, len(links))
	seen := map[any]bool{}
	for _, l := range links {
		if k := l[targetCol]; k != nil && !seen[k] {
			seen[k] = true
			targetKeys = append(targetKeys, k)
		}
	}
	var related []EntityData
	if len(targetKeys) > 0 {
		related, err = r.fetchByColumn(ctx, target, target.Primary().Name(), targetKeys)
		if err != nil {
			return nil, err
		}
	}
	byPK := dataloader.GroupByKey(related, func(row EntityData) any {
		return row[target.Primary().Name()]
	})
	return func() {
		bySource := make(map[any][]EntityData, len(rows))
		for _, l := range links {
			if group := byPK[l[targetCol]]; len(group) > 0 {
				bySource[l[sourceCol]] = append(bySource[l[sourceCol]], group[0])
			}
		}
		for _, row := range rows {
			group := bySource[row[pk]]
			if group == nil {
				group = []EntityData{}
			}
			row[ref] = group
		}
	}, nil
}

// fetchByColumn reads target rows whose column is in keys, hydrated.
func (r *Repository) fetchByColumn(ctx context.Context, target *Entity, column string, keys []any) ([]EntityData, error) {
	var cols []string
	for _, f := range target.Fields() {
		if f.Type() == field.TypeVirtual || f.Hidden(field.ContextRead) {
			continue
		}
		cols = append(cols, f.Name())
	}
	b := sql.Dialect(r.dialect()).
		Select(cols...).
		From(sql.Table(TableName(target.Name()))).
		Where(sql.In(column, keys...))
	query, args := b.Query()
	rows := &sql.Rows{}
	if err := r.manager.driver.Query(ctx, query, args, rows); err != nil {
		return nil, NewQueryError(target.Name(), "eager", err)
	}
	raw, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	return r.manager.Hydrate(target.Name(), raw)
}

// inverseReference finds the FK column on the relation target that
// points back at the source entity.
func (r *Repository) inverseReference(rel *relation.Relation) (string, bool) {
	for _, inv := range r.manager.Relations(rel.Target()) {
		if inv.Target() == rel.Source() && inv.Type() != relation.ManyToMany {
			return inv.Reference(), true
		}
	}
	return "", false
}

// distinctKeys collects the distinct non-nil values stored under key.
func distinctKeys(rows []EntityData, key string) []any {
	seen := make(map[any]bool, len(rows))
	out := make([]any, 0, len(rows))
	for _, row := range rows {
		v := row[key]
		if v == nil || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// cacheKey builds the canonical cache key of a list query. JSON is
// used for the predicate part because encoding/json renders map keys
// in sorted order, which keeps the key deterministic.
func (r *Repository) cacheKey(op string, q Query) (string, bool) {
	if r.manager.cache == nil {
		return "", false
	}
	pred, err := json.Marshal(struct {
		Filter querylanguage.Filter `json:"filter,omitempty"`
		Fields []string             `json:"fields,omitempty"`
		With   []string             `json:"with,omitempty"`
	}{q.Filter, q.Fields, q.With})
	if err != nil {
		return "", false
	}
	return CacheKey{
		Table:      TableName(r.entity.Name()),
		Operation:  op,
		Predicates: string(pred),
		OrderBy:    strings.Join(q.Sort, ","),
		Limit:      q.Limit,
		Offset:     q.Offset,
	}.String(), true
}

func (r *Repository) cacheGetList(ctx context.Context, key string) ([]EntityData, error) {
	buf, err := r.manager.cache.Get(ctx, key)
	if err != nil || buf == nil {
		return nil, err
	}
	var out []EntityData
	if err := msgpack.Unmarshal(buf, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) cacheSetList(ctx context.Context, key string, rows []EntityData) {
	buf, err := msgpack.Marshal(rows)
	if err != nil {
		r.manager.logger.Warn("tabula: caching query result failed", "entity", r.entity.Name(), "err", err)
		return
	}
	if err := r.manager.cache.Set(ctx, key, buf, r.cacheTTL); err != nil {
		r.manager.logger.Warn("tabula: caching query result failed", "entity", r.entity.Name(), "err", err)
	}
}

func (r *Repository) dialect() string { return r.manager.driver.Dialect() }
