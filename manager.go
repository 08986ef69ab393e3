package tabula

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/syssam/tabula/dialect"
	"github.com/syssam/tabula/events"
	"github.com/syssam/tabula/idgen"
	"github.com/syssam/tabula/schema/index"
	"github.com/syssam/tabula/schema/relation"
)

// definitions is the registry state shared between a manager and its
// forks.
type definitions struct {
	mu        sync.RWMutex
	entities  map[string]*Entity
	order     []string
	relations []*relation.Relation
	indexes   map[string]*index.Index
	pending   []pendingIndex
}

type pendingIndex struct {
	entity string
	desc   *index.Descriptor
	force  bool
}

// EntityManager owns the entity, relation and index definitions for one
// driver and is the factory for Repository and Mutator instances.
type EntityManager struct {
	defs     *definitions
	driver   dialect.Driver
	events   *events.Manager
	registry *idgen.Registry
	resolver *idgen.Resolver
	cache    Cache
	policy   Policy
	logger   *slog.Logger
}

// ManagerOption configures an EntityManager.
type ManagerOption func(*EntityManager)

// WithLogger sets the manager logger.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *EntityManager) { m.logger = l }
}

// WithCache attaches a result cache used by repositories.
func WithCache(c Cache) ManagerOption {
	return func(m *EntityManager) { m.cache = c }
}

// WithPolicy attaches a privacy policy evaluated around reads and writes.
func WithPolicy(p Policy) ManagerOption {
	return func(m *EntityManager) { m.policy = p }
}

// WithIDRegistry sets the identifier-handler registry used by primary
// fields bound through this manager.
func WithIDRegistry(r *idgen.Registry) ManagerOption {
	return func(m *EntityManager) { m.registry = r }
}

// WithIDResolver sets the import resolver for custom identifier handlers.
func WithIDResolver(r *idgen.Resolver) ManagerOption {
	return func(m *EntityManager) { m.resolver = r }
}

// NewEntityManager returns an empty manager bound to the given driver.
func NewEntityManager(driver dialect.Driver, opts ...ManagerOption) *EntityManager {
	m := &EntityManager{
		defs: &definitions{
			entities: make(map[string]*Entity),
			indexes:  make(map[string]*index.Index),
		},
		driver:   driver,
		events:   events.NewManager(),
		registry: idgen.Default(),
		resolver: idgen.DefaultResolver(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Fork returns a manager sharing the entity, relation and index
// definitions but carrying a fresh event manager, so subscriptions on
// the fork do not leak into the parent.
func (m *EntityManager) Fork() *EntityManager {
	c := *m
	c.events = events.NewManager()
	return &c
}

// Driver returns the bound driver.
func (m *EntityManager) Driver() dialect.Driver { return m.driver }

// Events returns the mutation event bus.
func (m *EntityManager) Events() *events.Manager { return m.events }

// Cache returns the attached result cache, or nil.
func (m *EntityManager) Cache() Cache { return m.cache }

// Policy returns the attached privacy policy, or nil.
func (m *EntityManager) Policy() Policy { return m.policy }

// Registry returns the identifier-handler registry.
func (m *EntityManager) Registry() *idgen.Registry { return m.registry }

// Resolver returns the identifier import resolver.
func (m *EntityManager) Resolver() *idgen.Resolver { return m.resolver }

// AddEntity registers an entity definition. Re-adding a structurally
// identical entity is an idempotent no-op logged as a warning; a name
// collision with a different shape is an error.
func (m *EntityManager) AddEntity(e *Entity) error {
	if e == nil {
		return NewConfigurationError("entity", "", fmt.Errorf("nil entity"))
	}
	m.defs.mu.Lock()
	defer m.defs.mu.Unlock()
	if existing, ok := m.defs.entities[e.Name()]; ok {
		if existing.Equal(e) {
			m.logger.Warn("tabula: entity already registered", "entity", e.Name())
			return nil
		}
		return NewConfigurationError("entity", e.Name(), fmt.Errorf("already registered with a different definition"))
	}
	// Registered fields generate identifiers against the manager's
	// registry and resolver unless bound explicitly at construction.
	e.Primary().Bind(m.registry, m.resolver, m.logger)
	m.defs.entities[e.Name()] = e
	m.defs.order = append(m.defs.order, e.Name())
	return nil
}

// Entity returns the named entity or an EntityNotDefinedError.
func (m *EntityManager) Entity(name string) (*Entity, error) {
	m.defs.mu.RLock()
	defer m.defs.mu.RUnlock()
	e, ok := m.defs.entities[name]
	if !ok {
		return nil, NewEntityNotDefinedError(name)
	}
	return e, nil
}

// Lookup is the silent variant of Entity.
func (m *EntityManager) Lookup(name string) (*Entity, bool) {
	m.defs.mu.RLock()
	defer m.defs.mu.RUnlock()
	e, ok := m.defs.entities[name]
	return e, ok
}

// Entities returns the registered entities in registration order.
func (m *EntityManager) Entities() []*Entity {
	m.defs.mu.RLock()
	defer m.defs.mu.RUnlock()
	out := make([]*Entity, 0, len(m.defs.order))
	for _, name := range m.defs.order {
		out = append(out, m.defs.entities[name])
	}
	return out
}

// AddRelation registers a relation. Both endpoints must already be
// registered; a duplicate (same source, target and reference, the
// cardinality is ignored) is an error.
func (m *EntityManager) AddRelation(r *relation.Relation) error {
	if r == nil {
		return NewConfigurationError("relation", "", fmt.Errorf("nil relation"))
	}
	m.defs.mu.Lock()
	defer m.defs.mu.Unlock()
	if _, ok := m.defs.entities[r.Source()]; !ok {
		return NewEntityNotDefinedError(r.Source())
	}
	if _, ok := m.defs.entities[r.Target()]; !ok {
		return NewEntityNotDefinedError(r.Target())
	}
	for _, existing := range m.defs.relations {
		if existing.SameAs(r) {
			return NewConfigurationError("relation", r.String(), fmt.Errorf("already registered"))
		}
	}
	m.defs.relations = append(m.defs.relations, r)
	return nil
}

// Relations returns the relations whose source is the named entity.
func (m *EntityManager) Relations(source string) []*relation.Relation {
	m.defs.mu.RLock()
	defer m.defs.mu.RUnlock()
	var out []*relation.Relation
	for _, r := range m.defs.relations {
		if r.Source() == source {
			out = append(out, r)
		}
	}
	return out
}

// Relation returns the relation from source under the given reference.
func (m *EntityManager) Relation(source, reference string) (*relation.Relation, bool) {
	m.defs.mu.RLock()
	defer m.defs.mu.RUnlock()
	for _, r := range m.defs.relations {
		if r.Source() == source && r.Reference() == reference {
			return r, true
		}
	}
	return nil, false
}

// AddIndex registers an index on the named entity. A duplicate index
// name is silently ignored unless force is set, in which case it is an
// error. Indexes referencing an entity or fields not registered yet
// (e.g. contributed later in the load sequence) are held as pending
// until ResolvePendingIndexes.
func (m *EntityManager) AddIndex(entity string, desc *index.Descriptor, force bool) error {
	m.defs.mu.Lock()
	defer m.defs.mu.Unlock()
	e, ok := m.defs.entities[entity]
	if !ok {
		// The entity may be registered later in the load sequence.
		m.defs.pending = append(m.defs.pending, pendingIndex{entity: entity, desc: desc, force: force})
		return nil
	}
	if missing := missingIndexFields(e, desc); len(missing) > 0 {
		m.logger.Debug("tabula: index pending on missing fields",
			"entity", entity, "fields", missing)
		m.defs.pending = append(m.defs.pending, pendingIndex{entity: entity, desc: desc, force: force})
		return nil
	}
	return m.addIndexLocked(entity, desc, force)
}

func (m *EntityManager) addIndexLocked(entity string, desc *index.Descriptor, force bool) error {
	idx, err := index.New(entity, desc)
	if err != nil {
		return NewConfigurationError("index", desc.StorageKey, err)
	}
	if _, ok := m.defs.indexes[idx.Name()]; ok {
		if force {
			return NewConfigurationError("index", idx.Name(), fmt.Errorf("already registered"))
		}
		return nil
	}
	m.defs.indexes[idx.Name()] = idx
	return nil
}

// ResolvePendingIndexes finalizes indexes that waited on contributed
// fields. Indexes still referencing unknown fields are a hard
// configuration error naming them.
func (m *EntityManager) ResolvePendingIndexes() error {
	m.defs.mu.Lock()
	defer m.defs.mu.Unlock()
	var unresolved []string
	for _, p := range m.defs.pending {
		e, ok := m.defs.entities[p.entity]
		if !ok {
			unresolved = append(unresolved, fmt.Sprintf("%s (entity missing)", p.entity))
			continue
		}
		if missing := missingIndexFields(e, p.desc); len(missing) > 0 {
			unresolved = append(unresolved, fmt.Sprintf("%s: %v", p.entity, missing))
			continue
		}
		if err := m.addIndexLocked(p.entity, p.desc, p.force); err != nil {
			return err
		}
	}
	if len(unresolved) > 0 {
		sort.Strings(unresolved)
		return NewConfigurationError("index", "", fmt.Errorf("unresolved fields: %v", unresolved))
	}
	m.defs.pending = nil
	return nil
}

// Indexes returns the resolved indexes of the named entity, sorted by
// name.
func (m *EntityManager) Indexes(entity string) []*index.Index {
	m.defs.mu.RLock()
	defer m.defs.mu.RUnlock()
	var out []*index.Index
	for _, idx := range m.defs.indexes {
		if idx.Entity() == entity {
			out = append(out, idx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Mutator returns a write handle bound to the named entity.
func (m *EntityManager) Mutator(entity string) (*Mutator, error) {
	e, err := m.Entity(entity)
	if err != nil {
		return nil, err
	}
	return newMutator(m, e), nil
}

// Repository returns a read handle bound to the named entity.
func (m *EntityManager) Repository(entity string) (*Repository, error) {
	e, err := m.Entity(entity)
	if err != nil {
		return nil, err
	}
	return newRepository(m, e), nil
}

func missingIndexFields(e *Entity, desc *index.Descriptor) []string {
	var missing []string
	for _, f := range desc.Fields {
		if _, ok := e.Field(f); !ok {
			missing = append(missing, f)
		}
	}
	return missing
}
