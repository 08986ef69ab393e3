// Package events implements the mutation lifecycle bus.
//
// Mutators publish a before and an after event around every write.
// Handlers run synchronously in subscription order; an error from a
// before-handler aborts the mutation, which gives subscribers veto
// power over writes.
package events

import (
	"context"
	"fmt"
	"sync"
)

// Mutation lifecycle event names.
const (
	MutatorInsertBefore = "mutator.insert.before"
	MutatorInsertAfter  = "mutator.insert.after"
	MutatorUpdateBefore = "mutator.update.before"
	MutatorUpdateAfter  = "mutator.update.after"
	MutatorDeleteBefore = "mutator.delete.before"
	MutatorDeleteAfter  = "mutator.delete.after"
)

// Payload describes the mutation an event reports.
type Payload struct {
	// Entity is the entity name the mutation targets.
	Entity string

	// EntityID is the affected row identifier, when known. Nil for
	// insert-before and filter-based mutations.
	EntityID any

	// Data is the mutation input or the stored row, depending on the
	// event. Handlers must treat it as read-only.
	Data map[string]any
}

// HandlerFunc consumes one published event.
type HandlerFunc func(ctx context.Context, p Payload) error

// Manager is an in-process synchronous event bus. It is safe for
// concurrent use.
type Manager struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string][]subscription
}

type subscription struct {
	id int
	fn HandlerFunc
}

// NewManager returns an empty event manager.
func NewManager() *Manager {
	return &Manager{subs: make(map[string][]subscription)}
}

// Subscribe registers fn for the named event and returns an unsubscribe
// function. Handlers for one event run in subscription order.
func (m *Manager) Subscribe(name string, fn HandlerFunc) func() {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.subs[name] = append(m.subs[name], subscription{id: id, fn: fn})
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		subs := m.subs[name]
		for i, s := range subs {
			if s.id == id {
				m.subs[name] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish runs the handlers subscribed to the named event in order. The
// first handler error aborts the chain and is returned wrapped with the
// event name.
func (m *Manager) Publish(ctx context.Context, name string, p Payload) error {
	m.mu.RLock()
	subs := make([]subscription, len(m.subs[name]))
	copy(subs, m.subs[name])
	m.mu.RUnlock()
	for _, s := range subs {
		if err := s.fn(ctx, p); err != nil {
			return fmt.Errorf("events: %s: %w", name, err)
		}
	}
	return nil
}
