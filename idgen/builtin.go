package idgen

import (
	"context"
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Built-in handler ids.
const (
	BuiltinUUID     = "uuid"
	BuiltinULID     = "ulid"
	BuiltinSequence = "sequence"
)

// RegisterBuiltins registers the built-in handlers on r. Each call binds
// fresh generator state, so private registries stay isolated from each
// other and from the default registry.
func RegisterBuiltins(r *Registry) {
	u := &ulidSource{entropy: ulid.Monotonic(rand.Reader, 0)}
	s := &sequence{counters: make(map[string]int64)}
	_ = r.Register(Handler{
		ID:          BuiltinUUID,
		Name:        "UUID v7",
		Generate:    generateUUID,
		Description: "Time-ordered UUID (version 7)",
	})
	_ = r.Register(Handler{
		ID:          BuiltinULID,
		Name:        "ULID",
		Generate:    u.generate,
		Description: "Lexicographically sortable identifier with monotonic ordering",
	})
	_ = r.Register(Handler{
		ID:          BuiltinSequence,
		Name:        "Sequence",
		Generate:    s.generate,
		Description: "In-memory per-entity counter; not persisted across restarts",
	})
}

func generateUUID(context.Context, string, map[string]any) (any, error) {
	return NewUUID(), nil
}

// ulidSource guards a monotonic entropy reader. ulid.Monotonic readers are
// not safe for concurrent use.
type ulidSource struct {
	mu      sync.Mutex
	entropy io.Reader
}

func (u *ulidSource) generate(context.Context, string, map[string]any) (any, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), u.entropy)
	if err != nil {
		return nil, err
	}
	return id.String(), nil
}

// sequence hands out increasing per-entity counters. The mutex serializes
// increments across concurrent inserts; callers needing gapless sequences
// must still serialize their own calls.
type sequence struct {
	mu       sync.Mutex
	counters map[string]int64
}

func (s *sequence) generate(_ context.Context, entity string, _ map[string]any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[entity]++
	return s.counters[entity], nil
}
