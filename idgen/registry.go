package idgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSlowThreshold is the execution time above which a handler call is
// reported as slow.
const DefaultSlowThreshold = 100 * time.Millisecond

// GenerateFunc produces one identifier for an insert into the named entity.
// The returned value must be a non-empty string or a finite number.
type GenerateFunc func(ctx context.Context, entity string, data map[string]any) (any, error)

// Handler is one registry entry.
type Handler struct {
	// ID is the registry key. Unique, non-empty.
	ID string

	// Name is a human-readable handler name.
	Name string

	// Generate produces the identifier.
	Generate GenerateFunc

	// Validate optionally checks a handler configuration object.
	// A nil Validate means any configuration is valid.
	Validate func(config map[string]any) error

	// Description documents the handler for listings.
	Description string
}

// Registry is a keyed store of identifier handlers with execution
// semantics: timing instrumentation, slow-call warnings and UUID fallback.
// It is safe for concurrent use. Registration is expected at configuration
// time; concurrent Register calls for the same id race and the loser
// receives an error.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler

	logger        *slog.Logger
	slowThreshold time.Duration
	timeout       time.Duration
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used for slow-call and fallback warnings.
func WithLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// WithSlowThreshold overrides the slow-execution warning threshold.
func WithSlowThreshold(d time.Duration) RegistryOption {
	return func(r *Registry) { r.slowThreshold = d }
}

// WithTimeout bounds handler execution with a context deadline.
// Handlers run unbounded by default.
func WithTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) { r.timeout = d }
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		handlers:      make(map[string]Handler),
		slowThreshold: DefaultSlowThreshold,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

var defaultRegistry = func() *Registry {
	r := NewRegistry()
	RegisterBuiltins(r)
	return r
}()

// Default returns the process-wide registry. It supports configuration-time
// registration without threading a registry through every call site; tests
// should construct private instances with NewRegistry instead.
func Default() *Registry { return defaultRegistry }

// Register stores the given handler. It rejects handlers with an empty id
// or name, a nil Generate function, or an id that is already registered.
func (r *Registry) Register(h Handler) error {
	if h.ID == "" {
		return errors.New("idgen: handler id is required")
	}
	if h.Name == "" {
		return fmt.Errorf("idgen: handler %q: name is required", h.ID)
	}
	if h.Generate == nil {
		return fmt.Errorf("idgen: handler %q: generate function is required", h.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[h.ID]; ok {
		return fmt.Errorf("idgen: handler %q already registered", h.ID)
	}
	r.handlers[h.ID] = h
	return nil
}

// Lookup returns the handler registered under id.
func (r *Registry) Lookup(id string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[id]
	return h, ok
}

// List returns all registered handlers ordered by id.
func (r *Registry) List() []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	hs := make([]Handler, 0, len(r.handlers))
	for _, h := range r.handlers {
		hs = append(hs, h)
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i].ID < hs[j].ID })
	return hs
}

// Unregister removes the handler registered under id and reports whether
// it was present.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[id]; !ok {
		return false
	}
	delete(r.handlers, id)
	return true
}

// Clear removes all handlers. Primarily for test isolation.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = make(map[string]Handler)
}

// ValidateConfig runs the handler's configuration validator, if it defines
// one. A handler without a validator treats any configuration as valid.
func (r *Registry) ValidateConfig(id string, config map[string]any) error {
	h, ok := r.Lookup(id)
	if !ok {
		return fmt.Errorf("idgen: handler %q not found", id)
	}
	if h.Validate == nil {
		return nil
	}
	return h.Validate(config)
}

// Execute runs the handler registered under id, measuring wall-clock time.
// A missing handler, handler error, handler panic or invalid return value
// yields an unsuccessful result rather than a panic. Executions over the
// slow threshold succeed with a warning attached.
func (r *Registry) Execute(ctx context.Context, id, entity string, data map[string]any) Result {
	h, ok := r.Lookup(id)
	if !ok {
		return Result{Err: fmt.Errorf("idgen: handler %q not found", id)}
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	start := time.Now()
	v, err := safeGenerate(ctx, h.Generate, entity, data)
	res := Result{ExecutionTime: time.Since(start)}
	if err != nil {
		res.Err = fmt.Errorf("idgen: handler %q: %w", id, err)
		return res
	}
	if err := ValidateValue(v); err != nil {
		res.Err = fmt.Errorf("idgen: handler %q: %w", id, err)
		return res
	}
	res.Success = true
	res.Value = v
	if res.ExecutionTime > r.slowThreshold {
		res.Warning = fmt.Sprintf("handler %q took %s", id, res.ExecutionTime)
		r.logger.Warn("slow id handler execution",
			"handler", id,
			"entity", entity,
			"elapsed", res.ExecutionTime,
			"threshold", r.slowThreshold,
		)
	}
	return res
}

// ExecuteWithFallback runs Execute and, on failure, substitutes a fresh
// UUID so inserts never hard-fail solely because a handler misbehaved.
// The handler error is preserved on the result alongside FallbackUsed.
func (r *Registry) ExecuteWithFallback(ctx context.Context, id, entity string, data map[string]any) Result {
	res := r.Execute(ctx, id, entity, data)
	if res.Success {
		return res
	}
	r.logger.Warn("id handler failed, falling back to uuid",
		"handler", id,
		"entity", entity,
		"error", res.Err,
	)
	fallback, err := uuid.NewV7()
	if err != nil {
		return Result{
			Err:           fmt.Errorf("idgen: handler %q failed and uuid fallback failed: %w", id, err),
			ExecutionTime: res.ExecutionTime,
			Critical:      true,
		}
	}
	return Result{
		Success:       true,
		Value:         fallback.String(),
		Err:           res.Err,
		FallbackUsed:  true,
		ExecutionTime: res.ExecutionTime,
	}
}

// safeGenerate invokes the handler, converting panics into errors.
func safeGenerate(ctx context.Context, fn GenerateFunc, entity string, data map[string]any) (v any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panic: %v", p)
		}
	}()
	return fn(ctx, entity, data)
}

// ValidateValue checks that a generated identifier is a non-empty string
// or a finite number.
func ValidateValue(v any) error {
	switch n := v.(type) {
	case string:
		if n == "" {
			return errors.New("generated value is an empty string")
		}
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
	case float32:
		if math.IsNaN(float64(n)) || math.IsInf(float64(n), 0) {
			return fmt.Errorf("generated value %v is not a finite number", n)
		}
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return fmt.Errorf("generated value %v is not a finite number", n)
		}
	default:
		return fmt.Errorf("generated value has invalid type %T (want string or number)", v)
	}
	return nil
}

// NewUUID returns a time-ordered UUID (version 7) string. It falls back to
// a random UUID if the monotonic clock source fails.
func NewUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
