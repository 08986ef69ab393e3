package field

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/syssam/tabula/idgen"
)

// PrimaryFormat selects how a primary field produces identifier values.
type PrimaryFormat string

const (
	// FormatInteger delegates identifier generation to the storage
	// auto-increment mechanism.
	FormatInteger PrimaryFormat = "integer"
	// FormatUUID generates a UUID v7 string per row.
	FormatUUID PrimaryFormat = "uuid"
	// FormatCustom runs a user-supplied handler per row.
	FormatCustom PrimaryFormat = "custom"
)

// HandlerKind selects how a custom primary handler is located.
type HandlerKind string

const (
	// KindFunction invokes an in-process function directly.
	KindFunction HandlerKind = "function"
	// KindImport resolves the handler through the import resolver.
	KindImport HandlerKind = "import"
	// KindRegistry executes a handler registered in an idgen.Registry.
	KindRegistry HandlerKind = "registry"
)

// CustomHandler configures custom identifier generation for a primary
// field with FormatCustom.
type CustomHandler struct {
	// Kind selects the dispatch strategy.
	Kind HandlerKind

	// Fn is the handler for KindFunction.
	Fn idgen.GenerateFunc

	// ImportPath and FunctionName locate the handler for KindImport.
	// FunctionName defaults to the module's default export.
	ImportPath   string
	FunctionName string

	// ID names the registered handler for KindRegistry.
	ID string

	// Options are handler defaults merged under call-time data.
	Options map[string]any
}

// PrimaryField is the identifier field of an entity. Values are produced
// by the configured format, never supplied by clients.
type PrimaryField struct {
	base

	registry      *idgen.Registry
	resolver      *idgen.Resolver
	logger        *slog.Logger
	slowThreshold time.Duration

	// pinned* marks bindings made explicitly at construction time,
	// which Bind must not replace.
	pinnedRegistry bool
	pinnedResolver bool
	pinnedLogger   bool
}

// PrimaryOption configures a PrimaryField at construction time.
type PrimaryOption func(*PrimaryField)

// WithRegistry sets the registry used by registry-kind handlers.
func WithRegistry(r *idgen.Registry) PrimaryOption {
	return func(f *PrimaryField) { f.registry = r; f.pinnedRegistry = true }
}

// WithResolver sets the resolver used by import-kind handlers.
func WithResolver(r *idgen.Resolver) PrimaryOption {
	return func(f *PrimaryField) { f.resolver = r; f.pinnedResolver = true }
}

// WithLogger sets the logger for slow-handler and fallback warnings.
func WithLogger(l *slog.Logger) PrimaryOption {
	return func(f *PrimaryField) { f.logger = l; f.pinnedLogger = true }
}

// WithSlowThreshold overrides the slow-handler warning threshold.
func WithSlowThreshold(d time.Duration) PrimaryOption {
	return func(f *PrimaryField) { f.slowThreshold = d }
}

// newPrimary validates the primary descriptor and builds the field.
// Misconfiguration fails construction, never first use.
func newPrimary(b base, opts ...PrimaryOption) (*PrimaryField, error) {
	d := b.desc
	if d.Format == "" {
		d.Format = FormatInteger
	}
	switch d.Format {
	case FormatInteger, FormatUUID:
	case FormatCustom:
		h := d.Handler
		if h == nil {
			return nil, errors.New("Custom handler configuration is required when format is 'custom'")
		}
		switch h.Kind {
		case KindFunction:
			if h.Fn == nil {
				return nil, errors.New("Handler function is required when handler type is 'function'")
			}
		case KindImport:
			if h.ImportPath == "" {
				return nil, errors.New("Import path is required when handler type is 'import'")
			}
		case KindRegistry:
			if h.ID == "" {
				return nil, errors.New("Handler id is required when handler type is 'registry'")
			}
		default:
			return nil, fmt.Errorf("field %q: unknown handler type %q", d.Name, h.Kind)
		}
	default:
		return nil, fmt.Errorf("field %q: unknown primary format %q", d.Name, d.Format)
	}
	f := &PrimaryField{
		base:          b,
		registry:      idgen.Default(),
		resolver:      idgen.DefaultResolver(),
		logger:        slog.Default(),
		slowThreshold: idgen.DefaultSlowThreshold,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// NewPrimary builds a primary field directly from its format and handler
// configuration.
func NewPrimary(name string, format PrimaryFormat, handler *CustomHandler, opts ...PrimaryOption) (*PrimaryField, error) {
	d := &Descriptor{Name: name, Type: TypePrimary, Format: format, Handler: handler}
	if !nameRe.MatchString(d.Name) {
		return nil, fmt.Errorf("field: invalid field name %q", d.Name)
	}
	return newPrimary(base{desc: d, hidden: make(map[Context]bool)}, opts...)
}

// Bind points handler execution at an owner-provided registry, resolver
// and logger. Fields built against the package defaults follow the
// owner; bindings made explicitly at construction time are kept.
func (f *PrimaryField) Bind(reg *idgen.Registry, res *idgen.Resolver, l *slog.Logger) {
	if reg != nil && !f.pinnedRegistry {
		f.registry = reg
	}
	if res != nil && !f.pinnedResolver {
		f.resolver = res
	}
	if l != nil && !f.pinnedLogger {
		f.logger = l
	}
}

// Format returns the identifier format of the field.
func (f *PrimaryField) Format() PrimaryFormat { return f.desc.Format }

// Fillable reports false for every context. Primary values are generated,
// never accepted from clients.
func (f *PrimaryField) Fillable(Context) bool { return false }

// TransformPersist rejects all client-supplied values.
func (f *PrimaryField) TransformPersist(_ context.Context, _ any, opts *PersistOptions) (any, error) {
	return nil, f.valueError(opts, "primary values cannot be set directly")
}

// TransformRetrieve returns the stored identifier unchanged.
func (f *PrimaryField) TransformRetrieve(v any) (any, error) { return v, nil }

// NewValue synchronously produces a value for formats that need no
// context: a fresh UUID v7 for FormatUUID, nil otherwise. Integer fields
// rely on storage auto-increment and custom fields go through
// NewValueContext.
func (f *PrimaryField) NewValue() any {
	if f.desc.Format == FormatUUID {
		return idgen.NewUUID()
	}
	return nil
}

// NewValueContext produces an identifier through the context-aware path.
// Custom handler failures degrade to the UUID fallback; only programmer
// errors (a custom field generated without an entity name) fail outright.
func (f *PrimaryField) NewValueContext(ctx context.Context, entity string, data map[string]any) idgen.Result {
	switch f.desc.Format {
	case FormatUUID:
		return idgen.Result{Success: true, Value: idgen.NewUUID()}
	case FormatCustom:
		if entity == "" {
			return idgen.Result{Err: fmt.Errorf("field %q: custom id generation requires an entity name", f.desc.Name)}
		}
		return f.GenerateWithFallback(ctx, entity, data)
	default:
		return idgen.Result{Success: true}
	}
}

// Generate runs the configured custom handler without fallback. The
// produced value must be a non-empty string or a finite number; anything
// else, or a handler error, is returned as an error carrying the elapsed
// execution time.
func (f *PrimaryField) Generate(ctx context.Context, entity string, data map[string]any) (any, error) {
	h := f.desc.Handler
	if f.desc.Format != FormatCustom || h == nil {
		return nil, fmt.Errorf("field %q: no custom handler configured", f.desc.Name)
	}
	start := time.Now()
	v, err := f.dispatch(ctx, h, entity, data)
	took := time.Since(start)
	if took > f.slowThreshold {
		f.logger.Warn("tabula: slow id handler",
			"field", f.desc.Name,
			"entity", entity,
			"took", took,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("field %q: id handler failed after %s: %w", f.desc.Name, took, err)
	}
	if err := idgen.ValidateValue(v); err != nil {
		return nil, fmt.Errorf("field %q: id handler returned invalid value after %s: %w", f.desc.Name, took, err)
	}
	return v, nil
}

func (f *PrimaryField) dispatch(ctx context.Context, h *CustomHandler, entity string, data map[string]any) (any, error) {
	switch h.Kind {
	case KindFunction:
		return h.Fn(ctx, entity, data)
	case KindImport:
		fn, err := f.resolver.Resolve(h.ImportPath, h.FunctionName)
		if err != nil {
			return nil, err
		}
		return fn(ctx, entity, mergeOptions(h.Options, data))
	case KindRegistry:
		res := f.registry.Execute(ctx, h.ID, entity, data)
		if !res.Success {
			return nil, res.Err
		}
		return res.Value, nil
	default:
		return nil, fmt.Errorf("unknown handler type %q", h.Kind)
	}
}

// GenerateWithFallback runs the custom handler and, on any failure,
// substitutes a fresh UUID v7 so inserts never hard-fail solely because a
// handler misbehaved. The original error is preserved on the result.
func (f *PrimaryField) GenerateWithFallback(ctx context.Context, entity string, data map[string]any) idgen.Result {
	start := time.Now()
	v, err := f.Generate(ctx, entity, data)
	took := time.Since(start)
	if err == nil {
		return idgen.Result{Success: true, Value: v, ExecutionTime: took}
	}
	f.logger.Warn("tabula: id handler failed, falling back to uuid",
		"field", f.desc.Name,
		"entity", entity,
		"error", err,
	)
	return idgen.Result{
		Success:       true,
		Value:         idgen.NewUUID(),
		Err:           err,
		FallbackUsed:  true,
		ExecutionTime: took,
	}
}

// mergeOptions lays handler option defaults under call-time data.
// Call-time values win on key collision.
func mergeOptions(options, data map[string]any) map[string]any {
	if len(options) == 0 {
		return data
	}
	merged := make(map[string]any, len(options)+len(data))
	for k, v := range options {
		merged[k] = v
	}
	for k, v := range data {
		merged[k] = v
	}
	return merged
}

// PrimaryBuilder builds the primary identifier field of an entity.
type PrimaryBuilder struct{ descBuilder }

// Primary returns a new primary field builder. The format defaults to
// integer auto-increment.
func Primary(name string) *PrimaryBuilder {
	return &PrimaryBuilder{descBuilder{newDesc(name, TypePrimary)}}
}

// Format sets the identifier format.
func (b *PrimaryBuilder) Format(f PrimaryFormat) *PrimaryBuilder { b.desc.Format = f; return b }

// UUID sets the format to UUID v7 generation.
func (b *PrimaryBuilder) UUID() *PrimaryBuilder { return b.Format(FormatUUID) }

// Handler sets the format to custom and configures its handler.
func (b *PrimaryBuilder) Handler(h *CustomHandler) *PrimaryBuilder {
	b.desc.Format = FormatCustom
	b.desc.Handler = h
	return b
}

// Comment sets the field comment.
func (b *PrimaryBuilder) Comment(c string) *PrimaryBuilder { b.desc.Comment = c; return b }
