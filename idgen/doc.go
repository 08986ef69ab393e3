// Package idgen provides pluggable primary-key generation for tabula
// entities.
//
// Identifier generation is organized around three pieces:
//
//   - [Registry]: a keyed store of named [Handler] entries. Handlers are
//     registered once at configuration time and executed by id during
//     inserts. Execution is instrumented: wall-clock timing, slow-handler
//     warnings and structured [Result] values instead of panics.
//   - [Resolver]: resolves handler references of the form
//     {import path, function name} against registered provider modules, or
//     against Go plugins for paths ending in ".so". Resolved functions are
//     cached.
//   - Built-in handlers: "uuid" (time-ordered UUID v7), "ulid" (monotonic
//     ULID) and "sequence" (an in-memory per-entity counter).
//
// # Registries are injected
//
// A Registry is an explicitly constructed value, passed by reference into
// the entity manager and primary fields:
//
//	reg := idgen.NewRegistry()
//	idgen.RegisterBuiltins(reg)
//	err := reg.Register(idgen.Handler{
//	    ID:   "order-number",
//	    Name: "Order number",
//	    Generate: func(ctx context.Context, entity string, data map[string]any) (any, error) {
//	        return fmt.Sprintf("ORD-%d", time.Now().UnixNano()), nil
//	    },
//	})
//
// A process-wide default instance ([Default]) exists for configuration-time
// registration ergonomics; tests should construct private instances so no
// global reset is needed.
//
// # Fallback guarantee
//
// [Registry.ExecuteWithFallback] never lets a misbehaving handler fail an
// insert: on handler error, panic or invalid return value it logs a warning
// and substitutes a fresh UUID, reporting FallbackUsed on the result. Only
// a failure of the UUID fallback itself yields a critical, unsuccessful
// result.
package idgen
