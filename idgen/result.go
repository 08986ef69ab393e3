package idgen

import "time"

// Result reports the outcome of one identifier-generation attempt.
// Generation failures with a defined recovery path are carried as values
// rather than returned errors, so callers can degrade to the UUID fallback
// without unwinding.
type Result struct {
	// Success reports whether a usable identifier was produced,
	// by the handler itself or by the fallback.
	Success bool

	// Value is the generated identifier: a non-empty string or a
	// finite number.
	Value any

	// Err is the handler failure, if any. It is preserved even when
	// the fallback succeeded.
	Err error

	// FallbackUsed reports that Value came from the UUID fallback
	// rather than the requested handler.
	FallbackUsed bool

	// ExecutionTime is the wall-clock duration of the handler call.
	ExecutionTime time.Duration

	// Warning carries a non-fatal notice, e.g. a slow-execution report.
	Warning string

	// Critical reports that both the handler and the UUID fallback
	// failed. No further degradation path exists.
	Critical bool
}
