package table

import "errors"

// The three error kinds surfaced by the pipeline. Callers discriminate with
// errors.Is; every error returned by this module wraps exactly one of them.
var (
	// ErrIO marks source and sink failures: unreadable input, failed
	// writes, pulls after the handle was closed.
	ErrIO = errors.New("io error")

	// ErrSchema marks plan-build failures: references to unknown columns
	// or type-incompatible operations. Raised before execution starts.
	ErrSchema = errors.New("schema error")

	// ErrCompute marks execution-time expression failures, such as a
	// derived value whose type contradicts the declared column type.
	ErrCompute = errors.New("compute error")
)
