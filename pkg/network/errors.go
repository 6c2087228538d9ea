package network

import "fmt"

// EngineFault is returned when the simulation engine fails outright:
// convergence failure, crash, or a model it refuses to accept. The diagnostic
// text is classified, never passed through raw.
type EngineFault struct {
	Stage  string // "build" or "run"
	Detail string
	Cause  error
}

// Error implements the error interface.
func (e *EngineFault) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("engine %s failed: %s: %v", e.Stage, e.Detail, e.Cause)
	}
	return fmt.Sprintf("engine %s failed: %s", e.Stage, e.Detail)
}

// Unwrap returns the underlying cause for error chain support.
func (e *EngineFault) Unwrap() error {
	return e.Cause
}

// MappingFault is returned when a raw result references an entity identity
// absent from the identity-translation table. It should never occur in
// correct operation and indicates an internal-consistency defect, so it is
// logged as a bug rather than surfaced as a user-correctable condition.
type MappingFault struct {
	EntityKind string // "node" or "link"
	EngineID   int
}

// Error implements the error interface.
func (e *MappingFault) Error() string {
	return fmt.Sprintf("result %s %d has no identity translation", e.EntityKind, e.EngineID)
}
