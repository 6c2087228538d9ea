package network

import (
	"fmt"
	"strings"
)

// Kind places a diagnostic in the error taxonomy
type Kind uint8

const (
	KindUnit Kind = iota
	KindSnap
	KindTopology
	KindValidation
	KindConfig
	KindEngine
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindUnit:
		return "unit"
	case KindSnap:
		return "snap"
	case KindTopology:
		return "topology"
	case KindValidation:
		return "validation"
	case KindConfig:
		return "config"
	case KindEngine:
		return "engine"
	case KindMapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// Severity ranks how a diagnostic affects the run
type Severity uint8

const (
	// SeverityWarning diagnostics are surfaced to the user but do not block
	SeverityWarning Severity = iota
	// SeverityError diagnostics block the simulation; they are aggregated,
	// never reported one at a time
	SeverityError
	// SeverityFatal diagnostics indicate an internal defect, not bad input
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Diagnostic is one entity-tagged entry in a report
type Diagnostic struct {
	Kind     Kind
	Severity Severity
	Entities []string
	Message  string
}

func (d Diagnostic) String() string {
	if len(d.Entities) == 0 {
		return fmt.Sprintf("[%s/%s] %s", d.Kind, d.Severity, d.Message)
	}
	return fmt.Sprintf("[%s/%s] %s (%s)", d.Kind, d.Severity, d.Message, strings.Join(d.Entities, ", "))
}

// TopologyError builds a blocking diagnostic for a graph violation
func TopologyError(msg string, entities ...string) Diagnostic {
	return Diagnostic{Kind: KindTopology, Severity: SeverityError, Entities: entities, Message: msg}
}

// ValidationError builds a blocking diagnostic for an attribute violation
func ValidationError(msg string, entities ...string) Diagnostic {
	return Diagnostic{Kind: KindValidation, Severity: SeverityError, Entities: entities, Message: msg}
}

// ConfigError builds a blocking diagnostic for an invalid configuration
func ConfigError(msg string) Diagnostic {
	return Diagnostic{Kind: KindConfig, Severity: SeverityError, Message: msg}
}

// SnapWarning builds a non-fatal diagnostic for an ambiguous geometric merge
func SnapWarning(msg string, entities ...string) Diagnostic {
	return Diagnostic{Kind: KindSnap, Severity: SeverityWarning, Entities: entities, Message: msg}
}

// EngineWarning builds a non-fatal diagnostic from a classified engine message
func EngineWarning(msg string, entities ...string) Diagnostic {
	return Diagnostic{Kind: KindEngine, Severity: SeverityWarning, Entities: entities, Message: msg}
}

// EngineFailure builds a blocking diagnostic from an engine failure
func EngineFailure(msg string, entities ...string) Diagnostic {
	return Diagnostic{Kind: KindEngine, Severity: SeverityError, Entities: entities, Message: msg}
}

// Report aggregates every diagnostic produced across one pipeline pass. It is
// always returned, possibly empty, so callers can render "N warnings"
// uniformly. Blocking diagnostics are collected across the whole network in
// one pass; the caller never fixes one error only to discover the next.
type Report struct {
	Diagnostics []Diagnostic
}

// Add appends diagnostics to the report
func (r *Report) Add(diags ...Diagnostic) {
	r.Diagnostics = append(r.Diagnostics, diags...)
}

// Merge appends every diagnostic from another report
func (r *Report) Merge(other *Report) {
	if other != nil {
		r.Diagnostics = append(r.Diagnostics, other.Diagnostics...)
	}
}

// ByKind returns the diagnostics of one taxonomy kind
func (r *Report) ByKind(k Kind) []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Kind == k {
			out = append(out, d)
		}
	}
	return out
}

// Warnings returns the non-blocking diagnostics
func (r *Report) Warnings() []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityWarning {
			out = append(out, d)
		}
	}
	return out
}

// Blocking reports whether any diagnostic prevents a simulation run
func (r *Report) Blocking() bool {
	for _, d := range r.Diagnostics {
		if d.Severity >= SeverityError {
			return true
		}
	}
	return false
}

// Err returns an error summarizing the blocking diagnostics, or nil
func (r *Report) Err() error {
	var blocking []string
	for _, d := range r.Diagnostics {
		if d.Severity >= SeverityError {
			blocking = append(blocking, d.String())
		}
	}
	if len(blocking) == 0 {
		return nil
	}
	return fmt.Errorf("%d blocking diagnostics: %s", len(blocking), strings.Join(blocking, "; "))
}
