// Package schema maps raw feature attributes onto the simulation model,
// converting them from the input unit set to the engine's working set and
// validating presence and range. Violations are aggregated into the
// diagnostic report, never raised one at a time.
package schema

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/dd0wney/cluso-hydronet/pkg/network"
	"github.com/dd0wney/cluso-hydronet/pkg/units"
)

// validate is a singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Recognized attribute names. Anything else on a feature is ignored.
const (
	AttrElevation = "elevation"
	AttrDemand    = "demand"
	AttrDiameter  = "diameter"
	AttrRoughness = "roughness"
	AttrLength    = "length"
)

// Engineering ranges, checked in SI working units after conversion.
type nodeRanges struct {
	Elevation float64  `validate:"gte=-500,lte=10000"`
	Demand    *float64 `validate:"omitempty,gte=0"`
}

// Pointer fields are nil when the attribute was absent; absence is reported
// separately, so range checks skip it rather than piling on a second error.
type pipeRanges struct {
	Length    float64  `validate:"gt=0"`
	Diameter  *float64 `validate:"omitempty,gt=0,lte=10"`
	Roughness *float64 `validate:"omitempty,gt=0"`
}

type valveRanges struct {
	Diameter *float64 `validate:"omitempty,gt=0,lte=10"`
}

// Mapper applies the per-category attribute schema to a model
type Mapper struct {
	conv  *units.Converter
	input units.Set
}

// NewMapper creates a mapper converting from the given input unit set to the
// SI working set. The formula decides how roughness converts.
func NewMapper(formula units.HeadlossFormula, input units.Set) *Mapper {
	return &Mapper{
		conv:  units.NewConverter(formula),
		input: input,
	}
}

// Apply fills the model's engineering attributes from the snapshot's raw
// feature attributes. Missing required fields and out-of-range values become
// ValidationError diagnostics; a unit table failure is fatal since it means
// the conversion tables themselves are wrong.
func (m *Mapper) Apply(model *network.Model, snap *network.Snapshot) *network.Report {
	report := &network.Report{}

	for _, id := range model.NodeIDs() {
		m.applyNode(model.Nodes[id], snap, report)
	}
	for _, id := range model.LinkIDs() {
		m.applyLink(model.Links[id], snap, report)
	}

	return report
}

func (m *Mapper) applyNode(node *network.Node, snap *network.Snapshot, report *network.Report) {
	var attrs map[string]float64
	if pf := snap.Point(node.ID); pf != nil {
		attrs = pf.Attributes
	}

	// Implicit junctions have no feature to read from; they sit at ground
	// level with no demand until the user promotes them.
	if node.Implicit {
		node.Elevation = 0
		node.Demand = nil
		return
	}

	elev, ok := attrs[AttrElevation]
	if !ok {
		report.Add(network.ValidationError(
			fmt.Sprintf("%s requires attribute %q", node.Category, AttrElevation), node.ID))
	} else {
		v, err := m.convert(elev, units.Elevation, node.ID, report)
		if err == nil {
			node.Elevation = v
		}
	}

	node.Demand = nil
	if demand, ok := attrs[AttrDemand]; ok && node.Category == network.Junction {
		v, err := m.convert(demand, units.Flow, node.ID, report)
		if err == nil {
			node.Demand = &v
		}
	}

	m.checkRanges(node.ID, nodeRanges{Elevation: node.Elevation, Demand: node.Demand}, report)
}

func (m *Mapper) applyLink(link *network.Link, snap *network.Snapshot, report *network.Report) {
	var attrs map[string]float64
	if lf := snap.Line(link.ID); lf != nil {
		attrs = lf.Attributes
	}

	// Measured polyline length is in input coordinate units; an explicit
	// length attribute overrides the measurement. Zero means "measure for
	// me"; a negative value is a data error, not a request to measure.
	length := link.Length
	if override, ok := attrs[AttrLength]; ok {
		switch {
		case override > 0:
			length = override
		case override < 0:
			report.Add(network.ValidationError(
				fmt.Sprintf("length must be non-negative, got %v", override), link.ID))
		}
	}
	if v, err := m.convert(length, units.Length, link.ID, report); err == nil {
		link.Length = v
	}

	switch link.Category {
	case network.Pipe:
		diameter := m.requireAttr(link, attrs, AttrDiameter, units.Diameter, &link.Diameter, report)
		roughness := m.requireAttr(link, attrs, AttrRoughness, units.Roughness, &link.Roughness, report)
		m.checkRanges(link.ID, pipeRanges{
			Length:    link.Length,
			Diameter:  diameter,
			Roughness: roughness,
		}, report)

	case network.Valve:
		diameter := m.requireAttr(link, attrs, AttrDiameter, units.Diameter, &link.Diameter, report)
		m.checkRanges(link.ID, valveRanges{Diameter: diameter}, report)

	case network.Pump:
		// Pumps carry neither diameter nor roughness; a head-gain curve
		// would arrive through a separate curve table.
	}
}

// requireAttr converts a required attribute into dst, reporting when the
// attribute is absent. The returned pointer is nil on absence or conversion
// failure so range checks can skip the field.
func (m *Mapper) requireAttr(link *network.Link, attrs map[string]float64, name string, q units.Quantity, dst *float64, report *network.Report) *float64 {
	raw, ok := attrs[name]
	if !ok {
		report.Add(network.ValidationError(
			fmt.Sprintf("%s requires attribute %q", link.Category, name), link.ID))
		return nil
	}
	v, err := m.convert(raw, q, link.ID, report)
	if err != nil {
		return nil
	}
	*dst = v
	return &v
}

// convert translates one value to working units, reporting a fatal unit
// diagnostic on table failures
func (m *Mapper) convert(value float64, q units.Quantity, entity string, report *network.Report) (float64, error) {
	v, err := m.conv.Convert(value, q, m.input, units.SI)
	if err != nil {
		report.Add(network.Diagnostic{
			Kind:     network.KindUnit,
			Severity: network.SeverityFatal,
			Entities: []string{entity},
			Message:  err.Error(),
		})
		return 0, err
	}
	return v, nil
}

// checkRanges validates a typed range struct, converting each field failure
// into its own entity-tagged diagnostic
func (m *Mapper) checkRanges(entity string, ranges any, report *network.Report) {
	err := validate.Struct(ranges)
	if err == nil {
		return
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		report.Add(network.ValidationError(err.Error(), entity))
		return
	}
	for _, fe := range fieldErrs {
		report.Add(network.ValidationError(formatFieldError(fe), entity))
	}
}

// formatFieldError converts a validator field error to a user-friendly message
func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gt":
		return fmt.Sprintf("%s must be greater than %s, got %v", fe.Field(), fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("%s must be at least %s, got %v", fe.Field(), fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("%s must not exceed %s, got %v", fe.Field(), fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s: validation failed (%s)", fe.Field(), fe.Tag())
	}
}
