package units

import "fmt"

// Quantity identifies a physical quantity kind carried by a model attribute
// or a simulation reading.
type Quantity uint8

const (
	Length Quantity = iota
	Diameter
	Elevation
	Flow
	Pressure
	Head
	Velocity
	Roughness
	UnitHeadloss
	Unitless
)

// String returns the quantity name
func (q Quantity) String() string {
	switch q {
	case Length:
		return "length"
	case Diameter:
		return "diameter"
	case Elevation:
		return "elevation"
	case Flow:
		return "flow"
	case Pressure:
		return "pressure"
	case Head:
		return "head"
	case Velocity:
		return "velocity"
	case Roughness:
		return "roughness"
	case UnitHeadloss:
		return "unit_headloss"
	case Unitless:
		return "unitless"
	default:
		return "unknown"
	}
}

// FlowUnit selects the flow unit of a unit set. Everything else about the set
// (lengths in meters vs feet, diameters in millimeters vs inches, pressure in
// meters vs psi) follows from whether the flow unit is metric or US customary.
type FlowUnit uint8

const (
	// Metric flow units
	CMS FlowUnit = iota // cubic meters per second (SI working unit)
	LPS                 // liters per second
	LPM                 // liters per minute
	MLD                 // megaliters per day
	CMH                 // cubic meters per hour
	CMD                 // cubic meters per day
	// US customary flow units
	CFS  // cubic feet per second
	GPM  // gallons per minute
	MGD  // million gallons per day
	IMGD // imperial million gallons per day
	AFD  // acre-feet per day
)

// String returns the conventional abbreviation for the flow unit
func (f FlowUnit) String() string {
	switch f {
	case CMS:
		return "CMS"
	case LPS:
		return "LPS"
	case LPM:
		return "LPM"
	case MLD:
		return "MLD"
	case CMH:
		return "CMH"
	case CMD:
		return "CMD"
	case CFS:
		return "CFS"
	case GPM:
		return "GPM"
	case MGD:
		return "MGD"
	case IMGD:
		return "IMGD"
	case AFD:
		return "AFD"
	default:
		return "unknown"
	}
}

// ParseFlowUnit converts a flow unit abbreviation to a FlowUnit
func ParseFlowUnit(s string) (FlowUnit, error) {
	for f := CMS; f <= AFD; f++ {
		if f.String() == s {
			return f, nil
		}
	}
	return CMS, fmt.Errorf("unknown flow unit %q", s)
}

// Cubic meters per second moved by one unit of each flow unit.
func (f FlowUnit) siFactor() float64 {
	switch f {
	case CMS:
		return 1.0
	case LPS:
		return 0.001
	case LPM:
		return 0.001 / 60.0
	case MLD:
		return 1e6 * 0.001 / 86400.0
	case CMH:
		return 1.0 / 3600.0
	case CMD:
		return 1.0 / 86400.0
	case CFS:
		return 0.0283168466
	case GPM:
		return 0.003785411784 / 60.0
	case MGD:
		return 1e6 * 0.003785411784 / 86400.0
	case IMGD:
		return 1e6 * 0.00454609 / 86400.0
	case AFD:
		return 1233.48184 / 86400.0
	default:
		return 0
	}
}

// traditional reports whether the flow unit belongs to the US customary
// family, which drags all non-flow quantities into customary units as well.
func (f FlowUnit) traditional() bool {
	switch f {
	case CFS, GPM, MGD, IMGD, AFD:
		return true
	default:
		return false
	}
}

// HeadlossFormula selects the friction formula the engine relates flow to
// headloss with. The roughness coefficient changes meaning (and units) with
// the formula: Darcy-Weisbach roughness is an equivalent sand-grain length,
// the other two are dimensionless coefficients.
type HeadlossFormula uint8

const (
	HazenWilliams HeadlossFormula = iota
	DarcyWeisbach
	ChezyManning
)

func (h HeadlossFormula) String() string {
	switch h {
	case HazenWilliams:
		return "H-W"
	case DarcyWeisbach:
		return "D-W"
	case ChezyManning:
		return "C-M"
	default:
		return "unknown"
	}
}

// ParseHeadlossFormula converts an EPANET-style formula code to a HeadlossFormula
func ParseHeadlossFormula(s string) (HeadlossFormula, error) {
	switch s {
	case "H-W":
		return HazenWilliams, nil
	case "D-W":
		return DarcyWeisbach, nil
	case "C-M":
		return ChezyManning, nil
	}
	return HazenWilliams, fmt.Errorf("unknown headloss formula %q", s)
}

// Set is a unit set: the family of units a value collection is expressed in,
// keyed by its flow unit.
type Set struct {
	Flow FlowUnit
}

// SI is the engine working set: strict SI (meters, cubic meters per second).
var SI = Set{Flow: CMS}

// Metric is the conventional metric input set (L/s, mm diameters, meters).
var Metric = Set{Flow: LPS}

// USCustomary is the conventional US input set (gal/min, inch diameters, feet, psi).
var USCustomary = Set{Flow: GPM}

func (s Set) String() string {
	return s.Flow.String()
}

// Traditional reports whether the set uses US customary units
func (s Set) Traditional() bool {
	return s.Flow.traditional()
}
