package units

import (
	"errors"
	"fmt"
)

// ErrUnknownQuantity is wrapped by UnitError for unrecognized quantity kinds
var ErrUnknownQuantity = errors.New("unknown quantity kind")

// UnitError reports a conversion the unit tables cannot express. It indicates
// an implementation bug, not bad user input.
type UnitError struct {
	Quantity Quantity
	From     Set
	To       Set
	Cause    error
}

// Error implements the error interface.
func (e *UnitError) Error() string {
	return fmt.Sprintf("convert %s from %s to %s: %v", e.Quantity, e.From, e.To, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *UnitError) Unwrap() error {
	return e.Cause
}

// Converter performs bidirectional conversion between unit sets. Conversion
// pivots through SI: value * toSI(from) / toSI(to). The headloss formula is
// fixed per converter because it decides how roughness converts.
type Converter struct {
	formula HeadlossFormula
}

// NewConverter creates a converter for models using the given headloss formula
func NewConverter(formula HeadlossFormula) *Converter {
	return &Converter{formula: formula}
}

// Convert converts value, a reading of quantity q, from one unit set to another
func (c *Converter) Convert(value float64, q Quantity, from, to Set) (float64, error) {
	if from == to {
		if _, err := c.siFactor(q, from); err != nil {
			return 0, &UnitError{Quantity: q, From: from, To: to, Cause: err}
		}
		return value, nil
	}

	ff, err := c.siFactor(q, from)
	if err != nil {
		return 0, &UnitError{Quantity: q, From: from, To: to, Cause: err}
	}
	tf, err := c.siFactor(q, to)
	if err != nil {
		return 0, &UnitError{Quantity: q, From: from, To: to, Cause: err}
	}
	return value * ff / tf, nil
}

// ToSI converts a value from the given set to strict SI
func (c *Converter) ToSI(value float64, q Quantity, from Set) (float64, error) {
	return c.Convert(value, q, from, SI)
}

// FromSI converts a strict-SI value to the given set
func (c *Converter) FromSI(value float64, q Quantity, to Set) (float64, error) {
	return c.Convert(value, q, SI, to)
}

// siFactor returns the SI units represented by one unit of quantity q in set s.
// Factors follow EPANET conventions: traditional sets measure lengths in feet,
// diameters in inches, pressure in psi; metric sets use meters, millimeters,
// and meters of water column.
func (c *Converter) siFactor(q Quantity, s Set) (float64, error) {
	if s.Flow.siFactor() == 0 {
		return 0, fmt.Errorf("unsupported flow unit %d", s.Flow)
	}
	traditional := s.Traditional()

	switch q {
	case Length, Elevation, Head:
		if traditional {
			return 0.3048, nil // ft to m
		}
		return 1.0, nil

	case Diameter:
		if s == SI {
			return 1.0, nil // engine diameters already in m
		}
		if traditional {
			return 0.0254, nil // in to m
		}
		return 0.001, nil // mm to m

	case Flow:
		return s.Flow.siFactor(), nil

	case Pressure:
		if traditional {
			return 0.3048 / 0.4333, nil // psi to m of water
		}
		return 1.0, nil

	case Velocity:
		if traditional {
			return 0.3048, nil // ft/s to m/s
		}
		return 1.0, nil

	case Roughness:
		if c.formula == DarcyWeisbach {
			if s == SI {
				return 1.0, nil
			}
			if traditional {
				return 0.001 * 0.3048, nil // 1e-3 ft to m
			}
			return 0.001, nil // mm to m
		}
		return 1.0, nil // H-W and C-M coefficients are dimensionless

	case UnitHeadloss:
		if s == SI {
			return 1.0, nil
		}
		return 0.001, nil // m/1000m or ft/1000ft to m/m

	case Unitless:
		return 1.0, nil
	}

	return 0, fmt.Errorf("%w: %d", ErrUnknownQuantity, q)
}
