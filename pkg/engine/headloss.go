package engine

import (
	"math"

	"github.com/dd0wney/cluso-hydronet/pkg/network"
	"github.com/dd0wney/cluso-hydronet/pkg/units"
)

// Water kinematic viscosity at 20°C, m²/s
const kinematicViscosity = 1.004e-6

const gravity = 9.80665

// headloss returns the friction loss in meters over a link carrying flow q
// (m³/s, magnitude). Coefficients follow the EPANET formulations in SI.
func headloss(formula units.HeadlossFormula, l Link, q float64) float64 {
	if q <= 0 || l.Length <= 0 || l.Diameter <= 0 {
		return 0
	}
	// Pumps add head, valves throttle; the bundled solver treats both as
	// lossless connectors.
	if l.Category != network.Pipe {
		return 0
	}

	switch formula {
	case units.HazenWilliams:
		c := l.Roughness
		if c <= 0 {
			return 0
		}
		return 10.667 * l.Length * math.Pow(q, 1.852) /
			(math.Pow(c, 1.852) * math.Pow(l.Diameter, 4.871))

	case units.DarcyWeisbach:
		area := math.Pi * l.Diameter * l.Diameter / 4
		v := q / area
		re := v * l.Diameter / kinematicViscosity
		var f float64
		if re < 2000 {
			if re <= 0 {
				return 0
			}
			f = 64 / re
		} else {
			// Swamee-Jain approximation of the Colebrook-White equation
			rel := l.Roughness / (3.7 * l.Diameter)
			f = 0.25 / math.Pow(math.Log10(rel+5.74/math.Pow(re, 0.9)), 2)
		}
		return f * (l.Length / l.Diameter) * v * v / (2 * gravity)

	case units.ChezyManning:
		n := l.Roughness
		if n <= 0 {
			return 0
		}
		return 10.294 * n * n * l.Length * q * q / math.Pow(l.Diameter, 5.33)
	}

	return 0
}

// velocity returns the flow velocity in m/s for flow magnitude q
func velocity(l Link, q float64) float64 {
	if l.Diameter <= 0 {
		return 0
	}
	area := math.Pi * l.Diameter * l.Diameter / 4
	return q / area
}
