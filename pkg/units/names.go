package units

// Name returns the display name of the unit that quantity q is expressed in
// under set s, for labeling result layers. The formula matters for roughness
// only, same as conversion.
func (c *Converter) Name(q Quantity, s Set) string {
	traditional := s.Traditional()

	switch q {
	case Flow:
		return flowName(s.Flow)
	case Length, Elevation, Head:
		if traditional {
			return "ft"
		}
		return "m"
	case Diameter:
		if s == SI {
			return "m"
		}
		if traditional {
			return "in"
		}
		return "mm"
	case Pressure:
		if traditional {
			return "psi"
		}
		return "m"
	case Velocity:
		if traditional {
			return "ft/s"
		}
		return "m/s"
	case Roughness:
		if c.formula == DarcyWeisbach {
			if s == SI {
				return "m"
			}
			if traditional {
				return "10⁻³ ft"
			}
			return "mm"
		}
		return "unitless"
	case UnitHeadloss:
		if s == SI {
			return "m/m"
		}
		if traditional {
			return "ft/1000 ft"
		}
		return "m/1000 m"
	case Unitless:
		return "unitless"
	}
	return ""
}

func flowName(f FlowUnit) string {
	switch f {
	case CMS:
		return "m³/s"
	case LPS:
		return "L/s"
	case LPM:
		return "L/min"
	case MLD:
		return "ML/day"
	case CMH:
		return "m³/hour"
	case CMD:
		return "m³/day"
	case CFS:
		return "ft³/s"
	case GPM:
		return "gal/min"
	case MGD:
		return "MG/day"
	case IMGD:
		return "imp gal/day"
	case AFD:
		return "Acre-ft/day"
	default:
		return ""
	}
}
