package network

import "fmt"

// NodeCategory classifies a point entity in the hydraulic graph
type NodeCategory uint8

const (
	Junction NodeCategory = iota
	Reservoir
	Tank
)

func (c NodeCategory) String() string {
	switch c {
	case Junction:
		return "junction"
	case Reservoir:
		return "reservoir"
	case Tank:
		return "tank"
	default:
		return "unknown"
	}
}

// IsSource reports whether nodes of this category supply or store water,
// making them boundary conditions the rest of the network must reach.
func (c NodeCategory) IsSource() bool {
	return c == Reservoir || c == Tank
}

// ParseNodeCategory converts a category name to a NodeCategory
func ParseNodeCategory(s string) (NodeCategory, error) {
	switch s {
	case "junction":
		return Junction, nil
	case "reservoir":
		return Reservoir, nil
	case "tank":
		return Tank, nil
	}
	return Junction, fmt.Errorf("unknown node category %q", s)
}

// LinkCategory classifies a connecting entity between two nodes
type LinkCategory uint8

const (
	Pipe LinkCategory = iota
	Pump
	Valve
)

func (c LinkCategory) String() string {
	switch c {
	case Pipe:
		return "pipe"
	case Pump:
		return "pump"
	case Valve:
		return "valve"
	default:
		return "unknown"
	}
}

// ParseLinkCategory converts a category name to a LinkCategory
func ParseLinkCategory(s string) (LinkCategory, error) {
	switch s {
	case "pipe":
		return Pipe, nil
	case "pump":
		return Pump, nil
	case "valve":
		return Valve, nil
	}
	return Pipe, fmt.Errorf("unknown link category %q", s)
}
