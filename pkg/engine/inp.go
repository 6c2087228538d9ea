package engine

import (
	"fmt"
	"io"

	"github.com/dd0wney/cluso-hydronet/pkg/network"
	"github.com/dd0wney/cluso-hydronet/pkg/units"
)

// WriteINP serializes a validated model in the industry-standard EPANET
// network-description text format so models stay portable to other solvers.
// The model's SI working values are converted to the configured input unit
// set, which also names the flow unit in [OPTIONS].
func WriteINP(w io.Writer, model *network.Model, cfg Config) error {
	conv := units.NewConverter(cfg.Formula)
	out := cfg.InputUnits

	cv := func(v float64, q units.Quantity) float64 {
		// The model is validated before export; the unit tables cover every
		// quantity written here.
		converted, err := conv.FromSI(v, q, out)
		if err != nil {
			return v
		}
		return converted
	}

	write := func(format string, args ...any) error {
		_, err := fmt.Fprintf(w, format, args...)
		return err
	}

	if err := write("[TITLE]\nExported by hydronet\n\n"); err != nil {
		return err
	}

	if err := write("[JUNCTIONS]\n;;ID              \tElev        \tDemand      \n"); err != nil {
		return err
	}
	for _, id := range model.NodeIDs() {
		n := model.Nodes[id]
		if n.Category != network.Junction {
			continue
		}
		demand := 0.0
		if n.Demand != nil {
			demand = *n.Demand
		}
		if err := write(" %-16s\t%-12.4f\t%-12.4f\t;\n",
			id, cv(n.Elevation, units.Elevation), cv(demand, units.Flow)); err != nil {
			return err
		}
	}

	if err := write("\n[RESERVOIRS]\n;;ID              \tHead        \n"); err != nil {
		return err
	}
	for _, id := range model.NodeIDs() {
		n := model.Nodes[id]
		if n.Category != network.Reservoir {
			continue
		}
		if err := write(" %-16s\t%-12.4f\t;\n", id, cv(n.Elevation, units.Head)); err != nil {
			return err
		}
	}

	if err := write("\n[TANKS]\n;;ID              \tElevation   \tInitLevel   \tMinLevel    \tMaxLevel    \tDiameter    \tMinVol      \n"); err != nil {
		return err
	}
	for _, id := range model.NodeIDs() {
		n := model.Nodes[id]
		if n.Category != network.Tank {
			continue
		}
		if err := write(" %-16s\t%-12.4f\t%-12.4f\t%-12.4f\t%-12.4f\t%-12.4f\t%-12.4f\t;\n",
			id, cv(n.Elevation, units.Elevation), 0.0, 0.0, 0.0, 0.0, 0.0); err != nil {
			return err
		}
	}

	if err := write("\n[PIPES]\n;;ID              \tNode1           \tNode2           \tLength      \tDiameter    \tRoughness   \n"); err != nil {
		return err
	}
	for _, id := range model.LinkIDs() {
		l := model.Links[id]
		if l.Category != network.Pipe {
			continue
		}
		if err := write(" %-16s\t%-16s\t%-16s\t%-12.4f\t%-12.4f\t%-12.4f\t;\n",
			id, l.Start, l.End,
			cv(l.Length, units.Length), cv(l.Diameter, units.Diameter), cv(l.Roughness, units.Roughness)); err != nil {
			return err
		}
	}

	if err := write("\n[PUMPS]\n;;ID              \tNode1           \tNode2           \tParameters\n"); err != nil {
		return err
	}
	for _, id := range model.LinkIDs() {
		l := model.Links[id]
		if l.Category != network.Pump {
			continue
		}
		if err := write(" %-16s\t%-16s\t%-16s\t;\n", id, l.Start, l.End); err != nil {
			return err
		}
	}

	if err := write("\n[VALVES]\n;;ID              \tNode1           \tNode2           \tDiameter    \tType\tSetting     \n"); err != nil {
		return err
	}
	for _, id := range model.LinkIDs() {
		l := model.Links[id]
		if l.Category != network.Valve {
			continue
		}
		if err := write(" %-16s\t%-16s\t%-16s\t%-12.4f\tTCV \t%-12.4f\t;\n",
			id, l.Start, l.End, cv(l.Diameter, units.Diameter), 0.0); err != nil {
			return err
		}
	}

	if err := write("\n[COORDINATES]\n;;Node            \tX-Coord         \tY-Coord         \n"); err != nil {
		return err
	}
	for _, id := range model.NodeIDs() {
		n := model.Nodes[id]
		if err := write(" %-16s\t%-16.4f\t%-16.4f\n", id, n.Location.X, n.Location.Y); err != nil {
			return err
		}
	}

	if err := write("\n[VERTICES]\n;;Link            \tX-Coord         \tY-Coord         \n"); err != nil {
		return err
	}
	for _, id := range model.LinkIDs() {
		l := model.Links[id]
		if len(l.Vertices) < 3 {
			continue
		}
		for _, v := range l.Vertices[1 : len(l.Vertices)-1] {
			if err := write(" %-16s\t%-16.4f\t%-16.4f\n", id, v.X, v.Y); err != nil {
				return err
			}
		}
	}

	if err := write("\n[OPTIONS]\n Units              \t%s\n Headloss           \t%s\n Demand Multiplier  \t%.4f\n",
		out.Flow, cfg.Formula, cfg.Multiplier()); err != nil {
		return err
	}

	hours := func(d float64) float64 { return d / 3600 }
	duration := 0.0
	step := 0.0
	if cfg.Mode == TimeSeries {
		duration = cfg.Duration.Seconds()
		step = cfg.Step.Seconds()
	}
	if err := write("\n[TIMES]\n Duration           \t%.2f\n Hydraulic Timestep \t%.2f\n",
		hours(duration), hours(step)); err != nil {
		return err
	}

	return write("\n[END]\n")
}
