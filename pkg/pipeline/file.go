package pipeline

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-hydronet/pkg/engine"
	"github.com/dd0wney/cluso-hydronet/pkg/geometry"
	"github.com/dd0wney/cluso-hydronet/pkg/network"
	"github.com/dd0wney/cluso-hydronet/pkg/units"
)

// pointDoc is the YAML form of a point feature
type pointDoc struct {
	ID         string             `yaml:"id"`
	Category   string             `yaml:"category"`
	X          float64            `yaml:"x"`
	Y          float64            `yaml:"y"`
	Attributes map[string]float64 `yaml:"attributes"`
}

// lineDoc is the YAML form of a line feature
type lineDoc struct {
	ID         string             `yaml:"id"`
	Category   string             `yaml:"category"`
	Vertices   [][2]float64       `yaml:"vertices"`
	Attributes map[string]float64 `yaml:"attributes"`
}

// snapshotDoc is the YAML form of a network snapshot
type snapshotDoc struct {
	Points []pointDoc `yaml:"points"`
	Lines  []lineDoc  `yaml:"lines"`
}

// duration decodes Go duration strings like "24h" or "15m"
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"24h\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}

// configDoc is the YAML form of a run configuration
type configDoc struct {
	Mode             string   `yaml:"mode"`
	Duration         duration `yaml:"duration"`
	Step             duration `yaml:"step"`
	Headloss         string   `yaml:"headloss"`
	InputUnits       string   `yaml:"input_units"`
	OutputUnits      string   `yaml:"output_units"`
	DemandMultiplier float64  `yaml:"demand_multiplier"`
}

// ParseSnapshot decodes a YAML snapshot document
func ParseSnapshot(r io.Reader) (*network.Snapshot, error) {
	var doc snapshotDoc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	snap := &network.Snapshot{
		Points: make([]network.PointFeature, 0, len(doc.Points)),
		Lines:  make([]network.LineFeature, 0, len(doc.Lines)),
	}

	for _, p := range doc.Points {
		cat, err := network.ParseNodeCategory(p.Category)
		if err != nil {
			return nil, fmt.Errorf("point %s: %w", p.ID, err)
		}
		snap.Points = append(snap.Points, network.PointFeature{
			ID:         p.ID,
			Category:   cat,
			Location:   geometry.Point{X: p.X, Y: p.Y},
			Attributes: p.Attributes,
		})
	}

	for _, l := range doc.Lines {
		cat, err := network.ParseLinkCategory(l.Category)
		if err != nil {
			return nil, fmt.Errorf("line %s: %w", l.ID, err)
		}
		verts := make(geometry.Polyline, 0, len(l.Vertices))
		for _, v := range l.Vertices {
			verts = append(verts, geometry.Point{X: v[0], Y: v[1]})
		}
		snap.Lines = append(snap.Lines, network.LineFeature{
			ID:         l.ID,
			Category:   cat,
			Vertices:   verts,
			Attributes: l.Attributes,
		})
	}

	return snap, nil
}

// LoadSnapshot reads a YAML snapshot file
func LoadSnapshot(path string) (*network.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()
	return ParseSnapshot(f)
}

// ParseConfig decodes a YAML run configuration document
func ParseConfig(r io.Reader) (engine.Config, error) {
	var doc configDoc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return engine.Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg := engine.Config{
		Duration:         time.Duration(doc.Duration),
		Step:             time.Duration(doc.Step),
		DemandMultiplier: doc.DemandMultiplier,
	}

	switch doc.Mode {
	case "", "single-time":
		cfg.Mode = engine.SingleTime
	case "time-series":
		cfg.Mode = engine.TimeSeries
	default:
		return engine.Config{}, fmt.Errorf("unknown mode %q", doc.Mode)
	}

	var err error
	if cfg.Formula, err = units.ParseHeadlossFormula(headlossOrDefault(doc.Headloss)); err != nil {
		return engine.Config{}, err
	}

	inFlow, err := units.ParseFlowUnit(flowOrDefault(doc.InputUnits))
	if err != nil {
		return engine.Config{}, err
	}
	cfg.InputUnits = units.Set{Flow: inFlow}

	outFlow, err := units.ParseFlowUnit(flowOrDefault(doc.OutputUnits))
	if err != nil {
		return engine.Config{}, err
	}
	cfg.OutputUnits = units.Set{Flow: outFlow}

	return cfg, nil
}

// LoadConfig reads a YAML run configuration file
func LoadConfig(path string) (engine.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return engine.Config{}, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()
	return ParseConfig(f)
}

func headlossOrDefault(s string) string {
	if s == "" {
		return "H-W"
	}
	return s
}

func flowOrDefault(s string) string {
	if s == "" {
		return "LPS"
	}
	return s
}
