package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-hydronet/pkg/engine"
	"github.com/dd0wney/cluso-hydronet/pkg/metrics"
	"github.com/dd0wney/cluso-hydronet/pkg/network"
	"github.com/dd0wney/cluso-hydronet/pkg/pipeline"
	"github.com/dd0wney/cluso-hydronet/pkg/resultstore"
)

// loadInputs reads the snapshot and config named by the shared flags
func loadInputs(snapshotPath, configPath string) (*network.Snapshot, engine.Config, error) {
	if snapshotPath == "" {
		return nil, engine.Config{}, fmt.Errorf("--snapshot is required")
	}
	snap, err := pipeline.LoadSnapshot(snapshotPath)
	if err != nil {
		return nil, engine.Config{}, err
	}

	cfg := engine.Config{}
	if configPath != "" {
		if cfg, err = pipeline.LoadConfig(configPath); err != nil {
			return nil, engine.Config{}, err
		}
	} else {
		// No config file: single-time metric defaults.
		if cfg, err = pipeline.ParseConfig(strings.NewReader("{}")); err != nil {
			return nil, engine.Config{}, err
		}
	}
	return snap, cfg, nil
}

func printReport(report *network.Report) {
	warnings := report.Warnings()
	fmt.Printf("%d diagnostics (%d warnings)\n", len(report.Diagnostics), len(warnings))
	for _, d := range report.Diagnostics {
		fmt.Printf("  %s\n", d)
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	snapshotPath := fs.String("snapshot", "", "snapshot YAML file")
	configPath := fs.String("config", "", "run configuration YAML file")
	tolerance := fs.Float64("tolerance", pipeline.DefaultTolerance, "snapping tolerance in coordinate units")
	allowDup := fs.Bool("allow-duplicate-links", false, "permit parallel links between one endpoint pair")
	outPath := fs.String("out", "", "write result layers as JSON to this file")
	storePath := fs.String("store", "", "archive results in this SQLite store")
	if err := fs.Parse(args); err != nil {
		return err
	}

	snap, cfg, err := loadInputs(*snapshotPath, *configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := pipeline.New(pipeline.WithMetrics(metrics.DefaultRegistry()))
	layers, report, err := p.Run(ctx, snap, cfg, pipeline.Options{
		Tolerance:           *tolerance,
		AllowDuplicateLinks: *allowDup,
	})
	if report != nil {
		printReport(report)
	}
	if err != nil {
		return err
	}

	fmt.Printf("simulated %d timesteps, %d nodes, %d links\n",
		len(layers.Steps), len(layers.Nodes), len(layers.Links))

	if *outPath != "" {
		data, err := json.MarshalIndent(layers, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(*outPath, data, 0o644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", *outPath)
	}

	if *storePath != "" {
		store, err := resultstore.Open(*storePath, resultstore.WithMetrics(metrics.DefaultRegistry()))
		if err != nil {
			return err
		}
		defer store.Close()

		runID := uuid.NewString()
		if err := store.SaveRun(ctx, runID, cfg.Mode.String(), layers); err != nil {
			return err
		}
		fmt.Printf("archived run %s\n", runID)
	}

	return nil
}

func checkCommand(args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	snapshotPath := fs.String("snapshot", "", "snapshot YAML file")
	configPath := fs.String("config", "", "run configuration YAML file")
	tolerance := fs.Float64("tolerance", pipeline.DefaultTolerance, "snapping tolerance in coordinate units")
	allowDup := fs.Bool("allow-duplicate-links", false, "permit parallel links between one endpoint pair")
	if err := fs.Parse(args); err != nil {
		return err
	}

	snap, cfg, err := loadInputs(*snapshotPath, *configPath)
	if err != nil {
		return err
	}

	p := pipeline.New()
	model, report, err := p.BuildModel(snap, cfg, pipeline.Options{
		Tolerance:           *tolerance,
		AllowDuplicateLinks: *allowDup,
	})
	if report != nil {
		printReport(report)
	}
	if err != nil {
		return err
	}

	fmt.Println(model.Summarize())
	if report.Blocking() {
		return report.Err()
	}
	fmt.Println("model is valid")
	return nil
}

func exportCommand(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	snapshotPath := fs.String("snapshot", "", "snapshot YAML file")
	configPath := fs.String("config", "", "run configuration YAML file")
	tolerance := fs.Float64("tolerance", pipeline.DefaultTolerance, "snapping tolerance in coordinate units")
	outPath := fs.String("out", "network.inp", "output INP file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	snap, cfg, err := loadInputs(*snapshotPath, *configPath)
	if err != nil {
		return err
	}

	p := pipeline.New()
	model, report, err := p.BuildModel(snap, cfg, pipeline.Options{Tolerance: *tolerance})
	if report != nil {
		printReport(report)
	}
	if err != nil {
		return err
	}
	if report.Blocking() {
		return report.Err()
	}

	f, err := os.Create(*outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := engine.WriteINP(f, model, cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", *outPath)
	return nil
}

func runsCommand(args []string) error {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	storePath := fs.String("store", "", "SQLite result store")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *storePath == "" {
		return fmt.Errorf("--store is required")
	}

	store, err := resultstore.Open(*storePath)
	if err != nil {
		return err
	}
	defer store.Close()

	infos, err := store.ListRuns(context.Background())
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("no archived runs")
		return nil
	}
	for _, info := range infos {
		fmt.Printf("%s  %-12s %3d steps  %-6s %s\n",
			info.ID, info.Mode, info.Steps, info.FlowUnit,
			info.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
