// Copyright (c) the dsim authors. All rights reserved.
// Licensed under the MIT License.

package cli

import (
	"fmt"
	"math/rand/v2"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	dsim "github.com/taskfleet/dsim-go"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions

	ScenarioPath string
	Minutes      float64
	Seed         uint64
	RadiusKm     float64
	Exclusive    bool

	// Properties and Workers size the synthesized scenario; both are
	// ignored when ScenarioPath is set.
	Properties int
	Workers    int

	EventsPath    string
	JSON          bool
	Chart         bool
	Timeline      bool
	TimelineLimit int
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation and report the event log",
		Long: `Run a simulation to the given horizon and print a report of the
resulting event log.

With --scenario the world is loaded from a YAML file (write a starting
point with "dsim scenario init"). Without it a default scenario is
synthesized from the seed: jittered properties and workers around a city
center with a four-type task catalog.

Examples:
  dsim run --minutes 720 --seed 42
  dsim run --scenario city.yaml --events events.jsonl
  dsim run --scenario city.yaml --exclusive --json`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.ScenarioPath, "scenario", "s", "",
		"YAML scenario file (default: synthesize one from the seed)")
	cmd.Flags().Float64VarP(&opts.Minutes, "minutes", "m", 720,
		"virtual minutes to simulate")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 42,
		"random seed; equal seeds reproduce runs exactly")
	cmd.Flags().Float64Var(&opts.RadiusKm, "radius", dsim.DefaultMaxRadiusKm,
		"candidate search radius in km")
	cmd.Flags().IntVar(&opts.Properties, "properties", 25,
		"properties in the synthesized scenario")
	cmd.Flags().IntVar(&opts.Workers, "workers", 120,
		"workers in the synthesized scenario")
	cmd.Flags().BoolVar(&opts.Exclusive, "exclusive", false,
		"reserve workers for one task at a time")
	cmd.Flags().StringVar(&opts.EventsPath, "events", "",
		"write the event log to this file as JSON lines")
	cmd.Flags().BoolVar(&opts.JSON, "json", false,
		"print the report as JSON instead of text")
	cmd.Flags().BoolVar(&opts.Chart, "chart", true,
		"include the per-hour activity chart in text output")
	cmd.Flags().BoolVarP(&opts.Timeline, "timeline", "t", false,
		"include the first events of the log in text output")
	cmd.Flags().IntVar(&opts.TimelineLimit, "timeline-limit", 30,
		"events to show with --timeline")

	return cmd
}

func runSimulation(opts *RunOptions, cmd *cobra.Command) error {
	sc, source, err := resolveScenario(opts)
	if err != nil {
		return err
	}

	cfg := dsim.Config{
		Horizon:          opts.Minutes,
		MaxRadiusKm:      opts.RadiusKm,
		Seed:             opts.Seed,
		ExclusiveWorkers: opts.Exclusive,
	}
	if opts.Verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
		defer func() { _ = logger.Sync() }()
		cfg.Observer = dsim.NewZapObserver(logger)
	}

	res, err := dsim.Run(cfg, sc)
	if err != nil {
		return err
	}

	if opts.EventsPath != "" {
		if err := writeEventsFile(opts.EventsPath, res.Events); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d events to %s\n", len(res.Events), opts.EventsPath)
	}

	out := cmd.OutOrStdout()
	if opts.JSON {
		return writeReportJSON(out, res, sc, source)
	}
	renderReport(out, res, sc, source, opts)
	return nil
}

// resolveScenario loads the scenario file when one was given, or
// synthesizes the default world from the seed.
func resolveScenario(opts *RunOptions) (*dsim.Scenario, string, error) {
	if opts.ScenarioPath != "" {
		sc, err := LoadScenario(opts.ScenarioPath)
		if err != nil {
			return nil, "", err
		}
		return sc, opts.ScenarioPath, nil
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	return dsim.DefaultScenario(rng, opts.Properties, opts.Workers), "synthesized", nil
}
