// Copyright (c) the dsim authors. All rights reserved.
// Licensed under the MIT License.

package cli

import (
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	dsim "github.com/taskfleet/dsim-go"
)

// NewScenarioCommand groups the scenario file helpers.
func NewScenarioCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Scenario file helpers",
	}
	cmd.AddCommand(newScenarioInitCommand(rootOpts))
	return cmd
}

// ScenarioInitOptions holds flags for the scenario init command.
type ScenarioInitOptions struct {
	*RootOptions
	Out        string
	Seed       uint64
	Properties int
	Workers    int
}

func newScenarioInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScenarioInitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a synthesized default scenario as YAML",
		Long: `Write the synthesized default scenario to a YAML file as a starting
point for editing: jittered properties and workers around a city center
and the four-type task catalog. Pass "-" to write to stdout.

The file round-trips through "dsim run --scenario".`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioInit(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "scenario.yaml",
		"output path, or - for stdout")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 42,
		"random seed for the synthesized world")
	cmd.Flags().IntVar(&opts.Properties, "properties", 25, "number of properties")
	cmd.Flags().IntVar(&opts.Workers, "workers", 120, "number of workers")

	return cmd
}

func runScenarioInit(opts *ScenarioInitOptions, cmd *cobra.Command) error {
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	sc := dsim.DefaultScenario(rng, opts.Properties, opts.Workers)

	data, err := yaml.Marshal(sc)
	if err != nil {
		return fmt.Errorf("encode scenario: %w", err)
	}

	if opts.Out == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(opts.Out, data, 0o644); err != nil {
		return fmt.Errorf("write scenario: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d properties, %d workers, %d task types\n",
		opts.Out, len(sc.Properties), len(sc.Workers), len(sc.TaskTypes))
	return nil
}
