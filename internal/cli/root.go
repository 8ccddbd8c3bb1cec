// Copyright (c) the dsim authors. All rights reserved.
// Licensed under the MIT License.

// Package cli implements the dsim command line interface. It is strictly a
// consumer of the root package: it loads or synthesizes scenarios, runs
// them, and renders the finished event log. No simulation logic lives here.
package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all subcommands.
type RootOptions struct {
	Verbose bool
}

// NewRootCommand builds the dsim root command with all subcommands
// attached.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "dsim",
		Short: "Virtual-time simulator for distributed task dispatch",
		Long: `dsim simulates task generation and dispatch across geographically
distributed properties and mobile workers on a virtual clock, and reports
the resulting event log. Runs are reproducible: the same seed, scenario,
and configuration always produce the same log.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false,
		"log each event as it is emitted")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewScenarioCommand(opts))

	return cmd
}
