// Copyright (c) the dsim authors. All rights reserved.
// Licensed under the MIT License.

package main

import (
	"os"

	"github.com/taskfleet/dsim-go/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// Cobra has already printed the error.
		os.Exit(1)
	}
}
