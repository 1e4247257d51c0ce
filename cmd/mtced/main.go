// SPDX-License-Identifier: BSD-3-Clause

// Command mtced is the cluster node maintenance agent daemon: a single
// process that tracks every provisioned host, supervising the inbound
// wire-protocol listeners, the command and stage FSMs, the HTTP work queue,
// the fleet-level controllers, and the REST surface.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set via -ldflags at build time; left at "dev" otherwise.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "mtced",
	Short:         "mtced runs the cluster node maintenance agent",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main().
func Execute() {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
