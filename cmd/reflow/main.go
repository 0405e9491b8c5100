package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "reflow",
		Short: "Per-instance reactivity runtime for Go",
		Long: `Reflow is a per-instance reactivity runtime.

Attach a runtime to any host with an update lifecycle and get
mutation-tracked state, cached computed cells, dependency-gated
effects, and change-detecting watchers, all scoped to the instance
and torn down with it. The bundled server hosts components over
WebSocket with Prometheus metrics and snapshot persistence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
