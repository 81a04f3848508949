package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string
	root := &cobra.Command{
		Use:           "cpuplatd",
		Short:         "CPU platform negotiator and configuration resolver for LLM serving",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug|info|warn|error|off")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		setupLogging(logLevel)
	}

	root.AddCommand(newTopologyCmd())
	root.AddCommand(newResolveCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newVersionCmd())
	return root
}
