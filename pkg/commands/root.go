// Package commands provides CLI command implementations.
package commands

import (
	"os"

	"github.com/spf13/cobra"

	"ServingDashboard/pkg/config"
)

// Cfg holds the flag defaults; commands read the layered result of Load.
var Cfg = config.New()

var configPath string

// NewRootCmd creates the root command with all subcommands.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "servdash",
		Short: "Live dashboard for a model serving cluster",
		Long: `servdash polls the orchestrator, containers manager, requests store,
controller and dispatcher of a model serving cluster and shows per-model
response times, request rates and container core quotas as live charts.

Commands:
  serve    Run the sampling engine and the dashboard server
  record   Sample for a duration and write the series to a file
  status   Print the status and configuration of every service
  graph    Render a recording to HTML or PNG charts`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ./servdash.yaml if present)")
	root.PersistentFlags().StringVar(&Cfg.SessionID, "session-id", Cfg.SessionID, "Session id (random if empty)")
	Cfg.AddLogFlags(root)

	root.AddCommand(
		NewServeCmd(),
		NewRecordCmd(),
		NewStatusCmd(),
		NewGraphCmd(),
	)

	return root
}

// Execute runs the root command.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		root.PrintErrln("Error:", err)
		os.Exit(1)
	}
}
