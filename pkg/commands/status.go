package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"ServingDashboard/pkg/logging"
	"ServingDashboard/pkg/services"
)

var (
	statusConfiguration bool
	statusJSON          bool
)

// NewStatusCmd creates the status subcommand.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the status and configuration of every service",
		Long: `Query GET / of the five services once and print their status. Services
that cannot be reached show "?".

Example:
  servdash status
  servdash status --configuration --json`,
		RunE: runStatus,
	}

	Cfg.AddClusterFlags(cmd)
	cmd.Flags().DurationVar(&Cfg.FetchTimeout, "fetch-timeout", Cfg.FetchTimeout, "Per-request deadline")
	cmd.Flags().BoolVar(&statusConfiguration, "configuration", false, "Also print every configuration document")
	cmd.Flags().BoolVar(&statusJSON, "json", false, "Print JSON instead of a table")

	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logging.Flush(log)

	cluster, err := newCluster(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*cfg.FetchTimeout)
	defer cancel()

	board := cluster.StatusBoard(ctx)
	var docs []services.ConfigDocument
	if statusConfiguration {
		docs = cluster.ConfigurationBoard(ctx)
	}
	return printStatus(cmd.OutOrStdout(), board, docs, statusJSON)
}

func printStatus(w io.Writer, board []services.ServiceStatus, docs []services.ConfigDocument, asJSON bool) error {
	if asJSON {
		out := map[string]interface{}{"status": board}
		if docs != nil {
			out["configuration"] = docs
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SERVICE\tURL\tSTATUS")
	for _, s := range board {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Service, s.URL, s.Status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, d := range docs {
		fmt.Fprintf(w, "\n# %s %s\n%s\n", d.Service, d.Document, string(d.Configuration))
	}
	return nil
}
