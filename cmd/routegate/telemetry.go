package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/zen-systems/routegate/pkg/telemetry"
)

func telemetryCmd() *cobra.Command {
	var (
		dbPath   string
		limit    int
		jsonFlag bool
	)

	cmd := &cobra.Command{
		Use:   "telemetry",
		Short: "Show recent routing events from the SQLite archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				dbPath = cfg.Telemetry.Path
			}
			if dbPath == "" {
				return fmt.Errorf("no telemetry archive: set telemetry.path or --db")
			}

			archive, err := telemetry.OpenSQLite(dbPath)
			if err != nil {
				return err
			}
			defer archive.Close()

			events, err := archive.Recent(context.Background(), limit)
			if err != nil {
				return err
			}
			if jsonFlag {
				return writeJSON(cmd.OutOrStdout(), events)
			}
			return printEvents(cmd.OutOrStdout(), events)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "archive path (defaults to telemetry.path)")
	cmd.Flags().IntVar(&limit, "limit", 50, "number of events to show")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "print events as JSON")
	return cmd
}

func printEvents(out io.Writer, events []telemetry.Event) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tTRACE\tKIND\tCATEGORY\tORDER\tMODEL\tCREDENTIAL\tDECISION\tEST USD")
	for _, e := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\t%.4f\n",
			e.Timestamp.Format(time.RFC3339), shortID(e.TraceID), e.Kind, e.Category, e.Order,
			e.ProviderModel, dash(e.Credential), e.Decision, e.EstimatedCostUSD)
	}
	return w.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
