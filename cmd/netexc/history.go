package main

import (
	"fmt"
	"io"
	"time"

	"github.com/passbi/passbi_netex/internal/db"
	"github.com/passbi/passbi_netex/internal/graph"
	"github.com/passbi/passbi_netex/internal/models"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent compile runs recorded in PostgreSQL",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		limit, _ := cmd.Flags().GetInt("limit")

		pool, err := db.Open(ctx, db.LoadConfigFromEnv())
		if err != nil {
			return err
		}
		defer pool.Close()

		store := graph.NewStore(pool)
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		logs, err := store.RecentCompileLogs(ctx, limit)
		if err != nil {
			return err
		}
		writeHistory(cmd.OutOrStdout(), logs)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 10, "number of runs to show")
}

// writeHistory prints one line per compile run, newest first as given
func writeHistory(w io.Writer, logs []models.CompileLog) {
	if len(logs) == 0 {
		fmt.Fprintln(w, "No compile runs recorded")
		return
	}
	for _, l := range logs {
		duration := "-"
		if l.CompletedAt != nil {
			duration = l.CompletedAt.Sub(l.StartedAt).Round(time.Millisecond).String()
		}
		fmt.Fprintf(w, "%s  %s  %-7s  %8s  datasets=%d nodes=%d edges=%d journeys=%d\n",
			l.ID, l.StartedAt.Format(time.RFC3339), l.Status, duration,
			l.DatasetsCount, l.NodesCount, l.EdgesCount, l.JourneysCount)
		if l.ErrorMsg != "" {
			fmt.Fprintf(w, "    error: %s\n", l.ErrorMsg)
		}
	}
}
