package main

import (
	"encoding/json"
	"fmt"

	"github.com/passbi/passbi_netex/internal/codec"
	"github.com/passbi/passbi_netex/internal/graph"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <snapshot>",
	Short: "Print statistics of a graph snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := codec.ReadFile(args[0])
		if err != nil {
			return err
		}
		stats := graph.StatsOf(g)

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Snapshot: %s\n", args[0])
		fmt.Fprintf(out, "   Nodes: %d\n", stats.Nodes)
		fmt.Fprintf(out, "   Edges: %d\n", stats.Edges)
		fmt.Fprintf(out, "   Journeys: %d\n", stats.Journeys)
		fmt.Fprintf(out, "   Edge periods: %d\n", stats.Periods)

		if top, _ := cmd.Flags().GetInt("top"); top > 0 {
			fmt.Fprintln(out, "Busiest edges:")
			for _, e := range graph.BusiestEdges(g, top) {
				fmt.Fprintf(out, "   %s -> %s: %d journeys\n",
					g.Nodes[e.StartNode].ShortName, g.Nodes[e.EndNode].ShortName, len(e.Timetable.Journeys))
			}
		}
		return nil
	},
}

func init() {
	inspectCmd.Flags().Bool("json", false, "print statistics as JSON")
	inspectCmd.Flags().Int("top", 0, "list the N edges with the most journeys")
}
