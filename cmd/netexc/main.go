package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/passbi/passbi_netex/internal"
	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "netexc",
	Short: "NeTEx timetable graph compiler",
	Long: `netexc compiles NeTEx timetable datasets into a directed stop graph
whose edges carry compacted journey timetables.`,
	SilenceUsage: true,
}

func main() {
	_ = godotenv.Load()
	_ = godotenv.Overload(".env.local")
	internal.InitLogging()

	rootCmd.Version = version
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(historyCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
