package main

import (
	"fmt"

	"github.com/passbi/passbi_netex/internal/cache"
	"github.com/passbi/passbi_netex/internal/db"
	"github.com/spf13/cobra"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check PostgreSQL and Redis connectivity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		failed := false

		dbConfig := db.LoadConfigFromEnv()
		fmt.Fprintf(out, "PostgreSQL %s:%d/%s\n", dbConfig.Host, dbConfig.Port, dbConfig.Database)
		if pool, err := db.Open(ctx, dbConfig); err != nil {
			fmt.Fprintf(out, "   FAILED: %v\n", err)
			failed = true
		} else {
			version, err := db.HealthCheck(ctx, pool)
			pool.Close()
			if err != nil {
				fmt.Fprintf(out, "   FAILED: %v\n", err)
				failed = true
			} else {
				fmt.Fprintf(out, "   OK, server %s\n", version)
			}
		}

		redisConfig := cache.LoadConfigFromEnv()
		fmt.Fprintf(out, "Redis %s:%d/%d\n", redisConfig.Host, redisConfig.Port, redisConfig.DB)
		if client, err := cache.NewClient(ctx, redisConfig); err != nil {
			fmt.Fprintf(out, "   FAILED: %v\n", err)
			failed = true
		} else {
			err := cache.HealthCheck(ctx, client)
			client.Close()
			if err != nil {
				fmt.Fprintf(out, "   FAILED: %v\n", err)
				failed = true
			} else {
				fmt.Fprintln(out, "   OK")
			}
		}

		if failed {
			return fmt.Errorf("connectivity check failed")
		}
		return nil
	},
}
