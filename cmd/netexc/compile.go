package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/passbi/passbi_netex/internal/cache"
	"github.com/passbi/passbi_netex/internal/codec"
	"github.com/passbi/passbi_netex/internal/config"
	"github.com/passbi/passbi_netex/internal/db"
	"github.com/passbi/passbi_netex/internal/graph"
	"github.com/passbi/passbi_netex/internal/models"
	"github.com/passbi/passbi_netex/internal/netex"
	"github.com/spf13/cobra"
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile the datasets of a job file into a graph snapshot",
	Args:  cobra.NoArgs,
	RunE:  runCompile,
}

func init() {
	compileCmd.Flags().StringP("config", "c", config.DefaultPath, "compile job file")
	compileCmd.Flags().IntP("workers", "w", -1, "worker goroutines per parallel step (overrides the job file)")
	compileCmd.Flags().StringP("output", "o", "", "snapshot path (overrides the job file)")
	compileCmd.Flags().Bool("no-cache", false, "skip the redis snapshot cache")
	compileCmd.Flags().Bool("persist", false, "also save the graph to PostgreSQL")
}

func runCompile(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadJob(cmd)
	if err != nil {
		return err
	}

	log.Println("NeTEx graph compiler")
	log.Println("====================")
	startTime := time.Now()

	sources := make([]netex.Source, len(cfg.Datasets))
	for i, ds := range cfg.Datasets {
		sources[i] = netex.Source{Name: ds.Name, Path: ds.Path}
	}

	var (
		graphCache *cache.GraphCache
		cacheKey   string
		locked     bool
	)
	if cfg.Cache.Enabled {
		graphCache, cacheKey, err = openCache(ctx, cfg, sources)
		if err != nil {
			log.Printf("Snapshot cache unavailable, compiling without it: %v", err)
			graphCache = nil
		}
	}

	if graphCache != nil {
		if g, err := graphCache.GetGraph(ctx, cacheKey); err != nil {
			log.Printf("Cache read failed: %v", err)
		} else if g != nil {
			log.Printf("Cache hit for %s", cacheKey)
			return finish(ctx, cfg, g, startTime)
		}

		locked, err = graphCache.AcquireLock(ctx, cacheKey, cfg.Cache.LockTTL)
		if err != nil {
			log.Printf("Failed to acquire compile lock: %v", err)
		} else if !locked {
			log.Println("Another compile of the same datasets is running, waiting for it...")
			g, err := graphCache.WaitForGraph(ctx, cacheKey, cfg.Cache.LockTTL)
			if err != nil {
				log.Printf("Wait failed, compiling locally: %v", err)
			} else if g != nil {
				return finish(ctx, cfg, g, startTime)
			}
		}
	}
	if locked {
		defer func() {
			if err := graphCache.ReleaseLock(context.WithoutCancel(ctx), cacheKey); err != nil {
				log.Printf("Failed to release compile lock: %v", err)
			}
		}()
	}

	log.Printf("Parsing %d datasets...", len(sources))
	datasets, err := netex.LoadDatasets(ctx, sources, cfg.Workers)
	if err != nil {
		return fmt.Errorf("failed to parse datasets: %w", err)
	}

	compileStart := time.Now()
	g, stats, compileErr := graph.NewCompiler(cfg.Workers).Compile(ctx, datasets)
	if cfg.Persist {
		logCompile(ctx, compileStart, len(datasets), stats, compileErr)
	}
	if compileErr != nil {
		return compileErr
	}

	if graphCache != nil {
		if err := graphCache.SetGraph(ctx, cacheKey, g); err != nil {
			log.Printf("Failed to cache graph: %v", err)
		} else {
			log.Printf("Cached graph as %s", cacheKey)
		}
	}

	return finish(ctx, cfg, g, startTime)
}

func loadJob(cmd *cobra.Command) (*config.CompileConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if workers, _ := cmd.Flags().GetInt("workers"); workers >= 0 {
		cfg.Workers = workers
	}
	if output, _ := cmd.Flags().GetString("output"); output != "" {
		cfg.Output.Path = output
		cfg.Output.Format = string(codec.FormatOf(output))
	}
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		cfg.Cache.Enabled = false
	}
	if persist, _ := cmd.Flags().GetBool("persist"); persist {
		cfg.Persist = true
	}
	return cfg, nil
}

func openCache(ctx context.Context, cfg *config.CompileConfig, sources []netex.Source) (*cache.GraphCache, string, error) {
	digests := make([]string, len(sources))
	for i, src := range sources {
		sum, err := netex.Digest(src.Path)
		if err != nil {
			return nil, "", err
		}
		digests[i] = hex.EncodeToString(sum)
	}

	client, err := cache.NewClient(ctx, cache.LoadConfigFromEnv())
	if err != nil {
		return nil, "", err
	}
	return cache.NewGraphCache(client, cfg.Cache.TTL), cache.GraphKey(digests...), nil
}

// finish writes the snapshot and persists the graph when asked to
func finish(ctx context.Context, cfg *config.CompileConfig, g *models.Graph, startTime time.Time) error {
	if err := codec.WriteFile(cfg.Output.Path, g, codec.Format(cfg.Output.Format)); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	log.Printf("Snapshot written to %s (%s)", cfg.Output.Path, cfg.Output.Format)

	if cfg.Persist {
		pool, err := db.Open(ctx, db.LoadConfigFromEnv())
		if err != nil {
			return err
		}
		defer pool.Close()

		store := graph.NewStore(pool)
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		if err := store.SaveGraph(ctx, g); err != nil {
			return err
		}
	}

	stats := graph.StatsOf(g)
	log.Println()
	log.Println("Graph compiled successfully")
	log.Printf("   Nodes: %d", stats.Nodes)
	log.Printf("   Edges: %d", stats.Edges)
	log.Printf("   Journeys: %d", stats.Journeys)
	log.Printf("   Edge periods: %d", stats.Periods)
	log.Printf("   Total time: %v", time.Since(startTime))
	return nil
}

func logCompile(ctx context.Context, startedAt time.Time, datasets int, stats *graph.Stats, compileErr error) {
	pool, err := db.Open(ctx, db.LoadConfigFromEnv())
	if err != nil {
		log.Printf("Failed to record compile log: %v", err)
		return
	}
	defer pool.Close()

	store := graph.NewStore(pool)
	if err := store.Migrate(ctx); err != nil {
		log.Printf("Failed to record compile log: %v", err)
		return
	}
	id, err := store.LogCompile(ctx, startedAt, datasets, stats, compileErr)
	if err != nil {
		log.Printf("Failed to record compile log: %v", err)
		return
	}
	log.Printf("Compile run recorded as %s", id)
}
