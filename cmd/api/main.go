package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/passbi/passbi_netex/internal"
	"github.com/passbi/passbi_netex/internal/api"
	"github.com/passbi/passbi_netex/internal/cache"
	"github.com/passbi/passbi_netex/internal/codec"
	"github.com/passbi/passbi_netex/internal/config"
	"github.com/passbi/passbi_netex/internal/db"
	"github.com/passbi/passbi_netex/internal/graph"
)

func main() {
	_ = godotenv.Load()
	_ = godotenv.Overload(".env.local")
	internal.InitLogging()

	snapshot := flag.String("snapshot", getEnv("GRAPH_SNAPSHOT", ""), "graph snapshot to serve (default: load from PostgreSQL)")
	port := flag.String("port", getEnv("API_PORT", "8080"), "listen port")
	jobPath := flag.String("config", "", "compile job file, its api.port and output path apply unless -port or -snapshot are given")
	flag.Parse()

	addr := fmt.Sprintf(":%s", *port)
	if *jobPath != "" {
		job, err := config.Load(*jobPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		explicit := map[string]bool{}
		flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

		if !explicit["port"] {
			addr = job.ListenAddr()
		}
		if *snapshot == "" && !job.Persist {
			*snapshot = job.Output.Path
		}
	}

	log.Println("Starting NeTEx graph API server...")
	ctx := context.Background()

	g := graph.GetGraph()
	if *snapshot != "" {
		compiled, err := codec.ReadFile(*snapshot)
		if err != nil {
			log.Fatalf("Failed to read snapshot: %v", err)
		}
		g.Load(compiled)
		log.Printf("Graph loaded from %s", *snapshot)
	} else {
		pool, err := db.Open(ctx, db.LoadConfigFromEnv())
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pool.Close()
		log.Println("Database connection established")

		if err := g.LoadFromStore(ctx, graph.NewStore(pool)); err != nil {
			log.Fatalf("Failed to load graph: %v", err)
		}
	}

	serverConfig := api.ServerConfig{AccessLog: true}
	if limit, _ := strconv.Atoi(getEnv("RATE_LIMIT_PER_MINUTE", "0")); limit > 0 {
		client, err := cache.NewClient(ctx, cache.LoadConfigFromEnv())
		if err != nil {
			log.Printf("Redis unavailable, rate limiting disabled: %v", err)
		} else {
			defer client.Close()
			serverConfig.Redis = client
			serverConfig.RateLimit = limit
			log.Printf("Rate limiting at %d requests per minute", limit)
		}
	}

	app := api.NewApp(api.NewHandler(g), serverConfig)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down gracefully...")
		if err := app.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	log.Printf("Server listening on http://localhost%s", addr)
	log.Printf("Health check: http://localhost%s/health", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
