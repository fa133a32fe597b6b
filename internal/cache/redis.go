package cache

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/passbi/passbi_netex/internal/codec"
	"github.com/passbi/passbi_netex/internal/models"
	"github.com/redis/go-redis/v9"
)

// ErrLockTimeout is returned when another compile holds the lock for too long
var ErrLockTimeout = errors.New("timeout waiting for compile lock")

// Config holds Redis configuration
type Config struct {
	Host       string
	Port       int
	Password   string
	DB         int
	TLSEnabled bool
}

// LoadConfigFromEnv loads Redis configuration from environment variables
func LoadConfigFromEnv() *Config {
	port, _ := strconv.Atoi(getEnv("REDIS_PORT", "6379"))
	db, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	return &Config{
		Host:       getEnv("REDIS_HOST", "localhost"),
		Port:       port,
		Password:   getEnv("REDIS_PASSWORD", ""),
		DB:         db,
		TLSEnabled: getEnv("REDIS_TLS_ENABLED", "false") == "true",
	}
}

// NewClient connects to Redis and checks the connection
func NewClient(ctx context.Context, config *Config) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		PoolSize:     10,
		MinIdleConns: 1,
	}
	if config.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// GraphCache stores compiled graph snapshots keyed by their inputs
type GraphCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewGraphCache creates a cache whose entries expire after ttl
func NewGraphCache(client redis.UniversalClient, ttl time.Duration) *GraphCache {
	return &GraphCache{client: client, ttl: ttl}
}

// GraphKey derives a cache key from the ordered dataset digests. Worker count
// does not take part since it does not change the compiled sets.
func GraphKey(digests ...string) string {
	h := sha256.New()
	for _, d := range digests {
		h.Write([]byte(d))
		h.Write([]byte{0})
	}
	return "graph:" + hex.EncodeToString(h.Sum(nil)[:12])
}

// LockKey generates a mutex lock key
func LockKey(graphKey string) string {
	return "lock:" + graphKey
}

// GetGraph retrieves a cached graph, nil on a cache miss
func (c *GraphCache) GetGraph(ctx context.Context, key string) (*models.Graph, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	g, err := codec.Unmarshal(data, codec.MsgPack)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached graph: %w", err)
	}
	return g, nil
}

// SetGraph caches a graph
func (c *GraphCache) SetGraph(ctx context.Context, key string, g *models.Graph) error {
	data, err := codec.Marshal(g, codec.MsgPack)
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// AcquireLock attempts to acquire a distributed lock.
// Returns true if the lock was acquired, false if already held.
func (c *GraphCache) AcquireLock(ctx context.Context, graphKey string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, LockKey(graphKey), "1", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *GraphCache) ReleaseLock(ctx context.Context, graphKey string) error {
	return c.client.Del(ctx, LockKey(graphKey)).Err()
}

// WaitForGraph waits for another compile of the same inputs to release its
// lock and then returns whatever it cached. A nil graph means the other
// compile did not store a result.
func (c *GraphCache) WaitForGraph(ctx context.Context, graphKey string, maxWait time.Duration) (*models.Graph, error) {
	lockKey := LockKey(graphKey)
	deadline := time.Now().Add(maxWait)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		exists, err := c.client.Exists(ctx, lockKey).Result()
		if err != nil {
			return nil, err
		}
		if exists == 0 {
			return c.GetGraph(ctx, graphKey)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	return nil, ErrLockTimeout
}

// HealthCheck pings Redis
func HealthCheck(ctx context.Context, client redis.UniversalClient) error {
	if client == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("Redis ping failed: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
