//go:build integration
// +build integration

package test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goEMS "github.com/MrEthical07/goEMS"
)

// redisMode describes which Redis backend the suite is running against.
type redisMode struct {
	name  string
	setup func(t *testing.T) (redis.UniversalClient, func())
}

// redisModes returns the set of Redis backends to test.
// miniredis is always available.
// Real Redis standalone is used when REDIS_ADDR is set (e.g. "127.0.0.1:6379").
func redisModes(t *testing.T) []redisMode {
	t.Helper()
	modes := []redisMode{
		{
			name: "miniredis",
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				mr, err := miniredis.Run()
				if err != nil {
					t.Fatalf("miniredis: %v", err)
				}
				rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				return rdb, func() { _ = rdb.Close(); mr.Close() }
			},
		},
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		modes = append(modes, redisMode{
			name: "standalone:" + addr,
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				rdb := redis.NewClient(&redis.Options{Addr: addr})
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("cannot connect to Redis at %s: %v", addr, err)
				}
				// Flush the test DB to avoid state leaking between runs.
				rdb.FlushDB(context.Background())
				return rdb, func() { rdb.FlushDB(context.Background()); _ = rdb.Close() }
			},
		})
	}
	return modes
}

func integrationConfig(origin string) goEMS.Config {
	cfg := goEMS.DefaultConfig()
	cfg.Realtime.Enabled = false
	cfg.Storage.Prefix = "emsit"
	cfg.Storage.Origin = origin
	return cfg
}

// buildClient builds a Client over rdb. The returned Client is closed on
// test cleanup; rdb stays open so another Client can reuse it.
func buildClient(t *testing.T, rdb redis.UniversalClient, cfg goEMS.Config) *goEMS.Client {
	t.Helper()
	c, err := goEMS.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build(context.Background())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}
