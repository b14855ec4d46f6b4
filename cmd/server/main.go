// cmd/server/main.go
package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/clickit/analytics-engine/internal/advisor"
	"github.com/clickit/analytics-engine/internal/analyzer"
	"github.com/clickit/analytics-engine/internal/cache"
	"github.com/clickit/analytics-engine/internal/compute"
	"github.com/clickit/analytics-engine/internal/config"
	"github.com/clickit/analytics-engine/internal/llm"
	"github.com/clickit/analytics-engine/internal/server"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	level, _ := cfg.SlogLevel()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	pool := compute.NewPool(cfg.Analysis.Workers)
	a := analyzer.New(
		analyzer.WithPool(pool),
		analyzer.WithDefaultSeed(cfg.Analysis.DefaultSeed),
	)

	var opts []server.Option

	if cfg.LLM.Enabled() {
		provider, err := llm.NewProvider(context.Background(), &cfg.LLM)
		if err != nil {
			log.Fatalf("failed to create LLM provider: %v", err)
		}
		if c, ok := provider.(io.Closer); ok {
			defer c.Close()
		}
		opts = append(opts, server.WithAdvisor(advisor.New(provider)))
		slog.Info("AI advisor enabled", "provider", provider.Name())
	} else {
		slog.Warn("No LLM API key configured, AI endpoints will answer 503", "provider", cfg.LLM.Provider)
	}

	if cfg.Cache.RedisURL != "" {
		c, err := cache.NewFromURL(cfg.Cache.RedisURL, cfg.Cache.TTL)
		if err != nil {
			log.Fatalf("failed to configure result cache: %v", err)
		}
		defer c.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := c.Ping(ctx); err != nil {
			slog.Warn("Redis is unreachable, lookups will miss until it recovers", "error", err)
		}
		cancel()
		opts = append(opts, server.WithCache(c))
	}

	srv := server.New(*cfg, a, opts...)
	slog.Info("starting server", "host", cfg.Server.Host, "port", cfg.Server.Port, "workers", pool.Size())
	if err := srv.Run(); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
