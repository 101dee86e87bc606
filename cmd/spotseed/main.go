// spotseed loads pre-curated spots from a parquet file into the vector index
// used by free-text search. Each spot's description is embedded and stored
// alongside its geo and metadata fields.
//
// Usage:
//
//	spotseed -file /data/spots.parquet -batch-size 64
package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sawanori/mapmapmap/internal/config"
	dbRedis "github.com/sawanori/mapmapmap/internal/db/redis"
	"github.com/sawanori/mapmapmap/internal/domain"
	logpkg "github.com/sawanori/mapmapmap/internal/logger"
	spotrepo "github.com/sawanori/mapmapmap/internal/repository/spot"
	openaiTransport "github.com/sawanori/mapmapmap/internal/transport/openai"
)

type seedConfig struct {
	file      string
	batchSize int
}

func main() {
	var cfg seedConfig
	flag.StringVar(&cfg.file, "file", "spots.parquet", "path to the spots parquet file")
	flag.IntVar(&cfg.batchSize, "batch-size", 64, "spots per embed+upsert batch")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	env := config.GetEnv()
	appCfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, appCfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	if err := run(ctx, cfg, appCfg, logger); err != nil {
		logger.Fatal("seed failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg seedConfig, appCfg config.Config, logger *zap.Logger) error {
	start := time.Now()

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    appCfg.Database.Addrs,
		Password: appCfg.Database.Password,
	})
	if err != nil {
		return fmt.Errorf("create store: %w", err)
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(appCfg.Database.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("store not ready: %w", err)
	}

	embedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     appCfg.Embedding.APIKey,
		BaseURL:    appCfg.Embedding.BaseURL,
		Model:      appCfg.Embedding.Model,
		Dimensions: appCfg.Embedding.Dimensions,
		Logger:     logger,
	})

	repo := spotrepo.New(store)
	if err := repo.EnsureIndex(ctx, spotrepo.IndexParams{
		Dimensions:  appCfg.Embedding.Dimensions,
		M:           appCfg.Search.HNSWM,
		EFConstruct: appCfg.Search.HNSWEFConstruct,
	}); err != nil {
		return fmt.Errorf("ensure spot index: %w", err)
	}

	total := 0
	err = readSpots(cfg.file, cfg.batchSize, func(batch []domain.Spot) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		texts := make([]string, len(batch))
		for i := range batch {
			texts[i] = embedText(batch[i])
		}

		vectors, err := embedder.BatchEmbed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch: %w", err)
		}

		if err := repo.UpsertBatch(ctx, batch, vectors); err != nil {
			return fmt.Errorf("upsert batch: %w", err)
		}

		total += len(batch)
		logger.Info("batch loaded", zap.Int("total", total))
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("seed complete",
		zap.Int("spots", total),
		zap.Duration("elapsed", time.Since(start).Round(time.Second)),
	)
	return nil
}

// embedText is the text the spot is indexed under. Name and category are
// folded in so short descriptions still carry signal.
func embedText(s domain.Spot) string {
	parts := make([]string, 0, 3)
	if s.Name != "" {
		parts = append(parts, s.Name)
	}
	if s.Category != "" {
		parts = append(parts, s.Category)
	}
	if s.Description != "" {
		parts = append(parts, s.Description)
	}
	return strings.Join(parts, ". ")
}
