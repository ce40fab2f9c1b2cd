package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nevindra/quiver"
	"github.com/nevindra/quiver/internal/config"
	"github.com/nevindra/quiver/internal/server"
	"github.com/nevindra/quiver/observer"
	"github.com/nevindra/quiver/provider/openaicompat"
	"github.com/nevindra/quiver/store/postgres"
	"github.com/nevindra/quiver/store/sqlite"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// 1. Load config
	cfg := config.Load(os.Getenv("QUIVER_CONFIG"))

	// 2. Create providers
	llm := quiver.Provider(openaicompat.NewProvider(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL))
	embedding := quiver.EmbeddingProvider(openaicompat.NewEmbedding(
		cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.BaseURL, cfg.Embedding.Dimensions))

	var scorer quiver.Scorer
	if cfg.Reranker.BaseURL != "" {
		scorer = openaicompat.NewRerankScorer(cfg.Reranker.APIKey, cfg.Reranker.Model, cfg.Reranker.BaseURL)
	}

	// 3. Observability (optional)
	if cfg.Observer.Enabled {
		pricing := make(map[string]observer.ModelPricing, len(cfg.Observer.Pricing))
		for model, p := range cfg.Observer.Pricing {
			pricing[model] = observer.ModelPricing{InputPerMillion: p.Input, OutputPerMillion: p.Output}
		}
		inst, shutdown, err := observer.Init(ctx, pricing)
		if err != nil {
			log.Fatalf("observer init: %v", err)
		}
		defer shutdown(context.Background())

		llm = observer.WrapProvider(llm, cfg.LLM.Model, inst)
		embedding = observer.WrapEmbedding(embedding, cfg.Embedding.Model, inst)
		if scorer != nil {
			scorer = observer.WrapScorer(scorer, cfg.Reranker.Model, inst)
		}
	}

	// 4. Retry middleware around flaky provider HTTP calls
	llm = quiver.WithRetry(llm, quiver.RetryLogger(logger))
	embedding = quiver.WithEmbeddingRetry(embedding, quiver.RetryLogger(logger))
	if scorer != nil {
		scorer = quiver.WithScorerRetry(scorer, quiver.RetryLogger(logger))
	}

	// 5. Persistence backend
	var store quiver.IndexStore
	switch cfg.Store.Backend {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Store.PostgresURL)
		if err != nil {
			log.Fatalf("postgres pool: %v", err)
		}
		defer pool.Close()
		store = postgres.New(pool, postgres.WithEmbeddingDimension(cfg.Embedding.Dimensions))
	case "none":
		// In-memory only.
	default:
		store = sqlite.New(cfg.Store.Path, sqlite.WithLogger(logger))
	}
	if store != nil {
		if err := store.Init(ctx); err != nil {
			log.Fatalf("store init: %v", err)
		}
		defer store.Close()
	}

	// 6. Engine
	opts := []quiver.EngineOption{
		quiver.WithLogger(logger),
		quiver.WithBatchSize(cfg.Embedding.BatchSize),
		quiver.WithDependencyTimeout(time.Duration(cfg.Retrieval.TimeoutSeconds) * time.Second),
	}
	if scorer != nil {
		opts = append(opts, quiver.WithScorer(scorer), quiver.WithScoreConcurrency(cfg.Reranker.Concurrency))
	}
	if store != nil {
		opts = append(opts, quiver.WithStore(store))
	}
	engine := quiver.NewEngine(embedding, llm, opts...)

	if store != nil {
		n, err := engine.LoadPersisted(ctx)
		if err != nil {
			log.Fatalf("load persisted collections: %v", err)
		}
		logger.Info("collections restored", "count", n)
	}

	// 7. HTTP server
	params := quiver.ChunkParams{
		ChunkSize:     cfg.Chunking.Size,
		ChunkOverlap:  cfg.Chunking.Overlap,
		ParentSize:    cfg.Chunking.ParentSize,
		ParentOverlap: cfg.Chunking.ParentOverlap,
		ChildSize:     cfg.Chunking.ChildSize,
		ChildOverlap:  cfg.Chunking.ChildOverlap,
	}
	srv := server.New(engine,
		server.WithChunkParams(params),
		server.WithTopK(cfg.Retrieval.TopK),
		server.WithLogger(logger),
	)
	if err := srv.Start(cfg.Server.Addr); err != nil {
		log.Fatalf("server start: %v", err)
	}
	defer srv.Close()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")
}
