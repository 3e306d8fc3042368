package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sampurna/itsupport/internal/config"
	"github.com/sampurna/itsupport/internal/database"
	"github.com/sampurna/itsupport/internal/documents"
	"github.com/sampurna/itsupport/internal/embedding"
)

func main() {
	batch := flag.Int("batch", documents.ReindexBatchSize, "embeddings committed per transaction")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg.Log)

	if cfg.Store.Backend != config.StoreBackendPostgres {
		slog.Error("reindex only supports the postgres backend, re-run seed for the memory store", "backend", cfg.Store.Backend)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	embedder, err := embedding.New(ctx, cfg.Embedding, cfg.LLM.APIKey)
	if err != nil {
		slog.Error("creating embedder", "error", err)
		os.Exit(1)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	n, err := documents.Reindex(ctx, documents.NewPostgresStore(pool), embedder, *batch)
	if err != nil {
		slog.Error("reindexing", "error", err, "written", n)
		pool.Close()
		os.Exit(1)
	}
	slog.Info("reindex complete", "documents", n)
}

func setupLogger(cfg config.LogConfig) {
	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
