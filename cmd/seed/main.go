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
	"github.com/sampurna/itsupport/internal/ingest"
)

func main() {
	csvPath := flag.String("csv", "", "CSV file with id,content,metadata,embedding columns")
	markdownDir := flag.String("markdown", "", "directory of policy markdown files")
	watch := flag.Bool("watch", false, "keep re-ingesting changed markdown files (postgres backend)")
	exportPath := flag.String("export", "", "write the memory store to this gob file when done")
	chunkSize := flag.Int("chunk", ingest.DefaultChunkSize, "target markdown chunk size in characters")
	flag.Parse()

	if *csvPath == "" && *markdownDir == "" {
		slog.Error("nothing to seed: pass -csv or -markdown")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	embedder, err := embedding.New(ctx, cfg.Embedding, cfg.LLM.APIKey)
	if err != nil {
		slog.Error("creating embedder", "error", err)
		os.Exit(1)
	}

	var (
		store    documents.Writer
		pgStore  *documents.PostgresStore
		memStore *documents.MemoryStore
	)
	switch cfg.Store.Backend {
	case config.StoreBackendMemory:
		memStore, err = documents.LoadMemoryStore(cfg.Store.MemoryPath, embedder.Embed)
		if err != nil {
			slog.Error("loading memory store", "error", err)
			os.Exit(1)
		}
		store = memStore
	default:
		if err := database.RunMigrations(cfg.DB.DSN(), cfg.DB.MigrationsPath); err != nil {
			slog.Error("running migrations", "error", err)
			os.Exit(1)
		}
		pool, err := database.NewPostgresPool(ctx, cfg.DB)
		if err != nil {
			slog.Error("connecting to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		pgStore = documents.NewPostgresStore(pool)
		store = pgStore
	}

	seeder := ingest.NewSeeder(embedder, store)
	total := 0

	if *csvPath != "" {
		f, err := os.Open(*csvPath)
		if err != nil {
			slog.Error("opening csv", "error", err)
			os.Exit(1)
		}
		docs, skipped, err := ingest.ReadCSV(f)
		f.Close()
		if err != nil {
			slog.Error("reading csv", "error", err, "path", *csvPath)
			os.Exit(1)
		}
		n, err := seeder.Seed(ctx, docs)
		total += n
		if err != nil {
			slog.Error("seeding csv rows", "error", err, "written", n)
			os.Exit(1)
		}
		slog.Info("seeded csv", "path", *csvPath, "documents", n, "skipped", skipped)
	}

	if *markdownDir != "" {
		docs, err := ingest.LoadMarkdownDir(*markdownDir, *chunkSize)
		if err != nil {
			slog.Error("loading markdown", "error", err, "dir", *markdownDir)
			os.Exit(1)
		}
		n, err := seeder.Seed(ctx, docs)
		total += n
		if err != nil {
			slog.Error("seeding markdown chunks", "error", err, "written", n)
			os.Exit(1)
		}
		slog.Info("seeded markdown", "dir", *markdownDir, "chunks", n)
	}

	slog.Info("seeding complete", "documents", total)

	if memStore != nil {
		path := *exportPath
		if path == "" {
			path = cfg.Store.MemoryPath
		}
		if err := memStore.Export(path); err != nil {
			slog.Error("exporting memory store", "error", err)
			os.Exit(1)
		}
		slog.Info("exported memory store", "path", path, "documents", memStore.Count())
	} else if *exportPath != "" {
		slog.Warn("-export only applies to the memory backend, ignoring", "backend", cfg.Store.Backend)
	}

	if *watch && *markdownDir != "" {
		if pgStore == nil {
			slog.Error("-watch requires the postgres backend")
			os.Exit(1)
		}
		if err := ingest.NewWatcher(*markdownDir, *chunkSize, seeder, pgStore).Run(ctx); err != nil {
			slog.Error("watching markdown", "error", err)
			os.Exit(1)
		}
	}
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
