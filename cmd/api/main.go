package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/sampurna/itsupport/internal/api"
	"github.com/sampurna/itsupport/internal/assistant"
	"github.com/sampurna/itsupport/internal/composer"
	"github.com/sampurna/itsupport/internal/config"
	"github.com/sampurna/itsupport/internal/database"
	"github.com/sampurna/itsupport/internal/documents"
	"github.com/sampurna/itsupport/internal/embedding"
	"github.com/sampurna/itsupport/internal/events"
	"github.com/sampurna/itsupport/internal/llm"
	"github.com/sampurna/itsupport/internal/middleware"
	"github.com/sampurna/itsupport/internal/normalize"
	iredis "github.com/sampurna/itsupport/internal/redis"
	"github.com/sampurna/itsupport/internal/retrieval"
	"github.com/sampurna/itsupport/internal/server"
	"github.com/sampurna/itsupport/internal/session"
	"github.com/sampurna/itsupport/internal/toolserver"
	"github.com/sampurna/itsupport/internal/vision"
	"github.com/sampurna/itsupport/internal/xmpp"
)

const version = "1.0.0"

func main() {
	migrate := flag.Bool("migrate", true, "apply database migrations on start-up (postgres backend)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	ctx := context.Background()
	checks := api.Checks{}

	// Embeddings
	embedder, err := embedding.New(ctx, cfg.Embedding, cfg.LLM.APIKey)
	if err != nil {
		slog.Error("creating embedder", "error", err, "provider", cfg.Embedding.Provider)
		os.Exit(1)
	}

	// Document store
	var store documents.Store
	switch cfg.Store.Backend {
	case config.StoreBackendMemory:
		mem, err := documents.LoadMemoryStore(cfg.Store.MemoryPath, embedder.Embed)
		if err != nil {
			slog.Error("loading memory store", "error", err)
			os.Exit(1)
		}
		slog.Info("using memory document store", "documents", mem.Count())
		store = mem
	default:
		if *migrate {
			if err := database.RunMigrations(cfg.DB.DSN(), cfg.DB.MigrationsPath); err != nil {
				slog.Error("running migrations", "error", err)
				os.Exit(1)
			}
		}
		pool, err := database.NewPostgresPool(ctx, cfg.DB)
		if err != nil {
			slog.Error("connecting to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		store = documents.NewPostgresStore(pool)
	}
	checks["store"] = store.Ping

	retriever := retrieval.New(embedder, store)

	// Models. Without an API key the service still starts: vision reports
	// the missing key and answers fall back to the apology.
	var chatModel, visionModel llm.Model
	if cfg.LLM.APIKey != "" {
		chat, err := llm.NewGemini(ctx, cfg.LLM.APIKey, cfg.LLM.ChatModel, cfg.LLM.Timeout)
		if err != nil {
			slog.Error("creating chat model", "error", err)
			os.Exit(1)
		}
		chatModel = chat

		vis, err := llm.NewGemini(ctx, cfg.LLM.APIKey, cfg.LLM.VisionModel, cfg.LLM.Timeout)
		if err != nil {
			slog.Error("creating vision model", "error", err)
			os.Exit(1)
		}
		visionModel = vis
	} else {
		slog.Warn("no Google API key configured, answers will fall back to the apology message")
	}

	// Answer events
	var sink assistant.EventSink
	if cfg.NATS.URL != "" {
		natsClient, err := events.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to nats", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()
		sink = events.NewPublisher(natsClient.JetStream())
		checks["nats"] = func(context.Context) error {
			if !natsClient.Healthy() {
				return errNATSDisconnected
			}
			return nil
		}
	}

	svc := assistant.NewService(
		vision.New(visionModel),
		normalize.New(cfg.Normalizer.ExtraLossKeywords...),
		composer.New(chatModel, retriever, composer.Mode(cfg.Retrieval.Mode)),
		sink,
	)
	askHandler := assistant.NewHandler(svc)

	// Redis backs the rate limiters and XMPP session history
	var redisClient *redis.Client
	if cfg.Redis.Enabled || cfg.RateLimit.Enabled || cfg.XMPP.Enabled {
		redisClient, err = iredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Error("connecting to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	routerCfg := api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		Ready:              checks,
	}
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(redisClient, "ratelimit:ask:", cfg.RateLimit.Requests, cfg.RateLimit.WindowSec)
		routerCfg.AskRateLimiter = limiter.Middleware
	}

	handlers := api.HandlerSet{Ask: askHandler.Ask}
	if cfg.MCP.Enabled {
		handlers.MCP = toolserver.Handler(toolserver.NewServer(retriever, version))
	}

	router := api.NewRouter(routerCfg, handlers)

	// XMPP
	var shutdownHooks []func(context.Context)
	if cfg.XMPP.Enabled {
		var xmppLimiter xmpp.Limiter
		if cfg.RateLimit.Enabled {
			xmppLimiter = middleware.NewRateLimiter(redisClient, "ratelimit:xmpp:", cfg.RateLimit.Requests, cfg.RateLimit.WindowSec)
		}
		xmppHandler := xmpp.NewHandler(svc, session.NewStore(redisClient, cfg.XMPP.HistoryTTL), xmppLimiter)
		comp, err := xmpp.NewComponent(cfg.XMPP, xmppHandler)
		if err != nil {
			slog.Error("creating XMPP component", "error", err)
			os.Exit(1)
		}

		checks["xmpp"] = comp.Ready
		go func() {
			if err := comp.Start(ctx); err != nil {
				slog.Error("XMPP component exited", "error", err)
			}
		}()
		shutdownHooks = append(shutdownHooks, func(context.Context) {
			comp.Stop()
		})
	}

	slog.Info("IT support service configured",
		"store", cfg.Store.Backend,
		"retrieval_mode", cfg.Retrieval.Mode,
		"embedding", cfg.Embedding.Provider,
		"mcp", cfg.MCP.Enabled,
		"xmpp", cfg.XMPP.Enabled,
		"rate_limit", cfg.RateLimit.Enabled,
	)

	// Start server
	srv := server.New(cfg.Server, router)
	if err := srv.Start(shutdownHooks...); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

var errNATSDisconnected = errors.New("nats disconnected")

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
