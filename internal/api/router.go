package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mw "github.com/sampurna/itsupport/internal/middleware"
)

// HandlerSet holds handlers injected from main.go to avoid import cycles.
type HandlerSet struct {
	Ask http.HandlerFunc
	// MCP is mounted at /mcp when set.
	MCP http.Handler
}

// Checks are named readiness probes, e.g. "store" or "nats".
type Checks map[string]func(ctx context.Context) error

type RouterConfig struct {
	CORSAllowedOrigins []string
	AskRateLimiter     func(http.Handler) http.Handler
	Ready              Checks
}

func NewRouter(cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(chimw.Recoverer)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "IT Support API running"})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	// Liveness probe, no dependency checks.
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{"status": "healthy"}
		status := http.StatusOK
		for name, check := range cfg.Ready {
			if err := check(r.Context()); err != nil {
				health[name] = "unhealthy"
				health["status"] = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			health[name] = "healthy"
		}
		JSON(w, status, health)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if cfg.AskRateLimiter != nil {
			r.Use(cfg.AskRateLimiter)
		}
		r.Post("/ask", h.Ask)
	})

	if h.MCP != nil {
		r.Handle("/mcp", h.MCP)
		r.Handle("/mcp/*", h.MCP)
	}

	return r
}
