package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks Config for problems that would make the service misbehave.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	// Store backend
	switch c.Store.Backend {
	case StoreBackendPostgres:
		if c.DB.Password == "" {
			errs = append(errs, "DB_PASSWORD is required for the postgres store")
		}
		if c.DB.Port < 1 || c.DB.Port > 65535 {
			errs = append(errs, fmt.Sprintf("DB_PORT must be 1-65535, got %d", c.DB.Port))
		}
	case StoreBackendMemory:
		if c.Store.MemoryPath == "" {
			errs = append(errs, "STORE_MEMORY_PATH is required for the memory store")
		}
	default:
		errs = append(errs, fmt.Sprintf("STORE_BACKEND must be postgres or memory, got %q", c.Store.Backend))
	}

	// Embedding provider
	switch c.Embedding.Provider {
	case "gemini":
		if c.LLM.APIKey == "" {
			errs = append(errs, "GOOGLE_API_KEY is required for gemini embeddings")
		}
	case "ollama", "bedrock":
	default:
		errs = append(errs, fmt.Sprintf("EMBEDDING_PROVIDER must be gemini, ollama or bedrock, got %q", c.Embedding.Provider))
	}
	if c.Embedding.Dimensions < 1 {
		errs = append(errs, fmt.Sprintf("EMBEDDING_DIMENSIONS must be positive, got %d", c.Embedding.Dimensions))
	}

	if c.Retrieval.Mode != RetrievalModeTool && c.Retrieval.Mode != RetrievalModeInline {
		errs = append(errs, fmt.Sprintf("RETRIEVAL_MODE must be tool or inline, got %q", c.Retrieval.Mode))
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1-65535, got %d", c.Server.Port))
	}
	if c.Redis.Enabled && (c.Redis.Port < 1 || c.Redis.Port > 65535) {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1-65535, got %d", c.Redis.Port))
	}

	// Features that need Redis
	if c.RateLimit.Enabled {
		if !c.Redis.Enabled {
			errs = append(errs, "RATELIMIT_ENABLED requires REDIS_ENABLED")
		}
		if c.RateLimit.Requests < 1 || c.RateLimit.WindowSec < 1 {
			errs = append(errs, "RATELIMIT_REQUESTS and RATELIMIT_WINDOW must be positive")
		}
	}
	if c.XMPP.Enabled {
		if !c.Redis.Enabled {
			errs = append(errs, "XMPP_ENABLED requires REDIS_ENABLED for chat history")
		}
		if c.XMPP.ComponentSecret == "" {
			errs = append(errs, "XMPP_COMPONENT_SECRET is required when XMPP is enabled")
		}
	}

	if c.LLM.Timeout <= 0 {
		errs = append(errs, "LLM_TIMEOUT must be positive")
	}

	// Model key: warn only, the service degrades to fallback answers
	if c.LLM.APIKey == "" {
		slog.Warn("GOOGLE_API_KEY / GEMINI_API_KEY is empty, vision and answers will use fallback messages")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
