package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server     ServerConfig
	DB         DBConfig
	Redis      RedisConfig
	LLM        LLMConfig
	Embedding  EmbeddingConfig
	Store      StoreConfig
	Retrieval  RetrievalConfig
	Normalizer NormalizerConfig
	RateLimit  RateLimitConfig
	CORS       CORSConfig
	NATS       NATSConfig
	XMPP       XMPPConfig
	MCP        MCPConfig
	Log        LogConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	WriteTimeout time.Duration
}

type DBConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxConns       int32
	MigrationsPath string
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LLMConfig configures the Gemini chat and vision models. An empty APIKey
// leaves the service running with vision disabled and every answer falling
// back to the apology message.
type LLMConfig struct {
	APIKey      string
	ChatModel   string
	VisionModel string
	// Timeout bounds each model call; it stays under the 60s client deadline.
	Timeout time.Duration
}

type EmbeddingConfig struct {
	Provider   string // gemini, ollama or bedrock
	Model      string
	URL        string
	Dimensions int
	AWSRegion  string
}

type StoreConfig struct {
	Backend    string // postgres or memory
	MemoryPath string
}

type RetrievalConfig struct {
	Mode string // tool or inline
}

type NormalizerConfig struct {
	ExtraLossKeywords []string
}

type RateLimitConfig struct {
	Enabled   bool
	Requests  int
	WindowSec int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type NATSConfig struct {
	URL string
}

type XMPPConfig struct {
	Enabled         bool
	ComponentName   string
	ComponentSecret string
	Host            string
	Port            int
	HistoryTTL      time.Duration
}

func (c XMPPConfig) ComponentAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type MCPConfig struct {
	Enabled bool
}

type LogConfig struct {
	Level  string
	Format string
}

const (
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"

	RetrievalModeTool   = "tool"
	RetrievalModeInline = "inline"
)

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: k.String("server.host"),
			Port: k.Int("server.port"),
		},
		DB: DBConfig{
			Host:           k.String("db.host"),
			Port:           k.Int("db.port"),
			User:           k.String("db.user"),
			Password:       k.String("db.password"),
			Name:           k.String("db.name"),
			SSLMode:        k.String("db.sslmode"),
			MaxConns:       int32(k.Int("db.max.conns")),
			MigrationsPath: k.String("db.migrations.path"),
		},
		Redis: RedisConfig{
			Enabled:  k.Bool("redis.enabled"),
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		LLM: LLMConfig{
			APIKey:      strings.TrimSpace(k.String("google.api.key")),
			ChatModel:   k.String("llm.chat.model"),
			VisionModel: k.String("llm.vision.model"),
		},
		Embedding: EmbeddingConfig{
			Provider:   k.String("embedding.provider"),
			Model:      k.String("embedding.model"),
			URL:        k.String("embedding.url"),
			Dimensions: k.Int("embedding.dimensions"),
			AWSRegion:  k.String("aws.region"),
		},
		Store: StoreConfig{
			Backend:    k.String("store.backend"),
			MemoryPath: k.String("store.memory.path"),
		},
		Retrieval: RetrievalConfig{
			Mode: k.String("retrieval.mode"),
		},
		Normalizer: NormalizerConfig{
			ExtraLossKeywords: splitList(k.String("normalizer.loss.keywords")),
		},
		RateLimit: RateLimitConfig{
			Enabled:   k.Bool("ratelimit.enabled"),
			Requests:  k.Int("ratelimit.requests"),
			WindowSec: k.Int("ratelimit.window"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(k.String("cors.allowed.origins")),
		},
		NATS: NATSConfig{
			URL: k.String("nats.url"),
		},
		XMPP: XMPPConfig{
			Enabled:         k.Bool("xmpp.enabled"),
			ComponentName:   k.String("xmpp.component.name"),
			ComponentSecret: k.String("xmpp.component.secret"),
			Host:            k.String("xmpp.host"),
			Port:            k.Int("xmpp.port"),
		},
		MCP: MCPConfig{
			Enabled: !k.Exists("mcp.enabled") || k.Bool("mcp.enabled"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	// GEMINI_API_KEY is accepted as an alias
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = strings.TrimSpace(k.String("gemini.api.key"))
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "user"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "vector_db"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 10
	}
	if cfg.DB.MigrationsPath == "" {
		cfg.DB.MigrationsPath = "migrations"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.LLM.ChatModel == "" {
		cfg.LLM.ChatModel = "gemini-2.0-flash-lite"
	}
	if cfg.LLM.VisionModel == "" {
		cfg.LLM.VisionModel = cfg.LLM.ChatModel
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "gemini"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 768
	}
	if cfg.Embedding.AWSRegion == "" {
		cfg.Embedding.AWSRegion = "us-east-1"
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = StoreBackendPostgres
	}
	if cfg.Store.MemoryPath == "" {
		cfg.Store.MemoryPath = "db-data/it_documents.gob"
	}
	if cfg.Retrieval.Mode == "" {
		cfg.Retrieval.Mode = RetrievalModeTool
	}
	if cfg.RateLimit.Requests == 0 {
		cfg.RateLimit.Requests = 30
	}
	if cfg.RateLimit.WindowSec == 0 {
		cfg.RateLimit.WindowSec = 60
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"*"}
	}
	if cfg.XMPP.ComponentName == "" {
		cfg.XMPP.ComponentName = "itsupport.localhost"
	}
	if cfg.XMPP.Host == "" {
		cfg.XMPP.Host = "localhost"
	}
	if cfg.XMPP.Port == 0 {
		cfg.XMPP.Port = 5347
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	// Parse durations
	writeTimeoutStr := k.String("server.write.timeout")
	if writeTimeoutStr == "" {
		// must outlive the 60s client timeout on /ask
		writeTimeoutStr = "75s"
	}
	cfg.Server.WriteTimeout, err = time.ParseDuration(writeTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("parsing server write timeout: %w", err)
	}

	llmTimeoutStr := k.String("llm.timeout")
	if llmTimeoutStr == "" {
		llmTimeoutStr = "45s"
	}
	cfg.LLM.Timeout, err = time.ParseDuration(llmTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("parsing llm timeout: %w", err)
	}

	historyTTLStr := k.String("xmpp.history.ttl")
	if historyTTLStr == "" {
		historyTTLStr = "24h"
	}
	cfg.XMPP.HistoryTTL, err = time.ParseDuration(historyTTLStr)
	if err != nil {
		return nil, fmt.Errorf("parsing xmpp history ttl: %w", err)
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
