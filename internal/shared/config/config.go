package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	Port            string   `env:"PORT" envDefault:"8080"`
	Env             string   `env:"ENV" envDefault:"dev"`
	CORSAllowOrigin []string `env:"CORS_ALLOW_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`

	ObjectStoreType string `env:"OBJECT_STORE" envDefault:"local"`
	LocalStoreDir   string `env:"LOCAL_STORE_DIR" envDefault:"./data"`
	AWSRegion       string `env:"AWS_REGION"`
	S3Bucket        string `env:"S3_BUCKET"`
	S3Prefix        string `env:"S3_PREFIX"`
	SSEKMSKeyID     string `env:"SSE_KMS_KEY_ID"`

	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`
	SQSQueueURL string `env:"RA_SQS_QUEUE_URL"`

	LLMProvider   string        `env:"LLM_PROVIDER" envDefault:"openai"`
	LLMModel      string        `env:"LLM_MODEL"`
	OpenAIAPIKey  string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string        `env:"OPENAI_BASE_URL"`
	OpenAITimeout time.Duration `env:"OPENAI_TIMEOUT" envDefault:"120s"`
	GeminiAPIKey  string        `env:"GEMINI_API_KEY"`

	ProcessTimeout time.Duration `env:"PROCESS_TIMEOUT" envDefault:"2m"`
	StuckAfter     time.Duration `env:"STUCK_AFTER" envDefault:"10m"`
	SweepInterval  time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
	EditDebounce   time.Duration `env:"EDIT_DEBOUNCE" envDefault:"1s"`
	MaxUploadMB    int64         `env:"MAX_UPLOAD_MB" envDefault:"10"`
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	// Best-effort load of local env files for dev convenience. Variables
	// already present in the environment win.
	loadEnvFiles(".env", "cmd/.env")

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.ObjectStoreType = normalizeStoreType(cfg.ObjectStoreType)
	cfg.LLMProvider = normalizeProvider(cfg.LLMProvider, cfg)
	cfg.CORSAllowOrigin = trimAll(cfg.CORSAllowOrigin)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects combinations that would break processing guarantees.
func (c Config) Validate() error {
	if c.ProcessTimeout <= 0 {
		return errors.New("PROCESS_TIMEOUT must be positive")
	}
	if c.StuckAfter <= c.ProcessTimeout {
		return fmt.Errorf("STUCK_AFTER (%v) must exceed PROCESS_TIMEOUT (%v)", c.StuckAfter, c.ProcessTimeout)
	}
	if c.MaxUploadMB <= 0 {
		return errors.New("MAX_UPLOAD_MB must be positive")
	}
	if c.Env == "production" && strings.TrimSpace(c.DatabaseURL) == "" {
		return errors.New("DATABASE_URL is required in production")
	}
	return nil
}

// MaxUploadBytes converts MaxUploadMB to bytes.
func (c Config) MaxUploadBytes() int64 { return c.MaxUploadMB << 20 }

// IsDevLike reports whether in-memory fallbacks are acceptable.
func (c Config) IsDevLike() bool { return c.Env == "dev" || c.Env == "local" }

func loadEnvFiles(paths ...string) {
	for _, path := range paths {
		_ = godotenv.Load(path)
	}
}

func trimAll(in []string) []string {
	var out []string
	for _, p := range in {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "test":
		return "test"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

// normalizeProvider falls back to the heuristic extractor when the chosen
// model provider has no key.
func normalizeProvider(raw string, cfg Config) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "gemini":
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			return "heuristic"
		}
		return "gemini"
	case "heuristic":
		return "heuristic"
	default:
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			return "heuristic"
		}
		return "openai"
	}
}
