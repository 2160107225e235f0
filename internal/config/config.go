package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port               string        `env:"PORT" envDefault:"8080"`
	DBUrl              string        `env:"DB_URL,required,notEmpty"`
	DBMaxConns         int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	JWTSecret          string        `env:"JWT_SECRET,required,notEmpty"`
	AccessTokenTTL     time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"24h"`
	SessionTTL         time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	SupabaseURL        string        `env:"SUPABASE_URL"`
	SupabaseBucket     string        `env:"SUPABASE_BUCKET"`
	SupabaseServiceKey string        `env:"SUPABASE_SERVICE_KEY"`
	CORSOrigins        string        `env:"CORS_ORIGINS" envDefault:"*"`
	AppEnv             string        `env:"APP_ENV" envDefault:"production"`
	EnableDocs         bool          `env:"ENABLE_API_DOCS" envDefault:"false"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat          string        `env:"LOG_FORMAT" envDefault:"json"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// LoadConfig reads an optional .env file and then the process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found")
	}
	return Parse()
}

func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.AppEnv = normalizeEnv(cfg.AppEnv)
	if cfg.DBMaxConns <= 0 {
		return nil, fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if cfg.AccessTokenTTL <= 0 || cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("token and session TTLs must be positive")
	}
	return &cfg, nil
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}

func (c *Config) DocsEnabled() bool {
	return c != nil && c.EnableDocs && c.AppEnv == "development"
}

func (c *Config) StorageConfigured() bool {
	return c != nil && c.SupabaseURL != "" && c.SupabaseBucket != "" && c.SupabaseServiceKey != ""
}
