package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"
)

// DefaultJWTSecret must be replaced outside development.
const DefaultJWTSecret = "your-secret-key-change-in-production"

type Config struct {
	Addr        string `env:"ADDR,default=:8080"`
	DBDSN       string `env:"DB_DSN"`
	Environment string `env:"ENVIRONMENT,default=development"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`

	JWTSecret   string        `env:"JWT_SECRET,default=your-secret-key-change-in-production"`
	JWTIssuer   string        `env:"JWT_ISS,default=itam-api"`
	JWTAudience string        `env:"JWT_AUD,default=itam-api"`
	JWTExpiry   time.Duration `env:"JWT_EXPIRY,default=24h"`

	EnableMetrics  bool     `env:"ENABLE_METRICS,default=true"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS,default=http://localhost:4200"`
	RateLimit      int      `env:"RATE_LIMIT_PER_MINUTE,default=100"`
	LoginRateLimit int      `env:"LOGIN_RATE_LIMIT_PER_MINUTE,default=10"`

	// ComputerTypes is ';'-separated because labels may contain commas.
	ComputerTypes  []string `env:"COMPUTER_TYPES,delimiter=;"`
	HistoryLimit   int      `env:"HISTORY_LIMIT,default=20"`
	ImportMaxBytes int64    `env:"IMPORT_MAX_BYTES,default=20971520"`
	ImportMapping  string   `env:"IMPORT_MAPPING"`
	ImageDir       string   `env:"IMAGE_DIR,default=./data/images"`
	MigrateOnStart bool     `env:"MIGRATE_ON_START,default=false"`
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return LoadWith(context.Background(), envconfig.OsLookuper())
}

// LoadWith reads the configuration through lookuper.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// LoadAndValidate loads the configuration and validates it
func LoadAndValidate() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for settings the API cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.JWTSecret == "":
		return errors.New("JWT_SECRET is required")
	case len(c.JWTSecret) < 32:
		return errors.New("JWT_SECRET must be at least 32 characters")
	case c.IsProduction() && c.JWTSecret == DefaultJWTSecret:
		return errors.New("JWT_SECRET must be changed in production")
	case c.JWTIssuer == "":
		return errors.New("JWT_ISS is required")
	case c.JWTAudience == "":
		return errors.New("JWT_AUD is required")
	case c.JWTExpiry < time.Minute:
		return errors.New("JWT_EXPIRY must be at least 1m")
	case c.JWTExpiry > 30*24*time.Hour:
		return errors.New("JWT_EXPIRY must be at most 720h")
	case c.HistoryLimit < 1:
		return errors.New("HISTORY_LIMIT must be positive")
	case c.ImportMaxBytes < 1:
		return errors.New("IMPORT_MAX_BYTES must be positive")
	case c.RateLimit < 1 || c.LoginRateLimit < 1:
		return errors.New("rate limits must be positive")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}

// RequireDatabase reports a missing DB_DSN.
func (c *Config) RequireDatabase() error {
	if strings.TrimSpace(c.DBDSN) == "" {
		return errors.New("DB_DSN environment variable is required")
	}
	return nil
}

// IsProduction reports whether ENVIRONMENT is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Level returns the configured zerolog level, defaulting to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
