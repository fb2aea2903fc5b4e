package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StorePostgres  = "postgres"
	StorePostgREST = "postgrest"
)

type Config struct {
	Port                  string        `mapstructure:"PORT"`
	Env                   string        `mapstructure:"ENV"`
	DatabaseURL           string        `mapstructure:"DATABASE_URL"`
	DBMaxConns            int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns            int32         `mapstructure:"DB_MIN_CONNS"`
	MigrationsDir         string        `mapstructure:"MIGRATIONS_DIR"`
	RelayStore            string        `mapstructure:"RELAY_STORE"`
	SupabaseURL           string        `mapstructure:"SUPABASE_URL"`
	SupabaseServiceKey    string        `mapstructure:"SUPABASE_SERVICE_ROLE_KEY"`
	TelegramBotToken      string        `mapstructure:"TELEGRAM_BOT_TOKEN"`
	TelegramAPIEndpoint   string        `mapstructure:"TELEGRAM_API_ENDPOINT"`
	TelegramWebhookSecret string        `mapstructure:"TELEGRAM_WEBHOOK_SECRET"`
	AuthJWTSecret         string        `mapstructure:"AUTH_JWT_SECRET"`
	CORSOrigins           []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS          float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst        int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout        time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	NotifyMaxAttempts     uint          `mapstructure:"NOTIFY_MAX_ATTEMPTS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("MIGRATIONS_DIR", "./migrations")
	v.SetDefault("RELAY_STORE", StorePostgres)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("REQUEST_TIMEOUT", "15s")
	v.SetDefault("NOTIFY_MAX_ATTEMPTS", 3)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"MIGRATIONS_DIR", "RELAY_STORE", "SUPABASE_URL", "SUPABASE_SERVICE_ROLE_KEY",
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_API_ENDPOINT", "TELEGRAM_WEBHOOK_SECRET",
		"AUTH_JWT_SECRET", "CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
		"REQUEST_TIMEOUT", "NOTIFY_MAX_ATTEMPTS",
	} {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) <= 1 {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}
	cfg.RelayStore = strings.ToLower(strings.TrimSpace(cfg.RelayStore))

	if cfg.IsDev() {
		log.Println("WARNING: running with ENV=development; requests without a bearer token get admin access")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks everything the HTTP server needs. Missing secrets are
// reported by name so a misconfigured deployment never starts half-wired.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if err := c.ValidateTelegram(); err != nil {
		return err
	}

	switch c.RelayStore {
	case StorePostgres:
	case StorePostgREST:
		if c.SupabaseURL == "" {
			return fmt.Errorf("SUPABASE_URL is required when RELAY_STORE is %q", StorePostgREST)
		}
		if c.SupabaseServiceKey == "" {
			return fmt.Errorf("SUPABASE_SERVICE_ROLE_KEY is required when RELAY_STORE is %q", StorePostgREST)
		}
	default:
		return fmt.Errorf("RELAY_STORE must be %q or %q, got %q", StorePostgres, StorePostgREST, c.RelayStore)
	}

	if !c.IsDev() && c.AuthJWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required outside development (ENV=%q)", c.Env)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.NotifyMaxAttempts == 0 {
		return fmt.Errorf("NOTIFY_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

// ValidateTelegram checks only the bot credentials; the bot subcommands use it
// without requiring a database.
func (c *Config) ValidateTelegram() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}
