package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/careops/careops/internal/engine"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Env            string   `mapstructure:"ENV"`
	DatabaseURL    string   `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32    `mapstructure:"DB_MIN_CONNS"`
	RedisURL       string   `mapstructure:"REDIS_URL"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`

	// Resolution policy. Boundary values are facility configuration, not
	// hard-coded constants.
	LeadWindow         time.Duration `mapstructure:"LEAD_WINDOW"`
	GracePeriod        time.Duration `mapstructure:"GRACE_PERIOD"`
	OverdueWindow      time.Duration `mapstructure:"OVERDUE_WINDOW"`
	LowRefillThreshold int           `mapstructure:"LOW_REFILL_THRESHOLD"`
	RefillStaleAfter   time.Duration `mapstructure:"REFILL_STALE_AFTER"`

	// StatusFreshnessBound caps how stale a cached resolved status may be
	// when served by the query layer.
	StatusFreshnessBound time.Duration `mapstructure:"STATUS_FRESHNESS_BOUND"`
	SweepInterval        time.Duration `mapstructure:"SWEEP_INTERVAL"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("LEAD_WINDOW", "0s")
	v.SetDefault("GRACE_PERIOD", "60m")
	v.SetDefault("OVERDUE_WINDOW", "16h")
	v.SetDefault("LOW_REFILL_THRESHOLD", 2)
	v.SetDefault("REFILL_STALE_AFTER", "720h")
	v.SetDefault("STATUS_FRESHNESS_BOUND", "30s")
	v.SetDefault("SWEEP_INTERVAL", "1m")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"REDIS_URL", "CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
		"LEAD_WINDOW", "GRACE_PERIOD", "OVERDUE_WINDOW",
		"LOW_REFILL_THRESHOLD", "REFILL_STALE_AFTER",
		"STATUS_FRESHNESS_BOUND", "SWEEP_INTERVAL",
	} {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate rejects configurations that would make resolution meaningless
// rather than silently coercing them at call sites.
func (c *Config) Validate() error {
	if c.LeadWindow < 0 {
		return fmt.Errorf("LEAD_WINDOW must not be negative, got %s", c.LeadWindow)
	}
	if c.GracePeriod < 0 {
		return fmt.Errorf("GRACE_PERIOD must not be negative, got %s", c.GracePeriod)
	}
	if c.OverdueWindow < c.GracePeriod {
		return fmt.Errorf("OVERDUE_WINDOW (%s) must not be shorter than GRACE_PERIOD (%s)",
			c.OverdueWindow, c.GracePeriod)
	}
	if c.LowRefillThreshold < 0 {
		return fmt.Errorf("LOW_REFILL_THRESHOLD must not be negative, got %d", c.LowRefillThreshold)
	}
	if c.StatusFreshnessBound <= 0 {
		return fmt.Errorf("STATUS_FRESHNESS_BOUND must be positive, got %s", c.StatusFreshnessBound)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive, got %s", c.SweepInterval)
	}
	return nil
}

// Engine projects the resolution policy onto the engine's config type.
func (c *Config) Engine() engine.Config {
	return engine.Config{
		LeadWindow:         c.LeadWindow,
		GracePeriod:        c.GracePeriod,
		OverdueWindow:      c.OverdueWindow,
		LowRefillThreshold: c.LowRefillThreshold,
		RefillStaleAfter:   c.RefillStaleAfter,
	}
}
