package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EventsNone  = "none"
	EventsRedis = "redis"
	EventsKafka = "kafka"
)

type Config struct {
	Port                 string        `mapstructure:"PORT"`
	Env                  string        `mapstructure:"ENV"`
	DatabaseURL          string        `mapstructure:"DATABASE_URL"`
	DBMaxConns           int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns           int32         `mapstructure:"DB_MIN_CONNS"`
	MigrationsDir        string        `mapstructure:"MIGRATIONS_DIR"`
	SeedOnStart          bool          `mapstructure:"SEED_ON_START"`
	CORSOrigins          []string      `mapstructure:"CORS_ORIGINS"`
	RequestTimeout       time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit            string        `mapstructure:"BODY_LIMIT"`
	StrictCrossingStatus bool          `mapstructure:"STRICT_CROSSING_STATUS"`
	EventsBackend        string        `mapstructure:"EVENTS_BACKEND"`
	RedisURL             string        `mapstructure:"REDIS_URL"`
	RedisStream          string        `mapstructure:"REDIS_STREAM"`
	KafkaBrokers         []string      `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic           string        `mapstructure:"KAFKA_TOPIC"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "5000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("MIGRATIONS_DIR", "./migrations")
	v.SetDefault("SEED_ON_START", false)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("STRICT_CROSSING_STATUS", false)
	v.SetDefault("EVENTS_BACKEND", EventsNone)
	v.SetDefault("REDIS_STREAM", "medref:referral-events")
	v.SetDefault("KAFKA_TOPIC", "medref.referral-events")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "MIGRATIONS_DIR",
		"SEED_ON_START", "CORS_ORIGINS", "REQUEST_TIMEOUT", "BODY_LIMIT", "STRICT_CROSSING_STATUS",
		"EVENTS_BACKEND", "REDIS_URL", "REDIS_STREAM", "KAFKA_BROKERS", "KAFKA_TOPIC",
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
		cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	}
	if cfg.KafkaBrokers == nil {
		cfg.KafkaBrokers = splitList(v.GetString("KAFKA_BROKERS"))
	}
	cfg.CORSOrigins = trimList(cfg.CORSOrigins)
	cfg.KafkaBrokers = trimList(cfg.KafkaBrokers)
	cfg.EventsBackend = strings.ToLower(strings.TrimSpace(cfg.EventsBackend))

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func trimList(items []string) []string {
	var out []string
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks settings that Load cannot reject on its own.
func (c *Config) Validate() error {
	switch c.EventsBackend {
	case "", EventsNone:
	case EventsRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when EVENTS_BACKEND is %q", EventsRedis)
		}
	case EventsKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required when EVENTS_BACKEND is %q", EventsKafka)
		}
		if c.KafkaTopic == "" {
			return fmt.Errorf("KAFKA_TOPIC must not be empty")
		}
	default:
		return fmt.Errorf("EVENTS_BACKEND must be %q, %q or %q, got %q", EventsNone, EventsRedis, EventsKafka, c.EventsBackend)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	return nil
}
