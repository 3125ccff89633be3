package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/zatekoja/carefinder/backend/pkg/calendar"
)

// Config holds all application configuration
type Config struct {
	Env          string
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Typesense    TypesenseConfig
	Search       SearchConfig
	Availability AvailabilityConfig
	OTEL         OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// TypesenseConfig holds Typesense configuration
type TypesenseConfig struct {
	URL    string
	APIKey string
}

// SearchConfig controls the listing endpoints.
type SearchConfig struct {
	// Backend selects where denormalized provider rows come from: "postgres" or "typesense".
	Backend         string
	DefaultPageSize int
	MaxPageSize     int
	// ProviderCacheTTL caches provider view queries in Redis. Zero disables it.
	ProviderCacheTTL time.Duration
}

// AvailabilityConfig controls slot and availability computation.
type AvailabilityConfig struct {
	UTCOffset      time.Duration
	WindowDays     int
	MaxConcurrency int
	SlotHoldTTL    time.Duration
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "carefinder")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("TYPESENSE_URL", "http://localhost:8108")
	v.SetDefault("TYPESENSE_API_KEY", "xyz")
	v.SetDefault("SEARCH_BACKEND", "postgres")
	v.SetDefault("SEARCH_DEFAULT_PAGE_SIZE", 10)
	v.SetDefault("SEARCH_MAX_PAGE_SIZE", 100)
	v.SetDefault("PROVIDER_CACHE_TTL", "2m")
	v.SetDefault("AVAILABILITY_UTC_OFFSET", "+05:30")
	v.SetDefault("AVAILABILITY_WINDOW_DAYS", 14)
	v.SetDefault("AVAILABILITY_MAX_CONCURRENCY", 16)
	v.SetDefault("SLOT_HOLD_TTL", "10m")
	v.SetDefault("OTEL_SERVICE_NAME", "carefinder")
	v.SetDefault("OTEL_SERVICE_VERSION", "1.0.0")
	v.SetDefault("OTEL_ENDPOINT", "")
	v.SetDefault("OTEL_ENABLED", false)
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	offset, err := calendar.ParseUTCOffset(v.GetString("AVAILABILITY_UTC_OFFSET"))
	if err != nil {
		return nil, fmt.Errorf("AVAILABILITY_UTC_OFFSET: %w", err)
	}

	cfg := &Config{
		Env: v.GetString("APP_ENV"),
		Server: ServerConfig{
			Host:           v.GetString("SERVER_HOST"),
			Port:           v.GetInt("SERVER_PORT"),
			AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Database: v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Typesense: TypesenseConfig{
			URL:    v.GetString("TYPESENSE_URL"),
			APIKey: v.GetString("TYPESENSE_API_KEY"),
		},
		Search: SearchConfig{
			Backend:          strings.ToLower(v.GetString("SEARCH_BACKEND")),
			DefaultPageSize:  v.GetInt("SEARCH_DEFAULT_PAGE_SIZE"),
			MaxPageSize:      v.GetInt("SEARCH_MAX_PAGE_SIZE"),
			ProviderCacheTTL: v.GetDuration("PROVIDER_CACHE_TTL"),
		},
		Availability: AvailabilityConfig{
			UTCOffset:      offset,
			WindowDays:     v.GetInt("AVAILABILITY_WINDOW_DAYS"),
			MaxConcurrency: v.GetInt("AVAILABILITY_MAX_CONCURRENCY"),
			SlotHoldTTL:    v.GetDuration("SLOT_HOLD_TTL"),
		},
		OTEL: OTELConfig{
			ServiceName:    v.GetString("OTEL_SERVICE_NAME"),
			ServiceVersion: v.GetString("OTEL_SERVICE_VERSION"),
			Endpoint:       v.GetString("OTEL_ENDPOINT"),
			Enabled:        v.GetBool("OTEL_ENABLED"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Search.Backend {
	case "postgres", "typesense":
	default:
		return fmt.Errorf("SEARCH_BACKEND must be postgres or typesense, got %q", c.Search.Backend)
	}
	if c.Search.DefaultPageSize <= 0 || c.Search.MaxPageSize < c.Search.DefaultPageSize {
		return fmt.Errorf("invalid page sizes: default=%d max=%d", c.Search.DefaultPageSize, c.Search.MaxPageSize)
	}
	if c.Availability.WindowDays <= 0 {
		return fmt.Errorf("AVAILABILITY_WINDOW_DAYS must be positive, got %d", c.Availability.WindowDays)
	}
	if c.Availability.MaxConcurrency <= 0 {
		c.Availability.MaxConcurrency = 1
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Clock returns the civil clock configured for availability computations.
func (c *AvailabilityConfig) Clock() calendar.Clock {
	return calendar.FixedOffsetClock(c.UTCOffset)
}

// IsDevelopment reports whether the service runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
