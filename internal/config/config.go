package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server" validate:"required"`
	Database    DatabaseConfig    `mapstructure:"database" validate:"required"`
	Auth        AuthConfig        `mapstructure:"auth" validate:"required"`
	Progression ProgressionConfig `mapstructure:"progression" validate:"required"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler" validate:"required"`
	Review      ReviewConfig      `mapstructure:"review" validate:"required"`
	Store       StoreConfig       `mapstructure:"store" validate:"required"`
	CORS        CORSConfig        `mapstructure:"cors"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	LogFormat       string        `mapstructure:"log_format" validate:"omitempty,oneof=json text tint"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gte=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url" validate:"omitempty,url"` // required unless serving from memory
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0,lte=44640"`
}

// ProgressionConfig controls lesson quotas.
type ProgressionConfig struct {
	// QuotaTimezone is the IANA zone whose midnight resets the daily quota.
	QuotaTimezone        string `mapstructure:"quota_timezone" validate:"required"`
	MaximumLessonsPerDay int    `mapstructure:"maximum_lessons_per_day" validate:"gte=0"`
	LessonsPerSession    int    `mapstructure:"lessons_per_session" validate:"gte=1"`
}

// Location loads QuotaTimezone.
func (c ProgressionConfig) Location() (*time.Location, error) {
	return loadLocation("progression.quota_timezone", c.QuotaTimezone)
}

// SchedulerConfig seeds the memory scheduler parameters of new learners.
type SchedulerConfig struct {
	RequestRetention float64       `mapstructure:"request_retention" validate:"gt=0,lt=1"`
	MaximumInterval  int           `mapstructure:"maximum_interval" validate:"gte=1"`
	NewAgainDelay    time.Duration `mapstructure:"new_again_delay" validate:"gt=0"`
	AgainDelay       time.Duration `mapstructure:"again_delay" validate:"gt=0"`
}

// ReviewConfig controls due-queue selection.
type ReviewConfig struct {
	Tolerance   time.Duration `mapstructure:"tolerance" validate:"gte=0"`
	BlockWindow time.Duration `mapstructure:"block_window" validate:"gt=0"`
	Timezone    string        `mapstructure:"timezone" validate:"required"`
}

// Location loads Timezone.
func (c ReviewConfig) Location() (*time.Location, error) {
	return loadLocation("review.timezone", c.Timezone)
}

// StoreConfig controls retries of conflicting or failed store writes.
type StoreConfig struct {
	RetryAttempts  uint64        `mapstructure:"retry_attempts" validate:"gte=1,lte=20"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay" validate:"gt=0"`
}

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RateLimitConfig is the per-learner request budget. A zero rate disables
// limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gte=0"`
	Burst             int     `mapstructure:"burst" validate:"gte=0"`
}

func loadLocation(field, name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", field, name, err)
	}
	return loc, nil
}
