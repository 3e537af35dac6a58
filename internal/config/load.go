package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "KOTOBA"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_lifetime_minutes", 60)

	v.SetDefault("progression.quota_timezone", "UTC")
	v.SetDefault("progression.maximum_lessons_per_day", 15)
	v.SetDefault("progression.lessons_per_session", 5)

	v.SetDefault("scheduler.request_retention", 0.9)
	v.SetDefault("scheduler.maximum_interval", 36500)
	v.SetDefault("scheduler.new_again_delay", "1m")
	v.SetDefault("scheduler.again_delay", "5m")

	v.SetDefault("review.tolerance", "10m")
	v.SetDefault("review.block_window", "2h")
	v.SetDefault("review.timezone", "UTC")

	v.SetDefault("store.retry_attempts", 5)
	v.SetDefault("store.retry_base_delay", "20ms")

	v.SetDefault("cors.allowed_origins", []string{})

	v.SetDefault("rate_limit.requests_per_second", 10)
	v.SetDefault("rate_limit.burst", 20)
}

// Load reads configuration from defaults, an optional config.yaml in the
// working directory, and KOTOBA_ environment variables, in increasing order
// of precedence. The result is validated before it is returned.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct tags and the cross-field rules they cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if _, err := c.Progression.Location(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if _, err := c.Review.Location(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("config validation failed: database.max_idle_conns (%d) exceeds max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	return nil
}
