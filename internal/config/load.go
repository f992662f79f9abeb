package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "REELSMITH"

// ErrRedisRequired is returned when a Redis-backed component is selected
// without a Redis address.
var ErrRedisRequired = errors.New("redis.addr is required when a redis driver is selected")

// Load configuration from environment variables and an optional config.yaml
// in the working directory. Environment variables take precedence over values
// from config files.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file path. An empty path searches
// the working directory for config.yaml and tolerates its absence.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal only sees keys viper knows about, so secrets without
	// defaults are bound explicitly.
	for _, key := range []string{
		"database.url",
		"redis.addr",
		"redis.password",
		"auth.jwt_secret",
		"llm.gemini_api_key",
		"llm.prompt_template_dir",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks struct tags and cross-section constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if (c.Credits.LedgerDriver == "redis" || c.Realtime.Driver == "redis") && c.Redis.Addr == "" {
		return ErrRedisRequired
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.shutdown_timeout_seconds", 15)

	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "reelsmith:realtime")

	v.SetDefault("auth.token_lifetime_minutes", 60)

	v.SetDefault("llm.text_model", "gemini-2.0-flash")
	v.SetDefault("llm.image_model", "imagen-3.0-generate-002")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay_seconds", 2)

	v.SetDefault("queue.backend_timeout_seconds", 0)
	v.SetDefault("queue.recover_on_start", true)
	v.SetDefault("queue.stuck_item_age_minutes", 15)
	v.SetDefault("queue.stuck_item_check_interval_seconds", 60)

	v.SetDefault("credits.ledger_driver", "postgres")
	v.SetDefault("realtime.driver", "local")
}
