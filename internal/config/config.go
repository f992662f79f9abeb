package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm" validate:"required"`
	Queue    QueueConfig    `mapstructure:"queue" validate:"required"`
	Credits  CreditsConfig  `mapstructure:"credits" validate:"required"`
	Realtime RealtimeConfig `mapstructure:"realtime" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                   int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel               string `mapstructure:"log_level" validate:"required,oneof=debug info warn error fatal"`
	LogFormat              string `mapstructure:"log_format" validate:"omitempty,oneof=json text"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" validate:"gte=0"`
}

// ShutdownTimeout returns the graceful shutdown budget.
func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL          string `mapstructure:"url" validate:"required,url"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"`
}

// RedisConfig configures the Redis connection used by the Redis ledger
// and the realtime bus. Addr is required when either uses Redis.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"omitempty,hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
	Channel  string `mapstructure:"channel"`
}

// AuthConfig contains all authentication settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey      string `mapstructure:"gemini_api_key" validate:"required"`
	TextModel         string `mapstructure:"text_model" validate:"required"`
	ImageModel        string `mapstructure:"image_model" validate:"required"`
	MaxRetries        int    `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=0"`
	PromptTemplateDir string `mapstructure:"prompt_template_dir"`
}

// QueueConfig tunes the generation task queue.
type QueueConfig struct {
	// BackendTimeoutSeconds bounds each generation backend call; 0 disables it.
	BackendTimeoutSeconds int `mapstructure:"backend_timeout_seconds" validate:"gte=0"`
	// RecoverOnStart marks items left "generating" by a previous process as failed.
	RecoverOnStart bool `mapstructure:"recover_on_start"`
	// StuckItemAgeMinutes is how long an item must have been "generating"
	// before recovery treats it as interrupted.
	StuckItemAgeMinutes int `mapstructure:"stuck_item_age_minutes" validate:"gte=0"`
	// StuckItemCheckIntervalSeconds is how often recovery runs while the
	// server is up; 0 disables the periodic check.
	StuckItemCheckIntervalSeconds int `mapstructure:"stuck_item_check_interval_seconds" validate:"gte=0"`
}

// BackendTimeout returns the per-call backend timeout, or 0 for none.
func (c QueueConfig) BackendTimeout() time.Duration {
	return time.Duration(c.BackendTimeoutSeconds) * time.Second
}

// StuckItemAge returns the recovery age threshold.
func (c QueueConfig) StuckItemAge() time.Duration {
	return time.Duration(c.StuckItemAgeMinutes) * time.Minute
}

// StuckItemCheckInterval returns the periodic recovery interval, or 0 for none.
func (c QueueConfig) StuckItemCheckInterval() time.Duration {
	return time.Duration(c.StuckItemCheckIntervalSeconds) * time.Second
}

// CreditsConfig selects the credit ledger backend.
type CreditsConfig struct {
	LedgerDriver string `mapstructure:"ledger_driver" validate:"required,oneof=postgres redis memory"`
}

// RealtimeConfig selects how queue and profile updates reach observers.
type RealtimeConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=local redis"`
}
