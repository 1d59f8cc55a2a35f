package config

import "time"

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Drafts   DraftsConfig   `yaml:"drafts"`
	Cleanup  CleanupConfig  `yaml:"cleanup"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// RedisConfig holds Redis settings for the shared counter store and the
// notification channel publisher. Addr left empty disables Redis: the rate
// limiter falls back to its in-process store and notifications are logged
// instead of published.
type RedisConfig struct {
	Addr                string `yaml:"addr"                 env:"REDIS_ADDR"`
	Password            string `yaml:"password"             env:"REDIS_PASSWORD"`
	DB                  int    `yaml:"db"                   env:"REDIS_DB"                   env-default:"0"`
	NotificationChannel string `yaml:"notification_channel" env:"REDIS_NOTIFICATION_CHANNEL" env-default:"notifications:draft-expiry"`
}

// Enabled reports whether a Redis deployment is configured.
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

// DraftsConfig holds review-draft lifecycle settings.
type DraftsConfig struct {
	ExpiryDays       int `yaml:"expiry_days"         env:"DRAFTS_EXPIRY_DAYS"        env-default:"7"`
	MaxDraftsPerUser int `yaml:"max_drafts_per_user" env:"DRAFTS_MAX_PER_USER"       env-default:"5"`
	MaxBodyBytes     int `yaml:"max_body_bytes"      env:"DRAFTS_MAX_BODY_BYTES"     env-default:"262144"`
	MaxMetadataBytes int `yaml:"max_metadata_bytes"  env:"DRAFTS_MAX_METADATA_BYTES" env-default:"16384"`
}

// CleanupConfig holds cleanup-trigger settings. TriggerSecret authenticates
// the external cron caller; it doubles as the HS256 signing key for service
// tokens.
type CleanupConfig struct {
	TriggerSecret        string `yaml:"trigger_secret"          env:"CLEANUP_TRIGGER_SECRET" env-required:"true"`
	TokenIssuer          string `yaml:"token_issuer"            env:"CLEANUP_TOKEN_ISSUER"   env-default:"quillshelf"`
	BatchSize            int    `yaml:"batch_size"              env:"CLEANUP_BATCH_SIZE"     env-default:"100"`
	TriggerRatePerMinute int    `yaml:"trigger_rate_per_minute" env:"CLEANUP_TRIGGER_RATE"   env-default:"10"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}
