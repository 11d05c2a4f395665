// Package config loads presence-fabric configuration from the environment.
// It follows the 12-factor app methodology by prioritizing environment
// variables, loaded through viper so that defaults, env binding, and future
// file-based overrides share one code path.
package config

import (
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the presence fabric process.
type Config struct {
	Port      string `mapstructure:"port"`
	AppMode   string `mapstructure:"app_mode"`
	StoreURL  string `mapstructure:"store_url"`
	StorePass string `mapstructure:"store_password"`

	ServerID string `mapstructure:"server_id"`

	HeartbeatIntervalMS int `mapstructure:"heartbeat_interval_ms" validate:"required,gt=0"`
	PresenceTTLSeconds  int `mapstructure:"presence_ttl_seconds" validate:"required,gt=0"`
	WatcherTTLSeconds   int `mapstructure:"watcher_ttl_seconds" validate:"required,gt=0"`

	MaxFocusPerClient       int `mapstructure:"max_focus_per_client" validate:"required,gt=0"`
	FocusRateLimitPerMinute int `mapstructure:"focus_rate_limit_per_minute" validate:"required,gt=0"`
	MaxConnectionsPerIP     int `mapstructure:"max_connections_per_ip" validate:"required,gt=0"`
	PresenceShardCount      int `mapstructure:"presence_shard_count" validate:"required,gt=0"`
	MaxSnapshotBatch        int `mapstructure:"max_snapshot_batch" validate:"required,gt=0"`
}

// HeartbeatInterval returns the heartbeat tick as a time.Duration.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalMS) * time.Millisecond
}

// PresenceTTL returns the presence key TTL as a time.Duration.
func (c *Config) PresenceTTL() time.Duration {
	return time.Duration(c.PresenceTTLSeconds) * time.Second
}

// WatcherTTL returns the watcher-set membership TTL as a time.Duration.
func (c *Config) WatcherTTL() time.Duration {
	return time.Duration(c.WatcherTTLSeconds) * time.Second
}

// RefreshCooldown is the minimum interval between refresh calls issued by a
// single session, per spec invariant 6 (>= presence_ttl/2).
func (c *Config) RefreshCooldown() time.Duration {
	return c.PresenceTTL() / 2
}

// Validate enforces the cross-field invariant that a heartbeat must fire
// at least twice within one presence TTL: heartbeat_interval < presence_ttl/2.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	if c.HeartbeatInterval() >= c.PresenceTTL()/2 {
		return fmt.Errorf("heartbeat_interval_ms (%dms) must be < presence_ttl_seconds/2 (%s)", c.HeartbeatIntervalMS, c.PresenceTTL()/2)
	}
	return nil
}

// Load reads configuration from PRESENCE_-prefixed environment variables,
// falling back to documented defaults. A local .env file is loaded first,
// if present, for development convenience.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	v := viper.New()
	v.SetEnvPrefix("presence")
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("app_mode", "development")
	v.SetDefault("store_url", "localhost:6379")
	v.SetDefault("store_password", "")
	v.SetDefault("server_id", "")
	v.SetDefault("heartbeat_interval_ms", 30000)
	v.SetDefault("presence_ttl_seconds", 100)
	v.SetDefault("watcher_ttl_seconds", 120)
	v.SetDefault("max_focus_per_client", 100)
	v.SetDefault("focus_rate_limit_per_minute", 60)
	v.SetDefault("max_connections_per_ip", 10)
	v.SetDefault("presence_shard_count", 32)
	v.SetDefault("max_snapshot_batch", 500)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
