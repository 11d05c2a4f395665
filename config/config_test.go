package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Port:                    "8080",
		AppMode:                 "development",
		StoreURL:                "localhost:6379",
		HeartbeatIntervalMS:     30000,
		PresenceTTLSeconds:      100,
		WatcherTTLSeconds:       120,
		MaxFocusPerClient:       100,
		FocusRateLimitPerMinute: 60,
		MaxConnectionsPerIP:     10,
		PresenceShardCount:      32,
		MaxSnapshotBatch:        500,
	}
}

func TestConfig_Validate_AcceptsHealthyDefaults(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate_RejectsHeartbeatTooCloseToTTL(t *testing.T) {
	cfg := validConfig()
	cfg.HeartbeatIntervalMS = 60000 // >= presence_ttl/2 (50s)
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_RejectsZeroRequiredFields(t *testing.T) {
	cfg := validConfig()
	cfg.MaxFocusPerClient = 0
	assert.Error(t, cfg.Validate())
}

func TestConfig_RefreshCooldownIsHalfPresenceTTL(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, cfg.PresenceTTL()/2, cfg.RefreshCooldown())
}
