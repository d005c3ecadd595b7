package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("STATEPATH_LOG_LEVEL", "")
	t.Setenv("STATEPATH_LOG_FORMAT", "")
	t.Setenv("STATEPATH_PERSIST_DIR", "")
	t.Setenv("STATEPATH_REDIS_ADDR", "")

	cfg := loadConfig()
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, "./statepath-data", cfg.PersistDir)
	assert.Equal(t, "", cfg.RedisAddr)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("STATEPATH_LOG_LEVEL", "debug")
	t.Setenv("STATEPATH_LOG_FORMAT", "json")
	t.Setenv("STATEPATH_PERSIST_DIR", "/tmp/x")
	t.Setenv("STATEPATH_REDIS_ADDR", "localhost:6379")

	cfg := loadConfig()
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "/tmp/x", cfg.PersistDir)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}
