package main

import "os"

// config is a stdlib-only env-var configuration struct, grounded on
// Dutt23-agentic-orchestrator/common/config/config.go's getEnv-with-
// default shape. No config library is used here for the same reason the
// teacher doesn't use one: a handful of flat scalar settings don't
// justify one.
type config struct {
	LogLevel   string
	LogFormat  string
	PersistDir string
	RedisAddr  string
}

func loadConfig() config {
	return config{
		LogLevel:   getEnv("STATEPATH_LOG_LEVEL", "info"),
		LogFormat:  getEnv("STATEPATH_LOG_FORMAT", "console"),
		PersistDir: getEnv("STATEPATH_PERSIST_DIR", "./statepath-data"),
		RedisAddr:  getEnv("STATEPATH_REDIS_ADDR", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
