package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the env-driven application configuration. Loaded once in main
// and passed by reference to everything that needs it.
type Config struct {
	Env          string
	Port         string
	AllowOrigins string

	// Upstream drama API
	UpstreamBase  string
	TokenEndpoint string
	PageSize      int
	PageDelay     time.Duration

	// Admin surface
	AdminUser         string
	AdminPasswordHash string // bcrypt hash

	// Logging
	LogLevel          string
	LogToConsole      bool
	LogToFile         bool
	LogDir            string
	MaxLogFiles       int
	MaxFileSizeMB     int
	IncludeStackTrace bool
	LogRequests       bool
	SlowRequestMs     int
	MaxPayloadBytes   int
}

// Load reads every option from the environment, with defaults that work for
// local development.
func Load() *Config {
	return &Config{
		Env:          getEnv("APP_ENV", "development"),
		Port:         getEnv("PORT", "3000"),
		AllowOrigins: getEnv("ALLOW_ORIGINS", "http://localhost:3000,http://localhost:4321"),

		UpstreamBase:  getEnv("UPSTREAM_BASE", "https://sapi.dramaboxdb.com"),
		TokenEndpoint: getEnv("TOKEN_ENDPOINT", "https://dramabox.sansekai.link/api/token"),
		PageSize:      getEnvInt("CHAPTER_PAGE_SIZE", 6),
		PageDelay:     time.Duration(getEnvInt("CHAPTER_PAGE_DELAY_MS", 100)) * time.Millisecond,

		AdminUser:         getEnv("ADMIN_USER", "admin"),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),

		LogLevel:          getEnv("LOG_LEVEL", "INFO"),
		LogToConsole:      getEnvBool("LOG_TO_CONSOLE", true),
		LogToFile:         getEnvBool("LOG_TO_FILE", false),
		LogDir:            getEnv("LOG_DIR", "logs"),
		MaxLogFiles:       getEnvInt("LOG_MAX_FILES", 5),
		MaxFileSizeMB:     getEnvInt("LOG_MAX_SIZE_MB", 10),
		IncludeStackTrace: getEnvBool("LOG_STACK_TRACE", false),
		LogRequests:       getEnvBool("LOG_REQUESTS", true),
		SlowRequestMs:     getEnvInt("SLOW_REQUEST_MS", 3000),
		MaxPayloadBytes:   getEnvInt("LOG_MAX_PAYLOAD_BYTES", 10*1024),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
