package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration
type Config struct {
	Port     string
	MongoURI string
	RedisURL string

	// Auth
	JWTSecret string

	// Snooze wake job: cron expression for the reactivation sweep
	SnoozeWakeCron    string
	SnoozeWakeEnabled bool

	// Optional YAML file overriding the objection-signal phrase list
	SignalsFile string

	// Prompt context cache TTL in seconds
	PromptCacheTTL int

	// Admin configuration
	AdminUserIDs []string // user IDs allowed to edit seller custom context
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	// Parse admin user IDs (comma-separated)
	adminEnv := getEnv("ADMIN_USER_IDS", "")
	var adminUserIDs []string
	if adminEnv != "" {
		adminUserIDs = strings.Split(adminEnv, ",")
		for i := range adminUserIDs {
			adminUserIDs[i] = strings.TrimSpace(adminUserIDs[i])
		}
	}

	return &Config{
		Port:     getEnv("PORT", "3001"),
		MongoURI: getEnv("MONGODB_URI", ""),
		RedisURL: getEnv("REDIS_URL", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),

		SnoozeWakeCron:    getEnv("SNOOZE_WAKE_CRON", "*/5 * * * *"),
		SnoozeWakeEnabled: getBoolEnv("SNOOZE_WAKE_ENABLED", true),

		SignalsFile: getEnv("SIGNALS_FILE", ""),

		PromptCacheTTL: getIntEnv("PROMPT_CACHE_TTL_SECONDS", 300),

		AdminUserIDs: adminUserIDs,
	}
}

// IsAdmin reports whether the given user ID has admin access
func (c *Config) IsAdmin(userID string) bool {
	for _, id := range c.AdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
