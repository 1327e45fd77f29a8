// Package config loads runtime configuration from the environment.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// Conversational-AI provider
	ProviderBaseURL string
	ProviderAPIKey  string
	ProviderTimeout time.Duration
	// SyncPageLimit is the per-request page size when pulling conversations
	// and messages. SyncMaxPages bounds how many pages are followed; 1
	// reproduces the historical single-page behavior.
	SyncPageLimit int
	SyncMaxPages  int

	// HTTP server
	ServerPort    string
	ServerOrigin  string
	SessionSecret string
	SessionTTL    time.Duration

	// Invitations
	InvitationTTL time.Duration

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first, existing variables win.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "conversia"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "support"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		ProviderBaseURL: getEnv("CONVERSIA_PROVIDER_URL", "https://api.dify.ai/v1"),
		ProviderAPIKey:  getEnv("CONVERSIA_PROVIDER_KEY", ""),
		ProviderTimeout: getEnvDuration("CONVERSIA_PROVIDER_TIMEOUT", 30*time.Second),
		SyncPageLimit:   getEnvInt("CONVERSIA_SYNC_PAGE_LIMIT", 100),
		SyncMaxPages:    getEnvInt("CONVERSIA_SYNC_MAX_PAGES", 1),

		ServerPort:    getEnv("CONVERSIA_SERVER_PORT", "8090"),
		ServerOrigin:  getEnv("CONVERSIA_ORIGIN", "http://localhost:8090"),
		SessionSecret: getEnv("CONVERSIA_SESSION_SECRET", ""),
		SessionTTL:    getEnvDuration("CONVERSIA_SESSION_TTL", 24*time.Hour),

		InvitationTTL: getEnvDuration("CONVERSIA_INVITATION_TTL", 48*time.Hour),

		LogFile:  getEnv("CONVERSIA_LOG_FILE", "/tmp/conversia.log"),
		LogLevel: parseLogLevel(getEnv("CONVERSIA_LOG_LEVEL", "INFO")),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
