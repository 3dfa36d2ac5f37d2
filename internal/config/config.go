// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the server's environment-driven configuration. All fields
// have workable defaults for local development; Postgres is optional and
// the history archive stays off without it.
type Config struct {
	Port          string
	LogLevel      string
	RedisAddr     string
	RedisDB       int
	SnapshotKey   string
	PostgresURL   string
	QuestionsFile string
	GracePeriod   time.Duration
}

// FromEnv reads the configuration from environment variables. godotenv's
// autoload in main has already merged any .env file into the environment.
func FromEnv() Config {
	return Config{
		Port:          getEnv("PORT", "8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		SnapshotKey:   getEnv("SNAPSHOT_KEY", "quizparty:game_state"),
		PostgresURL:   getEnv("POSTGRES_URL", ""),
		QuestionsFile: getEnv("QUESTIONS_FILE", ""),
		GracePeriod:   time.Duration(getEnvInt("GRACE_PERIOD", 10)) * time.Second,
	}
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
