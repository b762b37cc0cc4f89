package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	Environment string
	CORSOrigins string
	TablePrefix string
	// Persistence
	DatabaseDriver string // "postgres" or "sqlite"
	DatabaseURL    string
	SQLitePath     string
	AutoMigrate    bool
	RedisURL       string // empty disables the conversation cache
	CacheTTL       time.Duration
	// Auth
	JWTSecret string
	JWTTTL    time.Duration
	JWKSURL   string // optional external identity provider
	// LLM Configuration
	LLMProvider       string // "gemini" or "lorem"
	LLMAPIKey         string
	LLMModel          string
	LLMAPIURL         string // overrides the endpoint derived from LLMModel
	LLMMaxRetries     int
	LLMRetryBaseDelay time.Duration
	LLMTimeout        time.Duration
	// Logging
	LogDir      string // empty disables the file sink
	LogMaxFiles int
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix: getTablePrefix(env),
		// Persistence
		DatabaseDriver: getEnv("DATABASE_DRIVER", "postgres"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		SQLitePath:     getEnv("SQLITE_PATH", "data/automaton.db"),
		AutoMigrate:    getEnv("AUTO_MIGRATE", getDefaultAutoMigrate(env)) == "true",
		RedisURL:       getEnv("REDIS_URL", ""),
		CacheTTL:       getDuration("CACHE_TTL", 10*time.Minute),
		// Auth
		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTTTL:    getDuration("JWT_TTL", time.Hour),
		JWKSURL:   getEnv("JWKS_URL", ""),
		// LLM Configuration
		LLMProvider:       getEnv("LLM_PROVIDER", "gemini"),
		LLMAPIKey:         getEnv("LLM_API_KEY", ""),
		LLMModel:          getEnv("LLM_MODEL", "gemini-1.5-flash"),
		LLMAPIURL:         getEnv("LLM_API_URL", ""),
		LLMMaxRetries:     getInt("LLM_MAX_RETRIES", 3),
		LLMRetryBaseDelay: getDuration("LLM_RETRY_BASE_DELAY", 5*time.Second),
		LLMTimeout:        getDuration("LLM_TIMEOUT", 60*time.Second),
		// Logging
		LogDir:      getEnv("LOG_DIR", ""),
		LogMaxFiles: getInt("LOG_MAX_FILES", 10),
	}
}

// getDefaultAutoMigrate creates tables on startup everywhere except prod
func getDefaultAutoMigrate(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getInt falls back to the default when the value is missing or not a number
func getInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return n
	}
	return defaultValue
}

// getDuration accepts Go duration strings ("5s") or plain milliseconds ("5000")
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
