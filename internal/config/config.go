package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env         string
	LogLevel    string
	HTTPPort    string
	DBDriver    string
	DatabaseURL string
	RedisAddr   string

	JWTIssuer     string
	JWTSigningKey string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	QueueBackend     string
	QueueKey         string
	TallyBackend     string
	RateLimitBackend string
	RateLimitPerMin  int

	SeedDemo           bool
	SeedSampleCheckIns bool
	CORSOrigins        []string
}

// Load returns application config populated from environment variables with sensible defaults.
// A .env file in the working directory, when present, is applied first without overriding
// variables that are already set.
func Load() App {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not load .env", "error", err)
	}

	return App{
		Env:                getEnv("APP_ENV", "dev"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		HTTPPort:           getEnv("HTTP_PORT", "8081"),
		DBDriver:           getEnv("DB_DRIVER", "sqlite"),
		DatabaseURL:        getEnv("DATABASE_URL", "file:attendance.db"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		JWTIssuer:          getEnv("JWT_ISSUER", "school-attendance"),
		JWTSigningKey:      getEnv("JWT_SIGNING_KEY", "dev-signing-secret-change"),
		AccessTTL:          durationEnv("ACCESS_TTL", 15*time.Minute),
		RefreshTTL:         durationEnv("REFRESH_TTL", 24*time.Hour),
		QueueBackend:       getEnv("QUEUE_BACKEND", "memory"),
		QueueKey:           getEnv("QUEUE_KEY", "attendance:checkins"),
		TallyBackend:       getEnv("TALLY_BACKEND", "memory"),
		RateLimitBackend:   getEnv("RATE_LIMIT_BACKEND", "memory"),
		RateLimitPerMin:    intEnv("RATE_LIMIT_PER_MIN", 120),
		SeedDemo:           boolEnv("SEED_DEMO", true),
		SeedSampleCheckIns: boolEnv("SEED_SAMPLE_CHECKINS", false),
		CORSOrigins:        listEnv("CORS_ORIGINS", []string{"*"}),
	}
}

// Production reports whether the service runs with production defaults.
func (a App) Production() bool {
	return a.Env == "production" || a.Env == "prod"
}

// UsesRedis reports whether any component was configured with a Redis backend.
func (a App) UsesRedis() bool {
	return a.QueueBackend == "redis" || a.TallyBackend == "redis" || a.RateLimitBackend == "redis"
}

// Validate rejects combinations the binaries cannot run with.
func (a App) Validate() error {
	switch a.DBDriver {
	case "sqlite", "pgx":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", a.DBDriver)
	}
	for key, val := range map[string]string{
		"QUEUE_BACKEND":      a.QueueBackend,
		"TALLY_BACKEND":      a.TallyBackend,
		"RATE_LIMIT_BACKEND": a.RateLimitBackend,
	} {
		if val != "memory" && val != "redis" {
			return fmt.Errorf("unsupported %s %q", key, val)
		}
	}
	// the worker drains a redis queue in its own process, so a memory tally there is never read
	if a.QueueBackend == "redis" && a.TallyBackend == "memory" {
		return fmt.Errorf("QUEUE_BACKEND=redis requires TALLY_BACKEND=redis")
	}
	if a.Production() && a.JWTSigningKey == "dev-signing-secret-change" {
		return fmt.Errorf("JWT_SIGNING_KEY must be set in production")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			slog.Warn("invalid duration, using fallback", "key", key, "error", err, "fallback", fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func boolEnv(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		switch strings.ToLower(val) {
		case "1", "true", "yes":
			return true
		case "0", "false", "no":
			return false
		}
		slog.Warn("invalid bool, using fallback", "key", key, "fallback", fallback)
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		slog.Warn("invalid int, using fallback", "key", key, "fallback", fallback)
	}
	return fallback
}

func listEnv(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
