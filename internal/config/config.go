package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the tracking service.
type Config struct {
	Port        string
	DatabaseURL string
	DBPath      string
	SeedPath    string
	LogLevel    slog.Level

	RedisAddr string

	KafkaBrokers         []string
	KafkaAttendanceTopic string
	KafkaGroupID         string

	OracleURL      string
	OracleAPIKey   string
	OracleTimeout  time.Duration
	OracleAttempts int

	RerouteDebounce        time.Duration
	RerouteLocalHeuristic  bool
	StopCompletionRadiusKm float64
	DefaultSpeedKmh        float64
}

// LoadDotenv reads .env when present. Missing files are not an error.
func LoadDotenv() bool {
	return godotenv.Load() == nil
}

// Load reads the configuration from the environment, applying defaults.
func Load() Config {
	return Config{
		Port:        Get("PORT", "8080"),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBPath:      Get("DB_PATH", "data/app.db"),
		SeedPath:    Get("SEED_PATH", "data/seeds/routes.json"),
		LogLevel:    Level("LOG_LEVEL", slog.LevelInfo),

		RedisAddr: strings.TrimSpace(os.Getenv("REDIS_ADDR")),

		KafkaBrokers:         List("KAFKA_BROKERS"),
		KafkaAttendanceTopic: Get("KAFKA_ATTENDANCE_TOPIC", "attendance.marked"),
		KafkaGroupID:         Get("KAFKA_GROUP_ID", "route-tracking"),

		OracleURL:      strings.TrimSpace(os.Getenv("ORACLE_URL")),
		OracleAPIKey:   os.Getenv("ORACLE_API_KEY"),
		OracleTimeout:  Duration("ORACLE_TIMEOUT", 8*time.Second),
		OracleAttempts: Int("ORACLE_ATTEMPTS", 3),

		RerouteDebounce:        Duration("REROUTE_DEBOUNCE", 800*time.Millisecond),
		RerouteLocalHeuristic:  Bool("REROUTE_LOCAL_HEURISTIC", false),
		StopCompletionRadiusKm: Float("STOP_COMPLETION_RADIUS_KM", 0.35),
		DefaultSpeedKmh:        Float("DEFAULT_SPEED_KMH", 40),
	}
}

// Get returns the environment value for key, or fallback when unset or blank.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func Duration(key string, fallback time.Duration) time.Duration {
	v := Get(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("invalid duration, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return d
}

func Float(key string, fallback float64) float64 {
	v := Get(key, "")
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		slog.Warn("invalid number, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return f
}

func Int(key string, fallback int) int {
	v := Get(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		slog.Warn("invalid integer, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return n
}

func Bool(key string, fallback bool) bool {
	v := Get(key, "")
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("invalid boolean, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return b
}

// List splits a comma separated value, dropping blanks.
func List(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func Level(key string, fallback slog.Level) slog.Level {
	v := Get(key, "")
	if v == "" {
		return fallback
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		return fallback
	}
	return lvl
}
