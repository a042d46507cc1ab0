package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port                 string
	Env                  string
	LogLevel             string
	DatabaseURL          string
	RedisAddr            string
	RedisPassword        string
	RedisTLS             bool
	SnapshotCacheTTL     time.Duration
	CORSAllowedOrigins   []string
	RateLimitRPS         float64
	RateLimitBurst       int
	ExcludedParticipants []string
	ShutdownTimeout      time.Duration

	// Scheduling rules
	TotalSessions              int
	BackupSessions             int
	MaxConcurrentSessions      int
	SessionWindowDays          int
	FollowUpWindowDays         int
	BackupWindowDays           int
	MinAvailableDays           int
	SearchHorizonDays          int
	TimeSlots                  string
	BlockedDates               string
	MinNotice                  time.Duration
	SlotGap                    time.Duration
	PerSlotCap                 int
	MaxInstructionsPerDay      int
	SlotBlackouts              string
	SlotTimezone               string
	BackupsCountTowardCapacity bool
}

// Load reads configuration from environment variables. A .env file (or the file named by
// ENV_FILE) is read first when present; variables already set in the environment win.
func Load() *Config {
	_ = loadDotEnv(getEnv("ENV_FILE", ".env"))

	return &Config{
		Port:                 getEnv("PORT", "8080"),
		Env:                  getEnv("ENV", "development"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		RedisTLS:             getEnvAsBool("REDIS_TLS", false),
		SnapshotCacheTTL:     getEnvAsDuration("SNAPSHOT_CACHE_TTL", 30*time.Second),
		CORSAllowedOrigins:   getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
		RateLimitRPS:         getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:       getEnvAsInt("RATE_LIMIT_BURST", 20),
		ExcludedParticipants: getEnvAsList("EXCLUDED_PARTICIPANTS", nil),
		ShutdownTimeout:      getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		TotalSessions:              getEnvAsInt("TOTAL_SESSIONS", 15),
		BackupSessions:             getEnvAsInt("NUM_BACKUP_SESSIONS", 3),
		MaxConcurrentSessions:      getEnvAsInt("MAX_CONCURRENT_SESSIONS", 14),
		SessionWindowDays:          getEnvAsInt("SESSION1_WINDOW_DAYS", 14),
		FollowUpWindowDays:         getEnvAsInt("FOLLOW_UP_WINDOW_DAYS", 21),
		BackupWindowDays:           getEnvAsInt("BACKUP_WINDOW_DAYS", 7),
		MinAvailableDays:           getEnvAsInt("MIN_AVAILABLE_DAYS", 28),
		SearchHorizonDays:          getEnvAsInt("SEARCH_HORIZON_DAYS", 365),
		TimeSlots:                  getEnv("TIME_SLOTS", "11:00,13:00,17:00"),
		BlockedDates:               getEnv("BLOCKED_DATES", "2026-01-09,2026-01-13,2026-01-16"),
		MinNotice:                  getEnvAsDuration("MIN_NOTICE", 48*time.Hour),
		SlotGap:                    getEnvAsDuration("SLOT_GAP", 150*time.Minute),
		PerSlotCap:                 getEnvAsInt("PER_SLOT_CAP", 2),
		MaxInstructionsPerDay:      getEnvAsInt("MAX_INSTRUCTIONS_PER_DAY", 3),
		SlotBlackouts:              getEnv("SLOT_BLACKOUTS", "fri 10:00-14:29,mon 00:00-12:59"),
		SlotTimezone:               getEnv("SLOT_TIMEZONE", "UTC"),
		BackupsCountTowardCapacity: getEnvAsBool("BACKUPS_COUNT_TOWARD_CAPACITY", true),
	}
}

func loadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blank entries.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
