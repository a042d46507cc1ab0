package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wolfman30/experiment-scheduler/internal/availability"
	"github.com/wolfman30/experiment-scheduler/internal/dates"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("TOTAL_SESSIONS", "")
	t.Setenv("ENV_FILE", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.TotalSessions != 15 || cfg.BackupSessions != 3 || cfg.MaxConcurrentSessions != 14 {
		t.Fatalf("unexpected session defaults: %d/%d/%d", cfg.TotalSessions, cfg.BackupSessions, cfg.MaxConcurrentSessions)
	}
	if cfg.MinNotice != 48*time.Hour {
		t.Fatalf("expected default notice 48h, got %s", cfg.MinNotice)
	}
	if !cfg.BackupsCountTowardCapacity {
		t.Fatalf("expected backups to count toward capacity by default")
	}
	if cfg.SnapshotCacheTTL != 30*time.Second {
		t.Fatalf("expected default cache ttl, got %s", cfg.SnapshotCacheTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("MAX_CONCURRENT_SESSIONS", "9")
	t.Setenv("SLOT_GAP", "90m")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("BACKUPS_COUNT_TOWARD_CAPACITY", "false")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.MaxConcurrentSessions != 9 {
		t.Fatalf("expected concurrency override, got %d", cfg.MaxConcurrentSessions)
	}
	if cfg.SlotGap != 90*time.Minute {
		t.Fatalf("expected gap override, got %s", cfg.SlotGap)
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Fatalf("expected rps override, got %v", cfg.RateLimitRPS)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.BackupsCountTowardCapacity {
		t.Fatalf("expected backups override to false")
	}
}

func TestLoadReadsDotEnvWithoutOverriding(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("PER_SLOT_CAP=4\nLOG_LEVEL=error\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ENV_FILE", path)
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("PER_SLOT_CAP", "")
	os.Unsetenv("PER_SLOT_CAP")

	cfg := Load()
	if cfg.PerSlotCap != 4 {
		t.Fatalf("expected value from env file, got %d", cfg.PerSlotCap)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected process env to win, got %s", cfg.LogLevel)
	}
}

func TestSchedulerParsesRules(t *testing.T) {
	t.Setenv("ENV_FILE", "")
	cfg := Load()
	cfg.SlotTimezone = "America/New_York"
	cfg.BlockedDates = "2026-01-09, 2026-01-13"

	s, err := cfg.Scheduler()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Slots.Slots) != 3 || s.Slots.Slots[0] != availability.TimeSlot("11:00") {
		t.Fatalf("unexpected slots %v", s.Slots.Slots)
	}
	if !s.Day.Blocked.Has(dates.MustParse("2026-01-13")) || s.Day.Blocked.Has(dates.MustParse("2026-01-16")) {
		t.Fatalf("unexpected blocked set %v", s.Day.Blocked.Sorted())
	}
	if len(s.Slots.Blackouts) != 2 || s.Slots.Blackouts[0].Weekday != time.Friday {
		t.Fatalf("unexpected blackouts %v", s.Slots.Blackouts)
	}
	if s.Location.String() != "America/New_York" || s.Slots.Location != s.Location {
		t.Fatalf("unexpected location %v", s.Location)
	}
	if s.Finder.MaxConcurrent != cfg.MaxConcurrentSessions || s.Finder.MinAvailableDays != 28 {
		t.Fatalf("unexpected finder %+v", s.Finder)
	}
	if !s.Index.CountBackups {
		t.Fatalf("expected backups to count")
	}
	if s.Limits.TotalSessions != 15 || s.Limits.BackupWindowDays != 7 {
		t.Fatalf("unexpected limits %+v", s.Limits)
	}
}

func TestSchedulerRejectsBadValues(t *testing.T) {
	t.Setenv("ENV_FILE", "")
	cases := map[string]func(*Config){
		"slots":     func(c *Config) { c.TimeSlots = "11:00,lunch" },
		"blocked":   func(c *Config) { c.BlockedDates = "2026-13-01" },
		"blackouts": func(c *Config) { c.SlotBlackouts = "funday 10:00-11:00" },
		"timezone":  func(c *Config) { c.SlotTimezone = "Mars/Olympus" },
		"sessions":  func(c *Config) { c.TotalSessions = 0 },
		"backups":   func(c *Config) { c.BackupWindowDays = 2 },
		"follow-up": func(c *Config) { c.FollowUpWindowDays = 10 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Load()
			mutate(cfg)
			if _, err := cfg.Scheduler(); err == nil || !strings.HasPrefix(err.Error(), "config: ") {
				t.Fatalf("expected config error, got %v", err)
			}
		})
	}
}
