package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("SCHED_DISPLACEMENT_BUFFER", "")
	t.Setenv("SCHED_WORKDAY_END_SHORT", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.DisplacementBuffer != 30*time.Minute {
		t.Fatalf("expected default displacement buffer, got %s", cfg.DisplacementBuffer)
	}
	if cfg.DefaultDuration != time.Hour {
		t.Fatalf("expected default duration, got %s", cfg.DefaultDuration)
	}
	if cfg.ConfirmCutoff != 2*time.Hour {
		t.Fatalf("expected default confirm cutoff, got %s", cfg.ConfirmCutoff)
	}
	if cfg.WorkdayStart != 8*time.Hour {
		t.Fatalf("expected 08:00 workday start, got %s", cfg.WorkdayStart)
	}
	if cfg.WorkdayEndShortDays != 14*time.Hour {
		t.Fatalf("expected 14:00 short-day close, got %s", cfg.WorkdayEndShortDays)
	}
	if cfg.CompletionInterval != 10*time.Minute {
		t.Fatalf("expected default completion cadence, got %s", cfg.CompletionInterval)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("SCHED_DISPLACEMENT_BUFFER", "45m")
	t.Setenv("SCHED_CONFIRM_CUTOFF", "90m")
	t.Setenv("SCHED_WORKDAY_END", "18:30")
	t.Setenv("SWEEP_REMINDER_LEAD", "3h")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected env override, got %s", cfg.Env)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.DisplacementBuffer != 45*time.Minute {
		t.Fatalf("expected buffer override, got %s", cfg.DisplacementBuffer)
	}
	if cfg.ConfirmCutoff != 90*time.Minute {
		t.Fatalf("expected confirm cutoff override, got %s", cfg.ConfirmCutoff)
	}
	if cfg.WorkdayEnd != 18*time.Hour+30*time.Minute {
		t.Fatalf("expected 18:30 close, got %s", cfg.WorkdayEnd)
	}
	if cfg.ReminderLead != 3*time.Hour {
		t.Fatalf("expected reminder lead override, got %s", cfg.ReminderLead)
	}
}

func TestClockParseFallback(t *testing.T) {
	t.Setenv("SCHED_WORKDAY_START", "not-a-time")
	cfg := Load()
	if cfg.WorkdayStart != 8*time.Hour {
		t.Fatalf("expected fallback to default on bad clock value, got %s", cfg.WorkdayStart)
	}
}
