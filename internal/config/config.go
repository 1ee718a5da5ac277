package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string

	// Booking rules
	DisplacementBuffer time.Duration // idle window reserved around each appointment
	DefaultDuration    time.Duration
	ConfirmCutoff      time.Duration

	// Working day. Clock values are offsets from local midnight.
	WorkdayStart        time.Duration
	WorkdayEnd          time.Duration
	WorkdayEndShortDays time.Duration // Mon/Wed/Fri close earlier
	SlotStep            time.Duration

	// Background sweeps
	CompletionInterval time.Duration
	ReminderInterval   time.Duration
	ReminderLead       time.Duration
	ReminderHalfWindow time.Duration
	EarlyMorningCutoff time.Duration // appointments before this hour get a night-before reminder
	NightReminderAt    time.Duration
	SweepLeaseTTL      time.Duration

	// SendGrid email
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	// Practitioner contact for booking and reminder notices
	PracticeName  string
	PracticeEmail string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		DisplacementBuffer: getEnvAsDuration("SCHED_DISPLACEMENT_BUFFER", 30*time.Minute),
		DefaultDuration:    getEnvAsDuration("SCHED_DEFAULT_DURATION", time.Hour),
		ConfirmCutoff:      getEnvAsDuration("SCHED_CONFIRM_CUTOFF", 2*time.Hour),

		WorkdayStart:        getEnvAsClock("SCHED_WORKDAY_START", "08:00"),
		WorkdayEnd:          getEnvAsClock("SCHED_WORKDAY_END", "17:00"),
		WorkdayEndShortDays: getEnvAsClock("SCHED_WORKDAY_END_SHORT", "14:00"),
		SlotStep:            getEnvAsDuration("SCHED_SLOT_STEP", 30*time.Minute),

		CompletionInterval: getEnvAsDuration("SWEEP_COMPLETION_INTERVAL", 10*time.Minute),
		ReminderInterval:   getEnvAsDuration("SWEEP_REMINDER_INTERVAL", 10*time.Minute),
		ReminderLead:       getEnvAsDuration("SWEEP_REMINDER_LEAD", 2*time.Hour),
		ReminderHalfWindow: getEnvAsDuration("SWEEP_REMINDER_HALF_WINDOW", 5*time.Minute),
		EarlyMorningCutoff: getEnvAsClock("SWEEP_EARLY_MORNING_CUTOFF", "09:00"),
		NightReminderAt:    getEnvAsClock("SWEEP_NIGHT_REMINDER_AT", "19:00"),
		SweepLeaseTTL:      getEnvAsDuration("SWEEP_LEASE_TTL", 5*time.Minute),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Consultorio"),

		PracticeName:  getEnv("PRACTICE_NAME", "Consultorio"),
		PracticeEmail: getEnv("PRACTICE_EMAIL", ""),
	}
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

// getEnvAsClock parses an HH:MM wall-clock value into an offset from midnight.
func getEnvAsClock(key, defaultValue string) time.Duration {
	parse := func(s string) (time.Duration, bool) {
		t, err := time.Parse("15:04", s)
		if err != nil {
			return 0, false
		}
		return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, true
	}
	if v, ok := parse(getEnv(key, "")); ok {
		return v
	}
	v, _ := parse(defaultValue)
	return v
}
