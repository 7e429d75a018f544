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

// Config captures environment driven configuration values for the SeatServe service.
type Config struct {
	HTTPPort           int
	SQLiteDSN          string
	SessionSecret      string
	SessionTTL         time.Duration
	LogLevel           string
	AllowedEmailDomain string
	AppURL             string
	CORSOrigins        []string

	CutoffHour         int
	HorizonWorkingDays int

	OpenAIAPIKey            string
	OpenAIBaseURL           string
	OpenAIModel             string
	SuggestionTimeout       time.Duration
	SuggestionRatePerMinute int

	NATSURL     string
	NATSSubject string

	Email EmailConfig
}

// EmailConfig describes the outbound SMTP relay. An empty Host disables SMTP.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled reports whether an SMTP relay is configured.
func (e EmailConfig) Enabled() bool {
	return e.Host != ""
}

// LoadEnvFile merges variables from a dotenv file into the process
// environment without overriding values that are already set. A missing file
// is not an error.
func LoadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load parses configuration values from the current process environment.
//
// The loader applies defaults for optional fields and reports every missing
// or invalid key in a single error.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:                8080,
		SQLiteDSN:               "file:seatserve.db",
		SessionTTL:              24 * time.Hour,
		LogLevel:                "info",
		AllowedEmailDomain:      "@t-systems.com",
		AppURL:                  "http://localhost:8080",
		CutoffHour:              14,
		HorizonWorkingDays:      2,
		OpenAIModel:             "gpt-4o-mini",
		SuggestionTimeout:       30 * time.Second,
		SuggestionRatePerMinute: 10,
		NATSSubject:             "seatserve.snapshot",
		Email: EmailConfig{
			Port: 587,
			From: `"SeatServe" <no-reply@example.com>`,
		},
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	positiveInt := func(key string, min int, target *int) {
		value := env(key)
		if value == "" {
			return
		}
		n, err := strconv.Atoi(value)
		if err != nil || n < min {
			invalid = append(invalid, key)
			return
		}
		*target = n
	}
	positiveDuration := func(key string, target *time.Duration) {
		value := env(key)
		if value == "" {
			return
		}
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			invalid = append(invalid, key)
			return
		}
		*target = d
	}
	text := func(key string, target *string) {
		if value := env(key); value != "" {
			*target = value
		}
	}

	positiveInt("SEATSERVE_HTTP_PORT", 1, &cfg.HTTPPort)
	text("SEATSERVE_SQLITE_DSN", &cfg.SQLiteDSN)

	if secret := env("SEATSERVE_SESSION_SECRET"); secret == "" {
		missing = append(missing, "SEATSERVE_SESSION_SECRET")
	} else {
		cfg.SessionSecret = secret
	}
	positiveDuration("SEATSERVE_SESSION_TTL", &cfg.SessionTTL)

	if level := strings.ToLower(env("SEATSERVE_LOG_LEVEL")); level != "" {
		switch level {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = level
		default:
			invalid = append(invalid, "SEATSERVE_LOG_LEVEL")
		}
	}

	if domain := env("SEATSERVE_ALLOWED_EMAIL_DOMAIN"); domain != "" {
		if !strings.HasPrefix(domain, "@") || len(domain) < 2 {
			invalid = append(invalid, "SEATSERVE_ALLOWED_EMAIL_DOMAIN")
		} else {
			cfg.AllowedEmailDomain = strings.ToLower(domain)
		}
	}
	text("SEATSERVE_APP_URL", &cfg.AppURL)
	cfg.CORSOrigins = splitList(env("SEATSERVE_CORS_ORIGINS"))

	if value := env("SEATSERVE_CUTOFF_HOUR"); value != "" {
		hour, err := strconv.Atoi(value)
		if err != nil || hour < 1 || hour > 23 {
			invalid = append(invalid, "SEATSERVE_CUTOFF_HOUR")
		} else {
			cfg.CutoffHour = hour
		}
	}
	positiveInt("SEATSERVE_HORIZON_DAYS", 1, &cfg.HorizonWorkingDays)

	text("SEATSERVE_OPENAI_API_KEY", &cfg.OpenAIAPIKey)
	text("SEATSERVE_OPENAI_BASE_URL", &cfg.OpenAIBaseURL)
	text("SEATSERVE_OPENAI_MODEL", &cfg.OpenAIModel)
	positiveDuration("SEATSERVE_SUGGESTION_TIMEOUT", &cfg.SuggestionTimeout)
	positiveInt("SEATSERVE_SUGGESTION_RATE_PER_MINUTE", 1, &cfg.SuggestionRatePerMinute)

	text("SEATSERVE_NATS_URL", &cfg.NATSURL)
	text("SEATSERVE_NATS_SUBJECT", &cfg.NATSSubject)

	text("EMAIL_HOST", &cfg.Email.Host)
	positiveInt("EMAIL_PORT", 1, &cfg.Email.Port)
	text("EMAIL_USER", &cfg.Email.Username)
	cfg.Email.Password = os.Getenv("EMAIL_PASS")
	text("EMAIL_FROM", &cfg.Email.From)

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
