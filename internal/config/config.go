package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

type Config struct {
	Server struct {
		Host         string
		Port         string `validate:"required,numeric"`
		ReadTimeout  time.Duration
		WriteTimeout time.Duration
		IdleTimeout  time.Duration
	}
	API struct {
		BaseURL string `validate:"required,url"`
		// Zero means no timeout.
		Timeout time.Duration `validate:"gte=0"`
	}
	Redis struct {
		// Empty keeps session state in process memory.
		URL string `validate:"omitempty,url"`
	}
	Session struct {
		CookieName string        `validate:"required"`
		TTL        time.Duration `validate:"gt=0"`
	}
	JWT struct {
		Secret string `validate:"required"`
	}
	CORS struct {
		Origins []string
	}
	Pagination struct {
		// Number of page buttons shown around the current page. 0 shows all.
		Window int `validate:"gte=0"`
	}
	DisplayTimezone string `validate:"required"`
	LogLevel        string `validate:"oneof=debug info warn error"`
}

// Load reads the configuration from the environment, after merging an optional .env file.
func Load() (*Config, error) {
	// .env is optional; variables already set in the environment win.
	_ = godotenv.Load()

	cfg := &Config{}

	// Server configuration
	cfg.Server.Host = getEnv("SERVER_HOST", "0.0.0.0")
	cfg.Server.Port = getEnv("SERVER_PORT", "8080")
	cfg.Server.ReadTimeout = getEnvAsDuration("SERVER_READ_TIMEOUT", "10s")
	cfg.Server.WriteTimeout = getEnvAsDuration("SERVER_WRITE_TIMEOUT", "10s")
	cfg.Server.IdleTimeout = getEnvAsDuration("SERVER_IDLE_TIMEOUT", "60s")

	// Remote events API
	cfg.API.BaseURL = strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8000"), "/")
	cfg.API.Timeout = getEnvAsDuration("API_TIMEOUT", "0s")

	// Redis configuration
	cfg.Redis.URL = getEnv("REDIS_URL", "")

	// Session configuration
	cfg.Session.CookieName = getEnv("SESSION_COOKIE", "events_session")
	cfg.Session.TTL = getEnvAsDuration("SESSION_TTL", "24h")
	cfg.JWT.Secret = getEnv("JWT_SECRET", "your-secret-key")

	cfg.CORS.Origins = parseCSV(getEnv("CORS_ORIGINS", "*"))
	cfg.Pagination.Window = getEnvAsInt("PAGINATION_WINDOW", 0)
	cfg.DisplayTimezone = getEnv("DISPLAY_TIMEZONE", "UTC")

	// Logging
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := time.LoadLocation(cfg.DisplayTimezone); err != nil {
		return nil, fmt.Errorf("invalid DISPLAY_TIMEZONE %q: %w", cfg.DisplayTimezone, err)
	}

	return cfg, nil
}

// Location returns the time zone event dates are rendered in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key, defaultValue string) time.Duration {
	val := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(val)
	if err != nil {
		return time.Duration(0)
	}
	return duration
}

func getEnvAsInt(key string, defaultValue int) int {
	val := getEnv(key, strconv.Itoa(defaultValue))
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return intVal
}

func parseCSV(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
