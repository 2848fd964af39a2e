package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

type Config struct {
	// HTTP Server
	Port               string `env:"PORT" envDefault:"8081"`
	RateLimitPerMinute int    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"120"`
	SecureCookies      bool   `env:"SECURE_COOKIES" envDefault:"false"`

	// Logging
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat     string `env:"LOG_FORMAT" envDefault:"text"`
	LogFile       string `env:"LOG_FILE"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"50"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"3"`

	// Backend selection
	DataBackend string `env:"DATA_BACKEND" envDefault:"memory"`

	// REST backend
	APIBaseURL string        `env:"API_BASE_URL"`
	APITimeout time.Duration `env:"API_TIMEOUT" envDefault:"10s"`
	APIRetries uint64        `env:"API_RETRIES" envDefault:"2"`

	// Database
	SQLiteDBPath string `env:"SQLITE_DB_PATH" envDefault:"./data/console.db"`

	// Bootstrap account for the sqlite and memory backends
	AdminEmail    string `env:"ADMIN_EMAIL" envDefault:"admin@example.com"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	// AMQP
	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" envDefault:"churchadmin"`
	AMQPQueue    string `env:"AMQP_QUEUE" envDefault:"report_exports"`

	// Google Sheets
	GoogleSpreadsheetID      string `env:"GOOGLE_SPREADSHEET_ID"`
	GoogleServiceAccountFile string `env:"GOOGLE_SERVICE_ACCOUNT_FILE"`
	GoogleServiceAccountJSON string `env:"GOOGLE_SERVICE_ACCOUNT_JSON"`

	// Caches and sessions
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"12h"`
	FormTTL    time.Duration `env:"FORM_TTL" envDefault:"30m"`
	CacheTTL   time.Duration `env:"CACHE_TTL" envDefault:"5m"`
	CacheSize  int           `env:"CACHE_SIZE" envDefault:"500"`

	// Form effect delays
	FormReenableDelay     time.Duration `env:"FORM_REENABLE_DELAY" envDefault:"1500ms"`
	FormAuthRedirectDelay time.Duration `env:"FORM_AUTH_REDIRECT_DELAY" envDefault:"3s"`
	FormResetDelay        time.Duration `env:"FORM_RESET_DELAY" envDefault:"1200ms"`
	FormNavigateDelay     time.Duration `env:"FORM_NAVIGATE_DELAY" envDefault:"2300ms"`
	FormDialogCloseDelay  time.Duration `env:"FORM_DIALOG_CLOSE_DELAY" envDefault:"1s"`

	// Worker
	ReportCron string `env:"REPORT_CRON" envDefault:"0 2 * * *"`
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// SheetsEnabled reports whether Google Sheets exports are configured.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != "" && (c.GoogleServiceAccountFile != "" || c.GoogleServiceAccountJSON != "")
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validLevels := []string{"debug", "info", "warn", "warning", "error"}
	if !slices.Contains(validLevels, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	// Validate data backend
	validBackends := []string{"api", "memory", "sqlite"}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "api":
		if parsed, err := url.Parse(c.APIBaseURL); err != nil || parsed.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid API base URL '%s': must be an absolute URL when using api backend", c.APIBaseURL))
		} else if parsed.Scheme != "http" && parsed.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid API base URL scheme '%s': must be 'http' or 'https'", parsed.Scheme))
		}
		if c.APITimeout <= 0 {
			errors = append(errors, fmt.Sprintf("invalid API timeout %v: must be positive", c.APITimeout))
		}
		if c.APIRetries > 10 {
			errors = append(errors, fmt.Sprintf("invalid API retries %d: must be at most 10", c.APIRetries))
		}
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.AdminPassword != "" && len(c.AdminPassword) < 8 {
		errors = append(errors, "admin password must be at least 8 characters")
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	if c.FormTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid form TTL %v: must be at least 1 minute", c.FormTTL))
	}
	if c.CacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be positive", c.CacheTTL))
	}
	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 per minute", c.RateLimitPerMinute))
	}

	for name, d := range map[string]time.Duration{
		"reenable":      c.FormReenableDelay,
		"auth redirect": c.FormAuthRedirectDelay,
		"reset":         c.FormResetDelay,
		"navigate":      c.FormNavigateDelay,
		"dialog close":  c.FormDialogCloseDelay,
	} {
		if d < 0 || d > time.Minute {
			errors = append(errors, fmt.Sprintf("invalid form %s delay %v: must be between 0 and 1 minute", name, d))
		}
	}

	if _, err := cron.ParseStandard(c.ReportCron); err != nil {
		errors = append(errors, fmt.Sprintf("invalid report cron '%s': %v", c.ReportCron, err))
	}

	// Return combined errors
	if len(errors) > 0 {
		slices.Sort(errors)
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}
