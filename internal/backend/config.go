package backend

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"churchadmin/internal/config"
)

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// REST API
	APIBaseURL string
	APITimeout time.Duration
	APIRetries uint64

	// SQLite
	SQLiteDBPath string

	// Memory backend seed account
	AdminEmail    string
	AdminPassword string
}

// BackendType represents the type of backend
type BackendType string

const (
	APIBackend    BackendType = "api"
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case APIBackend, SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	bt := BackendType(appConfig.DataBackend)
	if !bt.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}
	return Config{
		Type:          bt,
		APIBaseURL:    appConfig.APIBaseURL,
		APITimeout:    appConfig.APITimeout,
		APIRetries:    appConfig.APIRetries,
		SQLiteDBPath:  appConfig.SQLiteDBPath,
		AdminEmail:    appConfig.AdminEmail,
		AdminPassword: appConfig.AdminPassword,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	switch c.Type {
	case APIBackend:
		u, err := url.Parse(c.APIBaseURL)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("API base URL must be an absolute http(s) URL, got %q", c.APIBaseURL)
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
	case MemoryBackend:
		if c.AdminEmail != "" && !strings.Contains(c.AdminEmail, "@") {
			return fmt.Errorf("invalid admin email %q", c.AdminEmail)
		}
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{APIBackend, SQLiteBackend, MemoryBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
