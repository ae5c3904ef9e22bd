package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Logging
	LogLevel  string
	LogFormat string

	// Document store
	DataBackend  string
	SQLiteDBPath string

	// AMQP (optional: empty URL disables sync notifications)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Extraction
	GeminiAPIKey        string
	GeminiModel         string
	ExtractionCacheSize int
	ExtractionCacheTTL  time.Duration
	MaxUploadBytes      int64

	// Identity
	IdentityBackend    string
	FirebaseAPIKey     string
	StaticUsers        string
	MemberAEmailPrefix string
	SessionTTL         time.Duration

	// Sync
	SyncDebounce    time.Duration
	LoadMaxAttempts int
	NoticeInterval  time.Duration

	// Google Sheets export
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Worker
	SyncInterval time.Duration
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8081"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/financeiro.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "financeiro"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "household_synced"),

		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		ExtractionCacheSize: getEnvInt("EXTRACTION_CACHE_SIZE", 64),
		ExtractionCacheTTL:  getEnvDuration("EXTRACTION_CACHE_TTL", time.Hour),
		MaxUploadBytes:      int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),

		IdentityBackend:    getEnv("IDENTITY_BACKEND", "static"),
		FirebaseAPIKey:     getEnv("FIREBASE_API_KEY", ""),
		StaticUsers:        getEnv("STATIC_USERS", ""),
		MemberAEmailPrefix: getEnv("MEMBER_A_EMAIL_PREFIX", ""),
		SessionTTL:         getEnvDuration("SESSION_TTL", 12*time.Hour),

		SyncDebounce:    getEnvDuration("SYNC_DEBOUNCE", time.Second),
		LoadMaxAttempts: getEnvInt("LOAD_MAX_ATTEMPTS", 3),
		NoticeInterval:  getEnvDuration("NOTICE_SWEEP_INTERVAL", time.Second),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Ledger"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		SyncInterval: getEnvDuration("SYNC_INTERVAL", 5*time.Minute),
	}
}

var (
	validBackends   = []string{"memory", "sqlite"}
	validIdentities = []string{"static", "firebase"}
	validLogFormats = []string{"text", "json"}
)

// Validate validates the configuration and returns every problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validLogFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validLogFormats))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
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

	if c.ExtractionCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid extraction cache size %d: must be at least 1", c.ExtractionCacheSize))
	}
	if c.ExtractionCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid extraction cache TTL %v: must be positive", c.ExtractionCacheTTL))
	}
	if c.MaxUploadBytes < 1 {
		errors = append(errors, fmt.Sprintf("invalid max upload size %d: must be positive", c.MaxUploadBytes))
	}

	switch c.IdentityBackend {
	case "firebase":
		if c.FirebaseAPIKey == "" {
			errors = append(errors, "FIREBASE_API_KEY is required when using firebase identity")
		}
	case "static":
		if strings.TrimSpace(c.StaticUsers) == "" {
			errors = append(errors, "STATIC_USERS is required when using static identity")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid identity backend '%s': must be one of %v", c.IdentityBackend, validIdentities))
	}

	if c.SyncDebounce < 10*time.Millisecond || c.SyncDebounce > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid sync debounce %v: must be between 10ms and 1m", c.SyncDebounce))
	}
	if c.LoadMaxAttempts < 1 || c.LoadMaxAttempts > 10 {
		errors = append(errors, fmt.Sprintf("invalid load max attempts %d: must be between 1 and 10", c.LoadMaxAttempts))
	}
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	if c.NoticeInterval <= 0 {
		errors = append(errors, fmt.Sprintf("invalid notice sweep interval %v: must be positive", c.NoticeInterval))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// SheetsEnabled reports whether a spreadsheet export target is configured.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// AMQPEnabled reports whether sync notifications are published.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
