package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Rhymond/go-money"

	applog "eventledger/internal/log"
	"eventledger/internal/reconcile"
)

// Remote backends
const (
	RemoteNone   = "none"
	RemoteMemory = "memory"
	RemoteS3     = "s3"
	RemoteRedis  = "redis"
)

type Config struct {
	// Local storage
	SQLiteDBPath string

	// Remote ledger store
	RemoteBackend string
	RemoteKey     string

	S3Bucket   string
	S3Region   string
	S3Endpoint string
	S3Prefix   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// AMQP change notifications (optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	DeviceID     string

	// Import dedup policy per collection
	DedupEvents  string
	DedupHeads   string
	DedupEntries string

	// Worker
	PullInterval time.Duration

	// Reports
	Currency                 string
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/eventledger.db"),

		RemoteBackend: strings.ToLower(getEnv("REMOTE_BACKEND", RemoteNone)),
		RemoteKey:     getEnv("REMOTE_KEY", "expense-data"),

		S3Bucket:   getEnv("S3_BUCKET", ""),
		S3Region:   getEnv("S3_REGION", getEnv("AWS_REGION", "us-east-1")),
		S3Endpoint: getEnv("S3_ENDPOINT", ""),
		S3Prefix:   getEnv("S3_PREFIX", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "eventledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_changed"),
		DeviceID:     getEnv("DEVICE_ID", defaultDeviceID()),

		DedupEvents:  getEnv("DEDUP_EVENTS", string(reconcile.ByID)),
		DedupHeads:   getEnv("DEDUP_HEADS", string(reconcile.ByID)),
		DedupEntries: getEnv("DEDUP_ENTRIES", string(reconcile.ByID)),

		PullInterval: getEnvDuration("PULL_INTERVAL", 5*time.Minute),

		Currency:                 strings.ToUpper(getEnv("CURRENCY", "INR")),
		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Budget"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// RemoteEnabled reports whether a remote ledger store is configured.
func (c *Config) RemoteEnabled() bool {
	return c.RemoteBackend != "" && c.RemoteBackend != RemoteNone
}

// DedupPolicy returns the parsed import dedup policy. Call Validate first.
func (c *Config) DedupPolicy() (reconcile.Policy, error) {
	events, err := reconcile.ParseKeyPolicy(c.DedupEvents)
	if err != nil {
		return reconcile.Policy{}, fmt.Errorf("DEDUP_EVENTS: %w", err)
	}
	heads, err := reconcile.ParseKeyPolicy(c.DedupHeads)
	if err != nil {
		return reconcile.Policy{}, fmt.Errorf("DEDUP_HEADS: %w", err)
	}
	entries, err := reconcile.ParseKeyPolicy(c.DedupEntries)
	if err != nil {
		return reconcile.Policy{}, fmt.Errorf("DEDUP_ENTRIES: %w", err)
	}
	return reconcile.Policy{Events: events, Heads: heads, Entries: entries}, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
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

	validBackends := []string{RemoteNone, RemoteMemory, RemoteS3, RemoteRedis}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.RemoteBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid remote backend '%s': must be one of %v", c.RemoteBackend, validBackends))
	}
	if c.RemoteEnabled() && c.RemoteKey == "" {
		errors = append(errors, "remote key cannot be empty when a remote backend is configured")
	}

	switch c.RemoteBackend {
	case RemoteS3:
		if c.S3Bucket == "" {
			errors = append(errors, "S3 bucket is required when using s3 backend")
		}
		if c.S3Region == "" {
			errors = append(errors, "S3 region is required when using s3 backend")
		}
		if c.S3Endpoint != "" {
			if _, err := url.ParseRequestURI(c.S3Endpoint); err != nil {
				errors = append(errors, fmt.Sprintf("invalid S3 endpoint '%s': %v", c.S3Endpoint, err))
			}
		}
	case RemoteRedis:
		if c.RedisAddr == "" {
			errors = append(errors, "Redis address is required when using redis backend")
		}
		if c.RedisDB < 0 {
			errors = append(errors, fmt.Sprintf("invalid Redis DB %d: must not be negative", c.RedisDB))
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
		if !c.RemoteEnabled() {
			errors = append(errors, "AMQP notifications require a remote backend")
		}
	}

	if _, err := c.DedupPolicy(); err != nil {
		errors = append(errors, err.Error())
	}

	if c.PullInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid pull interval %v: must be at least 1 second", c.PullInterval))
	} else if c.PullInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid pull interval %v: must be at most 24 hours", c.PullInterval))
	}

	if money.GetCurrency(c.Currency) == nil {
		errors = append(errors, fmt.Sprintf("unknown currency code '%s'", c.Currency))
	}

	if c.GoogleSpreadsheetID != "" && c.GoogleSheetName == "" {
		errors = append(errors, "Google Sheet name is required when a spreadsheet ID is set")
	}

	if _, err := applog.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func defaultDeviceID() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "unknown-device"
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
