package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	applog "tracker/internal/log"
	"tracker/internal/receipt"
)

const (
	AppName    = "Expense Tracker"
	AppVersion = "1.0.0"

	maxDelay = 10 * time.Second

	// noSources in RECEIPT_SOURCES denies every receipt source.
	noSources = "none"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	ShutdownTimeout    time.Duration

	// Database
	SQLiteDBPath string

	// Display
	DefaultCurrency string
	DefaultLocale   string

	// Simulated backend latency
	ParseDelay time.Duration
	ScanDelay  time.Duration

	// Receipt sources the scanner may read from
	ReceiptSources []string

	LogLevel string

	// AMQP; events are disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Application constants
	AppName     string
	AppVersion  string
	PageSize    int
	MaxPageSize int
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/expenses.db"),

		DefaultCurrency: strings.ToUpper(getEnv("DEFAULT_CURRENCY", "INR")),
		DefaultLocale:   getEnv("DEFAULT_LOCALE", "en"),

		ParseDelay: getEnvDuration("PARSE_DELAY", time.Second),
		ScanDelay:  getEnvDuration("SCAN_DELAY", 1500*time.Millisecond),

		ReceiptSources: getEnvList("RECEIPT_SOURCES", "camera,gallery"),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "expenses"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "expense_events"),

		AppName:     AppName,
		AppVersion:  AppVersion,
		PageSize:    getEnvInt("PAGE_SIZE", 20),
		MaxPageSize: getEnvInt("MAX_PAGE_SIZE", 100),
	}
}

// EventsEnabled reports whether an AMQP broker is configured.
func (c *Config) EventsEnabled() bool {
	return c.AMQPURL != ""
}

// AllowedSources returns the configured receipt sources. Unknown names are
// skipped; Validate reports them.
func (c *Config) AllowedSources() []receipt.Source {
	sources := make([]receipt.Source, 0, len(c.ReceiptSources))
	for _, name := range c.ReceiptSources {
		if src, err := receipt.ParseSource(name); err == nil {
			sources = append(sources, src)
		}
	}
	return sources
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if strings.TrimSpace(c.SQLiteDBPath) == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	}

	if !isCurrencyCode(c.DefaultCurrency) {
		errors = append(errors, fmt.Sprintf("invalid currency '%s': must be a 3-letter ISO 4217 code", c.DefaultCurrency))
	}
	if strings.TrimSpace(c.DefaultLocale) == "" {
		errors = append(errors, "default locale cannot be empty")
	}

	for name, d := range map[string]time.Duration{"parse delay": c.ParseDelay, "scan delay": c.ScanDelay} {
		if d < 0 || d > maxDelay {
			errors = append(errors, fmt.Sprintf("invalid %s %v: must be between 0 and %v", name, d, maxDelay))
		}
	}

	for _, name := range c.ReceiptSources {
		if _, err := receipt.ParseSource(name); err != nil {
			errors = append(errors, fmt.Sprintf("invalid receipt source '%s': must be camera or gallery", name))
		}
	}

	if _, err := applog.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if c.RateLimitPerMinute < 1 || c.RateLimitPerMinute > 10000 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be between 1 and 10000", c.RateLimitPerMinute))
	}
	if c.ShutdownTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid shutdown timeout %v: must be at least 1 second", c.ShutdownTimeout))
	}

	if c.MaxPageSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid max page size %d: must be at least 1", c.MaxPageSize))
	} else if c.PageSize < 1 || c.PageSize > c.MaxPageSize {
		errors = append(errors, fmt.Sprintf("invalid page size %d: must be between 1 and %d", c.PageSize, c.MaxPageSize))
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

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func isCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
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

// getEnvList splits a comma separated value. The single entry "none"
// yields an empty list.
func getEnvList(key, defaultValue string) []string {
	value := getEnv(key, defaultValue)
	if strings.EqualFold(strings.TrimSpace(value), noSources) {
		return []string{}
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
