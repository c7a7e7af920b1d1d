package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	// Asia/Jakarta must resolve on hosts without a zoneinfo database.
	_ "time/tzdata"
)

const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

type Config struct {
	// Telegram
	BotToken           string
	TelegramMode       string
	TelegramWebhookURL    string
	TelegramWebhookSecret string
	TelegramDebug         bool
	AllowedChatIDs        string

	// HTTP Server
	Port string

	// Backend selection
	DataBackend string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleCredentialsBase64  string

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Worker
	SyncBatchSize int
	SyncInterval  time.Duration

	// Parsing and reporting
	Timezone             string
	CategoryKeywordsFile string

	LogLevel string
}

func Load() *Config {
	return &Config{
		BotToken:           getEnv("BOT_TOKEN", ""),
		TelegramMode:       strings.ToLower(getEnv("TELEGRAM_MODE", ModePolling)),
		TelegramWebhookURL:    getEnv("TELEGRAM_WEBHOOK_URL", ""),
		TelegramWebhookSecret: getEnv("TELEGRAM_WEBHOOK_SECRET", ""),
		TelegramDebug:         getEnvBool("TELEGRAM_DEBUG", false),
		AllowedChatIDs:        getEnv("ALLOWED_CHAT_IDS", ""),

		Port:        getEnv("PORT", "8080"),
		DataBackend: getEnv("DATA_BACKEND", "sheets"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Sheet1"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),
		GoogleCredentialsBase64:  getEnv("GOOGLE_CREDENTIALS_BASE64", ""),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/moneytracker.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "moneytracker"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "sync_transactions"),

		SyncBatchSize: getEnvInt("SYNC_BATCH_SIZE", 10),
		SyncInterval:  getEnvDuration("SYNC_INTERVAL", 30*time.Second),

		Timezone:             getEnv("TIMEZONE", "Asia/Jakarta"),
		CategoryKeywordsFile: getEnv("CATEGORY_KEYWORDS_FILE", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks the settings shared by every binary.
func (c *Config) Validate() error {
	return joinErrors(c.problems())
}

func (c *Config) problems() []string {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sheets", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		errors = append(errors, c.validateSQLite()...)
	}
	if c.DataBackend == "sheets" {
		errors = append(errors, c.validateSheets()...)
	}
	errors = append(errors, c.validateAMQP()...)

	if c.SyncBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if c.CategoryKeywordsFile != "" {
		if _, err := os.Stat(c.CategoryKeywordsFile); err != nil {
			errors = append(errors, fmt.Sprintf("category keywords file not readable: %s", c.CategoryKeywordsFile))
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	return errors
}

// ValidateBot adds the Telegram requirements to Validate.
func (c *Config) ValidateBot() error {
	errors := c.problems()

	if strings.TrimSpace(c.BotToken) == "" {
		errors = append(errors, "BOT_TOKEN is required")
	}
	switch c.TelegramMode {
	case ModePolling:
	case ModeWebhook:
		if c.TelegramWebhookURL == "" {
			errors = append(errors, "TELEGRAM_WEBHOOK_URL is required when TELEGRAM_MODE is webhook")
		} else if u, err := url.Parse(c.TelegramWebhookURL); err != nil || u.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid TELEGRAM_WEBHOOK_URL '%s': must be an https URL", c.TelegramWebhookURL))
		}
		if c.TelegramWebhookSecret == "" {
			errors = append(errors, "TELEGRAM_WEBHOOK_SECRET is required when TELEGRAM_MODE is webhook")
		} else if !validSecretToken(c.TelegramWebhookSecret) {
			errors = append(errors, "invalid TELEGRAM_WEBHOOK_SECRET: must be 1-256 characters of A-Z, a-z, 0-9, _ or -")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid telegram mode '%s': must be polling or webhook", c.TelegramMode))
	}
	if _, err := c.ChatAllowList(); err != nil {
		errors = append(errors, err.Error())
	}

	return joinErrors(errors)
}

// validSecretToken reports whether s is accepted by setWebhook's
// secret_token parameter.
func validSecretToken(s string) bool {
	if len(s) > 256 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return s != ""
}

// ValidateWorker checks the sync worker needs: a SQLite source and a
// Google Sheets destination.
func (c *Config) ValidateWorker() error {
	errors := c.problems()
	if c.DataBackend != "sqlite" {
		errors = append(errors, c.validateSQLite()...)
	}
	if c.DataBackend != "sheets" {
		errors = append(errors, c.validateSheets()...)
	}
	return joinErrors(errors)
}

// Location returns the configured time zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ChatAllowList parses ALLOWED_CHAT_IDS. An empty list allows every chat.
func (c *Config) ChatAllowList() ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(c.AllowedChatIDs, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chat id '%s' in ALLOWED_CHAT_IDS", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *Config) validateSQLite() []string {
	if c.SQLiteDBPath == "" {
		return []string{"SQLite database path cannot be empty when using sqlite backend"}
	}
	dir := filepath.Dir(c.SQLiteDBPath)
	if dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return []string{fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err)}
			}
		}
	}
	return nil
}

func (c *Config) validateSheets() []string {
	var errors []string
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
	}
	if c.GoogleSheetName == "" {
		errors = append(errors, "Google Sheet name is required when using sheets backend")
	}
	hasJSON := c.GoogleServiceAccountJSON != ""
	hasBase64 := c.GoogleCredentialsBase64 != ""
	hasFile := c.GoogleServiceAccountFile != ""
	if !hasJSON && !hasBase64 && !hasFile {
		errors = append(errors, "one of GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_CREDENTIALS_BASE64 or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheets backend")
	}
	if hasFile && !hasJSON && !hasBase64 {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}
	return errors
}

func (c *Config) validateAMQP() []string {
	if c.AMQPURL == "" {
		return nil
	}
	var errors []string
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
	return errors
}

func joinErrors(errors []string) error {
	if len(errors) == 0 {
		return nil
	}
	return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
