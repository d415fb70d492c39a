// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendSheets = "sheets"
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
	BackendMySQL  = "mysql"
)

// Config is the full process configuration.
type Config struct {
	Port    string
	BaseURL string

	VerifyToken   string
	WhatsAppToken string
	PhoneNumberID string
	WhatsAppAPI   string
	SendTimeout   time.Duration

	Backend            string
	SheetID            string
	ServiceAccountJSON string
	BoltPath           string
	SQLDSN             string

	BigQueryProject string
	BigQueryDataset string
	ReportBucket    string

	Location        *time.Location
	DailyReportCron string
	RecurringCron   string

	DedupTTL          time.Duration
	RateLimitInterval time.Duration

	CategoriesFile string

	LogLevel  string
	LogFormat string
}

// Load reads .env files (when present) and then the environment.
// Variables already set in the environment win over .env values.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("Load: %s: %w", f, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		Port:    get("PORT", "8080"),
		BaseURL: strings.TrimRight(get("APP_BASE_URL", "http://localhost:8080"), "/"),

		VerifyToken:   get("VERIFY_TOKEN", ""),
		WhatsAppToken: get("WHATSAPP_API_TOKEN", ""),
		PhoneNumberID: get("WHATSAPP_PHONE_NUMBER_ID", ""),
		WhatsAppAPI:   get("WHATSAPP_API_BASE", "https://graph.facebook.com/v18.0"),

		Backend:            strings.ToLower(get("STORE_BACKEND", BackendMemory)),
		SheetID:            get("GOOGLE_SHEET_ID", ""),
		ServiceAccountJSON: get("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		BoltPath:           get("BOLT_PATH", "finance.db"),
		SQLDSN:             get("SQL_DSN", ""),

		BigQueryProject: get("BIGQUERY_PROJECT", ""),
		BigQueryDataset: get("BIGQUERY_DATASET", "finance"),
		ReportBucket:    get("GCS_REPORT_BUCKET", ""),

		DailyReportCron: get("DAILY_REPORT_CRON", "0 21 * * *"),
		RecurringCron:   get("RECURRING_CRON", "0 1 * * *"),

		CategoriesFile: get("CATEGORIES_FILE", ""),

		LogLevel:  get("LOG_LEVEL", "info"),
		LogFormat: get("LOG_FORMAT", "console"),
	}

	var err error
	if cfg.Location, err = time.LoadLocation(get("TIMEZONE", "UTC")); err != nil {
		return nil, fmt.Errorf("FromEnv: TIMEZONE: %w", err)
	}

	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"DEDUP_TTL", 10 * time.Second, &cfg.DedupTTL},
		{"RATE_LIMIT_INTERVAL", 2 * time.Second, &cfg.RateLimitInterval},
		{"SEND_TIMEOUT", 10 * time.Second, &cfg.SendTimeout},
	}
	for _, d := range durations {
		*d.dst, err = parseDuration(get(d.key, ""), d.def)
		if err != nil {
			return nil, fmt.Errorf("FromEnv: %s: %w", d.key, err)
		}
	}
	return cfg, nil
}

// parseDuration accepts Go durations and bare seconds.
func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative duration %s", s)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", s)
	}
	return d, nil
}

// Validate checks the settings the server needs. The CLI only needs the
// store settings and calls ValidateStore.
func (c *Config) Validate() error {
	var errs []error
	if c.VerifyToken == "" {
		errs = append(errs, errors.New("VERIFY_TOKEN is required"))
	}
	if c.WhatsAppToken == "" {
		errs = append(errs, errors.New("WHATSAPP_API_TOKEN is required"))
	}
	if c.PhoneNumberID == "" {
		errs = append(errs, errors.New("WHATSAPP_PHONE_NUMBER_ID is required"))
	}
	if err := c.ValidateStore(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ValidateStore checks the backend selection and its settings.
func (c *Config) ValidateStore() error {
	switch c.Backend {
	case BackendMemory, BackendBolt:
		return nil
	case BackendSheets:
		if c.SheetID == "" {
			return errors.New("GOOGLE_SHEET_ID is required for the sheets backend")
		}
	case BackendSQLite, BackendMySQL:
		if c.SQLDSN == "" {
			return fmt.Errorf("SQL_DSN is required for the %s backend", c.Backend)
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Backend)
	}
	return nil
}
