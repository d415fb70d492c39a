package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(env(nil))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	assert.Equal(t, BackendMemory, cfg.Backend)
	assert.Equal(t, "https://graph.facebook.com/v18.0", cfg.WhatsAppAPI)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, 10*time.Second, cfg.DedupTTL)
	assert.Equal(t, 2*time.Second, cfg.RateLimitInterval)
	assert.Equal(t, 10*time.Second, cfg.SendTimeout)
	assert.Equal(t, "0 21 * * *", cfg.DailyReportCron)
	assert.Equal(t, "0 1 * * *", cfg.RecurringCron)
	assert.Equal(t, "finance", cfg.BigQueryDataset)
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"PORT":                "9090",
		"APP_BASE_URL":        "https://bot.example.com/",
		"STORE_BACKEND":       "SQLite",
		"SQL_DSN":             "file:finance.sqlite",
		"TIMEZONE":            "Asia/Jakarta",
		"DEDUP_TTL":           "30",
		"RATE_LIMIT_INTERVAL": "1500ms",
	}))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "https://bot.example.com", cfg.BaseURL)
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, "Asia/Jakarta", cfg.Location.String())
	assert.Equal(t, 30*time.Second, cfg.DedupTTL)
	assert.Equal(t, 1500*time.Millisecond, cfg.RateLimitInterval)
}

func TestFromEnv_Errors(t *testing.T) {
	tests := map[string]map[string]string{
		"bad timezone": {"TIMEZONE": "Mars/Olympus"},
		"bad duration": {"DEDUP_TTL": "soon"},
		"negative":     {"SEND_TIMEOUT": "-1s"},
	}
	for name, vars := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := FromEnv(env(vars))
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{VerifyToken: "v", WhatsAppToken: "t", PhoneNumberID: "p", Backend: BackendMemory}
	}

	assert.NoError(t, base().Validate())

	c := base()
	c.VerifyToken = ""
	c.WhatsAppToken = ""
	err := c.Validate()
	assert.ErrorContains(t, err, "VERIFY_TOKEN")
	assert.ErrorContains(t, err, "WHATSAPP_API_TOKEN")

	c = base()
	c.Backend = BackendSheets
	assert.ErrorContains(t, c.Validate(), "GOOGLE_SHEET_ID")

	c = base()
	c.Backend = BackendMySQL
	assert.ErrorContains(t, c.Validate(), "SQL_DSN")

	c = base()
	c.Backend = "postgres"
	assert.ErrorContains(t, c.ValidateStore(), "unknown STORE_BACKEND")
}

func TestLoad_DotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("VERIFY_TOKEN=from-file\nPORT=7070\n"), 0o600))

	// Already-set variables are not overridden by the file.
	t.Setenv("PORT", "6060")
	t.Setenv("VERIFY_TOKEN", "")
	require.NoError(t, os.Unsetenv("VERIFY_TOKEN"))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.VerifyToken)
	assert.Equal(t, "6060", cfg.Port)

	_, err = Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}
