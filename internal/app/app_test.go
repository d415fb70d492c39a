package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-bot/internal/config"
	"github.com/dvloznov/finance-bot/internal/domain"
	"github.com/dvloznov/finance-bot/internal/infra/boltstore"
	"github.com/dvloznov/finance-bot/internal/table"
)

type captureSender struct {
	mu   sync.Mutex
	msgs []string
}

func (s *captureSender) Send(ctx context.Context, to, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, text)
	return true
}

func testConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	base := map[string]string{
		"VERIFY_TOKEN":             "tok",
		"WHATSAPP_API_TOKEN":       "wa",
		"WHATSAPP_PHONE_NUMBER_ID": "123",
		"TIMEZONE":                 "Asia/Jakarta",
	}
	for k, v := range env {
		base[k] = v
	}
	cfg, err := config.FromEnv(func(k string) string { return base[k] })
	require.NoError(t, err)
	return cfg
}

func TestOpenBackend(t *testing.T) {
	ctx := context.Background()

	b, err := OpenBackend(ctx, testConfig(t, nil))
	require.NoError(t, err)
	assert.IsType(t, &table.Memory{}, b)

	b, err = OpenBackend(ctx, testConfig(t, map[string]string{
		"STORE_BACKEND": "bolt",
		"BOLT_PATH":     filepath.Join(t.TempDir(), "finance.db"),
	}))
	require.NoError(t, err)
	assert.IsType(t, &boltstore.Store{}, b)
	require.NoError(t, b.Close())

	cfg := testConfig(t, nil)
	cfg.Backend = "postgres"
	_, err = OpenBackend(ctx, cfg)
	assert.Error(t, err)
}

func TestLoadParser(t *testing.T) {
	p, err := LoadParser(testConfig(t, nil))
	require.NoError(t, err)
	assert.True(t, p.Classifier().IsCategory("makan"))

	path := filepath.Join(t.TempDir(), "categories.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
income_keywords: [gaji, bonus]
categories:
  - category: kos
    keywords: [kos, sewa]
`), 0o600))

	p, err = LoadParser(testConfig(t, map[string]string{"CATEGORIES_FILE": path}))
	require.NoError(t, err)
	tx, err := p.Parse("bayar kos 1500000")
	require.NoError(t, err)
	assert.Equal(t, "kos", tx.Category)
	assert.Equal(t, domain.TxExpense, tx.Type)

	_, err = LoadParser(testConfig(t, map[string]string{"CATEGORIES_FILE": filepath.Join(t.TempDir(), "missing.yaml")}))
	assert.Error(t, err)
}

func TestNew_EndToEnd(t *testing.T) {
	ctx := context.Background()
	sender := &captureSender{}

	a, err := New(ctx, testConfig(t, nil), zerolog.Nop(), WithSender(sender))
	require.NoError(t, err)
	defer a.Close()

	h := a.Handler()
	body := `{"entry":[{"changes":[{"value":{"messages":[{"from":"6281111","id":"wamid.A","type":"text","text":{"body":"bensin 50000"}}]}}]}]}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	txs, err := a.Ledger.Transactions(ctx, "6281111", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "transport", txs[0].Category)
	assert.Equal(t, []string{"✅ transport 50000 dicatat"}, sender.msgs)

	run, err := a.Scheduler.RunDailyReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, "completed", string(run.Status))
	got, err := a.Runs.GetRun(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, run.RunID, got.RunID)
}

func TestNew_InvalidCategoriesFileClosesBackend(t *testing.T) {
	mem := table.NewMemory()
	cfg := testConfig(t, map[string]string{"CATEGORIES_FILE": filepath.Join(t.TempDir(), "nope.yaml")})

	_, err := New(context.Background(), cfg, zerolog.Nop(), WithBackend(mem), WithSender(&captureSender{}))
	assert.Error(t, err)
}
