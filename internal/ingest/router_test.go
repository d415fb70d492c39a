package ingest

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-bot/internal/commands"
	"github.com/dvloznov/finance-bot/internal/domain"
	"github.com/dvloznov/finance-bot/internal/gate"
	"github.com/dvloznov/finance-bot/internal/ledger"
	"github.com/dvloznov/finance-bot/internal/logger"
	"github.com/dvloznov/finance-bot/internal/parser"
	"github.com/dvloznov/finance-bot/internal/table"
	"github.com/dvloznov/finance-bot/internal/whatsapp"
)

const alice = "6281111"

var now = time.Date(2026, 3, 8, 14, 0, 0, 0, time.UTC)

type sent struct {
	to, text string
}

type fakeSender struct {
	mu   sync.Mutex
	msgs []sent
}

func (f *fakeSender) Send(ctx context.Context, to, text string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, sent{to, text})
	return true
}

func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.msgs))
	for i, m := range f.msgs {
		out[i] = m.text
	}
	return out
}

type fakeMirror struct {
	txs []domain.Transaction
	err error
}

func (f *fakeMirror) MirrorTransaction(ctx context.Context, tx domain.Transaction) error {
	f.txs = append(f.txs, tx)
	return f.err
}

// failingStore wraps a ledger and fails selected calls.
type failingStore struct {
	Store
	appendErr error
	checkErr  error
}

func (f *failingStore) AppendTransaction(ctx context.Context, tx domain.Transaction) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	return f.Store.AppendTransaction(ctx, tx)
}

func (f *failingStore) CheckBudget(ctx context.Context, sender, category string, amount int64, excludeMessageID string, now time.Time) (domain.BudgetStatus, bool, error) {
	if f.checkErr != nil {
		return domain.BudgetStatus{}, false, f.checkErr
	}
	return f.Store.CheckBudget(ctx, sender, category, amount, excludeMessageID, now)
}

type panicCommands struct{}

func (panicCommands) Dispatch(ctx context.Context, sender, text string, now time.Time) (string, bool, error) {
	panic("boom")
}

type fixture struct {
	router *Router
	ledger *ledger.Ledger
	sender *fakeSender
	mirror *fakeMirror
	logs   *bytes.Buffer
}

func newFixture(t *testing.T, wrap func(Store) Store) *fixture {
	t.Helper()
	l := ledger.New(table.NewMemory(), time.UTC)
	require.NoError(t, l.Init(context.Background()))

	var store Store = l
	if wrap != nil {
		store = wrap(l)
	}
	f := &fixture{ledger: l, sender: &fakeSender{}, mirror: &fakeMirror{}, logs: &bytes.Buffer{}}
	f.router = NewRouter(
		gate.New(10*time.Second, 2*time.Second),
		commands.New(l, nil, "http://localhost:8080"),
		parser.New(nil),
		store,
		f.sender,
		WithMirror(f.mirror),
		WithLogger(logger.NewWithWriter(f.logs)),
	)
	return f
}

func (f *fixture) handle(id, text string, at time.Time) Outcome {
	return f.router.HandleInbound(context.Background(), whatsapp.Inbound{Sender: alice, MessageID: id, Text: text}, at)
}

func (f *fixture) stored(t *testing.T) []domain.Transaction {
	t.Helper()
	txs, err := f.ledger.Transactions(context.Background(), alice, time.Time{}, time.Time{})
	require.NoError(t, err)
	return txs
}

func TestHandleInbound_RecordsTransaction(t *testing.T) {
	f := newFixture(t, nil)

	assert.Equal(t, OutcomeRecorded, f.handle("wamid.1", "Makan siang 25000", now))

	txs := f.stored(t)
	require.Len(t, txs, 1)
	assert.Equal(t, domain.Transaction{
		Timestamp: now, Sender: alice, Type: domain.TxExpense, Category: "makan",
		Amount: 25000, Note: "Makan siang 25000", MessageID: "wamid.1",
	}, txs[0])
	assert.Equal(t, []string{"✅ makan 25000 dicatat"}, f.sender.texts())
	assert.Len(t, f.mirror.txs, 1)
}

func TestHandleInbound_DuplicateWebhook(t *testing.T) {
	f := newFixture(t, nil)

	assert.Equal(t, OutcomeRecorded, f.handle("wamid.1", "makan 25000", now))
	assert.Equal(t, OutcomeDuplicate, f.handle("wamid.1", "makan 25000", now.Add(500*time.Millisecond)))

	assert.Len(t, f.stored(t), 1)
	assert.Len(t, f.sender.texts(), 1)
}

func TestHandleInbound_RedeliveryAfterWindow(t *testing.T) {
	f := newFixture(t, nil)

	assert.Equal(t, OutcomeRecorded, f.handle("wamid.1", "makan 25000", now))
	// Past the dedup window the store still knows the id.
	assert.Equal(t, OutcomeRecorded, f.handle("wamid.1", "makan 25000", now.Add(30*time.Second)))

	assert.Len(t, f.stored(t), 1)
	assert.Len(t, f.mirror.txs, 1)
	assert.Equal(t, []string{"✅ makan 25000 dicatat", "✅ makan 25000 dicatat"}, f.sender.texts())
}

func TestHandleInbound_RateLimited(t *testing.T) {
	f := newFixture(t, nil)

	assert.Equal(t, OutcomeRecorded, f.handle("wamid.1", "makan 25000", now))
	assert.Equal(t, OutcomeRateLimited, f.handle("wamid.2", "kopi 18000", now.Add(time.Second)))
	assert.Equal(t, OutcomeRecorded, f.handle("wamid.3", "kopi 18000", now.Add(3*time.Second)))

	assert.Len(t, f.stored(t), 2)
	assert.Len(t, f.sender.texts(), 2)
}

func TestHandleInbound_Command(t *testing.T) {
	f := newFixture(t, nil)

	assert.Equal(t, OutcomeCommand, f.handle("wamid.1", "/budgets", now))
	assert.Equal(t, []string{"📋 Belum ada budget. Gunakan /setbudget"}, f.sender.texts())
	assert.Empty(t, f.stored(t))
}

func TestHandleInbound_ParseRejected(t *testing.T) {
	f := newFixture(t, nil)

	assert.Equal(t, OutcomeParseRejected, f.handle("wamid.1", "halo apa kabar", now))
	assert.Equal(t, []string{MsgParseRejected}, f.sender.texts())
	assert.Empty(t, f.stored(t))
}

func TestHandleInbound_BudgetAlert(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	require.NoError(t, f.ledger.SetBudget(ctx, domain.Budget{Timestamp: now.Add(-time.Hour), Sender: alice, Category: "makan", Amount: 500000}))
	require.NoError(t, f.ledger.AppendTransaction(ctx, domain.Transaction{
		Timestamp: now.Add(-time.Hour), Sender: alice, Type: domain.TxExpense,
		Category: "makan", Amount: 300000, Note: "makan 300000", MessageID: "wamid.0",
	}))

	assert.Equal(t, OutcomeRecorded, f.handle("wamid.1", "makan 250000", now))
	assert.Equal(t, []string{
		"✅ makan 250000 dicatat",
		"⚠️ BUDGET ALERT\nKategori: makan\nBudget: Rp 500,000\nSpent: Rp 550,000\nOver: Rp 50,000",
	}, f.sender.texts())
}

func TestHandleInbound_BudgetAlertWithoutMessageID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	require.NoError(t, f.ledger.SetBudget(ctx, domain.Budget{Timestamp: now.Add(-time.Hour), Sender: alice, Category: "makan", Amount: 500000}))

	assert.Equal(t, OutcomeRecorded, f.handle("wamid.1", "makan 300000", now))
	assert.Equal(t, OutcomeRecorded, f.handle("wamid.2", "makan 250000", now.Add(5*time.Second)))
	assert.Equal(t, OutcomeRecorded, f.handle("", "makan 1000", now.Add(10*time.Second)))

	require.Len(t, f.stored(t), 3)
	texts := f.sender.texts()
	assert.Equal(t, "✅ makan 1000 dicatat", texts[len(texts)-2])
	assert.Equal(t,
		"⚠️ BUDGET ALERT\nKategori: makan\nBudget: Rp 500,000\nSpent: Rp 551,000\nOver: Rp 51,000",
		texts[len(texts)-1])
}

func TestHandleInbound_DailyTargetAlert(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	require.NoError(t, f.ledger.SetTarget(ctx, domain.Target{Timestamp: now.Add(-time.Hour), Sender: alice, Period: domain.PeriodDaily, Amount: 100000}))

	assert.Equal(t, OutcomeRecorded, f.handle("wamid.1", "belanja 120000", now))
	assert.Equal(t, []string{
		"✅ belanja 120000 dicatat",
		"⚠️ DAILY TARGET EXCEEDED\nTarget: Rp 100,000\nSpent: Rp 120,000\nOver: Rp 20,000",
	}, f.sender.texts())

	// Income never triggers alerts.
	assert.Equal(t, OutcomeRecorded, f.handle("wamid.2", "gaji 10000000", now.Add(5*time.Second)))
	assert.Len(t, f.sender.texts(), 3)
}

func TestHandleInbound_PersistenceFailureStillConfirms(t *testing.T) {
	f := newFixture(t, func(s Store) Store {
		return &failingStore{Store: s, appendErr: errors.New("sheet unavailable")}
	})

	assert.Equal(t, OutcomeRecorded, f.handle("wamid.1", "makan 25000", now))
	assert.Equal(t, []string{"✅ makan 25000 dicatat"}, f.sender.texts())
	assert.Empty(t, f.stored(t))
	assert.Empty(t, f.mirror.txs)
	assert.Contains(t, f.logs.String(), "sheet unavailable")
}

func TestHandleInbound_AlertFailureSwallowed(t *testing.T) {
	f := newFixture(t, func(s Store) Store {
		return &failingStore{Store: s, checkErr: errors.New("read failed")}
	})

	assert.Equal(t, OutcomeRecorded, f.handle("wamid.1", "makan 25000", now))
	assert.Equal(t, []string{"✅ makan 25000 dicatat"}, f.sender.texts())
	assert.Contains(t, f.logs.String(), "Budget check failed")
}

func TestHandleInbound_MirrorFailureLogged(t *testing.T) {
	f := newFixture(t, nil)
	f.mirror.err = errors.New("quota exceeded")

	assert.Equal(t, OutcomeRecorded, f.handle("wamid.1", "makan 25000", now))
	assert.Len(t, f.stored(t), 1)
	assert.Contains(t, f.logs.String(), "quota exceeded")
}

func TestHandleInbound_RecoversPanic(t *testing.T) {
	s := &fakeSender{}
	logs := &bytes.Buffer{}
	r := NewRouter(gate.New(time.Second, 0), panicCommands{}, parser.New(nil), nil, s, WithLogger(logger.NewWithWriter(logs)))

	var out Outcome
	require.NotPanics(t, func() {
		out = r.HandleInbound(context.Background(), whatsapp.Inbound{Sender: alice, MessageID: "wamid.1", Text: "/help"}, now)
	})
	assert.Equal(t, OutcomeFailed, out)
	assert.Equal(t, []string{MsgRecordError}, s.texts())
	assert.Contains(t, logs.String(), "Panic while handling message")
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "duplicate", OutcomeDuplicate.String())
	assert.Equal(t, "rate_limited", OutcomeRateLimited.String())
	assert.Equal(t, "recorded", OutcomeRecorded.String())
	assert.Equal(t, "failed", OutcomeFailed.String())
}
