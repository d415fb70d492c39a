package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-bot/internal/domain"
	"github.com/dvloznov/finance-bot/internal/jobs"
	"github.com/dvloznov/finance-bot/internal/jobs/inmemory"
	"github.com/dvloznov/finance-bot/internal/ledger"
	"github.com/dvloznov/finance-bot/internal/report"
	"github.com/dvloznov/finance-bot/internal/table"
)

// Sunday 2026-03-08 21:00 UTC.
var now = time.Date(2026, 3, 8, 21, 0, 0, 0, time.UTC)

type fakeSender struct {
	mu   sync.Mutex
	fail map[string]bool
	sent map[string][]string
}

func (f *fakeSender) Send(ctx context.Context, to, text string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[to] {
		return false
	}
	if f.sent == nil {
		f.sent = make(map[string][]string)
	}
	f.sent[to] = append(f.sent[to], text)
	return true
}

type fixture struct {
	sched  *Scheduler
	ledger *ledger.Ledger
	sender *fakeSender
	runs   *inmemory.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	l := ledger.New(table.NewMemory(), time.UTC)
	require.NoError(t, l.Init(context.Background()))

	f := &fixture{ledger: l, sender: &fakeSender{fail: map[string]bool{}}, runs: inmemory.NewStore(0)}
	s, err := New(Config{}, l, report.NewDigest(l), f.sender, f.runs,
		WithClock(func() time.Time { return now }),
		WithLogger(zerolog.Nop()),
	)
	require.NoError(t, err)
	f.sched = s
	return f
}

func (f *fixture) add(t *testing.T, tx domain.Transaction) {
	t.Helper()
	require.NoError(t, f.ledger.AppendTransaction(context.Background(), tx))
}

func TestNew_InvalidSpec(t *testing.T) {
	l := ledger.New(table.NewMemory(), time.UTC)
	_, err := New(Config{DailyReportSpec: "every day"}, l, report.NewDigest(l), &fakeSender{}, nil, WithLogger(zerolog.Nop()))
	assert.ErrorContains(t, err, "daily report spec")
}

func TestRunDailyReport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.add(t, domain.Transaction{Timestamp: now.Add(-time.Hour), Sender: "6281111", Type: domain.TxExpense, Category: "makan", Amount: 25000, Note: "makan 25000", MessageID: "m1"})
	f.add(t, domain.Transaction{Timestamp: now.AddDate(0, 0, -2), Sender: "6282222", Type: domain.TxExpense, Category: "makan", Amount: 10000, Note: "kopi 10000", MessageID: "m2"})
	f.add(t, domain.Transaction{Timestamp: now.Add(-2 * time.Hour), Sender: "6283333", Type: domain.TxIncome, Category: "income", Amount: 500000, Note: "gaji 500000", MessageID: "m3"})
	f.sender.fail["6283333"] = true

	run, err := f.sched.RunDailyReport(ctx)
	require.NoError(t, err)

	assert.Equal(t, jobs.JobStatusCompleted, run.Status)
	assert.Equal(t, 1, run.Processed)
	assert.Equal(t, 1, run.Skipped)
	assert.Equal(t, 1, run.Failed)
	require.Len(t, f.sender.sent["6281111"], 1)
	assert.Contains(t, f.sender.sent["6281111"][0], "LAPORAN HARIAN 08/03/2026")
	assert.Empty(t, f.sender.sent["6282222"])

	stored, err := f.runs.GetRun(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusCompleted, stored.Status)
	require.NotNil(t, stored.CompletedAt)
}

func TestRunRecurring(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	rules := []domain.RecurringRule{
		// Created last week: due this week.
		{Timestamp: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), Sender: "6281111", Category: "bensin", Amount: 100000, Frequency: domain.FrequencyWeekly, Note: "Auto weekly"},
		// Created today: not due until tomorrow.
		{Timestamp: now.Add(-time.Hour), Sender: "6281111", Category: "kopi", Amount: 20000, Frequency: domain.FrequencyDaily, Note: "Auto daily"},
		// Created last month: due this month.
		{Timestamp: time.Date(2026, 2, 15, 9, 0, 0, 0, time.UTC), Sender: "6282222", Category: "gaji", Amount: 8000000, Frequency: domain.FrequencyMonthly, Note: "Auto monthly"},
	}
	for _, r := range rules {
		require.NoError(t, f.ledger.AddRecurring(ctx, r))
	}

	run, err := f.sched.RunRecurring(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, run.Processed)
	assert.Equal(t, 1, run.Skipped)

	txs, err := f.ledger.Transactions(ctx, "6281111", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, domain.Transaction{
		Timestamp: now, Sender: "6281111", Type: domain.TxExpense, Category: "bensin",
		Amount: 100000, Note: "Auto weekly", MessageID: rules[0].MessageID("2026-W10"),
	}, txs[0])

	salary, err := f.ledger.Transactions(ctx, "6282222", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, salary, 1)
	assert.Equal(t, domain.TxIncome, salary[0].Type)

	assert.Equal(t, []string{"🔄 Recurring bensin Rp 100,000 (weekly) dicatat"}, f.sender.sent["6281111"])

	// A second run in the same period records nothing new.
	again, err := f.sched.RunRecurring(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Processed)
	assert.Equal(t, 3, again.Skipped)

	for _, sender := range []string{"6281111", "6282222"} {
		txs, err := f.ledger.Transactions(ctx, sender, time.Time{}, time.Time{})
		require.NoError(t, err)
		assert.Len(t, txs, 1, sender)
	}

	listed, err := f.ledger.RecurringRules(ctx, "6281111")
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.True(t, listed[0].LastRun.Equal(now))
}

func TestPeriodKey(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	ts := time.Date(2026, 12, 31, 20, 0, 0, 0, time.UTC) // 2027-01-01 03:00 WIB

	tests := []struct {
		freq domain.Frequency
		loc  *time.Location
		want string
	}{
		{domain.FrequencyDaily, time.UTC, "2026-12-31"},
		{domain.FrequencyDaily, jakarta, "2027-01-01"},
		{domain.FrequencyWeekly, time.UTC, "2026-W53"},
		{domain.FrequencyMonthly, jakarta, "2027-01"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PeriodKey(tt.freq, ts, tt.loc), "%s %s", tt.freq, tt.loc)
	}
}

func TestStartStop(t *testing.T) {
	f := newFixture(t)
	f.sched.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	f.sched.Stop(ctx)
	assert.NoError(t, ctx.Err())
}
