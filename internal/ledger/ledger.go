// Package ledger maps transactions and user settings onto table rows and
// answers the aggregate questions the bot asks of them.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/finance-bot/internal/logger"
	"github.com/dvloznov/finance-bot/internal/table"
)

// Table names.
const (
	TransactionsTable = "Transactions"
	BudgetsTable      = "Budgets"
	TargetsTable      = "Targets"
	GoalsTable        = "Goals"
	RecurringTable    = "Recurring"
)

var tableOrder = []string{TransactionsTable, BudgetsTable, TargetsTable, GoalsTable, RecurringTable}

var headers = map[string][]string{
	TransactionsTable: {"timestamp", "sender", "type", "category", "amount", "note", "message_id"},
	BudgetsTable:      {"timestamp", "sender", "category", "amount"},
	TargetsTable:      {"timestamp", "sender", "period", "amount"},
	GoalsTable:        {"timestamp", "sender", "category", "target_amount"},
	RecurringTable:    {"timestamp", "sender", "category", "amount", "frequency", "last_run", "note"},
}

// legacyTimeLayout is how older sheets stored timestamps, in local time.
const legacyTimeLayout = "2006-01-02 15:04:05"

// ErrStaleRow is returned when a row moved between read and delete.
var ErrStaleRow = errors.New("row changed since it was read")

// Ledger reads and writes finance records through a table backend.
type Ledger struct {
	backend table.Backend
	loc     *time.Location
}

// New creates a ledger. Day and week boundaries are computed in loc.
func New(backend table.Backend, loc *time.Location) *Ledger {
	if loc == nil {
		loc = time.UTC
	}
	return &Ledger{backend: backend, loc: loc}
}

// Location returns the zone used for calendar boundaries.
func (l *Ledger) Location() *time.Location {
	return l.loc
}

// Init creates the tables that are missing.
func (l *Ledger) Init(ctx context.Context) error {
	for _, name := range tableOrder {
		if err := l.backend.EnsureTable(ctx, name, headers[name]); err != nil {
			return fmt.Errorf("Init: %s: %w", name, err)
		}
	}
	return nil
}

// Header returns the column names of a table.
func Header(name string) []string {
	return append([]string(nil), headers[name]...)
}

// readTable reads rows and decodes them, skipping and logging rows that do not decode.
func readTable[T any](ctx context.Context, l *Ledger, name string, decode func(table.Row) (T, error)) ([]T, []int, error) {
	rows, err := l.backend.ReadRows(ctx, name)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", name, err)
	}

	log := logger.FromContext(ctx)
	out := make([]T, 0, len(rows))
	index := make([]int, 0, len(rows))
	for i, row := range rows {
		v, err := decode(row)
		if err != nil {
			log.Warn().Err(err).Str("table", name).Int("row", i).Msg("Skipping malformed row")
			continue
		}
		out = append(out, v)
		index = append(index, i)
	}
	return out, index, nil
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

func (l *Ledger) parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(legacyTimeLayout, s, l.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %q", s)
	}
	return t, nil
}

var amountSeparators = strings.NewReplacer(",", "", ".", "", " ", "")

func parseAmount(s string) (int64, error) {
	n, err := strconv.ParseInt(amountSeparators.Replace(strings.TrimSpace(s)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad amount %q", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative amount %q", s)
	}
	return n, nil
}

func formatAmount(n int64) string {
	return strconv.FormatInt(n, 10)
}

// StartOfDay truncates t to local midnight.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// StartOfWeek returns Monday 00:00 of t's week.
func StartOfWeek(t time.Time, loc *time.Location) time.Time {
	day := StartOfDay(t, loc)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
