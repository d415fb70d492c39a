// Package commands implements the slash commands users send to the bot.
package commands

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/finance-bot/internal/domain"
	"github.com/dvloznov/finance-bot/internal/ledger"
	"github.com/dvloznov/finance-bot/internal/parser"
)

// Store is the part of the ledger the commands read and write.
type Store interface {
	Location() *time.Location
	LastTransaction(ctx context.Context, sender string) (ledger.Entry, bool, error)
	DeleteTransaction(ctx context.Context, e ledger.Entry) error
	Summarize(ctx context.Context, sender string, from, to time.Time) (domain.Summary, error)
	CategoryBreakdown(ctx context.Context, sender string, from, to time.Time) ([]domain.CategoryTotal, error)
	Search(ctx context.Context, sender, category string, from time.Time, limit int) ([]domain.Transaction, error)
	SetBudget(ctx context.Context, b domain.Budget) error
	Budget(ctx context.Context, sender, category string) (domain.Budget, bool, error)
	Budgets(ctx context.Context, sender string) ([]domain.Budget, error)
	SetTarget(ctx context.Context, t domain.Target) error
	CheckDailyTarget(ctx context.Context, sender string, amount int64, excludeMessageID string, now time.Time) (domain.TargetStatus, bool, error)
	CheckWeeklyTarget(ctx context.Context, sender string, now time.Time) (domain.TargetStatus, bool, error)
	SetGoal(ctx context.Context, g domain.Goal) error
	GoalsProgress(ctx context.Context, sender string) ([]domain.GoalProgress, error)
	AddRecurring(ctx context.Context, r domain.RecurringRule) error
	RecurringRules(ctx context.Context, sender string) ([]domain.RecurringRule, error)
}

// Exporter renders a PDF report of the sender's last days. The command only
// checks that the report builds; the download link does the archiving.
type Exporter interface {
	Render(ctx context.Context, sender string, days int) ([]byte, error)
}

// Request is a parsed command invocation.
type Request struct {
	Sender string
	Name   string
	Args   []string
	Now    time.Time
}

// Handler answers a command. Usage mistakes are replies; an error means the
// command could not be served.
type Handler func(ctx context.Context, req Request) (string, error)

// Dispatcher routes a command name to its handler. Names match exactly.
type Dispatcher struct {
	store    Store
	exporter Exporter
	baseURL  string
	handlers map[string]Handler
}

// New creates a dispatcher with every command registered.
func New(store Store, exporter Exporter, baseURL string) *Dispatcher {
	d := &Dispatcher{
		store:    store,
		exporter: exporter,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
	d.handlers = map[string]Handler{
		"/help":         d.help,
		"/undo":         d.undo,
		"/summary":      d.summary,
		"/weekly":       d.weekly,
		"/monthly":      d.monthly,
		"/setbudget":    d.setBudget,
		"/budget":       d.budget,
		"/budgets":      d.budgets,
		"/target":       d.target,
		"/breakdown":    d.breakdown,
		"/ratio":        d.ratio,
		"/history":      d.history,
		"/setrecurring": d.setRecurring,
		"/recurring":    d.recurring,
		"/export":       d.export,
		"/goal":         d.goal,
		"/goals":        d.goals,
		"/dalert":       d.dailyAlert,
		"/dailyalert":   d.dailyAlert,
		"/walert":       d.weeklyAlert,
		"/weeklyalert":  d.weeklyAlert,
	}
	return d
}

// Names lists the registered command names.
func (d *Dispatcher) Names() []string {
	names := make([]string, 0, len(d.handlers))
	for n := range d.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs the command in text. handled is false when text is not a
// known command, in which case the caller treats it as a transaction.
func (d *Dispatcher) Dispatch(ctx context.Context, sender, text string, now time.Time) (reply string, handled bool, err error) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(text)))
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", false, nil
	}
	h, ok := d.handlers[fields[0]]
	if !ok {
		return "", false, nil
	}

	reply, err = h(ctx, Request{Sender: sender, Name: fields[0], Args: fields[1:], Now: now})
	if err != nil {
		return "", true, fmt.Errorf("Dispatch: %s: %w", fields[0], err)
	}
	return reply, true, nil
}

// parseAmountArg accepts plain digits, grouped digits and the "k" shorthand.
func parseAmountArg(s string) (int64, bool) {
	if s == "" || strings.Trim(s, "0123456789.,k") != "" {
		return 0, false
	}
	n, err := parser.ExtractAmount(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func parseDays(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n > maxDays {
		return 0, false
	}
	return n, true
}

// daysArg returns the first argument as a day count, or def when absent or invalid.
func daysArg(args []string, def int) int {
	if len(args) > 0 {
		if n, ok := parseDays(args[0]); ok {
			return n
		}
	}
	return def
}

const (
	defaultDays  = 30
	maxDays      = 3650
	historyLimit = 20
)
