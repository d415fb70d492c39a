package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dvloznov/finance-bot/internal/domain"
	"github.com/dvloznov/finance-bot/internal/table"
)

// Settings tables are append-only; the latest row for a key wins.

func (l *Ledger) decodeBudget(row table.Row) (domain.Budget, error) {
	ts, err := l.parseTime(row.Cell(0))
	if err != nil {
		return domain.Budget{}, err
	}
	amount, err := parseAmount(row.Cell(3))
	if err != nil {
		return domain.Budget{}, err
	}
	return domain.Budget{Timestamp: ts, Sender: row.Cell(1), Category: strings.ToLower(row.Cell(2)), Amount: amount}, nil
}

// SetBudget appends a budget row.
func (l *Ledger) SetBudget(ctx context.Context, b domain.Budget) error {
	row := table.Row{formatTime(b.Timestamp), b.Sender, strings.ToLower(b.Category), formatAmount(b.Amount)}
	if err := l.backend.AppendRow(ctx, BudgetsTable, row); err != nil {
		return fmt.Errorf("SetBudget: %w", err)
	}
	return nil
}

// Budgets returns the sender's current budget per category, sorted by category.
func (l *Ledger) Budgets(ctx context.Context, sender string) ([]domain.Budget, error) {
	all, _, err := readTable(ctx, l, BudgetsTable, l.decodeBudget)
	if err != nil {
		return nil, fmt.Errorf("Budgets: %w", err)
	}
	latest := make(map[string]domain.Budget)
	for _, b := range all {
		if b.Sender == sender {
			latest[b.Category] = b
		}
	}
	out := make([]domain.Budget, 0, len(latest))
	for _, b := range latest {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

// Budget returns the sender's current budget for category.
func (l *Ledger) Budget(ctx context.Context, sender, category string) (domain.Budget, bool, error) {
	budgets, err := l.Budgets(ctx, sender)
	if err != nil {
		return domain.Budget{}, false, err
	}
	category = strings.ToLower(category)
	for _, b := range budgets {
		if b.Category == category {
			return b, true, nil
		}
	}
	return domain.Budget{}, false, nil
}

func (l *Ledger) decodeTarget(row table.Row) (domain.Target, error) {
	ts, err := l.parseTime(row.Cell(0))
	if err != nil {
		return domain.Target{}, err
	}
	period, ok := domain.ParsePeriod(strings.ToLower(row.Cell(2)))
	if !ok {
		return domain.Target{}, fmt.Errorf("bad period %q", row.Cell(2))
	}
	amount, err := parseAmount(row.Cell(3))
	if err != nil {
		return domain.Target{}, err
	}
	return domain.Target{Timestamp: ts, Sender: row.Cell(1), Period: period, Amount: amount}, nil
}

// SetTarget appends a spending target row.
func (l *Ledger) SetTarget(ctx context.Context, t domain.Target) error {
	row := table.Row{formatTime(t.Timestamp), t.Sender, string(t.Period), formatAmount(t.Amount)}
	if err := l.backend.AppendRow(ctx, TargetsTable, row); err != nil {
		return fmt.Errorf("SetTarget: %w", err)
	}
	return nil
}

// Target returns the sender's current target for period.
func (l *Ledger) Target(ctx context.Context, sender string, period domain.Period) (domain.Target, bool, error) {
	all, _, err := readTable(ctx, l, TargetsTable, l.decodeTarget)
	if err != nil {
		return domain.Target{}, false, fmt.Errorf("Target: %w", err)
	}
	var (
		found  domain.Target
		exists bool
	)
	for _, t := range all {
		if t.Sender == sender && t.Period == period {
			found, exists = t, true
		}
	}
	return found, exists, nil
}

func (l *Ledger) decodeGoal(row table.Row) (domain.Goal, error) {
	ts, err := l.parseTime(row.Cell(0))
	if err != nil {
		return domain.Goal{}, err
	}
	amount, err := parseAmount(row.Cell(3))
	if err != nil {
		return domain.Goal{}, err
	}
	return domain.Goal{Timestamp: ts, Sender: row.Cell(1), Category: strings.ToLower(row.Cell(2)), TargetAmount: amount}, nil
}

// SetGoal appends a goal row.
func (l *Ledger) SetGoal(ctx context.Context, g domain.Goal) error {
	row := table.Row{formatTime(g.Timestamp), g.Sender, strings.ToLower(g.Category), formatAmount(g.TargetAmount)}
	if err := l.backend.AppendRow(ctx, GoalsTable, row); err != nil {
		return fmt.Errorf("SetGoal: %w", err)
	}
	return nil
}

// Goals returns the sender's current goal per category, sorted by category.
func (l *Ledger) Goals(ctx context.Context, sender string) ([]domain.Goal, error) {
	all, _, err := readTable(ctx, l, GoalsTable, l.decodeGoal)
	if err != nil {
		return nil, fmt.Errorf("Goals: %w", err)
	}
	latest := make(map[string]domain.Goal)
	for _, g := range all {
		if g.Sender == sender {
			latest[g.Category] = g
		}
	}
	out := make([]domain.Goal, 0, len(latest))
	for _, g := range latest {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (l *Ledger) decodeRecurring(row table.Row) (domain.RecurringRule, error) {
	ts, err := l.parseTime(row.Cell(0))
	if err != nil {
		return domain.RecurringRule{}, err
	}
	amount, err := parseAmount(row.Cell(3))
	if err != nil {
		return domain.RecurringRule{}, err
	}
	freq, ok := domain.ParseFrequency(strings.ToLower(row.Cell(4)))
	if !ok {
		return domain.RecurringRule{}, fmt.Errorf("bad frequency %q", row.Cell(4))
	}
	lastRun, err := l.parseTime(row.Cell(5))
	if err != nil {
		return domain.RecurringRule{}, err
	}
	return domain.RecurringRule{
		Timestamp: ts,
		Sender:    row.Cell(1),
		Category:  strings.ToLower(row.Cell(2)),
		Amount:    amount,
		Frequency: freq,
		LastRun:   lastRun,
		Note:      row.Cell(6),
	}, nil
}

// AddRecurring appends a recurring rule.
func (l *Ledger) AddRecurring(ctx context.Context, r domain.RecurringRule) error {
	lastRun := ""
	if !r.LastRun.IsZero() {
		lastRun = formatTime(r.LastRun)
	}
	row := table.Row{
		formatTime(r.Timestamp),
		r.Sender,
		strings.ToLower(r.Category),
		formatAmount(r.Amount),
		string(r.Frequency),
		lastRun,
		r.Note,
	}
	if err := l.backend.AppendRow(ctx, RecurringTable, row); err != nil {
		return fmt.Errorf("AddRecurring: %w", err)
	}
	return nil
}

// RecurringRules returns the sender's rules, or every rule when sender is empty.
// LastRun is taken from the newest transaction the rule produced.
func (l *Ledger) RecurringRules(ctx context.Context, sender string) ([]domain.RecurringRule, error) {
	all, _, err := readTable(ctx, l, RecurringTable, l.decodeRecurring)
	if err != nil {
		return nil, fmt.Errorf("RecurringRules: %w", err)
	}

	var out []domain.RecurringRule
	for _, r := range all {
		if sender == "" || r.Sender == sender {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return out, nil
	}

	entries, err := l.entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("RecurringRules: %w", err)
	}
	for i := range out {
		prefix := out[i].Key() + ":"
		for _, e := range entries {
			if strings.HasPrefix(e.Tx.MessageID, prefix) && e.Tx.Timestamp.After(out[i].LastRun) {
				out[i].LastRun = e.Tx.Timestamp
			}
		}
	}
	return out, nil
}
