package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/finance-bot/internal/domain"
)

// EvaluateBudget checks a new expense against a budget given what was
// already spent in the category today.
func EvaluateBudget(b domain.Budget, spentBefore, amount int64) domain.BudgetStatus {
	total := spentBefore + amount
	st := domain.BudgetStatus{
		Category: b.Category,
		Budget:   b.Amount,
		Spent:    total,
		Exceeded: total > b.Amount,
	}
	if st.Exceeded {
		st.OverBy = total - b.Amount
	}
	return st
}

// EvaluateTarget compares spending with a target.
func EvaluateTarget(t domain.Target, spent int64) domain.TargetStatus {
	st := domain.TargetStatus{
		Period:   t.Period,
		Target:   t.Amount,
		Spent:    spent,
		Exceeded: spent > t.Amount,
	}
	if st.Exceeded {
		st.OverBy = spent - t.Amount
	} else {
		st.Remaining = t.Amount - spent
	}
	return st
}

// expenseSince sums the sender's expenses from from onward, optionally
// restricted to a category and skipping the row with excludeMessageID.
func (l *Ledger) expenseSince(ctx context.Context, sender, category string, from time.Time, excludeMessageID string) (int64, error) {
	txs, err := l.Transactions(ctx, sender, from, time.Time{})
	if err != nil {
		return 0, err
	}
	var total int64
	for _, tx := range txs {
		if tx.Type != domain.TxExpense {
			continue
		}
		if category != "" && !strings.EqualFold(tx.Category, category) {
			continue
		}
		if excludeMessageID != "" && tx.MessageID == excludeMessageID {
			continue
		}
		total += tx.Amount
	}
	return total, nil
}

// CheckBudget evaluates a new expense of amount in category against the
// sender's budget. The row carrying excludeMessageID is left out of today's
// spend so the check gives the same answer before and after the write.
// The bool is false when no budget is set.
func (l *Ledger) CheckBudget(ctx context.Context, sender, category string, amount int64, excludeMessageID string, now time.Time) (domain.BudgetStatus, bool, error) {
	b, ok, err := l.Budget(ctx, sender, category)
	if err != nil {
		return domain.BudgetStatus{}, false, fmt.Errorf("CheckBudget: %w", err)
	}
	if !ok {
		return domain.BudgetStatus{}, false, nil
	}
	spent, err := l.expenseSince(ctx, sender, category, StartOfDay(now, l.loc), excludeMessageID)
	if err != nil {
		return domain.BudgetStatus{}, false, fmt.Errorf("CheckBudget: %w", err)
	}
	return EvaluateBudget(b, spent, amount), true, nil
}

// CheckDailyTarget compares today's spend plus amount with the daily target.
func (l *Ledger) CheckDailyTarget(ctx context.Context, sender string, amount int64, excludeMessageID string, now time.Time) (domain.TargetStatus, bool, error) {
	t, ok, err := l.Target(ctx, sender, domain.PeriodDaily)
	if err != nil {
		return domain.TargetStatus{}, false, fmt.Errorf("CheckDailyTarget: %w", err)
	}
	if !ok {
		return domain.TargetStatus{}, false, nil
	}
	spent, err := l.expenseSince(ctx, sender, "", StartOfDay(now, l.loc), excludeMessageID)
	if err != nil {
		return domain.TargetStatus{}, false, fmt.Errorf("CheckDailyTarget: %w", err)
	}
	return EvaluateTarget(t, spent+amount), true, nil
}

// CheckWeeklyTarget compares spend since Monday with the weekly target.
func (l *Ledger) CheckWeeklyTarget(ctx context.Context, sender string, now time.Time) (domain.TargetStatus, bool, error) {
	t, ok, err := l.Target(ctx, sender, domain.PeriodWeekly)
	if err != nil {
		return domain.TargetStatus{}, false, fmt.Errorf("CheckWeeklyTarget: %w", err)
	}
	if !ok {
		return domain.TargetStatus{}, false, nil
	}
	spent, err := l.expenseSince(ctx, sender, "", StartOfWeek(now, l.loc), "")
	if err != nil {
		return domain.TargetStatus{}, false, fmt.Errorf("CheckWeeklyTarget: %w", err)
	}
	st := EvaluateTarget(t, spent)
	// Days left in the week after today, Sunday being the last.
	st.DaysRemaining = 6 - (int(now.In(l.loc).Weekday())+6)%7
	return st, true, nil
}

// GoalsProgress returns each goal with the amount saved toward it. A goal
// named after a category the sender has used counts that category since the
// goal was set; any other goal counts net savings since it was set.
func (l *Ledger) GoalsProgress(ctx context.Context, sender string) ([]domain.GoalProgress, error) {
	goals, err := l.Goals(ctx, sender)
	if err != nil {
		return nil, fmt.Errorf("GoalsProgress: %w", err)
	}
	if len(goals) == 0 {
		return nil, nil
	}

	txs, err := l.Transactions(ctx, sender, time.Time{}, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("GoalsProgress: %w", err)
	}
	used := make(map[string]bool)
	for _, tx := range txs {
		used[strings.ToLower(tx.Category)] = true
	}

	out := make([]domain.GoalProgress, 0, len(goals))
	for _, g := range goals {
		var saved int64
		if used[g.Category] {
			for _, tx := range txs {
				if strings.EqualFold(tx.Category, g.Category) && !tx.Timestamp.Before(g.Timestamp) {
					saved += tx.Amount
				}
			}
		} else {
			var s domain.Summary
			for _, tx := range txs {
				if !tx.Timestamp.Before(g.Timestamp) {
					s.Add(tx)
				}
			}
			saved = max(s.Net(), 0)
		}
		out = append(out, domain.GoalProgress{
			Goal:    g,
			Saved:   saved,
			Percent: domain.Percent(saved, g.TargetAmount),
		})
	}
	return out, nil
}
