package domain

import (
	"fmt"
	"time"
)

// Period is the window a spending target applies to.
type Period string

const (
	PeriodDaily  Period = "daily"
	PeriodWeekly Period = "weekly"
)

// Frequency is how often a recurring rule materializes.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// ParsePeriod validates a user supplied period name.
func ParsePeriod(s string) (Period, bool) {
	switch p := Period(s); p {
	case PeriodDaily, PeriodWeekly:
		return p, true
	}
	return "", false
}

// ParseFrequency validates a user supplied frequency name.
func ParseFrequency(s string) (Frequency, bool) {
	switch f := Frequency(s); f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return f, true
	}
	return "", false
}

// Budget is a per-category spending ceiling.
type Budget struct {
	Timestamp time.Time
	Sender    string
	Category  string
	Amount    int64
}

// Target is an aggregate spending ceiling for a period.
type Target struct {
	Timestamp time.Time
	Sender    string
	Period    Period
	Amount    int64
}

// Goal is a savings goal.
type Goal struct {
	Timestamp    time.Time
	Sender       string
	Category     string
	TargetAmount int64
}

// GoalProgress is a goal together with how much has been saved toward it.
type GoalProgress struct {
	Goal    Goal
	Saved   int64
	Percent int
}

// RecurringRule is a template transaction that repeats on a schedule.
type RecurringRule struct {
	Timestamp time.Time
	Sender    string
	Category  string
	Amount    int64
	Frequency Frequency
	LastRun   time.Time
	Note      string
}

// BudgetStatus is the outcome of checking an expense against a budget.
type BudgetStatus struct {
	Category string
	Budget   int64
	Spent    int64
	OverBy   int64
	Exceeded bool
}

// TargetStatus is the outcome of checking spending against a target.
type TargetStatus struct {
	Period        Period
	Target        int64
	Spent         int64
	OverBy        int64
	Remaining     int64
	Exceeded      bool
	DaysRemaining int
}

// Key identifies the rule across restarts. It prefixes the message ids of
// the transactions the rule produces.
func (r RecurringRule) Key() string {
	return fmt.Sprintf("recurring:%s:%d", r.Sender, r.Timestamp.Unix())
}

// MessageID is the deterministic id of the rule's transaction for a period.
func (r RecurringRule) MessageID(periodKey string) string {
	return r.Key() + ":" + periodKey
}
