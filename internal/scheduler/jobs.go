package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/finance-bot/internal/domain"
	"github.com/dvloznov/finance-bot/internal/jobs"
	"github.com/dvloznov/finance-bot/internal/logger"
)

// RunDailyReport sends today's digest to every known sender, one at a time.
// A failure for one sender is counted and the loop moves on.
func (s *Scheduler) RunDailyReport(ctx context.Context) (*jobs.Run, error) {
	run := s.begin(ctx, jobs.JobTypeDailyReport)
	log := logger.FromContext(ctx).With().Str("run_id", run.RunID).Logger()
	now := s.now()

	senders, err := s.store.Senders(ctx)
	if err != nil {
		err = fmt.Errorf("RunDailyReport: listing senders: %w", err)
		s.finish(ctx, run, err)
		return run, err
	}

	for _, sender := range senders {
		if ctx.Err() != nil {
			break
		}
		text, err := s.digest.Daily(ctx, sender, now)
		if err != nil {
			log.Error().Err(err).Str("sender", sender).Msg("Failed to build daily report")
			run.Failed++
			continue
		}
		if text == "" {
			run.Skipped++
			continue
		}
		if !s.sender.Send(ctx, sender, text) {
			run.Failed++
			continue
		}
		run.Processed++
	}

	s.finish(ctx, run, ctx.Err())
	return run, ctx.Err()
}

// RunRecurring records each rule's transaction for the current period once.
// The creation period is skipped because the user set the rule up then.
func (s *Scheduler) RunRecurring(ctx context.Context) (*jobs.Run, error) {
	run := s.begin(ctx, jobs.JobTypeRecurring)
	log := logger.FromContext(ctx).With().Str("run_id", run.RunID).Logger()
	now := s.now()
	loc := s.store.Location()

	rules, err := s.store.RecurringRules(ctx, "")
	if err != nil {
		err = fmt.Errorf("RunRecurring: loading rules: %w", err)
		s.finish(ctx, run, err)
		return run, err
	}

	for _, rule := range rules {
		if ctx.Err() != nil {
			break
		}
		rlog := log.With().Str("rule", rule.Key()).Logger()

		key := PeriodKey(rule.Frequency, now, loc)
		if key == PeriodKey(rule.Frequency, rule.Timestamp, loc) {
			run.Skipped++
			continue
		}

		id := rule.MessageID(key)
		exists, err := s.store.HasMessageID(ctx, id)
		if err != nil {
			rlog.Error().Err(err).Msg("Failed to check recurring transaction")
			run.Failed++
			continue
		}
		if exists {
			run.Skipped++
			continue
		}

		typ, _ := s.classifier.Classify(strings.ToLower(rule.Category))
		tx := domain.Transaction{
			Timestamp: now,
			Sender:    rule.Sender,
			Type:      typ,
			Category:  rule.Category,
			Amount:    rule.Amount,
			Note:      rule.Note,
			MessageID: id,
		}
		if err := s.store.AppendTransaction(ctx, tx); err != nil {
			rlog.Error().Err(err).Msg("Failed to record recurring transaction")
			run.Failed++
			continue
		}
		rlog.Info().Str("period", key).Int64("amount", rule.Amount).Msg("Recurring transaction recorded")
		run.Processed++

		s.sender.Send(ctx, rule.Sender, fmt.Sprintf("🔄 Recurring %s %s (%s) dicatat", rule.Category, domain.FormatRupiah(rule.Amount), rule.Frequency))
	}

	s.finish(ctx, run, ctx.Err())
	return run, ctx.Err()
}

// PeriodKey names the period containing t: a date for daily rules, an ISO
// week for weekly rules and a month for monthly rules.
func PeriodKey(f domain.Frequency, t time.Time, loc *time.Location) string {
	t = t.In(loc)
	switch f {
	case domain.FrequencyDaily:
		return t.Format("2006-01-02")
	case domain.FrequencyWeekly:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	default:
		return t.Format("2006-01")
	}
}
