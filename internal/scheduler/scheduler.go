// Package scheduler runs the periodic jobs: the daily report and recurring
// transaction materialization.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-bot/internal/domain"
	"github.com/dvloznov/finance-bot/internal/jobs"
	"github.com/dvloznov/finance-bot/internal/logger"
	"github.com/dvloznov/finance-bot/internal/parser"
	"github.com/dvloznov/finance-bot/internal/whatsapp"
)

// Default cron specs.
const (
	DefaultDailyReportSpec = "0 21 * * *"
	DefaultRecurringSpec   = "0 1 * * *"
)

// Store is the ledger surface the jobs use.
type Store interface {
	Location() *time.Location
	Senders(ctx context.Context) ([]string, error)
	RecurringRules(ctx context.Context, sender string) ([]domain.RecurringRule, error)
	HasMessageID(ctx context.Context, messageID string) (bool, error)
	AppendTransaction(ctx context.Context, tx domain.Transaction) error
}

// Digester produces a sender's daily summary text; "" means nothing to send.
type Digester interface {
	Daily(ctx context.Context, sender string, now time.Time) (string, error)
}

// Config holds the cron specs.
type Config struct {
	DailyReportSpec string
	RecurringSpec   string
}

// Scheduler owns the cron runner and the job implementations.
type Scheduler struct {
	cron       *cron.Cron
	store      Store
	digest     Digester
	sender     whatsapp.Sender
	classifier *parser.Classifier
	runs       jobs.RunStore
	now        func() time.Time
	log        zerolog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Scheduler) { s.log = log }
}

// WithClassifier sets the classifier used to type recurring transactions.
func WithClassifier(c *parser.Classifier) Option {
	return func(s *Scheduler) { s.classifier = c }
}

// New creates a scheduler and registers both jobs. Specs use the standard
// five-field cron syntax and are evaluated in the store's time zone.
func New(cfg Config, store Store, digest Digester, sender whatsapp.Sender, runs jobs.RunStore, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		store:      store,
		digest:     digest,
		sender:     sender,
		classifier: parser.DefaultClassifier(),
		runs:       runs,
		now:        time.Now,
		log:        logger.New(),
	}
	for _, opt := range opts {
		opt(s)
	}

	cl := cronLogger{s.log}
	s.cron = cron.New(
		cron.WithLocation(store.Location()),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	if cfg.DailyReportSpec == "" {
		cfg.DailyReportSpec = DefaultDailyReportSpec
	}
	if cfg.RecurringSpec == "" {
		cfg.RecurringSpec = DefaultRecurringSpec
	}
	if _, err := s.cron.AddFunc(cfg.DailyReportSpec, s.job(s.RunDailyReport)); err != nil {
		return nil, fmt.Errorf("New: daily report spec %q: %w", cfg.DailyReportSpec, err)
	}
	if _, err := s.cron.AddFunc(cfg.RecurringSpec, s.job(s.RunRecurring)); err != nil {
		return nil, fmt.Errorf("New: recurring spec %q: %w", cfg.RecurringSpec, err)
	}
	return s, nil
}

func (s *Scheduler) job(run func(context.Context) (*jobs.Run, error)) func() {
	return func() {
		ctx := logger.WithContext(context.Background(), s.log)
		if _, err := run(ctx); err != nil {
			s.log.Error().Err(err).Msg("Scheduled job failed")
		}
	}
}

// Start runs the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.log.Info().Time("next", e.Next).Msg("Scheduled job registered")
	}
}

// Stop halts the cron loop and waits for running jobs or ctx, whichever ends first.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn().Msg("Scheduler stop timed out with jobs still running")
	}
}

// begin records a new running run.
func (s *Scheduler) begin(ctx context.Context, typ jobs.JobType) *jobs.Run {
	run := &jobs.Run{
		RunID:     uuid.NewString(),
		Type:      typ,
		Status:    jobs.JobStatusRunning,
		StartedAt: s.now(),
	}
	s.save(ctx, run)
	return run
}

// finish marks the run done and stores it.
func (s *Scheduler) finish(ctx context.Context, run *jobs.Run, err error) {
	completed := s.now()
	run.CompletedAt = &completed
	run.Status = jobs.JobStatusCompleted
	if err != nil {
		run.Status = jobs.JobStatusFailed
		run.Error = err.Error()
	}
	s.save(ctx, run)

	log := logger.FromContext(ctx)
	log.Info().
		Str("run_id", run.RunID).
		Str("type", string(run.Type)).
		Str("status", string(run.Status)).
		Int("processed", run.Processed).
		Int("skipped", run.Skipped).
		Int("failed", run.Failed).
		Dur("duration", completed.Sub(run.StartedAt)).
		Msg("Job run finished")
}

func (s *Scheduler) save(ctx context.Context, run *jobs.Run) {
	if s.runs == nil {
		return
	}
	if err := s.runs.SaveRun(ctx, run); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Failed to save job run")
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
