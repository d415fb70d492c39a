// Package ingest routes inbound chat messages to commands or the ledger.
package ingest

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-bot/internal/domain"
	"github.com/dvloznov/finance-bot/internal/gate"
	"github.com/dvloznov/finance-bot/internal/logger"
	"github.com/dvloznov/finance-bot/internal/parser"
	"github.com/dvloznov/finance-bot/internal/whatsapp"
)

// Outcome is what happened to an inbound message.
type Outcome int

const (
	OutcomeDuplicate Outcome = iota
	OutcomeRateLimited
	OutcomeCommand
	OutcomeParseRejected
	OutcomeRecorded
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeCommand:
		return "command"
	case OutcomeParseRejected:
		return "parse_rejected"
	case OutcomeRecorded:
		return "recorded"
	default:
		return "failed"
	}
}

// Replies sent by the router.
const (
	MsgParseRejected = "❌ Format tidak dikenali. Contoh: Makan siang 25000"
	MsgCommandError  = "❌ Terjadi error saat memproses perintah Anda."
	MsgRecordError   = "❌ Terjadi error saat mencatat transaksi."
)

// Store is the part of the ledger the router writes to and checks alerts against.
type Store interface {
	HasMessageID(ctx context.Context, messageID string) (bool, error)
	AppendTransaction(ctx context.Context, tx domain.Transaction) error
	CheckBudget(ctx context.Context, sender, category string, amount int64, excludeMessageID string, now time.Time) (domain.BudgetStatus, bool, error)
	CheckDailyTarget(ctx context.Context, sender string, amount int64, excludeMessageID string, now time.Time) (domain.TargetStatus, bool, error)
}

// Commands answers slash commands. handled is false for anything else.
type Commands interface {
	Dispatch(ctx context.Context, sender, text string, now time.Time) (reply string, handled bool, err error)
}

// Mirror copies recorded transactions to a secondary sink.
type Mirror interface {
	MirrorTransaction(ctx context.Context, tx domain.Transaction) error
}

// Router runs the per-message pipeline.
type Router struct {
	gate     *gate.Gate
	commands Commands
	parser   *parser.Parser
	store    Store
	sender   whatsapp.Sender
	mirror   Mirror
	log      zerolog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithMirror sets an analytics mirror for recorded transactions.
func WithMirror(m Mirror) Option {
	return func(r *Router) { r.mirror = m }
}

// WithLogger sets the fallback logger used when the context carries none.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Router) { r.log = log }
}

// NewRouter creates a router.
func NewRouter(g *gate.Gate, commands Commands, p *parser.Parser, store Store, sender whatsapp.Sender, opts ...Option) *Router {
	r := &Router{
		gate:     g,
		commands: commands,
		parser:   p,
		store:    store,
		sender:   sender,
		log:      logger.New(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HandleInbound processes one message. It never panics and never returns an
// error; failures are logged and answered with a generic reply.
func (r *Router) HandleInbound(ctx context.Context, in whatsapp.Inbound, now time.Time) (outcome Outcome) {
	log := logger.WithFields(logger.FromContextOr(ctx, r.log), map[string]interface{}{
		"sender":     in.Sender,
		"message_id": in.MessageID,
	})
	ctx = logger.WithContext(ctx, log)

	// 1-2. Gate: duplicates and floods are dropped silently.
	switch r.gate.Admit(in.MessageID, in.Sender, now) {
	case gate.Duplicate:
		log.Debug().Msg("Duplicate message ignored")
		return OutcomeDuplicate
	case gate.RateLimited:
		log.Debug().Msg("Message rate limited")
		return OutcomeRateLimited
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("Panic while handling message")
			r.sender.Send(ctx, in.Sender, MsgRecordError)
			outcome = OutcomeFailed
		}
	}()

	// 3. Commands.
	reply, handled, err := r.commands.Dispatch(ctx, in.Sender, in.Text, now)
	if handled {
		if err != nil {
			log.Error().Err(err).Msg("Command failed")
			r.sender.Send(ctx, in.Sender, MsgCommandError)
			return OutcomeFailed
		}
		r.sender.Send(ctx, in.Sender, reply)
		return OutcomeCommand
	}

	// 4. Parse.
	tx, err := r.parser.Parse(in.Text)
	if err != nil {
		log.Info().Err(err).Msg("Message not recognized as a transaction")
		r.sender.Send(ctx, in.Sender, MsgParseRejected)
		return OutcomeParseRejected
	}
	tx.Timestamp = now
	tx.Sender = in.Sender
	tx.MessageID = in.MessageID

	// 5. Evaluate alerts against the spend before this row is written.
	var alerts []string
	if tx.Type == domain.TxExpense {
		alerts = r.alerts(ctx, tx, now)
	}

	// 6. Persist unless a row with this message id already exists.
	r.record(ctx, tx)
	r.sender.Send(ctx, in.Sender, fmt.Sprintf("✅ %s %d dicatat", tx.Category, tx.Amount))

	// 7. Alerts follow the confirmation.
	for _, text := range alerts {
		r.sender.Send(ctx, in.Sender, text)
	}
	return OutcomeRecorded
}

func (r *Router) record(ctx context.Context, tx domain.Transaction) {
	log := logger.FromContext(ctx)

	if tx.MessageID != "" {
		exists, err := r.store.HasMessageID(ctx, tx.MessageID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to check stored message ids")
			return
		}
		if exists {
			log.Info().Msg("Transaction already stored")
			return
		}
	}

	if err := r.store.AppendTransaction(ctx, tx); err != nil {
		log.Error().Err(err).Msg("Failed to store transaction")
		return
	}
	log.Info().
		Str("type", string(tx.Type)).
		Str("category", tx.Category).
		Int64("amount", tx.Amount).
		Msg("Transaction recorded")

	if r.mirror != nil {
		if err := r.mirror.MirrorTransaction(ctx, tx); err != nil {
			log.Warn().Err(err).Msg("Failed to mirror transaction")
		}
	}
}

// alerts returns the alert texts for tx. It runs before tx is stored; the
// message id is still excluded so a redelivered row is not counted twice.
func (r *Router) alerts(ctx context.Context, tx domain.Transaction, now time.Time) []string {
	log := logger.FromContext(ctx)
	var out []string

	bs, ok, err := r.store.CheckBudget(ctx, tx.Sender, tx.Category, tx.Amount, tx.MessageID, now)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("Budget check failed")
	case ok && bs.Exceeded:
		out = append(out, budgetAlert(bs))
	}

	ts, ok, err := r.store.CheckDailyTarget(ctx, tx.Sender, tx.Amount, tx.MessageID, now)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("Daily target check failed")
	case ok && ts.Exceeded:
		out = append(out, dailyTargetAlert(ts))
	}
	return out
}

func budgetAlert(s domain.BudgetStatus) string {
	return fmt.Sprintf("⚠️ BUDGET ALERT\nKategori: %s\nBudget: %s\nSpent: %s\nOver: %s",
		s.Category, domain.FormatRupiah(s.Budget), domain.FormatRupiah(s.Spent), domain.FormatRupiah(s.OverBy))
}

func dailyTargetAlert(s domain.TargetStatus) string {
	return fmt.Sprintf("⚠️ DAILY TARGET EXCEEDED\nTarget: %s\nSpent: %s\nOver: %s",
		domain.FormatRupiah(s.Target), domain.FormatRupiah(s.Spent), domain.FormatRupiah(s.OverBy))
}
