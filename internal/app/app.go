// Package app builds the object graph shared by the server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-bot/internal/api"
	"github.com/dvloznov/finance-bot/internal/api/handlers"
	"github.com/dvloznov/finance-bot/internal/commands"
	"github.com/dvloznov/finance-bot/internal/config"
	"github.com/dvloznov/finance-bot/internal/gate"
	infraBQ "github.com/dvloznov/finance-bot/internal/infra/bigquery"
	"github.com/dvloznov/finance-bot/internal/infra/boltstore"
	"github.com/dvloznov/finance-bot/internal/infra/gcs"
	"github.com/dvloznov/finance-bot/internal/infra/sheets"
	"github.com/dvloznov/finance-bot/internal/infra/sqlstore"
	"github.com/dvloznov/finance-bot/internal/ingest"
	"github.com/dvloznov/finance-bot/internal/jobs/inmemory"
	"github.com/dvloznov/finance-bot/internal/ledger"
	"github.com/dvloznov/finance-bot/internal/parser"
	"github.com/dvloznov/finance-bot/internal/report"
	"github.com/dvloznov/finance-bot/internal/scheduler"
	"github.com/dvloznov/finance-bot/internal/table"
	"github.com/dvloznov/finance-bot/internal/whatsapp"
)

// maxJobRuns bounds the in-memory job history.
const maxJobRuns = 500

// App holds the wired components.
type App struct {
	Config    *config.Config
	Ledger    *ledger.Ledger
	Parser    *parser.Parser
	Sender    whatsapp.Sender
	Exporter  *report.Exporter
	Digest    *report.Digest
	Router    *ingest.Router
	Scheduler *scheduler.Scheduler
	Runs      *inmemory.Store
	Archive   *gcs.Archive

	log     zerolog.Logger
	closers []func() error
}

// OpenBackend returns the table backend selected by cfg.
func OpenBackend(ctx context.Context, cfg *config.Config) (table.Backend, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return table.NewMemory(), nil
	case config.BackendSheets:
		return sheets.New(ctx, cfg.SheetID, sheets.CredentialsOption(cfg.ServiceAccountJSON)...)
	case config.BackendBolt:
		return boltstore.Open(cfg.BoltPath)
	case config.BackendSQLite:
		return sqlstore.Open(ctx, sqlstore.DriverSQLite, cfg.SQLDSN)
	case config.BackendMySQL:
		return sqlstore.Open(ctx, sqlstore.DriverMySQL, cfg.SQLDSN)
	default:
		return nil, fmt.Errorf("OpenBackend: unknown backend %q", cfg.Backend)
	}
}

// LoadParser returns the parser for cfg, using the built-in keyword tables
// when no categories file is set.
func LoadParser(cfg *config.Config) (*parser.Parser, error) {
	if cfg.CategoriesFile == "" {
		return parser.New(nil), nil
	}
	rs, err := parser.LoadRuleSet(cfg.CategoriesFile)
	if err != nil {
		return nil, fmt.Errorf("LoadParser: %w", err)
	}
	return parser.New(rs.Classifier()), nil
}

// Option configures New.
type Option func(*options)

type options struct {
	backend table.Backend
	sender  whatsapp.Sender
}

// WithBackend uses b instead of opening the configured backend. The caller
// keeps ownership of b.
func WithBackend(b table.Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithSender replaces the Cloud API client.
func WithSender(s whatsapp.Sender) Option {
	return func(o *options) { o.sender = s }
}

// New wires every component. Optional cloud integrations are enabled only
// when configured. Call Close when done.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts ...Option) (_ *App, err error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg, log: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	// 1. Storage
	backend := o.backend
	if backend == nil {
		if backend, err = OpenBackend(ctx, cfg); err != nil {
			return nil, fmt.Errorf("New: opening %s backend: %w", cfg.Backend, err)
		}
		a.closers = append(a.closers, backend.Close)
	}

	a.Ledger = ledger.New(backend, cfg.Location)
	if err := a.Ledger.Init(ctx); err != nil {
		return nil, fmt.Errorf("New: initializing ledger: %w", err)
	}

	// 2. Parsing and outbound messaging
	if a.Parser, err = LoadParser(cfg); err != nil {
		return nil, fmt.Errorf("New: %w", err)
	}
	a.Sender = o.sender
	if a.Sender == nil {
		a.Sender = whatsapp.NewClient(cfg.WhatsAppAPI, cfg.PhoneNumberID, cfg.WhatsAppToken, cfg.SendTimeout)
	}

	// 3. Reports
	var exportOpts []report.ExporterOption
	if cfg.ReportBucket != "" {
		if a.Archive, err = gcs.NewArchive(ctx, cfg.ReportBucket, "reports"); err != nil {
			return nil, fmt.Errorf("New: creating report archive: %w", err)
		}
		a.closers = append(a.closers, a.Archive.Close)
		exportOpts = append(exportOpts, report.WithArchive(a.Archive))
	}
	a.Exporter = report.NewExporter(a.Ledger, nil, exportOpts...)
	a.Digest = report.NewDigest(a.Ledger)

	// 4. Inbound routing
	routerOpts := []ingest.Option{ingest.WithLogger(log)}
	if cfg.BigQueryProject != "" {
		mirror, err := infraBQ.NewMirror(ctx, cfg.BigQueryProject, cfg.BigQueryDataset, cfg.Location)
		if err != nil {
			return nil, fmt.Errorf("New: creating transaction mirror: %w", err)
		}
		a.closers = append(a.closers, mirror.Close)
		if err := mirror.EnsureTable(ctx); err != nil {
			return nil, fmt.Errorf("New: preparing transaction mirror: %w", err)
		}
		routerOpts = append(routerOpts, ingest.WithMirror(mirror))
	}
	a.Router = ingest.NewRouter(
		gate.New(cfg.DedupTTL, cfg.RateLimitInterval),
		commands.New(a.Ledger, a.Exporter, cfg.BaseURL),
		a.Parser,
		a.Ledger,
		a.Sender,
		routerOpts...,
	)

	// 5. Jobs
	a.Runs = inmemory.NewStore(maxJobRuns)
	a.Scheduler, err = scheduler.New(
		scheduler.Config{DailyReportSpec: cfg.DailyReportCron, RecurringSpec: cfg.RecurringCron},
		a.Ledger, a.Digest, a.Sender, a.Runs,
		scheduler.WithLogger(log),
		scheduler.WithClassifier(a.Parser.Classifier()),
	)
	if err != nil {
		return nil, fmt.Errorf("New: creating scheduler: %w", err)
	}

	return a, nil
}

// Handler returns the HTTP surface.
func (a *App) Handler(corsOrigins ...string) http.Handler {
	return api.NewHandler(api.Handlers{
		Webhook: handlers.NewWebhookHandler(a.Config.VerifyToken, a.Router, a.log),
		Export:  handlers.NewExportHandler(a.Exporter, a.log),
		Config:  handlers.NewConfigHandler(a.Config.BaseURL),
		Jobs:    handlers.NewJobsHandler(a.Runs, a.log),
	}, a.log, corsOrigins...)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
