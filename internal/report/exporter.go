package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/finance-bot/internal/logger"
)

// ErrInvalidDays is returned for a non-positive or too large window.
var ErrInvalidDays = errors.New("days must be between 1 and 3650")

// MaxDays bounds the export window.
const MaxDays = 3650

// Archiver stores a copy of a rendered report and returns where it went.
type Archiver interface {
	Archive(ctx context.Context, name string, data []byte) (string, error)
}

// Exporter renders a sender's recent transactions to PDF.
type Exporter struct {
	source   Source
	renderer Renderer
	archive  Archiver
	now      func() time.Time
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithArchive keeps a copy of every export.
func WithArchive(a Archiver) ExporterOption {
	return func(e *Exporter) { e.archive = a }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ExporterOption {
	return func(e *Exporter) { e.now = now }
}

// NewExporter creates an exporter. A nil renderer means PDFRenderer.
func NewExporter(src Source, r Renderer, opts ...ExporterOption) *Exporter {
	if r == nil {
		r = PDFRenderer{}
	}
	e := &Exporter{source: src, renderer: r, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FileName is the download name of an export.
func FileName(sender string, days int) string {
	return fmt.Sprintf("laporan_%s_%dhari.pdf", sender, days)
}

// Render renders the last days of the sender's transactions without
// archiving the result.
func (e *Exporter) Render(ctx context.Context, sender string, days int) ([]byte, error) {
	data, _, err := e.render(ctx, sender, days)
	return data, err
}

// Export renders like Render and keeps a copy in the archive, if any.
// Archive failures are logged and do not fail the export.
func (e *Exporter) Export(ctx context.Context, sender string, days int) ([]byte, error) {
	data, at, err := e.render(ctx, sender, days)
	if err != nil {
		return nil, err
	}

	if e.archive != nil {
		log := logger.FromContext(ctx)
		name := fmt.Sprintf("%s/%s_%s", sender, at.UTC().Format("20060102T150405Z"), FileName(sender, days))
		uri, err := e.archive.Archive(ctx, name, data)
		if err != nil {
			log.Warn().Err(err).Str("sender", sender).Msg("Failed to archive report")
		} else {
			log.Debug().Str("uri", uri).Msg("Report archived")
		}
	}
	return data, nil
}

func (e *Exporter) render(ctx context.Context, sender string, days int) ([]byte, time.Time, error) {
	if days <= 0 || days > MaxDays {
		return nil, time.Time{}, fmt.Errorf("Export: %d: %w", days, ErrInvalidDays)
	}

	to := e.now()
	from := to.AddDate(0, 0, -days)
	doc, err := Build(ctx, e.source, sender, from, to)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("Export: loading transactions: %w", err)
	}
	doc.Days = days

	data, err := e.renderer.Render(doc)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("Export: rendering: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().
		Str("sender", sender).
		Int("days", days).
		Int("transactions", len(doc.Transactions)).
		Int("bytes", len(data)).
		Msg("Report rendered")
	return data, to, nil
}
