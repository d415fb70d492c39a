// Package report builds the user-facing reports: the PDF export and the
// daily chat digest.
package report

import (
	"context"
	"time"

	"github.com/dvloznov/finance-bot/internal/domain"
)

// Source is the ledger data a report is built from.
type Source interface {
	Location() *time.Location
	Transactions(ctx context.Context, sender string, from, to time.Time) ([]domain.Transaction, error)
	CategoryBreakdown(ctx context.Context, sender string, from, to time.Time) ([]domain.CategoryTotal, error)
}

// Document is everything a rendered report shows.
type Document struct {
	Sender       string
	From, To     time.Time
	Days         int
	GeneratedAt  time.Time
	Summary      domain.Summary
	Breakdown    []domain.CategoryTotal
	Transactions []domain.Transaction
	Location     *time.Location
}

// Build loads the sender's window [from, to) into a Document.
func Build(ctx context.Context, src Source, sender string, from, to time.Time) (Document, error) {
	txs, err := src.Transactions(ctx, sender, from, to)
	if err != nil {
		return Document{}, err
	}
	breakdown, err := src.CategoryBreakdown(ctx, sender, from, to)
	if err != nil {
		return Document{}, err
	}

	doc := Document{
		Sender:       sender,
		From:         from,
		To:           to,
		GeneratedAt:  to,
		Breakdown:    breakdown,
		Transactions: txs,
		Location:     src.Location(),
	}
	for _, tx := range txs {
		doc.Summary.Add(tx)
	}
	return doc, nil
}

func (d Document) loc() *time.Location {
	if d.Location == nil {
		return time.UTC
	}
	return d.Location
}
