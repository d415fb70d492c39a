package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/finance-bot/internal/domain"
	"github.com/dvloznov/finance-bot/internal/ledger"
)

const digestTopCategories = 3

// Digest writes the daily chat summary.
type Digest struct {
	source Source
}

// NewDigest creates a Digest.
func NewDigest(src Source) *Digest {
	return &Digest{source: src}
}

// Daily summarizes the sender's day up to now. It returns "" when the sender
// has no transactions today.
func (d *Digest) Daily(ctx context.Context, sender string, now time.Time) (string, error) {
	loc := d.source.Location()
	doc, err := Build(ctx, d.source, sender, ledger.StartOfDay(now, loc), time.Time{})
	if err != nil {
		return "", fmt.Errorf("Daily: %w", err)
	}
	if doc.Summary.Count == 0 {
		return "", nil
	}

	s := doc.Summary
	var b strings.Builder
	fmt.Fprintf(&b, "📊 LAPORAN HARIAN %s\n\n", now.In(loc).Format("02/01/2006"))
	fmt.Fprintf(&b, "Income: %s\nExpense: %s\nNet: %s\nTransaksi: %d",
		domain.FormatRupiah(s.Income), domain.FormatRupiah(s.Expense), domain.FormatRupiah(s.Net()), s.Count)

	if len(doc.Breakdown) > 0 {
		b.WriteString("\n\nPengeluaran terbesar:")
		for i, ct := range doc.Breakdown {
			if i == digestTopCategories {
				break
			}
			fmt.Fprintf(&b, "\n%s: %s", ct.Category, domain.FormatRupiah(ct.Total))
		}
	}
	return b.String(), nil
}
