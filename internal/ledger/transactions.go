package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dvloznov/finance-bot/internal/domain"
	"github.com/dvloznov/finance-bot/internal/table"
)

// Entry is a stored transaction together with its row index.
type Entry struct {
	Row int
	Tx  domain.Transaction
}

func encodeTransaction(tx domain.Transaction) table.Row {
	return table.Row{
		formatTime(tx.Timestamp),
		tx.Sender,
		string(tx.Type),
		tx.Category,
		formatAmount(tx.Amount),
		tx.Note,
		tx.MessageID,
	}
}

func (l *Ledger) decodeTransaction(row table.Row) (domain.Transaction, error) {
	ts, err := l.parseTime(row.Cell(0))
	if err != nil {
		return domain.Transaction{}, err
	}
	typ := domain.TxType(strings.ToLower(row.Cell(2)))
	if !typ.Valid() {
		return domain.Transaction{}, fmt.Errorf("bad type %q", row.Cell(2))
	}
	amount, err := parseAmount(row.Cell(4))
	if err != nil {
		return domain.Transaction{}, err
	}
	return domain.Transaction{
		Timestamp: ts,
		Sender:    row.Cell(1),
		Type:      typ,
		Category:  row.Cell(3),
		Amount:    amount,
		Note:      row.Cell(5),
		MessageID: row.Cell(6),
	}, nil
}

// AppendTransaction writes one transaction row.
func (l *Ledger) AppendTransaction(ctx context.Context, tx domain.Transaction) error {
	if !tx.Type.Valid() {
		return fmt.Errorf("AppendTransaction: invalid type %q", tx.Type)
	}
	if tx.Amount < 0 {
		return fmt.Errorf("AppendTransaction: negative amount %d", tx.Amount)
	}
	if err := l.backend.AppendRow(ctx, TransactionsTable, encodeTransaction(tx)); err != nil {
		return fmt.Errorf("AppendTransaction: %w", err)
	}
	return nil
}

func (l *Ledger) entries(ctx context.Context) ([]Entry, error) {
	txs, index, err := readTable(ctx, l, TransactionsTable, l.decodeTransaction)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, len(txs))
	for i, tx := range txs {
		out[i] = Entry{Row: index[i], Tx: tx}
	}
	return out, nil
}

// HasMessageID reports whether a transaction with this message id is stored.
func (l *Ledger) HasMessageID(ctx context.Context, messageID string) (bool, error) {
	if messageID == "" {
		return false, nil
	}
	rows, err := l.backend.ReadRows(ctx, TransactionsTable)
	if err != nil {
		return false, fmt.Errorf("HasMessageID: %w", err)
	}
	for _, row := range rows {
		if row.Cell(6) == messageID {
			return true, nil
		}
	}
	return false, nil
}

// Transactions returns the sender's transactions in [from, to). A zero bound is open.
func (l *Ledger) Transactions(ctx context.Context, sender string, from, to time.Time) ([]domain.Transaction, error) {
	entries, err := l.entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("Transactions: %w", err)
	}
	var out []domain.Transaction
	for _, e := range entries {
		if e.Tx.Sender == sender && inWindow(e.Tx.Timestamp, from, to) {
			out = append(out, e.Tx)
		}
	}
	return out, nil
}

func inWindow(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}

// LastTransaction returns the sender's most recently stored transaction.
func (l *Ledger) LastTransaction(ctx context.Context, sender string) (Entry, bool, error) {
	entries, err := l.entries(ctx)
	if err != nil {
		return Entry{}, false, fmt.Errorf("LastTransaction: %w", err)
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Tx.Sender == sender {
			return entries[i], true, nil
		}
	}
	return Entry{}, false, nil
}

// DeleteTransaction removes the entry's row after checking it still holds the same record.
func (l *Ledger) DeleteTransaction(ctx context.Context, e Entry) error {
	rows, err := l.backend.ReadRows(ctx, TransactionsTable)
	if err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	if e.Row >= len(rows) {
		return fmt.Errorf("DeleteTransaction: row %d: %w", e.Row, ErrStaleRow)
	}
	current := rows[e.Row]
	if current.Cell(1) != e.Tx.Sender || current.Cell(5) != e.Tx.Note || current.Cell(6) != e.Tx.MessageID {
		return fmt.Errorf("DeleteTransaction: row %d: %w", e.Row, ErrStaleRow)
	}
	if err := l.backend.DeleteRow(ctx, TransactionsTable, e.Row); err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	return nil
}

// Summarize totals the sender's transactions in [from, to).
func (l *Ledger) Summarize(ctx context.Context, sender string, from, to time.Time) (domain.Summary, error) {
	txs, err := l.Transactions(ctx, sender, from, to)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("Summarize: %w", err)
	}
	var s domain.Summary
	for _, tx := range txs {
		s.Add(tx)
	}
	return s, nil
}

// CategoryBreakdown totals expenses per category, largest first.
func (l *Ledger) CategoryBreakdown(ctx context.Context, sender string, from, to time.Time) ([]domain.CategoryTotal, error) {
	txs, err := l.Transactions(ctx, sender, from, to)
	if err != nil {
		return nil, fmt.Errorf("CategoryBreakdown: %w", err)
	}

	byCat := make(map[string]*domain.CategoryTotal)
	for _, tx := range txs {
		if tx.Type != domain.TxExpense {
			continue
		}
		ct, ok := byCat[tx.Category]
		if !ok {
			ct = &domain.CategoryTotal{Category: tx.Category}
			byCat[tx.Category] = ct
		}
		ct.Total += tx.Amount
		ct.Count++
	}

	out := make([]domain.CategoryTotal, 0, len(byCat))
	for _, ct := range byCat {
		out = append(out, *ct)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

// Search returns up to limit of the sender's transactions since from, newest
// first. An empty category matches all.
func (l *Ledger) Search(ctx context.Context, sender, category string, from time.Time, limit int) ([]domain.Transaction, error) {
	txs, err := l.Transactions(ctx, sender, from, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("Search: %w", err)
	}
	// Rows are in storage order, which need not follow Timestamp. Reversing
	// first keeps later rows ahead on equal timestamps.
	for i, j := 0, len(txs)-1; i < j; i, j = i+1, j-1 {
		txs[i], txs[j] = txs[j], txs[i]
	}
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Timestamp.After(txs[j].Timestamp)
	})

	var out []domain.Transaction
	for _, tx := range txs {
		if category != "" && !strings.EqualFold(tx.Category, category) {
			continue
		}
		out = append(out, tx)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Senders lists every sender with at least one transaction, in order of first appearance.
func (l *Ledger) Senders(ctx context.Context) ([]string, error) {
	rows, err := l.backend.ReadRows(ctx, TransactionsTable)
	if err != nil {
		return nil, fmt.Errorf("Senders: %w", err)
	}
	seen := make(map[string]bool)
	var out []string
	for _, row := range rows {
		s := row.Cell(1)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out, nil
}
