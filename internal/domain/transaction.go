package domain

import (
	"time"
)

// TxType is the direction of a transaction.
type TxType string

const (
	TxIncome  TxType = "income"
	TxExpense TxType = "expense"
)

// Valid reports whether t is one of the known transaction types.
func (t TxType) Valid() bool {
	return t == TxIncome || t == TxExpense
}

// Transaction is one ledger entry derived from a chat message.
// Amount is whole Rupiah and never negative; the direction lives in Type.
// Note keeps the message text exactly as the sender typed it.
type Transaction struct {
	Timestamp time.Time
	Sender    string
	Type      TxType
	Category  string
	Amount    int64
	Note      string
	MessageID string
}

// Summary aggregates income and expense over a window.
type Summary struct {
	Income  int64
	Expense int64
	Count   int
}

// Add folds a transaction into the summary.
func (s *Summary) Add(tx Transaction) {
	switch tx.Type {
	case TxIncome:
		s.Income += tx.Amount
	case TxExpense:
		s.Expense += tx.Amount
	}
	s.Count++
}

// Net is income minus expense.
func (s Summary) Net() int64 {
	return s.Income - s.Expense
}

// CategoryTotal is the expense total for one category.
type CategoryTotal struct {
	Category string
	Total    int64
	Count    int
}
