package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-bot/internal/domain"
)

// TransactionRow is the mirrored shape of a ledger transaction.
type TransactionRow struct {
	MessageID string `bigquery:"message_id"` // REQUIRED, also the insert id
	Sender    string `bigquery:"sender"`     // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED, in the ledger time zone
	BookedTS        time.Time  `bigquery:"booked_ts"`        // REQUIRED

	Direction string `bigquery:"direction"` // REQUIRED income|expense
	Category  string `bigquery:"category"`  // REQUIRED
	Amount    int64  `bigquery:"amount"`    // REQUIRED whole Rupiah
	Currency  string `bigquery:"currency"`  // REQUIRED

	Note bigquery.NullString `bigquery:"note"` // NULLABLE

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

func newTransactionRow(tx domain.Transaction, loc *time.Location, created time.Time) *TransactionRow {
	return &TransactionRow{
		MessageID:       tx.MessageID,
		Sender:          tx.Sender,
		TransactionDate: civil.DateOf(tx.Timestamp.In(loc)),
		BookedTS:        tx.Timestamp,
		Direction:       string(tx.Type),
		Category:        tx.Category,
		Amount:          tx.Amount,
		Currency:        "IDR",
		Note:            bigquery.NullString{StringVal: tx.Note, Valid: tx.Note != ""},
		CreatedTS:       created,
	}
}
