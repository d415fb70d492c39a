// Package bigquery mirrors recorded transactions into a BigQuery table for
// analytics. The ledger backend stays the source of truth.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/dvloznov/finance-bot/internal/domain"
)

const (
	// DefaultDataset is used when no dataset is configured.
	DefaultDataset    = "finance"
	transactionsTable = "transactions"
)

// Mirror streams transactions into {dataset}.transactions.
type Mirror struct {
	client *bigquery.Client
	table  *bigquery.Table
	loc    *time.Location
	now    func() time.Time
}

// NewMirror creates a mirror with a shared BigQuery client.
func NewMirror(ctx context.Context, projectID, dataset string, loc *time.Location, opts ...option.ClientOption) (*Mirror, error) {
	if dataset == "" {
		dataset = DefaultDataset
	}
	if loc == nil {
		loc = time.UTC
	}
	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewMirror: creating client: %w", err)
	}
	return &Mirror{
		client: client,
		table:  client.DatasetInProject(projectID, dataset).Table(transactionsTable),
		loc:    loc,
		now:    time.Now,
	}, nil
}

// EnsureTable creates the transactions table, partitioned by day, if it
// does not exist yet.
func (m *Mirror) EnsureTable(ctx context.Context) error {
	schema, err := bigquery.InferSchema(TransactionRow{})
	if err != nil {
		return fmt.Errorf("EnsureTable: inferring schema: %w", err)
	}
	meta := &bigquery.TableMetadata{
		Schema: schema,
		TimePartitioning: &bigquery.TimePartitioning{
			Type:  bigquery.DayPartitioningType,
			Field: "transaction_date",
		},
	}
	if err := m.table.Create(ctx, meta); err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict {
			return nil
		}
		return fmt.Errorf("EnsureTable: creating table: %w", err)
	}
	return nil
}

// MirrorTransaction inserts one row. The message id doubles as the
// streaming insert id so BigQuery drops retried copies.
func (m *Mirror) MirrorTransaction(ctx context.Context, tx domain.Transaction) error {
	row := newTransactionRow(tx, m.loc, m.now())
	saver := &bigquery.StructSaver{Struct: row, InsertID: tx.MessageID}
	if err := m.table.Inserter().Put(ctx, saver); err != nil {
		return fmt.Errorf("MirrorTransaction: inserting row: %w", err)
	}
	return nil
}

// Close closes the BigQuery client connection.
func (m *Mirror) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}
