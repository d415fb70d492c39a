// Package table defines the spreadsheet-shaped storage the ledger is written to.
// Every backend stores named tables of string rows with a header, supports
// append and row-index delete, and returns rows in insertion order.
package table

import (
	"context"
	"errors"
)

// Row is one record as string cells.
type Row []string

// Cell returns the i-th cell or "" when the row is short.
func (r Row) Cell(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i]
}

// ErrRowNotFound is returned when deleting an index that does not exist.
var ErrRowNotFound = errors.New("row not found")

// Backend is a tabular store. Row indexes are zero-based over data rows,
// excluding the header.
type Backend interface {
	// EnsureTable creates the table with the header when it does not exist.
	EnsureTable(ctx context.Context, name string, header []string) error

	// ReadRows returns all data rows in insertion order.
	ReadRows(ctx context.Context, name string) ([]Row, error)

	// AppendRow adds a row at the end of the table.
	AppendRow(ctx context.Context, name string, row Row) error

	// DeleteRow removes the data row at index.
	DeleteRow(ctx context.Context, name string, index int) error

	// Close releases the backend.
	Close() error
}
