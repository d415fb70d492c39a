// Package sheets is a table.Backend over a Google Sheets spreadsheet.
// Each table is a worksheet whose first row is the header.
package sheets

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/dvloznov/finance-bot/internal/table"
)

// Store implements table.Backend.
type Store struct {
	svc           *gsheets.Service
	spreadsheetID string

	mu       sync.Mutex
	sheetIDs map[string]int64
}

// CredentialsOption turns the configured credentials into a client option.
// Inline JSON and file paths are both accepted; empty means application
// default credentials.
func CredentialsOption(credentials string) []option.ClientOption {
	credentials = strings.TrimSpace(credentials)
	switch {
	case credentials == "":
		return nil
	case strings.HasPrefix(credentials, "{"):
		return []option.ClientOption{option.WithCredentialsJSON([]byte(credentials))}
	default:
		return []option.ClientOption{option.WithCredentialsFile(credentials)}
	}
}

// New creates a store for the spreadsheet.
func New(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*Store, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("sheets.New: spreadsheet id is required")
	}
	opts = append([]option.ClientOption{option.WithScopes(gsheets.SpreadsheetsScope)}, opts...)
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets.New: creating service: %w", err)
	}
	return &Store{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetIDs:      make(map[string]int64),
	}, nil
}

// EnsureTable implements table.Backend.
func (s *Store) EnsureTable(ctx context.Context, name string, header []string) error {
	if _, ok, err := s.sheetID(ctx, name); err != nil {
		return fmt.Errorf("EnsureTable: %w", err)
	} else if ok {
		return nil
	}

	req := &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			AddSheet: &gsheets.AddSheetRequest{
				Properties: &gsheets.SheetProperties{Title: name},
			},
		}},
	}
	resp, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("EnsureTable: adding sheet %s: %w", name, err)
	}
	if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil {
		s.mu.Lock()
		s.sheetIDs[name] = resp.Replies[0].AddSheet.Properties.SheetId
		s.mu.Unlock()
	}

	vr := &gsheets.ValueRange{Values: [][]interface{}{toCells(header)}}
	if _, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, name+"!A1", vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("EnsureTable: writing header for %s: %w", name, err)
	}
	return nil
}

// ReadRows implements table.Backend.
func (s *Store) ReadRows(ctx context.Context, name string) ([]table.Row, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, name+"!A2:Z").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("ReadRows: %s: %w", name, err)
	}

	rows := make([]table.Row, 0, len(resp.Values))
	for _, values := range resp.Values {
		row := make(table.Row, len(values))
		for i, v := range values {
			row[i] = fmt.Sprint(v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// AppendRow implements table.Backend.
func (s *Store) AppendRow(ctx context.Context, name string, row table.Row) error {
	vr := &gsheets.ValueRange{Values: [][]interface{}{toCells(row)}}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, name+"!A1", vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("AppendRow: %s: %w", name, err)
	}
	return nil
}

// DeleteRow implements table.Backend.
func (s *Store) DeleteRow(ctx context.Context, name string, index int) error {
	if index < 0 {
		return fmt.Errorf("DeleteRow: %s[%d]: %w", name, index, table.ErrRowNotFound)
	}
	id, ok, err := s.sheetID(ctx, name)
	if err != nil {
		return fmt.Errorf("DeleteRow: %w", err)
	}
	if !ok {
		return fmt.Errorf("DeleteRow: %s[%d]: %w", name, index, table.ErrRowNotFound)
	}

	// Data row i lives on sheet row i+1 because of the header.
	req := &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			DeleteDimension: &gsheets.DeleteDimensionRequest{
				Range: &gsheets.DimensionRange{
					SheetId:    id,
					Dimension:  "ROWS",
					StartIndex: int64(index + 1),
					EndIndex:   int64(index + 2),
				},
			},
		}},
	}
	if _, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("DeleteRow: %s[%d]: %w", name, index, err)
	}
	return nil
}

// Close implements table.Backend.
func (s *Store) Close() error {
	return nil
}

// sheetID resolves a worksheet title to its numeric id, caching the result.
func (s *Store) sheetID(ctx context.Context, name string) (int64, bool, error) {
	s.mu.Lock()
	id, ok := s.sheetIDs[name]
	s.mu.Unlock()
	if ok {
		return id, true, nil
	}

	ss, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, false, fmt.Errorf("loading spreadsheet: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			s.sheetIDs[sh.Properties.Title] = sh.Properties.SheetId
		}
	}
	id, ok = s.sheetIDs[name]
	return id, ok, nil
}

func toCells(row []string) []interface{} {
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}
	return cells
}

var _ table.Backend = (*Store)(nil)
