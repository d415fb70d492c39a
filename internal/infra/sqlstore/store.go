// Package sqlstore is a table.Backend over SQLite or MySQL. All tables share
// one generic rows table whose cells are stored as a JSON array.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/dvloznov/finance-bot/internal/table"
)

// Driver names accepted by Open.
const (
	DriverSQLite = "sqlite3"
	DriverMySQL  = "mysql"
)

var schemas = map[string][]string{
	DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS sheet_headers (
			table_name TEXT PRIMARY KEY,
			header TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sheet_rows (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			table_name TEXT NOT NULL,
			data TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sheet_rows_table ON sheet_rows (table_name, id)`,
	},
	DriverMySQL: {
		`CREATE TABLE IF NOT EXISTS sheet_headers (
			table_name VARCHAR(64) PRIMARY KEY,
			header TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sheet_rows (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			table_name VARCHAR(64) NOT NULL,
			data TEXT NOT NULL,
			INDEX idx_sheet_rows_table (table_name, id)
		) CHARACTER SET utf8mb4`,
	},
}

// Store implements table.Backend.
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to the database and creates the schema.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	stmts, ok := schemas[driver]
	if !ok {
		return nil, fmt.Errorf("sqlstore.Open: unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore.Open: %w", err)
	}

	if driver == DriverSQLite {
		// A single connection keeps ":memory:" databases shared and serializes writers.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore.Open: ping: %w", err)
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlstore.Open: creating schema: %w", err)
		}
	}

	return &Store{db: db, driver: driver}, nil
}

// EnsureTable implements table.Backend.
func (s *Store) EnsureTable(ctx context.Context, name string, header []string) error {
	data, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("EnsureTable: encoding header: %w", err)
	}

	q := `INSERT OR IGNORE INTO sheet_headers (table_name, header) VALUES (?, ?)`
	if s.driver == DriverMySQL {
		q = `INSERT IGNORE INTO sheet_headers (table_name, header) VALUES (?, ?)`
	}
	if _, err := s.db.ExecContext(ctx, q, name, string(data)); err != nil {
		return fmt.Errorf("EnsureTable: %s: %w", name, err)
	}
	return nil
}

// ReadRows implements table.Backend.
func (s *Store) ReadRows(ctx context.Context, name string) ([]table.Row, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, data FROM sheet_rows WHERE table_name = ? ORDER BY id`, name)
	if err != nil {
		return nil, fmt.Errorf("ReadRows: querying %s: %w", name, err)
	}
	defer rows.Close()

	var out []table.Row
	for rows.Next() {
		var (
			id   int64
			data string
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("ReadRows: scanning %s: %w", name, err)
		}
		var cells []string
		if err := json.Unmarshal([]byte(data), &cells); err != nil {
			return nil, fmt.Errorf("ReadRows: decoding %s/%d: %w", name, id, err)
		}
		out = append(out, table.Row(cells))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ReadRows: iterating %s: %w", name, err)
	}
	return out, nil
}

// AppendRow implements table.Backend.
func (s *Store) AppendRow(ctx context.Context, name string, row table.Row) error {
	data, err := json.Marshal([]string(row))
	if err != nil {
		return fmt.Errorf("AppendRow: encoding row: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO sheet_rows (table_name, data) VALUES (?, ?)`, name, string(data)); err != nil {
		return fmt.Errorf("AppendRow: inserting into %s: %w", name, err)
	}
	return nil
}

// DeleteRow implements table.Backend.
func (s *Store) DeleteRow(ctx context.Context, name string, index int) error {
	if index < 0 {
		return fmt.Errorf("DeleteRow: %s[%d]: %w", name, index, table.ErrRowNotFound)
	}

	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM sheet_rows WHERE table_name = ? ORDER BY id LIMIT 1 OFFSET ?`, name, index).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("DeleteRow: %s[%d]: %w", name, index, table.ErrRowNotFound)
	}
	if err != nil {
		return fmt.Errorf("DeleteRow: locating %s[%d]: %w", name, index, err)
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM sheet_rows WHERE id = ?`, id); err != nil {
		return fmt.Errorf("DeleteRow: deleting %s/%d: %w", name, id, err)
	}
	return nil
}

// Close implements table.Backend.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ table.Backend = (*Store)(nil)
