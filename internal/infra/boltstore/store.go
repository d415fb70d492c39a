// Package boltstore is a single-file table.Backend on top of bbolt.
// Each table is a bucket keyed by an increasing sequence; values are gob
// encoded rows. The header is kept under a separate meta bucket.
package boltstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/dvloznov/finance-bot/internal/table"
)

var headersBucket = []byte("_headers")

// Store implements table.Backend.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the database file at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("boltstore.Open: %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(headersBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("boltstore.Open: creating meta bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// EnsureTable implements table.Backend.
func (s *Store) EnsureTable(ctx context.Context, name string, header []string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
			return fmt.Errorf("EnsureTable: creating bucket %s: %w", name, err)
		}
		meta := tx.Bucket(headersBucket)
		if meta.Get([]byte(name)) != nil {
			return nil
		}
		data, err := encodeRow(header)
		if err != nil {
			return fmt.Errorf("EnsureTable: encoding header: %w", err)
		}
		return meta.Put([]byte(name), data)
	})
}

// ReadRows implements table.Backend.
func (s *Store) ReadRows(ctx context.Context, name string) ([]table.Row, error) {
	var rows []table.Row
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(name))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			row, err := decodeRow(v)
			if err != nil {
				return fmt.Errorf("decoding %s/%d: %w", name, binary.BigEndian.Uint64(k), err)
			}
			rows = append(rows, row)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("ReadRows: %w", err)
	}
	return rows, nil
}

// AppendRow implements table.Backend.
func (s *Store) AppendRow(ctx context.Context, name string, row table.Row) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(name))
		if err != nil {
			return fmt.Errorf("AppendRow: bucket %s: %w", name, err)
		}
		seq, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("AppendRow: next sequence: %w", err)
		}
		data, err := encodeRow(row)
		if err != nil {
			return fmt.Errorf("AppendRow: encoding row: %w", err)
		}
		return bucket.Put(itob(seq), data)
	})
}

// DeleteRow implements table.Backend.
func (s *Store) DeleteRow(ctx context.Context, name string, index int) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(name))
		if bucket == nil || index < 0 {
			return fmt.Errorf("DeleteRow: %s[%d]: %w", name, index, table.ErrRowNotFound)
		}

		c := bucket.Cursor()
		i := 0
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if i == index {
				return c.Delete()
			}
			i++
		}
		return fmt.Errorf("DeleteRow: %s[%d]: %w", name, index, table.ErrRowNotFound)
	})
}

// Close implements table.Backend.
func (s *Store) Close() error {
	return s.db.Close()
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func encodeRow(row []string) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(row); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRow(data []byte) (table.Row, error) {
	var row []string
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&row); err != nil {
		return nil, err
	}
	return table.Row(row), nil
}

var _ table.Backend = (*Store)(nil)
