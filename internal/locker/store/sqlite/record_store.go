package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	dbpkg "github.com/BrandonDHaskell/Portunus/locker/internal/db"
	"github.com/BrandonDHaskell/Portunus/locker/internal/locker/store"
)

type RecordStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewRecordStore(db *sql.DB, writer *dbpkg.Worker) *RecordStore {
	return &RecordStore{db: db, writer: writer}
}

func (s *RecordStore) ReadRecord(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `
SELECT value FROM records WHERE name = ?;
`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ReadRecord %s: %w", key, err)
	}
	return value, nil
}

// WriteRecord upserts the whole value in a single transaction.
func (s *RecordStore) WriteRecord(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("WriteRecord: %w", store.ErrEmptyKey)
	}
	if value == nil {
		value = []byte{}
	}
	nowMs := time.Now().UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO records(name, value, updated_at_ms) VALUES (?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
  value = excluded.value,
  updated_at_ms = excluded.updated_at_ms;
`, key, value, nowMs); err != nil {
			return fmt.Errorf("WriteRecord %s: %w", key, err)
		}
		return nil
	})
}

func (s *RecordStore) Clear(ctx context.Context) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM records;`); err != nil {
			return fmt.Errorf("Clear: %w", err)
		}
		return nil
	})
}
