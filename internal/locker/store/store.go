package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrEmptyKey = errors.New("empty record key")
)

// RecordStore persists small named byte records, the durable settings of
// the locker. Each write replaces the whole value atomically so a reader
// never observes a partially written record. Keys are matched exactly.
type RecordStore interface {
	ReadRecord(ctx context.Context, key string) ([]byte, error)
	WriteRecord(ctx context.Context, key string, value []byte) error
	Clear(ctx context.Context) error
}
