package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/BrandonDHaskell/Portunus/locker/internal/locker/store"
)

// RecordStore keeps records in a map. It is intended for tests and for
// running the daemon without a database file.
type RecordStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	writes int
}

func New() *RecordStore {
	return &RecordStore{data: make(map[string][]byte)}
}

func (s *RecordStore) ReadRecord(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *RecordStore) WriteRecord(_ context.Context, key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("WriteRecord: %w", store.ErrEmptyKey)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), value...)
	s.writes++
	return nil
}

func (s *RecordStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string][]byte)
	return nil
}

// Writes returns how many WriteRecord calls succeeded.  Test-only helper.
func (s *RecordStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}
