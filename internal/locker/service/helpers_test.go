package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/BrandonDHaskell/Portunus/locker/internal/locker/service"
	"github.com/BrandonDHaskell/Portunus/locker/internal/locker/store/memory"
	"github.com/BrandonDHaskell/Portunus/locker/internal/locker/types"
)

// recorder is a Publisher that keeps everything it is given.
type recorder struct {
	msgs []types.Message
}

func (r *recorder) Publish(m types.Message) error {
	r.msgs = append(r.msgs, m)
	return nil
}

// take returns and forgets the recorded messages.
func (r *recorder) take() []types.Message {
	out := r.msgs
	r.msgs = nil
	return out
}

func (r *recorder) count(k types.Kind) int {
	n := 0
	for _, m := range r.msgs {
		if m.Kind == k {
			n++
		}
	}
	return n
}

func (r *recorder) countFeedback(p types.Pattern) int {
	n := 0
	for _, m := range r.msgs {
		if m.Kind == types.KindFeedback && types.Pattern(m.Arg) == p {
			n++
		}
	}
	return n
}

func (r *recorder) has(want types.Message) bool {
	for _, m := range r.msgs {
		if m == want {
			return true
		}
	}
	return false
}

func newTestSettings(t *testing.T) (*service.Settings, *memory.RecordStore) {
	t.Helper()
	st := memory.New()
	return service.NewSettings(st, nil), st
}

// pressDigits feeds each digit of s to h, 100ms apart starting at start,
// and returns the time of the last press.
func pressDigits(h interface {
	Handle(types.Message, service.Millis)
}, s string, start service.Millis) service.Millis {
	now := start
	for i := 0; i < len(s); i++ {
		if i > 0 {
			now += 100
		}
		h.Handle(types.DigitPressed(s[i]-'0'), now)
	}
	return now
}

var errDiskFull = errors.New("disk full")

// faultyStore wraps a memory store and fails reads or writes on demand.
type faultyStore struct {
	*memory.RecordStore
	failReads  bool
	failWrites bool
}

func newFaultyStore() *faultyStore {
	return &faultyStore{RecordStore: memory.New()}
}

func (s *faultyStore) ReadRecord(ctx context.Context, key string) ([]byte, error) {
	if s.failReads {
		return nil, errDiskFull
	}
	return s.RecordStore.ReadRecord(ctx, key)
}

func (s *faultyStore) WriteRecord(ctx context.Context, key string, value []byte) error {
	if s.failWrites {
		return errDiskFull
	}
	return s.RecordStore.WriteRecord(ctx, key, value)
}
