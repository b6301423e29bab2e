package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/BrandonDHaskell/Portunus/locker/internal/locker/store"
	"github.com/BrandonDHaskell/Portunus/locker/internal/locker/types"
)

// Record names and layout of the persisted settings. Each record carries
// its own validity convention so one corrupt record never invalidates
// another.
const (
	recordPassword   = "password"    // magic byte + PasswordLength ASCII digits
	recordLightState = "light_state" // 1 = on, anything else = off
	recordDimLevel   = "dim_level"   // 0..MaxDimLevel

	passwordMagic byte = 0xA5

	MaxDimLevel     uint8 = 100
	DefaultDimLevel uint8 = 50
)

// ErrDefaultNotPersisted is returned with the factory code when the stored
// code was missing or invalid and writing the default back failed. The
// returned code is still the one to adopt.
var ErrDefaultNotPersisted = errors.New("factory code not persisted")

// Settings encodes the locker's durable state on top of a RecordStore.
type Settings struct {
	store  store.RecordStore
	logger *log.Logger
}

func NewSettings(st store.RecordStore, logger *log.Logger) *Settings {
	return &Settings{store: st, logger: orDiscard(logger)}
}

// LoadCode returns the persisted code. A missing record or a bad magic
// byte means the record was never written or was torn by power loss: the
// factory code is written back and adopted.
func (s *Settings) LoadCode(ctx context.Context) (types.Code, error) {
	rec, err := s.store.ReadRecord(ctx, recordPassword)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.logger.Printf("no stored code, initialising factory code")
		return types.FactoryCode, s.restoreCode(ctx)
	case err != nil:
		return types.FactoryCode, fmt.Errorf("load code: %w", err)
	case len(rec) != 1+types.PasswordLength || rec[0] != passwordMagic:
		s.logger.Printf("stored code invalid (len=%d), restoring factory code", len(rec))
		return types.FactoryCode, s.restoreCode(ctx)
	}

	var c types.Code
	for i := range c {
		b := rec[1+i]
		if b < '0' || b > '9' {
			b = '0'
		}
		c[i] = b
	}
	return c, nil
}

func (s *Settings) restoreCode(ctx context.Context) error {
	if err := s.SaveCode(ctx, types.FactoryCode); err != nil {
		return fmt.Errorf("%w: %w", ErrDefaultNotPersisted, err)
	}
	return nil
}

// SaveCode writes magic and digits as one record.
func (s *Settings) SaveCode(ctx context.Context, c types.Code) error {
	rec := make([]byte, 0, 1+types.PasswordLength)
	rec = append(rec, passwordMagic)
	rec = append(rec, c[:]...)
	if err := s.store.WriteRecord(ctx, recordPassword, rec); err != nil {
		return fmt.Errorf("save code: %w", err)
	}
	return nil
}

// LoadLight returns the saved on/off state and dim level. Missing or out
// of range values fall back to off and DefaultDimLevel.
func (s *Settings) LoadLight(ctx context.Context) (on bool, level uint8, err error) {
	level = DefaultDimLevel

	rec, err := s.store.ReadRecord(ctx, recordLightState)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return false, level, fmt.Errorf("load light state: %w", err)
	default:
		on = len(rec) == 1 && rec[0] == 1
	}

	rec, err = s.store.ReadRecord(ctx, recordDimLevel)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return on, level, fmt.Errorf("load dim level: %w", err)
	case len(rec) == 1 && rec[0] <= MaxDimLevel:
		level = rec[0]
	}
	return on, level, nil
}

func (s *Settings) SaveLightState(ctx context.Context, on bool) error {
	var b byte
	if on {
		b = 1
	}
	if err := s.store.WriteRecord(ctx, recordLightState, []byte{b}); err != nil {
		return fmt.Errorf("save light state: %w", err)
	}
	return nil
}

func (s *Settings) SaveDimLevel(ctx context.Context, level uint8) error {
	if level > MaxDimLevel {
		return fmt.Errorf("save dim level: %d out of range", level)
	}
	if err := s.store.WriteRecord(ctx, recordDimLevel, []byte{level}); err != nil {
		return fmt.Errorf("save dim level: %w", err)
	}
	return nil
}

// FactoryReset erases every record. Subsequent loads fall back to their
// defaults.
func (s *Settings) FactoryReset(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("factory reset: %w", err)
	}
	s.logger.Printf("all settings erased")
	return nil
}

func orDiscard(logger *log.Logger) *log.Logger {
	if logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return logger
}
