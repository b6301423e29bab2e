// Package hw defines the output capabilities the locker state machines
// drive, so the machines stay testable without real I/O.
package hw

import (
	"io"
	"log"
	"sync"

	"github.com/BrandonDHaskell/Portunus/locker/internal/locker/types"
)

// Magnets drives the door lock electromagnets. engaged=true powers the
// magnet (door held locked).
type Magnets interface {
	SetMagnet(d types.Door, engaged bool)
}

// Surfaces enables or disables the enclosure's device controls.
type Surfaces interface {
	SetPowerButton(enabled bool)
	SetScreen(enabled bool)
}

type Light interface {
	SetLight(on bool, level uint8)
}

// Sim is an in-process implementation of every capability. It starts in
// the power-on default: magnets engaged, surfaces disabled, light off.
type Sim struct {
	mu     sync.Mutex
	logger *log.Logger

	magnets      [len(types.Doors)]bool
	magnetWrites [len(types.Doors)]int
	power        bool
	screen       bool
	lightOn      bool
	lightLevel   uint8
}

func NewSim(logger *log.Logger) *Sim {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &Sim{logger: logger}
	for i := range s.magnets {
		s.magnets[i] = true
	}
	return s
}

func (s *Sim) SetMagnet(d types.Door, engaged bool) {
	if !d.Valid() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.magnetWrites[d]++
	if s.magnets[d] != engaged {
		s.logger.Printf("magnet %s engaged=%t", d, engaged)
	}
	s.magnets[d] = engaged
}

func (s *Sim) SetPowerButton(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.power != enabled {
		s.logger.Printf("power button enabled=%t", enabled)
	}
	s.power = enabled
}

func (s *Sim) SetScreen(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.screen != enabled {
		s.logger.Printf("screen enabled=%t", enabled)
	}
	s.screen = enabled
}

func (s *Sim) SetLight(on bool, level uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lightOn != on || s.lightLevel != level {
		s.logger.Printf("light on=%t level=%d", on, level)
	}
	s.lightOn = on
	s.lightLevel = level
}

func (s *Sim) MagnetEngaged(d types.Door) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.magnets[d]
}

// MagnetWrites counts SetMagnet calls for d, including redundant ones.
func (s *Sim) MagnetWrites(d types.Door) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.magnetWrites[d]
}

func (s *Sim) PowerButtonEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.power
}

func (s *Sim) ScreenEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.screen
}

func (s *Sim) Light() (bool, uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lightOn, s.lightLevel
}
