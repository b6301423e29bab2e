package service

import (
	"sync/atomic"
	"time"

	"github.com/BrandonDHaskell/Portunus/locker/internal/locker/types"
)

// DropCounter reports messages refused by full subscriber queues.
type DropCounter interface {
	Drops() uint64
}

// StatusBoard publishes a snapshot of every component once per tick. It is
// refreshed from the scheduler goroutine and read from any other.
type StatusBoard struct {
	bootID    string
	session   *PasswordSession
	doors     *DoorCoordinator
	childLock *ChildLock
	indicator *Indicator
	light     *LightTask
	drops     DropCounter

	current atomic.Pointer[types.StatusResponse]
}

type StatusSources struct {
	Session   *PasswordSession
	Doors     *DoorCoordinator
	ChildLock *ChildLock
	Indicator *Indicator
	Light     *LightTask
	Drops     DropCounter
}

func NewStatusBoard(bootID string, src StatusSources) *StatusBoard {
	b := &StatusBoard{
		bootID:    bootID,
		session:   src.Session,
		doors:     src.Doors,
		childLock: src.ChildLock,
		indicator: src.Indicator,
		light:     src.Light,
		drops:     src.Drops,
	}
	b.current.Store(&types.StatusResponse{OK: false, BootID: bootID})
	return b
}

// Refresh matches TickObserver so it can be passed to Scheduler.Observe.
func (b *StatusBoard) Refresh(tick uint64, now Millis) {
	st := &types.StatusResponse{
		OK:         true,
		BootID:     b.bootID,
		Tick:       tick,
		UptimeMs:   uint32(now),
		ServerTime: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if b.session != nil {
		st.Password = b.session.Status()
	}
	if b.doors != nil {
		st.Doors = b.doors.Status()
	}
	if b.childLock != nil {
		st.ChildLock = b.childLock.Status()
	}
	if b.indicator != nil {
		st.Indicator = b.indicator.Status()
	}
	if b.light != nil {
		st.Light = b.light.Status()
	}
	if b.drops != nil {
		st.QueueDrops = b.drops.Drops()
	}
	b.current.Store(st)
}

// Current returns the latest snapshot. OK is false until the first tick.
func (b *StatusBoard) Current() types.StatusResponse {
	st := *b.current.Load()
	st.Doors = append([]types.DoorStatus(nil), st.Doors...)
	return st
}
