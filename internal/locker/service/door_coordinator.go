package service

import (
	"log"
	"time"

	"github.com/BrandonDHaskell/Portunus/locker/internal/locker/hw"
	"github.com/BrandonDHaskell/Portunus/locker/internal/locker/types"
)

const (
	DefaultMagnetDelay   = 1500 * time.Millisecond
	DefaultReengageDelay = 100 * time.Millisecond
)

type DoorTimings struct {
	// MagnetDelay is how long a released door stays unpowered after it
	// opens before its magnet is re-asserted.
	MagnetDelay time.Duration
	// ReengageDelay is how long after a released door closes before its
	// magnet is re-asserted.
	ReengageDelay time.Duration
}

// DoorPhase is the position of one door in its release cycle. Intrusion is
// tracked separately and can accompany any phase.
type DoorPhase uint8

const (
	PhaseLocked      DoorPhase = iota
	PhaseReleased              // magnet off, waiting for the door to open
	PhaseOpen                  // opened after release, magnet still off
	PhaseOpenLatched           // opened after release, magnet re-asserted
	PhaseClosing               // closed after release, re-engage pending
)

func (p DoorPhase) String() string {
	switch p {
	case PhaseLocked:
		return "locked"
	case PhaseReleased:
		return "released"
	case PhaseOpen:
		return "open"
	case PhaseOpenLatched:
		return "open_latched"
	case PhaseClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// Released reports whether a door in this phase may be opened without
// raising the alarm.
func (p DoorPhase) Released() bool {
	return p == PhaseReleased || p == PhaseOpen || p == PhaseOpenLatched
}

type doorLock struct {
	phase    DoorPhase
	opened   bool // last sensor report
	alarm    bool
	magnet   bool
	openedAt Millis
	closedAt Millis
}

// DoorCoordinator runs the front and top door locks: release on request,
// timed magnet re-engagement, intrusion alarms and the shared door status.
type DoorCoordinator struct {
	pub     Publisher
	magnets hw.Magnets
	timings DoorTimings
	logger  *log.Logger

	doors          [len(types.Doors)]doorLock
	anyOpen        bool
	waitingForOpen bool
}

func NewDoorCoordinator(pub Publisher, magnets hw.Magnets, timings DoorTimings, logger *log.Logger) *DoorCoordinator {
	if timings.MagnetDelay <= 0 {
		timings.MagnetDelay = DefaultMagnetDelay
	}
	if timings.ReengageDelay <= 0 {
		timings.ReengageDelay = DefaultReengageDelay
	}
	return &DoorCoordinator{
		pub:     pub,
		magnets: magnets,
		timings: timings,
		logger:  orDiscard(logger),
	}
}

func (c *DoorCoordinator) Name() string { return "doors" }

func (c *DoorCoordinator) Topics() []types.Topic {
	return []types.Topic{types.TopicDoor, types.TopicDoorSensor}
}

func (c *DoorCoordinator) Start(now Millis) {
	c.lockAll(false)
	c.logger.Printf("started, all doors locked")
}

func (c *DoorCoordinator) Handle(msg types.Message, now Millis) {
	switch msg.Kind {
	case types.KindDoorRelease:
		c.release(types.DoorSet(msg.Arg), now)
	case types.KindDoorOpened, types.KindDoorClosed:
		d := types.Door(msg.Arg)
		if !d.Valid() {
			c.logger.Printf("sensor event for unknown door %d", msg.Arg)
			return
		}
		if msg.Kind == types.KindDoorOpened {
			c.opened(d, now)
		} else {
			c.closed(d, now)
		}
		c.afterSensor()
	}
}

// Step applies the timed magnet transitions. Elapsed time is computed with
// Since so a clock wrap between the two readings is harmless.
func (c *DoorCoordinator) Step(now Millis) {
	for _, d := range types.Doors {
		dl := &c.doors[d]
		switch dl.phase {
		case PhaseOpen:
			if dl.opened && Since(now, dl.openedAt) >= ms(c.timings.MagnetDelay) {
				c.setMagnet(d, true)
				dl.phase = PhaseOpenLatched
				c.logger.Printf("door %s magnet re-asserted while open", d)
			}
		case PhaseClosing:
			if Since(now, dl.closedAt) >= ms(c.timings.ReengageDelay) {
				c.setMagnet(d, true)
				dl.phase = PhaseLocked
				c.logger.Printf("door %s re-engaged", d)
			}
		}
	}
}

func (c *DoorCoordinator) release(set types.DoorSet, now Millis) {
	if set&^types.SetBoth != 0 || set == 0 {
		c.logger.Printf("release ignored: bad door set %#x", uint8(set))
		return
	}
	for _, d := range types.Doors {
		if !set.Has(d) {
			continue
		}
		dl := &c.doors[d]
		c.setMagnet(d, false)
		if dl.opened {
			dl.phase = PhaseOpen
			dl.openedAt = now
		} else {
			dl.phase = PhaseReleased
		}
	}
	c.waitingForOpen = true
	c.logger.Printf("released doors=%s", set)
	c.emit(types.Feedback(types.SoundDoorReleased), types.Feedback(types.LEDToBeOpened))
}

func (c *DoorCoordinator) opened(d types.Door, now Millis) {
	dl := &c.doors[d]
	dl.opened = true

	switch {
	case dl.phase == PhaseReleased:
		dl.phase = PhaseOpen
		dl.openedAt = now
		c.logger.Printf("door %s opened after release", d)
	case dl.phase.Released():
		// repeated report for a door already open
	case !dl.alarm:
		alarmed := c.alarmed()
		dl.alarm = true
		c.logger.Printf("INTRUSION door %s opened without release", d)
		c.emit(types.IntrusionStart(d))
		if !alarmed {
			c.emit(types.Feedback(types.SoundAlarmStart))
		}
	}
}

func (c *DoorCoordinator) closed(d types.Door, now Millis) {
	dl := &c.doors[d]
	dl.opened = false

	if dl.alarm {
		dl.alarm = false
		c.logger.Printf("door %s closed, intrusion cleared", d)
		c.emit(types.IntrusionStop(d))
		if !c.alarmed() {
			c.emit(types.Feedback(types.SoundAlarmStop))
		}
	}
	if dl.phase.Released() {
		dl.phase = PhaseClosing
		dl.closedAt = now
	}
}

// afterSensor restores the all-locked baseline once every door is shut and
// publishes the door status on edges.
func (c *DoorCoordinator) afterSensor() {
	anyOpen := false
	pending := false
	for _, d := range types.Doors {
		anyOpen = anyOpen || c.doors[d].opened
		pending = pending || c.doors[d].phase != PhaseLocked
	}
	if !anyOpen && pending {
		c.lockAll(true)
	}

	if anyOpen != c.anyOpen {
		c.anyOpen = anyOpen
		led := types.LEDLocked
		if anyOpen {
			led = types.LEDUnlocked
		}
		c.waitingForOpen = c.waitingForOpen && !anyOpen
		c.emit(types.DoorsStatusChanged(anyOpen), types.Feedback(led))
		return
	}
	if c.waitingForOpen && anyOpen {
		c.waitingForOpen = false
		c.emit(types.Feedback(types.LEDUnlocked))
	}
}

func (c *DoorCoordinator) lockAll(sound bool) {
	for _, d := range types.Doors {
		c.setMagnet(d, true)
		c.doors[d].phase = PhaseLocked
	}
	c.waitingForOpen = false
	if sound {
		c.logger.Printf("all doors closed, locking all")
		c.emit(types.Feedback(types.SoundDoorClosed))
	}
}

func (c *DoorCoordinator) setMagnet(d types.Door, engaged bool) {
	c.doors[d].magnet = engaged
	c.magnets.SetMagnet(d, engaged)
}

func (c *DoorCoordinator) alarmed() bool {
	for _, d := range types.Doors {
		if c.doors[d].alarm {
			return true
		}
	}
	return false
}

func (c *DoorCoordinator) Phase(d types.Door) DoorPhase { return c.doors[d].phase }

func (c *DoorCoordinator) Alarm(d types.Door) bool { return c.doors[d].alarm }

func (c *DoorCoordinator) Status() []types.DoorStatus {
	out := make([]types.DoorStatus, 0, len(types.Doors))
	for _, d := range types.Doors {
		dl := c.doors[d]
		out = append(out, types.DoorStatus{
			Door:          d.String(),
			Phase:         dl.phase.String(),
			Opened:        dl.opened,
			Alarm:         dl.alarm,
			MagnetEngaged: dl.magnet,
		})
	}
	return out
}

func (c *DoorCoordinator) emit(msgs ...types.Message) {
	emit(c.pub, c.logger, msgs...)
}
