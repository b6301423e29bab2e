package service

import (
	"log"
	"time"

	"github.com/BrandonDHaskell/Portunus/locker/internal/locker/hw"
	"github.com/BrandonDHaskell/Portunus/locker/internal/locker/types"
)

const DefaultChildLockTimeout = 60 * time.Second

// Keypad shortcuts honoured while the child lock is released.
const (
	keyEngageNow    uint8 = 1 // long press
	keyResetTimeout uint8 = 4 // short press
)

// ChildLock gates the device's screen and power button. While engaged the
// screen is always disabled and the power button is disabled only while the
// device is running, so a stopped device can always be powered off.
type ChildLock struct {
	pub      Publisher
	surfaces hw.Surfaces
	timeout  time.Duration
	logger   *log.Logger

	engaged       bool
	deviceRunning bool
	counting      bool
	releasedAt    Millis
}

func NewChildLock(pub Publisher, surfaces hw.Surfaces, timeout time.Duration, logger *log.Logger) *ChildLock {
	if timeout <= 0 {
		timeout = DefaultChildLockTimeout
	}
	return &ChildLock{
		pub:           pub,
		surfaces:      surfaces,
		timeout:       timeout,
		logger:        orDiscard(logger),
		engaged:       true,
		deviceRunning: true,
	}
}

func (c *ChildLock) Name() string { return "childlock" }

func (c *ChildLock) Topics() []types.Topic {
	return []types.Topic{types.TopicChildLock, types.TopicDeviceRunning, types.TopicKeypad}
}

func (c *ChildLock) Start(now Millis) {
	c.apply()
	c.logger.Printf("started engaged=%t running=%t", c.engaged, c.deviceRunning)
}

func (c *ChildLock) Handle(msg types.Message, now Millis) {
	switch msg.Kind {
	case types.KindChildLockRelease:
		c.Release(now)
	case types.KindChildLockEngage:
		c.Engage()
	case types.KindChildLockResetTimeout:
		c.resetTimeout(now)
	case types.KindDeviceRunningChanged:
		c.deviceRunning = msg.Arg == 1
		c.logger.Printf("device running=%t", c.deviceRunning)
		if c.engaged {
			c.apply()
		}
	case types.KindDigitLongPressed:
		if msg.Arg == keyEngageNow && !c.engaged {
			c.logger.Printf("key %d long press, engaging", msg.Arg)
			c.Engage()
		}
	case types.KindDigitPressed:
		if msg.Arg == keyResetTimeout {
			c.resetTimeout(now)
		}
	}
}

func (c *ChildLock) Step(now Millis) {
	if !c.engaged && c.counting && Since(now, c.releasedAt) >= ms(c.timeout) {
		c.logger.Printf("release timed out, engaging")
		c.Engage()
	}
}

// Engage locks the surfaces for the current running state. Calling it while
// already engaged re-applies the same outputs and touches no timer.
func (c *ChildLock) Engage() {
	wasReleased := !c.engaged
	c.engaged = true
	c.counting = false
	c.apply()

	c.emit(types.ChildLockChanged(true))
	if wasReleased {
		c.logger.Printf("engaged running=%t", c.deviceRunning)
		c.emit(types.Feedback(types.LEDLocked))
	}
}

// Release unlocks both surfaces and starts the auto-engage countdown.
func (c *ChildLock) Release(now Millis) {
	c.engaged = false
	c.counting = true
	c.releasedAt = now
	c.apply()
	c.logger.Printf("released for %s", c.timeout)
	c.emit(types.ChildLockChanged(false), types.Feedback(types.LEDChildUnlocked))
}

func (c *ChildLock) resetTimeout(now Millis) {
	if c.engaged {
		return
	}
	c.releasedAt = now
	c.counting = true
	c.logger.Printf("release timeout restarted")
}

func (c *ChildLock) apply() {
	switch {
	case !c.engaged:
		c.surfaces.SetPowerButton(true)
		c.surfaces.SetScreen(true)
	case c.deviceRunning:
		c.surfaces.SetPowerButton(false)
		c.surfaces.SetScreen(false)
	default:
		c.surfaces.SetPowerButton(true)
		c.surfaces.SetScreen(false)
	}
}

func (c *ChildLock) Engaged() bool { return c.engaged }

func (c *ChildLock) DeviceRunning() bool { return c.deviceRunning }

func (c *ChildLock) Status() types.ChildLockStatus {
	power := !c.engaged || !c.deviceRunning
	return types.ChildLockStatus{
		Engaged:            c.engaged,
		DeviceRunning:      c.deviceRunning,
		PowerButtonEnabled: power,
		ScreenEnabled:      !c.engaged,
	}
}

func (c *ChildLock) emit(msgs ...types.Message) {
	emit(c.pub, c.logger, msgs...)
}
