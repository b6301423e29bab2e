package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Portunus/locker/internal/locker/hw"
	"github.com/BrandonDHaskell/Portunus/locker/internal/locker/service"
	"github.com/BrandonDHaskell/Portunus/locker/internal/locker/types"
)

func newTestChildLock(t *testing.T) (*service.ChildLock, *hw.Sim, *recorder) {
	t.Helper()
	sim := hw.NewSim(nil)
	rec := &recorder{}
	c := service.NewChildLock(rec, sim, 0, nil)
	c.Start(0)
	return c, sim, rec
}

func TestChildLock_StartsEngagedWithBothSurfacesLocked(t *testing.T) {
	c, sim, _ := newTestChildLock(t)

	assert.True(t, c.Engaged())
	assert.True(t, c.DeviceRunning())
	assert.False(t, sim.PowerButtonEnabled())
	assert.False(t, sim.ScreenEnabled())
}

func TestChildLock_DeviceStopsWhileEngaged(t *testing.T) {
	c, sim, _ := newTestChildLock(t)

	c.Handle(types.DeviceRunningChanged(false), 100)

	assert.True(t, c.Engaged())
	assert.True(t, sim.PowerButtonEnabled(), "power button usable on a stopped device")
	assert.False(t, sim.ScreenEnabled())

	c.Handle(types.DeviceRunningChanged(true), 200)
	assert.False(t, sim.PowerButtonEnabled())
	assert.False(t, sim.ScreenEnabled())
}

func TestChildLock_ReleaseUnlocksAndAutoEngages(t *testing.T) {
	c, sim, rec := newTestChildLock(t)

	c.Handle(types.ChildLockRelease(), 1000)
	assert.False(t, c.Engaged())
	assert.True(t, sim.PowerButtonEnabled())
	assert.True(t, sim.ScreenEnabled())
	assert.True(t, rec.has(types.ChildLockChanged(false)))
	assert.Equal(t, 1, rec.countFeedback(types.LEDChildUnlocked))

	c.Step(60999)
	assert.False(t, c.Engaged())

	c.Step(61000)
	assert.True(t, c.Engaged())
	assert.False(t, sim.PowerButtonEnabled())
	assert.False(t, sim.ScreenEnabled())
	assert.True(t, rec.has(types.ChildLockChanged(true)))
	assert.Equal(t, 1, rec.countFeedback(types.LEDLocked))
}

func TestChildLock_EngageIsIdempotent(t *testing.T) {
	c, sim, rec := newTestChildLock(t)
	c.Handle(types.DeviceRunningChanged(false), 0)

	c.Handle(types.ChildLockEngage(), 100)
	c.Handle(types.ChildLockEngage(), 200)

	assert.True(t, c.Engaged())
	assert.True(t, sim.PowerButtonEnabled())
	assert.False(t, sim.ScreenEnabled())
	assert.Equal(t, 2, rec.count(types.KindChildLockLocked))
	assert.Zero(t, rec.countFeedback(types.LEDLocked), "no transition, no LED change")

	// No countdown was started by the redundant engage.
	c.Step(1 << 30)
	assert.True(t, c.Engaged())
}

func TestChildLock_ResetTimeoutRestartsCountdown(t *testing.T) {
	c, _, _ := newTestChildLock(t)
	c.Handle(types.ChildLockRelease(), 0)

	c.Handle(types.ChildLockResetTimeout(), 30000)
	c.Step(60000)
	assert.False(t, c.Engaged())

	c.Step(89999)
	assert.False(t, c.Engaged())
	c.Step(90000)
	assert.True(t, c.Engaged())
}

func TestChildLock_ResetTimeoutWhileEngagedIgnored(t *testing.T) {
	c, sim, _ := newTestChildLock(t)

	c.Handle(types.ChildLockResetTimeout(), 0)
	c.Step(120000)

	assert.True(t, c.Engaged())
	assert.False(t, sim.ScreenEnabled())
}

func TestChildLock_RunningChangeWhileReleasedDeferred(t *testing.T) {
	c, sim, _ := newTestChildLock(t)
	c.Handle(types.ChildLockRelease(), 0)

	c.Handle(types.DeviceRunningChanged(false), 100)
	assert.False(t, c.DeviceRunning())
	assert.True(t, sim.PowerButtonEnabled())
	assert.True(t, sim.ScreenEnabled())

	c.Handle(types.ChildLockEngage(), 200)
	assert.True(t, sim.PowerButtonEnabled())
	assert.False(t, sim.ScreenEnabled())
}

func TestChildLock_KeypadShortcuts(t *testing.T) {
	c, _, _ := newTestChildLock(t)

	// Ignored while engaged.
	c.Handle(types.DigitLongPressed(1), 0)
	require.True(t, c.Engaged())

	c.Handle(types.ChildLockRelease(), 0)
	c.Handle(types.DigitPressed(4), 50000)
	c.Step(60000)
	assert.False(t, c.Engaged(), "key 4 restarted the countdown")

	c.Handle(types.DigitLongPressed(2), 60100)
	assert.False(t, c.Engaged())

	c.Handle(types.DigitLongPressed(1), 60200)
	assert.True(t, c.Engaged())
}

func TestChildLock_CountdownAcrossClockWrap(t *testing.T) {
	c, _, _ := newTestChildLock(t)
	released := service.Millis(0xFFFF0000)

	c.Handle(types.ChildLockRelease(), released)
	c.Step(released + 59999)
	assert.False(t, c.Engaged())
	c.Step(released + 60000)
	assert.True(t, c.Engaged())
}

func TestChildLock_StatusMirrorsSurfaces(t *testing.T) {
	c, sim, _ := newTestChildLock(t)
	c.Handle(types.DeviceRunningChanged(false), 0)

	st := c.Status()
	assert.Equal(t, sim.PowerButtonEnabled(), st.PowerButtonEnabled)
	assert.Equal(t, sim.ScreenEnabled(), st.ScreenEnabled)
	assert.True(t, st.Engaged)
	assert.False(t, st.DeviceRunning)
}
