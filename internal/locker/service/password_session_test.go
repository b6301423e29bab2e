package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Portunus/locker/internal/locker/service"
	"github.com/BrandonDHaskell/Portunus/locker/internal/locker/types"
)

func newTestSession(t *testing.T) (*service.PasswordSession, *recorder, *service.Settings) {
	t.Helper()
	settings, _ := newTestSettings(t)
	rec := &recorder{}
	s := service.NewPasswordSession(rec, settings, service.PasswordSessionConfig{}, nil)
	s.Start(0)
	rec.take()
	return s, rec, settings
}

// unlock enters the factory code and leaves the session waiting for a
// selection.
func unlock(t *testing.T, s *service.PasswordSession, rec *recorder, start service.Millis) service.Millis {
	t.Helper()
	last := pressDigits(s, "1234", start)
	require.Equal(t, service.StateWaitingSelection, s.State())
	rec.take()
	return last
}

// ── Code entry ───────────────────────────────────────────────────────────────

func TestSession_CorrectCode_EmitsOneCorrect(t *testing.T) {
	s, rec, _ := newTestSession(t)

	pressDigits(s, "1234", 0)

	assert.Equal(t, 1, rec.count(types.KindPasswordCorrect))
	assert.Equal(t, 0, rec.count(types.KindPasswordWrong))
	assert.Equal(t, 3, rec.count(types.KindDigitAccepted))
	assert.Equal(t, 1, rec.countFeedback(types.SoundCorrectPassword))
	assert.Equal(t, service.StateWaitingSelection, s.State())
	assert.Zero(t, s.Entered())
}

func TestSession_WrongCode_EmitsOneWrongAndReturnsIdle(t *testing.T) {
	for _, code := range []string{"1233", "4321", "1111", "4444", "1243"} {
		t.Run(code, func(t *testing.T) {
			s, rec, _ := newTestSession(t)

			pressDigits(s, code, 0)

			assert.Equal(t, 1, rec.count(types.KindPasswordWrong))
			assert.Zero(t, rec.count(types.KindPasswordCorrect))
			assert.Equal(t, service.StateIdle, s.State())
			assert.Zero(t, s.Entered())
		})
	}
}

func TestSession_WrongThenCorrect_NoLockout(t *testing.T) {
	s, rec, _ := newTestSession(t)

	last := pressDigits(s, "4321", 0)
	pressDigits(s, "1234", last+100)

	assert.Equal(t, 1, rec.count(types.KindPasswordWrong))
	assert.Equal(t, 1, rec.count(types.KindPasswordCorrect))
	assert.Equal(t, service.StateWaitingSelection, s.State())
}

func TestSession_FirstDigitMovesToEntering(t *testing.T) {
	s, rec, _ := newTestSession(t)

	s.Handle(types.DigitPressed(3), 0)

	assert.Equal(t, service.StateEntering, s.State())
	assert.Equal(t, 1, s.Entered())
	assert.True(t, rec.has(types.PasswordOutcome(types.KindDigitAccepted, 1)))
	assert.Equal(t, 1, rec.countFeedback(types.SoundKeypadPress))
}

func TestSession_OutOfRangeDigitRejected(t *testing.T) {
	s, rec, _ := newTestSession(t)

	for _, d := range []uint8{0, 5, 9, 12} {
		s.Handle(types.DigitPressed(d), 0)
	}

	assert.Equal(t, service.StateIdle, s.State())
	assert.Empty(t, rec.msgs)
}

func TestSession_OutOfRangeDigitDuringEntryKeepsBuffer(t *testing.T) {
	s, rec, _ := newTestSession(t)

	last := pressDigits(s, "12", 0)
	s.Handle(types.DigitPressed(7), last+100)
	pressDigits(s, "34", last+200)

	assert.Equal(t, 1, rec.count(types.KindPasswordCorrect))
	assert.Equal(t, service.StateWaitingSelection, s.State())
}

// ── Selection ────────────────────────────────────────────────────────────────

func TestSession_SelectionDispatch(t *testing.T) {
	cases := []struct {
		digit uint8
		want  types.Message
		sound types.Pattern
	}{
		{1, types.DoorRelease(types.SetTop), types.SoundTopSelected},
		{2, types.DoorRelease(types.SetFront), types.SoundFrontSelected},
		{3, types.DoorRelease(types.SetBoth), types.SoundBothSelected},
		{4, types.ChildLockRelease(), types.SoundChildLockSelected},
	}
	for _, tc := range cases {
		t.Run(tc.want.String(), func(t *testing.T) {
			s, rec, _ := newTestSession(t)
			last := unlock(t, s, rec, 0)

			s.Handle(types.DigitPressed(tc.digit), last+100)

			assert.True(t, rec.has(tc.want))
			assert.Equal(t, 1, rec.countFeedback(tc.sound))
			assert.True(t, rec.has(types.PasswordOutcome(types.KindSelectionDispatched, tc.digit)))
			assert.Equal(t, service.StateIdle, s.State())
		})
	}
}

func TestSession_InvalidSelectionResetsWithoutRelease(t *testing.T) {
	s, rec, _ := newTestSession(t)
	last := unlock(t, s, rec, 0)

	s.Handle(types.DigitPressed(7), last+100)

	assert.Equal(t, service.StateIdle, s.State())
	assert.Zero(t, rec.count(types.KindDoorRelease))
	assert.Zero(t, rec.count(types.KindChildLockRelease))
	assert.True(t, rec.has(types.PasswordOutcome(types.KindSelectionInvalid, 7)))
}

// ── Timeouts ─────────────────────────────────────────────────────────────────

func TestSession_IdleTimeoutDiscardsPartialEntry(t *testing.T) {
	s, rec, _ := newTestSession(t)
	last := pressDigits(s, "12", 0)

	s.Step(last + 3000)
	assert.Equal(t, service.StateEntering, s.State(), "exactly one timeout interval is still allowed")

	s.Step(last + 3100)
	assert.Equal(t, service.StateIdle, s.State())
	assert.Zero(t, s.Entered())
	assert.Equal(t, 1, rec.count(types.KindSessionTimeout))

	// A fresh entry after the timeout starts from scratch.
	pressDigits(s, "1234", last+3200)
	assert.Equal(t, 1, rec.count(types.KindPasswordCorrect))
}

func TestSession_SelectionWindowExpires(t *testing.T) {
	settings, _ := newTestSettings(t)
	rec := &recorder{}
	s := service.NewPasswordSession(rec, settings, service.PasswordSessionConfig{
		SelectionTimeout: time.Second,
	}, nil)
	s.Start(0)
	last := unlock(t, s, rec, 0)

	s.Step(last + 1000)
	assert.Equal(t, service.StateWaitingSelection, s.State())
	s.Step(last + 1001)
	assert.Equal(t, service.StateIdle, s.State())

	// The selection digit now starts a new entry instead of releasing.
	s.Handle(types.DigitPressed(3), last+1100)
	assert.Zero(t, rec.count(types.KindDoorRelease))
	assert.Equal(t, service.StateEntering, s.State())
}

func TestSession_TimeoutAcrossClockWrap(t *testing.T) {
	s, _, _ := newTestSession(t)
	start := service.Millis(0xFFFFFF00)
	last := pressDigits(s, "12", start) // 0xFFFFFF64

	s.Step(last + 2000) // wrapped past zero
	assert.Equal(t, service.StateEntering, s.State())

	s.Step(last + 3001)
	assert.Equal(t, service.StateIdle, s.State())
}

// ── Code change ──────────────────────────────────────────────────────────────

func TestSession_ChangeRoundTripSurvivesReload(t *testing.T) {
	s, rec, settings := newTestSession(t)
	last := unlock(t, s, rec, 0)

	s.Handle(types.ChangeTrigger(), last+100)
	require.Equal(t, service.StateChangeEnter, s.State())
	assert.Equal(t, 3, rec.countFeedback(types.SoundButtonPress))

	last = pressDigits(s, "4321", last+200)
	require.Equal(t, service.StateChangeConfirm, s.State())
	assert.Equal(t, 1, rec.count(types.KindChangeStaged))

	pressDigits(s, "4321", last+100)
	assert.Equal(t, service.StateIdle, s.State())
	assert.Equal(t, 1, rec.count(types.KindChangeSucceeded))
	assert.Equal(t, "4321", s.Code().String())

	// A new session over the same storage sees the committed code.
	reloaded := service.NewPasswordSession(&recorder{}, settings, service.PasswordSessionConfig{}, nil)
	reloaded.Start(0)
	assert.Equal(t, "4321", reloaded.Code().String())

	stored, err := settings.LoadCode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "4321", stored.String())
}

func TestSession_ChangeMismatchKeepsCode(t *testing.T) {
	s, rec, settings := newTestSession(t)
	last := unlock(t, s, rec, 0)

	s.Handle(types.ChangeTrigger(), last+100)
	last = pressDigits(s, "4321", last+200)
	pressDigits(s, "4322", last+100)

	assert.Equal(t, service.StateIdle, s.State())
	assert.Equal(t, 1, rec.count(types.KindChangeFailed))
	assert.Zero(t, rec.count(types.KindChangeSucceeded))
	assert.Equal(t, types.FactoryCode, s.Code())

	stored, err := settings.LoadCode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.FactoryCode, stored)
}

func TestSession_ChangeTriggerOutsideSelectionIgnored(t *testing.T) {
	s, rec, _ := newTestSession(t)

	s.Handle(types.ChangeTrigger(), 0)
	assert.Equal(t, service.StateIdle, s.State())

	pressDigits(s, "12", 100)
	s.Handle(types.ChangeTrigger(), 300)
	assert.Equal(t, service.StateEntering, s.State())
	assert.Zero(t, rec.count(types.KindChangeStarted))
}

func TestSession_ChangeDoesNotConsumeSelection(t *testing.T) {
	s, rec, _ := newTestSession(t)
	last := unlock(t, s, rec, 0)

	s.Handle(types.ChangeTrigger(), last+100)

	assert.Zero(t, rec.count(types.KindDoorRelease))
	assert.Zero(t, rec.count(types.KindSelectionDispatched))
}

// ── Commands ─────────────────────────────────────────────────────────────────

func TestSession_ReloadPicksUpStoredCode(t *testing.T) {
	s, rec, settings := newTestSession(t)
	code, err := types.ParseCode("2468")
	require.NoError(t, err)
	require.NoError(t, settings.SaveCode(context.Background(), code))

	s.Handle(types.ReloadRequest(), 0)

	assert.Equal(t, code, s.Code())
	assert.Equal(t, service.StateIdle, s.State())
	assert.Equal(t, 1, rec.count(types.KindCodeReloaded))
}

func TestSession_ReloadAdoptsDefaultWhenStoredCodeIsInvalid(t *testing.T) {
	ctx := context.Background()
	st := newFaultyStore()
	code, err := types.ParseCode("2413")
	require.NoError(t, err)
	settings := service.NewSettings(st, nil)
	require.NoError(t, settings.SaveCode(ctx, code))

	s := service.NewPasswordSession(&recorder{}, settings, service.PasswordSessionConfig{}, nil)
	s.Start(0)
	require.Equal(t, code, s.Code())

	require.NoError(t, st.WriteRecord(ctx, "password", []byte{0x00, '2', '4'}))
	st.failWrites = true
	s.Handle(types.ReloadRequest(), 100)

	assert.Equal(t, types.FactoryCode, s.Code())
}

func TestSession_ReloadKeepsCodeWhenStoreUnreadable(t *testing.T) {
	st := newFaultyStore()
	code, err := types.ParseCode("2413")
	require.NoError(t, err)
	settings := service.NewSettings(st, nil)
	require.NoError(t, settings.SaveCode(context.Background(), code))

	s := service.NewPasswordSession(&recorder{}, settings, service.PasswordSessionConfig{}, nil)
	s.Start(0)
	require.Equal(t, code, s.Code())

	st.failReads = true
	s.Handle(types.ReloadRequest(), 100)

	assert.Equal(t, code, s.Code())
}

func TestSession_ReloadKeepsSessionState(t *testing.T) {
	s, _, _ := newTestSession(t)
	pressDigits(s, "12", 0)

	s.Handle(types.ReloadRequest(), 150)

	assert.Equal(t, service.StateEntering, s.State())
	assert.Equal(t, 2, s.Entered())
}

func TestSession_FactoryRequestRestoresDefault(t *testing.T) {
	s, rec, settings := newTestSession(t)
	code, err := types.ParseCode("2468")
	require.NoError(t, err)
	require.NoError(t, settings.SaveCode(context.Background(), code))
	s.Handle(types.ReloadRequest(), 0)
	require.Equal(t, code, s.Code())

	s.Handle(types.FactoryRequest(), 100)

	assert.Equal(t, types.FactoryCode, s.Code())
	assert.Equal(t, 1, rec.count(types.KindCodeFactoryReset))
	stored, err := settings.LoadCode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.FactoryCode, stored)
}
