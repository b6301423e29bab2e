package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/BrandonDHaskell/Portunus/locker/internal/locker/types"
)

const (
	DefaultDigitTimeout   = 3000 * time.Millisecond
	DefaultStorageTimeout = 2 * time.Second
)

// CodeStore persists the secret code. Settings implements it.
type CodeStore interface {
	LoadCode(ctx context.Context) (types.Code, error)
	SaveCode(ctx context.Context, c types.Code) error
}

type SessionState uint8

const (
	StateIdle SessionState = iota
	StateEntering
	StateWaitingSelection
	StateChangeEnter
	StateChangeConfirm
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEntering:
		return "entering"
	case StateWaitingSelection:
		return "waiting_selection"
	case StateChangeEnter:
		return "change_enter"
	case StateChangeConfirm:
		return "change_confirm"
	default:
		return "unknown"
	}
}

type PasswordSessionConfig struct {
	// DigitTimeout bounds the gap between digits while entering or
	// changing the code.
	DigitTimeout time.Duration
	// SelectionTimeout bounds the wait for a selection digit after a
	// correct code.  Defaults to DigitTimeout.
	SelectionTimeout time.Duration
	// StorageTimeout bounds each load or save of the code.
	StorageTimeout time.Duration
}

// selection maps a selection digit to the release it requests.
type selection struct {
	msg   types.Message
	sound types.Pattern
}

var selections = map[uint8]selection{
	1: {types.DoorRelease(types.SetTop), types.SoundTopSelected},
	2: {types.DoorRelease(types.SetFront), types.SoundFrontSelected},
	3: {types.DoorRelease(types.SetBoth), types.SoundBothSelected},
	4: {types.ChildLockRelease(), types.SoundChildLockSelected},
}

// PasswordSession owns the secret code and turns digit presses into
// pass/fail outcomes and release requests. It never touches hardware.
//
// All methods except the constructor run on the scheduler goroutine.
type PasswordSession struct {
	pub    Publisher
	codes  CodeStore
	cfg    PasswordSessionConfig
	logger *log.Logger

	code      types.Code
	state     SessionState
	buf       [types.PasswordLength]byte
	n         int
	staging   types.Code
	lastDigit Millis
}

func NewPasswordSession(pub Publisher, codes CodeStore, cfg PasswordSessionConfig, logger *log.Logger) *PasswordSession {
	if cfg.DigitTimeout <= 0 {
		cfg.DigitTimeout = DefaultDigitTimeout
	}
	if cfg.SelectionTimeout <= 0 {
		cfg.SelectionTimeout = cfg.DigitTimeout
	}
	if cfg.StorageTimeout <= 0 {
		cfg.StorageTimeout = DefaultStorageTimeout
	}
	return &PasswordSession{
		pub:    pub,
		codes:  codes,
		cfg:    cfg,
		logger: orDiscard(logger),
		code:   types.FactoryCode,
	}
}

func (p *PasswordSession) Name() string { return "password" }

func (p *PasswordSession) Topics() []types.Topic {
	return []types.Topic{types.TopicKeypad, types.TopicButton, types.TopicPasswordCommand}
}

func (p *PasswordSession) Start(now Millis) {
	p.reload()
	p.logger.Printf("started state=%s", p.state)
}

func (p *PasswordSession) Handle(msg types.Message, now Millis) {
	switch msg.Kind {
	case types.KindDigitPressed:
		p.digit(msg.Arg, now)

	case types.KindChangeTrigger:
		if p.state != StateWaitingSelection {
			p.logger.Printf("change trigger ignored state=%s", p.state)
			return
		}
		p.clear()
		p.state = StateChangeEnter
		p.lastDigit = now
		p.logger.Printf("code change started")
		p.emit(types.PasswordOutcome(types.KindChangeStarted, 0),
			types.Feedback(types.SoundButtonPress),
			types.Feedback(types.SoundButtonPress),
			types.Feedback(types.SoundButtonPress))

	case types.KindReloadRequest:
		p.reload()
		p.emit(types.PasswordOutcome(types.KindCodeReloaded, 0))

	case types.KindFactoryRequest:
		p.code = types.FactoryCode
		p.save()
		p.logger.Printf("factory code restored")
		p.emit(types.PasswordOutcome(types.KindCodeFactoryReset, 0))
	}
}

// Step resets an abandoned session. The comparison is strict: a session
// survives exactly one timeout interval after its last digit.
func (p *PasswordSession) Step(now Millis) {
	if p.state == StateIdle {
		return
	}
	limit := p.cfg.DigitTimeout
	if p.state == StateWaitingSelection {
		limit = p.cfg.SelectionTimeout
	}
	if Since(now, p.lastDigit) > ms(limit) {
		p.logger.Printf("timeout state=%s entered=%d", p.state, p.n)
		p.reset()
		p.emit(types.PasswordOutcome(types.KindSessionTimeout, 0))
	}
}

func (p *PasswordSession) State() SessionState { return p.state }

// Entered is the number of digits currently buffered.
func (p *PasswordSession) Entered() int { return p.n }

// Code returns the in-memory secret code.
func (p *PasswordSession) Code() types.Code { return p.code }

func (p *PasswordSession) Status() types.PasswordStatus {
	return types.PasswordStatus{State: p.state.String(), Entered: p.n}
}

func (p *PasswordSession) digit(d uint8, now Millis) {
	if p.state == StateWaitingSelection {
		p.selectRelease(d)
		return
	}
	if !types.ValidKey(d) {
		p.logger.Printf("digit rejected value=%d state=%s", d, p.state)
		return
	}
	if p.state == StateIdle {
		p.state = StateEntering
	}

	p.buf[p.n] = '0' + d
	p.n++
	p.lastDigit = now

	if p.n < types.PasswordLength {
		p.emit(types.PasswordOutcome(types.KindDigitAccepted, uint8(p.n)),
			types.Feedback(types.SoundKeypadPress))
		return
	}

	entered := types.Code(p.buf)
	p.clear()

	switch p.state {
	case StateEntering:
		if entered == p.code {
			p.state = StateWaitingSelection
			p.logger.Printf("code correct, waiting for selection")
			p.emit(types.PasswordOutcome(types.KindPasswordCorrect, 0),
				types.Feedback(types.SoundCorrectPassword))
			return
		}
		p.logger.Printf("code wrong")
		p.reset()
		p.emit(types.PasswordOutcome(types.KindPasswordWrong, 0),
			types.Feedback(types.SoundWrongPassword))

	case StateChangeEnter:
		p.staging = entered
		p.state = StateChangeConfirm
		p.emit(types.PasswordOutcome(types.KindChangeStaged, 0),
			types.Feedback(types.SoundButtonPress))

	case StateChangeConfirm:
		staged := p.staging
		p.reset()
		if entered != staged {
			p.logger.Printf("code change failed: confirmation mismatch")
			p.emit(types.PasswordOutcome(types.KindChangeFailed, 0),
				types.Feedback(types.SoundWrongPassword))
			return
		}
		p.code = staged
		p.save()
		p.logger.Printf("code changed")
		p.emit(types.PasswordOutcome(types.KindChangeSucceeded, 0),
			types.Feedback(types.SoundCorrectPassword))
	}
}

func (p *PasswordSession) selectRelease(d uint8) {
	p.reset()
	sel, ok := selections[d]
	if !ok {
		p.logger.Printf("selection invalid digit=%d", d)
		p.emit(types.PasswordOutcome(types.KindSelectionInvalid, d),
			types.Feedback(types.SoundWrongPassword))
		return
	}
	p.logger.Printf("selection digit=%d -> %s", d, sel.msg)
	p.emit(sel.msg,
		types.Feedback(sel.sound),
		types.PasswordOutcome(types.KindSelectionDispatched, d))
}

func (p *PasswordSession) reload() {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.StorageTimeout)
	defer cancel()

	c, err := p.codes.LoadCode(ctx)
	switch {
	case errors.Is(err, ErrDefaultNotPersisted):
		p.logger.Printf("load code: %v (adopting factory code in memory)", err)
	case err != nil:
		p.logger.Printf("load code: %v (keeping %d-digit code in memory)", err, types.PasswordLength)
		return
	}
	p.code = c
}

// save persists the current code. A failed write is logged; the in-memory
// code stays authoritative until the next reload.
func (p *PasswordSession) save() {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.StorageTimeout)
	defer cancel()

	if err := p.codes.SaveCode(ctx, p.code); err != nil {
		p.logger.Printf("save code: %v", err)
	}
}

func (p *PasswordSession) clear() {
	p.buf = [types.PasswordLength]byte{}
	p.n = 0
}

func (p *PasswordSession) reset() {
	p.clear()
	p.staging = types.Code{}
	p.state = StateIdle
}

func (p *PasswordSession) emit(msgs ...types.Message) {
	emit(p.pub, p.logger, msgs...)
}
