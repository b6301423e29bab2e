package service

import (
	"context"
	"log"
	"time"

	"github.com/BrandonDHaskell/Portunus/locker/internal/locker/hw"
	"github.com/BrandonDHaskell/Portunus/locker/internal/locker/types"
)

// LightStore persists the enclosure light. Settings implements it.
type LightStore interface {
	LoadLight(ctx context.Context) (on bool, level uint8, err error)
	SaveLightState(ctx context.Context, on bool) error
	SaveDimLevel(ctx context.Context, level uint8) error
}

// LightTask restores the enclosure light at start and applies set, toggle
// and dim requests, persisting each change.
type LightTask struct {
	light          hw.Light
	store          LightStore
	storageTimeout time.Duration
	logger         *log.Logger

	on    bool
	level uint8
}

func NewLightTask(light hw.Light, st LightStore, storageTimeout time.Duration, logger *log.Logger) *LightTask {
	if storageTimeout <= 0 {
		storageTimeout = DefaultStorageTimeout
	}
	return &LightTask{
		light:          light,
		store:          st,
		storageTimeout: storageTimeout,
		logger:         orDiscard(logger),
		level:          DefaultDimLevel,
	}
}

func (l *LightTask) Name() string { return "light" }

func (l *LightTask) Topics() []types.Topic { return []types.Topic{types.TopicLight} }

func (l *LightTask) Start(Millis) {
	ctx, cancel := context.WithTimeout(context.Background(), l.storageTimeout)
	defer cancel()

	on, level, err := l.store.LoadLight(ctx)
	if err != nil {
		l.logger.Printf("load light: %v", err)
	}
	l.on, l.level = on, level
	l.light.SetLight(l.on, l.level)
	l.logger.Printf("started on=%t level=%d", l.on, l.level)
}

func (l *LightTask) Step(Millis) {}

func (l *LightTask) Handle(msg types.Message, _ Millis) {
	ctx, cancel := context.WithTimeout(context.Background(), l.storageTimeout)
	defer cancel()

	switch msg.Kind {
	case types.KindLightSet, types.KindLightToggle:
		on := msg.Arg == 1
		if msg.Kind == types.KindLightToggle {
			on = !l.on
		}
		if on == l.on {
			return
		}
		l.on = on
		if err := l.store.SaveLightState(ctx, on); err != nil {
			l.logger.Printf("%v", err)
		}
	case types.KindLightDim:
		if msg.Arg > MaxDimLevel {
			l.logger.Printf("dim level %d rejected", msg.Arg)
			return
		}
		l.level = msg.Arg
		if err := l.store.SaveDimLevel(ctx, l.level); err != nil {
			l.logger.Printf("%v", err)
		}
	default:
		return
	}
	l.light.SetLight(l.on, l.level)
}

func (l *LightTask) Status() types.LightStatus {
	return types.LightStatus{On: l.on, Level: l.level}
}
