package service

import (
	"log"

	"github.com/BrandonDHaskell/Portunus/locker/internal/locker/types"
)

// Indicator follows the feedback topic the way the status LED and buzzer
// do, so operators can see what the enclosure is signalling. It drives no
// hardware.
type Indicator struct {
	logger *log.Logger

	led       types.Pattern
	lastSound types.Pattern
	alarm     bool
	sounds    int
}

func NewIndicator(logger *log.Logger) *Indicator {
	return &Indicator{logger: orDiscard(logger), led: types.LEDLocked}
}

func (i *Indicator) Name() string { return "indicator" }

func (i *Indicator) Topics() []types.Topic { return []types.Topic{types.TopicFeedback} }

func (i *Indicator) Start(Millis) {}

func (i *Indicator) Step(Millis) {}

func (i *Indicator) Handle(msg types.Message, _ Millis) {
	if msg.Kind != types.KindFeedback {
		return
	}
	p := types.Pattern(msg.Arg)
	if p.IsLED() {
		if p != i.led {
			i.logger.Printf("led %s -> %s", i.led, p)
			i.led = p
		}
		return
	}

	i.lastSound = p
	i.sounds++
	switch p {
	case types.SoundAlarmStart:
		i.alarm = true
	case types.SoundAlarmStop:
		i.alarm = false
	}
}

func (i *Indicator) LED() types.Pattern { return i.led }

func (i *Indicator) LastSound() types.Pattern { return i.lastSound }

// Sounds counts every sound request seen so far.
func (i *Indicator) Sounds() int { return i.sounds }

func (i *Indicator) Status() types.IndicatorStatus {
	return types.IndicatorStatus{
		LED:       i.led.String(),
		LastSound: i.lastSound.String(),
		Alarm:     i.alarm,
	}
}
