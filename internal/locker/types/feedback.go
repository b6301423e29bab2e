package types

import "fmt"

// Pattern names a sound or LED pattern requested from the peripheral
// feedback producers. The core only names patterns; it never plays them.
type Pattern uint8

const (
	PatternNone Pattern = iota

	SoundButtonPress
	SoundKeypadPress
	SoundWrongPassword
	SoundCorrectPassword
	SoundDoorReleased
	SoundDoorClosed
	SoundAlarmStart
	SoundAlarmStop
	SoundTopSelected
	SoundFrontSelected
	SoundBothSelected
	SoundChildLockSelected

	LEDLocked
	LEDUnlocked
	LEDToBeOpened
	LEDChildUnlocked
)

var patternNames = map[Pattern]string{
	PatternNone:            "none",
	SoundButtonPress:       "button",
	SoundKeypadPress:       "keypad",
	SoundWrongPassword:     "wrong",
	SoundCorrectPassword:   "correct",
	SoundDoorReleased:      "door-released",
	SoundDoorClosed:        "door-closed",
	SoundAlarmStart:        "alarm-start",
	SoundAlarmStop:         "alarm-stop",
	SoundTopSelected:       "top-selected",
	SoundFrontSelected:     "front-selected",
	SoundBothSelected:      "both-selected",
	SoundChildLockSelected: "child-lock-selected",
	LEDLocked:              "led-locked",
	LEDUnlocked:            "led-unlocked",
	LEDToBeOpened:          "led-to-be-opened",
	LEDChildUnlocked:       "led-child-unlocked",
}

func (p Pattern) String() string {
	if n, ok := patternNames[p]; ok {
		return n
	}
	return fmt.Sprintf("pattern(%d)", uint8(p))
}

// IsLED reports whether p selects a status LED mode rather than a sound.
func (p Pattern) IsLED() bool { return p >= LEDLocked && p <= LEDChildUnlocked }
