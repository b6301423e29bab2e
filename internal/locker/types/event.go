package types

import "fmt"

// Topic scopes a message on the bus. Subscribers receive every message
// posted to the topics they registered for.
type Topic uint8

const (
	TopicKeypad Topic = iota + 1
	TopicButton
	TopicPasswordCommand
	TopicPassword
	TopicDoor
	TopicDoorSensor
	TopicDoorStatus
	TopicIntrusion
	TopicChildLock
	TopicChildLockStatus
	TopicDeviceRunning
	TopicLight
	TopicFeedback
)

var topicNames = map[Topic]string{
	TopicKeypad:          "keypad",
	TopicButton:          "button",
	TopicPasswordCommand: "password-command",
	TopicPassword:        "password",
	TopicDoor:            "door",
	TopicDoorSensor:      "door-sensor",
	TopicDoorStatus:      "door-status",
	TopicIntrusion:       "intrusion",
	TopicChildLock:       "child-lock",
	TopicChildLockStatus: "child-lock-status",
	TopicDeviceRunning:   "device-running",
	TopicLight:           "light",
	TopicFeedback:        "feedback",
}

func (t Topic) String() string {
	if n, ok := topicNames[t]; ok {
		return n
	}
	return fmt.Sprintf("topic(%d)", uint8(t))
}

// AllTopics lists every topic, mainly for observers that want everything.
func AllTopics() []Topic {
	out := make([]Topic, 0, len(topicNames))
	for t := TopicKeypad; t <= TopicFeedback; t++ {
		out = append(out, t)
	}
	return out
}

type Kind uint8

const (
	KindNone Kind = iota

	// keypad / button producers
	KindDigitPressed     // Arg: digit
	KindDigitLongPressed // Arg: digit
	KindChangeTrigger

	// password commands
	KindReloadRequest
	KindFactoryRequest

	// password outcomes
	KindDigitAccepted // Arg: digits buffered so far
	KindPasswordCorrect
	KindPasswordWrong
	KindSelectionDispatched // Arg: selection digit
	KindSelectionInvalid    // Arg: selection digit
	KindChangeStarted
	KindChangeStaged
	KindChangeSucceeded
	KindChangeFailed
	KindSessionTimeout
	KindCodeReloaded
	KindCodeFactoryReset

	// doors
	KindDoorRelease // Arg: DoorSet
	KindDoorOpened  // Arg: Door
	KindDoorClosed  // Arg: Door
	KindIntrusionStart
	KindIntrusionStop
	KindDoorsLocked
	KindDoorsUnlocked

	// child lock
	KindChildLockRelease
	KindChildLockEngage
	KindChildLockResetTimeout
	KindChildLockLocked
	KindChildLockUnlocked
	KindDeviceRunningChanged // Arg: 1 running, 0 stopped

	// light
	KindLightSet // Arg: 1 on, 0 off
	KindLightToggle
	KindLightDim // Arg: level 0..100

	KindFeedback // Arg: Pattern
)

var kindNames = map[Kind]string{
	KindDigitPressed:          "digit-pressed",
	KindDigitLongPressed:      "digit-long-pressed",
	KindChangeTrigger:         "code-change-trigger",
	KindReloadRequest:         "reload-request",
	KindFactoryRequest:        "factory-request",
	KindDigitAccepted:         "digit-accepted",
	KindPasswordCorrect:       "password-correct",
	KindPasswordWrong:         "password-wrong",
	KindSelectionDispatched:   "selection-dispatched",
	KindSelectionInvalid:      "selection-invalid",
	KindChangeStarted:         "change-started",
	KindChangeStaged:          "change-staged",
	KindChangeSucceeded:       "change-succeeded",
	KindChangeFailed:          "change-failed",
	KindSessionTimeout:        "session-timeout",
	KindCodeReloaded:          "code-reloaded",
	KindCodeFactoryReset:      "code-factory-reset",
	KindDoorRelease:           "door-release",
	KindDoorOpened:            "door-opened",
	KindDoorClosed:            "door-closed",
	KindIntrusionStart:        "intrusion-start",
	KindIntrusionStop:         "intrusion-stop",
	KindDoorsLocked:           "doors-locked",
	KindDoorsUnlocked:         "doors-unlocked",
	KindChildLockRelease:      "child-lock-release",
	KindChildLockEngage:       "child-lock-engage",
	KindChildLockResetTimeout: "child-lock-reset-timeout",
	KindChildLockLocked:       "child-lock-locked",
	KindChildLockUnlocked:     "child-lock-unlocked",
	KindDeviceRunningChanged:  "device-running-changed",
	KindLightSet:              "light-set",
	KindLightToggle:           "light-toggle",
	KindLightDim:              "light-dim",
	KindFeedback:              "feedback",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Message is the unit carried by the bus. Arg holds the single small
// payload a kind needs (digit, door, door set, boolean, pattern).
type Message struct {
	Topic Topic
	Kind  Kind
	Arg   uint8
}

func (m Message) String() string {
	return fmt.Sprintf("%s/%s(%d)", m.Topic, m.Kind, m.Arg)
}

func DigitPressed(digit uint8) Message {
	return Message{Topic: TopicKeypad, Kind: KindDigitPressed, Arg: digit}
}

func DigitLongPressed(digit uint8) Message {
	return Message{Topic: TopicKeypad, Kind: KindDigitLongPressed, Arg: digit}
}

func ChangeTrigger() Message {
	return Message{Topic: TopicButton, Kind: KindChangeTrigger}
}

func ReloadRequest() Message {
	return Message{Topic: TopicPasswordCommand, Kind: KindReloadRequest}
}

func FactoryRequest() Message {
	return Message{Topic: TopicPasswordCommand, Kind: KindFactoryRequest}
}

func PasswordOutcome(k Kind, arg uint8) Message {
	return Message{Topic: TopicPassword, Kind: k, Arg: arg}
}

func DoorRelease(set DoorSet) Message {
	return Message{Topic: TopicDoor, Kind: KindDoorRelease, Arg: uint8(set)}
}

func DoorOpened(d Door) Message {
	return Message{Topic: TopicDoorSensor, Kind: KindDoorOpened, Arg: uint8(d)}
}

func DoorClosed(d Door) Message {
	return Message{Topic: TopicDoorSensor, Kind: KindDoorClosed, Arg: uint8(d)}
}

func IntrusionStart(d Door) Message {
	return Message{Topic: TopicIntrusion, Kind: KindIntrusionStart, Arg: uint8(d)}
}

func IntrusionStop(d Door) Message {
	return Message{Topic: TopicIntrusion, Kind: KindIntrusionStop, Arg: uint8(d)}
}

func DoorsStatusChanged(anyOpen bool) Message {
	if anyOpen {
		return Message{Topic: TopicDoorStatus, Kind: KindDoorsUnlocked}
	}
	return Message{Topic: TopicDoorStatus, Kind: KindDoorsLocked}
}

func ChildLockRelease() Message {
	return Message{Topic: TopicChildLock, Kind: KindChildLockRelease}
}

func ChildLockEngage() Message {
	return Message{Topic: TopicChildLock, Kind: KindChildLockEngage}
}

func ChildLockResetTimeout() Message {
	return Message{Topic: TopicChildLock, Kind: KindChildLockResetTimeout}
}

func ChildLockChanged(engaged bool) Message {
	if engaged {
		return Message{Topic: TopicChildLockStatus, Kind: KindChildLockLocked}
	}
	return Message{Topic: TopicChildLockStatus, Kind: KindChildLockUnlocked}
}

func DeviceRunningChanged(running bool) Message {
	return Message{Topic: TopicDeviceRunning, Kind: KindDeviceRunningChanged, Arg: boolArg(running)}
}

func LightSet(on bool) Message {
	return Message{Topic: TopicLight, Kind: KindLightSet, Arg: boolArg(on)}
}

func LightToggle() Message {
	return Message{Topic: TopicLight, Kind: KindLightToggle}
}

func LightDim(level uint8) Message {
	return Message{Topic: TopicLight, Kind: KindLightDim, Arg: level}
}

func Feedback(p Pattern) Message {
	return Message{Topic: TopicFeedback, Kind: KindFeedback, Arg: uint8(p)}
}

func boolArg(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
