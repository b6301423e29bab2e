// Package console turns operator command lines into the same bus events
// the keypad, buttons and sensors produce. Nothing here bypasses the
// password session: there is no command that releases a door directly.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/BrandonDHaskell/Portunus/locker/internal/locker/types"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("bad arguments")
)

type Publisher interface {
	Publish(msg types.Message) error
}

// Resetter erases persisted settings.
type Resetter interface {
	FactoryReset(ctx context.Context) error
}

type StatusFunc func() types.StatusResponse

type Console struct {
	pub    Publisher
	status StatusFunc
	reset  Resetter
	logger *log.Logger
}

func New(pub Publisher, status StatusFunc, reset Resetter, logger *log.Logger) *Console {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Console{pub: pub, status: status, reset: reset, logger: logger}
}

// Execute runs one command line and returns the text to show the operator.
func (c *Console) Execute(ctx context.Context, line string) (string, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return "", nil
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "help", "h", "?":
		return Help(), nil
	case "status", "st":
		return c.statusText(), nil
	case "digits":
		return c.digits(args)
	case "digit":
		return c.digit(args, false)
	case "longpress":
		return c.digit(args, true)
	case "change":
		return c.publish("code change trigger sent", types.ChangeTrigger())
	case "password":
		return c.password(args)
	case "door":
		return c.door(args)
	case "running":
		on, err := onOff(args)
		if err != nil {
			return "", err
		}
		return c.publish(fmt.Sprintf("device running=%t", on), types.DeviceRunningChanged(on))
	case "childlock":
		return c.childLock(args)
	case "light":
		return c.light(args)
	case "factoryreset":
		return c.factoryReset(ctx)
	default:
		return "", fmt.Errorf("%w: %q (try help)", ErrUnknownCommand, cmd)
	}
}

func (c *Console) publish(reply string, msgs ...types.Message) (string, error) {
	for _, m := range msgs {
		if err := c.pub.Publish(m); err != nil {
			return "", fmt.Errorf("publish %s: %w", m, err)
		}
	}
	c.logger.Printf("%s", reply)
	return reply, nil
}

func (c *Console) digits(args []string) (string, error) {
	if len(args) != 1 || args[0] == "" {
		return "", fmt.Errorf("%w: digits <sequence>", ErrUsage)
	}
	msgs := make([]types.Message, 0, len(args[0]))
	for _, r := range args[0] {
		if r < '0'+rune(types.KeyMin) || r > '0'+rune(types.KeyMax) {
			return "", fmt.Errorf("%w: %q is not a keypad digit", ErrUsage, r)
		}
		msgs = append(msgs, types.DigitPressed(uint8(r-'0')))
	}
	return c.publish(fmt.Sprintf("%d digits sent", len(msgs)), msgs...)
}

func (c *Console) digit(args []string, long bool) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%w: digit <1-4>", ErrUsage)
	}
	d, err := strconv.ParseUint(args[0], 10, 8)
	if err != nil || !types.ValidKey(uint8(d)) {
		return "", fmt.Errorf("%w: %q is not a keypad digit", ErrUsage, args[0])
	}
	if long {
		return c.publish(fmt.Sprintf("long press %d sent", d), types.DigitLongPressed(uint8(d)))
	}
	return c.publish(fmt.Sprintf("digit %d sent", d), types.DigitPressed(uint8(d)))
}

func (c *Console) password(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%w: password reload|factory", ErrUsage)
	}
	switch args[0] {
	case "reload":
		return c.publish("code reload requested", types.ReloadRequest())
	case "factory":
		return c.publish("factory code requested", types.FactoryRequest())
	default:
		return "", fmt.Errorf("%w: password reload|factory", ErrUsage)
	}
}

// door simulates the door sensors.
func (c *Console) door(args []string) (string, error) {
	if len(args) != 2 {
		return "", fmt.Errorf("%w: door open|close front|top", ErrUsage)
	}
	d, err := types.ParseDoor(args[1])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUsage, err)
	}
	switch args[0] {
	case "open":
		return c.publish(fmt.Sprintf("%s door sensor: open", d), types.DoorOpened(d))
	case "close":
		return c.publish(fmt.Sprintf("%s door sensor: closed", d), types.DoorClosed(d))
	default:
		return "", fmt.Errorf("%w: door open|close front|top", ErrUsage)
	}
}

func (c *Console) childLock(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%w: childlock engage|release|reset", ErrUsage)
	}
	switch args[0] {
	case "engage":
		return c.publish("child lock engage requested", types.ChildLockEngage())
	case "release":
		return c.publish("child lock release requested", types.ChildLockRelease())
	case "reset":
		return c.publish("child lock timeout reset requested", types.ChildLockResetTimeout())
	default:
		return "", fmt.Errorf("%w: childlock engage|release|reset", ErrUsage)
	}
}

func (c *Console) light(args []string) (string, error) {
	switch {
	case len(args) == 1 && args[0] == "toggle":
		return c.publish("light toggle requested", types.LightToggle())
	case len(args) == 2 && args[0] == "dim":
		level, err := strconv.ParseUint(args[1], 10, 8)
		if err != nil || level > 100 {
			return "", fmt.Errorf("%w: dim level must be 0-100", ErrUsage)
		}
		return c.publish(fmt.Sprintf("light dim %d requested", level), types.LightDim(uint8(level)))
	}
	on, err := onOff(args)
	if err != nil {
		return "", fmt.Errorf("%w: light on|off|toggle|dim <0-100>", ErrUsage)
	}
	return c.publish(fmt.Sprintf("light on=%t requested", on), types.LightSet(on))
}

// factoryReset erases storage, then asks the owning tasks to re-adopt their
// defaults so memory and storage agree.
func (c *Console) factoryReset(ctx context.Context) (string, error) {
	if c.reset == nil {
		return "", errors.New("factory reset unavailable")
	}
	if err := c.reset.FactoryReset(ctx); err != nil {
		return "", err
	}
	return c.publish("settings erased, defaults restored",
		types.FactoryRequest(),
		types.LightSet(false),
		types.LightDim(50))
}

func (c *Console) statusText() string {
	if c.status == nil {
		return "status unavailable"
	}
	st := c.status()

	var b strings.Builder
	fmt.Fprintf(&b, "boot=%s tick=%d uptime=%dms drops=%d\n", st.BootID, st.Tick, st.UptimeMs, st.QueueDrops)
	fmt.Fprintf(&b, "password: state=%s entered=%d\n", st.Password.State, st.Password.Entered)
	for _, d := range st.Doors {
		fmt.Fprintf(&b, "door %-5s phase=%s opened=%t alarm=%t magnet=%t\n",
			d.Door, d.Phase, d.Opened, d.Alarm, d.MagnetEngaged)
	}
	fmt.Fprintf(&b, "childlock: engaged=%t running=%t power=%t screen=%t\n",
		st.ChildLock.Engaged, st.ChildLock.DeviceRunning, st.ChildLock.PowerButtonEnabled, st.ChildLock.ScreenEnabled)
	fmt.Fprintf(&b, "indicator: led=%s last_sound=%s alarm=%t\n", st.Indicator.LED, st.Indicator.LastSound, st.Indicator.Alarm)
	fmt.Fprintf(&b, "light: on=%t level=%d", st.Light.On, st.Light.Level)
	return b.String()
}

func onOff(args []string) (bool, error) {
	if len(args) == 1 {
		switch args[0] {
		case "on", "1", "true":
			return true, nil
		case "off", "0", "false":
			return false, nil
		}
	}
	return false, fmt.Errorf("%w: expected on|off", ErrUsage)
}

// Commands lists the top-level command words, for completion.
func Commands() []string {
	return []string{
		"help", "status", "digits", "digit", "longpress", "change",
		"password", "door", "running", "childlock", "light", "factoryreset",
	}
}

func Help() string {
	return strings.TrimSpace(`
digits <seq>                  press each digit in order
digit <1-4>                   press one digit
longpress <1-4>               long-press one digit
change                        code change trigger (after a correct code)
password reload|factory       reload code from storage / restore factory code
door open|close front|top     simulate a door sensor
running on|off                simulate the device running sensor
childlock engage|release|reset
light on|off|toggle|dim <0-100>
factoryreset                  erase all settings
status                        show current state
help                          this text`)
}
