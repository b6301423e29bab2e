package types

import "fmt"

// Door identifies one of the two magnet-locked doors.
type Door uint8

const (
	DoorFront Door = iota
	DoorTop
)

// Doors lists every door in coordinator order.
var Doors = [...]Door{DoorFront, DoorTop}

func (d Door) String() string {
	switch d {
	case DoorFront:
		return "front"
	case DoorTop:
		return "top"
	default:
		return fmt.Sprintf("door(%d)", uint8(d))
	}
}

func (d Door) Valid() bool { return d <= DoorTop }

// ParseDoor accepts the names produced by Door.String.
func ParseDoor(s string) (Door, error) {
	switch s {
	case "front":
		return DoorFront, nil
	case "top":
		return DoorTop, nil
	default:
		return 0, fmt.Errorf("unknown door %q", s)
	}
}

// DoorSet is a bitmask of doors addressed by a single release request.
type DoorSet uint8

const (
	SetFront DoorSet = 1 << DoorFront
	SetTop   DoorSet = 1 << DoorTop
	SetBoth          = SetFront | SetTop
)

func (s DoorSet) Has(d Door) bool { return s&(1<<d) != 0 }

func (s DoorSet) String() string {
	switch s {
	case SetFront:
		return "front"
	case SetTop:
		return "top"
	case SetBoth:
		return "both"
	default:
		return fmt.Sprintf("doors(%#x)", uint8(s))
	}
}
