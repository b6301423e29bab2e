package types

import (
	"errors"
	"fmt"
)

// PasswordLength is the number of decimal digits in the secret code.
const PasswordLength = 4

var ErrInvalidCode = errors.New("code must be 4 decimal digits")

// The keypad has four keys, labelled 1 through 4.
const (
	KeyMin uint8 = 1
	KeyMax uint8 = 4
)

// ValidKey reports whether d is a digit the keypad can produce.
func ValidKey(d uint8) bool { return d >= KeyMin && d <= KeyMax }

// Code is the secret code as ASCII digits, matching its persisted form.
type Code [PasswordLength]byte

// FactoryCode is the documented default restored on storage corruption
// or an explicit factory request.
var FactoryCode = Code{'1', '2', '3', '4'}

func ParseCode(s string) (Code, error) {
	var c Code
	if len(s) != PasswordLength {
		return c, fmt.Errorf("%w: got %d characters", ErrInvalidCode, len(s))
	}
	for i := 0; i < PasswordLength; i++ {
		if s[i] < '0' || s[i] > '9' {
			return c, fmt.Errorf("%w: %q at position %d", ErrInvalidCode, s[i], i)
		}
		c[i] = s[i]
	}
	return c, nil
}

func (c Code) String() string { return string(c[:]) }
