package session

import (
	"errors"
	"fmt"
)

// ErrInvalidName is returned for session names that cannot be used as a
// directory name.
var ErrInvalidName = errors.New("invalid session name")

const maxNameLen = 64

// ValidateName accepts 1 to 64 characters drawn from lowercase letters, digits,
// '-' and '_'.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case len(name) > maxNameLen:
		return fmt.Errorf("%w %q: longer than %d characters", ErrInvalidName, name, maxNameLen)
	}
	for i, r := range name {
		if !nameRune(r) {
			return fmt.Errorf("%w %q: character %q at offset %d", ErrInvalidName, name, r, i)
		}
	}
	return nil
}

func nameRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '_'
}
