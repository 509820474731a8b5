package galaxy

import (
	"errors"
	"fmt"
)

// ErrWorldNotFound is wrapped into lookups for ids no world carries.
var ErrWorldNotFound = errors.New("world not found")

// InvalidTurnError marks a turn outside the addressable range. MaxTurn is
// the highest known turn at the time of the call, or -1 when the check did
// not involve the cache (writes only reject turns below 1).
type InvalidTurnError struct {
	Turn    int
	MaxTurn int
}

func (e *InvalidTurnError) Error() string {
	if e.MaxTurn < 0 || e.Turn < 1 {
		return fmt.Sprintf("invalid turn %d: turns start at 1", e.Turn)
	}
	return fmt.Sprintf("invalid turn %d: highest known turn is %d", e.Turn, e.MaxTurn)
}

// DuplicateNameError carries the offending name of a save that would
// collide, case-insensitively, with a different world.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("world name %q is already taken", e.Name)
}

// IsInvalidTurn reports whether err is an invalid-turn condition.
func IsInvalidTurn(err error) bool {
	var e *InvalidTurnError
	return errors.As(err, &e)
}

// IsDuplicateName reports whether err is a duplicate-name condition.
func IsDuplicateName(err error) bool {
	var e *DuplicateNameError
	return errors.As(err, &e)
}
