package circuit

import (
	"errors"
	"fmt"
)

// GridErrorCode categorizes grid errors.
type GridErrorCode string

const (
	// ErrCodeOutOfRange indicates a negative coordinate, or a removal outside
	// the current bounds.
	ErrCodeOutOfRange GridErrorCode = "OUT_OF_RANGE"

	// ErrCodeNotFound indicates a removal targeting an empty cell.
	ErrCodeNotFound GridErrorCode = "NOT_FOUND"

	// ErrCodeFrozen indicates a mutation of a finished grid.
	ErrCodeFrozen GridErrorCode = "FROZEN"
)

// GridError is returned by grid mutations. Grid errors are synchronous and
// never retried; callers are expected to abort the traced run.
type GridError struct {
	Code GridErrorCode

	// Op names the failing operation (e.g. "AddGate").
	Op string

	// X and Y are the requested coordinates.
	X, Y int

	// Width and Height are the grid bounds at the time of the call.
	Width, Height int
}

// Error implements the error interface.
func (e *GridError) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s: %s: no gate at (%d, %d)", e.Code, e.Op, e.X, e.Y)
	case ErrCodeFrozen:
		return fmt.Sprintf("%s: %s: grid is finished", e.Code, e.Op)
	default:
		return fmt.Sprintf("%s: %s: (%d, %d) outside %dx%d grid", e.Code, e.Op, e.X, e.Y, e.Width, e.Height)
	}
}

func (g *Grid) errorf(code GridErrorCode, op string, x, y int) *GridError {
	return &GridError{
		Code:   code,
		Op:     op,
		X:      x,
		Y:      y,
		Width:  g.Width(),
		Height: g.Height(),
	}
}

// IsOutOfRange returns true if err is a GridError with ErrCodeOutOfRange.
// Uses errors.As to handle wrapped errors.
func IsOutOfRange(err error) bool {
	return hasCode(err, ErrCodeOutOfRange)
}

// IsNotFound returns true if err is a GridError with ErrCodeNotFound.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsFrozen returns true if err is a GridError with ErrCodeFrozen.
func IsFrozen(err error) bool {
	return hasCode(err, ErrCodeFrozen)
}

func hasCode(err error, code GridErrorCode) bool {
	var ge *GridError
	if errors.As(err, &ge) {
		return ge.Code == code
	}
	return false
}
