package game

import (
	"errors"
	"fmt"
)

// Errors surfaced to the gateway. Illegal actions never partially apply:
// a rejected action leaves the room state untouched.
var (
	ErrIllegalAction = errors.New("illegal action")
	ErrRoomFull      = errors.New("room is full")
	ErrSeatTaken     = errors.New("seat is taken")
	ErrRoomClosed    = errors.New("room is closed")
	ErrUnknownSeat   = errors.New("unknown seat")
)

func illegalf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrIllegalAction, fmt.Sprintf(format, args...))
}
