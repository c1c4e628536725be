package game

import (
	"errors"
	"fmt"
)

// Pointer is a role assignment into the player list.
type Pointer int

// NoPlayer is the unassigned pointer.
const NoPlayer Pointer = -1

var ErrPointerOutOfRange = errors.New("role pointer out of range")

// NewPointer validates index against a player list of length n.
func NewPointer(index, n int) (Pointer, error) {
	if index == int(NoPlayer) {
		return NoPlayer, nil
	}
	if index < 0 || index >= n {
		return NoPlayer, fmt.Errorf("%w: %d not in [0,%d)", ErrPointerOutOfRange, index, n)
	}
	return Pointer(index), nil
}

func (p Pointer) IsSet() bool { return p != NoPlayer }

func (p Pointer) Index() int { return int(p) }

// Valid reports whether p is NoPlayer or inside a list of length n.
func (p Pointer) Valid(n int) bool {
	return p == NoPlayer || (p >= 0 && int(p) < n)
}

// afterRemoval renumbers p once player k is gone. A pointer at k is cleared.
func (p Pointer) afterRemoval(k int) (Pointer, bool) {
	switch {
	case p == NoPlayer:
		return p, false
	case int(p) == k:
		return NoPlayer, true
	case int(p) > k:
		return p - 1, false
	}
	return p, false
}
