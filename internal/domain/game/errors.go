package game

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotAuthorized   = errors.New("sender is not authorized")
	ErrBadArgument     = errors.New("bad argument")
	ErrUnexpected      = errors.New("message not expected now")
	ErrUnknownVerb     = errors.New("unknown verb")
	ErrUnknownSender   = errors.New("unknown sender")
	ErrSessionBlocked  = errors.New("session is blocked")
	ErrGameStarted     = errors.New("game already started")
	ErrNoFreeSeat      = errors.New("no free seat")
	ErrBanned          = errors.New("participant is banned")
	ErrNameTaken       = errors.New("name already taken")
	ErrJoinForbidden   = errors.New("joining is forbidden")
	ErrWrongPassword   = errors.New("wrong password")
	ErrPlayerNotFound  = errors.New("player not found")
	ErrLastPlayer      = errors.New("cannot remove the last player")
	ErrLockTimeout     = errors.New("session lock acquire timed out")
	ErrSessionFinished = errors.New("session finished")
)

// FaultKind classifies errors reported to the incident sink.
type FaultKind string

const (
	FaultProtocol     FaultKind = "PROTOCOL_VIOLATION"
	FaultInvariant    FaultKind = "INVARIANT_VIOLATION"
	FaultStall        FaultKind = "SCHEDULING_STALL"
	FaultCollaborator FaultKind = "COLLABORATOR_FAILURE"
	FaultPanic        FaultKind = "PANIC"
	FaultLock         FaultKind = "LOCK_STARVATION"
)

// ProtocolViolation is a malformed or unauthorized message. It is dropped
// without any state change.
type ProtocolViolation struct {
	Verb string
	Err  error
}

func (e *ProtocolViolation) Error() string {
	return fmt.Sprintf("protocol violation: %s: %v", e.Verb, e.Err)
}

func (e *ProtocolViolation) Unwrap() error { return e.Err }

// Violation builds a ProtocolViolation wrapping err with optional detail.
func Violation(verb string, err error, detail ...string) *ProtocolViolation {
	if len(detail) > 0 {
		err = fmt.Errorf("%w: %s", err, strings.Join(detail, " "))
	}
	return &ProtocolViolation{Verb: verb, Err: err}
}

// InvariantViolation is an internal consistency failure. The session is
// blocked and kept for inspection.
type InvariantViolation struct {
	What    string
	History []string
}

func (e *InvariantViolation) Error() string {
	return "invariant violation: " + e.What
}

// SchedulingStall reports a task kind firing repeatedly without progress.
type SchedulingStall struct {
	Kind  string
	Count int
}

func (e *SchedulingStall) Error() string {
	return fmt.Sprintf("scheduling stall: %s fired %d times without progress", e.Kind, e.Count)
}

// CollaboratorFailure wraps an error from the rules engine or the host
// environment.
type CollaboratorFailure struct {
	Collaborator string
	Err          error
}

func (e *CollaboratorFailure) Error() string {
	return fmt.Sprintf("%s failure: %v", e.Collaborator, e.Err)
}

func (e *CollaboratorFailure) Unwrap() error { return e.Err }

// Classify maps an error onto the fault taxonomy.
func Classify(err error) FaultKind {
	var (
		pv *ProtocolViolation
		iv *InvariantViolation
		ss *SchedulingStall
		cf *CollaboratorFailure
	)
	switch {
	case errors.As(err, &pv):
		return FaultProtocol
	case errors.As(err, &iv):
		return FaultInvariant
	case errors.As(err, &ss):
		return FaultStall
	case errors.As(err, &cf):
		return FaultCollaborator
	case errors.Is(err, ErrLockTimeout):
		return FaultLock
	}
	return FaultPanic
}
