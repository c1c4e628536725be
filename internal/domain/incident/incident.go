package incident

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/quiz-hub/quiz-hub/internal/domain/game"
)

var ErrNotFound = errors.New("incident not found")

// Incident is one non-fatal fault raised inside a session.
type Incident struct {
	ID         int64          `json:"id"`
	IncidentID uuid.UUID      `json:"incidentId"`
	SessionID  uuid.UUID      `json:"sessionId"`
	Kind       game.FaultKind `json:"kind"`
	Message    string         `json:"message"`
	Detail     string         `json:"detail,omitempty"`
	History    []string       `json:"history,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// New classifies err into an incident. detail carries the offending message
// text or task. An invariant violation contributes its own history.
func New(session uuid.UUID, err error, detail string, history []string) *Incident {
	var iv *game.InvariantViolation
	if errors.As(err, &iv) && len(iv.History) > 0 {
		history = iv.History
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &Incident{
		IncidentID: uuid.New(),
		SessionID:  session,
		Kind:       game.Classify(err),
		Message:    msg,
		Detail:     detail,
		History:    append([]string(nil), history...),
		CreatedAt:  time.Now().UTC(),
	}
}

// Blocking reports whether the fault halts auto-advance of the session.
func (i *Incident) Blocking() bool {
	return i.Kind == game.FaultInvariant
}

// Filter narrows an incident query.
type Filter struct {
	SessionID *uuid.UUID
	Kind      *game.FaultKind
	Since     *time.Time
}

// Cursor is the keyset position of a paginated query.
type Cursor struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        int64     `json:"id"`
}

// Repository defines the interface for incident persistence
type Repository interface {
	Create(ctx context.Context, inc *Incident) error
	GetByID(ctx context.Context, incidentID uuid.UUID) (*Incident, error)
	Query(ctx context.Context, filter Filter, cursor *Cursor, limit int) ([]*Incident, *Cursor, error)
}
