package incident

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quiz-hub/quiz-hub/internal/domain/game"
	"github.com/quiz-hub/quiz-hub/internal/domain/incident"
)

// Service is the non-fatal error sink of every session.
type Service struct {
	repo   incident.Repository
	logger zerolog.Logger
}

// NewService creates the sink. A nil repo only logs.
func NewService(repo incident.Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("service", "incident").Logger(),
	}
}

// Report logs the fault and stores it asynchronously. It never blocks the
// session that raised it.
func (s *Service) Report(session uuid.UUID, err error, detail string, history []string) {
	inc := incident.New(session, err, detail, history)
	ev := s.logger.Warn()
	if inc.Blocking() {
		ev = s.logger.Error()
	}
	ev.Str("incidentId", inc.IncidentID.String()).
		Str("session", session.String()).
		Str("kind", string(inc.Kind)).
		Str("detail", detail).
		Int("history", len(inc.History)).
		Msg(inc.Message)

	if s.repo == nil {
		return
	}
	go func() {
		if err := s.Record(context.Background(), inc); err != nil {
			s.logger.Error().Err(err).
				Str("incidentId", inc.IncidentID.String()).
				Msg("failed to store incident")
		}
	}()
}

// Record stores inc synchronously.
func (s *Service) Record(ctx context.Context, inc *incident.Incident) error {
	if s.repo == nil {
		return nil
	}
	if err := s.repo.Create(ctx, inc); err != nil {
		return fmt.Errorf("failed to save incident: %w", err)
	}
	return nil
}

// QueryParams represents query parameters for incidents
type QueryParams struct {
	SessionID *uuid.UUID
	Kind      *string
	Since     *time.Time
	Cursor    *string
	Limit     int
}

// QueryResult is one page of incidents.
type QueryResult struct {
	Incidents  []*incident.Incident `json:"incidents"`
	Pagination Pagination           `json:"pagination"`
}

// Pagination holds pagination information
type Pagination struct {
	Cursor  *string `json:"cursor,omitempty"`
	HasMore bool    `json:"hasMore"`
	Count   int     `json:"count"`
}

// Query lists incidents newest first.
func (s *Service) Query(ctx context.Context, params QueryParams) (*QueryResult, error) {
	if s.repo == nil {
		return &QueryResult{}, nil
	}
	if params.Limit <= 0 {
		params.Limit = 50
	}
	if params.Limit > 200 {
		params.Limit = 200
	}

	var cursor *incident.Cursor
	if params.Cursor != nil && *params.Cursor != "" {
		c, err := decodeCursor(*params.Cursor)
		if err != nil {
			return nil, fmt.Errorf("invalid cursor: %w", err)
		}
		cursor = c
	}

	filter := incident.Filter{SessionID: params.SessionID, Since: params.Since}
	if params.Kind != nil {
		k := game.FaultKind(*params.Kind)
		filter.Kind = &k
	}

	list, next, err := s.repo.Query(ctx, filter, cursor, params.Limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to query incidents")
		return nil, fmt.Errorf("failed to query incidents: %w", err)
	}

	result := &QueryResult{
		Incidents: list,
		Pagination: Pagination{
			Count:   len(list),
			HasMore: next != nil,
		},
	}
	if next != nil {
		encoded, err := encodeCursor(next)
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to encode cursor")
		} else {
			result.Pagination.Cursor = &encoded
		}
	}
	return result, nil
}

// GetByID returns one incident.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*incident.Incident, error) {
	if s.repo == nil {
		return nil, incident.ErrNotFound
	}
	inc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get incident: %w", err)
	}
	if inc == nil {
		return nil, incident.ErrNotFound
	}
	return inc, nil
}

func encodeCursor(c *incident.Cursor) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

func decodeCursor(s string) (*incident.Cursor, error) {
	data, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	var c incident.Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
