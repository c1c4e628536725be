package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quiz-hub/quiz-hub/internal/domain/report"
)

var ErrNoStore = errors.New("report store not configured")

// Service signs and stores final game reports.
type Service struct {
	repo    report.Repository
	logger  zerolog.Logger
	signKey []byte
}

// NewService creates a new report service. A nil repo only logs.
func NewService(repo report.Repository, logger zerolog.Logger, signKey []byte) *Service {
	return &Service{
		repo:    repo,
		signKey: signKey,
		logger:  logger.With().Str("service", "report").Logger(),
	}
}

// Save stores r asynchronously.
func (s *Service) Save(r *report.Report) {
	s.logger.Info().
		Str("reportId", r.ReportID.String()).
		Str("session", r.SessionID.String()).
		Strs("winners", r.Winners).
		Dur("duration", r.Duration()).
		Msg("game finished")
	if s.repo == nil {
		return
	}
	go func() {
		if err := s.SaveSync(context.Background(), r); err != nil {
			s.logger.Error().Err(err).
				Str("reportId", r.ReportID.String()).
				Str("session", r.SessionID.String()).
				Msg("failed to store report")
		}
	}()
}

// SaveSync signs and stores r.
func (s *Service) SaveSync(ctx context.Context, r *report.Report) error {
	if s.repo == nil {
		return ErrNoStore
	}
	if len(s.signKey) > 0 {
		sig, err := report.Sign(r, s.signKey)
		if err != nil {
			return fmt.Errorf("failed to sign report: %w", err)
		}
		r.Signature = sig
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	s.logger.Debug().Str("reportId", r.ReportID.String()).Msg("report stored")
	return nil
}

// Get returns one report.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*report.Report, error) {
	if s.repo == nil {
		return nil, ErrNoStore
	}
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	if r == nil {
		return nil, report.ErrNotFound
	}
	return r, nil
}

// List returns reports newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*report.Report, error) {
	if s.repo == nil {
		return nil, ErrNoStore
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

// ListBySession returns every report of one session.
func (s *Service) ListBySession(ctx context.Context, session uuid.UUID) ([]*report.Report, error) {
	if s.repo == nil {
		return nil, ErrNoStore
	}
	return s.repo.ListBySession(ctx, session)
}

// Verify checks a stored report's signature.
func (s *Service) Verify(ctx context.Context, id uuid.UUID) (bool, error) {
	if len(s.signKey) == 0 {
		return false, nil
	}
	r, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return report.Verify(r, s.signKey)
}
