// Package session keeps the registry of live game sessions.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/quiz-hub/quiz-hub/internal/application/dispatcher"
	"github.com/quiz-hub/quiz-hub/internal/application/orchestrator"
	"github.com/quiz-hub/quiz-hub/internal/domain/game"
	"github.com/quiz-hub/quiz-hub/internal/domain/notification"
	"github.com/quiz-hub/quiz-hub/internal/domain/rules"
	"github.com/quiz-hub/quiz-hub/internal/scheduler"
)

const maxSlots = 12

var (
	ErrNotFound      = errors.New("session not found")
	ErrInvalidParams = errors.New("invalid session parameters")
)

// EngineSource builds a rules engine for a new session.
type EngineSource interface {
	NewEngine(name string) (rules.Engine, error)
	EngineFromJSON(data []byte) (rules.Engine, error)
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Engines     EngineSource
	Publisher   notification.Publisher
	Incidents   orchestrator.IncidentSink
	Reports     orchestrator.ReportSink
	Clock       scheduler.Clock
	Policy      game.Policy
	LockTimeout time.Duration
	Logger      zerolog.Logger
}

// CreateParams describe a new session.
type CreateParams struct {
	Name        string          `json:"name"`
	Package     string          `json:"package,omitempty"`
	PackageJSON json.RawMessage `json:"packageJson,omitempty"`
	Slots       int             `json:"slots"`
	Host        string          `json:"host"`
	Password    string          `json:"password,omitempty"`
	JoinMode    game.JoinMode   `json:"joinMode,omitempty"`
	Policy      *game.Policy    `json:"policy,omitempty"`
	Options     *game.Options   `json:"options,omitempty"`
	Managed     *bool           `json:"managed,omitempty"`
}

// Info is the registry view of a session.
type Info struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Package      string    `json:"package"`
	Host         string    `json:"host"`
	Slots        int       `json:"slots"`
	Protected    bool      `json:"protected"`
	Finished     bool      `json:"finished"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
}

type entry struct {
	orch     *orchestrator.Orchestrator
	info     Info
	password []byte
}

// Service owns every live orchestrator.
type Service struct {
	deps       Deps
	dispatcher *dispatcher.Dispatcher
	logger     zerolog.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*entry
}

func NewService(deps Deps) *Service {
	if deps.Clock == nil {
		deps.Clock = scheduler.RealClock()
	}
	if deps.Policy == (game.Policy{}) {
		deps.Policy = game.DefaultPolicy()
	}
	return &Service{
		deps:       deps,
		dispatcher: dispatcher.New(deps.Incidents, deps.Logger),
		logger:     deps.Logger.With().Str("service", "session").Logger(),
		sessions:   make(map[uuid.UUID]*entry),
	}
}

// Create validates params, builds the rules engine and registers a new
// session waiting for players.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Info, error) {
	params.Name = strings.TrimSpace(params.Name)
	params.Host = strings.TrimSpace(params.Host)
	if params.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidParams)
	}
	if params.Host == "" {
		return nil, fmt.Errorf("%w: host is required", ErrInvalidParams)
	}
	if params.Slots < 1 || params.Slots > maxSlots {
		return nil, fmt.Errorf("%w: slots must be between 1 and %d", ErrInvalidParams, maxSlots)
	}
	mode := game.JoinAnyRole
	if params.JoinMode != "" {
		m, ok := game.ParseJoinMode(string(params.JoinMode))
		if !ok {
			return nil, fmt.Errorf("%w: join mode %q", ErrInvalidParams, params.JoinMode)
		}
		mode = m
	}
	policy := s.deps.Policy
	if params.Policy != nil {
		policy = *params.Policy
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	options := game.DefaultOptions()
	if params.Options != nil {
		options = *params.Options
	}

	engine, err := s.engine(params)
	if err != nil {
		return nil, err
	}

	var hash []byte
	if params.Password != "" {
		hash, err = bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
	}

	managed := true
	if params.Managed != nil {
		managed = *params.Managed
	}

	id := uuid.New()
	state := game.NewState(id, params.Name, params.Slots, params.Host, policy, options)
	state.JoinMode = mode
	orch := orchestrator.New(state, orchestrator.Deps{
		Engine:      engine,
		Publisher:   s.deps.Publisher,
		Incidents:   s.deps.Incidents,
		Reports:     s.deps.Reports,
		Clock:       s.deps.Clock,
		LockTimeout: s.deps.LockTimeout,
		Managed:     managed,
		Logger:      s.deps.Logger,
	})

	e := &entry{
		orch: orch,
		info: Info{
			ID:        id,
			Name:      params.Name,
			Package:   engine.Package().Name,
			Host:      params.Host,
			Slots:     params.Slots,
			Protected: len(hash) > 0,
			CreatedAt: s.deps.Clock.Now().UTC(),
		},
		password: hash,
	}
	s.mu.Lock()
	s.sessions[id] = e
	s.mu.Unlock()

	s.logger.Info().
		Str("session", id.String()).
		Str("name", params.Name).
		Str("package", e.info.Package).
		Int("slots", params.Slots).
		Bool("managed", managed).
		Msg("session created")
	return s.describe(e), nil
}

func (s *Service) engine(params CreateParams) (rules.Engine, error) {
	var (
		engine rules.Engine
		err    error
	)
	switch {
	case len(params.PackageJSON) > 0:
		engine, err = s.deps.Engines.EngineFromJSON(params.PackageJSON)
	case params.Package != "":
		engine, err = s.deps.Engines.NewEngine(params.Package)
	default:
		return nil, fmt.Errorf("%w: package is required", ErrInvalidParams)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return engine, nil
}

// Get returns the orchestrator of a live session.
func (s *Service) Get(id uuid.UUID) (*orchestrator.Orchestrator, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return e.orch, nil
}

// Info returns the registry view of one session.
func (s *Service) Info(id uuid.UUID) (*Info, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return s.describe(e), nil
}

// List returns every live session, newest first.
func (s *Service) List() []*Info {
	s.mu.RLock()
	out := make([]*Info, 0, len(s.sessions))
	for _, e := range s.sessions {
		out = append(out, s.describe(e))
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Count returns the number of live sessions.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Dispatch delivers one participant message. CONNECT to a protected session
// must carry the password.
func (s *Service) Dispatch(ctx context.Context, id uuid.UUID, m dispatcher.Message) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}
	if len(e.password) > 0 && strings.EqualFold(m.Verb, dispatcher.VerbConnect) {
		if bcrypt.CompareHashAndPassword(e.password, []byte(m.Password())) != nil {
			return game.Violation(dispatcher.VerbConnect, game.ErrWrongPassword)
		}
	}
	return s.dispatcher.Dispatch(ctx, e.orch, m)
}

// Step fires the pending task of an unmanaged session.
func (s *Service) Step(ctx context.Context, id uuid.UUID) (bool, error) {
	e, err := s.lookup(id)
	if err != nil {
		return false, err
	}
	return e.orch.Step(ctx)
}

// Snapshot returns the live state of one session.
func (s *Service) Snapshot(ctx context.Context, id uuid.UUID) (orchestrator.Snapshot, error) {
	e, err := s.lookup(id)
	if err != nil {
		return orchestrator.Snapshot{}, err
	}
	return e.orch.Snapshot(ctx)
}

// Diagnostics returns the scheduler view of one session.
func (s *Service) Diagnostics(ctx context.Context, id uuid.UUID) (orchestrator.Diagnostics, error) {
	e, err := s.lookup(id)
	if err != nil {
		return orchestrator.Diagnostics{}, err
	}
	return e.orch.Diagnostics(ctx)
}

// Close stops a session and drops it from the registry.
func (s *Service) Close(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	e, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	if err := e.orch.Close(ctx); err != nil {
		s.logger.Warn().Err(err).Str("session", id.String()).Msg("failed to close session cleanly")
		return err
	}
	s.logger.Info().Str("session", id.String()).Msg("session closed")
	return nil
}

// ReapIdle closes finished sessions and sessions without activity for ttl.
// It returns the number of sessions removed.
func (s *Service) ReapIdle(ctx context.Context, ttl time.Duration) int {
	now := s.deps.Clock.Now()
	var stale []uuid.UUID
	s.mu.RLock()
	for id, e := range s.sessions {
		if e.orch.Finished() || now.Sub(e.orch.LastActivity()) > ttl {
			stale = append(stale, id)
		}
	}
	s.mu.RUnlock()

	reaped := 0
	for _, id := range stale {
		if err := s.Close(ctx, id); err == nil {
			reaped++
		}
	}
	if reaped > 0 {
		s.logger.Info().Int("reaped", reaped).Int("live", s.Count()).Msg("idle sessions reaped")
	}
	return reaped
}

// Shutdown closes every session.
func (s *Service) Shutdown(ctx context.Context) {
	s.mu.RLock()
	ids := make([]uuid.UUID, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	for _, id := range ids {
		_ = s.Close(ctx, id)
	}
}

func (s *Service) lookup(id uuid.UUID) (*entry, error) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

func (s *Service) describe(e *entry) *Info {
	info := e.info
	info.Finished = e.orch.Finished()
	info.LastActivity = e.orch.LastActivity().UTC()
	return &info
}
