package incident

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/quiz-hub/quiz-hub/internal/domain/game"
	"github.com/quiz-hub/quiz-hub/internal/domain/incident"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Create(ctx context.Context, inc *incident.Incident) error {
	args := m.Called(ctx, inc)
	return args.Error(0)
}

func (m *mockRepository) GetByID(ctx context.Context, id uuid.UUID) (*incident.Incident, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*incident.Incident), args.Error(1)
}

func (m *mockRepository) Query(ctx context.Context, filter incident.Filter, cursor *incident.Cursor, limit int) ([]*incident.Incident, *incident.Cursor, error) {
	args := m.Called(ctx, filter, cursor, limit)
	var (
		list []*incident.Incident
		next *incident.Cursor
	)
	if v := args.Get(0); v != nil {
		list = v.([]*incident.Incident)
	}
	if v := args.Get(1); v != nil {
		next = v.(*incident.Cursor)
	}
	return list, next, args.Error(2)
}

func TestService_ReportStoresAsynchronously(t *testing.T) {
	repo := &mockRepository{}
	session := uuid.New()
	stored := make(chan *incident.Incident, 1)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*incident.Incident")).
		Run(func(args mock.Arguments) { stored <- args.Get(1).(*incident.Incident) }).
		Return(nil)

	svc := NewService(repo, zerolog.Nop())
	svc.Report(session, &game.SchedulingStall{Kind: "MOVE_NEXT", Count: 26}, "MOVE_NEXT", []string{"a", "b"})

	select {
	case inc := <-stored:
		assert.Equal(t, session, inc.SessionID)
		assert.Equal(t, game.FaultStall, inc.Kind)
		assert.Equal(t, "MOVE_NEXT", inc.Detail)
		assert.Equal(t, []string{"a", "b"}, inc.History)
	case <-time.After(time.Second):
		t.Fatal("incident was not stored")
	}
}

func TestService_ReportWithoutRepository(t *testing.T) {
	svc := NewService(nil, zerolog.Nop())
	assert.NotPanics(t, func() {
		svc.Report(uuid.New(), errors.New("boom"), "", nil)
	})
}

func TestService_Query(t *testing.T) {
	ctx := context.Background()
	session := uuid.New()
	next := &incident.Cursor{CreatedAt: time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC), ID: 41}

	t.Run("clamps the limit and encodes the next cursor", func(t *testing.T) {
		repo := &mockRepository{}
		page := []*incident.Incident{{ID: 42, SessionID: session}}
		repo.On("Query", ctx, incident.Filter{SessionID: &session}, (*incident.Cursor)(nil), 200).
			Return(page, next, nil)
		svc := NewService(repo, zerolog.Nop())

		res, err := svc.Query(ctx, QueryParams{SessionID: &session, Limit: 1000})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Pagination.Count)
		assert.True(t, res.Pagination.HasMore)
		require.NotNil(t, res.Pagination.Cursor)

		decoded, err := decodeCursor(*res.Pagination.Cursor)
		require.NoError(t, err)
		assert.Equal(t, next.ID, decoded.ID)
		assert.True(t, next.CreatedAt.Equal(decoded.CreatedAt))
	})

	t.Run("passes the cursor and kind through", func(t *testing.T) {
		repo := &mockRepository{}
		kind := game.FaultInvariant
		repo.On("Query", ctx, incident.Filter{Kind: &kind}, mock.MatchedBy(func(c *incident.Cursor) bool {
			return c != nil && c.ID == next.ID
		}), 50).Return(nil, nil, nil)
		svc := NewService(repo, zerolog.Nop())

		encoded, err := encodeCursor(next)
		require.NoError(t, err)
		k := string(game.FaultInvariant)
		res, err := svc.Query(ctx, QueryParams{Kind: &k, Cursor: &encoded})
		require.NoError(t, err)
		assert.False(t, res.Pagination.HasMore)
		assert.Nil(t, res.Pagination.Cursor)
		repo.AssertExpectations(t)
	})

	t.Run("rejects a garbled cursor", func(t *testing.T) {
		svc := NewService(&mockRepository{}, zerolog.Nop())
		bad := "%%%"
		_, err := svc.Query(ctx, QueryParams{Cursor: &bad})
		assert.Error(t, err)
	})
}

func TestService_GetByID(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	repo := &mockRepository{}
	repo.On("GetByID", ctx, id).Return(nil, nil)
	svc := NewService(repo, zerolog.Nop())

	_, err := svc.GetByID(ctx, id)
	assert.ErrorIs(t, err, incident.ErrNotFound)
}
