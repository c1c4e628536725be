//go:build integration
// +build integration

package integration

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appIncident "github.com/quiz-hub/quiz-hub/internal/application/incident"
	appReport "github.com/quiz-hub/quiz-hub/internal/application/report"
	"github.com/quiz-hub/quiz-hub/internal/domain/game"
	"github.com/quiz-hub/quiz-hub/internal/domain/incident"
	"github.com/quiz-hub/quiz-hub/internal/domain/report"
	"github.com/quiz-hub/quiz-hub/internal/infrastructure/postgres"
)

const reportKeyHex = "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"

func TestReportStorageIntegration(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	svc := appReport.NewService(postgres.NewReportRepository(pool), zerolog.Nop(), mustDecodeHex(t, reportKeyHex))

	session := uuid.New()
	started := time.Now().Add(-30 * time.Minute)
	first := report.NewReport(session, "friday", "rivers",
		[]report.Score{{Name: "ann", Score: 400}, {Name: "bob", Score: 400}, {Name: "cat", Score: -100}},
		[]report.Review{{Player: "ann", Text: "fun"}},
		started, time.Now())
	require.NoError(t, svc.SaveSync(ctx, first))

	// unstarted game with nobody scoring
	second := report.NewReport(session, "friday", "rivers", []report.Score{{Name: "dan", Score: 0}}, nil, time.Time{}, time.Now())
	require.NoError(t, svc.SaveSync(ctx, second))

	got, err := svc.Get(ctx, first.ReportID)
	require.NoError(t, err)
	assert.Equal(t, []string{"ann", "bob"}, got.Winners)
	assert.Equal(t, first.Scores, got.Scores)
	assert.Equal(t, first.Reviews, got.Reviews)
	assert.NotEmpty(t, got.Signature)

	ok, err := svc.Verify(ctx, first.ReportID)
	require.NoError(t, err)
	assert.True(t, ok)

	bySession, err := svc.ListBySession(ctx, session)
	require.NoError(t, err)
	assert.Len(t, bySession, 2)

	page, err := svc.List(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, page, 1)

	_, err = svc.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, report.ErrNotFound)
}

func TestIncidentQueryIntegration(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	svc := appIncident.NewService(postgres.NewIncidentRepository(pool), zerolog.Nop())

	session := uuid.New()
	other := uuid.New()
	faults := []struct {
		session uuid.UUID
		err     error
	}{
		{session, game.Violation("I", game.ErrUnknownSender)},
		{session, &game.SchedulingStall{Kind: "MoveNext", Count: 10}},
		{session, &game.InvariantViolation{What: "pointer out of range", History: []string{"CONNECT ann", "START"}}},
		{other, game.Violation("STAKE", game.ErrUnknownSender)},
	}
	for _, f := range faults {
		require.NoError(t, svc.Record(ctx, incident.New(f.session, f.err, "", nil)))
	}

	// pages of two walk the session's incidents newest first
	first, err := svc.Query(ctx, appIncident.QueryParams{SessionID: &session, Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Incidents, 2)
	require.True(t, first.Pagination.HasMore)
	assert.Equal(t, game.FaultInvariant, first.Incidents[0].Kind)
	assert.Equal(t, []string{"CONNECT ann", "START"}, first.Incidents[0].History)

	second, err := svc.Query(ctx, appIncident.QueryParams{SessionID: &session, Cursor: first.Pagination.Cursor, Limit: 2})
	require.NoError(t, err)
	require.Len(t, second.Incidents, 1)
	assert.False(t, second.Pagination.HasMore)
	assert.Equal(t, game.FaultProtocol, second.Incidents[0].Kind)

	kind := string(game.FaultProtocol)
	byKind, err := svc.Query(ctx, appIncident.QueryParams{Kind: &kind})
	require.NoError(t, err)
	assert.Len(t, byKind.Incidents, 2)

	got, err := svc.GetByID(ctx, byKind.Incidents[0].IncidentID)
	require.NoError(t, err)
	assert.Equal(t, byKind.Incidents[0].Message, got.Message)
}

func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := testDatabaseURL(t)
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, dsn)
	require.NoError(t, err, "db pool")
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.RunMigrations(ctx, pool, filepath.Join(repoRoot(t), "internal", "migrations")), "migrations")
	require.NoError(t, resetDatabase(ctx, pool), "reset db")
	return pool
}

func testDatabaseURL(t *testing.T) string {
	t.Helper()
	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		return dsn
	}
	t.Skip("TEST_DATABASE_URL not set; skipping integration tests")
	return ""
}

func repoRoot(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}

func resetDatabase(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `TRUNCATE TABLE game_reports, session_incidents RESTART IDENTITY CASCADE`)
	return err
}

func mustDecodeHex(t *testing.T, value string) []byte {
	t.Helper()
	b, err := hex.DecodeString(value)
	if err != nil {
		t.Fatalf("invalid hex: %v", err)
	}
	return b
}
