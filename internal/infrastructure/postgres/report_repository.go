package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quiz-hub/quiz-hub/internal/domain/report"
)

const reportColumns = `id, report_id, session_id, session_name, package_name, scores, winners, reviews, started_at, ended_at, signature, created_at`

// ReportRepository implements report.Repository.
type ReportRepository struct {
	pool *pgxpool.Pool
}

func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

func (r *ReportRepository) Create(ctx context.Context, rep *report.Report) error {
	scores, err := json.Marshal(nonNil(rep.Scores))
	if err != nil {
		return err
	}
	reviews, err := json.Marshal(nonNil(rep.Reviews))
	if err != nil {
		return err
	}
	winners := rep.Winners
	if winners == nil {
		winners = []string{}
	}
	var started *time.Time
	if !rep.StartedAt.IsZero() {
		started = &rep.StartedAt
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO game_reports
		(report_id, session_id, session_name, package_name, scores, winners, reviews, started_at, ended_at, signature, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, rep.ReportID, rep.SessionID, rep.SessionName, rep.PackageName, scores, winners, reviews, started, rep.EndedAt, rep.Signature, rep.CreatedAt)
	return err
}

func (r *ReportRepository) GetByID(ctx context.Context, reportID uuid.UUID) (*report.Report, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+reportColumns+` FROM game_reports WHERE report_id=$1`, reportID)
	return scanReport(row)
}

func (r *ReportRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*report.Report, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+reportColumns+`
		FROM game_reports WHERE session_id=$1 ORDER BY created_at DESC, id DESC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	return collectReports(rows)
}

func (r *ReportRepository) List(ctx context.Context, limit, offset int) ([]*report.Report, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+reportColumns+`
		FROM game_reports ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectReports(rows)
}

func collectReports(rows pgx.Rows) ([]*report.Report, error) {
	defer rows.Close()
	var list []*report.Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, rep)
	}
	return list, rows.Err()
}

func scanReport(row pgx.Row) (*report.Report, error) {
	var rep report.Report
	var scores, reviews []byte
	var started *time.Time
	if err := row.Scan(&rep.ID, &rep.ReportID, &rep.SessionID, &rep.SessionName, &rep.PackageName, &scores, &rep.Winners, &reviews, &started, &rep.EndedAt, &rep.Signature, &rep.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if len(scores) > 0 {
		if err := json.Unmarshal(scores, &rep.Scores); err != nil {
			return nil, err
		}
	}
	if len(reviews) > 0 {
		if err := json.Unmarshal(reviews, &rep.Reviews); err != nil {
			return nil, err
		}
	}
	if started != nil {
		rep.StartedAt = *started
	}
	return &rep, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
