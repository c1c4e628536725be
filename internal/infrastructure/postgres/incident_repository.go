package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quiz-hub/quiz-hub/internal/domain/game"
	"github.com/quiz-hub/quiz-hub/internal/domain/incident"
)

const incidentColumns = `id, incident_id, session_id, kind, message, detail, history, created_at`

// IncidentRepository implements incident.Repository.
type IncidentRepository struct {
	pool *pgxpool.Pool
}

func NewIncidentRepository(pool *pgxpool.Pool) *IncidentRepository {
	return &IncidentRepository{pool: pool}
}

func (r *IncidentRepository) Create(ctx context.Context, inc *incident.Incident) error {
	history := inc.History
	if history == nil {
		history = []string{}
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO session_incidents (incident_id, session_id, kind, message, detail, history, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, inc.IncidentID, inc.SessionID, string(inc.Kind), inc.Message, inc.Detail, history, inc.CreatedAt)
	return err
}

func (r *IncidentRepository) GetByID(ctx context.Context, incidentID uuid.UUID) (*incident.Incident, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+incidentColumns+` FROM session_incidents WHERE incident_id=$1`, incidentID)
	return scanIncident(row)
}

func (r *IncidentRepository) Query(ctx context.Context, filter incident.Filter, cursor *incident.Cursor, limit int) ([]*incident.Incident, *incident.Cursor, error) {
	query := `SELECT ` + incidentColumns + ` FROM session_incidents`
	args := []interface{}{}
	idx := 1
	if filter.SessionID != nil {
		query += " WHERE session_id=$" + itoa(idx)
		args = append(args, *filter.SessionID)
		idx++
	}
	if filter.Kind != nil {
		query += addWhere(query) + " kind=$" + itoa(idx)
		args = append(args, string(*filter.Kind))
		idx++
	}
	if filter.Since != nil {
		query += addWhere(query) + " created_at >= $" + itoa(idx)
		args = append(args, *filter.Since)
		idx++
	}
	if cursor != nil {
		query += addWhere(query) + " (created_at, id) < ($" + itoa(idx) + ", $" + itoa(idx+1) + ")"
		args = append(args, cursor.CreatedAt, cursor.ID)
		idx += 2
	}

	query += " ORDER BY created_at DESC, id DESC LIMIT $" + itoa(idx)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var list []*incident.Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, nil, err
		}
		list = append(list, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var next *incident.Cursor
	if len(list) == limit {
		last := list[len(list)-1]
		next = &incident.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return list, next, nil
}

func scanIncident(row pgx.Row) (*incident.Incident, error) {
	var inc incident.Incident
	var kind string
	if err := row.Scan(&inc.ID, &inc.IncidentID, &inc.SessionID, &kind, &inc.Message, &inc.Detail, &inc.History, &inc.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	inc.Kind = game.FaultKind(kind)
	return &inc, nil
}
