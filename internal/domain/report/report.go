package report

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("report not found")

// Score is one player's final result.
type Score struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Review is a player's end-of-game feedback.
type Review struct {
	Player string `json:"player"`
	Text   string `json:"text"`
}

// Report is the final record of a finished game.
type Report struct {
	ID          int64     `json:"id"`
	ReportID    uuid.UUID `json:"reportId"`
	SessionID   uuid.UUID `json:"sessionId"`
	SessionName string    `json:"sessionName"`
	PackageName string    `json:"packageName"`
	Scores      []Score   `json:"scores"`
	Winners     []string  `json:"winners"`
	Reviews     []Review  `json:"reviews"`
	StartedAt   time.Time `json:"startedAt"`
	EndedAt     time.Time `json:"endedAt"`
	Signature   []byte    `json:"signature,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewReport builds a report. Winners are the players sharing the top
// positive score. Times keep the microsecond precision they are stored with.
func NewReport(sessionID uuid.UUID, sessionName, packageName string, scores []Score, reviews []Review, started, ended time.Time) *Report {
	return &Report{
		ReportID:    uuid.New(),
		SessionID:   sessionID,
		SessionName: sessionName,
		PackageName: packageName,
		Scores:      scores,
		Winners:     Winners(scores),
		Reviews:     reviews,
		StartedAt:   started.UTC().Truncate(time.Microsecond),
		EndedAt:     ended.UTC().Truncate(time.Microsecond),
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
}

// Winners returns the names holding the highest positive score.
func Winners(scores []Score) []string {
	best := 0
	var out []string
	for _, s := range scores {
		switch {
		case s.Score <= 0:
		case s.Score > best:
			best = s.Score
			out = []string{s.Name}
		case s.Score == best:
			out = append(out, s.Name)
		}
	}
	return out
}

// Duration is the length of the game.
func (r *Report) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.EndedAt.Before(r.StartedAt) {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// Repository defines the interface for report persistence
type Repository interface {
	Create(ctx context.Context, r *Report) error
	GetByID(ctx context.Context, reportID uuid.UUID) (*Report, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*Report, error)
	List(ctx context.Context, limit, offset int) ([]*Report, error)
}
