package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/quiz-hub/quiz-hub/internal/domain/game"
	"github.com/quiz-hub/quiz-hub/internal/domain/notification"
	"github.com/quiz-hub/quiz-hub/internal/domain/report"
	"github.com/quiz-hub/quiz-hub/internal/domain/rules"
	"github.com/quiz-hub/quiz-hub/internal/scheduler"
)

func (o *Orchestrator) notify(event notification.Event, data any, to ...string) {
	o.pub.Publish(notification.NewMessage(o.state.ID, event, data, to...))
}

// PlayerView is the public part of a seat.
type PlayerView struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	Score     int    `json:"score"`
	Human     bool   `json:"human"`
	Connected bool   `json:"connected"`
	Ready     bool   `json:"ready"`
	InGame    bool   `json:"inGame"`
}

// TimerView is a timer as seen at snapshot time.
type TimerView struct {
	Kind    string `json:"kind"`
	Running bool   `json:"running"`
	Paused  bool   `json:"paused"`
	Elapsed int64  `json:"elapsedMs"`
	Max     int64  `json:"maxMs"`
}

// Snapshot is a read-only copy of the session for INFO and the HTTP API.
type Snapshot struct {
	ID           uuid.UUID     `json:"id"`
	Name         string        `json:"name"`
	Stage        game.Stage    `json:"stage"`
	JoinMode     game.JoinMode `json:"joinMode"`
	Host         string        `json:"host"`
	Showman      string        `json:"showman"`
	Players      []PlayerView  `json:"players"`
	Viewers      []string      `json:"viewers"`
	Options      game.Options  `json:"options"`
	Decision     game.Decision `json:"decision"`
	Waiting      bool          `json:"waiting"`
	Paused       bool          `json:"paused"`
	Blocked      bool          `json:"blocked"`
	Finished     bool          `json:"finished"`
	Chooser      int           `json:"chooser"`
	Answerer     int           `json:"answerer"`
	Staker       int           `json:"staker"`
	Appellant    int           `json:"appellant"`
	Package      string        `json:"package"`
	RoundIndex   int           `json:"roundIndex"`
	RoundName    string        `json:"roundName"`
	ThemeName    string        `json:"themeName,omitempty"`
	QuestionType string        `json:"questionType,omitempty"`
	Price        int           `json:"price"`
	Themes       []rules.Theme `json:"themes,omitempty"`
	Timers       []TimerView   `json:"timers"`
	Managed      bool          `json:"managed"`
}

func (o *Orchestrator) snapshot() Snapshot {
	s := o.state
	snap := Snapshot{
		ID:           s.ID,
		Name:         s.Name,
		Stage:        s.Stage,
		JoinMode:     s.JoinMode,
		Host:         s.Host,
		Showman:      s.Showman.Name,
		Options:      s.Options,
		Decision:     s.Decision,
		Waiting:      s.Waiting,
		Paused:       s.Paused,
		Blocked:      s.Blocked,
		Finished:     o.finished.Load(),
		Chooser:      s.Chooser.Index(),
		Answerer:     s.Answerer.Index(),
		Staker:       s.Staker.Index(),
		Appellant:    s.Appellant.Index(),
		Package:      s.PackageName,
		RoundIndex:   s.RoundIndex,
		RoundName:    s.RoundName,
		ThemeName:    s.ThemeName,
		QuestionType: s.QuestionType,
		Price:        s.Price,
		Managed:      o.sched.Managed(),
	}
	for i, p := range s.Players {
		snap.Players = append(snap.Players, PlayerView{
			Index:     i,
			Name:      p.Name,
			Score:     p.Score,
			Human:     p.IsHuman,
			Connected: p.Connected,
			Ready:     p.Ready,
			InGame:    p.InGame,
		})
	}
	for _, v := range s.Viewers {
		snap.Viewers = append(snap.Viewers, v.Name)
	}
	if s.Stage == game.StageRound || s.Stage == game.StageFinal {
		snap.Themes = o.engine.Themes()
	}
	for _, k := range game.Timers() {
		t := s.Timers[k]
		snap.Timers = append(snap.Timers, TimerView{
			Kind:    k.String(),
			Running: t.Running,
			Paused:  t.Paused,
			Elapsed: o.elapsed(k).Milliseconds(),
			Max:     t.Max.Milliseconds(),
		})
	}
	return snap
}

// Snapshot returns the public session view.
func (o *Orchestrator) Snapshot(ctx context.Context) (Snapshot, error) {
	if err := o.lock(ctx); err != nil {
		return Snapshot{}, err
	}
	defer o.unlock()
	return o.snapshot(), nil
}

// Diagnostics is the operator view of a session.
type Diagnostics struct {
	Blocked    bool              `json:"blocked"`
	Paused     bool              `json:"paused"`
	StopReason game.StopReason   `json:"stopReason"`
	Decision   game.Decision     `json:"decision"`
	Managed    bool              `json:"managed"`
	Pending    *scheduler.Entry  `json:"pending,omitempty"`
	Frozen     []scheduler.Entry `json:"frozen"`
	History    []string          `json:"history"`
	Idle       time.Duration     `json:"idleNs"`
}

// Diagnostics returns the scheduler and interrupt state.
func (o *Orchestrator) Diagnostics(ctx context.Context) (Diagnostics, error) {
	if err := o.lock(ctx); err != nil {
		return Diagnostics{}, err
	}
	defer o.unlock()
	d := Diagnostics{
		Blocked:    o.state.Blocked,
		Paused:     o.state.Paused,
		StopReason: o.stopReason,
		Decision:   o.state.Decision,
		Managed:    o.sched.Managed(),
		Frozen:     o.sched.Paused(),
		History:    o.sched.HistoryLines(),
		Idle:       o.now().Sub(o.LastActivity()),
	}
	if e, ok := o.sched.Pending(); ok {
		d.Pending = &e
	}
	return d, nil
}

func (o *Orchestrator) buildReport() *report.Report {
	s := o.state
	var (
		scores  []report.Score
		reviews []report.Review
	)
	for _, p := range s.Players {
		if p.Free() {
			continue
		}
		scores = append(scores, report.Score{Name: p.Name, Score: p.Score})
		if p.Reported && p.Report != "" {
			reviews = append(reviews, report.Review{Player: p.Name, Text: p.Report})
		}
	}
	return report.NewReport(s.ID, s.Name, s.PackageName, scores, reviews, s.StartedAt, s.EndedAt)
}
