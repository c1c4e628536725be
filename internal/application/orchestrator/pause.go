package orchestrator

import (
	"time"

	"github.com/quiz-hub/quiz-hub/internal/domain/game"
	"github.com/quiz-hub/quiz-hub/internal/domain/notification"
	"github.com/quiz-hub/quiz-hub/internal/scheduler"
)

// togglePause freezes or restores the flow. Pausing freezes t, the task that
// was pending when the stop arrived, and every running timer.
func (o *Orchestrator) togglePause(t scheduler.Task, remaining time.Duration) {
	s := o.state
	now := o.now()
	hold := scheduler.Task{Kind: taskPauseHold}

	if !s.Paused {
		s.Paused = true
		s.PausedAt = now
		for _, k := range game.Timers() {
			s.Timers[k].Pause(now)
		}
		o.pauseFroze = false
		if t.Kind != taskIdle {
			o.pauseFroze = o.sched.Pause(hold)
		}
		if !o.pauseFroze {
			o.sched.Park(hold)
		}
		o.logger.Info().Str("task", string(t.Kind)).Dur("remaining", remaining).Msg("game paused")
		o.notify(notification.EventPause, map[string]any{"paused": true})
		return
	}

	pausedFor := now.Sub(s.PausedAt)
	s.Paused = false
	s.PausedAt = time.Time{}
	for _, k := range game.Timers() {
		s.Timers[k].Resume(pausedFor)
	}
	if o.pauseFroze {
		o.pauseFroze = false
		o.sched.Resume(0)
	} else {
		o.sched.Cancel()
	}
	o.logger.Info().Dur("paused_for", pausedFor).Msg("game resumed")
	o.notify(notification.EventPause, map[string]any{"paused": false, "pausedFor": pausedFor.Milliseconds()})

	if o.decisionDuringPause {
		o.decisionDuringPause = false
		o.Stop(game.StopDecision)
	}
}

func (o *Orchestrator) pause(in Pause) error {
	s := o.state
	if s.Stage == game.StageBefore || o.finished.Load() {
		return game.Violation(in.Verb, game.ErrUnexpected)
	}
	o.Stop(game.StopPause)
	return nil
}
