package orchestrator

import (
	"github.com/quiz-hub/quiz-hub/internal/domain/appellation"
	"github.com/quiz-hub/quiz-hub/internal/domain/game"
	"github.com/quiz-hub/quiz-hub/internal/domain/notification"
	"github.com/quiz-hub/quiz-hub/internal/scheduler"
)

type appealRequest struct {
	kind       appellation.Kind
	appellant  int
	disputants []int
}

func (o *Orchestrator) appellate(in Appellate, i int) error {
	s := o.state
	if !s.Options.Appellations {
		return game.Violation(in.Verb, game.ErrUnexpected, "appellations disabled")
	}
	if !s.Question.AppealOpen || s.Appeal != nil || s.Decision != game.DecisionNone {
		return game.Violation(in.Verb, game.ErrUnexpected)
	}

	req := appealRequest{appellant: i}
	if in.Positive {
		req.kind = appellation.KindPositive
		for _, r := range s.Question.Records(i) {
			if !r.Right {
				req.disputants = []int{i}
				break
			}
		}
	} else {
		req.kind = appellation.KindNegative
		for _, a := range s.Question.RightAnswerers() {
			if a != i {
				req.disputants = append(req.disputants, a)
			}
		}
	}
	if len(req.disputants) == 0 {
		return game.Violation(in.Verb, game.ErrBadArgument, "nothing to dispute")
	}
	o.appeal = req
	s.Appellant = game.Pointer(i)
	o.Stop(game.StopAppellation)
	return nil
}

// openAppellation freezes the running flow and starts the vote.
func (o *Orchestrator) openAppellation() {
	s := o.state
	req := o.appeal
	o.appealFroze = o.sched.Pause(scheduler.Task{})
	s.Appeal = appellation.New(req.kind, req.appellant, req.disputants, s.Seated(), s.Policy.Majority)
	o.expect(game.DecisionAppellation)
	o.notify(notification.EventAppellation, map[string]any{
		"appellant":  req.appellant,
		"kind":       req.kind,
		"disputants": req.disputants,
	})
	if s.Appeal.Closed() {
		o.resolveAppeal()
		return
	}
	o.schedule(taskWaitAppellation, 0, s.Policy.AppellationTime)
}

func (o *Orchestrator) vote(in Vote, i int) error {
	s := o.state
	if s.Decision != game.DecisionAppellation || s.Appeal == nil {
		return game.Violation(in.Verb, game.ErrUnexpected)
	}
	if _, err := s.Appeal.Cast(i, in.Overturn); err != nil {
		return game.Violation(in.Verb, game.ErrBadArgument, err.Error())
	}
	o.notify(notification.EventVote, map[string]any{"player": i, "overturn": in.Overturn})
	o.Stop(game.StopDecision)
	return nil
}

func (o *Orchestrator) appellationTimeout() {
	if o.state.Appeal != nil {
		o.state.Appeal.Expire()
	}
	o.resolveAppeal()
}

// resolveAppeal applies the outcome and lets the frozen flow continue.
func (o *Orchestrator) resolveAppeal() {
	s := o.state
	v := s.Appeal
	if v != nil && v.Outcome == appellation.OutcomeOverturned {
		for _, d := range v.Disputants {
			p := s.Player(d)
			if p == nil {
				continue
			}
			for _, r := range s.Question.Records(d) {
				p.Score -= r.Delta
				r.Right = !r.Right
				r.Delta = o.delta(r.Right, o.stakeOf(d))
				p.Score += r.Delta
			}
		}
		if v.Kind == appellation.KindPositive && s.Player(v.Appellant) != nil {
			s.Chooser = game.Pointer(v.Appellant)
		}
		o.notifyScores()
	}
	if v != nil {
		o.notify(notification.EventVoteResult, map[string]any{
			"outcome":  v.Outcome,
			"uphold":   v.Uphold,
			"overturn": v.Overturn,
		})
		o.logger.Info().Str("outcome", string(v.Outcome)).Int("uphold", v.Uphold).Int("overturn", v.Overturn).Msg("appellation closed")
	}

	s.Appellant = game.NoPlayer
	s.Question.AppealOpen = false
	o.appeal = appealRequest{}
	o.settle()
	if o.appealFroze {
		o.appealFroze = false
		if _, ok := o.sched.Resume(0); ok {
			return
		}
	}
	o.schedule(taskQuestionEnd, 0, 1)
}
