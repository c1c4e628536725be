package orchestrator

import (
	"github.com/quiz-hub/quiz-hub/internal/domain/auction"
	"github.com/quiz-hub/quiz-hub/internal/domain/game"
	"github.com/quiz-hub/quiz-hub/internal/domain/notification"
	"github.com/quiz-hub/quiz-hub/internal/domain/rules"
	"github.com/quiz-hub/quiz-hub/internal/domain/themedeletion"
)

// finalThemes asks for one more theme deletion. The deletion order is built
// on the first call of the round.
func (o *Orchestrator) finalThemes(themes []rules.Theme) {
	s := o.state
	s.Stage = game.StageFinal
	if s.Deletion == nil {
		var cands []themedeletion.Candidate
		for i, p := range s.Players {
			p.InGame = !p.Free() && p.Score > 0
			if p.InGame {
				cands = append(cands, themedeletion.Candidate{Player: i, Score: p.Score})
			}
		}
		if len(cands) == 0 {
			o.logger.Info().Msg("nobody qualifies for the final round")
			o.endRound()
			return
		}
		s.Deletion = themedeletion.New(cands)
		s.Deletion.MoveNext()
	}
	o.notify(notification.EventTable, themes)
	o.askDeleter()
}

func (o *Orchestrator) endRound() {
	if err := o.engine.EndRound(); err != nil {
		o.collaboratorFailure("rules engine", err)
	}
	o.settle()
	o.schedule(taskMoveNext, 0, o.state.Policy.ContentDelay)
}

func (o *Orchestrator) askDeleter() {
	s := o.state
	d := s.Deletion
	if d == nil || d.Len() == 0 {
		o.endRound()
		return
	}
	player, cands := d.Current()
	if player < 0 && len(cands) == 0 {
		d.MoveNext()
		player, cands = d.Current()
	}
	switch {
	case player >= 0:
		o.expect(game.DecisionThemeDeleting)
		p := s.Players[player]
		o.notify(notification.EventDeleteAsk, map[string]any{"player": player, "name": p.Name})
		delay := s.Policy.DeleteTime
		if !p.Active() || !p.IsHuman {
			delay = s.Policy.RandomFallbackDelay
		}
		o.schedule(taskWaitDelete, 0, delay)
	case len(cands) > 0:
		o.expect(game.DecisionNextPersonFinalThemeDeleting)
		delay := s.Policy.RandomFallbackDelay
		if o.showmanAvailable() {
			o.notify(notification.EventSelectPlayer, map[string]any{"reason": "delete", "candidates": cands}, s.Showman.Name)
			delay = s.Policy.ShowmanDecisionTime
		}
		o.schedule(taskWaitNextDeleter, 0, delay)
	default:
		o.endRound()
	}
}

func (o *Orchestrator) deleteTheme(in DeleteTheme, i int) error {
	s := o.state
	if s.Decision != game.DecisionThemeDeleting {
		return game.Violation(in.Verb, game.ErrUnexpected)
	}
	if deleter, _ := s.Deletion.Current(); deleter != i {
		return game.Violation(in.Verb, game.ErrNotAuthorized, "not your turn")
	}
	if err := o.decided(in.Verb); err != nil {
		return err
	}
	if !o.themeOpen(in.Theme) {
		return game.Violation(in.Verb, game.ErrBadArgument, "theme not available")
	}
	o.in = input{set: true, theme: in.Theme}
	o.Stop(game.StopDecision)
	return nil
}

func (o *Orchestrator) themeOpen(theme int) bool {
	for _, t := range o.engine.Themes() {
		if t.Index == theme {
			return !t.Deleted
		}
	}
	return false
}

// commitDeletion advances the turn first and steps back when the engine
// refuses the deletion, so the same player is asked again.
func (o *Orchestrator) commitDeletion(theme int) {
	s := o.state
	d := s.Deletion
	deleter, _ := d.Current()
	d.MoveNext()
	if err := o.engine.DeleteTheme(theme); err != nil {
		o.logger.Warn().Err(err).Int("theme", theme).Msg("theme deletion refused")
		d.MoveBack()
		o.askDeleter()
		return
	}
	o.settle()
	o.notify(notification.EventThemeDeleted, map[string]any{"player": deleter, "theme": theme})
	o.schedule(taskMoveNext, 0, s.Policy.ContentDelay)
}

func (o *Orchestrator) deleteTimeout() {
	var open []int
	for _, t := range o.engine.Themes() {
		if !t.Deleted {
			open = append(open, t.Index)
		}
	}
	if len(open) == 0 {
		o.endRound()
		return
	}
	o.commitDeletion(open[o.pick(len(open))])
}

func (o *Orchestrator) selectDeleter(in SelectPlayer) error {
	if err := o.decided(in.Verb); err != nil {
		return err
	}
	if err := o.state.Deletion.SetCurrent(in.Index); err != nil {
		return game.Violation(in.Verb, game.ErrBadArgument, err.Error())
	}
	o.in = input{set: true, player: in.Index}
	o.Stop(game.StopDecision)
	return nil
}

func (o *Orchestrator) nextDeleterTimeout() {
	d := o.state.Deletion
	_, cands := d.Current()
	if len(cands) > 0 {
		if err := d.SetCurrent(cands[o.pick(len(cands))]); err != nil {
			o.logger.Warn().Err(err).Msg("random deleter rejected")
		}
	}
	o.askDeleter()
}

// Final stakes.

func (o *Orchestrator) startFinalStakes() {
	s := o.state
	var answerers []int
	for i, p := range s.Players {
		p.InGame = !p.Free() && p.Score > 0
		if p.InGame {
			answerers = append(answerers, i)
		}
	}
	if len(answerers) == 0 {
		o.skipQuestion()
		return
	}
	s.Question.SetAnswerers(answerers...)
	o.expect(game.DecisionFinalStakeMaking)
	for _, a := range answerers {
		p := s.Players[a]
		o.notify(notification.EventFinalStakeAsk, map[string]any{"min": o.minFinalStake(p), "max": p.Score}, p.Name)
	}
	o.schedule(taskWaitFinalStake, 0, s.Policy.StakeTime)
}

func (o *Orchestrator) minFinalStake(p *game.Player) int {
	return min(o.state.Policy.MinFinalStake, p.Score)
}

func (o *Orchestrator) finalStake(in Stake, i int) error {
	s := o.state
	p := s.Players[i]
	if !s.Question.IsAnswerer(i) || p.StakeMade {
		return game.Violation(in.Verb, game.ErrUnexpected)
	}
	sum := in.Bid.Sum
	switch in.Bid.Kind {
	case auction.BidAllIn:
		sum = p.Score
	case auction.BidSum:
	default:
		return game.Violation(in.Verb, game.ErrBadArgument, "final stake must be a sum")
	}
	if sum < o.minFinalStake(p) || sum > p.Score {
		return game.Violation(in.Verb, game.ErrBadArgument, "stake out of range")
	}
	p.Stake = sum
	p.StakeMade = true
	o.notify(notification.EventFinalStakeMade, map[string]any{"player": i})
	o.Stop(game.StopDecision)
	return nil
}

func (o *Orchestrator) allStaked() bool {
	for _, a := range o.state.Question.Answerers {
		if !o.state.Players[a].StakeMade {
			return false
		}
	}
	return true
}

func (o *Orchestrator) finalStakeTimeout() {
	for _, a := range o.state.Question.Answerers {
		p := o.state.Players[a]
		if !p.StakeMade {
			p.Stake = o.minFinalStake(p)
			p.StakeMade = true
		}
	}
	o.afterFinalStakes()
}

func (o *Orchestrator) afterFinalStakes() {
	o.settle()
	if len(o.state.Question.Answerers) == 0 {
		o.skipQuestion()
		return
	}
	o.schedule(taskContent, 0, o.state.Policy.ContentDelay)
}
