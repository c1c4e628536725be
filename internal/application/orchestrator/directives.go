package orchestrator

import (
	"time"

	"github.com/quiz-hub/quiz-hub/internal/domain/auction"
	"github.com/quiz-hub/quiz-hub/internal/domain/game"
	"github.com/quiz-hub/quiz-hub/internal/domain/notification"
	"github.com/quiz-hub/quiz-hub/internal/domain/rules"
	"github.com/quiz-hub/quiz-hub/internal/scheduler"
)

// input is the participant answer to the decision being waited on.
type input struct {
	set    bool
	player int
	theme  int
	index  int
	price  int
	right  bool
	bid    auction.Bid
}

func (o *Orchestrator) expect(d game.Decision) {
	o.state.Decision = d
	o.state.Waiting = true
	o.in = input{player: -1, theme: -1, index: -1}
}

// decided rejects a second input for a decision whose input is already
// collected and waits for the pause to end.
func (o *Orchestrator) decided(verb string) error {
	if o.in.set {
		return game.Violation(verb, game.ErrUnexpected, "already decided")
	}
	return nil
}

func (o *Orchestrator) settle() {
	o.state.Decision = game.DecisionNone
	o.state.Waiting = false
	o.in = input{player: -1, theme: -1, index: -1}
}

// onDecision consumes the collected input. It returns false when the
// decision is still incomplete.
func (o *Orchestrator) onDecision() bool {
	s := o.state
	switch s.Decision {
	case game.DecisionStarterChoosing:
		if !o.in.set {
			return false
		}
		s.Chooser = game.Pointer(o.in.player)
		o.askToChoose()
	case game.DecisionQuestionSelection:
		if !o.in.set {
			return false
		}
		o.selectQuestion(o.in.theme, o.in.index)
	case game.DecisionAnswering:
		if !o.allAnswered() {
			return false
		}
		o.stopTimer(game.TimerThinking)
		o.validateAnswers()
	case game.DecisionAnswerValidating:
		if !o.in.set {
			return false
		}
		o.judge(o.in.right)
	case game.DecisionQuestionAnswererSelection:
		if !o.in.set {
			return false
		}
		o.giveCat(o.in.player)
	case game.DecisionQuestionPriceSelection:
		if !o.in.set {
			return false
		}
		o.setCatPrice(o.in.price)
	case game.DecisionStakeMaking:
		if !o.in.set {
			return false
		}
		o.afterBid(o.in.player, o.in.bid)
	case game.DecisionNextPersonStakeMaking:
		if !o.in.set {
			return false
		}
		o.askStake(false)
	case game.DecisionThemeDeleting:
		if !o.in.set {
			return false
		}
		o.commitDeletion(o.in.theme)
	case game.DecisionNextPersonFinalThemeDeleting:
		if !o.in.set {
			return false
		}
		o.askDeleter()
	case game.DecisionFinalStakeMaking:
		if !o.allStaked() {
			return false
		}
		o.afterFinalStakes()
	case game.DecisionAppellation:
		if s.Appeal == nil || !s.Appeal.Closed() {
			return false
		}
		o.resolveAppeal()
	case game.DecisionReporting:
		if !o.allReported() {
			return false
		}
		o.finishGame()
	default:
		return false
	}
	o.sched.Progress()
	return true
}

func (o *Orchestrator) startGame() {
	s := o.state
	s.Stage = game.StageBegin
	s.StartedAt = o.now()
	pkg := o.engine.Package()
	s.PackageName = pkg.Name
	o.logger.Info().Str("package", pkg.Name).Int("players", len(s.Seated())).Msg("game started")
	o.notify(notification.EventStage, map[string]any{"stage": s.Stage})
	o.notify(notification.EventPackage, pkg)
	o.schedule(taskStartGame, 0, 1)
}

// moveNext pulls the next directive from the rules engine.
func (o *Orchestrator) moveNext() {
	d, err := o.engine.Next(o.rulesContext())
	if err != nil {
		o.collaboratorFailure("rules engine", err)
		o.endGame()
		return
	}
	o.sched.Trace("directive", string(d.Kind))
	o.handleDirective(d)
}

func (o *Orchestrator) handleDirective(d rules.Directive) {
	s := o.state
	p := s.Policy
	switch d.Kind {
	case rules.DirectiveGameStart:
		o.schedule(taskMoveNext, 0, p.ContentDelay)

	case rules.DirectiveRound:
		o.enterRound(d)
		o.schedule(taskMoveNext, 0, p.ContentDelay)

	case rules.DirectiveChooseQuestion:
		s.ResetQuestion()
		o.question = nil
		if s.Timers[game.TimerRound].Expired(o.now()) {
			o.logger.Info().Int("round", s.RoundIndex).Msg("round time is up")
			o.stopTimer(game.TimerRound)
			if err := o.engine.EndRound(); err != nil {
				o.collaboratorFailure("rules engine", err)
			}
			o.schedule(taskMoveNext, 0, 1)
			return
		}
		o.notify(notification.EventTable, d.Themes)
		if !s.Chooser.IsSet() || !s.At(s.Chooser).Active() && len(o.activePlayers()) > 0 {
			o.pickStarter()
			return
		}
		o.askToChoose()

	case rules.DirectiveQuestion:
		o.startQuestion(d.Question)

	case rules.DirectiveFinalThemes:
		o.finalThemes(d.Themes)

	case rules.DirectiveRoundEnd:
		o.stopTimer(game.TimerRound)
		s.Deletion = nil
		s.ResetQuestion()
		o.question = nil
		if d.Round != nil {
			o.notify(notification.EventRound, map[string]any{"index": d.Round.Index, "name": d.Round.Name, "end": true})
		}
		o.schedule(taskMoveNext, 0, p.ContentDelay)

	case rules.DirectiveGameEnd:
		o.endGame()

	default:
		o.logger.Warn().Str("directive", string(d.Kind)).Msg("unknown directive")
		o.schedule(taskMoveNext, 0, p.RandomFallbackDelay)
	}
}

func (o *Orchestrator) enterRound(d rules.Directive) {
	s := o.state
	s.ResetQuestion()
	s.Deletion = nil
	o.question = nil
	if d.Round != nil {
		s.RoundIndex = d.Round.Index
		s.RoundName = d.Round.Name
		if d.Round.Final {
			s.Stage = game.StageFinal
		} else {
			s.Stage = game.StageRound
		}
	}
	o.stopTimer(game.TimerRound)
	if s.Stage == game.StageRound && s.Policy.RoundTime > 0 {
		o.startTimer(game.TimerRound, s.Policy.RoundTime)
	}
	o.logger.Info().Int("round", s.RoundIndex).Str("name", s.RoundName).Msg("round started")
	o.notify(notification.EventStage, map[string]any{"stage": s.Stage})
	o.notify(notification.EventRound, map[string]any{"index": s.RoundIndex, "name": s.RoundName, "final": s.Stage == game.StageFinal})
	o.notify(notification.EventTable, d.Themes)
}

// pickStarter hands the first choice to the lowest-scored player. A tie is
// broken by the showman, or at random when nobody hosts.
func (o *Orchestrator) pickStarter() {
	s := o.state
	cands := o.starterCandidates()
	switch len(cands) {
	case 0:
		o.logger.Warn().Msg("no player can choose, ending round")
		if err := o.engine.EndRound(); err != nil {
			o.collaboratorFailure("rules engine", err)
		}
		o.schedule(taskMoveNext, 0, s.Policy.RandomFallbackDelay)
		return
	case 1:
		s.Chooser = game.Pointer(cands[0])
		o.askToChoose()
		return
	}
	o.expect(game.DecisionStarterChoosing)
	if o.showmanAvailable() {
		o.notify(notification.EventSelectPlayer, map[string]any{"reason": "starter", "candidates": cands}, s.Showman.Name)
		o.schedule(taskWaitFirst, 0, s.Policy.ShowmanDecisionTime)
		return
	}
	o.schedule(taskWaitFirst, 0, s.Policy.RandomFallbackDelay)
}

func (o *Orchestrator) starterCandidates() []int {
	cands := o.state.LowestScored(func(_ int, p *game.Player) bool { return p.Active() })
	if len(cands) == 0 {
		cands = o.state.LowestScored(func(_ int, p *game.Player) bool { return !p.Free() })
	}
	return cands
}

func (o *Orchestrator) starterTimeout() {
	cands := o.starterCandidates()
	if len(cands) == 0 {
		o.pickStarter()
		return
	}
	o.state.Chooser = game.Pointer(cands[o.pick(len(cands))])
	o.askToChoose()
}

func (o *Orchestrator) askToChoose() {
	s := o.state
	chooser := s.At(s.Chooser)
	if chooser == nil {
		o.pickStarter()
		return
	}
	o.expect(game.DecisionQuestionSelection)
	o.notify(notification.EventChooser, map[string]any{"player": s.Chooser.Index(), "name": chooser.Name})
	delay := s.Policy.ChoosingTime
	if !chooser.Active() || !chooser.IsHuman {
		delay = s.Policy.RandomFallbackDelay
	}
	o.schedule(taskWaitChoose, 0, delay)
}

func (o *Orchestrator) chooseTimeout() {
	var avail [][2]int
	for _, t := range o.engine.Themes() {
		for qi, price := range t.Prices {
			if price > 0 && !t.Deleted {
				avail = append(avail, [2]int{t.Index, qi})
			}
		}
	}
	if len(avail) == 0 {
		o.settle()
		o.schedule(taskMoveNext, 0, 1)
		return
	}
	c := avail[o.pick(len(avail))]
	o.selectQuestion(c[0], c[1])
}

func (o *Orchestrator) selectQuestion(theme, index int) {
	q, err := o.engine.SelectQuestion(theme, index)
	if err != nil {
		o.collaboratorFailure("rules engine", err)
		o.settle()
		o.schedule(taskMoveNext, 0, o.state.Policy.RandomFallbackDelay)
		return
	}
	o.notify(notification.EventChoice, map[string]any{"theme": theme, "index": index, "price": q.Price})
	o.startQuestion(q)
}

// endGame closes the last round and collects player reviews.
func (o *Orchestrator) endGame() {
	s := o.state
	if s.Stage == game.StageAfter {
		return
	}
	for _, k := range game.Timers() {
		o.stopTimer(k)
	}
	o.sched.DropPaused()
	s.Stage = game.StageAfter
	s.EndedAt = o.now()
	o.question = nil
	o.notify(notification.EventStage, map[string]any{"stage": s.Stage})

	var reviewers []string
	for _, p := range s.Players {
		p.Reported = false
		if p.Active() && p.IsHuman {
			reviewers = append(reviewers, p.Name)
		}
	}
	if len(reviewers) == 0 {
		o.finishGame()
		return
	}
	o.expect(game.DecisionReporting)
	o.notify(notification.EventReportAsk, nil, reviewers...)
	o.schedule(taskWaitReport, 0, s.Policy.ReportTime)
}

// finishGame publishes the result and stores the report.
func (o *Orchestrator) finishGame() {
	if o.finished.Load() {
		return
	}
	s := o.state
	o.settle()
	if s.EndedAt.IsZero() {
		s.EndedAt = o.now()
	}
	r := o.buildReport()
	o.notify(notification.EventWinner, map[string]any{"winners": r.Winners})
	o.notify(notification.EventGameEnd, map[string]any{"scores": r.Scores})
	if o.saver != nil {
		o.saver.Save(r)
	}
	o.sched.Cancel()
	o.sched.DropPaused()
	o.finished.Store(true)
	o.logger.Info().Strs("winners", r.Winners).Dur("duration", r.Duration()).Msg("game finished")
}

func (o *Orchestrator) allReported() bool {
	for _, p := range o.state.Players {
		if p.Active() && p.IsHuman && !p.Reported {
			return false
		}
	}
	return true
}

func (o *Orchestrator) collaboratorFailure(name string, err error) {
	cf := &game.CollaboratorFailure{Collaborator: name, Err: err}
	o.logger.Error().Err(err).Str("collaborator", name).Msg("collaborator failure")
	o.report(cf, "")
}

func (o *Orchestrator) startTimer(k game.TimerKind, ds int) {
	o.state.Timers[k].Start(o.now(), scheduler.Deciseconds(ds).Duration())
	o.notify(notification.EventTimer, map[string]any{"timer": k.String(), "action": "start", "max": ds})
}

func (o *Orchestrator) stopTimer(k game.TimerKind) {
	t := &o.state.Timers[k]
	if !t.Running {
		return
	}
	t.Stop()
	o.notify(notification.EventTimer, map[string]any{"timer": k.String(), "action": "stop"})
}

func (o *Orchestrator) activePlayers() []int {
	var out []int
	for i, p := range o.state.Players {
		if p.Active() {
			out = append(out, i)
		}
	}
	return out
}

func (o *Orchestrator) showmanAvailable() bool {
	sm := o.state.Showman
	return !sm.Free() && sm.Connected && sm.IsHuman
}

func (o *Orchestrator) elapsed(k game.TimerKind) time.Duration {
	return o.state.Timers[k].ElapsedAt(o.now())
}
