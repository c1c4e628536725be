package orchestrator

import (
	"github.com/quiz-hub/quiz-hub/internal/domain/game"
	"github.com/quiz-hub/quiz-hub/internal/scheduler"
)

// admit rejects intents from unknown senders and gameplay intents the
// current session state cannot take.
func (o *Orchestrator) admit(in Intent) error {
	s := o.state
	verb := in.origin().Verb
	if in.Sender() == "" {
		return game.Violation(verb, game.ErrUnknownSender)
	}
	if _, ok := in.(Connect); ok {
		return nil
	}
	if _, known := s.Role(in.Sender()); !known && !s.IsHost(in.Sender()) {
		return game.Violation(verb, game.ErrUnknownSender)
	}

	switch in.(type) {
	case Disconnect, Info:
		return nil
	}
	if o.finished.Load() {
		return game.Violation(verb, game.ErrSessionFinished)
	}
	switch in.(type) {
	case Move, Kick, Ban, Unban, SetHost, Managed, DeleteTable, Free, SetScore:
		return nil
	}
	if s.Blocked {
		return game.Violation(verb, game.ErrSessionBlocked)
	}
	if s.Paused {
		switch in.(type) {
		case Press, Pass, Appellate, MediaAck:
			return game.Violation(verb, game.ErrUnexpected, "paused")
		}
	}
	return nil
}

func (o *Orchestrator) apply(in Intent) error {
	switch v := in.(type) {
	case Connect:
		return o.connect(v)
	case Disconnect:
		return o.disconnect(v)
	case Info:
		o.sendInfo(v.From)
		return nil
	case Ready:
		return o.ready(v)
	case Start:
		return o.start(v)
	case Pause:
		if err := o.requireHost(v.Origin); err != nil {
			return err
		}
		return o.pause(v)
	case Move:
		return o.move(v)
	case Choice:
		return o.choose(v)
	case Press:
		return o.asPlayer(v.Origin, func(i int) error { return o.press(v, i) })
	case Pass:
		return o.asPlayer(v.Origin, func(i int) error { return o.pass(v, i) })
	case Answer:
		return o.asPlayer(v.Origin, func(i int) error { return o.answer(v, i) })
	case MediaAck:
		return o.mediaAck(v)
	case Review:
		return o.asPlayer(v.Origin, func(i int) error { return o.review(v, i) })
	case Validate:
		return o.validate(v)
	case SelectPlayer:
		return o.selectPlayer(v)
	case CatCost:
		return o.asPlayer(v.Origin, func(i int) error { return o.catCost(v, i) })
	case Stake:
		return o.asPlayer(v.Origin, func(i int) error { return o.stake(v, i) })
	case DeleteTheme:
		return o.asPlayer(v.Origin, func(i int) error { return o.deleteTheme(v, i) })
	case Appellate:
		return o.asPlayer(v.Origin, func(i int) error { return o.appellate(v, i) })
	case Vote:
		return o.asPlayer(v.Origin, func(i int) error { return o.vote(v, i) })
	case Kick:
		return o.kick(v.Origin, v.Name, false)
	case Ban:
		return o.kick(v.Origin, v.Name, true)
	case Unban:
		return o.unban(v)
	case SetHost:
		return o.setHost(v)
	case AddTable:
		return o.addTable(v)
	case DeleteTable:
		return o.deleteTable(v)
	case Free:
		return o.free(v)
	case Replace:
		return o.replace(v)
	case SetScore:
		return o.setScore(v)
	case Option:
		return o.setOption(v)
	case SetJoinMode:
		return o.setJoinMode(v)
	case Managed:
		if err := o.requireHost(v.Origin); err != nil {
			return err
		}
		o.sched.SetManaged(v.On)
		return nil
	}
	return game.Violation(in.origin().Verb, game.ErrUnknownVerb)
}

func (o *Orchestrator) asPlayer(from Origin, f func(i int) error) error {
	i := o.state.PlayerIndex(from.From)
	if i < 0 {
		return game.Violation(from.Verb, game.ErrNotAuthorized, "not a player")
	}
	return f(i)
}

// requireHost accepts the host and the showman.
func (o *Orchestrator) requireHost(from Origin) error {
	if o.state.IsHost(from.From) || o.state.IsShowman(from.From) {
		return nil
	}
	return game.Violation(from.Verb, game.ErrNotAuthorized)
}

func (o *Orchestrator) move(in Move) error {
	s := o.state
	if err := o.requireHost(in.Origin); err != nil {
		return err
	}
	if s.Paused {
		return game.Violation(in.Verb, game.ErrUnexpected, "paused")
	}
	if s.Stage == game.StageBefore || o.finished.Load() {
		return game.Violation(in.Verb, game.ErrUnexpected)
	}
	o.pendingMove = in.Kind
	o.Stop(game.StopMove)
	return nil
}

// onMove serves a navigation stop. It returns true when the task t must not
// run.
func (o *Orchestrator) onMove(t scheduler.Task) bool {
	s := o.state
	kind := o.pendingMove
	o.pendingMove = ""
	o.sched.Trace("move", string(kind))

	if kind == MoveNext {
		if s.Blocked {
			s.Blocked = false
			o.resetFlow()
			o.schedule(taskMoveNext, 0, 1)
			return true
		}
		return false
	}

	o.resetFlow()
	switch kind {
	case MoveSkip:
		o.skipQuestion()
	case MoveAnswer:
		if err := o.engine.MoveToAnswer(); err != nil {
			o.logger.Debug().Err(err).Msg("move to answer")
		}
		s.Question.AppealOpen = false
		o.schedule(taskShowRight, 0, 1)
	case MoveNextRound:
		if err := o.engine.NextRound(); err != nil {
			o.endGame()
			return true
		}
		o.leaveRound()
	case MovePrevRound:
		if err := o.engine.PrevRound(); err != nil {
			o.logger.Debug().Err(err).Str("task", t.String()).Msg("previous round refused")
			o.schedule(taskMoveNext, 0, 1)
			return true
		}
		o.leaveRound()
	}
	return true
}

func (o *Orchestrator) leaveRound() {
	s := o.state
	o.stopTimer(game.TimerRound)
	s.Deletion = nil
	s.ResetQuestion()
	o.question = nil
	o.schedule(taskMoveNext, 0, 1)
}

// resetFlow drops every wait so navigation starts from a clean state.
func (o *Orchestrator) resetFlow() {
	s := o.state
	s.Blocked = false
	o.sched.DropPaused()
	o.settle()
	s.Question.ButtonsOpen = false
	s.Question.StopMedia()
	s.Staker = game.NoPlayer
	o.stopTimer(game.TimerThinking)
	o.stopTimer(game.TimerMedia)
	if s.Appeal != nil && !s.Appeal.Closed() {
		s.Appeal.Expire()
	}
	s.Appellant = game.NoPlayer
}

func (o *Orchestrator) choose(in Choice) error {
	s := o.state
	if s.Decision != game.DecisionQuestionSelection {
		return game.Violation(in.Verb, game.ErrUnexpected)
	}
	chooser := s.At(s.Chooser)
	if !(chooser != nil && chooser.Name == in.From) && !s.IsShowman(in.From) {
		return game.Violation(in.Verb, game.ErrNotAuthorized, "not the chooser")
	}
	if err := o.decided(in.Verb); err != nil {
		return err
	}
	if !o.questionOpen(in.Theme, in.Index) {
		return game.Violation(in.Verb, game.ErrBadArgument, "question not available")
	}
	o.in = input{set: true, theme: in.Theme, index: in.Index}
	o.Stop(game.StopDecision)
	return nil
}

func (o *Orchestrator) questionOpen(theme, index int) bool {
	for _, t := range o.engine.Themes() {
		if t.Index != theme || t.Deleted {
			continue
		}
		return index >= 0 && index < len(t.Prices) && t.Prices[index] > 0
	}
	return false
}

func (o *Orchestrator) mediaAck(in MediaAck) error {
	s := o.state
	if !s.Question.AwaitingMedia() {
		return game.Violation(in.Verb, game.ErrUnexpected)
	}
	if s.Question.Ack(in.From) {
		o.mediaDone()
	}
	return nil
}

func (o *Orchestrator) review(in Review, i int) error {
	s := o.state
	p := s.Players[i]
	if s.Decision != game.DecisionReporting || p.Reported {
		return game.Violation(in.Verb, game.ErrUnexpected)
	}
	p.Report = in.Text
	p.Reported = true
	o.Stop(game.StopDecision)
	return nil
}

func (o *Orchestrator) validate(in Validate) error {
	s := o.state
	if !s.IsShowman(in.From) {
		return game.Violation(in.Verb, game.ErrNotAuthorized, "not the showman")
	}
	if s.Decision != game.DecisionAnswerValidating {
		return game.Violation(in.Verb, game.ErrUnexpected)
	}
	if err := o.decided(in.Verb); err != nil {
		return err
	}
	o.in = input{set: true, right: in.Right}
	o.Stop(game.StopDecision)
	return nil
}

func (o *Orchestrator) selectPlayer(in SelectPlayer) error {
	s := o.state
	if s.Player(in.Index) == nil {
		return game.Violation(in.Verb, game.ErrBadArgument, "no such player")
	}
	switch s.Decision {
	case game.DecisionQuestionAnswererSelection:
		return o.selectCatReceiver(in, in.From)
	case game.DecisionStarterChoosing, game.DecisionNextPersonStakeMaking, game.DecisionNextPersonFinalThemeDeleting:
	default:
		return game.Violation(in.Verb, game.ErrUnexpected)
	}
	if !s.IsShowman(in.From) {
		return game.Violation(in.Verb, game.ErrNotAuthorized, "not the showman")
	}
	switch s.Decision {
	case game.DecisionNextPersonStakeMaking:
		return o.selectStaker(in)
	case game.DecisionNextPersonFinalThemeDeleting:
		return o.selectDeleter(in)
	}
	if err := o.decided(in.Verb); err != nil {
		return err
	}
	for _, c := range o.starterCandidates() {
		if c == in.Index {
			o.in = input{set: true, player: c}
			o.Stop(game.StopDecision)
			return nil
		}
	}
	return game.Violation(in.Verb, game.ErrBadArgument, "not a candidate")
}
