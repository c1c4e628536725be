package orchestrator

import (
	"errors"

	"github.com/quiz-hub/quiz-hub/internal/domain/game"
	"github.com/quiz-hub/quiz-hub/internal/domain/notification"
	"github.com/quiz-hub/quiz-hub/internal/domain/rules"
)

func (o *Orchestrator) connect(in Connect) error {
	s := o.state
	name := in.From
	if s.Banned[name] {
		return game.Violation(in.Verb, game.ErrBanned)
	}

	// Returning participants keep their seat.
	switch {
	case s.IsShowman(name):
		s.Showman.Connected = true
		return o.joined(name, game.RoleShowman, -1)
	case s.PlayerIndex(name) >= 0:
		i := s.PlayerIndex(name)
		s.Players[i].Connected = true
		return o.joined(name, game.RolePlayer, i)
	case s.ViewerIndex(name) >= 0:
		s.Viewers[s.ViewerIndex(name)].Connected = true
		return o.joined(name, game.RoleViewer, -1)
	}

	switch s.JoinMode {
	case game.JoinForbidden:
		return game.Violation(in.Verb, game.ErrJoinForbidden)
	case game.JoinViewersOnly:
		if in.Role != game.RoleViewer {
			return game.Violation(in.Verb, game.ErrJoinForbidden, "viewers only")
		}
	}

	switch in.Role {
	case game.RoleShowman:
		if !s.Showman.Free() {
			return game.Violation(in.Verb, game.ErrNoFreeSeat, "showman seat taken")
		}
		s.Showman.Account = game.Account{Name: name, IsHuman: true, Connected: true}
		return o.joined(name, game.RoleShowman, -1)
	case game.RolePlayer:
		for i, p := range s.Players {
			if p.Free() {
				p.Account = game.Account{Name: name, IsHuman: in.Human, Connected: true}
				if !in.Human {
					p.Ready = true
				}
				return o.joined(name, game.RolePlayer, i)
			}
		}
		return game.Violation(in.Verb, game.ErrNoFreeSeat)
	case game.RoleViewer:
		s.Viewers = append(s.Viewers, &game.Viewer{Account: game.Account{Name: name, IsHuman: true, Connected: true}})
		return o.joined(name, game.RoleViewer, -1)
	}
	return game.Violation(in.Verb, game.ErrBadArgument, "unknown role")
}

func (o *Orchestrator) joined(name string, role game.Role, index int) error {
	o.logger.Info().Str("name", name).Str("role", string(role)).Int("index", index).Msg("participant connected")
	o.notify(notification.EventConnected, map[string]any{"name": name, "role": role, "index": index})
	o.sendInfo(name)
	if o.state.Stage == game.StageBefore && o.allReady() {
		o.startGame()
	}
	return nil
}

func (o *Orchestrator) disconnect(in Disconnect) error {
	s := o.state
	name := in.From
	switch {
	case s.IsShowman(name):
		s.Showman.Connected = false
	case s.PlayerIndex(name) >= 0:
		i := s.PlayerIndex(name)
		p := s.Players[i]
		p.Connected = false
		p.Ready = false
		if s.Stage == game.StageBefore {
			p.Account = game.Account{IsHuman: true}
		}
		o.dropBidder(i)
	case s.ViewerIndex(name) >= 0:
		i := s.ViewerIndex(name)
		s.Viewers = append(s.Viewers[:i], s.Viewers[i+1:]...)
	}
	o.logger.Info().Str("name", name).Msg("participant disconnected")
	o.notify(notification.EventDisconnected, map[string]any{"name": name})
	if s.Question.AwaitingMedia() && s.Question.Ack(name) {
		o.mediaDone()
	}
	return nil
}

func (o *Orchestrator) ready(in Ready) error {
	s := o.state
	if s.Stage != game.StageBefore {
		return game.Violation(in.Verb, game.ErrGameStarted)
	}
	i := s.PlayerIndex(in.From)
	if i < 0 {
		return game.Violation(in.Verb, game.ErrNotAuthorized, "not a player")
	}
	s.Players[i].Ready = in.On
	o.notify(notification.EventConfig, map[string]any{"player": i, "ready": in.On})
	if o.allReady() {
		o.startGame()
	}
	return nil
}

// allReady reports every seat taken and every player ready.
func (o *Orchestrator) allReady() bool {
	if len(o.state.Players) == 0 {
		return false
	}
	for _, p := range o.state.Players {
		if p.Free() || !p.Ready {
			return false
		}
	}
	return true
}

func (o *Orchestrator) start(in Start) error {
	s := o.state
	if !s.IsHost(in.From) {
		return game.Violation(in.Verb, game.ErrNotAuthorized, "not the host")
	}
	if s.Stage != game.StageBefore {
		return game.Violation(in.Verb, game.ErrGameStarted)
	}
	if len(s.Seated()) == 0 {
		return game.Violation(in.Verb, game.ErrUnexpected, "no players")
	}
	o.startGame()
	return nil
}

func (o *Orchestrator) sendInfo(name string) {
	o.notify(notification.EventInfo, o.snapshot(), name)
}

// kick frees the seat of name. With ban the name cannot join again.
func (o *Orchestrator) kick(from Origin, name string, ban bool) error {
	s := o.state
	if !s.IsHost(from.From) {
		return game.Violation(from.Verb, game.ErrNotAuthorized, "not the host")
	}
	if name == from.From {
		return game.Violation(from.Verb, game.ErrBadArgument, "cannot kick yourself")
	}
	role, ok := s.Role(name)
	if !ok && !ban {
		return game.Violation(from.Verb, game.ErrPlayerNotFound)
	}
	switch role {
	case game.RoleShowman:
		s.Showman.Account = game.Account{}
	case game.RolePlayer:
		o.vacate(s.PlayerIndex(name))
	case game.RoleViewer:
		i := s.ViewerIndex(name)
		s.Viewers = append(s.Viewers[:i], s.Viewers[i+1:]...)
	}
	if ban {
		s.Banned[name] = true
	}
	o.logger.Info().Str("name", name).Bool("ban", ban).Msg("participant kicked")
	o.notify(notification.EventDisconnected, map[string]any{"name": name, "kicked": true, "banned": ban})
	if s.Question.AwaitingMedia() && s.Question.Ack(name) {
		o.mediaDone()
	}
	return nil
}

func (o *Orchestrator) unban(in Unban) error {
	if !o.state.IsHost(in.From) {
		return game.Violation(in.Verb, game.ErrNotAuthorized, "not the host")
	}
	delete(o.state.Banned, in.Name)
	o.notify(notification.EventConfig, map[string]any{"unbanned": in.Name})
	return nil
}

func (o *Orchestrator) setHost(in SetHost) error {
	s := o.state
	if !s.IsHost(in.From) {
		return game.Violation(in.Verb, game.ErrNotAuthorized, "not the host")
	}
	if _, ok := s.Role(in.Name); !ok {
		return game.Violation(in.Verb, game.ErrPlayerNotFound)
	}
	s.Host = in.Name
	o.notify(notification.EventConfig, map[string]any{"host": in.Name})
	return nil
}

func (o *Orchestrator) addTable(in AddTable) error {
	s := o.state
	if err := o.requireHost(in.Origin); err != nil {
		return err
	}
	if s.Auction != nil {
		return game.Violation(in.Verb, game.ErrUnexpected, "stakes in progress")
	}
	i := s.AddSeat()
	o.notify(notification.EventConfig, map[string]any{"added": i})
	return nil
}

func (o *Orchestrator) deleteTable(in DeleteTable) error {
	if err := o.requireHost(in.Origin); err != nil {
		return err
	}
	return o.removePlayer(in.Verb, in.Index)
}

func (o *Orchestrator) free(in Free) error {
	s := o.state
	if err := o.requireHost(in.Origin); err != nil {
		return err
	}
	p := s.Player(in.Index)
	if p == nil || p.Free() {
		return game.Violation(in.Verb, game.ErrBadArgument, "no participant at seat")
	}
	name := p.Name
	o.vacate(in.Index)
	o.notify(notification.EventConfig, map[string]any{"freed": in.Index, "name": name})
	return nil
}

// vacate frees seat i and takes it out of the running auction and vote.
func (o *Orchestrator) vacate(i int) {
	s := o.state
	s.Players[i].Account = game.Account{IsHuman: true}
	o.dropBidder(i)
	if v := s.Appeal; v != nil && !v.Closed() {
		v.Withdraw(i)
		if v.Closed() && s.Decision == game.DecisionAppellation {
			o.Stop(game.StopDecision)
		}
	}
}

func (o *Orchestrator) replace(in Replace) error {
	s := o.state
	if err := o.requireHost(in.Origin); err != nil {
		return err
	}
	p := s.Player(in.Index)
	if p == nil || !p.Free() {
		return game.Violation(in.Verb, game.ErrBadArgument, "seat is not free")
	}
	v := s.ViewerIndex(in.Name)
	if v < 0 {
		return game.Violation(in.Verb, game.ErrPlayerNotFound, "not a viewer")
	}
	viewer := s.Viewers[v]
	s.Viewers = append(s.Viewers[:v], s.Viewers[v+1:]...)
	p.Account = game.Account{Name: viewer.Name, IsHuman: true, Connected: viewer.Connected}
	o.notify(notification.EventConfig, map[string]any{"replaced": in.Index, "name": in.Name})
	return nil
}

func (o *Orchestrator) setScore(in SetScore) error {
	s := o.state
	if err := o.requireHost(in.Origin); err != nil {
		return err
	}
	p := s.Player(in.Index)
	if p == nil {
		return game.Violation(in.Verb, game.ErrBadArgument, "no such seat")
	}
	p.Score = in.Value
	if s.Auction != nil {
		s.Auction.UpdateScore(in.Index, in.Value)
	}
	o.notifyScores()
	return nil
}

func (o *Orchestrator) setOption(in Option) error {
	s := o.state
	if err := o.requireHost(in.Origin); err != nil {
		return err
	}
	switch in.Key {
	case "falseStarts":
		s.Options.FalseStarts = in.Value
	case "appellations":
		s.Options.Appellations = in.Value
	case "ignoreWrong":
		s.Options.IgnoreWrong = in.Value
	default:
		return game.Violation(in.Verb, game.ErrBadArgument, "unknown option "+in.Key)
	}
	o.notify(notification.EventOptions, s.Options)
	return nil
}

func (o *Orchestrator) setJoinMode(in SetJoinMode) error {
	if !o.state.IsHost(in.From) {
		return game.Violation(in.Verb, game.ErrNotAuthorized, "not the host")
	}
	o.state.JoinMode = in.Mode
	o.notify(notification.EventConfig, map[string]any{"joinMode": in.Mode})
	return nil
}

// removePlayer deletes seat k and repairs every flow that referenced it.
func (o *Orchestrator) removePlayer(verb string, k int) error {
	s := o.state
	r, err := s.RemovePlayer(k)
	if err != nil {
		var iv *game.InvariantViolation
		if errors.As(err, &iv) {
			o.block(err)
			return nil
		}
		return game.Violation(verb, err)
	}
	o.logger.Info().Int("index", k).Str("name", r.Player.Name).Msg("seat removed")
	o.notify(notification.EventConfig, map[string]any{"removed": k, "name": r.Player.Name})
	o.afterRemoval(r)
	return nil
}

func (o *Orchestrator) afterRemoval(r game.Removal) {
	s := o.state
	if r.Chooser {
		o.repickChooser()
	}
	if r.AppealClosed && s.Decision == game.DecisionAppellation {
		o.resolveAppeal()
		return
	}

	switch s.Decision {
	case game.DecisionStarterChoosing:
		o.pickStarter()
	case game.DecisionQuestionSelection:
		if r.Chooser {
			o.askToChoose()
		}
	case game.DecisionStakeMaking, game.DecisionNextPersonStakeMaking:
		switch {
		case s.Auction == nil:
		case r.Auction.Finished || s.Auction.Finished:
			o.finishAuction()
		case r.Auction.WasCurrent:
			o.askStake(true)
		case s.Decision == game.DecisionNextPersonStakeMaking:
			o.askStake(false)
		}
	case game.DecisionQuestionAnswererSelection:
		if r.Chooser {
			o.schedule(taskWaitCatGiving, 0, s.Policy.RandomFallbackDelay)
		}
	case game.DecisionQuestionPriceSelection:
		if r.Answerer {
			o.skipQuestion()
		}
	case game.DecisionAnswering:
		switch {
		case len(s.Question.Answerers) == 0:
			o.skipQuestion()
		case s.Question.Multi():
			o.Stop(game.StopDecision)
		}
	case game.DecisionAnswerValidating:
		if r.Answerer && !s.Question.Multi() {
			o.sched.DropPaused()
			o.settle()
			o.schedule(taskShowRight, 0, 1)
		}
	case game.DecisionThemeDeleting, game.DecisionNextPersonFinalThemeDeleting:
		if r.Deletion.CurrentRemoved {
			s.Deletion.MoveNext()
			o.askDeleter()
		}
	case game.DecisionFinalStakeMaking:
		if len(s.Question.Answerers) == 0 {
			o.skipQuestion()
			return
		}
		o.Stop(game.StopDecision)
	case game.DecisionReporting:
		o.Stop(game.StopDecision)
	case game.DecisionNone:
		if r.Answerer && o.question != nil && !s.Question.AnswerShown && o.question.Type != rules.QuestionSimple {
			o.skipQuestion()
		}
	}
}

// repickChooser gives the choice to the lowest-scored active player.
func (o *Orchestrator) repickChooser() {
	cands := o.starterCandidates()
	if len(cands) == 0 {
		return
	}
	o.state.Chooser = game.Pointer(cands[o.pick(len(cands))])
	o.notify(notification.EventChooser, map[string]any{"player": o.state.Chooser.Index()})
}
