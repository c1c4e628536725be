package orchestrator

import (
	"github.com/quiz-hub/quiz-hub/internal/domain/auction"
	"github.com/quiz-hub/quiz-hub/internal/domain/game"
	"github.com/quiz-hub/quiz-hub/internal/domain/notification"
)

func (o *Orchestrator) startAuction() {
	s := o.state
	opener := -1
	if s.Chooser.IsSet() {
		opener = s.Chooser.Index()
	}
	a := auction.New(s.Scores(), opener, s.Price, s.Policy.StakeStep)
	for i, p := range s.Players {
		if i != opener && !p.Active() {
			a.Exclude(i)
		}
	}
	s.Auction = a
	s.Staker = game.NoPlayer
	if a.Finished {
		o.finishAuction()
		return
	}
	o.askStake(true)
}

// askStake asks the next bidder. With advance false the current slot is
// asked again, e.g. after the showman resolved a tie.
func (o *Orchestrator) askStake(advance bool) {
	s := o.state
	a := s.Auction
	if a == nil {
		o.schedule(taskMoveNext, 0, 1)
		return
	}
	var turn auction.Turn
	if advance {
		turn = a.Next()
	} else {
		turn = auction.Turn{Staker: a.Current(), Candidates: a.Candidates()}
	}
	if turn.Done || a.Finished {
		o.finishAuction()
		return
	}

	if turn.Staker == auction.Unresolved {
		o.expect(game.DecisionNextPersonStakeMaking)
		delay := s.Policy.RandomFallbackDelay
		if o.showmanAvailable() {
			o.notify(notification.EventSelectPlayer, map[string]any{"reason": "staker", "candidates": turn.Candidates}, s.Showman.Name)
			delay = s.Policy.ShowmanDecisionTime
		}
		o.schedule(taskWaitNextStaker, 0, delay)
		return
	}

	s.Staker = game.Pointer(turn.Staker)
	o.expect(game.DecisionStakeMaking)
	p := s.Players[turn.Staker]
	o.notify(notification.EventStaker, map[string]any{
		"player":    turn.Staker,
		"stake":     a.Stake,
		"minimum":   a.MinimumSum(),
		"maximum":   a.Scores[turn.Staker],
		"nominal":   a.Leader < 0,
		"allInOnly": a.AllIn,
	})
	delay := s.Policy.StakeTime
	if !p.Active() || !p.IsHuman {
		delay = s.Policy.RandomFallbackDelay
	}
	o.schedule(taskWaitStake, 0, delay)
}

func (o *Orchestrator) stake(in Stake, i int) error {
	s := o.state
	switch s.Decision {
	case game.DecisionFinalStakeMaking:
		return o.finalStake(in, i)
	case game.DecisionStakeMaking:
	default:
		return game.Violation(in.Verb, game.ErrUnexpected)
	}
	if s.Staker.Index() != i {
		return game.Violation(in.Verb, game.ErrNotAuthorized, "not your turn")
	}
	if err := o.decided(in.Verb); err != nil {
		return err
	}
	if err := s.Auction.Place(i, in.Bid); err != nil {
		return game.Violation(in.Verb, game.ErrBadArgument, err.Error())
	}
	o.in = input{set: true, player: i, bid: in.Bid}
	o.Stop(game.StopDecision)
	return nil
}

func (o *Orchestrator) stakeTimeout() {
	s := o.state
	a := s.Auction
	staker := s.Staker.Index()
	bid := auction.Bid{Kind: auction.BidPass}
	if a.Leader < 0 {
		bid = auction.Bid{Kind: auction.BidNominal}
	}
	if err := a.Place(staker, bid); err != nil {
		o.logger.Warn().Err(err).Int("player", staker).Msg("default stake rejected")
		a.Exclude(staker)
	}
	o.afterBid(staker, bid)
}

func (o *Orchestrator) afterBid(player int, bid auction.Bid) {
	s := o.state
	a := s.Auction
	o.notify(notification.EventStake, map[string]any{"player": player, "bid": bid, "stake": a.Stake})
	s.Staker = game.NoPlayer
	if a.Finished {
		o.finishAuction()
		return
	}
	o.askStake(true)
}

// dropBidder takes a player who left their seat out of a running auction
// and moves the ladder on when they held the current slot. A bid already
// collected during a pause is applied on resume as usual.
func (o *Orchestrator) dropBidder(i int) {
	s := o.state
	a := s.Auction
	if a == nil || a.Finished {
		return
	}
	current := a.Current() == i
	a.Exclude(i)
	switch {
	case o.in.set:
	case a.Finished:
		o.finishAuction()
	case current && s.Decision == game.DecisionStakeMaking:
		o.notify(notification.EventStake, map[string]any{"player": i, "bid": auction.Bid{Kind: auction.BidPass}, "stake": a.Stake})
		s.Staker = game.NoPlayer
		o.askStake(true)
	case s.Decision == game.DecisionNextPersonStakeMaking:
		o.askStake(false)
	}
}

func (o *Orchestrator) selectStaker(in SelectPlayer) error {
	if err := o.decided(in.Verb); err != nil {
		return err
	}
	if err := o.state.Auction.ResolveSlot(in.Index); err != nil {
		return game.Violation(in.Verb, game.ErrBadArgument, err.Error())
	}
	o.in = input{set: true, player: in.Index}
	o.Stop(game.StopDecision)
	return nil
}

func (o *Orchestrator) nextStakerTimeout() {
	a := o.state.Auction
	cands := a.Candidates()
	if len(cands) == 0 {
		o.askStake(true)
		return
	}
	if err := a.ResolveSlot(cands[o.pick(len(cands))]); err != nil {
		o.logger.Warn().Err(err).Msg("random staker rejected")
		o.askStake(true)
		return
	}
	o.askStake(false)
}

// finishAuction hands the question to the winner, or skips it when nobody
// is left.
func (o *Orchestrator) finishAuction() {
	s := o.state
	a := s.Auction
	s.Staker = game.NoPlayer
	o.settle()
	if a.Abandoned() {
		o.notify(notification.EventAuctionEnd, map[string]any{"player": -1})
		o.skipQuestion()
		return
	}
	s.Answerer = game.Pointer(a.Winner)
	s.Price = a.WinnerStake()
	s.Question.SetAnswerers(a.Winner)
	o.notify(notification.EventAuctionEnd, map[string]any{"player": a.Winner, "stake": s.Price})
	o.schedule(taskContent, 0, s.Policy.ContentDelay)
}

// Secret questions.

func (o *Orchestrator) catCandidates() []int {
	s := o.state
	var out []int
	for i, p := range s.Players {
		if p.Active() && game.Pointer(i) != s.Chooser {
			out = append(out, i)
		}
	}
	if len(out) == 0 {
		for i, p := range s.Players {
			if !p.Free() {
				out = append(out, i)
			}
		}
	}
	return out
}

func (o *Orchestrator) askCatGiving() {
	s := o.state
	cands := o.catCandidates()
	switch len(cands) {
	case 0:
		o.skipQuestion()
		return
	case 1:
		o.giveCat(cands[0])
		return
	}
	o.expect(game.DecisionQuestionAnswererSelection)
	giver := s.At(s.Chooser)
	delay := s.Policy.RandomFallbackDelay
	switch {
	case giver != nil && giver.Active() && giver.IsHuman:
		o.notify(notification.EventSelectPlayer, map[string]any{"reason": "cat", "candidates": cands}, giver.Name)
		delay = s.Policy.ChoosingTime
	case o.showmanAvailable():
		o.notify(notification.EventSelectPlayer, map[string]any{"reason": "cat", "candidates": cands}, s.Showman.Name)
		delay = s.Policy.ShowmanDecisionTime
	}
	o.schedule(taskWaitCatGiving, 0, delay)
}

func (o *Orchestrator) selectCatReceiver(in SelectPlayer, sender string) error {
	s := o.state
	giver := s.At(s.Chooser)
	if !(giver != nil && giver.Name == sender) && !s.IsShowman(sender) {
		return game.Violation(in.Verb, game.ErrNotAuthorized)
	}
	if err := o.decided(in.Verb); err != nil {
		return err
	}
	for _, c := range o.catCandidates() {
		if c == in.Index {
			o.in = input{set: true, player: c}
			o.Stop(game.StopDecision)
			return nil
		}
	}
	return game.Violation(in.Verb, game.ErrBadArgument, "not a candidate")
}

func (o *Orchestrator) catGivingTimeout() {
	cands := o.catCandidates()
	if len(cands) == 0 {
		o.skipQuestion()
		return
	}
	o.giveCat(cands[o.pick(len(cands))])
}

func (o *Orchestrator) giveCat(player int) {
	s := o.state
	s.Answerer = game.Pointer(player)
	s.Question.SetAnswerers(player)
	o.settle()
	o.notify(notification.EventCatGiven, map[string]any{"player": player})

	if pr := o.question.PriceRange; pr != nil {
		prices := pr.Prices()
		switch {
		case len(prices) == 1:
			s.Price = prices[0]
		case len(prices) > 1:
			o.expect(game.DecisionQuestionPriceSelection)
			p := s.Players[player]
			o.notify(notification.EventCatPrice, map[string]any{"min": pr.Min, "max": pr.Max, "step": pr.Step}, p.Name)
			delay := s.Policy.StakeTime
			if !p.Active() || !p.IsHuman {
				delay = s.Policy.RandomFallbackDelay
			}
			o.schedule(taskWaitCatPrice, 0, delay)
			return
		}
	}
	o.notify(notification.EventCatPrice, map[string]any{"price": s.Price})
	o.schedule(taskContent, 0, s.Policy.ContentDelay)
}

func (o *Orchestrator) catCost(in CatCost, i int) error {
	s := o.state
	if s.Decision != game.DecisionQuestionPriceSelection || s.Answerer.Index() != i {
		return game.Violation(in.Verb, game.ErrUnexpected)
	}
	if err := o.decided(in.Verb); err != nil {
		return err
	}
	if !o.question.PriceRange.Contains(in.Price) {
		return game.Violation(in.Verb, game.ErrBadArgument, "price out of range")
	}
	o.in = input{set: true, price: in.Price}
	o.Stop(game.StopDecision)
	return nil
}

func (o *Orchestrator) setCatPrice(price int) {
	s := o.state
	s.Price = price
	o.settle()
	o.notify(notification.EventCatPrice, map[string]any{"price": price})
	o.schedule(taskContent, 0, s.Policy.ContentDelay)
}

func (o *Orchestrator) catPriceTimeout() {
	o.setCatPrice(o.question.PriceRange.Min)
}
