package game

import (
	"fmt"

	"github.com/quiz-hub/quiz-hub/internal/domain/auction"
	"github.com/quiz-hub/quiz-hub/internal/domain/themedeletion"
)

// Removal reports what a player removal cleared, so the caller can apply
// the fallbacks that need game context.
type Removal struct {
	Player       *Player
	Chooser      bool
	Answerer     bool
	Staker       bool
	Appellant    bool
	Auction      auction.Removal
	Deletion     themedeletion.Removal
	AppealClosed bool
}

// RemovePlayer deletes the seat at k and renumbers every structure holding
// player indices in one step. Pointers at k are cleared, pointers above k
// move down by one.
func (s *State) RemovePlayer(k int) (Removal, error) {
	var r Removal
	if k < 0 || k >= len(s.Players) {
		return r, fmt.Errorf("%w: %d", ErrPlayerNotFound, k)
	}
	if len(s.Players) == 1 {
		return r, ErrLastPlayer
	}
	r.Player = s.Players[k]

	s.Chooser, r.Chooser = s.Chooser.afterRemoval(k)
	s.Answerer, r.Answerer = s.Answerer.afterRemoval(k)
	s.Staker, r.Staker = s.Staker.afterRemoval(k)
	s.Appellant, r.Appellant = s.Appellant.afterRemoval(k)

	if s.Auction != nil {
		r.Auction = s.Auction.RemovePlayer(k)
	}
	if s.Deletion != nil {
		r.Deletion = s.Deletion.RemovePlayer(k)
	}
	if s.Question != nil {
		s.Question.RemovePlayer(k)
	}
	if s.Appeal != nil {
		wasClosed := s.Appeal.Closed()
		s.Appeal.RemovePlayer(k)
		r.AppealClosed = !wasClosed && s.Appeal.Closed()
	}

	s.Players = append(s.Players[:k], s.Players[k+1:]...)
	return r, s.CheckInvariants()
}

// AddSeat appends an empty player seat.
func (s *State) AddSeat() int {
	s.Players = append(s.Players, &Player{Account: Account{IsHuman: true}})
	return len(s.Players) - 1
}
