package auction

import (
	"errors"
	"sort"
)

// BidKind is the shape of a stake submitted by the current staker.
type BidKind string

const (
	BidNominal BidKind = "NOMINAL"
	BidSum     BidKind = "SUM"
	BidAllIn   BidKind = "ALLIN"
	BidPass    BidKind = "PASS"
)

// Unresolved marks a turn-order slot whose player is picked on demand.
const Unresolved = -1

var (
	ErrFinished          = errors.New("auction already finished")
	ErrNotYourTurn       = errors.New("player is not the current staker")
	ErrNominalNotAllowed = errors.New("nominal stake is only allowed as the opening bid")
	ErrPassNotAllowed    = errors.New("the opening bidder cannot pass")
	ErrSumTooLow         = errors.New("stake does not exceed the current stake")
	ErrSumTooHigh        = errors.New("stake exceeds the player's score")
	ErrSumStep           = errors.New("stake is not a multiple of the stake step")
	ErrAllInOnly         = errors.New("only an all-in can beat an all-in")
	ErrUnknownBid        = errors.New("unknown bid kind")
	ErrNotCandidate      = errors.New("player is not a candidate for this slot")
	ErrSlotResolved      = errors.New("current slot is already resolved")
)

// Bid is one stake submission.
type Bid struct {
	Kind BidKind `json:"kind"`
	Sum  int     `json:"sum,omitempty"`
}

// Turn is the outcome of advancing the ladder. Either Staker is set, or
// Candidates lists tied players the showman has to pick from, or Done is true.
type Turn struct {
	Staker     int
	Candidates []int
	Done       bool
}

// Auction is the stake ladder of one question.
type Auction struct {
	Order    []int  `json:"order"`
	Position int    `json:"position"`
	Stake    int    `json:"stake"`
	Leader   int    `json:"leader"`
	AllIn    bool   `json:"allIn"`
	Nominal  int    `json:"nominal"`
	Step     int    `json:"step"`
	Eligible []bool `json:"eligible"`
	Scores   []int  `json:"scores"`
	Finished bool   `json:"finished"`
	Winner   int    `json:"winner"`
}

// New seeds an auction. The opener takes the first slot and may always make
// the nominal bid; everybody else bids only if their score beats the nominal.
func New(scores []int, opener, nominal, step int) *Auction {
	n := len(scores)
	a := &Auction{
		Order:    make([]int, n),
		Position: -1,
		Leader:   -1,
		Winner:   -1,
		Nominal:  nominal,
		Step:     step,
		Eligible: make([]bool, n),
		Scores:   append([]int(nil), scores...),
	}
	for i := range a.Order {
		a.Order[i] = Unresolved
	}
	for i, s := range scores {
		a.Eligible[i] = s > nominal || i == opener
	}
	if opener >= 0 && opener < n && n > 0 {
		a.Order[0] = opener
	}
	a.checkFinished()
	return a
}

// Current returns the player holding the current slot or Unresolved.
func (a *Auction) Current() int {
	if a.Position < 0 || a.Position >= len(a.Order) {
		return Unresolved
	}
	return a.Order[a.Position]
}

// Remaining counts players still bidding, the leader included.
func (a *Auction) Remaining() int {
	n := 0
	for _, ok := range a.Eligible {
		if ok {
			n++
		}
	}
	return n
}

// WinnerStake is the stake the winner answers for: the last accepted stake,
// which stands even when its bidder has left, or the nominal when nobody bid.
func (a *Auction) WinnerStake() int {
	if a.Stake > 0 {
		return a.Stake
	}
	return a.Nominal
}

// Abandoned reports an auction that ended with nobody left to answer.
func (a *Auction) Abandoned() bool {
	return a.Finished && a.Winner < 0
}

// Next advances the ladder to the next staker, skipping ineligible slots and
// the leader. An unresolved slot is filled with the lowest-scored bidder not
// yet placed; a tie is handed back as Candidates.
func (a *Auction) Next() Turn {
	if a.Finished {
		return Turn{Staker: Unresolved, Done: true}
	}
	n := len(a.Order)
	for i := 1; i <= n; i++ {
		pos := (a.Position + i) % n
		p := a.Order[pos]
		if p == Unresolved {
			cands := a.slotCandidates()
			if len(cands) == 0 {
				continue
			}
			a.Position = pos
			if len(cands) == 1 {
				a.Order[pos] = cands[0]
				return Turn{Staker: cands[0]}
			}
			return Turn{Staker: Unresolved, Candidates: cands}
		}
		if !a.Eligible[p] || p == a.Leader {
			continue
		}
		a.Position = pos
		return Turn{Staker: p}
	}
	a.finish()
	return Turn{Staker: Unresolved, Done: true}
}

// Candidates lists the tied players for the current unresolved slot.
func (a *Auction) Candidates() []int {
	if a.Current() != Unresolved {
		return nil
	}
	return a.slotCandidates()
}

// ResolveSlot assigns the current unresolved slot to player.
func (a *Auction) ResolveSlot(player int) error {
	if a.Finished {
		return ErrFinished
	}
	if a.Position < 0 || a.Position >= len(a.Order) || a.Order[a.Position] != Unresolved {
		return ErrSlotResolved
	}
	for _, c := range a.slotCandidates() {
		if c == player {
			a.Order[a.Position] = player
			return nil
		}
	}
	return ErrNotCandidate
}

// MinimumSum is the lowest raise-to-sum the current staker may submit.
func (a *Auction) MinimumSum() int {
	if a.Leader < 0 {
		return a.Nominal
	}
	step := a.Step
	if step < 1 {
		step = 1
	}
	return a.Stake + step
}

// Place applies a bid from player, drops exhausted bidders and closes the
// auction once at most one bidder is left.
func (a *Auction) Place(player int, bid Bid) error {
	if a.Finished {
		return ErrFinished
	}
	if player < 0 || player != a.Current() {
		return ErrNotYourTurn
	}
	score := a.Scores[player]

	switch bid.Kind {
	case BidNominal:
		if a.Leader >= 0 {
			return ErrNominalNotAllowed
		}
		a.Stake = a.Nominal
		a.Leader = player
	case BidSum:
		if a.AllIn {
			return ErrAllInOnly
		}
		if bid.Sum < a.MinimumSum() {
			return ErrSumTooLow
		}
		if bid.Sum > score {
			return ErrSumTooHigh
		}
		if bid.Sum == score {
			a.AllIn = true
		} else if a.Step > 1 && bid.Sum%a.Step != 0 {
			return ErrSumStep
		}
		a.Stake = bid.Sum
		a.Leader = player
	case BidAllIn:
		if a.Leader >= 0 && score <= a.Stake {
			return ErrSumTooLow
		}
		if a.Leader < 0 && score < a.Nominal {
			return ErrSumTooLow
		}
		a.Stake = score
		a.AllIn = true
		a.Leader = player
	case BidPass:
		if a.Leader < 0 {
			return ErrPassNotAllowed
		}
		a.Eligible[player] = false
	default:
		return ErrUnknownBid
	}

	a.dropExhausted()
	a.checkFinished()
	return nil
}

// Exclude takes player out of the bidding, e.g. a disconnected seat.
func (a *Auction) Exclude(player int) {
	if a.Finished || player < 0 || player >= len(a.Eligible) {
		return
	}
	a.Eligible[player] = false
	a.checkFinished()
}

// UpdateScore refreshes a bidder's score after an out-of-band change.
func (a *Auction) UpdateScore(player, score int) {
	if player < 0 || player >= len(a.Scores) {
		return
	}
	a.Scores[player] = score
	if !a.Finished {
		a.dropExhausted()
		a.checkFinished()
	}
}

// Removal reports how a player removal affected the auction.
type Removal struct {
	WasCurrent bool
	WasLeader  bool
	Finished   bool
	Abandoned  bool
}

// RemovePlayer compacts the ladder after player k leaves: their slot is
// deleted, trailing indices are decremented and the auction closes if at most
// one bidder remains.
func (a *Auction) RemovePlayer(k int) Removal {
	var r Removal
	if k < 0 || k >= len(a.Scores) {
		return r
	}
	wasFinished := a.Finished

	slot := -1
	for i, p := range a.Order {
		if p == k {
			slot = i
			break
		}
	}
	if slot < 0 {
		// k never got a slot: drop one unresolved slot so the ladder keeps one slot per player.
		for i := len(a.Order) - 1; i >= 0; i-- {
			if a.Order[i] == Unresolved && i != a.Position {
				slot = i
				break
			}
		}
		if slot < 0 {
			for i := len(a.Order) - 1; i >= 0; i-- {
				if a.Order[i] == Unresolved {
					slot = i
					break
				}
			}
		}
	}
	if slot >= 0 {
		r.WasCurrent = slot == a.Position && a.Order[slot] == k
		a.Order = append(a.Order[:slot], a.Order[slot+1:]...)
		if slot <= a.Position {
			a.Position--
		}
	}
	for i, p := range a.Order {
		if p > k {
			a.Order[i] = p - 1
		}
	}

	a.Eligible = append(a.Eligible[:k], a.Eligible[k+1:]...)
	a.Scores = append(a.Scores[:k], a.Scores[k+1:]...)

	switch {
	case a.Leader == k:
		a.Leader = -1
		r.WasLeader = true
	case a.Leader > k:
		a.Leader--
	}
	switch {
	case a.Winner == k:
		a.Winner = -1
	case a.Winner > k:
		a.Winner--
	}

	if !wasFinished {
		a.checkFinished()
	}
	r.Finished = a.Finished && !wasFinished
	r.Abandoned = a.Finished && a.Winner < 0
	return r
}

// Bidders returns the indices of players still bidding.
func (a *Auction) Bidders() []int {
	out := make([]int, 0, len(a.Eligible))
	for i, ok := range a.Eligible {
		if ok {
			out = append(out, i)
		}
	}
	return out
}

func (a *Auction) slotCandidates() []int {
	placed := make(map[int]bool, len(a.Order))
	for _, p := range a.Order {
		if p != Unresolved {
			placed[p] = true
		}
	}
	minScore := 0
	var out []int
	for i, ok := range a.Eligible {
		if !ok || placed[i] || i == a.Leader {
			continue
		}
		switch {
		case len(out) == 0 || a.Scores[i] < minScore:
			minScore = a.Scores[i]
			out = []int{i}
		case a.Scores[i] == minScore:
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}

func (a *Auction) dropExhausted() {
	if a.Leader < 0 {
		return
	}
	for i, ok := range a.Eligible {
		if ok && i != a.Leader && a.Scores[i] <= a.Stake {
			a.Eligible[i] = false
		}
	}
}

func (a *Auction) checkFinished() {
	if a.Finished {
		return
	}
	if a.Remaining() <= 1 {
		a.finish()
	}
}

func (a *Auction) finish() {
	a.Finished = true
	a.Winner = -1
	if a.Leader >= 0 && a.Leader < len(a.Eligible) && a.Eligible[a.Leader] {
		a.Winner = a.Leader
		return
	}
	for i, ok := range a.Eligible {
		if ok {
			a.Winner = i
			return
		}
	}
}
