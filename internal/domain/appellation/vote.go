package appellation

import "errors"

// Kind tells which way a ruling is disputed.
type Kind string

const (
	// KindPositive: the appellant claims their rejected answer was right.
	KindPositive Kind = "POSITIVE"
	// KindNegative: the appellant claims another player's accepted answer was wrong.
	KindNegative Kind = "NEGATIVE"
)

// Outcome is the state of the tally.
type Outcome string

const (
	OutcomePending    Outcome = "PENDING"
	OutcomeUpheld     Outcome = "UPHELD"
	OutcomeOverturned Outcome = "OVERTURNED"
	OutcomeCancelled  Outcome = "CANCELLED"
)

var (
	ErrClosed       = errors.New("appellation vote is closed")
	ErrNotVoter     = errors.New("player is not an eligible voter")
	ErrAlreadyVoted = errors.New("player already voted")
)

// MajorityFunc reports whether count votes out of total close the tally.
type MajorityFunc func(count, total int) bool

// StrictHalf is the default majority: more than half of all voters.
func StrictHalf(count, total int) bool {
	return count*2 > total
}

// Vote collects the verdict of the players not involved in the dispute. The
// showman is an implicit voter whose vote upholds the ruling.
type Vote struct {
	Kind       Kind         `json:"kind"`
	Appellant  int          `json:"appellant"`
	Disputants []int        `json:"disputants"`
	Voters     map[int]bool `json:"-"`
	Responded  map[int]bool `json:"-"`
	Total      int          `json:"total"`
	Uphold     int          `json:"uphold"`
	Overturn   int          `json:"overturn"`
	Outcome    Outcome      `json:"outcome"`
	majority   MajorityFunc
}

// New opens a vote among the electorate minus the disputants. On a negative
// appeal the appellant's own vote is counted for overturning.
func New(kind Kind, appellant int, disputants []int, electorate []int, majority MajorityFunc) *Vote {
	if majority == nil {
		majority = StrictHalf
	}
	v := &Vote{
		Kind:       kind,
		Appellant:  appellant,
		Disputants: append([]int(nil), disputants...),
		Voters:     make(map[int]bool),
		Responded:  make(map[int]bool),
		Uphold:     1,
		Outcome:    OutcomePending,
		majority:   majority,
	}
	excluded := make(map[int]bool, len(disputants))
	for _, d := range disputants {
		excluded[d] = true
	}
	for _, i := range electorate {
		if !excluded[i] {
			v.Voters[i] = true
		}
	}
	v.Total = len(v.Voters) + 1
	if kind == KindNegative && v.Voters[appellant] {
		v.Responded[appellant] = true
		v.Overturn++
	}
	v.evaluate(false)
	return v
}

// Closed reports whether the tally is final.
func (v *Vote) Closed() bool {
	return v.Outcome != OutcomePending
}

// CanVote reports whether player still owes a vote.
func (v *Vote) CanVote(player int) bool {
	return !v.Closed() && v.Voters[player] && !v.Responded[player]
}

// Cast records one vote and returns the resulting outcome.
func (v *Vote) Cast(player int, overturn bool) (Outcome, error) {
	if v.Closed() {
		return v.Outcome, ErrClosed
	}
	if !v.Voters[player] {
		return v.Outcome, ErrNotVoter
	}
	if v.Responded[player] {
		return v.Outcome, ErrAlreadyVoted
	}
	v.Responded[player] = true
	if overturn {
		v.Overturn++
	} else {
		v.Uphold++
	}
	v.evaluate(false)
	return v.Outcome, nil
}

// Expire closes the tally on timeout with the votes collected so far.
func (v *Vote) Expire() Outcome {
	if !v.Closed() {
		v.evaluate(true)
	}
	return v.Outcome
}

// Pending lists voters who have not answered yet.
func (v *Vote) Pending() []int {
	var out []int
	for p := range v.Voters {
		if !v.Responded[p] {
			out = append(out, p)
		}
	}
	return out
}

// Withdraw drops a voter who left their seat without it being deleted.
func (v *Vote) Withdraw(player int) {
	if !v.Voters[player] || v.Responded[player] {
		return
	}
	delete(v.Voters, player)
	v.Total--
	if !v.Closed() {
		v.evaluate(false)
	}
}

// RemovePlayer renumbers the tally after player k leaves. Losing a disputant
// cancels the vote; losing a silent voter shrinks the electorate.
func (v *Vote) RemovePlayer(k int) {
	for _, d := range v.Disputants {
		if d == k && !v.Closed() {
			v.Outcome = OutcomeCancelled
		}
	}
	if v.Voters[k] && !v.Responded[k] {
		v.Total--
	}
	voters := make(map[int]bool, len(v.Voters))
	for p := range v.Voters {
		if p != k {
			voters[shift(p, k)] = true
		}
	}
	responded := make(map[int]bool, len(v.Responded))
	for p := range v.Responded {
		if p != k {
			responded[shift(p, k)] = true
		}
	}
	v.Voters, v.Responded = voters, responded

	disputants := v.Disputants[:0]
	for _, d := range v.Disputants {
		if d != k {
			disputants = append(disputants, shift(d, k))
		}
	}
	v.Disputants = disputants
	switch {
	case v.Appellant == k:
		v.Appellant = -1
	case v.Appellant > k:
		v.Appellant--
	}
	if !v.Closed() {
		v.evaluate(false)
	}
}

func (v *Vote) evaluate(final bool) {
	switch {
	case v.majority(v.Overturn, v.Total):
		v.Outcome = OutcomeOverturned
	case v.majority(v.Uphold, v.Total):
		v.Outcome = OutcomeUpheld
	case final || len(v.Responded) >= len(v.Voters):
		if v.Overturn > v.Uphold {
			v.Outcome = OutcomeOverturned
		} else {
			v.Outcome = OutcomeUpheld
		}
	}
}

func shift(p, k int) int {
	if p > k {
		return p - 1
	}
	return p
}
