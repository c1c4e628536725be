package themedeletion

import (
	"errors"
	"sort"
)

var (
	ErrNoCurrent    = errors.New("no current deletion slot")
	ErrResolved     = errors.New("current slot is already resolved")
	ErrNotCandidate = errors.New("player is not a candidate for the current slot")
)

// Candidate is a player entering the final round.
type Candidate struct {
	Player int
	Score  int
}

// Set is a candidate set shared by every slot of one score tier.
type Set struct {
	members []int
	all     []int
}

// Members returns a copy of the players not yet assigned a slot.
func (s *Set) Members() []int {
	return append([]int(nil), s.members...)
}

func (s *Set) take(player int) bool {
	for i, m := range s.members {
		if m == player {
			s.members = append(s.members[:i], s.members[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Set) give(player int) {
	s.members = append(s.members, player)
	sort.Ints(s.members)
}

func (s *Set) reset() {
	s.members = append(s.members[:0], s.all...)
}

func (s *Set) remove(k int) (wasMember bool) {
	s.members, wasMember = removeIndex(s.members, k)
	s.all, _ = removeIndex(s.all, k)
	return wasMember
}

type slot struct {
	player int
	set    *Set
}

func (s *slot) resolved() bool { return s.player >= 0 }

// Enumerator hands out theme-deletion turns so the leader deletes last.
type Enumerator struct {
	slots  []*slot
	cursor int
	// prev is the pass closed by the last wrap, kept until the next move.
	prev *pass
}

type pass struct {
	players []int
	members map[*Set][]int
}

// New builds the slot list. Tiers go from the lowest score to the highest;
// a tier of one player is resolved immediately, a tied tier shares one set.
func New(candidates []Candidate) *Enumerator {
	sorted := append([]Candidate(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score < sorted[j].Score
		}
		return sorted[i].Player < sorted[j].Player
	})

	e := &Enumerator{cursor: -1}
	for i := 0; i < len(sorted); {
		j := i
		for j < len(sorted) && sorted[j].Score == sorted[i].Score {
			j++
		}
		if j-i == 1 {
			e.slots = append(e.slots, &slot{player: sorted[i].Player})
		} else {
			set := &Set{}
			for _, c := range sorted[i:j] {
				set.all = append(set.all, c.Player)
			}
			sort.Ints(set.all)
			set.reset()
			for range sorted[i:j] {
				e.slots = append(e.slots, &slot{player: -1, set: set})
			}
		}
		i = j
	}
	return e
}

// Len is the number of slots in one pass.
func (e *Enumerator) Len() int { return len(e.slots) }

// Cursor is the index of the current slot, -1 before the first MoveNext.
func (e *Enumerator) Cursor() int { return e.cursor }

// MoveNext advances to the next slot. Past the last slot a new pass starts
// and every shared set is refilled.
func (e *Enumerator) MoveNext() bool {
	if len(e.slots) == 0 {
		return false
	}
	e.cursor++
	e.prev = nil
	if e.cursor >= len(e.slots) {
		e.cursor = 0
		e.prev = e.snapshot()
		for _, s := range e.slots {
			if s.set != nil {
				s.player = -1
				s.set.reset()
			}
		}
	}
	return true
}

// MoveBack steps back to the previous slot so it can be asked again. A slot
// filled from a shared set is released back into that set. Right after a
// wrap the previous pass is restored and its last slot becomes current.
func (e *Enumerator) MoveBack() bool {
	if e.cursor == 0 && e.prev != nil {
		e.restore(e.prev)
		e.prev = nil
		e.cursor = len(e.slots) - 1
		return true
	}
	if e.cursor <= 0 || e.cursor >= len(e.slots) {
		return false
	}
	e.release(e.slots[e.cursor])
	e.cursor--
	return true
}

// Current returns the player of the current slot, or -1 and the tied
// candidates when the showman has to choose. A set with a single member
// left resolves on its own.
func (e *Enumerator) Current() (int, []int) {
	s := e.current()
	if s == nil {
		return -1, nil
	}
	if s.resolved() {
		return s.player, nil
	}
	members := s.set.Members()
	if len(members) == 1 {
		s.set.take(members[0])
		s.player = members[0]
		return s.player, nil
	}
	return -1, members
}

// SetCurrent resolves the current slot to player.
func (e *Enumerator) SetCurrent(player int) error {
	s := e.current()
	if s == nil {
		return ErrNoCurrent
	}
	if s.resolved() {
		return ErrResolved
	}
	if !s.set.take(player) {
		return ErrNotCandidate
	}
	s.player = player
	return nil
}

// SharedSet returns the set behind slot i, nil for a lone-tier slot.
func (e *Enumerator) SharedSet(i int) *Set {
	if i < 0 || i >= len(e.slots) {
		return nil
	}
	return e.slots[i].set
}

// SlotPlayer returns the player resolved for slot i, -1 when unresolved.
func (e *Enumerator) SlotPlayer(i int) int {
	if i < 0 || i >= len(e.slots) {
		return -1
	}
	return e.slots[i].player
}

// Removal reports how a player removal affected the enumerator.
type Removal struct {
	CurrentRemoved bool
}

// RemovePlayer drops player k: their slot disappears, resolved players and
// every shared set are renumbered in place so slots keep sharing their set.
func (e *Enumerator) RemovePlayer(k int) Removal {
	var r Removal
	e.prev = nil
	drop := -1
	for i, s := range e.slots {
		if s.player == k {
			drop = i
			break
		}
	}
	seen := map[*Set]bool{}
	for i, s := range e.slots {
		if s.set == nil || seen[s.set] {
			continue
		}
		seen[s.set] = true
		if s.set.remove(k) && drop < 0 {
			drop = lastUnresolved(e.slots, s.set, i)
		}
	}
	if drop >= 0 {
		r.CurrentRemoved = drop == e.cursor
		e.slots = append(e.slots[:drop], e.slots[drop+1:]...)
		if drop <= e.cursor {
			e.cursor--
		}
	}
	for _, s := range e.slots {
		if s.player > k {
			s.player--
		}
	}
	for s := range seen {
		for i, m := range s.members {
			if m > k {
				s.members[i] = m - 1
			}
		}
		for i, m := range s.all {
			if m > k {
				s.all[i] = m - 1
			}
		}
	}
	return r
}

// Players returns every player index referenced by a slot or a set.
func (e *Enumerator) Players() []int {
	var out []int
	seen := map[*Set]bool{}
	for _, s := range e.slots {
		if s.resolved() {
			out = append(out, s.player)
		}
		if s.set != nil && !seen[s.set] {
			seen[s.set] = true
			out = append(out, s.set.members...)
		}
	}
	return out
}

func (e *Enumerator) current() *slot {
	if e.cursor < 0 || e.cursor >= len(e.slots) {
		return nil
	}
	return e.slots[e.cursor]
}

func (e *Enumerator) snapshot() *pass {
	p := &pass{players: make([]int, len(e.slots)), members: make(map[*Set][]int)}
	for i, s := range e.slots {
		p.players[i] = s.player
		if s.set != nil {
			if _, ok := p.members[s.set]; !ok {
				p.members[s.set] = s.set.Members()
			}
		}
	}
	return p
}

func (e *Enumerator) restore(p *pass) {
	for i, s := range e.slots {
		s.player = p.players[i]
	}
	for set, members := range p.members {
		set.members = members
	}
}

func (e *Enumerator) release(s *slot) {
	if s.set != nil && s.resolved() {
		s.set.give(s.player)
		s.player = -1
	}
}

func lastUnresolved(slots []*slot, set *Set, from int) int {
	for i := len(slots) - 1; i >= from; i-- {
		if slots[i].set == set && !slots[i].resolved() {
			return i
		}
	}
	return -1
}

func removeIndex(xs []int, k int) ([]int, bool) {
	for i, x := range xs {
		if x == k {
			return append(xs[:i], xs[i+1:]...), true
		}
	}
	return xs, false
}
