package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quiz-hub/quiz-hub/internal/domain/appellation"
	"github.com/quiz-hub/quiz-hub/internal/domain/auction"
	"github.com/quiz-hub/quiz-hub/internal/domain/question"
	"github.com/quiz-hub/quiz-hub/internal/domain/themedeletion"
)

// State is the mutable record of one session. It is owned by a single
// orchestrator and never touched without its lock.
type State struct {
	ID           uuid.UUID
	Name         string
	Stage        Stage
	JoinMode     JoinMode
	PasswordHash []byte
	Host         string
	Showman      Showman
	Players      []*Player
	Viewers      []*Viewer
	Banned       map[string]bool
	Options      Options
	Policy       Policy

	Decision  Decision
	Waiting   bool
	Chooser   Pointer
	Answerer  Pointer
	Staker    Pointer
	Appellant Pointer

	Timers   [timerCount]Timer
	Paused   bool
	PausedAt time.Time
	Blocked  bool

	PackageName  string
	RoundIndex   int
	RoundName    string
	ThemeName    string
	QuestionType string
	Price        int

	Question *question.Play
	Auction  *auction.Auction
	Deletion *themedeletion.Enumerator
	Appeal   *appellation.Vote

	StartedAt time.Time
	EndedAt   time.Time
}

// NewState creates a session with empty player seats and the showman seat
// reserved for host.
func NewState(id uuid.UUID, name string, seats int, host string, policy Policy, options Options) *State {
	s := &State{
		ID:         id,
		Name:       name,
		Stage:      StageBefore,
		JoinMode:   JoinAnyRole,
		Host:       host,
		Showman:    Showman{Account{Name: host, IsHuman: true}},
		Banned:     make(map[string]bool),
		Options:    options,
		Policy:     policy,
		Decision:   DecisionNone,
		Chooser:    NoPlayer,
		Answerer:   NoPlayer,
		Staker:     NoPlayer,
		Appellant:  NoPlayer,
		RoundIndex: -1,
		Question:   question.New(),
	}
	for i := 0; i < seats; i++ {
		s.Players = append(s.Players, &Player{Account: Account{IsHuman: true}})
	}
	return s
}

// Player returns the player at i or nil.
func (s *State) Player(i int) *Player {
	if i < 0 || i >= len(s.Players) {
		return nil
	}
	return s.Players[i]
}

// At returns the player a pointer refers to or nil.
func (s *State) At(p Pointer) *Player {
	return s.Player(p.Index())
}

// PlayerIndex finds a seated player by name, -1 when absent.
func (s *State) PlayerIndex(name string) int {
	if name == "" {
		return -1
	}
	for i, p := range s.Players {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// ViewerIndex finds a viewer by name, -1 when absent.
func (s *State) ViewerIndex(name string) int {
	for i, v := range s.Viewers {
		if v.Name == name {
			return i
		}
	}
	return -1
}

// IsShowman reports whether name holds the showman seat.
func (s *State) IsShowman(name string) bool {
	return name != "" && s.Showman.Name == name
}

// IsHost reports whether name may run administrative verbs.
func (s *State) IsHost(name string) bool {
	return name != "" && s.Host == name
}

// Role returns the seat held by name.
func (s *State) Role(name string) (Role, bool) {
	switch {
	case s.IsShowman(name):
		return RoleShowman, true
	case s.PlayerIndex(name) >= 0:
		return RolePlayer, true
	case s.ViewerIndex(name) >= 0:
		return RoleViewer, true
	}
	return "", false
}

// Assign sets a role pointer after validating index.
func (s *State) Assign(target *Pointer, index int) error {
	p, err := NewPointer(index, len(s.Players))
	if err != nil {
		return err
	}
	*target = p
	return nil
}

// Scores returns a copy of all player scores.
func (s *State) Scores() []int {
	out := make([]int, len(s.Players))
	for i, p := range s.Players {
		out[i] = p.Score
	}
	return out
}

// LowestScored returns the indices sharing the lowest score among players
// accepted by keep.
func (s *State) LowestScored(keep func(i int, p *Player) bool) []int {
	var out []int
	low := 0
	for i, p := range s.Players {
		if keep != nil && !keep(i, p) {
			continue
		}
		switch {
		case len(out) == 0 || p.Score < low:
			low = p.Score
			out = []int{i}
		case p.Score == low:
			out = append(out, i)
		}
	}
	return out
}

// Seated returns the indices of occupied seats.
func (s *State) Seated() []int {
	var out []int
	for i, p := range s.Players {
		if !p.Free() {
			out = append(out, i)
		}
	}
	return out
}

// ConnectedHumans returns the names of every connected human participant.
func (s *State) ConnectedHumans() []string {
	var out []string
	if s.Showman.Connected && s.Showman.IsHuman && !s.Showman.Free() {
		out = append(out, s.Showman.Name)
	}
	for _, p := range s.Players {
		if p.Connected && p.IsHuman && !p.Free() {
			out = append(out, p.Name)
		}
	}
	for _, v := range s.Viewers {
		if v.Connected {
			out = append(out, v.Name)
		}
	}
	return out
}

// ResetQuestion clears question-scoped state before a new question.
func (s *State) ResetQuestion() {
	s.Question = question.New()
	s.Auction = nil
	s.Appeal = nil
	s.Answerer = NoPlayer
	s.Staker = NoPlayer
	s.Appellant = NoPlayer
	s.Price = 0
	s.QuestionType = ""
	for _, p := range s.Players {
		p.ResetQuestion()
	}
}

// Pointers returns the role pointers by name.
func (s *State) Pointers() map[string]Pointer {
	return map[string]Pointer{
		"chooser":   s.Chooser,
		"answerer":  s.Answerer,
		"staker":    s.Staker,
		"appellant": s.Appellant,
	}
}

// CheckInvariants verifies every pointer and index structure.
func (s *State) CheckInvariants() error {
	n := len(s.Players)
	for name, p := range s.Pointers() {
		if !p.Valid(n) {
			return &InvariantViolation{What: fmt.Sprintf("%s pointer %d outside [0,%d)", name, p, n)}
		}
	}
	if a := s.Auction; a != nil {
		seen := make(map[int]bool, len(a.Order))
		for _, p := range a.Order {
			if p == auction.Unresolved {
				continue
			}
			if p < 0 || p >= n {
				return &InvariantViolation{What: fmt.Sprintf("stake order entry %d outside [0,%d)", p, n)}
			}
			if seen[p] {
				return &InvariantViolation{What: fmt.Sprintf("stake order repeats player %d", p)}
			}
			seen[p] = true
		}
		if len(a.Eligible) != n {
			return &InvariantViolation{What: fmt.Sprintf("stake eligibility has %d entries for %d players", len(a.Eligible), n)}
		}
	}
	if d := s.Deletion; d != nil {
		for _, p := range d.Players() {
			if p < 0 || p >= n {
				return &InvariantViolation{What: fmt.Sprintf("theme deleter %d outside [0,%d)", p, n)}
			}
		}
	}
	for _, a := range s.Question.Answerers {
		if a < 0 || a >= n {
			return &InvariantViolation{What: fmt.Sprintf("answerer %d outside [0,%d)", a, n)}
		}
	}
	return nil
}
