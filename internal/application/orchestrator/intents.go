package orchestrator

import (
	"github.com/quiz-hub/quiz-hub/internal/domain/auction"
	"github.com/quiz-hub/quiz-hub/internal/domain/game"
)

// Intent is a validated participant message. The set is closed: every
// intent embeds Origin.
type Intent interface {
	Sender() string
	origin() Origin
}

// Origin identifies who sent an intent and through which verb.
type Origin struct {
	From string
	Verb string
}

func (o Origin) Sender() string { return o.From }

func (o Origin) origin() Origin { return o }

// MoveKind is a showman navigation command.
type MoveKind string

const (
	MoveNext      MoveKind = "next"
	MoveSkip      MoveKind = "skip"
	MoveAnswer    MoveKind = "answer"
	MoveNextRound MoveKind = "next_round"
	MovePrevRound MoveKind = "prev_round"
)

// ParseMoveKind maps a wire value to a MoveKind.
func ParseMoveKind(s string) (MoveKind, bool) {
	switch m := MoveKind(s); m {
	case MoveNext, MoveSkip, MoveAnswer, MoveNextRound, MovePrevRound:
		return m, true
	}
	return "", false
}

type (
	Connect struct {
		Origin
		Role game.Role
		// Human is false for computer-controlled players.
		Human bool
	}
	Disconnect struct{ Origin }
	Info       struct{ Origin }
	Ready      struct {
		Origin
		On bool
	}
	Start struct{ Origin }
	Pause struct{ Origin }
	Move  struct {
		Origin
		Kind MoveKind
	}
	Choice struct {
		Origin
		Theme, Index int
	}
	Press struct{ Origin }
	Pass  struct{ Origin }
	Answer struct {
		Origin
		Text string
	}
	MediaAck struct{ Origin }
	Review   struct {
		Origin
		Text string
	}
	Validate struct {
		Origin
		Right bool
	}
	SelectPlayer struct {
		Origin
		Index int
	}
	CatCost struct {
		Origin
		Price int
	}
	Stake struct {
		Origin
		Bid auction.Bid
	}
	DeleteTheme struct {
		Origin
		Theme int
	}
	Appellate struct {
		Origin
		Positive bool
	}
	Vote struct {
		Origin
		Overturn bool
	}
	Kick struct {
		Origin
		Name string
	}
	Ban struct {
		Origin
		Name string
	}
	Unban struct {
		Origin
		Name string
	}
	SetHost struct {
		Origin
		Name string
	}
	AddTable    struct{ Origin }
	DeleteTable struct {
		Origin
		Index int
	}
	Free struct {
		Origin
		Index int
	}
	Replace struct {
		Origin
		Index int
		Name  string
	}
	SetScore struct {
		Origin
		Index, Value int
	}
	Option struct {
		Origin
		Key   string
		Value bool
	}
	SetJoinMode struct {
		Origin
		Mode game.JoinMode
	}
	Managed struct {
		Origin
		On bool
	}
)
