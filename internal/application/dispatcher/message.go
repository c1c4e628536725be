package dispatcher

import (
	"strconv"
	"strings"

	"github.com/quiz-hub/quiz-hub/internal/application/orchestrator"
	"github.com/quiz-hub/quiz-hub/internal/domain/auction"
	"github.com/quiz-hub/quiz-hub/internal/domain/game"
)

// Inbound verbs.
const (
	VerbConnect      = "CONNECT"
	VerbDisconnect   = "DISCONNECT"
	VerbInfo         = "INFO"
	VerbReady        = "READY"
	VerbStart        = "START"
	VerbPause        = "PAUSE"
	VerbMove         = "MOVE"
	VerbChoice       = "CHOICE"
	VerbPress        = "I"
	VerbPass         = "PASS"
	VerbAnswer       = "ANSWER"
	VerbAtom         = "ATOM"
	VerbReport       = "REPORT"
	VerbIsRight      = "ISRIGHT"
	VerbSelectPlayer = "SELECT_PLAYER"
	VerbCatCost      = "CAT_COST"
	VerbStake        = "STAKE"
	VerbDelete       = "DELETE"
	VerbAppellate    = "APPELLATE"
	VerbVote         = "VOTE"
	VerbKick         = "KICK"
	VerbBan          = "BAN"
	VerbUnban        = "UNBAN"
	VerbSetHost      = "SET_HOST"
	VerbAddTable     = "ADD_TABLE"
	VerbDeleteTable  = "DELETE_TABLE"
	VerbFree         = "FREE"
	VerbReplace      = "REPLACE"
	VerbSetScore     = "SET_SCORE"
	VerbOption       = "OPTION"
	VerbManaged      = "MANAGED"
	VerbJoinMode     = "JOIN_MODE"
)

// Message is one inbound participant message: a verb with positional
// arguments.
type Message struct {
	Sender string   `json:"sender"`
	Verb   string   `json:"verb"`
	Args   []string `json:"args,omitempty"`
}

// String renders the message the way it is quoted in incident reports.
func (m Message) String() string {
	parts := append([]string{m.Verb}, m.Args...)
	return m.Sender + ": " + strings.Join(parts, "\n")
}

// Password is the optional join password of a CONNECT message.
func (m Message) Password() string {
	if strings.ToUpper(m.Verb) != VerbConnect || len(m.Args) < 2 {
		return ""
	}
	return m.Args[1]
}

type args struct {
	verb string
	list []string
}

func (a args) need(n int) error {
	if len(a.list) < n {
		return game.Violation(a.verb, game.ErrBadArgument, "expected "+strconv.Itoa(n)+" argument(s)")
	}
	return nil
}

func (a args) str(i int) string {
	if i >= len(a.list) {
		return ""
	}
	return a.list[i]
}

func (a args) index(i int) (int, error) {
	if err := a.need(i + 1); err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(a.list[i]))
	if err != nil || n < 0 {
		return 0, game.Violation(a.verb, game.ErrBadArgument, "not an index: "+a.list[i])
	}
	return n, nil
}

func (a args) number(i int) (int, error) {
	if err := a.need(i + 1); err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(a.list[i]))
	if err != nil {
		return 0, game.Violation(a.verb, game.ErrBadArgument, "not a number: "+a.list[i])
	}
	return n, nil
}

// flag reads "+"/"-" or a boolean literal. def is used when the argument is
// missing.
func (a args) flag(i int, def bool) (bool, error) {
	if i >= len(a.list) {
		return def, nil
	}
	switch v := strings.TrimSpace(a.list[i]); v {
	case "+":
		return true, nil
	case "-":
		return false, nil
	default:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, game.Violation(a.verb, game.ErrBadArgument, "not a flag: "+v)
		}
		return b, nil
	}
}

type parser func(o orchestrator.Origin, a args) (orchestrator.Intent, error)

var parsers = map[string]parser{
	VerbConnect: func(o orchestrator.Origin, a args) (orchestrator.Intent, error) {
		if err := a.need(1); err != nil {
			return nil, err
		}
		role, ok := game.ParseRole(strings.ToUpper(a.str(0)))
		if !ok {
			return nil, game.Violation(a.verb, game.ErrBadArgument, "unknown role "+a.str(0))
		}
		human, err := a.flag(2, true)
		if err != nil {
			return nil, err
		}
		return orchestrator.Connect{Origin: o, Role: role, Human: human}, nil
	},
	VerbDisconnect: func(o orchestrator.Origin, _ args) (orchestrator.Intent, error) {
		return orchestrator.Disconnect{Origin: o}, nil
	},
	VerbInfo: func(o orchestrator.Origin, _ args) (orchestrator.Intent, error) {
		return orchestrator.Info{Origin: o}, nil
	},
	VerbReady: func(o orchestrator.Origin, a args) (orchestrator.Intent, error) {
		on, err := a.flag(0, true)
		if err != nil {
			return nil, err
		}
		return orchestrator.Ready{Origin: o, On: on}, nil
	},
	VerbStart: func(o orchestrator.Origin, _ args) (orchestrator.Intent, error) {
		return orchestrator.Start{Origin: o}, nil
	},
	VerbPause: func(o orchestrator.Origin, _ args) (orchestrator.Intent, error) {
		return orchestrator.Pause{Origin: o}, nil
	},
	VerbMove: func(o orchestrator.Origin, a args) (orchestrator.Intent, error) {
		kind := orchestrator.MoveNext
		if len(a.list) > 0 {
			k, ok := orchestrator.ParseMoveKind(strings.ToLower(a.str(0)))
			if !ok {
				return nil, game.Violation(a.verb, game.ErrBadArgument, "unknown move "+a.str(0))
			}
			kind = k
		}
		return orchestrator.Move{Origin: o, Kind: kind}, nil
	},
	VerbChoice: func(o orchestrator.Origin, a args) (orchestrator.Intent, error) {
		theme, err := a.index(0)
		if err != nil {
			return nil, err
		}
		index, err := a.index(1)
		if err != nil {
			return nil, err
		}
		return orchestrator.Choice{Origin: o, Theme: theme, Index: index}, nil
	},
	VerbPress: func(o orchestrator.Origin, a args) (orchestrator.Intent, error) {
		// The optional reaction time is informational only.
		if len(a.list) > 0 {
			if _, err := a.number(0); err != nil {
				return nil, err
			}
		}
		return orchestrator.Press{Origin: o}, nil
	},
	VerbPass: func(o orchestrator.Origin, _ args) (orchestrator.Intent, error) {
		return orchestrator.Pass{Origin: o}, nil
	},
	VerbAnswer: func(o orchestrator.Origin, a args) (orchestrator.Intent, error) {
		return orchestrator.Answer{Origin: o, Text: strings.Join(a.list, " ")}, nil
	},
	VerbAtom: func(o orchestrator.Origin, _ args) (orchestrator.Intent, error) {
		return orchestrator.MediaAck{Origin: o}, nil
	},
	VerbReport: func(o orchestrator.Origin, a args) (orchestrator.Intent, error) {
		return orchestrator.Review{Origin: o, Text: strings.Join(a.list, " ")}, nil
	},
	VerbIsRight: func(o orchestrator.Origin, a args) (orchestrator.Intent, error) {
		if err := a.need(1); err != nil {
			return nil, err
		}
		right, err := a.flag(0, false)
		if err != nil {
			return nil, err
		}
		return orchestrator.Validate{Origin: o, Right: right}, nil
	},
	VerbSelectPlayer: func(o orchestrator.Origin, a args) (orchestrator.Intent, error) {
		i, err := a.index(0)
		if err != nil {
			return nil, err
		}
		return orchestrator.SelectPlayer{Origin: o, Index: i}, nil
	},
	VerbCatCost: func(o orchestrator.Origin, a args) (orchestrator.Intent, error) {
		price, err := a.index(0)
		if err != nil {
			return nil, err
		}
		return orchestrator.CatCost{Origin: o, Price: price}, nil
	},
	VerbStake:     parseStake,
	VerbDelete:    parseDelete,
	VerbAppellate: parseAppellate,
	VerbVote: func(o orchestrator.Origin, a args) (orchestrator.Intent, error) {
		if err := a.need(1); err != nil {
			return nil, err
		}
		overturn, err := a.flag(0, false)
		if err != nil {
			return nil, err
		}
		return orchestrator.Vote{Origin: o, Overturn: overturn}, nil
	},
	VerbKick: func(o orchestrator.Origin, a args) (orchestrator.Intent, error) {
		if err := a.need(1); err != nil {
			return nil, err
		}
		return orchestrator.Kick{Origin: o, Name: a.str(0)}, nil
	},
	VerbBan: func(o orchestrator.Origin, a args) (orchestrator.Intent, error) {
		if err := a.need(1); err != nil {
			return nil, err
		}
		return orchestrator.Ban{Origin: o, Name: a.str(0)}, nil
	},
	VerbUnban: func(o orchestrator.Origin, a args) (orchestrator.Intent, error) {
		if err := a.need(1); err != nil {
			return nil, err
		}
		return orchestrator.Unban{Origin: o, Name: a.str(0)}, nil
	},
	VerbSetHost: func(o orchestrator.Origin, a args) (orchestrator.Intent, error) {
		if err := a.need(1); err != nil {
			return nil, err
		}
		return orchestrator.SetHost{Origin: o, Name: a.str(0)}, nil
	},
	VerbAddTable: func(o orchestrator.Origin, _ args) (orchestrator.Intent, error) {
		return orchestrator.AddTable{Origin: o}, nil
	},
	VerbDeleteTable: func(o orchestrator.Origin, a args) (orchestrator.Intent, error) {
		i, err := a.index(0)
		if err != nil {
			return nil, err
		}
		return orchestrator.DeleteTable{Origin: o, Index: i}, nil
	},
	VerbFree: func(o orchestrator.Origin, a args) (orchestrator.Intent, error) {
		i, err := a.index(0)
		if err != nil {
			return nil, err
		}
		return orchestrator.Free{Origin: o, Index: i}, nil
	},
	VerbReplace: func(o orchestrator.Origin, a args) (orchestrator.Intent, error) {
		i, err := a.index(0)
		if err != nil {
			return nil, err
		}
		if err := a.need(2); err != nil {
			return nil, err
		}
		return orchestrator.Replace{Origin: o, Index: i, Name: a.str(1)}, nil
	},
	VerbSetScore: func(o orchestrator.Origin, a args) (orchestrator.Intent, error) {
		i, err := a.index(0)
		if err != nil {
			return nil, err
		}
		v, err := a.number(1)
		if err != nil {
			return nil, err
		}
		return orchestrator.SetScore{Origin: o, Index: i, Value: v}, nil
	},
	VerbOption: func(o orchestrator.Origin, a args) (orchestrator.Intent, error) {
		if err := a.need(2); err != nil {
			return nil, err
		}
		v, err := a.flag(1, false)
		if err != nil {
			return nil, err
		}
		return orchestrator.Option{Origin: o, Key: a.str(0), Value: v}, nil
	},
	VerbManaged: func(o orchestrator.Origin, a args) (orchestrator.Intent, error) {
		on, err := a.flag(0, true)
		if err != nil {
			return nil, err
		}
		return orchestrator.Managed{Origin: o, On: on}, nil
	},
	VerbJoinMode: func(o orchestrator.Origin, a args) (orchestrator.Intent, error) {
		if err := a.need(1); err != nil {
			return nil, err
		}
		mode, ok := game.ParseJoinMode(strings.ToUpper(a.str(0)))
		if !ok {
			return nil, game.Violation(a.verb, game.ErrBadArgument, "unknown join mode "+a.str(0))
		}
		return orchestrator.SetJoinMode{Origin: o, Mode: mode}, nil
	},
}

func parseStake(o orchestrator.Origin, a args) (orchestrator.Intent, error) {
	if err := a.need(1); err != nil {
		return nil, err
	}
	bid := auction.Bid{Kind: auction.BidKind(strings.ToUpper(a.str(0)))}
	switch bid.Kind {
	case auction.BidNominal, auction.BidAllIn, auction.BidPass:
	case auction.BidSum:
		sum, err := a.index(1)
		if err != nil {
			return nil, err
		}
		bid.Sum = sum
	default:
		// A bare number is a raise-to-sum.
		sum, err := a.index(0)
		if err != nil {
			return nil, game.Violation(a.verb, game.ErrBadArgument, "unknown stake "+a.str(0))
		}
		bid = auction.Bid{Kind: auction.BidSum, Sum: sum}
	}
	return orchestrator.Stake{Origin: o, Bid: bid}, nil
}

func parseDelete(o orchestrator.Origin, a args) (orchestrator.Intent, error) {
	theme, err := a.index(0)
	if err != nil {
		return nil, err
	}
	return orchestrator.DeleteTheme{Origin: o, Theme: theme}, nil
}

func parseAppellate(o orchestrator.Origin, a args) (orchestrator.Intent, error) {
	positive, err := a.flag(0, true)
	if err != nil {
		return nil, err
	}
	return orchestrator.Appellate{Origin: o, Positive: positive}, nil
}

// Parse checks the shape of m and converts it into an intent. Authority and
// state checks happen later, under the session lock.
func Parse(m Message) (orchestrator.Intent, error) {
	verb := strings.ToUpper(strings.TrimSpace(m.Verb))
	sender := strings.TrimSpace(m.Sender)
	if sender == "" {
		return nil, game.Violation(verb, game.ErrUnknownSender)
	}
	p, ok := parsers[verb]
	if !ok {
		return nil, game.Violation(verb, game.ErrUnknownVerb)
	}
	return p(orchestrator.Origin{From: sender, Verb: verb}, args{verb: verb, list: m.Args})
}
