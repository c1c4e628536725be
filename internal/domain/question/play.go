package question

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Record is one applied answer result, kept so an appellation can rewind it.
type Record struct {
	Player int    `json:"player"`
	Answer string `json:"answer"`
	Right  bool   `json:"right"`
	Delta  int    `json:"delta"`
}

// Play is the transient state of the question being played.
type Play struct {
	Answerers    []int            `json:"answerers"`
	Options      []string         `json:"options,omitempty"`
	OptionsShown bool             `json:"optionsShown"`
	LayoutShown  bool             `json:"layoutShown"`
	ButtonsOpen  bool             `json:"buttonsOpen"`
	AnswerShown  bool             `json:"answerShown"`
	AppealOpen   bool             `json:"appealOpen"`
	Validations  map[string]*bool `json:"-"`
	History      []Record         `json:"history"`
	Fragment     int              `json:"fragment"`

	queue     []string
	mediaWant int
	mediaAcks map[string]struct{}
}

// New resets question state for a fresh question.
func New() *Play {
	return &Play{
		Validations: make(map[string]*bool),
		mediaAcks:   make(map[string]struct{}),
	}
}

// Normalize folds case, unicode form and spacing so equal answers compare equal.
func Normalize(answer string) string {
	s := norm.NFC.String(answer)
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

// SetAnswerers replaces the obligatory answerer set.
func (p *Play) SetAnswerers(players ...int) {
	p.Answerers = append(p.Answerers[:0], players...)
	sort.Ints(p.Answerers)
}

// IsAnswerer reports whether player has to answer.
func (p *Play) IsAnswerer(player int) bool {
	for _, a := range p.Answerers {
		if a == player {
			return true
		}
	}
	return false
}

// Multi reports an everyone-answers question.
func (p *Play) Multi() bool {
	return len(p.Answerers) > 1
}

// Enqueue registers an answer for validation. Answers already judged or
// already queued share that entry; it reports whether a new entry was made.
func (p *Play) Enqueue(answer string) bool {
	key := Normalize(answer)
	if _, ok := p.Validations[key]; ok {
		return false
	}
	p.Validations[key] = nil
	p.queue = append(p.queue, key)
	return true
}

// NextPending returns the oldest answer still waiting for a verdict.
func (p *Play) NextPending() (string, bool) {
	for len(p.queue) > 0 {
		key := p.queue[0]
		if p.Validations[key] == nil {
			return key, true
		}
		p.queue = p.queue[1:]
	}
	return "", false
}

// Judge stores the verdict for an answer.
func (p *Play) Judge(answer string, right bool) {
	key := Normalize(answer)
	v := right
	p.Validations[key] = &v
}

// Verdict returns the stored verdict for an answer, if any.
func (p *Play) Verdict(answer string) (right bool, ok bool) {
	v := p.Validations[Normalize(answer)]
	if v == nil {
		return false, false
	}
	return *v, true
}

// ExpectMedia starts counting acknowledgements for a media fragment.
func (p *Play) ExpectMedia(participants int) {
	p.mediaWant = participants
	p.mediaAcks = make(map[string]struct{})
}

// Ack records that a participant finished playing the media. It reports true
// once every expected participant acknowledged.
func (p *Play) Ack(name string) bool {
	if p.mediaWant == 0 {
		return false
	}
	p.mediaAcks[name] = struct{}{}
	return len(p.mediaAcks) >= p.mediaWant
}

// AwaitingMedia reports an open media acknowledgement round.
func (p *Play) AwaitingMedia() bool {
	return p.mediaWant > 0 && len(p.mediaAcks) < p.mediaWant
}

// StopMedia closes the acknowledgement round.
func (p *Play) StopMedia() {
	p.mediaWant = 0
}

// MediaAcks returns how many participants acknowledged so far.
func (p *Play) MediaAcks() int {
	return len(p.mediaAcks)
}

// Record appends an applied result.
func (p *Play) Record(player int, answer string, right bool, delta int) {
	p.History = append(p.History, Record{Player: player, Answer: answer, Right: right, Delta: delta})
}

// Records returns pointers to the results of player.
func (p *Play) Records(player int) []*Record {
	var out []*Record
	for i := range p.History {
		if p.History[i].Player == player {
			out = append(out, &p.History[i])
		}
	}
	return out
}

// RightAnswerers lists players whose answers were accepted.
func (p *Play) RightAnswerers() []int {
	var out []int
	for _, r := range p.History {
		if r.Right {
			out = append(out, r.Player)
		}
	}
	return out
}

// RemovePlayer drops player k from the answerer set and history and shifts
// higher indices down.
func (p *Play) RemovePlayer(k int) {
	answerers := p.Answerers[:0]
	for _, a := range p.Answerers {
		switch {
		case a == k:
		case a > k:
			answerers = append(answerers, a-1)
		default:
			answerers = append(answerers, a)
		}
	}
	p.Answerers = answerers

	history := p.History[:0]
	for _, r := range p.History {
		switch {
		case r.Player == k:
			continue
		case r.Player > k:
			r.Player--
		}
		history = append(history, r)
	}
	p.History = history
}
