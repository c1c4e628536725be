package rules

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_engine.go -package=mocks . Engine

import (
	"errors"
)

// DirectiveKind is the tag of a navigation step.
type DirectiveKind string

const (
	DirectiveGameStart      DirectiveKind = "GAME_START"
	DirectiveRound          DirectiveKind = "ROUND"
	DirectiveChooseQuestion DirectiveKind = "CHOOSE_QUESTION"
	DirectiveQuestion       DirectiveKind = "QUESTION"
	DirectiveFinalThemes    DirectiveKind = "FINAL_THEMES"
	DirectiveRoundEnd       DirectiveKind = "ROUND_END"
	DirectiveGameEnd        DirectiveKind = "GAME_END"
)

// QuestionType selects how a question is played.
type QuestionType string

const (
	QuestionSimple QuestionType = "SIMPLE"
	QuestionStake  QuestionType = "STAKE"
	QuestionSecret QuestionType = "SECRET"
	QuestionNoRisk QuestionType = "NO_RISK"
	QuestionForAll QuestionType = "FOR_ALL"
	QuestionFinal  QuestionType = "FINAL"
)

// FragmentKind is the media type of one content fragment.
type FragmentKind string

const (
	FragmentText  FragmentKind = "TEXT"
	FragmentImage FragmentKind = "IMAGE"
	FragmentAudio FragmentKind = "AUDIO"
	FragmentVideo FragmentKind = "VIDEO"
)

var (
	ErrGameOver        = errors.New("game is over")
	ErrNoSuchQuestion  = errors.New("no such question")
	ErrQuestionPlayed  = errors.New("question already played")
	ErrNoSuchTheme     = errors.New("no such theme")
	ErrThemeDeleted    = errors.New("theme already deleted")
	ErrLastTheme       = errors.New("cannot delete the last theme")
	ErrNoSuchRound     = errors.New("no such round")
	ErrNotChoosing     = errors.New("engine is not waiting for a question choice")
	ErrNotDeleting     = errors.New("engine is not waiting for a theme deletion")
	ErrNoActiveContent = errors.New("no question is being played")
)

// Fragment is one piece of question content. Duration is in deciseconds and
// only set for timed media.
type Fragment struct {
	Kind     FragmentKind `json:"kind"`
	Value    string       `json:"value"`
	Duration int          `json:"duration,omitempty"`
}

// Media reports whether the fragment needs a playback acknowledgement.
func (f Fragment) Media() bool {
	return f.Kind == FragmentAudio || f.Kind == FragmentVideo
}

// PriceRange bounds the price a secret question's receiver may pick.
type PriceRange struct {
	Min  int `json:"min"`
	Max  int `json:"max"`
	Step int `json:"step"`
}

// Prices lists every price the range allows.
func (r PriceRange) Prices() []int {
	if r.Step <= 0 || r.Min == r.Max {
		return []int{r.Min}
	}
	var out []int
	for p := r.Min; p <= r.Max; p += r.Step {
		out = append(out, p)
	}
	return out
}

// Contains reports whether price is a valid pick.
func (r PriceRange) Contains(price int) bool {
	for _, p := range r.Prices() {
		if p == price {
			return true
		}
	}
	return false
}

// Question is the content and rules of one question.
type Question struct {
	Theme      int          `json:"theme"`
	ThemeName  string       `json:"themeName"`
	Index      int          `json:"index"`
	Type       QuestionType `json:"type"`
	Price      int          `json:"price"`
	Content    []Fragment   `json:"content"`
	Right      []string     `json:"right"`
	Wrong      []string     `json:"wrong,omitempty"`
	Options    []string     `json:"options,omitempty"`
	PriceRange *PriceRange  `json:"priceRange,omitempty"`
	Comment    string       `json:"comment,omitempty"`
}

// Round describes the round being entered.
type Round struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Final bool   `json:"final"`
}

// Theme is one column of the question table. A zero price marks a played
// question.
type Theme struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	Prices  []int  `json:"prices"`
	Deleted bool   `json:"deleted,omitempty"`
}

// Directive is the next step the engine wants played.
type Directive struct {
	Kind     DirectiveKind `json:"kind"`
	Round    *Round        `json:"round,omitempty"`
	Question *Question     `json:"question,omitempty"`
	Themes   []Theme       `json:"themes,omitempty"`
}

// Package is the metadata of the loaded question package.
type Package struct {
	Name    string   `json:"name"`
	Authors []string `json:"authors,omitempty"`
	Rounds  []string `json:"rounds"`
}

// Context is the live game data conditions are evaluated against.
type Context struct {
	Round   int
	Players int
	Scores  []int
}

// Engine is the round and question navigation source. Implementations are
// used under the session lock and need not be safe for concurrent use.
type Engine interface {
	Package() Package
	Next(ctx Context) (Directive, error)
	Themes() []Theme
	SelectQuestion(theme, index int) (*Question, error)
	DeleteTheme(theme int) error
	SkipQuestion() error
	MoveToAnswer() error
	NextRound() error
	PrevRound() error
	EndRound() error
}
