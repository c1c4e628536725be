package pack

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/quiz-hub/quiz-hub/internal/domain/rules"
)

type phase int

const (
	phaseStart phase = iota
	phaseAdvance
	phaseTable
	phaseFinal
	phaseRoundEnd
	phaseOver
)

// Engine walks a Package round by round. It implements rules.Engine.
type Engine struct {
	pkg    *Package
	logger zerolog.Logger

	phase   phase
	round   int
	played  map[[2]int]bool
	deleted map[int]bool
	current *rules.Question
	gc      rules.Context
}

var _ rules.Engine = (*Engine)(nil)

// NewEngine creates an engine positioned before the first round.
func NewEngine(pkg *Package, logger zerolog.Logger) *Engine {
	return &Engine{
		pkg:    pkg,
		logger: logger.With().Str("service", "pack").Str("package", pkg.Name).Logger(),
		round:  -1,
	}
}

func (e *Engine) Package() rules.Package { return e.pkg.Meta() }

// Next returns the next directive.
func (e *Engine) Next(gc rules.Context) (rules.Directive, error) {
	e.gc = gc
	switch e.phase {
	case phaseStart:
		e.phase = phaseAdvance
		return rules.Directive{Kind: rules.DirectiveGameStart}, nil

	case phaseAdvance:
		return e.enterNextRound(), nil

	case phaseTable:
		e.current = nil
		if !e.anyAvailable() {
			e.phase = phaseRoundEnd
			return e.Next(gc)
		}
		return rules.Directive{Kind: rules.DirectiveChooseQuestion, Round: e.roundInfo(), Themes: e.Themes()}, nil

	case phaseFinal:
		return e.nextFinal(), nil

	case phaseRoundEnd:
		e.current = nil
		e.phase = phaseAdvance
		return rules.Directive{Kind: rules.DirectiveRoundEnd, Round: e.roundInfo()}, nil
	}
	return rules.Directive{Kind: rules.DirectiveGameEnd}, nil
}

func (e *Engine) enterNextRound() rules.Directive {
	for i := e.round + 1; i < len(e.pkg.Rounds); i++ {
		ok, err := EvaluateCondition(e.pkg.Rounds[i].Condition, e.withRound(i))
		if err != nil {
			e.logger.Warn().Err(err).Int("round", i).Msg("round condition failed, playing the round")
			ok = true
		}
		if !ok {
			e.logger.Debug().Int("round", i).Msg("round skipped by condition")
			continue
		}
		e.round = i
		e.played = make(map[[2]int]bool)
		e.deleted = make(map[int]bool)
		e.current = nil
		if e.pkg.Rounds[i].Final() {
			e.phase = phaseFinal
		} else {
			e.phase = phaseTable
		}
		return rules.Directive{Kind: rules.DirectiveRound, Round: e.roundInfo(), Themes: e.Themes()}
	}
	e.phase = phaseOver
	e.current = nil
	return rules.Directive{Kind: rules.DirectiveGameEnd}
}

func (e *Engine) nextFinal() rules.Directive {
	if e.current != nil {
		e.current = nil
		e.phase = phaseAdvance
		return rules.Directive{Kind: rules.DirectiveRoundEnd, Round: e.roundInfo()}
	}
	left := e.remainingThemes()
	switch len(left) {
	case 0:
		e.phase = phaseAdvance
		return rules.Directive{Kind: rules.DirectiveRoundEnd, Round: e.roundInfo()}
	case 1:
		t := left[0]
		q := e.build(t, 0)
		q.Type = rules.QuestionFinal
		q.Price = 0
		e.played[[2]int{t, 0}] = true
		e.current = q
		return rules.Directive{Kind: rules.DirectiveQuestion, Round: e.roundInfo(), Question: q}
	}
	return rules.Directive{Kind: rules.DirectiveFinalThemes, Round: e.roundInfo(), Themes: e.Themes()}
}

// Themes lists the current round's table. Played or unavailable questions
// have a zero price.
func (e *Engine) Themes() []rules.Theme {
	r := e.currentRound()
	if r == nil {
		return nil
	}
	out := make([]rules.Theme, len(r.Themes))
	for ti, t := range r.Themes {
		prices := make([]int, len(t.Questions))
		for qi := range t.Questions {
			if e.available(ti, qi) {
				prices[qi] = t.Questions[qi].Price
			}
		}
		out[ti] = rules.Theme{Index: ti, Name: t.Name, Prices: prices, Deleted: e.deleted[ti]}
	}
	return out
}

// SelectQuestion marks a table question played and returns it.
func (e *Engine) SelectQuestion(theme, index int) (*rules.Question, error) {
	if e.phase != phaseTable {
		return nil, rules.ErrNotChoosing
	}
	r := e.currentRound()
	if theme < 0 || theme >= len(r.Themes) || index < 0 || index >= len(r.Themes[theme].Questions) {
		return nil, fmt.Errorf("%w: theme %d question %d", rules.ErrNoSuchQuestion, theme, index)
	}
	if !e.available(theme, index) {
		return nil, rules.ErrQuestionPlayed
	}
	e.played[[2]int{theme, index}] = true
	e.current = e.build(theme, index)
	return e.current, nil
}

// DeleteTheme removes a final-round theme.
func (e *Engine) DeleteTheme(theme int) error {
	if e.phase != phaseFinal || e.current != nil {
		return rules.ErrNotDeleting
	}
	r := e.currentRound()
	if theme < 0 || theme >= len(r.Themes) {
		return fmt.Errorf("%w: %d", rules.ErrNoSuchTheme, theme)
	}
	if e.deleted[theme] {
		return rules.ErrThemeDeleted
	}
	if len(e.remainingThemes()) <= 1 {
		return rules.ErrLastTheme
	}
	e.deleted[theme] = true
	return nil
}

// SkipQuestion abandons the question being played.
func (e *Engine) SkipQuestion() error {
	if e.current == nil {
		return rules.ErrNoActiveContent
	}
	e.current = nil
	if e.phase == phaseFinal {
		e.phase = phaseRoundEnd
	}
	return nil
}

// MoveToAnswer drops the remaining content of the current question.
func (e *Engine) MoveToAnswer() error {
	if e.current == nil {
		return rules.ErrNoActiveContent
	}
	e.current.Content = nil
	return nil
}

// NextRound leaves the current round. Past the last round the game ends.
func (e *Engine) NextRound() error {
	if e.phase == phaseOver {
		return rules.ErrGameOver
	}
	e.current = nil
	e.phase = phaseAdvance
	return nil
}

// PrevRound goes back to the previous round with a fresh table.
func (e *Engine) PrevRound() error {
	if e.round <= 0 {
		return rules.ErrNoSuchRound
	}
	e.round -= 2
	e.current = nil
	e.phase = phaseAdvance
	return nil
}

// EndRound finishes the current round at the next directive.
func (e *Engine) EndRound() error {
	if e.currentRound() == nil || e.phase == phaseOver {
		return rules.ErrNoSuchRound
	}
	e.current = nil
	e.phase = phaseRoundEnd
	return nil
}

func (e *Engine) currentRound() *Round {
	if e.round < 0 || e.round >= len(e.pkg.Rounds) {
		return nil
	}
	return &e.pkg.Rounds[e.round]
}

func (e *Engine) roundInfo() *rules.Round {
	r := e.currentRound()
	if r == nil {
		return nil
	}
	return &rules.Round{Index: e.round, Name: r.Name, Final: r.Final()}
}

func (e *Engine) available(theme, index int) bool {
	if e.played[[2]int{theme, index}] || e.deleted[theme] {
		return false
	}
	q := e.currentRound().Themes[theme].Questions[index]
	ok, err := EvaluateCondition(q.Condition, e.gc)
	if err != nil {
		e.logger.Warn().Err(err).Int("theme", theme).Int("question", index).Msg("question condition failed")
		return true
	}
	return ok
}

func (e *Engine) anyAvailable() bool {
	r := e.currentRound()
	for ti, t := range r.Themes {
		for qi := range t.Questions {
			if e.available(ti, qi) {
				return true
			}
		}
	}
	return false
}

func (e *Engine) remainingThemes() []int {
	var out []int
	for ti := range e.currentRound().Themes {
		if !e.deleted[ti] {
			out = append(out, ti)
		}
	}
	return out
}

func (e *Engine) build(theme, index int) *rules.Question {
	t := e.currentRound().Themes[theme]
	q := t.Questions[index]
	out := &rules.Question{
		Theme:     theme,
		ThemeName: t.Name,
		Index:     index,
		Type:      questionTypes[strings.ToLower(q.Type)],
		Price:     q.Price,
		Content:   append([]rules.Fragment(nil), q.Content...),
		Right:     append([]string(nil), q.Right...),
		Wrong:     append([]string(nil), q.Wrong...),
		Options:   append([]string(nil), q.Options...),
		Comment:   q.Comment,
	}
	if q.PriceRange != nil {
		pr := *q.PriceRange
		out.PriceRange = &pr
	}
	return out
}

func (e *Engine) withRound(i int) rules.Context {
	gc := e.gc
	gc.Round = i
	return gc
}
