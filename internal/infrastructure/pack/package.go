package pack

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/quiz-hub/quiz-hub/internal/domain/rules"
)

var (
	ErrInvalidPackage = errors.New("invalid package")
	ErrPackNotFound   = errors.New("package not found")
)

// RoundType marks standard table rounds and the final round.
type RoundType string

const (
	RoundStandard RoundType = "standard"
	RoundFinal    RoundType = "final"
)

// Package is the on-disk question package.
type Package struct {
	Name    string   `json:"name"`
	Authors []string `json:"authors,omitempty"`
	Rounds  []Round  `json:"rounds"`
}

// Round is one round of a package.
type Round struct {
	Name      string    `json:"name"`
	Type      RoundType `json:"type,omitempty"`
	Condition string    `json:"condition,omitempty"`
	Themes    []Theme   `json:"themes"`
}

// Final reports whether the round is played with theme deletion.
func (r Round) Final() bool { return r.Type == RoundFinal }

// Theme is a named column of questions.
type Theme struct {
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
}

// Question is one question as stored in a package.
type Question struct {
	Price      int               `json:"price"`
	Type       string            `json:"type,omitempty"`
	Condition  string            `json:"condition,omitempty"`
	Content    []rules.Fragment  `json:"content"`
	Right      []string          `json:"right"`
	Wrong      []string          `json:"wrong,omitempty"`
	Options    []string          `json:"options,omitempty"`
	PriceRange *rules.PriceRange `json:"priceRange,omitempty"`
	Comment    string            `json:"comment,omitempty"`
}

var questionTypes = map[string]rules.QuestionType{
	"":        rules.QuestionSimple,
	"simple":  rules.QuestionSimple,
	"stake":   rules.QuestionStake,
	"secret":  rules.QuestionSecret,
	"norisk":  rules.QuestionNoRisk,
	"no_risk": rules.QuestionNoRisk,
	"forall":  rules.QuestionForAll,
	"for_all": rules.QuestionForAll,
}

// Parse decodes and validates a package.
func Parse(data []byte) (*Package, error) {
	var p Package
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPackage, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the structure of the package.
func (p *Package) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPackage)
	}
	if len(p.Rounds) == 0 {
		return fmt.Errorf("%w: no rounds", ErrInvalidPackage)
	}
	for ri, r := range p.Rounds {
		if r.Type != "" && r.Type != RoundStandard && r.Type != RoundFinal {
			return fmt.Errorf("%w: round %d: unknown type %q", ErrInvalidPackage, ri, r.Type)
		}
		if len(r.Themes) == 0 {
			return fmt.Errorf("%w: round %d has no themes", ErrInvalidPackage, ri)
		}
		for ti, t := range r.Themes {
			if len(t.Questions) == 0 {
				return fmt.Errorf("%w: round %d theme %d has no questions", ErrInvalidPackage, ri, ti)
			}
			for qi, q := range t.Questions {
				if err := q.validate(r.Final()); err != nil {
					return fmt.Errorf("%w: round %d theme %d question %d: %v", ErrInvalidPackage, ri, ti, qi, err)
				}
			}
		}
	}
	return nil
}

func (q Question) validate(final bool) error {
	if _, ok := questionTypes[strings.ToLower(q.Type)]; !ok {
		return fmt.Errorf("unknown type %q", q.Type)
	}
	if !final && q.Price <= 0 {
		return errors.New("price must be positive")
	}
	if len(q.Right) == 0 {
		return errors.New("no right answer")
	}
	if len(q.Options) > 0 {
		found := false
		for _, o := range q.Options {
			if o == q.Right[0] {
				found = true
			}
		}
		if !found {
			return errors.New("right answer is not among the options")
		}
	}
	if r := q.PriceRange; r != nil && (r.Min <= 0 || r.Max < r.Min || r.Step < 0) {
		return errors.New("bad price range")
	}
	for _, f := range q.Content {
		switch f.Kind {
		case rules.FragmentText, rules.FragmentImage, rules.FragmentAudio, rules.FragmentVideo:
		default:
			return fmt.Errorf("unknown fragment kind %q", f.Kind)
		}
	}
	return nil
}

// Meta returns the package metadata.
func (p *Package) Meta() rules.Package {
	names := make([]string, len(p.Rounds))
	for i, r := range p.Rounds {
		names[i] = r.Name
	}
	return rules.Package{Name: p.Name, Authors: p.Authors, Rounds: names}
}
