package game

import (
	"errors"
	"fmt"
)

var ErrInvalidPolicy = errors.New("invalid game policy")

// Policy holds the timing and threshold parameters of a session. Durations
// are in deciseconds.
type Policy struct {
	ChoosingTime            int `env:"CHOOSING_TIME" envDefault:"300" json:"choosingTime"`
	ButtonPressTime         int `env:"BUTTON_PRESS_TIME" envDefault:"50" json:"buttonPressTime"`
	ThinkingTime            int `env:"THINKING_TIME" envDefault:"200" json:"thinkingTime"`
	ValidationTime          int `env:"VALIDATION_TIME" envDefault:"300" json:"validationTime"`
	ShowmanDecisionTime     int `env:"SHOWMAN_DECISION_TIME" envDefault:"300" json:"showmanDecisionTime"`
	StakeTime               int `env:"STAKE_TIME" envDefault:"300" json:"stakeTime"`
	FinalThinkingTime       int `env:"FINAL_THINKING_TIME" envDefault:"450" json:"finalThinkingTime"`
	DeleteTime              int `env:"DELETE_TIME" envDefault:"300" json:"deleteTime"`
	AppellationTime         int `env:"APPELLATION_TIME" envDefault:"300" json:"appellationTime"`
	AppellationWindow       int `env:"APPELLATION_WINDOW" envDefault:"30" json:"appellationWindow"`
	ReportTime              int `env:"REPORT_TIME" envDefault:"1800" json:"reportTime"`
	MediaAckTimeout         int `env:"MEDIA_ACK_TIMEOUT" envDefault:"600" json:"mediaAckTimeout"`
	ContentDelay            int `env:"CONTENT_DELAY" envDefault:"20" json:"contentDelay"`
	ContentDelayPerChar     int `env:"CONTENT_DELAY_PER_CHAR" envDefault:"1" json:"contentDelayPerChar"`
	ContentDelayMax         int `env:"CONTENT_DELAY_MAX" envDefault:"100" json:"contentDelayMax"`
	RoundTime               int `env:"ROUND_TIME" envDefault:"6000" json:"roundTime"`
	RandomFallbackDelay     int `env:"RANDOM_FALLBACK_DELAY" envDefault:"10" json:"randomFallbackDelay"`
	FalseStartBlock         int `env:"FALSE_START_BLOCK" envDefault:"15" json:"falseStartBlock"`
	StakeStep               int `env:"STAKE_STEP" envDefault:"100" json:"stakeStep"`
	MinFinalStake           int `env:"MIN_FINAL_STAKE" envDefault:"1" json:"minFinalStake"`
	VoteMajorityNumerator   int `env:"VOTE_MAJORITY_NUMERATOR" envDefault:"1" json:"voteMajorityNumerator"`
	VoteMajorityDenominator int `env:"VOTE_MAJORITY_DENOMINATOR" envDefault:"2" json:"voteMajorityDenominator"`
	StallThreshold          int `env:"STALL_THRESHOLD" envDefault:"25" json:"stallThreshold"`
	HistorySize             int `env:"HISTORY_SIZE" envDefault:"32" json:"historySize"`
	PausedStackSize         int `env:"PAUSED_STACK_SIZE" envDefault:"3" json:"pausedStackSize"`
}

// DefaultPolicy mirrors the envDefault tags.
func DefaultPolicy() Policy {
	return Policy{
		ChoosingTime:            300,
		ButtonPressTime:         50,
		ThinkingTime:            200,
		ValidationTime:          300,
		ShowmanDecisionTime:     300,
		StakeTime:               300,
		FinalThinkingTime:       450,
		DeleteTime:              300,
		AppellationTime:         300,
		AppellationWindow:       30,
		ReportTime:              1800,
		MediaAckTimeout:         600,
		ContentDelay:            20,
		ContentDelayPerChar:     1,
		ContentDelayMax:         100,
		RoundTime:               6000,
		RandomFallbackDelay:     10,
		FalseStartBlock:         15,
		StakeStep:               100,
		MinFinalStake:           1,
		VoteMajorityNumerator:   1,
		VoteMajorityDenominator: 2,
		StallThreshold:          25,
		HistorySize:             32,
		PausedStackSize:         3,
	}
}

// Validate rejects inconsistent parameters.
func (p Policy) Validate() error {
	positive := map[string]int{
		"choosingTime":        p.ChoosingTime,
		"buttonPressTime":     p.ButtonPressTime,
		"thinkingTime":        p.ThinkingTime,
		"validationTime":      p.ValidationTime,
		"showmanDecisionTime": p.ShowmanDecisionTime,
		"stakeTime":           p.StakeTime,
		"finalThinkingTime":   p.FinalThinkingTime,
		"deleteTime":          p.DeleteTime,
		"appellationTime":     p.AppellationTime,
		"reportTime":          p.ReportTime,
		"mediaAckTimeout":     p.MediaAckTimeout,
		"stakeStep":           p.StakeStep,
		"minFinalStake":       p.MinFinalStake,
		"stallThreshold":      p.StallThreshold,
		"historySize":         p.HistorySize,
		"pausedStackSize":     p.PausedStackSize,
	}
	for name, v := range positive {
		if v <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidPolicy, name)
		}
	}
	if p.RoundTime < 0 || p.ContentDelay < 0 || p.ContentDelayPerChar < 0 || p.ContentDelayMax < 0 ||
		p.RandomFallbackDelay < 0 || p.FalseStartBlock < 0 || p.AppellationWindow < 0 {
		return fmt.Errorf("%w: delays must not be negative", ErrInvalidPolicy)
	}
	if p.VoteMajorityNumerator <= 0 || p.VoteMajorityDenominator <= 0 ||
		p.VoteMajorityNumerator >= p.VoteMajorityDenominator {
		return fmt.Errorf("%w: vote majority must be a fraction in (0,1)", ErrInvalidPolicy)
	}
	return nil
}

// Majority reports whether count of total votes strictly exceeds the
// configured fraction.
func (p Policy) Majority(count, total int) bool {
	return count*p.VoteMajorityDenominator > total*p.VoteMajorityNumerator
}

// ContentDelayFor returns the display time of a text fragment.
func (p Policy) ContentDelayFor(text string) int {
	d := p.ContentDelay + len([]rune(text))*p.ContentDelayPerChar/10
	if p.ContentDelayMax > 0 && d > p.ContentDelayMax {
		return p.ContentDelayMax
	}
	return d
}
