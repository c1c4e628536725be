package game

// Decision is the participant input the session currently blocks on.
type Decision string

const (
	DecisionNone                         Decision = "NONE"
	DecisionStarterChoosing              Decision = "STARTER_CHOOSING"
	DecisionQuestionSelection            Decision = "QUESTION_SELECTION"
	DecisionAnswering                    Decision = "ANSWERING"
	DecisionAnswerValidating             Decision = "ANSWER_VALIDATING"
	DecisionQuestionAnswererSelection    Decision = "QUESTION_ANSWERER_SELECTION"
	DecisionQuestionPriceSelection       Decision = "QUESTION_PRICE_SELECTION"
	DecisionStakeMaking                  Decision = "STAKE_MAKING"
	DecisionNextPersonStakeMaking        Decision = "NEXT_PERSON_STAKE_MAKING"
	DecisionThemeDeleting                Decision = "THEME_DELETING"
	DecisionNextPersonFinalThemeDeleting Decision = "NEXT_PERSON_FINAL_THEME_DELETING"
	DecisionFinalStakeMaking             Decision = "FINAL_STAKE_MAKING"
	DecisionAppellation                  Decision = "APPELLATION_DECISION"
	DecisionReporting                    Decision = "REPORTING"
)

// StopReason is the single pending interrupt of a session.
type StopReason string

const (
	StopNone        StopReason = "NONE"
	StopMove        StopReason = "MOVE"
	StopDecision    StopReason = "DECISION"
	StopPause       StopReason = "PAUSE"
	StopAnswer      StopReason = "ANSWER"
	StopAppellation StopReason = "APPELLATION"
	StopWait        StopReason = "WAIT"
)

// Stage is the coarse phase of a game.
type Stage string

const (
	StageBefore Stage = "BEFORE"
	StageBegin  Stage = "BEGIN"
	StageRound  Stage = "ROUND"
	StageFinal  Stage = "FINAL"
	StageAfter  Stage = "AFTER"
)

// JoinMode controls who may connect to a session.
type JoinMode string

const (
	JoinAnyRole     JoinMode = "ANY_ROLE"
	JoinViewersOnly JoinMode = "VIEWERS_ONLY"
	JoinForbidden   JoinMode = "FORBIDDEN"
)

// ParseJoinMode maps a wire value to a JoinMode.
func ParseJoinMode(s string) (JoinMode, bool) {
	switch m := JoinMode(s); m {
	case JoinAnyRole, JoinViewersOnly, JoinForbidden:
		return m, true
	}
	return "", false
}

// Role is the seat a participant occupies.
type Role string

const (
	RolePlayer  Role = "PLAYER"
	RoleShowman Role = "SHOWMAN"
	RoleViewer  Role = "VIEWER"
)

// ParseRole maps a wire value to a Role.
func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RolePlayer, RoleShowman, RoleViewer:
		return r, true
	}
	return "", false
}

// Options are the per-session toggles a host may flip.
type Options struct {
	FalseStarts  bool `json:"falseStarts"`
	Appellations bool `json:"appellations"`
	IgnoreWrong  bool `json:"ignoreWrong"`
}

// DefaultOptions returns the options new sessions start with.
func DefaultOptions() Options {
	return Options{FalseStarts: true, Appellations: true}
}
