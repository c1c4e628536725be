package orchestrator

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiz-hub/quiz-hub/internal/domain/auction"
	"github.com/quiz-hub/quiz-hub/internal/domain/game"
	"github.com/quiz-hub/quiz-hub/internal/domain/notification"
	"github.com/quiz-hub/quiz-hub/internal/domain/rules"
	"github.com/quiz-hub/quiz-hub/internal/infrastructure/pack"
)

const finalPack = `{
  "name": "final",
  "rounds": [{
    "name": "Final",
    "type": "final",
    "themes": [
      {"name": "Lakes", "questions": [{"content": [{"kind": "TEXT", "value": "Deepest lake?"}], "right": ["Baikal"], "wrong": ["Caspian"]}]},
      {"name": "Rivers", "questions": [{"content": [{"kind": "TEXT", "value": "Longest river?"}], "right": ["Nile"]}]},
      {"name": "Peaks", "questions": [{"content": [{"kind": "TEXT", "value": "Highest peak?"}], "right": ["Everest"]}]},
      {"name": "Seas", "questions": [{"content": [{"kind": "TEXT", "value": "Saltiest sea?"}], "right": ["Dead"]}]}
    ]
  }]
}`

const kindsPack = `{
  "name": "kinds",
  "rounds": [{
    "name": "First",
    "themes": [{"name": "Lakes", "questions": [
      {"price": 100, "type": "secret", "priceRange": {"min": 100, "max": 300, "step": 100}, "content": [{"kind": "TEXT", "value": "Deepest lake?"}], "right": ["Baikal"]},
      {"price": 200, "type": "norisk", "content": [{"kind": "TEXT", "value": "Deepest lake?"}], "right": ["Baikal"]},
      {"price": 300, "type": "forall", "content": [{"kind": "TEXT", "value": "Deepest lake?"}], "right": ["Baikal"], "wrong": ["Caspian"]},
      {"price": 400, "content": [{"kind": "AUDIO", "value": "waves.mp3"}, {"kind": "TEXT", "value": "Which lake?"}], "right": ["Baikal"]}
    ]}]
  }]
}`

// refusingEngine turns down the next refusals theme deletions.
type refusingEngine struct {
	*pack.Engine
	refusals int
}

func (e *refusingEngine) DeleteTheme(theme int) error {
	if e.refusals > 0 {
		e.refusals--
		return rules.ErrNotDeleting
	}
	return e.Engine.DeleteTheme(theme)
}

func packEngine(t *testing.T, pkgJSON string) *pack.Engine {
	t.Helper()
	p, err := pack.Parse([]byte(pkgJSON))
	require.NoError(t, err)
	return pack.NewEngine(p, zerolog.Nop())
}

func (h *harness) setScores(scores ...int) {
	h.t.Helper()
	for i, score := range scores {
		h.apply(SetScore{Origin: by("host", "SET_SCORE"), Index: i, Value: score})
	}
}

func TestFinal_DeletionOrderStakesAndValidation(t *testing.T) {
	h := newHarness(t, finalPack, []string{"p0", "p1", "p2"})
	ctx := context.Background()
	h.apply(Connect{Origin: by("host", "CONNECT"), Role: game.RoleShowman, Human: true})
	h.readyAll()
	h.setScores(500, 500, 200)

	h.stepTo(taskWaitDelete)
	s := h.state()
	assert.Equal(t, game.StageFinal, s.Stage)
	assert.Equal(t, game.DecisionThemeDeleting, s.Decision)
	deleter, _ := s.Deletion.Current()
	assert.Equal(t, 2, deleter, "the lowest score deletes first")

	err := h.o.Apply(ctx, DeleteTheme{Origin: by("p0", "DELETE"), Theme: 1})
	assert.ErrorIs(t, err, game.ErrNotAuthorized)
	h.apply(DeleteTheme{Origin: by("p2", "DELETE"), Theme: 1})
	assert.True(t, h.pub.has(notification.EventThemeDeleted))

	h.stepTo(taskWaitNextDeleter)
	assert.Equal(t, game.DecisionNextPersonFinalThemeDeleting, s.Decision)
	_, cands := s.Deletion.Current()
	assert.Equal(t, []int{0, 1}, cands)
	h.apply(SelectPlayer{Origin: by("host", "SELECT_PLAYER"), Index: 1})
	deleter, _ = s.Deletion.Current()
	require.Equal(t, 1, deleter)
	assert.Equal(t, game.DecisionThemeDeleting, s.Decision)

	err = h.o.Apply(ctx, DeleteTheme{Origin: by("p1", "DELETE"), Theme: 1})
	assert.ErrorIs(t, err, game.ErrBadArgument, "already deleted")
	h.apply(DeleteTheme{Origin: by("p1", "DELETE"), Theme: 2})

	h.stepTo(taskWaitDelete)
	deleter, _ = s.Deletion.Current()
	assert.Equal(t, 0, deleter, "the last tied slot falls to the remaining leader")
	h.apply(DeleteTheme{Origin: by("p0", "DELETE"), Theme: 3})

	h.stepTo(taskWaitFinalStake)
	assert.Equal(t, "Lakes", s.ThemeName)
	assert.Equal(t, game.DecisionFinalStakeMaking, s.Decision)
	assert.Equal(t, []int{0, 1, 2}, s.Question.Answerers)

	h.apply(Stake{Origin: by("p0", "STAKE"), Bid: auction.Bid{Kind: auction.BidSum, Sum: 300}})
	err = h.o.Apply(ctx, Stake{Origin: by("p0", "STAKE"), Bid: auction.Bid{Kind: auction.BidSum, Sum: 400}})
	assert.ErrorIs(t, err, game.ErrUnexpected)
	err = h.o.Apply(ctx, Stake{Origin: by("p2", "STAKE"), Bid: auction.Bid{Kind: auction.BidSum, Sum: 300}})
	assert.ErrorIs(t, err, game.ErrBadArgument)
	err = h.o.Apply(ctx, Stake{Origin: by("p2", "STAKE"), Bid: auction.Bid{Kind: auction.BidPass}})
	assert.ErrorIs(t, err, game.ErrBadArgument)
	h.apply(Stake{Origin: by("p1", "STAKE"), Bid: auction.Bid{Kind: auction.BidAllIn}})
	assert.Equal(t, game.DecisionFinalStakeMaking, s.Decision)
	h.apply(Stake{Origin: by("p2", "STAKE"), Bid: auction.Bid{Kind: auction.BidSum, Sum: 200}})
	assert.Equal(t, game.DecisionNone, s.Decision)
	assert.Equal(t, taskContent, h.pending())

	h.stepTo(taskWaitAnswer)
	assert.Equal(t, game.DecisionAnswering, s.Decision)
	h.apply(Answer{Origin: by("p0", "ANSWER"), Text: "baikal"})
	h.apply(Answer{Origin: by("p1", "ANSWER"), Text: "Lake Baikal"})
	h.apply(Answer{Origin: by("p2", "ANSWER"), Text: "Caspian"})

	require.Equal(t, game.DecisionAnswerValidating, s.Decision, "only the unknown answer goes to the showman")
	assert.Equal(t, taskWaitRight, h.pending())
	err = h.o.Apply(ctx, Validate{Origin: by("p0", "VALIDATE"), Right: true})
	assert.ErrorIs(t, err, game.ErrNotAuthorized)
	h.apply(Validate{Origin: by("host", "VALIDATE"), Right: true})

	assert.Equal(t, []int{800, 1000, 0}, s.Scores())
	assert.Equal(t, game.DecisionNone, s.Decision)
	assert.Equal(t, taskShowRight, h.pending())
}

func TestFinal_RefusedDeletionAsksTheSamePlayer(t *testing.T) {
	eng := &refusingEngine{Engine: packEngine(t, finalPack)}
	h := newHarness(t, "", []string{"p0", "p1"}, withEngine(eng))
	h.readyAll()
	h.setScores(300, 200)

	h.stepTo(taskWaitDelete)
	s := h.state()
	h.apply(DeleteTheme{Origin: by("p1", "DELETE"), Theme: 3})
	h.stepTo(taskWaitDelete)
	deleter, _ := s.Deletion.Current()
	require.Equal(t, 0, deleter)
	require.Equal(t, 1, s.Deletion.Cursor(), "the leader holds the last slot")

	eng.refusals = 1
	h.apply(DeleteTheme{Origin: by("p0", "DELETE"), Theme: 2})

	deleter, _ = s.Deletion.Current()
	assert.Equal(t, 0, deleter, "the turn stays with the leader")
	assert.Equal(t, 1, s.Deletion.Cursor())
	assert.Equal(t, game.DecisionThemeDeleting, s.Decision)
	assert.Equal(t, taskWaitDelete, h.pending())
	assert.False(t, eng.Themes()[2].Deleted)

	h.apply(DeleteTheme{Origin: by("p0", "DELETE"), Theme: 2})
	assert.True(t, eng.Themes()[2].Deleted)
	assert.Equal(t, 0, s.Deletion.Cursor(), "a new pass starts with the lowest score")

	h.stepTo(taskWaitDelete)
	deleter, _ = s.Deletion.Current()
	assert.Equal(t, 1, deleter)
}

func TestQuestion_SecretGoesToChosenReceiver(t *testing.T) {
	h := newHarness(t, kindsPack, []string{"p0", "p1", "p2"})
	h.toChoice()
	ctx := context.Background()

	h.apply(Choice{Origin: by("p0", "CHOICE"), Theme: 0, Index: 0})
	h.stepTo(taskWaitCatGiving)
	s := h.state()
	assert.Equal(t, game.DecisionQuestionAnswererSelection, s.Decision)

	err := h.o.Apply(ctx, SelectPlayer{Origin: by("p0", "SELECT_PLAYER"), Index: 0})
	assert.ErrorIs(t, err, game.ErrBadArgument, "the chooser cannot keep it")
	err = h.o.Apply(ctx, SelectPlayer{Origin: by("p1", "SELECT_PLAYER"), Index: 2})
	assert.ErrorIs(t, err, game.ErrNotAuthorized)
	h.apply(SelectPlayer{Origin: by("p0", "SELECT_PLAYER"), Index: 2})

	assert.Equal(t, 2, s.Answerer.Index())
	assert.Equal(t, game.DecisionQuestionPriceSelection, s.Decision)
	assert.Equal(t, taskWaitCatPrice, h.pending())

	err = h.o.Apply(ctx, CatCost{Origin: by("p1", "CAT_COST"), Price: 200})
	assert.ErrorIs(t, err, game.ErrUnexpected)
	err = h.o.Apply(ctx, CatCost{Origin: by("p2", "CAT_COST"), Price: 250})
	assert.ErrorIs(t, err, game.ErrBadArgument)
	h.apply(CatCost{Origin: by("p2", "CAT_COST"), Price: 200})
	assert.Equal(t, 200, s.Price)

	h.stepTo(taskWaitAnswer)
	h.apply(Answer{Origin: by("p2", "ANSWER"), Text: "Baikal"})
	assert.Equal(t, []int{0, 0, 200}, s.Scores())
	assert.Equal(t, 2, s.Chooser.Index())
	assert.Equal(t, taskShowRight, h.pending())
}

func TestQuestion_NoRiskPaysDouble(t *testing.T) {
	h := newHarness(t, kindsPack, []string{"p0", "p1"})
	h.toChoice()

	h.apply(Choice{Origin: by("p0", "CHOICE"), Theme: 0, Index: 1})
	s := h.state()
	assert.Equal(t, 0, s.Answerer.Index(), "the chooser answers")

	h.stepTo(taskWaitAnswer)
	err := h.o.Apply(context.Background(), Answer{Origin: by("p1", "ANSWER"), Text: "Baikal"})
	assert.ErrorIs(t, err, game.ErrUnexpected)
	h.apply(Answer{Origin: by("p0", "ANSWER"), Text: "Baikal"})

	assert.Equal(t, []int{400, 0}, s.Scores())
	assert.Equal(t, taskShowRight, h.pending())
}

func TestQuestion_ForAllPositiveScoresAnswer(t *testing.T) {
	h := newHarness(t, kindsPack, []string{"p0", "p1", "p2"})
	h.readyAll()
	h.setScores(100, 0, 200)
	h.stepTo(taskWaitChoose)
	s := h.state()
	require.Equal(t, 1, s.Chooser.Index())

	h.apply(Choice{Origin: by("p1", "CHOICE"), Theme: 0, Index: 2})
	assert.Equal(t, []int{0, 2}, s.Question.Answerers)

	h.stepTo(taskWaitAnswer)
	err := h.o.Apply(context.Background(), Answer{Origin: by("p1", "ANSWER"), Text: "Baikal"})
	assert.ErrorIs(t, err, game.ErrUnexpected)
	h.apply(Answer{Origin: by("p0", "ANSWER"), Text: "Baikal"})
	assert.Equal(t, game.DecisionAnswering, s.Decision)
	h.apply(Answer{Origin: by("p2", "ANSWER"), Text: "Caspian"})

	assert.Equal(t, []int{400, 0, -100}, s.Scores())
	assert.Equal(t, 1, s.Chooser.Index(), "several answerers leave the chooser")
	assert.Equal(t, taskShowRight, h.pending())
}

func TestQuestion_MediaWaitsForEveryAck(t *testing.T) {
	h := newHarness(t, kindsPack, []string{"p0", "p1"})
	h.toChoice()
	ctx := context.Background()

	err := h.o.Apply(ctx, MediaAck{Origin: by("p0", "MEDIA_ACK")})
	assert.ErrorIs(t, err, game.ErrUnexpected)

	h.apply(Choice{Origin: by("p0", "CHOICE"), Theme: 0, Index: 3})
	require.Equal(t, taskContent, h.pending())
	fired, err := h.o.Step(ctx)
	require.NoError(t, err)
	require.True(t, fired)

	s := h.state()
	require.True(t, s.Question.AwaitingMedia())
	assert.True(t, s.Timers[game.TimerMedia].Running)
	e, _ := h.o.sched.Pending()
	assert.Equal(t, 1, e.Task.Arg)

	h.apply(MediaAck{Origin: by("p0", "MEDIA_ACK")})
	h.apply(MediaAck{Origin: by("p0", "MEDIA_ACK")})
	assert.True(t, s.Question.AwaitingMedia(), "one participant acks once")

	h.apply(MediaAck{Origin: by("p1", "MEDIA_ACK")})
	assert.False(t, s.Question.AwaitingMedia())
	assert.False(t, s.Timers[game.TimerMedia].Running)
	assert.Equal(t, 1, s.Question.Fragment, "the next fragment was shown at once")
	e, _ = h.o.sched.Pending()
	assert.Equal(t, taskContent, e.Task.Kind)
	assert.Equal(t, 2, e.Task.Arg)
}

func TestQuestion_DisconnectCountsAsMediaAck(t *testing.T) {
	h := newHarness(t, kindsPack, []string{"p0", "p1"})
	h.toChoice()
	h.apply(Choice{Origin: by("p0", "CHOICE"), Theme: 0, Index: 3})
	_, err := h.o.Step(context.Background())
	require.NoError(t, err)

	h.apply(MediaAck{Origin: by("p0", "MEDIA_ACK")})
	h.apply(Disconnect{Origin: by("p1", "DISCONNECT")})

	assert.False(t, h.state().Question.AwaitingMedia())
	assert.Equal(t, 1, h.state().Question.Fragment)
}
