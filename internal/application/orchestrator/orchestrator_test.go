package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/quiz-hub/quiz-hub/internal/domain/appellation"
	"github.com/quiz-hub/quiz-hub/internal/domain/auction"
	"github.com/quiz-hub/quiz-hub/internal/domain/game"
	"github.com/quiz-hub/quiz-hub/internal/domain/notification"
	"github.com/quiz-hub/quiz-hub/internal/domain/report"
	"github.com/quiz-hub/quiz-hub/internal/domain/rules"
	"github.com/quiz-hub/quiz-hub/internal/domain/rules/mocks"
	"github.com/quiz-hub/quiz-hub/internal/infrastructure/pack"
	"github.com/quiz-hub/quiz-hub/internal/scheduler"
	"github.com/quiz-hub/quiz-hub/internal/scheduler/clocktest"
)

const riversPack = `{
  "name": "rivers",
  "rounds": [{
    "name": "First",
    "themes": [{"name": "Rivers", "questions": [
      {"price": 100, "content": [{"kind": "TEXT", "value": "Longest river?"}], "right": ["Nile"]},
      {"price": 100, "type": "stake", "content": [{"kind": "TEXT", "value": "Deepest lake?"}], "right": ["Baikal"]}
    ]}]
  }]
}`

const singlePack = `{
  "name": "single",
  "rounds": [{
    "name": "Only",
    "themes": [{"name": "Rivers", "questions": [
      {"price": 100, "content": [{"kind": "TEXT", "value": "Longest river?"}], "right": ["Nile"]}
    ]}]
  }]
}`

type recorder struct {
	mu   sync.Mutex
	msgs []*notification.Message
}

func (r *recorder) Publish(m *notification.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
}

func (r *recorder) has(e notification.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.msgs {
		if m.Event == e {
			return true
		}
	}
	return false
}

type incidents struct {
	mu   sync.Mutex
	errs []error
}

func (i *incidents) Report(_ uuid.UUID, err error, _ string, _ []string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.errs = append(i.errs, err)
}

type reports struct {
	saved []*report.Report
}

func (r *reports) Save(rep *report.Report) { r.saved = append(r.saved, rep) }

type harness struct {
	t       *testing.T
	o       *Orchestrator
	clock   *clocktest.Clock
	pub     *recorder
	faults  *incidents
	reports *reports
}

type option func(*Deps)

func managed() option { return func(d *Deps) { d.Managed = true } }

func withEngine(e rules.Engine) option { return func(d *Deps) { d.Engine = e } }

func newHarness(t *testing.T, pkgJSON string, players []string, opts ...option) *harness {
	t.Helper()
	h := &harness{
		t:       t,
		clock:   clocktest.New(time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)),
		pub:     &recorder{},
		faults:  &incidents{},
		reports: &reports{},
	}
	deps := Deps{
		Publisher: h.pub,
		Incidents: h.faults,
		Reports:   h.reports,
		Clock:     h.clock,
		Random:    func(int) int { return 0 },
		Logger:    zerolog.Nop(),
	}
	if pkgJSON != "" {
		p, err := pack.Parse([]byte(pkgJSON))
		require.NoError(t, err)
		deps.Engine = pack.NewEngine(p, zerolog.Nop())
	}
	for _, opt := range opts {
		opt(&deps)
	}
	state := game.NewState(uuid.New(), "test", len(players), "host", game.DefaultPolicy(), game.DefaultOptions())
	h.o = New(state, deps)
	for _, name := range players {
		h.apply(Connect{Origin: by(name, "CONNECT"), Role: game.RolePlayer, Human: true})
	}
	return h
}

func by(name, verb string) Origin { return Origin{From: name, Verb: verb} }

func (h *harness) state() *game.State { return h.o.state }

func (h *harness) apply(in Intent) {
	h.t.Helper()
	require.NoError(h.t, h.o.Apply(context.Background(), in))
}

func (h *harness) readyAll() {
	h.t.Helper()
	for _, p := range h.state().Players {
		h.apply(Ready{Origin: by(p.Name, "READY"), On: true})
	}
}

func (h *harness) pending() scheduler.Kind {
	e, ok := h.o.sched.Pending()
	if !ok {
		return ""
	}
	return e.Task.Kind
}

func (h *harness) remaining() time.Duration {
	e, _ := h.o.sched.Pending()
	return e.Remaining
}

func (h *harness) stepTo(kind scheduler.Kind) {
	h.t.Helper()
	for i := 0; i < 30 && h.pending() != kind; i++ {
		fired, err := h.o.Step(context.Background())
		require.NoError(h.t, err)
		require.True(h.t, fired, "nothing pending while waiting for %s", kind)
	}
	require.Equal(h.t, kind, h.pending())
}

// toChoice starts the game and runs it up to the first question choice.
func (h *harness) toChoice() {
	h.t.Helper()
	h.readyAll()
	h.stepTo(taskWaitChoose)
	require.Equal(h.t, game.DecisionQuestionSelection, h.state().Decision)
}

func TestStop_FirstReasonWins(t *testing.T) {
	h := newHarness(t, riversPack, []string{"ann", "bob"})

	assert.True(t, h.o.requestStop(game.StopPause))
	assert.False(t, h.o.requestStop(game.StopMove))
	assert.Equal(t, game.StopPause, h.o.stopReason)
}

func TestOrchestrator_AllReadyStartsGame(t *testing.T) {
	h := newHarness(t, riversPack, []string{"ann", "bob"})
	assert.Equal(t, game.StageBefore, h.state().Stage)

	h.readyAll()

	assert.Equal(t, game.StageBegin, h.state().Stage)
	assert.Equal(t, "rivers", h.state().PackageName)
	assert.Equal(t, taskStartGame, h.pending())

	h.stepTo(taskWaitChoose)
	assert.Equal(t, game.StageRound, h.state().Stage)
	assert.Equal(t, 0, h.state().Chooser.Index())
}

func TestOrchestrator_WrongAnswerReopensPressWindow(t *testing.T) {
	h := newHarness(t, riversPack, []string{"ann", "bob"})
	h.toChoice()

	h.apply(Choice{Origin: by("ann", "CHOICE"), Theme: 0, Index: 0})
	assert.Equal(t, "Rivers", h.state().ThemeName)
	h.stepTo(taskWaitTry)
	require.True(t, h.state().Question.ButtonsOpen)

	h.clock.Advance(2 * time.Second)
	h.apply(Press{Origin: by("bob", "I")})
	assert.Equal(t, 1, h.state().Answerer.Index())
	assert.Equal(t, taskWaitAnswer, h.pending())
	frozen := h.o.sched.Paused()
	require.Len(t, frozen, 1)
	assert.Equal(t, taskWaitTry, frozen[0].Task.Kind)
	assert.Equal(t, 3*time.Second, frozen[0].Remaining)

	h.apply(Answer{Origin: by("bob", "ANSWER"), Text: "Amazon"})
	assert.Equal(t, -100, h.state().Players[1].Score)
	assert.Equal(t, taskWaitTry, h.pending())
	assert.Equal(t, 3*time.Second, h.remaining())
	assert.True(t, h.state().Question.ButtonsOpen)

	err := h.o.Apply(context.Background(), Press{Origin: by("bob", "I")})
	assert.ErrorIs(t, err, game.ErrUnexpected)

	h.apply(Press{Origin: by("ann", "I")})
	h.apply(Answer{Origin: by("ann", "ANSWER"), Text: " nile "})
	assert.Equal(t, []int{100, -100}, h.state().Scores())
	assert.Equal(t, 0, h.state().Chooser.Index())
	assert.Equal(t, taskShowRight, h.pending())
	assert.Empty(t, h.o.sched.Paused())
	assert.True(t, h.state().Question.AppealOpen)
}

func TestOrchestrator_EveryonePassed(t *testing.T) {
	h := newHarness(t, riversPack, []string{"ann", "bob"})
	h.toChoice()
	h.apply(Choice{Origin: by("ann", "CHOICE"), Theme: 0, Index: 0})
	h.stepTo(taskWaitTry)

	h.apply(Pass{Origin: by("ann", "PASS")})
	assert.Equal(t, taskWaitTry, h.pending())
	h.apply(Pass{Origin: by("bob", "PASS")})

	assert.Equal(t, taskShowRight, h.pending())
	assert.False(t, h.state().Question.ButtonsOpen)
	assert.Equal(t, []int{0, 0}, h.state().Scores())
}

func TestPause_FreezesDelayAndTimers(t *testing.T) {
	h := newHarness(t, riversPack, []string{"ann", "bob"})
	h.toChoice()
	h.clock.Advance(10 * time.Second)

	h.apply(Pause{Origin: by("host", "PAUSE")})
	require.True(t, h.state().Paused)
	assert.Equal(t, taskPauseHold, h.pending())
	frozen := h.o.sched.Paused()
	require.Len(t, frozen, 1)
	assert.Equal(t, taskWaitChoose, frozen[0].Task.Kind)
	assert.Equal(t, 20*time.Second, frozen[0].Remaining)

	h.clock.Advance(time.Minute)
	fired, err := h.o.Step(context.Background())
	require.NoError(t, err)
	assert.False(t, fired, "a held task does not run on step")

	h.apply(Pause{Origin: by("host", "PAUSE")})
	assert.False(t, h.state().Paused)
	assert.Equal(t, taskWaitChoose, h.pending())
	assert.Equal(t, 20*time.Second, h.remaining())
	assert.Equal(t, 10*time.Second, h.state().Timers[game.TimerRound].ElapsedAt(h.clock.Now()))
	assert.True(t, h.pub.has(notification.EventPause))
}

func TestPause_DecisionAppliedOnResume(t *testing.T) {
	h := newHarness(t, riversPack, []string{"ann", "bob"})
	h.toChoice()

	h.apply(Pause{Origin: by("host", "PAUSE")})
	h.apply(Choice{Origin: by("ann", "CHOICE"), Theme: 0, Index: 0})
	assert.Equal(t, taskPauseHold, h.pending())
	assert.Empty(t, h.state().ThemeName)

	h.apply(Pause{Origin: by("host", "PAUSE")})
	assert.Equal(t, "Rivers", h.state().ThemeName)
	assert.Equal(t, taskContent, h.pending())
}

func TestPause_RejectsPressWhilePaused(t *testing.T) {
	h := newHarness(t, riversPack, []string{"ann", "bob"})
	h.toChoice()
	h.apply(Choice{Origin: by("ann", "CHOICE"), Theme: 0, Index: 0})
	h.stepTo(taskWaitTry)

	h.apply(Pause{Origin: by("host", "PAUSE")})
	err := h.o.Apply(context.Background(), Press{Origin: by("ann", "I")})

	var pv *game.ProtocolViolation
	require.ErrorAs(t, err, &pv)
	assert.Equal(t, "I", pv.Verb)
	assert.Equal(t, game.NoPlayer, h.state().Answerer)
}

func TestOrchestrator_RejectsBadIntentsWithoutChangingState(t *testing.T) {
	h := newHarness(t, riversPack, []string{"ann", "bob"})
	h.toChoice()
	ctx := context.Background()

	err := h.o.Apply(ctx, Choice{Origin: by("bob", "CHOICE"), Theme: 0, Index: 0})
	assert.ErrorIs(t, err, game.ErrNotAuthorized)

	err = h.o.Apply(ctx, Choice{Origin: by("ann", "CHOICE"), Theme: 5, Index: 0})
	assert.ErrorIs(t, err, game.ErrBadArgument)

	err = h.o.Apply(ctx, Press{Origin: by("mallory", "I")})
	assert.ErrorIs(t, err, game.ErrUnknownSender)

	err = h.o.Apply(ctx, Answer{Origin: by("ann", "ANSWER"), Text: "Nile"})
	assert.ErrorIs(t, err, game.ErrUnexpected)

	err = h.o.Apply(ctx, Kick{Origin: by("ann", "KICK"), Name: "bob"})
	assert.ErrorIs(t, err, game.ErrNotAuthorized)

	assert.Equal(t, game.DecisionQuestionSelection, h.state().Decision)
	assert.Equal(t, taskWaitChoose, h.pending())
	assert.Empty(t, h.state().ThemeName)
	assert.Empty(t, h.faults.errs)
}

// toSecondBidder plays the stake question of riversPack with scores
// 100, 300, 300 up to the turn of p1, after p0 made the nominal bid.
func (h *harness) toSecondBidder() {
	h.t.Helper()
	t := h.t
	h.readyAll()
	for i, score := range []int{100, 300, 300} {
		h.apply(SetScore{Origin: by("host", "SET_SCORE"), Index: i, Value: score})
	}
	h.stepTo(taskWaitChoose)
	require.Equal(t, 0, h.state().Chooser.Index(), "lowest score chooses first")

	h.apply(Choice{Origin: by("p0", "CHOICE"), Theme: 0, Index: 1})
	require.NotNil(t, h.state().Auction)
	assert.Equal(t, 0, h.state().Staker.Index())

	h.apply(Stake{Origin: by("p0", "STAKE"), Bid: auction.Bid{Kind: auction.BidNominal}})
	assert.Equal(t, game.DecisionNextPersonStakeMaking, h.state().Decision)
	h.stepTo(taskWaitStake)
	require.Equal(t, 1, h.state().Staker.Index())
}

func (h *harness) assertSoleAnswerer(players int) {
	h.t.Helper()
	t := h.t
	s := h.state()
	require.Len(t, s.Players, players)
	assert.True(t, s.Auction.Finished)
	assert.Equal(t, 1, s.Answerer.Index())
	assert.Equal(t, 200, s.Price)
	assert.Equal(t, []int{1}, s.Question.Answerers)
	assert.Equal(t, game.NoPlayer, s.Staker)
	assert.Equal(t, game.DecisionNone, s.Decision)
	assert.Equal(t, taskContent, h.pending())
	assert.False(t, s.Blocked)
}

func TestOrchestrator_AuctionRemovalLeavesSoleAnswerer(t *testing.T) {
	h := newHarness(t, riversPack, []string{"p0", "p1", "p2"})
	h.toSecondBidder()

	h.apply(Stake{Origin: by("p1", "STAKE"), Bid: auction.Bid{Kind: auction.BidSum, Sum: 200}})
	assert.Equal(t, 2, h.state().Staker.Index())

	err := h.o.Apply(context.Background(), AddTable{Origin: by("host", "ADD_TABLE")})
	assert.ErrorIs(t, err, game.ErrUnexpected)

	h.apply(DeleteTable{Origin: by("host", "DELETE_TABLE"), Index: 2})
	h.assertSoleAnswerer(2)
}

func TestOrchestrator_AuctionDropsBidderWhoLeavesTheSeat(t *testing.T) {
	leave := map[string]Intent{
		"disconnect": Disconnect{Origin: by("p2", "DISCONNECT")},
		"kick":       Kick{Origin: by("host", "KICK"), Name: "p2"},
		"free":       Free{Origin: by("host", "FREE"), Index: 2},
	}
	for name, in := range leave {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, riversPack, []string{"p0", "p1", "p2"})
			h.toSecondBidder()
			h.apply(Stake{Origin: by("p1", "STAKE"), Bid: auction.Bid{Kind: auction.BidSum, Sum: 200}})
			require.Equal(t, 2, h.state().Staker.Index())

			h.apply(in)

			h.assertSoleAnswerer(3)
			assert.False(t, h.state().Auction.Eligible[2])
			assert.False(t, h.state().Players[2].Connected)
		})
	}
}

func TestOrchestrator_AuctionSkipsWaitingBidderWhoLeaves(t *testing.T) {
	h := newHarness(t, riversPack, []string{"p0", "p1", "p2", "p3"})
	h.readyAll()
	for i, score := range []int{100, 300, 400, 500} {
		h.apply(SetScore{Origin: by("host", "SET_SCORE"), Index: i, Value: score})
	}
	h.stepTo(taskWaitChoose)
	h.apply(Choice{Origin: by("p0", "CHOICE"), Theme: 0, Index: 1})
	h.apply(Stake{Origin: by("p0", "STAKE"), Bid: auction.Bid{Kind: auction.BidNominal}})
	require.Equal(t, 1, h.state().Staker.Index())

	h.apply(Disconnect{Origin: by("p1", "DISCONNECT")})

	s := h.state()
	assert.False(t, s.Auction.Finished)
	assert.Equal(t, 2, s.Staker.Index(), "the ladder moved past the current staker")
	assert.Equal(t, game.DecisionStakeMaking, s.Decision)
	assert.Equal(t, taskWaitStake, h.pending())

	h.apply(Disconnect{Origin: by("p3", "DISCONNECT")})
	assert.Equal(t, 2, s.Staker.Index(), "a waiting bidder leaves without moving the turn")
	assert.False(t, s.Auction.Eligible[3])
}

func TestOrchestrator_PausedStakeIsTakenOnce(t *testing.T) {
	h := newHarness(t, riversPack, []string{"p0", "p1", "p2"})
	h.toSecondBidder()
	ctx := context.Background()

	h.apply(Pause{Origin: by("host", "PAUSE")})
	h.apply(Stake{Origin: by("p1", "STAKE"), Bid: auction.Bid{Kind: auction.BidSum, Sum: 200}})
	err := h.o.Apply(ctx, Stake{Origin: by("p1", "STAKE"), Bid: auction.Bid{Kind: auction.BidSum, Sum: 300}})
	assert.ErrorIs(t, err, game.ErrUnexpected)

	s := h.state()
	assert.Equal(t, 200, s.Auction.Stake)
	assert.Equal(t, 1, s.Staker.Index())

	h.apply(Pause{Origin: by("host", "PAUSE")})
	assert.Equal(t, 2, s.Staker.Index())
	assert.Equal(t, 200, s.Auction.Stake)
	assert.Equal(t, 1, s.Auction.Leader)
}

func TestOrchestrator_RemovingChooserRepicks(t *testing.T) {
	h := newHarness(t, riversPack, []string{"ann", "bob", "cid"})
	h.toChoice()
	require.Equal(t, 0, h.state().Chooser.Index())

	h.apply(DeleteTable{Origin: by("host", "DELETE_TABLE"), Index: 0})

	s := h.state()
	require.Len(t, s.Players, 2)
	assert.Equal(t, "bob", s.At(s.Chooser).Name)
	assert.Equal(t, game.DecisionQuestionSelection, s.Decision)
	assert.Equal(t, taskWaitChoose, h.pending())
}

func TestAppellation_MajorityOverturnsEarly(t *testing.T) {
	players := []string{"p0", "p1", "p2", "p3", "p4"}
	h := newHarness(t, riversPack, players)
	h.toChoice()
	h.apply(Choice{Origin: by("p0", "CHOICE"), Theme: 0, Index: 0})
	h.stepTo(taskWaitTry)

	h.apply(Press{Origin: by("p0", "I")})
	h.apply(Answer{Origin: by("p0", "ANSWER"), Text: "Amazon"})
	require.Equal(t, -100, h.state().Players[0].Score)
	for _, p := range players[1:] {
		h.apply(Pass{Origin: by(p, "PASS")})
	}
	require.Equal(t, taskShowRight, h.pending())
	require.True(t, h.state().Question.AppealOpen)

	h.apply(Appellate{Origin: by("p0", "APPELLATE"), Positive: true})
	s := h.state()
	require.NotNil(t, s.Appeal)
	assert.Equal(t, 5, s.Appeal.Total)
	assert.Equal(t, game.DecisionAppellation, s.Decision)
	assert.Equal(t, taskWaitAppellation, h.pending())

	h.apply(Vote{Origin: by("p1", "VOTE"), Overturn: true})
	h.apply(Vote{Origin: by("p2", "VOTE"), Overturn: true})
	assert.False(t, s.Appeal.Closed())
	assert.Equal(t, taskWaitAppellation, h.pending())

	h.apply(Vote{Origin: by("p3", "VOTE"), Overturn: true})

	assert.Equal(t, appellation.OutcomeOverturned, s.Appeal.Outcome)
	assert.False(t, s.Appeal.Responded[4])
	assert.Equal(t, 100, s.Players[0].Score)
	assert.Equal(t, 0, s.Chooser.Index())
	assert.Equal(t, game.DecisionNone, s.Decision)
	assert.Equal(t, taskShowRight, h.pending())

	err := h.o.Apply(context.Background(), Vote{Origin: by("p4", "VOTE"), Overturn: false})
	assert.ErrorIs(t, err, game.ErrUnexpected)
}

func TestAppellation_FreeSeatDoesNotVote(t *testing.T) {
	h := newHarness(t, riversPack, []string{"p0", "p1", "p2"})
	h.toChoice()
	h.apply(AddTable{Origin: by("host", "ADD_TABLE")})
	require.Len(t, h.state().Players, 4)

	h.apply(Choice{Origin: by("p0", "CHOICE"), Theme: 0, Index: 0})
	h.stepTo(taskWaitTry)
	h.apply(Press{Origin: by("p0", "I")})
	h.apply(Answer{Origin: by("p0", "ANSWER"), Text: "Amazon"})
	h.apply(Pass{Origin: by("p1", "PASS")})
	h.apply(Pass{Origin: by("p2", "PASS")})
	require.Equal(t, taskShowRight, h.pending())

	h.apply(Appellate{Origin: by("p0", "APPELLATE"), Positive: true})
	s := h.state()
	require.NotNil(t, s.Appeal)
	assert.Equal(t, 3, s.Appeal.Total, "two voters and the showman")
	assert.False(t, s.Appeal.Voters[3])

	h.apply(Vote{Origin: by("p1", "VOTE"), Overturn: true})
	h.apply(Vote{Origin: by("p2", "VOTE"), Overturn: true})

	assert.Equal(t, appellation.OutcomeOverturned, s.Appeal.Outcome)
	assert.Equal(t, 100, s.Players[0].Score)
	assert.Equal(t, game.DecisionNone, s.Decision)
	assert.Equal(t, taskShowRight, h.pending())
}

func TestOrchestrator_GameEndsWithReport(t *testing.T) {
	h := newHarness(t, singlePack, []string{"ann", "bob"})
	h.toChoice()
	h.apply(Choice{Origin: by("ann", "CHOICE"), Theme: 0, Index: 0})
	h.stepTo(taskWaitTry)
	h.apply(Press{Origin: by("ann", "I")})
	h.apply(Answer{Origin: by("ann", "ANSWER"), Text: "Nile"})

	h.stepTo(taskWaitReport)
	assert.Equal(t, game.StageAfter, h.state().Stage)
	assert.Equal(t, game.DecisionReporting, h.state().Decision)

	h.apply(Review{Origin: by("ann", "REPORT"), Text: "fun"})
	assert.False(t, h.o.Finished())
	h.apply(Review{Origin: by("bob", "REPORT"), Text: "too short"})

	require.True(t, h.o.Finished())
	require.Len(t, h.reports.saved, 1)
	rep := h.reports.saved[0]
	assert.Equal(t, []string{"ann"}, rep.Winners)
	assert.Len(t, rep.Reviews, 2)
	assert.Equal(t, "single", rep.PackageName)
	assert.True(t, h.pub.has(notification.EventGameEnd))

	err := h.o.Apply(context.Background(), Press{Origin: by("ann", "I")})
	assert.ErrorIs(t, err, game.ErrSessionFinished)
}

func TestOrchestrator_EngineFailureEndsGame(t *testing.T) {
	ctrl := gomock.NewController(t)
	eng := mocks.NewMockEngine(ctrl)
	eng.EXPECT().Package().Return(rules.Package{Name: "broken"}).AnyTimes()
	eng.EXPECT().Next(gomock.Any()).Return(rules.Directive{}, errors.New("corrupt package"))

	h := newHarness(t, "", []string{"ann", "bob"}, withEngine(eng))
	h.readyAll()
	h.stepTo(taskWaitReport)

	assert.Equal(t, game.StageAfter, h.state().Stage)
	require.Len(t, h.faults.errs, 1)
	var cf *game.CollaboratorFailure
	require.ErrorAs(t, h.faults.errs[0], &cf)
	assert.Equal(t, "rules engine", cf.Collaborator)
}

func TestOrchestrator_InvariantViolationBlocksUntilMove(t *testing.T) {
	h := newHarness(t, riversPack, []string{"ann", "bob"})
	h.toChoice()

	h.state().Chooser = game.Pointer(7)
	h.apply(Info{Origin: by("ann", "INFO")})

	require.True(t, h.state().Blocked)
	assert.Equal(t, scheduler.Kind(""), h.pending())
	require.Len(t, h.faults.errs, 1)
	var iv *game.InvariantViolation
	require.ErrorAs(t, h.faults.errs[0], &iv)
	assert.NotEmpty(t, iv.History)
	assert.True(t, h.pub.has(notification.EventBlocked))

	err := h.o.Apply(context.Background(), Choice{Origin: by("ann", "CHOICE"), Theme: 0, Index: 0})
	assert.ErrorIs(t, err, game.ErrSessionBlocked)

	h.state().Chooser = game.NoPlayer
	h.apply(Move{Origin: by("host", "MOVE"), Kind: MoveNext})
	assert.False(t, h.state().Blocked)
	assert.Equal(t, taskMoveNext, h.pending())
}

func TestOrchestrator_ManagedTimersDriveTheGame(t *testing.T) {
	h := newHarness(t, riversPack, []string{"ann", "bob"}, managed())
	h.readyAll()

	h.clock.Advance(10 * time.Second)
	assert.Equal(t, taskWaitChoose, h.pending())

	h.clock.Advance(30 * time.Second)
	s := h.state()
	assert.Equal(t, "Rivers", s.ThemeName, "the choice timed out and a question was picked")
	assert.Equal(t, taskWaitTry, h.pending())
	assert.True(t, s.Question.ButtonsOpen)
}

func TestOrchestrator_CloseRejectsIntents(t *testing.T) {
	h := newHarness(t, riversPack, []string{"ann", "bob"})
	h.toChoice()
	ctx := context.Background()

	require.NoError(t, h.o.Close(ctx))

	assert.ErrorIs(t, h.o.Apply(ctx, Info{Origin: by("ann", "INFO")}), game.ErrSessionFinished)
	_, err := h.o.Step(ctx)
	assert.ErrorIs(t, err, game.ErrSessionFinished)
}

func TestOrchestrator_LockStarvationFailsTheAttempt(t *testing.T) {
	h := newHarness(t, riversPack, []string{"ann", "bob"}, func(d *Deps) { d.LockTimeout = 20 * time.Millisecond })
	ctx := context.Background()

	require.NoError(t, h.o.lock(ctx))
	err := h.o.Apply(ctx, Info{Origin: by("ann", "INFO")})
	assert.ErrorIs(t, err, game.ErrLockTimeout)
	h.o.unlock()

	h.faults.mu.Lock()
	require.Len(t, h.faults.errs, 1)
	assert.ErrorIs(t, h.faults.errs[0], game.ErrLockTimeout)
	h.faults.mu.Unlock()

	h.apply(Info{Origin: by("ann", "INFO")})
}
