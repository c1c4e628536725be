package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/quiz-hub/quiz-hub/internal/domain/game"
	"github.com/quiz-hub/quiz-hub/internal/domain/notification"
	"github.com/quiz-hub/quiz-hub/internal/domain/report"
	"github.com/quiz-hub/quiz-hub/internal/domain/rules"
	"github.com/quiz-hub/quiz-hub/internal/scheduler"
)

const (
	defaultLockTimeout = 5 * time.Second
	lockRetryDelay     = 100 * time.Millisecond
)

// IncidentSink receives non-fatal faults. Report must not block.
type IncidentSink interface {
	Report(session uuid.UUID, err error, detail string, history []string)
}

// ReportSink stores the final report of a game. Save must not block.
type ReportSink interface {
	Save(r *report.Report)
}

// Deps are the collaborators of one orchestrator.
type Deps struct {
	Engine      rules.Engine
	Publisher   notification.Publisher
	Incidents   IncidentSink
	Reports     ReportSink
	Clock       scheduler.Clock
	Random      func(n int) int
	LockTimeout time.Duration
	Managed     bool
	Logger      zerolog.Logger
}

// Orchestrator drives one session. Every entry point takes the session lock;
// scheduler callbacks run under it too.
type Orchestrator struct {
	state  *game.State
	engine rules.Engine
	sched  *scheduler.Scheduler
	clock  scheduler.Clock
	pub    notification.Publisher
	sink   IncidentSink
	saver  ReportSink
	random func(n int) int
	logger zerolog.Logger

	sem         *semaphore.Weighted
	lockTimeout time.Duration

	stopReason          game.StopReason
	decisionDuringPause bool
	pendingMove         MoveKind

	question    *rules.Question
	in          input
	validating  string
	appeal      appealRequest
	pauseFroze  bool
	appealFroze bool

	lastActivity atomic.Int64
	finished     atomic.Bool
	closed       bool
}

// New creates an orchestrator over state. The game does not start until a
// Start intent or every seat is ready.
func New(state *game.State, deps Deps) *Orchestrator {
	if deps.Clock == nil {
		deps.Clock = scheduler.RealClock()
	}
	if deps.Random == nil {
		deps.Random = rand.Intn
	}
	if deps.LockTimeout <= 0 {
		deps.LockTimeout = defaultLockTimeout
	}
	if deps.Publisher == nil {
		deps.Publisher = notification.Publishers{}
	}
	o := &Orchestrator{
		state:       state,
		engine:      deps.Engine,
		clock:       deps.Clock,
		pub:         deps.Publisher,
		sink:        deps.Incidents,
		saver:       deps.Reports,
		random:      deps.Random,
		sem:         semaphore.NewWeighted(1),
		lockTimeout: deps.LockTimeout,
		stopReason:  game.StopNone,
		in:          input{player: -1, theme: -1, index: -1},
		logger: deps.Logger.With().
			Str("service", "orchestrator").
			Str("session", state.ID.String()).
			Logger(),
	}
	o.sched = scheduler.New(deps.Clock, scheduler.Options{
		Managed:         deps.Managed,
		StallThreshold:  state.Policy.StallThreshold,
		HistorySize:     state.Policy.HistorySize,
		PausedStackSize: state.Policy.PausedStackSize,
	}, o.wake)
	o.sched.SetHandler(o.executeTask)
	o.sched.OnStall(o.onStall)
	o.touch()
	return o
}

// ID returns the session id.
func (o *Orchestrator) ID() uuid.UUID { return o.state.ID }

// Finished reports a game that reached its end.
func (o *Orchestrator) Finished() bool { return o.finished.Load() }

// LastActivity is the time of the last accepted intent or fired task.
func (o *Orchestrator) LastActivity() time.Time {
	return time.Unix(0, o.lastActivity.Load())
}

// Apply validates and applies one intent. A rejected intent returns a
// *game.ProtocolViolation and leaves the state untouched.
func (o *Orchestrator) Apply(ctx context.Context, in Intent) (err error) {
	if err := o.lock(ctx); err != nil {
		return err
	}
	defer o.unlock()

	if o.closed {
		return game.ErrSessionFinished
	}
	defer o.guard(fmt.Sprintf("%s from %q", in.origin().Verb, in.Sender()), &err)

	if err = o.admit(in); err != nil {
		return err
	}
	if err = o.apply(in); err != nil {
		return err
	}
	o.touch()
	o.sched.Progress()
	o.afterStep()
	return nil
}

// Step fires the pending task when the session is not managed.
func (o *Orchestrator) Step(ctx context.Context) (fired bool, err error) {
	if err := o.lock(ctx); err != nil {
		return false, err
	}
	defer o.unlock()
	if o.closed {
		return false, game.ErrSessionFinished
	}
	defer o.guard("step", &err)
	fired = o.sched.Step()
	o.touch()
	o.afterStep()
	return fired, nil
}

// Close cancels every scheduled task. The orchestrator rejects further
// intents.
func (o *Orchestrator) Close(ctx context.Context) error {
	if err := o.lock(ctx); err != nil {
		return err
	}
	defer o.unlock()
	o.sched.Cancel()
	o.sched.DropPaused()
	o.closed = true
	return nil
}

// Start kicks off a game that was created with all seats prefilled.
func (o *Orchestrator) Start(ctx context.Context) error {
	if err := o.lock(ctx); err != nil {
		return err
	}
	defer o.unlock()
	if o.state.Stage != game.StageBefore {
		return game.ErrGameStarted
	}
	o.startGame()
	return nil
}

// Stop requests preemption of the pending task. It returns false when a
// stop is already pending. Callers must hold the session lock.
func (o *Orchestrator) Stop(reason game.StopReason) bool {
	if !o.requestStop(reason) {
		return false
	}
	if !o.sched.ExecuteImmediate() {
		o.executeTask(scheduler.Task{Kind: taskIdle}, 0)
	}
	return true
}

func (o *Orchestrator) requestStop(reason game.StopReason) bool {
	if o.stopReason != game.StopNone {
		o.sched.Trace("stop-dropped", string(reason))
		return false
	}
	o.stopReason = reason
	o.sched.Trace("stop", string(reason))
	return true
}

func (o *Orchestrator) lock(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, o.lockTimeout)
	defer cancel()
	if err := o.sem.Acquire(ctx, 1); err != nil {
		o.logger.Warn().Err(err).Dur("timeout", o.lockTimeout).Msg("session lock starvation")
		// the holder owns the scheduler, so no history here
		if o.sink != nil {
			o.sink.Report(o.state.ID, game.ErrLockTimeout, "lock acquire", nil)
		}
		return game.ErrLockTimeout
	}
	return nil
}

func (o *Orchestrator) unlock() {
	o.sem.Release(1)
}

// wake runs on a timer goroutine when an entry's deadline passes.
func (o *Orchestrator) wake(id uint64) {
	if err := o.lock(context.Background()); err != nil {
		o.clock.AfterFunc(lockRetryDelay, func() { o.wake(id) })
		return
	}
	defer o.unlock()
	if o.closed {
		return
	}
	var err error
	func() {
		defer o.guard("timer", &err)
		if o.sched.Fire(id) {
			o.touch()
			o.afterStep()
		}
	}()
}

// guard converts a panic into a reported error.
func (o *Orchestrator) guard(detail string, err *error) {
	r := recover()
	if r == nil {
		return
	}
	perr := fmt.Errorf("panic: %v", r)
	o.logger.Error().Err(perr).Str("detail", detail).Msg("recovered panic")
	o.report(perr, detail)
	o.stopReason = game.StopNone
	if err != nil {
		*err = perr
	}
}

// afterStep asserts the state invariants. A violation blocks the session.
func (o *Orchestrator) afterStep() {
	if o.state.Blocked {
		return
	}
	if err := o.state.CheckInvariants(); err != nil {
		o.block(err)
	}
}

func (o *Orchestrator) block(err error) {
	var iv *game.InvariantViolation
	if errors.As(err, &iv) {
		iv.History = o.sched.HistoryLines()
	}
	o.state.Blocked = true
	o.sched.Cancel()
	o.logger.Error().Err(err).Msg("session blocked")
	o.report(err, "")
	o.notify(notification.EventBlocked, map[string]string{"reason": err.Error()})
}

func (o *Orchestrator) report(err error, detail string) {
	if o.sink == nil {
		return
	}
	o.sink.Report(o.state.ID, err, detail, o.sched.HistoryLines())
}

func (o *Orchestrator) onStall(kind scheduler.Kind, count int) {
	err := &game.SchedulingStall{Kind: string(kind), Count: count}
	o.logger.Warn().Err(err).Msg("scheduling stall")
	o.report(err, string(kind))
	o.stopReason = game.StopNone
	if kind == taskMoveNext {
		o.schedule(taskEndGame, 0, 1)
		return
	}
	o.schedule(taskMoveNext, 0, o.state.Policy.RandomFallbackDelay)
}

func (o *Orchestrator) touch() {
	o.lastActivity.Store(o.clock.Now().UnixNano())
}

func (o *Orchestrator) now() time.Time { return o.clock.Now() }

func (o *Orchestrator) schedule(kind scheduler.Kind, arg, delay int) {
	o.sched.Schedule(scheduler.Task{Kind: kind, Arg: arg}, scheduler.Deciseconds(delay), false)
}

func (o *Orchestrator) pick(n int) int {
	if n <= 1 {
		return 0
	}
	return o.random(n)
}

func (o *Orchestrator) rulesContext() rules.Context {
	return rules.Context{
		Round:   o.state.RoundIndex,
		Players: len(o.state.Seated()),
		Scores:  o.state.Scores(),
	}
}
