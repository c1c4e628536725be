package scheduler

import (
	"fmt"
	"time"
)

// Deciseconds is the scheduling unit.
type Deciseconds int

// Duration converts d to a time.Duration.
func (d Deciseconds) Duration() time.Duration {
	return time.Duration(d) * 100 * time.Millisecond
}

// FromDuration rounds d down to whole deciseconds.
func FromDuration(d time.Duration) Deciseconds {
	if d <= 0 {
		return 0
	}
	return Deciseconds(d / (100 * time.Millisecond))
}

// Kind names a unit of delayed work. The scheduler attaches no meaning to it.
type Kind string

// Task is a kind plus one integer argument.
type Task struct {
	Kind Kind `json:"kind"`
	Arg  int  `json:"arg"`
}

func (t Task) String() string {
	return fmt.Sprintf("%s(%d)", t.Kind, t.Arg)
}

// Stopper cancels an armed timer.
type Stopper interface {
	Stop() bool
}

// Clock abstracts wall time so tests can drive the scheduler by hand.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Stopper
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Stopper { return time.AfterFunc(d, f) }

// RealClock is backed by the time package.
func RealClock() Clock { return realClock{} }

// EntryState is the lifecycle state of a scheduled entry.
type EntryState string

const (
	EntryPending EntryState = "PENDING"
	EntryHeld    EntryState = "HELD"
	EntryFiring  EntryState = "FIRING"
	EntryPaused  EntryState = "PAUSED"
)

// Entry is one (operation, virtual deadline) pair.
type Entry struct {
	ID        uint64        `json:"id"`
	Task      Task          `json:"task"`
	Delay     Deciseconds   `json:"delay"`
	ArmedAt   time.Time     `json:"armedAt"`
	Deadline  time.Time     `json:"deadline"`
	Remaining time.Duration `json:"remaining"`
	State     EntryState    `json:"state"`
	PausedAt  time.Time     `json:"pausedAt,omitempty"`
	Real      bool          `json:"real"`

	timer Stopper
}

// Handler runs a task body. remaining is the delay that was still left when
// the task fired; it is zero for a natural timeout.
type Handler func(task Task, remaining time.Duration)

// StallFunc is told about a task kind that kept firing without progress.
type StallFunc func(kind Kind, count int)

// Options tune the scheduler.
type Options struct {
	Managed         bool
	StallThreshold  int
	HistorySize     int
	PausedStackSize int
}

// ResumeResult describes a task brought back from the paused stack.
type ResumeResult struct {
	Task      Task
	Remaining time.Duration
	PausedFor time.Duration
	Consumed  time.Duration
}

// Scheduler keeps at most one pending task and a bounded stack of paused
// ones. It is not safe for concurrent use: the owner serializes every call,
// including Fire calls triggered by wake.
type Scheduler struct {
	clock   Clock
	opts    Options
	wake    func(id uint64)
	handler Handler
	onStall StallFunc

	seq     uint64
	pending *Entry
	firing  *Entry
	paused  []*Entry
	history *ring

	lastKind Kind
	repeats  int
}

// New creates a scheduler. wake is called from a timer goroutine with the
// id of the entry whose deadline passed; the owner is expected to take its
// lock and call Fire with that id.
func New(clock Clock, opts Options, wake func(id uint64)) *Scheduler {
	if clock == nil {
		clock = RealClock()
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = 32
	}
	if opts.PausedStackSize <= 0 {
		opts.PausedStackSize = 3
	}
	return &Scheduler{
		clock:   clock,
		opts:    opts,
		wake:    wake,
		history: newRing(opts.HistorySize),
	}
}

// SetHandler installs the task body runner.
func (s *Scheduler) SetHandler(h Handler) { s.handler = h }

// OnStall installs the stall callback.
func (s *Scheduler) OnStall(f StallFunc) { s.onStall = f }

// Managed reports whether wall-clock timers are armed.
func (s *Scheduler) Managed() bool { return s.opts.Managed }

// SetManaged switches between wall-clock timers and single stepping.
func (s *Scheduler) SetManaged(on bool) {
	if s.opts.Managed == on {
		return
	}
	s.opts.Managed = on
	s.Trace("managed", fmt.Sprint(on))
	e := s.pending
	if e == nil || e.State != EntryPending {
		return
	}
	switch {
	case on && e.timer == nil:
		s.arm(e, e.Deadline.Sub(s.clock.Now()))
	case !on && e.timer != nil && !e.Real:
		e.timer.Stop()
		e.timer = nil
	}
}

// Schedule replaces any pending task with t after delay. With force a real
// timer is armed even in unmanaged mode.
func (s *Scheduler) Schedule(t Task, delay Deciseconds, force bool) {
	if delay < 0 {
		delay = 0
	}
	s.cancelPending()
	now := s.clock.Now()
	e := &Entry{
		ID:       s.nextID(),
		Task:     t,
		Delay:    delay,
		ArmedAt:  now,
		Deadline: now.Add(delay.Duration()),
		State:    EntryPending,
		Real:     force,
	}
	s.pending = e
	if s.opts.Managed || force {
		s.arm(e, delay.Duration())
	}
	s.record("schedule", t, fmt.Sprintf("%dds", delay))
}

// Park makes t pending without any deadline. It only runs through Step or
// ExecuteImmediate after a Resume replaced it.
func (s *Scheduler) Park(t Task) {
	s.cancelPending()
	s.pending = &Entry{ID: s.nextID(), Task: t, ArmedAt: s.clock.Now(), State: EntryHeld}
	s.record("park", t, "")
}

// Cancel drops the pending task.
func (s *Scheduler) Cancel() {
	if s.pending != nil {
		s.record("cancel", s.pending.Task, "")
	}
	s.cancelPending()
}

// Fire runs the pending task if id still names it. Stale ids are ignored.
func (s *Scheduler) Fire(id uint64) bool {
	e := s.pending
	if e == nil || e.ID != id || e.State != EntryPending {
		return false
	}
	s.run(e)
	return true
}

// ExecuteImmediate cancels the remaining delay of the pending task and runs
// it now. A held task is not run.
func (s *Scheduler) ExecuteImmediate() bool {
	e := s.pending
	if e == nil || e.State != EntryPending {
		return false
	}
	s.run(e)
	return true
}

// Step runs the pending task in unmanaged mode.
func (s *Scheduler) Step() bool {
	return s.ExecuteImmediate()
}

// Pause freezes the remaining delay of the pending task, or of the task
// currently firing, pushes it on the paused stack and parks hold in its
// place when hold has a kind.
func (s *Scheduler) Pause(hold Task) bool {
	now := s.clock.Now()
	var e *Entry
	switch {
	case s.pending != nil && s.pending.State == EntryPending:
		e = s.pending
		s.stopTimer(e)
		e.Remaining = clamp(e.Deadline.Sub(now))
		s.pending = nil
	case s.firing != nil:
		e = s.firing
	default:
		return false
	}
	e.State = EntryPaused
	e.PausedAt = now
	s.paused = append(s.paused, e)
	if len(s.paused) > s.opts.PausedStackSize {
		dropped := s.paused[0]
		s.paused = s.paused[1:]
		s.record("drop-paused", dropped.Task, "stack full")
	}
	s.record("pause", e.Task, e.Remaining.String())
	if hold.Kind != "" {
		s.Park(hold)
	}
	return true
}

// Resume pops the most recently paused task and re-arms it with its frozen
// remaining delay plus extra.
func (s *Scheduler) Resume(extra Deciseconds) (ResumeResult, bool) {
	if len(s.paused) == 0 {
		return ResumeResult{}, false
	}
	e := s.paused[len(s.paused)-1]
	s.paused = s.paused[:len(s.paused)-1]
	now := s.clock.Now()

	res := ResumeResult{
		Task:      e.Task,
		Remaining: e.Remaining + extra.Duration(),
		PausedFor: clamp(now.Sub(e.PausedAt)),
		Consumed:  clamp(e.Delay.Duration() - e.Remaining),
	}

	s.cancelPending()
	r := &Entry{
		ID:        s.nextID(),
		Task:      e.Task,
		Delay:     e.Delay + extra,
		ArmedAt:   now.Add(-res.Consumed),
		Deadline:  now.Add(res.Remaining),
		Remaining: res.Remaining,
		State:     EntryPending,
		Real:      e.Real,
	}
	s.pending = r
	if s.opts.Managed || r.Real {
		s.arm(r, res.Remaining)
	}
	s.record("resume", e.Task, res.Remaining.String())
	return res, true
}

// DropPaused discards every paused task.
func (s *Scheduler) DropPaused() {
	if len(s.paused) > 0 {
		s.Trace("drop-paused", fmt.Sprint(len(s.paused)))
	}
	s.paused = nil
}

// Progress tells the scheduler the game moved forward, resetting the stall
// counter.
func (s *Scheduler) Progress() {
	s.lastKind = ""
	s.repeats = 0
}

// Pending returns a copy of the pending entry.
func (s *Scheduler) Pending() (Entry, bool) {
	if s.pending == nil {
		return Entry{}, false
	}
	e := *s.pending
	e.timer = nil
	if e.State == EntryPending {
		e.Remaining = clamp(e.Deadline.Sub(s.clock.Now()))
	}
	return e, true
}

// Paused returns copies of the paused stack, bottom first.
func (s *Scheduler) Paused() []Entry {
	out := make([]Entry, len(s.paused))
	for i, e := range s.paused {
		out[i] = *e
		out[i].timer = nil
	}
	return out
}

// Firing reports the task whose body is running.
func (s *Scheduler) Firing() (Task, bool) {
	if s.firing == nil {
		return Task{}, false
	}
	return s.firing.Task, true
}

// History returns the recent operations, oldest first.
func (s *Scheduler) History() []Op { return s.history.items() }

// HistoryLines renders History for diagnostics.
func (s *Scheduler) HistoryLines() []string {
	ops := s.history.items()
	out := make([]string, len(ops))
	for i, op := range ops {
		out[i] = op.String()
	}
	return out
}

// Trace appends a free-form operation to the history.
func (s *Scheduler) Trace(op, detail string) {
	s.history.push(Op{At: s.clock.Now(), Op: op, Detail: detail})
}

// Now exposes the scheduler clock.
func (s *Scheduler) Now() time.Time { return s.clock.Now() }

func (s *Scheduler) run(e *Entry) {
	s.stopTimer(e)
	e.Remaining = clamp(e.Deadline.Sub(s.clock.Now()))
	e.State = EntryFiring
	s.pending = nil

	if e.Task.Kind == s.lastKind {
		s.repeats++
	} else {
		s.lastKind = e.Task.Kind
		s.repeats = 1
	}
	if s.opts.StallThreshold > 0 && s.repeats > s.opts.StallThreshold {
		count := s.repeats
		s.record("stall", e.Task, fmt.Sprintf("%d fires", count))
		s.paused = nil
		s.Progress()
		if s.onStall != nil {
			s.onStall(e.Task.Kind, count)
		}
		return
	}

	s.record("fire", e.Task, e.Remaining.String())
	prev := s.firing
	s.firing = e
	defer func() { s.firing = prev }()
	if s.handler != nil {
		s.handler(e.Task, e.Remaining)
	}
}

func (s *Scheduler) arm(e *Entry, d time.Duration) {
	id := e.ID
	e.timer = s.clock.AfterFunc(clamp(d), func() {
		if s.wake != nil {
			s.wake(id)
		}
	})
}

func (s *Scheduler) stopTimer(e *Entry) {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func (s *Scheduler) cancelPending() {
	if s.pending != nil {
		s.stopTimer(s.pending)
		s.pending = nil
	}
}

func (s *Scheduler) nextID() uint64 {
	s.seq++
	return s.seq
}

func (s *Scheduler) record(op string, t Task, detail string) {
	s.history.push(Op{At: s.clock.Now(), Op: op, Task: t, Detail: detail})
}

func clamp(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
