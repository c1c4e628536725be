package game

import "time"

// TimerKind names one of the per-purpose session timers.
type TimerKind int

const (
	TimerRound TimerKind = iota
	TimerThinking
	TimerMedia
	timerCount
)

func (k TimerKind) String() string {
	switch k {
	case TimerRound:
		return "ROUND"
	case TimerThinking:
		return "THINKING"
	case TimerMedia:
		return "MEDIA"
	}
	return "UNKNOWN"
}

// Timers lists every timer kind.
func Timers() []TimerKind {
	return []TimerKind{TimerRound, TimerThinking, TimerMedia}
}

// Timer tracks elapsed time of one purpose, excluding paused spans.
type Timer struct {
	Running bool          `json:"running"`
	Paused  bool          `json:"paused"`
	Started time.Time     `json:"started"`
	Elapsed time.Duration `json:"elapsed"`
	Max     time.Duration `json:"max"`
}

// Start (re)starts the timer at now.
func (t *Timer) Start(now time.Time, max time.Duration) {
	*t = Timer{Running: true, Started: now, Max: max}
}

// Stop halts the timer.
func (t *Timer) Stop() {
	t.Running = false
	t.Paused = false
}

// Pause freezes the elapsed time at now.
func (t *Timer) Pause(now time.Time) {
	if !t.Running || t.Paused {
		return
	}
	t.Elapsed = now.Sub(t.Started)
	t.Paused = true
}

// Resume shifts the start reference by the paused span.
func (t *Timer) Resume(pausedFor time.Duration) {
	if !t.Running || !t.Paused {
		return
	}
	t.Started = t.Started.Add(pausedFor)
	t.Paused = false
}

// ElapsedAt returns the effective elapsed time at now.
func (t *Timer) ElapsedAt(now time.Time) time.Duration {
	if t.Paused {
		return t.Elapsed
	}
	if !t.Running {
		return 0
	}
	return now.Sub(t.Started)
}

// Expired reports a running timer whose elapsed time reached Max.
func (t *Timer) Expired(now time.Time) bool {
	return t.Running && t.Max > 0 && t.ElapsedAt(now) >= t.Max
}
