package scheduler

import (
	"fmt"
	"time"
)

// Op is one recorded scheduling operation.
type Op struct {
	At     time.Time `json:"at"`
	Op     string    `json:"op"`
	Task   Task      `json:"task"`
	Detail string    `json:"detail,omitempty"`
}

func (o Op) String() string {
	ts := o.At.Format("15:04:05.0")
	if o.Task.Kind == "" {
		return fmt.Sprintf("%s %s %s", ts, o.Op, o.Detail)
	}
	if o.Detail == "" {
		return fmt.Sprintf("%s %s %s", ts, o.Op, o.Task)
	}
	return fmt.Sprintf("%s %s %s %s", ts, o.Op, o.Task, o.Detail)
}

// ring keeps the last n operations.
type ring struct {
	buf  []Op
	next int
	full bool
}

func newRing(n int) *ring {
	return &ring{buf: make([]Op, n)}
}

func (r *ring) push(op Op) {
	r.buf[r.next] = op
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
}

func (r *ring) items() []Op {
	if !r.full {
		return append([]Op(nil), r.buf[:r.next]...)
	}
	out := make([]Op, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	return append(out, r.buf[:r.next]...)
}
