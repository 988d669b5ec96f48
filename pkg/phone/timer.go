package phone

import "time"

type timerKind int

const (
	dialTimer timerKind = iota
	callTimer
)

func (k timerKind) String() string {
	if k == callTimer {
		return "call duration"
	}
	return "dial"
}

// timer is a single-shot deadline whose firing is delivered through the
// event queue. Every arm or stop bumps the generation, so a firing that was
// already queued when the timer was cancelled is recognised as stale.
type timer struct {
	kind timerKind
	gen  uint64
	t    *time.Timer
}

func (tm *timer) arm(d time.Duration, post func(event) bool) {
	tm.stop()
	gen := tm.gen
	kind := tm.kind
	tm.t = time.AfterFunc(d, func() {
		post(timerEvent{kind: kind, gen: gen})
	})
}

func (tm *timer) stop() {
	if tm.t != nil {
		tm.t.Stop()
		tm.t = nil
	}
	tm.gen++
}

// armed reports whether the timer is pending.
func (tm *timer) armed() bool {
	return tm.t != nil
}

// fire consumes a firing. It reports false for stale generations.
func (tm *timer) fire(gen uint64) bool {
	if tm.t == nil || gen != tm.gen {
		return false
	}
	tm.t = nil
	return true
}
