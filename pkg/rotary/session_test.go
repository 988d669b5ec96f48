package rotary

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Timing of the simulated dial, generous relative to the calibrated
// thresholds so scheduler jitter cannot turn a clean pulse into bounce.
const (
	pulseLow    = 15 * time.Millisecond
	pulseHigh   = 25 * time.Millisecond
	pulsePeriod = pulseLow + pulseHigh
	pulseLead   = 100 * time.Millisecond
	pulseTail   = 20 * time.Millisecond
	restGap     = 150 * time.Millisecond
)

// dialScript simulates a rotary dial producing one rotation per digit.
type dialScript struct {
	start  time.Time
	digits []int
}

func newDialScript(digits ...int) *dialScript {
	return &dialScript{start: time.Now(), digits: digits}
}

func rotationLength(impulses int) time.Duration {
	return pulseLead + time.Duration(impulses)*pulsePeriod + pulseTail
}

// at locates elapsed time inside the script. It returns the impulses of the
// current rotation and the offset into it, or ok=false while the disc rests.
func (d *dialScript) at() (impulses int, offset time.Duration, ok bool) {
	t := time.Since(d.start)
	for _, n := range d.digits {
		length := rotationLength(n)
		if t < length {
			return n, t, true
		}
		t -= length
		if t < restGap {
			return 0, 0, false
		}
		t -= restGap
	}
	return 0, 0, false
}

func (d *dialScript) total() time.Duration {
	var sum time.Duration
	for _, n := range d.digits {
		sum += rotationLength(n) + restGap
	}
	return sum
}

func (d *dialScript) rotation() Line {
	return LineFunc(func() gpio.Level {
		if _, _, ok := d.at(); ok {
			return gpio.Low
		}
		return gpio.High
	})
}

func (d *dialScript) impulse() Line {
	return LineFunc(func() gpio.Level {
		n, off, ok := d.at()
		if !ok || off < pulseLead {
			return gpio.High
		}
		off -= pulseLead
		if int(off/pulsePeriod) >= n {
			return gpio.High
		}
		if off%pulsePeriod < pulseLow {
			return gpio.Low
		}
		return gpio.High
	})
}

type digitRecorder struct {
	mu   sync.Mutex
	seqs []string
}

func (r *digitRecorder) record(seq string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seqs = append(r.seqs, seq)
}

func (r *digitRecorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seqs...)
}

func TestSession_DecodesDigits(t *testing.T) {
	for _, n := range []int{0, 1, 3, 10} {
		t.Run(fmt.Sprintf("%d impulses", n), func(t *testing.T) {
			script := newDialScript(n)
			dec := NewDecoder(Config{Rotation: script.rotation(), Impulse: script.impulse()})

			var rec digitRecorder
			sess := dec.Start(rec.record)
			time.Sleep(script.total() + 100*time.Millisecond)
			sess.Cancel()
			sess.Wait()

			want := []string{fmt.Sprint(n % 10)}
			got := rec.get()
			if len(got) != 1 || got[0] != want[0] {
				t.Fatalf("sequences = %v, want %v", got, want)
			}
		})
	}
}

func TestSession_AccumulatesSequence(t *testing.T) {
	script := newDialScript(3, 1)
	dec := NewDecoder(Config{Rotation: script.rotation(), Impulse: script.impulse()})

	var rec digitRecorder
	sess := dec.Start(rec.record)
	time.Sleep(script.total() + 100*time.Millisecond)
	sess.Cancel()
	sess.Wait()

	got := rec.get()
	if len(got) != 2 || got[0] != "3" || got[1] != "31" {
		t.Fatalf("sequences = %v, want [3 31]", got)
	}
}

func TestSession_CancelMidCount(t *testing.T) {
	script := newDialScript(5)
	dec := NewDecoder(Config{Rotation: script.rotation(), Impulse: script.impulse()})

	var rec digitRecorder
	sess := dec.Start(rec.record)

	// Cancel while the disc is returning, between the second and third pulse.
	time.Sleep(pulseLead + 2*pulsePeriod + pulseLow/2)
	sess.Cancel()

	waitStopped(t, sess)

	// Let the script finish: nothing may be emitted afterwards.
	time.Sleep(script.total())
	if got := rec.get(); len(got) != 0 {
		t.Fatalf("cancelled session emitted %v", got)
	}
}

func TestSession_CancelIdle(t *testing.T) {
	dec := NewDecoder(Config{
		Rotation: LineFunc(func() gpio.Level { return gpio.High }),
		Impulse:  LineFunc(func() gpio.Level { return gpio.High }),
	})
	var rec digitRecorder
	sess := dec.Start(rec.record)
	sess.Cancel()
	sess.Cancel()

	waitStopped(t, sess)
	if got := rec.get(); len(got) != 0 {
		t.Fatalf("idle session emitted %v", got)
	}
}

// waitStopped fails the test unless the session's loops exit promptly.
func waitStopped(t *testing.T, sess *Session) {
	t.Helper()
	stopped := make(chan struct{})
	go func() {
		sess.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("session did not stop after Cancel")
	}
}

func TestSleepUntil_Resyncs(t *testing.T) {
	past := time.Now().Add(-time.Second)
	next := sleepUntil(past)
	if next.Before(time.Now().Add(-100 * time.Millisecond)) {
		t.Fatalf("sleepUntil kept a stale deadline: %v", next)
	}

	deadline := time.Now().Add(5 * time.Millisecond)
	if got := sleepUntil(deadline); !got.Equal(deadline) {
		t.Fatalf("sleepUntil = %v, want %v", got, deadline)
	}
	if time.Now().Before(deadline) {
		t.Fatal("sleepUntil returned early")
	}
}
