package rotary

import (
	"strconv"
	"sync/atomic"
	"time"
)

// Session is one dialing attempt. It accumulates digits until cancelled.
type Session struct {
	cfg     Config
	onDigit func(sequence string)

	cancelled atomic.Bool
	done      chan struct{}

	// sequence is owned by the run goroutine.
	sequence string
}

// Cancel stops sampling. A digit whose rotation has not ended yet is
// discarded. Cancel does not wait; use Wait to join the sampling loops.
func (s *Session) Cancel() {
	s.cancelled.Store(true)
}

// Wait blocks until both sampling loops have exited.
func (s *Session) Wait() {
	<-s.done
}

// run is the outer loop sampling the rotation contact.
func (s *Session) run() {
	defer close(s.done)

	det := rotationDetector{debounce: s.cfg.RotationDebounce}
	var counter *counterRun
	defer func() {
		if counter != nil {
			counter.finish()
		}
	}()

	next := time.Now()
	for !s.cancelled.Load() {
		switch det.sample(s.cfg.Rotation.Read()) {
		case rotationStarted:
			counter = s.startCounter()
		case rotationEnded:
			if counter == nil {
				break
			}
			impulses := counter.finish()
			counter = nil
			if s.cancelled.Load() {
				return
			}
			s.emit(impulses % 10)
		}
		next = sleepUntil(next.Add(s.cfg.OuterTick))
	}
}

func (s *Session) emit(digit int) {
	s.sequence += strconv.Itoa(digit)
	seq := s.sequence

	s.cfg.Logger.Debug("rotary: digit complete", "digit", digit, "sequence", seq)
	if s.onDigit != nil {
		s.onDigit(seq)
	}
}

// counterRun is the inner impulse counting loop for one digit.
type counterRun struct {
	running atomic.Bool
	result  chan int
}

func (s *Session) startCounter() *counterRun {
	run := &counterRun{result: make(chan int, 1)}
	run.running.Store(true)

	go func() {
		pc := pulseCounter{
			lowTicks:  s.cfg.LowPulseTicks,
			highTicks: s.cfg.HighPulseTicks,
		}
		defer func() { run.result <- pc.impulses }()

		next := time.Now()
		for run.running.Load() && !s.cancelled.Load() {
			pc.sample(s.cfg.Impulse.Read())
			next = sleepUntil(next.Add(s.cfg.InnerTick))
		}
	}()
	return run
}

// finish stops the loop and returns the impulse count once the loop has
// completed its current tick.
func (r *counterRun) finish() int {
	r.running.Store(false)
	return <-r.result
}
