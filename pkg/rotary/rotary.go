// Package rotary decodes digits dialed on a rotary dial.
//
// A rotary dial exposes two contacts. The rotation contact (NSA) is pulled
// low while the finger disc is off its resting position; the impulse contact
// (NSI) toggles once per pulse while the disc returns. A [Decoder] samples both
// lines in two nested loops: the outer loop debounces the rotation contact and
// the inner loop, running on its own goroutine at a finer tick, counts
// debounced impulses. When the disc comes to rest the digit is impulses mod 10,
// so ten impulses encode 0.
//
// Usage:
//
//	dec := rotary.NewDecoder(rotary.Config{Rotation: nsa, Impulse: nsi})
//	sess := dec.Start(func(sequence string) {
//	    fmt.Println("dialed so far:", sequence)
//	})
//	defer sess.Cancel()
package rotary

import (
	"log/slog"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Line is a digital input sampled by the decoder. periph's gpio.PinIn
// satisfies it.
type Line interface {
	Read() gpio.Level
}

// LineFunc adapts a function to a Line.
type LineFunc func() gpio.Level

// Read implements Line.
func (f LineFunc) Read() gpio.Level { return f() }

// Calibrated sampling constants. The tick counts are tuned for the tick
// intervals below and are not derived from them.
const (
	DefaultOuterTick        = 5 * time.Millisecond
	DefaultInnerTick        = 1 * time.Millisecond
	DefaultRotationDebounce = 10
	DefaultLowPulseTicks    = 4
	DefaultHighPulseTicks   = 8
)

// Config configures a Decoder.
type Config struct {
	// Rotation is the NSA contact, low while the disc is rotated.
	Rotation Line

	// Impulse is the NSI contact, toggling once per pulse.
	Impulse Line

	// OuterTick is the sampling interval of the rotation line.
	OuterTick time.Duration

	// InnerTick is the sampling interval of the impulse line.
	InnerTick time.Duration

	// RotationDebounce is the number of consecutive outer ticks the rotation
	// line must hold a level, exclusive, before a transition is accepted.
	RotationDebounce int

	// LowPulseTicks and HighPulseTicks are the run lengths (in inner ticks)
	// a low and the following high run must exceed to count as one impulse.
	LowPulseTicks  int
	HighPulseTicks int

	Logger *slog.Logger
}

func (c *Config) setDefaults() {
	if c.OuterTick <= 0 {
		c.OuterTick = DefaultOuterTick
	}
	if c.InnerTick <= 0 {
		c.InnerTick = DefaultInnerTick
	}
	if c.RotationDebounce <= 0 {
		c.RotationDebounce = DefaultRotationDebounce
	}
	if c.LowPulseTicks <= 0 {
		c.LowPulseTicks = DefaultLowPulseTicks
	}
	if c.HighPulseTicks <= 0 {
		c.HighPulseTicks = DefaultHighPulseTicks
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Decoder creates dial sessions over a pair of lines.
type Decoder struct {
	cfg Config
}

// NewDecoder creates a Decoder. Zero-valued timing fields take the
// calibrated defaults.
func NewDecoder(cfg Config) *Decoder {
	cfg.setDefaults()
	return &Decoder{cfg: cfg}
}

// Start begins a dial session. onDigit is called from the session's sampling
// goroutine after every completed digit with the full sequence dialed so far;
// it must not block for long.
func (d *Decoder) Start(onDigit func(sequence string)) *Session {
	s := &Session{
		cfg:     d.cfg,
		onDigit: onDigit,
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// sleepUntil waits for the deadline and returns the base for the next one.
// A loop that fell behind resynchronises to now instead of bursting to catch
// up.
func sleepUntil(deadline time.Time) time.Time {
	now := time.Now()
	if d := deadline.Sub(now); d > 0 {
		time.Sleep(d)
		return deadline
	}
	return now
}
