// Package gpio connects the phone's switches to Raspberry Pi GPIO pins
// through periph.io.
//
// Three inputs are used, all pulled up and switched to ground:
//
//   - hook: high while the handset rests on the hook
//   - nsa: low while the dial is turned away from its rest position
//   - nsi: pulses once per impulse while the dial returns
package gpio

import (
	"context"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// DefaultDebounce is the settle time of the hook switch.
const DefaultDebounce = 100 * time.Millisecond

// pollInterval bounds how long WatchEdges waits for an edge before it checks
// for cancellation.
const pollInterval = 200 * time.Millisecond

// Pins holds BCM pin numbers.
type Pins struct {
	Hook int `json:"hook" yaml:"hook"`
	NSA  int `json:"nsa" yaml:"nsa"`
	NSI  int `json:"nsi" yaml:"nsi"`
}

// DefaultPins is the wiring of the reference build.
var DefaultPins = Pins{Hook: 15, NSA: 24, NSI: 23}

// Board holds the configured input pins.
type Board struct {
	hook gpio.PinIO
	nsa  gpio.PinIO
	nsi  gpio.PinIO
}

// Open initializes the host drivers and configures the input pins.
func Open(pins Pins) (*Board, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("gpio: init host: %w", err)
	}
	hook, err := input(pins.Hook, gpio.BothEdges)
	if err != nil {
		return nil, err
	}
	nsa, err := input(pins.NSA, gpio.NoEdge)
	if err != nil {
		return nil, err
	}
	nsi, err := input(pins.NSI, gpio.NoEdge)
	if err != nil {
		return nil, err
	}
	return NewBoard(hook, nsa, nsi), nil
}

func input(num int, edge gpio.Edge) (gpio.PinIO, error) {
	name := fmt.Sprintf("GPIO%d", num)
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio: no pin %s", name)
	}
	if err := p.In(gpio.PullUp, edge); err != nil {
		return nil, fmt.Errorf("gpio: configure %s: %w", name, err)
	}
	return p, nil
}

// NewBoard wraps already configured pins.
func NewBoard(hook, nsa, nsi gpio.PinIO) *Board {
	return &Board{hook: hook, nsa: nsa, nsi: nsi}
}

// Hook returns the hook switch pin.
func (b *Board) Hook() gpio.PinIO { return b.hook }

// Rotation returns the dial-off-normal (nsa) pin.
func (b *Board) Rotation() gpio.PinIO { return b.nsa }

// Impulse returns the impulse (nsi) pin.
func (b *Board) Impulse() gpio.PinIO { return b.nsi }

// OnHook reports whether the handset rests on the hook.
func (b *Board) OnHook() bool {
	return b.hook.Read() == gpio.High
}

// WatchHook calls fn with true when the handset is put down and false when
// it is lifted, until ctx is done.
func (b *Board) WatchHook(ctx context.Context, debounce time.Duration, fn func(onHook bool)) error {
	return WatchEdges(ctx, b.hook, debounce, func(l gpio.Level) {
		fn(l == gpio.High)
	})
}

// WatchEdges calls fn with the settled level of pin after each change until
// ctx is done. The pin must be configured for edge detection. After an edge
// the level is read once no further edge arrived for debounce; fn is called
// only when the settled level differs from the last one reported, starting
// from the level at the time of the call.
func WatchEdges(ctx context.Context, pin gpio.PinIn, debounce time.Duration, fn func(gpio.Level)) error {
	last := pin.Read()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !pin.WaitForEdge(pollInterval) {
			continue
		}
		settle(ctx, pin, debounce)
		if err := ctx.Err(); err != nil {
			return err
		}
		if l := pin.Read(); l != last {
			last = l
			fn(l)
		}
	}
}

// settle consumes edges until the pin has been quiet for d.
func settle(ctx context.Context, pin gpio.PinIn, d time.Duration) {
	if d <= 0 {
		return
	}
	for ctx.Err() == nil && pin.WaitForEdge(d) {
	}
}
