package rotary

import "periph.io/x/conn/v3/gpio"

type transition int

const (
	noTransition transition = iota
	rotationStarted
	rotationEnded
)

// rotationDetector debounces the rotation contact. It reports a start once
// the line has been low for more than debounce samples and an end once it has
// been high for more than debounce samples, each only once per rotation.
type rotationDetector struct {
	debounce int
	low      int
	high     int
	running  bool
}

func (r *rotationDetector) sample(l gpio.Level) transition {
	if l == gpio.Low {
		r.high = 0
		if r.low > r.debounce {
			if !r.running {
				r.running = true
				return rotationStarted
			}
		} else {
			r.low++
		}
		return noTransition
	}

	r.low = 0
	if r.high > r.debounce {
		if r.running {
			r.running = false
			return rotationEnded
		}
	} else {
		r.high++
	}
	return noTransition
}

// pulseCounter counts impulses on the impulse contact. A low run longer than
// lowTicks followed by a high run longer than highTicks is one impulse. Short
// excursions in either direction are contact bounce and never count.
type pulseCounter struct {
	lowTicks  int
	highTicks int

	low      int
	high     int
	impulses int
}

// sample feeds one reading and reports whether it confirmed an impulse.
func (p *pulseCounter) sample(l gpio.Level) bool {
	if l == gpio.Low {
		p.low++
		if p.low > p.lowTicks {
			p.high = 0
		}
		return false
	}

	p.high++
	if p.high <= p.highTicks {
		return false
	}
	counted := p.low > p.lowTicks
	if counted {
		p.impulses++
	}
	// Wait for the next falling edge.
	p.low = 0
	return counted
}
