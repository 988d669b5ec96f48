// Package phone is the call controller of a rotary telephone.
//
// An [Orchestrator] owns the hook, dial, call and connectivity state. Every
// source of change (the hook switch, the rotary decoder, the SIP bridge,
// timers, the connectivity watchdog and external toggles) posts an event to a
// single FIFO queue; [Orchestrator.Run] applies them one at a time, so state
// transitions have a total order and no state is shared between goroutines.
//
// The orchestrator drives its collaborators through small interfaces:
// [Audio] for tones, [Bridge] for the SIP client, [Dialer] for dial
// sessions, [Prober] for reachability and [Power] for reboot and power-off.
package phone

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/haivivi/rotaryphone/pkg/calllog"
	"github.com/haivivi/rotaryphone/pkg/linphone"
	"github.com/haivivi/rotaryphone/pkg/rotary"
)

var (
	// ErrRebooting is returned by Run after a reboot was requested.
	ErrRebooting = errors.New("phone: rebooting")

	// ErrPoweringOff is returned by Run after a power-off was requested.
	ErrPoweringOff = errors.New("phone: powering off")
)

// Defaults for zero-valued Config fields.
const (
	DefaultMaxDialLength        = 5
	DefaultDialTimeout          = 60 * time.Second
	DefaultProbeTimeout         = 1 * time.Second
	DefaultConnectedInterval    = 60 * time.Second
	DefaultDisconnectedInterval = 1 * time.Second
	DefaultTestPause            = 1 * time.Second
	DefaultShutdownSoundTimeout = 10 * time.Second
)

// Audio plays tones on the loudspeaker and the earpiece. Starting a sound on
// a channel replaces whatever that channel was playing. Stopping an idle
// channel is a no-op.
type Audio interface {
	PlaySpeaker(sound string, repeat bool)
	PlayEarpiece(sound string, repeat bool)

	// PlaySpeakerWait and PlayEarpieceWait block until the sound has played
	// to the end or ctx is done.
	PlaySpeakerWait(ctx context.Context, sound string) error
	PlayEarpieceWait(ctx context.Context, sound string) error

	StopSpeaker()
	StopEarpiece()
}

// Bridge is a running SIP signaling client.
type Bridge interface {
	Call(number string) error
	Hangup() error
	Answer() error

	// Alive reports whether the client process runs. It never blocks.
	Alive() bool

	// Kill terminates the client. Repeated calls are no-ops.
	Kill()

	// Transcript returns the most recent output lines, oldest first, and
	// LastSeen the time of the last one. Both are safe to call from any
	// goroutine.
	Transcript() []string
	LastSeen() time.Time
}

// BridgeFactory starts a bridge whose events are delivered to onEvent.
type BridgeFactory func(ctx context.Context, onEvent func(linphone.Event)) (Bridge, error)

// LinphoneBridges returns a BridgeFactory spawning linphonec with cfg. The
// Handler field of cfg is replaced.
func LinphoneBridges(cfg linphone.Config) BridgeFactory {
	return func(ctx context.Context, onEvent func(linphone.Event)) (Bridge, error) {
		c := cfg
		c.Handler = onEvent
		return linphone.Start(ctx, c)
	}
}

// DialSession is an open dialing attempt.
type DialSession interface {
	Cancel()
}

// Dialer opens dial sessions. onDigit receives the sequence dialed so far
// after every digit.
type Dialer interface {
	Start(onDigit func(sequence string)) DialSession
}

// DialerFunc adapts a function to a Dialer.
type DialerFunc func(onDigit func(sequence string)) DialSession

// Start implements Dialer.
func (f DialerFunc) Start(onDigit func(sequence string)) DialSession {
	return f(onDigit)
}

// RotaryDialer opens dial sessions on a rotary decoder.
func RotaryDialer(dec *rotary.Decoder) Dialer {
	return DialerFunc(func(onDigit func(string)) DialSession {
		return dec.Start(onDigit)
	})
}

// Prober checks network reachability.
type Prober interface {
	Probe(ctx context.Context) error
}

// Power changes the host power state.
type Power interface {
	Reboot(ctx context.Context) error
	PowerOff(ctx context.Context) error
}

// CallLog records finished calls.
type CallLog interface {
	Add(ctx context.Context, r calllog.Record) error
}

// Config configures an Orchestrator.
type Config struct {
	Audio   Audio
	Bridges BridgeFactory
	Dialer  Dialer
	Prober  Prober

	// Power is required when Numbers contains reboot or shutdown.
	Power Power

	// CallLog is optional.
	CallLog CallLog

	// Hook reads the hook switch directly. It gives the initial state and is
	// consulted after blocking self-tests. When nil the last reported state
	// is used.
	Hook func() HookState

	// Numbers maps digit sequences to actions.
	Numbers map[string]Action

	// MaxDialLength is the longest unmatched sequence accepted before the
	// number is declared invalid.
	MaxDialLength int

	DialTimeout time.Duration

	// MaxCallDuration cuts outbound calls. Zero means unlimited.
	MaxCallDuration time.Duration

	QuietHours QuietHours

	// Whitelist, when non-nil, restricts ringing to the listed callers.
	Whitelist []string

	// CountryCode is used to match national and international spellings.
	CountryCode string

	// Ringtones maps caller numbers to sound ids replacing SoundRing.
	Ringtones map[string]string

	ProbeTimeout         time.Duration
	ConnectedInterval    time.Duration
	DisconnectedInterval time.Duration

	// ProbeDelay postpones the first probe after Run starts.
	ProbeDelay time.Duration

	// TestPause is the silence between a self-test tone and the busy tone.
	TestPause time.Duration

	// ShutdownSoundTimeout bounds the shutdown sound played when Run's
	// context is cancelled.
	ShutdownSoundTimeout time.Duration

	Now    func() time.Time
	Logger *slog.Logger
}

func (c *Config) setDefaults() {
	if c.MaxDialLength <= 0 {
		c.MaxDialLength = DefaultMaxDialLength
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.CountryCode == "" {
		c.CountryCode = DefaultCountryCode
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = DefaultProbeTimeout
	}
	if c.ConnectedInterval <= 0 {
		c.ConnectedInterval = DefaultConnectedInterval
	}
	if c.DisconnectedInterval <= 0 {
		c.DisconnectedInterval = DefaultDisconnectedInterval
	}
	if c.TestPause < 0 {
		c.TestPause = 0
	} else if c.TestPause == 0 {
		c.TestPause = DefaultTestPause
	}
	if c.ShutdownSoundTimeout <= 0 {
		c.ShutdownSoundTimeout = DefaultShutdownSoundTimeout
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

func (c *Config) validate() error {
	switch {
	case c.Audio == nil:
		return errors.New("phone: Config.Audio is required")
	case c.Bridges == nil:
		return errors.New("phone: Config.Bridges is required")
	case c.Dialer == nil:
		return errors.New("phone: Config.Dialer is required")
	case c.Prober == nil:
		return errors.New("phone: Config.Prober is required")
	}
	if c.Power == nil {
		for seq, a := range c.Numbers {
			if a.Terminal() {
				return fmt.Errorf("phone: %q maps to %s but Config.Power is nil", seq, a)
			}
		}
	}
	if c.QuietHours.Enabled {
		if c.QuietHours.Morning < 0 || c.QuietHours.Morning > 23 ||
			c.QuietHours.Evening < 0 || c.QuietHours.Evening > 23 {
			return fmt.Errorf("phone: quiet hours %d-%d out of range", c.QuietHours.Evening, c.QuietHours.Morning)
		}
	}
	return nil
}
