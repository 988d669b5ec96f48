package phone

import "fmt"

// HookState is the position of the handset.
type HookState int

const (
	OnHook HookState = iota
	OffHook
)

// String returns the string representation of the hook state.
func (h HookState) String() string {
	if h == OffHook {
		return "off_hook"
	}
	return "on_hook"
}

// MarshalText implements encoding.TextMarshaler.
func (h HookState) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *HookState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "on_hook":
		*h = OnHook
	case "off_hook":
		*h = OffHook
	default:
		return fmt.Errorf("phone: unknown hook state %q", b)
	}
	return nil
}

// CallState is the state of the single call the phone handles.
type CallState int

const (
	CallIdle CallState = iota
	// CallRingingIn is an incoming call presented to the user and not yet
	// answered.
	CallRingingIn
	CallActive
	// CallOutboundPending is an outbound call that has been dialed but not
	// reported connected.
	CallOutboundPending
)

// String returns the string representation of the call state.
func (c CallState) String() string {
	switch c {
	case CallRingingIn:
		return "ringing_in"
	case CallActive:
		return "active"
	case CallOutboundPending:
		return "outbound_pending"
	default:
		return "idle"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c CallState) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *CallState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*c = CallIdle
	case "ringing_in":
		*c = CallRingingIn
	case "active":
		*c = CallActive
	case "outbound_pending":
		*c = CallOutboundPending
	default:
		return fmt.Errorf("phone: unknown call state %q", b)
	}
	return nil
}

// Connectivity is the network reachability reported by the watchdog.
type Connectivity int

const (
	Disconnected Connectivity = iota
	Connected
)

// String returns the string representation of the connectivity.
func (c Connectivity) String() string {
	if c == Connected {
		return "connected"
	}
	return "disconnected"
}

// MarshalText implements encoding.TextMarshaler.
func (c Connectivity) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Connectivity) UnmarshalText(b []byte) error {
	switch string(b) {
	case "connected":
		*c = Connected
	case "disconnected":
		*c = Disconnected
	default:
		return fmt.Errorf("phone: unknown connectivity %q", b)
	}
	return nil
}

// Sound ids played by the orchestrator. The audio adapter maps them to files.
const (
	SoundBoot            = "boot"
	SoundRing            = "ring"
	SoundDial            = "dial"
	SoundUnavailable     = "unavailable"
	SoundInvalid         = "invalid"
	SoundBusy            = "busy"
	SoundTestLoudspeaker = "test_loudspeaker"
	SoundTestEarpiece    = "test_earpiece"
	SoundReboot          = "reboot"
	SoundShutdown        = "shutdown"
	SoundDisconnected    = "disconnected"
	SoundDNDOn           = "dnd_on"
	SoundDNDOff          = "dnd_off"
)

// Sounds lists every sound id the orchestrator may request.
var Sounds = []string{
	SoundBoot, SoundRing, SoundDial, SoundUnavailable, SoundInvalid,
	SoundBusy, SoundTestLoudspeaker, SoundTestEarpiece, SoundReboot,
	SoundShutdown, SoundDisconnected, SoundDNDOn, SoundDNDOff,
}
