package phone

import (
	"fmt"
	"strings"
)

// ActionKind is what a dialed sequence triggers.
type ActionKind int

const (
	ActionCall ActionKind = iota
	ActionTestLoudspeaker
	ActionTestEarpiece
	ActionReboot
	ActionShutdown
	ActionToggleDND
)

var actionKeywords = map[string]ActionKind{
	"test-loudspeaker": ActionTestLoudspeaker,
	"test-earpiece":    ActionTestEarpiece,
	"reboot":           ActionReboot,
	"shutdown":         ActionShutdown,
	"toggle-dnd":       ActionToggleDND,
}

// Action is the directory entry for a digit sequence: a reserved keyword or
// a number to call.
type Action struct {
	Kind ActionKind

	// Number is the call destination for ActionCall.
	Number string
}

// ParseAction parses a directory value. Reserved keywords map to their
// action; anything else is a call destination.
func ParseAction(s string) (Action, error) {
	s = strings.TrimSpace(s)
	if kind, ok := actionKeywords[s]; ok {
		return Action{Kind: kind}, nil
	}
	if s == "" {
		return Action{}, fmt.Errorf("phone: empty action")
	}
	if strings.ContainsAny(s, " \t\r\n@") {
		return Action{}, fmt.Errorf("phone: invalid call destination %q", s)
	}
	return Action{Kind: ActionCall, Number: s}, nil
}

// MustParseAction is like ParseAction but panics on error.
func MustParseAction(s string) Action {
	a, err := ParseAction(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String returns the directory form of the action.
func (a Action) String() string {
	if a.Kind == ActionCall {
		return a.Number
	}
	for k, v := range actionKeywords {
		if v == a.Kind {
			return k
		}
	}
	return fmt.Sprintf("ActionKind(%d)", int(a.Kind))
}

// Terminal reports whether the action ends the process.
func (a Action) Terminal() bool {
	return a.Kind == ActionReboot || a.Kind == ActionShutdown
}

// MarshalText implements encoding.TextMarshaler.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Action) UnmarshalText(b []byte) error {
	v, err := ParseAction(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
