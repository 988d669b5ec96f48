package linphone

import (
	"regexp"
	"strings"
)

const prompt = "linphonec>"

// cleanLine strips the prompt and surrounding blanks. linphonec occasionally
// prints the prompt twice.
func cleanLine(raw string) string {
	line := raw
	for range 2 {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), prompt))
	}
	return line
}

// noise lists output that linphonec prints unconditionally and that carries
// no call state.
var noise = []string{
	"Warning: video is disabled",
	"Ready",
	"linphonec: Ready",
}

type matcher struct {
	typ EventType
	re  *regexp.Regexp

	// establishing marks the line linphonec prints when a call command was
	// accepted, before the far end answers.
	establishing bool
}

// matchers are tried in order. The incoming-call pattern goes first because
// its lines also start with call-state words.
var matchers = []matcher{
	{typ: EventIncomingCall, re: regexp.MustCompile(`^Receiving new incoming call from .*?sips?:([^\s<>"@;]+)@.*, assigned id (\d+)`)},
	{typ: EventCallActive, re: regexp.MustCompile(`^Establishing call id to .*?(?:, assigned id (\d+))?$`), establishing: true},
	{typ: EventCallActive, re: regexp.MustCompile(`^Call (\d+).* connected`)},
	{typ: EventCallEnded, re: regexp.MustCompile(`^Call (\d+).* ended`)},
	{typ: EventRegistration, re: regexp.MustCompile(`^Registration on (\S+) (successful|failed)`)},
}

type lineKind int

const (
	lineEvent lineKind = iota
	lineNoise
	lineUnknown
)

// classify maps a cleaned, non-empty line to an event.
func classify(line string) (Event, lineKind) {
	for _, n := range noise {
		if strings.HasPrefix(line, n) {
			return Event{}, lineNoise
		}
	}

	for _, m := range matchers {
		sub := m.re.FindStringSubmatch(line)
		if sub == nil {
			continue
		}
		ev := Event{Type: m.typ, Line: line, Establishing: m.establishing}
		switch m.typ {
		case EventIncomingCall:
			ev.CallerID = sub[1]
			ev.CallID = sub[2]
		case EventRegistration:
			ev.Proxy = sub[1]
			ev.Registered = sub[2] == "successful"
		default:
			if len(sub) > 1 {
				ev.CallID = sub[1]
			}
		}
		return ev, lineEvent
	}
	return Event{}, lineUnknown
}
