package phone

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/haivivi/rotaryphone/pkg/calllog"
	"github.com/haivivi/rotaryphone/pkg/linphone"
)

// fakeAudio records every request as "channel:sound[:repeat]",
// "wait:channel:sound" or "stop:channel".
type fakeAudio struct {
	mu    sync.Mutex
	calls []string
}

func (a *fakeAudio) add(s string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, s)
}

func play(channel, sound string, repeat bool) string {
	if repeat {
		return channel + ":" + sound + ":repeat"
	}
	return channel + ":" + sound
}

func (a *fakeAudio) PlaySpeaker(sound string, repeat bool) { a.add(play("speaker", sound, repeat)) }
func (a *fakeAudio) PlayEarpiece(sound string, repeat bool) {
	a.add(play("earpiece", sound, repeat))
}
func (a *fakeAudio) PlaySpeakerWait(_ context.Context, sound string) error {
	a.add("wait:speaker:" + sound)
	return nil
}
func (a *fakeAudio) PlayEarpieceWait(_ context.Context, sound string) error {
	a.add("wait:earpiece:" + sound)
	return nil
}
func (a *fakeAudio) StopSpeaker()  { a.add("stop:speaker") }
func (a *fakeAudio) StopEarpiece() { a.add("stop:earpiece") }

func (a *fakeAudio) count(s string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, c := range a.calls {
		if c == s {
			n++
		}
	}
	return n
}

// playedSound reports whether any request mentioned sound.
func (a *fakeAudio) playedSound(sound string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, c := range a.calls {
		if strings.Contains(c, ":"+sound) {
			return true
		}
	}
	return false
}

func (a *fakeAudio) reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = nil
}

type fakeBridge struct {
	mu      sync.Mutex
	cmds    []string
	callErr error
	// answerErr is returned by Answer when set.
	answerErr error

	dead    atomic.Bool
	kills   atomic.Int32
	onEvent func(linphone.Event)

	lines    []string
	lastSeen time.Time
}

func (b *fakeBridge) cmd(s string) error {
	if b.dead.Load() {
		return linphone.ErrNotRunning
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cmds = append(b.cmds, s)
	return nil
}

func (b *fakeBridge) Call(number string) error {
	if b.callErr != nil {
		return b.callErr
	}
	return b.cmd("call " + number)
}
func (b *fakeBridge) Hangup() error { return b.cmd("terminate") }
func (b *fakeBridge) Answer() error {
	if b.answerErr != nil {
		return b.answerErr
	}
	return b.cmd("answer")
}

func (b *fakeBridge) Alive() bool   { return !b.dead.Load() }

func (b *fakeBridge) Transcript() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.lines...)
}

func (b *fakeBridge) LastSeen() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastSeen
}
func (b *fakeBridge) Kill() {
	b.kills.Add(1)
	b.dead.Store(true)
}

func (b *fakeBridge) sent() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.cmds...)
}

func (b *fakeBridge) countCmd(s string) int {
	n := 0
	for _, c := range b.sent() {
		if c == s {
			n++
		}
	}
	return n
}

type fakeSession struct {
	onDigit   func(string)
	cancelled atomic.Bool
}

func (s *fakeSession) Cancel() { s.cancelled.Store(true) }

type fakeDialer struct {
	mu       sync.Mutex
	sessions []*fakeSession
}

func (d *fakeDialer) Start(onDigit func(string)) DialSession {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := &fakeSession{onDigit: onDigit}
	d.sessions = append(d.sessions, s)
	return s
}

func (d *fakeDialer) last() *fakeSession {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.sessions) == 0 {
		return nil
	}
	return d.sessions[len(d.sessions)-1]
}

func (d *fakeDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sessions)
}

type fakeProber struct {
	mu  sync.Mutex
	err error
	n   int
}

func (p *fakeProber) Probe(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.n++
	return p.err
}

func (p *fakeProber) set(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

type fakePower struct {
	reboots   atomic.Int32
	powerOffs atomic.Int32
	err       error
}

func (p *fakePower) Reboot(context.Context) error {
	p.reboots.Add(1)
	return p.err
}

func (p *fakePower) PowerOff(context.Context) error {
	p.powerOffs.Add(1)
	return p.err
}

type fakeCallLog struct {
	mu      sync.Mutex
	records []calllog.Record
}

func (l *fakeCallLog) Add(_ context.Context, r calllog.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, r)
	return nil
}

func (l *fakeCallLog) all() []calllog.Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]calllog.Record(nil), l.records...)
}

// fixture wires an Orchestrator to fakes. Tests drive it by calling handle
// directly, which is what Run does for each queued event.
type fixture struct {
	t       *testing.T
	o       *Orchestrator
	audio   *fakeAudio
	dialer  *fakeDialer
	prober  *fakeProber
	power   *fakePower
	calls   *fakeCallLog
	now     time.Time
	spawned []*fakeBridge
	hookNow atomic.Int32
}

func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()
	f := &fixture{
		t:      t,
		audio:  &fakeAudio{},
		dialer: &fakeDialer{},
		prober: &fakeProber{},
		power:  &fakePower{},
		calls:  &fakeCallLog{},
		now:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local),
	}
	cfg := Config{
		Audio:  f.audio,
		Dialer: f.dialer,
		Prober: f.prober,
		Power:  f.power,
		Bridges: func(ctx context.Context, onEvent func(linphone.Event)) (Bridge, error) {
			b := &fakeBridge{onEvent: onEvent}
			f.spawned = append(f.spawned, b)
			return b, nil
		},
		CallLog: f.calls,
		Numbers: map[string]Action{
			"1":    MustParseAction("030123456"),
			"99":   MustParseAction("test-loudspeaker"),
			"98":   MustParseAction("test-earpiece"),
			"0000": MustParseAction("reboot"),
			"0001": MustParseAction("shutdown"),
			"5":    MustParseAction("toggle-dnd"),
		},
		TestPause: -1,
		Now:       func() time.Time { return f.now },
		Hook:      func() HookState { return HookState(f.hookNow.Load()) },
	}
	if mutate != nil {
		mutate(&cfg)
	}
	o, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.o = o
	return f
}

func (f *fixture) handle(ev event) {
	f.t.Helper()
	if err := f.o.handle(ev); err != nil {
		f.t.Fatalf("handle(%T): %v", ev, err)
	}
}

func (f *fixture) probe(err error) bool {
	f.t.Helper()
	done := make(chan bool, 1)
	f.handle(probeEvent{err: err, done: done})
	select {
	case healthy := <-done:
		return healthy
	default:
		f.t.Fatal("probe result not acknowledged")
		return false
	}
}

// connect reports a successful probe and returns the spawned bridge.
func (f *fixture) connect() *fakeBridge {
	f.t.Helper()
	f.probe(nil)
	if len(f.spawned) == 0 {
		f.t.Fatal("no bridge spawned")
	}
	return f.spawned[len(f.spawned)-1]
}

func (f *fixture) hook(state HookState) {
	f.t.Helper()
	f.hookNow.Store(int32(state))
	f.handle(hookEvent{state: state})
}

// dial delivers sequence as a completed digit of the current session.
func (f *fixture) dial(sequence string) {
	f.t.Helper()
	f.handle(digitEvent{session: f.o.dialID, sequence: sequence})
}

func (f *fixture) bridgeEvent(ev linphone.Event) {
	f.t.Helper()
	f.handle(bridgeEvent{gen: f.o.bridgeGen, ev: ev})
}

func (f *fixture) incoming(caller string) {
	f.t.Helper()
	f.bridgeEvent(linphone.Event{Type: linphone.EventIncomingCall, CallerID: caller})
}

func (f *fixture) ended() {
	f.t.Helper()
	f.bridgeEvent(linphone.Event{Type: linphone.EventCallEnded})
}

func (f *fixture) expectCall(want CallState) {
	f.t.Helper()
	if f.o.call != want {
		f.t.Fatalf("call state = %s, want %s", f.o.call, want)
	}
}

func (f *fixture) expectAudio(s string, n int) {
	f.t.Helper()
	if got := f.audio.count(s); got != n {
		f.t.Fatalf("%q requested %d times, want %d (calls: %s)", s, got, n, fmt.Sprint(f.audio.calls))
	}
}
