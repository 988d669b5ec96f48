package phone

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/haivivi/rotaryphone/pkg/calllog"
	"github.com/haivivi/rotaryphone/pkg/linphone"
)

// Orchestrator is the call state machine. Create it with New and drive it
// with Run.
type Orchestrator struct {
	cfg       Config
	log       *slog.Logger
	events    *queue
	whitelist *Numbers
	ringtones *Numbers

	// ctx is Run's context, used for blocking playback and bridge spawns.
	ctx context.Context

	// State below is owned by the Run goroutine.
	hook         HookState
	call         CallState
	declined     bool
	manualDND    bool
	conn         Connectivity
	registered   bool
	bridge       Bridge
	bridgeGen    uint64
	dial         DialSession
	dialID       uint64
	dialSequence string
	dialTimer    timer
	callTimer    timer
	record       *calllog.Record

	snapMu sync.Mutex
	snap   Snapshot
	snapBr Bridge
}

// New creates an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	o := &Orchestrator{
		cfg:       cfg,
		log:       cfg.Logger,
		events:    newQueue(),
		ringtones: NewNumbers(cfg.CountryCode, cfg.Ringtones),
		ctx:       context.Background(),
		dialTimer: timer{kind: dialTimer},
		callTimer: timer{kind: callTimer},
	}
	if cfg.Whitelist != nil {
		wl := make(map[string]string, len(cfg.Whitelist))
		for _, n := range cfg.Whitelist {
			wl[n] = n
		}
		o.whitelist = NewNumbers(cfg.CountryCode, wl)
	}
	if cfg.Hook != nil {
		o.hook = cfg.Hook()
	}
	o.publish()
	return o, nil
}

// HookChanged reports a debounced hook switch transition. It is safe to call
// from any goroutine.
func (o *Orchestrator) HookChanged(state HookState) {
	o.events.post(hookEvent{state: state})
}

// SetDoNotDisturb sets the manual do-not-disturb override. It is safe to call
// from any goroutine.
func (o *Orchestrator) SetDoNotDisturb(on bool) {
	o.events.post(dndEvent{on: on})
}

// Run processes events until ctx is done or a terminal action runs. On
// cancellation it tears down, plays the shutdown sound and returns nil.
// After a reboot or shutdown action it returns ErrRebooting or
// ErrPoweringOff.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.ctx = ctx
	o.log.Info("phone: starting", "hook", o.hook)
	o.cfg.Audio.PlaySpeaker(SoundBoot, false)

	wctx, stopWatchdog := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		o.watchdog(wctx)
	}()
	defer func() {
		stopWatchdog()
		o.events.close()
		wg.Wait()
	}()

	for {
		ev, err := o.events.next(ctx)
		if err != nil {
			o.teardown()
			o.log.Info("phone: stopping")
			sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.ShutdownSoundTimeout)
			if err := o.cfg.Audio.PlaySpeakerWait(sctx, SoundShutdown); err != nil {
				o.log.Warn("phone: shutdown sound", "error", err)
			}
			cancel()
			return nil
		}
		if err := o.handle(ev); err != nil {
			o.teardown()
			return err
		}
	}
}

// handle applies one event. It returns an error only for terminal actions.
func (o *Orchestrator) handle(ev event) error {
	defer o.publish()

	switch ev := ev.(type) {
	case hookEvent:
		o.onHook(ev.state)
	case digitEvent:
		return o.onDigits(ev)
	case timerEvent:
		o.onTimer(ev)
	case bridgeEvent:
		o.onBridge(ev)
	case probeEvent:
		o.onProbe(ev)
	case dndEvent:
		o.setManualDND(ev.on)
	default:
		o.log.Warn("phone: unknown event", "type", fmt.Sprintf("%T", ev))
	}
	return nil
}

func (o *Orchestrator) onHook(state HookState) {
	if state == o.hook {
		return
	}
	o.hook = state

	if state == OnHook {
		o.log.Info("phone: handset on hook")
		o.endDialSession()
		o.callTimer.stop()
		o.cfg.Audio.StopEarpiece()
		if o.bridge != nil {
			if err := o.bridge.Hangup(); err != nil {
				o.log.Debug("phone: hang up", "error", err)
			}
		}
		o.declined = false
		if o.call != CallIdle {
			o.finishRecord(o.endedOutcome(), "")
			o.call = CallIdle
		}
		return
	}

	o.log.Info("phone: handset off hook")
	if o.call == CallRingingIn {
		o.cfg.Audio.StopEarpiece()
		o.cfg.Audio.StopSpeaker()
		if err := o.answer(); err != nil {
			o.log.Warn("phone: answer", "error", err)
			o.finishRecord(calllog.Missed, "answer failed")
			o.call = CallIdle
			o.cfg.Audio.PlayEarpiece(SoundBusy, true)
			return
		}
		o.call = CallActive
		return
	}
	if !o.bridgeReady() {
		o.cfg.Audio.PlayEarpiece(SoundUnavailable, false)
		return
	}
	if o.call != CallIdle {
		return
	}
	o.cfg.Audio.PlayEarpiece(SoundDial, false)
	o.startDialSession()
}

func (o *Orchestrator) answer() error {
	if o.bridge == nil {
		return linphone.ErrNotRunning
	}
	return o.bridge.Answer()
}

// bridgeReady reports whether calls can be placed.
func (o *Orchestrator) bridgeReady() bool {
	return o.conn == Connected && o.bridge != nil && o.bridge.Alive()
}

func (o *Orchestrator) onTimer(ev timerEvent) {
	switch ev.kind {
	case dialTimer:
		if !o.dialTimer.fire(ev.gen) || o.dial == nil {
			return
		}
		o.log.Info("phone: dial timeout")
		o.endDialSession()
		o.cfg.Audio.PlayEarpiece(SoundBusy, true)

	case callTimer:
		if !o.callTimer.fire(ev.gen) {
			return
		}
		if o.call != CallActive && o.call != CallOutboundPending {
			return
		}
		o.log.Info("phone: call reached maximum duration", "max", o.cfg.MaxCallDuration)
		if o.bridge != nil {
			if err := o.bridge.Hangup(); err != nil {
				o.log.Warn("phone: hang up", "error", err)
			}
		}
		o.finishRecord(calllog.TimedOut, "")
		o.call = CallIdle
		o.cfg.Audio.PlayEarpiece(SoundBusy, true)
	}
}

func (o *Orchestrator) setManualDND(on bool) {
	if on == o.manualDND {
		return
	}
	o.manualDND = on
	o.log.Info("phone: do not disturb", "on", on)
}

// teardown releases everything Run owns.
func (o *Orchestrator) teardown() {
	o.endDialSession()
	o.callTimer.stop()
	if o.bridge != nil {
		o.bridge.Kill()
		o.bridge = nil
		o.bridgeGen++
	}
	if o.call != CallIdle {
		o.finishRecord(o.endedOutcome(), "shutdown")
		o.call = CallIdle
	}
	o.cfg.Audio.StopEarpiece()
	o.cfg.Audio.StopSpeaker()
	o.publish()
}

// Snapshot is a point-in-time view of the orchestrator state.
type Snapshot struct {
	Hook         HookState    `json:"hook"`
	Call         CallState    `json:"call"`
	Connectivity Connectivity `json:"connectivity"`
	DoNotDisturb bool         `json:"do_not_disturb"`
	QuietHours   bool         `json:"quiet_hours"`
	Declined     bool         `json:"declined"`
	BridgeAlive  bool         `json:"bridge_alive"`
	// BridgeOutput is when the bridge last printed a line.
	BridgeOutput time.Time `json:"bridge_output,omitzero"`
	Registered   bool         `json:"registered"`
	Dialing      bool         `json:"dialing"`
	Sequence     string       `json:"sequence,omitempty"`
	Number       string       `json:"number,omitempty"`
	DialTimer    bool         `json:"dial_timer"`
	CallTimer    bool         `json:"call_timer"`
	Time         time.Time    `json:"time"`
}

// Snapshot returns the current state. It is safe to call from any goroutine.
func (o *Orchestrator) Snapshot() Snapshot {
	o.snapMu.Lock()
	s := o.snap
	br := o.snapBr
	o.snapMu.Unlock()

	s.Time = o.cfg.Now()
	s.QuietHours = o.cfg.QuietHours.Contains(s.Time)
	if br != nil {
		s.BridgeAlive = br.Alive()
		s.BridgeOutput = br.LastSeen()
	}
	return s
}

// Transcript returns the recent output of the current bridge, or nil when
// no bridge runs. It is safe to call from any goroutine.
func (o *Orchestrator) Transcript() []string {
	o.snapMu.Lock()
	br := o.snapBr
	o.snapMu.Unlock()
	if br == nil {
		return nil
	}
	return br.Transcript()
}

func (o *Orchestrator) publish() {
	s := Snapshot{
		Hook:         o.hook,
		Call:         o.call,
		Connectivity: o.conn,
		DoNotDisturb: o.manualDND,
		Declined:     o.declined,
		Registered:   o.registered,
		Dialing:      o.dial != nil,
		Sequence:     o.dialSequence,
		DialTimer:    o.dialTimer.armed(),
		CallTimer:    o.callTimer.armed(),
	}
	if o.record != nil {
		s.Number = o.record.Number
	}
	o.snapMu.Lock()
	o.snap = s
	o.snapBr = o.bridge
	o.snapMu.Unlock()
}

