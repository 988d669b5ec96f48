package phone

import (
	"context"
	"fmt"
	"time"

	"github.com/haivivi/rotaryphone/pkg/calllog"
)

func (o *Orchestrator) startDialSession() {
	o.endDialSession()
	o.dialID++
	id := o.dialID
	o.dial = o.cfg.Dialer.Start(func(sequence string) {
		o.events.post(digitEvent{session: id, sequence: sequence})
	})
	o.dialTimer.arm(o.cfg.DialTimeout, o.events.post)
	o.log.Debug("phone: dial session started", "session", id)
}

// endDialSession cancels the open session and its timeout. Digits the session
// already queued are dropped because the session id no longer matches.
func (o *Orchestrator) endDialSession() {
	o.dialTimer.stop()
	if o.dial == nil {
		return
	}
	o.dial.Cancel()
	o.dial = nil
	o.dialID++
	o.dialSequence = ""
}

func (o *Orchestrator) onDigits(ev digitEvent) error {
	if o.dial == nil || ev.session != o.dialID {
		o.log.Debug("phone: dropping digits of ended session", "sequence", ev.sequence)
		return nil
	}
	o.dialSequence = ev.sequence

	action, ok := o.cfg.Numbers[ev.sequence]
	if !ok {
		if len(ev.sequence) > o.cfg.MaxDialLength {
			o.log.Info("phone: invalid number", "sequence", ev.sequence)
			o.endDialSession()
			o.cfg.Audio.PlayEarpiece(SoundInvalid, false)
		}
		return nil
	}

	o.log.Info("phone: dialed", "sequence", ev.sequence, "action", action)
	o.endDialSession()
	o.cfg.Audio.StopEarpiece()
	return o.dispatch(action)
}

// dispatch runs a directory action. Self-tests and power actions block event
// processing until their sound has played.
func (o *Orchestrator) dispatch(a Action) error {
	switch a.Kind {
	case ActionCall:
		o.placeCall(a.Number)

	case ActionTestLoudspeaker:
		if err := o.cfg.Audio.PlaySpeakerWait(o.ctx, SoundTestLoudspeaker); err != nil {
			o.log.Warn("phone: loudspeaker test", "error", err)
		}
		o.busyIfOffHook()

	case ActionTestEarpiece:
		if err := o.cfg.Audio.PlayEarpieceWait(o.ctx, SoundTestEarpiece); err != nil {
			o.log.Warn("phone: earpiece test", "error", err)
		}
		o.busyIfOffHook()

	case ActionToggleDND:
		o.setManualDND(!o.manualDND)
		if o.manualDND {
			o.cfg.Audio.PlayEarpiece(SoundDNDOn, false)
		} else {
			o.cfg.Audio.PlayEarpiece(SoundDNDOff, false)
		}

	case ActionReboot:
		return o.powerAction(SoundReboot, "reboot", o.cfg.Power.Reboot, ErrRebooting)

	case ActionShutdown:
		return o.powerAction(SoundShutdown, "power off", o.cfg.Power.PowerOff, ErrPoweringOff)

	default:
		o.log.Warn("phone: unknown action", "action", a)
	}
	return nil
}

func (o *Orchestrator) placeCall(number string) {
	rec := &calllog.Record{
		Direction: calllog.Outgoing,
		Number:    number,
		Start:     o.cfg.Now(),
	}
	if !o.bridgeReady() {
		o.log.Warn("phone: cannot call, bridge unavailable", "number", number)
		o.cfg.Audio.PlayEarpiece(SoundBusy, true)
		o.record = rec
		o.finishRecord(calllog.Failed, "bridge unavailable")
		return
	}
	if err := o.bridge.Call(number); err != nil {
		o.log.Warn("phone: call", "number", number, "error", err)
		o.cfg.Audio.PlayEarpiece(SoundBusy, true)
		o.record = rec
		o.finishRecord(calllog.Failed, err.Error())
		return
	}

	o.log.Info("phone: calling", "number", number)
	o.call = CallOutboundPending
	o.record = rec
	if o.cfg.MaxCallDuration > 0 {
		o.callTimer.arm(o.cfg.MaxCallDuration, o.events.post)
	}
}

// busyIfOffHook plays the busy tone after a self-test if the handset is still
// lifted. The hook switch is read directly because hook events are queued
// behind the test.
func (o *Orchestrator) busyIfOffHook() {
	if o.cfg.TestPause > 0 {
		t := time.NewTimer(o.cfg.TestPause)
		select {
		case <-t.C:
		case <-o.ctx.Done():
			t.Stop()
			return
		}
	}
	if o.currentHook() == OffHook {
		o.cfg.Audio.PlayEarpiece(SoundBusy, true)
	}
}

func (o *Orchestrator) currentHook() HookState {
	if o.cfg.Hook != nil {
		return o.cfg.Hook()
	}
	return o.hook
}

// powerAction plays the confirmation to the end and requests the power
// change. Run returns sentinel afterwards, wrapped with any request error.
func (o *Orchestrator) powerAction(sound, what string, request func(context.Context) error, sentinel error) error {
	o.log.Info("phone: power action requested", "action", what)
	if err := o.cfg.Audio.PlaySpeakerWait(o.ctx, sound); err != nil {
		o.log.Warn("phone: power action sound", "action", what, "error", err)
	}
	if err := request(context.WithoutCancel(o.ctx)); err != nil {
		o.log.Error("phone: power action", "action", what, "error", err)
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return sentinel
}
