package phone

import (
	"context"

	"github.com/haivivi/rotaryphone/pkg/calllog"
	"github.com/haivivi/rotaryphone/pkg/linphone"
)

func (o *Orchestrator) onBridge(be bridgeEvent) {
	if be.gen != o.bridgeGen || o.bridge == nil {
		o.log.Debug("phone: dropping event from replaced bridge", "type", be.ev.Type)
		return
	}

	ev := be.ev
	switch ev.Type {
	case linphone.EventBooted:
		o.log.Info("phone: bridge booted")

	case linphone.EventRegistration:
		o.registered = ev.Registered
		if ev.Registered {
			o.log.Info("phone: registered", "proxy", ev.Proxy)
		} else {
			o.log.Warn("phone: registration failed", "proxy", ev.Proxy, "line", ev.Line)
		}

	case linphone.EventIncomingCall:
		o.onIncomingCall(ev.CallerID)

	case linphone.EventCallActive:
		if ev.Establishing {
			// The call command was accepted; the far end is still ringing.
			o.log.Debug("phone: establishing call", "call_id", ev.CallID)
			return
		}
		switch o.call {
		case CallOutboundPending:
			o.log.Info("phone: call connected", "call_id", ev.CallID)
			o.call = CallActive
		case CallRingingIn:
			// Answered without the hook switch, e.g. by auto-answer.
			o.call = CallActive
		}

	case linphone.EventCallEnded:
		o.onCallEnded()

	case linphone.EventExited:
		o.log.Warn("phone: bridge exited")
		o.dropBridge("bridge exited")
	}
}

// declineReason returns why caller must not ring, or "" to ring.
func (o *Orchestrator) declineReason(caller string) string {
	switch {
	case o.hook == OffHook:
		return "off hook"
	case o.call != CallIdle:
		return "busy"
	case o.cfg.QuietHours.Contains(o.cfg.Now()):
		return "quiet hours"
	case o.manualDND:
		return "do not disturb"
	case o.whitelist != nil && !o.whitelist.Contains(caller):
		return "not whitelisted"
	}
	return ""
}

func (o *Orchestrator) onIncomingCall(caller string) {
	if reason := o.declineReason(caller); reason != "" {
		o.log.Info("phone: declining call", "caller", caller, "reason", reason)
		if err := o.bridge.Hangup(); err != nil {
			o.log.Warn("phone: decline", "error", err)
		}
		o.declined = true
		now := o.cfg.Now()
		o.addRecord(calllog.Record{
			Direction: calllog.Incoming,
			Number:    caller,
			Outcome:   calllog.Declined,
			Reason:    reason,
			Start:     now,
			End:       now,
		})
		return
	}

	sound := SoundRing
	if s, ok := o.ringtones.Lookup(caller); ok {
		sound = s
	}
	o.log.Info("phone: incoming call", "caller", caller)
	o.call = CallRingingIn
	o.record = &calllog.Record{
		Direction: calllog.Incoming,
		Number:    caller,
		Start:     o.cfg.Now(),
	}
	o.cfg.Audio.PlaySpeaker(sound, true)
}

func (o *Orchestrator) onCallEnded() {
	if o.declined {
		o.declined = false
		return
	}
	if o.call == CallIdle {
		return
	}

	o.log.Info("phone: call ended")
	o.cfg.Audio.StopSpeaker()
	o.callTimer.stop()
	o.finishRecord(o.endedOutcome(), "")
	o.call = CallIdle
	if o.hook == OffHook {
		o.cfg.Audio.PlayEarpiece(SoundBusy, true)
	}
}

// dropBridge kills the bridge and abandons any call it carried.
func (o *Orchestrator) dropBridge(reason string) {
	if o.bridge == nil {
		return
	}
	o.bridge.Kill()
	o.bridge = nil
	o.bridgeGen++
	o.registered = false
	o.declined = false

	if o.call == CallIdle {
		return
	}
	o.cfg.Audio.StopSpeaker()
	o.callTimer.stop()
	o.finishRecord(o.endedOutcome(), reason)
	o.call = CallIdle
	if o.hook == OffHook {
		o.cfg.Audio.PlayEarpiece(SoundBusy, true)
	}
}

// endedOutcome classifies the current call as if it ended now.
func (o *Orchestrator) endedOutcome() calllog.Outcome {
	switch o.call {
	case CallRingingIn:
		return calllog.Missed
	case CallOutboundPending:
		return calllog.Unanswered
	default:
		return calllog.Completed
	}
}

func (o *Orchestrator) finishRecord(outcome calllog.Outcome, reason string) {
	if o.record == nil {
		return
	}
	r := *o.record
	o.record = nil
	r.Outcome = outcome
	r.Reason = reason
	r.End = o.cfg.Now()
	o.addRecord(r)
}

func (o *Orchestrator) addRecord(r calllog.Record) {
	if o.cfg.CallLog == nil {
		return
	}
	if err := o.cfg.CallLog.Add(context.WithoutCancel(o.ctx), r); err != nil {
		o.log.Warn("phone: call log", "error", err)
	}
}
