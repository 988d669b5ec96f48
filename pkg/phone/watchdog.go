package phone

import (
	"context"
	"time"

	"github.com/haivivi/rotaryphone/pkg/linphone"
)

// watchdog probes reachability and posts each result. It waits until the
// result has been applied before sleeping, so a bridge is torn down before
// the next probe starts. The long interval is used only while the network is
// up and the bridge runs; a failed spawn is retried at the short one.
func (o *Orchestrator) watchdog(ctx context.Context) {
	t := time.NewTimer(o.cfg.ProbeDelay)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}

		pctx, cancel := context.WithTimeout(ctx, o.cfg.ProbeTimeout)
		err := o.cfg.Prober.Probe(pctx)
		cancel()
		if ctx.Err() != nil {
			return
		}

		done := make(chan bool, 1)
		if !o.events.post(probeEvent{err: err, done: done}) {
			return
		}
		var healthy bool
		select {
		case healthy = <-done:
		case <-ctx.Done():
			return
		}

		if healthy {
			t.Reset(o.cfg.ConnectedInterval)
		} else {
			t.Reset(o.cfg.DisconnectedInterval)
		}
	}
}

func (o *Orchestrator) onProbe(ev probeEvent) {
	defer func() {
		ev.done <- o.conn == Connected && o.bridge != nil
	}()

	if ev.err == nil {
		if o.conn != Connected {
			o.log.Info("phone: network reachable")
		}
		o.conn = Connected
		if o.bridge != nil && !o.bridge.Alive() {
			o.log.Warn("phone: bridge died, restarting")
			o.dropBridge("bridge died")
		}
		if o.bridge == nil {
			o.spawnBridge()
		}
		return
	}

	wasConnected := o.conn == Connected
	o.conn = Disconnected
	if o.bridge != nil {
		o.log.Warn("phone: network unreachable, stopping bridge", "error", ev.err)
		o.dropBridge("network unreachable")
	}
	if wasConnected {
		o.log.Warn("phone: network lost", "error", ev.err)
		o.cfg.Audio.PlaySpeaker(SoundDisconnected, false)
	} else {
		o.log.Debug("phone: probe failed", "error", ev.err)
	}
}

func (o *Orchestrator) spawnBridge() {
	o.bridgeGen++
	gen := o.bridgeGen
	b, err := o.cfg.Bridges(o.ctx, func(ev linphone.Event) {
		o.events.post(bridgeEvent{gen: gen, ev: ev})
	})
	if err != nil {
		o.log.Error("phone: start bridge", "error", err)
		return
	}
	o.log.Info("phone: bridge started")
	o.bridge = b
}
