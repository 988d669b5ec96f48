package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/haivivi/rotaryphone/pkg/phone"
)

const sample = `
pins: {hook: 17, nsa: 24, nsi: 23}
sip:
  host: fritz.box
  user: "620"
  password: secret
network:
  probe_timeout: 2
  connected_interval: 30s
dialing:
  timeout: 45s
  max_length: 4
calls:
  max_duration: 10m
  ringtones:
    "030123456": ring
dnd: {enabled: true, morning: 6, evening: 22}
whitelist:
  enabled: true
  numbers:
    mom: "030123456"
    dad: "+4940999"
numbers:
  1: 030123456
  "99": test-loudspeaker
  0000: reboot
audio:
  sounds:
    ring: /srv/ring.mp3
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.Pins.Hook != 17 || cfg.Pins.NSA != 24 {
		t.Errorf("pins = %+v", cfg.Pins)
	}
	if got := cfg.Network.ProbeTimeout.Std(); got != 2*time.Second {
		t.Errorf("probe_timeout = %v, want 2s", got)
	}
	if got := cfg.Network.DisconnectedInterval.Std(); got != phone.DefaultDisconnectedInterval {
		t.Errorf("disconnected_interval = %v, want default", got)
	}
	if got := cfg.Calls.MaxDuration.Std(); got != 10*time.Minute {
		t.Errorf("max_duration = %v", got)
	}

	want := map[string]phone.Action{
		"1":    {Kind: phone.ActionCall, Number: "030123456"},
		"99":   {Kind: phone.ActionTestLoudspeaker},
		"0000": {Kind: phone.ActionReboot},
	}
	if len(cfg.Numbers) != len(want) {
		t.Fatalf("numbers = %v", cfg.Numbers)
	}
	for k, v := range want {
		if cfg.Numbers[k] != v {
			t.Errorf("numbers[%q] = %+v, want %+v", k, cfg.Numbers[k], v)
		}
	}

	// Overridden sound replaces the default, the others stay.
	if cfg.Audio.Sounds["ring"] != "/srv/ring.mp3" {
		t.Errorf("ring sound = %q", cfg.Audio.Sounds["ring"])
	}
	if cfg.Audio.Sounds["busy"] != filepath.Join(DefaultSoundDir, "busy.wav") {
		t.Errorf("busy sound = %q", cfg.Audio.Sounds["busy"])
	}
}

func TestParse_Conversions(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	p := cfg.Probe()
	if p.Host != "fritz.box" || p.Port != 80 || p.Timeout != 2*time.Second {
		t.Errorf("Probe() = %+v", p)
	}

	pc := cfg.Phone()
	if pc.MaxDialLength != 4 || pc.DialTimeout != 45*time.Second {
		t.Errorf("Phone() dialing = %d %v", pc.MaxDialLength, pc.DialTimeout)
	}
	if pc.QuietHours != (phone.QuietHours{Enabled: true, Morning: 6, Evening: 22}) {
		t.Errorf("Phone() quiet hours = %+v", pc.QuietHours)
	}
	if len(pc.Whitelist) != 2 || pc.Whitelist[0] != "+4940999" {
		t.Errorf("Phone() whitelist = %v", pc.Whitelist)
	}

	lc := cfg.Linphone()
	if lc.Host != "fritz.box" || lc.User != "620" || lc.Password != "secret" {
		t.Errorf("Linphone() = %+v", lc)
	}

	ac := cfg.Player()
	if ac.SpeakerDevice != "i2s" || ac.EarpieceDevice != "usb" {
		t.Errorf("Player() devices = %q %q", ac.SpeakerDevice, ac.EarpieceDevice)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing sip", `pins: {hook: 15}`, "sip.host is required"},
		{"unknown key", "sip: {host: h, user: u}\nsipp: {}", "sipp"},
		{"bad action", "sip: {host: h, user: u}\nnumbers: {\"1\": \"a b\"}", "invalid call destination"},
		{"letters in sequence", "sip: {host: h, user: u}\nnumbers: {\"1a\": reboot}", "cannot be dialed"},
		{"bad duration", "sip: {host: h, user: u}\ndialing: {timeout: soon}", "invalid duration"},
		{"negative duration", "sip: {host: h, user: u}\ndialing: {timeout: -5}", "negative duration"},
		{"bad hour", "sip: {host: h, user: u}\ndnd: {morning: 24}", "dnd hours"},
		{"unknown ringtone", "sip: {host: h, user: u}\ncalls: {ringtones: {\"1\": jingle}}", "unknown sound"},
		{"bad level", "sip: {host: h, user: u}\nlog: {level: loud}", "log.level"},
		{"bad format", "sip: {host: h, user: u}\nlog: {format: xml}", "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse succeeded")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestParse_Empty(t *testing.T) {
	if _, err := Parse(nil); err == nil || !strings.Contains(err.Error(), "sip.host") {
		t.Fatalf("Parse(nil) = %v, want missing sip.host", err)
	}
}

func TestWhitelistDisabled(t *testing.T) {
	cfg := Default()
	cfg.Whitelist.Numbers = map[string]string{"mom": "030123"}
	if cfg.WhitelistNumbers() != nil {
		t.Fatal("disabled whitelist returned numbers")
	}
	cfg.Whitelist = Whitelist{Enabled: true}
	if got := cfg.WhitelistNumbers(); got == nil || len(got) != 0 {
		t.Fatalf("empty enabled whitelist = %v, want empty non-nil", got)
	}
}

func TestProbeHostOverride(t *testing.T) {
	cfg := Default()
	cfg.SIP.Host = "fritz.box"
	cfg.Network.ProbeHost = "192.168.178.1"
	if got := cfg.Probe().Host; got != "192.168.178.1" {
		t.Fatalf("Probe().Host = %q", got)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	tmpl := Template()
	if err := Save(path, tmpl); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("mode = %v, want 0600", perm)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SIP.Host != tmpl.SIP.Host || cfg.SIP.User != tmpl.SIP.User || cfg.SIP.Password != tmpl.SIP.Password {
		t.Errorf("sip = %+v, want %+v", cfg.SIP, tmpl.SIP)
	}
	if cfg.Dialing.Timeout != tmpl.Dialing.Timeout {
		t.Errorf("dialing.timeout = %v", cfg.Dialing.Timeout.Std())
	}
	if len(cfg.Numbers) != len(tmpl.Numbers) {
		t.Fatalf("numbers = %v", cfg.Numbers)
	}
	for k, v := range tmpl.Numbers {
		if cfg.Numbers[k] != v {
			t.Errorf("numbers[%q] = %v, want %v", k, cfg.Numbers[k], v)
		}
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Load of missing file succeeded")
	}
}

func TestMasked(t *testing.T) {
	cfg := Template()
	m := cfg.Masked()
	if m.SIP.Password != "***" {
		t.Errorf("masked password = %q", m.SIP.Password)
	}
	if cfg.SIP.Password != "changeme" {
		t.Error("Masked modified the original")
	}
}

func TestDirectory(t *testing.T) {
	d := Template().Directory()
	if len(d) != 6 {
		t.Fatalf("len = %d, want 6", len(d))
	}
	if d[0].Digits != "0000" || d[len(d)-1].Digits != "99" {
		t.Fatalf("directory not sorted: %+v", d)
	}
	rows := d.TableRows()
	for i, row := range rows {
		if row[0] != d[i].Digits {
			t.Fatalf("row %d = %v", i, row)
		}
	}
	if rows[2][1] != "030123456" || rows[2][2] != "call" {
		t.Fatalf("call row = %v", rows[2])
	}
	if rows[0][1] != "reboot" || rows[0][2] != "command" {
		t.Fatalf("reboot row = %v", rows[0])
	}
}
