// Package config loads the rotaryphone configuration file.
//
// The file is YAML and lives at ~/.rotaryphone/config.yaml unless --config
// names another path:
//
//	pins: {hook: 15, nsa: 24, nsi: 23}
//	sip: {host: fritz.box, user: "620", password: secret}
//	network: {probe_host: fritz.box, connected_interval: 60s}
//	dialing: {timeout: 60s, max_length: 5}
//	dnd: {enabled: true, morning: 7, evening: 21}
//	numbers:
//	  "1": "030123456"
//	  "99": test-loudspeaker
//
// Unknown keys are rejected. Durations accept Go syntax ("1m30s") or a
// plain number of seconds.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/haivivi/rotaryphone/pkg/audio"
	"github.com/haivivi/rotaryphone/pkg/calllog"
	"github.com/haivivi/rotaryphone/pkg/gpio"
	"github.com/haivivi/rotaryphone/pkg/linphone"
	"github.com/haivivi/rotaryphone/pkg/phone"
	"github.com/haivivi/rotaryphone/pkg/probe"
)

// DefaultStatusAddr is where the status server listens unless configured.
const DefaultStatusAddr = "127.0.0.1:8321"

// DefaultSoundDir holds the sound files referenced by the default table.
const DefaultSoundDir = "/opt/rotaryphone/sounds"

// Config is the root of the configuration file.
type Config struct {
	Pins      gpio.Pins               `yaml:"pins" json:"pins"`
	SIP       SIP                     `yaml:"sip" json:"sip"`
	Network   Network                 `yaml:"network" json:"network"`
	Dialing   Dialing                 `yaml:"dialing" json:"dialing"`
	Calls     Calls                   `yaml:"calls" json:"calls"`
	DND       DND                     `yaml:"dnd" json:"dnd"`
	Whitelist Whitelist               `yaml:"whitelist" json:"whitelist"`
	Numbers   map[string]phone.Action `yaml:"numbers" json:"numbers"`
	Audio     Audio                   `yaml:"audio" json:"audio"`
	CallLog   CallLog                 `yaml:"call_log" json:"call_log"`
	Status    Status                  `yaml:"status" json:"status"`
	Log       Log                     `yaml:"log" json:"log"`
}

// SIP configures the linphonec softphone.
type SIP struct {
	Binary   string   `yaml:"binary" json:"binary"`
	Args     []string `yaml:"args,omitempty" json:"args,omitempty"`
	Host     string   `yaml:"host" json:"host"`
	User     string   `yaml:"user" json:"user"`
	Password string   `yaml:"password" json:"password"`
}

// Network configures the connectivity watchdog.
type Network struct {
	// ProbeHost defaults to the SIP host.
	ProbeHost            string   `yaml:"probe_host" json:"probe_host"`
	ProbePort            int      `yaml:"probe_port" json:"probe_port"`
	ProbeTimeout         Duration `yaml:"probe_timeout" json:"probe_timeout"`
	ProbeDelay           Duration `yaml:"probe_delay" json:"probe_delay"`
	ConnectedInterval    Duration `yaml:"connected_interval" json:"connected_interval"`
	DisconnectedInterval Duration `yaml:"disconnected_interval" json:"disconnected_interval"`
}

// Dialing configures dial sessions.
type Dialing struct {
	Timeout   Duration `yaml:"timeout" json:"timeout"`
	MaxLength int      `yaml:"max_length" json:"max_length"`
}

// Calls configures call handling.
type Calls struct {
	// MaxDuration cuts outgoing calls; 0 means unlimited.
	MaxDuration Duration `yaml:"max_duration" json:"max_duration"`
	CountryCode string   `yaml:"country_code" json:"country_code"`
	// Ringtones maps caller numbers to sound ids.
	Ringtones map[string]string `yaml:"ringtones,omitempty" json:"ringtones,omitempty"`
}

// DND configures the quiet hours. Evening is the hour the window opens,
// Morning the hour it closes.
type DND struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	Morning int  `yaml:"morning" json:"morning"`
	Evening int  `yaml:"evening" json:"evening"`
}

// Whitelist restricts ringing to known callers when enabled.
type Whitelist struct {
	Enabled bool              `yaml:"enabled" json:"enabled"`
	Numbers map[string]string `yaml:"numbers,omitempty" json:"numbers,omitempty"`
}

// Audio configures the sound devices and the sound table.
type Audio struct {
	SpeakerDevice  string            `yaml:"speaker_device" json:"speaker_device"`
	EarpieceDevice string            `yaml:"earpiece_device" json:"earpiece_device"`
	Sounds         map[string]string `yaml:"sounds" json:"sounds"`
}

// CallLog configures the in-memory call journal.
type CallLog struct {
	MaxRecords int `yaml:"max_records" json:"max_records"`
}

// Status configures the local status endpoint.
type Status struct {
	Addr string `yaml:"addr" json:"addr"`
}

// Log configures logging.
type Log struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Default returns the configuration used for keys absent from the file.
func Default() *Config {
	sounds := make(map[string]string, len(phone.Sounds))
	for _, s := range phone.Sounds {
		sounds[s] = filepath.Join(DefaultSoundDir, s+".wav")
	}
	return &Config{
		Pins: gpio.DefaultPins,
		SIP:  SIP{Binary: linphone.DefaultBinary},
		Network: Network{
			ProbePort:            probe.DefaultPort,
			ProbeTimeout:         Duration(phone.DefaultProbeTimeout),
			ConnectedInterval:    Duration(phone.DefaultConnectedInterval),
			DisconnectedInterval: Duration(phone.DefaultDisconnectedInterval),
		},
		Dialing: Dialing{
			Timeout:   Duration(phone.DefaultDialTimeout),
			MaxLength: phone.DefaultMaxDialLength,
		},
		Calls: Calls{CountryCode: phone.DefaultCountryCode},
		DND:   DND{Morning: 7, Evening: 21},
		Audio: Audio{
			SpeakerDevice:  audio.DefaultSpeakerDevice,
			EarpieceDevice: audio.DefaultEarpieceDevice,
			Sounds:         sounds,
		},
		CallLog: CallLog{MaxRecords: calllog.DefaultMaxRecords},
		Status:  Status{Addr: DefaultStatusAddr},
		Log:     Log{Level: "info", Format: "text"},
	}
}

// Template returns a starting configuration for "config init".
func Template() *Config {
	c := Default()
	c.SIP.Host = "fritz.box"
	c.SIP.User = "620"
	c.SIP.Password = "changeme"
	c.DND.Enabled = true
	c.Numbers = map[string]phone.Action{
		"1":    phone.MustParseAction("030123456"),
		"99":   phone.MustParseAction("test-loudspeaker"),
		"98":   phone.MustParseAction("test-earpiece"),
		"5":    phone.MustParseAction("toggle-dnd"),
		"0000": phone.MustParseAction("reboot"),
		"0001": phone.MustParseAction("shutdown"),
	}
	return c
}

// Load reads the file at path on top of Default and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the phone cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.SIP.Host == "" {
		errs = append(errs, errors.New("sip.host is required"))
	}
	if c.SIP.User == "" {
		errs = append(errs, errors.New("sip.user is required"))
	}
	if c.Dialing.MaxLength < 1 {
		errs = append(errs, fmt.Errorf("dialing.max_length must be positive, got %d", c.Dialing.MaxLength))
	}
	if !validHour(c.DND.Morning) || !validHour(c.DND.Evening) {
		errs = append(errs, fmt.Errorf("dnd hours must be within 0..23, got morning %d evening %d", c.DND.Morning, c.DND.Evening))
	}
	if c.Network.ProbePort < 0 || c.Network.ProbePort > 65535 {
		errs = append(errs, fmt.Errorf("network.probe_port %d out of range", c.Network.ProbePort))
	}
	for _, seq := range c.sortedNumbers() {
		if !isDigits(seq) {
			errs = append(errs, fmt.Errorf("numbers: %q cannot be dialed on a rotary dial", seq))
		}
	}
	for number, sound := range c.Calls.Ringtones {
		if _, ok := c.Audio.Sounds[sound]; !ok {
			errs = append(errs, fmt.Errorf("calls.ringtones: %s uses unknown sound %q", number, sound))
		}
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if f := c.Log.Format; f != "" && f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", f))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func validHour(h int) bool { return h >= 0 && h <= 23 }

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (c *Config) sortedNumbers() []string {
	keys := make([]string, 0, len(c.Numbers))
	for k := range c.Numbers {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// SlogLevel parses Log.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if c.Log.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}

// Masked returns a copy safe for printing.
func (c *Config) Masked() *Config {
	m := *c
	if m.SIP.Password != "" {
		m.SIP.Password = "***"
	}
	return &m
}

// QuietHours returns the quiet-hours window.
func (c *Config) QuietHours() phone.QuietHours {
	return phone.QuietHours{Enabled: c.DND.Enabled, Morning: c.DND.Morning, Evening: c.DND.Evening}
}

// WhitelistNumbers returns the allowed callers, or nil when the whitelist
// is disabled.
func (c *Config) WhitelistNumbers() []string {
	if !c.Whitelist.Enabled {
		return nil
	}
	numbers := make([]string, 0, len(c.Whitelist.Numbers))
	for _, n := range c.Whitelist.Numbers {
		numbers = append(numbers, strings.TrimSpace(n))
	}
	slices.Sort(numbers)
	return numbers
}

// Probe returns the connectivity probe.
func (c *Config) Probe() probe.TCP {
	host := c.Network.ProbeHost
	if host == "" {
		host = c.SIP.Host
	}
	return probe.TCP{Host: host, Port: c.Network.ProbePort, Timeout: c.Network.ProbeTimeout.Std()}
}

// Linphone returns the bridge configuration without handler and logger.
func (c *Config) Linphone() linphone.Config {
	return linphone.Config{
		Binary:   c.SIP.Binary,
		Args:     c.SIP.Args,
		Host:     c.SIP.Host,
		User:     c.SIP.User,
		Password: c.SIP.Password,
	}
}

// Player returns the audio configuration without starter and logger.
func (c *Config) Player() audio.Config {
	return audio.Config{
		SpeakerDevice:  c.Audio.SpeakerDevice,
		EarpieceDevice: c.Audio.EarpieceDevice,
		Sounds:         c.Audio.Sounds,
	}
}

// Phone returns the orchestrator policy settings. The caller supplies the
// collaborators.
func (c *Config) Phone() phone.Config {
	return phone.Config{
		Numbers:              c.Numbers,
		MaxDialLength:        c.Dialing.MaxLength,
		DialTimeout:          c.Dialing.Timeout.Std(),
		MaxCallDuration:      c.Calls.MaxDuration.Std(),
		QuietHours:           c.QuietHours(),
		Whitelist:            c.WhitelistNumbers(),
		CountryCode:          c.Calls.CountryCode,
		Ringtones:            c.Calls.Ringtones,
		ProbeTimeout:         c.Network.ProbeTimeout.Std(),
		ProbeDelay:           c.Network.ProbeDelay.Std(),
		ConnectedInterval:    c.Network.ConnectedInterval.Std(),
		DisconnectedInterval: c.Network.DisconnectedInterval.Std(),
	}
}
