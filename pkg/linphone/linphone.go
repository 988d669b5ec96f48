// Package linphone supervises a linphonec process and turns its console
// output into call events.
//
// linphonec is driven over its standard input with one command per line and
// reports call progress as free text on standard output. A [Client] writes the
// registration command on start, reads the output on its own goroutine and
// delivers [Event]s to the configured handler. Commands sent after the process
// died fail fast with [ErrNotRunning].
package linphone

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrNotRunning is returned by commands when the process is not alive.
var ErrNotRunning = errors.New("linphone: client not running")

// DefaultBinary is the linphonec location on Raspberry Pi OS.
const DefaultBinary = "/usr/bin/linphonec"

// DefaultTranscriptSize is the number of output lines kept for diagnostics.
const DefaultTranscriptSize = 64

// EventType identifies a call lifecycle event.
type EventType int

const (
	// EventBooted fires once, on the first non-empty output line.
	EventBooted EventType = iota + 1
	EventIncomingCall
	EventCallActive
	EventCallEnded
	EventRegistration
	// EventExited fires once when the output stream ends.
	EventExited
)

func (t EventType) String() string {
	switch t {
	case EventBooted:
		return "booted"
	case EventIncomingCall:
		return "incoming_call"
	case EventCallActive:
		return "call_active"
	case EventCallEnded:
		return "call_ended"
	case EventRegistration:
		return "registration"
	case EventExited:
		return "exited"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event is a classified output line.
type Event struct {
	Type EventType

	// CallerID is the user part of the caller's SIP URI (IncomingCall).
	CallerID string

	// CallID is linphonec's numeric call id, when the line carries one.
	CallID string

	// Establishing is set on the CallActive event of an accepted outbound
	// call command. The far end has not answered yet.
	Establishing bool

	// Proxy and Registered describe a registration result.
	Proxy      string
	Registered bool

	// Line is the cleaned output line the event was parsed from.
	Line string
	Time time.Time
}

// Config configures a Client.
type Config struct {
	// Binary is the linphonec executable. Defaults to DefaultBinary.
	Binary string
	Args   []string

	// Host is the SIP registrar and the domain used for outbound calls.
	Host     string
	User     string
	Password string

	// Spawner starts the process. Defaults to ExecSpawner.
	Spawner Spawner

	// Handler receives events on the reader goroutine. It should not block
	// for long; the orchestrator only enqueues.
	Handler func(Event)

	TranscriptSize int
	Logger         *slog.Logger
}

func (c *Config) setDefaults() {
	if c.Binary == "" {
		c.Binary = DefaultBinary
	}
	if c.Spawner == nil {
		c.Spawner = ExecSpawner{}
	}
	if c.Handler == nil {
		c.Handler = func(Event) {}
	}
	if c.TranscriptSize <= 0 {
		c.TranscriptSize = DefaultTranscriptSize
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Client is a supervised linphonec process.
type Client struct {
	cfg  Config
	proc Process

	wmu sync.Mutex
	w   *bufio.Writer

	killed   atomic.Bool
	booted   atomic.Bool
	lastSeen atomic.Int64

	tmu        sync.Mutex
	transcript []string
	tnext      int
}

// Start spawns linphonec, starts the output reader and registers the account.
func Start(ctx context.Context, cfg Config) (*Client, error) {
	cfg.setDefaults()

	proc, err := cfg.Spawner.Spawn(ctx, cfg.Binary, cfg.Args...)
	if err != nil {
		return nil, fmt.Errorf("linphone: spawn %s: %w", cfg.Binary, err)
	}

	c := &Client{
		cfg:        cfg,
		proc:       proc,
		w:          bufio.NewWriter(proc),
		transcript: make([]string, 0, cfg.TranscriptSize),
	}
	go c.readLoop()

	if err := c.Register(); err != nil {
		c.Kill()
		return nil, err
	}
	return c, nil
}

// Register sends the account registration command.
func (c *Client) Register() error {
	cmd := fmt.Sprintf("register sip:%s@%s %s %s", c.cfg.User, c.cfg.Host, c.cfg.Host, c.cfg.Password)
	return c.send(cmd, fmt.Sprintf("register sip:%s@%s %s ***", c.cfg.User, c.cfg.Host, c.cfg.Host))
}

// Call dials number at the configured host.
func (c *Client) Call(number string) error {
	cmd := fmt.Sprintf("call sip:%s@%s", number, c.cfg.Host)
	return c.send(cmd, cmd)
}

// Hangup terminates the current call.
func (c *Client) Hangup() error {
	return c.send("terminate", "terminate")
}

// Answer accepts the pending incoming call.
func (c *Client) Answer() error {
	return c.send("answer", "answer")
}

func (c *Client) send(cmd, logged string) error {
	if !c.Alive() {
		c.cfg.Logger.Warn("linphone: dropping command, client not running", "cmd", logged)
		return ErrNotRunning
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.cfg.Logger.Debug("linphone: send", "cmd", logged)
	if _, err := c.w.WriteString(cmd + "\n"); err != nil {
		return fmt.Errorf("linphone: write %q: %w", logged, err)
	}
	if err := c.w.Flush(); err != nil {
		return fmt.Errorf("linphone: flush %q: %w", logged, err)
	}
	return nil
}

// Alive reports whether the process is running. It never blocks.
func (c *Client) Alive() bool {
	return !c.killed.Load() && c.proc.Alive()
}

// Kill terminates the process immediately. Repeated calls are no-ops.
func (c *Client) Kill() {
	if !c.killed.CompareAndSwap(false, true) {
		return
	}
	if err := c.proc.Kill(); err != nil {
		c.cfg.Logger.Warn("linphone: kill", "error", err)
	}
}

// LastSeen returns the time of the last output line, or the zero time.
func (c *Client) LastSeen() time.Time {
	ns := c.lastSeen.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Transcript returns the most recent non-empty output lines, oldest first.
func (c *Client) Transcript() []string {
	c.tmu.Lock()
	defer c.tmu.Unlock()
	if len(c.transcript) < c.cfg.TranscriptSize {
		return append([]string(nil), c.transcript...)
	}
	out := make([]string, 0, len(c.transcript))
	out = append(out, c.transcript[c.tnext:]...)
	return append(out, c.transcript[:c.tnext]...)
}

func (c *Client) record(line string) {
	c.tmu.Lock()
	defer c.tmu.Unlock()
	if len(c.transcript) < c.cfg.TranscriptSize {
		c.transcript = append(c.transcript, line)
		return
	}
	c.transcript[c.tnext] = line
	c.tnext = (c.tnext + 1) % len(c.transcript)
}

func (c *Client) readLoop() {
	out := c.proc.Stdout()
	sc := bufio.NewScanner(out)
	sc.Buffer(make([]byte, 0, 4096), 64*1024)
	for sc.Scan() {
		now := time.Now()
		c.lastSeen.Store(now.UnixNano())

		line := cleanLine(sc.Text())
		if line == "" {
			continue
		}
		c.record(line)

		if c.booted.CompareAndSwap(false, true) {
			c.cfg.Logger.Info("linphone: booted")
			c.cfg.Handler(Event{Type: EventBooted, Line: line, Time: now})
		}

		ev, kind := classify(line)
		switch kind {
		case lineNoise:
		case lineUnknown:
			c.cfg.Logger.Debug("linphone: unrecognized output", "line", line)
		case lineEvent:
			ev.Time = now
			c.cfg.Logger.Debug("linphone: event", "type", ev.Type, "line", line)
			c.cfg.Handler(ev)
		}
	}
	if err := sc.Err(); err != nil && !c.killed.Load() {
		c.cfg.Logger.Warn("linphone: read output", "error", err)
	}
	if rc, ok := out.(io.Closer); ok {
		rc.Close()
	}

	c.cfg.Logger.Info("linphone: process exited", "killed", c.killed.Load())
	c.cfg.Handler(Event{Type: EventExited, Time: time.Now()})
}

