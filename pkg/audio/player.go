package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// ErrUnknownSound is returned for sound ids missing from the sound table.
var ErrUnknownSound = errors.New("audio: unknown sound")

// Default ALSA devices of the phone's sound hardware.
const (
	DefaultSpeakerDevice  = "i2s"
	DefaultEarpieceDevice = "usb"
)

// Command is a player invocation.
type Command struct {
	Name string
	Args []string
	// Env is appended to the process environment.
	Env []string
}

func (c Command) String() string {
	s := strings.Join(append([]string{c.Name}, c.Args...), " ")
	if len(c.Env) > 0 {
		s = strings.Join(c.Env, " ") + " " + s
	}
	return s
}

// PlayCommand builds the command playing file on device.
func PlayCommand(device, file string, repeat bool) Command {
	if !repeat && strings.EqualFold(filepath.Ext(file), ".wav") {
		return Command{Name: "aplay", Args: []string{"-q", "-D", device, file}}
	}
	args := []string{"-q", file, "-t", "alsa"}
	if repeat {
		// One second of silence between repetitions.
		args = append(args, "pad", "0", "1", "repeat", "99")
	}
	return Command{Name: "play", Args: args, Env: []string{"AUDIODEV=" + device}}
}

// Playback is a started player process.
type Playback interface {
	// Stop kills the player. Stopping a finished playback is a no-op.
	Stop()

	// Done is closed when the player has exited.
	Done() <-chan struct{}
}

// Starter starts player processes.
type Starter interface {
	Start(cmd Command) (Playback, error)
}

// ExecStarter runs players with os/exec. Their output is discarded.
type ExecStarter struct{}

// Start implements Starter.
func (ExecStarter) Start(c Command) (Playback, error) {
	cmd := exec.Command(c.Name, c.Args...)
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	p := &execPlayback{cmd: cmd, done: make(chan struct{})}
	go func() {
		_ = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

type execPlayback struct {
	cmd  *exec.Cmd
	done chan struct{}
}

func (p *execPlayback) Stop() {
	select {
	case <-p.done:
		return
	default:
	}
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		slog.Warn("audio: kill player", "error", err)
	}
	<-p.done
}

func (p *execPlayback) Done() <-chan struct{} {
	return p.done
}

// Config configures a Player.
type Config struct {
	SpeakerDevice  string
	EarpieceDevice string

	// Sounds maps sound ids to files.
	Sounds map[string]string

	Starter Starter
	Logger  *slog.Logger
}

// Player plays sounds on the speaker and earpiece channels. It is safe for
// concurrent use.
type Player struct {
	sounds   map[string]string
	starter  Starter
	log      *slog.Logger
	speaker  *channel
	earpiece *channel
}

// NewPlayer creates a Player.
func NewPlayer(cfg Config) *Player {
	if cfg.SpeakerDevice == "" {
		cfg.SpeakerDevice = DefaultSpeakerDevice
	}
	if cfg.EarpieceDevice == "" {
		cfg.EarpieceDevice = DefaultEarpieceDevice
	}
	if cfg.Starter == nil {
		cfg.Starter = ExecStarter{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Player{
		sounds:   cfg.Sounds,
		starter:  cfg.Starter,
		log:      cfg.Logger,
		speaker:  &channel{name: "speaker", device: cfg.SpeakerDevice},
		earpiece: &channel{name: "earpiece", device: cfg.EarpieceDevice},
	}
}

// channel owns the player process of one output device.
type channel struct {
	name   string
	device string

	mu  sync.Mutex
	cur Playback
}

func (p *Player) play(ch *channel, sound string, repeat bool) (Playback, error) {
	file, ok := p.sounds[sound]
	if !ok || file == "" {
		return nil, fmt.Errorf("%w %q", ErrUnknownSound, sound)
	}
	cmd := PlayCommand(ch.device, file, repeat)

	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.cur != nil {
		ch.cur.Stop()
		ch.cur = nil
	}
	p.log.Debug("audio: play", "channel", ch.name, "sound", sound, "cmd", cmd.String())
	pb, err := p.starter.Start(cmd)
	if err != nil {
		return nil, fmt.Errorf("audio: start %s: %w", cmd.Name, err)
	}
	ch.cur = pb
	return pb, nil
}

func (p *Player) playAsync(ch *channel, sound string, repeat bool) {
	if _, err := p.play(ch, sound, repeat); err != nil {
		p.log.Warn("audio: skip sound", "channel", ch.name, "sound", sound, "error", err)
	}
}

func (p *Player) playWait(ctx context.Context, ch *channel, sound string) error {
	pb, err := p.play(ch, sound, false)
	if err != nil {
		return err
	}
	select {
	case <-pb.Done():
		return nil
	case <-ctx.Done():
		ch.stopIf(pb)
		return ctx.Err()
	}
}

func (ch *channel) stop() {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.cur != nil {
		ch.cur.Stop()
		ch.cur = nil
	}
}

// stopIf stops pb if it still owns the channel.
func (ch *channel) stopIf(pb Playback) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.cur == pb {
		ch.cur.Stop()
		ch.cur = nil
	}
}

// PlaySpeaker starts sound on the loudspeaker, replacing what it played.
func (p *Player) PlaySpeaker(sound string, repeat bool) {
	p.playAsync(p.speaker, sound, repeat)
}

// PlayEarpiece starts sound in the earpiece, replacing what it played.
func (p *Player) PlayEarpiece(sound string, repeat bool) {
	p.playAsync(p.earpiece, sound, repeat)
}

// PlaySpeakerWait plays sound on the loudspeaker to the end.
func (p *Player) PlaySpeakerWait(ctx context.Context, sound string) error {
	return p.playWait(ctx, p.speaker, sound)
}

// PlayEarpieceWait plays sound in the earpiece to the end.
func (p *Player) PlayEarpieceWait(ctx context.Context, sound string) error {
	return p.playWait(ctx, p.earpiece, sound)
}

// StopSpeaker silences the loudspeaker.
func (p *Player) StopSpeaker() {
	p.speaker.stop()
}

// StopEarpiece silences the earpiece.
func (p *Player) StopEarpiece() {
	p.earpiece.stop()
}

// Close silences both channels.
func (p *Player) Close() error {
	p.speaker.stop()
	p.earpiece.stop()
	return nil
}
