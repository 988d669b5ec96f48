package linphone

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Process is a running signaling client. Writes go to its standard input.
type Process interface {
	io.Writer

	// Stdout returns the process output stream. It reaches EOF once the
	// process has exited. The client closes it after EOF when it is an
	// io.Closer.
	Stdout() io.Reader

	// Alive reports whether the process is still running. It never blocks.
	Alive() bool

	// Kill terminates the process immediately.
	Kill() error
}

// Spawner starts signaling client processes.
type Spawner interface {
	Spawn(ctx context.Context, binary string, args ...string) (Process, error)
}

// SpawnerFunc adapts a function to a Spawner.
type SpawnerFunc func(ctx context.Context, binary string, args ...string) (Process, error)

// Spawn implements Spawner.
func (f SpawnerFunc) Spawn(ctx context.Context, binary string, args ...string) (Process, error) {
	return f(ctx, binary, args...)
}

// ExecSpawner spawns processes with os/exec. Standard error is discarded.
type ExecSpawner struct{}

// Spawn implements Spawner.
func (ExecSpawner) Spawn(ctx context.Context, binary string, args ...string) (Process, error) {
	cmd := exec.CommandContext(ctx, binary, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	// A plain pipe instead of StdoutPipe: Wait must be free to run while the
	// reader still drains buffered output.
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stdout = w

	if err := cmd.Start(); err != nil {
		r.Close()
		w.Close()
		return nil, err
	}
	w.Close()

	p := &execProcess{
		cmd:    cmd,
		stdin:  stdin,
		stdout: r,
		exited: make(chan struct{}),
	}
	go p.wait()
	return p, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *os.File
	exited chan struct{}
}

func (p *execProcess) wait() {
	_ = p.cmd.Wait()
	p.stdin.Close()
	close(p.exited)
}

func (p *execProcess) Write(b []byte) (int, error) {
	return p.stdin.Write(b)
}

func (p *execProcess) Stdout() io.Reader {
	return p.stdout
}

func (p *execProcess) Alive() bool {
	select {
	case <-p.exited:
		return false
	default:
		return true
	}
}

func (p *execProcess) Kill() error {
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
