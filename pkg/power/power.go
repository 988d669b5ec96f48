// Package power reboots or powers off the host through systemd.
package power

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Runner runs a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Systemd requests power state changes with systemctl. With DryRun set the
// commands are only logged.
type Systemd struct {
	DryRun bool
	Run    Runner
	Logger *slog.Logger
}

// Reboot runs "systemctl reboot -i".
func (s Systemd) Reboot(ctx context.Context) error {
	return s.systemctl(ctx, "reboot", "-i")
}

// PowerOff runs "systemctl poweroff -i".
func (s Systemd) PowerOff(ctx context.Context) error {
	return s.systemctl(ctx, "poweroff", "-i")
}

func (s Systemd) systemctl(ctx context.Context, args ...string) error {
	log := s.Logger
	if log == nil {
		log = slog.Default()
	}
	if s.DryRun {
		log.Info("power: dry run", "cmd", "systemctl "+strings.Join(args, " "))
		return nil
	}
	run := s.Run
	if run == nil {
		run = execRunner
	}
	log.Info("power: systemctl", "args", args)
	out, err := run(ctx, "systemctl", args...)
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("power: systemctl %s: %w: %s", args[0], err, msg)
		}
		return fmt.Errorf("power: systemctl %s: %w", args[0], err)
	}
	return nil
}
