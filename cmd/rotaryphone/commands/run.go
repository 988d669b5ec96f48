package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haivivi/rotaryphone/cmd/rotaryphone/internal/config"
	"github.com/haivivi/rotaryphone/pkg/audio"
	"github.com/haivivi/rotaryphone/pkg/calllog"
	"github.com/haivivi/rotaryphone/pkg/gpio"
	"github.com/haivivi/rotaryphone/pkg/phone"
	"github.com/haivivi/rotaryphone/pkg/power"
	"github.com/haivivi/rotaryphone/pkg/rotary"
)

var (
	runStatusAddr string
	runDryRun     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the phone",
	Long: `Run the phone until SIGINT or SIGTERM, or until a reboot or shutdown
number is dialed.

With --status-addr (or status.addr in the config) a local HTTP endpoint
serves GET /status, GET /calls and POST /dnd. Pass --status-addr "" to
disable it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("status-addr") {
			cfg.Status.Addr = runStatusAddr
		}

		log := newLogger(cfg)
		slog.SetDefault(log)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		board, err := gpio.Open(cfg.Pins)
		if err != nil {
			return err
		}
		return runPhone(ctx, cfg, board, log)
	},
}

// runPhone assembles the phone on board and runs it until ctx is done or a
// power action ends it.
func runPhone(ctx context.Context, cfg *config.Config, board *gpio.Board, log *slog.Logger) error {
	player := audio.NewPlayer(withAudioLogger(cfg.Player(), log))
	defer player.Close()

	journal, err := calllog.Open(calllog.Options{MaxRecords: cfg.CallLog.MaxRecords, Logger: log})
	if err != nil {
		return err
	}
	defer journal.Close()

	dec := rotary.NewDecoder(rotary.Config{
		Rotation: board.Rotation(),
		Impulse:  board.Impulse(),
		Logger:   log,
	})

	sip := cfg.Linphone()
	sip.Logger = log

	pc := cfg.Phone()
	pc.Audio = player
	pc.Bridges = phone.LinphoneBridges(sip)
	pc.Dialer = phone.RotaryDialer(dec)
	pc.Prober = cfg.Probe()
	pc.Power = power.Systemd{DryRun: runDryRun, Logger: log}
	pc.CallLog = journal
	pc.Hook = func() phone.HookState { return hookState(board.OnHook()) }
	pc.Logger = log

	orch, err := phone.New(pc)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		err := board.WatchHook(ctx, gpio.DefaultDebounce, func(onHook bool) {
			orch.HookChanged(hookState(onHook))
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("hook watcher stopped", "error", err)
		}
	}()

	if addr := cfg.Status.Addr; addr != "" {
		go func() {
			err := serveStatus(ctx, addr, newStatusHandler(orch, journal, log), log)
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("status server stopped", "error", err)
			}
		}()
	}

	log.Info("rotaryphone running", "sip", fmt.Sprintf("%s@%s", cfg.SIP.User, cfg.SIP.Host), "numbers", len(cfg.Numbers))
	err = orch.Run(ctx)
	switch {
	// Run returns the bare sentinel when the power request succeeded.
	case err == phone.ErrRebooting, err == phone.ErrPoweringOff:
		log.Info("rotaryphone stopping", "reason", err)
		return nil
	case err != nil:
		return err
	}
	log.Info("rotaryphone stopped")
	return nil
}

func hookState(onHook bool) phone.HookState {
	if onHook {
		return phone.OnHook
	}
	return phone.OffHook
}

func withAudioLogger(c audio.Config, log *slog.Logger) audio.Config {
	c.Logger = log
	return c
}

func init() {
	runCmd.Flags().StringVar(&runStatusAddr, "status-addr", config.DefaultStatusAddr, "status endpoint address")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run-power", false, "log reboot and shutdown instead of executing them")
	rootCmd.AddCommand(runCmd)
}
