package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haivivi/rotaryphone/pkg/cli"
	"github.com/haivivi/rotaryphone/pkg/gpio"
	"github.com/haivivi/rotaryphone/pkg/rotary"
)

var dialTestCmd = &cobra.Command{
	Use:   "dial-test",
	Short: "Print the numbers dialed on the rotary dial",
	Long: `Run the pulse decoder alone and print the sequence after every digit.

Hanging up starts a new sequence. Stop with Ctrl+C. The phone daemon must
not be running since both read the same pins.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger(cfg)

		board, err := gpio.Open(cfg.Pins)
		if err != nil {
			return err
		}
		dec := rotary.NewDecoder(rotary.Config{
			Rotation: board.Rotation(),
			Impulse:  board.Impulse(),
			Logger:   log,
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s := cli.NewStyles(cli.DefaultTheme)
		fmt.Println(s.Title.Render("dial-test") + s.Help.Render(fmt.Sprintf("hook GPIO%d, nsa GPIO%d, nsi GPIO%d; Ctrl+C to quit",
			cfg.Pins.Hook, cfg.Pins.NSA, cfg.Pins.NSI)))

		return dialTest(ctx, dec, board, func(seq string) {
			fmt.Printf("%s %s %s\n", s.Label.Render("dialed"), seq, s.Help.Render("(digit "+seq[len(seq)-1:]+")"))
		}, func() {
			fmt.Println(s.Help.Render("hung up, new sequence"))
		})
	},
}

// dialTest runs dial sessions until ctx is done, starting a new one each
// time the handset is put down. It returns once the hook watcher stopped;
// the error is that of the watcher unless it merely saw ctx end.
func dialTest(ctx context.Context, dec *rotary.Decoder, board *gpio.Board, onDigit func(string), onReset func()) error {
	sess := dec.Start(onDigit)

	watchErr := make(chan error, 1)
	go func() {
		watchErr <- board.WatchHook(ctx, gpio.DefaultDebounce, func(onHook bool) {
			if !onHook {
				return
			}
			sess.Cancel()
			sess = dec.Start(onDigit)
			onReset()
		})
	}()

	// The watcher owns sess until it returns.
	err := <-watchErr
	sess.Cancel()
	sess.Wait()

	if err == nil || (ctx.Err() != nil && errors.Is(err, ctx.Err())) {
		return nil
	}
	return fmt.Errorf("watch hook: %w", err)
}

func init() {
	rootCmd.AddCommand(dialTestCmd)
}
