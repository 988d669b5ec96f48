package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/haivivi/rotaryphone/cmd/rotaryphone/internal/config"
	"github.com/haivivi/rotaryphone/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "rotaryphone",
	Short: "Turn a rotary telephone into a SIP phone",
	Long: `rotaryphone drives a rotary telephone wired to a Raspberry Pi.

It reads the hook switch and the rotary dial from GPIO, plays tones on the
loudspeaker and in the earpiece, and places and answers calls through
linphonec.

Configuration is read from ~/.rotaryphone/config.yaml unless --config
names another file.

Examples:
  # Write a starting config and edit it
  rotaryphone config init
  rotaryphone config validate

  # Run the phone with the status endpoint
  rotaryphone run --status-addr 127.0.0.1:8321

  # Inspect a running phone
  rotaryphone status --calls
  rotaryphone dnd on`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.rotaryphone/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// configPath returns the --config value or the default location.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return cli.DefaultConfigPath()
}

// loadConfig loads and validates the config file.
func loadConfig() (*config.Config, error) {
	path := configPath()
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config %s not found; create one with 'rotaryphone config init'", path)
		}
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the process logger from the log section. --verbose
// forces debug output.
func newLogger(cfg *config.Config) *slog.Logger {
	level, _ := cfg.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
