package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/haivivi/rotaryphone/cmd/rotaryphone/internal/config"
	"github.com/haivivi/rotaryphone/pkg/cli"
)

var (
	configForce         bool
	configOutput        string
	configReveal        bool
	configNumbersOutput string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Create, show or validate the config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starting config file",
	Long: `Write a starting config file with example numbers.

The file is created at ~/.rotaryphone/config.yaml or at the --config path.
An existing file is only replaced with --force.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath()
		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("%s already exists; use --force to overwrite", path)
		} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		if err := config.Save(path, config.Template()); err != nil {
			return err
		}
		cli.PrintSuccess("wrote %s", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults are applied.

The SIP password is masked unless --reveal is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cli.ParseOutputFormat(configOutput)
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !configReveal {
			cfg = cfg.Masked()
		}
		return cli.Output(cfg, cli.OutputOptions{Format: format})
	},
}

var configNumbersCmd = &cobra.Command{
	Use:   "numbers",
	Short: "List what each dialed sequence does",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cli.ParseOutputFormat(configNumbersOutput)
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return cli.Output(cfg.Directory(), cli.OutputOptions{Format: format})
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cli.PrintSuccess("%s is valid (%d numbers)", configPath(), len(cfg.Numbers))
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")
	configShowCmd.Flags().StringVarP(&configOutput, "output", "o", "yaml", "output format (yaml, json)")
	configShowCmd.Flags().BoolVar(&configReveal, "reveal", false, "show the SIP password")
	configNumbersCmd.Flags().StringVarP(&configNumbersOutput, "output", "o", "table", "output format (table, yaml, json)")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configNumbersCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}
