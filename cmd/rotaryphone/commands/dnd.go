package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/rotaryphone/pkg/cli"
)

var dndAddrFlag string

var dndCmd = &cobra.Command{
	Use:       "dnd on|off",
	Short:     "Switch do-not-disturb of a running phone",
	Long:      "Switch the manual do-not-disturb override. Quiet hours apply regardless.",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var on bool
		switch args[0] {
		case "on":
			on = true
		case "off":
		default:
			return fmt.Errorf("expected on or off, got %q", args[0])
		}
		if err := newStatusClient(statusAddr(dndAddrFlag)).SetDoNotDisturb(on); err != nil {
			return err
		}
		cli.PrintSuccess("do not disturb %s", cli.OnOff(on))
		return nil
	},
}

func init() {
	dndCmd.Flags().StringVar(&dndAddrFlag, "addr", "", "status endpoint address")
	rootCmd.AddCommand(dndCmd)
}
