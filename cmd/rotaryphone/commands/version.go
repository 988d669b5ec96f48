package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/rotaryphone/cmd/rotaryphone/internal/build"
	"github.com/haivivi/rotaryphone/pkg/cli"
)

var versionOutput string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if versionOutput == "" {
			fmt.Println(build.String())
			if verbose {
				fmt.Printf("  config: %s\n", configPath())
			}
			return nil
		}
		format, err := cli.ParseOutputFormat(versionOutput)
		if err != nil {
			return err
		}
		return cli.Output(build.Get(), cli.OutputOptions{Format: format})
	},
}

func init() {
	versionCmd.Flags().StringVarP(&versionOutput, "output", "o", "", "output format (yaml, json)")
	rootCmd.AddCommand(versionCmd)
}
