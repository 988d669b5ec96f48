package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/rotaryphone/pkg/calllog"
	"github.com/haivivi/rotaryphone/pkg/cli"
	"github.com/haivivi/rotaryphone/pkg/phone"
)

var (
	statusAddrFlag string
	statusCalls    bool
	statusBridge   bool
	statusLimit    int
	statusOutput   string
)

const frameWidth = 64

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of a running phone",
	Long: `Query the status endpoint of a running 'rotaryphone run'.

The address defaults to status.addr of the config file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cli.ParseOutputFormat(statusOutput)
		if err != nil {
			return err
		}
		c := newStatusClient(statusAddr(statusAddrFlag))

		snap, err := c.Snapshot()
		if err != nil {
			return err
		}
		var records []calllog.Record
		if statusCalls {
			if records, err = c.Calls(statusLimit); err != nil {
				return err
			}
		}

		var transcript []string
		if statusBridge {
			if transcript, err = c.Transcript(); err != nil {
				return err
			}
		}

		if format != cli.FormatTable {
			if statusCalls || statusBridge {
				report := statusReport{Phone: snap, Calls: records, Bridge: transcript}
				return cli.Output(report, cli.OutputOptions{Format: format})
			}
			return cli.Output(snap, cli.OutputOptions{Format: format})
		}
		view := statusView{snap: snap, calls: records, withCalls: statusCalls, transcript: transcript, withBridge: statusBridge}
		fmt.Println(view.render(cli.NewStyles(cli.DefaultTheme)))
		return nil
	},
}

// statusReport is the structured output of "status --calls" and
// "status --bridge".
type statusReport struct {
	Phone  phone.Snapshot   `json:"phone" yaml:"phone"`
	Calls  []calllog.Record `json:"calls,omitempty" yaml:"calls,omitempty"`
	Bridge []string         `json:"bridge,omitempty" yaml:"bridge,omitempty"`
}

// statusView is what the table output of "status" shows.
type statusView struct {
	snap       phone.Snapshot
	calls      []calllog.Record
	withCalls  bool
	transcript []string
	withBridge bool
}

func (v statusView) render(s cli.Styles) string {
	snap := v.snap
	dnd := cli.OnOff(snap.DoNotDisturb)
	if snap.QuietHours {
		dnd += " (quiet hours)"
	}
	call := snap.Call.String()
	if snap.Number != "" {
		call += " " + snap.Number
	}
	dial := "-"
	if snap.Dialing {
		dial = "dialing " + snap.Sequence
	}
	f := cli.Frame{
		Styles: s,
		Title:  "rotaryphone",
		Status: snap.Connectivity.String(),
		Sections: []cli.Section{{
			Label: "Phone",
			Lines: cli.KeyValues(s,
				"hook", snap.Hook.String(),
				"call", call,
				"dial", dial,
				"bridge", bridgeLine(snap),
				"dnd", dnd,
			),
		}},
		Help: "at " + cli.FormatClock(snap.Time, snap.Time),
	}
	if v.withCalls {
		f.Sections = append(f.Sections, cli.Section{
			Label: "Calls",
			Lines: callLines(s, v.calls, snap.Time),
		})
	}
	if v.withBridge {
		lines := v.transcript
		if len(lines) == 0 {
			lines = []string{s.Help.Render("no output")}
		}
		f.Sections = append(f.Sections, cli.Section{Label: "Bridge", Lines: lines})
	}
	return f.Render(frameWidth, 0)
}

func bridgeLine(snap phone.Snapshot) string {
	var state string
	switch {
	case !snap.BridgeAlive:
		return "down"
	case snap.Registered:
		state = "registered"
	default:
		state = "running"
	}
	if !snap.BridgeOutput.IsZero() {
		state += ", output " + cli.FormatClock(snap.BridgeOutput, snap.Time)
	}
	return state
}

func callLines(s cli.Styles, records []calllog.Record, now time.Time) []string {
	if len(records) == 0 {
		return []string{s.Help.Render("no calls")}
	}
	lines := make([]string, 0, len(records))
	for _, r := range records {
		arrow := "←"
		if r.Direction == calllog.Outgoing {
			arrow = "→"
		}
		outcome := string(r.Outcome)
		switch r.Outcome {
		case calllog.Missed, calllog.Declined, calllog.Failed:
			outcome = s.Alert.Render(outcome)
		}
		line := fmt.Sprintf("%s %s %-16s %s", cli.FormatClock(r.Start, now), arrow, r.Number, outcome)
		if r.Outcome == calllog.Completed {
			line += " " + cli.FormatDuration(r.Duration())
		}
		if r.Reason != "" {
			line += " " + s.Help.Render("("+r.Reason+")")
		}
		lines = append(lines, line)
	}
	return lines
}

func init() {
	statusCmd.Flags().StringVar(&statusAddrFlag, "addr", "", "status endpoint address")
	statusCmd.Flags().BoolVar(&statusCalls, "calls", false, "include the recent call journal")
	statusCmd.Flags().BoolVar(&statusBridge, "bridge", false, "include the recent output of the SIP bridge")
	statusCmd.Flags().IntVarP(&statusLimit, "limit", "n", 10, "number of calls to show")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "output format (table, yaml, json)")
	rootCmd.AddCommand(statusCmd)
}
