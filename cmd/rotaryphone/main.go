// Package main is the entry point of the rotaryphone daemon and its tools.
//
// Usage:
//
//	rotaryphone [flags] <command> [subcommand] [args]
//
// Commands:
//
//	run        - Run the phone
//	dial-test  - Print the numbers dialed on the rotary dial
//	config     - Create, show or validate the config file
//	status     - Show the state of a running phone
//	dnd        - Switch do-not-disturb of a running phone
//	version    - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/haivivi/rotaryphone/cmd/rotaryphone/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
