// Package cli provides terminal helpers shared by the rotaryphone commands.
//
// This package includes:
//   - Config file locations under ~/.rotaryphone
//   - Output formatting (YAML, JSON, table)
//   - Framed status rendering with lipgloss
//
// Example usage:
//
//	cli.Output(snapshot, cli.OutputOptions{
//	    Format: cli.FormatJSON,
//	})
package cli
