package config

import "github.com/haivivi/rotaryphone/pkg/phone"

// Entry is one dialable sequence of the directory.
type Entry struct {
	Digits string       `yaml:"digits" json:"digits"`
	Action phone.Action `yaml:"action" json:"action"`
}

// Directory lists the configured numbers in dialing order.
type Directory []Entry

// Directory returns the numbers table sorted by digits.
func (c *Config) Directory() Directory {
	d := make(Directory, 0, len(c.Numbers))
	for _, seq := range c.sortedNumbers() {
		d = append(d, Entry{Digits: seq, Action: c.Numbers[seq]})
	}
	return d
}

func (d Directory) TableHeaders() []string {
	return []string{"DIAL", "ACTION", "KIND"}
}

func (d Directory) TableRows() [][]string {
	rows := make([][]string, 0, len(d))
	for _, e := range d {
		kind := "command"
		if e.Action.Kind == phone.ActionCall {
			kind = "call"
		}
		rows = append(rows, []string{e.Digits, e.Action.String(), kind})
	}
	return rows
}
