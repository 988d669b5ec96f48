package cli

import (
	"fmt"
	"time"
)

// FormatDuration formats a call duration: "850ms", "12.5s", "3m5.0s".
func FormatDuration(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	secs := float64(ms) / 1000
	if secs < 60 {
		return fmt.Sprintf("%.1fs", secs)
	}
	mins := int(secs / 60)
	secs = secs - float64(mins*60)
	return fmt.Sprintf("%dm%.1fs", mins, secs)
}

// FormatClock formats t as a local wall clock time, with the date when t is
// not on the same day as now.
func FormatClock(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	t = t.Local()
	y1, m1, d1 := t.Date()
	y2, m2, d2 := now.Local().Date()
	if y1 == y2 && m1 == m2 && d1 == d2 {
		return t.Format("15:04:05")
	}
	return t.Format("2006-01-02 15:04")
}

// OnOff renders a flag as "on" or "off".
func OnOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
