package phone

import (
	"strings"
	"time"
)

// DefaultCountryCode is the country code used for caller id normalization.
const DefaultCountryCode = "49"

// QuietHours is the do-not-disturb window. Ringing is suppressed from the
// Evening hour until the Morning hour, both in local time, 0-23.
type QuietHours struct {
	Enabled bool
	Morning int
	Evening int
}

// Contains reports whether t falls inside the window. A window whose bounds
// are equal is empty.
func (q QuietHours) Contains(t time.Time) bool {
	if !q.Enabled || q.Morning == q.Evening {
		return false
	}
	h := t.Hour()
	if q.Evening > q.Morning {
		// Wraps midnight, e.g. 21-7.
		return h >= q.Evening || h < q.Morning
	}
	return h >= q.Evening && h < q.Morning
}

// Numbers matches caller ids against a set of numbers, treating national and
// international spellings of the same number as equal.
type Numbers struct {
	cc    string
	index map[string]string
}

// NewNumbers indexes values (number -> payload) under country code cc.
func NewNumbers(cc string, values map[string]string) *Numbers {
	if cc == "" {
		cc = DefaultCountryCode
	}
	n := &Numbers{cc: cc, index: make(map[string]string, len(values))}
	for number, payload := range values {
		n.index[canonicalNumber(number, cc)] = payload
	}
	return n
}

// Lookup returns the payload stored for id under any of its spellings.
func (n *Numbers) Lookup(id string) (string, bool) {
	if n == nil {
		return "", false
	}
	v, ok := n.index[canonicalNumber(id, n.cc)]
	return v, ok
}

// Contains reports whether id is in the set.
func (n *Numbers) Contains(id string) bool {
	_, ok := n.Lookup(id)
	return ok
}

// canonicalNumber rewrites 0xxx, CCxxx, 00CCxxx and +CCxxx to +CCxxx. Other
// ids, such as internal extensions, are returned unchanged.
func canonicalNumber(id, cc string) string {
	id = strings.TrimSpace(id)
	var rest string
	switch {
	case strings.HasPrefix(id, "+"+cc):
		rest = id[1+len(cc):]
	case strings.HasPrefix(id, "00"+cc):
		rest = id[2+len(cc):]
	case strings.HasPrefix(id, "00"):
		// International call to another country.
		return "+" + id[2:]
	case strings.HasPrefix(id, "0"):
		rest = id[1:]
	case strings.HasPrefix(id, cc) && len(id) > len(cc)+3:
		rest = id[len(cc):]
	default:
		return id
	}
	if rest == "" {
		return id
	}
	return "+" + cc + rest
}
