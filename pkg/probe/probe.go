// Package probe checks network reachability with a TCP connect.
package probe

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Defaults for TCP.
const (
	DefaultPort    = 80
	DefaultTimeout = time.Second
)

// TCP probes a host by opening and closing a TCP connection.
type TCP struct {
	Host    string
	Port    int
	Timeout time.Duration
}

// Addr returns the dialed address.
func (p TCP) Addr() string {
	port := p.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(p.Host, strconv.Itoa(port))
}

// Probe connects to the host. It fails when the connection cannot be
// established within the timeout or before ctx is done.
func (p TCP) Probe(ctx context.Context) error {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", p.Addr())
	if err != nil {
		return fmt.Errorf("probe: %w", err)
	}
	return conn.Close()
}
