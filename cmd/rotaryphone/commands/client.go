package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/haivivi/rotaryphone/cmd/rotaryphone/internal/config"
	"github.com/haivivi/rotaryphone/pkg/calllog"
	"github.com/haivivi/rotaryphone/pkg/phone"
)

// statusClient talks to the status endpoint of a running phone.
type statusClient struct {
	base string
	http *http.Client
}

func newStatusClient(addr string) *statusClient {
	base := addr
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &statusClient{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 3 * time.Second},
	}
}

// statusAddr returns addr, or the configured address when addr is empty.
func statusAddr(addr string) string {
	if addr != "" {
		return addr
	}
	if cfg, err := loadConfig(); err == nil && cfg.Status.Addr != "" {
		return cfg.Status.Addr
	}
	return config.DefaultStatusAddr
}

func (c *statusClient) Snapshot() (phone.Snapshot, error) {
	var s phone.Snapshot
	err := c.do(http.MethodGet, "/status", nil, &s)
	return s, err
}

func (c *statusClient) Calls(n int) ([]calllog.Record, error) {
	var records []calllog.Record
	err := c.do(http.MethodGet, fmt.Sprintf("/calls?n=%d", n), nil, &records)
	return records, err
}

func (c *statusClient) Transcript() ([]string, error) {
	var lines []string
	err := c.do(http.MethodGet, "/bridge", nil, &lines)
	return lines, err
}

func (c *statusClient) SetDoNotDisturb(on bool) error {
	return c.do(http.MethodPost, "/dnd", dndRequest{On: on}, nil)
}

func (c *statusClient) do(method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.base+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("phone not reachable at %s: %w", c.base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
