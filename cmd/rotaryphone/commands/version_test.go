package commands

import (
	"strings"
	"testing"
)

func TestVersion(t *testing.T) {
	stdout, _, code := runCmd(t, "version")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stdout, "rotaryphone") {
		t.Fatalf("expected 'rotaryphone', got: %s", stdout)
	}
}

func TestVersionJSON(t *testing.T) {
	stdout, _, code := runCmd(t, "version", "-o", "json")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stdout, `"version"`) {
		t.Fatalf("expected JSON, got: %s", stdout)
	}
}

func TestVersionBadFormat(t *testing.T) {
	_, stderr, code := runCmd(t, "version", "-o", "xml")
	if code == 0 {
		t.Fatal("expected error for unsupported format")
	}
	if !strings.Contains(stderr, "unsupported output format") {
		t.Fatalf("unexpected error: %s", stderr)
	}
}
