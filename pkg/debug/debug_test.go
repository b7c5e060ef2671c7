package debug

import (
	"bytes"
	"strings"
	"testing"
)

func TestWarnAlwaysWrites(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)
	SetEnabled(false)

	Warn("region %q unmatched", "xx")
	if !strings.Contains(buf.String(), `[WARN]`) || !strings.Contains(buf.String(), `region "xx" unmatched`) {
		t.Fatalf("unexpected warning output %q", buf.String())
	}
}

func TestLogGatedByEnabled(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)
	defer SetEnabled(false)

	SetEnabled(false)
	Log("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output while disabled, got %q", buf.String())
	}

	SetEnabled(true)
	Log("shown %d", 1)
	if !strings.Contains(buf.String(), "shown 1") {
		t.Fatalf("expected debug output, got %q", buf.String())
	}
}

func TestWarnHook(t *testing.T) {
	SetOutput(&bytes.Buffer{})
	defer SetOutput(nil)

	var got string
	SetWarnHook(func(msg string) { got = msg })
	defer SetWarnHook(nil)

	Warn("map %s failed", "maps/x.svg")
	if got != "map maps/x.svg failed" {
		t.Fatalf("hook got %q", got)
	}
}
