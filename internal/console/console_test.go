package console

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetNoColor(true)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetVerbose(false)
	})
	return &buf
}

func TestLevels(t *testing.T) {
	buf := capture(t)

	Debug("hidden", "key", "value")
	Info("shown", "package", "a")
	if out := buf.String(); strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("unexpected output %q", out)
	}
	if !strings.Contains(buf.String(), "package=a") {
		t.Errorf("expected key/value pair in %q", buf.String())
	}

	buf.Reset()
	SetVerbose(true)
	Debug("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Errorf("debug line missing from %q", buf.String())
	}
}

func TestPrefix(t *testing.T) {
	buf := capture(t)
	Warn("careful")
	if !strings.Contains(buf.String(), "splitter") {
		t.Errorf("expected prefix in %q", buf.String())
	}
}
