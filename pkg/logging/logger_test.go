package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New("test", WARN, false)
	log.SetOutput(&buf)

	log.Debugf("debug message")
	log.Infof("info message")
	log.Warnf("warn message")
	log.Errorf("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("Expected DEBUG/INFO to be filtered at WARN level, got:\n%s", out)
	}
	if !strings.Contains(out, "warn message") || !strings.Contains(out, "error message") {
		t.Errorf("Expected WARN/ERROR to pass at WARN level, got:\n%s", out)
	}
}

func TestTextFormatIncludesComponent(t *testing.T) {
	var buf bytes.Buffer
	log := New("ncclshim", INFO, false)
	log.SetOutput(&buf)

	log.Infof("intercepted ncclBroadcast: count=%d, root=%d", 1024, 0)

	out := buf.String()
	if !strings.Contains(out, "[ncclshim]") {
		t.Errorf("Expected component tag in output, got %q", out)
	}
	if !strings.Contains(out, "count=1024, root=0") {
		t.Errorf("Expected formatted message in output, got %q", out)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New("exporter", INFO, true)
	log.SetOutput(&buf)

	log.WithField("rank", 3).Infof("trace file opened")

	var e entry
	if err := json.Unmarshal(buf.Bytes(), &e); err != nil {
		t.Fatalf("Expected valid JSON log entry: %v", err)
	}
	if e.Component != "exporter" {
		t.Errorf("Expected component 'exporter', got %q", e.Component)
	}
	if e.Message != "trace file opened" {
		t.Errorf("Expected message, got %q", e.Message)
	}
	if e.Fields["rank"] != float64(3) {
		t.Errorf("Expected rank field, got %v", e.Fields)
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"warning", WARN},
		{"error", ERROR},
		{"nonsense", INFO},
		{"", INFO},
	}
	for _, c := range cases {
		if got := ParseLevel(c.in); got != c.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}
