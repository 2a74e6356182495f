package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew_Formats(t *testing.T) {
	tests := []struct {
		format string
		check  func(string) bool
	}{
		{"json", func(s string) bool { return strings.HasPrefix(s, "{") }},
		{"text", func(s string) bool { return strings.Contains(s, "component=sweeper") }},
		{"console", func(s string) bool { return strings.Contains(s, "msg=started") }},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			l, err := New(Config{Level: "info", Format: tt.format, Output: &buf})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			l.Info("started", "component", "sweeper")
			if !tt.check(buf.String()) {
				t.Errorf("unexpected %s output: %s", tt.format, buf.String())
			}
		})
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	l, _ := New(Config{Level: "info", Format: "json", Output: &buf})
	l.With("component", "manager").Info("issued")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if entry["component"] != "manager" {
		t.Errorf("component = %v, want manager", entry["component"])
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l, _ := New(Config{Level: "error", Format: "json", Output: &buf})
	defer SetLevel("info")

	l.Warn("filtered")
	if buf.Len() > 0 {
		t.Fatal("warn logged at error level")
	}
	SetLevel("debug")
	l.Debug("now visible")
	if buf.Len() == 0 {
		t.Error("debug not logged after SetLevel(debug)")
	}
}

func TestParseLevel(t *testing.T) {
	defer SetLevel("info")
	tests := []struct {
		input string
		want  string
	}{
		{"debug", "debug"},
		{"INFO", "info"},
		{"warning", "warn"},
		{"Error", "error"},
		{"bogus", "info"},
		{"", "info"},
	}
	for _, tt := range tests {
		SetLevel(tt.input)
		if got := GetLevel(); got != tt.want {
			t.Errorf("SetLevel(%q); GetLevel() = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestDefaultAndPackageFuncs(t *testing.T) {
	prev := Default()
	defer SetDefault(prev)

	var buf bytes.Buffer
	l, _ := New(Config{Level: "info", Format: "json", Output: &buf})
	SetDefault(l)
	for name, fn := range map[string]func(string, ...any){"Info": Info, "Warn": Warn, "Error": Error} {
		buf.Reset()
		fn("x")
		if buf.Len() == 0 {
			t.Errorf("%s() produced no output", name)
		}
	}
}

func TestNop(t *testing.T) {
	Nop().Error("discarded", "k", "v")
}
