package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func newBufLogger(t *testing.T, cfg Config) (Logger, *bytes.Buffer) {
	t.Helper()

	var buf bytes.Buffer
	cfg.Output = &buf
	l, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return l, &buf
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &entry); err != nil {
		t.Fatalf("unmarshal log line %q: %v", lines[len(lines)-1], err)
	}
	return entry
}

func TestJSONOutput(t *testing.T) {
	l, buf := newBufLogger(t, Config{Level: "info"})

	l.Info("token issued", "user_id", "alice", "clubhouse_id", "clubhouse-1")

	entry := lastEntry(t, buf)
	if entry["msg"] != "token issued" {
		t.Errorf("msg = %v, want token issued", entry["msg"])
	}
	if entry["user_id"] != "alice" {
		t.Errorf("user_id = %v, want alice", entry["user_id"])
	}
	if entry["level"] != "INFO" {
		t.Errorf("level = %v, want INFO", entry["level"])
	}
}

func TestTextOutput(t *testing.T) {
	l, buf := newBufLogger(t, Config{Level: "info", Format: "text"})

	l.Info("store opened", "path", "clubmesh.db")

	got := buf.String()
	if !strings.Contains(got, "store opened") || !strings.Contains(got, "path=clubmesh.db") {
		t.Errorf("text output = %q", got)
	}
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newBufLogger(t, Config{Level: "warn"})

	l.Debug("dropped")
	l.Info("dropped too")
	l.Warn("kept")

	got := buf.String()
	if strings.Contains(got, "dropped") {
		t.Errorf("output %q contains entries below warn", got)
	}
	if !strings.Contains(got, "kept") {
		t.Errorf("output %q missing warn entry", got)
	}
}

func TestSetLevel(t *testing.T) {
	l, buf := newBufLogger(t, Config{Level: "info"})
	defer SetLevel("info")

	l.Debug("before")
	SetLevel("debug")
	l.Debug("after")

	got := buf.String()
	if strings.Contains(got, "before") {
		t.Errorf("debug entry logged at info level: %q", got)
	}
	if !strings.Contains(got, "after") {
		t.Errorf("debug entry missing after SetLevel: %q", got)
	}

	if GetLevel() != "debug" {
		t.Errorf("GetLevel() = %q, want debug", GetLevel())
	}
}

func TestGetLevelRoundTrip(t *testing.T) {
	defer SetLevel("info")

	tests := []struct {
		set  string
		want string
	}{
		{"debug", "debug"},
		{"warning", "warn"},
		{"error", "error"},
		{"bogus", "info"},
	}
	for _, tt := range tests {
		SetLevel(tt.set)
		if got := GetLevel(); got != tt.want {
			t.Errorf("SetLevel(%q); GetLevel() = %q, want %q", tt.set, got, tt.want)
		}
	}
}

func TestWith(t *testing.T) {
	l, buf := newBufLogger(t, Config{Level: "info"})

	l.With("clubhouse_id", "clubhouse-1").Info("follower added", "follower_id", "bob")

	entry := lastEntry(t, buf)
	if entry["clubhouse_id"] != "clubhouse-1" {
		t.Errorf("clubhouse_id = %v, want clubhouse-1", entry["clubhouse_id"])
	}
	if entry["follower_id"] != "bob" {
		t.Errorf("follower_id = %v, want bob", entry["follower_id"])
	}
}

func TestTokenValuesMasked(t *testing.T) {
	l, buf := newBufLogger(t, Config{Level: "info"})

	secret := "cmtk_" + strings.Repeat("a", 40) + "end"
	l.Info("token validated", "token_id", secret)

	got := buf.String()
	if strings.Contains(got, secret) {
		t.Fatalf("plaintext secret leaked into log: %q", got)
	}
	if !strings.Contains(got, "cmtk_aaa...end") {
		t.Errorf("masked form missing from %q", got)
	}
}

func TestSensitiveKeysRedacted(t *testing.T) {
	l, buf := newBufLogger(t, Config{Level: "info"})

	l.Info("sealing archive", "passphrase_secret", "hunter2")

	got := buf.String()
	if strings.Contains(got, "hunter2") {
		t.Fatalf("sensitive value leaked into log: %q", got)
	}
	if !strings.Contains(got, redactedValue) {
		t.Errorf("redaction placeholder missing from %q", got)
	}
}

func TestDefaultSwap(t *testing.T) {
	original := Default()
	defer SetDefault(original)

	l, buf := newBufLogger(t, Config{Level: "info"})
	SetDefault(l)

	Info("via package function")

	if !strings.Contains(buf.String(), "via package function") {
		t.Errorf("default logger not swapped, output = %q", buf.String())
	}
}
