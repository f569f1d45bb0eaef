package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"Error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
	if GetLevel("warn") != "WARN" {
		t.Errorf("GetLevel(warn) = %q", GetLevel("warn"))
	}
}

func TestSetupJSON(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	log := Setup(Config{Level: "info", Output: &buf})
	log.Debug("hidden")
	log.Info("defense advanced", "defense_request_id", 7)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("Expected one line at info level, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("Output is not JSON: %v", err)
	}
	if entry["msg"] != "defense advanced" {
		t.Errorf("Unexpected msg: %v", entry["msg"])
	}
	ts, _ := entry["time"].(string)
	if !regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`).MatchString(ts) {
		t.Errorf("Unexpected time format %q", ts)
	}
}

func TestSetupText(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	Setup(Config{Level: "debug", Format: "text", Output: &buf}).Debug("sweep", "count", 2)
	if !strings.Contains(buf.String(), "msg=sweep") || !strings.Contains(buf.String(), "count=2") {
		t.Errorf("Unexpected text output %q", buf.String())
	}
}
