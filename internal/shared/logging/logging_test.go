package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("debug", "json", &buf)
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("hello", "component", "test")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not json: %q", buf.String())
	}
	if entry["msg"] != "hello" || entry["component"] != "test" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestNewLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("warn", "text", &buf)
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("quiet")
	logger.Warn("loud")
	if strings.Contains(buf.String(), "quiet") || !strings.Contains(buf.String(), "loud") {
		t.Fatalf("level filtering wrong: %q", buf.String())
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	if _, err := New("verbose", "text", nil); err == nil {
		t.Fatal("expected level error")
	}
	if _, err := New("info", "xml", nil); err == nil {
		t.Fatal("expected format error")
	}
}
