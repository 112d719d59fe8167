package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNoOpDiscardsEvents(t *testing.T) {
	var r Recorder = NoOp{}
	// Must not panic on any input, including a nil payload.
	r.Record(context.Background(), "entity.create", "e1", "alice", nil)
}

func TestSlogRecorderWritesJSONLine(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	r := NewSlogRecorder(logger)

	r.Record(context.Background(), "entity.create", "e1", "alice", map[string]any{"version": 1})

	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected a log line to be written")
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if decoded["event_kind"] != "entity.create" {
		t.Fatalf("expected event_kind entity.create, got %v", decoded["event_kind"])
	}
	if decoded["target_id"] != "e1" {
		t.Fatalf("expected target_id e1, got %v", decoded["target_id"])
	}
	if decoded["actor_id"] != "alice" {
		t.Fatalf("expected actor_id alice, got %v", decoded["actor_id"])
	}
}

func TestNewSlogRecorderDefaultsLogger(t *testing.T) {
	r := NewSlogRecorder(nil)
	if r.Logger == nil {
		t.Fatal("expected NewSlogRecorder(nil) to default to a non-nil logger")
	}
}
