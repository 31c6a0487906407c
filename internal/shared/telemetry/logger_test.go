package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestWriteEmitsJSONLine(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutput(&buf)
	defer restore()

	Warn("notifications.rollback", map[string]any{
		"user_id": "u-1",
		"err":     errors.New("backend down"),
		"msg":     "ignored",
	})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["level"] != "warn" || entry["msg"] != "notifications.rollback" {
		t.Fatalf("unexpected level/msg: %v", entry)
	}
	if entry["err"] != "backend down" {
		t.Fatalf("expected error to be stringified, got %v", entry["err"])
	}
	if entry["ts"] == "" {
		t.Fatalf("expected ts field")
	}
}
