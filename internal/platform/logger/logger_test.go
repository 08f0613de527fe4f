package logger

import (
	"strings"
	"testing"
)

func TestSanitizeKVs(t *testing.T) {
	out := sanitizeKVs([]interface{}{
		"neo4j_password", "hunter2",
		"session_id", "table-7",
		"scene_id", "w.s1",
		"dangling",
	})
	if len(out) != 7 {
		t.Fatalf("len: want=%d got=%d", 7, len(out))
	}
	if out[1] != "[REDACTED]" {
		t.Fatalf("password: want=%q got=%v", "[REDACTED]", out[1])
	}
	if s, _ := out[3].(string); !strings.HasPrefix(s, "hash:") || strings.Contains(s, "table-7") {
		t.Fatalf("session_id: got=%v", out[3])
	}
	if out[5] != "w.s1" {
		t.Fatalf("scene_id: want=%q got=%v", "w.s1", out[5])
	}
	if out[6] != "dangling" {
		t.Fatalf("dangling key: got=%v", out[6])
	}
}

func TestSanitizeNestedMap(t *testing.T) {
	got := sanitizeValue("config", map[string]interface{}{"journal_dsn": "postgres://u:p@h/db", "driver": "postgres"})
	m := got.(map[string]interface{})
	if m["journal_dsn"] != "[REDACTED]" || m["driver"] != "postgres" {
		t.Fatalf("nested: got=%v", m)
	}
}

func TestNewTestModeIsNop(t *testing.T) {
	l, err := New("test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.With("component", "x").Info("ignored", "k", "v")
}
