package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func decodeLine(t *testing.T, b *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(b.Bytes()), &m); err != nil {
		t.Fatalf("decode %q: %v", b.String(), err)
	}
	b.Reset()
	return m
}

func TestSlogBridgeCarriesContextAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	zl := Build(Config{Level: "debug", Service: "wherewolf"}, &buf)
	log := NewSlog(&zl).With("component", "test")

	ctx := WithLayer(WithRequestID(context.Background(), "req-1"), "states")
	log.InfoContext(ctx, "found", "matched", true, "err", errors.New("x"))

	m := decodeLine(t, &buf)
	want := map[string]any{
		"msg": "found", "level": "info", "service": "wherewolf",
		"request_id": "req-1", "layer": "states", "component": "test",
		"matched": true, "err": "x",
	}
	for k, v := range want {
		if m[k] != v {
			t.Fatalf("%s=%v want %v (line %v)", k, m[k], v, m)
		}
	}
	if _, ok := m["timestamp"]; !ok {
		t.Fatalf("missing timestamp: %v", m)
	}
}

func TestSlogGroupsAndLevels(t *testing.T) {
	var buf bytes.Buffer
	zl := Build(Config{Level: "warn"}, &buf)
	log := NewSlog(&zl)

	log.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info logged at warn level: %s", buf.String())
	}

	log.WithGroup("kafka").Warn("lag", "partition", 3)
	m := decodeLine(t, &buf)
	if m["kafka.partition"] != float64(3) || m["level"] != "warn" {
		t.Fatalf("line=%v", m)
	}
}

func TestWithRequestIDGeneratesID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "")
	if id := RequestID(ctx); len(id) != 16 {
		t.Fatalf("generated id=%q want 16 hex chars", id)
	}
	if WithLayer(ctx, "") != ctx {
		t.Fatalf("empty layer should not wrap the context")
	}
}
