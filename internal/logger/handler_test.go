package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"log/slog"
)

func TestStructuredHandlerKVOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	aw := newLineWriter([]io.Writer{buf}, 1024)
	handler := newStructuredHandler(handlerConfig{
		level:    slog.LevelInfo,
		writer:   aw,
		format:   formatKV,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	ctx := WithRID(Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	log := slog.New(handler).With("component", "lending")
	log.LogAttrs(ctx, slog.LevelInfo, "",
		slog.String("event", "loan.confirmed"),
		slog.String("status", "ok"),
		slog.Int64("amount_usd", 10),
	)
	if err := aw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected log line")
	}
	tokens := strings.Split(line, " ")
	expected := []string{"ts=", "level=INFO", "component=lending", "event=loan.confirmed", "status=ok", "rid=rid-123"}
	if len(tokens) < len(expected) {
		t.Fatalf("unexpected token count: %d (%s)", len(tokens), line)
	}
	for i, prefix := range expected {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, expected prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestStructuredHandlerJSONContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	aw := newLineWriter([]io.Writer{buf}, 1024)
	handler := newStructuredHandler(handlerConfig{
		level:    slog.LevelInfo,
		writer:   aw,
		format:   formatJSON,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	ctx := WithRID(Background(), "55:1:2")
	ctx = WithUpdateMeta(ctx, 55, 2, 1)
	ctx = WithHandler(ctx, "loans")

	log := slog.New(handler)
	log.LogAttrs(ctx, slog.LevelWarn, "loan.reject", slog.String("err", "loan already active"))
	if err := aw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &fields); err != nil {
		t.Fatalf("unmarshal line: %v (%s)", err, buf.String())
	}
	if fields["rid"] != "55:1:2" {
		t.Errorf("rid = %v", fields["rid"])
	}
	if fields["handler"] != "loans" {
		t.Errorf("handler = %v", fields["handler"])
	}
	if fields["user_id"] != float64(2) {
		t.Errorf("user_id = %v", fields["user_id"])
	}
	if fields["event"] != "loan.reject" {
		t.Errorf("event = %v", fields["event"])
	}
	if fields["level"] != "WARN" {
		t.Errorf("level = %v", fields["level"])
	}
}

func TestDurationKeyNormalization(t *testing.T) {
	cases := map[string]string{
		"duration":      "duration_ms",
		"poll_duration": "poll_duration_ms",
		"elapsed_ms":    "elapsed_ms",
		"took":          "took_ms",
	}
	for in, want := range cases {
		if got := durationKey(in); got != want {
			t.Errorf("durationKey(%q) = %q, want %q", in, got, want)
		}
	}
}
