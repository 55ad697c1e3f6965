package chainlog

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestShorten(t *testing.T) {
	addr := "0xad9396b530f9fcdaee7dc5bb62d423241caf3426d5e3d937da3e2503fb656f9e"
	got := Shorten(addr)
	if got != "0xad93…f9e" && !strings.HasPrefix(got, "0xad93") {
		t.Fatalf("unexpected shortened value: %q", got)
	}
	if !strings.HasSuffix(got, addr[len(addr)-4:]) {
		t.Fatalf("expected tail preserved, got %q", got)
	}
	if Shorten("0xabc") != "0xabc" {
		t.Fatal("short values should pass through")
	}
}

func TestHandlerShortensKnownKeysOnly(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(WrapHandler(slog.NewJSONHandler(&buf, nil)))
	digest := "5v4s8oVuUzPlRMrnjzvJSQyQllSDV5C2CS29HlUMRrlY"
	logger.Info("submitted", "digest", digest, "move", "hit")

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode log json: %v", err)
	}
	got, _ := payload["digest"].(string)
	if got == digest {
		t.Fatal("digest should have been shortened")
	}
	if !strings.HasPrefix(got, digest[:6]) {
		t.Fatalf("unexpected digest value: %q", got)
	}
	if move, _ := payload["move"].(string); move != "hit" {
		t.Fatalf("unrelated attr should be untouched, got %q", move)
	}
}

func TestHandlerWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(WrapHandler(base)).With(
		Address("0xad9396b530f9fcdaee7dc5bb62d423241caf3426d5e3d937da3e2503fb656f9e"))
	logger.Info("hello")
	if strings.Contains(buf.String(), "fb656f9e\"") && strings.Contains(buf.String(), "0xad9396b530") {
		t.Fatalf("address should be shortened in output: %s", buf.String())
	}
}
