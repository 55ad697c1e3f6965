package chainlog

import (
	"context"
	"log/slog"
	"strings"
)

// Keys whose values are ledger identifiers and get shortened in log output.
// Full addresses and digests are public but 66-character values make logs
// unreadable.
var shortenedKeys = map[string]struct{}{
	"address":           {},
	"digest":            {},
	"tx_digest":         {},
	"object_id":         {},
	"game_id":           {},
	"token_id":          {},
	"request_object_id": {},
}

const (
	headLen = 6
	tailLen = 4
)

// ShorteningHandler rewrites ledger identifier attrs to head…tail form
// before delegating to the wrapped handler.
type ShorteningHandler struct {
	next slog.Handler
}

func WrapHandler(next slog.Handler) slog.Handler {
	if next == nil {
		return nil
	}
	return &ShorteningHandler{next: next}
}

func (h *ShorteningHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *ShorteningHandler) Handle(ctx context.Context, rec slog.Record) error {
	out := slog.NewRecord(rec.Time, rec.Level, rec.Message, rec.PC)
	rec.Attrs(func(attr slog.Attr) bool {
		out.AddAttrs(shortenAttr(attr))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *ShorteningHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	shortened := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		shortened = append(shortened, shortenAttr(attr))
	}
	return &ShorteningHandler{next: h.next.WithAttrs(shortened)}
}

func (h *ShorteningHandler) WithGroup(name string) slog.Handler {
	return &ShorteningHandler{next: h.next.WithGroup(name)}
}

func shortenAttr(attr slog.Attr) slog.Attr {
	if _, ok := shortenedKeys[attr.Key]; !ok {
		return attr
	}
	if attr.Value.Kind() != slog.KindString {
		return attr
	}
	return slog.String(attr.Key, Shorten(attr.Value.String()))
}

// Shorten collapses a long identifier to its head and tail. Values short
// enough to read are returned unchanged.
func Shorten(id string) string {
	id = strings.TrimSpace(id)
	if len(id) <= headLen+tailLen+1 {
		return id
	}
	return id[:headLen] + "…" + id[len(id)-tailLen:]
}

// Digest and Address are convenience attr constructors for the common keys.
func Digest(digest string) slog.Attr {
	return slog.String("digest", digest)
}

func Address(address string) slog.Attr {
	return slog.String("address", address)
}
