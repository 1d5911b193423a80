package log

import (
	"context"
	"log/slog"

	"github.com/ErlanBelekov/sso-handoff/internal/requestid"
)

type subjectKey struct{}

// WithSubject attaches the authenticated username to ctx so every record
// logged with that context carries it.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey{}, subject)
}

func SubjectFromContext(ctx context.Context) string {
	s, _ := ctx.Value(subjectKey{}).(string)
	return s
}

// ContextHandler wraps an slog.Handler, adds request_id and subject from the
// context of each record, and shortens any "token" attribute to its first
// eight characters so handoff tokens never reach the logs whole.
type ContextHandler struct {
	inner slog.Handler
}

func NewContextHandler(inner slog.Handler) *ContextHandler {
	return &ContextHandler{inner: inner}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(redact(a))
		return true
	})

	if id := requestid.FromContext(ctx); id != "" {
		out.AddAttrs(slog.String("request_id", id))
	}
	if sub := SubjectFromContext(ctx); sub != "" {
		out.AddAttrs(slog.String("subject", sub))
	}
	return h.inner.Handle(ctx, out)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = redact(a)
	}
	return &ContextHandler{inner: h.inner.WithAttrs(redacted)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{inner: h.inner.WithGroup(name)}
}

func redact(a slog.Attr) slog.Attr {
	if a.Key != "token" {
		return a
	}
	v := a.Value.Resolve().String()
	if len(v) > 8 {
		v = v[:8] + "..."
	}
	return slog.String(a.Key, v)
}
