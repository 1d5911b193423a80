package requestid

import (
	"context"

	"github.com/google/uuid"
)

const Header = "X-Request-ID"

// maxLen bounds caller-supplied IDs; anything longer is replaced.
const maxLen = 128

type ctxKey struct{}

// New generates a random UUID v4 request ID.
func New() string {
	return uuid.NewString()
}

// Sanitize returns incoming if it is a usable request ID (non-empty,
// printable ASCII, bounded length) and a fresh ID otherwise, so
// caller-controlled values cannot inject into log lines.
func Sanitize(incoming string) string {
	if incoming == "" || len(incoming) > maxLen {
		return New()
	}
	for i := 0; i < len(incoming); i++ {
		if c := incoming[i]; c < 0x21 || c > 0x7e {
			return New()
		}
	}
	return incoming
}

// WithRequestID returns a copy of ctx with the request ID attached.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext extracts the request ID from ctx. Returns "" if absent.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
