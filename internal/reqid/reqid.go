// Package reqid tags a request context with a unique identifier shared by
// the events, spans and log entries of one HTTP request.
package reqid

import (
	"context"

	"github.com/google/uuid"
)

type key struct{}

// Header is the response header echoing the request ID.
const Header = "X-Request-Id"

// NewContext returns a copy of parent carrying a new random request ID. It
// also returns the generated ID.
func NewContext(parent context.Context) (context.Context, string) {
	return WithID(parent, uuid.NewString())
}

// WithID returns a copy of parent carrying id. An id that is not a valid UUID
// is replaced by a new one.
func WithID(parent context.Context, id string) (context.Context, string) {
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	return context.WithValue(parent, key{}, id), id
}

// FromContext extracts the request ID from ctx.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(key{}).(string)
	return id, ok
}
