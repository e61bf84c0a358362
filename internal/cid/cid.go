// Package cid carries a per-request correlation id.
package cid

import (
	"context"

	"github.com/segmentio/ksuid"
)

type contextKey struct{}

// HeaderName is the HTTP header used to propagate the correlation id. An
// incoming value is kept; otherwise a new KSUID is generated.
const HeaderName = "X-Correlation-ID"

// AttributeName is the span attribute key for the correlation id.
const AttributeName = "chatrelay.cid"

func New() string { return ksuid.New().String() }

func WithCID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the correlation id, or "" if none is set.
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(contextKey{}).(string); ok {
		return v
	}
	return ""
}
