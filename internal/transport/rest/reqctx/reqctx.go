// Package reqctx carries the per-request id through context.Context, the
// same pkg/context helper shape the teacher threads between its
// RequestID middleware and its logger.
package reqctx

import "context"

type requestIDKey struct{}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
