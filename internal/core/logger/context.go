package logger

import (
	"context"

	"go.uber.org/zap"
)

type ridKey struct{}

// WithRequestID returns ctx carrying the request id that For attaches to log lines.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, ridKey{}, rid)
}

// RequestID returns the id stored by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	rid, _ := ctx.Value(ridKey{}).(string)
	return rid
}

// For returns l tagged with the request id of ctx, when there is one.
func For(ctx context.Context, l *zap.Logger) *zap.Logger {
	if rid := RequestID(ctx); rid != "" {
		return l.With(zap.String("rid", rid))
	}
	return l
}
