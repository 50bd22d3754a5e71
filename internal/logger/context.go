package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey string

const (
	requestIDKey     ctxKey = "request_id"
	checkoutTokenKey ctxKey = "checkout_token"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// WithCheckoutToken tags every log line of one checkout attempt, retries included.
func WithCheckoutToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, checkoutTokenKey, token)
}

func CheckoutTokenFrom(ctx context.Context) string {
	v, _ := ctx.Value(checkoutTokenKey).(string)
	return v
}

// FromCtx returns the global logger enriched with request_id and checkout_token when present.
func FromCtx(ctx context.Context) *zap.Logger {
	l := L()
	if reqID := RequestIDFrom(ctx); reqID != "" {
		l = l.With(zap.String("request_id", reqID))
	}
	if token := CheckoutTokenFrom(ctx); token != "" {
		l = l.With(zap.String("checkout_token", token))
	}
	return l
}
