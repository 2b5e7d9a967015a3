// Package requestctx carries per-request values across transport and engine
// layers.
package requestctx

import (
	"context"
	"strings"
)

type requestIDKey struct{}

type localeKey struct{}

// WithRequestID stores a request identifier in context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDKey{}, strings.TrimSpace(requestID))
}

// RequestIDFromContext returns the request identifier stored in context.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey{}).(string)
	return value
}

// WithLocale stores the caller's preferred message locale in context.
func WithLocale(ctx context.Context, locale string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, localeKey{}, strings.TrimSpace(locale))
}

// LocaleFromContext returns the stored locale or fallback when unset.
func LocaleFromContext(ctx context.Context, fallback string) string {
	if ctx == nil {
		return fallback
	}
	value, _ := ctx.Value(localeKey{}).(string)
	if value == "" {
		return fallback
	}
	return value
}
