package requestctx

import (
	"context"
	"testing"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), " req-42 ")
	if got := RequestIDFromContext(ctx); got != "req-42" {
		t.Fatalf("RequestIDFromContext = %q, want %q", got, "req-42")
	}
}

func TestRequestIDEmpty(t *testing.T) {
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
	//nolint:staticcheck // nil context is part of the contract.
	if got := RequestIDFromContext(nil); got != "" {
		t.Fatalf("expected empty string for nil context, got %q", got)
	}
}

func TestWithRequestIDNilContext(t *testing.T) {
	//nolint:staticcheck // nil context is part of the contract.
	ctx := WithRequestID(nil, "req-99")
	if got := RequestIDFromContext(ctx); got != "req-99" {
		t.Fatalf("RequestIDFromContext = %q, want %q", got, "req-99")
	}
}

func TestLocaleFallback(t *testing.T) {
	if got := LocaleFromContext(context.Background(), "en-US"); got != "en-US" {
		t.Fatalf("expected fallback, got %q", got)
	}
	ctx := WithLocale(context.Background(), "pt-BR")
	if got := LocaleFromContext(ctx, "en-US"); got != "pt-BR" {
		t.Fatalf("expected stored locale, got %q", got)
	}
	if got := LocaleFromContext(WithLocale(context.Background(), "  "), "en-US"); got != "en-US" {
		t.Fatalf("blank locale must fall back, got %q", got)
	}
}
