package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("deposit: %w", New(CodeVaultNotInitialized, "vault is not initialized"))
	if !errors.Is(err, New(CodeVaultNotInitialized, "")) {
		t.Fatal("expected wrapped error to match by code")
	}
	if errors.Is(err, New(CodeVaultUnauthorized, "")) {
		t.Fatal("expected different code not to match")
	}
	if !IsCode(err, CodeVaultNotInitialized) {
		t.Fatal("expected IsCode to see through wrapping")
	}
	if GetCode(errors.New("plain")) != CodeUnknown {
		t.Fatal("expected plain errors to map to unknown")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("boom")
	err := WrapWithMetadata(CodeVaultInsufficientFunds, "transfer failed", map[string]string{"Requested": "5"}, cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected cause in chain")
	}
	if GetMetadata(err)["Requested"] != "5" {
		t.Fatal("expected metadata to be preserved")
	}
}

func TestLocalizedMessage(t *testing.T) {
	err := New(CodeVaultAlreadyInitialized, "vault already initialized")
	if got := LocalizedMessage(err, "pt-BR"); got != "O cofre já foi inicializado." {
		t.Fatalf("localized = %q", got)
	}
	if got := LocalizedMessage(errors.New("x"), "pt-BR"); got != "an unexpected error occurred" {
		t.Fatalf("localized = %q", got)
	}
}

func TestLocalizedMessageDefaultsLocale(t *testing.T) {
	err := WithMetadata(CodeVaultInsufficientBalance, "withdraw exceeds balance", map[string]string{
		"Balance":   "30000000",
		"Requested": "40000000",
	})
	if got := LocalizedMessage(err, ""); got != "Your recorded balance is 30,000,000 but 40,000,000 was requested." {
		t.Fatalf("localized = %q", got)
	}
	if got := LocalizedMessage(errors.New("sql: database is closed"), ""); got != "an unexpected error occurred" {
		t.Fatalf("localized = %q", got)
	}
}
