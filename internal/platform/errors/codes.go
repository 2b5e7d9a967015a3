// Package errors provides structured error handling with i18n support.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Vault lifecycle errors
	CodeVaultAlreadyInitialized Code = "VAULT_ALREADY_INITIALIZED"
	CodeVaultNotInitialized     Code = "VAULT_NOT_INITIALIZED"

	// Authorization errors
	CodeVaultUnauthorized    Code = "VAULT_UNAUTHORIZED"
	CodeVaultInvalidIdentity Code = "VAULT_INVALID_IDENTITY"

	// Request validation errors
	CodeVaultInvalidAmount Code = "VAULT_INVALID_AMOUNT"
	CodeVaultInvalidAsset  Code = "VAULT_INVALID_ASSET"

	// Balance errors
	CodeVaultInsufficientFunds   Code = "VAULT_INSUFFICIENT_FUNDS"
	CodeVaultInsufficientBalance Code = "VAULT_INSUFFICIENT_BALANCE"
	CodeVaultMathOverflow        Code = "VAULT_MATH_OVERFLOW"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"

	// CodeInvalidArgument covers malformed request fields outside vault rules.
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
)
