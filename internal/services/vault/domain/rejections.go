package domain

import (
	"strconv"

	apperrors "github.com/louisbranch/tokenvault/internal/platform/errors"
)

// ErrAlreadyInitialized reports a second initialize.
func ErrAlreadyInitialized() error {
	return apperrors.New(apperrors.CodeVaultAlreadyInitialized, "vault is already initialized")
}

// ErrNotInitialized reports an operation on a vault that does not exist yet.
func ErrNotInitialized() error {
	return apperrors.New(apperrors.CodeVaultNotInitialized, "vault is not initialized")
}

// ErrUnauthorized reports a request whose signer does not match the acting principal.
func ErrUnauthorized(reason string, cause error) error {
	return apperrors.WrapWithMetadata(
		apperrors.CodeVaultUnauthorized,
		"unauthorized: "+reason,
		map[string]string{"Reason": reason},
		cause,
	)
}

// ErrInvalidAmount reports a zero amount.
func ErrInvalidAmount() error {
	return apperrors.New(apperrors.CodeVaultInvalidAmount, "amount must be greater than zero")
}

// ErrInvalidAsset reports an asset that is empty or not the accepted one.
func ErrInvalidAsset(accepted Asset, got Asset) error {
	return apperrors.WithMetadata(
		apperrors.CodeVaultInvalidAsset,
		"asset "+strconv.Quote(string(got))+" is not accepted",
		map[string]string{"Accepted": string(accepted), "Asset": string(got)},
	)
}

// ErrMathOverflow reports a balance that would exceed uint64.
func ErrMathOverflow(balance, amount uint64) error {
	return apperrors.WithMetadata(
		apperrors.CodeVaultMathOverflow,
		"balance overflow",
		map[string]string{"Balance": formatUint(balance), "Requested": formatUint(amount)},
	)
}

// ErrInsufficientBalance reports a withdrawal above the recorded balance.
func ErrInsufficientBalance(balance, amount uint64) error {
	return apperrors.WithMetadata(
		apperrors.CodeVaultInsufficientBalance,
		"withdrawal exceeds recorded balance",
		map[string]string{"Balance": formatUint(balance), "Requested": formatUint(amount)},
	)
}

// ErrInsufficientFunds reports a holding account that cannot cover a transfer.
func ErrInsufficientFunds(available, amount uint64) error {
	return apperrors.WithMetadata(
		apperrors.CodeVaultInsufficientFunds,
		"source account cannot cover transfer",
		map[string]string{"Available": formatUint(available), "Requested": formatUint(amount)},
	)
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}
