package domain

import (
	"time"

	"github.com/louisbranch/tokenvault/internal/services/vault/address"
)

// Change is the accepted effect of a deposit or withdraw on one depositor
// ledger. The pooled account moves by Amount in the opposite direction.
type Change struct {
	Operation     Operation
	Owner         Identity
	Amount        uint64
	BalanceBefore uint64
	BalanceAfter  uint64
	// CreateRecord is set when the depositor ledger does not exist yet.
	CreateRecord bool
}

// DecideInitialize validates initialize and returns the vault to create.
// Authorization is checked by the caller before this runs.
func DecideInitialize(current *Vault, authority Identity, asset Asset, now time.Time) (Vault, error) {
	if current != nil && current.Initialized {
		return Vault{}, ErrAlreadyInitialized()
	}
	asset = asset.Normalize()
	if asset == "" {
		return Vault{}, ErrInvalidAsset("", asset)
	}
	vaultAddress := address.Vault()
	return Vault{
		Authority:     authority,
		AcceptedAsset: asset,
		Initialized:   true,
		Address:       vaultAddress,
		PooledAccount: address.HoldingAccount(vaultAddress, string(asset)),
		CreatedAt:     now.UTC(),
	}, nil
}

// DecideDeposit validates a deposit against the vault and the depositor's
// current ledger, which may be nil. An empty asset skips the asset check.
func DecideDeposit(vault *Vault, ledger *Depositor, owner Identity, amount uint64, asset Asset) (Change, error) {
	if err := checkCommon(vault, amount, asset); err != nil {
		return Change{}, err
	}
	var before uint64
	if ledger != nil {
		before = ledger.Balance
	}
	after, ok := CheckedAdd(before, amount)
	if !ok {
		return Change{}, ErrMathOverflow(before, amount)
	}
	return Change{
		Operation:     OperationDeposit,
		Owner:         owner,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		CreateRecord:  ledger == nil,
	}, nil
}

// DecideWithdraw validates a withdrawal. A missing ledger is treated as a
// zero balance and is never created by a withdrawal.
func DecideWithdraw(vault *Vault, ledger *Depositor, owner Identity, amount uint64, asset Asset) (Change, error) {
	if err := checkCommon(vault, amount, asset); err != nil {
		return Change{}, err
	}
	var before uint64
	if ledger != nil {
		before = ledger.Balance
	}
	after, ok := CheckedSub(before, amount)
	if !ok || ledger == nil {
		return Change{}, ErrInsufficientBalance(before, amount)
	}
	return Change{
		Operation:     OperationWithdraw,
		Owner:         owner,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
	}, nil
}

func checkCommon(vault *Vault, amount uint64, asset Asset) error {
	if vault == nil || !vault.Initialized {
		return ErrNotInitialized()
	}
	if amount == 0 {
		return ErrInvalidAmount()
	}
	if asset != "" && asset != vault.AcceptedAsset {
		return ErrInvalidAsset(vault.AcceptedAsset, asset)
	}
	return nil
}
