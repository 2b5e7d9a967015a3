// Package holding defines the holding-account collaborator: balances of a
// single asset owned by an identity or by the vault's derived address.
//
// Transfers debit one account and credit another atomically. Only the
// source account's owner may authorize a transfer out of it.
package holding

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/louisbranch/tokenvault/internal/platform/errors"
	"github.com/louisbranch/tokenvault/internal/services/vault/address"
	"github.com/louisbranch/tokenvault/internal/services/vault/domain"
)

// ErrAccountNotFound indicates the requested holding account does not exist.
var ErrAccountNotFound = errors.New("holding account not found")

// Account is one holding account.
type Account struct {
	Address   string
	Owner     string
	Asset     domain.Asset
	Balance   uint64
	CreatedAt time.Time
}

// Transfer moves Amount from one account to another. Authority names the
// principal authorizing the debit.
type Transfer struct {
	From      string
	To        string
	Amount    uint64
	Authority string
}

// Ledger is the holding-account contract. Implementations bind every call to
// the caller's unit of work so transfers commit with the vault ledger.
type Ledger interface {
	// CreateAccount creates the account for owner and asset, or returns the
	// existing one unchanged.
	CreateAccount(ctx context.Context, owner string, asset domain.Asset) (Account, error)
	GetAccount(ctx context.Context, owner string, asset domain.Asset) (Account, error)
	Transfer(ctx context.Context, transfer Transfer) error
	// Mint credits an account out of thin air. Only operator tooling and
	// tests call it; no vault operation does.
	Mint(ctx context.Context, owner string, asset domain.Asset, amount uint64) (Account, error)
}

// NewAccount returns an empty account with its derived address.
func NewAccount(owner string, asset domain.Asset, now time.Time) Account {
	return Account{
		Address:   address.HoldingAccount(owner, string(asset)),
		Owner:     owner,
		Asset:     asset,
		CreatedAt: now.UTC(),
	}
}

// ApplyTransfer validates transfer against the current source and destination
// accounts and returns their balances afterwards. A nil source counts as an
// empty account. It does not mutate its inputs.
func ApplyTransfer(from *Account, to *Account, transfer Transfer) (fromBalance uint64, toBalance uint64, err error) {
	if transfer.Amount == 0 {
		return 0, 0, domain.ErrInvalidAmount()
	}
	if to == nil {
		return 0, 0, apperrors.Wrap(apperrors.CodeNotFound, "destination holding account does not exist", ErrAccountNotFound)
	}
	if from == nil {
		return 0, 0, domain.ErrInsufficientFunds(0, transfer.Amount)
	}
	if transfer.Authority == "" || transfer.Authority != from.Owner {
		return 0, 0, domain.ErrUnauthorized("transfer authority does not own the source account", nil)
	}
	if from.Asset != to.Asset {
		return 0, 0, domain.ErrInvalidAsset(to.Asset, from.Asset)
	}
	if from.Address == to.Address {
		return from.Balance, to.Balance, nil
	}
	fromBalance, ok := domain.CheckedSub(from.Balance, transfer.Amount)
	if !ok {
		return 0, 0, domain.ErrInsufficientFunds(from.Balance, transfer.Amount)
	}
	toBalance, ok = domain.CheckedAdd(to.Balance, transfer.Amount)
	if !ok {
		return 0, 0, domain.ErrMathOverflow(to.Balance, transfer.Amount)
	}
	return fromBalance, toBalance, nil
}
