package engine

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/tokenvault/internal/services/vault/address"
	"github.com/louisbranch/tokenvault/internal/services/vault/authz"
	"github.com/louisbranch/tokenvault/internal/services/vault/domain"
	"github.com/louisbranch/tokenvault/internal/services/vault/holding"
	"github.com/louisbranch/tokenvault/internal/services/vault/storage"
)

// consume records the grant as used so it cannot authorize another request.
func consume(ctx context.Context, tx storage.Tx, claims authz.Claims, now time.Time) error {
	err := tx.ConsumeGrant(ctx, storage.ConsumedGrant{
		Signer:    claims.Signer,
		GrantID:   claims.GrantID,
		Operation: claims.Operation,
		ExpiresAt: claims.ExpiresAt,
		UsedAt:    now,
	})
	if errors.Is(err, storage.ErrGrantConsumed) {
		return domain.ErrUnauthorized("grant was already used", err)
	}
	return err
}

func optionalVault(ctx context.Context, r storage.Reader) (*domain.Vault, error) {
	vault, err := r.GetVault(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vault, nil
}

func optionalDepositor(ctx context.Context, r storage.Reader, owner domain.Identity) (*domain.Depositor, error) {
	depositor, err := r.GetDepositor(ctx, owner)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &depositor, nil
}

// load reads the vault and the depositor ledger. The vault is never nil on
// success; a missing vault is reported as not initialized.
func load(ctx context.Context, r storage.Reader, owner domain.Identity) (*domain.Vault, *domain.Depositor, error) {
	vault, err := optionalVault(ctx, r)
	if err != nil {
		return nil, nil, err
	}
	if vault == nil {
		return nil, nil, domain.ErrNotInitialized()
	}
	ledger, err := optionalDepositor(ctx, r, owner)
	if err != nil {
		return nil, nil, err
	}
	return vault, ledger, nil
}

func holdingAddress(owner string, asset domain.Asset) string {
	return address.HoldingAccount(owner, string(asset))
}

func depositorAddress(owner domain.Identity) string {
	return address.DepositorLedger(string(owner))
}

func holdingTransfer(from, to string, amount uint64, authority string) holding.Transfer {
	return holding.Transfer{From: from, To: to, Amount: amount, Authority: authority}
}
