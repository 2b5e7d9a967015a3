package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	apperrors "github.com/louisbranch/tokenvault/internal/platform/errors"
	"github.com/louisbranch/tokenvault/internal/services/vault/domain"
	"github.com/louisbranch/tokenvault/internal/services/vault/storage"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// GetVault returns the vault ledger.
func (e *Engine) GetVault(ctx context.Context) (domain.Vault, error) {
	vault, err := e.store.GetVault(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Vault{}, domain.ErrNotInitialized()
	}
	if err != nil {
		return domain.Vault{}, fmt.Errorf("get vault: %w", err)
	}
	return vault, nil
}

// GetDepositor returns one depositor ledger.
func (e *Engine) GetDepositor(ctx context.Context, owner domain.Identity) (domain.Depositor, error) {
	depositor, err := e.store.GetDepositor(ctx, owner)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Depositor{}, apperrors.Wrap(apperrors.CodeNotFound, "depositor ledger not found", err)
	}
	if err != nil {
		return domain.Depositor{}, fmt.Errorf("get depositor: %w", err)
	}
	return depositor, nil
}

// Audit compares the sum of depositor ledgers with the pooled holding
// balance in one consistent read.
func (e *Engine) Audit(ctx context.Context) (report AuditReport, err error) {
	ctx, finish := e.begin(ctx, auditLabel)
	defer func() {
		finish(err,
			zap.Uint64("pooled", report.PooledBalance),
			zap.Uint64("depositor_total", report.DepositorTotal),
			zap.Bool("balanced", report.Balanced),
		)
	}()

	err = e.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		vault, err := optionalVault(ctx, tx)
		if err != nil {
			return err
		}
		if vault == nil {
			return domain.ErrNotInitialized()
		}
		totals, err := tx.SumDepositors(ctx)
		if err != nil {
			return err
		}
		pooled, err := tx.GetAccount(ctx, vault.Address, vault.AcceptedAsset)
		if err != nil {
			return fmt.Errorf("get pooled account: %w", err)
		}
		report = AuditReport{
			Vault:          *vault,
			PooledBalance:  pooled.Balance,
			DepositorTotal: totals.DepositorBalance,
			DepositorCount: totals.DepositorCount,
			Balanced:       totals.DepositorBalance == pooled.Balance,
		}
		return nil
	})
	if err != nil {
		return AuditReport{}, err
	}
	e.metrics.setPooled(report.PooledBalance)
	e.metrics.setDepositorTotal(report.DepositorTotal)
	if !report.Balanced {
		e.logger.Error("vault ledger out of balance",
			zap.Uint64("pooled", report.PooledBalance),
			zap.Uint64("depositor_total", report.DepositorTotal),
		)
	}
	return report, nil
}

// ListEntries returns one page of the operation journal. A non-positive
// page size uses the default; larger sizes are capped.
func (e *Engine) ListEntries(ctx context.Context, pageSize int, pageToken string) (storage.EntryPage, error) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page, err := e.store.ListEntries(ctx, pageSize, pageToken)
	if errors.Is(err, storage.ErrInvalidPageToken) {
		return storage.EntryPage{}, apperrors.WrapWithMetadata(
			apperrors.CodeInvalidArgument,
			"invalid page token",
			map[string]string{"Field": "page_token"},
			err,
		)
	}
	if err != nil {
		return storage.EntryPage{}, fmt.Errorf("list entries: %w", err)
	}
	return page, nil
}
