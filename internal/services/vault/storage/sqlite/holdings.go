package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/tokenvault/internal/services/vault/domain"
	"github.com/louisbranch/tokenvault/internal/services/vault/holding"
	"github.com/louisbranch/tokenvault/internal/services/vault/storage"
)

// errHoldingNotFound matches both storage.ErrNotFound and holding.ErrAccountNotFound.
var errHoldingNotFound = fmt.Errorf("%w: %w", storage.ErrNotFound, holding.ErrAccountNotFound)

// CreateAccount creates the holding account for owner and asset when missing.
func (t *tx) CreateAccount(ctx context.Context, owner string, asset domain.Asset) (holding.Account, error) {
	if err := ctx.Err(); err != nil {
		return holding.Account{}, err
	}
	if strings.TrimSpace(owner) == "" {
		return holding.Account{}, fmt.Errorf("holding owner is required")
	}
	if strings.TrimSpace(string(asset)) == "" {
		return holding.Account{}, domain.ErrInvalidAsset("", asset)
	}
	account := holding.NewAccount(owner, asset, t.now())
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO holding_accounts (address, owner, asset, balance, created_at)
		 VALUES (?, ?, ?, '0', ?)
		 ON CONFLICT DO NOTHING`,
		account.Address,
		account.Owner,
		string(account.Asset),
		toMillis(account.CreatedAt),
	)
	if err != nil {
		return holding.Account{}, fmt.Errorf("create holding account: %w", err)
	}
	return t.GetAccount(ctx, owner, asset)
}

// GetAccount reads the holding account for owner and asset.
func (q queries) GetAccount(ctx context.Context, owner string, asset domain.Asset) (holding.Account, error) {
	return q.getAccountBy(ctx, "owner = ? AND asset = ?", owner, string(asset))
}

// Transfer debits transfer.From and credits transfer.To.
func (t *tx) Transfer(ctx context.Context, transfer holding.Transfer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	from, err := t.optionalAccount(ctx, transfer.From)
	if err != nil {
		return err
	}
	to, err := t.optionalAccount(ctx, transfer.To)
	if err != nil {
		return err
	}
	fromBalance, toBalance, err := holding.ApplyTransfer(from, to, transfer)
	if err != nil {
		return err
	}
	if from.Address == to.Address {
		return nil
	}
	if err := t.setBalance(ctx, from.Address, fromBalance); err != nil {
		return err
	}
	return t.setBalance(ctx, to.Address, toBalance)
}

// Mint credits amount to the account for owner and asset, creating it first.
func (t *tx) Mint(ctx context.Context, owner string, asset domain.Asset, amount uint64) (holding.Account, error) {
	if amount == 0 {
		return holding.Account{}, domain.ErrInvalidAmount()
	}
	account, err := t.CreateAccount(ctx, owner, asset)
	if err != nil {
		return holding.Account{}, err
	}
	balance, ok := domain.CheckedAdd(account.Balance, amount)
	if !ok {
		return holding.Account{}, domain.ErrMathOverflow(account.Balance, amount)
	}
	if err := t.setBalance(ctx, account.Address, balance); err != nil {
		return holding.Account{}, err
	}
	account.Balance = balance
	return account, nil
}

func (t *tx) optionalAccount(ctx context.Context, address string) (*holding.Account, error) {
	account, err := t.getAccountBy(ctx, "address = ?", address)
	if errors.Is(err, holding.ErrAccountNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (t *tx) setBalance(ctx context.Context, address string, balance uint64) error {
	result, err := t.db.ExecContext(ctx,
		`UPDATE holding_accounts SET balance = ? WHERE address = ?`,
		formatAmount(balance),
		address,
	)
	if err != nil {
		return fmt.Errorf("update holding balance: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update holding balance: %w", err)
	}
	if affected != 1 {
		return errHoldingNotFound
	}
	return nil
}

func (q queries) getAccountBy(ctx context.Context, where string, args ...any) (holding.Account, error) {
	if err := ctx.Err(); err != nil {
		return holding.Account{}, err
	}
	var (
		account   holding.Account
		asset     string
		balance   string
		createdAt int64
	)
	err := q.db.QueryRowContext(ctx,
		`SELECT address, owner, asset, balance, created_at
		   FROM holding_accounts
		  WHERE `+where,
		args...,
	).Scan(&account.Address, &account.Owner, &asset, &balance, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return holding.Account{}, errHoldingNotFound
	}
	if err != nil {
		return holding.Account{}, fmt.Errorf("get holding account: %w", err)
	}
	parsed, err := parseAmount("holding balance", balance)
	if err != nil {
		return holding.Account{}, err
	}
	account.Asset = domain.Asset(asset)
	account.Balance = parsed
	account.CreatedAt = fromMillis(createdAt)
	return account, nil
}

var _ holding.Ledger = (*tx)(nil)
