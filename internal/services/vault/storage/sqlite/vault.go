package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/louisbranch/tokenvault/internal/platform/id"
	"github.com/louisbranch/tokenvault/internal/services/vault/domain"
	"github.com/louisbranch/tokenvault/internal/services/vault/storage"
)

// queries holds the read side shared by Store and tx.
type queries struct {
	db  dbtx
	now func() time.Time
}

// tx adds the write side bound to one *sql.Tx.
type tx struct {
	queries
}

// GetVault returns the singleton vault ledger.
func (q queries) GetVault(ctx context.Context) (domain.Vault, error) {
	if err := ctx.Err(); err != nil {
		return domain.Vault{}, err
	}
	var (
		vault     domain.Vault
		authority string
		asset     string
		createdAt int64
	)
	err := q.db.QueryRowContext(ctx,
		`SELECT authority, accepted_asset, address, pooled_account, created_at
		   FROM vault_ledger
		  WHERE id = 1`,
	).Scan(&authority, &asset, &vault.Address, &vault.PooledAccount, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Vault{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.Vault{}, fmt.Errorf("get vault: %w", err)
	}
	vault.Authority = domain.Identity(authority)
	vault.AcceptedAsset = domain.Asset(asset)
	vault.Initialized = true
	vault.CreatedAt = fromMillis(createdAt)
	return vault, nil
}

// GetDepositor returns one depositor ledger.
func (q queries) GetDepositor(ctx context.Context, owner domain.Identity) (domain.Depositor, error) {
	if err := ctx.Err(); err != nil {
		return domain.Depositor{}, err
	}
	var (
		depositor domain.Depositor
		balance   string
		createdAt int64
		updatedAt int64
	)
	err := q.db.QueryRowContext(ctx,
		`SELECT address, balance, created_at, updated_at
		   FROM depositor_ledgers
		  WHERE owner = ?`,
		string(owner),
	).Scan(&depositor.Address, &balance, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Depositor{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.Depositor{}, fmt.Errorf("get depositor: %w", err)
	}
	parsed, err := parseAmount("depositor balance", balance)
	if err != nil {
		return domain.Depositor{}, err
	}
	depositor.Owner = owner
	depositor.Balance = parsed
	depositor.CreatedAt = fromMillis(createdAt)
	depositor.UpdatedAt = fromMillis(updatedAt)
	return depositor, nil
}

// SumDepositors totals every depositor balance with overflow checking.
func (q queries) SumDepositors(ctx context.Context) (storage.Totals, error) {
	if err := ctx.Err(); err != nil {
		return storage.Totals{}, err
	}
	rows, err := q.db.QueryContext(ctx, `SELECT balance FROM depositor_ledgers`)
	if err != nil {
		return storage.Totals{}, fmt.Errorf("sum depositors: %w", err)
	}
	defer rows.Close()

	var totals storage.Totals
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return storage.Totals{}, fmt.Errorf("sum depositors: %w", err)
		}
		balance, err := parseAmount("depositor balance", raw)
		if err != nil {
			return storage.Totals{}, err
		}
		sum, ok := domain.CheckedAdd(totals.DepositorBalance, balance)
		if !ok {
			return storage.Totals{}, fmt.Errorf("sum depositors: total overflows uint64")
		}
		totals.DepositorBalance = sum
		totals.DepositorCount++
	}
	if err := rows.Err(); err != nil {
		return storage.Totals{}, fmt.Errorf("sum depositors: %w", err)
	}
	return totals, nil
}

// ListEntries returns journal entries in sequence order. The page token is
// the sequence of the last entry on the previous page.
func (q queries) ListEntries(ctx context.Context, pageSize int, pageToken string) (storage.EntryPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.EntryPage{}, err
	}
	if pageSize <= 0 {
		return storage.EntryPage{}, fmt.Errorf("page size must be greater than zero")
	}
	var after int64
	if token := strings.TrimSpace(pageToken); token != "" {
		parsed, err := strconv.ParseInt(token, 10, 64)
		if err != nil || parsed < 0 {
			return storage.EntryPage{}, fmt.Errorf("%w: %q", storage.ErrInvalidPageToken, token)
		}
		after = parsed
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT seq, id, operation, actor, amount, depositor_balance, pooled_balance, created_at
		   FROM ledger_entries
		  WHERE seq > ?
		  ORDER BY seq ASC
		  LIMIT ?`,
		after,
		pageSize+1,
	)
	if err != nil {
		return storage.EntryPage{}, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	page := storage.EntryPage{Entries: make([]domain.Entry, 0, pageSize)}
	for rows.Next() {
		var (
			entry                                  domain.Entry
			operation, actor                       string
			amount, depositorBalance, pooledAmount string
			createdAt                              int64
		)
		if err := rows.Scan(&entry.Seq, &entry.ID, &operation, &actor, &amount, &depositorBalance, &pooledAmount, &createdAt); err != nil {
			return storage.EntryPage{}, fmt.Errorf("list entries: %w", err)
		}
		entry.Operation = domain.Operation(operation)
		entry.Actor = domain.Identity(actor)
		if entry.Amount, err = parseAmount("entry amount", amount); err != nil {
			return storage.EntryPage{}, err
		}
		if entry.DepositorBalance, err = parseAmount("entry depositor balance", depositorBalance); err != nil {
			return storage.EntryPage{}, err
		}
		if entry.PooledBalance, err = parseAmount("entry pooled balance", pooledAmount); err != nil {
			return storage.EntryPage{}, err
		}
		entry.CreatedAt = fromMillis(createdAt)
		page.Entries = append(page.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return storage.EntryPage{}, fmt.Errorf("list entries: %w", err)
	}
	if len(page.Entries) > pageSize {
		page.Entries = page.Entries[:pageSize]
		page.NextPageToken = strconv.FormatInt(page.Entries[pageSize-1].Seq, 10)
	}
	return page, nil
}

// CreateVault inserts the singleton vault row.
func (t *tx) CreateVault(ctx context.Context, vault domain.Vault) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	createdAt := vault.CreatedAt
	if createdAt.IsZero() {
		createdAt = t.now()
	}
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO vault_ledger (id, authority, accepted_asset, address, pooled_account, created_at)
		 VALUES (1, ?, ?, ?, ?, ?)`,
		string(vault.Authority),
		string(vault.AcceptedAsset),
		vault.Address,
		vault.PooledAccount,
		toMillis(createdAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrVaultExists
		}
		return fmt.Errorf("create vault: %w", err)
	}
	return nil
}

// PutDepositor inserts or updates one depositor ledger.
func (t *tx) PutDepositor(ctx context.Context, depositor domain.Depositor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(string(depositor.Owner)) == "" {
		return fmt.Errorf("depositor owner is required")
	}
	now := t.now()
	createdAt := depositor.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := depositor.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO depositor_ledgers (owner, address, balance, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(owner) DO UPDATE SET
		   balance = excluded.balance,
		   updated_at = excluded.updated_at`,
		string(depositor.Owner),
		depositor.Address,
		formatAmount(depositor.Balance),
		toMillis(createdAt),
		toMillis(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("put depositor: %w", err)
	}
	return nil
}

// ConsumeGrant records a used grant.
func (t *tx) ConsumeGrant(ctx context.Context, grant storage.ConsumedGrant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(grant.GrantID) == "" {
		return fmt.Errorf("grant id is required")
	}
	usedAt := grant.UsedAt
	if usedAt.IsZero() {
		usedAt = t.now()
	}
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO request_grants (signer, grant_id, operation, expires_at, used_at)
		 VALUES (?, ?, ?, ?, ?)`,
		string(grant.Signer),
		grant.GrantID,
		string(grant.Operation),
		toMillis(grant.ExpiresAt),
		toMillis(usedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrGrantConsumed
		}
		return fmt.Errorf("consume grant: %w", err)
	}
	return nil
}

// AppendEntry writes a journal entry, assigning ID and CreatedAt when unset.
func (t *tx) AppendEntry(ctx context.Context, entry domain.Entry) (domain.Entry, error) {
	if err := ctx.Err(); err != nil {
		return domain.Entry{}, err
	}
	if !entry.Operation.Valid() {
		return domain.Entry{}, fmt.Errorf("entry operation %q is invalid", entry.Operation)
	}
	if entry.ID == "" {
		generated, err := id.NewID()
		if err != nil {
			return domain.Entry{}, fmt.Errorf("entry id: %w", err)
		}
		entry.ID = generated
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = t.now().UTC()
	}
	result, err := t.db.ExecContext(ctx,
		`INSERT INTO ledger_entries (id, operation, actor, amount, depositor_balance, pooled_balance, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		string(entry.Operation),
		string(entry.Actor),
		formatAmount(entry.Amount),
		formatAmount(entry.DepositorBalance),
		formatAmount(entry.PooledBalance),
		toMillis(entry.CreatedAt),
	)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("append entry: %w", err)
	}
	seq, err := result.LastInsertId()
	if err != nil {
		return domain.Entry{}, fmt.Errorf("append entry: %w", err)
	}
	entry.Seq = seq
	entry.CreatedAt = fromMillis(toMillis(entry.CreatedAt))
	return entry, nil
}

var _ storage.Tx = (*tx)(nil)
