// Package storage defines persistence contracts for vault state.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/tokenvault/internal/services/vault/domain"
	"github.com/louisbranch/tokenvault/internal/services/vault/holding"
)

var (
	// ErrNotFound indicates a requested vault record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrVaultExists indicates the singleton vault row was already written.
	ErrVaultExists = errors.New("vault already exists")
	// ErrGrantConsumed indicates a request grant was already used.
	ErrGrantConsumed = errors.New("grant already consumed")
	// ErrInvalidPageToken indicates a page token this store did not issue.
	ErrInvalidPageToken = errors.New("invalid page token")
)

// ConsumedGrant records one used request grant.
type ConsumedGrant struct {
	Signer    domain.Identity
	GrantID   string
	Operation domain.Operation
	ExpiresAt time.Time
	UsedAt    time.Time
}

// Totals summarizes depositor ledgers for audits.
type Totals struct {
	DepositorBalance uint64
	DepositorCount   int
}

// EntryPage stores one page of journal entries.
type EntryPage struct {
	Entries       []domain.Entry
	NextPageToken string
}

// Reader exposes vault reads.
type Reader interface {
	GetVault(ctx context.Context) (domain.Vault, error)
	GetDepositor(ctx context.Context, owner domain.Identity) (domain.Depositor, error)
	// SumDepositors totals every depositor balance. The total overflowing
	// uint64 is reported as an error.
	SumDepositors(ctx context.Context) (Totals, error)
	ListEntries(ctx context.Context, pageSize int, pageToken string) (EntryPage, error)
	GetAccount(ctx context.Context, owner string, asset domain.Asset) (holding.Account, error)
}

// Tx is one unit of work. Every write made through a Tx commits or rolls
// back together.
type Tx interface {
	Reader
	holding.Ledger

	// CreateVault writes the singleton vault row, or returns ErrVaultExists.
	CreateVault(ctx context.Context, vault domain.Vault) error
	// PutDepositor inserts or replaces a depositor ledger.
	PutDepositor(ctx context.Context, depositor domain.Depositor) error
	// ConsumeGrant records grant use, or returns ErrGrantConsumed.
	ConsumeGrant(ctx context.Context, grant ConsumedGrant) error
	// AppendEntry writes a journal entry and returns it with Seq assigned.
	AppendEntry(ctx context.Context, entry domain.Entry) (domain.Entry, error)
}

// Store persists vault state.
type Store interface {
	Reader
	// Atomic runs fn in one serialized transaction, committing when fn
	// returns nil. fn may run more than once when the database is busy, so
	// it must not have side effects outside tx.
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close() error
}
