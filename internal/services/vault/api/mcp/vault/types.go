package vault

import (
	"strconv"
	"time"

	"github.com/louisbranch/tokenvault/internal/services/vault/domain"
	"github.com/louisbranch/tokenvault/internal/services/vault/engine"
	"github.com/louisbranch/tokenvault/internal/services/vault/storage"
)

// InitializeInput represents the MCP tool input for vault initialization.
type InitializeInput struct {
	Authority string `json:"authority" jsonschema:"base64url ed25519 public key of the vault authority"`
	Asset     string `json:"asset" jsonschema:"identifier of the single accepted asset"`
	Grant     string `json:"grant" jsonschema:"request grant signed by the authority key"`
}

// InitializeResult represents the MCP tool output for vault initialization.
type InitializeResult struct {
	Vault VaultResult `json:"vault" jsonschema:"initialized vault ledger"`
	Entry EntryResult `json:"entry" jsonschema:"journal entry recorded for the operation"`
}

// TransferInput represents the MCP tool input for deposits and withdrawals.
type TransferInput struct {
	Depositor string `json:"depositor" jsonschema:"base64url ed25519 public key of the depositor"`
	Amount    string `json:"amount" jsonschema:"amount in base units as a decimal string"`
	Asset     string `json:"asset,omitempty" jsonschema:"optional asset; must match the accepted asset"`
	Grant     string `json:"grant" jsonschema:"request grant signed by the depositor key"`
}

// TransferResult represents the MCP tool output for deposits and withdrawals.
type TransferResult struct {
	Depositor     DepositorResult `json:"depositor" jsonschema:"depositor ledger after the operation"`
	PooledBalance string          `json:"pooled_balance" jsonschema:"pooled holding balance after the operation"`
	Entry         EntryResult     `json:"entry" jsonschema:"journal entry recorded for the operation"`
}

// VaultGetInput represents the MCP tool input for reading the vault ledger.
type VaultGetInput struct{}

// VaultResult is the wire form of the vault ledger.
type VaultResult struct {
	Authority     string `json:"authority" jsonschema:"vault authority identity"`
	AcceptedAsset string `json:"accepted_asset" jsonschema:"single accepted asset"`
	Initialized   bool   `json:"initialized" jsonschema:"whether the vault has been initialized"`
	Address       string `json:"address" jsonschema:"derived vault address"`
	PooledAccount string `json:"pooled_account" jsonschema:"pooled holding account address"`
	CreatedAt     string `json:"created_at" jsonschema:"RFC3339 initialization time"`
}

// DepositorGetInput represents the MCP tool input for reading a depositor ledger.
type DepositorGetInput struct {
	Depositor string `json:"depositor" jsonschema:"base64url ed25519 public key of the depositor"`
}

// DepositorResult is the wire form of a depositor ledger.
type DepositorResult struct {
	Owner     string `json:"owner" jsonschema:"depositor identity"`
	Balance   string `json:"balance" jsonschema:"ledger balance in base units"`
	Address   string `json:"address" jsonschema:"derived depositor ledger address"`
	CreatedAt string `json:"created_at" jsonschema:"RFC3339 creation time"`
	UpdatedAt string `json:"updated_at" jsonschema:"RFC3339 last update time"`
}

// AuditInput represents the MCP tool input for the solvency audit.
type AuditInput struct{}

// AuditResult represents the MCP tool output for the solvency audit.
type AuditResult struct {
	Vault          VaultResult `json:"vault" jsonschema:"vault ledger"`
	PooledBalance  string      `json:"pooled_balance" jsonschema:"pooled holding balance"`
	DepositorTotal string      `json:"depositor_total" jsonschema:"sum of all depositor balances"`
	DepositorCount int         `json:"depositor_count" jsonschema:"number of depositor ledgers"`
	Balanced       bool        `json:"balanced" jsonschema:"whether the pooled balance equals the depositor total"`
}

// EntriesListInput represents the MCP tool input for listing journal entries.
type EntriesListInput struct {
	PageSize  int    `json:"page_size,omitempty" jsonschema:"maximum entries to return (default 50, max 200)"`
	PageToken string `json:"page_token,omitempty" jsonschema:"token from a previous page"`
}

// EntriesListResult represents the MCP tool output for listing journal entries.
type EntriesListResult struct {
	Entries       []EntryResult `json:"entries" jsonschema:"journal entries in sequence order"`
	NextPageToken string        `json:"next_page_token,omitempty" jsonschema:"token for the next page when more entries exist"`
}

// EntryResult is the wire form of a journal entry.
type EntryResult struct {
	ID               string `json:"id" jsonschema:"entry identifier"`
	Seq              int64  `json:"seq" jsonschema:"journal sequence number"`
	Operation        string `json:"operation" jsonschema:"initialize, deposit, or withdraw"`
	Actor            string `json:"actor" jsonschema:"identity that signed the request"`
	Amount           string `json:"amount" jsonschema:"operation amount in base units"`
	DepositorBalance string `json:"depositor_balance" jsonschema:"actor ledger balance after the operation"`
	PooledBalance    string `json:"pooled_balance" jsonschema:"pooled holding balance after the operation"`
	CreatedAt        string `json:"created_at" jsonschema:"RFC3339 entry time"`
}

func vaultResult(v domain.Vault) VaultResult {
	return VaultResult{
		Authority:     string(v.Authority),
		AcceptedAsset: string(v.AcceptedAsset),
		Initialized:   v.Initialized,
		Address:       v.Address,
		PooledAccount: v.PooledAccount,
		CreatedAt:     formatTime(v.CreatedAt),
	}
}

func depositorResult(d domain.Depositor) DepositorResult {
	return DepositorResult{
		Owner:     string(d.Owner),
		Balance:   formatAmount(d.Balance),
		Address:   d.Address,
		CreatedAt: formatTime(d.CreatedAt),
		UpdatedAt: formatTime(d.UpdatedAt),
	}
}

func entryResult(e domain.Entry) EntryResult {
	return EntryResult{
		ID:               e.ID,
		Seq:              e.Seq,
		Operation:        string(e.Operation),
		Actor:            string(e.Actor),
		Amount:           formatAmount(e.Amount),
		DepositorBalance: formatAmount(e.DepositorBalance),
		PooledBalance:    formatAmount(e.PooledBalance),
		CreatedAt:        formatTime(e.CreatedAt),
	}
}

func transferResult(r engine.TransferResult) TransferResult {
	return TransferResult{
		Depositor:     depositorResult(r.Depositor),
		PooledBalance: formatAmount(r.PooledBalance),
		Entry:         entryResult(r.Entry),
	}
}

func auditResult(r engine.AuditReport) AuditResult {
	return AuditResult{
		Vault:          vaultResult(r.Vault),
		PooledBalance:  formatAmount(r.PooledBalance),
		DepositorTotal: formatAmount(r.DepositorTotal),
		DepositorCount: r.DepositorCount,
		Balanced:       r.Balanced,
	}
}

func entriesListResult(page storage.EntryPage) EntriesListResult {
	entries := make([]EntryResult, 0, len(page.Entries))
	for _, entry := range page.Entries {
		entries = append(entries, entryResult(entry))
	}
	return EntriesListResult{Entries: entries, NextPageToken: page.NextPageToken}
}

func formatAmount(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
