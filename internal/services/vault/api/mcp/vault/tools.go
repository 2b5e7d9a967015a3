package vault

import (
	"context"

	"github.com/louisbranch/tokenvault/internal/platform/requestctx"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	serverName    = "tokenvault"
	serverVersion = "0.1.0"
)

// InitializeTool defines the MCP tool schema for vault initialization.
func InitializeTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "vault_initialize",
		Description: "Initializes the vault once with an authority and the single accepted asset",
	}
}

// DepositTool defines the MCP tool schema for deposits.
func DepositTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "vault_deposit",
		Description: "Moves tokens from the depositor's holding account into the pooled account and credits their ledger",
	}
}

// WithdrawTool defines the MCP tool schema for withdrawals.
func WithdrawTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "vault_withdraw",
		Description: "Debits the depositor's ledger and moves tokens from the pooled account back to their holding account",
	}
}

// VaultGetTool defines the MCP tool schema for reading the vault ledger.
func VaultGetTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "vault_get",
		Description: "Returns the vault ledger: authority, accepted asset, and derived addresses",
	}
}

// DepositorGetTool defines the MCP tool schema for reading a depositor ledger.
func DepositorGetTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "vault_depositor_get",
		Description: "Returns the ledger balance recorded for one depositor",
	}
}

// AuditTool defines the MCP tool schema for the solvency audit.
func AuditTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "vault_audit",
		Description: "Checks that the pooled balance equals the sum of all depositor balances",
	}
}

// EntriesListTool defines the MCP tool schema for the operation journal.
func EntriesListTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "vault_entries_list",
		Description: "Lists journal entries for successful operations in sequence order",
	}
}

// Options configures tool registration.
type Options struct {
	// Locale renders rejection messages when the call context carries none.
	Locale string
}

// NewServer builds an MCP server with every vault tool registered.
func NewServer(svc Service, opts Options) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	Register(server, svc, opts)
	return server
}

// Register adds the vault tools to server.
func Register(server *mcp.Server, svc Service, opts Options) {
	mcp.AddTool(server, InitializeTool(), localized(opts.Locale, InitializeHandler(svc)))
	mcp.AddTool(server, DepositTool(), localized(opts.Locale, DepositHandler(svc)))
	mcp.AddTool(server, WithdrawTool(), localized(opts.Locale, WithdrawHandler(svc)))
	mcp.AddTool(server, VaultGetTool(), localized(opts.Locale, VaultGetHandler(svc)))
	mcp.AddTool(server, DepositorGetTool(), localized(opts.Locale, DepositorGetHandler(svc)))
	mcp.AddTool(server, AuditTool(), localized(opts.Locale, AuditHandler(svc)))
	mcp.AddTool(server, EntriesListTool(), localized(opts.Locale, EntriesListHandler(svc)))
}

func localized[I, O any](locale string, handler mcp.ToolHandlerFor[I, O]) mcp.ToolHandlerFor[I, O] {
	if locale == "" {
		return handler
	}
	return func(ctx context.Context, req *mcp.CallToolRequest, input I) (*mcp.CallToolResult, O, error) {
		if requestctx.LocaleFromContext(ctx, "") == "" {
			ctx = requestctx.WithLocale(ctx, locale)
		}
		return handler(ctx, req, input)
	}
}
