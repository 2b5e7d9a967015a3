package vault

import (
	"context"
	"strconv"
	"strings"

	apperrors "github.com/louisbranch/tokenvault/internal/platform/errors"
	"github.com/louisbranch/tokenvault/internal/platform/id"
	"github.com/louisbranch/tokenvault/internal/platform/requestctx"
	"github.com/louisbranch/tokenvault/internal/services/vault/domain"
	"github.com/louisbranch/tokenvault/internal/services/vault/engine"
	"github.com/louisbranch/tokenvault/internal/services/vault/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Service is the custody surface the tools call into.
type Service interface {
	Initialize(ctx context.Context, req engine.InitializeRequest) (engine.InitializeResult, error)
	Deposit(ctx context.Context, req engine.TransferRequest) (engine.TransferResult, error)
	Withdraw(ctx context.Context, req engine.TransferRequest) (engine.TransferResult, error)
	GetVault(ctx context.Context) (domain.Vault, error)
	GetDepositor(ctx context.Context, owner domain.Identity) (domain.Depositor, error)
	Audit(ctx context.Context) (engine.AuditReport, error)
	ListEntries(ctx context.Context, pageSize int, pageToken string) (storage.EntryPage, error)
}

// InitializeHandler executes a vault initialization request.
func InitializeHandler(svc Service) mcp.ToolHandlerFor[InitializeInput, InitializeResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input InitializeInput) (*mcp.CallToolResult, InitializeResult, error) {
		ctx = withRequestID(ctx)
		authority, err := domain.ParseIdentity(input.Authority)
		if err != nil {
			return nil, InitializeResult{}, toolError(ctx, err)
		}
		result, err := svc.Initialize(ctx, engine.InitializeRequest{
			Authority: authority,
			Asset:     domain.Asset(input.Asset),
			Grant:     strings.TrimSpace(input.Grant),
		})
		if err != nil {
			return nil, InitializeResult{}, toolError(ctx, err)
		}
		return nil, InitializeResult{Vault: vaultResult(result.Vault), Entry: entryResult(result.Entry)}, nil
	}
}

// DepositHandler executes a deposit request.
func DepositHandler(svc Service) mcp.ToolHandlerFor[TransferInput, TransferResult] {
	return transferHandler(svc.Deposit)
}

// WithdrawHandler executes a withdrawal request.
func WithdrawHandler(svc Service) mcp.ToolHandlerFor[TransferInput, TransferResult] {
	return transferHandler(svc.Withdraw)
}

func transferHandler(run func(context.Context, engine.TransferRequest) (engine.TransferResult, error)) mcp.ToolHandlerFor[TransferInput, TransferResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input TransferInput) (*mcp.CallToolResult, TransferResult, error) {
		ctx = withRequestID(ctx)
		req, err := transferRequest(input)
		if err != nil {
			return nil, TransferResult{}, toolError(ctx, err)
		}
		result, err := run(ctx, req)
		if err != nil {
			return nil, TransferResult{}, toolError(ctx, err)
		}
		return nil, transferResult(result), nil
	}
}

// VaultGetHandler returns the vault ledger.
func VaultGetHandler(svc Service) mcp.ToolHandlerFor[VaultGetInput, VaultResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ VaultGetInput) (*mcp.CallToolResult, VaultResult, error) {
		vault, err := svc.GetVault(ctx)
		if err != nil {
			return nil, VaultResult{}, toolError(ctx, err)
		}
		return nil, vaultResult(vault), nil
	}
}

// DepositorGetHandler returns one depositor ledger.
func DepositorGetHandler(svc Service) mcp.ToolHandlerFor[DepositorGetInput, DepositorResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input DepositorGetInput) (*mcp.CallToolResult, DepositorResult, error) {
		owner, err := domain.ParseIdentity(input.Depositor)
		if err != nil {
			return nil, DepositorResult{}, toolError(ctx, err)
		}
		depositor, err := svc.GetDepositor(ctx, owner)
		if err != nil {
			return nil, DepositorResult{}, toolError(ctx, err)
		}
		return nil, depositorResult(depositor), nil
	}
}

// AuditHandler compares the pooled balance with the depositor total.
func AuditHandler(svc Service) mcp.ToolHandlerFor[AuditInput, AuditResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ AuditInput) (*mcp.CallToolResult, AuditResult, error) {
		report, err := svc.Audit(withRequestID(ctx))
		if err != nil {
			return nil, AuditResult{}, toolError(ctx, err)
		}
		return nil, auditResult(report), nil
	}
}

// EntriesListHandler pages through the operation journal.
func EntriesListHandler(svc Service) mcp.ToolHandlerFor[EntriesListInput, EntriesListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input EntriesListInput) (*mcp.CallToolResult, EntriesListResult, error) {
		if input.PageSize < 0 {
			return nil, EntriesListResult{}, toolError(ctx, invalidArgument("page_size", "page size must not be negative"))
		}
		page, err := svc.ListEntries(ctx, input.PageSize, strings.TrimSpace(input.PageToken))
		if err != nil {
			return nil, EntriesListResult{}, toolError(ctx, err)
		}
		return nil, entriesListResult(page), nil
	}
}

func transferRequest(input TransferInput) (engine.TransferRequest, error) {
	depositor, err := domain.ParseIdentity(input.Depositor)
	if err != nil {
		return engine.TransferRequest{}, err
	}
	amount, err := parseAmount(input.Amount)
	if err != nil {
		return engine.TransferRequest{}, err
	}
	return engine.TransferRequest{
		Depositor: depositor,
		Amount:    amount,
		Asset:     domain.Asset(strings.TrimSpace(input.Asset)),
		Grant:     strings.TrimSpace(input.Grant),
	}, nil
}

func parseAmount(raw string) (uint64, error) {
	amount, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, invalidArgument("amount", "amount must be an unsigned decimal integer")
	}
	return amount, nil
}

func invalidArgument(field, message string) error {
	return apperrors.WithMetadata(apperrors.CodeInvalidArgument, message, map[string]string{"Field": field})
}

// withRequestID tags mutating calls so engine logs can be correlated. A
// well-formed caller request ID is kept; anything else is replaced.
func withRequestID(ctx context.Context) context.Context {
	if id.Valid(requestctx.RequestIDFromContext(ctx)) {
		return ctx
	}
	requestID, err := id.NewID()
	if err != nil {
		return ctx
	}
	return requestctx.WithRequestID(ctx, requestID)
}
