package vault

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	apperrors "github.com/louisbranch/tokenvault/internal/platform/errors"
	"github.com/louisbranch/tokenvault/internal/platform/id"
	"github.com/louisbranch/tokenvault/internal/platform/requestctx"
	"github.com/louisbranch/tokenvault/internal/services/vault/domain"
	"github.com/louisbranch/tokenvault/internal/services/vault/engine"
	"github.com/louisbranch/tokenvault/internal/services/vault/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var fixedTime = time.Date(2026, time.April, 2, 15, 0, 0, 0, time.UTC)

type fakeService struct {
	lastTransfer engine.TransferRequest
	lastInit     engine.InitializeRequest
	lastPage     struct {
		size  int
		token string
	}
	requestID string
	err       error
}

func (f *fakeService) Initialize(ctx context.Context, req engine.InitializeRequest) (engine.InitializeResult, error) {
	f.lastInit = req
	f.requestID = requestctx.RequestIDFromContext(ctx)
	if f.err != nil {
		return engine.InitializeResult{}, f.err
	}
	return engine.InitializeResult{
		Vault: domain.Vault{Authority: req.Authority, AcceptedAsset: req.Asset, Initialized: true, Address: "va", PooledAccount: "pa", CreatedAt: fixedTime},
		Entry: domain.Entry{ID: "e1", Seq: 1, Operation: domain.OperationInitialize, Actor: req.Authority, CreatedAt: fixedTime},
	}, nil
}

func (f *fakeService) Deposit(ctx context.Context, req engine.TransferRequest) (engine.TransferResult, error) {
	return f.transfer(ctx, req, domain.OperationDeposit)
}

func (f *fakeService) Withdraw(ctx context.Context, req engine.TransferRequest) (engine.TransferResult, error) {
	return f.transfer(ctx, req, domain.OperationWithdraw)
}

func (f *fakeService) transfer(ctx context.Context, req engine.TransferRequest, op domain.Operation) (engine.TransferResult, error) {
	f.lastTransfer = req
	f.requestID = requestctx.RequestIDFromContext(ctx)
	if f.err != nil {
		return engine.TransferResult{}, f.err
	}
	return engine.TransferResult{
		Depositor:     domain.Depositor{Owner: req.Depositor, Balance: req.Amount, CreatedAt: fixedTime, UpdatedAt: fixedTime},
		PooledBalance: req.Amount,
		Entry:         domain.Entry{ID: "e2", Seq: 2, Operation: op, Actor: req.Depositor, Amount: req.Amount, DepositorBalance: req.Amount, PooledBalance: req.Amount, CreatedAt: fixedTime},
	}, nil
}

func (f *fakeService) GetVault(context.Context) (domain.Vault, error) {
	if f.err != nil {
		return domain.Vault{}, f.err
	}
	return domain.Vault{Authority: "auth", AcceptedAsset: "usdc", Initialized: true, CreatedAt: fixedTime}, nil
}

func (f *fakeService) GetDepositor(_ context.Context, owner domain.Identity) (domain.Depositor, error) {
	if f.err != nil {
		return domain.Depositor{}, f.err
	}
	return domain.Depositor{Owner: owner, Balance: 42}, nil
}

func (f *fakeService) Audit(context.Context) (engine.AuditReport, error) {
	if f.err != nil {
		return engine.AuditReport{}, f.err
	}
	return engine.AuditReport{PooledBalance: 70, DepositorTotal: 70, DepositorCount: 2, Balanced: true}, nil
}

func (f *fakeService) ListEntries(_ context.Context, pageSize int, pageToken string) (storage.EntryPage, error) {
	f.lastPage.size = pageSize
	f.lastPage.token = pageToken
	if f.err != nil {
		return storage.EntryPage{}, f.err
	}
	return storage.EntryPage{Entries: []domain.Entry{{ID: "e1", Seq: 1, Operation: domain.OperationInitialize}}, NextPageToken: "1"}, nil
}

func testIdentity(t *testing.T) string {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return string(domain.IdentityFromPublicKey(pub))
}

func requireToolError(t *testing.T, err error, code apperrors.Code) *ToolError {
	t.Helper()
	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected tool error, got %v", err)
	}
	if toolErr.Code != code {
		t.Fatalf("expected code %s, got %s", code, toolErr.Code)
	}
	if !strings.HasPrefix(toolErr.Error(), string(code)+": ") {
		t.Fatalf("error text should lead with code: %q", toolErr.Error())
	}
	return toolErr
}

func TestDepositHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &fakeService{}
		depositor := testIdentity(t)
		_, result, err := DepositHandler(svc)(context.Background(), nil, TransferInput{
			Depositor: depositor,
			Amount:    "18446744073709551615",
			Asset:     " usdc ",
			Grant:     " grant ",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if svc.lastTransfer.Amount != ^uint64(0) || svc.lastTransfer.Asset != "usdc" || svc.lastTransfer.Grant != "grant" {
			t.Fatalf("unexpected request %+v", svc.lastTransfer)
		}
		if svc.requestID == "" {
			t.Fatal("expected request id in context")
		}
		if result.Depositor.Balance != "18446744073709551615" || result.Entry.Operation != "deposit" {
			t.Fatalf("unexpected result %+v", result)
		}
		if result.Entry.CreatedAt != "2026-04-02T15:00:00Z" {
			t.Fatalf("created_at = %q", result.Entry.CreatedAt)
		}
	})

	t.Run("invalid amount text", func(t *testing.T) {
		svc := &fakeService{}
		_, _, err := DepositHandler(svc)(context.Background(), nil, TransferInput{Depositor: testIdentity(t), Amount: "-5"})
		requireToolError(t, err, apperrors.CodeInvalidArgument)
	})

	t.Run("invalid identity", func(t *testing.T) {
		svc := &fakeService{}
		_, _, err := DepositHandler(svc)(context.Background(), nil, TransferInput{Depositor: "nope", Amount: "5"})
		requireToolError(t, err, apperrors.CodeVaultInvalidIdentity)
	})

	t.Run("domain rejection is localized", func(t *testing.T) {
		svc := &fakeService{err: domain.ErrInsufficientFunds(3, 5)}
		ctx := requestctx.WithLocale(context.Background(), "pt-BR")
		_, _, err := DepositHandler(svc)(ctx, nil, TransferInput{Depositor: testIdentity(t), Amount: "5"})
		toolErr := requireToolError(t, err, apperrors.CodeVaultInsufficientFunds)
		english := apperrors.LocalizedMessage(domain.ErrInsufficientFunds(3, 5), "en-US")
		if toolErr.Message == english {
			t.Fatalf("expected pt-BR message, got english %q", toolErr.Message)
		}
	})

	t.Run("internal error is hidden", func(t *testing.T) {
		svc := &fakeService{err: errors.New("disk on fire")}
		_, _, err := DepositHandler(svc)(context.Background(), nil, TransferInput{Depositor: testIdentity(t), Amount: "5"})
		toolErr := requireToolError(t, err, apperrors.CodeUnknown)
		if strings.Contains(toolErr.Error(), "disk") {
			t.Fatalf("internal detail leaked: %q", toolErr.Error())
		}
	})
}

func TestWithdrawHandlerUsesWithdraw(t *testing.T) {
	svc := &fakeService{}
	_, result, err := WithdrawHandler(svc)(context.Background(), nil, TransferInput{Depositor: testIdentity(t), Amount: "7"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Entry.Operation != "withdraw" || result.PooledBalance != "7" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestInitializeHandler(t *testing.T) {
	svc := &fakeService{}
	authority := testIdentity(t)
	_, result, err := InitializeHandler(svc)(context.Background(), nil, InitializeInput{Authority: authority, Asset: "usdc", Grant: "g"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(svc.lastInit.Authority) != authority || svc.lastInit.Asset != "usdc" {
		t.Fatalf("unexpected request %+v", svc.lastInit)
	}
	if !result.Vault.Initialized || result.Vault.Authority != authority {
		t.Fatalf("unexpected result %+v", result)
	}

	svc.err = domain.ErrAlreadyInitialized()
	_, _, err = InitializeHandler(svc)(context.Background(), nil, InitializeInput{Authority: authority, Asset: "usdc", Grant: "g"})
	requireToolError(t, err, apperrors.CodeVaultAlreadyInitialized)
}

func TestEntriesListHandler(t *testing.T) {
	svc := &fakeService{}
	_, result, err := EntriesListHandler(svc)(context.Background(), nil, EntriesListInput{PageSize: 10, PageToken: " 4 "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.lastPage.size != 10 || svc.lastPage.token != "4" {
		t.Fatalf("unexpected paging %+v", svc.lastPage)
	}
	if len(result.Entries) != 1 || result.NextPageToken != "1" {
		t.Fatalf("unexpected result %+v", result)
	}

	_, _, err = EntriesListHandler(svc)(context.Background(), nil, EntriesListInput{PageSize: -1})
	requireToolError(t, err, apperrors.CodeInvalidArgument)
}

func TestToolsOverInMemoryTransport(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	server := NewServer(&fakeService{}, Options{Locale: "pt-BR"})
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("connect server: %v", err)
	}
	defer serverSession.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("connect client: %v", err)
	}
	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range tools.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"vault_initialize", "vault_deposit", "vault_withdraw", "vault_get", "vault_depositor_get", "vault_audit", "vault_entries_list"} {
		if !names[want] {
			t.Fatalf("tool %s not registered (have %v)", want, names)
		}
	}

	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "vault_audit", Arguments: map[string]any{}})
	if err != nil {
		t.Fatalf("call vault_audit: %v", err)
	}
	if res.IsError {
		t.Fatalf("vault_audit returned error content: %+v", res.Content)
	}
	data, err := json.Marshal(res.StructuredContent)
	if err != nil {
		t.Fatalf("marshal structured content: %v", err)
	}
	var audit AuditResult
	if err := json.Unmarshal(data, &audit); err != nil {
		t.Fatalf("unmarshal structured content: %v", err)
	}
	if !audit.Balanced || audit.PooledBalance != "70" || audit.DepositorCount != 2 {
		t.Fatalf("unexpected audit %+v", audit)
	}

	res, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "vault_deposit",
		Arguments: map[string]any{"depositor": "bad", "amount": "1", "grant": "g"},
	})
	if err != nil {
		t.Fatalf("call vault_deposit: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected error result for invalid identity")
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok || !strings.HasPrefix(text.Text, string(apperrors.CodeVaultInvalidIdentity)) {
		t.Fatalf("unexpected error content %+v", res.Content)
	}
}

func TestLocalizedFallsBackToConfiguredLocale(t *testing.T) {
	svc := &fakeService{err: domain.ErrNotInitialized()}
	handler := localized("pt-BR", VaultGetHandler(svc))
	_, _, err := handler(context.Background(), nil, VaultGetInput{})
	toolErr := requireToolError(t, err, apperrors.CodeVaultNotInitialized)
	if toolErr.Message != apperrors.LocalizedMessage(domain.ErrNotInitialized(), "pt-BR") {
		t.Fatalf("expected pt-BR message, got %q", toolErr.Message)
	}

	ctx := requestctx.WithLocale(context.Background(), "en-US")
	_, _, err = handler(ctx, nil, VaultGetInput{})
	toolErr = requireToolError(t, err, apperrors.CodeVaultNotInitialized)
	if toolErr.Message != apperrors.LocalizedMessage(domain.ErrNotInitialized(), "en-US") {
		t.Fatalf("expected caller locale to win, got %q", toolErr.Message)
	}
}

func TestTransferRequestID(t *testing.T) {
	callerID, err := id.NewID()
	if err != nil {
		t.Fatalf("new id: %v", err)
	}
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{name: "generated when missing", incoming: ""},
		{name: "caller id kept", incoming: callerID, keep: true},
		{name: "malformed id replaced", incoming: "req-1\nforged=1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			ctx := context.Background()
			if tt.incoming != "" {
				ctx = requestctx.WithRequestID(ctx, tt.incoming)
			}
			if _, _, err := WithdrawHandler(svc)(ctx, nil, TransferInput{Depositor: testIdentity(t), Amount: "5"}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !id.Valid(svc.requestID) {
				t.Fatalf("request id %q is not well-formed", svc.requestID)
			}
			if got := svc.requestID == tt.incoming; got != tt.keep {
				t.Fatalf("request id = %q, incoming %q, keep %v", svc.requestID, tt.incoming, tt.keep)
			}
		})
	}
}
