// Package engine implements the vault custody operations.
//
// Each state-changing operation authorizes its grant, then runs every check
// and mutation in one store transaction. A rejection at any step rolls the
// whole transaction back, grant consumption included.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	apperrors "github.com/louisbranch/tokenvault/internal/platform/errors"
	"github.com/louisbranch/tokenvault/internal/platform/requestctx"
	"github.com/louisbranch/tokenvault/internal/platform/timeouts"
	"github.com/louisbranch/tokenvault/internal/services/vault/authz"
	"github.com/louisbranch/tokenvault/internal/services/vault/domain"
	"github.com/louisbranch/tokenvault/internal/services/vault/storage"
)

// Verifier checks that a grant authorizes an expected request.
type Verifier interface {
	VerifySigner(grant string, expected authz.Expectation) (authz.Claims, error)
}

// Engine runs vault operations against a store.
type Engine struct {
	store    storage.Store
	verifier Verifier
	logger   *zap.Logger
	tracer   trace.Tracer
	metrics  *Metrics
	now      func() time.Time
	timeout  time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTracer sets the tracer used for operation spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// WithMetrics sets the collectors updated by the engine.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithTimeout bounds each operation. Zero keeps the default.
func WithTimeout(timeout time.Duration) Option {
	return func(e *Engine) {
		if timeout > 0 {
			e.timeout = timeout
		}
	}
}

// New builds an engine.
func New(store storage.Store, verifier Verifier, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if verifier == nil {
		return nil, fmt.Errorf("verifier is required")
	}
	e := &Engine{
		store:    store,
		verifier: verifier,
		logger:   zap.NewNop(),
		tracer:   noop.NewTracerProvider().Tracer("vault"),
		now:      time.Now,
		timeout:  timeouts.Operation,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// InitializeRequest creates the vault.
type InitializeRequest struct {
	Authority domain.Identity
	Asset     domain.Asset
	Grant     string
}

// InitializeResult is the created vault.
type InitializeResult struct {
	Vault domain.Vault
	Entry domain.Entry
}

// TransferRequest moves Amount between a depositor and the pool. Asset is
// optional; when set it must equal the accepted asset.
type TransferRequest struct {
	Depositor domain.Identity
	Amount    uint64
	Asset     domain.Asset
	Grant     string
}

// TransferResult reports the depositor ledger and pool after a deposit or
// withdrawal.
type TransferResult struct {
	Depositor     domain.Depositor
	PooledBalance uint64
	Entry         domain.Entry
}

// AuditReport compares depositor ledgers with the pooled holding balance.
type AuditReport struct {
	Vault          domain.Vault
	PooledBalance  uint64
	DepositorTotal uint64
	DepositorCount int
	Balanced       bool
}

// Initialize creates the vault with req.Authority as its authority. Of any
// number of concurrent calls exactly one succeeds.
func (e *Engine) Initialize(ctx context.Context, req InitializeRequest) (result InitializeResult, err error) {
	req.Asset = req.Asset.Normalize()
	ctx, finish := e.begin(ctx, string(domain.OperationInitialize),
		attribute.String("vault.authority", string(req.Authority)),
		attribute.String("vault.asset", string(req.Asset)),
	)
	defer func() {
		finish(err,
			zap.String("authority", string(req.Authority)),
			zap.String("asset", string(req.Asset)),
		)
	}()

	claims, err := e.verifier.VerifySigner(req.Grant, authz.Expectation{
		Signer:    req.Authority,
		Operation: domain.OperationInitialize,
		Asset:     req.Asset,
	})
	if err != nil {
		return InitializeResult{}, err
	}

	err = e.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := consume(ctx, tx, claims, e.now()); err != nil {
			return err
		}
		current, err := optionalVault(ctx, tx)
		if err != nil {
			return err
		}
		vault, err := domain.DecideInitialize(current, req.Authority, req.Asset, e.now())
		if err != nil {
			return err
		}
		if err := tx.CreateVault(ctx, vault); err != nil {
			if errors.Is(err, storage.ErrVaultExists) {
				return domain.ErrAlreadyInitialized()
			}
			return err
		}
		pooled, err := tx.CreateAccount(ctx, vault.Address, vault.AcceptedAsset)
		if err != nil {
			return fmt.Errorf("create pooled account: %w", err)
		}
		entry, err := tx.AppendEntry(ctx, domain.Entry{
			Operation:     domain.OperationInitialize,
			Actor:         req.Authority,
			PooledBalance: pooled.Balance,
		})
		if err != nil {
			return err
		}
		result = InitializeResult{Vault: vault, Entry: entry}
		return nil
	})
	if err != nil {
		return InitializeResult{}, err
	}
	e.metrics.setPooled(result.Entry.PooledBalance)
	return result, nil
}

// Deposit moves req.Amount from the depositor's holding account into the
// pool and credits the depositor's ledger by the same amount.
func (e *Engine) Deposit(ctx context.Context, req TransferRequest) (result TransferResult, err error) {
	req.Asset = req.Asset.Normalize()
	ctx, finish := e.begin(ctx, string(domain.OperationDeposit), transferAttributes(req)...)
	defer func() { finish(err, transferFields(req, result)...) }()

	claims, err := e.verifier.VerifySigner(req.Grant, expectation(domain.OperationDeposit, req))
	if err != nil {
		return TransferResult{}, err
	}

	err = e.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := consume(ctx, tx, claims, e.now()); err != nil {
			return err
		}
		vault, ledger, err := load(ctx, tx, req.Depositor)
		if err != nil {
			return err
		}
		change, err := domain.DecideDeposit(vault, ledger, req.Depositor, req.Amount, req.Asset)
		if err != nil {
			return err
		}
		source := holdingAddress(string(req.Depositor), vault.AcceptedAsset)
		if err := tx.Transfer(ctx, holdingTransfer(source, vault.PooledAccount, req.Amount, string(req.Depositor))); err != nil {
			return err
		}
		result, err = e.commitChange(ctx, tx, vault, ledger, change)
		return err
	})
	if err != nil {
		return TransferResult{}, err
	}
	e.metrics.setPooled(result.PooledBalance)
	return result, nil
}

// Withdraw debits the depositor's ledger and moves req.Amount from the pool
// to the depositor's holding account. The pool transfer is authorized by the
// vault itself; no external signer, the authority included, can move pooled
// funds.
func (e *Engine) Withdraw(ctx context.Context, req TransferRequest) (result TransferResult, err error) {
	req.Asset = req.Asset.Normalize()
	ctx, finish := e.begin(ctx, string(domain.OperationWithdraw), transferAttributes(req)...)
	defer func() { finish(err, transferFields(req, result)...) }()

	claims, err := e.verifier.VerifySigner(req.Grant, expectation(domain.OperationWithdraw, req))
	if err != nil {
		return TransferResult{}, err
	}

	err = e.store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := consume(ctx, tx, claims, e.now()); err != nil {
			return err
		}
		vault, ledger, err := load(ctx, tx, req.Depositor)
		if err != nil {
			return err
		}
		change, err := domain.DecideWithdraw(vault, ledger, req.Depositor, req.Amount, req.Asset)
		if err != nil {
			return err
		}
		pooled, err := tx.GetAccount(ctx, vault.Address, vault.AcceptedAsset)
		if err != nil {
			return fmt.Errorf("get pooled account: %w", err)
		}
		if pooled.Balance < req.Amount {
			return domain.ErrInsufficientFunds(pooled.Balance, req.Amount)
		}
		destination, err := tx.CreateAccount(ctx, string(req.Depositor), vault.AcceptedAsset)
		if err != nil {
			return fmt.Errorf("create depositor holding account: %w", err)
		}
		if err := tx.Transfer(ctx, holdingTransfer(vault.PooledAccount, destination.Address, req.Amount, vault.Address)); err != nil {
			return err
		}
		result, err = e.commitChange(ctx, tx, vault, ledger, change)
		return err
	})
	if err != nil {
		return TransferResult{}, err
	}
	e.metrics.setPooled(result.PooledBalance)
	return result, nil
}

// commitChange writes the depositor ledger and the journal entry for change.
func (e *Engine) commitChange(ctx context.Context, tx storage.Tx, vault *domain.Vault, ledger *domain.Depositor, change domain.Change) (TransferResult, error) {
	now := e.now().UTC()
	depositor := domain.Depositor{
		Owner:     change.Owner,
		Balance:   change.BalanceAfter,
		Address:   depositorAddress(change.Owner),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if ledger != nil {
		depositor.Address = ledger.Address
		depositor.CreatedAt = ledger.CreatedAt
	}
	if err := tx.PutDepositor(ctx, depositor); err != nil {
		return TransferResult{}, err
	}
	pooled, err := tx.GetAccount(ctx, vault.Address, vault.AcceptedAsset)
	if err != nil {
		return TransferResult{}, fmt.Errorf("get pooled account: %w", err)
	}
	entry, err := tx.AppendEntry(ctx, domain.Entry{
		Operation:        change.Operation,
		Actor:            change.Owner,
		Amount:           change.Amount,
		DepositorBalance: change.BalanceAfter,
		PooledBalance:    pooled.Balance,
		CreatedAt:        now,
	})
	if err != nil {
		return TransferResult{}, err
	}
	return TransferResult{Depositor: depositor, PooledBalance: pooled.Balance, Entry: entry}, nil
}

// begin opens the span and deadline for the operation named label. The
// returned finish records the outcome and logs it.
func (e *Engine) begin(ctx context.Context, label string, attrs ...attribute.KeyValue) (context.Context, func(error, ...zap.Field)) {
	started := time.Now()
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	ctx, span := e.tracer.Start(ctx, "vault."+label,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(append(attrs, attribute.String("vault.operation", label))...),
	)
	return ctx, func(err error, fields ...zap.Field) {
		defer cancel()
		defer span.End()
		e.metrics.observe(label, started, err)
		e.logOutcome(ctx, label, err, fields...)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, string(apperrors.GetCode(err)))
		}
	}
}

func (e *Engine) logOutcome(ctx context.Context, op string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("operation", op))
	if requestID := requestctx.RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if err == nil {
		e.logger.Info("vault operation accepted", fields...)
		return
	}
	code := apperrors.GetCode(err)
	fields = append(fields, zap.String("code", string(code)), zap.Error(err))
	if code == apperrors.CodeUnknown {
		e.logger.Error("vault operation failed", fields...)
		return
	}
	e.logger.Warn("vault operation rejected", fields...)
}

func expectation(op domain.Operation, req TransferRequest) authz.Expectation {
	return authz.Expectation{
		Signer:    req.Depositor,
		Operation: op,
		Amount:    req.Amount,
		Asset:     req.Asset,
	}
}

func transferAttributes(req TransferRequest) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("vault.depositor", string(req.Depositor)),
		attribute.String("vault.amount", fmt.Sprint(req.Amount)),
	}
}

func transferFields(req TransferRequest, result TransferResult) []zap.Field {
	fields := []zap.Field{
		zap.String("depositor", string(req.Depositor)),
		zap.Uint64("amount", req.Amount),
	}
	if result.Entry.ID != "" {
		fields = append(fields,
			zap.Uint64("balance", result.Depositor.Balance),
			zap.Uint64("pooled", result.PooledBalance),
			zap.String("entry_id", result.Entry.ID),
		)
	}
	return fields
}
