package vaultctl

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/tokenvault/internal/platform/discovery"
	platformgrpc "github.com/louisbranch/tokenvault/internal/platform/grpc"
	"github.com/louisbranch/tokenvault/internal/platform/timeouts"
	"github.com/louisbranch/tokenvault/internal/services/vault/address"
	server "github.com/louisbranch/tokenvault/internal/services/vault/app"
	"github.com/louisbranch/tokenvault/internal/services/vault/authz"
	"github.com/louisbranch/tokenvault/internal/services/vault/domain"
	"github.com/louisbranch/tokenvault/internal/services/vault/engine"
	"github.com/louisbranch/tokenvault/internal/services/vault/holding"
	"github.com/louisbranch/tokenvault/internal/services/vault/storage"
	vaultsqlite "github.com/louisbranch/tokenvault/internal/services/vault/storage/sqlite"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"gopkg.in/yaml.v3"
)

const defaultDBPath = "data/vault.db"

func (o *rootOptions) openStore(ctx context.Context, path string) (*vaultsqlite.Store, *zap.Logger, error) {
	logger, err := o.logger()
	if err != nil {
		return nil, nil, err
	}
	store, err := vaultsqlite.Open(ctx, path, vaultsqlite.WithLogger(logger))
	if err != nil {
		_ = logger.Sync()
		return nil, nil, fmt.Errorf("open vault store: %w", err)
	}
	return store, logger, nil
}

// mintRequest funds a depositor holding account. The pooled account is owned
// by the vault address and can only be credited through deposits.
func mintRequest(owner string, asset string, amount uint64) (domain.Identity, domain.Asset, error) {
	owner = strings.TrimSpace(owner)
	if owner == address.Vault() {
		return "", "", fmt.Errorf("refusing to mint into the vault's pooled account")
	}
	identity, err := domain.ParseIdentity(owner)
	if err != nil {
		return "", "", fmt.Errorf("owner must be a depositor identity: %w", err)
	}
	trimmed := domain.Asset(strings.TrimSpace(asset))
	if trimmed == "" {
		return "", "", fmt.Errorf("asset is required")
	}
	if amount == 0 {
		return "", "", fmt.Errorf("amount must be positive")
	}
	return identity, trimmed, nil
}

func newMintCommand(opts *rootOptions) *cobra.Command {
	var (
		dbPath string
		owner  string
		asset  string
		amount uint64
	)
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Credit a depositor's holding account directly in the vault database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			identity, mintAsset, err := mintRequest(owner, asset, amount)
			if err != nil {
				return err
			}
			ctx, cancel := opts.withTimeout(cmd.Context())
			defer cancel()
			store, logger, err := opts.openStore(ctx, dbPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			defer store.Close()

			var account holding.Account
			err = store.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
				var err error
				account, err = tx.Mint(ctx, string(identity), mintAsset, amount)
				return err
			})
			if err != nil {
				return fmt.Errorf("mint: %w", err)
			}
			return writeYAML(cmd, map[string]any{
				"address": account.Address,
				"owner":   account.Owner,
				"asset":   string(account.Asset),
				"balance": fmt.Sprint(account.Balance),
			})
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", defaultDBPath, "Vault SQLite database path")
	cmd.Flags().StringVar(&owner, "owner", "", "Depositor identity that owns the holding account")
	cmd.Flags().StringVar(&asset, "asset", "", "Asset to mint")
	cmd.Flags().Uint64Var(&amount, "amount", 0, "Amount in base units")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("asset")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

type auditOutput struct {
	Authority      string `yaml:"authority"`
	AcceptedAsset  string `yaml:"accepted_asset"`
	PooledAccount  string `yaml:"pooled_account"`
	PooledBalance  string `yaml:"pooled_balance"`
	DepositorTotal string `yaml:"depositor_total"`
	DepositorCount int    `yaml:"depositor_count"`
	Balanced       bool   `yaml:"balanced"`
}

func newAuditCommand(opts *rootOptions) *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Compare the pooled balance with the sum of depositor ledgers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := opts.withTimeout(cmd.Context())
			defer cancel()
			store, logger, err := opts.openStore(ctx, dbPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			defer store.Close()

			eng, err := engine.New(store, authz.NewVerifier(authz.Config{}), engine.WithLogger(logger))
			if err != nil {
				return err
			}
			report, err := eng.Audit(ctx)
			if err != nil {
				return fmt.Errorf("audit: %w", err)
			}
			if err := writeYAML(cmd, auditOutput{
				Authority:      string(report.Vault.Authority),
				AcceptedAsset:  string(report.Vault.AcceptedAsset),
				PooledAccount:  report.Vault.PooledAccount,
				PooledBalance:  fmt.Sprint(report.PooledBalance),
				DepositorTotal: fmt.Sprint(report.DepositorTotal),
				DepositorCount: report.DepositorCount,
				Balanced:       report.Balanced,
			}); err != nil {
				return err
			}
			if !report.Balanced {
				return fmt.Errorf("vault ledger is out of balance")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", defaultDBPath, "Vault SQLite database path")
	return cmd
}

func newHealthCommand(opts *rootOptions) *cobra.Command {
	var (
		addr        string
		dialTimeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the vault gRPC health service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := opts.withTimeout(cmd.Context())
			defer cancel()
			logger, err := opts.logger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			target := discovery.OrDefaultGRPCAddr(addr, discovery.ServiceVault)
			conn, err := platformgrpc.DialWithHealth(ctx, target, dialTimeout, logger)
			if err != nil {
				return err
			}
			defer conn.Close()
			resp, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: server.HealthService})
			if err != nil {
				return fmt.Errorf("health check: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.GetStatus().String())
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Vault gRPC address (default "+discovery.DefaultGRPCAddr(discovery.ServiceVault)+")")
	cmd.Flags().DurationVar(&dialTimeout, "dial-timeout", timeouts.GRPCDial, "Time to wait for SERVING")
	return cmd
}

func writeYAML(cmd *cobra.Command, v any) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return enc.Close()
}
