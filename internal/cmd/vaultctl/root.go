// Package vaultctl implements operator tooling for the vault.
package vaultctl

import (
	"context"
	"io"
	"time"

	entrypoint "github.com/louisbranch/tokenvault/internal/platform/cmd"
	"github.com/louisbranch/tokenvault/internal/platform/logging"
	"github.com/louisbranch/tokenvault/internal/platform/timeouts"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	logLevel string
	timeout  time.Duration
}

// NewRootCommand builds the vaultctl command tree writing results to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "vaultctl",
		Short:         "Operate a tokenvault deployment",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level for storage diagnostics")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", timeouts.Operation, "Timeout for each command")

	root.AddCommand(
		newKeygenCommand(),
		newIdentityCommand(),
		newSignCommand(),
		newMintCommand(opts),
		newAuditCommand(opts),
		newHealthCommand(opts),
	)
	return root
}

// Execute runs vaultctl with args.
func Execute(ctx context.Context, out io.Writer, args []string) error {
	root := NewRootCommand(out)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func (o *rootOptions) logger() (*zap.Logger, error) {
	return logging.New(entrypoint.ServiceVaultCtl, logging.Config{Level: o.logLevel, Format: logging.FormatConsole})
}

func (o *rootOptions) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.timeout)
}
