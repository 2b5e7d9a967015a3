// Package main runs vaultctl operator commands.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/louisbranch/tokenvault/internal/cmd/vaultctl"
	"github.com/louisbranch/tokenvault/internal/platform/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := vaultctl.Execute(ctx, os.Stdout, os.Args[1:]); err != nil {
		stop()
		config.Exitf("vaultctl: %v", err)
	}
}
