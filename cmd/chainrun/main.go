// Package main provides a CLI for running Lua chain scripts.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	chainruncmd "github.com/louisbranch/drivechain/internal/cmd/chainrun"
	platformcmd "github.com/louisbranch/drivechain/internal/platform/cmd"
	"github.com/louisbranch/drivechain/internal/platform/config"
)

func main() {
	cfg, err := chainruncmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.ExitCodef(config.ExitUsage, "Error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceChainrun, func(ctx context.Context) error {
		return chainruncmd.Run(ctx, cfg, os.Stdout, os.Stderr)
	})
	if err != nil {
		config.Exitf("Error: %v", err)
	}
}
