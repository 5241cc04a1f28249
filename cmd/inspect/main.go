// Package main prints stored respawn penalty tables.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/louisbranch/respawn-penalty/internal/platform/config"

	inspectcmd "github.com/louisbranch/respawn-penalty/internal/cmd/inspect"
)

func main() {
	cfg, err := inspectcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := inspectcmd.Run(ctx, cfg, os.Stdout); err != nil {
		config.ExitErr(err)
	}
}
