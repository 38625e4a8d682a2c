package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/samvad-ops-client/internal/app"
	"github.com/samvad-hq/samvad-ops-client/internal/cli"
	"github.com/samvad-hq/samvad-ops-client/internal/config"
	"github.com/samvad-hq/samvad-ops-client/internal/logger"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer logger.Close()

	root := cli.NewRootCommand(openConsole, version)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(err))
		return cli.ExitCode(err)
	}
	return cli.ExitOK
}

func openConsole(ctx context.Context) (cli.Console, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logger.DebugObj("opsctl starting", "config", cfg)

	console, err := app.NewConsole(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize console", "error", err)
		return nil, err
	}
	return console, nil
}
