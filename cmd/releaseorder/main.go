package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/goliatone/go-release-order/cmd/releaseorder/config"
	"github.com/goliatone/go-release-order/releaseorder"
	"github.com/spf13/pflag"
)

func main() {
	os.Exit(execute(context.Background(), os.Args[1:]))
}

func execute(ctx context.Context, args []string) int {
	cfg, err := config.Load(args, os.Stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "releaseorder: %v\n", err)
		return 2
	}

	logger := NewConsoleLogger(os.Stderr, "release-order", cfg.LogLevel)
	logger.Debugf("configuration: %+v", cfg)

	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Errorf("failed to create app: %v", err)
		return 1
	}
	defer app.Close()

	if err := run(ctx, app, os.Stdout); err != nil {
		logger.Errorf("%s failed: %v", cfg.Mode, err)
		if releaseorder.KindFromError(err) == releaseorder.KindValidation {
			return 2
		}
		return 1
	}
	return 0
}
