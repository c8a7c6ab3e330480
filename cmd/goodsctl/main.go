// Command goodsctl indexes, removes and searches goods from the terminal,
// using the same configuration as the server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/utafrali/goodssearch/internal/app"
	"github.com/utafrali/goodssearch/internal/config"
	"github.com/utafrali/goodssearch/pkg/logger"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := newRootCmd(openCore)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// openCore builds the search core from the environment. The CLI writes logs
// to stderr so they never mix with command output.
func openCore(ctx context.Context) (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.NewWithWriter("goodsctl", cfg.LogLevel, os.Stderr)

	core, err := app.NewCore(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("init search core: %w", err)
	}
	return &deps{
		service:  core.Service,
		products: core.Catalog,
		logger:   log,
		close:    core.Close,
	}, nil
}
