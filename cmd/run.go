package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crystaldolphin/blockhand/internal/dependency"
	"github.com/crystaldolphin/blockhand/internal/shared/cmdutils"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to the world and start taking chat commands",
	RunE:  runAgent,
}

func runAgent(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.WorkspacePath(), 0o755); err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}

	// Graceful shutdown context.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := dependency.New(ctx, cfg, dependency.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Warn("shutdown: close stores", zap.Error(err))
		}
	}()

	fmt.Printf("%s Starting %s against %s...\n", cmdutils.Logo, cfg.Agent.Name, cfg.World.URL)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return c.World().Start(gctx) })
	g.Go(func() error { return c.Loop().Run(gctx) })
	g.Go(func() error { return c.Heartbeat().Start(gctx) })
	g.Go(func() error { return c.Cron().Start(gctx) })
	g.Go(func() error {
		if err := c.Persona().Watch(gctx); err != nil {
			logger.Warn("persona hot reload disabled", zap.Error(err))
		}
		return nil
	})

	fmt.Printf("%s Running. Press Ctrl+C to stop.\n", cmdutils.Logo)

	err = g.Wait()

	// Detached task loops hold tokens derived from ctx, not gctx.
	if n := c.State().RevokeAll(); n > 0 {
		logger.Info("shutdown: revoked running tasks", zap.Int("count", n))
	}
	if werr := c.Runner().Wait(); werr != nil {
		logger.Warn("shutdown: task runner", zap.Error(werr))
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "run error: %v\n", err)
		return err
	}
	fmt.Println("\nShutdown complete.")
	return nil
}
