package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"financeiro/internal/cache"
	"financeiro/internal/cli"
	apphttp "financeiro/internal/http"
	"financeiro/internal/middleware/ratelimit"
	"financeiro/internal/services"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON API server",
		Long: `Serve the household ledger over HTTP. Each signed-in identity gets a
workspace that is loaded once and pushed back to the store after every
change.`,
		RunE: runServe,
	}
	cmd.Flags().Int("rate-limit", ratelimit.DefaultConfig().RequestsPerMinute, "requests per minute per client")
	cmd.Flags().Duration("shutdown-timeout", 30*time.Second, "time allowed for pending writes on shutdown")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := cli.LoadAndValidateConfig(logger)
	if err != nil {
		return err
	}
	rpm, _ := cmd.Flags().GetInt("rate-limit")
	shutdownTimeout, _ := cmd.Flags().GetDuration("shutdown-timeout")

	ctx, cancel := cli.SignalContext(cmd.Context(), logger)
	defer cancel()

	res, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	provider, err := newIdentity(ctx, cfg)
	if err != nil {
		return fmt.Errorf("identity: %w", err)
	}
	extractor, responses := newExtractor(cfg)
	sessions := services.NewSessionManager(provider, newDeps(cfg, res, extractor))

	limits := ratelimit.DefaultConfig()
	limits.RequestsPerMinute = rpm
	srv := apphttp.NewServer(apphttp.Config{
		Addr:           ":" + cfg.Port,
		Sessions:       sessions,
		Ready:          res.Ping,
		MaxUploadBytes: cfg.MaxUploadBytes,
		RateLimit:      limits,
		Logger:         logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting financeiro server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"identity", cfg.IdentityBackend,
			"version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return cache.NewJanitor(logger, sessions, responses).Run(gctx, cfg.NoticeInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		return cli.Shutdown(logger, shutdownTimeout,
			srv.Shutdown,
			sessions.Shutdown,
		)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
