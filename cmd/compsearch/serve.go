package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/compsearch/internal/app"
	logpkg "github.com/kailas-cloud/compsearch/internal/logger"
	"github.com/kailas-cloud/compsearch/internal/metrics"
	chiTransport "github.com/kailas-cloud/compsearch/internal/transport/chi"
	"github.com/kailas-cloud/compsearch/internal/version"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "port",
				Usage: "Override http.port",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if p := c.Int("port"); p > 0 {
				cfg.HTTP.Port = p
			}

			env := c.String("env")
			logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			logger.Info("Starting compsearch API server",
				zap.String("version", version.Version),
				zap.String("commit", version.Commit),
				zap.String("env", env),
				zap.Int("http_port", cfg.HTTP.Port),
				zap.Strings("versions", cfg.Catalog.Versions),
				zap.Bool("cache", cfg.Cache.Enabled),
			)

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			metrics.RegisterSearchMetrics()

			a, err := app.Build(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("build app: %w", err)
			}
			defer func() {
				if err := a.Close(); err != nil {
					logger.Error("Error during close", zap.Error(err))
				}
			}()

			server := chiTransport.NewServer(
				a.Sessions(), a.Health(),
				time.Duration(cfg.HTTP.WaitTimeoutSec)*time.Second, logger,
			)
			srv := &http.Server{
				Addr: fmt.Sprintf(":%d", cfg.HTTP.Port),
				Handler: chiTransport.NewRouter(server, chiTransport.RouterOptions{
					APIKeys: cfg.Auth.APIKeys,
					Logger:  logger,
				}),
				ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
				WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("http server: %w", err)
				}
				return nil
			})
			g.Go(func() error { return a.Run(gctx) })
			g.Go(func() error {
				<-gctx.Done()
				logger.Info("Received shutdown signal")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("shutdown: %w", err)
				}
				return nil
			})

			if err := g.Wait(); err != nil {
				return err
			}
			logger.Info("Server stopped gracefully")
			return nil
		},
	}
}
