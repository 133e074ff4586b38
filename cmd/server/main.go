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

	"giftrails/internal/app"
	"giftrails/internal/config"
	"giftrails/internal/idempotency"
	"giftrails/internal/logging"
	"giftrails/internal/server"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func run(cfg *config.AppConfig, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Service.RPCTimeout)
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("idempotency store: %w", err)
	}
	defer closeStore()

	metrics := server.NewMetrics()
	rt, err := app.Build(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer rt.Close()

	apiServer := server.NewServer(cfg, server.Deps{
		Registry:  rt.Registry,
		Wallet:    rt.Wallet,
		Store:     store,
		Metrics:   metrics,
		Logger:    logger.Named("api"),
		RPCHealth: rt.Ping,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-ch:
		logger.Info("shutting down", zap.Stringer("signal", sig))
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	return apiServer.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (idempotency.Store, func(), error) {
	if cfg.Service.DatabaseURL != "" {
		pg, err := idempotency.NewPostgresStore(ctx, cfg.Service.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if n, err := pg.PurgeExpired(ctx); err != nil {
			logger.Warn("purge expired idempotency records", zap.Error(err))
		} else if n > 0 {
			logger.Info("purged expired idempotency records", zap.Int64("count", n))
		}
		return pg, pg.Close, nil
	}

	fs, err := idempotency.NewFileStore(cfg.Service.IdempotencyStorePath)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("using file idempotency store", zap.String("path", cfg.Service.IdempotencyStorePath))
	return fs, func() {}, nil
}
