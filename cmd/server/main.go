// Command bucketlist-server starts the bucketlist HTTP API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/and161185/bucketlist/internal/limiter"
	"github.com/and161185/bucketlist/internal/migrate"
	"github.com/and161185/bucketlist/internal/repository"
	"github.com/and161185/bucketlist/internal/repository/memory"
	"github.com/and161185/bucketlist/internal/repository/postgres"
	httpserver "github.com/and161185/bucketlist/internal/server/http"
	"github.com/and161185/bucketlist/internal/service"
	"github.com/and161185/bucketlist/internal/token"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

type backend struct {
	users repository.UserRepository
	lists repository.BucketlistRepository
	items repository.ItemRepository
	lim   limiter.Limiter
	ready func(context.Context) error
	close func()
}

// main parses configuration, runs migrations and serves the API until SIGINT/SIGTERM.
func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := loadConfig(os.Args[1:], os.Getenv, os.Stderr)
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("storage", zap.Error(err))
	}
	defer be.close()

	// Services
	tokens := token.NewService([]byte(cfg.Secret), cfg.TokenTTL)
	authSvc := service.NewAuthService(be.users, tokens, be.lim)
	listSvc := service.NewBucketlistService(be.lists, cfg.paging())
	itemSvc := service.NewItemService(be.items)

	opts := []httpserver.Option{
		httpserver.WithPaging(cfg.paging()),
		httpserver.WithReadiness(be.ready),
	}
	if cfg.Metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		opts = append(opts, httpserver.WithMetrics(httpserver.NewMetrics(reg)))
	}
	app := httpserver.New(authSvc, listSvc, itemSvc, logger, opts...)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	// Wait for stop
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown", zap.Error(err))
			_ = srv.Close()
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			be.close()
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}

// openBackend connects the configured storage and returns repositories over it.
func openBackend(ctx context.Context, cfg config, logger *zap.Logger) (*backend, error) {
	if cfg.Storage == "memory" {
		logger.Warn("in-memory storage: data is lost on exit and login throttling is off")
		st := memory.New()
		return &backend{
			users: st.Users(),
			lists: st.Bucketlists(),
			items: st.Items(),
			lim:   limiter.Nop{},
			ready: func(context.Context) error { return nil },
			close: func() {},
		}, nil
	}

	if err := migrate.Up(ctx, cfg.DSN); err != nil {
		return nil, err
	}
	db, err := postgres.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	return &backend{
		users: postgres.NewUserRepo(db),
		lists: postgres.NewBucketlistRepo(db),
		items: postgres.NewItemRepo(db),
		lim:   limiter.NewPG(db.Pool, cfg.LoginWindow, cfg.LoginMaxFail, cfg.LoginBlock),
		ready: db.Ping,
		close: db.Close,
	}, nil
}
