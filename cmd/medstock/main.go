package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/medstock/medstock/cmd/medstock/cli"
	"github.com/medstock/medstock/internal/app"
	"github.com/medstock/medstock/internal/auth"
	"github.com/medstock/medstock/internal/observability"
	"github.com/medstock/medstock/internal/orders"
	"github.com/medstock/medstock/internal/orders/privileged"
	"github.com/medstock/medstock/internal/platform/cache"
	"github.com/medstock/medstock/internal/platform/db"
	"github.com/medstock/medstock/internal/rbac"
	"github.com/medstock/medstock/internal/shared"
	"github.com/medstock/medstock/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		jobsCLI := cli.NewJobsCLI(cfg.RedisAddr, cfg.IdempotencyRetention)
		code := jobsCLI.Run(ctx, os.Args[2:], os.Stdout)
		if err := jobsCLI.Close(); err != nil {
			logger.Warn("jobs cli close", slog.Any("error", err))
		}
		os.Exit(code)
	}

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	var snapshotCache orders.SnapshotCache
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, using in-process snapshot cache", slog.Any("error", err))
		snapshotCache = orders.NewMemoryCache(cfg.OrdersCacheTTL)
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		snapshotCache = orders.NewRedisCache(redisClient, cfg.OrdersCacheTTL)
	}

	metrics := observability.NewMetrics()

	tokens, err := auth.NewTokenIssuer(cfg.AuthTokenSecret, cfg.AuthIssuer, auth.WithTokenTTL(cfg.AuthTokenTTL))
	if err != nil {
		logger.Error("init token issuer", slog.Any("error", err))
		os.Exit(1)
	}
	authService := auth.NewService(auth.NewRepository(dbpool), tokens)
	authHandler := auth.NewHandler(logger, authService)

	rbacService := rbac.NewService(rbac.NewProfileStore(dbpool))
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	approvals := shared.NewApprovalRecorder(dbpool, logger)
	idempotency := shared.NewIdempotencyStore(dbpool)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	store := orders.NewPGStore(dbpool, cfg.OrdersDBRole)
	repo := orders.NewRepository(store, snapshotCache, logger, orders.WithSnapshotObserver(metrics))
	policy := orders.NewPolicy()
	functionClient := privileged.NewClient(cfg.OrdersFunctionURL, &http.Client{Timeout: cfg.OrdersMutationTimeout})
	gateway := orders.NewGateway(orders.GatewayConfig{
		Direct:     store,
		Privileged: functionClient,
		Timeout:    cfg.OrdersMutationTimeout,
		Logger:     logger,
		Observer:   metrics,
	})
	orderService := orders.NewService(orders.ServiceConfig{
		Repository:  repo,
		Policy:      policy,
		Gateway:     gateway,
		Logger:      logger,
		Idempotency: idempotency,
		Approvals:   approvals,
		Notifier:    jobClient,
	})
	ordersHandler := orders.NewHandler(logger, orderService, rbacMiddleware, approvals)

	privilegedHandler := privileged.NewHandler(privileged.Config{
		Tokens: tokens,
		Actors: rbacService,
		Orders: store,
		Writer: store,
		Policy: policy,
		Logger: logger,
	})

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Tokens:            tokens,
		AuthHandler:       authHandler,
		OrdersHandler:     ordersHandler,
		PrivilegedHandler: privilegedHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
