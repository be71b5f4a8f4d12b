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
	"github.com/redis/go-redis/v9"

	"github.com/praxis-platform/praxis/internal/access"
	"github.com/praxis-platform/praxis/internal/app"
	"github.com/praxis-platform/praxis/internal/approval"
	"github.com/praxis-platform/praxis/internal/cart"
	"github.com/praxis-platform/praxis/internal/catalog"
	"github.com/praxis-platform/praxis/internal/enrollment"
	"github.com/praxis-platform/praxis/internal/evidence"
	"github.com/praxis-platform/praxis/internal/identity"
	"github.com/praxis-platform/praxis/internal/notify"
	"github.com/praxis-platform/praxis/internal/platform/awsx"
	"github.com/praxis-platform/praxis/internal/platform/db"
	"github.com/praxis-platform/praxis/internal/shared"
	"github.com/praxis-platform/praxis/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "praxis_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	auditLogger := shared.NewAuditLogger(pool)

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	principalRepo := identity.NewPGRepository(pool)
	approvalRepo := approval.NewPGRepository(pool)
	catalogRepo := catalog.NewPGRepository(pool)
	cartRepo := cart.NewPGRepository(pool)
	enrollmentRepo := enrollment.NewPGRepository(pool)

	registry := approval.NewRegistry()
	registry.Register(approval.KindManagerAccount, identity.ManagerAccountEffect{Repo: principalRepo})
	registry.Register(approval.KindServiceProviderAccount, identity.ServiceProviderEffect{Repo: principalRepo})
	registry.Register(approval.KindCourseEnrollment, enrollment.Effect{
		Repo:    enrollmentRepo,
		Cart:    cartRepo,
		Catalog: catalogRepo,
	})

	dispatcher := notify.NewDispatcher(jobsClient, logger)
	approvalService := approval.NewService(approvalRepo, registry, principalRepo, auditLogger, dispatcher, logger)
	identityService := identity.NewService(principalRepo, auditLogger, logger)
	cartService := cart.NewService(cartRepo, catalogRepo)
	enrollmentService := enrollment.NewService(enrollmentRepo, cartRepo, approvalService, logger)

	accessMW := access.Middleware{Source: principalRepo, Logger: logger}

	var evidenceHandler *evidence.Handler
	if cfg.EvidenceBucket != "" {
		awsCfg, err := awsx.Load(ctx, awsx.Config{
			Region:          cfg.AWSRegion,
			EndpointURL:     cfg.AWSEndpointURL,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			logger.Error("load aws config", slog.Any("error", err))
			os.Exit(1)
		}
		store := evidence.NewStore(awsCfg, cfg.EvidenceBucket, cfg.AWSEndpointURL)
		evidenceHandler = evidence.NewHandler(store, logger)
	}

	enrollmentHandler := enrollment.NewHandler(enrollmentService, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessionManager,
		AccessMiddleware:  accessMW,
		IdentityHandler:   identity.NewHandler(identityService, sessionManager, logger),
		ApprovalHandler:   approval.NewHandler(approvalService, principalRepo, logger),
		CatalogHandler:    catalog.NewHandler(catalogRepo, logger),
		CartHandler:       cart.NewHandler(cartService, enrollmentHandler.Checkout, logger),
		EnrollmentHandler: enrollmentHandler,
		EvidenceHandler:   evidenceHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", slog.Any("error", err))
	}
}
