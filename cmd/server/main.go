package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"charter/internal/account"
	"charter/internal/activation"
	"charter/internal/audit"
	"charter/internal/authority"
	authorityhandler "charter/internal/authority/handler"
	"charter/internal/blob"
	"charter/internal/claim"
	claimhandler "charter/internal/claim/handler"
	"charter/internal/payment"
	paymenthandler "charter/internal/payment/handler"
	"charter/internal/platform/config"
	"charter/internal/platform/httpserver"
	"charter/internal/platform/logger"
	"charter/internal/platform/metrics"
	"charter/internal/platform/middleware"
	"charter/internal/platform/postgres"
	"charter/internal/platform/redis"
	"charter/internal/ratelimit"
	"charter/internal/region"
	regionhandler "charter/internal/region/handler"
	httptransport "charter/internal/transport/http"
	"charter/pkg/platform/tx"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		claimStore   claim.Store
		accountStore account.Store
		paymentStore payment.Store
		regionStore  region.Store
		auditStore   audit.Store
		runner       tx.Runner
	)
	if cfg.Postgres.DSN != "" {
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		defer db.Close()
		claimStore = claim.NewPostgresStore(db)
		accountStore = account.NewPostgresStore(db)
		paymentStore = payment.NewPostgresStore(db)
		regionStore = region.NewPostgresStore(db)
		auditStore = audit.NewPostgresStore(db)
		runner = tx.NewSQLRunner(db)
		log.Info("using postgres stores")
	} else {
		claimStore = claim.NewInMemoryStore()
		accountStore = account.NewInMemoryStore()
		paymentStore = payment.NewInMemoryStore()
		regionStore = region.NewInMemoryStore()
		auditStore = audit.NewInMemoryStore()
		runner = tx.NewMemoryRunner()
		log.Warn("POSTGRES_DSN not set, using in-memory stores")
	}

	var blobStore blob.Store
	if cfg.Blob.Bucket != "" {
		s3Store, err := blob.NewS3Store(ctx, cfg.Blob)
		if err != nil {
			return err
		}
		blobStore = s3Store
	} else {
		blobStore = blob.NewInMemoryStore()
		log.Warn("BLOB_BUCKET not set, using in-memory blob store")
	}

	var limiterBackend ratelimit.Backend
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		limiterBackend = ratelimit.NewRedisBackend(redisClient.Client)
	} else {
		limiterBackend = ratelimit.NewMemoryBackend()
		log.Warn("REDIS_URL not set, using in-memory rate limiter")
	}
	limiter := ratelimit.New(limiterBackend, cfg.RateLimit.Window, cfg.RateLimit.Limit)

	auditor := audit.NewPublisher(auditStore)

	coordinator := activation.NewCoordinator(claimStore, accountStore,
		activation.WithLogger(log),
		activation.WithAuditPublisher(auditor),
	)
	claimService := claim.NewService(claimStore, regionStore,
		claim.WithLogger(log),
		claim.WithAuditPublisher(auditor),
		claim.WithMetrics(claim.NewMetrics()),
	)
	paymentService := payment.NewService(paymentStore, claimStore, blobStore, runner, coordinator,
		payment.WithLogger(log),
		payment.WithAuditPublisher(auditor),
		payment.WithMetrics(payment.NewMetrics()),
	)
	authorityService := authority.NewService(accountStore, regionStore, runner,
		authority.WithLogger(log),
		authority.WithAuditPublisher(auditor),
		authority.WithMetrics(authority.NewMetrics()),
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:    log,
		Metrics:   metrics.New(),
		Validator: middleware.NewJWTValidator(cfg.JWTSigningKey),
		Claims:    claimhandler.New(claimService, log, limiter),
		Payments:  paymenthandler.New(paymentService, log, limiter, cfg.Blob.MaxProofSize),
		Authority: authorityhandler.New(authorityService, log),
		Regions:   regionhandler.New(regionStore),
	})
	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := audit.NewKafkaSink(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer sink.Close()
		worker := audit.NewWorker(auditStore, sink, log)
		g.Go(func() error {
			return worker.Run(ctx)
		})
		log.Info("audit publisher running", "topic", cfg.Kafka.Topic)
	} else {
		log.Warn("KAFKA_BROKERS not set, audit events stay in the outbox")
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("server stopped")
	return nil
}
