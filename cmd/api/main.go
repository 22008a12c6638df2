package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fantapay/fantapay/internal/accounting"
	"github.com/fantapay/fantapay/internal/competition"
	"github.com/fantapay/fantapay/internal/infra/postgres"
	infraredis "github.com/fantapay/fantapay/internal/infra/redis"
	"github.com/fantapay/fantapay/internal/matchday"
	"github.com/fantapay/fantapay/internal/platform/user"
	"github.com/fantapay/fantapay/internal/transport/httpapi"
	"github.com/fantapay/fantapay/internal/transport/httpapi/handler"
	"github.com/fantapay/fantapay/internal/transport/httpapi/middleware"
	"github.com/fantapay/fantapay/internal/wallet"
	"github.com/fantapay/fantapay/pkg/config"
	"github.com/fantapay/fantapay/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewDefault(cfg.Env)
	log.Info("Starting FantaPay API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	// Database connection pool
	db, err := postgres.NewPool(ctx, postgres.Config{URL: cfg.DatabaseURL})
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("Database connection established")

	// Optional Redis-backed summary cache
	var summaryCache accounting.Cache
	if cfg.RedisURL != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisURL,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		summaryCache = infraredis.NewSummaryCache(redisClient, log)
		log.Info("Redis connection established")
	} else {
		log.Warn("REDIS_URL not configured, summary cache disabled")
	}

	// Repositories
	ledgerStore := postgres.NewLedgerStore(db)
	userRepo := postgres.NewUserRepo(db)
	competitionRepo := postgres.NewCompetitionRepo(db)
	matchdayRepo := postgres.NewMatchdayRepo(db)

	// Services. The matchday service doubles as the schedule materializer
	// the competition service invokes on create and join.
	userSvc := user.NewService(userRepo, log)
	jwtSvc := middleware.NewJWTService(cfg.JWTSecret)
	matchdaySvc := matchday.NewService(ledgerStore, matchdayRepo, competitionRepo, userRepo, nil, log)
	competitionSvc := competition.NewService(competitionRepo, matchdaySvc, ledgerStore, log)
	walletSvc := wallet.NewService(ledgerStore, competitionRepo, nil, log)
	accountingSvc := accounting.NewService(ledgerStore, competitionRepo, userRepo, summaryCache, nil, log)

	// HTTP handlers
	authHandler := handler.NewAuthHandler(userSvc, jwtSvc)
	walletHandler := handler.NewWalletHandler(walletSvc, cfg.TransactionFeedLimit)
	competitionHandler := handler.NewCompetitionHandler(competitionSvc)
	paymentHandler := handler.NewPaymentHandler(matchdaySvc, walletSvc)
	accountingHandler := handler.NewAccountingHandler(accountingSvc, cfg.TransactionFeedLimit)
	healthHandler := handler.NewHealthHandler(db)

	allowedOrigins := []string{"http://localhost:5173", "http://localhost:3000"}
	if cfg.IsProduction() {
		if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
			allowedOrigins = []string{origins}
		}
	}

	r := httpapi.NewRouter(httpapi.Config{
		Logger:             log,
		AllowedOrigins:     allowedOrigins,
		AuthHandler:        authHandler,
		WalletHandler:      walletHandler,
		CompetitionHandler: competitionHandler,
		PaymentHandler:     paymentHandler,
		AccountingHandler:  accountingHandler,
		HealthHandler:      healthHandler,
		JWTMiddleware:      middleware.JWT(jwtSvc),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("Server stopped gracefully")
}
