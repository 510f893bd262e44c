package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	httpapi "github.com/jastip-hub/jastip-hub/internal/api/http"
	"github.com/jastip-hub/jastip-hub/internal/application/auth"
	appDisbursement "github.com/jastip-hub/jastip-hub/internal/application/disbursement"
	"github.com/jastip-hub/jastip-hub/internal/application/ledger"
	appSession "github.com/jastip-hub/jastip-hub/internal/application/session"
	appSettlement "github.com/jastip-hub/jastip-hub/internal/application/settlement"
	"github.com/jastip-hub/jastip-hub/internal/application/user"
	"github.com/jastip-hub/jastip-hub/internal/config"
	"github.com/jastip-hub/jastip-hub/internal/infrastructure/memlock"
	"github.com/jastip-hub/jastip-hub/internal/infrastructure/payout"
	"github.com/jastip-hub/jastip-hub/internal/infrastructure/postgres"
	"github.com/jastip-hub/jastip-hub/internal/infrastructure/sse"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db error: %v", err)
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool, "internal/migrations"); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	// repositories
	userRepo := postgres.NewUserRepository(pool)
	authSessionRepo := postgres.NewAuthSessionRepository(pool)
	sessionRepo := postgres.NewSessionRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	disbursementRepo := postgres.NewDisbursementRepository(pool)

	// infrastructure
	sseHub := sse.NewHub()
	emitter := sse.NewEmitter(sseHub)
	locks := memlock.New()
	gateway := payout.NewHTTPGateway(cfg.PayoutBaseURL, cfg.PayoutAPIKey, logger)

	// services
	userSvc := user.NewService(userRepo, logger)
	authSvc := auth.NewService(userRepo, authSessionRepo, cfg.SessionTTL, logger)
	settlementSvc := appSettlement.NewService(orderRepo, cfg.FeeWaiverRule, logger)
	sessionSvc := appSession.NewService(sessionRepo, orderRepo, disbursementRepo, settlementSvc, emitter, locks, logger)
	ledgerSvc := ledger.NewService(sessionRepo, orderRepo, emitter, locks, logger)
	disbursementSvc := appDisbursement.NewService(sessionRepo, orderRepo, disbursementRepo, gateway, emitter, locks, logger)

	// API server
	apiServer := httpapi.NewServer(authSvc, userSvc, sessionSvc, ledgerSvc, settlementSvc, disbursementSvc, sseHub, cfg.SessionCookieName, cfg.SessionCookieSecure)

	httpServer := &http.Server{
		Addr:        cfg.ServerAddr,
		Handler:     apiServer.Router(),
		ReadTimeout: 15 * time.Second,
		// No write timeout: SSE streams stay open until the client leaves.
		IdleTimeout: 60 * time.Second,
	}

	// background loops
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if n, err := authSessionRepo.DeleteExpired(context.Background()); err == nil && n > 0 {
				logger.Info().Int("count", n).Msg("expired login sessions removed")
			}
		}
	}()

	// start server
	go func() {
		logger.Info().Str("addr", cfg.ServerAddr).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
	sseHub.Stop()
}
