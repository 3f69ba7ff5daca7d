package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asterdex/astergate/internal/config"
	"github.com/asterdex/astergate/internal/handler"
	"github.com/asterdex/astergate/internal/manager"
	"github.com/asterdex/astergate/internal/middleware"
	"github.com/asterdex/astergate/internal/pkg/logger"
	"github.com/asterdex/astergate/internal/repository"
	"github.com/asterdex/astergate/internal/service"
	"github.com/asterdex/astergate/internal/signer"
	"github.com/gin-gonic/gin"
)

func main() {
	// 0. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 1. Initialize Logger
	logger.Init(cfg.Log.Level)

	// 2. Initialize Persistence
	// Audit Persistence (Postgres > Redis > Memory)
	var auditRepo service.AuditRepo
	var auditCleanup *repository.PostgresAuditRepo
	if cfg.Database.DSN != "" {
		db, err := repository.NewDB(cfg)
		if err == nil {
			repo, err := repository.NewPostgresAuditRepo(db)
			if err == nil {
				logger.Info("connected to PostgreSQL")
				auditRepo = repo
				auditCleanup = repo
			} else {
				logger.Error("failed to migrate audit table", "error", err)
			}
		} else {
			logger.Error("failed to connect to DB, audit logs will not be persisted there", "error", err)
		}
	}

	var idempotencyStore middleware.IdempotencyStore
	idemTTL := time.Duration(cfg.Redis.IdemTTLSec) * time.Second
	if cfg.Redis.Addr != "" {
		redisClient, err := repository.NewRedisClient(cfg)
		if err == nil {
			logger.Info("connected to Redis")
			defer redisClient.Close()
			idempotencyStore = repository.NewRedisIdempotencyStore(redisClient.Client, idemTTL)
			if auditRepo == nil {
				auditRepo = repository.NewRedisAuditRepo(redisClient.Client, cfg.Redis.AuditListKey, cfg.Redis.AuditListMax)
			}
		} else {
			logger.Error("failed to connect to Redis, falling back to memory", "error", err)
		}
	}
	if idempotencyStore == nil {
		idempotencyStore = middleware.NewInMemIdempotencyStore(idemTTL)
	}

	// 3. Connect the signing wallet
	ctx, cancelConnect := context.WithTimeout(context.Background(), 30*time.Second)
	wallet := connectWallet(ctx, cfg)
	cancelConnect()

	// 4. Initialize Core Services
	domain := signer.NewDomain(cfg.Aster.ChainID)
	var walletSigner signer.Wallet
	if wallet != nil {
		walletSigner = wallet
	}
	signingSvc := service.NewSigningService(walletSigner, manager.NewNonceGenerator(), domain, cfg.Aster.Chain,
		service.WithBaseURL(cfg.Aster.BaseURL))

	auditSvc, err := service.NewAuditService(cfg.Log.AuditDir, auditRepo)
	if err != nil {
		log.Fatalf("Failed to initialize audit service: %v", err)
	}

	stopCleanup := make(chan struct{})
	if auditCleanup != nil {
		go runAuditCleanup(auditCleanup, time.Duration(cfg.Database.AuditRetentionDays)*24*time.Hour, stopCleanup)
	}

	// 5. Setup Router
	r := gin.New()
	r.Use(gin.Recovery())
	handler.RegisterRoutes(r, cfg, handler.RouterDeps{
		Signing:     signingSvc,
		Audit:       auditSvc,
		Idempotency: idempotencyStore,
		Limiters:    middleware.NewClientLimiters(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
	})

	// 6. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("astergate started",
			"port", cfg.Server.Port,
			"chain_id", domain.ChainID,
			"aster_chain", cfg.Aster.Chain,
			"wallet", signingSvc.Address(),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	close(stopCleanup)
	auditSvc.Close()
	if wallet != nil {
		wallet.Close()
	}

	logger.Info("server exiting")
}

// connectWallet dials the configured wallet RPC. A missing or unreachable
// wallet leaves the gateway running: typed-data and payload routes still
// work, signing routes answer NOT_CONNECTED.
func connectWallet(ctx context.Context, cfg *config.Config) *signer.RPCWallet {
	if cfg.Wallet.RPCURL == "" {
		logger.Warn("no wallet rpc configured, server-side signing disabled")
		return nil
	}
	wallet, err := signer.DialRPCWallet(ctx, cfg.Wallet.RPCURL,
		signer.WithSignMethod(cfg.Wallet.SignMethod),
		signer.WithTimeout(time.Duration(cfg.Wallet.TimeoutSec)*time.Second),
		signer.WithAccount(cfg.Wallet.Account),
		signer.WithChainID(cfg.Wallet.ChainID),
	)
	if err != nil {
		logger.Error("failed to dial wallet rpc", "error", err)
		return nil
	}
	if err := wallet.Connect(ctx); err != nil {
		logger.Error("failed to connect wallet account", "error", err)
		return wallet
	}
	logger.Info("wallet connected", "address", wallet.Address(), "chain_id", wallet.ChainID())
	return wallet
}

func runAuditCleanup(repo *repository.PostgresAuditRepo, retention time.Duration, stop <-chan struct{}) {
	if retention <= 0 {
		return
	}
	ticker := time.NewTicker(6 * time.Hour)
	defer ticker.Stop()
	for {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		removed, err := repo.Cleanup(ctx, retention)
		cancel()
		if err != nil {
			logger.Error("audit cleanup failed", "error", err)
		} else if removed > 0 {
			logger.Info("audit cleanup", "removed", removed)
		}
		select {
		case <-ticker.C:
		case <-stop:
			return
		}
	}
}
