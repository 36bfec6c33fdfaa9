package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dexgate/dexgate/internal/chain"
	"github.com/dexgate/dexgate/internal/config"
	"github.com/dexgate/dexgate/internal/handler"
	"github.com/dexgate/dexgate/internal/middleware"
	"github.com/dexgate/dexgate/internal/pkg/logger"
	"github.com/dexgate/dexgate/internal/repository"
	"github.com/dexgate/dexgate/internal/service"
	"github.com/dexgate/dexgate/internal/signer"
	"github.com/dexgate/dexgate/internal/stream"
	"github.com/dexgate/dexgate/internal/zrx"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Server.LogLevel)

	// 2. Custodial Wallet
	wallet, err := signer.NewWallet(cfg.Chain.PrivateKey)
	if err != nil {
		log.Fatalf("Failed to initialize gateway wallet: %v", err)
	}
	logger.Info("🔑 Gateway wallet loaded", "address", wallet.Address().Hex())

	// 3. Chain Access
	dialCtx, dialCancel := context.WithTimeout(context.Background(), 10*time.Second)
	chainClient, err := chain.Dial(dialCtx, cfg.Chain.RPCURL, wallet)
	dialCancel()
	if err != nil {
		log.Fatalf("Failed to connect to chain rpc: %v", err)
	}
	logger.Info("⛓️ Connected to chain", "chain_id", chainClient.ChainID())

	// 4. Persistence (Redis > Memory, Postgres optional)
	var usageRepo service.UsageRepo
	var pendingStore service.PendingStore
	var redisClient *repository.RedisClient
	if cfg.Redis.Addr != "" {
		redisClient, err = repository.NewRedisClient(cfg)
		if err == nil {
			logger.Info("✅ Connected to Redis")
			usageRepo = redisClient
			pendingStore = redisClient
		} else {
			logger.Error("⚠️ Failed to connect to Redis, falling back to memory", "error", err)
		}
	}
	if usageRepo == nil {
		usageRepo = service.NewSwapUsageStore()
	}

	var history service.SettlementStore
	var tokenStore service.TokenStore
	if cfg.Database.DSN != "" {
		db, err := repository.NewDB(cfg)
		if err == nil {
			logger.Info("✅ Connected to PostgreSQL")
			history = repository.NewPostgresSettlementRepo(db)
		} else {
			logger.Error("⚠️ Failed to connect to DB, settlement history disabled", "error", err)
		}
		tokenRepo, err := repository.NewGormTokenRepo(cfg)
		if err == nil {
			tokenStore = tokenRepo
		} else {
			logger.Error("⚠️ Token registry persistence disabled", "error", err)
		}
	}

	// 5. Core Services
	zrxClient := zrx.NewClient(cfg.ZeroX)

	tokens := service.NewTokenRegistry(cfg.Tokens)
	if tokenStore != nil {
		if err := tokens.Load(context.Background(), tokenStore); err != nil {
			logger.Error("⚠️ Failed to load persisted tokens", "error", err)
		}
	}

	eligibility := service.NewEligibilityResolver(zrxClient)
	poller := service.NewStatusPoller(zrxClient, time.Duration(cfg.Gasless.PollIntervalMs)*time.Millisecond)
	limits := service.NewLimitsGuard(cfg.Limits, usageRepo, tokens)

	hub := stream.NewHub()
	notifier := service.NewNotifier(poller, hub, pendingStore)
	notifier.Start()

	// Resume gasless trades submitted before the last restart
	if redisClient != nil {
		if pending, err := redisClient.ListPending(context.Background()); err == nil {
			for _, trade := range pending {
				logger.Info("Resuming pending gasless trade", "trade_hash", trade.TradeHash)
				notifier.RecordPending(trade)
			}
		}
	}

	settlementSvc := service.NewSettlementService(
		zrxClient, wallet, chainClient, eligibility, limits, notifier, tokens, history, cfg.Swap)

	// 6. Handlers
	swapHandler := handler.NewSwapHandler(settlementSvc, notifier)
	tokensHandler := handler.NewTokensHandler(tokens, tokenStore)
	streamHandler := handler.NewStreamHandler(hub)

	// 7. Router
	r := gin.Default()

	// Global Middleware
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.MetricsMiddleware())

	// Health Check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "dexgate"})
	})

	// Metrics Endpoint
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	// API V1 Routes
	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg))
	v1.Use(middleware.RateLimitMiddleware(cfg))
	{
		v1.POST("/price", swapHandler.Price)
		v1.POST("/quote", swapHandler.Quote)
		v1.POST("/swap", swapHandler.Swap)
		v1.GET("/swap/:id", swapHandler.GetSwap)
		v1.GET("/swaps", swapHandler.ListSwaps)
		v1.GET("/gasless/supported", swapHandler.GaslessSupported)
		v1.POST("/tokens", tokensHandler.Create)
		v1.GET("/tokens", tokensHandler.Get)
		v1.GET("/notifications", swapHandler.Notifications)
		v1.GET("/stream", streamHandler.Subscribe)
	}

	// 8. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("🚀 DexGate started", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	notifier.Stop()
	hub.Close()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	logger.Info("Server exiting")
}
