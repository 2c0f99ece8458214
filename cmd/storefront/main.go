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
	"go.uber.org/zap"

	"github.com/brunoshop/storefront/internal/api"
	"github.com/brunoshop/storefront/internal/cart"
	"github.com/brunoshop/storefront/internal/catalog"
	"github.com/brunoshop/storefront/internal/checkout"
	"github.com/brunoshop/storefront/internal/config"
	"github.com/brunoshop/storefront/internal/coupon"
	"github.com/brunoshop/storefront/internal/discount"
	"github.com/brunoshop/storefront/internal/orders"
	"github.com/brunoshop/storefront/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	var logger *zap.Logger
	if cfg.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Connect to Redis; an empty REDIS_ADDR runs on the in-memory store.
	var kv storage.KV
	if cfg.Redis.Addr == "" {
		logger.Warn("REDIS_ADDR is empty, using in-memory storage; carts will not survive restarts")
		kv = storage.NewMemoryKV()
	} else {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.Fatal("Failed to connect to Redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		kv = storage.NewRedisKV(redisClient)
	}

	// Build services; single explicit state object, wired once here.
	carts := cart.NewStore(kv, logger)
	evaluator := discount.NewClient(cfg.Remote.BaseURL, logger)
	coupons := coupon.NewService(kv, carts, evaluator, cfg.Checkout.BuyNowCouponTTL, logger)
	defer coupons.Close()
	ordersClient := orders.NewClient(cfg.Remote.BaseURL, logger)
	checkouts := checkout.NewService(carts, coupons, ordersClient, cfg.Checkout.BypassPayment, cfg.Checkout.ReturnURL, logger)
	catalogClient := catalog.NewClient(cfg.Remote.BaseURL, logger)

	router := api.NewRouter(cfg, &api.Services{
		Carts:     carts,
		Coupons:   coupons,
		Checkouts: checkouts,
		Catalog:   catalogClient,
	}, logger)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Starting storefront server", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Forced shutdown", zap.Error(err))
	}
}
