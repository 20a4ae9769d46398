package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"ms-support/internal/config"
	"ms-support/internal/logger"
	handlers "ms-support/internal/payment/handler"
	"ms-support/internal/payment/services"
	"ms-support/internal/payment/storage"
)

func main() {
	logger := logger.NewLogger()
	defer logger.Close()

	logger.Info("APP", "Starting Payment Gateway initialization")

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	}

	cfg := config.Load()
	ctx := context.Background()

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	defer redisClient.Close()

	store, err := storage.NewPostgreSQLStore(cfg.Database, logger)
	if err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to initialize order storage: %v", err))
	}
	defer store.Close()

	paypalService, err := services.NewPayPalService(cfg.Payment, redisClient, logger)
	if err != nil {
		logger.Fatal("PAYPAL", fmt.Sprintf("Failed to initialize PayPal client: %v", err))
	}

	handler := handlers.NewPayPalHandler(paypalService, store, cfg.Booking.SupportPrice, cfg.Payment.Currency, logger)

	r := gin.Default()

	r.GET("/health", handler.Health)

	api := r.Group("/api/paypal")
	{
		api.POST("/create-order", handler.CreateOrder)
		api.POST("/capture-order", handler.CaptureOrder)
		api.GET("/orders/:orderId", handler.GetOrder)
	}

	addr := os.Getenv("GATEWAY_PORT")
	if addr == "" {
		addr = ":8087"
	}

	logger.Info("HTTP", fmt.Sprintf("🚀 Payment Gateway running on %s", addr))
	if err := r.Run(addr); err != nil {
		logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
	}
}
