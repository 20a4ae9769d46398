package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-support/internal/auth"
	"ms-support/internal/booking"
	"ms-support/internal/booking/booking_api"
	"ms-support/internal/booking/db"
	"ms-support/internal/booking/qr"
	rediswrap "ms-support/internal/booking/redis"
	"ms-support/internal/catalog"
	"ms-support/internal/catalog/catalog_api"
	"ms-support/internal/config"
	"ms-support/internal/database/migrations"
	"ms-support/internal/kafka"
	"ms-support/internal/logger"
	"ms-support/internal/paypal"
	"ms-support/internal/sse"
)

// subscribeFlowExpiry turns Redis key expiry notifications into expired
// booking flows: a flow key that outlives the approval window means the user
// never came back from the provider.
func subscribeFlowExpiry(rdb *redis.Client, service *booking.BookingService, logger *logger.Logger) {
	ctx := context.Background()

	val, err := rdb.ConfigGet(ctx, "notify-keyspace-events").Result()
	if err != nil {
		logger.Error("REDIS", fmt.Sprintf("Failed to get keyspace config: %v", err))
	} else {
		logger.Info("REDIS", fmt.Sprintf("Current keyspace notifications setting: %v", val))
		if len(val) < 2 || !strings.Contains(val[1].(string), "x") || !strings.Contains(val[1].(string), "E") {
			logger.Warn("REDIS", "Keyspace notifications not properly configured for expiry events!")
		}
	}

	pubsub := rdb.PSubscribe(ctx, "__keyevent@0__:expired")
	logger.Info("REDIS", fmt.Sprintf("Subscribed to Redis keyevent expired notifications (DB %d)", rdb.Options().DB))

	go func() {
		for msg := range pubsub.Channel() {
			if !strings.HasPrefix(msg.Payload, rediswrap.FlowKeyPrefix) {
				continue
			}
			orderID := strings.TrimPrefix(msg.Payload, rediswrap.FlowKeyPrefix)
			logger.Info("FLOW_EXPIRY", fmt.Sprintf("Approval window expired for order: %s", orderID))
			service.ExpireFlow(orderID)
		}
	}()
}

func verifyConnections(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*bun.DB, *redis.Client) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.Username, cfg.Database.Password, cfg.Database.Database)

	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		logger.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", dsn)
		if err != nil {
			logger.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		logger.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	logger.Info("DATABASE", "✅ PostgreSQL connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}

	_, err = redisClient.ConfigSet(ctx, "notify-keyspace-events", "Ex").Result()
	if err != nil {
		logger.Warn("REDIS", fmt.Sprintf("Failed to enable keyspace notifications: %v", err))
	} else {
		logger.Info("REDIS", "Keyspace notifications enabled for expired events")
	}

	logger.Info("DATABASE", fmt.Sprintf("✅ Redis connection successful to %s (DB: %d)", cfg.Redis.Addr, redisClient.Options().DB))
	return bunDB, redisClient
}

func main() {
	logger := logger.NewLogger()
	defer logger.Close()

	logger.Info("APP", "Starting Support Booking Service initialization")

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		logger.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	logger.Info("APP", "Verifying database connections")
	bunDB, redisClient := verifyConnections(ctx, cfg, logger)
	defer bunDB.Close()
	defer redisClient.Close()

	if cfg.Database.AutoMigrate {
		runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{
			MigrationsDir: "./migrations",
			AutoMigrate:   true,
			SeedData:      cfg.Database.SeedData,
		})
		if err := runner.RunMigrations(); err != nil {
			logger.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
		}
		if err := runner.Close(); err != nil {
			logger.Warn("DATABASE", fmt.Sprintf("Failed to close migrator: %v", err))
		}
	}

	logger.Info("KAFKA", fmt.Sprintf("Using Kafka brokers: %v", cfg.Kafka.Brokers))
	kafkaProducer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer kafkaProducer.Close()
	logger.Info("KAFKA", "Kafka producer initialized successfully")

	requiredTopics := []string{
		cfg.Kafka.Topics.BookingCreated,
		cfg.Kafka.Topics.BookingConfirmed,
		cfg.Kafka.Topics.BookingCancelled,
		cfg.Kafka.Topics.PaymentFailed,
	}
	if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, requiredTopics); err != nil {
		logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	} else {
		logger.Info("KAFKA", "Required topics ensured successfully")
	}

	paymentClient := paypal.NewClient(cfg.Payment.BaseURL, &http.Client{Timeout: cfg.Payment.RequestTimeout}, logger)
	emitter := sse.NewBookingEventEmitter()

	bookingService := booking.NewBookingService(
		&db.DB{Bun: bunDB},
		rediswrap.NewGuard(redisClient, cfg.Booking.CaptureGuardTTL),
		kafkaProducer,
		paymentClient,
		emitter,
		logger,
		booking.Settings{
			SupportPrice:   cfg.Booking.SupportPrice,
			PaymentTimeout: cfg.Payment.RequestTimeout,
			ApprovalTTL:    cfg.Booking.ApprovalTTL,
			Topics:         cfg.Kafka.Topics,
		},
	)

	handler := &booking_api.Handler{
		BookingService: bookingService,
		QRGenerator:    qr.NewQRGenerator(os.Getenv("QR_SECRET")),
		Logger:         logger,
	}

	catalogHandler := &catalog_api.Handler{
		DB:     &catalog.DB{Bun: bunDB},
		Logger: logger,
	}

	sseHandler := booking_api.NewSSEHandler(logger, emitter)

	logger.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	// --- Public Routes ---
	r.Get("/api/support/bookings/count", handler.GetTotalBookingsCount)
	logger.Info("ROUTER", "Public booking count endpoint registered at /api/support/bookings/count")

	// The provider redirects the user's browser here after the approval page;
	// no auth header is present on these requests.
	r.Get("/api/support/paypal-success", handler.PayPalSuccess)
	r.Get("/api/support/paypal-cancel", handler.PayPalCancel)
	logger.Info("ROUTER", "Provider return endpoints registered under /api/support")

	r.Get("/api/support/categories", catalogHandler.ListCategories)
	r.Get("/api/support/categories/{categoryId}", catalogHandler.GetCategory)
	logger.Info("ROUTER", "Category routes registered under /api/support/categories")

	// SSE endpoints extract the bearer token themselves, outside the JWT middleware
	r.Get("/api/support/stream/bookings", sseHandler.HandleMyBookings)
	r.Get("/api/support/stream/categories/{category}", sseHandler.HandleCategoryBookings)
	logger.Info("ROUTER", "SSE routes registered under /api/support/stream")

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware())
		logger.Info("AUTH", "JWT middleware applied to protected API routes")

		r.Route("/api/support/booking", func(r chi.Router) {
			r.Post("/", handler.CreateBooking)
			r.Get("/mine", handler.ListMyBookings)
			r.Get("/{bookingId}", handler.GetBooking)
			r.Get("/{bookingId}/qr", handler.GetBookingQR)
		})
		logger.Info("ROUTER", "Booking routes registered under /api/support/booking")
	})

	// No WriteTimeout: the SSE streams are long-lived responses.
	server := &http.Server{
		Addr:        cfg.Server.Port,
		Handler:     r,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
	}

	logger.Info("REDIS", "Starting flow expiry subscription")
	subscribeFlowExpiry(redisClient, bookingService, logger)

	go func() {
		logger.Info("HTTP", fmt.Sprintf("🚀 Support Booking Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		logger.Info("HTTP", "✅ Support Booking Service shutdown complete")
	}
}
