package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ms-support/internal/booking/qr"
	"ms-support/internal/config"
	"ms-support/internal/kafka"
	"ms-support/internal/logger"
	"ms-support/internal/notification"
)

func main() {
	logger := logger.NewLogger()
	defer logger.Close()

	logger.Info("APP", "Starting Notification Worker initialization")

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	}

	cfg := config.Load()

	var notifier notification.Notifier
	if cfg.Email.SMTPUsername == "" {
		logger.Warn("EMAIL", "SMTP_USERNAME not set, falling back to console notifier")
		notifier = &notification.ConsoleNotifier{Logger: logger}
	} else {
		notifier = notification.NewSMTPNotifier(cfg.Email, logger)
	}

	confirmed := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.BookingConfirmed, cfg.Kafka.GroupID)
	failed := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.PaymentFailed, cfg.Kafka.GroupID)
	defer confirmed.Close()
	defer failed.Close()

	worker := &notification.Worker{
		Confirmed: confirmed,
		Failed:    failed,
		Notifier:  notifier,
		QR:        qr.NewQRGenerator(os.Getenv("QR_SECRET")),
		Logger:    logger,
	}

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("APP", "Shutdown signal received, stopping consumers")
		cancel()
	}()

	logger.Info("APP", fmt.Sprintf("Consuming %s and %s", cfg.Kafka.Topics.BookingConfirmed, cfg.Kafka.Topics.PaymentFailed))
	worker.Run(ctx)

	logger.Info("APP", "✅ Notification Worker shutdown complete")
}
