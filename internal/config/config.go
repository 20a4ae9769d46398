package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Payment  PaymentConfig
	Booking  BookingConfig
	Email    EmailConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	AutoMigrate  bool
	SeedData     bool
}

type RedisConfig struct {
	Addr string
}

type KafkaConfig struct {
	Brokers []string
	GroupID string
	Topics  TopicConfig
}

type TopicConfig struct {
	BookingCreated   string
	BookingConfirmed string
	BookingCancelled string
	PaymentFailed    string
}

// PaymentConfig holds the settings for the payment gateway. BaseURL is the
// gateway the booking workflow calls; the PayPal credentials are only used by
// the gateway binary itself.
type PaymentConfig struct {
	BaseURL        string
	RequestTimeout time.Duration

	PayPalAPIBase      string
	PayPalClientID     string
	PayPalClientSecret string
	ReturnURL          string
	CancelURL          string
	Currency           string
}

type BookingConfig struct {
	// SupportPrice is the fixed unit price charged per support booking.
	SupportPrice    float64
	ApprovalTTL     time.Duration
	CaptureGuardTTL time.Duration
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	FromAddress  string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8086"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Username:     getEnv("DB_USERNAME", "support_user"),
			Password:     getEnv("DB_PASSWORD", "support_pass"),
			Database:     getEnv("DB_NAME", "support_booking"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
			AutoMigrate:  getEnvBool("AUTO_MIGRATE", false),
			SeedData:     getEnvBool("SEED_DATA", false),
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", "localhost:6379"),
		},
		Kafka: KafkaConfig{
			Brokers: []string{getEnv("KAFKA_ADDR", "localhost:9092")},
			GroupID: getEnv("KAFKA_GROUP_ID", "support-booking-group"),
			Topics: TopicConfig{
				BookingCreated:   getEnv("KAFKA_TOPIC_BOOKING_CREATED", "support.booking.created"),
				BookingConfirmed: getEnv("KAFKA_TOPIC_BOOKING_CONFIRMED", "support.booking.confirmed"),
				BookingCancelled: getEnv("KAFKA_TOPIC_BOOKING_CANCELLED", "support.booking.cancelled"),
				PaymentFailed:    getEnv("KAFKA_TOPIC_PAYMENT_FAILED", "support.payment.failed"),
			},
		},
		Payment: PaymentConfig{
			BaseURL:        getEnv("PAYMENT_GATEWAY_URL", "http://localhost:8087"),
			RequestTimeout: time.Duration(getEnvInt("PAYMENT_TIMEOUT_SECONDS", 15)) * time.Second,

			PayPalAPIBase:      getEnv("PAYPAL_API_BASE", "https://api-m.sandbox.paypal.com"),
			PayPalClientID:     getEnv("PAYPAL_CLIENT_ID", ""),
			PayPalClientSecret: getEnv("PAYPAL_CLIENT_SECRET", ""),
			ReturnURL:          getEnv("PAYPAL_RETURN_URL", "http://localhost:8086/api/support/paypal-success"),
			CancelURL:          getEnv("PAYPAL_CANCEL_URL", "http://localhost:8086/api/support/paypal-cancel"),
			Currency:           getEnv("PAYPAL_CURRENCY", "USD"),
		},
		Booking: BookingConfig{
			SupportPrice:    getEnvFloat("SUPPORT_PRICE", 50.0),
			ApprovalTTL:     time.Duration(getEnvInt("APPROVAL_TTL_MINUTES", 15)) * time.Minute,
			CaptureGuardTTL: time.Duration(getEnvInt("CAPTURE_GUARD_TTL_MINUTES", 30)) * time.Minute,
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			FromAddress:  getEnv("SMTP_FROM", "support@rvit.app"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
