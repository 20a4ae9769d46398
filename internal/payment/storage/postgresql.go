package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"ms-support/internal/config"
	"ms-support/internal/logger"
	"ms-support/internal/models"
)

type PostgreSQLStore struct {
	db  *sql.DB
	log *logger.Logger
}

// NewPostgreSQLStoreWithDB creates a store using an existing database connection
func NewPostgreSQLStoreWithDB(db *sql.DB, log *logger.Logger) (*PostgreSQLStore, error) {
	log.Info("DATABASE", "Creating payment order storage with existing database connection")

	store := &PostgreSQLStore{
		db:  db,
		log: log,
	}

	if err := store.initTables(); err != nil {
		log.Error("DATABASE", "Failed to initialize payment order tables: "+err.Error())
		return nil, fmt.Errorf("failed to initialize payment order tables: %w", err)
	}

	log.Info("DATABASE", "Payment order storage initialized successfully with existing connection")
	return store, nil
}

func NewPostgreSQLStore(cfg config.DatabaseConfig, log *logger.Logger) (*PostgreSQLStore, error) {
	log.LogDatabase("CONNECT", "postgresql", fmt.Sprintf("Connecting to PostgreSQL at %s:%s", cfg.Host, cfg.Port))

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Error("DATABASE", "Failed to open PostgreSQL connection: "+err.Error())
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MaxLifetime)

	if err := db.Ping(); err != nil {
		log.Error("DATABASE", "Failed to ping PostgreSQL: "+err.Error())
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgreSQLStore{
		db:  db,
		log: log,
	}

	if err := store.initTables(); err != nil {
		log.Error("DATABASE", "Failed to initialize tables: "+err.Error())
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	log.LogDatabase("SUCCESS", "postgresql", "PostgreSQL connection established and tables initialized")
	return store, nil
}

func (s *PostgreSQLStore) initTables() error {
	s.log.LogDatabase("MIGRATE", "postgresql", "Creating payment_orders table if not exists")

	ordersQuery := `
    CREATE TABLE IF NOT EXISTS payment_orders (
        order_id VARCHAR(64) PRIMARY KEY,
        status VARCHAR(50) NOT NULL,
        amount DECIMAL(10,2) NOT NULL,
        currency VARCHAR(8) NOT NULL,
        user_email VARCHAR(255) NOT NULL,
        support_type VARCHAR(100) NOT NULL,
        category VARCHAR(255) NOT NULL,
        capture_id VARCHAR(64),
        approval_url VARCHAR(500),
        created_date TIMESTAMP DEFAULT CURRENT_TIMESTAMP
    );
    `

	if _, err := s.db.Exec(ordersQuery); err != nil {
		return fmt.Errorf("failed to create payment_orders table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_payment_orders_status ON payment_orders(status);",
		"CREATE INDEX IF NOT EXISTS idx_payment_orders_user_email ON payment_orders(user_email);",
		"CREATE INDEX IF NOT EXISTS idx_payment_orders_created_date ON payment_orders(created_date);",
	}

	for _, indexQuery := range indexes {
		if _, err := s.db.Exec(indexQuery); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	s.log.LogDatabase("SUCCESS", "postgresql", "Payment order tables and indexes ready")
	return nil
}

// SaveOrder saves a provider order to the database
func (s *PostgreSQLStore) SaveOrder(order *models.PaymentOrder) error {
	s.log.LogDatabase("INSERT", "postgresql", fmt.Sprintf("Saving order %s", order.OrderID))

	query := `
    INSERT INTO payment_orders (
        order_id, status, amount, currency, user_email, support_type, category, capture_id, approval_url, created_date
    ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `

	_, err := s.db.Exec(query,
		order.OrderID, order.Status, order.Amount, order.Currency, order.UserEmail,
		order.SupportType, order.Category, order.CaptureID, order.ApprovalURL, order.CreatedAt,
	)

	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to save order %s: %s", order.OrderID, err.Error()))
		return fmt.Errorf("failed to save order: %w", err)
	}

	s.log.LogDatabase("SUCCESS", "postgresql", fmt.Sprintf("Order %s saved successfully", order.OrderID))
	return nil
}

// GetOrder retrieves a provider order by its id
func (s *PostgreSQLStore) GetOrder(orderID string) (*models.PaymentOrder, error) {
	s.log.LogDatabase("SELECT", "postgresql", fmt.Sprintf("Fetching order %s", orderID))

	query := `
    SELECT order_id, status, amount, currency, user_email, support_type, category, capture_id, approval_url, created_date
    FROM payment_orders WHERE order_id = $1
    `

	order := &models.PaymentOrder{}
	var captureID sql.NullString
	err := s.db.QueryRow(query, orderID).Scan(
		&order.OrderID, &order.Status, &order.Amount, &order.Currency, &order.UserEmail,
		&order.SupportType, &order.Category, &captureID, &order.ApprovalURL, &order.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			s.log.LogDatabase("NOT_FOUND", "postgresql", fmt.Sprintf("Order %s not found", orderID))
			return nil, fmt.Errorf("order not found")
		}
		s.log.Error("DATABASE", fmt.Sprintf("Failed to get order %s: %s", orderID, err.Error()))
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	order.CaptureID = captureID.String

	s.log.LogDatabase("SUCCESS", "postgresql", fmt.Sprintf("Order %s fetched successfully", orderID))
	return order, nil
}

// UpdateOrderStatus moves an order to a new status, recording the capture id
// when one exists
func (s *PostgreSQLStore) UpdateOrderStatus(orderID string, status models.OrderStatus, captureID string) error {
	s.log.LogDatabase("UPDATE", "postgresql", fmt.Sprintf("Updating order %s to status %s", orderID, status))

	query := `
    UPDATE payment_orders SET status = $1, capture_id = $2 WHERE order_id = $3
    `

	_, err := s.db.Exec(query, status, captureID, orderID)
	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to update order %s: %s", orderID, err.Error()))
		return fmt.Errorf("failed to update order: %w", err)
	}

	s.log.LogDatabase("SUCCESS", "postgresql", fmt.Sprintf("Order %s updated successfully", orderID))
	return nil
}

// ListOrdersByEmail retrieves orders for a user email, newest first
func (s *PostgreSQLStore) ListOrdersByEmail(email string, limit, offset int) ([]*models.PaymentOrder, error) {
	s.log.LogDatabase("SELECT", "postgresql", fmt.Sprintf("Listing orders for %s (limit: %d, offset: %d)", email, limit, offset))

	query := `
    SELECT order_id, status, amount, currency, user_email, support_type, category, capture_id, approval_url, created_date
    FROM payment_orders
    WHERE user_email = $1
    ORDER BY created_date DESC
    LIMIT $2 OFFSET $3
    `

	rows, err := s.db.Query(query, email, limit, offset)
	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to list orders: %s", err.Error()))
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.PaymentOrder
	for rows.Next() {
		order := &models.PaymentOrder{}
		var captureID sql.NullString
		err := rows.Scan(
			&order.OrderID, &order.Status, &order.Amount, &order.Currency, &order.UserEmail,
			&order.SupportType, &order.Category, &captureID, &order.ApprovalURL, &order.CreatedAt,
		)
		if err != nil {
			s.log.Error("DATABASE", fmt.Sprintf("Failed to scan order row: %s", err.Error()))
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		order.CaptureID = captureID.String
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Row iteration error: %s", err.Error()))
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	s.log.LogDatabase("SUCCESS", "postgresql", fmt.Sprintf("Listed %d orders for %s", len(orders), email))
	return orders, nil
}

func (s *PostgreSQLStore) Close() error {
	s.log.LogDatabase("CLOSE", "postgresql", "Closing PostgreSQL connection")
	return s.db.Close()
}

func (s *PostgreSQLStore) HealthCheck() error {
	return s.db.Ping()
}
