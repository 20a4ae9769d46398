package storage_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"ms-support/internal/logger"
	"ms-support/internal/models"
	"ms-support/internal/payment/storage"
)

// TestPostgreSQLStoreIntegration exercises the order store against a real
// Postgres container.
func TestPostgreSQLStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping Postgres integration test in short mode")
	}

	ctx := context.Background()
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "payments",
				"POSTGRES_PASSWORD": "payments",
				"POSTGRES_DB":       "payments",
			},
			WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start Postgres container: %v", err)
	}
	defer pgContainer.Terminate(ctx)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := "host=" + host + " port=" + port.Port() + " user=payments password=payments dbname=payments sslmode=disable"
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)

	// The container can accept connections slightly after the port opens
	require.Eventually(t, func() bool {
		return db.Ping() == nil
	}, 30*time.Second, 500*time.Millisecond)

	store, err := storage.NewPostgreSQLStoreWithDB(db, logger.NewLogger())
	require.NoError(t, err)
	defer store.Close()

	order := &models.PaymentOrder{
		OrderID:     "ORDER-IT-1",
		ApprovalURL: "https://provider/approve?token=ORDER-IT-1",
		Status:      models.OrderStatusCreated,
		Amount:      50.0,
		Currency:    "USD",
		UserEmail:   "alice@example.com",
		SupportType: "Consultation",
		Category:    "Debugging",
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, store.SaveOrder(order))

	// Duplicate order id is rejected by the primary key
	assert.Error(t, store.SaveOrder(order))

	got, err := store.GetOrder("ORDER-IT-1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCreated, got.Status)
	assert.Empty(t, got.CaptureID)

	require.NoError(t, store.UpdateOrderStatus("ORDER-IT-1", models.OrderStatusCaptured, "CAP-IT-1"))

	got, err = store.GetOrder("ORDER-IT-1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCaptured, got.Status)
	assert.Equal(t, "CAP-IT-1", got.CaptureID)

	_, err = store.GetOrder("ORDER-IT-missing")
	assert.Error(t, err)

	second := &models.PaymentOrder{
		OrderID:     "ORDER-IT-2",
		Status:      models.OrderStatusCreated,
		Amount:      50.0,
		Currency:    "USD",
		UserEmail:   "alice@example.com",
		SupportType: "Emergency",
		Category:    "Security",
		CreatedAt:   time.Now().UTC().Add(time.Second),
	}
	require.NoError(t, store.SaveOrder(second))

	orders, err := store.ListOrdersByEmail("alice@example.com", 10, 0)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "ORDER-IT-2", orders[0].OrderID, "newest order first")

	assert.NoError(t, store.HealthCheck())
}
