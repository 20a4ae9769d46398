package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"ms-support/internal/booking"
	"ms-support/internal/booking/db"
	"ms-support/internal/models"
)

func setupTestDB(t *testing.T) (*db.DB, *bun.DB) {
	// Connect to an in-memory SQLite DB for testing
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	// Create required tables
	ctx := context.Background()
	for _, m := range []interface{}{
		(*models.SupportBooking)(nil),
		(*models.PaymentAuditEntry)(nil),
	} {
		if _, err := bunDB.NewCreateTable().Model(m).Exec(ctx); err != nil {
			t.Fatalf("Failed to create table for %T: %v", m, err)
		}
	}

	return &db.DB{Bun: bunDB}, bunDB
}

func testBooking(orderID string) models.SupportBooking {
	return models.SupportBooking{
		BookingID:      uuid.New().String(),
		UserID:         "user123",
		UserName:       "Alice",
		UserEmail:      "alice@example.com",
		SupportType:    string(models.SupportConsultation),
		Category:       "Debugging",
		Status:         models.BookingConfirmed,
		PaymentStatus:  models.PaymentCompleted,
		PaymentAmount:  50.0,
		PaymentMethod:  "paypal",
		PaymentID:      "CAP-" + orderID,
		PaymentOrderID: orderID,
		CreatedAt:      time.Now().UTC(),
	}
}

func TestInsertAndGetBooking(t *testing.T) {
	bookingDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	record := testBooking("ORDER-1")
	require.NoError(t, bookingDB.InsertBooking(ctx, record))

	got, err := bookingDB.GetBookingByID(ctx, record.BookingID)
	require.NoError(t, err)
	assert.Equal(t, record.BookingID, got.BookingID)
	assert.Equal(t, "ORDER-1", got.PaymentOrderID)
	assert.Equal(t, models.BookingConfirmed, got.Status)

	// Non-existent booking
	_, err = bookingDB.GetBookingByID(ctx, "non-existent")
	assert.Error(t, err)
}

func TestUniqueOrderIDRejectsSecondRow(t *testing.T) {
	bookingDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	require.NoError(t, bookingDB.InsertBooking(ctx, testBooking("ORDER-2")))

	// A second row for the same provider order must be rejected by the
	// unique index even if every guard above the database failed
	err := bookingDB.InsertBooking(ctx, testBooking("ORDER-2"))
	assert.Error(t, err)
}

func TestGetBookingByOrderID(t *testing.T) {
	bookingDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	// No row yet: (nil, nil), the check-before-write contract
	got, err := bookingDB.GetBookingByOrderID(ctx, "ORDER-3")
	require.NoError(t, err)
	assert.Nil(t, got)

	record := testBooking("ORDER-3")
	require.NoError(t, bookingDB.InsertBooking(ctx, record))

	got, err = bookingDB.GetBookingByOrderID(ctx, "ORDER-3")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, record.BookingID, got.BookingID)
}

func TestGetBookingsByUserIDNewestFirst(t *testing.T) {
	bookingDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	older := testBooking("ORDER-4")
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	newer := testBooking("ORDER-5")

	require.NoError(t, bookingDB.InsertBooking(ctx, older))
	require.NoError(t, bookingDB.InsertBooking(ctx, newer))

	bookings, err := bookingDB.GetBookingsByUserID(ctx, "user123")
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	assert.Equal(t, newer.BookingID, bookings[0].BookingID)
	assert.Equal(t, older.BookingID, bookings[1].BookingID)

	// Unknown user gets an empty slice, not nil
	bookings, err = bookingDB.GetBookingsByUserID(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, bookings)
	assert.Empty(t, bookings)
}

func TestCountConfirmedBookings(t *testing.T) {
	bookingDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	count, err := bookingDB.CountConfirmedBookings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, bookingDB.InsertBooking(ctx, testBooking("ORDER-6")))
	require.NoError(t, bookingDB.InsertBooking(ctx, testBooking("ORDER-7")))

	cancelled := testBooking("ORDER-8")
	cancelled.Status = models.BookingCancelled
	require.NoError(t, bookingDB.InsertBooking(ctx, cancelled))

	count, err = bookingDB.CountConfirmedBookings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestCountBookingsBySupportType(t *testing.T) {
	bookingDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	first := testBooking("ORDER-9")
	second := testBooking("ORDER-10")
	third := testBooking("ORDER-11")
	third.SupportType = string(models.SupportEmergency)

	require.NoError(t, bookingDB.InsertBooking(ctx, first))
	require.NoError(t, bookingDB.InsertBooking(ctx, second))
	require.NoError(t, bookingDB.InsertBooking(ctx, third))

	counts, err := bookingDB.CountBookingsBySupportType(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[string(models.SupportConsultation)])
	assert.Equal(t, 1, counts[string(models.SupportEmergency)])
}

func TestRecordPaymentAudit(t *testing.T) {
	bookingDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	entry := models.PaymentAuditEntry{
		OrderID:   "ORDER-12",
		UserID:    "user123",
		UserEmail: "alice@example.com",
		Kind:      booking.KindCaptureOrPersistFailed,
		Detail:    "booking write failed after capture CAP-12",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, bookingDB.RecordPaymentAudit(ctx, entry))
	require.NoError(t, bookingDB.RecordPaymentAudit(ctx, entry)) // append-only, duplicates allowed

	entries, err := bookingDB.GetAuditEntriesByOrderID(ctx, "ORDER-12")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, booking.KindCaptureOrPersistFailed, entries[0].Kind)
	assert.Contains(t, entries[0].Detail, "CAP-12")
}
