package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"ms-support/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// ---------------- BOOKINGS ----------------

// InsertBooking → write-once insert of a confirmed booking. The unique index
// on payment_order_id rejects a second row for the same provider order.
func (d *DB) InsertBooking(ctx context.Context, booking models.SupportBooking) error {
	_, err := d.Bun.NewInsert().Model(&booking).Exec(ctx)
	if err != nil {
		return fmt.Errorf("insert booking %s: %w", booking.BookingID, err)
	}
	return nil
}

// GetBookingByID → fetch one booking by its ID
func (d *DB) GetBookingByID(ctx context.Context, bookingID string) (*models.SupportBooking, error) {
	var booking models.SupportBooking
	err := d.Bun.NewSelect().
		Model(&booking).
		Where("booking_id = ?", bookingID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// GetBookingByOrderID → fetch the booking written for a provider order, or
// (nil, nil) when no row exists yet. The capture path uses this as its
// check-before-write.
func (d *DB) GetBookingByOrderID(ctx context.Context, orderID string) (*models.SupportBooking, error) {
	var booking models.SupportBooking
	err := d.Bun.NewSelect().
		Model(&booking).
		Where("payment_order_id = ?", orderID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// GetBookingsByUserID → fetch a user's bookings newest-first
func (d *DB) GetBookingsByUserID(ctx context.Context, userID string) ([]models.SupportBooking, error) {
	var bookings []models.SupportBooking
	err := d.Bun.NewSelect().
		Model(&bookings).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if bookings == nil {
		bookings = []models.SupportBooking{}
	}
	return bookings, nil
}

// CountConfirmedBookings → total confirmed bookings, for the public counter
func (d *DB) CountConfirmedBookings(ctx context.Context) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.SupportBooking)(nil)).
		Where("status = ?", models.BookingConfirmed).
		Count(ctx)
}

// CountBookingsBySupportType → confirmed bookings grouped by support type
func (d *DB) CountBookingsBySupportType(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		SupportType string `bun:"support_type"`
		Count       int    `bun:"count"`
	}
	err := d.Bun.NewSelect().
		Model((*models.SupportBooking)(nil)).
		ColumnExpr("support_type").
		ColumnExpr("count(*) AS count").
		Where("status = ?", models.BookingConfirmed).
		GroupExpr("support_type").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.SupportType] = row.Count
	}
	return counts, nil
}

// ---------------- PAYMENT AUDIT ----------------

// RecordPaymentAudit → append a reconciliation entry keyed by the provider
// order id. Never updated or deleted by the service.
func (d *DB) RecordPaymentAudit(ctx context.Context, entry models.PaymentAuditEntry) error {
	_, err := d.Bun.NewInsert().Model(&entry).Exec(ctx)
	if err != nil {
		return fmt.Errorf("record payment audit for order %s: %w", entry.OrderID, err)
	}
	return nil
}

// GetAuditEntriesByOrderID → fetch reconciliation entries for an order
func (d *DB) GetAuditEntriesByOrderID(ctx context.Context, orderID string) ([]models.PaymentAuditEntry, error) {
	var entries []models.PaymentAuditEntry
	err := d.Bun.NewSelect().
		Model(&entries).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return entries, nil
}
