package notification

import (
	"context"
	"encoding/base64"
	"fmt"

	"ms-support/internal/booking/qr"
	"ms-support/internal/kafka"
	"ms-support/internal/logger"
	"ms-support/internal/models"
)

// Worker consumes booking events and mails the customer. Confirmation mail
// embeds the booking's encrypted QR reference so support staff can verify the
// session from the mail alone.
type Worker struct {
	Confirmed *kafka.Consumer
	Failed    *kafka.Consumer
	Notifier  Notifier
	QR        *qr.QRGenerator
	Logger    *logger.Logger
}

// Run starts both consumers and blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	go w.Confirmed.Start(ctx, w.handleConfirmed)
	w.Failed.Start(ctx, w.handleFailed)
}

func (w *Worker) handleConfirmed(event models.BookingEvent) {
	if event.Booking == nil {
		w.Logger.Warn("NOTIFY", fmt.Sprintf("confirmed event for order %s carries no booking, skipping", event.OrderID))
		return
	}
	booking := *event.Booking

	subject := "Your support booking is confirmed"
	body := fmt.Sprintf(
		"<h2>Booking confirmed</h2>"+
			"<p>Hi %s,</p>"+
			"<p>Your <b>%s</b> support booking for <b>%s</b> is confirmed.</p>"+
			"<p>Booking reference: <code>%s</code><br>Payment reference: <code>%s</code></p>",
		booking.UserName, booking.SupportType, booking.Category,
		booking.BookingID, booking.PaymentID,
	)

	if png, err := w.QR.GenerateEncryptedQR(booking); err != nil {
		w.Logger.Warn("NOTIFY", fmt.Sprintf("failed to generate QR for booking %s: %v", booking.BookingID, err))
	} else {
		body += fmt.Sprintf(
			`<p>Show this code at the start of your session:</p><img src="data:image/png;base64,%s" alt="booking code">`,
			base64.StdEncoding.EncodeToString(png),
		)
	}

	if err := w.Notifier.Send([]string{booking.UserEmail}, subject, body); err != nil {
		w.Logger.Error("NOTIFY", fmt.Sprintf("failed to send confirmation for booking %s: %v", booking.BookingID, err))
		return
	}
	w.Logger.Info("NOTIFY", fmt.Sprintf("confirmation sent for booking %s", booking.BookingID))
}

func (w *Worker) handleFailed(event models.BookingEvent) {
	if event.Request == nil || event.Request.UserEmail == "" {
		w.Logger.Warn("NOTIFY", fmt.Sprintf("failed-payment event for order %s carries no recipient, skipping", event.OrderID))
		return
	}

	subject := "We could not complete your support booking"
	body := fmt.Sprintf(
		"<h2>Payment problem</h2>"+
			"<p>Hi %s,</p>"+
			"<p>Your booking attempt could not be completed: %s</p>"+
			"<p>If you were charged, our team will reconcile the payment. "+
			"Reference: <code>%s</code></p>",
		event.Request.UserName, event.Reason, event.OrderID,
	)

	if err := w.Notifier.Send([]string{event.Request.UserEmail}, subject, body); err != nil {
		w.Logger.Error("NOTIFY", fmt.Sprintf("failed to send failure notice for order %s: %v", event.OrderID, err))
		return
	}
	w.Logger.Info("NOTIFY", fmt.Sprintf("failure notice sent for order %s", event.OrderID))
}
