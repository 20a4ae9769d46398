package qr_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-support/internal/booking/qr"
	"ms-support/internal/models"
)

var pngMagic = []byte{0x89, 0x50, 0x4E, 0x47}

func TestGenerateEncryptedQRProducesPNG(t *testing.T) {
	gen := qr.NewQRGenerator("test-secret")

	png, err := gen.GenerateEncryptedQR(models.SupportBooking{
		BookingID:      "booking-1",
		PaymentOrderID: "ORDER-1",
		UserEmail:      "alice@example.com",
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic), "output should be a PNG image")
}

func TestGenerateEncryptedQRUsesFreshIV(t *testing.T) {
	gen := qr.NewQRGenerator("test-secret")
	booking := models.SupportBooking{
		BookingID:      "booking-2",
		PaymentOrderID: "ORDER-2",
		UserEmail:      "alice@example.com",
	}

	first, err := gen.GenerateEncryptedQR(booking)
	require.NoError(t, err)
	second, err := gen.GenerateEncryptedQR(booking)
	require.NoError(t, err)

	// Same payload, random IV: the encoded images must differ
	assert.False(t, bytes.Equal(first, second))
}

func TestShortSecretStillYieldsValidKey(t *testing.T) {
	// The secret is hashed to a fixed-size key, so any length works
	gen := qr.NewQRGenerator("x")

	png, err := gen.GenerateEncryptedQR(models.SupportBooking{
		BookingID:      "booking-3",
		PaymentOrderID: "ORDER-3",
		UserEmail:      "bob@example.com",
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))
}
