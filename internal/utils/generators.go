package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// GenerateBookingRef produces a human-readable booking reference.
func GenerateBookingRef() string {
	timestamp := time.Now().Unix()
	randomNum, _ := rand.Int(rand.Reader, big.NewInt(999999))
	return fmt.Sprintf("sup_%d_%06d", timestamp, randomNum.Int64())
}

// GenerateAuditRef produces an identifier for payment audit entries.
func GenerateAuditRef() string {
	timestamp := time.Now().Unix()
	randomNum, _ := rand.Int(rand.Reader, big.NewInt(999999999))
	return fmt.Sprintf("aud_%d_%09d", timestamp, randomNum.Int64())
}
