package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateHexSerial generates a cryptographically secure random hex string of
// exactly length characters, e.g. length=6 yields something like "3fa90c".
func GenerateHexSerial(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive")
	}
	b := make([]byte, (length+1)/2)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(b)[:length], nil
}
