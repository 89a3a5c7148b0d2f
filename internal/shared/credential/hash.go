// Package credential derives the privacy-preserving join key for a caller's
// provider credential.
package credential

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest returns the lowercase hex SHA-256 of the raw credential string.
// The raw value is never retained.
func Digest(raw string) string {
	hash := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(hash[:])
}
