// Package identity computes stable content fingerprints for postings.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns the hex-encoded SHA-256 of title + url. It is the
// sole identity key for a posting within a company: same inputs produce the
// same output across runs and process restarts.
func Fingerprint(title, url string) string {
	sum := sha256.Sum256([]byte(title + url))
	return hex.EncodeToString(sum[:])
}
