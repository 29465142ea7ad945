// Package pin hashes and verifies 4-digit PINs. Hashing is deterministic
// and unsalted so a freshly hashed login attempt can be compared against
// the stored digest across process restarts.
package pin

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
)

// ErrInvalidPIN is returned when the input is not a positive 4-digit number.
var ErrInvalidPIN = errors.New("pin must be a 4-digit number")

// Hash returns the SHA-256 hex digest of a 4-digit PIN. The PIN must be a
// positive integer between 1000 and 9999; anything else is ErrInvalidPIN.
func Hash(pin string) (string, error) {
	n, err := strconv.Atoi(pin)
	if err != nil || n < 1000 || n > 9999 {
		return "", ErrInvalidPIN
	}

	sum := sha256.Sum256([]byte(strconv.Itoa(n)))
	return hex.EncodeToString(sum[:]), nil
}

// Verify reports whether pin hashes to storedHash. A malformed PIN never
// verifies. Comparison is plain string equality, not constant-time.
func Verify(pin, storedHash string) bool {
	h, err := Hash(pin)
	if err != nil {
		return false
	}
	return h == storedHash
}
