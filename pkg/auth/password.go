package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// DigestPassword returns the SHA-256 digest of the password as lowercase
// hex. Stored digests are always this fixed 64-character form.
func DigestPassword(password string) string {
	h := sha256.Sum256([]byte(password))
	return hex.EncodeToString(h[:])
}

// CheckPassword validates a password against a stored digest in constant
// time.
func CheckPassword(password, stored string) bool {
	digest := DigestPassword(password)
	return subtle.ConstantTimeCompare([]byte(digest), []byte(stored)) == 1
}
