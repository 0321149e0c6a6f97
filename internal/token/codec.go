// internal/token/codec.go
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

const secretBytes = 32

// Generate produces a new approval secret: 32 bytes of cryptographically
// secure randomness as a lowercase hex string. The raw secret is shown to the
// caller exactly once; only its hash is persisted.
func Generate() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Hash derives the storage form of a secret. SHA-256 keeps the stored digest
// useless for constructing approval links.
func Hash(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// Verify recomputes the hash of secret and compares it against digest in
// constant time. A length mismatch is an ordinary verification failure.
func Verify(secret, digest string) bool {
	computed := Hash(secret)
	if len(computed) != len(digest) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(digest)) == 1
}
