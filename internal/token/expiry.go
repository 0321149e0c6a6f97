// internal/token/expiry.go
package token

import "time"

// ValidityWindow is how long an approval link stays usable.
const ValidityWindow = 14 * 24 * time.Hour

// ExpirationFrom returns the expiry timestamp for a token issued at now.
func ExpirationFrom(now time.Time) time.Time {
	return now.Add(ValidityWindow)
}

// IsExpired reports whether now is strictly past expiresAt.
func IsExpired(expiresAt, now time.Time) bool {
	return now.After(expiresAt)
}
