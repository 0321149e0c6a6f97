// internal/token/expiry_test.go
package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExpirationFrom(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expiresAt := ExpirationFrom(now)

	window := expiresAt.Sub(now)
	assert.GreaterOrEqual(t, window, time.Duration(13.9*24*float64(time.Hour)))
	assert.LessOrEqual(t, window, time.Duration(14.1*24*float64(time.Hour)))
}

func TestIsExpired(t *testing.T) {
	expiresAt := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		now     time.Time
		expired bool
	}{
		{"one second before expiry", expiresAt.Add(-time.Second), false},
		{"exactly at expiry", expiresAt, false},
		{"one second after expiry", expiresAt.Add(time.Second), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expired, IsExpired(expiresAt, tt.now))
		})
	}
}
