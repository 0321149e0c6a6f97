// internal/models/token.go
package models

import "time"

// ApprovalToken binds a hashed single-use secret to a deal. Only the SHA-256
// digest of the secret is ever stored; the raw secret is returned exactly once
// at creation.
type ApprovalToken struct {
	ID        string     `json:"id"`
	DealID    string     `json:"dealId"`
	TokenHash string     `json:"-"`
	ExpiresAt time.Time  `json:"expiresAt"`
	UsedAt    *time.Time `json:"usedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Consumable reports whether the token can still authorize a confirmation:
// unused and not past its expiry at the given instant.
func (t *ApprovalToken) Consumable(now time.Time) bool {
	return t.UsedAt == nil && !now.After(t.ExpiresAt)
}
