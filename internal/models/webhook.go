// internal/models/webhook.go
package models

import (
	"strings"
	"time"
)

// WebhookConfig is an externally registered callback. DealID is empty for
// globally scoped configs. The core never mutates a config; deactivation is
// an admin action.
type WebhookConfig struct {
	ID        string    `json:"id"`
	DealID    string    `json:"dealId,omitempty"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	Secret    string    `json:"-"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SubscribedTo reports whether the config wants the given event.
func (c *WebhookConfig) SubscribedTo(event EventType) bool {
	for _, e := range c.Events {
		if strings.EqualFold(strings.TrimSpace(e), string(event)) {
			return true
		}
	}
	return false
}

// WebhookPayload is the JSON body POSTed to registered callback URLs.
type WebhookPayload struct {
	Event       EventType              `json:"event"`
	DealID      string                 `json:"dealId"`
	DealStatus  DealStatus             `json:"dealStatus"`
	ClientName  string                 `json:"clientName"`
	ClientEmail string                 `json:"clientEmail,omitempty"`
	Total       int64                  `json:"total"`
	Currency    string                 `json:"currency"`
	Timestamp   string                 `json:"timestamp"` // ISO 8601
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// NewWebhookPayload builds the outbound payload for a deal lifecycle event.
func NewWebhookPayload(event EventType, deal *Deal, metadata map[string]interface{}) WebhookPayload {
	return WebhookPayload{
		Event:       event,
		DealID:      deal.ID,
		DealStatus:  deal.Status,
		ClientName:  deal.ClientName,
		ClientEmail: deal.ClientEmail,
		Total:       deal.Total,
		Currency:    deal.Currency,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Metadata:    metadata,
	}
}
