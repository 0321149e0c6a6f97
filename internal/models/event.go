// internal/models/event.go
package models

import "time"

// EventType is the kind of lifecycle interaction recorded in the audit trail.
type EventType string

const (
	EventSent     EventType = "SENT"
	EventViewed   EventType = "VIEWED"
	EventApproved EventType = "APPROVED"
	EventRejected EventType = "REJECTED"
)

// EventMeta is the fixed metadata set captured with every audit event.
// Both values are client-supplied and spoofable; they are recorded for
// forensics only and never used for authorization.
type EventMeta struct {
	IP        string `json:"ip"`
	UserAgent string `json:"userAgent"`
}

// ApprovalEvent is one immutable entry in a deal's audit trail. Events are
// append-only and never deleted.
type ApprovalEvent struct {
	ID        string    `json:"id"`
	DealID    string    `json:"dealId"`
	Type      EventType `json:"type"`
	Meta      EventMeta `json:"meta"`
	CreatedAt time.Time `json:"createdAt"`
}
