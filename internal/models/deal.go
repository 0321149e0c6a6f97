// internal/models/deal.go
package models

import (
	"fmt"
	"math"
	"time"
)

// DealStatus is the lifecycle status of a deal snapshot.
type DealStatus string

const (
	StatusDraft    DealStatus = "DRAFT"
	StatusSent     DealStatus = "SENT"
	StatusApproved DealStatus = "APPROVED"
	StatusRejected DealStatus = "REJECTED"
	StatusExpired  DealStatus = "EXPIRED"
)

// DealItem is a single line item. UnitPrice is in minor currency units (cents).
type DealItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   int64   `json:"unitPrice"`
}

// Deal is a point-in-time snapshot of a commercial proposal awaiting approval.
// Deals are never deleted; status is the only field mutated after creation.
type Deal struct {
	ID          string     `json:"id"`
	ClientName  string     `json:"clientName"`
	ClientEmail string     `json:"clientEmail,omitempty"`
	OwnerEmail  string     `json:"ownerEmail,omitempty"`
	Currency    string     `json:"currency"`
	Total       int64      `json:"total"` // minor units
	Items       []DealItem `json:"items"`
	Status      DealStatus `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// AmountString renders the total as "EUR 10.00" for emails and dashboards.
func (d *Deal) AmountString() string {
	return fmt.Sprintf("%s %d.%02d", d.Currency, d.Total/100, d.Total%100)
}

// ItemsTotal is the rounded sum of quantity x unit price across line items.
// The stored total must equal this at creation time; it is never re-derived
// afterwards.
func ItemsTotal(items []DealItem) int64 {
	var sum float64
	for _, it := range items {
		sum += it.Quantity * float64(it.UnitPrice)
	}
	return int64(math.Round(sum))
}
