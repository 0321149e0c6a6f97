// internal/audit/indexer.go

// Package audit mirrors approval events into Elasticsearch so the owner
// dashboard can search the trail. PostgreSQL stays the source of truth;
// indexing runs as a post-commit hook and its failures are absorbed.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"approval-service/internal/common/database"
	"approval-service/internal/models"
	"approval-service/internal/workflow"
)

type Indexer struct {
	es    *database.ElasticsearchClient
	index string
}

func NewIndexer(es *database.ElasticsearchClient, index string) *Indexer {
	return &Indexer{es: es, index: index}
}

// document is the denormalized shape indexed per event.
type document struct {
	EventID    string            `json:"eventId"`
	DealID     string            `json:"dealId"`
	Type       models.EventType  `json:"type"`
	DealStatus models.DealStatus `json:"dealStatus"`
	ClientName string            `json:"clientName"`
	Currency   string            `json:"currency"`
	Total      int64             `json:"total"`
	IP         string            `json:"ip"`
	UserAgent  string            `json:"userAgent"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// IndexEvent writes one audit document keyed by the event id, so re-indexing
// after a retry stays idempotent.
func (i *Indexer) IndexEvent(ctx context.Context, event *models.ApprovalEvent, deal *models.Deal) error {
	doc := document{
		EventID:    event.ID,
		DealID:     event.DealID,
		Type:       event.Type,
		DealStatus: deal.Status,
		ClientName: deal.ClientName,
		Currency:   deal.Currency,
		Total:      deal.Total,
		IP:         event.Meta.IP,
		UserAgent:  event.Meta.UserAgent,
		OccurredAt: event.CreatedAt,
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal audit document: %w", err)
	}

	res, err := i.es.Client.Index(
		i.index,
		bytes.NewReader(body),
		i.es.Client.Index.WithDocumentID(event.ID),
		i.es.Client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index audit document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index audit document: %s", res.Status())
	}
	return nil
}

// Name identifies the indexer in post-commit hook logs.
func (i *Indexer) Name() string {
	return "audit-index"
}

// Run makes the indexer usable as a workflow post-commit hook.
func (i *Indexer) Run(ctx context.Context, fx workflow.SideEffect) error {
	if fx.Record == nil {
		return nil
	}
	return i.IndexEvent(ctx, fx.Record, fx.Deal)
}
