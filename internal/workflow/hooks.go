// internal/workflow/hooks.go
package workflow

import (
	"context"
	"fmt"
	"time"

	apperrors "approval-service/internal/common/errors"
	"approval-service/internal/models"
)

// emailHook maps lifecycle events to the three workflow emails. The approval
// link goes to the client, decision notices go to the deal owner. Events
// without a recipient are skipped silently.
type emailHook struct {
	notifier Notifier
}

func (h *emailHook) Name() string {
	return "email"
}

func (h *emailHook) Run(ctx context.Context, fx SideEffect) error {
	amount := fx.Deal.AmountString()
	decidedAt := fx.Record.CreatedAt.Format(time.RFC1123)

	switch fx.Event {
	case models.EventSent:
		if fx.Deal.ClientEmail == "" {
			return nil
		}
		if !h.notifier.SendApprovalLink(ctx, fx.Deal.ClientEmail, fx.Deal.ClientName, fx.ApprovalLink, amount) {
			return apperrors.NewDeliveryFailedError("email", nil)
		}
	case models.EventApproved:
		if fx.OwnerEmail == "" {
			return nil
		}
		if !h.notifier.SendApprovalConfirmed(ctx, fx.OwnerEmail, fx.Deal.ClientName, amount, decidedAt) {
			return apperrors.NewDeliveryFailedError("email", nil)
		}
	case models.EventRejected:
		if fx.OwnerEmail == "" {
			return nil
		}
		if !h.notifier.SendApprovalRejected(ctx, fx.OwnerEmail, fx.Deal.ClientName, amount, decidedAt) {
			return apperrors.NewDeliveryFailedError("email", nil)
		}
	}
	return nil
}

// webhookHook fans each event out to the active webhook configs in scope for
// the deal, skipping configs not subscribed to the event.
type webhookHook struct {
	store  Store
	sender WebhookSender
}

func (h *webhookHook) Name() string {
	return "webhook"
}

func (h *webhookHook) Run(ctx context.Context, fx SideEffect) error {
	configs, err := h.store.ActiveWebhookConfigs(ctx, fx.Deal.ID)
	if err != nil {
		return err
	}

	payload := models.NewWebhookPayload(fx.Event, fx.Deal, map[string]interface{}{
		"ip":        fx.Record.Meta.IP,
		"userAgent": fx.Record.Meta.UserAgent,
	})

	var failed int
	for _, cfg := range configs {
		if !cfg.SubscribedTo(fx.Event) {
			continue
		}
		if !h.sender.Deliver(ctx, cfg.URL, cfg.Secret, payload) {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d webhook delivery(ies) failed", failed)
	}
	return nil
}
