// internal/notify/dispatcher.go

// Package notify sends the three approval workflow emails over SES. Sends are
// best-effort: a failed send is logged and counted, never propagated into the
// surrounding workflow step.
package notify

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"approval-service/internal/common/logger"
	"approval-service/internal/common/metrics"
)

// SESService is the SES surface used by the dispatcher, defined for mocking.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type Dispatcher struct {
	client    SESService
	fromEmail string
	enabled   bool
	logger    logger.Logger
}

func NewDispatcher(client SESService, fromEmail string, enabled bool, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		client:    client,
		fromEmail: fromEmail,
		enabled:   enabled,
		logger:    log.WithFields(map[string]interface{}{"component": "notify"}),
	}
}

// SendApprovalLink emails the approver their single-use review link.
func (d *Dispatcher) SendApprovalLink(ctx context.Context, to, clientName, approvalLink, amount string) bool {
	subject, html := approvalLinkEmail(clientName, approvalLink, amount)
	return d.send(ctx, templateApprovalLink, to, subject, html)
}

// SendApprovalConfirmed emails the deal owner after an approval commits.
func (d *Dispatcher) SendApprovalConfirmed(ctx context.Context, to, clientName, amount, decidedAt string) bool {
	subject, html := approvalConfirmedEmail(clientName, amount, decidedAt)
	return d.send(ctx, templateApprovalConfirmed, to, subject, html)
}

// SendApprovalRejected emails the deal owner after a rejection commits.
func (d *Dispatcher) SendApprovalRejected(ctx context.Context, to, clientName, amount, decidedAt string) bool {
	subject, html := approvalRejectedEmail(clientName, amount, decidedAt)
	return d.send(ctx, templateApprovalRejected, to, subject, html)
}

func (d *Dispatcher) send(ctx context.Context, template, to, subject, html string) bool {
	if !d.enabled {
		d.logger.Debug("email disabled, skipping send", map[string]interface{}{
			"template": template,
			"to":       to,
		})
		metrics.NotificationsSent.WithLabelValues(template, "disabled").Inc()
		return false
	}

	_, err := d.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(html)},
			},
		},
		Source: aws.String(d.fromEmail),
	})
	if err != nil {
		d.logger.Error("email send failed", map[string]interface{}{
			"template": template,
			"to":       to,
			"error":    err,
		})
		metrics.NotificationsSent.WithLabelValues(template, "failed").Inc()
		return false
	}

	metrics.NotificationsSent.WithLabelValues(template, "sent").Inc()
	return true
}
