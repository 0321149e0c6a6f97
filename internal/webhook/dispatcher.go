// internal/webhook/dispatcher.go

// Package webhook delivers signed deal lifecycle events to registered
// callback URLs. Delivery is a side effect of an already committed state
// transition; a failed delivery is logged and counted but never rolls the
// transition back.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	commonhttp "approval-service/internal/common/http"
	"approval-service/internal/common/logger"
	"approval-service/internal/common/metrics"
	"approval-service/internal/models"
)

const DefaultMaxAttempts = 3

type Dispatcher struct {
	client        *commonhttp.Client
	signingSecret string
	maxAttempts   int
	sleep         func(time.Duration)
	logger        logger.Logger
}

// NewDispatcher creates a webhook dispatcher. signingSecret is the service
// wide fallback key; per-webhook secrets take precedence at delivery time.
func NewDispatcher(client *commonhttp.Client, signingSecret string, maxAttempts int, log logger.Logger) *Dispatcher {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Dispatcher{
		client:        client,
		signingSecret: signingSecret,
		maxAttempts:   maxAttempts,
		sleep:         time.Sleep,
		logger:        log.WithFields(map[string]interface{}{"component": "webhook"}),
	}
}

// Deliver POSTs the payload to url, retrying transport failures and server
// errors with exponential backoff (1s, 2s, 4s, ...). Client errors (4xx)
// stop immediately: the request itself is malformed and retries cannot
// succeed. Returns true on the first 2xx response.
func (d *Dispatcher) Deliver(ctx context.Context, url, secret string, payload models.WebhookPayload) bool {
	body, err := json.Marshal(payload)
	if err != nil {
		d.logger.Error("webhook payload not serializable", map[string]interface{}{
			"url":   url,
			"error": err,
		})
		metrics.WebhookDeliveries.WithLabelValues("failed").Inc()
		return false
	}

	signature := Signature(d.signingKey(secret), body)

	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		status, err := d.post(ctx, url, body, signature)

		if err == nil && status >= 200 && status < 300 {
			d.logger.Info("webhook delivered", map[string]interface{}{
				"url":     url,
				"event":   payload.Event,
				"attempt": attempt,
			})
			metrics.WebhookDeliveries.WithLabelValues("success").Inc()
			return true
		}

		if err == nil && status >= 400 && status < 500 {
			d.logger.Warn("webhook rejected by target, not retrying", map[string]interface{}{
				"url":    url,
				"event":  payload.Event,
				"status": status,
			})
			metrics.WebhookDeliveries.WithLabelValues("rejected").Inc()
			return false
		}

		fields := map[string]interface{}{
			"url":         url,
			"event":       payload.Event,
			"attempt":     attempt,
			"maxAttempts": d.maxAttempts,
		}
		if err != nil {
			fields["error"] = err
		} else {
			fields["status"] = status
		}
		d.logger.Warn("webhook delivery attempt failed", fields)

		if attempt < d.maxAttempts {
			d.sleep(backoff(attempt))
		}
	}

	d.logger.Error("webhook delivery exhausted all attempts", map[string]interface{}{
		"url":         url,
		"event":       payload.Event,
		"maxAttempts": d.maxAttempts,
	})
	metrics.WebhookDeliveries.WithLabelValues("failed").Inc()
	return false
}

func (d *Dispatcher) post(ctx context.Context, url string, body []byte, signature string) (int, error) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", signature)

	resp, err := d.client.DoWithContext(ctx, req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}

func (d *Dispatcher) signingKey(secret string) string {
	if secret != "" {
		return secret
	}
	return d.signingSecret
}

// backoff returns 2^(attempt-1) seconds.
func backoff(attempt int) time.Duration {
	return time.Duration(1<<(attempt-1)) * time.Second
}
