// internal/workflow/service.go

// Package workflow implements the deal approval lifecycle: snapshot creation
// with a single-use approval token, token-gated viewing, and the one-shot
// approve/reject decision. Side effects (emails, webhooks, audit mirroring)
// run as post-commit hooks and never fail the operation that triggered them.
package workflow

import (
	"context"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	apperrors "approval-service/internal/common/errors"
	"approval-service/internal/common/logger"
	"approval-service/internal/common/metrics"
	"approval-service/internal/models"
	"approval-service/internal/token"
)

// Store is the persistence surface the workflow runs against.
type Store interface {
	CreateDeal(ctx context.Context, deal *models.Deal) error
	GetDeal(ctx context.Context, dealID string) (*models.Deal, error)
	ListDeals(ctx context.Context) ([]*models.Deal, error)
	CreateToken(ctx context.Context, tok *models.ApprovalToken) error
	GetTokenByDigest(ctx context.Context, digest string) (*models.ApprovalToken, error)
	AppendEvent(ctx context.Context, event *models.ApprovalEvent) error
	ListEvents(ctx context.Context, dealID string) ([]*models.ApprovalEvent, error)
	CreateWebhookConfig(ctx context.Context, cfg *models.WebhookConfig) error
	ActiveWebhookConfigs(ctx context.Context, dealID string) ([]*models.WebhookConfig, error)
	CommitDecision(ctx context.Context, tokenID, dealID string, status models.DealStatus, event *models.ApprovalEvent, usedAt time.Time) (bool, error)
}

// Notifier sends the workflow emails. Implementations report delivery as a
// boolean; the workflow never retries email.
type Notifier interface {
	SendApprovalLink(ctx context.Context, to, clientName, approvalLink, amount string) bool
	SendApprovalConfirmed(ctx context.Context, to, clientName, amount, decidedAt string) bool
	SendApprovalRejected(ctx context.Context, to, clientName, amount, decidedAt string) bool
}

// WebhookSender delivers one signed payload to one endpoint, retrying
// internally.
type WebhookSender interface {
	Deliver(ctx context.Context, url, secret string, payload models.WebhookPayload) bool
}

// Cache is an advisory read cache for deal snapshots. Misses and errors are
// equivalent; the store remains authoritative.
type Cache interface {
	Get(ctx context.Context, dealID string) (*models.Deal, bool)
	Set(ctx context.Context, deal *models.Deal)
	Invalidate(ctx context.Context, dealID string)
}

// SideEffect is the context handed to post-commit hooks after a lifecycle
// event has been durably recorded.
type SideEffect struct {
	Event        models.EventType
	Deal         *models.Deal
	Record       *models.ApprovalEvent
	ApprovalLink string
	OwnerEmail   string
}

// Hook is a post-commit side effect. Hooks run in registration order; a
// failing hook is logged and skipped, never rolled back into the operation.
type Hook interface {
	Name() string
	Run(ctx context.Context, fx SideEffect) error
}

// Config carries the workflow-level settings that are not dependencies.
type Config struct {
	FrontendBaseURL string
	OwnerEmail      string
}

// Service orchestrates the approval lifecycle over a Store, with optional
// cache and registered side-effect hooks.
type Service struct {
	store  Store
	cache  Cache
	hooks  []Hook
	cfg    Config
	logger logger.Logger

	// now is swapped in tests to pin expiry arithmetic.
	now func() time.Time
}

func NewService(store Store, cfg Config, log logger.Logger) *Service {
	return &Service{
		store:  store,
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"component": "workflow"}),
		now:    time.Now,
	}
}

// SetCache attaches an advisory deal snapshot cache.
func (s *Service) SetCache(c Cache) {
	s.cache = c
}

// Use registers a post-commit hook. Not safe to call after the service
// starts handling requests.
func (s *Service) Use(h Hook) {
	s.hooks = append(s.hooks, h)
}

// UseNotifier registers the built-in email hook backed by the given Notifier.
func (s *Service) UseNotifier(n Notifier) {
	s.Use(&emailHook{notifier: n})
}

// UseWebhooks registers the built-in webhook hook backed by the given sender.
func (s *Service) UseWebhooks(sender WebhookSender) {
	s.Use(&webhookHook{store: s.store, sender: sender})
}

// CreateDealInput is the validated request to snapshot a deal and issue its
// approval token.
type CreateDealInput struct {
	ClientName    string            `json:"clientName"`
	ClientEmail   string            `json:"clientEmail"`
	OwnerEmail    string            `json:"-"`
	Currency      string            `json:"currency"`
	Total         int64             `json:"total"`
	Items         []models.DealItem `json:"items"`
	WebhookURL    string            `json:"webhookUrl"`
	WebhookSecret string            `json:"webhookSecret"`
}

// CreateDealResult returns the stored snapshot plus the one-time approval
// link. The raw token appears here and nowhere else; it is not recoverable
// after this response.
type CreateDealResult struct {
	Deal         *models.Deal `json:"deal"`
	Token        string       `json:"token"`
	ApprovalLink string       `json:"approvalLink"`
	ExpiresAt    time.Time    `json:"expiresAt"`
}

// DealView is what a token holder sees when opening their approval link.
// Owner-only fields (owner email, client email) are deliberately absent.
type DealView struct {
	ID         string            `json:"id"`
	ClientName string            `json:"clientName"`
	Currency   string            `json:"currency"`
	Total      int64             `json:"total"`
	Items      []models.DealItem `json:"items"`
	Status     models.DealStatus `json:"status"`
	CreatedAt  time.Time         `json:"createdAt"`
	ExpiresAt  time.Time         `json:"expiresAt"`
}

// CreateDeal snapshots a deal, issues its single-use token, records the SENT
// event, and optionally registers a webhook for the deal. The raw token is
// embedded in the returned approval link and is not recoverable afterwards.
func (s *Service) CreateDeal(ctx context.Context, in CreateDealInput, meta models.EventMeta) (*CreateDealResult, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	currency := in.Currency
	if currency == "" {
		currency = "EUR"
	}

	deal := &models.Deal{
		ID:          uuid.NewString(),
		ClientName:  strings.TrimSpace(in.ClientName),
		ClientEmail: strings.TrimSpace(in.ClientEmail),
		OwnerEmail:  strings.TrimSpace(in.OwnerEmail),
		Currency:    currency,
		Total:       in.Total,
		Items:       in.Items,
		Status:      models.StatusSent,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateDeal(ctx, deal); err != nil {
		return nil, err
	}

	secret, err := token.Generate()
	if err != nil {
		return nil, err
	}
	tok := &models.ApprovalToken{
		ID:        uuid.NewString(),
		DealID:    deal.ID,
		TokenHash: token.Hash(secret),
		ExpiresAt: token.ExpirationFrom(now),
		CreatedAt: now,
	}
	if err := s.store.CreateToken(ctx, tok); err != nil {
		return nil, err
	}

	event := &models.ApprovalEvent{
		ID:        uuid.NewString(),
		DealID:    deal.ID,
		Type:      models.EventSent,
		Meta:      meta,
		CreatedAt: now,
	}
	if err := s.store.AppendEvent(ctx, event); err != nil {
		return nil, err
	}

	if in.WebhookURL != "" {
		cfg := &models.WebhookConfig{
			ID:        uuid.NewString(),
			DealID:    deal.ID,
			URL:       in.WebhookURL,
			Events:    []string{string(models.EventSent), string(models.EventApproved), string(models.EventRejected)},
			Secret:    in.WebhookSecret,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.store.CreateWebhookConfig(ctx, cfg); err != nil {
			return nil, err
		}
	}

	if s.cache != nil {
		s.cache.Set(ctx, deal)
	}

	link := s.approvalLink(secret)
	s.runSideEffects(ctx, SideEffect{
		Event:        models.EventSent,
		Deal:         deal,
		Record:       event,
		ApprovalLink: link,
		OwnerEmail:   s.ownerEmailFor(deal),
	})

	metrics.DealsCreated.Inc()
	s.logger.Info("deal created", map[string]interface{}{
		"dealId":    deal.ID,
		"total":     deal.Total,
		"currency":  deal.Currency,
		"expiresAt": tok.ExpiresAt,
	})

	return &CreateDealResult{Deal: deal, Token: secret, ApprovalLink: link, ExpiresAt: tok.ExpiresAt}, nil
}

// ViewDeal resolves an approval token to its deal snapshot. Viewing does not
// consume the token; every successful view appends a VIEWED event.
func (s *Service) ViewDeal(ctx context.Context, rawToken string, meta models.EventMeta) (*DealView, error) {
	tok, err := s.resolveToken(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	deal, err := s.getDealCached(ctx, tok.DealID)
	if err != nil {
		return nil, err
	}

	event := &models.ApprovalEvent{
		ID:        uuid.NewString(),
		DealID:    deal.ID,
		Type:      models.EventViewed,
		Meta:      meta,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.AppendEvent(ctx, event); err != nil {
		return nil, err
	}

	s.runSideEffects(ctx, SideEffect{
		Event:      models.EventViewed,
		Deal:       deal,
		Record:     event,
		OwnerEmail: s.ownerEmailFor(deal),
	})

	return &DealView{
		ID:         deal.ID,
		ClientName: deal.ClientName,
		Currency:   deal.Currency,
		Total:      deal.Total,
		Items:      deal.Items,
		Status:     deal.Status,
		CreatedAt:  deal.CreatedAt,
		ExpiresAt:  tok.ExpiresAt,
	}, nil
}

// ConfirmDeal consumes the token and commits the decision. The token
// consumption, status transition, and audit event land in one transaction;
// of two concurrent confirmations exactly one wins and the other gets
// ALREADY_USED regardless of which decision it carried.
func (s *Service) ConfirmDeal(ctx context.Context, rawToken string, approve bool, meta models.EventMeta) (*models.Deal, error) {
	tok, err := s.resolveToken(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	status := models.StatusRejected
	eventType := models.EventRejected
	if approve {
		status = models.StatusApproved
		eventType = models.EventApproved
	}

	now := s.now().UTC()
	event := &models.ApprovalEvent{
		ID:        uuid.NewString(),
		DealID:    tok.DealID,
		Type:      eventType,
		Meta:      meta,
		CreatedAt: now,
	}

	ok, err := s.store.CommitDecision(ctx, tok.ID, tok.DealID, status, event, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		metrics.TokenRejections.WithLabelValues("already_used").Inc()
		return nil, apperrors.NewAlreadyUsedError()
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, tok.DealID)
	}

	deal, err := s.store.GetDeal(ctx, tok.DealID)
	if err != nil {
		return nil, err
	}

	metrics.ApprovalDecisions.WithLabelValues(string(status)).Inc()
	s.logger.Info("decision committed", map[string]interface{}{
		"dealId": deal.ID,
		"status": deal.Status,
	})

	s.runSideEffects(ctx, SideEffect{
		Event:      eventType,
		Deal:       deal,
		Record:     event,
		OwnerEmail: s.ownerEmailFor(deal),
	})

	return deal, nil
}

// ListDeals returns all deal snapshots, newest first.
func (s *Service) ListDeals(ctx context.Context) ([]*models.Deal, error) {
	return s.store.ListDeals(ctx)
}

// GetDealWithTrail returns a deal and its full audit trail in append order.
func (s *Service) GetDealWithTrail(ctx context.Context, dealID string) (*models.Deal, []*models.ApprovalEvent, error) {
	deal, err := s.store.GetDeal(ctx, dealID)
	if err != nil {
		return nil, nil, err
	}
	events, err := s.store.ListEvents(ctx, dealID)
	if err != nil {
		return nil, nil, err
	}
	return deal, events, nil
}

// resolveToken looks up the raw secret by digest and applies the status
// checks in fixed order: existence, expiry, reuse.
func (s *Service) resolveToken(ctx context.Context, rawToken string) (*models.ApprovalToken, error) {
	tok, err := s.store.GetTokenByDigest(ctx, token.Hash(rawToken))
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
			metrics.TokenRejections.WithLabelValues("not_found").Inc()
		}
		return nil, err
	}
	if !token.Verify(rawToken, tok.TokenHash) {
		metrics.TokenRejections.WithLabelValues("not_found").Inc()
		return nil, apperrors.NewTokenNotFoundError()
	}
	// Expiry outranks reuse: a lapsed token reads as EXPIRED whether or
	// not it was ever consumed.
	if token.IsExpired(tok.ExpiresAt, s.now()) {
		metrics.TokenRejections.WithLabelValues("expired").Inc()
		return nil, apperrors.NewExpiredError()
	}
	if tok.UsedAt != nil {
		metrics.TokenRejections.WithLabelValues("already_used").Inc()
		return nil, apperrors.NewAlreadyUsedError()
	}
	return tok, nil
}

func (s *Service) getDealCached(ctx context.Context, dealID string) (*models.Deal, error) {
	if s.cache != nil {
		if deal, ok := s.cache.Get(ctx, dealID); ok {
			return deal, nil
		}
	}
	deal, err := s.store.GetDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, deal)
	}
	return deal, nil
}

// ownerEmailFor prefers the identity captured at creation over the
// service-wide owner address.
func (s *Service) ownerEmailFor(deal *models.Deal) string {
	if deal.OwnerEmail != "" {
		return deal.OwnerEmail
	}
	return s.cfg.OwnerEmail
}

func (s *Service) approvalLink(secret string) string {
	return strings.TrimRight(s.cfg.FrontendBaseURL, "/") + "/approve/" + secret
}

func (s *Service) runSideEffects(ctx context.Context, fx SideEffect) {
	for _, h := range s.hooks {
		if err := h.Run(ctx, fx); err != nil {
			s.logger.Warn("post-commit hook failed", map[string]interface{}{
				"hook":   h.Name(),
				"event":  fx.Event,
				"dealId": fx.Deal.ID,
				"error":  err,
			})
		}
	}
}

func validateInput(in CreateDealInput) error {
	if strings.TrimSpace(in.ClientName) == "" {
		return apperrors.NewValidationError("clientName is required")
	}
	if in.Currency != "" && !validCurrency(in.Currency) {
		return apperrors.NewValidationError("currency must be a 3-letter ISO code")
	}
	if len(in.Items) == 0 {
		return apperrors.NewValidationError("at least one line item is required")
	}
	for _, it := range in.Items {
		if strings.TrimSpace(it.Description) == "" {
			return apperrors.NewValidationError("item description is required")
		}
		if it.Quantity <= 0 {
			return apperrors.NewValidationError("item quantity must be positive")
		}
		if it.UnitPrice <= 0 {
			return apperrors.NewValidationError("item unit price must be positive")
		}
	}
	if in.Total <= 0 {
		return apperrors.NewValidationError("total must be positive")
	}
	if in.Total != models.ItemsTotal(in.Items) {
		return apperrors.NewValidationError("total does not match the sum of line items")
	}
	if in.WebhookURL != "" {
		u, err := url.Parse(in.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return apperrors.NewValidationError("webhookUrl must be a valid http(s) URL")
		}
	}
	return nil
}

func validCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}
