// internal/store/postgres/store.go

// Package postgres persists deals, tokens, audit events and webhook configs.
// Deals, tokens and events are never deleted; the audit trail depends on it.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	apperrors "approval-service/internal/common/errors"
	"approval-service/internal/models"
)

// Store implements the workflow persistence contract on PostgreSQL.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// ==========================
// Deals
// ==========================

func (s *Store) CreateDeal(ctx context.Context, deal *models.Deal) error {
	itemsJSON, err := json.Marshal(deal.Items)
	if err != nil {
		return apperrors.NewValidationError("items not serializable: " + err.Error())
	}

	query := `
		INSERT INTO deal_snapshots
		    (id, client_name, client_email, owner_email, currency, total, items_json, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = s.db.ExecContext(ctx, query,
		deal.ID,
		deal.ClientName,
		nullString(deal.ClientEmail),
		nullString(deal.OwnerEmail),
		deal.Currency,
		deal.Total,
		itemsJSON,
		string(deal.Status),
		deal.CreatedAt,
		deal.UpdatedAt,
	)
	if err != nil {
		return apperrors.NewStorageUnavailableError(err)
	}
	return nil
}

func (s *Store) GetDeal(ctx context.Context, dealID string) (*models.Deal, error) {
	query := `
		SELECT id, client_name, client_email, owner_email, currency, total, items_json, status, created_at, updated_at
		FROM deal_snapshots
		WHERE id = $1
	`
	row := s.db.QueryRowContext(ctx, query, dealID)

	deal, err := scanDeal(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewDealNotFoundError(dealID)
	}
	if err != nil {
		return nil, apperrors.NewStorageUnavailableError(err)
	}
	return deal, nil
}

func (s *Store) ListDeals(ctx context.Context) ([]*models.Deal, error) {
	query := `
		SELECT id, client_name, client_email, owner_email, currency, total, items_json, status, created_at, updated_at
		FROM deal_snapshots
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.NewStorageUnavailableError(err)
	}
	defer rows.Close()

	var deals []*models.Deal
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, apperrors.NewStorageUnavailableError(err)
		}
		deals = append(deals, deal)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageUnavailableError(err)
	}
	return deals, nil
}

// ==========================
// Tokens
// ==========================

func (s *Store) CreateToken(ctx context.Context, tok *models.ApprovalToken) error {
	query := `
		INSERT INTO approval_tokens (id, deal_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query,
		tok.ID, tok.DealID, tok.TokenHash, tok.ExpiresAt, tok.CreatedAt,
	)
	if err != nil {
		return apperrors.NewStorageUnavailableError(err)
	}
	return nil
}

func (s *Store) GetTokenByDigest(ctx context.Context, digest string) (*models.ApprovalToken, error) {
	query := `
		SELECT id, deal_id, token_hash, expires_at, used_at, created_at
		FROM approval_tokens
		WHERE token_hash = $1
	`
	row := s.db.QueryRowContext(ctx, query, digest)

	var tok models.ApprovalToken
	var usedAt sql.NullTime
	err := row.Scan(&tok.ID, &tok.DealID, &tok.TokenHash, &tok.ExpiresAt, &usedAt, &tok.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewTokenNotFoundError()
	}
	if err != nil {
		return nil, apperrors.NewStorageUnavailableError(err)
	}
	if usedAt.Valid {
		t := usedAt.Time
		tok.UsedAt = &t
	}
	return &tok, nil
}

// CommitDecision consumes the token and records the decision as one
// transaction: mark the token used (guarded by used_at IS NULL), move the
// deal to its terminal status, and append the audit event. The CAS guard
// makes concurrent confirmations race safely; the loser observes zero rows
// and gets (false, nil). A deal is never APPROVED/REJECTED with its token
// still unused, and vice versa.
func (s *Store) CommitDecision(ctx context.Context, tokenID, dealID string, status models.DealStatus, event *models.ApprovalEvent, usedAt time.Time) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, apperrors.NewStorageUnavailableError(err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE approval_tokens SET used_at = $1 WHERE id = $2 AND used_at IS NULL`,
		usedAt, tokenID,
	)
	if err != nil {
		return false, apperrors.NewStorageUnavailableError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, apperrors.NewStorageUnavailableError(err)
	}
	if affected == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE deal_snapshots SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), usedAt, dealID,
	); err != nil {
		return false, apperrors.NewStorageUnavailableError(err)
	}

	metaJSON, err := json.Marshal(event.Meta)
	if err != nil {
		return false, apperrors.NewStorageUnavailableError(err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO approval_events (id, deal_id, type, meta_json, created_at) VALUES ($1, $2, $3, $4, $5)`,
		event.ID, event.DealID, string(event.Type), metaJSON, event.CreatedAt,
	); err != nil {
		return false, apperrors.NewStorageUnavailableError(err)
	}

	if err := tx.Commit(); err != nil {
		return false, apperrors.NewStorageUnavailableError(err)
	}
	return true, nil
}

// ==========================
// Events
// ==========================

func (s *Store) AppendEvent(ctx context.Context, event *models.ApprovalEvent) error {
	metaJSON, err := json.Marshal(event.Meta)
	if err != nil {
		return apperrors.NewStorageUnavailableError(err)
	}

	query := `
		INSERT INTO approval_events (id, deal_id, type, meta_json, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = s.db.ExecContext(ctx, query,
		event.ID, event.DealID, string(event.Type), metaJSON, event.CreatedAt,
	)
	if err != nil {
		return apperrors.NewStorageUnavailableError(err)
	}
	return nil
}

func (s *Store) ListEvents(ctx context.Context, dealID string) ([]*models.ApprovalEvent, error) {
	query := `
		SELECT id, deal_id, type, meta_json, created_at
		FROM approval_events
		WHERE deal_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, dealID)
	if err != nil {
		return nil, apperrors.NewStorageUnavailableError(err)
	}
	defer rows.Close()

	var events []*models.ApprovalEvent
	for rows.Next() {
		var ev models.ApprovalEvent
		var evType string
		var metaJSON []byte
		if err := rows.Scan(&ev.ID, &ev.DealID, &evType, &metaJSON, &ev.CreatedAt); err != nil {
			return nil, apperrors.NewStorageUnavailableError(err)
		}
		ev.Type = models.EventType(evType)
		if len(metaJSON) > 0 {
			_ = json.Unmarshal(metaJSON, &ev.Meta)
		}
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageUnavailableError(err)
	}
	return events, nil
}

// ==========================
// Webhook configs
// ==========================

func (s *Store) CreateWebhookConfig(ctx context.Context, cfg *models.WebhookConfig) error {
	query := `
		INSERT INTO webhook_configs (id, deal_id, url, events, secret, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		cfg.ID,
		nullString(cfg.DealID),
		cfg.URL,
		strings.Join(cfg.Events, ","),
		nullString(cfg.Secret),
		cfg.IsActive,
		cfg.CreatedAt,
		cfg.UpdatedAt,
	)
	if err != nil {
		return apperrors.NewStorageUnavailableError(err)
	}
	return nil
}

// ActiveWebhookConfigs returns active configs scoped to the deal plus
// globally scoped ones.
func (s *Store) ActiveWebhookConfigs(ctx context.Context, dealID string) ([]*models.WebhookConfig, error) {
	query := `
		SELECT id, deal_id, url, events, secret, is_active, created_at, updated_at
		FROM webhook_configs
		WHERE is_active = TRUE AND (deal_id = $1 OR deal_id IS NULL)
	`
	rows, err := s.db.QueryContext(ctx, query, dealID)
	if err != nil {
		return nil, apperrors.NewStorageUnavailableError(err)
	}
	defer rows.Close()

	var configs []*models.WebhookConfig
	for rows.Next() {
		var cfg models.WebhookConfig
		var cfgDealID, secret sql.NullString
		var events string
		if err := rows.Scan(&cfg.ID, &cfgDealID, &cfg.URL, &events, &secret, &cfg.IsActive, &cfg.CreatedAt, &cfg.UpdatedAt); err != nil {
			return nil, apperrors.NewStorageUnavailableError(err)
		}
		cfg.DealID = cfgDealID.String
		cfg.Secret = secret.String
		cfg.Events = strings.Split(events, ",")
		configs = append(configs, &cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageUnavailableError(err)
	}
	return configs, nil
}

// ==========================
// Helpers
// ==========================

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDeal(row rowScanner) (*models.Deal, error) {
	var deal models.Deal
	var clientEmail, ownerEmail sql.NullString
	var itemsJSON []byte
	var status string

	err := row.Scan(
		&deal.ID,
		&deal.ClientName,
		&clientEmail,
		&ownerEmail,
		&deal.Currency,
		&deal.Total,
		&itemsJSON,
		&status,
		&deal.CreatedAt,
		&deal.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	deal.ClientEmail = clientEmail.String
	deal.OwnerEmail = ownerEmail.String
	deal.Status = models.DealStatus(status)
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &deal.Items); err != nil {
			return nil, err
		}
	}
	return &deal, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
