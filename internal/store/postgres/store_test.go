// internal/store/postgres/store_test.go
package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "approval-service/internal/common/errors"
	"approval-service/internal/models"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestCreateDeal(t *testing.T) {
	store, mock := newMockStore(t)

	deal := &models.Deal{
		ID:         "deal-1",
		ClientName: "Acme GmbH",
		Currency:   "EUR",
		Total:      1000,
		Items: []models.DealItem{
			{Description: "Consulting", Quantity: 2, UnitPrice: 500},
		},
		Status:    models.StatusSent,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO deal_snapshots")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.CreateDeal(context.Background(), deal)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDeal(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		store, mock := newMockStore(t)
		now := time.Now().UTC()

		rows := sqlmock.NewRows([]string{
			"id", "client_name", "client_email", "owner_email", "currency", "total", "items_json", "status", "created_at", "updated_at",
		}).AddRow("deal-1", "Acme GmbH", "billing@acme.test", "sales@owner.test", "EUR", 1000,
			[]byte(`[{"description":"Consulting","quantity":2,"unitPrice":500}]`), "SENT", now, now)

		mock.ExpectQuery(regexp.QuoteMeta("FROM deal_snapshots")).
			WithArgs("deal-1").
			WillReturnRows(rows)

		deal, err := store.GetDeal(context.Background(), "deal-1")
		require.NoError(t, err)
		assert.Equal(t, "Acme GmbH", deal.ClientName)
		assert.Equal(t, models.StatusSent, deal.Status)
		assert.Len(t, deal.Items, 1)
		assert.Equal(t, int64(500), deal.Items[0].UnitPrice)
	})

	t.Run("missing deal maps to NOT_FOUND", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectQuery(regexp.QuoteMeta("FROM deal_snapshots")).
			WithArgs("nope").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := store.GetDeal(context.Background(), "nope")
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
	})
}

func TestGetTokenByDigest(t *testing.T) {
	t.Run("unknown digest maps to NOT_FOUND", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectQuery(regexp.QuoteMeta("FROM approval_tokens")).
			WithArgs("digest").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := store.GetTokenByDigest(context.Background(), "digest")
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
	})

	t.Run("used token carries its usedAt", func(t *testing.T) {
		store, mock := newMockStore(t)
		now := time.Now().UTC()

		rows := sqlmock.NewRows([]string{"id", "deal_id", "token_hash", "expires_at", "used_at", "created_at"}).
			AddRow("tok-1", "deal-1", "digest", now.Add(24*time.Hour), now, now)

		mock.ExpectQuery(regexp.QuoteMeta("FROM approval_tokens")).
			WithArgs("digest").
			WillReturnRows(rows)

		tok, err := store.GetTokenByDigest(context.Background(), "digest")
		require.NoError(t, err)
		require.NotNil(t, tok.UsedAt)
		assert.False(t, tok.Consumable(now))
	})
}

func TestCommitDecision(t *testing.T) {
	event := &models.ApprovalEvent{
		ID:        "ev-1",
		DealID:    "deal-1",
		Type:      models.EventApproved,
		Meta:      models.EventMeta{IP: "203.0.113.9", UserAgent: "curl"},
		CreatedAt: time.Now().UTC(),
	}
	usedAt := time.Now().UTC()

	t.Run("commits token, status and event together", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE approval_tokens SET used_at")).
			WithArgs(usedAt, "tok-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE deal_snapshots SET status")).
			WithArgs("APPROVED", usedAt, "deal-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO approval_events")).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		committed, err := store.CommitDecision(context.Background(), "tok-1", "deal-1", models.StatusApproved, event, usedAt)
		require.NoError(t, err)
		assert.True(t, committed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("losing the CAS race rolls back and reports not committed", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE approval_tokens SET used_at")).
			WithArgs(usedAt, "tok-1").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		committed, err := store.CommitDecision(context.Background(), "tok-1", "deal-1", models.StatusApproved, event, usedAt)
		require.NoError(t, err)
		assert.False(t, committed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestActiveWebhookConfigs(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "deal_id", "url", "events", "secret", "is_active", "created_at", "updated_at"}).
		AddRow("wh-1", "deal-1", "https://example.test/hook", "SENT,APPROVED,REJECTED", "s3cret", true, now, now).
		AddRow("wh-2", nil, "https://global.test/hook", "APPROVED", nil, true, now, now)

	mock.ExpectQuery(regexp.QuoteMeta("FROM webhook_configs")).
		WithArgs("deal-1").
		WillReturnRows(rows)

	configs, err := store.ActiveWebhookConfigs(context.Background(), "deal-1")
	require.NoError(t, err)
	require.Len(t, configs, 2)
	assert.True(t, configs[0].SubscribedTo(models.EventSent))
	assert.False(t, configs[1].SubscribedTo(models.EventSent))
	assert.Empty(t, configs[1].DealID)
	assert.Empty(t, configs[1].Secret)
}
