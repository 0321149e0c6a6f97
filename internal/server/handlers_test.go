// internal/server/handlers_test.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "approval-service/internal/common/errors"
	"approval-service/internal/common/logger"
	"approval-service/internal/models"
	"approval-service/internal/workflow"
)

// fakeWorkflow returns canned results and records the inputs it saw.
type fakeWorkflow struct {
	createIn   *workflow.CreateDealInput
	createMeta models.EventMeta
	viewToken  string
	confirmArg struct {
		token   string
		approve bool
	}

	createRes  *workflow.CreateDealResult
	viewRes    *workflow.DealView
	confirmRes *models.Deal
	deals      []*models.Deal
	trail      []*models.ApprovalEvent
	err        error
}

func (f *fakeWorkflow) CreateDeal(_ context.Context, in workflow.CreateDealInput, meta models.EventMeta) (*workflow.CreateDealResult, error) {
	f.createIn = &in
	f.createMeta = meta
	return f.createRes, f.err
}

func (f *fakeWorkflow) ViewDeal(_ context.Context, rawToken string, _ models.EventMeta) (*workflow.DealView, error) {
	f.viewToken = rawToken
	return f.viewRes, f.err
}

func (f *fakeWorkflow) ConfirmDeal(_ context.Context, rawToken string, approve bool, _ models.EventMeta) (*models.Deal, error) {
	f.confirmArg.token = rawToken
	f.confirmArg.approve = approve
	return f.confirmRes, f.err
}

func (f *fakeWorkflow) ListDeals(context.Context) ([]*models.Deal, error) {
	return f.deals, f.err
}

func (f *fakeWorkflow) GetDealWithTrail(_ context.Context, dealID string) (*models.Deal, []*models.ApprovalEvent, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	for _, d := range f.deals {
		if d.ID == dealID {
			return d, f.trail, nil
		}
	}
	return nil, nil, apperrors.NewDealNotFoundError(dealID)
}

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(context.Context) error { return f.err }

func newTestRouter(t *testing.T, wf Workflow, db Pinger) http.Handler {
	t.Helper()
	log := logger.NewTestLogger(t)
	return NewRouter(NewHandler(wf, db, log), nil, log)
}

func sampleDeal() *models.Deal {
	return &models.Deal{
		ID:         "deal-1",
		ClientName: "Acme GmbH",
		Currency:   "EUR",
		Total:      250000,
		Status:     models.StatusSent,
	}
}

func createDealBody() string {
	return `{
		"clientName": "Acme GmbH",
		"clientEmail": "cfo@acme.example",
		"currency": "EUR",
		"total": 250000,
		"items": [
			{"description": "Consulting", "quantity": 10, "unitPrice": 20000},
			{"description": "Support", "quantity": 1, "unitPrice": 50000}
		]
	}`
}

func TestCreateDealEndpoint(t *testing.T) {
	wf := &fakeWorkflow{
		createRes: &workflow.CreateDealResult{
			Deal:         sampleDeal(),
			ApprovalLink: "https://deals.example.com/approve/abc123",
			ExpiresAt:    time.Now().Add(14 * 24 * time.Hour),
		},
	}
	router := newTestRouter(t, wf, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/deals", strings.NewReader(createDealBody()))
	req.Header.Set("X-Owner-Email", "sales@owner.example")
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		ApprovalLink string `json:"approvalLink"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "https://deals.example.com/approve/abc123", body.ApprovalLink)

	require.NotNil(t, wf.createIn)
	assert.Equal(t, "Acme GmbH", wf.createIn.ClientName)
	assert.Equal(t, "sales@owner.example", wf.createIn.OwnerEmail)
	assert.Equal(t, "203.0.113.7", wf.createMeta.IP)
}

func TestCreateDealEndpointRejectsBadBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{"clientName":`},
		{"missing client name", `{"total": 100, "items": [{"description": "x", "quantity": 1, "unitPrice": 100}]}`},
		{"zero total", `{"clientName": "Acme", "total": 0, "items": [{"description": "x", "quantity": 1, "unitPrice": 100}]}`},
		{"empty items", `{"clientName": "Acme", "total": 100, "items": []}`},
		{"lowercase currency", `{"clientName": "Acme", "currency": "eur", "total": 100, "items": [{"description": "x", "quantity": 1, "unitPrice": 100}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf := &fakeWorkflow{}
			router := newTestRouter(t, wf, nil)

			req := httptest.NewRequest(http.MethodPost, "/api/deals", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Nil(t, wf.createIn, "workflow must not be reached")
			assert.Contains(t, rec.Body.String(), "VALIDATION")
		})
	}
}

func TestListDealsEndpoint(t *testing.T) {
	t.Run("empty list renders as array", func(t *testing.T) {
		router := newTestRouter(t, &fakeWorkflow{}, nil)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/deals", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"deals": []}`, rec.Body.String())
	})

	t.Run("returns deals", func(t *testing.T) {
		router := newTestRouter(t, &fakeWorkflow{deals: []*models.Deal{sampleDeal()}}, nil)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/deals", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "deal-1")
	})
}

func TestGetDealEndpoint(t *testing.T) {
	wf := &fakeWorkflow{
		deals: []*models.Deal{sampleDeal()},
		trail: []*models.ApprovalEvent{
			{ID: "ev-1", DealID: "deal-1", Type: models.EventSent},
		},
	}
	router := newTestRouter(t, wf, nil)

	t.Run("found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/deals/deal-1", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Deal   *models.Deal            `json:"deal"`
			Events []*models.ApprovalEvent `json:"events"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "deal-1", body.Deal.ID)
		require.Len(t, body.Events, 1)
		assert.Equal(t, models.EventSent, body.Events[0].Type)
	})

	t.Run("missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/deals/nope", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestApprovalDealEndpoint(t *testing.T) {
	t.Run("resolves token", func(t *testing.T) {
		wf := &fakeWorkflow{
			viewRes: &workflow.DealView{
				ID:         "deal-1",
				ClientName: "Acme GmbH",
				Currency:   "EUR",
				Total:      250000,
				Status:     models.StatusSent,
				ExpiresAt:  time.Now().Add(time.Hour),
			},
		}
		router := newTestRouter(t, wf, nil)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/approval/deal",
			strings.NewReader(`{"token": "abc123"}`)))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "abc123", wf.viewToken)
		assert.Contains(t, rec.Body.String(), "Acme GmbH")
	})

	t.Run("missing token", func(t *testing.T) {
		router := newTestRouter(t, &fakeWorkflow{}, nil)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/approval/deal",
			strings.NewReader(`{}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("status mapping", func(t *testing.T) {
		tests := []struct {
			name string
			err  error
			want int
		}{
			{"unknown token", apperrors.NewTokenNotFoundError(), http.StatusNotFound},
			{"used token", apperrors.NewAlreadyUsedError(), http.StatusConflict},
			{"expired token", apperrors.NewExpiredError(), http.StatusGone},
			{"storage down", apperrors.NewStorageUnavailableError(errors.New("conn refused")), http.StatusServiceUnavailable},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				router := newTestRouter(t, &fakeWorkflow{err: tt.err}, nil)

				rec := httptest.NewRecorder()
				router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/approval/deal",
					strings.NewReader(`{"token": "abc123"}`)))

				assert.Equal(t, tt.want, rec.Code)
			})
		}
	})
}

func TestApprovalConfirmEndpoint(t *testing.T) {
	t.Run("approve", func(t *testing.T) {
		deal := sampleDeal()
		deal.Status = models.StatusApproved
		wf := &fakeWorkflow{confirmRes: deal}
		router := newTestRouter(t, wf, nil)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/approval/confirm",
			strings.NewReader(`{"token": "abc123", "approved": true}`)))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"success": true, "dealId": "deal-1", "status": "APPROVED"}`, rec.Body.String())
		assert.True(t, wf.confirmArg.approve)
	})

	t.Run("reject", func(t *testing.T) {
		deal := sampleDeal()
		deal.Status = models.StatusRejected
		wf := &fakeWorkflow{confirmRes: deal}
		router := newTestRouter(t, wf, nil)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/approval/confirm",
			strings.NewReader(`{"token": "abc123", "approved": false}`)))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, wf.confirmArg.approve)
	})

	t.Run("missing approved flag", func(t *testing.T) {
		router := newTestRouter(t, &fakeWorkflow{}, nil)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/approval/confirm",
			strings.NewReader(`{"token": "abc123"}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHealthEndpoint(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		router := newTestRouter(t, &fakeWorkflow{}, &fakePinger{})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("degraded when storage is down", func(t *testing.T) {
		router := newTestRouter(t, &fakeWorkflow{}, &fakePinger{err: errors.New("conn refused")})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
