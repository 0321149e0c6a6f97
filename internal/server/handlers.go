// internal/server/handlers.go

// Package server exposes the approval workflow over HTTP. Owner endpoints
// live under /api/deals, approver endpoints under /api/approval; the approver
// side is authenticated solely by the single-use token in the request body.
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	apperrors "approval-service/internal/common/errors"
	"approval-service/internal/common/logger"
	"approval-service/internal/models"
	"approval-service/internal/token"
	"approval-service/internal/workflow"
)

// requests larger than this are rejected before JSON parsing.
const maxBodyBytes = 1 << 20

// Workflow is the application surface the handlers call into.
type Workflow interface {
	CreateDeal(ctx context.Context, in workflow.CreateDealInput, meta models.EventMeta) (*workflow.CreateDealResult, error)
	ViewDeal(ctx context.Context, rawToken string, meta models.EventMeta) (*workflow.DealView, error)
	ConfirmDeal(ctx context.Context, rawToken string, approve bool, meta models.EventMeta) (*models.Deal, error)
	ListDeals(ctx context.Context) ([]*models.Deal, error)
	GetDealWithTrail(ctx context.Context, dealID string) (*models.Deal, []*models.ApprovalEvent, error)
}

// Pinger reports storage liveness for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	workflow Workflow
	db       Pinger
	logger   logger.Logger
}

func NewHandler(wf Workflow, db Pinger, log logger.Logger) *Handler {
	return &Handler{
		workflow: wf,
		db:       db,
		logger:   log.WithFields(map[string]interface{}{"component": "http"}),
	}
}

func (h *Handler) CreateDeal(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		apperrors.WriteHTTP(w, apperrors.NewValidationError("unreadable request body"))
		return
	}
	if err := validateCreateDealBody(body); err != nil {
		apperrors.WriteHTTP(w, err)
		return
	}

	var in workflow.CreateDealInput
	if err := json.Unmarshal(body, &in); err != nil {
		apperrors.WriteHTTP(w, apperrors.NewValidationError("request body is not valid JSON"))
		return
	}
	in.OwnerEmail = r.Header.Get("X-Owner-Email")

	res, err := h.workflow.CreateDeal(r.Context(), in, token.MetaFromRequest(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) ListDeals(w http.ResponseWriter, r *http.Request) {
	deals, err := h.workflow.ListDeals(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if deals == nil {
		deals = []*models.Deal{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deals": deals})
}

func (h *Handler) GetDeal(w http.ResponseWriter, r *http.Request) {
	deal, events, err := h.workflow.GetDealWithTrail(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if events == nil {
		events = []*models.ApprovalEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"deal":   deal,
		"events": events,
	})
}

type tokenRequest struct {
	Token string `json:"token"`
}

// ApprovalDeal resolves the approver's token to the deal view. POST keeps the
// token out of URLs and access logs.
func (h *Handler) ApprovalDeal(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeBody(r, &req); err != nil {
		apperrors.WriteHTTP(w, err)
		return
	}
	if req.Token == "" {
		apperrors.WriteHTTP(w, apperrors.NewValidationError("token is required"))
		return
	}

	view, err := h.workflow.ViewDeal(r.Context(), req.Token, token.MetaFromRequest(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type confirmRequest struct {
	Token    string `json:"token"`
	Approved *bool  `json:"approved"`
}

func (h *Handler) ApprovalConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := decodeBody(r, &req); err != nil {
		apperrors.WriteHTTP(w, err)
		return
	}
	if req.Token == "" {
		apperrors.WriteHTTP(w, apperrors.NewValidationError("token is required"))
		return
	}
	if req.Approved == nil {
		apperrors.WriteHTTP(w, apperrors.NewValidationError("approved is required"))
		return
	}

	deal, err := h.workflow.ConfirmDeal(r.Context(), req.Token, *req.Approved, token.MetaFromRequest(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"dealId":  deal.ID,
		"status":  deal.Status,
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := apperrors.Normalize(err)
	if apperrors.HTTPStatus(stdErr.Code) >= http.StatusInternalServerError {
		h.logger.Error("request failed", map[string]interface{}{
			"path":  r.URL.Path,
			"code":  stdErr.Code,
			"error": err,
		})
	}
	apperrors.WriteHTTP(w, stdErr)
}

func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return apperrors.NewValidationError("request body is not valid JSON")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
