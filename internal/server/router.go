// internal/server/router.go
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"approval-service/internal/common/logger"
	"approval-service/internal/common/observability"
)

// NewRouter wires the handler routes with per-route instrumentation. obs may
// be nil in tests.
func NewRouter(h *Handler, obs *observability.Observability, log logger.Logger) http.Handler {
	mux := http.NewServeMux()

	route := func(pattern, name string, fn http.HandlerFunc) {
		mux.Handle(pattern, instrument(obs, log, name, fn))
	}

	route("POST /api/deals", "create_deal", h.CreateDeal)
	route("GET /api/deals", "list_deals", h.ListDeals)
	route("GET /api/deals/{id}", "get_deal", h.GetDeal)
	route("POST /api/approval/deal", "approval_deal", h.ApprovalDeal)
	route("POST /api/approval/confirm", "approval_confirm", h.ApprovalConfirm)

	mux.HandleFunc("GET /healthz", h.Health)
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}
