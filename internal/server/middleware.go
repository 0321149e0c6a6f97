// internal/server/middleware.go
package server

import (
	"net/http"
	"time"

	"approval-service/internal/common/logger"
	"approval-service/internal/common/observability"
)

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument logs each request and records the per-route counters and
// durations. Route names are fixed labels, never raw paths, so path
// parameters cannot explode metric cardinality.
func instrument(obs *observability.Observability, log logger.Logger, route string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next(rec, r)

		duration := time.Since(start)
		if obs != nil {
			obs.RecordRequest(r.Context(), route, rec.status)
			obs.RecordRequestDuration(r.Context(), route, duration)
		}
		log.Info("request handled", map[string]interface{}{
			"route":    route,
			"method":   r.Method,
			"status":   rec.status,
			"duration": duration.String(),
		})
	})
}
