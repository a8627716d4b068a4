package httptransport

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"beacon/pkg/platform/httputil"
)

// HealthChecker reports readiness of a backing resource.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// NewRouter assembles the full HTTP surface: the variant endpoint behind
// the identity middleware, plus health and metrics.
func NewRouter(h *Handler, identity func(http.Handler) http.Handler, checks map[string]HealthChecker) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(RequestTime)
	r.Use(identity)

	h.Register(r)

	r.Get("/healthz", handleHealth(checks))
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func handleHealth(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check.Health(r.Context()); err != nil {
				status[name] = err.Error()
				status["status"] = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			status[name] = "ok"
		}
		httputil.WriteJSON(w, code, status)
	}
}
