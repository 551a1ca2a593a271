package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"donorhub/internal/platform/metrics"
	"donorhub/internal/platform/middleware"
	"donorhub/pkg/platform/httputil"
	"donorhub/pkg/platform/middleware/metadata"
	"donorhub/pkg/platform/middleware/requesttime"
	"donorhub/pkg/platform/middleware/token"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Registrar mounts a group of routes.
type Registrar interface {
	Register(r chi.Router)
}

// Deps are the pieces the root router is assembled from.
type Deps struct {
	Pages        Registrar
	Metrics      *metrics.Metrics
	Gatherer     prometheus.Gatherer
	MetricsToken string
	Health       map[string]HealthCheck
	Logger       *slog.Logger

	// TrustedProxies may set the client address through forwarding headers.
	TrustedProxies metadata.TrustedProxies
}

// NewRouter wires the shared middleware chain, operational endpoints, and the
// page tree.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.RequestID)
	r.Use(metadata.ClientMetadata(d.TrustedProxies))
	r.Use(requesttime.Middleware)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.LatencyMiddleware(d.Metrics))

	r.Get("/healthz", healthHandler(d.Health, d.Logger))
	if d.Gatherer != nil {
		r.With(token.Require(d.MetricsToken, d.Logger)).Method(http.MethodGet, "/metrics", metrics.Handler(d.Gatherer))
	}
	if d.Pages != nil {
		d.Pages.Register(r)
	}
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		for name, check := range checks {
			if resp.Checks == nil {
				resp.Checks = make(map[string]string, len(checks))
			}
			if err := check(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed",
					"check", name,
					"error", err,
					"request_id", middleware.GetRequestID(ctx),
				)
				resp.Checks[name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
