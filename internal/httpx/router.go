package httpx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AngelCh415/sales-compare/internal/config"
	apierrors "github.com/AngelCh415/sales-compare/internal/errors"
	"github.com/AngelCh415/sales-compare/internal/ingest"
	"github.com/AngelCh415/sales-compare/internal/metrics"
	"github.com/AngelCh415/sales-compare/internal/utils"
)

func NewRouter(log *slog.Logger, mSvc *metrics.Service, diag ingest.Diagnostics, rl config.RateLimitConfig) http.Handler {
	h := NewHandler(log, mSvc, diag)

	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(utils.Logger(log))
	mux.Use(utils.Instrument)
	mux.Use(middleware.Recoverer)

	mux.Get("/healthz", h.Health)
	mux.Get("/readyz", h.Ready)
	mux.Method(http.MethodGet, "/metrics", promhttp.Handler())

	mux.Route("/api/v1", func(r chi.Router) {
		if rl.Enabled {
			r.Use(utils.RateLimit(rl.RPS, rl.Burst, log))
		}
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Get("/periods", h.Periods)
		r.Get("/summary", h.Summary)
		r.Get("/groups/{key}", h.Groups)
		r.Get("/series", h.Series)
		r.Get("/dashboard", h.Dashboard)
		r.Get("/dataset", h.Dataset)
	})

	mux.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.Render(w, r, apierrors.ErrNotFound)
	})
	return mux
}
