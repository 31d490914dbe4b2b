package router

import (
	"net/http"

	"product-catalog/internal/handler"
	"product-catalog/internal/metrics"
	"product-catalog/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// New creates a new HTTP router with all routes and middleware configured.
// A nil productHandler leaves the product routes unmounted; nil m disables
// /metrics and request instrumentation.
func New(
	productHandler *handler.ProductHandler,
	m *metrics.Metrics,
	logger zerolog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Middleware in order: RequestID -> Recovery -> Logging -> CORS -> Metrics
	r.Use(chimw.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS)
	if m != nil {
		r.Use(middleware.Metrics(m))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	if productHandler != nil {
		r.Route("/v1", func(r chi.Router) {
			r.Get("/products", productHandler.GetAll)
		})
	}

	return r
}
