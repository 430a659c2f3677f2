// Package api wires the chi router: middleware, CORS, rate limiting,
// health endpoints, swagger docs, and the v1 API routes.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/skillmint/lms-data/internal/api/handler"
	"github.com/skillmint/lms-data/internal/config"
)

// NewRouter builds the HTTP router with all middleware and routes.
func NewRouter(cfg *config.Config, h *handler.Handler) http.Handler {
	r := chi.NewRouter()

	// ---- Middleware stack ----
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(TimingMiddleware)
	r.Use(middleware.Compress(5))

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "If-None-Match"},
		ExposedHeaders:   []string{"ETag", "X-Cache", "X-Process-Time"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	// ---- Routes ----
	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Get("/health/db", h.HealthDB)
	r.Get("/health/cache", h.HealthCache)

	// API docs
	r.Get("/docs/openapi.json", serveOpenAPISpec)
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/openapi.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/normalize/{lms}", h.Normalize)
		r.Get("/courses/{lms}", h.ListCourses)
		r.Get("/courses/{lms}/{courseID}", h.GetCourse)
		r.Get("/eligibility/{lms}/{courseID}", h.Eligibility)
		r.Get("/archive", h.ListArchive)
		r.Get("/archive/{lms}/{courseID}", h.GetArchived)
	})

	return r
}
