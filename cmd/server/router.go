package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/kotoba-api/internal/api"
	apiMiddleware "github.com/phrazzld/kotoba-api/internal/api/middleware"
	"github.com/rs/cors"
)

// requestTimeout bounds every API request.
const requestTimeout = 30 * time.Second

// setupRouter creates the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))
	if origins := app.config.CORS.AllowedOrigins; len(origins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			ExposedHeaders:   []string{apiMiddleware.TraceHeader, "Retry-After"},
			AllowCredentials: false,
			MaxAge:           300,
		}).Handler)
	}
	r.Use(middleware.Timeout(requestTimeout))

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)
	lessonHandler := api.NewLessonHandler(app.lessonService, app.logger)
	reviewHandler := api.NewReviewHandler(app.reviewService, app.logger)

	r.Get("/health", api.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		if rl := app.config.RateLimit; rl.RequestsPerSecond > 0 {
			r.Use(apiMiddleware.NewRateLimiter(rl.RequestsPerSecond, rl.Burst).Limit)
		}

		r.Get("/lessons/next", lessonHandler.GetNextLessons)
		r.Post("/lessons/commit", lessonHandler.CommitLessons)

		r.Get("/settings", lessonHandler.GetSettings)
		r.Put("/settings", lessonHandler.UpdateSettings)

		r.Get("/reviews/next", reviewHandler.GetNextReview)
		r.Post("/reviews", reviewHandler.SubmitReview)
		r.Post("/reviews/outcome", reviewHandler.RecordOutcome)

		r.Route("/subjects/{id}", func(r chi.Router) {
			r.Get("/stats", reviewHandler.GetSubjectStats)
			r.Get("/synonyms", reviewHandler.GetSynonyms)
			r.Put("/synonyms", reviewHandler.SetSynonyms)
		})
	})

	return r
}
