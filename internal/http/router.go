package httpserver

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aimorme/dateplan-back/internal/http/handlers"
	"github.com/aimorme/dateplan-back/internal/http/middleware"
)

type RouterDependencies struct {
	API            *handlers.API
	Logger         *log.Logger
	AuthToken      string
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewRouter(deps RouterDependencies) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Trace(deps.Logger))
	router.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: deps.CORSOrigins,
	}))
	router.Use(middleware.Auth(deps.AuthToken))

	router.Get("/healthz", deps.API.Health)

	router.Route("/v1/date-plans", func(r chi.Router) {
		// Submission only; progress and result are cheap reads that
		// clients poll every couple of seconds.
		r.With(middleware.RateLimit(deps.RateLimitRPS, deps.RateLimitBurst)).Post("/", deps.API.Submit)
		r.Get("/{jobID}/progress", deps.API.Progress)
		r.Get("/{jobID}/result", deps.API.Result)
	})

	return router
}
