package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rewired-gh/lottosmart/internal/logger"
)

// RouterOptions configures cross-cutting middleware.
type RouterOptions struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
}

// NewRouter mounts every route on a chi router.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 45 * time.Second
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(logger.Middleware)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(opts.RequestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Get("/games", h.ListGames)

		r.Route("/lottery/{game}", func(r chi.Router) {
			r.Get("/latest", h.GetLatest)
			r.Get("/history", h.GetHistory)
			r.Get("/statistics", h.GetStatistics)
			r.Get("/next-draw", h.GetNextDraw)
		})

		r.Route("/bets", func(r chi.Router) {
			r.Post("/generate", h.GenerateBets)
			r.Post("/check-all", h.CheckAllBets)
			r.Post("/check/{id}", h.CheckBet)
			r.Post("/", h.SaveBet)
			r.Get("/", h.ListBets)
			r.Delete("/", h.DeleteBets)
			r.Delete("/{id}", h.DeleteBet)
		})
	})

	return r
}
