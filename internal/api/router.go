package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/starford/notable/internal/noteservice"
)

// Options configures the optional parts of the API router.
type Options struct {
	// Events, if non-nil, is mounted at GET /events.
	Events http.Handler
	// CORSOrigins lists allowed origins; empty means any origin.
	CORSOrigins []string
	// RateLimiter, if non-nil, limits requests per client.
	RateLimiter *RateLimiter
	// Metrics, if non-nil, records request metrics.
	Metrics *Metrics
}

// NewRouter creates a chi router with all API routes mounted. It is meant to
// be mounted under /api.
func NewRouter(svc *noteservice.Service, opts Options) chi.Router {
	h := NewHandler(svc)

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(Recover)
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	if opts.RateLimiter != nil {
		r.Use(opts.RateLimiter.Middleware)
	}

	r.Route("/notes", func(r chi.Router) {
		r.Get("/", handle(h.ListNotes))
		r.Post("/", handle(h.CreateNote))
		r.Get("/{id}", handle(h.GetNote))
		r.Put("/{id}", handle(h.UpdateNote))
		r.Delete("/{id}", handle(h.DeleteNote))
	})

	if opts.Events != nil {
		r.Get("/events", opts.Events.ServeHTTP)
	}

	return r
}
