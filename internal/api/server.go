// Package api serves contacts, personas and batch jobs over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/lead-engine/internal/batch"
	"github.com/sells-group/lead-engine/internal/metrics"
	"github.com/sells-group/lead-engine/internal/model"
	"github.com/sells-group/lead-engine/internal/persona"
	"github.com/sells-group/lead-engine/internal/pipeline"
	"github.com/sells-group/lead-engine/internal/store"
)

// ProgressLookup finds snapshots of jobs this instance does not own, such as
// those mirrored into Redis by another instance.
type ProgressLookup interface {
	Get(ctx context.Context, jobID string) (model.BatchJobProgress, bool, error)
}

// Deps are the collaborators the server needs. Metrics and Mirror may be nil.
type Deps struct {
	Store    store.Store
	Personas *persona.Service
	Pipeline *pipeline.Pipeline
	Batches  *batch.Manager
	Metrics  *metrics.Recorder
	Mirror   ProgressLookup

	// JobContext bounds background batch jobs. Request contexts end with the
	// response, so jobs must not inherit them.
	JobContext context.Context

	AllowedOrigins []string
}

// Server holds the HTTP handlers.
type Server struct {
	store    store.Store
	personas *persona.Service
	pipeline *pipeline.Pipeline
	batches  *batch.Manager
	metrics  *metrics.Recorder
	mirror   ProgressLookup
	jobCtx   context.Context
	origins  []string
}

// New creates a server.
func New(d Deps) *Server {
	jobCtx := d.JobContext
	if jobCtx == nil {
		jobCtx = context.Background()
	}
	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{
		store:    d.Store,
		personas: d.Personas,
		pipeline: d.Pipeline,
		batches:  d.Batches,
		metrics:  d.Metrics,
		mirror:   d.Mirror,
		jobCtx:   jobCtx,
		origins:  origins,
	}
}

// Routes returns the router with every endpoint mounted.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/contacts", func(r chi.Router) {
			r.Get("/", s.listContacts)
			r.Post("/", s.createContact)
			r.Get("/{id}", s.getContact)
			r.Post("/{id}/enrich", s.enrichContact)
			r.Post("/{id}/reports", s.createReportRef)
		})
		r.Route("/personas", func(r chi.Router) {
			r.Get("/", s.listPersonas)
			r.Post("/", s.createPersona)
			r.Get("/{id}", s.getPersona)
			r.Put("/{id}", s.updatePersona)
			r.Delete("/{id}", s.deletePersona)
		})
		r.Route("/batches", func(r chi.Router) {
			r.Get("/", s.listBatches)
			r.Post("/", s.startBatch)
			r.Get("/{id}", s.getBatch)
			r.Delete("/{id}", s.abortBatch)
			r.Get("/{id}/events", s.batchEvents)
		})
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// statusFor maps domain errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, persona.ErrInvalid), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, persona.ErrImmutable):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound), errors.Is(err, batch.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, persona.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, pipeline.ErrEnrichmentFailed):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
