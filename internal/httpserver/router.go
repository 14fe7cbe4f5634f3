package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"lookgen-gateway/internal/handlers"
	"lookgen-gateway/internal/metrics"
	"lookgen-gateway/internal/middleware"
)

type Options struct {
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

func SetupRouter(r *chi.Mux, baseLogger *zap.Logger, gen *handlers.GenerationHandler, art *handlers.ArtifactHandler, opts Options) {
	r.Use(metrics.Middleware)

	// base middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)

	r.Use(middleware.LoggingContext(baseLogger))
	r.Use(middleware.Recoverer())
	r.Use(middleware.CORS())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.MaxBodySize(opts.MaxBodyBytes))
		r.Group(func(r chi.Router) {
			if opts.RequestTimeout > 0 {
				r.Use(middleware.Timeout(opts.RequestTimeout))
			}
			r.Post("/model", gen.GenerateModel)
			r.Post("/tryon", gen.ApplyGarment)
			r.Post("/pose", gen.ChangePose)
		})
		r.Get("/jobs/{id}", gen.JobStatus)
	})

	r.Get("/artifacts/*", art.Serve)
	r.Head("/artifacts/*", art.Serve)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/metrics", metrics.Handler())
}
