package httpservice

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

func newRouter(h *handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.healthz)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/session", h.getSession)
		r.Post("/session/connect", h.connect)

		r.Route("/waves", func(r chi.Router) {
			r.Get("/", h.listWaves)
			r.Post("/", h.submitWave)
			r.Get("/count", h.getTotalWaves)
			r.Get("/submissions", h.listSubmissions)
			r.Get("/submissions/{id}", h.getSubmission)
			r.Get("/stream", h.streamWaves)
		})
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			log.WithFields(log.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(start).String(),
				"request_id": middleware.GetReqID(r.Context()),
			}).Debug("handled request")
		}()

		next.ServeHTTP(ww, r)
	})
}
