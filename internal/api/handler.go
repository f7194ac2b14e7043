// Package api serves predictions over HTTP and MCP.
package api

import (
	"context"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/kalambet/sentid/internal/metrics"
	"github.com/kalambet/sentid/internal/prediction"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps holds what the handlers need. Service is required.
type Deps struct {
	Service prediction.Service
	Store   Pinger
	Metrics *metrics.Metrics
	Log     logrus.FieldLogger
	// Sentry receives 500 causes and panics. Nil uses the global hub.
	Sentry *sentry.Hub
}

// NewHandler returns the HTTP API.
func NewHandler(deps Deps) http.Handler {
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(sentryHub(deps.Sentry))
	r.Use(accessLog(deps.Log, deps.Metrics))
	r.Use(recoverer(deps.Log))

	r.Get("/health", handleHealth(deps.Store))
	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	create := handleCreate(deps)
	r.Post("/sentiment/", create)
	r.Post("/sentiment", create)
	r.Get("/sentiment/{id}", handleGet(deps))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
	return r
}

func handleHealth(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store != nil {
			if err := store.Ping(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
