// Package http assembles the service's HTTP surface: domain routes behind
// the shared middleware chain, plus health and metrics endpoints.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"flightledger/internal/platform/middleware"
	"flightledger/internal/transport/httpjson"
)

// RouteRegistrar mounts a handler's routes on the router.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// NewRouter builds the service router. requestTimeout bounds each request;
// zero disables the timeout middleware.
func NewRouter(logger *slog.Logger, requestTimeout time.Duration, handlers ...RouteRegistrar) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	if requestTimeout > 0 {
		r.Use(middleware.Timeout(requestTimeout))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpjson.Write(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		for _, h := range handlers {
			h.Register(r)
		}
	})

	return r
}
