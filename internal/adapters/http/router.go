package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/viralforge/economy-bridge/internal/application"
)

// Handler is the HTTP adapter entrypoint for gateway callbacks.
// A nil service means the economy module is disabled; only health and metrics answer.
type Handler struct {
	service *application.Service
}

// NewHandler constructs an HTTP handler bound to application service.
func NewHandler(service *application.Service) *Handler {
	return &Handler{service: service}
}

// NewRouter registers the callback routes and middleware stack.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// The gateway posts XML-RPC to the region's root URL.
	r.Post("/", handler.xmlrpcNotification)
	r.Post("/xmlrpc", handler.xmlrpcNotification)

	r.Route("/economy/v1", func(r chi.Router) {
		r.Post("/notifications", handler.jsonNotification)
	})

	return r
}
