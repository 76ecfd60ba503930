package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/viralforge/economy-bridge/internal/domain"
)

var callbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "economy_callbacks_total",
	Help: "Inbound gateway callbacks by method and outcome.",
}, []string{"method", "outcome"})

// observeCallback folds unknown method names into "other" to bound label cardinality.
func observeCallback(method, outcome string) {
	switch method {
	case domain.CallbackNotifyUser, domain.CallbackWriteLog, domain.CallbackNotifyIsAlive:
	default:
		method = "other"
	}
	callbacksTotal.WithLabelValues(method, outcome).Inc()
}
