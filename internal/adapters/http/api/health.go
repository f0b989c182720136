package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/moodtune/pkg/metrics"
)

// handleHealth serves GET /healthz as the Prometheus exposition of the
// service's metrics registry.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

// handleReady serves GET /readyz. It answers 503 until the classifier is ready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.deps.Ready(r.Context())
	code := http.StatusOK
	if !status.Ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}
