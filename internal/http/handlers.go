package http

import (
	"fmt"
	"net/http"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// The service struct is wired at startup; if listing fails the
	// database is gone and we should stop receiving traffic.
	if _, err := s.api.List(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleMetrics exposes plain-text operational counters.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "http_requests_total %d\n", s.requestCount.Load())
	fmt.Fprintf(w, "http_errors_total %d\n", s.errorCount.Load())
	fmt.Fprintf(w, "metrics_cache_entries %d\n", s.metricsCache.Size())
}
