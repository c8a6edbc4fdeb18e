package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"facturelec/internal/cache"
	"facturelec/internal/core"
	"facturelec/internal/log"
)

// InvoiceAPI is the service surface the HTTP handlers need.
type InvoiceAPI interface {
	Ingest(ctx context.Context, rawBundle []byte) (core.InvoiceRecord, error)
	Get(ctx context.Context, id string) (core.InvoiceRecord, error)
	List(ctx context.Context) ([]core.InvoiceRecord, error)
	Delete(ctx context.Context, id string) error
	Metrics(ctx context.Context) (core.Metrics, error)
}

type Server struct {
	http.Server
	api            InvoiceAPI
	rateLimiter    *rateLimiter
	maxUploadBytes int64

	// Dashboard metrics are recomputed from every stored invoice, so cache
	// them briefly and drop the entry on every write.
	metricsCache *cache.LRUCache[core.Metrics]

	requestCount atomic.Int64
	errorCount   atomic.Int64

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

const metricsCacheKey = "dashboard"

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, api InvoiceAPI, maxUploadBytes int64, metricsTTL time.Duration) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		api:              api,
		rateLimiter:      newRateLimiter(),
		maxUploadBytes:   maxUploadBytes,
		metricsCache:     cache.NewLRUCache[core.Metrics](8, metricsTTL),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)

	mux.HandleFunc("POST /api/invoices", s.withMiddleware(s.handleIngestInvoice))
	mux.HandleFunc("GET /api/invoices", s.withMiddleware(s.handleListInvoices))
	mux.HandleFunc("GET /api/invoices/{id}", s.withMiddleware(s.handleGetInvoice))
	mux.HandleFunc("DELETE /api/invoices/{id}", s.withMiddleware(s.handleDeleteInvoice))
	mux.HandleFunc("GET /api/dashboard", s.withMiddleware(s.handleDashboard))
	mux.HandleFunc("GET /api/export", s.withMiddleware(s.handleExport))

	return s
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if cleaned := s.metricsCache.CleanExpired(); cleaned > 0 {
				slog.Debug("Cache cleanup completed", "entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func (s *Server) invalidateMetrics() {
	s.metricsCache.Delete(metricsCacheKey)
}

// withMiddleware adds security headers, rate limiting, and request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		s.requestCount.Add(1)

		ip := clientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, ip)

		// Rate-limit writes only; dashboard reads are already cached.
		if mutating(r.Method) && !s.rateLimiter.allow(ip) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, ip,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
			return
		}

		setSecurityHeaders(w)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		if rw.statusCode >= 500 {
			s.errorCount.Add(1)
		}

		slog.InfoContext(ctx, "Request completed",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds(),
			log.FieldClientIP, ip)
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
