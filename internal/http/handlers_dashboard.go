package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"facturelec/internal/core"
	"facturelec/internal/export"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	metrics, err := s.getMetrics(r)
	if err != nil {
		slog.ErrorContext(r.Context(), "Dashboard metrics failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute metrics")
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

func (s *Server) getMetrics(r *http.Request) (core.Metrics, error) {
	if metrics, found := s.metricsCache.Get(metricsCacheKey); found {
		slog.DebugContext(r.Context(), "Metrics cache hit")
		return metrics, nil
	}

	metrics, err := s.api.Metrics(r.Context())
	if err != nil {
		return core.Metrics{}, err
	}

	s.metricsCache.Set(metricsCacheKey, metrics)
	return metrics, nil
}

// handleExport streams all invoices as an XLSX workbook.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	records, err := s.api.List(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Export list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list invoices")
		return
	}

	data, err := export.BuildXLSX(records)
	if err != nil {
		slog.ErrorContext(r.Context(), "Export build failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build export")
		return
	}

	filename := fmt.Sprintf("factures-%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
