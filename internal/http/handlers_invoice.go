package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"facturelec/internal/log"
	"facturelec/internal/services"
	"facturelec/internal/storage"
)

func (s *Server) handleIngestInvoice(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "invoice bundle too large")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	record, err := s.api.Ingest(r.Context(), body)
	if err != nil {
		if errors.Is(err, services.ErrInvalidBundle) {
			writeError(w, http.StatusBadRequest, "invoice bundle must be a JSON object")
			return
		}
		slog.ErrorContext(r.Context(), "Invoice ingest failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store invoice")
		return
	}

	s.invalidateMetrics()
	writeJSON(w, http.StatusCreated, record)
}

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	records, err := s.api.List(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Invoice list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list invoices")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"invoices": records,
		"count":    len(records),
	})
}

func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	record, err := s.api.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "invoice not found")
			return
		}
		slog.ErrorContext(r.Context(), "Invoice get failed", log.FieldInvoiceID, id, log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "failed to load invoice")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleDeleteInvoice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := s.api.Delete(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "invoice not found")
			return
		}
		slog.ErrorContext(r.Context(), "Invoice delete failed", log.FieldInvoiceID, id, log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "failed to delete invoice")
		return
	}

	s.invalidateMetrics()
	w.WriteHeader(http.StatusNoContent)
}
