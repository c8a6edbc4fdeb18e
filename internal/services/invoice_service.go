package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"facturelec/internal/amqp"
	"facturelec/internal/analytics"
	"facturelec/internal/core"
	"facturelec/internal/normalize"
	"facturelec/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidBundle is returned when an uploaded document is not a JSON object.
var ErrInvalidBundle = errors.New("invoice bundle must be a JSON object")

// InvoiceService orchestrates invoice operations across SQLite and AMQP.
// The raw bundle is the source of truth; normalization happens on every read
// so that normalizer improvements apply to already-stored invoices.
type InvoiceService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewInvoiceService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *InvoiceService {
	return &InvoiceService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// Ingest validates and stores a raw invoice bundle, assigns an id if the
// bundle carries none, and asks the worker to sync it to the spreadsheet.
// Publishing is best-effort: the invoice is already persisted locally and
// the pending-sync sweep will pick it up if the message is lost.
func (s *InvoiceService) Ingest(ctx context.Context, rawBundle []byte) (core.InvoiceRecord, error) {
	var raw map[string]any
	if err := json.Unmarshal(rawBundle, &raw); err != nil {
		return core.InvoiceRecord{}, fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}
	if raw == nil {
		return core.InvoiceRecord{}, ErrInvalidBundle
	}

	record := normalize.Normalize(raw)
	if record.ID == "" {
		record.ID = uuid.NewString()
		raw["id"] = record.ID
		updated, err := json.Marshal(raw)
		if err != nil {
			return core.InvoiceRecord{}, fmt.Errorf("re-encode bundle: %w", err)
		}
		rawBundle = updated
	}

	stored := storage.StoredInvoice{
		ID:        record.ID,
		Provider:  record.Provider,
		IssueDate: record.IssueDate,
		RawBundle: rawBundle,
	}
	if err := s.storage.Save(ctx, stored); err != nil {
		return core.InvoiceRecord{}, fmt.Errorf("save invoice: %w", err)
	}

	if err := s.publishSyncMessage(ctx, record.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", record.ID, "error", err)
		// Don't fail the request - invoice is saved locally
	}

	return record, nil
}

// Get loads and normalizes a single invoice.
func (s *InvoiceService) Get(ctx context.Context, id string) (core.InvoiceRecord, error) {
	stored, err := s.storage.Get(ctx, id)
	if err != nil {
		return core.InvoiceRecord{}, err
	}
	return s.normalizeStored(stored)
}

// List returns all invoices normalized, newest upload first.
func (s *InvoiceService) List(ctx context.Context) ([]core.InvoiceRecord, error) {
	stored, err := s.storage.List(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]core.InvoiceRecord, 0, len(stored))
	for _, inv := range stored {
		record, err := s.normalizeStored(inv)
		if err != nil {
			slog.WarnContext(ctx, "Skipping undecodable invoice bundle",
				"id", inv.ID, "error", err)
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// Delete removes an invoice. Returns storage.ErrNotFound for unknown ids.
func (s *InvoiceService) Delete(ctx context.Context, id string) error {
	return s.storage.Delete(ctx, id)
}

// Metrics normalizes every stored invoice and aggregates the dashboard
// metrics. Normalization is CPU-bound and per-invoice independent, so it
// fans out across cores.
func (s *InvoiceService) Metrics(ctx context.Context) (core.Metrics, error) {
	stored, err := s.storage.List(ctx)
	if err != nil {
		return core.Metrics{}, err
	}

	records := make([]core.InvoiceRecord, len(stored))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, inv := range stored {
		g.Go(func() error {
			record, err := s.normalizeStored(inv)
			if err != nil {
				return fmt.Errorf("invoice %s: %w", inv.ID, err)
			}
			records[i] = record
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return core.Metrics{}, err
	}

	return analytics.Aggregate(records), nil
}

func (s *InvoiceService) normalizeStored(inv storage.StoredInvoice) (core.InvoiceRecord, error) {
	var raw map[string]any
	if err := json.Unmarshal(inv.RawBundle, &raw); err != nil {
		return core.InvoiceRecord{}, fmt.Errorf("decode bundle: %w", err)
	}

	record := normalize.Normalize(raw)
	if record.ID == "" {
		record.ID = inv.ID
	}
	return record, nil
}

func (s *InvoiceService) publishSyncMessage(ctx context.Context, id string) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return nil
	}

	return s.amqpClient.PublishInvoiceSync(ctx, id)
}

// Close closes both storage and AMQP connections
func (s *InvoiceService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close invoice service: %v", errs)
	}

	return nil
}
