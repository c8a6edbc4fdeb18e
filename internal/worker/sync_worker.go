package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"facturelec/internal/amqp"
	"facturelec/internal/export"
	"facturelec/internal/normalize"
	"facturelec/internal/storage"
)

// SyncWorker pushes stored invoices to the configured spreadsheet. Invoices
// arrive via AMQP messages; the pending-sync sweep catches anything the
// broker lost.
type SyncWorker struct {
	storage   *storage.SQLiteRepository
	appender  export.InvoiceAppender
	batchSize int
}

func NewSyncWorker(storage *storage.SQLiteRepository, appender export.InvoiceAppender, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   storage,
		appender:  appender,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single invoice sync message from AMQP
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.InvoiceSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message", "id", msg.ID)

	stored, err := w.storage.Get(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("get invoice from storage: %w", err)
	}

	if stored.SyncedAt != nil {
		slog.InfoContext(ctx, "Invoice already synced, skipping", "id", msg.ID)
		return nil
	}

	if err := w.syncInvoice(ctx, stored); err != nil {
		return fmt.Errorf("sync invoice: %w", err)
	}

	return nil
}

// ProcessPendingInvoices syncs any invoices that haven't been exported yet.
// This is a backup mechanism in case AMQP messages are lost.
func (w *SyncWorker) ProcessPendingInvoices(ctx context.Context) error {
	pending, err := w.storage.ListPendingSync(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending invoices: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending invoices", "count", len(pending))

	for _, inv := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.syncInvoice(ctx, inv); err != nil {
			slog.ErrorContext(ctx, "Failed to sync invoice", "id", inv.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupSyncCheck drains the pending backlog at worker startup, useful to
// recover from missed AMQP messages or worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	// Larger batch for the startup pass
	pending, err := w.storage.ListPendingSync(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending invoices for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending invoices found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending invoices on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, inv := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.syncInvoice(ctx, inv); err != nil {
			slog.ErrorContext(ctx, "Failed to sync invoice during startup",
				"id", inv.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", successCount,
		"errors", errorCount)

	return nil
}

func (w *SyncWorker) syncInvoice(ctx context.Context, stored storage.StoredInvoice) error {
	var raw map[string]any
	if err := json.Unmarshal(stored.RawBundle, &raw); err != nil {
		return fmt.Errorf("decode bundle %s: %w", stored.ID, err)
	}

	record := normalize.Normalize(raw)
	if record.ID == "" {
		record.ID = stored.ID
	}

	ref, err := w.appender.Append(ctx, record)
	if err != nil {
		return fmt.Errorf("append to sheet: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, stored.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", stored.ID, "error", err)
		// Don't return error here - the sync actually worked
	}

	slog.InfoContext(ctx, "Successfully synced invoice",
		"id", stored.ID,
		"provider", record.Provider,
		"sheet_ref", ref)

	return nil
}
