package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"finbase/internal/amqp"
	"finbase/internal/backup"
	"finbase/internal/core"
	"finbase/internal/storage"
)

// BackupWorker drains record changes from storage into a backup destination.
// It reacts to AMQP messages and also sweeps the export queue periodically,
// so a lost message only delays a backup instead of dropping it.
type BackupWorker struct {
	storage   *storage.SQLiteRepository
	exporter  backup.Exporter
	batchSize int
}

func NewBackupWorker(storage *storage.SQLiteRepository, exporter backup.Exporter, batchSize int) *BackupWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &BackupWorker{
		storage:   storage,
		exporter:  exporter,
		batchSize: batchSize,
	}
}

// HandleChange processes a single record change message.
func (w *BackupWorker) HandleChange(ctx context.Context, msg *amqp.RecordChangeMessage) error {
	slog.InfoContext(ctx, "Processing record change",
		"id", msg.ID,
		"kind", msg.Kind,
		"op", msg.Op)

	// Deleted records have no row left to export. The per-record backup
	// copy stays behind as the last known state.
	if msg.Op == "delete" {
		return nil
	}

	return w.exportOne(ctx, msg.ID)
}

// HandleBackupRequest writes a full snapshot of every kind.
func (w *BackupWorker) HandleBackupRequest(ctx context.Context, msg *amqp.BackupRequestMessage) error {
	slog.InfoContext(ctx, "Processing backup request", "request_id", msg.RequestID)

	for _, kind := range core.Kinds() {
		records, err := w.listAll(ctx, kind)
		if err != nil {
			return fmt.Errorf("list %s records: %w", kind, err)
		}
		if err := w.exporter.ExportSnapshot(ctx, kind, records); err != nil {
			return fmt.Errorf("snapshot %s: %w", kind, err)
		}
		slog.InfoContext(ctx, "Snapshot written", "kind", kind, "count", len(records))
	}
	return nil
}

// ProcessPendingRecords exports any records still marked pending. This is the
// safety net for lost or nacked AMQP messages.
func (w *BackupWorker) ProcessPendingRecords(ctx context.Context) error {
	pending, err := w.storage.GetPendingExportRecords(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending records: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending exports", "count", len(pending))

	for _, p := range pending {
		if err := w.exportOne(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to export record", "id", p.ID, "error", err)
			continue
		}
	}
	return nil
}

// StartupCheck drains a larger pending batch once at worker startup to
// recover from downtime.
func (w *BackupWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.storage.GetPendingExportRecords(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending records for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending exports found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending exports on startup, processing...",
		"count", len(pending))

	exported := 0
	failed := 0
	for _, p := range pending {
		if err := w.exportOne(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to export record during startup",
				"id", p.ID, "error", err)
			failed++
			continue
		}
		exported++
	}

	slog.InfoContext(ctx, "Startup export check completed",
		"total", len(pending),
		"exported", exported,
		"errors", failed)
	return nil
}

func (w *BackupWorker) exportOne(ctx context.Context, id string) error {
	rec, err := w.storage.Get(ctx, id)
	if err != nil {
		// Deleted between publish and consume: nothing to export.
		if errors.Is(err, core.ErrNotFound) {
			slog.WarnContext(ctx, "Record vanished before export", "id", id)
			return nil
		}
		return fmt.Errorf("get record from storage: %w", err)
	}

	if err := w.exporter.ExportRecord(ctx, rec); err != nil {
		if markErr := w.storage.MarkExportError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error", "id", id, "error", markErr)
		}
		return fmt.Errorf("export record: %w", err)
	}

	if err := w.storage.MarkExported(ctx, id); err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	return nil
}

func (w *BackupWorker) listAll(ctx context.Context, kind core.Kind) ([]core.Record, error) {
	active, err := w.storage.List(ctx, kind, true)
	if err != nil {
		return nil, err
	}
	archived, err := w.storage.List(ctx, kind, false)
	if err != nil {
		return nil, err
	}
	return append(active, archived...), nil
}
