// Package services orchestrates record operations across storage and the
// backup queue. Storage is written first; queue publishes are best-effort
// and never fail the request.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"finbase/internal/core"
	"finbase/internal/listkit"
	"finbase/internal/storage"
)

// ChangePublisher pushes backup work onto the queue. The AMQP client
// satisfies it; a nil publisher disables backup notifications.
type ChangePublisher interface {
	PublishRecordChange(ctx context.Context, id, kind, op string) error
	PublishBackupRequest(ctx context.Context, requestID string) error
}

// RecordService implements the four-operation shape shared by every domain.
type RecordService struct {
	storage   *storage.SQLiteRepository
	publisher ChangePublisher
}

func NewRecordService(storage *storage.SQLiteRepository, publisher ChangePublisher) *RecordService {
	return &RecordService{storage: storage, publisher: publisher}
}

// List returns one kind's active or archived partition.
func (s *RecordService) List(ctx context.Context, kind core.Kind, active bool) ([]core.Record, error) {
	if !kind.Valid() {
		return nil, core.ErrInvalidKind
	}
	return s.storage.List(ctx, kind, active)
}

// Get returns a single record by id.
func (s *RecordService) Get(ctx context.Context, id string) (core.Record, error) {
	return s.storage.Get(ctx, id)
}

// Create validates and persists a new record, assigning its id, then
// notifies the backup queue.
func (s *RecordService) Create(ctx context.Context, rec core.Record) (core.Record, error) {
	now := time.Now().UTC()
	rec.ID = uuid.NewString()
	rec.IsActive = true
	rec.CreatedAt = now
	rec.UpdatedAt = now

	if err := rec.Validate(); err != nil {
		return core.Record{}, err
	}
	if err := s.storage.Create(ctx, rec); err != nil {
		return core.Record{}, fmt.Errorf("create record: %w", err)
	}

	s.publishChange(ctx, rec.ID, rec.Kind, "create")
	return rec, nil
}

// Update applies a partial patch to an existing record and returns the
// updated state. An IsActive toggle in the patch is how archive and
// unarchive happen.
func (s *RecordService) Update(ctx context.Context, id string, patch core.RecordPatch) (core.Record, error) {
	rec, err := s.storage.Get(ctx, id)
	if err != nil {
		return core.Record{}, err
	}

	updated := patch.Apply(rec)
	updated.UpdatedAt = time.Now().UTC()
	if err := updated.Validate(); err != nil {
		return core.Record{}, err
	}
	if err := s.storage.Update(ctx, updated); err != nil {
		return core.Record{}, fmt.Errorf("update record: %w", err)
	}

	op := "update"
	if patch.IsActive != nil {
		op = "archive"
		if *patch.IsActive {
			op = "unarchive"
		}
	}
	s.publishChange(ctx, id, updated.Kind, op)
	return updated, nil
}

// Delete permanently removes a record.
func (s *RecordService) Delete(ctx context.Context, id string) error {
	rec, err := s.storage.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.storage.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	s.publishChange(ctx, id, rec.Kind, "delete")
	return nil
}

// BatchDelete removes ids one by one on the storage side, aggregating
// failures into the result instead of aborting.
func (s *RecordService) BatchDelete(ctx context.Context, kind core.Kind, ids []string) (storage.BatchDeleteResult, error) {
	res, err := s.storage.BatchDelete(ctx, ids)
	if err != nil {
		return res, fmt.Errorf("batch delete: %w", err)
	}
	if res.DeletedCount > 0 {
		s.publishChange(ctx, "", kind, "batch_delete")
	}
	slog.InfoContext(ctx, "Batch delete completed",
		"kind", kind,
		"requested", len(ids),
		"deleted", res.DeletedCount,
		"failed", len(res.FailedIDs))
	return res, nil
}

// BatchArchive applies the archive toggle to each id sequentially,
// counting failures independently so one bad id never aborts the rest.
func (s *RecordService) BatchArchive(ctx context.Context, kind core.Kind, ids []string, active bool) listkit.BatchResult {
	res := listkit.RunBatchIDs(ctx, ids, func(ctx context.Context, id string) error {
		return s.storage.SetActive(ctx, id, active)
	})
	if res.Succeeded > 0 {
		s.publishChange(ctx, "", kind, "batch_archive")
	}
	slog.InfoContext(ctx, "Batch archive completed",
		"kind", kind,
		"succeeded", res.Succeeded,
		"failed", res.Failed)
	return res
}

// RequestBackup enqueues a full snapshot request and returns its id.
func (s *RecordService) RequestBackup(ctx context.Context) (string, error) {
	if s.publisher == nil {
		return "", fmt.Errorf("backup queue not configured")
	}
	requestID := uuid.NewString()
	if err := s.publisher.PublishBackupRequest(ctx, requestID); err != nil {
		return "", fmt.Errorf("request backup: %w", err)
	}
	return requestID, nil
}

func (s *RecordService) publishChange(ctx context.Context, id string, kind core.Kind, op string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishRecordChange(ctx, id, string(kind), op); err != nil {
		// Storage already committed; the periodic sweep will catch up.
		slog.ErrorContext(ctx, "Failed to publish record change",
			"id", id, "kind", kind, "op", op, "error", err)
	}
}

// Close releases the storage and queue connections.
func (s *RecordService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if closer, ok := s.publisher.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("queue: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close record service: %v", errs)
	}
	return nil
}
