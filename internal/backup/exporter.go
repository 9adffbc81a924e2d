package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"finbase/internal/core"
)

// Exporter is the destination side of the backup pipeline. Implementations
// must be safe to call from a single worker goroutine.
type Exporter interface {
	// ExportRecord writes a single record, typically in response to a
	// change message. Calling it again for the same ID overwrites the
	// previous copy.
	ExportRecord(ctx context.Context, r core.Record) error

	// ExportSnapshot writes a full dump of one kind. Snapshots are
	// immutable; each call produces a new artifact.
	ExportSnapshot(ctx context.Context, kind core.Kind, records []core.Record) error
}

// FileExporter writes backups as JSON files under a base directory:
// per-record copies in <dir>/<kind>/<id>.json and full snapshots in
// <dir>/snapshots/.
type FileExporter struct {
	dir string
	now func() time.Time
}

func NewFileExporter(dir string) (*FileExporter, error) {
	if dir == "" {
		return nil, fmt.Errorf("backup directory not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}
	return &FileExporter{dir: dir, now: time.Now}, nil
}

type recordDocument struct {
	ID        string  `json:"id"`
	Kind      string  `json:"kind"`
	Name      string  `json:"name"`
	Amount    string  `json:"amount"`
	Currency  string  `json:"currency"`
	Category  string  `json:"category,omitempty"`
	Frequency string  `json:"frequency"`
	StartDate string  `json:"start_date,omitempty"`
	EndDate   string  `json:"end_date,omitempty"`
	Quantity  string  `json:"quantity,omitempty"`
	UnitPrice string  `json:"unit_price,omitempty"`
	IsActive  bool    `json:"is_active"`
	UpdatedAt string  `json:"updated_at"`
}

func toDocument(r core.Record) recordDocument {
	doc := recordDocument{
		ID:        r.ID,
		Kind:      string(r.Kind),
		Name:      r.Name,
		Amount:    r.Amount.String(),
		Currency:  r.Currency,
		Category:  r.Category,
		Frequency: string(r.Frequency),
		StartDate: r.StartDate.String(),
		EndDate:   r.EndDate.String(),
		IsActive:  r.IsActive,
		UpdatedAt: r.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if r.Asset != nil {
		doc.Quantity = r.Asset.Quantity.String()
		doc.UnitPrice = r.Asset.UnitPrice.String()
	}
	return doc
}

func (f *FileExporter) ExportRecord(_ context.Context, r core.Record) error {
	if r.ID == "" {
		return fmt.Errorf("record has no id")
	}
	kindDir := filepath.Join(f.dir, string(r.Kind))
	if err := os.MkdirAll(kindDir, 0o755); err != nil {
		return fmt.Errorf("create kind directory: %w", err)
	}
	data, err := json.MarshalIndent(toDocument(r), "", "  ")
	if err != nil {
		return fmt.Errorf("encode record %s: %w", r.ID, err)
	}
	path := filepath.Join(kindDir, r.ID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (f *FileExporter) ExportSnapshot(_ context.Context, kind core.Kind, records []core.Record) error {
	snapDir := filepath.Join(f.dir, "snapshots")
	if err := os.MkdirAll(snapDir, 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}
	docs := make([]recordDocument, 0, len(records))
	for _, r := range records {
		docs = append(docs, toDocument(r))
	}
	payload := struct {
		Kind      string           `json:"kind"`
		TakenAt   string           `json:"taken_at"`
		Count     int              `json:"count"`
		Records   []recordDocument `json:"records"`
	}{
		Kind:    string(kind),
		TakenAt: f.now().UTC().Format(time.RFC3339),
		Count:   len(docs),
		Records: docs,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	name := fmt.Sprintf("%s-%s.json", kind, f.now().UTC().Format("20060102T150405"))
	path := filepath.Join(snapDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
