package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"finbase/internal/core"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339

// SQLiteRepository persists records for all domains in a single table keyed
// by kind. It is the system of record; callers mirror its state and
// re-query after mutations.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const recordColumns = `id, kind, name, amount_cents, currency, category, frequency,
	start_date, end_date, quantity, unit_price, is_active, created_at, updated_at`

// Create inserts a new record and marks it pending export.
func (r *SQLiteRepository) Create(ctx context.Context, rec core.Record) error {
	quantity, unitPrice := assetStrings(rec)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO records (id, kind, name, amount_cents, currency, category, frequency,
			start_date, end_date, quantity, unit_price, is_active, export_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'pending', ?, ?)`,
		rec.ID, string(rec.Kind), rec.Name, rec.Amount.Cents, rec.Currency, rec.Category,
		string(rec.Frequency), rec.StartDate.String(), rec.EndDate.String(),
		quantity, unitPrice, boolToInt(rec.IsActive),
		rec.CreatedAt.UTC().Format(timeLayout), rec.UpdatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}

	slog.InfoContext(ctx, "Record saved",
		"id", rec.ID,
		"kind", rec.Kind,
		"name", rec.Name,
		"amount_cents", rec.Amount.Cents)
	return nil
}

// Get returns a single record by id, or core.ErrNotFound.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.Record, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Record{}, core.ErrNotFound
	}
	if err != nil {
		return core.Record{}, fmt.Errorf("get record %s: %w", id, err)
	}
	return rec, nil
}

// List returns the active or archived partition of one kind, oldest first.
func (r *SQLiteRepository) List(ctx context.Context, kind core.Kind, active bool) ([]core.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM records
		 WHERE kind = ? AND is_active = ?
		 ORDER BY created_at, id`, string(kind), boolToInt(active))
	if err != nil {
		return nil, fmt.Errorf("list %s records: %w", kind, err)
	}
	defer rows.Close()

	var out []core.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s record: %w", kind, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s records: %w", kind, err)
	}
	return out, nil
}

// Update overwrites an existing record's mutable fields and resets its
// export status so the next backup sweep picks it up.
func (r *SQLiteRepository) Update(ctx context.Context, rec core.Record) error {
	quantity, unitPrice := assetStrings(rec)
	res, err := r.db.ExecContext(ctx, `
		UPDATE records SET name = ?, amount_cents = ?, currency = ?, category = ?,
			frequency = ?, start_date = ?, end_date = ?, quantity = ?, unit_price = ?,
			is_active = ?, export_status = 'pending', updated_at = ?
		WHERE id = ?`,
		rec.Name, rec.Amount.Cents, rec.Currency, rec.Category,
		string(rec.Frequency), rec.StartDate.String(), rec.EndDate.String(),
		quantity, unitPrice, boolToInt(rec.IsActive),
		rec.UpdatedAt.UTC().Format(timeLayout), rec.ID)
	if err != nil {
		return fmt.Errorf("update record %s: %w", rec.ID, err)
	}
	return checkAffected(res, rec.ID)
}

// SetActive flips the archive flag without touching other fields.
func (r *SQLiteRepository) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE records SET is_active = ?, export_status = 'pending', updated_at = ?
		WHERE id = ?`,
		boolToInt(active), time.Now().UTC().Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("set active %s: %w", id, err)
	}
	return checkAffected(res, id)
}

// Delete permanently removes a record.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	return checkAffected(res, id)
}

// BatchDeleteResult reports the backend-aggregated outcome of BatchDelete.
type BatchDeleteResult struct {
	DeletedCount int      `json:"deleted_count"`
	FailedIDs    []string `json:"failed_ids"`
}

// BatchDelete deletes ids one by one, collecting failures instead of
// stopping. There is no transaction: a partial failure leaves the deleted
// records gone and the failed ones untouched.
func (r *SQLiteRepository) BatchDelete(ctx context.Context, ids []string) (BatchDeleteResult, error) {
	res := BatchDeleteResult{FailedIDs: []string{}}
	for _, id := range ids {
		if err := r.Delete(ctx, id); err != nil {
			slog.WarnContext(ctx, "Batch delete item failed", "id", id, "error", err)
			res.FailedIDs = append(res.FailedIDs, id)
			continue
		}
		res.DeletedCount++
	}
	return res, nil
}

// PendingExportRecord is the minimal shape the backup sweep needs.
type PendingExportRecord struct {
	ID        string
	Kind      core.Kind
	UpdatedAt time.Time
}

// GetPendingExportRecords returns up to limit records awaiting backup.
func (r *SQLiteRepository) GetPendingExportRecords(ctx context.Context, limit int) ([]PendingExportRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, updated_at FROM records
		WHERE export_status = 'pending'
		ORDER BY updated_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending export records: %w", err)
	}
	defer rows.Close()

	var out []PendingExportRecord
	for rows.Next() {
		var p PendingExportRecord
		var kind, updatedAt string
		if err := rows.Scan(&p.ID, &kind, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan pending record: %w", err)
		}
		p.Kind = core.Kind(kind)
		p.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkExported marks a record as captured by the latest backup.
func (r *SQLiteRepository) MarkExported(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE records SET export_status = 'exported', exported_at = ? WHERE id = ?`,
		time.Now().UTC().Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("mark record exported: %w", err)
	}
	return nil
}

// MarkExportError flags a record whose backup attempt failed.
func (r *SQLiteRepository) MarkExportError(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE records SET export_status = 'error' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark record export error: %w", err)
	}
	slog.WarnContext(ctx, "Record marked with export error", "id", id)
	return nil
}

// CountByKind returns record counts per kind, both partitions included.
func (r *SQLiteRepository) CountByKind(ctx context.Context) (map[core.Kind]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM records GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	defer rows.Close()

	out := make(map[core.Kind]int64)
	for rows.Next() {
		var kind string
		var n int64
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out[core.Kind(kind)] = n
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (core.Record, error) {
	var (
		rec                  core.Record
		kind, frequency      string
		startDate, endDate   string
		quantity, unitPrice  string
		isActive             int
		createdAt, updatedAt string
	)
	err := row.Scan(&rec.ID, &kind, &rec.Name, &rec.Amount.Cents, &rec.Currency,
		&rec.Category, &frequency, &startDate, &endDate, &quantity, &unitPrice,
		&isActive, &createdAt, &updatedAt)
	if err != nil {
		return core.Record{}, err
	}

	rec.Kind = core.Kind(kind)
	rec.Frequency = core.Frequency(frequency)
	rec.IsActive = isActive != 0

	if rec.StartDate, err = core.ParseDate(startDate); err != nil {
		return core.Record{}, fmt.Errorf("parse start date %q: %w", startDate, err)
	}
	if rec.EndDate, err = core.ParseDate(endDate); err != nil {
		return core.Record{}, fmt.Errorf("parse end date %q: %w", endDate, err)
	}
	if quantity != "" && unitPrice != "" {
		pos, err := core.ParsePosition(quantity, unitPrice)
		if err != nil {
			return core.Record{}, fmt.Errorf("parse asset position: %w", err)
		}
		rec.Asset = &pos
	}
	if rec.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return core.Record{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	if rec.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return core.Record{}, fmt.Errorf("parse updated_at %q: %w", updatedAt, err)
	}
	return rec, nil
}

func assetStrings(rec core.Record) (quantity, unitPrice string) {
	if rec.Asset == nil {
		return "", ""
	}
	return rec.Asset.Quantity.String(), rec.Asset.UnitPrice.String()
}

func checkAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for %s: %w", id, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
