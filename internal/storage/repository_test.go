package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"finbase/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "finbase.db"))
	if err != nil {
		t.Fatalf("open test repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testRecord(id string, kind core.Kind) core.Record {
	now := time.Now().UTC().Truncate(time.Second)
	return core.Record{
		ID:        id,
		Kind:      kind,
		Name:      "Record " + id,
		Amount:    core.Money{Cents: 10000},
		Currency:  "EUR",
		Category:  "general",
		Frequency: core.Monthly,
		StartDate: core.NewDate(2024, 1, 15),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreateGetRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rec := testRecord("r1", core.KindIncome)
	rec.EndDate = core.NewDate(2024, 12, 31)
	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != rec.Name || got.Kind != rec.Kind || got.Amount.Cents != rec.Amount.Cents {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.StartDate.String() != "2024-01-15" || got.EndDate.String() != "2024-12-31" {
		t.Fatalf("dates mismatch: %s .. %s", got.StartDate, got.EndDate)
	}
	if !got.IsActive {
		t.Fatalf("expected active record")
	}
}

func TestGetNotFound(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.Get(context.Background(), "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListPartitionsByKindAndActive(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := testRecord("a", core.KindBudget)
	b := testRecord("b", core.KindBudget)
	b.IsActive = false
	c := testRecord("c", core.KindTax)
	for _, rec := range []core.Record{a, b, c} {
		if err := repo.Create(ctx, rec); err != nil {
			t.Fatalf("create %s: %v", rec.ID, err)
		}
	}

	active, err := repo.List(ctx, core.KindBudget, true)
	if err != nil {
		t.Fatalf("list active budgets: %v", err)
	}
	if len(active) != 1 || active[0].ID != "a" {
		t.Fatalf("expected only a, got %v", active)
	}

	archived, err := repo.List(ctx, core.KindBudget, false)
	if err != nil {
		t.Fatalf("list archived budgets: %v", err)
	}
	if len(archived) != 1 || archived[0].ID != "b" {
		t.Fatalf("expected only b, got %v", archived)
	}
}

func TestUpdateAndSetActive(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rec := testRecord("r1", core.KindSavings)
	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("create: %v", err)
	}

	rec.Name = "Emergency fund"
	rec.Amount = core.Money{Cents: 50000}
	rec.UpdatedAt = time.Now().UTC()
	if err := repo.Update(ctx, rec); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := repo.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Emergency fund" || got.Amount.Cents != 50000 {
		t.Fatalf("update not applied: %+v", got)
	}

	if err := repo.SetActive(ctx, "r1", false); err != nil {
		t.Fatalf("archive: %v", err)
	}
	got, _ = repo.Get(ctx, "r1")
	if got.IsActive {
		t.Fatalf("expected archived record")
	}

	if err := repo.SetActive(ctx, "missing", false); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBatchDeletePartialFailure(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, id := range []string{"a", "c"} {
		if err := repo.Create(ctx, testRecord(id, core.KindIncome)); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	res, err := repo.BatchDelete(ctx, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("batch delete: %v", err)
	}
	if res.DeletedCount != 2 {
		t.Fatalf("expected 2 deleted, got %d", res.DeletedCount)
	}
	if len(res.FailedIDs) != 1 || res.FailedIDs[0] != "b" {
		t.Fatalf("expected failed ids [b], got %v", res.FailedIDs)
	}

	// Partial failure leaves the succeeded deletes in place.
	if _, err := repo.Get(ctx, "a"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("a should be gone, got %v", err)
	}
}

func TestPendingExportLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Create(ctx, testRecord("r1", core.KindPortfolio)); err != nil {
		t.Fatalf("create: %v", err)
	}

	pending, err := repo.GetPendingExportRecords(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "r1" {
		t.Fatalf("expected r1 pending, got %v", pending)
	}

	if err := repo.MarkExported(ctx, "r1"); err != nil {
		t.Fatalf("mark exported: %v", err)
	}
	pending, _ = repo.GetPendingExportRecords(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("expected no pending records, got %v", pending)
	}

	// Any update re-queues the record for export.
	if err := repo.SetActive(ctx, "r1", false); err != nil {
		t.Fatalf("set active: %v", err)
	}
	pending, _ = repo.GetPendingExportRecords(ctx, 10)
	if len(pending) != 1 {
		t.Fatalf("update should reset export status, got %v", pending)
	}
}

func TestAssetPositionRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rec := testRecord("p1", core.KindPortfolio)
	pos, err := core.ParsePosition("10.5", "99.99")
	if err != nil {
		t.Fatalf("parse position: %v", err)
	}
	rec.Asset = &pos
	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.Get(ctx, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Asset == nil {
		t.Fatalf("asset position not persisted")
	}
	if got.Asset.Quantity.String() != "10.5" || got.Asset.UnitPrice.String() != "99.99" {
		t.Fatalf("asset mismatch: %+v", got.Asset)
	}
}
