package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"finbase/internal/core"
	"finbase/internal/storage"
)

type fakePublisher struct {
	changes  []string
	backups  []string
	failNext bool
}

func (f *fakePublisher) PublishRecordChange(_ context.Context, id, kind, op string) error {
	if f.failNext {
		f.failNext = false
		return errors.New("queue down")
	}
	f.changes = append(f.changes, kind+":"+op)
	return nil
}

func (f *fakePublisher) PublishBackupRequest(_ context.Context, requestID string) error {
	f.backups = append(f.backups, requestID)
	return nil
}

func newTestService(t *testing.T) (*RecordService, *fakePublisher) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "finbase.db"))
	if err != nil {
		t.Fatalf("open test repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	pub := &fakePublisher{}
	return NewRecordService(repo, pub), pub
}

func newRecord(kind core.Kind, name string) core.Record {
	return core.Record{
		Kind:      kind,
		Name:      name,
		Amount:    core.Money{Cents: 10000},
		Currency:  "EUR",
		Frequency: core.OneTime,
	}
}

func TestCreateAssignsIDAndPublishes(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, newRecord(core.KindIncome, "Salary"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected assigned id")
	}
	if !created.IsActive {
		t.Fatalf("new records must start active")
	}
	if len(pub.changes) != 1 || pub.changes[0] != "income:create" {
		t.Fatalf("expected income:create publish, got %v", pub.changes)
	}
}

func TestCreateRejectsInvalidRecord(t *testing.T) {
	svc, pub := newTestService(t)
	bad := newRecord(core.KindIncome, "")
	if _, err := svc.Create(context.Background(), bad); err == nil {
		t.Fatalf("expected validation error")
	}
	if len(pub.changes) != 0 {
		t.Fatalf("invalid record must not publish, got %v", pub.changes)
	}
}

func TestUpdateAppliesPatch(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, newRecord(core.KindBudget, "Groceries"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	name := "Food"
	amount := core.Money{Cents: 40000}
	updated, err := svc.Update(ctx, created.ID, core.RecordPatch{Name: &name, Amount: &amount})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Food" || updated.Amount.Cents != 40000 {
		t.Fatalf("patch not applied: %+v", updated)
	}
	if pub.changes[len(pub.changes)-1] != "budget:update" {
		t.Fatalf("expected budget:update, got %v", pub.changes)
	}
}

func TestUpdateArchiveOp(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	created, _ := svc.Create(ctx, newRecord(core.KindSavings, "Fund"))

	inactive := false
	updated, err := svc.Update(ctx, created.ID, core.RecordPatch{IsActive: &inactive})
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if updated.IsActive {
		t.Fatalf("expected archived record")
	}
	if pub.changes[len(pub.changes)-1] != "savings:archive" {
		t.Fatalf("expected savings:archive, got %v", pub.changes)
	}

	active := true
	if _, err := svc.Update(ctx, created.ID, core.RecordPatch{IsActive: &active}); err != nil {
		t.Fatalf("unarchive: %v", err)
	}
	if pub.changes[len(pub.changes)-1] != "savings:unarchive" {
		t.Fatalf("expected savings:unarchive, got %v", pub.changes)
	}
}

func TestUpdateUnknownID(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Update(context.Background(), "missing", core.RecordPatch{}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	svc, pub := newTestService(t)
	pub.failNext = true
	created, err := svc.Create(context.Background(), newRecord(core.KindTax, "VAT"))
	if err != nil {
		t.Fatalf("create should survive a publish failure: %v", err)
	}
	if _, err := svc.Get(context.Background(), created.ID); err != nil {
		t.Fatalf("record should be persisted: %v", err)
	}
}

func TestBatchArchiveAggregatesFailures(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, _ := svc.Create(ctx, newRecord(core.KindIncome, "A"))
	c, _ := svc.Create(ctx, newRecord(core.KindIncome, "C"))

	res := svc.BatchArchive(ctx, core.KindIncome, []string{a.ID, "missing", c.ID}, false)
	if res.Succeeded != 2 || res.Failed != 1 {
		t.Fatalf("expected 2/1, got %d/%d", res.Succeeded, res.Failed)
	}
	if len(res.FailedIDs) != 1 || res.FailedIDs[0] != "missing" {
		t.Fatalf("expected failed ids [missing], got %v", res.FailedIDs)
	}

	archived, err := svc.List(ctx, core.KindIncome, false)
	if err != nil {
		t.Fatalf("list archived: %v", err)
	}
	if len(archived) != 2 {
		t.Fatalf("expected 2 archived records, got %d", len(archived))
	}
}

func TestBatchDeleteReportsFailedIDs(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, _ := svc.Create(ctx, newRecord(core.KindPortfolio, "A"))
	res, err := svc.BatchDelete(ctx, core.KindPortfolio, []string{a.ID, "ghost"})
	if err != nil {
		t.Fatalf("batch delete: %v", err)
	}
	if res.DeletedCount != 1 || len(res.FailedIDs) != 1 || res.FailedIDs[0] != "ghost" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestRequestBackup(t *testing.T) {
	svc, pub := newTestService(t)
	id, err := svc.RequestBackup(context.Background())
	if err != nil {
		t.Fatalf("request backup: %v", err)
	}
	if id == "" || len(pub.backups) != 1 || pub.backups[0] != id {
		t.Fatalf("backup request not published: id=%q backups=%v", id, pub.backups)
	}
}

func TestListRejectsUnknownKind(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.List(context.Background(), "admin", true); !errors.Is(err, core.ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}
