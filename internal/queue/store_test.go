package queue

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenPath(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewRequestAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	item, err := store.NewRequest(ctx, "Test Person", "education", 45)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if item.ID == 0 {
		t.Fatal("expected assigned id")
	}
	if item.Status != StatusPending {
		t.Fatalf("expected pending status, got %s", item.Status)
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if fetched == nil || fetched.Topic != "Test Person" || fetched.AudienceTag != "education" || fetched.TargetDurationSec != 45 {
		t.Fatalf("unexpected item %+v", fetched)
	}
}

func TestNewRequestRequiresTopic(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.NewRequest(context.Background(), "   ", "", 30); err == nil {
		t.Fatal("expected error for empty topic")
	}
}

func TestUpdatePersistsStagePayloads(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	item, err := store.NewRequest(ctx, "Test Person", "", 30)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}

	if err := item.SetResearch(ResearchPayload{
		Title: "Test Person",
		Facts: []string{"Led a movement.", "Published in 1855."},
	}); err != nil {
		t.Fatalf("set research: %v", err)
	}
	item.Status = StatusResearched
	item.Script = "a script"
	if err := item.SetAssets([]Asset{{URL: "https://img.example/1.jpg", SourceID: "pexels:1"}}); err != nil {
		t.Fatalf("set assets: %v", err)
	}
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("update: %v", err)
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	research, err := fetched.Research()
	if err != nil {
		t.Fatalf("decode research: %v", err)
	}
	if len(research.Facts) != 2 {
		t.Fatalf("expected 2 facts, got %d", len(research.Facts))
	}
	assets, err := fetched.Assets()
	if err != nil {
		t.Fatalf("decode assets: %v", err)
	}
	if len(assets) != 1 || assets[0].SourceID != "pexels:1" {
		t.Fatalf("unexpected assets %+v", assets)
	}
	if fetched.Status != StatusResearched {
		t.Fatalf("status not persisted, got %s", fetched.Status)
	}
}

func TestNextForStatusesOrdering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, _ := store.NewRequest(ctx, "First", "", 30)
	time.Sleep(5 * time.Millisecond)
	if _, err := store.NewRequest(ctx, "Second", "", 30); err != nil {
		t.Fatalf("new request: %v", err)
	}

	next, err := store.NextForStatuses(ctx, StatusPending)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if next == nil || next.ID != first.ID {
		t.Fatalf("expected oldest pending item, got %+v", next)
	}
}

func TestRetryFailedExcludesRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	failed, _ := store.NewRequest(ctx, "Failed", "", 30)
	failed.SetFailed("provider down")
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("update failed item: %v", err)
	}

	rejected, _ := store.NewRequest(ctx, "Rejected", "", 30)
	rejected.SetRejected("blocked term")
	if err := store.Update(ctx, rejected); err != nil {
		t.Fatalf("update rejected item: %v", err)
	}

	count, err := store.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 retried item, got %d", count)
	}

	got, _ := store.GetByID(ctx, rejected.ID)
	if got.Status != StatusRejected {
		t.Fatalf("rejected item must stay rejected, got %s", got.Status)
	}
}

func TestReclaimStaleProcessing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	item, _ := store.NewRequest(ctx, "Stuck", "", 30)
	stale := time.Now().UTC().Add(-10 * time.Minute)
	item.Status = StatusScripting
	item.LastHeartbeat = &stale
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("update: %v", err)
	}

	count, err := store.ReclaimStaleProcessing(ctx, time.Now().UTC().Add(-5*time.Minute))
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 reclaimed item, got %d", count)
	}

	got, _ := store.GetByID(ctx, item.ID)
	if got.Status != StatusResearched {
		t.Fatalf("expected rollback to researched, got %s", got.Status)
	}
	if got.LastHeartbeat != nil {
		t.Fatal("heartbeat should be cleared")
	}
}

func TestHealthSummaryCounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	pending, _ := store.NewRequest(ctx, "A", "", 30)
	_ = pending

	done, _ := store.NewRequest(ctx, "B", "", 30)
	done.Status = StatusCompleted
	_ = store.Update(ctx, done)

	rejected, _ := store.NewRequest(ctx, "C", "", 30)
	rejected.SetRejected("issues")
	_ = store.Update(ctx, rejected)

	summary, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if summary.Total != 3 || summary.Pending != 1 || summary.Completed != 1 || summary.Rejected != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestSchemaMismatchDetected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "queue.db")
	store, err := OpenPath(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := store.db.Exec(`UPDATE schema_version SET version = 99`); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = store.Close()

	if _, err := OpenPath(path); err == nil {
		t.Fatal("expected schema mismatch error")
	}
}
