package jsonbackend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/FranksOps/searchcredit/internal/storage"
)

func TestJSONBackend(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "history.jsonl")

	b, err := New(filePath)
	if err != nil {
		t.Fatalf("Failed to create JSON backend: %v", err)
	}

	ctx := context.Background()
	now := time.Now().Truncate(time.Millisecond).UTC()

	recs := []*storage.SearchRecord{
		{ID: "r1", RunID: "run-a", Term: "weather today", Succeeded: true, Message: "searched successfully", Duration: 1200 * time.Millisecond, CreatedAt: now.Add(-3 * time.Hour)},
		{ID: "r2", RunID: "run-a", Term: "pizza, \"thin crust\"", Succeeded: false, Message: "results did not appear within 10s: Bing challenge detected", Duration: 10 * time.Second, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "r3", RunID: "run-b", Term: "python tutorials", Succeeded: true, Message: "searched successfully", Duration: 900 * time.Millisecond, CreatedAt: now.Add(-1 * time.Hour)},
	}
	for _, r := range recs {
		if err := b.Save(ctx, r); err != nil {
			t.Fatalf("Failed to save %s: %v", r.ID, err)
		}
	}

	all, err := b.Query(ctx, storage.Filter{})
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(all))
	}
	if all[0].ID != "r3" || all[2].ID != "r1" {
		t.Errorf("Expected newest first, got %s..%s", all[0].ID, all[2].ID)
	}

	got := all[1]
	if got.Term != recs[1].Term || got.Message != recs[1].Message || got.Succeeded {
		t.Errorf("Unexpected round trip: %+v", got)
	}
	if got.Duration != recs[1].Duration {
		t.Errorf("Expected Duration %v, got %v", recs[1].Duration, got.Duration)
	}
	if !got.CreatedAt.Equal(recs[1].CreatedAt) {
		t.Errorf("Expected CreatedAt %v, got %v", recs[1].CreatedAt, got.CreatedAt)
	}

	runA, err := b.Query(ctx, storage.Filter{RunID: "run-a"})
	if err != nil {
		t.Fatalf("Failed to query run: %v", err)
	}
	if len(runA) != 2 {
		t.Fatalf("Expected 2 results for run-a, got %d", len(runA))
	}

	no := false
	failed, err := b.Query(ctx, storage.Filter{Succeeded: &no})
	if err != nil {
		t.Fatalf("Failed to query failures: %v", err)
	}
	if len(failed) != 1 || failed[0].ID != "r2" {
		t.Fatalf("Expected only r2 as failure, got %v", failed)
	}

	since := now.Add(-150 * time.Minute)
	recent, err := b.Query(ctx, storage.Filter{Since: &since, Limit: 1})
	if err != nil {
		t.Fatalf("Failed to query since: %v", err)
	}
	if len(recent) != 1 || recent[0].ID != "r3" {
		t.Fatalf("Expected r3, got %v", recent)
	}

	page, err := b.Query(ctx, storage.Filter{Offset: 2, Limit: 5})
	if err != nil {
		t.Fatalf("Failed to query page: %v", err)
	}
	if len(page) != 1 || page[0].ID != "r1" {
		t.Fatalf("Expected r1 on last page, got %v", page)
	}

	if err := b.Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}

	// reopening appends to the existing file
	b, err = New(filePath)
	if err != nil {
		t.Fatalf("Failed to reopen: %v", err)
	}
	defer b.Close()
	if err := b.Save(ctx, &storage.SearchRecord{ID: "r4", RunID: "run-c", Term: "news", CreatedAt: now}); err != nil {
		t.Fatalf("Failed to save after reopen: %v", err)
	}
	all, err = b.Query(ctx, storage.Filter{})
	if err != nil {
		t.Fatalf("Failed to query after reopen: %v", err)
	}
	if len(all) != 4 || all[0].ID != "r4" {
		t.Fatalf("Expected 4 results with r4 first, got %d", len(all))
	}
}
