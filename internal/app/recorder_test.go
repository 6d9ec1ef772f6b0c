package app_test

import (
	"context"
	"errors"
	"testing"

	"pyquiz-service/internal/app"
	"pyquiz-service/internal/domain"
	"pyquiz-service/internal/infra/memory"
)

func TestRecorderKeepsLatestTen(t *testing.T) {
	ctx := context.Background()
	rec := app.NewRecorder(memory.NewKVStore(), 0, nil)

	for i := 1; i <= 11; i++ {
		rec.Record(ctx, "alice", domain.SessionSummary{CategoryID: "python", Score: i * 100, Timestamp: int64(i)})
	}

	history := rec.History(ctx, "alice")
	if len(history) != 10 {
		t.Fatalf("expected 10 summaries, got %d", len(history))
	}
	if history[0].Score != 200 || history[9].Score != 1100 {
		t.Fatalf("expected oldest evicted first, got first=%d last=%d", history[0].Score, history[9].Score)
	}
	if other := rec.History(ctx, "bob"); len(other) != 0 {
		t.Fatalf("expected histories to be per player")
	}
}

func TestRecorderUpdateBest(t *testing.T) {
	ctx := context.Background()
	rec := app.NewRecorder(memory.NewKVStore(), 0, nil)

	if !rec.UpdateBest(ctx, "alice", "web", 500) {
		t.Fatalf("expected first score to be a record")
	}
	if rec.UpdateBest(ctx, "alice", "web", 500) {
		t.Fatalf("expected equal score not to be a record")
	}
	if rec.UpdateBest(ctx, "alice", "web", 200) {
		t.Fatalf("expected lower score not to be a record")
	}
	if !rec.UpdateBest(ctx, "alice", "web", 900) {
		t.Fatalf("expected higher score to be a record")
	}
	if best := rec.Best(ctx, "alice", "web"); best != 900 {
		t.Fatalf("expected best 900, got %d", best)
	}
	if best := rec.Best(ctx, "alice", "python"); best != 0 {
		t.Fatalf("expected categories to be independent, got %d", best)
	}
	if rec.UpdateBest(ctx, "bob", "web", 0) {
		t.Fatalf("expected zero score never to be a record")
	}
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("storage unavailable")
}

func (brokenStore) Put(context.Context, string, []byte) error {
	return errors.New("storage unavailable")
}

func TestRecorderSwallowsStorageFailures(t *testing.T) {
	ctx := context.Background()
	rec := app.NewRecorder(brokenStore{}, 10, nil)

	rec.Record(ctx, "alice", domain.SessionSummary{Score: 300})
	if history := rec.History(ctx, "alice"); len(history) != 0 {
		t.Fatalf("expected empty history from a broken store, got %d", len(history))
	}
	if !rec.UpdateBest(ctx, "alice", "python", 300) {
		t.Fatalf("expected best comparison against an empty baseline")
	}
}

func TestRecorderIgnoresCorruptRecords(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewKVStore()
	_ = kv.Put(ctx, "history:alice", []byte("not json"))
	_ = kv.Put(ctx, "best:alice:web", []byte("NaN"))
	rec := app.NewRecorder(kv, 10, nil)

	rec.Record(ctx, "alice", domain.SessionSummary{Score: 10})
	if history := rec.History(ctx, "alice"); len(history) != 1 {
		t.Fatalf("expected corrupt history to be replaced, got %d", len(history))
	}
	if !rec.UpdateBest(ctx, "alice", "web", 1) {
		t.Fatalf("expected corrupt best to count as zero")
	}
}
