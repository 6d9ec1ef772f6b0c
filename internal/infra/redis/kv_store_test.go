package redis

import (
	"context"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"

	"pyquiz-service/internal/app"
	"pyquiz-service/internal/domain"
)

func TestKVStoreRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewKVStore(newClient(mr))
	ctx := context.Background()

	if _, err := store.Get(ctx, "best:alice:web"); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := store.Put(ctx, "best:alice:web", []byte("420")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if v, _ := mr.Get("quiz:record:best:alice:web"); v != "420" {
		t.Fatalf("unexpected stored value %q", v)
	}
	got, err := store.Get(ctx, "best:alice:web")
	if err != nil || string(got) != "420" {
		t.Fatalf("unexpected value %q %v", got, err)
	}
}

func TestRecorderOnRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	rec := app.NewRecorder(NewKVStore(newClient(mr)), 2, nil)
	for i := 1; i <= 3; i++ {
		rec.Record(ctx, "alice", domain.SessionSummary{CategoryID: "web", Score: i})
	}
	history := rec.History(ctx, "alice")
	if len(history) != 2 || history[0].Score != 2 {
		t.Fatalf("unexpected history %+v", history)
	}

	mr.Close()
	// Storage down: reads degrade to empty, writes are swallowed.
	if h := rec.History(ctx, "alice"); len(h) != 0 {
		t.Fatalf("expected empty history while redis is down")
	}
	rec.Record(ctx, "alice", domain.SessionSummary{Score: 9})
}
