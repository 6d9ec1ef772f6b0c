package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"pyquiz-service/internal/domain"
	"pyquiz-service/internal/infra/memory"
)

func TestCategoryRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	loader := &countingLoader{CategoryLoader: memory.MustDefaultCatalog()}
	repo := NewCategoryRepository(client, loader, time.Minute)

	first, err := repo.GetCategory(context.Background(), "web")
	if err != nil {
		t.Fatalf("get category: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("quiz:category:web") {
		t.Fatalf("expected category cached in redis")
	}
	if ttl := mr.TTL("quiz:category:web"); ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Fatalf("expected ttl with jitter, got %s", ttl)
	}

	// Second call should hit cache, loader not incremented.
	second, _ := repo.GetCategory(context.Background(), "web")
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if len(second.Questions) != len(first.Questions) || second.Questions[0].CorrectOptionIndex != first.Questions[0].CorrectOptionIndex {
		t.Fatalf("cached category differs from loaded one")
	}

	mr.FastForward(2 * time.Minute)
	_, _ = repo.GetCategory(context.Background(), "web")
	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, loader calls=%d", loader.calls)
	}
}

func TestCategoryRepositoryDoesNotCacheMisses(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	repo := NewCategoryRepository(newClient(mr), memory.MustDefaultCatalog(), time.Minute)
	if _, err := repo.GetCategory(context.Background(), "cobol"); !errors.Is(err, domain.ErrCategoryNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if mr.Exists("quiz:category:cobol") {
		t.Fatalf("expected miss not to be cached")
	}
}

func TestCategoryRepositoryIgnoresCorruptEntries(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()
	_ = mr.Set("quiz:category:python", "{broken")

	loader := &countingLoader{CategoryLoader: memory.MustDefaultCatalog()}
	repo := NewCategoryRepository(newClient(mr), loader, time.Minute)
	cat, err := repo.GetCategory(context.Background(), "python")
	if err != nil || len(cat.Questions) == 0 {
		t.Fatalf("expected reload over corrupt cache, got %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader to be consulted")
	}
}

type countingLoader struct {
	CategoryLoader
	calls int
}

func (l *countingLoader) LoadCategory(ctx context.Context, categoryID string) (domain.Category, error) {
	l.calls++
	return l.CategoryLoader.LoadCategory(ctx, categoryID)
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
