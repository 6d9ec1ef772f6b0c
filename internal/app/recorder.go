package app

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"pyquiz-service/internal/domain"
)

// DefaultHistoryCapacity bounds how many summaries are kept per player.
const DefaultHistoryCapacity = 10

// KVStore is the key-value medium the recorder persists to (memory, Redis, SQLite).
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Recorder keeps a bounded history of finished sessions and the best score
// per category. Storage failures never reach the caller.
type Recorder struct {
	store    KVStore
	capacity int
	timeout  time.Duration
	log      *zap.Logger

	mu sync.Mutex
}

// NewRecorder builds a recorder; capacity <= 0 selects DefaultHistoryCapacity.
func NewRecorder(store KVStore, capacity int, log *zap.Logger) *Recorder {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{
		store:    store,
		capacity: capacity,
		timeout:  3 * time.Second,
		log:      log,
	}
}

func historyKey(playerID string) string {
	return "history:" + playerID
}

func bestKey(playerID, categoryID string) string {
	return "best:" + playerID + ":" + categoryID
}

// Record appends summary to the player's history, evicting the oldest entries
// beyond capacity.
func (r *Recorder) Record(ctx context.Context, playerID string, summary domain.SessionSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	history := r.loadHistory(ctx, playerID)
	history = appendBounded(history, summary, r.capacity)

	data, err := json.Marshal(history)
	if err != nil {
		r.log.Warn("encode history", zap.String("player", playerID), zap.Error(err))
		return
	}
	if err := r.store.Put(ctx, historyKey(playerID), data); err != nil {
		r.log.Warn("save history", zap.String("player", playerID), zap.Error(err))
	}
}

// UpdateBest stores score as the category best when it beats the stored one
// and reports whether a new record was set.
func (r *Recorder) UpdateBest(ctx context.Context, playerID, categoryID string, score int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if score <= r.loadBest(ctx, playerID, categoryID) {
		return false
	}
	if err := r.store.Put(ctx, bestKey(playerID, categoryID), []byte(strconv.Itoa(score))); err != nil {
		r.log.Warn("save best score",
			zap.String("player", playerID),
			zap.String("category", categoryID),
			zap.Error(err))
	}
	return true
}

// History returns the player's summaries, oldest first.
func (r *Recorder) History(ctx context.Context, playerID string) []domain.SessionSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.loadHistory(ctx, playerID)
}

// Best returns the stored best score for a category, 0 when none.
func (r *Recorder) Best(ctx context.Context, playerID, categoryID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.loadBest(ctx, playerID, categoryID)
}

func (r *Recorder) loadHistory(ctx context.Context, playerID string) []domain.SessionSummary {
	data, err := r.store.Get(ctx, historyKey(playerID))
	if err != nil {
		if !errors.Is(err, domain.ErrRecordNotFound) {
			r.log.Warn("load history", zap.String("player", playerID), zap.Error(err))
		}
		return []domain.SessionSummary{}
	}
	var history []domain.SessionSummary
	if err := json.Unmarshal(data, &history); err != nil {
		r.log.Warn("decode history", zap.String("player", playerID), zap.Error(err))
		return []domain.SessionSummary{}
	}
	return history
}

func (r *Recorder) loadBest(ctx context.Context, playerID, categoryID string) int {
	data, err := r.store.Get(ctx, bestKey(playerID, categoryID))
	if err != nil {
		if !errors.Is(err, domain.ErrRecordNotFound) {
			r.log.Warn("load best score", zap.String("player", playerID), zap.Error(err))
		}
		return 0
	}
	best, err := strconv.Atoi(string(data))
	if err != nil {
		r.log.Warn("decode best score", zap.String("player", playerID), zap.Error(err))
		return 0
	}
	return best
}

func appendBounded(history []domain.SessionSummary, s domain.SessionSummary, capacity int) []domain.SessionSummary {
	history = append(history, s)
	if over := len(history) - capacity; over > 0 {
		history = append([]domain.SessionSummary(nil), history[over:]...)
	}
	return history
}
