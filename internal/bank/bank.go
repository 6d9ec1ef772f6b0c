package bank

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pyquiz-service/internal/domain"
)

// Source is anything able to hand out questions for a category.
type Source interface {
	Questions(ctx context.Context, categoryID string, count int) ([]domain.Question, error)
	Categories(ctx context.Context) ([]domain.CategoryInfo, error)
}

// Bank serves questions from a primary source and falls back to a local
// catalog whenever the primary fails, times out or returns nothing usable.
type Bank struct {
	primary  Source
	fallback Source
	timeout  time.Duration
	log      *zap.Logger
}

// New builds a bank. primary may be nil, in which case only fallback is used.
func New(primary, fallback Source, timeout time.Duration, log *zap.Logger) *Bank {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bank{primary: primary, fallback: fallback, timeout: timeout, log: log}
}

// FetchQuestions returns between 1 and count distinct, valid questions. An
// unknown category yields an empty slice and no error; an error means no
// source, fallback included, could answer.
func (b *Bank) FetchQuestions(ctx context.Context, categoryID string, count int) ([]domain.Question, error) {
	if count <= 0 {
		return nil, nil
	}

	if b.primary != nil {
		qs, err := b.fromPrimary(ctx, categoryID, count)
		if err == nil && len(qs) > 0 {
			return qs, nil
		}
		b.log.Warn("primary question source unusable, using fallback catalog",
			zap.String("category", categoryID), zap.Error(err))
	}

	qs, err := b.fallback.Questions(ctx, categoryID, count)
	if errors.Is(err, domain.ErrCategoryNotFound) {
		return []domain.Question{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	return Sanitize(qs, count), nil
}

func (b *Bank) fromPrimary(ctx context.Context, categoryID string, count int) ([]domain.Question, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	qs, err := b.primary.Questions(ctx, categoryID, count)
	if err != nil {
		return nil, err
	}
	clean := Sanitize(qs, count)
	if len(clean) == 0 {
		return nil, fmt.Errorf("%w: no valid questions for %s", domain.ErrInvalidQuestion, categoryID)
	}
	return clean, nil
}

// Categories lists categories from the primary source, or the fallback when
// the primary is unavailable.
func (b *Bank) Categories(ctx context.Context) ([]domain.CategoryInfo, error) {
	if b.primary != nil {
		pctx := ctx
		if b.timeout > 0 {
			var cancel context.CancelFunc
			pctx, cancel = context.WithTimeout(ctx, b.timeout)
			defer cancel()
		}
		cats, err := b.primary.Categories(pctx)
		if err == nil && len(cats) > 0 {
			return cats, nil
		}
		b.log.Warn("primary category listing unusable, using fallback catalog", zap.Error(err))
	}
	cats, err := b.fallback.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	return cats, nil
}

// Sanitize drops invalid and duplicate questions and caps the result at count.
func Sanitize(qs []domain.Question, count int) []domain.Question {
	out := make([]domain.Question, 0, min(len(qs), count))
	seen := make(map[string]struct{}, len(qs))
	for _, q := range qs {
		if len(out) == count {
			break
		}
		if q.Validate() != nil {
			continue
		}
		if _, dup := seen[q.ID]; dup {
			continue
		}
		seen[q.ID] = struct{}{}
		out = append(out, q)
	}
	return out
}
