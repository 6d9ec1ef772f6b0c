package postgres

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/uptrace/bun"

	"pyquiz-service/internal/domain"
)

type gameSession struct {
	bun.BaseModel `bun:"table:game_sessions,alias:gs"`

	ID             int64        `bun:"id,pk,autoincrement"`
	CategoryID     string       `bun:"category_id,notnull"`
	TotalQuestions int          `bun:"total_questions,notnull"`
	Score          int          `bun:"score,notnull"`
	CorrectAnswers int          `bun:"correct_answers,notnull"`
	Accuracy       float64      `bun:"accuracy,notnull"` // percent
	Duration       int          `bun:"duration_seconds,notnull"`
	StartedAt      time.Time    `bun:"started_at,notnull"`
	EndedAt        bun.NullTime `bun:"ended_at"`
}

// SessionReporter records session starts and ends in game_sessions.
type SessionReporter struct {
	db  *bun.DB
	now func() time.Time
}

func NewSessionReporter(db *bun.DB) *SessionReporter {
	return &SessionReporter{db: db, now: time.Now}
}

func (r *SessionReporter) SessionStarted(ctx context.Context, categoryID string, totalQuestions int) (string, error) {
	row := &gameSession{
		CategoryID:     categoryID,
		TotalQuestions: totalQuestions,
		StartedAt:      r.now().UTC(),
	}
	if _, err := r.db.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		return "", fmt.Errorf("insert game session: %w", err)
	}
	return strconv.FormatInt(row.ID, 10), nil
}

func (r *SessionReporter) SessionEnded(ctx context.Context, reportID string, summary domain.SessionSummary) error {
	id, err := strconv.ParseInt(reportID, 10, 64)
	if err != nil {
		return fmt.Errorf("parse report id %q: %w", reportID, err)
	}
	row := &gameSession{
		ID:             id,
		Score:          summary.Score,
		CorrectAnswers: summary.CorrectAnswers,
		Accuracy:       summary.AccuracyPercent(),
		Duration:       summary.Duration,
		EndedAt:        bun.NullTime{Time: r.now().UTC()},
	}
	res, err := r.db.NewUpdate().
		Model(row).
		Column("score", "correct_answers", "accuracy", "duration_seconds", "ended_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update game session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update game session %d: %w", id, domain.ErrSessionNotFound)
	}
	return nil
}

// Leaderboard returns the best finished sessions, optionally for one category.
func (r *SessionReporter) Leaderboard(ctx context.Context, categoryID string, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []gameSession
	q := r.db.NewSelect().
		Model(&rows).
		Where("ended_at IS NOT NULL").
		OrderExpr("score DESC, ended_at ASC").
		Limit(limit)
	if categoryID != "" {
		q = q.Where("category_id = ?", categoryID)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("select leaderboard: %w", err)
	}

	entries := make([]domain.LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, domain.LeaderboardEntry{
			CategoryID:     row.CategoryID,
			Score:          row.Score,
			Accuracy:       row.Accuracy,
			CorrectAnswers: row.CorrectAnswers,
			TotalQuestions: row.TotalQuestions,
			Duration:       row.Duration,
			CreatedAt:      row.StartedAt,
		})
	}
	return entries, nil
}
