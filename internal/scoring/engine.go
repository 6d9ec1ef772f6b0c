package scoring

import (
	"fmt"

	"pyquiz-service/internal/domain"
)

// Config holds the normalized scoring constants.
type Config struct {
	TimeLimit    int // seconds per question
	TimeBonusMax int // bonus for an answer with the full time left
	StreakBonus  int // bonus per consecutive correct answer before this one
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		TimeLimit:    30,
		TimeBonusMax: 50,
		StreakBonus:  10,
	}
}

// Validate rejects constants under which the award would stop growing with
// remaining time or streak.
func (c Config) Validate() error {
	if c.TimeLimit <= 0 {
		return fmt.Errorf("scoring: time limit must be positive, got %d", c.TimeLimit)
	}
	if c.TimeBonusMax < c.TimeLimit {
		return fmt.Errorf("scoring: time bonus %d must be at least the time limit %d", c.TimeBonusMax, c.TimeLimit)
	}
	if c.StreakBonus <= 0 {
		return fmt.Errorf("scoring: streak bonus must be positive, got %d", c.StreakBonus)
	}
	return nil
}

// TimeBonus scales remaining seconds onto [0, TimeBonusMax], rounding down.
func (c Config) TimeBonus(timeRemaining int) int {
	if timeRemaining <= 0 {
		return 0
	}
	if timeRemaining > c.TimeLimit {
		timeRemaining = c.TimeLimit
	}
	return timeRemaining * c.TimeBonusMax / c.TimeLimit
}

// ComputeAward returns the points for answering q with option.
// Formula: points + time bonus + streak * streak bonus, or 0 when the answer
// is wrong or the question timed out.
func ComputeAward(q domain.Question, option int, timedOut bool, timeRemaining, streak int, cfg Config) int {
	if timedOut || !q.IsCorrect(option) {
		return 0
	}
	if streak < 0 {
		streak = 0
	}
	return q.Points + cfg.TimeBonus(timeRemaining) + streak*cfg.StreakBonus
}

// NextStreak applies the streak rule for one processed answer.
func NextStreak(correct bool, streak int) int {
	if !correct {
		return 0
	}
	return streak + 1
}
