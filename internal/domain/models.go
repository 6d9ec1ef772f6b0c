package domain

import (
	"fmt"
	"time"
)

// Difficulty tags a question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID                 string     `json:"id"`
	Prompt             string     `json:"question"`
	Options            []string   `json:"options"`
	CorrectOptionIndex int        `json:"correctAnswer"`
	Explanation        string     `json:"explanation,omitempty"`
	Difficulty         Difficulty `json:"difficulty"`
	Points             int        `json:"points"`
}

// Validate checks the invariants every playable question must hold.
func (q Question) Validate() error {
	switch {
	case q.ID == "":
		return fmt.Errorf("%w: missing id", ErrInvalidQuestion)
	case len(q.Options) < 2:
		return fmt.Errorf("%w: %s has %d options", ErrInvalidQuestion, q.ID, len(q.Options))
	case q.CorrectOptionIndex < 0 || q.CorrectOptionIndex >= len(q.Options):
		return fmt.Errorf("%w: %s correct option %d out of range", ErrInvalidQuestion, q.ID, q.CorrectOptionIndex)
	case q.Points <= 0:
		return fmt.Errorf("%w: %s has non-positive points", ErrInvalidQuestion, q.ID)
	}
	return nil
}

// IsCorrect reports whether option answers the question.
func (q Question) IsCorrect(option int) bool {
	return option == q.CorrectOptionIndex
}

// Public strips the answer key so the question can be shown to a player.
func (q Question) Public() PublicQuestion {
	return PublicQuestion{
		ID:         q.ID,
		Prompt:     q.Prompt,
		Options:    q.Options,
		Difficulty: q.Difficulty,
		Points:     q.Points,
	}
}

// PublicQuestion is the player-facing view of a question.
type PublicQuestion struct {
	ID         string     `json:"id"`
	Prompt     string     `json:"question"`
	Options    []string   `json:"options"`
	Difficulty Difficulty `json:"difficulty"`
	Points     int        `json:"points"`
}

// Category is a named, ordered collection of questions.
type Category struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Questions   []Question `json:"questions"`
}

// Info returns the listing form of the category.
func (c Category) Info() CategoryInfo {
	return CategoryInfo{
		ID:            c.ID,
		Name:          c.Name,
		Description:   c.Description,
		QuestionCount: len(c.Questions),
	}
}

// CategoryInfo describes a category without its questions.
type CategoryInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	QuestionCount int    `json:"question_count"`
}

// Status is the lifecycle stage of a quiz session.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusInProgress Status = "in_progress"
	StatusComplete   Status = "complete"
)

// Answer slot sentinels. Any other value is the selected option index.
const (
	Unanswered = -1
	TimedOut   = -2
)

// AnswerResult summarizes the outcome of one processed question.
type AnswerResult struct {
	QuestionIndex      int    `json:"questionIndex"`
	QuestionID         string `json:"questionId"`
	Selected           int    `json:"selected"`
	TimedOut           bool   `json:"timedOut"`
	Correct            bool   `json:"correct"`
	CorrectOptionIndex int    `json:"correctAnswer"`
	Explanation        string `json:"explanation,omitempty"`
	Awarded            int    `json:"awarded"`
	TotalScore         int    `json:"totalScore"`
	Streak             int    `json:"streak"`
}

// SessionSummary is the immutable record of a finished session.
type SessionSummary struct {
	CategoryID     string  `json:"categoryId"`
	Score          int     `json:"score"`
	CorrectAnswers int     `json:"correctAnswers"`
	TotalQuestions int     `json:"totalQuestions"`
	Accuracy       float64 `json:"accuracy"` // fraction in [0,1]
	Duration       int     `json:"duration"` // seconds
	Timestamp      int64   `json:"timestamp"` // unix milliseconds
}

// NewSessionSummary derives accuracy and timestamps from raw counters.
func NewSessionSummary(categoryID string, score, correct, total int, startedAt, finishedAt time.Time) SessionSummary {
	accuracy := 0.0
	if total > 0 {
		accuracy = float64(correct) / float64(total)
	}
	duration := int(finishedAt.Sub(startedAt) / time.Second)
	if duration < 0 {
		duration = 0
	}
	return SessionSummary{
		CategoryID:     categoryID,
		Score:          score,
		CorrectAnswers: correct,
		TotalQuestions: total,
		Accuracy:       accuracy,
		Duration:       duration,
		Timestamp:      finishedAt.UnixMilli(),
	}
}

// AccuracyPercent returns accuracy scaled to [0,100].
func (s SessionSummary) AccuracyPercent() float64 {
	return s.Accuracy * 100
}

// Performance buckets accuracy into a rating and a star count.
func (s SessionSummary) Performance() (string, int) {
	pct := s.AccuracyPercent()
	switch {
	case pct >= 90:
		return "Outstanding Performance", 3
	case pct >= 75:
		return "Great Job", 2
	case pct >= 60:
		return "Good Effort", 1
	default:
		return "Keep Practicing", 0
	}
}

// Level is one plus every thousand points scored.
func (s SessionSummary) Level() int {
	return s.Score/1000 + 1
}

// SessionView is a snapshot-friendly view of a session, pushed to subscribers.
type SessionView struct {
	SessionID      string          `json:"sessionId"`
	PlayerID       string          `json:"playerId"`
	CategoryID     string          `json:"categoryId,omitempty"`
	Status         Status          `json:"status"`
	Loading        bool            `json:"loading"`
	CurrentIndex   int             `json:"currentIndex"`
	TotalQuestions int             `json:"totalQuestions"`
	Question       *PublicQuestion `json:"question,omitempty"`
	Score          int             `json:"score"`
	CorrectAnswers int             `json:"correctAnswers"`
	Streak         int             `json:"streak"`
	TimeRemaining  int             `json:"timeRemaining"`
	Answers        []int           `json:"answers"`
	LastResult     *AnswerResult   `json:"lastResult,omitempty"`
	Summary        *SessionSummary `json:"summary,omitempty"`
	Recorded       bool            `json:"recorded"`
	NewRecord      bool            `json:"newRecord"`
	BestScore      int             `json:"bestScore"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// ResultExport is the downloadable document describing one finished session.
type ResultExport struct {
	CategoryID     string `json:"categoryId"`
	Score          int    `json:"score"`
	Accuracy       string `json:"accuracy"`
	CorrectAnswers string `json:"correctAnswers"`
	Level          int    `json:"level"`
	Rating         string `json:"rating"`
	Stars          int    `json:"stars"`
	Date           string `json:"date"`
	Time           string `json:"time"`
}

// NewResultExport renders a summary into its exported form.
func NewResultExport(s SessionSummary, loc *time.Location) ResultExport {
	if loc == nil {
		loc = time.UTC
	}
	at := time.UnixMilli(s.Timestamp).In(loc)
	rating, stars := s.Performance()
	return ResultExport{
		CategoryID:     s.CategoryID,
		Score:          s.Score,
		Accuracy:       fmt.Sprintf("%.1f%%", s.AccuracyPercent()),
		CorrectAnswers: fmt.Sprintf("%d/%d", s.CorrectAnswers, s.TotalQuestions),
		Level:          s.Level(),
		Rating:         rating,
		Stars:          stars,
		Date:           at.Format("2006-01-02"),
		Time:           at.Format("15:04:05"),
	}
}

// LeaderboardEntry is one reported session ranked by score.
type LeaderboardEntry struct {
	CategoryID     string    `json:"categoryId"`
	Score          int       `json:"score"`
	Accuracy       float64   `json:"accuracy"`
	CorrectAnswers int       `json:"correct_answers"`
	TotalQuestions int       `json:"total_questions"`
	Duration       int       `json:"duration"`
	CreatedAt      time.Time `json:"created_at"`
}
