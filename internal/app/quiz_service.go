package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"pyquiz-service/internal/domain"
)

// SessionRepository abstracts how live sessions are tracked (in-memory, Redis, etc).
type SessionRepository interface {
	GetOrCreate(sessionID string, build func() *Session) *Session
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// QuestionProvider supplies playable questions for a category.
type QuestionProvider interface {
	FetchQuestions(ctx context.Context, categoryID string, count int) ([]domain.Question, error)
	Categories(ctx context.Context) ([]domain.CategoryInfo, error)
}

// Reporter mirrors session starts and ends to an external system.
type Reporter interface {
	SessionStarted(ctx context.Context, categoryID string, totalQuestions int) (string, error)
	SessionEnded(ctx context.Context, reportID string, summary domain.SessionSummary) error
}

// NopReporter discards reports.
type NopReporter struct{}

func (NopReporter) SessionStarted(context.Context, string, int) (string, error) { return "", nil }
func (NopReporter) SessionEnded(context.Context, string, domain.SessionSummary) error {
	return nil
}

// Config tunes the quiz use cases.
type Config struct {
	QuestionCount int
	ReportTimeout time.Duration
	Session       SessionOptions
}

// DefaultConfig returns ten questions per session with production timing.
func DefaultConfig() Config {
	return Config{
		QuestionCount: 10,
		ReportTimeout: 3 * time.Second,
		Session:       DefaultSessionOptions(),
	}
}

// QuizService contains the quiz use cases.
type QuizService struct {
	sessions  SessionRepository
	questions QuestionProvider
	recorder  *Recorder
	reporter  Reporter
	cfg       Config
	log       *zap.Logger

	wg sync.WaitGroup
}

func NewQuizService(store SessionRepository, questions QuestionProvider, recorder *Recorder, reporter Reporter, cfg Config, log *zap.Logger) *QuizService {
	if reporter == nil {
		reporter = NopReporter{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.QuestionCount <= 0 {
		cfg.QuestionCount = DefaultConfig().QuestionCount
	}
	if cfg.ReportTimeout <= 0 {
		cfg.ReportTimeout = DefaultConfig().ReportTimeout
	}
	return &QuizService{
		sessions:  store,
		questions: questions,
		recorder:  recorder,
		reporter:  reporter,
		cfg:       cfg,
		log:       log,
	}
}

// Categories lists the playable categories.
func (s *QuizService) Categories(ctx context.Context) ([]domain.CategoryInfo, error) {
	return s.questions.Categories(ctx)
}

// Open registers an idle session for a player, or returns the existing one.
func (s *QuizService) Open(sessionID, playerID string) domain.SessionView {
	session := s.sessions.GetOrCreate(sessionID, func() *Session {
		return newSession(sessionID, playerID, s.cfg.Session, s.handleComplete)
	})
	return session.Snapshot()
}

// Start loads questions for categoryID and begins the countdown. Starting a
// session that is not idle is a no-op.
func (s *QuizService) Start(ctx context.Context, sessionID, categoryID string) (domain.SessionView, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionView{}, domain.ErrSessionNotFound
	}

	gen, ok := session.beginStart(categoryID)
	if !ok {
		return session.Snapshot(), nil
	}

	questions, err := s.questions.FetchQuestions(ctx, categoryID, s.cfg.QuestionCount)
	if err != nil {
		session.abortStart(gen)
		return session.Snapshot(), fmt.Errorf("fetch questions for %s: %w", categoryID, err)
	}
	if len(questions) == 0 {
		session.abortStart(gen)
		return session.Snapshot(), fmt.Errorf("%w: %s", domain.ErrCategoryUnplayable, categoryID)
	}

	reportID := s.reportStart(ctx, categoryID, len(questions))

	started, err := session.applyStart(gen, categoryID, questions, reportID)
	if err != nil {
		return session.Snapshot(), err
	}
	if !started {
		s.log.Debug("discarding questions for reset session", zap.String("session", sessionID))
	}
	return session.Snapshot(), nil
}

// Restart resets the session and starts the same category again.
func (s *QuizService) Restart(ctx context.Context, sessionID string) (domain.SessionView, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionView{}, domain.ErrSessionNotFound
	}
	categoryID := session.CategoryID()
	view := session.Reset()
	if categoryID == "" {
		return view, nil
	}
	return s.Start(ctx, sessionID, categoryID)
}

// SubmitAnswer answers the question at questionIndex. The result is nil when
// the submission was ignored (duplicate, stale or out of range).
func (s *QuizService) SubmitAnswer(_ context.Context, sessionID string, questionIndex, option int) (*domain.AnswerResult, domain.SessionView, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.SessionView{}, domain.ErrSessionNotFound
	}
	result := session.Submit(questionIndex, option)
	return result, session.Snapshot(), nil
}

// Reset returns the session to idle, cancelling any countdown or pending load.
func (s *QuizService) Reset(sessionID string) (domain.SessionView, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionView{}, domain.ErrSessionNotFound
	}
	return session.Reset(), nil
}

// Subscribe returns a channel that receives session views.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, sessionID string) (<-chan domain.SessionView, func(), error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// Leave stops the session and forgets it.
func (s *QuizService) Leave(sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.Reset()
	s.sessions.Delete(sessionID)
}

// Export renders the result document of a finished session.
func (s *QuizService) Export(sessionID string) (domain.ResultExport, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ResultExport{}, domain.ErrSessionNotFound
	}
	summary, ok := session.Summary()
	if !ok {
		return domain.ResultExport{}, domain.ErrSessionNotComplete
	}
	return domain.NewResultExport(summary, time.Local), nil
}

// History returns the player's recent sessions, oldest first.
func (s *QuizService) History(ctx context.Context, playerID string) []domain.SessionSummary {
	return s.recorder.History(ctx, playerID)
}

// Best returns the player's best score for a category.
func (s *QuizService) Best(ctx context.Context, playerID, categoryID string) int {
	return s.recorder.Best(ctx, playerID, categoryID)
}

// Wait blocks until in-flight completion handling (recording, reporting) finishes.
func (s *QuizService) Wait() {
	s.wg.Wait()
}

func (s *QuizService) reportStart(ctx context.Context, categoryID string, total int) string {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ReportTimeout)
	defer cancel()
	id, err := s.reporter.SessionStarted(ctx, categoryID, total)
	if err != nil {
		s.log.Warn("report session start", zap.String("category", categoryID), zap.Error(err))
		return ""
	}
	return id
}

// handleComplete runs once per finished attempt, off the session lock.
func (s *QuizService) handleComplete(session *Session, gen uint64, summary domain.SessionSummary) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx := context.Background()

		s.recorder.Record(ctx, session.PlayerID(), summary)
		best := summary.Score
		newRecord := s.recorder.UpdateBest(ctx, session.PlayerID(), summary.CategoryID, summary.Score)
		if !newRecord {
			best = s.recorder.Best(ctx, session.PlayerID(), summary.CategoryID)
		}
		session.applyRecord(gen, newRecord, best)

		reportID := session.reportIDFor(gen)
		if reportID == "" {
			return
		}
		reportCtx, cancel := context.WithTimeout(ctx, s.cfg.ReportTimeout)
		defer cancel()
		if err := s.reporter.SessionEnded(reportCtx, reportID, summary); err != nil {
			s.log.Warn("report session end", zap.String("report", reportID), zap.Error(err))
		}
	}()
}
