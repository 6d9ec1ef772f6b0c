package app

import (
	"sync"
	"time"

	"pyquiz-service/internal/clock"
	"pyquiz-service/internal/domain"
	"pyquiz-service/internal/scoring"
)

// SessionOptions configures how sessions keep time and score.
type SessionOptions struct {
	Scoring scoring.Config
	Tick    time.Duration
	Ticker  clock.TickerFactory // nil selects clock.RealTicker
	Now     func() time.Time
}

// DefaultSessionOptions uses the production scoring constants and a 1s tick.
func DefaultSessionOptions() SessionOptions {
	return SessionOptions{
		Scoring: scoring.DefaultConfig(),
		Tick:    time.Second,
		Now:     time.Now,
	}
}

type completeFunc func(s *Session, gen uint64, summary domain.SessionSummary)

// Session serializes every event of one player's quiz attempt through a Machine
// and owns the countdown driving it.
type Session struct {
	id         string
	playerID   string
	now        func() time.Time
	onComplete completeFunc

	mu          sync.Mutex
	machine     *Machine
	clock       *clock.Clock
	clockGen    uint64
	gen         uint64 // bumped on start and reset; guards async results
	loading     bool
	categoryID  string
	startedAt   time.Time
	reportID    string
	lastResult  *domain.AnswerResult
	summary     *domain.SessionSummary
	recorded    bool
	newRecord   bool
	bestScore   int
	subscribers map[chan domain.SessionView]struct{}
}

// NewSession builds an idle session. Infrastructure layers and tests use it to
// seed stores; the service wires completion handling itself.
func NewSession(id, playerID string, opts SessionOptions) *Session {
	return newSession(id, playerID, opts, nil)
}

func newSession(id, playerID string, opts SessionOptions, onComplete completeFunc) *Session {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Tick <= 0 {
		opts.Tick = time.Second
	}
	s := &Session{
		id:          id,
		playerID:    playerID,
		now:         opts.Now,
		onComplete:  onComplete,
		machine:     NewMachine(opts.Scoring),
		subscribers: make(map[chan domain.SessionView]struct{}),
	}
	var clockOpts []clock.Option
	if opts.Ticker != nil {
		clockOpts = append(clockOpts, clock.WithTicker(opts.Ticker))
	}
	s.clock = clock.New(opts.Scoring.TimeLimit, opts.Tick, s.onClock, clockOpts...)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// PlayerID returns the owning player.
func (s *Session) PlayerID() string { return s.playerID }

// Snapshot returns the current view of the session.
func (s *Session) Snapshot() domain.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// CategoryID returns the category of the current or last attempt.
func (s *Session) CategoryID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.categoryID
}

// Summary returns the completion summary, if the session is complete.
func (s *Session) Summary() (domain.SessionSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.summary == nil {
		return domain.SessionSummary{}, false
	}
	return *s.summary, true
}

// beginStart claims the right to load questions. It fails while a load is
// already running or the session is not idle.
func (s *Session) beginStart(categoryID string) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading || s.machine.State().Status != domain.StatusIdle {
		return 0, false
	}
	s.loading = true
	s.categoryID = categoryID
	s.broadcastLocked()
	return s.gen, true
}

func (s *Session) abortStart(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	s.loading = false
	s.broadcastLocked()
}

// applyStart installs fetched questions unless the session was reset meanwhile.
func (s *Session) applyStart(gen uint64, categoryID string, questions []domain.Question, reportID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false, nil
	}
	s.loading = false

	out, err := s.machine.Dispatch(Start{Questions: questions})
	if err != nil || !out.Started {
		s.broadcastLocked()
		return false, err
	}
	s.gen++
	s.categoryID = categoryID
	s.startedAt = s.now()
	s.reportID = reportID
	s.lastResult = nil
	s.summary = nil
	s.recorded, s.newRecord, s.bestScore = false, false, 0
	s.clockGen = s.clock.Reset()
	s.broadcastLocked()
	return true, nil
}

// Submit answers the question at questionIndex. It returns nil when the event
// was ignored (stale index, duplicate, or no session in progress).
func (s *Session) Submit(questionIndex, option int) *domain.AnswerResult {
	s.mu.Lock()
	out, _ := s.machine.Dispatch(Submit{QuestionIndex: questionIndex, Option: option})
	summary, gen := s.afterLocked(out)
	s.mu.Unlock()

	s.finish(gen, summary)
	return out.Answered
}

func (s *Session) onClock(ev clock.Event) {
	s.mu.Lock()
	if ev.Generation != s.clockGen {
		s.mu.Unlock()
		return
	}
	idx := s.machine.State().CurrentIndex
	var out Outcome
	if ev.Expired {
		out, _ = s.machine.Dispatch(Expire{QuestionIndex: idx})
	} else {
		out, _ = s.machine.Dispatch(Tick{QuestionIndex: idx, Remaining: ev.Remaining})
	}
	summary, gen := s.afterLocked(out)
	s.mu.Unlock()

	s.finish(gen, summary)
}

// afterLocked reacts to a dispatched outcome: restarts or stops the countdown,
// builds the summary on completion and notifies subscribers.
func (s *Session) afterLocked(out Outcome) (*domain.SessionSummary, uint64) {
	if out.Ignored {
		return nil, s.gen
	}
	if out.Answered != nil {
		s.lastResult = out.Answered
	}
	var summary *domain.SessionSummary
	switch {
	case out.Complete:
		s.clock.Stop()
		s.clockGen = 0
		st := s.machine.State()
		sum := domain.NewSessionSummary(s.categoryID, st.Score, st.CorrectCount, len(st.Questions), s.startedAt, s.now())
		s.summary = &sum
		summary = &sum
	case out.Advanced:
		s.clockGen = s.clock.Reset()
	}
	s.broadcastLocked()
	return summary, s.gen
}

func (s *Session) finish(gen uint64, summary *domain.SessionSummary) {
	if summary == nil || s.onComplete == nil {
		return
	}
	s.onComplete(s, gen, *summary)
}

// applyRecord publishes the recorder's verdict for the attempt identified by gen.
func (s *Session) applyRecord(gen uint64, newRecord bool, best int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	s.recorded = true
	s.newRecord = newRecord
	s.bestScore = best
	s.broadcastLocked()
}

func (s *Session) reportIDFor(gen uint64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return ""
	}
	return s.reportID
}

// Reset stops the countdown and returns the session to idle. Any in-flight
// question load or clock event for the previous attempt is discarded.
func (s *Session) Reset() domain.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.clock.Stop()
	s.clockGen = 0
	_, _ = s.machine.Dispatch(Reset{})
	s.loading = false
	s.startedAt = time.Time{}
	s.reportID = ""
	s.lastResult = nil
	s.summary = nil
	s.recorded, s.newRecord, s.bestScore = false, false, 0
	return s.broadcastLocked()
}

func (s *Session) subscribe() (<-chan domain.SessionView, func()) {
	ch := make(chan domain.SessionView, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() domain.SessionView {
	view := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- view:
		default:
			// Slow subscriber: drop its oldest pending view so the newest always lands.
			select {
			case <-ch:
			default:
			}
			ch <- view
		}
	}
	return view
}

func (s *Session) snapshotLocked() domain.SessionView {
	st := s.machine.State()
	view := domain.SessionView{
		SessionID:      s.id,
		PlayerID:       s.playerID,
		CategoryID:     s.categoryID,
		Status:         st.Status,
		Loading:        s.loading,
		CurrentIndex:   st.CurrentIndex,
		TotalQuestions: len(st.Questions),
		Score:          st.Score,
		CorrectAnswers: st.CorrectCount,
		Streak:         st.Streak,
		TimeRemaining:  st.TimeRemaining,
		Answers:        st.Answers,
		LastResult:     s.lastResult,
		Recorded:       s.recorded,
		NewRecord:      s.newRecord,
		BestScore:      s.bestScore,
		UpdatedAt:      s.now(),
	}
	if view.Answers == nil {
		view.Answers = []int{}
	}
	if st.Status == domain.StatusInProgress {
		q := st.Questions[st.CurrentIndex].Public()
		view.Question = &q
	}
	if s.summary != nil {
		sum := *s.summary
		view.Summary = &sum
	}
	return view
}
