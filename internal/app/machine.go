package app

import (
	"pyquiz-service/internal/domain"
	"pyquiz-service/internal/scoring"
)

// Event is an input accepted by Machine.Dispatch.
type Event interface {
	isEvent()
}

// Start begins a session over a fixed question sequence.
type Start struct {
	Questions []domain.Question
}

// Submit answers the question at QuestionIndex with Option.
type Submit struct {
	QuestionIndex int
	Option        int
}

// Tick mirrors the countdown for the question at QuestionIndex.
type Tick struct {
	QuestionIndex int
	Remaining     int
}

// Expire times out the question at QuestionIndex.
type Expire struct {
	QuestionIndex int
}

// Reset discards the session.
type Reset struct{}

func (Start) isEvent()  {}
func (Submit) isEvent() {}
func (Tick) isEvent()   {}
func (Expire) isEvent() {}
func (Reset) isEvent()  {}

// State is the authoritative data of one quiz attempt.
type State struct {
	Status        domain.Status
	Questions     []domain.Question
	CurrentIndex  int
	Answers       []int
	Awards        []int
	Score         int
	CorrectCount  int
	Streak        int
	TimeRemaining int
}

// Completed reports whether every question has been processed.
func (s State) Completed() bool {
	return s.Status == domain.StatusComplete
}

// Outcome describes what a dispatched event did.
type Outcome struct {
	Ignored  bool
	Started  bool
	Answered *domain.AnswerResult
	Advanced bool // moved on to a new question; the countdown must restart
	Complete bool // this event finished the session
	Reset    bool
}

// Machine is the quiz session state machine. It is not safe for concurrent
// use; Session serializes access.
type Machine struct {
	cfg   scoring.Config
	state State
}

// NewMachine returns an idle machine.
func NewMachine(cfg scoring.Config) *Machine {
	return &Machine{cfg: cfg, state: idleState(cfg)}
}

func idleState(cfg scoring.Config) State {
	return State{Status: domain.StatusIdle, TimeRemaining: cfg.TimeLimit}
}

// State returns a copy of the current state.
func (m *Machine) State() State {
	s := m.state
	s.Answers = append([]int(nil), m.state.Answers...)
	s.Awards = append([]int(nil), m.state.Awards...)
	return s
}

// Dispatch applies one event. Events that are invalid for the current state
// are ignored; the only error is starting with no questions.
func (m *Machine) Dispatch(ev Event) (Outcome, error) {
	switch ev := ev.(type) {
	case Start:
		return m.start(ev)
	case Submit:
		return m.submit(ev), nil
	case Tick:
		return m.tick(ev), nil
	case Expire:
		return m.expire(ev), nil
	case Reset:
		m.state = idleState(m.cfg)
		return Outcome{Reset: true}, nil
	default:
		return Outcome{Ignored: true}, nil
	}
}

func (m *Machine) start(ev Start) (Outcome, error) {
	if m.state.Status != domain.StatusIdle {
		return Outcome{Ignored: true}, nil
	}
	if len(ev.Questions) == 0 {
		return Outcome{Ignored: true}, domain.ErrCategoryUnplayable
	}

	n := len(ev.Questions)
	answers := make([]int, n)
	for i := range answers {
		answers[i] = domain.Unanswered
	}
	m.state = State{
		Status:        domain.StatusInProgress,
		Questions:     append([]domain.Question(nil), ev.Questions...),
		Answers:       answers,
		Awards:        make([]int, n),
		TimeRemaining: m.cfg.TimeLimit,
	}
	return Outcome{Started: true}, nil
}

// pending reports whether idx is the live, unanswered question.
func (m *Machine) pending(idx int) bool {
	return m.state.Status == domain.StatusInProgress &&
		idx == m.state.CurrentIndex &&
		m.state.Answers[idx] == domain.Unanswered
}

func (m *Machine) submit(ev Submit) Outcome {
	if !m.pending(ev.QuestionIndex) {
		return Outcome{Ignored: true}
	}
	q := m.state.Questions[ev.QuestionIndex]
	if ev.Option < 0 || ev.Option >= len(q.Options) {
		return Outcome{Ignored: true}
	}
	return m.record(ev.Option, false)
}

func (m *Machine) expire(ev Expire) Outcome {
	if !m.pending(ev.QuestionIndex) {
		return Outcome{Ignored: true}
	}
	return m.record(domain.TimedOut, true)
}

func (m *Machine) tick(ev Tick) Outcome {
	if !m.pending(ev.QuestionIndex) {
		return Outcome{Ignored: true}
	}
	remaining := ev.Remaining
	if remaining < 0 {
		remaining = 0
	}
	if remaining > m.cfg.TimeLimit {
		remaining = m.cfg.TimeLimit
	}
	m.state.TimeRemaining = remaining
	return Outcome{}
}

func (m *Machine) record(option int, timedOut bool) Outcome {
	s := &m.state
	idx := s.CurrentIndex
	q := s.Questions[idx]

	correct := !timedOut && q.IsCorrect(option)
	award := scoring.ComputeAward(q, option, timedOut, s.TimeRemaining, s.Streak, m.cfg)

	s.Answers[idx] = option
	s.Awards[idx] = award
	s.Score += award
	if correct {
		s.CorrectCount++
	}
	s.Streak = scoring.NextStreak(correct, s.Streak)

	out := Outcome{Answered: &domain.AnswerResult{
		QuestionIndex:      idx,
		QuestionID:         q.ID,
		Selected:           option,
		TimedOut:           timedOut,
		Correct:            correct,
		CorrectOptionIndex: q.CorrectOptionIndex,
		Explanation:        q.Explanation,
		Awarded:            award,
		TotalScore:         s.Score,
		Streak:             s.Streak,
	}}

	if idx+1 >= len(s.Questions) {
		s.CurrentIndex = len(s.Questions)
		s.Status = domain.StatusComplete
		s.TimeRemaining = 0
		out.Complete = true
		return out
	}
	s.CurrentIndex++
	s.TimeRemaining = m.cfg.TimeLimit
	out.Advanced = true
	return out
}
