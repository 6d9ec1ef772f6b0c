package clock

import (
	"sync"
	"time"
)

// Manual is a TickerFactory whose tickers only fire when Tick is called.
type Manual struct {
	mu      sync.Mutex
	current *manualTicker
	created int
}

// NewManual returns a hand-driven ticker source.
func NewManual() *Manual {
	return &Manual{}
}

// Factory plugs the manual source into a Clock.
func (m *Manual) Factory() TickerFactory {
	return func(time.Duration) Ticker {
		m.mu.Lock()
		defer m.mu.Unlock()
		t := &manualTicker{c: make(chan time.Time), stopped: make(chan struct{})}
		m.current = t
		m.created++
		return t
	}
}

// Created reports how many tickers have been built.
func (m *Manual) Created() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.created
}

// Tick delivers one tick to the newest ticker. It returns false when the
// ticker is stopped or nobody receives within a second.
func (m *Manual) Tick() bool {
	m.mu.Lock()
	t := m.current
	m.mu.Unlock()
	if t == nil {
		return false
	}
	select {
	case t.c <- time.Now():
		return true
	case <-t.stopped:
		return false
	case <-time.After(time.Second):
		return false
	}
}

type manualTicker struct {
	c        chan time.Time
	stopped  chan struct{}
	stopOnce sync.Once
}

func (t *manualTicker) C() <-chan time.Time { return t.c }

func (t *manualTicker) Stop() {
	t.stopOnce.Do(func() { close(t.stopped) })
}
