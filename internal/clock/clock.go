package clock

import (
	"sync"
	"time"
)

// Event is emitted by a running countdown.
// Consumers must drop events whose Generation differs from the latest Reset.
type Event struct {
	Generation uint64
	Remaining  int
	Expired    bool
}

// Ticker is the subset of time.Ticker the clock relies on.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory builds a ticker firing every d.
type TickerFactory func(d time.Duration) Ticker

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// RealTicker wraps time.NewTicker.
func RealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// Clock is a per-question countdown. At most one countdown runs at a time.
type Clock struct {
	limit     int
	interval  time.Duration
	newTicker TickerFactory
	sink      func(Event)

	mu   sync.Mutex
	gen  uint64
	stop chan struct{}
}

// Option customizes a Clock.
type Option func(*Clock)

// WithTicker swaps the ticker implementation (used by tests to drive time by hand).
func WithTicker(f TickerFactory) Option {
	return func(c *Clock) {
		c.newTicker = f
	}
}

// New creates a stopped clock counting down from limit, one step per interval.
func New(limit int, interval time.Duration, sink func(Event), opts ...Option) *Clock {
	c := &Clock{
		limit:     limit,
		interval:  interval,
		newTicker: RealTicker,
		sink:      sink,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Limit returns the value each countdown starts from.
func (c *Clock) Limit() int {
	return c.limit
}

// Reset cancels the outstanding countdown, starts a new one at the limit and
// returns its generation.
func (c *Clock) Reset() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	c.gen++
	stop := make(chan struct{})
	c.stop = stop
	go c.run(c.gen, c.newTicker(c.interval), stop)
	return c.gen
}

// Stop cancels the outstanding countdown without starting a new one.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.gen++
}

// Generation returns the token of the latest Reset or Stop.
func (c *Clock) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func (c *Clock) stopLocked() {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}

func (c *Clock) run(gen uint64, ticker Ticker, stop <-chan struct{}) {
	defer ticker.Stop()

	remaining := c.limit
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
		}
		// A tick racing a cancellation loses.
		select {
		case <-stop:
			return
		default:
		}

		if remaining <= 0 {
			c.sink(Event{Generation: gen, Expired: true})
			return
		}
		remaining--
		c.sink(Event{Generation: gen, Remaining: remaining})
	}
}
