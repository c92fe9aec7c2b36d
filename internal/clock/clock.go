package clock

import (
	"sync"
	"time"
)

// Clock allows injecting time into the debouncer, keystroke buffer, tally
// poller and engine.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) *Ticker
}

// Ticker delivers ticks on C until stopped.
type Ticker struct {
	C    <-chan time.Time
	stop func()
}

func (t *Ticker) Stop() {
	t.stop()
}

type systemClock struct{}

// NewSystem returns a clock backed by time.Now.
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

func (systemClock) NewTicker(d time.Duration) *Ticker {
	t := time.NewTicker(d)
	return &Ticker{C: t.C, stop: t.Stop}
}

type fixedClock struct {
	now time.Time
}

// NewFixed returns a clock that always returns the same instant. Its
// tickers never fire.
func NewFixed(t time.Time) Clock {
	return fixedClock{now: t.UTC()}
}

func (f fixedClock) Now() time.Time {
	return f.now
}

func (fixedClock) NewTicker(time.Duration) *Ticker {
	return &Ticker{C: make(chan time.Time), stop: func() {}}
}

// Fake is a manually advanced clock. Safe for concurrent use.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
	changed *sync.Cond
}

type fakeTicker struct {
	c        chan time.Time
	next     time.Time
	interval time.Duration
	stopped  bool
}

func NewFake(t time.Time) *Fake {
	f := &Fake{now: t.UTC()}
	f.changed = sync.NewCond(&f.mu)
	return f
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// NewTicker panics if d <= 0, like time.NewTicker.
func (f *Fake) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	ft := &fakeTicker{c: make(chan time.Time, 1), next: f.now.Add(d), interval: d}
	f.tickers = append(f.tickers, ft)
	f.changed.Broadcast()
	return &Ticker{
		C: ft.c,
		stop: func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			ft.stopped = true
		},
	}
}

// Advance moves the clock forward and fires every ticker whose deadline was
// reached. Sends never block: like time.Ticker, a tick is dropped when the
// previous one has not been received yet.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)

	active := f.tickers[:0]
	for _, ft := range f.tickers {
		if ft.stopped {
			continue
		}
		for !ft.next.After(f.now) {
			select {
			case ft.c <- f.now:
			default:
			}
			ft.next = ft.next.Add(ft.interval)
		}
		active = append(active, ft)
	}
	f.tickers = active
}

// WaitForTickers blocks until at least n tickers are running, so a test
// can advance the clock only after the goroutine under test has started
// its ticker.
func (f *Fake) WaitForTickers(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for f.activeLocked() < n {
		f.changed.Wait()
	}
}

func (f *Fake) activeLocked() int {
	n := 0
	for _, ft := range f.tickers {
		if !ft.stopped {
			n++
		}
	}
	return n
}
