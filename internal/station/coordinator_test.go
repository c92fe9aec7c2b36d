package station

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/robertarktes/ticket-checkin/internal/clock"
	"github.com/robertarktes/ticket-checkin/internal/domain"
	"github.com/robertarktes/ticket-checkin/internal/observability"
)

func TestCoordinator_OneValidationAcrossAdapters(t *testing.T) {
	v := &fakeValidator{result: admitted(), started: make(chan struct{}, 8), release: make(chan struct{})}
	d := NewDebouncer(v, clock.NewFake(t0))
	d.SelectEvent("evt-1")
	c := NewCoordinator(d, observability.NopLogger())

	camera := make(chan domain.ScanIntent)
	scanner := make(chan domain.ScanIntent)
	manual := make(chan domain.ScanIntent)

	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(context.Background(), camera, scanner, manual) }()

	camera <- scan("TKT-0001", domain.ChannelCamera)
	<-v.started

	// The fan-in keeps accepting while the first scan is in flight.
	camera <- scan("TKT-0001", domain.ChannelCamera)
	scanner <- scan("TKT-0002", domain.ChannelScanner)
	manual <- scan("TKT-0003", domain.ChannelManual)

	close(v.release)
	close(camera)
	close(scanner)
	close(manual)

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("coordinator did not stop")
	}
	if got := v.calls(); got != 1 {
		t.Fatalf("validator calls = %d, want 1", got)
	}
	if d.State() != StateResultShown {
		t.Fatalf("state = %s, want result_shown", d.State())
	}
}

func TestCoordinator_StopsOnCancel(t *testing.T) {
	d := NewDebouncer(&fakeValidator{}, clock.NewFake(t0))
	c := NewCoordinator(d, observability.NopLogger())
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx, make(chan domain.ScanIntent)) }()
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("coordinator did not stop")
	}
}

func TestTallyPoller_RefreshAfterNudge(t *testing.T) {
	src := &countingTally{}
	p := NewTallyPoller(src, func() string { return "evt-1" }, clock.NewFake(t0), time.Hour, observability.NopLogger())
	updates := make(chan domain.CheckInTally, 4)
	p.OnTally(func(t domain.CheckInTally) { updates <- t })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	first := <-updates
	p.Refresh()
	second := <-updates
	if first.CheckedIn != 1 || second.CheckedIn != 2 {
		t.Fatalf("updates = %+v, %+v", first, second)
	}
	if p.Current().CheckedIn != 2 {
		t.Fatalf("current = %+v", p.Current())
	}
}

func TestTallyPoller_PollsOnInterval(t *testing.T) {
	src := &countingTally{}
	clk := clock.NewFake(t0)
	p := NewTallyPoller(src, func() string { return "evt-1" }, clk, 5*time.Second, observability.NopLogger())
	updates := make(chan domain.CheckInTally, 4)
	p.OnTally(func(t domain.CheckInTally) { updates <- t })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	if got := <-updates; got.CheckedIn != 1 {
		t.Fatalf("initial poll = %+v", got)
	}
	clk.WaitForTickers(1)

	clk.Advance(4 * time.Second)
	select {
	case got := <-updates:
		t.Fatalf("polled before the interval elapsed: %+v", got)
	case <-time.After(50 * time.Millisecond):
	}

	clk.Advance(time.Second)
	select {
	case got := <-updates:
		if got.CheckedIn != 2 {
			t.Fatalf("interval poll = %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("no poll after the interval elapsed")
	}
}

type countingTally struct {
	mu sync.Mutex
	n  int64
}

func (c *countingTally) Tally(ctx context.Context, eventID string) (domain.CheckInTally, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return domain.CheckInTally{EventID: eventID, Total: 10, CheckedIn: c.n}, nil
}
