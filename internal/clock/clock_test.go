package clock

import (
	"testing"
	"time"
)

func TestFake_Advance(t *testing.T) {
	start := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	c := NewFake(start)

	if got := c.Now(); !got.Equal(start) {
		t.Fatalf("expected %v, got %v", start, got)
	}
	c.Advance(150 * time.Millisecond)
	if got := c.Now(); !got.Equal(start.Add(150 * time.Millisecond)) {
		t.Fatalf("expected advanced time, got %v", got)
	}
}

func TestFake_Ticker(t *testing.T) {
	c := NewFake(time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC))
	tk := c.NewTicker(time.Second)
	defer tk.Stop()

	c.Advance(999 * time.Millisecond)
	select {
	case <-tk.C:
		t.Fatal("ticked before the interval elapsed")
	default:
	}

	c.Advance(time.Millisecond)
	select {
	case <-tk.C:
	default:
		t.Fatal("expected a tick at the interval")
	}

	// Several intervals at once coalesce into one pending tick.
	c.Advance(5 * time.Second)
	<-tk.C
	select {
	case <-tk.C:
		t.Fatal("expected ticks to be dropped while the channel was full")
	default:
	}

	tk.Stop()
	c.Advance(time.Hour)
	select {
	case <-tk.C:
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestFake_WaitForTickers(t *testing.T) {
	c := NewFake(time.Now())
	done := make(chan struct{})
	go func() {
		c.WaitForTickers(1)
		close(done)
	}()
	tk := c.NewTicker(time.Minute)
	defer tk.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitForTickers did not return after NewTicker")
	}
}
