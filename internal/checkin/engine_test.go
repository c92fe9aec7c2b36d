package checkin

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/ticket-checkin/internal/clock"
	"github.com/robertarktes/ticket-checkin/internal/domain"
)

// memStore mirrors the SQL conditional UPDATE: the status check and the
// write happen under one lock acquisition.
type memStore struct {
	mu      sync.Mutex
	tickets map[string]domain.Ticket

	markErr error
	getErr  error
	block   bool
}

func newMemStore(tickets ...domain.Ticket) *memStore {
	m := &memStore{tickets: map[string]domain.Ticket{}}
	for _, t := range tickets {
		if t.Status == "" {
			t.Status = domain.TicketValid
		}
		m.tickets[t.Code] = t
	}
	return m
}

func (m *memStore) MarkCheckedIn(ctx context.Context, code, eventID, stationID string, at time.Time) (domain.Ticket, bool, error) {
	if m.block {
		<-ctx.Done()
		return domain.Ticket{}, false, ctx.Err()
	}
	if m.markErr != nil {
		return domain.Ticket{}, false, m.markErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[code]
	if !ok || t.EventID != eventID || t.Status != domain.TicketValid {
		return domain.Ticket{}, false, nil
	}
	t.Status = domain.TicketCheckedIn
	t.CheckedInAt = &at
	t.CheckedInBy = stationID
	m.tickets[code] = t
	return t, true, nil
}

func (m *memStore) GetTicket(_ context.Context, code string) (domain.Ticket, error) {
	if m.getErr != nil {
		return domain.Ticket{}, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[code]
	if !ok {
		return domain.Ticket{}, domain.ErrNotFound
	}
	return t, nil
}

type recordingAuditor struct {
	mu      sync.Mutex
	reasons []string
}

func (a *recordingAuditor) LogScan(_ context.Context, _, _, _ string, res domain.ScanResult, _ time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if res.Success {
		a.reasons = append(a.reasons, "success")
	} else {
		a.reasons = append(a.reasons, string(res.Reason))
	}
	return nil
}

var now = time.Date(2025, 6, 1, 19, 30, 0, 0, time.UTC)

func TestEngine_ValidateScan_Scenario(t *testing.T) {
	t.Parallel()

	store := newMemStore(
		domain.Ticket{Code: "T1", EventID: "E1", TierName: "General", HolderName: "Ada Lovelace"},
		domain.Ticket{Code: "T2", EventID: "E1"},
	)
	engine := NewEngine(store, clock.NewFixed(now))
	ctx := WithStation(context.Background(), "gate-a")

	res := engine.ValidateScan(ctx, "T1", "E2")
	if res.Success || res.Reason != domain.ReasonWrongEvent {
		t.Fatalf("expected WRONG_EVENT before check-in, got %+v", res)
	}

	res = engine.ValidateScan(ctx, "T1", "E1")
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Ticket == nil || res.Ticket.HolderName != "Ada Lovelace" || res.Ticket.TierName != "General" {
		t.Fatalf("expected ticket summary, got %+v", res.Ticket)
	}

	res = engine.ValidateScan(ctx, "T1", "E1")
	if res.Success || res.Reason != domain.ReasonAlreadyUsed {
		t.Fatalf("expected ALREADY_USED, got %+v", res)
	}
	if !strings.Contains(res.Detail, "gate-a") || res.CheckedInAt == nil || !res.CheckedInAt.Equal(now) {
		t.Errorf("expected detail with prior check-in time and station, got %+v", res)
	}

	res = engine.ValidateScan(ctx, "unknown-code", "E1")
	if res.Success || res.Reason != domain.ReasonNotFound {
		t.Fatalf("expected NOT_FOUND, got %+v", res)
	}
}

// Fails for any engine that reads status and writes it in two steps.
func TestEngine_ValidateScan_ConcurrentSingleWinner(t *testing.T) {
	t.Parallel()

	store := newMemStore(domain.Ticket{Code: "T1", EventID: "E1"})
	engine := NewEngine(store, clock.NewSystem())

	const callers = 50
	results := make([]domain.ScanResult, callers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i] = engine.ValidateScan(context.Background(), "T1", "E1")
		}(i)
	}
	close(start)
	wg.Wait()

	var success, alreadyUsed int
	for _, res := range results {
		switch {
		case res.Success:
			success++
		case res.Reason == domain.ReasonAlreadyUsed:
			alreadyUsed++
		default:
			t.Errorf("unexpected result %+v", res)
		}
	}
	if success != 1 || alreadyUsed != callers-1 {
		t.Fatalf("expected 1 success and %d ALREADY_USED, got %d and %d", callers-1, success, alreadyUsed)
	}
}

func TestEngine_ValidateScan_RepeatedAlwaysAlreadyUsed(t *testing.T) {
	t.Parallel()

	checkedAt := now.Add(-time.Hour)
	store := newMemStore(domain.Ticket{Code: "T1", EventID: "E1", Status: domain.TicketCheckedIn, CheckedInAt: &checkedAt})
	engine := NewEngine(store, clock.NewFixed(now))

	for i := 0; i < 10; i++ {
		res := engine.ValidateScan(context.Background(), "T1", "E1")
		if res.Success || res.Reason != domain.ReasonAlreadyUsed {
			t.Fatalf("attempt %d: expected ALREADY_USED, got %+v", i, res)
		}
	}
}

func TestEngine_ValidateScan_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		store  *memStore
		code   string
		reason domain.Reason
		detail string
	}{
		{
			name:   "refunded",
			store:  newMemStore(domain.Ticket{Code: "T1", EventID: "E1", Status: domain.TicketRefunded}),
			code:   "T1",
			reason: domain.ReasonTicketVoid,
			detail: "refunded",
		},
		{
			name:   "cancelled",
			store:  newMemStore(domain.Ticket{Code: "T1", EventID: "E1", Status: domain.TicketCancelled}),
			code:   "T1",
			reason: domain.ReasonTicketVoid,
			detail: "cancelled",
		},
		{
			name:   "store unavailable on write",
			store:  &memStore{tickets: map[string]domain.Ticket{}, markErr: errors.New("connection refused")},
			code:   "T1",
			reason: domain.ReasonTransient,
			detail: "try again",
		},
		{
			name:   "store unavailable on re-read",
			store:  &memStore{tickets: map[string]domain.Ticket{}, getErr: errors.New("connection reset")},
			code:   "T1",
			reason: domain.ReasonTransient,
			detail: "try again",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			engine := NewEngine(tt.store, clock.NewFixed(now))
			res := engine.ValidateScan(context.Background(), tt.code, "E1")
			if res.Success || res.Reason != tt.reason {
				t.Fatalf("expected %s, got %+v", tt.reason, res)
			}
			if !strings.Contains(res.Detail, tt.detail) {
				t.Errorf("expected detail to contain %q, got %q", tt.detail, res.Detail)
			}
		})
	}
}

func TestEngine_ValidateScan_Timeout(t *testing.T) {
	t.Parallel()

	store := newMemStore(domain.Ticket{Code: "T1", EventID: "E1"})
	store.block = true
	engine := NewEngine(store, clock.NewFixed(now), WithTimeout(20*time.Millisecond))

	done := make(chan domain.ScanResult, 1)
	go func() { done <- engine.ValidateScan(context.Background(), "T1", "E1") }()

	select {
	case res := <-done:
		if res.Reason != domain.ReasonTransient || !strings.Contains(res.Detail, "timed out") {
			t.Fatalf("expected TRANSIENT timeout, got %+v", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("validation did not resolve after its timeout")
	}
}

func TestEngine_ValidateScan_Audits(t *testing.T) {
	t.Parallel()

	auditor := &recordingAuditor{}
	store := newMemStore(domain.Ticket{Code: "T1", EventID: "E1"})
	engine := NewEngine(store, clock.NewFixed(now), WithAuditor(auditor))

	engine.ValidateScan(context.Background(), "T1", "E1")
	engine.ValidateScan(context.Background(), "T1", "E1")
	engine.Drain()

	auditor.mu.Lock()
	defer auditor.mu.Unlock()
	if len(auditor.reasons) != 2 {
		t.Fatalf("expected 2 audit entries, got %v", auditor.reasons)
	}
}
