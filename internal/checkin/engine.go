// Package checkin decides whether a scanned code admits its holder and
// performs the one-way valid → checked_in transition.
//
// Correctness under concurrent stations rests entirely on
// TicketStore.MarkCheckedIn being a single conditional write. The engine
// holds no locks of its own; two scans of different tickets never contend.
package checkin

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/ticket-checkin/internal/clock"
	"github.com/robertarktes/ticket-checkin/internal/domain"
	"github.com/robertarktes/ticket-checkin/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// TicketStore is implemented by the CockroachDB repository.
type TicketStore interface {
	// MarkCheckedIn atomically sets status to checked_in only where the
	// ticket exists for eventID and its status is exactly valid. applied
	// reports whether this call made the transition.
	MarkCheckedIn(ctx context.Context, code, eventID, stationID string, at time.Time) (t domain.Ticket, applied bool, err error)
	GetTicket(ctx context.Context, code string) (domain.Ticket, error)
}

type Auditor interface {
	LogScan(ctx context.Context, code, eventID, stationID string, res domain.ScanResult, at time.Time) error
}

const (
	defaultTimeout = 3 * time.Second
	auditTimeout   = 5 * time.Second
)

type Engine struct {
	store   TicketStore
	clock   clock.Clock
	timeout time.Duration
	auditor Auditor
	logger  observability.Logger
	audits  sync.WaitGroup
}

type Option func(*Engine)

// WithTimeout bounds one validation, including the re-read after a lost race.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

func WithAuditor(a Auditor) Option {
	return func(e *Engine) { e.auditor = a }
}

func WithLogger(l observability.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func NewEngine(store TicketStore, clk clock.Clock, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		clock:   clk,
		timeout: defaultTimeout,
		logger:  observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ValidateScan never returns an error: semantic rejections and transient
// failures are both expressed in the result. The station id is taken from
// ctx (see WithStation).
func (e *Engine) ValidateScan(ctx context.Context, code, eventID string) domain.ScanResult {
	start := time.Now()
	station := StationFromContext(ctx)

	ctx, span := otel.Tracer("checkin").Start(ctx, "checkin.ValidateScan")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	at := e.clock.Now()
	res := e.validate(ctx, code, eventID, station, at)

	outcome := outcomeLabel(res)
	span.SetAttributes(
		attribute.String("checkin.event_id", eventID),
		attribute.String("checkin.station_id", station),
		attribute.String("checkin.outcome", outcome),
	)
	observability.ScansTotal.WithLabelValues(outcome).Inc()
	observability.ValidationDuration.Observe(time.Since(start).Seconds())

	log := e.logger.WithFields(map[string]interface{}{
		"event_id": eventID,
		"station":  station,
		"outcome":  outcome,
	})
	switch res.Reason {
	case domain.ReasonAlreadyUsed:
		log.Warn("repeat scan of checked-in ticket: ", res.Detail)
	case domain.ReasonTransient:
		log.Error("scan validation failed: ", res.Detail)
	default:
		log.Debug("scan validated")
	}

	e.audit(code, eventID, station, res, at)
	return res
}

func (e *Engine) validate(ctx context.Context, code, eventID, station string, at time.Time) domain.ScanResult {
	ticket, applied, err := e.store.MarkCheckedIn(ctx, code, eventID, station, at)
	if err != nil {
		return transientFor(ctx, err)
	}
	if applied {
		return domain.Admitted(ticket)
	}

	// The conditional write did not apply; the re-read only explains why.
	current, err := e.store.GetTicket(ctx, code)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Rejected(domain.ReasonNotFound, "no ticket with this code")
	}
	if err != nil {
		return transientFor(ctx, err)
	}
	return classify(current, eventID)
}

func classify(t domain.Ticket, eventID string) domain.ScanResult {
	switch {
	case t.EventID != eventID:
		return domain.Rejected(domain.ReasonWrongEvent, "ticket is for event "+t.EventID)
	case t.Status == domain.TicketCheckedIn:
		return domain.AlreadyUsed(t)
	case t.Status.Void():
		return domain.Rejected(domain.ReasonTicketVoid, "ticket was "+string(t.Status))
	default:
		return domain.Transient("ticket changed during validation, scan again")
	}
}

func transientFor(ctx context.Context, err error) domain.ScanResult {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.Transient("validation timed out, try again")
	}
	return domain.Transient("ticket store unavailable, try again")
}

func outcomeLabel(res domain.ScanResult) string {
	if res.Success {
		return "success"
	}
	return string(res.Reason)
}

func (e *Engine) audit(code, eventID, station string, res domain.ScanResult, at time.Time) {
	if e.auditor == nil {
		return
	}
	e.audits.Add(1)
	go func() {
		defer e.audits.Done()
		ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
		defer cancel()
		if err := e.auditor.LogScan(ctx, code, eventID, station, res, at); err != nil {
			e.logger.Warn("scan audit dropped: ", err)
		}
	}()
}

// Drain waits for in-flight audit writes. Call on shutdown.
func (e *Engine) Drain() {
	e.audits.Wait()
}
