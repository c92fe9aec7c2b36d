// Package station is the gate-side half of check-in: input adapters, the
// scan debouncer and the client that talks to the validation API.
package station

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/robertarktes/ticket-checkin/internal/clock"
	"github.com/robertarktes/ticket-checkin/internal/domain"
	"github.com/robertarktes/ticket-checkin/internal/observability"
)

type State int

const (
	StateIdle State = iota
	StateLocked
	StateResultShown
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLocked:
		return "locked"
	case StateResultShown:
		return "result_shown"
	default:
		return "unknown"
	}
}

type Validator interface {
	ValidateScan(ctx context.Context, code, eventID string) (domain.ScanResult, error)
}

const (
	DefaultCooldown          = 3 * time.Second
	DefaultValidationTimeout = 5 * time.Second
)

// Debouncer admits at most one validation at a time and suppresses repeats
// of the last submitted code within the cooldown window. Intents that are
// not eligible are dropped, never queued.
type Debouncer struct {
	mu       sync.Mutex
	state    State
	eventID  string
	lastCode string
	lastAt   time.Time
	shown    domain.ScanResult

	validator Validator
	clock     clock.Clock
	cooldown  time.Duration
	timeout   time.Duration
	onResult  func(domain.ScanIntent, domain.ScanResult)
	onNotice  func(string)
	logger    observability.Logger
}

type DebouncerOption func(*Debouncer)

func WithCooldown(d time.Duration) DebouncerOption {
	return func(db *Debouncer) { db.cooldown = d }
}

func WithValidationTimeout(d time.Duration) DebouncerOption {
	return func(db *Debouncer) { db.timeout = d }
}

// WithOnResult registers a hook called after every completed validation.
func WithOnResult(fn func(domain.ScanIntent, domain.ScanResult)) DebouncerOption {
	return func(db *Debouncer) { db.onResult = fn }
}

// WithNotice registers a hook for operator notices that are not results.
func WithNotice(fn func(string)) DebouncerOption {
	return func(db *Debouncer) { db.onNotice = fn }
}

func WithDebouncerLogger(l observability.Logger) DebouncerOption {
	return func(db *Debouncer) { db.logger = l }
}

func NewDebouncer(v Validator, clk clock.Clock, opts ...DebouncerOption) *Debouncer {
	d := &Debouncer{
		validator: v,
		clock:     clk,
		cooldown:  DefaultCooldown,
		timeout:   DefaultValidationTimeout,
		logger:    observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Debouncer) SelectEvent(eventID string) {
	d.mu.Lock()
	d.eventID = eventID
	d.mu.Unlock()
}

func (d *Debouncer) EventID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.eventID
}

func (d *Debouncer) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Shown returns the result on display. Only meaningful in StateResultShown.
func (d *Debouncer) Shown() domain.ScanResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shown
}

// Submit runs the eligibility filter and, when the intent passes, validates
// it and blocks until the result is shown. Dropped intents return ErrBusy,
// ErrCooldown or ErrNoEventSelected.
func (d *Debouncer) Submit(ctx context.Context, intent domain.ScanIntent) (domain.ScanResult, error) {
	intent.Code = strings.TrimSpace(intent.Code)
	if intent.Code == "" {
		return domain.ScanResult{}, domain.ErrInvalidInput
	}

	d.mu.Lock()
	if d.state != StateIdle {
		state := d.state
		d.mu.Unlock()
		d.logger.WithFields(map[string]interface{}{
			"channel": intent.Channel,
			"state":   state.String(),
		}).Debug("scan dropped while busy")
		return domain.ScanResult{}, domain.ErrBusy
	}
	now := d.clock.Now()
	if intent.Code == d.lastCode && now.Sub(d.lastAt) < d.cooldown {
		d.mu.Unlock()
		d.logger.WithField("channel", intent.Channel).Debug("scan dropped within cooldown")
		return domain.ScanResult{}, domain.ErrCooldown
	}
	if d.eventID == "" {
		d.mu.Unlock()
		d.notice(domain.ErrNoEventSelected.Error())
		return domain.ScanResult{}, domain.ErrNoEventSelected
	}
	d.state = StateLocked
	d.lastCode = intent.Code
	d.lastAt = now
	intent.EventID = d.eventID
	d.mu.Unlock()

	res := d.validate(ctx, intent)

	d.mu.Lock()
	d.state = StateResultShown
	d.shown = res
	if res.Reason == domain.ReasonTransient {
		// Let the operator retry the same ticket right after dismissing.
		d.lastCode = ""
		d.lastAt = time.Time{}
	}
	d.mu.Unlock()

	d.logger.WithFields(map[string]interface{}{
		"channel": intent.Channel,
		"event":   intent.EventID,
		"success": res.Success,
		"reason":  res.Reason,
	}).Info("scan validated")

	if d.onResult != nil {
		d.onResult(intent, res)
	}
	return res, nil
}

// Dismiss clears a shown result. It reports whether anything was dismissed.
func (d *Debouncer) Dismiss() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StateResultShown {
		return false
	}
	d.state = StateIdle
	d.shown = domain.ScanResult{}
	return true
}

func (d *Debouncer) validate(ctx context.Context, intent domain.ScanIntent) domain.ScanResult {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	type outcome struct {
		res domain.ScanResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := d.validator.ValidateScan(ctx, intent.Code, intent.EventID)
		done <- outcome{res: res, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			d.logger.Warn("validation request failed: ", o.err)
			return domain.Transient("could not reach the check-in server, try again")
		}
		return o.res
	case <-ctx.Done():
		return domain.Transient("validation timed out, try again")
	}
}

func (d *Debouncer) notice(msg string) {
	if d.onNotice != nil {
		d.onNotice(msg)
	}
}
