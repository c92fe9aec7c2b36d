package station

import (
	"context"
	"sync"
	"time"

	"github.com/robertarktes/ticket-checkin/internal/clock"
	"github.com/robertarktes/ticket-checkin/internal/domain"
	"github.com/robertarktes/ticket-checkin/internal/observability"
)

type TallySource interface {
	Tally(ctx context.Context, eventID string) (domain.CheckInTally, error)
}

// TallyPoller keeps the station's "checked in / total" line current. It
// polls on an interval and can be nudged after a successful admission.
type TallyPoller struct {
	source   TallySource
	events   func() string
	clock    clock.Clock
	interval time.Duration
	logger   observability.Logger
	nudge    chan struct{}

	mu      sync.Mutex
	current domain.CheckInTally
	onTally func(domain.CheckInTally)
}

func NewTallyPoller(source TallySource, events func() string, clk clock.Clock, interval time.Duration, logger observability.Logger) *TallyPoller {
	return &TallyPoller{
		source:   source,
		events:   events,
		clock:    clk,
		interval: interval,
		logger:   logger,
		nudge:    make(chan struct{}, 1),
	}
}

func (p *TallyPoller) OnTally(fn func(domain.CheckInTally)) {
	p.mu.Lock()
	p.onTally = fn
	p.mu.Unlock()
}

// Refresh requests an immediate poll. It never blocks.
func (p *TallyPoller) Refresh() {
	select {
	case p.nudge <- struct{}{}:
	default:
	}
}

func (p *TallyPoller) Current() domain.CheckInTally {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *TallyPoller) Run(ctx context.Context) error {
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-p.nudge:
		}
		p.poll(ctx)
	}
}

func (p *TallyPoller) poll(ctx context.Context) {
	eventID := p.events()
	if eventID == "" {
		return
	}
	tally, err := p.source.Tally(ctx, eventID)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("tally refresh failed: ", err)
		}
		return
	}
	p.mu.Lock()
	p.current = tally
	fn := p.onTally
	p.mu.Unlock()
	if fn != nil {
		fn(tally)
	}
}
