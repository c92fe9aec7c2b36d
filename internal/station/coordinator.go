package station

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/ticket-checkin/internal/domain"
	"github.com/robertarktes/ticket-checkin/internal/observability"
	"golang.org/x/sync/errgroup"
)

// Coordinator fans the adapters' intents into the debouncer. Each intent is
// submitted on its own goroutine so a validation in flight never stalls the
// adapters; the debouncer drops whatever arrives meanwhile.
type Coordinator struct {
	debouncer *Debouncer
	logger    observability.Logger
	inflight  sync.WaitGroup
}

func NewCoordinator(d *Debouncer, logger observability.Logger) *Coordinator {
	return &Coordinator{debouncer: d, logger: logger}
}

// Run returns when ctx is cancelled or every input is closed, after the
// in-flight submission (if any) has finished.
func (c *Coordinator) Run(ctx context.Context, inputs ...<-chan domain.ScanIntent) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, in := range inputs {
		in := in
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case intent, ok := <-in:
					if !ok {
						return nil
					}
					c.dispatch(ctx, intent)
				}
			}
		})
	}
	err := g.Wait()
	c.inflight.Wait()
	return err
}

func (c *Coordinator) dispatch(ctx context.Context, intent domain.ScanIntent) {
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		_, err := c.debouncer.Submit(ctx, intent)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrBusy), errors.Is(err, domain.ErrCooldown):
		case errors.Is(err, domain.ErrNoEventSelected):
			c.logger.WithField("channel", intent.Channel).Warn("scan ignored: no event selected")
		default:
			c.logger.WithField("channel", intent.Channel).Error("submit failed: ", err)
		}
	}()
}
