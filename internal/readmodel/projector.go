package readmodel

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/ticket-checkin/internal/observability"
)

type Invalidator interface {
	Invalidate(ctx context.Context, eventID string) error
}

// Projector pushes check-in events into the read model by dropping the
// cached tally of the affected event.
type Projector struct {
	tallies Invalidator
	logger  observability.Logger
}

func NewProjector(tallies Invalidator, logger observability.Logger) *Projector {
	return &Projector{tallies: tallies, logger: logger}
}

type checkedInEvent struct {
	Code    string `json:"code"`
	EventID string `json:"event_id"`
}

func (p *Projector) Handle(ctx context.Context, body []byte) error {
	var ev checkedInEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return errors.Mark(errors.Wrap(err, "decode ticket.checked_in"), errMalformed)
	}
	if ev.EventID == "" {
		return errors.Mark(errors.New("ticket.checked_in without event_id"), errMalformed)
	}
	return p.tallies.Invalidate(ctx, ev.EventID)
}

var errMalformed = errors.New("malformed message")

// Run consumes deliveries until ctx is done or the channel closes. Malformed
// messages are dropped; cache failures are requeued.
func (p *Projector) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			err := p.Handle(ctx, d.Body)
			switch {
			case err == nil:
				d.Ack(false)
			case errors.Is(err, errMalformed):
				p.logger.WithField("message_id", d.MessageId).Error("dropping message: ", err)
				d.Nack(false, false)
			default:
				p.logger.WithField("message_id", d.MessageId).Warn("requeueing message: ", err)
				d.Nack(false, true)
			}
		}
	}
}
