// Package readmodel serves the per-event check-in counter shown on
// dashboards. It is eventually consistent: a cached tally may lag real
// check-ins by up to its TTL.
package readmodel

import (
	"context"
	"time"

	"github.com/robertarktes/ticket-checkin/internal/domain"
	"github.com/robertarktes/ticket-checkin/internal/observability"
)

type Counter interface {
	CountTally(ctx context.Context, eventID string) (domain.CheckInTally, error)
}

type Cache interface {
	GetTally(ctx context.Context, eventID string) (*domain.CheckInTally, error)
	SetTally(ctx context.Context, tally domain.CheckInTally, ttl time.Duration) error
	InvalidateTally(ctx context.Context, eventID string) error
}

type Service struct {
	counter Counter
	cache   Cache
	ttl     time.Duration
	logger  observability.Logger
}

func NewService(counter Counter, cache Cache, ttl time.Duration, logger observability.Logger) *Service {
	return &Service{counter: counter, cache: cache, ttl: ttl, logger: logger}
}

// GetTally falls back to the database when the cache is empty or down.
func (s *Service) GetTally(ctx context.Context, eventID string) (domain.CheckInTally, error) {
	cached, err := s.cache.GetTally(ctx, eventID)
	switch {
	case err != nil:
		s.logger.WithField("event_id", eventID).Warn("tally cache read failed: ", err)
		observability.TallyCacheHits.WithLabelValues("error").Inc()
	case cached != nil:
		observability.TallyCacheHits.WithLabelValues("hit").Inc()
		return *cached, nil
	default:
		observability.TallyCacheHits.WithLabelValues("miss").Inc()
	}

	tally, err := s.counter.CountTally(ctx, eventID)
	if err != nil {
		return domain.CheckInTally{}, err
	}
	if err := s.cache.SetTally(ctx, tally, s.ttl); err != nil {
		s.logger.WithField("event_id", eventID).Warn("tally cache write failed: ", err)
	}
	return tally, nil
}

func (s *Service) Invalidate(ctx context.Context, eventID string) error {
	return s.cache.InvalidateTally(ctx, eventID)
}
