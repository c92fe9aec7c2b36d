package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robertarktes/ticket-checkin/internal/domain"
)

type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

func tallyKey(eventID string) string {
	return "tally:" + eventID
}

// GetTally returns nil on a cache miss.
func (c *Cache) GetTally(ctx context.Context, eventID string) (*domain.CheckInTally, error) {
	val, err := c.client.Get(ctx, tallyKey(eventID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var tally domain.CheckInTally
	if err := json.Unmarshal(val, &tally); err != nil {
		return nil, err
	}
	return &tally, nil
}

func (c *Cache) SetTally(ctx context.Context, tally domain.CheckInTally, ttl time.Duration) error {
	data, err := json.Marshal(tally)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, tallyKey(tally.EventID), data, ttl).Err()
}

func (c *Cache) InvalidateTally(ctx context.Context, eventID string) error {
	return c.client.Del(ctx, tallyKey(eventID)).Err()
}
