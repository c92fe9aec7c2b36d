package mongo

import (
	"context"
	"time"

	"github.com/robertarktes/ticket-checkin/internal/domain"
	"github.com/robertarktes/ticket-checkin/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CatalogRepository struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewCatalogRepository(db *mongo.Database, logger observability.Logger) *CatalogRepository {
	return &CatalogRepository{
		coll:   db.Collection("events"),
		logger: logger,
	}
}

type EventDoc struct {
	ID        string    `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Venue     string    `bson:"venue" json:"venue"`
	Date      time.Time `bson:"date" json:"date"`
	Tiers     []TierDoc `bson:"tiers" json:"tiers"`
	CreatedAt time.Time `bson:"created_at" json:"-"`
	UpdatedAt time.Time `bson:"updated_at" json:"-"`
}

type TierDoc struct {
	ID   string `bson:"id" json:"id"`
	Name string `bson:"name" json:"name"`
}

func (c *CatalogRepository) GetEvent(ctx context.Context, id string) (*EventDoc, error) {
	var event EventDoc
	err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&event)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		c.logger.Error("failed to get event", err)
		return nil, err
	}
	return &event, nil
}

// ListEvents returns events starting after since, soonest first. Stations use
// it to pick the event they are admitting to.
func (c *CatalogRepository) ListEvents(ctx context.Context, since time.Time) ([]EventDoc, error) {
	cur, err := c.coll.Find(ctx,
		bson.M{"date": bson.M{"$gte": since}},
		options.Find().SetSort(bson.D{{Key: "date", Value: 1}}).SetLimit(100),
	)
	if err != nil {
		c.logger.Error("failed to list events", err)
		return nil, err
	}
	events := []EventDoc{}
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *CatalogRepository) CreateEvent(ctx context.Context, event EventDoc) error {
	event.CreatedAt = time.Now()
	event.UpdatedAt = time.Now()
	_, err := c.coll.InsertOne(ctx, event)
	if err != nil {
		c.logger.Error("failed to create event", err)
		return err
	}
	return nil
}
