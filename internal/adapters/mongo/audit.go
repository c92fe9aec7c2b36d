package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/ticket-checkin/internal/domain"
	"github.com/robertarktes/ticket-checkin/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("scan_audit"),
		logger: logger,
	}
}

type ScanAudit struct {
	ID        string    `bson:"_id"`
	Code      string    `bson:"code"`
	EventID   string    `bson:"event_id"`
	StationID string    `bson:"station_id"`
	Success   bool      `bson:"success"`
	Reason    string    `bson:"reason,omitempty"`
	Detail    string    `bson:"detail,omitempty"`
	Timestamp time.Time `bson:"timestamp"`
}

func (a *AuditLogger) LogScan(ctx context.Context, code, eventID, stationID string, res domain.ScanResult, at time.Time) error {
	doc := ScanAudit{
		ID:        uuid.NewString(),
		Code:      code,
		EventID:   eventID,
		StationID: stationID,
		Success:   res.Success,
		Reason:    string(res.Reason),
		Detail:    res.Detail,
		Timestamp: at,
	}
	_, err := a.coll.InsertOne(ctx, doc)
	if err != nil {
		a.logger.Error("failed to insert scan audit", err)
		return err
	}
	return nil
}

// RepeatedScans lists every audited attempt on code, oldest first. Reviewers
// use it when a gate reports ALREADY_USED.
func (a *AuditLogger) RepeatedScans(ctx context.Context, code string) ([]ScanAudit, error) {
	cur, err := a.coll.Find(ctx, bson.M{"code": code}, options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var out []ScanAudit
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
