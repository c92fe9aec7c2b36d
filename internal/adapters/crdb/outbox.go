package crdb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type OutboxRecord struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Status        string // NEW, PUBLISHED
	DedupeKey     string
}

func (r *Repository) InsertOutbox(ctx context.Context, tx pgx.Tx, record OutboxRecord) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload_json, status, dedupe_key)
		VALUES ($1, $2, $3, $4, $5, 'NEW', $6)
	`, record.ID, record.AggregateType, record.AggregateID, record.EventType, record.Payload, record.DedupeKey)
	return err
}

// ClaimOutbox runs fn over up to limit unpublished records while holding
// their row locks, so concurrent publishers never send the same batch. fn
// returns the ids it published; those are marked inside the same transaction.
func (r *Repository) ClaimOutbox(ctx context.Context, limit int, fn func([]OutboxRecord) []uuid.UUID) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, aggregate_type, aggregate_id, event_type, payload_json, created_at, published_at, status, dedupe_key
			FROM outbox WHERE status = 'NEW' ORDER BY created_at ASC LIMIT $1 FOR UPDATE SKIP LOCKED
		`, limit)
		if err != nil {
			return errors.Wrap(err, "select outbox")
		}
		records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (OutboxRecord, error) {
			var rec OutboxRecord
			err := row.Scan(&rec.ID, &rec.AggregateType, &rec.AggregateID, &rec.EventType, &rec.Payload, &rec.CreatedAt, &rec.PublishedAt, &rec.Status, &rec.DedupeKey)
			return rec, err
		})
		if err != nil {
			return errors.Wrap(err, "scan outbox")
		}
		if len(records) == 0 {
			return nil
		}

		published := fn(records)
		if len(published) == 0 {
			return nil
		}
		ids := make([]string, len(published))
		for i, id := range published {
			ids[i] = id.String()
		}
		_, err = tx.Exec(ctx, `
			UPDATE outbox SET status = 'PUBLISHED', published_at = now() WHERE id = ANY($1::UUID[])
		`, ids)
		return errors.Wrap(err, "mark outbox published")
	})
}
