package crdb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/robertarktes/ticket-checkin/internal/domain"
)

const EventTicketCheckedIn = "ticket.checked_in"

const ticketColumns = `code, event_id, tier_id, tier_name, holder_name, status, checked_in_at, COALESCE(checked_in_by, '')`

// MarkCheckedIn moves a ticket from valid to checked_in with one conditional
// UPDATE. The status predicate is evaluated and applied by the database as a
// single statement, so of any number of concurrent callers at most one sees
// a returned row. applied is false when no row matched; the caller re-reads
// to find out why.
func (r *Repository) MarkCheckedIn(ctx context.Context, code, eventID, stationID string, at time.Time) (domain.Ticket, bool, error) {
	var (
		ticket  domain.Ticket
		applied bool
	)
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		applied = false
		row := tx.QueryRow(ctx, `
			UPDATE tickets
			SET status = 'checked_in', checked_in_at = $3, checked_in_by = NULLIF($4, '')
			WHERE code = $1 AND event_id = $2 AND status = 'valid'
			RETURNING `+ticketColumns,
			code, eventID, at, stationID)
		t, err := scanTicket(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		payload, err := json.Marshal(map[string]interface{}{
			"code":          t.Code,
			"event_id":      t.EventID,
			"tier_id":       t.TierID,
			"checked_in_at": at.Format(time.RFC3339Nano),
			"station_id":    stationID,
		})
		if err != nil {
			return err
		}
		err = r.InsertOutbox(ctx, tx, OutboxRecord{
			ID:            uuid.New(),
			AggregateType: "ticket",
			AggregateID:   t.Code,
			EventType:     EventTicketCheckedIn,
			Payload:       payload,
			DedupeKey:     EventTicketCheckedIn + ":" + t.Code,
		})
		if err != nil {
			return err
		}
		ticket, applied = t, true
		return nil
	})
	if err != nil {
		return domain.Ticket{}, false, errors.Wrap(err, "mark checked in")
	}
	return ticket, applied, nil
}

func (r *Repository) GetTicket(ctx context.Context, code string) (domain.Ticket, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE code = $1`, code)
	t, err := scanTicket(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Ticket{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Ticket{}, errors.Wrap(err, "get ticket")
	}
	return t, nil
}

// CountTally counts admissible tickets; refunded and cancelled ones are not
// part of the total.
func (r *Repository) CountTally(ctx context.Context, eventID string) (domain.CheckInTally, error) {
	tally := domain.CheckInTally{EventID: eventID}
	err := r.pool.QueryRow(ctx, `
		SELECT
			count(*) FILTER (WHERE status IN ('valid', 'checked_in')),
			count(*) FILTER (WHERE status = 'checked_in')
		FROM tickets WHERE event_id = $1
	`, eventID).Scan(&tally.Total, &tally.CheckedIn)
	if err != nil {
		return domain.CheckInTally{}, errors.Wrap(err, "count tally")
	}
	return tally, nil
}

// InsertTicket is used by seeding and tests; ticket issuance belongs to the
// purchase flow.
func (r *Repository) InsertTicket(ctx context.Context, t domain.Ticket) error {
	if t.Status == "" {
		t.Status = domain.TicketValid
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tickets (code, event_id, tier_id, tier_name, holder_name, status, checked_in_at, checked_in_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''))
		ON CONFLICT (code) DO NOTHING
	`, t.Code, t.EventID, t.TierID, t.TierName, t.HolderName, string(t.Status), t.CheckedInAt, t.CheckedInBy)
	if err != nil {
		return errors.Wrapf(err, "insert ticket %s", t.Code)
	}
	return nil
}

func scanTicket(row pgx.Row) (domain.Ticket, error) {
	var (
		t      domain.Ticket
		status string
	)
	err := row.Scan(&t.Code, &t.EventID, &t.TierID, &t.TierName, &t.HolderName, &status, &t.CheckedInAt, &t.CheckedInBy)
	if err != nil {
		return domain.Ticket{}, err
	}
	t.Status = domain.TicketStatus(status)
	return t, nil
}
