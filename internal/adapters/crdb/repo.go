package crdb

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robertarktes/ticket-checkin/internal/domain"
	"github.com/robertarktes/ticket-checkin/internal/observability"
)

const (
	SerializationFailureCode = "40001"

	// maxTxAttempts bounds CockroachDB's client-side retry protocol. fn is
	// re-run from scratch on each attempt and must not keep state across runs.
	maxTxAttempts = 3
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// WithTx runs fn in a SERIALIZABLE transaction, retrying the whole
// transaction when CockroachDB reports a serialization failure.
func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	var err error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err = r.runTx(ctx, fn)
		if !errors.Is(err, domain.ErrSerializationFailure) {
			return err
		}
		observability.DBTxRetries.Inc()
	}
	return err
}

func (r *Repository) runTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE")
	if err != nil {
		return classify(err)
	}

	if err := fn(tx); err != nil {
		return classify(err)
	}

	return classify(tx.Commit(ctx))
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == SerializationFailureCode {
		return errors.Mark(err, domain.ErrSerializationFailure)
	}
	return err
}
