package crdb

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/cockroachdb"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/robertarktes/ticket-checkin/internal/adapters/crdb/migrations"
)

// Migrate applies the embedded schema. Being already at the target
// version is not an error. dsn may use the postgresql:// scheme
// the pool uses; it is rewritten for the cockroachdb migrate driver.
func Migrate(dsn, direction string) error {
	if dsn == "" {
		return errors.New("CRDB_DSN is not set")
	}
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return errors.Wrap(err, "migrate source")
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(dsn))
	if err != nil {
		return errors.Wrap(err, "migrate")
	}
	defer func() { _, _ = m.Close() }()

	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	default:
		return errors.Newf("direction must be up or down, got %q", direction)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func migrateURL(dsn string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "cockroachdb://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}
