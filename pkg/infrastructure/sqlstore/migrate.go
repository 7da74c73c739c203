package sqlstore

import (
	"embed"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

//go:embed migrations
var migrations embed.FS

// Migrate applies every pending migration of the connection's dialect.
func Migrate(db *sqlx.DB, logger logrus.FieldLogger) error {
	m, err := newMigrator(db)
	if err != nil {
		return err
	}

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("database schema is up to date")
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "apply migrations")
	}

	version, _, _ := m.Version()
	logger.WithField("version", version).Info("database schema migrated")
	return nil
}

func newMigrator(db *sqlx.DB) (*migrate.Migrate, error) {
	var (
		driver database.Driver
		err    error
	)
	switch db.DriverName() {
	case DriverMySQL:
		driver, err = migratemysql.WithInstance(db.DB, &migratemysql.Config{})
	case DriverPostgres:
		driver, err = migratepgx.WithInstance(db.DB, &migratepgx.Config{})
	default:
		return nil, errors.Errorf("no migrations for driver %q", db.DriverName())
	}
	if err != nil {
		return nil, errors.Wrap(err, "create migration driver")
	}

	source, err := iofs.New(migrations, migrationsDir(db.DriverName()))
	if err != nil {
		return nil, errors.Wrap(err, "open embedded migrations")
	}
	m, err := migrate.NewWithInstance("iofs", source, db.DriverName(), driver)
	if err != nil {
		return nil, errors.Wrap(err, "create migrator")
	}
	return m, nil
}

func migrationsDir(driver string) string {
	return "migrations/" + driver
}
