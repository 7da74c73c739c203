package sqlstore

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "pgx"
)

type Config struct {
	Driver string
	// DSN for MySQL must enable parseTime and multiStatements.
	DSN             string
	MaxOpenConns    int
	MaxConnLifetime time.Duration
	ConnectTimeout  time.Duration
}

// Open connects to the database, retrying with exponential backoff until
// ConnectTimeout elapses. Databases started next to the service are often
// not ready yet.
func Open(ctx context.Context, cfg Config, logger logrus.FieldLogger) (*sqlx.DB, error) {
	if cfg.Driver != DriverMySQL && cfg.Driver != DriverPostgres {
		return nil, errors.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := sqlx.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	if cfg.MaxConnLifetime > 0 {
		db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	}

	policy := backoff.NewExponentialBackOff()
	if cfg.ConnectTimeout > 0 {
		policy.MaxElapsedTime = cfg.ConnectTimeout
	}
	ping := func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return db.PingContext(pingCtx)
	}
	notify := func(err error, wait time.Duration) {
		logger.WithError(err).WithField("retry_in", wait.String()).Warn("database is not reachable yet")
	}
	if err := backoff.RetryNotify(ping, backoff.WithContext(policy, ctx), notify); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "connect to database")
	}

	logger.WithField("driver", cfg.Driver).Info("connected to database")
	return db, nil
}
