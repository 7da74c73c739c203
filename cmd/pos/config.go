package main

import (
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"pos/pkg/domain/model"
	"pos/pkg/infrastructure/sqlstore"
)

const (
	appID        = "pos"
	driverMemory = "memory"
)

type config struct {
	DBDriver          string        `envconfig:"db_driver" default:"memory"`
	DBDSN             string        `envconfig:"db_dsn"`
	DBMaxOpenConns    int           `envconfig:"db_max_open_conns" default:"10"`
	DBMaxConnLifetime time.Duration `envconfig:"db_max_conn_lifetime" default:"5m"`
	Migrate           bool          `envconfig:"migrate" default:"true"`
	// SeedFile is a YAML file with menu, staff and tables, read in memory mode.
	SeedFile string `envconfig:"seed_file"`

	HTTPAddress     string        `envconfig:"http_address" default:":8080"`
	GRPCAddress     string        `envconfig:"grpc_address" default:":8081"`
	ShutdownTimeout time.Duration `envconfig:"shutdown_timeout" default:"15s"`

	AMQPURL      string `envconfig:"amqp_url"`
	AMQPExchange string `envconfig:"amqp_exchange" default:"pos.events"`

	ConnectTimeout       time.Duration `envconfig:"connect_timeout" default:"30s"`
	LogLevel             string        `envconfig:"log_level" default:"info"`
	DefaultPaymentMethod string        `envconfig:"default_payment_method" default:"CASH"`
}

func parseEnv() (*config, error) {
	c := new(config)
	if err := envconfig.Process(appID, c); err != nil {
		return nil, errors.Wrap(err, "failed to parse env")
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *config) validate() error {
	switch c.DBDriver {
	case driverMemory:
	case sqlstore.DriverMySQL, sqlstore.DriverPostgres:
		if c.DBDSN == "" {
			return errors.Errorf("POS_DB_DSN is required for driver %s", c.DBDriver)
		}
		if c.DBDriver == sqlstore.DriverMySQL {
			if err := validateMySQLDSN(c.DBDSN); err != nil {
				return err
			}
		}
	default:
		return errors.Errorf("unknown database driver %q", c.DBDriver)
	}
	if !model.PaymentMethod(c.DefaultPaymentMethod).Valid() {
		return errors.Errorf("unknown payment method %q", c.DefaultPaymentMethod)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "log level")
	}
	return nil
}

// validateMySQLDSN requires the options the store relies on: time columns
// scanned into time.Time, multi-statement migrations and matched-row counts
// for updates.
func validateMySQLDSN(dsn string) error {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return errors.Wrap(err, "POS_DB_DSN")
	}
	var missing []string
	if !cfg.ParseTime {
		missing = append(missing, "parseTime=true")
	}
	if !cfg.MultiStatements {
		missing = append(missing, "multiStatements=true")
	}
	if !cfg.ClientFoundRows {
		missing = append(missing, "clientFoundRows=true")
	}
	if len(missing) > 0 {
		return errors.Errorf("POS_DB_DSN must set %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *config) sqlConfig() sqlstore.Config {
	return sqlstore.Config{
		Driver:          c.DBDriver,
		DSN:             c.DBDSN,
		MaxOpenConns:    c.DBMaxOpenConns,
		MaxConnLifetime: c.DBMaxConnLifetime,
		ConnectTimeout:  c.ConnectTimeout,
	}
}
