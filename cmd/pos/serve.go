package main

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"pos/pkg/domain/model"
	"pos/pkg/domain/service"
	"pos/pkg/infrastructure/event"
	"pos/pkg/infrastructure/memory"
	"pos/pkg/infrastructure/sqlstore"
	"pos/pkg/infrastructure/transport/rest"
	"pos/pkg/infrastructure/transport/rpc"
)

func serve(c *cli.Context) error {
	cfg, err := parseEnv()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	deps, cleanup, err := buildDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()
	services := service.NewServices(deps)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           rest.Router(services, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	grpcServer := rpc.NewServer(services, logger)
	listener, err := net.Listen("tcp", cfg.GRPCAddress)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", cfg.GRPCAddress)
	}

	killSignalChan := getKillSignalChan()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("url", cfg.HTTPAddress).Info("starting http server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		logger.WithField("url", cfg.GRPCAddress).Info("starting grpc server")
		return errors.Wrap(grpcServer.Serve(listener), "grpc server")
	})
	g.Go(func() error {
		waitForKillSignalChan(gctx, killSignalChan, logger)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		grpcServer.GracefulStop()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func migrate(c *cli.Context) error {
	cfg, err := parseEnv()
	if err != nil {
		return err
	}
	if cfg.DBDriver == driverMemory {
		return errors.New("nothing to migrate for the memory driver")
	}
	logger := newLogger(cfg)

	db, err := sqlstore.Open(c.Context, cfg.sqlConfig(), logger)
	if err != nil {
		return err
	}
	defer db.Close()
	return sqlstore.Migrate(db, logger)
}

// buildDependencies connects the storage and the event broker selected by cfg.
// The returned cleanup closes them.
func buildDependencies(ctx context.Context, cfg *config, logger *log.Logger) (service.Dependencies, func(), error) {
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.WithError(err).Warn("failed to close resource")
			}
		}
	}

	deps := service.Dependencies{
		Clock:                model.SystemClock{},
		Logger:               logger,
		DefaultPaymentMethod: model.PaymentMethod(cfg.DefaultPaymentMethod),
	}

	if cfg.DBDriver == driverMemory {
		store := memory.NewStore()
		catalog := memory.NewCatalog()
		staff := memory.NewStaffDirectory()
		if cfg.SeedFile != "" {
			seed, err := memory.LoadSeed(cfg.SeedFile)
			if err != nil {
				return deps, cleanup, err
			}
			if err := seed.Apply(ctx, store, catalog, staff); err != nil {
				return deps, cleanup, errors.Wrap(err, "apply seed")
			}
		}
		logger.Warn("using in-memory storage, data is lost on restart")
		deps.UnitOfWork = store
		deps.Catalog = catalog
		deps.Customers = memory.NewCustomerDirectory()
		deps.Staff = staff
	} else {
		db, err := sqlstore.Open(ctx, cfg.sqlConfig(), logger)
		if err != nil {
			return deps, cleanup, err
		}
		closers = append(closers, db.Close)
		if cfg.Migrate {
			if err := sqlstore.Migrate(db, logger); err != nil {
				cleanup()
				return deps, func() {}, err
			}
		}
		deps.UnitOfWork = sqlstore.NewUnitOfWork(db)
		deps.Catalog = sqlstore.NewCatalog(db)
		deps.Customers = sqlstore.NewCustomerDirectory(db)
		deps.Staff = sqlstore.NewStaffDirectory(db)
	}

	if cfg.AMQPURL != "" {
		dispatcher, err := event.DialAMQP(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.ConnectTimeout, logger)
		if err != nil {
			cleanup()
			return deps, func() {}, err
		}
		closers = append(closers, dispatcher.Close)
		deps.Dispatcher = dispatcher
	} else {
		deps.Dispatcher = event.NewLogDispatcher(logger)
	}

	return deps, cleanup, nil
}
