package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	log.SetFormatter(&log.JSONFormatter{})

	app := &cli.App{
		Name:  appID,
		Usage: "restaurant order fulfillment coordinator",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP and gRPC APIs",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "apply database migrations and exit",
				Action: migrate,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("pos stopped")
	}
}

func newLogger(c *config) *log.Logger {
	logger := log.New()
	logger.SetFormatter(&log.JSONFormatter{})
	level, err := log.ParseLevel(c.LogLevel)
	if err == nil {
		logger.SetLevel(level)
	}
	return logger
}

func getKillSignalChan() chan os.Signal {
	osKillSignalChan := make(chan os.Signal, 1)
	signal.Notify(osKillSignalChan, os.Interrupt, syscall.SIGTERM)
	return osKillSignalChan
}

func waitForKillSignalChan(ctx context.Context, killSignalChan <-chan os.Signal, logger log.FieldLogger) {
	select {
	case <-ctx.Done():
		return
	case killSignal := <-killSignalChan:
		switch killSignal {
		case os.Interrupt:
			logger.Info("got SIGINT...")
		case syscall.SIGTERM:
			logger.Info("got SIGTERM...")
		}
	}
}
