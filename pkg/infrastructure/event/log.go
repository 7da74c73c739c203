package event

import (
	"github.com/sirupsen/logrus"

	"pos/pkg/domain/service"
)

// LogDispatcher writes events to the log. Used when no broker is configured.
type LogDispatcher struct {
	logger logrus.FieldLogger
}

func NewLogDispatcher(logger logrus.FieldLogger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(event service.Event) error {
	d.logger.WithField("event", event.Type()).WithField("payload", event).Info("domain event")
	return nil
}
