package service

import "github.com/sirupsen/logrus"

type Event interface {
	Type() string
}

type EventDispatcher interface {
	Dispatch(event Event) error
}

// dispatchEvents never fails the caller: the state change has already been
// committed when events go out.
func dispatchEvents(dispatcher EventDispatcher, logger logrus.FieldLogger, events ...Event) {
	if dispatcher == nil {
		return
	}
	for _, event := range events {
		if err := dispatcher.Dispatch(event); err != nil {
			logger.WithError(err).WithField("event", event.Type()).Error("failed to dispatch event")
		}
	}
}
