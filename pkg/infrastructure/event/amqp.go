package event

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"pos/pkg/domain/model"
	"pos/pkg/domain/service"
)

const (
	publishTimeout = 5 * time.Second
	routingPrefix  = "pos."
)

// Envelope is the message body published for every domain event.
type Envelope struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPDispatcher publishes events to a topic exchange, routed by
// "pos.<EventType>", for the notification and reporting consumers.
type AMQPDispatcher struct {
	channel  channel
	exchange string
	clock    model.Clock
	logger   logrus.FieldLogger
	close    func() error
}

var _ service.EventDispatcher = &AMQPDispatcher{}

// DialAMQP connects to the broker, retrying until timeout, and declares the
// exchange.
func DialAMQP(ctx context.Context, url, exchange string, timeout time.Duration, logger logrus.FieldLogger) (*AMQPDispatcher, error) {
	var conn *amqp.Connection
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = timeout
	err := backoff.RetryNotify(func() error {
		var err error
		conn, err = amqp.Dial(url)
		return err
	}, backoff.WithContext(policy, ctx), func(err error, wait time.Duration) {
		logger.WithError(err).WithField("retry_in", wait.String()).Warn("message broker is not reachable yet")
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect to message broker")
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "open channel")
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, errors.Wrapf(err, "declare exchange %s", exchange)
	}

	d := NewAMQPDispatcher(ch, exchange, nil, logger)
	d.close = conn.Close
	return d, nil
}

func NewAMQPDispatcher(ch channel, exchange string, clock model.Clock, logger logrus.FieldLogger) *AMQPDispatcher {
	if clock == nil {
		clock = model.SystemClock{}
	}
	return &AMQPDispatcher{channel: ch, exchange: exchange, clock: clock, logger: logger}
}

func (d *AMQPDispatcher) Dispatch(event service.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrapf(err, "encode %s", event.Type())
	}
	now := d.clock.Now()
	body, err := json.Marshal(Envelope{Type: event.Type(), OccurredAt: now, Payload: payload})
	if err != nil {
		return errors.Wrapf(err, "encode %s envelope", event.Type())
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	key := routingPrefix + event.Type()
	err = d.channel.PublishWithContext(ctx, d.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    now,
		Type:         event.Type(),
		Body:         body,
	})
	if err != nil {
		return errors.Wrapf(err, "publish %s", key)
	}
	d.logger.WithFields(logrus.Fields{"exchange": d.exchange, "routing_key": key}).Debug("event published")
	return nil
}

func (d *AMQPDispatcher) Close() error {
	if d.close == nil {
		return nil
	}
	return d.close()
}
