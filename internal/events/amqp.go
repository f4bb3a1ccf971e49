package events

import (
	"context"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPForwarder copies bus events to a fanout exchange.
type AMQPForwarder struct {
	conn     *amqp.Connection
	ch       publisher
	exchange string
	timeout  time.Duration
}

// DialAMQP connects to the broker and declares a durable fanout exchange.
func DialAMQP(url, exchange string) (*AMQPForwarder, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "amqp dial")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "amqp channel")
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, errors.Wrapf(err, "declare exchange %s", exchange)
	}
	return &AMQPForwarder{conn: conn, ch: ch, exchange: exchange, timeout: 5 * time.Second}, nil
}

// Forward publishes one event. Failures are logged only.
func (f *AMQPForwarder) Forward(ev Event) {
	body, err := json.Marshal(ev)
	if err != nil {
		zap.L().Error("encode event", zap.String("namespace", "amqp"), zap.String("event", ev.Name), zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()
	err = f.ch.PublishWithContext(ctx, f.exchange, ev.Name, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Unix(ev.TS, 0),
		Type:         ev.Name,
		Body:         body,
	})
	if err != nil {
		zap.L().Warn("amqp publish failed",
			zap.String("namespace", "amqp"),
			zap.String("exchange", f.exchange),
			zap.String("event", ev.Name),
			zap.Error(err))
	}
}

func (f *AMQPForwarder) Close() error {
	if f.conn == nil {
		return nil
	}
	return f.conn.Close()
}
