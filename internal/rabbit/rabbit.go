package rabbit

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const queueBookingConfirmed = "booking.confirmed"

type Config struct {
	URL string
}

// Notifier publishes booking confirmations to RabbitMQ. Downstream
// consumers (email, push) own the actual delivery; this side only needs the
// message to be durable once the broker accepts it.
type Notifier struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewNotifier(cfg Config) (*Notifier, error) {
	const op = "rabbit.NewNotifier"

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	// Durable queue so confirmations survive broker restarts.
	if _, err := ch.QueueDeclare(
		queueBookingConfirmed,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &Notifier{conn: conn, ch: ch}, nil
}

func (n *Notifier) Close() error {
	if err := n.ch.Close(); err != nil {
		n.conn.Close()
		return err
	}
	return n.conn.Close()
}

func (n *Notifier) publish(ctx context.Context, queue string, body []byte) error {
	return n.ch.PublishWithContext(ctx,
		"",    // default exchange
		queue, // routing key = queue name
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}
