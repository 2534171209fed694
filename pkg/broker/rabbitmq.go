package broker

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type RabbitConfig struct {
	URL             string
	Exchange        string
	Queue           string
	DeadLetterQueue string
	RoutingKey      string
	MaxPriority     int
}

type RabbitMQ struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	cfg  *RabbitConfig

	deliveries <-chan amqp.Delivery
}

func NewRabbitMQ(cfg *RabbitConfig) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	r := &RabbitMQ{conn: conn, ch: ch, cfg: cfg}
	if err := r.setup(); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

// setup declares the topic exchange, the priority queue bound to it and the
// dead-letter exchange/queue pair that rejected messages end up in.
func (r *RabbitMQ) setup() error {
	dlx := r.cfg.DeadLetterQueue + "_exchange"

	if err := r.ch.ExchangeDeclare(dlx, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dead letter exchange: %w", err)
	}
	if _, err := r.ch.QueueDeclare(r.cfg.DeadLetterQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dead letter queue: %w", err)
	}
	if err := r.ch.QueueBind(r.cfg.DeadLetterQueue, r.cfg.DeadLetterQueue, dlx, false, nil); err != nil {
		return fmt.Errorf("bind dead letter queue: %w", err)
	}

	if err := r.ch.ExchangeDeclare(r.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	_, err := r.ch.QueueDeclare(r.cfg.Queue, true, false, false, false, amqp.Table{
		"x-max-priority":            r.cfg.MaxPriority,
		"x-dead-letter-exchange":    dlx,
		"x-dead-letter-routing-key": r.cfg.DeadLetterQueue,
	})
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := r.ch.QueueBind(r.cfg.Queue, r.cfg.RoutingKey+".#", r.cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

func (r *RabbitMQ) Publish(ctx context.Context, msg Message) error {
	return r.ch.PublishWithContext(ctx,
		r.cfg.Exchange,
		routingKey(r.cfg.RoutingKey, msg.Key),
		false, // mandatory
		false, // immediate
		publishing(msg),
	)
}

// routingKey places msg keys under the configured prefix so the queue binding
// prefix.# picks up every event.
func routingKey(prefix, key string) string {
	if key == "" {
		return prefix
	}
	return prefix + "." + key
}

func publishing(msg Message) amqp.Publishing {
	return amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		ContentType:  "application/json",
		Priority:     msg.Priority,
		Body:         msg.Value,
	}
}

func fromDelivery(d amqp.Delivery) Message {
	return Message{Key: d.RoutingKey, Value: d.Body, Priority: d.Priority}
}

func (r *RabbitMQ) ReadMessage(ctx context.Context) (Message, error) {
	if r.deliveries == nil {
		d, err := r.ch.Consume(r.cfg.Queue, "flowershop-inventory", false, false, false, false, nil)
		if err != nil {
			return Message{}, fmt.Errorf("rabbitmq consume: %w", err)
		}
		r.deliveries = d
	}

	select {
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case d, ok := <-r.deliveries:
		if !ok {
			return Message{}, ErrClosed
		}
		if err := d.Ack(false); err != nil {
			return Message{}, fmt.Errorf("rabbitmq ack: %w", err)
		}
		return fromDelivery(d), nil
	}
}

func (r *RabbitMQ) Close() error {
	if r.ch != nil {
		r.ch.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
