package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/streadway/amqp"
	"storefront/internal/domain"
)

const confirmTimeout = 5 * time.Second

// AMQPPublisher publishes to a durable topic exchange with publisher confirms.
// Routing keys are "<channel>.<template>", e.g. "email.order_paid".
type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	confirms chan amqp.Confirmation
}

func NewAMQPPublisher(url string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp: open channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp: enable confirms: %w", err)
	}
	if err := ch.ExchangeDeclare(Topic, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp: declare exchange: %w", err)
	}
	return &AMQPPublisher{
		conn:     conn,
		ch:       ch,
		confirms: ch.NotifyPublish(make(chan amqp.Confirmation, 1)),
	}, nil
}

func RoutingKey(n domain.Notification) string {
	return n.Channel + "." + n.Template
}

func (p *AMQPPublisher) Publish(ctx context.Context, n domain.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("amqp: encode notification: %w", err)
	}
	err = p.ch.Publish(Topic, RoutingKey(n), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    n.ID,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("amqp: publish notification %s: %w", n.ID, err)
	}

	select {
	case confirm := <-p.confirms:
		if !confirm.Ack {
			return errors.New("amqp: notification nacked by broker")
		}
		return nil
	case <-time.After(confirmTimeout):
		return errors.New("amqp: publish confirmation timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *AMQPPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
