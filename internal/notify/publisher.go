package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher emits account events to the storefront exchange.
type Publisher struct {
	ch       *amqp.Channel
	exchange string
}

// Declare sets up the exchange, the account queue and its binding. Both the API and
// the notifier worker call it so either can start first.
func Declare(ch *amqp.Channel, exchange, queue string) error {
	if err := ch.ExchangeDeclare(
		exchange,
		exchangeKind,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, AccountCreatedRouting, exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}

	return nil
}

func NewPublisher(ch *amqp.Channel, exchange, queue string) (*Publisher, error) {
	if err := Declare(ch, exchange, queue); err != nil {
		return nil, err
	}
	return &Publisher{ch: ch, exchange: exchange}, nil
}

func (p *Publisher) NotifyAccountCreated(ctx context.Context, email string) error {
	msg := AccountCreatedMsg{
		MessageID:  uuid.NewString(),
		Email:      email,
		OccurredAt: time.Now().UTC(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := p.ch.PublishWithContext(ctx, p.exchange, AccountCreatedRouting, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.MessageID,
		Timestamp:    msg.OccurredAt,
		Body:         body,
	}); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	return nil
}
