package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/streadway/amqp"
)

type Publisher struct {
	client *RabbitMQClient
}

func NewPublisher(client *RabbitMQClient) *Publisher {
	return &Publisher{client: client}
}

// Publish wraps payload in an Event and sends it with eventType as routing key.
func (p *Publisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !p.client.IsConnected() {
		return ErrNotConnected
	}

	event, err := NewEvent(p.client.config.ServiceName, eventType, payload)
	if err != nil {
		return fmt.Errorf("event serialization error: %w", err)
	}
	msg, err := publishing(event)
	if err != nil {
		return fmt.Errorf("event serialization error: %w", err)
	}

	err = p.client.Channel().Publish(
		p.client.config.Exchange,
		event.Type,
		false, // mandatory
		false, // immediate
		msg,
	)
	if err != nil {
		return fmt.Errorf("event publish error: %w", err)
	}

	log.Printf("[rabbitmq] event published: %s (%s)", event.Type, event.ID)
	return nil
}

func publishing(event Event) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID.String(),
		Timestamp:    event.Timestamp,
		Type:         event.Type,
		AppId:        event.Service,
		Headers: amqp.Table{
			"service":    event.Service,
			"event_type": event.Type,
		},
	}, nil
}
