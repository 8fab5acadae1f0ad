package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/streadway/amqp"
)

const retryHeader = "x-retry-count"

// EventHandler processes one event payload. A returned error sends the
// message back for another attempt until MaxRedeliveries is reached.
type EventHandler func(ctx context.Context, eventType string, payload []byte) error

// channelPublisher is the part of *amqp.Channel used to requeue a retry.
type channelPublisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type Consumer struct {
	client  *RabbitMQClient
	config  *RabbitMQConfig
	channel func() channelPublisher
	after   func(d time.Duration, f func())
}

func NewConsumer(client *RabbitMQClient) *Consumer {
	return &Consumer{
		client: client,
		config: client.config,
		channel: func() channelPublisher {
			if ch := client.Channel(); ch != nil {
				return ch
			}
			return nil
		},
		after: func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

// Consume binds the service queue to routingKeys and handles deliveries in a
// goroutine until ctx is cancelled or the client is closed. The subscription
// is set up again whenever the client reconnects.
func (c *Consumer) Consume(ctx context.Context, routingKeys []string, handler EventHandler) error {
	if err := c.subscribe(ctx, routingKeys, handler); err != nil {
		return err
	}
	c.client.OnReconnect(func() {
		if ctx.Err() != nil {
			return
		}
		if err := c.subscribe(ctx, routingKeys, handler); err != nil {
			log.Printf("[rabbitmq] resubscribe to %s failed: %v", c.config.Queue, err)
		}
	})
	return nil
}

func (c *Consumer) subscribe(ctx context.Context, routingKeys []string, handler EventHandler) error {
	if !c.client.IsConnected() {
		return ErrNotConnected
	}
	channel := c.client.Channel()

	queue, err := channel.QueueDeclare(
		c.config.Queue, // name
		true,           // durable
		false,          // delete when unused
		false,          // exclusive
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("queue declare error: %w", err)
	}

	for _, routingKey := range routingKeys {
		if err := channel.QueueBind(queue.Name, routingKey, c.config.Exchange, false, nil); err != nil {
			return fmt.Errorf("queue bind error (%s): %w", routingKey, err)
		}
		log.Printf("[rabbitmq] queue %s bound to %s", queue.Name, routingKey)
	}

	messages, err := channel.Consume(
		queue.Name,           // queue
		c.config.ServiceName, // consumer
		false,                // auto-ack
		false,                // exclusive
		false,                // no-local
		false,                // no-wait
		nil,                  // args
	)
	if err != nil {
		return fmt.Errorf("consume start error: %w", err)
	}

	go func() {
		for {
			select {
			case msg, ok := <-messages:
				if !ok {
					log.Printf("[rabbitmq] delivery channel closed for %s, waiting for reconnect", queue.Name)
					return
				}
				c.handleMessage(ctx, msg, handler)
			case <-ctx.Done():
				return
			case <-c.client.Done():
				return
			}
		}
	}()
	return nil
}

func (c *Consumer) handleMessage(ctx context.Context, msg amqp.Delivery, handler EventHandler) {
	var event Event
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		log.Printf("[rabbitmq] event deserialize error: %v", err)
		_ = msg.Nack(false, false)
		return
	}

	if err := handler(ctx, event.Type, event.Payload); err != nil {
		log.Printf("[rabbitmq] event %s (%s) failed: %v", event.Type, event.ID, err)
		if retryCount(msg.Headers) >= c.config.MaxRedeliveries {
			log.Printf("[rabbitmq] giving up on %s after %d attempts", event.ID, c.config.MaxRedeliveries)
			_ = msg.Nack(false, false)
			return
		}
		c.after(c.config.RetryDelay, func() { c.republish(msg) })
		return
	}

	_ = msg.Ack(false)
}

// republish sends a copy with an incremented retry header straight to the
// service queue through the default exchange, then acks the original. Other
// queues bound to the same routing key never see the retry.
func (c *Consumer) republish(msg amqp.Delivery) {
	channel := c.channel()
	if channel == nil {
		_ = msg.Nack(false, true)
		return
	}

	err := channel.Publish(
		"",             // default exchange
		c.config.Queue, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  msg.ContentType,
			Body:         msg.Body,
			DeliveryMode: msg.DeliveryMode,
			MessageId:    msg.MessageId,
			Type:         msg.Type,
			Headers:      withRetry(msg.Headers),
		},
	)
	if err != nil {
		log.Printf("[rabbitmq] retry publish error: %v", err)
		_ = msg.Nack(false, true)
		return
	}
	_ = msg.Ack(false)
}

func retryCount(headers amqp.Table) int {
	switch n := headers[retryHeader].(type) {
	case int32:
		return int(n)
	case int64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}

func withRetry(headers amqp.Table) amqp.Table {
	next := amqp.Table{}
	for k, v := range headers {
		next[k] = v
	}
	next[retryHeader] = int32(retryCount(headers) + 1)
	return next
}
