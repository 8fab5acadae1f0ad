package messaging

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/streadway/amqp"
)

var ErrNotConnected = errors.New("there is no connection to RabbitMQ")

type RabbitMQClient struct {
	config     *RabbitMQConfig
	connection *amqp.Connection
	channel    *amqp.Channel
	mu         sync.RWMutex
	isClosing  bool
	done       chan struct{}
	onConnect  []func()
}

func NewRabbitMQClient(config *RabbitMQConfig) *RabbitMQClient {
	return &RabbitMQClient{
		config: config,
		done:   make(chan struct{}),
	}
}

// Connect dials with retries and declares the topic exchange. A dropped
// connection is re-dialled in the background until Close is called, and
// every OnReconnect hook runs once the new channel is in place.
func (r *RabbitMQClient) Connect() error {
	conn, ch, err := r.dialWithRetry()
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.isClosing {
		r.mu.Unlock()
		ch.Close()
		conn.Close()
		return ErrNotConnected
	}
	r.connection, r.channel = conn, ch
	r.mu.Unlock()

	log.Printf("[rabbitmq] connected to %s", r.config.Host)
	go r.watchConnection(conn)
	return nil
}

// OnReconnect registers fn to run after each successful reconnect.
func (r *RabbitMQClient) OnReconnect(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onConnect = append(r.onConnect, fn)
}

func (r *RabbitMQClient) dialWithRetry() (*amqp.Connection, *amqp.Channel, error) {
	attempts := max(r.config.RetryCount, 1)
	var err error
	for i := 0; i < attempts; i++ {
		conn, ch, dialErr := r.dial()
		if dialErr == nil {
			return conn, ch, nil
		}
		err = dialErr
		log.Printf("[rabbitmq] connection error (attempt %d/%d): %v", i+1, attempts, err)
		if i < attempts-1 && !r.wait(r.config.RetryDelay) {
			return nil, nil, ErrNotConnected
		}
	}
	return nil, nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, err)
}

// wait sleeps for d and reports false if the client was closed meanwhile.
func (r *RabbitMQClient) wait(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-r.done:
		return false
	}
}

func (r *RabbitMQClient) dial() (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.DialConfig(r.config.ConnectionURL(), amqp.Config{
		Dial: amqp.DefaultDial(r.config.ConnectionTimeout),
	})
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		r.config.Exchange, // name
		"topic",           // type
		true,              // durable
		false,             // auto-deleted
		false,             // internal
		false,             // no-wait
		nil,               // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("declare exchange %s: %w", r.config.Exchange, err)
	}
	return conn, ch, nil
}

func (r *RabbitMQClient) closing() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isClosing
}

// watchConnection re-dials after conn drops, for as long as it takes, and
// then runs the reconnect hooks.
func (r *RabbitMQClient) watchConnection(conn *amqp.Connection) {
	notifyClose := conn.NotifyClose(make(chan *amqp.Error, 1))

	select {
	case err := <-notifyClose:
		if r.closing() {
			return
		}
		log.Printf("[rabbitmq] connection lost: %v, reconnecting", err)
	case <-r.done:
		return
	}

	for r.wait(r.config.RetryDelay) {
		err := r.Connect()
		if err == nil {
			r.runReconnectHooks()
			return
		}
		if r.closing() {
			return
		}
		log.Printf("[rabbitmq] reconnect failed: %v", err)
	}
}

func (r *RabbitMQClient) runReconnectHooks() {
	r.mu.RLock()
	hooks := append([]func(){}, r.onConnect...)
	r.mu.RUnlock()
	for _, fn := range hooks {
		fn()
	}
}

func (r *RabbitMQClient) Channel() *amqp.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.channel
}

func (r *RabbitMQClient) Done() <-chan struct{} {
	return r.done
}

func (r *RabbitMQClient) IsConnected() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.connection != nil && !r.connection.IsClosed()
}

func (r *RabbitMQClient) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isClosing {
		return nil
	}
	r.isClosing = true
	close(r.done)

	var errs []error
	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("channel close: %w", err))
		}
	}
	if r.connection != nil {
		if err := r.connection.Close(); err != nil {
			errs = append(errs, fmt.Errorf("connection close: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		log.Printf("[rabbitmq] close: %v", err)
		return err
	}
	log.Println("[rabbitmq] connection closed")
	return nil
}
