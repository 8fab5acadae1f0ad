package messaging

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"julianmorley.ca/con-plar/purchases/pkg/global"
)

type RabbitMQConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	VHost             string
	Exchange          string
	Queue             string
	ServiceName       string
	RetryCount        int
	RetryDelay        time.Duration
	MaxRedeliveries   int
	ConnectionTimeout time.Duration
}

// NewRabbitMQConfig reads RABBITMQ_* from the environment. An empty
// RABBITMQ_HOST leaves messaging disabled.
func NewRabbitMQConfig(serviceName string) *RabbitMQConfig {
	redeliveries := global.GetEnvInt("RABBITMQ_MAX_REDELIVERIES", 3)
	if redeliveries < 0 {
		redeliveries = 0
	}

	return &RabbitMQConfig{
		Host:              global.GetEnvOrDefault("RABBITMQ_HOST", ""),
		Port:              global.GetEnvInt("RABBITMQ_PORT", 5672),
		Username:          global.GetEnvOrDefault("RABBITMQ_USERNAME", "guest"),
		Password:          global.GetEnvOrDefault("RABBITMQ_PASSWORD", "guest"),
		VHost:             global.GetEnvOrDefault("RABBITMQ_VHOST", "/"),
		Exchange:          global.GetEnvOrDefault("RABBITMQ_EXCHANGE", "shop.events"),
		Queue:             global.GetEnvOrDefault("RABBITMQ_QUEUE", serviceName+".payments"),
		ServiceName:       serviceName,
		RetryCount:        max(global.GetEnvInt("RABBITMQ_RETRY_COUNT", 3), 1),
		RetryDelay:        global.GetEnvDuration("RABBITMQ_RETRY_DELAY", 5*time.Second),
		MaxRedeliveries:   redeliveries,
		ConnectionTimeout: 30 * time.Second,
	}
}

func (c *RabbitMQConfig) Enabled() bool {
	return c.Host != ""
}

func (c *RabbitMQConfig) ConnectionURL() string {
	vhost := c.VHost
	if vhost == "/" {
		vhost = "%2F"
	} else {
		vhost = url.PathEscape(strings.TrimPrefix(vhost, "/"))
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%d/%s",
		url.QueryEscape(c.Username), url.QueryEscape(c.Password), c.Host, c.Port, vhost)
}
